// Package restriction finds the predicates of a query filter that a backend
// may or may not be able to run natively.
//
// AttributeVisitor collects comparisons (= <> > >= < <=) reachable from the
// filter root through and/or/not. SpatialVisitor collects ST_* predicates
// between a property and a geometry or envelope constant at any depth.
// Both number their findings in depth-first discovery order and never
// modify the graph, so running them twice yields the same lists.
package restriction
