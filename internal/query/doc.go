// Package query provides the backend-agnostic query object graph.
//
// A query is a tree of nodes: expressions (PropertyName, Literal,
// LiteralEnvelope, Function, SubSelect) composed into statements (Select,
// Insert, Update, Delete) through fields, from-items, joins, Where,
// GroupBy, Having and OrderBy nodes.
//
// SEALED INTERFACES:
//
// Node, Expression and FromItem are sealed interfaces using the marker
// method pattern. Only pointer types in this package implement them, so
// every operation over the graph is an exhaustive type switch:
//
//	switch n := node.(type) {
//	case *PropertyName:
//	    // Handle property reference
//	case *Function:
//	    // Handle operator or function call
//	default:
//	    // Impossible - Node is sealed
//	}
//
// OWNERSHIP:
//
// A child node belongs to exactly one parent once attached. Sharing a
// subtree between graphs goes through Clone, which deep-copies nodes and
// mutable literal values.
//
// FUNCTIONS:
//
// Comparisons, logical connectives, arithmetic, IN, IS NULL, LIKE,
// aggregates and the ST_* spatial predicates are all Function nodes that
// differ only by name. The constructors in functions.go (EqualTo, And,
// STIntersects, ...) build them; the Is* helpers classify them.
//
// VISITORS:
//
// Accept dispatches a node to one handler of a Visitor. Backends translate
// graphs into their dialect with visitors and the restriction finders
// collect predicates with them. Inspect is the generic pre-order walk for
// callers that only need to look at nodes.
package query
