// Package geometry wraps the geometry engine consumed by the data access layer.
//
// Envelope is a plain bounding rectangle used for coarse filtering. Geometry
// holds a simplefeatures geometry plus an SRID. Engine exposes exactly what the
// spatial query processor needs: minimum bounding rectangles, envelope
// geometries and the eight named relations (INTERSECTS through EQUALS).
package geometry
