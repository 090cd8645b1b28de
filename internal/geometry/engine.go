package geometry

import (
	"fmt"
	"strings"

	"github.com/peterstace/simplefeatures/geom"
)

// Relation is a binary spatial relation between two geometries.
type Relation int

const (
	Intersects Relation = iota
	Disjoint
	Touches
	Overlaps
	Crosses
	Within
	Contains
	Equals
)

var relationNames = [...]string{
	Intersects: "INTERSECTS",
	Disjoint:   "DISJOINT",
	Touches:    "TOUCHES",
	Overlaps:   "OVERLAPS",
	Crosses:    "CROSSES",
	Within:     "WITHIN",
	Contains:   "CONTAINS",
	Equals:     "EQUALS",
}

// Relations lists every relation in declaration order.
func Relations() []Relation {
	return []Relation{Intersects, Disjoint, Touches, Overlaps, Crosses, Within, Contains, Equals}
}

func (r Relation) String() string {
	if r < 0 || int(r) >= len(relationNames) {
		return fmt.Sprintf("Relation(%d)", int(r))
	}
	return relationNames[r]
}

// ParseRelation parses a relation name, case-insensitively.
func ParseRelation(s string) (Relation, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range relationNames {
		if name == up {
			return Relation(i), nil
		}
	}
	return 0, fmt.Errorf("unknown spatial relation %q", s)
}

// Engine evaluates exact spatial relations.
//
// The data access layer treats it as a black box: it only needs bounding
// rectangles, envelope geometries and the eight relation predicates.
type Engine interface {
	// Relate reports whether rel holds between a and b.
	Relate(a, b Geometry, rel Relation) (bool, error)

	// MBR returns the minimum bounding rectangle of g.
	MBR(g Geometry) Envelope

	// FromEnvelope returns the geometry covering e.
	FromEnvelope(e Envelope, srid int) Geometry
}

// DefaultEngine returns the simplefeatures-backed engine.
func DefaultEngine() Engine {
	return featuresEngine{}
}

type featuresEngine struct{}

func (featuresEngine) MBR(g Geometry) Envelope {
	return g.Envelope()
}

func (featuresEngine) FromEnvelope(e Envelope, srid int) Geometry {
	return FromEnvelope(e, srid)
}

func (featuresEngine) Relate(a, b Geometry, rel Relation) (bool, error) {
	if a.srid != 0 && b.srid != 0 && a.srid != b.srid {
		return false, fmt.Errorf("srid mismatch: %d vs %d", a.srid, b.srid)
	}
	switch rel {
	case Intersects:
		return geom.Intersects(a.g, b.g), nil
	case Disjoint:
		return !geom.Intersects(a.g, b.g), nil
	case Touches:
		return geom.Touches(a.g, b.g)
	case Overlaps:
		return geom.Overlaps(a.g, b.g)
	case Crosses:
		return geom.Crosses(a.g, b.g)
	case Within:
		return geom.Within(a.g, b.g)
	case Contains:
		return geom.Contains(a.g, b.g)
	case Equals:
		return geom.Equals(a.g, b.g)
	default:
		return false, fmt.Errorf("unsupported relation %s", rel)
	}
}
