package restriction

import (
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/query"
)

// AttributeRestriction is one comparison found in a filter.
type AttributeRestriction struct {
	// Index is the discovery order, starting at 0.
	Index int
	// Operator is one of = <> > >= < <=.
	Operator string
	// Property is the compared property when one side is a property name,
	// otherwise empty.
	Property string
	// Value is the other operand when Property is set.
	Value query.Expression
	// Function is the comparison node itself. It belongs to the filter and
	// must not be mutated.
	Function *query.Function
}

// SpatialRestriction is one spatial predicate between a property and a
// constant geometry or envelope.
type SpatialRestriction struct {
	Index    int
	Relation geometry.Relation
	Property string
	// Geometry is the constant operand. For envelope literals it is the
	// polygon built from the envelope.
	Geometry geometry.Geometry
	// Envelope is the MBR of Geometry.
	Envelope geometry.Envelope
	// PropertyFirst is true when the property is the first argument.
	// Within and Contains are not symmetric.
	PropertyFirst bool
	Function      *query.Function
}

// filterOf unwraps the filter expression of a statement, Where node or
// expression.
func filterOf(n query.Node) query.Expression {
	switch node := n.(type) {
	case *query.Select:
		if node == nil {
			return nil
		}
		return node.Filter()
	case *query.Where:
		if node == nil {
			return nil
		}
		return node.Expr
	case *query.Update:
		if node == nil || node.Where == nil {
			return nil
		}
		return node.Where.Expr
	case *query.Delete:
		if node == nil || node.Where == nil {
			return nil
		}
		return node.Where.Expr
	case query.Expression:
		return node
	}
	return nil
}

// AttributeVisitor collects comparisons that sit directly at the filter root
// or under and/or/not connectives. Comparisons nested in other functions are
// not restrictions on a row and are ignored.
type AttributeVisitor struct {
	query.NopVisitor
	found []AttributeRestriction
}

// NewAttributeVisitor returns an empty visitor.
func NewAttributeVisitor() *AttributeVisitor {
	return &AttributeVisitor{}
}

// VisitFunction records comparisons and descends through connectives.
func (v *AttributeVisitor) VisitFunction(f *query.Function) error {
	switch {
	case query.IsLogical(f.Name):
		for _, a := range f.Args {
			if a == nil {
				continue
			}
			if err := query.Accept(a, v); err != nil {
				return err
			}
		}
	case query.IsComparison(f.Name):
		r := AttributeRestriction{Index: len(v.found), Operator: f.Name, Function: f}
		if len(f.Args) == 2 {
			if p, ok := f.Args[0].(*query.PropertyName); ok {
				r.Property, r.Value = p.Name, f.Args[1]
			} else if p, ok := f.Args[1].(*query.PropertyName); ok {
				r.Property, r.Value = p.Name, f.Args[0]
			}
		}
		v.found = append(v.found, r)
	}
	return nil
}

// Restrictions returns what has been collected so far.
func (v *AttributeVisitor) Restrictions() []AttributeRestriction {
	return append([]AttributeRestriction(nil), v.found...)
}

// FindAttribute returns the attribute restrictions of a filter in depth-first
// order. n may be a Select, Update, Delete, Where or bare expression.
func FindAttribute(n query.Node) []AttributeRestriction {
	e := filterOf(n)
	if e == nil {
		return nil
	}
	v := NewAttributeVisitor()
	_ = query.Accept(e, v) // VisitFunction never fails
	return v.found
}

// SpatialVisitor collects the ST_* predicates of a filter at any depth.
// Predicates whose operands are not one property name and one geometry or
// envelope constant are skipped.
type SpatialVisitor struct {
	query.NopVisitor
	engine geometry.Engine
	found  []SpatialRestriction
}

// NewSpatialVisitor returns a visitor that derives envelopes and envelope
// geometries through eng. A nil eng selects geometry.DefaultEngine.
func NewSpatialVisitor(eng geometry.Engine) *SpatialVisitor {
	if eng == nil {
		eng = geometry.DefaultEngine()
	}
	return &SpatialVisitor{engine: eng}
}

// VisitFunction records spatial predicates and descends into every argument.
func (v *SpatialVisitor) VisitFunction(f *query.Function) error {
	if rel, ok := query.SpatialRelation(f.Name); ok && len(f.Args) == 2 {
		if r, ok := v.match(f, rel); ok {
			r.Index = len(v.found)
			v.found = append(v.found, r)
		}
	}
	for _, a := range f.Args {
		if a == nil {
			continue
		}
		if err := query.Accept(a, v); err != nil {
			return err
		}
	}
	return nil
}

func (v *SpatialVisitor) match(f *query.Function, rel geometry.Relation) (SpatialRestriction, bool) {
	r := SpatialRestriction{Relation: rel, Function: f}
	prop, constant := f.Args[0], f.Args[1]
	r.PropertyFirst = true
	if _, ok := prop.(*query.PropertyName); !ok {
		prop, constant = constant, prop
		r.PropertyFirst = false
	}
	p, ok := prop.(*query.PropertyName)
	if !ok {
		return r, false
	}
	r.Property = p.Name

	switch c := constant.(type) {
	case *query.Literal:
		g, ok := c.Value.(datatype.Geom)
		if !ok {
			return r, false
		}
		r.Geometry = g.Geometry
		r.Envelope = v.engine.MBR(g.Geometry)
	case *query.LiteralEnvelope:
		r.Envelope = c.Envelope
		r.Geometry = v.engine.FromEnvelope(c.Envelope, c.SRID)
	default:
		return r, false
	}
	return r, true
}

// Restrictions returns what has been collected so far.
func (v *SpatialVisitor) Restrictions() []SpatialRestriction {
	return append([]SpatialRestriction(nil), v.found...)
}

// FindSpatial returns the spatial restrictions of a filter in depth-first
// order, using the default geometry engine.
func FindSpatial(n query.Node) []SpatialRestriction {
	return FindSpatialWith(n, nil)
}

// FindSpatialWith is FindSpatial with an explicit geometry engine.
func FindSpatialWith(n query.Node, eng geometry.Engine) []SpatialRestriction {
	e := filterOf(n)
	if e == nil {
		return nil
	}
	v := NewSpatialVisitor(eng)
	_ = query.Accept(e, v) // VisitFunction never fails
	return v.found
}
