package query

import (
	"github.com/roach88/dataccess/internal/geometry"
)

// Fields returns one field per property name. A lone "*" or no names at all
// yields nil, which a Select reads as every property.
func Fields(names ...string) []*Field {
	if len(names) == 0 || (len(names) == 1 && names[0] == "*") {
		return nil
	}
	fields := make([]*Field, len(names))
	for i, n := range names {
		fields[i] = &Field{Expr: Prop(n)}
	}
	return fields
}

// BuildSelect returns SELECT <props> FROM dataset. With no props, or a
// single "*", every property is selected.
func BuildSelect(dataset string, props ...string) *Select {
	return &Select{
		Fields: Fields(props...),
		From:   []FromItem{&DataSetName{Name: dataset}},
	}
}

// BuildSpatialSelect returns a select over dataset restricted by
// rel(geomProp, g). The geometry property is appended to an explicit field
// list so callers can refine the result.
func BuildSpatialSelect(dataset string, props []string, geomProp string, g geometry.Geometry, rel geometry.Relation) *Select {
	s := spatialBase(dataset, props, geomProp)
	return s.WithWhere(STRelate(rel, Prop(geomProp), LitGeom(g)))
}

// BuildEnvelopeSelect is BuildSpatialSelect with an envelope operand.
func BuildEnvelopeSelect(dataset string, props []string, geomProp string, e geometry.Envelope, srid int, rel geometry.Relation) *Select {
	s := spatialBase(dataset, props, geomProp)
	return s.WithWhere(STRelate(rel, Prop(geomProp), LitEnvelope(e, srid)))
}

func spatialBase(dataset string, props []string, geomProp string) *Select {
	s := BuildSelect(dataset, props...)
	if s.Fields == nil {
		return s
	}
	for _, p := range props {
		if p == geomProp {
			return s
		}
	}
	s.Fields = append(s.Fields, &Field{Expr: Prop(geomProp)})
	return s
}

// DataSetNames returns the names of the plain datasets among from, in order.
// Joins contribute both sides.
func DataSetNames(from []FromItem) []string {
	var names []string
	var walk func(FromItem)
	walk = func(f FromItem) {
		switch item := f.(type) {
		case *DataSetName:
			names = append(names, item.Name)
		case *Join:
			walk(item.Left)
			walk(item.Right)
		}
	}
	for _, f := range from {
		walk(f)
	}
	return names
}
