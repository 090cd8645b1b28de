package spatial

import (
	"context"

	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/query"
)

// GeometryProperty returns the geometry property prop of dataset name, or
// its default geometry property when prop is empty.
func GeometryProperty(ctx context.Context, tr datasource.Transactor, name, prop string) (datatype.Property, error) {
	dt, err := tr.DataSetType(ctx, name)
	if err != nil {
		return datatype.Property{}, err
	}
	var p datatype.Property
	var ok bool
	if prop != "" {
		p, ok = dt.Property(prop)
	} else {
		p, ok = dt.DefaultGeometryProperty()
	}
	if !ok {
		return datatype.Property{}, errs.NotFound("dataset %q has no geometry property %q", name, prop).
			WithDataSet(name).WithProperty(prop)
	}
	if p.Type != datatype.Geometry {
		return datatype.Property{}, errs.Precondition("property %q is not a geometry", p.Name).
			WithDataSet(name).WithProperty(p.Name)
	}
	return p, nil
}

// EnvelopeFilter returns rel(prop, e), with e read in the SRID of the
// property.
func EnvelopeFilter(ctx context.Context, tr datasource.Transactor, name, prop string, e geometry.Envelope, rel geometry.Relation) (query.Expression, error) {
	p, err := GeometryProperty(ctx, tr, name, prop)
	if err != nil {
		return nil, err
	}
	return query.STRelate(rel, query.Prop(p.Name), query.LitEnvelope(e, p.SRID)), nil
}

// GeometryFilter returns rel(prop, g) for the WKT or EWKT text wkt. Plain
// WKT is read in the SRID of the property.
func GeometryFilter(ctx context.Context, tr datasource.Transactor, name, prop, wkt string, rel geometry.Relation) (query.Expression, error) {
	p, err := GeometryProperty(ctx, tr, name, prop)
	if err != nil {
		return nil, err
	}
	g, err := datatype.ParsePropertyLiteral(p, wkt)
	if err != nil {
		return nil, err
	}
	if datatype.IsNull(g) {
		return nil, errs.Precondition("NULL is not a geometry")
	}
	return query.STRelate(rel, query.Prop(p.Name), query.Lit(g)), nil
}
