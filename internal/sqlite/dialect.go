package sqlite

import (
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/query"
	"github.com/roach88/dataccess/internal/sqldialect"
)

// Dialect returns the SQL dialect of the backend: the generic operators,
// LIMIT -1 for offset-only selects, and ST_EnvelopeIntersects over the
// bounding-box shadow columns.
func Dialect() *sqldialect.Dialect {
	d := sqldialect.Generic(DriverType)
	d.UnboundedLimit = "-1"
	d.Register(query.FnEnvelopeIntersects, sqldialect.EncoderFunc(encodeEnvelopeIntersects))
	return d
}

// encodeEnvelopeIntersects renders the rectangle overlap test between a
// geometry property and a constant envelope or geometry, in either
// argument order.
func encodeEnvelopeIntersects(t *sqldialect.Translator, f *query.Function) error {
	if len(f.Args) != 2 {
		return errs.Precondition("%s needs two arguments, got %d", f.Name, len(f.Args))
	}
	prop, ok := f.Args[0].(*query.PropertyName)
	other := f.Args[1]
	if !ok {
		prop, ok = f.Args[1].(*query.PropertyName)
		other = f.Args[0]
	}
	if !ok {
		return errs.CapabilityMismatch("%s needs a geometry property operand", f.Name)
	}
	e, ok := constantEnvelope(other)
	if !ok {
		return errs.CapabilityMismatch("%s compares a property with a constant only", f.Name)
	}

	col := func(i int) string {
		c := sqldialect.QuoteIdent(shadow(prop.Name, i))
		if prop.DataSet != "" {
			return sqldialect.QuoteIdent(prop.DataSet) + "." + c
		}
		return c
	}
	t.Write("(" + col(0) + " <= ")
	t.Param(e.MaxX)
	t.Write(" AND " + col(2) + " >= ")
	t.Param(e.MinX)
	t.Write(" AND " + col(1) + " <= ")
	t.Param(e.MaxY)
	t.Write(" AND " + col(3) + " >= ")
	t.Param(e.MinY)
	t.Write(")")
	return nil
}

func constantEnvelope(e query.Expression) (geometry.Envelope, bool) {
	switch x := e.(type) {
	case *query.LiteralEnvelope:
		return x.Envelope, true
	case *query.Literal:
		if g, ok := x.Value.(datatype.Geom); ok {
			return g.Envelope(), true
		}
	}
	return geometry.Envelope{}, false
}
