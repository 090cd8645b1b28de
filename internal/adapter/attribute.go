package adapter

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
)

// AttributeConverter computes the value of one output property from the
// input columns at in, on the current row of ds.
type AttributeConverter func(ds dataset.DataSet, in []int, dst datatype.Property) (datatype.Value, error)

// Generic converts a single column to the destination type.
func Generic(ds dataset.DataSet, in []int, dst datatype.Property) (datatype.Value, error) {
	if len(in) != 1 {
		return nil, errs.Precondition("generic conversion takes one column, got %d", len(in))
	}
	v, err := ds.Value(in[0])
	if err != nil {
		return nil, err
	}
	out, err := datatype.Convert(v, dst.Type)
	if err != nil {
		return nil, errs.Wrap(errs.CodeRowExtraction, err, "convert to %q", dst.Name).WithProperty(dst.Name)
	}
	return out, nil
}

// TupleToString joins the string forms of several columns, NULLs included
// as empty strings.
func TupleToString(ds dataset.DataSet, in []int, dst datatype.Property) (datatype.Value, error) {
	parts := make([]string, len(in))
	for i, c := range in {
		v, err := ds.Value(c)
		if err != nil {
			return nil, err
		}
		parts[i] = datatype.AsString(v)
	}
	return datatype.Str("(" + strings.Join(parts, ", ") + ")"), nil
}

func point(ds dataset.DataSet, in []int, dst datatype.Property) (x, y float64, null bool, err error) {
	if len(in) != 1 {
		return 0, 0, false, errs.Precondition("point conversion takes one column, got %d", len(in))
	}
	v, err := ds.Value(in[0])
	if err != nil {
		return 0, 0, false, err
	}
	if datatype.IsNull(v) {
		return 0, 0, true, nil
	}
	g, ok := v.(datatype.Geom)
	if !ok {
		return 0, 0, false, errs.RowExtraction("%s is not a geometry", v.Type()).WithProperty(dst.Name)
	}
	x, y, ok = g.XY()
	if !ok {
		return 0, 0, false, errs.RowExtraction("%s is not a point", g.Geometry.Type()).WithProperty(dst.Name)
	}
	return x, y, false, nil
}

// PointToX extracts the X coordinate of a point column.
func PointToX(ds dataset.DataSet, in []int, dst datatype.Property) (datatype.Value, error) {
	x, _, null, err := point(ds, in, dst)
	if err != nil || null {
		return datatype.Null{}, err
	}
	return datatype.Convert(datatype.Float(x), dst.Type)
}

// PointToY extracts the Y coordinate of a point column.
func PointToY(ds dataset.DataSet, in []int, dst datatype.Property) (datatype.Value, error) {
	_, y, null, err := point(ds, in, dst)
	if err != nil || null {
		return datatype.Null{}, err
	}
	return datatype.Convert(datatype.Float(y), dst.Type)
}

// XYToPoint builds a point in srid from two numeric columns, X first.
// A NULL coordinate yields a NULL point.
func XYToPoint(srid int) AttributeConverter {
	return func(ds dataset.DataSet, in []int, dst datatype.Property) (datatype.Value, error) {
		if len(in) != 2 {
			return nil, errs.Precondition("point construction takes two columns, got %d", len(in))
		}
		var xy [2]float64
		for i, c := range in {
			v, err := ds.Value(c)
			if err != nil {
				return nil, err
			}
			if datatype.IsNull(v) {
				return datatype.Null{}, nil
			}
			f, err := datatype.Convert(v, datatype.Double)
			if err != nil {
				return nil, err
			}
			xy[i] = float64(f.(datatype.Float))
		}
		return datatype.NewGeom(geometry.Point(xy[0], xy[1], srid)), nil
	}
}

// CharEncoding re-encodes a string column stored in from into to. A nil
// encoding stands for UTF-8.
func CharEncoding(from, to encoding.Encoding) AttributeConverter {
	if from == nil {
		from = unicode.UTF8
	}
	if to == nil {
		to = unicode.UTF8
	}
	return func(ds dataset.DataSet, in []int, dst datatype.Property) (datatype.Value, error) {
		if len(in) != 1 {
			return nil, errs.Precondition("encoding conversion takes one column, got %d", len(in))
		}
		v, err := ds.Value(in[0])
		if err != nil || datatype.IsNull(v) {
			return datatype.Null{}, err
		}
		s, ok := v.(datatype.Str)
		if !ok {
			return nil, errs.RowExtraction("%s is not a string", v.Type()).WithProperty(dst.Name)
		}
		decoded, err := from.NewDecoder().String(string(s))
		if err != nil {
			return nil, errs.Wrap(errs.CodeRowExtraction, err, "decode %q", dst.Name).WithProperty(dst.Name)
		}
		encoded, err := to.NewEncoder().String(decoded)
		if err != nil {
			return nil, errs.Wrap(errs.CodeRowExtraction, err, "encode %q", dst.Name).WithProperty(dst.Name)
		}
		return datatype.Str(encoded), nil
	}
}

// Encoding looks up a character encoding by its WHATWG label, such as
// "latin1", "windows-1252" or "utf-8".
func Encoding(label string) (encoding.Encoding, error) {
	e, err := htmlindex.Get(label)
	if err != nil {
		return nil, errs.Wrap(errs.CodeConfiguration, err, "unknown encoding %q", label)
	}
	return e, nil
}
