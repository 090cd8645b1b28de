package dataset

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
)

// Typed getters read one column of the current row. They fail with
// ROW_EXTRACTION when the value is NULL or its kind does not fit the
// requested Go type. Integer getters also fail on overflow.

func get[T any](ds DataSet, i int, want string, extract func(datatype.Value) (T, error)) (T, error) {
	var zero T
	v, err := ds.Value(i)
	if err != nil {
		return zero, err
	}
	name := ds.Property(i).Name
	if datatype.IsNull(v) {
		return zero, errs.RowExtraction("property %q is null", name).WithProperty(name)
	}
	out, err := extract(v)
	if err != nil {
		return zero, errs.Wrap(errs.CodeRowExtraction, err, "property %q: cannot read %s as %s", name, v.Type(), want).WithProperty(name)
	}
	return out, nil
}

func byName[T any](ds DataSet, name string, getter func(DataSet, int) (T, error)) (T, error) {
	i := PropertyPos(ds, name)
	if i < 0 {
		var zero T
		return zero, errs.NotFound("property %q not found", name).WithProperty(name)
	}
	return getter(ds, i)
}

func mismatch(v datatype.Value) error {
	return errs.Precondition("unexpected %s value", v.Type())
}

func integer(to datatype.Type) func(datatype.Value) (datatype.Value, error) {
	return func(v datatype.Value) (datatype.Value, error) {
		switch v.(type) {
		case datatype.Int, datatype.UInt:
			return datatype.Convert(v, to)
		}
		return nil, mismatch(v)
	}
}

// Int64 reads column i as int64.
func Int64(ds DataSet, i int) (int64, error) {
	return get(ds, i, "int64", func(v datatype.Value) (int64, error) {
		out, err := integer(datatype.Int64)(v)
		if err != nil {
			return 0, err
		}
		return int64(out.(datatype.Int)), nil
	})
}

// Int32 reads column i as int32.
func Int32(ds DataSet, i int) (int32, error) {
	return get(ds, i, "int32", func(v datatype.Value) (int32, error) {
		out, err := integer(datatype.Int32)(v)
		if err != nil {
			return 0, err
		}
		return int32(out.(datatype.Int)), nil
	})
}

// UInt64 reads column i as uint64.
func UInt64(ds DataSet, i int) (uint64, error) {
	return get(ds, i, "uint64", func(v datatype.Value) (uint64, error) {
		out, err := integer(datatype.UInt64)(v)
		if err != nil {
			return 0, err
		}
		return uint64(out.(datatype.UInt)), nil
	})
}

// Float64 reads column i as float64. Any numeric kind is accepted.
func Float64(ds DataSet, i int) (float64, error) {
	return get(ds, i, "float64", func(v datatype.Value) (float64, error) {
		switch v.(type) {
		case datatype.Int, datatype.UInt, datatype.Float, datatype.Num:
			out, err := datatype.Convert(v, datatype.Double)
			if err != nil {
				return 0, err
			}
			return float64(out.(datatype.Float)), nil
		}
		return 0, mismatch(v)
	})
}

// Numeric reads column i as a decimal. Integers and numerics are accepted.
func Numeric(ds DataSet, i int) (decimal.Decimal, error) {
	return get(ds, i, "numeric", func(v datatype.Value) (decimal.Decimal, error) {
		switch x := v.(type) {
		case datatype.Num:
			return x.Decimal, nil
		case datatype.Int, datatype.UInt:
			out, err := datatype.Convert(v, datatype.Numeric)
			if err != nil {
				return decimal.Zero, err
			}
			return out.(datatype.Num).Decimal, nil
		}
		return decimal.Zero, mismatch(v)
	})
}

// Bool reads column i as bool.
func Bool(ds DataSet, i int) (bool, error) {
	return get(ds, i, "bool", func(v datatype.Value) (bool, error) {
		if b, ok := v.(datatype.Bool); ok {
			return bool(b), nil
		}
		return false, mismatch(v)
	})
}

// String reads column i as string. Only string values are accepted; see
// AsString for a lenient rendering.
func String(ds DataSet, i int) (string, error) {
	return get(ds, i, "string", func(v datatype.Value) (string, error) {
		if s, ok := v.(datatype.Str); ok {
			return string(s), nil
		}
		return "", mismatch(v)
	})
}

// AsString renders column i as text. NULL renders as the empty string.
func AsString(ds DataSet, i int) (string, error) {
	v, err := ds.Value(i)
	if err != nil {
		return "", err
	}
	return datatype.AsString(v), nil
}

// Bytes reads column i as a byte slice owned by the caller.
func Bytes(ds DataSet, i int) ([]byte, error) {
	return get(ds, i, "bytes", func(v datatype.Value) ([]byte, error) {
		if b, ok := v.(datatype.Bytes); ok {
			return append([]byte(nil), b...), nil
		}
		return nil, mismatch(v)
	})
}

// Geometry reads column i as a geometry. WKB byte values are decoded with
// the column SRID.
func Geometry(ds DataSet, i int) (geometry.Geometry, error) {
	srid := ds.Property(i).SRID
	return get(ds, i, "geometry", func(v datatype.Value) (geometry.Geometry, error) {
		switch x := v.(type) {
		case datatype.Geom:
			return x.Geometry, nil
		case datatype.Bytes:
			return geometry.FromWKB(x, srid)
		}
		return geometry.Geometry{}, mismatch(v)
	})
}

// Time reads column i as a time.
func Time(ds DataSet, i int) (time.Time, error) {
	return get(ds, i, "datetime", func(v datatype.Value) (time.Time, error) {
		if t, ok := v.(datatype.Time); ok {
			return t.Time, nil
		}
		return time.Time{}, mismatch(v)
	})
}

// List reads column i as an array value.
func List(ds DataSet, i int) (datatype.List, error) {
	return get(ds, i, "array", func(v datatype.Value) (datatype.List, error) {
		if l, ok := v.(datatype.List); ok {
			return datatype.Clone(l).(datatype.List), nil
		}
		return nil, mismatch(v)
	})
}

// Int64ByName reads the named column as int64.
func Int64ByName(ds DataSet, name string) (int64, error) { return byName(ds, name, Int64) }

// Int32ByName reads the named column as int32.
func Int32ByName(ds DataSet, name string) (int32, error) { return byName(ds, name, Int32) }

// Float64ByName reads the named column as float64.
func Float64ByName(ds DataSet, name string) (float64, error) { return byName(ds, name, Float64) }

// NumericByName reads the named column as a decimal.
func NumericByName(ds DataSet, name string) (decimal.Decimal, error) {
	return byName(ds, name, Numeric)
}

// BoolByName reads the named column as bool.
func BoolByName(ds DataSet, name string) (bool, error) { return byName(ds, name, Bool) }

// StringByName reads the named column as string.
func StringByName(ds DataSet, name string) (string, error) { return byName(ds, name, String) }

// BytesByName reads the named column as bytes.
func BytesByName(ds DataSet, name string) ([]byte, error) { return byName(ds, name, Bytes) }

// GeometryByName reads the named column as a geometry.
func GeometryByName(ds DataSet, name string) (geometry.Geometry, error) {
	return byName(ds, name, Geometry)
}

// TimeByName reads the named column as a time.
func TimeByName(ds DataSet, name string) (time.Time, error) { return byName(ds, name, Time) }
