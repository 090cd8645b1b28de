package datatype

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
)

// Convert coerces v to the target type. Null converts to Null for every target.
// Unknown accepts any value unchanged. Failures are ROW_EXTRACTION errors.
func Convert(v Value, to Type) (Value, error) {
	if IsNull(v) {
		return Null{}, nil
	}
	if to == Unknown {
		return v, nil
	}
	out, err := convert(v, to)
	if err != nil {
		return nil, errs.Wrap(errs.CodeRowExtraction, err, "cannot convert %s to %s", v.Type(), to)
	}
	return out, nil
}

func convert(v Value, to Type) (Value, error) {
	switch {
	case to.IsInteger():
		return toInteger(v, to)
	case to == Float32 || to == Double:
		return toFloatValue(v)
	}
	switch to {
	case Numeric:
		return toNumeric(v)
	case Boolean:
		return toBool(v)
	case String, XML:
		return Str(AsString(v)), nil
	case ByteArray:
		switch x := v.(type) {
		case Bytes:
			return x, nil
		case Str:
			return Bytes(x), nil
		case Geom:
			return Bytes(x.WKB()), nil
		}
	case Geometry:
		switch x := v.(type) {
		case Geom:
			return x, nil
		case Str:
			g, err := geometry.FromWKT(string(x), 0)
			if err != nil {
				return nil, err
			}
			return Geom{g}, nil
		case Bytes:
			g, err := geometry.FromWKB(x, 0)
			if err != nil {
				return nil, err
			}
			return Geom{g}, nil
		}
	case DateTime:
		switch x := v.(type) {
		case Time:
			return x, nil
		case Str:
			return parseTime(string(x))
		case Int:
			return Time{time.Unix(int64(x), 0).UTC()}, nil
		}
	case Array:
		if l, ok := v.(List); ok {
			return l, nil
		}
		return List{v}, nil
	}
	return nil, fmt.Errorf("no conversion from %T", v)
}

func integerBounds(t Type) (lo, hi float64) {
	switch t {
	case Char:
		return math.MinInt8, math.MaxInt8
	case UChar:
		return 0, math.MaxUint8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case UInt16:
		return 0, math.MaxUint16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case UInt32:
		return 0, math.MaxUint32
	case UInt64:
		return 0, math.MaxUint64
	default:
		return math.MinInt64, math.MaxInt64
	}
}

func toInteger(v Value, to Type) (Value, error) {
	var d decimal.Decimal
	switch x := v.(type) {
	case Int, UInt, Float, Num:
		dd, ok := toDecimal(v)
		if !ok {
			return nil, fmt.Errorf("non-finite value %s", AsString(v))
		}
		d = dd
	case Bool:
		d = decimal.NewFromInt(int64(boolRank(bool(x))))
	case Str:
		dd, err := decimal.NewFromString(strings.TrimSpace(string(x)))
		if err != nil {
			return nil, err
		}
		d = dd
	default:
		return nil, fmt.Errorf("no integer form for %T", v)
	}
	d = d.Truncate(0)
	lo, hi := integerBounds(to)
	f, _ := d.Float64()
	if f < lo || f > hi {
		return nil, fmt.Errorf("value %s out of range for %s", d, to)
	}
	if to.IsUnsigned() {
		u, err := strconv.ParseUint(d.String(), 10, 64)
		if err != nil {
			return nil, err
		}
		return UInt(u), nil
	}
	return Int(d.IntPart()), nil
}

func toFloatValue(v Value) (Value, error) {
	switch x := v.(type) {
	case Int, UInt, Float, Num:
		return Float(toFloat(v)), nil
	case Bool:
		return Float(boolRank(bool(x))), nil
	case Str:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	}
	return nil, fmt.Errorf("no float form for %T", v)
}

func toNumeric(v Value) (Value, error) {
	switch x := v.(type) {
	case Int, UInt, Float, Num:
		d, ok := toDecimal(v)
		if !ok {
			return nil, fmt.Errorf("non-finite value %s", AsString(v))
		}
		return Num{d}, nil
	case Str:
		return NewNumeric(strings.TrimSpace(string(x)))
	}
	return nil, fmt.Errorf("no numeric form for %T", v)
}

func toBool(v Value) (Value, error) {
	switch x := v.(type) {
	case Bool:
		return x, nil
	case Int:
		return Bool(x != 0), nil
	case UInt:
		return Bool(x != 0), nil
	case Str:
		b, err := strconv.ParseBool(strings.TrimSpace(string(x)))
		if err != nil {
			return nil, err
		}
		return Bool(b), nil
	}
	return nil, fmt.Errorf("no boolean form for %T", v)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"15:04:05",
}

func parseTime(s string) (Value, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Time{t}, nil
		}
	}
	return nil, fmt.Errorf("unrecognised date/time %q", s)
}

// ParseLiteral parses the textual form of a value of type t, as found in YAML
// documents, CLI flags and default values. "NULL" (any case) parses as Null.
func ParseLiteral(s string, t Type) (Value, error) {
	if strings.EqualFold(strings.TrimSpace(s), "null") {
		return Null{}, nil
	}
	if t == ByteArray {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, errs.Wrap(errs.CodeRowExtraction, err, "invalid hex literal")
		}
		return Bytes(b), nil
	}
	if t == Unknown {
		return Str(s), nil
	}
	return Convert(Str(s), t)
}

// ParsePropertyLiteral parses s as a value of p. Geometries are WKT or EWKT;
// plain WKT takes the SRID of p.
func ParsePropertyLiteral(p Property, s string) (Value, error) {
	if p.Type != Geometry || strings.EqualFold(strings.TrimSpace(s), "null") {
		return ParseLiteral(s, p.Type)
	}
	g, err := geometry.FromWKT(s, p.SRID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeRowExtraction, err, "invalid geometry for %q", p.Name).WithProperty(p.Name)
	}
	return Geom{g}, nil
}
