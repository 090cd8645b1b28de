package datatype

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/dataccess/internal/geometry"
)

// Value is a sealed interface over the values a dataset cell can hold.
// Only the types in this file implement it.
type Value interface {
	value() // Sealed

	// Type returns the widest semantic type the value belongs to.
	Type() Type
}

// Null is the absent value.
type Null struct{}

func (Null) value()     {}
func (Null) Type() Type { return Unknown }

// Int holds every signed integer width.
type Int int64

func (Int) value()     {}
func (Int) Type() Type { return Int64 }

// UInt holds every unsigned integer width.
type UInt uint64

func (UInt) value()     {}
func (UInt) Type() Type { return UInt64 }

// Bool is a boolean value.
type Bool bool

func (Bool) value()     {}
func (Bool) Type() Type { return Boolean }

// Float holds float and double values.
type Float float64

func (Float) value()     {}
func (Float) Type() Type { return Double }

// Num is an arbitrary-precision numeric value.
type Num struct {
	decimal.Decimal
}

func (Num) value()     {}
func (Num) Type() Type { return Numeric }

// Str is a string value.
type Str string

func (Str) value()     {}
func (Str) Type() Type { return String }

// Bytes is a byte array value. Holders own their slice.
type Bytes []byte

func (Bytes) value()     {}
func (Bytes) Type() Type { return ByteArray }

// Geom is a geometry value.
type Geom struct {
	geometry.Geometry
}

func (Geom) value()     {}
func (Geom) Type() Type { return Geometry }

// Time is a date/time value.
type Time struct {
	time.Time
}

func (Time) value()     {}
func (Time) Type() Type { return DateTime }

// List is an array value.
type List []Value

func (List) value()     {}
func (List) Type() Type { return Array }

// NewNumeric parses a decimal literal.
func NewNumeric(s string) (Num, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Num{}, fmt.Errorf("invalid numeric %q: %w", s, err)
	}
	return Num{d}, nil
}

// NewGeom wraps a geometry.
func NewGeom(g geometry.Geometry) Geom {
	return Geom{g}
}

// NewTime wraps a time.
func NewTime(t time.Time) Time {
	return Time{t}
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Clone returns a copy of v that shares no mutable storage with it.
func Clone(v Value) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case Bytes:
		return append(Bytes(nil), val...)
	case List:
		out := make(List, len(val))
		for i, e := range val {
			out[i] = Clone(e)
		}
		return out
	default:
		// Every other kind is immutable.
		return v
	}
}

// FromGo converts a driver-level Go value into a Value.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return UInt(val), nil
	case uint8:
		return UInt(val), nil
	case uint16:
		return UInt(val), nil
	case uint32:
		return UInt(val), nil
	case uint64:
		return UInt(val), nil
	case bool:
		return Bool(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case string:
		return Str(val), nil
	case []byte:
		return Bytes(append([]byte(nil), val...)), nil
	case time.Time:
		return Time{val}, nil
	case decimal.Decimal:
		return Num{val}, nil
	case geometry.Geometry:
		return Geom{val}, nil
	default:
		return nil, fmt.Errorf("unsupported go value %T", v)
	}
}

// ToGo converts v into a value accepted by database/sql drivers.
// Geometries become WKB.
func ToGo(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Int:
		return int64(val)
	case UInt:
		return int64(val)
	case Bool:
		return bool(val)
	case Float:
		return float64(val)
	case Num:
		return val.String()
	case Str:
		return string(val)
	case Bytes:
		return []byte(val)
	case Geom:
		return val.WKB()
	case Time:
		return val.UTC().Format(time.RFC3339Nano)
	case List:
		return AsString(val)
	default:
		return nil
	}
}

// AsString renders v for display and for string conversion.
// Null renders as the empty string.
func AsString(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return ""
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case UInt:
		return strconv.FormatUint(uint64(val), 10)
	case Bool:
		return strconv.FormatBool(bool(val))
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Num:
		return val.String()
	case Str:
		return string(val)
	case Bytes:
		return hex.EncodeToString(val)
	case Geom:
		return val.WKT()
	case Time:
		return val.Format(time.RFC3339Nano)
	case List:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = AsString(e)
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return fmt.Sprintf("%v", v)
	}
}
