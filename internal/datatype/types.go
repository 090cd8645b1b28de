package datatype

import (
	"fmt"
	"strings"
)

// Type is the closed enumeration of semantic property types.
type Type int

const (
	// Unknown is the polymorphic type: any value is accepted.
	Unknown Type = iota
	Char
	UChar
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Boolean
	Float32
	Double
	Numeric
	String
	ByteArray
	Geometry
	DateTime
	Array
	Composite
	Raster
	XML
)

var typeNames = [...]string{
	Unknown:   "unknown",
	Char:      "char",
	UChar:     "uchar",
	Int16:     "int16",
	UInt16:    "uint16",
	Int32:     "int32",
	UInt32:    "uint32",
	Int64:     "int64",
	UInt64:    "uint64",
	Boolean:   "boolean",
	Float32:   "float",
	Double:    "double",
	Numeric:   "numeric",
	String:    "string",
	ByteArray: "bytearray",
	Geometry:  "geometry",
	DateTime:  "datetime",
	Array:     "array",
	Composite: "composite",
	Raster:    "raster",
	XML:       "xml",
}

var typeAliases = map[string]Type{
	"polymorphic": Unknown,
	"int":         Int32,
	"integer":     Int32,
	"bigint":      Int64,
	"smallint":    Int16,
	"bool":        Boolean,
	"real":        Float32,
	"float64":     Double,
	"decimal":     Numeric,
	"text":        String,
	"varchar":     String,
	"bytes":       ByteArray,
	"blob":        ByteArray,
	"timestamp":   DateTime,
}

// AllTypes returns every member of the enumeration in declaration order.
func AllTypes() []Type {
	out := make([]Type, len(typeNames))
	for i := range typeNames {
		out[i] = Type(i)
	}
	return out
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType resolves a type name or one of its SQL-ish aliases.
func ParseType(name string) (Type, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range typeNames {
		if s == n {
			return Type(i), nil
		}
	}
	if t, ok := typeAliases[n]; ok {
		return t, nil
	}
	return Unknown, fmt.Errorf("unknown data type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(typeNames) {
		return nil, fmt.Errorf("invalid data type %d", int(t))
	}
	return []byte(typeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsInteger reports whether t is one of the signed or unsigned integer types.
func (t Type) IsInteger() bool {
	switch t {
	case Char, UChar, Int16, UInt16, Int32, UInt32, Int64, UInt64:
		return true
	}
	return false
}

// IsUnsigned reports whether t is an unsigned integer type.
func (t Type) IsUnsigned() bool {
	switch t {
	case UChar, UInt16, UInt32, UInt64:
		return true
	}
	return false
}

// IsNumeric reports whether t holds numbers.
func (t Type) IsNumeric() bool {
	return t.IsInteger() || t == Float32 || t == Double || t == Numeric
}

// IsSpatial reports whether t holds geometries or rasters.
func (t Type) IsSpatial() bool {
	return t == Geometry || t == Raster
}

// StringKind distinguishes fixed, bounded and unbounded strings.
type StringKind string

const (
	FixedString     StringKind = "fixed"
	VarString       StringKind = "var"
	UnboundedString StringKind = "unbounded"
)

// DateTimeKind is the sub-kind of a DateTime property.
type DateTimeKind string

const (
	Date        DateTimeKind = "date"
	TimeOfDay   DateTimeKind = "time"
	TimeStamp   DateTimeKind = "timestamp"
	TimeStampTZ DateTimeKind = "timestamptz"
)
