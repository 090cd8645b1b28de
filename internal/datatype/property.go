package datatype

// Property describes one column of a dataset.
//
// Only the attributes relevant to Type are meaningful: Size and StringKind for
// strings, Precision and Scale for numerics, GeometryType and SRID for
// geometries, DateTimeKind for date/time values, ElementType for arrays.
type Property struct {
	Name         string       `json:"name" yaml:"name"`
	Type         Type         `json:"type" yaml:"type"`
	Required     bool         `json:"required,omitempty" yaml:"required,omitempty"`
	AutoNumber   bool         `json:"auto_number,omitempty" yaml:"auto_number,omitempty"`
	DefaultValue *string      `json:"default,omitempty" yaml:"default,omitempty"`
	StringKind   StringKind   `json:"string_kind,omitempty" yaml:"string_kind,omitempty"`
	Size         int          `json:"size,omitempty" yaml:"size,omitempty"`
	Precision    int          `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale        int          `json:"scale,omitempty" yaml:"scale,omitempty"`
	GeometryType string       `json:"geometry_type,omitempty" yaml:"geometry_type,omitempty"`
	SRID         int          `json:"srid,omitempty" yaml:"srid,omitempty"`
	DateTimeKind DateTimeKind `json:"datetime_kind,omitempty" yaml:"datetime_kind,omitempty"`
	ElementType  Type         `json:"element_type,omitempty" yaml:"element_type,omitempty"`
}

// Clone returns a deep copy of p.
func (p Property) Clone() Property {
	c := p
	if p.DefaultValue != nil {
		v := *p.DefaultValue
		c.DefaultValue = &v
	}
	return c
}

// NewProperty returns a nullable property of the given type.
func NewProperty(name string, t Type) Property {
	return Property{Name: name, Type: t}
}

// NewStringProperty returns a variable-length string property.
func NewStringProperty(name string, size int) Property {
	kind := VarString
	if size <= 0 {
		kind = UnboundedString
	}
	return Property{Name: name, Type: String, StringKind: kind, Size: size}
}

// NewNumericProperty returns a numeric(precision, scale) property.
func NewNumericProperty(name string, precision, scale int) Property {
	return Property{Name: name, Type: Numeric, Precision: precision, Scale: scale}
}

// NewGeometryProperty returns a geometry property.
func NewGeometryProperty(name, geometryType string, srid int) Property {
	return Property{Name: name, Type: Geometry, GeometryType: geometryType, SRID: srid}
}
