package adapter

import (
	"slices"

	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/schema"
)

// mapping produces one output property. A nil conv copies the single
// input column unchanged.
type mapping struct {
	in   []int
	out  datatype.Property
	conv AttributeConverter
}

func (m mapping) identity() bool { return m.conv == nil }

// Converter maps the properties of an input dataset type onto the
// properties a destination can store.
//
// Input properties the destination supports are copied as they are;
// unsupported ones are converted to the type the destination hints at,
// and the rest are left non-adapted. While any input property is
// non-adapted the converter is invalid. Callers fix that by adding
// explicit conversions (DecomposePoint, ConvertToString, Add) or by
// dropping the property with Remove.
type Converter struct {
	in         *schema.DataSetType
	caps       capabilities.DataTypeCapabilities
	mappings   []mapping
	nonAdapted []string
}

// NewConverter builds the automatic conversion of in for a destination
// with the given type capabilities.
func NewConverter(in *schema.DataSetType, caps capabilities.DataTypeCapabilities) *Converter {
	c := &Converter{in: in.Clone(), caps: caps}
	for i, p := range c.in.Properties() {
		switch {
		case caps.Supports(p.Type):
			c.mappings = append(c.mappings, mapping{in: []int{i}, out: p})
		default:
			h, ok := caps.Hint(p.Type)
			if !ok || !caps.Supports(h) {
				c.nonAdapted = append(c.nonAdapted, p.Name)
				continue
			}
			c.mappings = append(c.mappings, mapping{in: []int{i}, out: hinted(p, h), conv: Generic})
		}
	}
	return c
}

// hinted returns p retyped as t, keeping what still applies.
func hinted(p datatype.Property, t datatype.Type) datatype.Property {
	out := datatype.Property{Name: p.Name, Type: t, Required: p.Required}
	switch t {
	case datatype.String:
		out.StringKind = datatype.UnboundedString
	case datatype.Geometry:
		out.SRID = p.SRID
	}
	return out
}

// Input returns the input dataset type.
func (c *Converter) Input() *schema.DataSetType { return c.in }

// IsValid reports whether every input property is adapted or removed.
func (c *Converter) IsValid() bool { return len(c.nonAdapted) == 0 }

// NonAdapted lists the input properties that have no conversion yet.
func (c *Converter) NonAdapted() []string { return slices.Clone(c.nonAdapted) }

// Properties returns the output properties in order.
func (c *Converter) Properties() []datatype.Property {
	out := make([]datatype.Property, len(c.mappings))
	for i, m := range c.mappings {
		out[i] = m.out.Clone()
	}
	return out
}

func (c *Converter) outputPos(name string) int {
	return slices.IndexFunc(c.mappings, func(m mapping) bool { return m.out.Name == name })
}

func (c *Converter) inputPositions(names []string) ([]int, error) {
	pos := make([]int, len(names))
	for i, n := range names {
		if pos[i] = c.in.PropertyPos(n); pos[i] < 0 {
			return nil, errs.NotFound("input property %q not found", n).WithProperty(n)
		}
	}
	return pos, nil
}

// adapted marks input properties as handled.
func (c *Converter) adapted(names []string) {
	c.nonAdapted = slices.DeleteFunc(c.nonAdapted, func(n string) bool { return slices.Contains(names, n) })
}

// Add appends an output property computed by conv from the named input
// properties.
func (c *Converter) Add(inputs []string, out datatype.Property, conv AttributeConverter) error {
	if conv == nil {
		return errs.Precondition("nil converter for %q", out.Name)
	}
	if c.outputPos(out.Name) >= 0 {
		return errs.AlreadyExists("output property %q already exists", out.Name).WithProperty(out.Name)
	}
	in, err := c.inputPositions(inputs)
	if err != nil {
		return err
	}
	c.mappings = append(c.mappings, mapping{in: in, out: out.Clone(), conv: conv})
	c.adapted(inputs)
	return nil
}

// Remove drops an output property, or gives up on a non-adapted input.
func (c *Converter) Remove(name string) error {
	if i := c.outputPos(name); i >= 0 {
		c.mappings = slices.Delete(c.mappings, i, i+1)
		return nil
	}
	if slices.Contains(c.nonAdapted, name) {
		c.adapted([]string{name})
		return nil
	}
	return errs.NotFound("output property %q not found", name).WithProperty(name)
}

// DecomposePoint replaces the point property name by two double
// properties, name_x and name_y.
func (c *Converter) DecomposePoint(name string) error {
	p, ok := c.in.Property(name)
	if !ok {
		return errs.NotFound("input property %q not found", name).WithProperty(name)
	}
	if p.Type != datatype.Geometry {
		return errs.Precondition("property %q is not a geometry", name).WithProperty(name)
	}
	if i := c.outputPos(name); i >= 0 {
		c.mappings = slices.Delete(c.mappings, i, i+1)
	}
	if err := c.Add([]string{name}, datatype.NewProperty(name+"_x", datatype.Double), PointToX); err != nil {
		return err
	}
	return c.Add([]string{name}, datatype.NewProperty(name+"_y", datatype.Double), PointToY)
}

// ConvertToString replaces the output of property name by its string form.
func (c *Converter) ConvertToString(name string) error {
	p, ok := c.in.Property(name)
	if !ok {
		return errs.NotFound("input property %q not found", name).WithProperty(name)
	}
	m := mapping{in: []int{c.in.PropertyPos(name)}, out: hinted(p, datatype.String), conv: Generic}
	if i := c.outputPos(name); i >= 0 {
		c.mappings[i] = m
	} else {
		c.mappings = append(c.mappings, m)
	}
	c.adapted([]string{name})
	return nil
}

// Result returns the output dataset type. Keys and indexes whose
// properties all pass through unchanged are carried over, as are check
// constraints when no property changed.
func (c *Converter) Result() (*schema.DataSetType, error) {
	out := schema.New(c.in.Name())
	out.SetTitle(c.in.Title())
	for _, m := range c.mappings {
		if err := out.AddProperty(m.out); err != nil {
			return nil, err
		}
	}
	kept := func(names []string) bool {
		for _, n := range names {
			i := c.outputPos(n)
			if i < 0 || !c.mappings[i].identity() || c.mappings[i].in[0] != c.in.PropertyPos(n) {
				return false
			}
		}
		return true
	}
	if pk := c.in.PrimaryKey(); pk != nil && kept(pk.Properties) {
		if err := out.SetPrimaryKey(*pk); err != nil {
			return nil, err
		}
	}
	for _, uk := range c.in.UniqueKeys() {
		if kept(uk.Properties) {
			if err := out.AddUniqueKey(uk); err != nil {
				return nil, err
			}
		}
	}
	for _, ix := range c.in.Indexes() {
		if kept(ix.Properties) {
			if err := out.AddIndex(ix); err != nil {
				return nil, err
			}
		}
	}
	if kept(c.in.PropertyNames()) && len(c.mappings) == c.in.NumProperties() {
		for _, cc := range c.in.CheckConstraints() {
			if err := out.AddCheckConstraint(cc); err != nil {
				return nil, err
			}
		}
	}
	if g, ok := c.in.DefaultGeometryProperty(); ok && kept([]string{g.Name}) {
		if err := out.SetDefaultGeometry(g.Name); err != nil {
			return nil, err
		}
	}
	return out, nil
}
