package schema

import (
	"slices"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
)

// Resolver looks up another dataset type of the same catalog by name.
// Used to validate foreign keys.
type Resolver func(name string) (*DataSetType, bool)

// DataSetType is the schema of a dataset: ordered properties plus keys,
// indexes and constraints that reference them by name.
//
// A DataSetType owns its properties. Getters return copies; mutate only
// through the Add/Remove/Set methods, which keep every constraint pointing
// at an owned property.
//
// Not safe for concurrent mutation.
type DataSetType struct {
	name            string
	title           string
	properties      []datatype.Property
	primaryKey      *PrimaryKey
	uniqueKeys      []UniqueKey
	indexes         []Index
	checks          []CheckConstraint
	foreignKeys     []ForeignKey
	defaultGeometry string
}

// New returns an empty dataset type.
func New(name string) *DataSetType {
	return &DataSetType{name: name}
}

// Name returns the dataset name.
func (t *DataSetType) Name() string { return t.name }

// SetName renames the dataset type.
func (t *DataSetType) SetName(name string) { t.name = name }

// Title returns the optional human-readable title.
func (t *DataSetType) Title() string { return t.title }

// SetTitle sets the human-readable title.
func (t *DataSetType) SetTitle(title string) { t.title = title }

// NumProperties returns the number of properties.
func (t *DataSetType) NumProperties() int { return len(t.properties) }

// Properties returns deep copies of the properties in declaration order.
func (t *DataSetType) Properties() []datatype.Property {
	out := make([]datatype.Property, len(t.properties))
	for i, p := range t.properties {
		out[i] = p.Clone()
	}
	return out
}

// PropertyNames returns the property names in declaration order.
func (t *DataSetType) PropertyNames() []string {
	out := make([]string, len(t.properties))
	for i, p := range t.properties {
		out[i] = p.Name
	}
	return out
}

// PropertyAt returns a copy of the i-th property.
func (t *DataSetType) PropertyAt(i int) datatype.Property {
	return t.properties[i].Clone()
}

// Property returns a copy of the named property.
func (t *DataSetType) Property(name string) (datatype.Property, bool) {
	i := t.PropertyPos(name)
	if i < 0 {
		return datatype.Property{}, false
	}
	return t.properties[i].Clone(), true
}

// PropertyPos returns the position of the named property, or -1.
func (t *DataSetType) PropertyPos(name string) int {
	return slices.IndexFunc(t.properties, func(p datatype.Property) bool {
		return p.Name == name
	})
}

// AddProperty appends a deep copy of p. Names must be valid and unique.
func (t *DataSetType) AddProperty(p datatype.Property) error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	if t.PropertyPos(p.Name) >= 0 {
		return errs.AlreadyExists("property %q already exists", p.Name).
			WithDataSet(t.name).WithProperty(p.Name)
	}
	t.properties = append(t.properties, p.Clone())
	return nil
}

// RemoveProperty drops a property that no constraint references.
func (t *DataSetType) RemoveProperty(name string) error {
	i := t.PropertyPos(name)
	if i < 0 {
		return errs.NotFound("property %q not found", name).WithDataSet(t.name).WithProperty(name)
	}
	if by := t.referencedBy(name); by != "" {
		return errs.Precondition("property %q is referenced by %s", name, by).
			WithDataSet(t.name).WithProperty(name)
	}
	t.properties = slices.Delete(t.properties, i, i+1)
	if t.defaultGeometry == name {
		t.defaultGeometry = ""
	}
	return nil
}

// referencedBy names the first constraint using the property, or "".
func (t *DataSetType) referencedBy(name string) string {
	if t.primaryKey != nil && slices.Contains(t.primaryKey.Properties, name) {
		return "primary key " + t.primaryKey.Name
	}
	for _, uk := range t.uniqueKeys {
		if slices.Contains(uk.Properties, name) {
			return "unique key " + uk.Name
		}
	}
	for _, ix := range t.indexes {
		if slices.Contains(ix.Properties, name) {
			return "index " + ix.Name
		}
	}
	for _, fk := range t.foreignKeys {
		if slices.Contains(fk.Properties, name) {
			return "foreign key " + fk.Name
		}
	}
	return ""
}

// checkOwned verifies that every name is an owned property.
func (t *DataSetType) checkOwned(kind, constraint string, names []string) error {
	if len(names) == 0 {
		return errs.Precondition("%s %q has no properties", kind, constraint).WithDataSet(t.name)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if t.PropertyPos(n) < 0 {
			return errs.NotFound("%s %q references unknown property %q", kind, constraint, n).
				WithDataSet(t.name).WithProperty(n)
		}
		if seen[n] {
			return errs.Precondition("%s %q lists property %q twice", kind, constraint, n).
				WithDataSet(t.name).WithProperty(n)
		}
		seen[n] = true
	}
	return nil
}

// constraintExists reports whether any key, index or constraint uses name.
func (t *DataSetType) constraintExists(name string) bool {
	if t.primaryKey != nil && t.primaryKey.Name == name {
		return true
	}
	return slices.ContainsFunc(t.uniqueKeys, func(u UniqueKey) bool { return u.Name == name }) ||
		slices.ContainsFunc(t.indexes, func(i Index) bool { return i.Name == name }) ||
		slices.ContainsFunc(t.checks, func(c CheckConstraint) bool { return c.Name == name }) ||
		slices.ContainsFunc(t.foreignKeys, func(f ForeignKey) bool { return f.Name == name })
}

func (t *DataSetType) checkNewConstraint(kind, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if t.constraintExists(name) {
		return errs.AlreadyExists("%s name %q already in use", kind, name).WithDataSet(t.name)
	}
	return nil
}

// PrimaryKey returns a copy of the primary key, or nil.
func (t *DataSetType) PrimaryKey() *PrimaryKey {
	if t.primaryKey == nil {
		return nil
	}
	pk := t.primaryKey.clone()
	return &pk
}

// SetPrimaryKey installs the primary key, replacing any previous one.
// Key properties become required.
func (t *DataSetType) SetPrimaryKey(pk PrimaryKey) error {
	if pk.Name == "" {
		pk.Name = t.name + "_pk"
	}
	if err := ValidateName(pk.Name); err != nil {
		return err
	}
	if t.constraintExists(pk.Name) && (t.primaryKey == nil || t.primaryKey.Name != pk.Name) {
		return errs.AlreadyExists("primary key name %q already in use", pk.Name).WithDataSet(t.name)
	}
	if err := t.checkOwned("primary key", pk.Name, pk.Properties); err != nil {
		return err
	}
	for _, n := range pk.Properties {
		t.properties[t.PropertyPos(n)].Required = true
	}
	c := pk.clone()
	t.primaryKey = &c
	return nil
}

// DropPrimaryKey removes the primary key.
func (t *DataSetType) DropPrimaryKey() error {
	if t.primaryKey == nil {
		return errs.NotFound("no primary key").WithDataSet(t.name)
	}
	t.primaryKey = nil
	return nil
}

// UniqueKeys returns copies of the unique keys.
func (t *DataSetType) UniqueKeys() []UniqueKey {
	out := make([]UniqueKey, len(t.uniqueKeys))
	for i, u := range t.uniqueKeys {
		out[i] = u.clone()
	}
	return out
}

// AddUniqueKey adds a unique key over owned properties.
func (t *DataSetType) AddUniqueKey(uk UniqueKey) error {
	if err := t.checkNewConstraint("unique key", uk.Name); err != nil {
		return err
	}
	if err := t.checkOwned("unique key", uk.Name, uk.Properties); err != nil {
		return err
	}
	t.uniqueKeys = append(t.uniqueKeys, uk.clone())
	return nil
}

// RemoveUniqueKey drops the named unique key.
func (t *DataSetType) RemoveUniqueKey(name string) error {
	i := slices.IndexFunc(t.uniqueKeys, func(u UniqueKey) bool { return u.Name == name })
	if i < 0 {
		return errs.NotFound("unique key %q not found", name).WithDataSet(t.name)
	}
	t.uniqueKeys = slices.Delete(t.uniqueKeys, i, i+1)
	return nil
}

// Indexes returns copies of the indexes.
func (t *DataSetType) Indexes() []Index {
	out := make([]Index, len(t.indexes))
	for i, ix := range t.indexes {
		out[i] = ix.clone()
	}
	return out
}

// AddIndex adds an index over owned properties. Spatial index kinds require a
// single geometry property.
func (t *DataSetType) AddIndex(ix Index) error {
	kind, err := ParseIndexKind(string(ix.Kind))
	if err != nil {
		return errs.Wrap(errs.CodePrecondition, err, "index %q", ix.Name).WithDataSet(t.name)
	}
	ix.Kind = kind
	if err := t.checkNewConstraint("index", ix.Name); err != nil {
		return err
	}
	if err := t.checkOwned("index", ix.Name, ix.Properties); err != nil {
		return err
	}
	if kind == RTree || kind == QuadTree {
		p := t.properties[t.PropertyPos(ix.Properties[0])]
		if len(ix.Properties) != 1 || p.Type != datatype.Geometry {
			return errs.Precondition("%s index %q needs exactly one geometry property", kind, ix.Name).
				WithDataSet(t.name)
		}
	}
	t.indexes = append(t.indexes, ix.clone())
	return nil
}

// RemoveIndex drops the named index.
func (t *DataSetType) RemoveIndex(name string) error {
	i := slices.IndexFunc(t.indexes, func(x Index) bool { return x.Name == name })
	if i < 0 {
		return errs.NotFound("index %q not found", name).WithDataSet(t.name)
	}
	t.indexes = slices.Delete(t.indexes, i, i+1)
	return nil
}

// CheckConstraints returns the check constraints.
func (t *DataSetType) CheckConstraints() []CheckConstraint {
	return slices.Clone(t.checks)
}

// AddCheckConstraint adds a named check expression.
func (t *DataSetType) AddCheckConstraint(cc CheckConstraint) error {
	if err := t.checkNewConstraint("check constraint", cc.Name); err != nil {
		return err
	}
	if cc.Expression == "" {
		return errs.Precondition("check constraint %q has an empty expression", cc.Name).WithDataSet(t.name)
	}
	t.checks = append(t.checks, cc)
	return nil
}

// RemoveCheckConstraint drops the named check constraint.
func (t *DataSetType) RemoveCheckConstraint(name string) error {
	i := slices.IndexFunc(t.checks, func(c CheckConstraint) bool { return c.Name == name })
	if i < 0 {
		return errs.NotFound("check constraint %q not found", name).WithDataSet(t.name)
	}
	t.checks = slices.Delete(t.checks, i, i+1)
	return nil
}

// ForeignKeys returns copies of the foreign keys.
func (t *DataSetType) ForeignKeys() []ForeignKey {
	out := make([]ForeignKey, len(t.foreignKeys))
	for i, fk := range t.foreignKeys {
		out[i] = fk.clone()
	}
	return out
}

// AddForeignKey adds a foreign key. When resolve is non-nil the referenced
// dataset and its properties must exist; a nil resolver defers that check to
// the backend.
func (t *DataSetType) AddForeignKey(fk ForeignKey, resolve Resolver) error {
	if err := t.checkNewConstraint("foreign key", fk.Name); err != nil {
		return err
	}
	if err := t.checkOwned("foreign key", fk.Name, fk.Properties); err != nil {
		return err
	}
	if len(fk.ReferencedColumns) != len(fk.Properties) {
		return errs.Precondition("foreign key %q maps %d properties to %d",
			fk.Name, len(fk.Properties), len(fk.ReferencedColumns)).WithDataSet(t.name)
	}
	if resolve != nil {
		ref, ok := resolve(fk.ReferencedDataSet)
		if !ok {
			return errs.NotFound("foreign key %q references unknown dataset %q", fk.Name, fk.ReferencedDataSet).
				WithDataSet(t.name)
		}
		for _, c := range fk.ReferencedColumns {
			if ref.PropertyPos(c) < 0 {
				return errs.NotFound("foreign key %q references unknown property %s.%s",
					fk.Name, fk.ReferencedDataSet, c).WithDataSet(t.name).WithProperty(c)
			}
		}
	}
	t.foreignKeys = append(t.foreignKeys, fk.clone())
	return nil
}

// RemoveForeignKey drops the named foreign key.
func (t *DataSetType) RemoveForeignKey(name string) error {
	i := slices.IndexFunc(t.foreignKeys, func(f ForeignKey) bool { return f.Name == name })
	if i < 0 {
		return errs.NotFound("foreign key %q not found", name).WithDataSet(t.name)
	}
	t.foreignKeys = slices.Delete(t.foreignKeys, i, i+1)
	return nil
}

// SetDefaultGeometry marks a geometry property as the default one.
func (t *DataSetType) SetDefaultGeometry(name string) error {
	p, ok := t.Property(name)
	if !ok {
		return errs.NotFound("property %q not found", name).WithDataSet(t.name).WithProperty(name)
	}
	if p.Type != datatype.Geometry {
		return errs.Precondition("property %q is %s, not geometry", name, p.Type).
			WithDataSet(t.name).WithProperty(name)
	}
	t.defaultGeometry = name
	return nil
}

// DefaultGeometryProperty returns the explicitly marked geometry property, or
// the first geometry property.
func (t *DataSetType) DefaultGeometryProperty() (datatype.Property, bool) {
	if t.defaultGeometry != "" {
		return t.Property(t.defaultGeometry)
	}
	for _, p := range t.properties {
		if p.Type == datatype.Geometry {
			return p.Clone(), true
		}
	}
	return datatype.Property{}, false
}

// HasGeometry reports whether any property is a geometry.
func (t *DataSetType) HasGeometry() bool {
	_, ok := t.DefaultGeometryProperty()
	return ok
}

// Clone returns a deep copy.
func (t *DataSetType) Clone() *DataSetType {
	c := &DataSetType{
		name:            t.name,
		title:           t.title,
		properties:      t.Properties(),
		primaryKey:      t.PrimaryKey(),
		uniqueKeys:      t.UniqueKeys(),
		indexes:         t.Indexes(),
		checks:          t.CheckConstraints(),
		foreignKeys:     t.ForeignKeys(),
		defaultGeometry: t.defaultGeometry,
	}
	return c
}
