package oid

import (
	"slices"

	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/query"
	"github.com/roach88/dataccess/internal/schema"
)

// unkeyable lists property types whose values make poor identities.
var unkeyable = []datatype.Type{
	datatype.Geometry,
	datatype.Raster,
	datatype.Float32,
	datatype.Double,
	datatype.ByteArray,
	datatype.Numeric,
}

// PropertyNames returns the signature used to identify rows of dt: the
// primary key, else the properties of every unique key, else every property
// of a keyable type. When no property is keyable all properties are used.
func PropertyNames(dt *schema.DataSetType) []string {
	if pk := dt.PrimaryKey(); pk != nil && len(pk.Properties) > 0 {
		return slices.Clone(pk.Properties)
	}
	var names []string
	for _, uk := range dt.UniqueKeys() {
		for _, p := range uk.Properties {
			if !slices.Contains(names, p) {
				names = append(names, p)
			}
		}
	}
	if len(names) > 0 {
		return names
	}
	for _, p := range dt.Properties() {
		if !slices.Contains(unkeyable, p.Type) {
			names = append(names, p.Name)
		}
	}
	if len(names) > 0 {
		return names
	}
	return dt.PropertyNames()
}

// GenerateOIDSet reads the identity of every row of ds. The dataset is
// rewound first and left after its last row. A Set holds each identity
// once, so rows repeating an identity collapse and Size may be smaller
// than the row count of ds.
func GenerateOIDSet(ds dataset.DataSet, names []string) (*Set, error) {
	if len(names) == 0 {
		return nil, errs.Precondition("identity signature is empty")
	}
	cols := make([]int, len(names))
	for i, name := range names {
		cols[i] = dataset.PropertyPos(ds, name)
		if cols[i] < 0 {
			return nil, errs.Precondition("property %q not found", name).WithProperty(name)
		}
	}
	if !ds.MoveBeforeFirst() {
		return nil, errs.Precondition("cannot rewind dataset")
	}
	b := NewBuilder(names...)
	values := make([]datatype.Value, len(cols))
	for ds.MoveNext() {
		for i, c := range cols {
			v, err := ds.Value(c)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		if err := b.Add(values...); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// GenerateOIDSetForType identifies the rows of ds by the signature of dt.
func GenerateOIDSetForType(ds dataset.DataSet, dt *schema.DataSetType) (*Set, error) {
	if dt == nil {
		return nil, errs.Precondition("missing dataset type")
	}
	return GenerateOIDSet(ds, PropertyNames(dt))
}

// GenerateOIDSetForKey identifies the rows of ds by a primary key.
func GenerateOIDSetForKey(ds dataset.DataSet, pk *schema.PrimaryKey) (*Set, error) {
	if pk == nil {
		return nil, errs.Precondition("missing primary key")
	}
	return GenerateOIDSet(ds, pk.Properties)
}

// BuildSelect returns a query re-fetching the identified rows of a dataset.
// Signature properties missing from an explicit field list are appended.
func BuildSelect(dataSet string, fields []string, set *Set) *query.Select {
	var props []string
	if f := query.Fields(fields...); f != nil {
		props = slices.Clone(fields)
		for _, n := range set.names {
			if !slices.Contains(props, n) {
				props = append(props, n)
			}
		}
	}
	sel := query.BuildSelect(dataSet, props...)
	sel.Where = &query.Where{Expr: set.Expression()}
	return sel
}
