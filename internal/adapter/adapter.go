package adapter

import (
	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
)

// Adapter is a read-only view of a DataSet through a Converter. Values
// are converted on access; the cursor is the wrapped dataset's.
type Adapter struct {
	ds       dataset.DataSet
	mappings []mapping
	owner    bool
}

var _ dataset.DataSet = (*Adapter)(nil)

// NewAdapter wraps ds, whose columns must follow the converter's input
// type. When owner is true, closing the adapter closes ds. The converter
// must be valid.
func NewAdapter(ds dataset.DataSet, conv *Converter, owner bool) (*Adapter, error) {
	if !conv.IsValid() {
		return nil, errs.CapabilityMismatch("properties %v cannot be adapted", conv.NonAdapted())
	}
	if ds.NumProperties() != conv.in.NumProperties() {
		return nil, errs.Precondition("dataset has %d properties, converter expects %d",
			ds.NumProperties(), conv.in.NumProperties())
	}
	return &Adapter{ds: ds, mappings: append([]mapping(nil), conv.mappings...), owner: owner}, nil
}

func (a *Adapter) TraverseType() dataset.TraverseType { return a.ds.TraverseType() }

func (a *Adapter) AccessPolicy() capabilities.AccessPolicy { return capabilities.ReadOnly }

func (a *Adapter) NumProperties() int { return len(a.mappings) }

func (a *Adapter) Property(i int) datatype.Property { return a.mappings[i].out.Clone() }

func (a *Adapter) IsEmpty() bool { return a.ds.IsEmpty() }

func (a *Adapter) Size() (int, error) { return a.ds.Size() }

// Extent reads the wrapped extent for pass-through geometries and scans
// converted ones.
func (a *Adapter) Extent(i int) (geometry.Envelope, error) {
	if i < 0 || i >= len(a.mappings) {
		return geometry.Empty(), errs.Precondition("column %d out of range", i)
	}
	if m := a.mappings[i]; m.identity() {
		return a.ds.Extent(m.in[0])
	}
	return dataset.ScanExtent(a, i)
}

func (a *Adapter) MoveNext() bool        { return a.ds.MoveNext() }
func (a *Adapter) MovePrevious() bool    { return a.ds.MovePrevious() }
func (a *Adapter) MoveBeforeFirst() bool { return a.ds.MoveBeforeFirst() }
func (a *Adapter) MoveFirst() bool       { return a.ds.MoveFirst() }
func (a *Adapter) MoveLast() bool        { return a.ds.MoveLast() }
func (a *Adapter) Move(i int) bool       { return a.ds.Move(i) }
func (a *Adapter) IsAtBegin() bool       { return a.ds.IsAtBegin() }
func (a *Adapter) IsBeforeBegin() bool   { return a.ds.IsBeforeBegin() }
func (a *Adapter) IsAtEnd() bool         { return a.ds.IsAtEnd() }
func (a *Adapter) IsAfterEnd() bool      { return a.ds.IsAfterEnd() }

// Value converts column i of the current row.
func (a *Adapter) Value(i int) (datatype.Value, error) {
	if i < 0 || i >= len(a.mappings) {
		return nil, errs.Precondition("column %d out of range", i)
	}
	m := a.mappings[i]
	if m.identity() {
		return a.ds.Value(m.in[0])
	}
	v, err := m.conv(a.ds, m.in, m.out)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return datatype.Null{}, nil
	}
	return v, nil
}

func (a *Adapter) IsNull(i int) bool {
	v, err := a.Value(i)
	return err != nil || datatype.IsNull(v)
}

func (a *Adapter) Close() error {
	if a.owner {
		return a.ds.Close()
	}
	return nil
}
