package dataset

import (
	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
)

// TraverseType tells which cursor movements a DataSet supports.
type TraverseType int

const (
	// ForwardOnly supports MoveNext and rewinding with MoveBeforeFirst.
	ForwardOnly TraverseType = iota
	// Bidirectional adds MovePrevious, MoveFirst and MoveLast.
	Bidirectional
	// Random adds Move to an arbitrary position.
	Random
)

func (t TraverseType) String() string {
	switch t {
	case ForwardOnly:
		return "forward_only"
	case Bidirectional:
		return "bidirectional"
	case Random:
		return "random"
	}
	return "unknown"
}

// DataSet is a cursor over the rows of a query result or stored dataset.
//
// A new DataSet is positioned before the first row. Movement methods
// return false when the target position is not a row (or the movement is
// not supported by the traverse type); the cursor then sits before the
// first or after the last row.
//
// DataSets are not safe for concurrent use. Closing a DataSet never
// commits or rolls back the transaction it was read in.
type DataSet interface {
	TraverseType() TraverseType
	AccessPolicy() capabilities.AccessPolicy

	NumProperties() int
	// Property returns a copy of the metadata of column i.
	Property(i int) datatype.Property

	IsEmpty() bool
	// Size returns the number of rows. Forward-only sets may need a full
	// scan to answer.
	Size() (int, error)
	// Extent returns the bounding rectangle of geometry column i.
	Extent(i int) (geometry.Envelope, error)

	MoveNext() bool
	MovePrevious() bool
	MoveBeforeFirst() bool
	MoveFirst() bool
	MoveLast() bool
	// Move positions the cursor on row i (0-based).
	Move(i int) bool

	IsAtBegin() bool
	IsBeforeBegin() bool
	IsAtEnd() bool
	IsAfterEnd() bool

	// Value returns column i of the current row. Mutable values (bytes,
	// lists) are copies owned by the caller. NULL is datatype.Null.
	Value(i int) (datatype.Value, error)
	IsNull(i int) bool

	Close() error
}

// Properties returns the column metadata of ds.
func Properties(ds DataSet) []datatype.Property {
	props := make([]datatype.Property, ds.NumProperties())
	for i := range props {
		props[i] = ds.Property(i)
	}
	return props
}

// PropertyNames returns the column names of ds.
func PropertyNames(ds DataSet) []string {
	names := make([]string, ds.NumProperties())
	for i := range names {
		names[i] = ds.Property(i).Name
	}
	return names
}

// PropertyPos returns the index of the named column, or -1.
func PropertyPos(ds DataSet, name string) int {
	for i := 0; i < ds.NumProperties(); i++ {
		if ds.Property(i).Name == name {
			return i
		}
	}
	return -1
}

// DefaultGeometryPos returns the index of the first geometry column, or -1.
func DefaultGeometryPos(ds DataSet) int {
	for i := 0; i < ds.NumProperties(); i++ {
		if ds.Property(i).Type == datatype.Geometry {
			return i
		}
	}
	return -1
}

// ValueByName returns the named column of the current row.
func ValueByName(ds DataSet, name string) (datatype.Value, error) {
	i := PropertyPos(ds, name)
	if i < 0 {
		return nil, errs.NotFound("property %q not found", name).WithProperty(name)
	}
	return ds.Value(i)
}

// IsNullByName reports whether the named column of the current row is NULL.
// Unknown names count as NULL.
func IsNullByName(ds DataSet, name string) bool {
	i := PropertyPos(ds, name)
	return i < 0 || ds.IsNull(i)
}

// Row returns the current values of every column.
func Row(ds DataSet) ([]datatype.Value, error) {
	row := make([]datatype.Value, ds.NumProperties())
	for i := range row {
		v, err := ds.Value(i)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// RowView resolves property names against the current row of a DataSet.
// It satisfies eval.Row.
type RowView struct {
	ds DataSet
}

// CurrentRow returns a view of the row under the cursor. The view follows
// the cursor as it moves.
func CurrentRow(ds DataSet) RowView {
	return RowView{ds: ds}
}

// Lookup returns the named column of the current row.
func (r RowView) Lookup(name string) (datatype.Value, error) {
	return ValueByName(r.ds, name)
}

// Materialize reads every row of ds, from the beginning, into a Memory
// dataset. ds is left after its last row.
func Materialize(ds DataSet) (*Memory, error) {
	m := NewMemory(Properties(ds))
	if !ds.MoveBeforeFirst() {
		return nil, errs.Precondition("cannot rewind dataset")
	}
	for ds.MoveNext() {
		row, err := Row(ds)
		if err != nil {
			return nil, err
		}
		if err := m.Add(row); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ScanExtent computes the extent of geometry column i by rewinding and
// scanning ds. NULL geometries are skipped. The cursor is left after the
// last row.
func ScanExtent(ds DataSet, i int) (geometry.Envelope, error) {
	if i < 0 || i >= ds.NumProperties() {
		return geometry.Empty(), errs.Precondition("column %d out of range", i)
	}
	if p := ds.Property(i); p.Type != datatype.Geometry {
		return geometry.Empty(), errs.Precondition("property %q is not a geometry", p.Name).WithProperty(p.Name)
	}
	if !ds.MoveBeforeFirst() {
		return geometry.Empty(), errs.Precondition("cannot rewind dataset")
	}
	env := geometry.Empty()
	for ds.MoveNext() {
		if ds.IsNull(i) {
			continue
		}
		g, err := Geometry(ds, i)
		if err != nil {
			return geometry.Empty(), err
		}
		env = env.Union(g.Envelope())
	}
	return env, nil
}
