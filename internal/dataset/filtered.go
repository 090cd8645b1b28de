package dataset

import (
	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
)

// Filtered is a read-only view of selected rows of another DataSet. Rows
// are addressed by their 0-based positions in the inner dataset; no row is
// copied. A projected view also exposes a subset of the inner columns. The view itself is random access whatever the inner traverse type:
// forward-only inners are rewound and stepped when the view moves backwards.
type Filtered struct {
	inner     DataSet
	positions []int
	columns   []int // inner column of each view column; nil for all
	owner     bool
	cur       cursor
	innerPos  int // position of the inner cursor, -1 before first
	innerSeek bool
	closed    bool
}

var _ DataSet = (*Filtered)(nil)

// NewFiltered wraps inner, exposing the rows at positions in the given
// order. When owner is true, closing the view closes inner.
func NewFiltered(inner DataSet, positions []int, owner bool) *Filtered {
	return &Filtered{
		inner:     inner,
		positions: append([]int(nil), positions...),
		owner:     owner,
		cur:       cursor{pos: -1, n: len(positions)},
		innerPos:  -2, // unknown until the first seek
		innerSeek: inner.TraverseType() == Random,
	}
}

// NewProjected is NewFiltered exposing only the inner columns listed in
// columns, in that order.
func NewProjected(inner DataSet, positions, columns []int, owner bool) (*Filtered, error) {
	for _, c := range columns {
		if c < 0 || c >= inner.NumProperties() {
			return nil, errs.Precondition("column %d out of range", c)
		}
	}
	f := NewFiltered(inner, positions, owner)
	f.columns = append([]int{}, columns...)
	return f, nil
}

// col maps a view column to its inner column, or -1 when out of range.
func (f *Filtered) col(i int) int {
	if f.columns == nil {
		return i
	}
	if i < 0 || i >= len(f.columns) {
		return -1
	}
	return f.columns[i]
}

// Positions returns the inner row positions exposed by the view.
func (f *Filtered) Positions() []int {
	return append([]int(nil), f.positions...)
}

// Inner returns the wrapped dataset.
func (f *Filtered) Inner() DataSet { return f.inner }

// sync moves the inner cursor onto the row under the view cursor.
func (f *Filtered) sync() error {
	if !f.cur.valid() {
		return errs.Precondition("cursor is not on a row")
	}
	target := f.positions[f.cur.pos]
	if f.innerPos == target {
		return nil
	}
	if f.innerSeek {
		if !f.inner.Move(target) {
			f.innerPos = -2
			return errs.Precondition("inner dataset has no row %d", target)
		}
		f.innerPos = target
		return nil
	}
	if f.innerPos < -1 || f.innerPos > target {
		if !f.inner.MoveBeforeFirst() {
			f.innerPos = -2
			return errs.Precondition("cannot rewind inner dataset")
		}
		f.innerPos = -1
	}
	for f.innerPos < target {
		if !f.inner.MoveNext() {
			f.innerPos = -2
			return errs.Precondition("inner dataset has no row %d", target)
		}
		f.innerPos++
	}
	return nil
}

func (f *Filtered) TraverseType() TraverseType { return Random }

func (f *Filtered) AccessPolicy() capabilities.AccessPolicy { return capabilities.ReadOnly }

func (f *Filtered) NumProperties() int {
	if f.columns == nil {
		return f.inner.NumProperties()
	}
	return len(f.columns)
}

func (f *Filtered) Property(i int) datatype.Property { return f.inner.Property(f.col(i)) }

func (f *Filtered) IsEmpty() bool { return len(f.positions) == 0 }

func (f *Filtered) Size() (int, error) { return len(f.positions), nil }

// Extent scans the selected rows. The view cursor is preserved.
func (f *Filtered) Extent(i int) (geometry.Envelope, error) {
	if i < 0 || i >= f.NumProperties() {
		return geometry.Empty(), errs.Precondition("column %d out of range", i)
	}
	if p := f.Property(i); p.Type != datatype.Geometry {
		return geometry.Empty(), errs.Precondition("property %q is not a geometry", p.Name).WithProperty(p.Name)
	}
	saved := f.cur.pos
	defer func() { f.cur.pos = saved }()

	env := geometry.Empty()
	for k := range f.positions {
		f.cur.pos = k
		if f.IsNull(i) {
			continue
		}
		g, err := Geometry(f, i)
		if err != nil {
			return geometry.Empty(), err
		}
		env = env.Union(g.Envelope())
	}
	return env, nil
}

func (f *Filtered) MoveNext() bool        { return f.cur.moveNext() }
func (f *Filtered) MovePrevious() bool    { return f.cur.movePrevious() }
func (f *Filtered) MoveBeforeFirst() bool { return !f.cur.moveTo(-1) }
func (f *Filtered) MoveFirst() bool       { return f.cur.moveTo(0) }
func (f *Filtered) MoveLast() bool        { return f.cur.moveTo(len(f.positions) - 1) }
func (f *Filtered) Move(i int) bool       { return f.cur.moveTo(i) }

func (f *Filtered) IsAtBegin() bool     { return f.cur.atBegin() }
func (f *Filtered) IsBeforeBegin() bool { return f.cur.beforeBegin() }
func (f *Filtered) IsAtEnd() bool       { return f.cur.atEnd() }
func (f *Filtered) IsAfterEnd() bool    { return f.cur.afterEnd() }

func (f *Filtered) Value(i int) (datatype.Value, error) {
	if f.closed {
		return nil, errs.Precondition("dataset is closed")
	}
	c := f.col(i)
	if c < 0 {
		return nil, errs.Precondition("column %d out of range", i)
	}
	if err := f.sync(); err != nil {
		return nil, err
	}
	return f.inner.Value(c)
}

func (f *Filtered) IsNull(i int) bool {
	c := f.col(i)
	if c < 0 || f.closed || f.sync() != nil {
		return true
	}
	return f.inner.IsNull(c)
}

// Close closes the inner dataset when the view owns it.
func (f *Filtered) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.owner {
		return f.inner.Close()
	}
	return nil
}
