package dataset

import (
	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/schema"
)

// cursor tracks a position over n rows: -1 is before the first row and n
// is after the last.
type cursor struct {
	pos int
	n   int
}

func (c *cursor) moveNext() bool {
	if c.pos < c.n {
		c.pos++
	}
	return c.pos < c.n
}

func (c *cursor) movePrevious() bool {
	if c.pos >= 0 {
		c.pos--
	}
	return c.pos >= 0
}

func (c *cursor) moveTo(i int) bool {
	switch {
	case i < 0:
		c.pos = -1
		return false
	case i >= c.n:
		c.pos = c.n
		return false
	}
	c.pos = i
	return true
}

func (c *cursor) valid() bool       { return c.pos >= 0 && c.pos < c.n }
func (c *cursor) atBegin() bool     { return c.n > 0 && c.pos == 0 }
func (c *cursor) beforeBegin() bool { return c.pos < 0 }
func (c *cursor) atEnd() bool       { return c.n > 0 && c.pos == c.n-1 }
func (c *cursor) afterEnd() bool    { return c.pos >= c.n }

// Coerce converts a copy of v to the type of p. Geometries without an SRID
// take the SRID of p. Failures are ROW_EXTRACTION errors naming p.
func Coerce(p datatype.Property, v datatype.Value) (datatype.Value, error) {
	if v == nil {
		return datatype.Null{}, nil
	}
	c, err := datatype.Convert(datatype.Clone(v), p.Type)
	if err != nil {
		return nil, errs.Wrap(errs.CodeRowExtraction, err, "property %q", p.Name).WithProperty(p.Name)
	}
	if g, ok := c.(datatype.Geom); ok && g.SRID() == 0 && p.SRID != 0 {
		c = datatype.NewGeom(g.WithSRID(p.SRID))
	}
	return c, nil
}

// Memory is a random-access DataSet holding its rows in memory. It is the
// result type of the memory backend and of materialised queries.
type Memory struct {
	props  []datatype.Property
	rows   [][]datatype.Value
	faults []map[int]error // per row, nil until a row is added with faults
	cur    cursor
	policy capabilities.AccessPolicy
	closed bool
}

var _ DataSet = (*Memory)(nil)

// NewMemory returns an empty dataset with the given columns.
func NewMemory(props []datatype.Property) *Memory {
	cp := make([]datatype.Property, len(props))
	for i, p := range props {
		cp[i] = p.Clone()
	}
	return &Memory{props: cp, cur: cursor{pos: -1}, policy: capabilities.ReadWrite}
}

// NewMemoryFromType returns an empty dataset with the columns of dt.
func NewMemoryFromType(dt *schema.DataSetType) *Memory {
	return NewMemory(dt.Properties())
}

// SetAccessPolicy changes the advertised access policy.
func (m *Memory) SetAccessPolicy(p capabilities.AccessPolicy) { m.policy = p }

// Add appends a row. Values are converted to the column types; a value that
// does not convert fails with ROW_EXTRACTION and nothing is appended.
func (m *Memory) Add(row []datatype.Value) error {
	return m.add(row, nil)
}

// AddFaulty appends a row whose columns listed in faults could not be
// read. Those columns hold NULL and Value returns their error, so readers
// can skip the row instead of failing the whole dataset.
func (m *Memory) AddFaulty(row []datatype.Value, faults map[int]error) error {
	for i := range faults {
		if i < 0 || i >= len(m.props) {
			return errs.Precondition("column %d out of range", i)
		}
	}
	return m.add(row, faults)
}

func (m *Memory) add(row []datatype.Value, faults map[int]error) error {
	if len(row) != len(m.props) {
		return errs.Precondition("row has %d values for %d properties", len(row), len(m.props))
	}
	out := make([]datatype.Value, len(row))
	for i, v := range row {
		if _, bad := faults[i]; bad {
			out[i] = datatype.Null{}
			continue
		}
		c, err := Coerce(m.props[i], v)
		if err != nil {
			return err
		}
		out[i] = c
	}
	if len(faults) > 0 && m.faults == nil {
		m.faults = make([]map[int]error, len(m.rows))
	}
	if m.faults != nil {
		var f map[int]error
		if len(faults) > 0 {
			f = make(map[int]error, len(faults))
			for i, err := range faults {
				f[i] = err
			}
		}
		m.faults = append(m.faults, f)
	}
	m.rows = append(m.rows, out)
	m.cur.n = len(m.rows)
	return nil
}

// fault returns the read error of column i of the current row, if any.
func (m *Memory) fault(i int) error {
	if m.faults == nil {
		return nil
	}
	return m.faults[m.cur.pos][i]
}

// AddMap appends a row given by property name. Missing names are NULL.
func (m *Memory) AddMap(values map[string]datatype.Value) error {
	row := make([]datatype.Value, len(m.props))
	seen := 0
	for i, p := range m.props {
		v, ok := values[p.Name]
		if !ok {
			row[i] = datatype.Null{}
			continue
		}
		seen++
		row[i] = v
	}
	if seen != len(values) {
		for name := range values {
			if m.pos(name) < 0 {
				return errs.NotFound("property %q not found", name).WithProperty(name)
			}
		}
	}
	return m.Add(row)
}

// Set replaces column i of the current row.
func (m *Memory) Set(i int, v datatype.Value) error {
	if err := m.check(i); err != nil {
		return err
	}
	c, err := Coerce(m.props[i], v)
	if err != nil {
		return err
	}
	m.rows[m.cur.pos][i] = c
	if m.faults != nil && m.faults[m.cur.pos] != nil {
		delete(m.faults[m.cur.pos], i)
	}
	return nil
}

// RemoveCurrent deletes the current row. The cursor moves to the row that
// followed it.
func (m *Memory) RemoveCurrent() error {
	if !m.cur.valid() {
		return errs.Precondition("cursor is not on a row")
	}
	m.rows = append(m.rows[:m.cur.pos], m.rows[m.cur.pos+1:]...)
	if m.faults != nil {
		m.faults = append(m.faults[:m.cur.pos], m.faults[m.cur.pos+1:]...)
	}
	m.cur.n = len(m.rows)
	return nil
}

// Truncate removes every row.
func (m *Memory) Truncate() {
	m.rows = nil
	m.faults = nil
	m.cur = cursor{pos: -1}
}

func (m *Memory) pos(name string) int {
	for i, p := range m.props {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (m *Memory) check(i int) error {
	if m.closed {
		return errs.Precondition("dataset is closed")
	}
	if i < 0 || i >= len(m.props) {
		return errs.Precondition("column %d out of range", i)
	}
	if !m.cur.valid() {
		return errs.Precondition("cursor is not on a row")
	}
	return nil
}

func (m *Memory) TraverseType() TraverseType { return Random }

func (m *Memory) AccessPolicy() capabilities.AccessPolicy { return m.policy }

func (m *Memory) NumProperties() int { return len(m.props) }

func (m *Memory) Property(i int) datatype.Property { return m.props[i].Clone() }

func (m *Memory) IsEmpty() bool { return len(m.rows) == 0 }

func (m *Memory) Size() (int, error) { return len(m.rows), nil }

// Extent computes the extent of a geometry column without moving the cursor.
func (m *Memory) Extent(i int) (geometry.Envelope, error) {
	if i < 0 || i >= len(m.props) {
		return geometry.Empty(), errs.Precondition("column %d out of range", i)
	}
	if m.props[i].Type != datatype.Geometry {
		return geometry.Empty(), errs.Precondition("property %q is not a geometry", m.props[i].Name).WithProperty(m.props[i].Name)
	}
	env := geometry.Empty()
	for _, row := range m.rows {
		if g, ok := row[i].(datatype.Geom); ok {
			env = env.Union(g.Envelope())
		}
	}
	return env, nil
}

func (m *Memory) MoveNext() bool        { return m.cur.moveNext() }
func (m *Memory) MovePrevious() bool    { return m.cur.movePrevious() }
func (m *Memory) MoveBeforeFirst() bool { return !m.cur.moveTo(-1) }
func (m *Memory) MoveFirst() bool       { return m.cur.moveTo(0) }
func (m *Memory) MoveLast() bool        { return m.cur.moveTo(len(m.rows) - 1) }
func (m *Memory) Move(i int) bool       { return m.cur.moveTo(i) }

func (m *Memory) IsAtBegin() bool     { return m.cur.atBegin() }
func (m *Memory) IsBeforeBegin() bool { return m.cur.beforeBegin() }
func (m *Memory) IsAtEnd() bool       { return m.cur.atEnd() }
func (m *Memory) IsAfterEnd() bool    { return m.cur.afterEnd() }

func (m *Memory) Value(i int) (datatype.Value, error) {
	if err := m.check(i); err != nil {
		return nil, err
	}
	if err := m.fault(i); err != nil {
		return nil, err
	}
	return datatype.Clone(m.rows[m.cur.pos][i]), nil
}

func (m *Memory) IsNull(i int) bool {
	if m.check(i) != nil {
		return true
	}
	if m.fault(i) != nil {
		return false
	}
	return datatype.IsNull(m.rows[m.cur.pos][i])
}

func (m *Memory) Close() error {
	m.closed = true
	return nil
}
