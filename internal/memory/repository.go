package memory

import (
	"slices"
	"sync"

	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/schema"
)

// table is one stored dataset. Rows hold values already coerced to the
// property types, in property order.
type table struct {
	dt   *schema.DataSetType
	rows [][]datatype.Value
	seq  int64
}

type repository struct {
	mu     sync.RWMutex
	tables map[string]*table
}

func newRepository() *repository {
	return &repository{tables: map[string]*table{}}
}

// table returns the named table. The caller holds mu.
func (r *repository) table(name string) (*table, error) {
	t, ok := r.tables[name]
	if !ok {
		return nil, errs.NotFound("dataset %q not found", name).WithDataSet(name)
	}
	return t, nil
}

func (r *repository) names() []string {
	names := make([]string, 0, len(r.tables))
	for n := range r.tables {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (t *table) columns() map[string]int {
	cols := make(map[string]int, t.dt.NumProperties())
	for i, n := range t.dt.PropertyNames() {
		cols[n] = i
	}
	return cols
}

// positions maps property names to column indexes.
func (t *table) positions(names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, n := range names {
		out[i] = t.dt.PropertyPos(n)
		if out[i] < 0 {
			return nil, errs.NotFound("property %q not found", n).WithDataSet(t.dt.Name()).WithProperty(n)
		}
	}
	return out, nil
}

func pick(row []datatype.Value, cols []int) []datatype.Value {
	out := make([]datatype.Value, len(cols))
	for i, c := range cols {
		out[i] = row[c]
	}
	return out
}

// newRow builds a stored row from values by column. Missing values take the
// property default, or the next sequence number for auto-number properties.
func (t *table) newRow(values []datatype.Value, present []bool) ([]datatype.Value, error) {
	props := t.dt.Properties()
	row := make([]datatype.Value, len(props))
	for i, p := range props {
		v := values[i]
		if !present[i] && p.DefaultValue != nil {
			d, err := datatype.ParseLiteral(*p.DefaultValue, p.Type)
			if err != nil {
				return nil, errs.Wrap(errs.CodePrecondition, err, "default of property %q", p.Name).WithDataSet(t.dt.Name())
			}
			v = d
		}
		c, err := dataset.Coerce(p, v)
		if err != nil {
			return nil, err
		}
		row[i] = c
	}
	return row, nil
}

// number assigns sequence values to NULL auto-number columns of row and
// advances the sequence past explicit values. It returns the last value
// assigned, or zero.
func (t *table) number(row []datatype.Value) int64 {
	var assigned int64
	for i, p := range t.dt.Properties() {
		if !p.AutoNumber {
			continue
		}
		if datatype.IsNull(row[i]) {
			t.seq++
			row[i] = datatype.Int(t.seq)
			assigned = t.seq
			continue
		}
		if n, ok := row[i].(datatype.Int); ok && int64(n) > t.seq {
			t.seq = int64(n)
		}
	}
	return assigned
}

// check verifies required properties and key uniqueness over rows. NULLs
// never collide in unique keys.
func check(dt *schema.DataSetType, rows [][]datatype.Value) error {
	props := dt.Properties()
	for _, row := range rows {
		for i, p := range props {
			if p.Required && !p.AutoNumber && datatype.IsNull(row[i]) {
				return errs.Precondition("property %q is required", p.Name).WithDataSet(dt.Name()).WithProperty(p.Name)
			}
		}
	}

	type key struct {
		name  string
		props []string
	}
	var keys []key
	if pk := dt.PrimaryKey(); pk != nil {
		keys = append(keys, key{pk.Name, pk.Properties})
	}
	for _, uk := range dt.UniqueKeys() {
		keys = append(keys, key{uk.Name, uk.Properties})
	}
	for _, k := range keys {
		cols := make([]int, len(k.props))
		for i, n := range k.props {
			cols[i] = dt.PropertyPos(n)
		}
		seen := make(map[string]bool, len(rows))
		for _, row := range rows {
			vals := pick(row, cols)
			if slices.ContainsFunc(vals, datatype.IsNull) {
				continue
			}
			rk, err := datatype.RowKey(vals)
			if err != nil {
				return errs.Wrap(errs.CodeRowExtraction, err, "key %q", k.name).WithDataSet(dt.Name())
			}
			if seen[rk] {
				return errs.AlreadyExists("duplicate value for key %q", k.name).WithDataSet(dt.Name())
			}
			seen[rk] = true
		}
	}
	return nil
}
