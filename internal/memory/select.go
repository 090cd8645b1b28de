package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/eval"
	"github.com/roach88/dataccess/internal/query"
)

// cancelCheckInterval is how many rows are scanned between context checks.
const cancelCheckInterval = 256

// rowView exposes a stored row to the evaluator.
type rowView struct {
	cols map[string]int
	vals []datatype.Value
}

func (r rowView) Lookup(name string) (datatype.Value, error) {
	i, ok := r.cols[name]
	if !ok {
		return nil, errs.NotFound("property %q not found", name).WithProperty(name)
	}
	return r.vals[i], nil
}

// source returns the single dataset a select reads.
func source(sel *query.Select) (string, error) {
	if len(sel.From) != 1 {
		return "", errs.CapabilityMismatch("memory backend selects from exactly one dataset, got %d from-items", len(sel.From))
	}
	dn, ok := sel.From[0].(*query.DataSetName)
	if !ok {
		return "", errs.CapabilityMismatch("memory backend cannot select from %T", sel.From[0])
	}
	return dn.Name, nil
}

func validate(n query.Node) error {
	if problems := query.Validate(n); len(problems) > 0 {
		return errs.Precondition("invalid statement: %s", problems[0])
	}
	return nil
}

// output describes the columns a select produces from t.
func output(t *table, fields []*query.Field) []datatype.Property {
	if fields == nil {
		return t.dt.Properties()
	}
	props := make([]datatype.Property, len(fields))
	for i, f := range fields {
		if pn, ok := f.Expr.(*query.PropertyName); ok {
			if p, ok := t.dt.Property(pn.Name); ok {
				if f.Alias != "" {
					p.Name = f.Alias
				}
				props[i] = p
				continue
			}
		}
		name := f.Alias
		if name == "" {
			name = fmt.Sprintf("expr%d", i)
		}
		props[i] = datatype.NewProperty(name, datatype.Unknown)
	}
	return props
}

type selected struct {
	row  rowView
	keys []datatype.Value
}

// selectRows evaluates sel over the stored rows. The caller holds a read
// lock on the repository.
func (tr *Transactor) selectRows(ctx context.Context, caps capabilities.QueryCapabilities, sel *query.Select) (*dataset.Memory, error) {
	if err := validate(sel); err != nil {
		return nil, err
	}
	if err := datasource.CheckSupported(caps, sel); err != nil {
		return nil, err
	}
	if len(sel.GroupBy) > 0 || sel.Having != nil {
		return nil, errs.CapabilityMismatch("memory backend does not group rows")
	}
	name, err := source(sel)
	if err != nil {
		return nil, err
	}
	t, err := tr.repo.table(name)
	if err != nil {
		return nil, err
	}
	for _, n := range query.PropertyNames(sel) {
		if t.dt.PropertyPos(n) < 0 {
			return nil, errs.NotFound("property %q not found", n).WithDataSet(name).WithProperty(n)
		}
	}

	cols := t.columns()
	filter := sel.Filter()
	var rows []selected
	for i, vals := range t.rows {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errs.Wrap(errs.CodeCancelled, err, "select from %q", name)
			}
		}
		row := rowView{cols: cols, vals: vals}
		ok, err := tr.eval.Test(filter, row)
		if err != nil {
			return nil, fmt.Errorf("select from %q: %w", name, err)
		}
		if !ok {
			continue
		}
		keys, err := tr.eval.OrderKeys(sel.OrderBy, row)
		if err != nil {
			return nil, fmt.Errorf("select from %q: %w", name, err)
		}
		rows = append(rows, selected{row: row, keys: keys})
	}
	if len(sel.OrderBy) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			return eval.Less(sel.OrderBy, rows[i].keys, rows[j].keys)
		})
	}

	out := dataset.NewMemory(output(t, sel.Fields))
	seen := map[string]bool{}
	var projected [][]datatype.Value
	for _, r := range rows {
		vals, err := tr.project(sel.Fields, r.row)
		if err != nil {
			return nil, fmt.Errorf("select from %q: %w", name, err)
		}
		if sel.Distinct {
			k, err := datatype.RowKey(vals)
			if err != nil {
				return nil, errs.Wrap(errs.CodeRowExtraction, err, "distinct row").WithDataSet(name)
			}
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		projected = append(projected, vals)
	}
	for _, vals := range eval.Window(projected, sel.Offset, sel.Limit) {
		if err := out.Add(vals); err != nil {
			return nil, err
		}
	}
	out.SetAccessPolicy(capabilities.ReadOnly)
	return out, nil
}

func (tr *Transactor) project(fields []*query.Field, row rowView) ([]datatype.Value, error) {
	if fields == nil {
		return row.vals, nil
	}
	vals := make([]datatype.Value, len(fields))
	for i, f := range fields {
		v, err := tr.eval.Eval(f.Expr, row)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
