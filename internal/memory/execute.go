package memory

import (
	"context"
	"fmt"

	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/eval"
	"github.com/roach88/dataccess/internal/query"
)

// Execute runs an insert, update or delete. A statement either applies to
// every row it touches or to none.
func (tr *Transactor) Execute(ctx context.Context, stmt query.Node) error {
	if stmt == nil {
		return errs.Precondition("nil statement")
	}
	if err := validate(stmt); err != nil {
		return err
	}
	if err := datasource.CheckSupported(tr.src.caps.Query, stmt); err != nil {
		return err
	}
	switch s := stmt.(type) {
	case *query.Insert:
		return tr.withTable(s.DataSet.Name, func(t *table) error { return tr.insert(ctx, t, s) })
	case *query.Update:
		return tr.withTable(s.DataSet.Name, func(t *table) error { return tr.update(ctx, t, s) })
	case *query.Delete:
		return tr.withTable(s.DataSet.Name, func(t *table) error { return tr.delete(ctx, t, s) })
	default:
		return errs.Precondition("cannot execute %T", stmt)
	}
}

func propertyNames(props []*query.PropertyName) []string {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name
	}
	return names
}

func (tr *Transactor) insert(ctx context.Context, t *table, s *query.Insert) error {
	names := propertyNames(s.Properties)
	if len(names) == 0 {
		names = t.dt.PropertyNames()
	}
	cols, err := t.positions(names)
	if err != nil {
		return err
	}

	var input [][]datatype.Value
	if s.Select != nil {
		// The source is read from the repository, not the working copy.
		ds, err := tr.selectRows(ctx, tr.src.caps.Query, s.Select)
		if err != nil {
			return err
		}
		if ds.NumProperties() != len(cols) {
			return errs.Precondition("insert names %d properties but select yields %d", len(cols), ds.NumProperties()).WithDataSet(t.dt.Name())
		}
		for ds.MoveNext() {
			row, err := dataset.Row(ds)
			if err != nil {
				return err
			}
			input = append(input, row)
		}
	}
	for _, exprs := range s.Values {
		if len(exprs) != len(cols) {
			return errs.Precondition("insert names %d properties but a row has %d values", len(cols), len(exprs)).WithDataSet(t.dt.Name())
		}
		row := make([]datatype.Value, len(exprs))
		for i, e := range exprs {
			v, err := tr.eval.Eval(e, eval.MapRow{})
			if err != nil {
				return fmt.Errorf("insert into %q: %w", t.dt.Name(), err)
			}
			row[i] = v
		}
		input = append(input, row)
	}

	width := t.dt.NumProperties()
	for n, in := range input {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return errs.Wrap(errs.CodeCancelled, err, "insert into %q", t.dt.Name())
			}
		}
		values := make([]datatype.Value, width)
		present := make([]bool, width)
		for i := range values {
			values[i] = datatype.Null{}
		}
		for i, c := range cols {
			values[c] = in[i]
			present[c] = true
		}
		row, err := t.newRow(values, present)
		if err != nil {
			return err
		}
		if id := t.number(row); id != 0 {
			tr.lastID = id
		}
		t.rows = append(t.rows, row)
	}
	return check(t.dt, t.rows)
}

func (tr *Transactor) update(ctx context.Context, t *table, s *query.Update) error {
	if len(s.Properties) != len(s.Values) {
		return errs.Precondition("update names %d properties but has %d values", len(s.Properties), len(s.Values)).WithDataSet(t.dt.Name())
	}
	cols, err := t.positions(propertyNames(s.Properties))
	if err != nil {
		return err
	}
	filter := whereExpr(s.Where)
	names := t.columns()
	for r, vals := range t.rows {
		if r%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return errs.Wrap(errs.CodeCancelled, err, "update %q", t.dt.Name())
			}
		}
		row := rowView{cols: names, vals: vals}
		ok, err := tr.eval.Test(filter, row)
		if err != nil {
			return fmt.Errorf("update %q: %w", t.dt.Name(), err)
		}
		if !ok {
			continue
		}
		updated := make([]datatype.Value, len(vals))
		copy(updated, vals)
		for i, c := range cols {
			v, err := tr.eval.Eval(s.Values[i], row)
			if err != nil {
				return fmt.Errorf("update %q: %w", t.dt.Name(), err)
			}
			if updated[c], err = dataset.Coerce(t.dt.PropertyAt(c), v); err != nil {
				return err
			}
		}
		t.rows[r] = updated
	}
	return check(t.dt, t.rows)
}

func (tr *Transactor) delete(ctx context.Context, t *table, s *query.Delete) error {
	filter := whereExpr(s.Where)
	names := t.columns()
	kept := t.rows[:0:0]
	for r, vals := range t.rows {
		if r%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return errs.Wrap(errs.CodeCancelled, err, "delete from %q", t.dt.Name())
			}
		}
		ok, err := tr.eval.Test(filter, rowView{cols: names, vals: vals})
		if err != nil {
			return fmt.Errorf("delete from %q: %w", t.dt.Name(), err)
		}
		if !ok {
			kept = append(kept, vals)
		}
	}
	t.rows = kept
	return nil
}

func whereExpr(w *query.Where) query.Expression {
	if w == nil {
		return nil
	}
	return w.Expr
}
