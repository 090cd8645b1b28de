package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/eval"
	"github.com/roach88/dataccess/internal/oid"
	"github.com/roach88/dataccess/internal/query"
	"github.com/roach88/dataccess/internal/schema"
	"github.com/roach88/dataccess/internal/sqldialect"
)

const (
	// cancelCheckInterval is how many rows are written between context
	// checks.
	cancelCheckInterval = 256
	// removeChunk bounds the identities bound into one DELETE.
	removeChunk = 500
)

// Execute runs an insert, update or delete atomically. Inserts are
// evaluated in Go so defaults, auto-numbering and the geometry shadow
// columns are filled in; updates and deletes run as SQL.
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
	return tr.withTx(ctx, func(ctx context.Context, q querier) error {
		switch s := stmt.(type) {
		case *query.Insert:
			return tr.insert(ctx, q, s)
		case *query.Update:
			return tr.update(ctx, q, s)
		case *query.Delete:
			stmt, args, err := sqldialect.Translate(tr.dialect, s)
			if err != nil {
				return err
			}
			_, err = exec(ctx, q, stmt, args...)
			return err
		default:
			return errs.Precondition("cannot execute %T", stmt)
		}
	})
}

func propertyNames(props []*query.PropertyName) []string {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name
	}
	return names
}

// positions maps property names to columns of dt.
func positions(dt *schema.DataSetType, names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, n := range names {
		if out[i] = dt.PropertyPos(n); out[i] < 0 {
			return nil, errs.NotFound("property %q not found", n).WithDataSet(dt.Name()).WithProperty(n)
		}
	}
	return out, nil
}

func (tr *Transactor) insert(ctx context.Context, q querier, s *query.Insert) error {
	dt, err := loadType(ctx, q, s.DataSet.Name)
	if err != nil {
		return err
	}
	names := propertyNames(s.Properties)
	if len(names) == 0 {
		names = dt.PropertyNames()
	}
	cols, err := positions(dt, names)
	if err != nil {
		return err
	}

	var input [][]datatype.Value
	if s.Select != nil {
		ds, err := tr.selectRows(ctx, q, s.Select)
		if err != nil {
			return err
		}
		if ds.NumProperties() != len(cols) {
			return errs.Precondition("insert names %d properties but select yields %d", len(cols), ds.NumProperties()).WithDataSet(dt.Name())
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
			return errs.Precondition("insert names %d properties but a row has %d values", len(cols), len(exprs)).WithDataSet(dt.Name())
		}
		row := make([]datatype.Value, len(exprs))
		for i, e := range exprs {
			v, err := tr.eval.Eval(e, eval.MapRow{})
			if err != nil {
				return fmt.Errorf("insert into %q: %w", dt.Name(), err)
			}
			row[i] = v
		}
		input = append(input, row)
	}

	w, err := tr.newWriter(ctx, q, dt)
	if err != nil {
		return err
	}
	defer w.close()
	width := dt.NumProperties()
	for n, in := range input {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return errs.Wrap(errs.CodeCancelled, err, "insert into %q", dt.Name())
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
		if err := w.write(ctx, values, present); err != nil {
			return err
		}
	}
	return nil
}

// update translates s. Geometry assignments must not depend on the row:
// their shadow columns are computed here and assigned alongside.
func (tr *Transactor) update(ctx context.Context, q querier, s *query.Update) error {
	dt, err := loadType(ctx, q, s.DataSet.Name)
	if err != nil {
		return err
	}
	if len(s.Properties) != len(s.Values) {
		return errs.Precondition("update names %d properties but has %d values", len(s.Properties), len(s.Values)).WithDataSet(dt.Name())
	}
	cols, err := positions(dt, propertyNames(s.Properties))
	if err != nil {
		return err
	}
	run := query.Clone(s)
	for i, c := range cols {
		p := dt.PropertyAt(c)
		if p.Type != datatype.Geometry {
			continue
		}
		v, err := tr.eval.Eval(s.Values[i], eval.MapRow{})
		if err != nil {
			if errs.IsNotFound(err) {
				return errs.CapabilityMismatch("geometry property %q can only be set to a constant", p.Name).WithDataSet(dt.Name())
			}
			return fmt.Errorf("update %q: %w", dt.Name(), err)
		}
		g, err := dataset.Coerce(p, v)
		if err != nil {
			return err
		}
		run.Values[i] = query.Lit(g)
		for k, env := range envelopeArgs(g) {
			var lit datatype.Value = datatype.Null{}
			if f, ok := env.(float64); ok {
				lit = datatype.Float(f)
			}
			run.Properties = append(run.Properties, query.Prop(shadow(p.Name, k)))
			run.Values = append(run.Values, query.Lit(lit))
		}
	}
	stmt, args, err := sqldialect.Translate(tr.dialect, run)
	if err != nil {
		return err
	}
	_, err = exec(ctx, q, stmt, args...)
	return err
}

// writer inserts full rows into one table through a prepared statement.
type writer struct {
	tr   *Transactor
	q    querier
	dt   *schema.DataSetType
	stmt *sql.Stmt
}

func (tr *Transactor) newWriter(ctx context.Context, q querier, dt *schema.DataSetType) (*writer, error) {
	cols := storedColumns(dt)
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	text := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", sqldialect.QuoteIdent(dt.Name()), quoteList(cols), marks)
	stmt, err := q.PrepareContext(ctx, text)
	if err != nil {
		return nil, mapError(err, "prepare insert into %q", dt.Name())
	}
	return &writer{tr: tr, q: q, dt: dt, stmt: stmt}, nil
}

func (w *writer) close() { w.stmt.Close() }

// write coerces values, applies defaults to absent columns, numbers NULL
// auto-number columns and inserts the row.
func (w *writer) write(ctx context.Context, values []datatype.Value, present []bool) error {
	row := make([]datatype.Value, len(values))
	for i, p := range w.dt.Properties() {
		v := values[i]
		if !present[i] && p.DefaultValue != nil {
			d, err := datatype.ParseLiteral(*p.DefaultValue, p.Type)
			if err != nil {
				return errs.Wrap(errs.CodePrecondition, err, "default of property %q", p.Name).WithDataSet(w.dt.Name())
			}
			v = d
		}
		c, err := dataset.Coerce(p, v)
		if err != nil {
			return err
		}
		if p.AutoNumber && datatype.IsNull(c) {
			n, err := nextNumber(ctx, w.q, w.dt.Name(), p.Name)
			if err != nil {
				return err
			}
			c = datatype.Int(n)
			w.tr.lastID = n
		}
		row[i] = c
	}
	if _, err := w.stmt.ExecContext(ctx, encodeRow(w.dt, row)...); err != nil {
		return mapError(err, "insert into %q", w.dt.Name())
	}
	return nil
}

// nextNumber returns one more than the largest stored value of col.
func nextNumber(ctx context.Context, q querier, table, col string) (int64, error) {
	var n int64
	stmt := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) + 1 FROM %s", sqldialect.QuoteIdent(col), sqldialect.QuoteIdent(table))
	if err := q.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, mapError(err, "number %q", col)
	}
	return n, nil
}

// Add inserts every row of ds. Either all rows are added or none.
func (tr *Transactor) Add(ctx context.Context, name string, ds dataset.DataSet, _ datasource.Options) error {
	if ds == nil {
		return errs.Precondition("nil dataset")
	}
	return tr.withTx(ctx, func(ctx context.Context, q querier) error {
		dt, err := loadType(ctx, q, name)
		if err != nil {
			return err
		}
		props := dt.Properties()
		src := make([]int, len(props))
		present := make([]bool, len(props))
		for i, p := range props {
			src[i] = dataset.PropertyPos(ds, p.Name)
			present[i] = src[i] >= 0
		}
		if !ds.MoveBeforeFirst() {
			return errs.Precondition("cannot rewind source dataset")
		}
		w, err := tr.newWriter(ctx, q, dt)
		if err != nil {
			return err
		}
		defer w.close()
		values := make([]datatype.Value, len(props))
		for n := 0; ds.MoveNext(); n++ {
			if n%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return errs.Wrap(errs.CodeCancelled, err, "add to %q", name)
				}
			}
			for i := range props {
				values[i] = datatype.Null{}
				if present[i] {
					v, err := ds.Value(src[i])
					if err != nil {
						return err
					}
					values[i] = v
				}
			}
			if err := w.write(ctx, values, present); err != nil {
				return err
			}
		}
		return nil
	})
}

// Remove deletes the identified rows in chunks, or every row when oids is
// nil.
func (tr *Transactor) Remove(ctx context.Context, name string, oids *oid.Set) error {
	return tr.withTx(ctx, func(ctx context.Context, q querier) error {
		dt, err := loadType(ctx, q, name)
		if err != nil {
			return err
		}
		del := &query.Delete{DataSet: &query.DataSetName{Name: name}}
		if oids == nil {
			stmt, args, err := sqldialect.Translate(tr.dialect, del)
			if err != nil {
				return err
			}
			_, err = exec(ctx, q, stmt, args...)
			return err
		}
		if _, err := positions(dt, oids.PropertyNames()); err != nil {
			return err
		}
		ids := oids.IDs()
		for start := 0; start < len(ids); start += removeChunk {
			b := oid.NewBuilder(oids.PropertyNames()...)
			for _, id := range ids[start:min(start+removeChunk, len(ids))] {
				if err := b.Add(id...); err != nil {
					return err
				}
			}
			del.Where = &query.Where{Expr: b.Build().Expression()}
			stmt, args, err := sqldialect.Translate(tr.dialect, del)
			if err != nil {
				return err
			}
			if _, err := exec(ctx, q, stmt, args...); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update copies props from the rows of ds onto stored rows with the same
// identity. With nil oids, rows are identified by the signature of the
// stored type and every row of ds applies.
func (tr *Transactor) Update(ctx context.Context, name string, ds dataset.DataSet, props []string, oids *oid.Set) error {
	if ds == nil {
		return errs.Precondition("nil dataset")
	}
	return tr.withTx(ctx, func(ctx context.Context, q querier) error {
		dt, err := loadType(ctx, q, name)
		if err != nil {
			return err
		}
		var sig []string
		if oids != nil {
			sig = oids.PropertyNames()
		} else {
			sig = oid.PropertyNames(dt)
		}
		if _, err := positions(dt, sig); err != nil {
			return err
		}
		setCols, err := positions(dt, props)
		if err != nil {
			return err
		}
		srcKey := make([]int, len(sig))
		for i, n := range sig {
			if srcKey[i] = dataset.PropertyPos(ds, n); srcKey[i] < 0 {
				return errs.Precondition("source dataset lacks identity property %q", n).WithProperty(n)
			}
		}
		srcSet := make([]int, len(props))
		for i, n := range props {
			if srcSet[i] = dataset.PropertyPos(ds, n); srcSet[i] < 0 {
				return errs.Precondition("source dataset lacks property %q", n).WithProperty(n)
			}
		}

		var assign []string
		for _, c := range setCols {
			p := dt.PropertyAt(c)
			assign = append(assign, sqldialect.QuoteIdent(p.Name)+" = ?")
			if p.Type == datatype.Geometry {
				for k := range shadowSuffixes {
					assign = append(assign, sqldialect.QuoteIdent(shadow(p.Name, k))+" = ?")
				}
			}
		}
		var match []string
		for _, n := range sig {
			match = append(match, sqldialect.QuoteIdent(n)+" IS ?")
		}
		text := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
			sqldialect.QuoteIdent(name), strings.Join(assign, ", "), strings.Join(match, " AND "))
		stmt, err := q.PrepareContext(ctx, text)
		if err != nil {
			return mapError(err, "prepare update of %q", name)
		}
		defer stmt.Close()

		if !ds.MoveBeforeFirst() {
			return errs.Precondition("cannot rewind source dataset")
		}
		for n := 0; ds.MoveNext(); n++ {
			if n%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return errs.Wrap(errs.CodeCancelled, err, "update %q", name)
				}
			}
			id := make([]datatype.Value, len(srcKey))
			for i, c := range srcKey {
				if id[i], err = ds.Value(c); err != nil {
					return err
				}
			}
			if oids != nil && !oids.Contains(id...) {
				continue
			}
			var args []any
			for i, c := range srcSet {
				v, err := ds.Value(c)
				if err != nil {
					return err
				}
				p := dt.PropertyAt(setCols[i])
				cv, err := dataset.Coerce(p, v)
				if err != nil {
					return err
				}
				args = append(args, datatype.ToGo(cv))
				if p.Type == datatype.Geometry {
					args = append(args, envelopeArgs(cv)...)
				}
			}
			for i, n := range sig {
				kv, err := dataset.Coerce(dt.PropertyAt(dt.PropertyPos(n)), id[i])
				if err != nil {
					return err
				}
				args = append(args, datatype.ToGo(kv))
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return mapError(err, "update %q", name)
			}
		}
		return nil
	})
}
