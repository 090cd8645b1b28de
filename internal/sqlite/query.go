package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xwb1989/sqlparser"

	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/query"
	"github.com/roach88/dataccess/internal/schema"
	"github.com/roach88/dataccess/internal/sqldialect"
)

func validate(n query.Node) error {
	if problems := query.Validate(n); len(problems) > 0 {
		return errs.Precondition("invalid statement: %s", problems[0])
	}
	return nil
}

// Query translates sel to SQL and materializes the result. Predicates
// other than ST_EnvelopeIntersects fail with CAPABILITY_MISMATCH; the
// spatial processor handles those.
func (tr *Transactor) Query(ctx context.Context, sel *query.Select) (dataset.DataSet, error) {
	if sel == nil {
		return nil, errs.Precondition("nil select")
	}
	var out *dataset.Memory
	err := tr.run(ctx, func(ctx context.Context, q querier) error {
		var err error
		out, err = tr.selectRows(ctx, q, sel)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// source is one dataset named in a FROM clause.
type source struct {
	ref string
	dt  *schema.DataSetType
}

// sources loads the types of the datasets sel reads, walking joins.
func sources(ctx context.Context, q querier, sel *query.Select) ([]source, error) {
	var out []source
	var walk func(item query.FromItem) error
	walk = func(item query.FromItem) error {
		switch x := item.(type) {
		case *query.DataSetName:
			dt, err := loadType(ctx, q, x.Name)
			if err != nil {
				return err
			}
			ref := x.Alias
			if ref == "" {
				ref = x.Name
			}
			out = append(out, source{ref: ref, dt: dt})
		case *query.Join:
			if err := walk(x.Left); err != nil {
				return err
			}
			return walk(x.Right)
		}
		return nil
	}
	for _, item := range sel.From {
		if err := walk(item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// lookup finds the property a possibly qualified name refers to.
func lookup(srcs []source, p *query.PropertyName) (datatype.Property, bool) {
	for _, s := range srcs {
		if p.DataSet != "" && p.DataSet != s.ref {
			continue
		}
		if prop, ok := s.dt.Property(p.Name); ok {
			return prop, true
		}
	}
	return datatype.Property{}, false
}

// expandFields replaces SELECT * by the catalog properties, which keeps
// the shadow columns out of results.
func expandFields(srcs []source, fields []*query.Field) []*query.Field {
	if len(fields) > 0 {
		return fields
	}
	var out []*query.Field
	for _, s := range srcs {
		for _, n := range s.dt.PropertyNames() {
			pn := query.Prop(n)
			if len(srcs) > 1 {
				pn = query.QualifiedProp(s.ref, n)
			}
			out = append(out, &query.Field{Expr: pn})
		}
	}
	return out
}

// output types the result columns: properties keep their catalog type,
// computed columns are Unknown.
func output(srcs []source, fields []*query.Field) []datatype.Property {
	props := make([]datatype.Property, len(fields))
	for i, f := range fields {
		if pn, ok := f.Expr.(*query.PropertyName); ok {
			if p, ok := lookup(srcs, pn); ok {
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

func (tr *Transactor) selectRows(ctx context.Context, q querier, sel *query.Select) (*dataset.Memory, error) {
	if err := validate(sel); err != nil {
		return nil, err
	}
	if err := datasource.CheckSupported(tr.src.caps.Query, sel); err != nil {
		return nil, err
	}
	srcs, err := sources(ctx, q, sel)
	if err != nil {
		return nil, err
	}
	aliases := map[string]bool{}
	for _, f := range sel.Fields {
		if f.Alias != "" {
			aliases[f.Alias] = true
		}
	}
	for _, n := range query.PropertyNames(sel) {
		if aliases[n] {
			continue
		}
		if _, ok := lookup(srcs, query.Prop(n)); !ok {
			return nil, errs.NotFound("property %q not found", n).WithProperty(n)
		}
	}

	run := query.Clone(sel)
	run.Fields = expandFields(srcs, run.Fields)
	stmt, args, err := sqldialect.Translate(tr.dialect, run)
	if err != nil {
		return nil, err
	}
	slog.Debug("sqlite query", "sql", stmt, "args", len(args))
	return scan(ctx, q, output(srcs, run.Fields), stmt, args)
}

// scan runs stmt and decodes every row into props. Cells that cannot be
// decoded are kept as faults and fail only when read.
func scan(ctx context.Context, q querier, props []datatype.Property, stmt string, args []any) (*dataset.Memory, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, mapError(err, "query")
	}
	defer rows.Close()

	if props == nil {
		cols, err := rows.Columns()
		if err != nil {
			return nil, mapError(err, "query columns")
		}
		for _, c := range cols {
			props = append(props, datatype.NewProperty(c, datatype.Unknown))
		}
	}
	out := dataset.NewMemory(props)
	raw := make([]any, len(props))
	ptrs := make([]any, len(props))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mapError(err, "scan row")
		}
		vals := make([]datatype.Value, len(props))
		var faults map[int]error
		for i, p := range props {
			v, err := decode(p, raw[i])
			if errs.IsRowExtraction(err) {
				if faults == nil {
					faults = map[int]error{}
				}
				faults[i] = err
				continue
			}
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		if err := out.AddFaulty(vals, faults); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "query")
	}
	out.SetAccessPolicy(capabilities.ReadOnly)
	return out, nil
}

// QuerySQL runs a SELECT written in SQLite's dialect. Columns are untyped.
func (tr *Transactor) QuerySQL(ctx context.Context, stmt string) (dataset.DataSet, error) {
	if sqlparser.Preview(stmt) != sqlparser.StmtSelect {
		return nil, errs.Precondition("QuerySQL runs SELECT statements only")
	}
	var out *dataset.Memory
	err := tr.run(ctx, func(ctx context.Context, q querier) error {
		var err error
		out, err = scan(ctx, q, nil, stmt, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExecuteSQL runs a statement that returns no rows. Statements that change
// tables bypass the catalog; use the schema operations for DDL.
func (tr *Transactor) ExecuteSQL(ctx context.Context, stmt string) error {
	if sqlparser.Preview(stmt) == sqlparser.StmtSelect {
		return errs.Precondition("use QuerySQL for SELECT statements")
	}
	return tr.withTx(ctx, func(ctx context.Context, q querier) error {
		_, err := exec(ctx, q, stmt)
		return err
	})
}
