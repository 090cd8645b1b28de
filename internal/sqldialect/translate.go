package sqldialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/query"
)

// Translator renders a query graph as parameterised SQL. Every literal
// becomes a ? placeholder and its value is appended to Args; values are
// never interpolated.
//
// A Translator is single-use: create one per statement with Translate or
// NewTranslator.
type Translator struct {
	dialect *Dialect
	sb      strings.Builder
	args    []any
}

var _ query.Visitor = (*Translator)(nil)

func NewTranslator(d *Dialect) *Translator {
	return &Translator{dialect: d}
}

// Translate renders n with d.
func Translate(d *Dialect, n query.Node) (string, []any, error) {
	t := NewTranslator(d)
	if err := query.Accept(n, t); err != nil {
		return "", nil, err
	}
	return t.SQL(), t.Args(), nil
}

// SQL returns the text rendered so far.
func (t *Translator) SQL() string { return t.sb.String() }

// Args returns the placeholder values in order.
func (t *Translator) Args() []any { return t.args }

// Write appends raw SQL. Encoders use it for keywords and punctuation.
func (t *Translator) Write(s string) { t.write(s) }

// Param appends a placeholder bound to v.
func (t *Translator) Param(v any) {
	t.sb.WriteByte('?')
	t.args = append(t.args, v)
}

// Expr renders e.
func (t *Translator) Expr(e query.Expression) error { return t.expr(e) }

func (t *Translator) write(s string) { t.sb.WriteString(s) }

func (t *Translator) expr(e query.Expression) error {
	if e == nil {
		return errs.Precondition("nil expression")
	}
	return query.Accept(e, t)
}

func (t *Translator) list(exprs []query.Expression) error {
	for i, e := range exprs {
		if i > 0 {
			t.write(", ")
		}
		if err := t.expr(e); err != nil {
			return err
		}
	}
	return nil
}

func (t *Translator) VisitPropertyName(p *query.PropertyName) error {
	if p.DataSet != "" {
		t.write(QuoteIdent(p.DataSet) + ".")
	}
	t.write(QuoteIdent(p.Name))
	return nil
}

func (t *Translator) VisitLiteral(l *query.Literal) error {
	if datatype.IsNull(l.Value) {
		t.write("NULL")
		return nil
	}
	t.Param(datatype.ToGo(l.Value))
	return nil
}

// VisitLiteralEnvelope binds the envelope as a WKB polygon.
func (t *Translator) VisitLiteralEnvelope(l *query.LiteralEnvelope) error {
	t.Param(geometry.FromEnvelope(l.Envelope, l.SRID).WKB())
	return nil
}

func (t *Translator) VisitFunction(f *query.Function) error {
	enc, ok := t.dialect.Encoder(f.Name)
	if !ok {
		return errs.CapabilityMismatch("function %s has no encoding in dialect %s", f.Name, t.dialect.name)
	}
	if err := enc.Encode(t, f); err != nil {
		return fmt.Errorf("encode %s: %w", f.Name, err)
	}
	return nil
}

func (t *Translator) VisitSubSelect(s *query.SubSelect) error {
	t.write("(")
	if err := t.VisitSelect(s.Select); err != nil {
		return err
	}
	t.write(")")
	return nil
}

func (t *Translator) VisitField(f *query.Field) error {
	if err := t.expr(f.Expr); err != nil {
		return err
	}
	if f.Alias != "" {
		t.write(" AS " + QuoteIdent(f.Alias))
	}
	return nil
}

func (t *Translator) VisitDataSetName(d *query.DataSetName) error {
	t.write(QuoteIdent(d.Name))
	if d.Alias != "" {
		t.write(" AS " + QuoteIdent(d.Alias))
	}
	return nil
}

func (t *Translator) VisitSubSelectItem(s *query.SubSelectItem) error {
	t.write("(")
	if err := t.VisitSelect(s.Select); err != nil {
		return err
	}
	t.write(") AS " + QuoteIdent(s.Alias))
	return nil
}

func (t *Translator) VisitJoin(j *query.Join) error {
	if err := query.Accept(j.Left, t); err != nil {
		return err
	}
	t.write(" " + j.Type.String() + " ")
	if err := query.Accept(j.Right, t); err != nil {
		return err
	}
	switch {
	case j.On != nil:
		t.write(" ON ")
		return t.expr(j.On)
	case len(j.Using) > 0:
		t.write(" USING (")
		for i, n := range j.Using {
			if i > 0 {
				t.write(", ")
			}
			t.write(QuoteIdent(n))
		}
		t.write(")")
	}
	return nil
}

func (t *Translator) VisitWhere(w *query.Where) error {
	t.write(" WHERE ")
	return t.expr(w.Expr)
}

func (t *Translator) VisitGroupByItem(g *query.GroupByItem) error { return t.expr(g.Expr) }

func (t *Translator) VisitHaving(h *query.Having) error {
	t.write(" HAVING ")
	return t.expr(h.Expr)
}

func (t *Translator) VisitOrderByItem(o *query.OrderByItem) error {
	if err := t.expr(o.Expr); err != nil {
		return err
	}
	if o.Order == query.Desc {
		t.write(" DESC")
	} else {
		t.write(" ASC")
	}
	return nil
}

func (t *Translator) VisitSelect(s *query.Select) error {
	if s == nil {
		return errs.Precondition("nil select")
	}
	t.write("SELECT ")
	if s.Distinct {
		t.write("DISTINCT ")
	}
	if len(s.Fields) == 0 {
		t.write("*")
	}
	for i, f := range s.Fields {
		if i > 0 {
			t.write(", ")
		}
		if err := t.VisitField(f); err != nil {
			return err
		}
	}
	if len(s.From) > 0 {
		t.write(" FROM ")
		for i, f := range s.From {
			if i > 0 {
				t.write(", ")
			}
			if err := query.Accept(f, t); err != nil {
				return err
			}
		}
	}
	if s.Where != nil {
		if err := t.VisitWhere(s.Where); err != nil {
			return err
		}
	}
	if len(s.GroupBy) > 0 {
		t.write(" GROUP BY ")
		for i, g := range s.GroupBy {
			if i > 0 {
				t.write(", ")
			}
			if err := t.VisitGroupByItem(g); err != nil {
				return err
			}
		}
	}
	if s.Having != nil {
		if err := t.VisitHaving(s.Having); err != nil {
			return err
		}
	}
	if len(s.OrderBy) > 0 {
		t.write(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				t.write(", ")
			}
			if err := t.VisitOrderByItem(o); err != nil {
				return err
			}
		}
	}
	switch {
	case s.Limit != nil:
		t.write(" LIMIT " + strconv.Itoa(*s.Limit))
	case s.Offset != nil && t.dialect.UnboundedLimit != "":
		t.write(" LIMIT " + t.dialect.UnboundedLimit)
	}
	if s.Offset != nil {
		t.write(" OFFSET " + strconv.Itoa(*s.Offset))
	}
	return nil
}

func (t *Translator) properties(props []*query.PropertyName) {
	t.write(" (")
	for i, p := range props {
		if i > 0 {
			t.write(", ")
		}
		t.write(QuoteIdent(p.Name))
	}
	t.write(")")
}

func (t *Translator) VisitInsert(s *query.Insert) error {
	t.write("INSERT INTO " + QuoteIdent(s.DataSet.Name))
	if len(s.Properties) > 0 {
		t.properties(s.Properties)
	}
	if s.Select != nil {
		t.write(" ")
		return t.VisitSelect(s.Select)
	}
	t.write(" VALUES ")
	for i, row := range s.Values {
		if i > 0 {
			t.write(", ")
		}
		t.write("(")
		if err := t.list(row); err != nil {
			return err
		}
		t.write(")")
	}
	return nil
}

func (t *Translator) VisitUpdate(s *query.Update) error {
	if len(s.Properties) != len(s.Values) {
		return errs.Precondition("update names %d properties but has %d values", len(s.Properties), len(s.Values))
	}
	t.write("UPDATE " + QuoteIdent(s.DataSet.Name) + " SET ")
	for i, p := range s.Properties {
		if i > 0 {
			t.write(", ")
		}
		t.write(QuoteIdent(p.Name) + " = ")
		if err := t.expr(s.Values[i]); err != nil {
			return err
		}
	}
	if s.Where != nil {
		return t.VisitWhere(s.Where)
	}
	return nil
}

func (t *Translator) VisitDelete(s *query.Delete) error {
	t.write("DELETE FROM " + QuoteIdent(s.DataSet.Name))
	if s.Where != nil {
		return t.VisitWhere(s.Where)
	}
	return nil
}
