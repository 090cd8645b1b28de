package sqldialect

import (
	"slices"
	"strings"

	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/query"
)

// Encoder renders one function call of the query graph.
type Encoder interface {
	Encode(t *Translator, f *query.Function) error
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(t *Translator, f *query.Function) error

func (fn EncoderFunc) Encode(t *Translator, f *query.Function) error { return fn(t, f) }

// FunctionEncoder renders alias(arg, ...).
type FunctionEncoder struct {
	Alias string
}

func (e FunctionEncoder) Encode(t *Translator, f *query.Function) error {
	t.write(e.Alias)
	t.write("(")
	if err := t.list(f.Args); err != nil {
		return err
	}
	t.write(")")
	return nil
}

// BinaryOpEncoder renders (a alias b). With more than two arguments the
// operator joins all of them, which suits AND and OR.
type BinaryOpEncoder struct {
	Alias string
}

func (e BinaryOpEncoder) Encode(t *Translator, f *query.Function) error {
	if len(f.Args) < 2 {
		return errs.Precondition("%s needs at least two arguments, got %d", f.Name, len(f.Args))
	}
	t.write("(")
	for i, a := range f.Args {
		if i > 0 {
			t.write(" " + e.Alias + " ")
		}
		if err := t.expr(a); err != nil {
			return err
		}
	}
	t.write(")")
	return nil
}

// UnaryOpEncoder renders alias (a).
type UnaryOpEncoder struct {
	Alias string
}

func (e UnaryOpEncoder) Encode(t *Translator, f *query.Function) error {
	if len(f.Args) != 1 {
		return errs.Precondition("%s needs one argument, got %d", f.Name, len(f.Args))
	}
	t.write(e.Alias + " (")
	if err := t.expr(f.Args[0]); err != nil {
		return err
	}
	t.write(")")
	return nil
}

// PostfixOpEncoder renders (a alias), as in IS NULL.
type PostfixOpEncoder struct {
	Alias string
}

func (e PostfixOpEncoder) Encode(t *Translator, f *query.Function) error {
	if len(f.Args) != 1 {
		return errs.Precondition("%s needs one argument, got %d", f.Name, len(f.Args))
	}
	t.write("(")
	if err := t.expr(f.Args[0]); err != nil {
		return err
	}
	t.write(" " + e.Alias + ")")
	return nil
}

// InEncoder renders (a IN (b, c, ...)).
type InEncoder struct{}

func (InEncoder) Encode(t *Translator, f *query.Function) error {
	if len(f.Args) < 2 {
		return errs.Precondition("IN needs a value and at least one candidate")
	}
	t.write("(")
	if err := t.expr(f.Args[0]); err != nil {
		return err
	}
	t.write(" IN ")
	if sub, ok := f.Args[1].(*query.SubSelect); ok && len(f.Args) == 2 {
		if err := t.VisitSubSelect(sub); err != nil {
			return err
		}
		t.write(")")
		return nil
	}
	t.write("(")
	if err := t.list(f.Args[1:]); err != nil {
		return err
	}
	t.write("))")
	return nil
}

// TemplateEncoder substitutes arguments into a template where $1 is the
// first argument. Text outside placeholders is copied as is.
type TemplateEncoder struct {
	Template string
}

func (e TemplateEncoder) Encode(t *Translator, f *query.Function) error {
	s := e.Template
	for len(s) > 0 {
		i := strings.IndexByte(s, '$')
		if i < 0 || i == len(s)-1 || s[i+1] < '1' || s[i+1] > '9' {
			t.write(s)
			return nil
		}
		t.write(s[:i])
		n := int(s[i+1] - '1')
		if n >= len(f.Args) {
			return errs.Precondition("%s template uses argument %d of %d", f.Name, n+1, len(f.Args))
		}
		if err := t.expr(f.Args[n]); err != nil {
			return err
		}
		s = s[i+2:]
	}
	return nil
}

// Dialect maps function names to encoders and fixes the lexical details of
// a backend's SQL. Function lookups are case-insensitive.
type Dialect struct {
	name     string
	encoders map[string]Encoder

	// UnboundedLimit is written as the LIMIT of a select that only has an
	// OFFSET. Empty means the dialect accepts a bare OFFSET.
	UnboundedLimit string
}

// New returns a dialect with no encoders.
func New(name string) *Dialect {
	return &Dialect{name: name, encoders: map[string]Encoder{}}
}

// Generic returns a dialect with encoders for the comparison, logical,
// arithmetic and predicate operators and the common scalar and aggregate
// functions. Spatial functions are left to backends.
func Generic(name string) *Dialect {
	d := New(name)
	for _, op := range []string{
		query.OpEqual, query.OpNotEqual, query.OpGreater, query.OpGreaterOrEqual,
		query.OpLess, query.OpLessOrEqual, query.OpAdd, query.OpSub, query.OpMul, query.OpDiv,
	} {
		d.Register(op, BinaryOpEncoder{Alias: op})
	}
	d.Register(query.OpAnd, BinaryOpEncoder{Alias: "AND"})
	d.Register(query.OpOr, BinaryOpEncoder{Alias: "OR"})
	d.Register(query.OpLike, BinaryOpEncoder{Alias: "LIKE"})
	d.Register(query.OpNot, UnaryOpEncoder{Alias: "NOT"})
	d.Register(query.OpIsNull, PostfixOpEncoder{Alias: "IS NULL"})
	d.Register(query.OpIsNotNull, PostfixOpEncoder{Alias: "IS NOT NULL"})
	d.Register(query.OpIn, InEncoder{})
	for _, fn := range []string{query.FnUpper, query.FnLower, query.FnCount, query.FnSum, query.FnAvg, query.FnMin, query.FnMax} {
		d.Register(fn, FunctionEncoder{Alias: strings.ToUpper(fn)})
	}
	return d
}

func (d *Dialect) Name() string { return d.name }

// Register sets the encoder of fn, replacing any previous one.
func (d *Dialect) Register(fn string, e Encoder) {
	d.encoders[strings.ToLower(fn)] = e
}

// Encoder returns the encoder registered for fn.
func (d *Dialect) Encoder(fn string) (Encoder, bool) {
	e, ok := d.encoders[strings.ToLower(fn)]
	return e, ok
}

// Functions lists the registered function names, sorted.
func (d *Dialect) Functions() []string {
	names := make([]string, 0, len(d.encoders))
	for n := range d.encoders {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// QuoteIdent quotes an identifier with double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
