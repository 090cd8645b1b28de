package eval

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/query"
)

// Row resolves property values of the row under evaluation.
type Row interface {
	Lookup(name string) (datatype.Value, error)
}

// MapRow is a Row backed by a map. Missing names are NOT_FOUND errors.
type MapRow map[string]datatype.Value

// Lookup implements Row.
func (r MapRow) Lookup(name string) (datatype.Value, error) {
	v, ok := r[name]
	if !ok {
		return nil, errs.NotFound("property %q not found", name).WithProperty(name)
	}
	return v, nil
}

// Evaluator computes expressions over single rows with SQL semantics:
// comparisons and arithmetic involving NULL yield NULL, and/or/not use
// three-valued logic, and spatial predicates go through a geometry engine.
type Evaluator struct {
	engine geometry.Engine
}

// New returns an evaluator using eng. A nil eng selects
// geometry.DefaultEngine.
func New(eng geometry.Engine) *Evaluator {
	if eng == nil {
		eng = geometry.DefaultEngine()
	}
	return &Evaluator{engine: eng}
}

var defaultEvaluator = New(nil)

// Eval evaluates e over row with the default evaluator.
func Eval(e query.Expression, row Row) (datatype.Value, error) {
	return defaultEvaluator.Eval(e, row)
}

// Test evaluates a filter over row with the default evaluator.
func Test(e query.Expression, row Row) (bool, error) {
	return defaultEvaluator.Test(e, row)
}

// Test reports whether a filter holds for row. NULL (unknown) does not hold.
// A nil filter always holds.
func (ev *Evaluator) Test(e query.Expression, row Row) (bool, error) {
	if e == nil {
		return true, nil
	}
	v, err := ev.Eval(e, row)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case datatype.Bool:
		return bool(b), nil
	case datatype.Null:
		return false, nil
	}
	return false, errs.Precondition("filter yields %s, not boolean", v.Type())
}

// Eval computes the value of e for row.
func (ev *Evaluator) Eval(e query.Expression, row Row) (datatype.Value, error) {
	switch expr := e.(type) {
	case *query.PropertyName:
		v, err := row.Lookup(expr.Name)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return datatype.Null{}, nil
		}
		return v, nil
	case *query.Literal:
		if expr.Value == nil {
			return datatype.Null{}, nil
		}
		return expr.Value, nil
	case *query.LiteralEnvelope:
		return datatype.NewGeom(ev.engine.FromEnvelope(expr.Envelope, expr.SRID)), nil
	case *query.Function:
		return ev.function(expr, row)
	case *query.SubSelect:
		return nil, errs.Unimplemented("sub-selects cannot be evaluated row by row")
	case nil:
		return nil, errs.Precondition("nil expression")
	default:
		// Impossible - Expression is sealed
		return nil, fmt.Errorf("eval: unknown expression %T", e)
	}
}

func (ev *Evaluator) args(f *query.Function, row Row) ([]datatype.Value, error) {
	vals := make([]datatype.Value, len(f.Args))
	for i, a := range f.Args {
		v, err := ev.Eval(a, row)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func arity(f *query.Function, n int) error {
	if len(f.Args) != n {
		return errs.Precondition("%s takes %d arguments, got %d", f.Name, n, len(f.Args))
	}
	return nil
}

func (ev *Evaluator) function(f *query.Function, row Row) (datatype.Value, error) {
	name := strings.ToLower(f.Name)
	switch {
	case name == query.OpAnd || name == query.OpOr:
		return ev.logical(name == query.OpAnd, f, row)
	case name == query.OpNot:
		if err := arity(f, 1); err != nil {
			return nil, err
		}
		v, err := ev.Eval(f.Args[0], row)
		if err != nil {
			return nil, err
		}
		b, known, err := truth(v)
		if err != nil || !known {
			return datatype.Null{}, err
		}
		return datatype.Bool(!b), nil
	case query.IsComparison(f.Name):
		if err := arity(f, 2); err != nil {
			return nil, err
		}
		vals, err := ev.args(f, row)
		if err != nil {
			return nil, err
		}
		return compare(f.Name, vals[0], vals[1])
	case query.IsArithmetic(f.Name):
		if err := arity(f, 2); err != nil {
			return nil, err
		}
		vals, err := ev.args(f, row)
		if err != nil {
			return nil, err
		}
		return arithmetic(f.Name, vals[0], vals[1])
	case strings.EqualFold(f.Name, query.OpIn):
		return ev.in(f, row)
	case strings.EqualFold(f.Name, query.OpIsNull), strings.EqualFold(f.Name, query.OpIsNotNull):
		if err := arity(f, 1); err != nil {
			return nil, err
		}
		v, err := ev.Eval(f.Args[0], row)
		if err != nil {
			return nil, err
		}
		return datatype.Bool(datatype.IsNull(v) == strings.EqualFold(f.Name, query.OpIsNull)), nil
	case strings.EqualFold(f.Name, query.OpLike):
		if err := arity(f, 2); err != nil {
			return nil, err
		}
		vals, err := ev.args(f, row)
		if err != nil {
			return nil, err
		}
		return like(vals[0], vals[1])
	case name == query.FnUpper || name == query.FnLower:
		if err := arity(f, 1); err != nil {
			return nil, err
		}
		v, err := ev.Eval(f.Args[0], row)
		if err != nil || datatype.IsNull(v) {
			return datatype.Null{}, err
		}
		s := datatype.AsString(v)
		if name == query.FnUpper {
			return datatype.Str(strings.ToUpper(s)), nil
		}
		return datatype.Str(strings.ToLower(s)), nil
	case f.Is(query.FnEnvelopeIntersects):
		return ev.spatial(f, row, func(a, b geometry.Geometry) (bool, error) {
			return ev.engine.MBR(a).Intersects(ev.engine.MBR(b)), nil
		})
	case query.IsAggregate(f.Name):
		return nil, errs.Unimplemented("aggregate %s cannot be evaluated row by row", f.Name)
	}
	if rel, ok := query.SpatialRelation(f.Name); ok {
		return ev.spatial(f, row, func(a, b geometry.Geometry) (bool, error) {
			return ev.engine.Relate(a, b, rel)
		})
	}
	return nil, errs.Unimplemented("function %s is not supported", f.Name)
}

// truth maps a value to two-valued truth plus a known flag.
func truth(v datatype.Value) (value, known bool, err error) {
	switch b := v.(type) {
	case datatype.Bool:
		return bool(b), true, nil
	case datatype.Null:
		return false, false, nil
	}
	return false, false, errs.Precondition("expected boolean, got %s", v.Type())
}

func (ev *Evaluator) logical(isAnd bool, f *query.Function, row Row) (datatype.Value, error) {
	unknown := false
	for _, a := range f.Args {
		v, err := ev.Eval(a, row)
		if err != nil {
			return nil, err
		}
		b, known, err := truth(v)
		if err != nil {
			return nil, err
		}
		switch {
		case !known:
			unknown = true
		case isAnd && !b:
			return datatype.Bool(false), nil
		case !isAnd && b:
			return datatype.Bool(true), nil
		}
	}
	if unknown {
		return datatype.Null{}, nil
	}
	return datatype.Bool(isAnd), nil
}

func compare(op string, a, b datatype.Value) (datatype.Value, error) {
	if datatype.IsNull(a) || datatype.IsNull(b) {
		return datatype.Null{}, nil
	}
	if op == query.OpEqual || op == query.OpNotEqual {
		if _, isGeom := a.(datatype.Geom); isGeom {
			eq := datatype.Equal(a, b)
			return datatype.Bool(eq == (op == query.OpEqual)), nil
		}
	}
	c, ok := datatype.Compare(a, b)
	if !ok {
		return nil, errs.Precondition("cannot compare %s with %s", a.Type(), b.Type())
	}
	switch op {
	case query.OpEqual:
		return datatype.Bool(c == 0), nil
	case query.OpNotEqual:
		return datatype.Bool(c != 0), nil
	case query.OpGreater:
		return datatype.Bool(c > 0), nil
	case query.OpGreaterOrEqual:
		return datatype.Bool(c >= 0), nil
	case query.OpLess:
		return datatype.Bool(c < 0), nil
	default:
		return datatype.Bool(c <= 0), nil
	}
}

func arithmetic(op string, a, b datatype.Value) (datatype.Value, error) {
	if datatype.IsNull(a) || datatype.IsNull(b) {
		return datatype.Null{}, nil
	}
	x, xok := asDecimal(a)
	y, yok := asDecimal(b)
	if !xok || !yok {
		return nil, errs.Precondition("%s needs numeric operands, got %s and %s", op, a.Type(), b.Type())
	}
	var r decimal.Decimal
	switch op {
	case query.OpAdd:
		r = x.Add(y)
	case query.OpSub:
		r = x.Sub(y)
	case query.OpMul:
		r = x.Mul(y)
	case query.OpDiv:
		if y.IsZero() {
			return datatype.Null{}, nil
		}
		if isIntegral(a) && isIntegral(b) {
			return datatype.Int(x.Div(y).Truncate(0).IntPart()), nil
		}
		r = x.Div(y)
	}
	switch {
	case isKind[datatype.Float](a) || isKind[datatype.Float](b):
		f, _ := r.Float64()
		return datatype.Float(f), nil
	case isKind[datatype.Num](a) || isKind[datatype.Num](b):
		return datatype.Num{Decimal: r}, nil
	case r.IsInteger() && r.GreaterThanOrEqual(decimal.NewFromInt(math.MinInt64)) && r.LessThanOrEqual(decimal.NewFromInt(math.MaxInt64)):
		return datatype.Int(r.IntPart()), nil
	}
	return datatype.Num{Decimal: r}, nil
}

func isKind[T datatype.Value](v datatype.Value) bool {
	_, ok := v.(T)
	return ok
}

func isIntegral(v datatype.Value) bool {
	return isKind[datatype.Int](v) || isKind[datatype.UInt](v)
}

func asDecimal(v datatype.Value) (decimal.Decimal, bool) {
	n, err := datatype.Convert(v, datatype.Numeric)
	if err != nil {
		return decimal.Zero, false
	}
	switch v.(type) {
	case datatype.Int, datatype.UInt, datatype.Float, datatype.Num:
	default:
		return decimal.Zero, false
	}
	num, ok := n.(datatype.Num)
	return num.Decimal, ok
}

func (ev *Evaluator) in(f *query.Function, row Row) (datatype.Value, error) {
	if len(f.Args) < 1 {
		return nil, errs.Precondition("IN takes at least one argument")
	}
	vals, err := ev.args(f, row)
	if err != nil {
		return nil, err
	}
	needle := vals[0]
	if datatype.IsNull(needle) {
		return datatype.Null{}, nil
	}
	sawNull := false
	for _, v := range vals[1:] {
		if datatype.IsNull(v) {
			sawNull = true
			continue
		}
		if datatype.Equal(needle, v) {
			return datatype.Bool(true), nil
		}
	}
	if sawNull {
		return datatype.Null{}, nil
	}
	return datatype.Bool(false), nil
}

var likeCache sync.Map // pattern -> *regexp.Regexp

// like matches with % and _ wildcards, ignoring ASCII case like SQLite.
func like(v, pattern datatype.Value) (datatype.Value, error) {
	if datatype.IsNull(v) || datatype.IsNull(pattern) {
		return datatype.Null{}, nil
	}
	p := datatype.AsString(pattern)
	re, ok := likeCache.Load(p)
	if !ok {
		var b strings.Builder
		b.WriteString("(?is)^")
		for _, r := range p {
			switch r {
			case '%':
				b.WriteString(".*")
			case '_':
				b.WriteString(".")
			default:
				b.WriteString(regexp.QuoteMeta(string(r)))
			}
		}
		b.WriteString("$")
		compiled, err := regexp.Compile(b.String())
		if err != nil {
			return nil, errs.Precondition("bad LIKE pattern %q: %v", p, err)
		}
		re, _ = likeCache.LoadOrStore(p, compiled)
	}
	return datatype.Bool(re.(*regexp.Regexp).MatchString(datatype.AsString(v))), nil
}

// spatial evaluates a two-geometry predicate. Null operands yield NULL.
// Operands that are not geometries, and relations the engine cannot
// compute for them (mismatched SRIDs), are ROW_EXTRACTION errors so
// callers scanning datasets can skip the row.
func (ev *Evaluator) spatial(f *query.Function, row Row, pred func(a, b geometry.Geometry) (bool, error)) (datatype.Value, error) {
	if err := arity(f, 2); err != nil {
		return nil, err
	}
	vals, err := ev.args(f, row)
	if err != nil {
		return nil, err
	}
	if datatype.IsNull(vals[0]) || datatype.IsNull(vals[1]) {
		return datatype.Null{}, nil
	}
	a, err := asGeometry(f, vals[0])
	if err != nil {
		return nil, err
	}
	b, err := asGeometry(f, vals[1])
	if err != nil {
		return nil, err
	}
	ok, err := pred(a, b)
	if err != nil {
		return nil, errs.Wrap(errs.CodeRowExtraction, err, "%s", f.Name)
	}
	return datatype.Bool(ok), nil
}

func asGeometry(f *query.Function, v datatype.Value) (geometry.Geometry, error) {
	g, err := datatype.Convert(v, datatype.Geometry)
	if err != nil {
		return geometry.Geometry{}, fmt.Errorf("%s operand: %w", f.Name, err)
	}
	return g.(datatype.Geom).Geometry, nil
}
