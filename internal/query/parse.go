package query

import (
	"strconv"

	"github.com/xwb1989/sqlparser"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
)

// ParseWhere parses a SQL boolean expression, as written after WHERE, into
// an expression tree. It accepts property references, numeric, string,
// boolean and NULL constants, comparisons, LIKE, IN, BETWEEN, IS [NOT] NULL,
// arithmetic and the logical connectives. Anything else fails with
// PRECONDITION.
func ParseWhere(s string) (Expression, error) {
	stmt, err := sqlparser.Parse("select * from t where " + s)
	if err != nil {
		return nil, errs.Wrap(errs.CodePrecondition, err, "parse filter %q", s)
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok || sel.Where == nil {
		return nil, errs.Precondition("filter %q is not a single expression", s)
	}
	return fromSQL(sel.Where.Expr)
}

var comparisons = map[string]string{
	sqlparser.EqualStr:        OpEqual,
	sqlparser.NotEqualStr:     OpNotEqual,
	sqlparser.LessThanStr:     OpLess,
	sqlparser.LessEqualStr:    OpLessOrEqual,
	sqlparser.GreaterThanStr:  OpGreater,
	sqlparser.GreaterEqualStr: OpGreaterOrEqual,
}

var arithmetic = map[string]string{
	sqlparser.PlusStr:  OpAdd,
	sqlparser.MinusStr: OpSub,
	sqlparser.MultStr:  OpMul,
	sqlparser.DivStr:   OpDiv,
}

func fromSQL(e sqlparser.Expr) (Expression, error) {
	switch x := e.(type) {
	case *sqlparser.ParenExpr:
		return fromSQL(x.Expr)
	case *sqlparser.AndExpr:
		return binary(OpAnd, x.Left, x.Right)
	case *sqlparser.OrExpr:
		return binary(OpOr, x.Left, x.Right)
	case *sqlparser.NotExpr:
		inner, err := fromSQL(x.Expr)
		if err != nil {
			return nil, err
		}
		return Not(inner), nil
	case *sqlparser.ComparisonExpr:
		return comparison(x)
	case *sqlparser.RangeCond:
		left, err := fromSQL(x.Left)
		if err != nil {
			return nil, err
		}
		from, err := fromSQL(x.From)
		if err != nil {
			return nil, err
		}
		to, err := fromSQL(x.To)
		if err != nil {
			return nil, err
		}
		between := And(GreaterThanOrEqualTo(left, from), LessThanOrEqualTo(left, to))
		if x.Operator == sqlparser.NotBetweenStr {
			return Not(between), nil
		}
		return between, nil
	case *sqlparser.IsExpr:
		inner, err := fromSQL(x.Expr)
		if err != nil {
			return nil, err
		}
		switch x.Operator {
		case sqlparser.IsNullStr:
			return IsNull(inner), nil
		case sqlparser.IsNotNullStr:
			return IsNotNull(inner), nil
		}
		return nil, errs.Unimplemented("operator %q", x.Operator)
	case *sqlparser.BinaryExpr:
		op, ok := arithmetic[x.Operator]
		if !ok {
			return nil, errs.Unimplemented("operator %q", x.Operator)
		}
		return binary(op, x.Left, x.Right)
	case *sqlparser.UnaryExpr:
		if x.Operator != sqlparser.UMinusStr {
			return nil, errs.Unimplemented("operator %q", x.Operator)
		}
		inner, err := fromSQL(x.Expr)
		if err != nil {
			return nil, err
		}
		if lit, ok := inner.(*Literal); ok {
			switch v := lit.Value.(type) {
			case datatype.Int:
				return Lit(-v), nil
			case datatype.Float:
				return Lit(-v), nil
			}
		}
		return Sub(Lit(datatype.Int(0)), inner), nil
	case *sqlparser.ColName:
		if x.Qualifier.IsEmpty() {
			return Prop(x.Name.String()), nil
		}
		return QualifiedProp(x.Qualifier.Name.String(), x.Name.String()), nil
	case *sqlparser.SQLVal:
		return literal(x)
	case *sqlparser.NullVal:
		return Lit(datatype.Null{}), nil
	case sqlparser.BoolVal:
		return Lit(datatype.Bool(x)), nil
	}
	return nil, errs.Unimplemented("unsupported filter expression %s", sqlparser.String(e))
}

func binary(op string, l, r sqlparser.Expr) (Expression, error) {
	left, err := fromSQL(l)
	if err != nil {
		return nil, err
	}
	right, err := fromSQL(r)
	if err != nil {
		return nil, err
	}
	return Fn(op, left, right), nil
}

func comparison(x *sqlparser.ComparisonExpr) (Expression, error) {
	if op, ok := comparisons[x.Operator]; ok {
		return binary(op, x.Left, x.Right)
	}
	left, err := fromSQL(x.Left)
	if err != nil {
		return nil, err
	}
	switch x.Operator {
	case sqlparser.LikeStr, sqlparser.NotLikeStr:
		pattern, err := fromSQL(x.Right)
		if err != nil {
			return nil, err
		}
		like := Fn(OpLike, left, pattern)
		if x.Operator == sqlparser.NotLikeStr {
			return Not(like), nil
		}
		return like, nil
	case sqlparser.InStr, sqlparser.NotInStr:
		tuple, ok := x.Right.(sqlparser.ValTuple)
		if !ok {
			return nil, errs.Unimplemented("IN needs a list of values")
		}
		values := make([]Expression, 0, len(tuple))
		for _, v := range tuple {
			e, err := fromSQL(v)
			if err != nil {
				return nil, err
			}
			values = append(values, e)
		}
		in := In(left, values...)
		if x.Operator == sqlparser.NotInStr {
			return Not(in), nil
		}
		return in, nil
	}
	return nil, errs.Unimplemented("operator %q", x.Operator)
}

func literal(v *sqlparser.SQLVal) (Expression, error) {
	s := string(v.Val)
	switch v.Type {
	case sqlparser.StrVal:
		return Lit(datatype.Str(s)), nil
	case sqlparser.IntVal:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errs.Wrap(errs.CodePrecondition, err, "integer constant %s", s)
		}
		return Lit(datatype.Int(n)), nil
	case sqlparser.FloatVal:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errs.Wrap(errs.CodePrecondition, err, "numeric constant %s", s)
		}
		return Lit(datatype.Float(f)), nil
	}
	return nil, errs.Unimplemented("constant %s", s)
}
