package query

import (
	"strings"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/geometry"
)

// Function names. Lookups through the classification helpers are
// case-insensitive.
const (
	OpEqual          = "="
	OpNotEqual       = "<>"
	OpGreater        = ">"
	OpGreaterOrEqual = ">="
	OpLess           = "<"
	OpLessOrEqual    = "<="

	OpAnd = "and"
	OpOr  = "or"
	OpNot = "not"

	OpAdd = "+"
	OpSub = "-"
	OpMul = "*"
	OpDiv = "/"

	OpIn        = "IN"
	OpIsNull    = "IS NULL"
	OpIsNotNull = "IS NOT NULL"
	OpLike      = "LIKE"

	FnIntersects = "ST_Intersects"
	FnDisjoint   = "ST_Disjoint"
	FnTouches    = "ST_Touches"
	FnOverlaps   = "ST_Overlaps"
	FnCrosses    = "ST_Crosses"
	FnWithin     = "ST_Within"
	FnContains   = "ST_Contains"
	FnEquals     = "ST_Equals"

	// FnEnvelopeIntersects is true when the bounding rectangles of its two
	// arguments intersect. Geometry-capable backends are expected to run it
	// natively; the spatial processor relies on it for coarse filtering.
	FnEnvelopeIntersects = "ST_EnvelopeIntersects"

	FnCount = "count"
	FnSum   = "sum"
	FnAvg   = "avg"
	FnMin   = "min"
	FnMax   = "max"
	FnUpper = "upper"
	FnLower = "lower"
)

var spatialFunctions = map[string]geometry.Relation{
	"st_intersects": geometry.Intersects,
	"st_disjoint":   geometry.Disjoint,
	"st_touches":    geometry.Touches,
	"st_overlaps":   geometry.Overlaps,
	"st_crosses":    geometry.Crosses,
	"st_within":     geometry.Within,
	"st_contains":   geometry.Contains,
	"st_equals":     geometry.Equals,
}

var relationFunctions = map[geometry.Relation]string{
	geometry.Intersects: FnIntersects,
	geometry.Disjoint:   FnDisjoint,
	geometry.Touches:    FnTouches,
	geometry.Overlaps:   FnOverlaps,
	geometry.Crosses:    FnCrosses,
	geometry.Within:     FnWithin,
	geometry.Contains:   FnContains,
	geometry.Equals:     FnEquals,
}

// SpatialRelation maps a spatial predicate name to its relation.
func SpatialRelation(name string) (geometry.Relation, bool) {
	r, ok := spatialFunctions[strings.ToLower(name)]
	return r, ok
}

// RelationFunction returns the predicate name for a relation.
func RelationFunction(r geometry.Relation) string {
	return relationFunctions[r]
}

// IsComparison reports whether name is one of = <> > >= < <=.
func IsComparison(name string) bool {
	switch name {
	case OpEqual, OpNotEqual, OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual:
		return true
	}
	return false
}

// IsLogical reports whether name is and, or or not.
func IsLogical(name string) bool {
	switch strings.ToLower(name) {
	case OpAnd, OpOr, OpNot:
		return true
	}
	return false
}

// IsArithmetic reports whether name is + - * or /.
func IsArithmetic(name string) bool {
	switch name {
	case OpAdd, OpSub, OpMul, OpDiv:
		return true
	}
	return false
}

// IsAggregate reports whether name is an aggregate function.
func IsAggregate(name string) bool {
	switch strings.ToLower(name) {
	case FnCount, FnSum, FnAvg, FnMin, FnMax:
		return true
	}
	return false
}

// Is reports whether f has the given name, case-insensitively.
func (f *Function) Is(name string) bool {
	return strings.EqualFold(f.Name, name)
}

// Prop returns a property reference.
func Prop(name string) *PropertyName {
	return &PropertyName{Name: name}
}

// QualifiedProp returns a property reference qualified by a dataset or alias.
func QualifiedProp(dataset, name string) *PropertyName {
	return &PropertyName{Name: name, DataSet: dataset}
}

// Lit returns a literal. A nil value becomes Null.
func Lit(v datatype.Value) *Literal {
	if v == nil {
		v = datatype.Null{}
	}
	return &Literal{Value: v}
}

// LitGeom returns a geometry literal.
func LitGeom(g geometry.Geometry) *Literal {
	return &Literal{Value: datatype.NewGeom(g)}
}

// LitEnvelope returns an envelope literal.
func LitEnvelope(e geometry.Envelope, srid int) *LiteralEnvelope {
	return &LiteralEnvelope{Envelope: e, SRID: srid}
}

// Fn returns a function node.
func Fn(name string, args ...Expression) *Function {
	return &Function{Name: name, Args: args}
}

// EqualTo returns a = b.
func EqualTo(a, b Expression) *Function { return Fn(OpEqual, a, b) }

// NotEqualTo returns a <> b.
func NotEqualTo(a, b Expression) *Function { return Fn(OpNotEqual, a, b) }

// GreaterThan returns a > b.
func GreaterThan(a, b Expression) *Function { return Fn(OpGreater, a, b) }

// GreaterThanOrEqualTo returns a >= b.
func GreaterThanOrEqualTo(a, b Expression) *Function { return Fn(OpGreaterOrEqual, a, b) }

// LessThan returns a < b.
func LessThan(a, b Expression) *Function { return Fn(OpLess, a, b) }

// LessThanOrEqualTo returns a <= b.
func LessThanOrEqualTo(a, b Expression) *Function { return Fn(OpLessOrEqual, a, b) }

// And returns the conjunction of its arguments.
func And(exprs ...Expression) *Function { return Fn(OpAnd, exprs...) }

// Or returns the disjunction of its arguments.
func Or(exprs ...Expression) *Function { return Fn(OpOr, exprs...) }

// Not negates e.
func Not(e Expression) *Function { return Fn(OpNot, e) }

// Add returns a + b.
func Add(a, b Expression) *Function { return Fn(OpAdd, a, b) }

// Sub returns a - b.
func Sub(a, b Expression) *Function { return Fn(OpSub, a, b) }

// Mul returns a * b.
func Mul(a, b Expression) *Function { return Fn(OpMul, a, b) }

// Div returns a / b.
func Div(a, b Expression) *Function { return Fn(OpDiv, a, b) }

// In returns e IN (values...).
func In(e Expression, values ...Expression) *Function {
	return Fn(OpIn, append([]Expression{e}, values...)...)
}

// IsNull returns e IS NULL.
func IsNull(e Expression) *Function { return Fn(OpIsNull, e) }

// IsNotNull returns e IS NOT NULL.
func IsNotNull(e Expression) *Function { return Fn(OpIsNotNull, e) }

// Like returns e LIKE pattern, with % and _ wildcards.
func Like(e Expression, pattern string) *Function {
	return Fn(OpLike, e, Lit(datatype.Str(pattern)))
}

// STRelate returns the spatial predicate for rel.
func STRelate(rel geometry.Relation, a, b Expression) *Function {
	return Fn(RelationFunction(rel), a, b)
}

// STIntersects returns ST_Intersects(a, b).
func STIntersects(a, b Expression) *Function { return Fn(FnIntersects, a, b) }

// STDisjoint returns ST_Disjoint(a, b).
func STDisjoint(a, b Expression) *Function { return Fn(FnDisjoint, a, b) }

// STTouches returns ST_Touches(a, b).
func STTouches(a, b Expression) *Function { return Fn(FnTouches, a, b) }

// STOverlaps returns ST_Overlaps(a, b).
func STOverlaps(a, b Expression) *Function { return Fn(FnOverlaps, a, b) }

// STCrosses returns ST_Crosses(a, b).
func STCrosses(a, b Expression) *Function { return Fn(FnCrosses, a, b) }

// STWithin returns ST_Within(a, b).
func STWithin(a, b Expression) *Function { return Fn(FnWithin, a, b) }

// STContains returns ST_Contains(a, b).
func STContains(a, b Expression) *Function { return Fn(FnContains, a, b) }

// STEquals returns ST_Equals(a, b).
func STEquals(a, b Expression) *Function { return Fn(FnEquals, a, b) }

// EnvelopeIntersects returns ST_EnvelopeIntersects(a, b).
func EnvelopeIntersects(a, b Expression) *Function { return Fn(FnEnvelopeIntersects, a, b) }

// AscBy returns an ascending sort key on a property.
func AscBy(name string) *OrderByItem {
	return &OrderByItem{Expr: Prop(name), Order: Asc}
}

// DescBy returns a descending sort key on a property.
func DescBy(name string) *OrderByItem {
	return &OrderByItem{Expr: Prop(name), Order: Desc}
}
