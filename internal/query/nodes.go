package query

import (
	"github.com/AlekSi/pointer"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/geometry"
)

// Node is any element of the query graph.
//
// This is a sealed interface - only pointer types in this package implement
// it, so Accept and Clone can switch over every kind exhaustively.
type Node interface {
	queryNode() // Marker method - seals interface to this package
}

// Expression is a node that evaluates to a value.
type Expression interface {
	Node
	expressionNode()
}

// FromItem is a node that produces rows for a Select.
type FromItem interface {
	Node
	fromItemNode()
}

// PropertyName references a property, optionally qualified by a dataset name
// or alias.
type PropertyName struct {
	Name    string
	DataSet string
}

func (*PropertyName) queryNode()      {}
func (*PropertyName) expressionNode() {}

// Literal is a constant value, including geometry constants.
type Literal struct {
	Value datatype.Value
}

func (*Literal) queryNode()      {}
func (*Literal) expressionNode() {}

// LiteralEnvelope is a constant bounding rectangle.
type LiteralEnvelope struct {
	Envelope geometry.Envelope
	SRID     int
}

func (*LiteralEnvelope) queryNode()      {}
func (*LiteralEnvelope) expressionNode() {}

// Function applies a named operator or function to arguments. Comparisons,
// logical connectives, arithmetic, spatial predicates and aggregates are all
// functions; see the name constants in functions.go.
type Function struct {
	Name string
	Args []Expression
}

func (*Function) queryNode()      {}
func (*Function) expressionNode() {}

// SubSelect embeds a Select as an expression (scalar or IN operand).
type SubSelect struct {
	Select *Select
}

func (*SubSelect) queryNode()      {}
func (*SubSelect) expressionNode() {}

// Field is one output column of a Select.
type Field struct {
	Expr  Expression
	Alias string
}

func (*Field) queryNode() {}

// DataSetName is a named dataset in a FROM clause.
type DataSetName struct {
	Name  string
	Alias string
}

func (*DataSetName) queryNode()    {}
func (*DataSetName) fromItemNode() {}

// SubSelectItem is a derived table in a FROM clause. Alias is required by
// most SQL dialects.
type SubSelectItem struct {
	Select *Select
	Alias  string
}

func (*SubSelectItem) queryNode()    {}
func (*SubSelectItem) fromItemNode() {}

// JoinType selects the join semantics.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
)

func (j JoinType) String() string {
	switch j {
	case InnerJoin:
		return "INNER JOIN"
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	case FullJoin:
		return "FULL OUTER JOIN"
	case CrossJoin:
		return "CROSS JOIN"
	}
	return "JOIN"
}

// Join combines two from-items. Exactly one of On and Using is set, except
// for CrossJoin which takes neither.
type Join struct {
	Left  FromItem
	Right FromItem
	Type  JoinType
	On    Expression
	Using []string
}

func (*Join) queryNode()    {}
func (*Join) fromItemNode() {}

// Where wraps the filter expression of a Select, Update or Delete.
type Where struct {
	Expr Expression
}

func (*Where) queryNode() {}

// GroupByItem is one grouping expression.
type GroupByItem struct {
	Expr Expression
}

func (*GroupByItem) queryNode() {}

// Having filters groups.
type Having struct {
	Expr Expression
}

func (*Having) queryNode() {}

// SortOrder is the direction of an OrderByItem.
type SortOrder int

const (
	Asc SortOrder = iota
	Desc
)

// OrderByItem is one sort key.
type OrderByItem struct {
	Expr  Expression
	Order SortOrder
}

func (*OrderByItem) queryNode() {}

// Select is a query over one or more from-items.
//
// Semantics:
//
//	SELECT [DISTINCT] <fields> FROM <from> [WHERE] [GROUP BY] [HAVING]
//	[ORDER BY] [LIMIT] [OFFSET]
//
// Empty Fields means every property of the from-items ("*").
type Select struct {
	Distinct bool
	Fields   []*Field
	From     []FromItem
	Where    *Where
	GroupBy  []*GroupByItem
	Having   *Having
	OrderBy  []*OrderByItem
	Limit    *int
	Offset   *int
}

func (*Select) queryNode() {}

// WithLimit sets the row limit and returns s.
func (s *Select) WithLimit(n int) *Select {
	s.Limit = pointer.ToInt(n)
	return s
}

// WithOffset sets the row offset and returns s.
func (s *Select) WithOffset(n int) *Select {
	s.Offset = pointer.ToInt(n)
	return s
}

// WithWhere sets the filter and returns s.
func (s *Select) WithWhere(e Expression) *Select {
	s.Where = &Where{Expr: e}
	return s
}

// WithOrderBy appends sort keys and returns s.
func (s *Select) WithOrderBy(items ...*OrderByItem) *Select {
	s.OrderBy = append(s.OrderBy, items...)
	return s
}

// Filter returns the WHERE expression, or nil.
func (s *Select) Filter() Expression {
	if s.Where == nil {
		return nil
	}
	return s.Where.Expr
}

// Insert adds rows to a dataset, either literal Values rows or the result of
// Select.
type Insert struct {
	DataSet    *DataSetName
	Properties []*PropertyName
	Values     [][]Expression
	Select     *Select
}

func (*Insert) queryNode() {}

// Update assigns Values[i] to Properties[i] on rows matching Where.
type Update struct {
	DataSet    *DataSetName
	Properties []*PropertyName
	Values     []Expression
	Where      *Where
}

func (*Update) queryNode() {}

// Delete removes rows matching Where (every row when Where is nil).
type Delete struct {
	DataSet *DataSetName
	Where   *Where
}

func (*Delete) queryNode() {}
