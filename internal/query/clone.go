package query

import (
	"github.com/roach88/dataccess/internal/datatype"
)

// Clone returns a deep copy of n. The copy shares no nodes and no mutable
// values with n, so it can be attached to another graph and mutated freely.
// A nil n yields the zero value of N.
func Clone[N Node](n N) N {
	c, _ := cloneNode(n).(N)
	return c
}

// CloneExpression deep-copies an expression held through the interface.
func CloneExpression(e Expression) Expression {
	c, _ := cloneNode(e).(Expression)
	return c
}

// CloneFromItem deep-copies a from-item held through the interface.
func CloneFromItem(f FromItem) FromItem {
	c, _ := cloneNode(f).(FromItem)
	return c
}

func cloneNode(n Node) Node {
	if isNilNode(n) {
		return nil
	}
	switch node := n.(type) {
	case *PropertyName:
		c := *node
		return &c
	case *Literal:
		return &Literal{Value: datatype.Clone(node.Value)}
	case *LiteralEnvelope:
		c := *node
		return &c
	case *Function:
		return &Function{Name: node.Name, Args: cloneExpressions(node.Args)}
	case *SubSelect:
		return &SubSelect{Select: cloneSelect(node.Select)}
	case *Field:
		return cloneField(node)
	case *DataSetName:
		c := *node
		return &c
	case *SubSelectItem:
		return &SubSelectItem{Select: cloneSelect(node.Select), Alias: node.Alias}
	case *Join:
		return &Join{
			Left:  CloneFromItem(node.Left),
			Right: CloneFromItem(node.Right),
			Type:  node.Type,
			On:    CloneExpression(node.On),
			Using: cloneStrings(node.Using),
		}
	case *Where:
		return cloneWhere(node)
	case *GroupByItem:
		return &GroupByItem{Expr: CloneExpression(node.Expr)}
	case *Having:
		return &Having{Expr: CloneExpression(node.Expr)}
	case *OrderByItem:
		return &OrderByItem{Expr: CloneExpression(node.Expr), Order: node.Order}
	case *Select:
		return cloneSelect(node)
	case *Insert:
		c := &Insert{
			DataSet:    cloneDataSetName(node.DataSet),
			Properties: cloneProperties(node.Properties),
			Select:     cloneSelect(node.Select),
		}
		if node.Values != nil {
			c.Values = make([][]Expression, len(node.Values))
			for i, row := range node.Values {
				c.Values[i] = cloneExpressions(row)
			}
		}
		return c
	case *Update:
		return &Update{
			DataSet:    cloneDataSetName(node.DataSet),
			Properties: cloneProperties(node.Properties),
			Values:     cloneExpressions(node.Values),
			Where:      cloneWhere(node.Where),
		}
	case *Delete:
		return &Delete{DataSet: cloneDataSetName(node.DataSet), Where: cloneWhere(node.Where)}
	default:
		// Impossible - Node is sealed
		return nil
	}
}

func cloneSelect(s *Select) *Select {
	if s == nil {
		return nil
	}
	c := &Select{Distinct: s.Distinct, Where: cloneWhere(s.Where)}
	if s.Fields != nil {
		c.Fields = make([]*Field, len(s.Fields))
		for i, f := range s.Fields {
			c.Fields[i] = cloneField(f)
		}
	}
	if s.From != nil {
		c.From = make([]FromItem, len(s.From))
		for i, f := range s.From {
			c.From[i] = CloneFromItem(f)
		}
	}
	if s.GroupBy != nil {
		c.GroupBy = make([]*GroupByItem, len(s.GroupBy))
		for i, g := range s.GroupBy {
			c.GroupBy[i] = Clone(g)
		}
	}
	if s.Having != nil {
		c.Having = Clone(s.Having)
	}
	if s.OrderBy != nil {
		c.OrderBy = make([]*OrderByItem, len(s.OrderBy))
		for i, o := range s.OrderBy {
			c.OrderBy[i] = Clone(o)
		}
	}
	if s.Limit != nil {
		c.WithLimit(*s.Limit)
	}
	if s.Offset != nil {
		c.WithOffset(*s.Offset)
	}
	return c
}

func cloneField(f *Field) *Field {
	if f == nil {
		return nil
	}
	return &Field{Expr: CloneExpression(f.Expr), Alias: f.Alias}
}

func cloneWhere(w *Where) *Where {
	if w == nil {
		return nil
	}
	return &Where{Expr: CloneExpression(w.Expr)}
}

func cloneDataSetName(d *DataSetName) *DataSetName {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func cloneExpressions(in []Expression) []Expression {
	if in == nil {
		return nil
	}
	out := make([]Expression, len(in))
	for i, e := range in {
		out[i] = CloneExpression(e)
	}
	return out
}

func cloneProperties(in []*PropertyName) []*PropertyName {
	if in == nil {
		return nil
	}
	out := make([]*PropertyName, len(in))
	for i, p := range in {
		out[i] = Clone(p)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
