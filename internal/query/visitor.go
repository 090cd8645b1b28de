package query

import "fmt"

// Visitor has one handler per node kind. Accept dispatches to exactly one of
// them; handlers decide whether and how to descend into children.
//
// Backends render queries with Visitor implementations (see sqldialect);
// restriction finders accumulate matches with them.
type Visitor interface {
	VisitPropertyName(*PropertyName) error
	VisitLiteral(*Literal) error
	VisitLiteralEnvelope(*LiteralEnvelope) error
	VisitFunction(*Function) error
	VisitSubSelect(*SubSelect) error
	VisitField(*Field) error
	VisitDataSetName(*DataSetName) error
	VisitSubSelectItem(*SubSelectItem) error
	VisitJoin(*Join) error
	VisitWhere(*Where) error
	VisitGroupByItem(*GroupByItem) error
	VisitHaving(*Having) error
	VisitOrderByItem(*OrderByItem) error
	VisitSelect(*Select) error
	VisitInsert(*Insert) error
	VisitUpdate(*Update) error
	VisitDelete(*Delete) error
}

// Accept dispatches n to the matching handler of v.
func Accept(n Node, v Visitor) error {
	switch node := n.(type) {
	case *PropertyName:
		return v.VisitPropertyName(node)
	case *Literal:
		return v.VisitLiteral(node)
	case *LiteralEnvelope:
		return v.VisitLiteralEnvelope(node)
	case *Function:
		return v.VisitFunction(node)
	case *SubSelect:
		return v.VisitSubSelect(node)
	case *Field:
		return v.VisitField(node)
	case *DataSetName:
		return v.VisitDataSetName(node)
	case *SubSelectItem:
		return v.VisitSubSelectItem(node)
	case *Join:
		return v.VisitJoin(node)
	case *Where:
		return v.VisitWhere(node)
	case *GroupByItem:
		return v.VisitGroupByItem(node)
	case *Having:
		return v.VisitHaving(node)
	case *OrderByItem:
		return v.VisitOrderByItem(node)
	case *Select:
		return v.VisitSelect(node)
	case *Insert:
		return v.VisitInsert(node)
	case *Update:
		return v.VisitUpdate(node)
	case *Delete:
		return v.VisitDelete(node)
	case nil:
		return fmt.Errorf("accept: nil node")
	default:
		// Impossible - Node is sealed
		return fmt.Errorf("accept: unknown node type %T", n)
	}
}

// NopVisitor implements every handler as a no-op. Embed it to override only
// the handlers of interest.
type NopVisitor struct{}

func (NopVisitor) VisitPropertyName(*PropertyName) error       { return nil }
func (NopVisitor) VisitLiteral(*Literal) error                 { return nil }
func (NopVisitor) VisitLiteralEnvelope(*LiteralEnvelope) error { return nil }
func (NopVisitor) VisitFunction(*Function) error               { return nil }
func (NopVisitor) VisitSubSelect(*SubSelect) error             { return nil }
func (NopVisitor) VisitField(*Field) error                     { return nil }
func (NopVisitor) VisitDataSetName(*DataSetName) error         { return nil }
func (NopVisitor) VisitSubSelectItem(*SubSelectItem) error     { return nil }
func (NopVisitor) VisitJoin(*Join) error                       { return nil }
func (NopVisitor) VisitWhere(*Where) error                     { return nil }
func (NopVisitor) VisitGroupByItem(*GroupByItem) error         { return nil }
func (NopVisitor) VisitHaving(*Having) error                   { return nil }
func (NopVisitor) VisitOrderByItem(*OrderByItem) error         { return nil }
func (NopVisitor) VisitSelect(*Select) error                   { return nil }
func (NopVisitor) VisitInsert(*Insert) error                   { return nil }
func (NopVisitor) VisitUpdate(*Update) error                   { return nil }
func (NopVisitor) VisitDelete(*Delete) error                   { return nil }

// Children returns the direct child nodes of n in evaluation order.
// Nil children are omitted.
func Children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		if !isNilNode(c) {
			out = append(out, c)
		}
	}
	switch node := n.(type) {
	case *Function:
		for _, a := range node.Args {
			add(a)
		}
	case *SubSelect:
		add(node.Select)
	case *Field:
		add(node.Expr)
	case *SubSelectItem:
		add(node.Select)
	case *Join:
		add(node.Left)
		add(node.Right)
		add(node.On)
	case *Where:
		add(node.Expr)
	case *GroupByItem:
		add(node.Expr)
	case *Having:
		add(node.Expr)
	case *OrderByItem:
		add(node.Expr)
	case *Select:
		for _, f := range node.Fields {
			add(f)
		}
		for _, f := range node.From {
			add(f)
		}
		add(node.Where)
		for _, g := range node.GroupBy {
			add(g)
		}
		add(node.Having)
		for _, o := range node.OrderBy {
			add(o)
		}
	case *Insert:
		add(node.DataSet)
		for _, p := range node.Properties {
			add(p)
		}
		for _, row := range node.Values {
			for _, e := range row {
				add(e)
			}
		}
		add(node.Select)
	case *Update:
		add(node.DataSet)
		for _, p := range node.Properties {
			add(p)
		}
		for _, e := range node.Values {
			add(e)
		}
		add(node.Where)
	case *Delete:
		add(node.DataSet)
		add(node.Where)
	}
	return out
}

// Inspect walks the graph rooted at n in depth-first pre-order, calling fn for
// every node. When fn returns false the children of that node are skipped.
func Inspect(n Node, fn func(Node) bool) {
	if isNilNode(n) || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, fn)
	}
}

// isNilNode reports whether n is nil or a typed nil pointer.
func isNilNode(n Node) bool {
	switch node := n.(type) {
	case nil:
		return true
	case *PropertyName:
		return node == nil
	case *Literal:
		return node == nil
	case *LiteralEnvelope:
		return node == nil
	case *Function:
		return node == nil
	case *SubSelect:
		return node == nil
	case *Field:
		return node == nil
	case *DataSetName:
		return node == nil
	case *SubSelectItem:
		return node == nil
	case *Join:
		return node == nil
	case *Where:
		return node == nil
	case *GroupByItem:
		return node == nil
	case *Having:
		return node == nil
	case *OrderByItem:
		return node == nil
	case *Select:
		return node == nil
	case *Insert:
		return node == nil
	case *Update:
		return node == nil
	case *Delete:
		return node == nil
	}
	return false
}

// PropertyNames returns the distinct property names referenced under n, in
// first-seen order. Sub-selects are not entered.
func PropertyNames(n Node) []string {
	var names []string
	seen := map[string]bool{}
	Inspect(n, func(c Node) bool {
		switch node := c.(type) {
		case *SubSelect, *SubSelectItem:
			return false
		case *PropertyName:
			if !seen[node.Name] {
				seen[node.Name] = true
				names = append(names, node.Name)
			}
		}
		return true
	})
	return names
}
