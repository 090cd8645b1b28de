package query

import (
	"fmt"
	"strings"
)

// Problem is one structural defect found by Validate.
type Problem struct {
	// Path locates the offending node, e.g. "select.where.args[1]".
	Path    string
	Message string
}

func (p Problem) String() string {
	return p.Path + ": " + p.Message
}

// Validate checks the structure of a query graph without consulting any
// schema or backend. It reports nil expressions, functions without a name,
// selects without from-items, joins missing their condition, negative
// limits and insert rows whose arity differs from the property list.
//
// Validate is a pure function with no side effects. An empty result means
// the graph is well formed.
func Validate(n Node) []Problem {
	v := &validator{}
	v.node("", n)
	return v.problems
}

// validator accumulates problems during traversal.
type validator struct {
	problems []Problem
}

func (v *validator) addProblem(path, format string, args ...any) {
	v.problems = append(v.problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
}

func join(path, elem string) string {
	if path == "" {
		return elem
	}
	return path + "." + elem
}

func (v *validator) node(path string, n Node) {
	if isNilNode(n) {
		v.addProblem(path, "nil node")
		return
	}
	switch node := n.(type) {
	case Expression:
		v.expr(path, node)
	case *Select:
		v.selectStmt(join(path, "select"), node)
	case *Insert:
		v.insert(join(path, "insert"), node)
	case *Update:
		v.update(join(path, "update"), node)
	case *Delete:
		v.dataSet(join(path, "delete"), node.DataSet)
		if node.Where != nil {
			v.expr(join(path, "delete.where"), node.Where.Expr)
		}
	case FromItem:
		v.fromItem(path, node)
	case *Field:
		v.expr(path, node.Expr)
	case *Where:
		v.expr(path, node.Expr)
	case *GroupByItem:
		v.expr(path, node.Expr)
	case *Having:
		v.expr(path, node.Expr)
	case *OrderByItem:
		v.expr(path, node.Expr)
	}
}

func (v *validator) expr(path string, e Expression) {
	if isNilNode(e) {
		v.addProblem(path, "nil expression")
		return
	}
	switch expr := e.(type) {
	case *PropertyName:
		if expr.Name == "" {
			v.addProblem(path, "empty property name")
		}
	case *Literal:
		if expr.Value == nil {
			v.addProblem(path, "literal without value")
		}
	case *LiteralEnvelope:
		if !expr.Envelope.IsValid() {
			v.addProblem(path, "invalid envelope %s", expr.Envelope)
		}
	case *Function:
		if strings.TrimSpace(expr.Name) == "" {
			v.addProblem(path, "function without name")
		}
		for i, a := range expr.Args {
			v.expr(fmt.Sprintf("%s.args[%d]", path, i), a)
		}
	case *SubSelect:
		if expr.Select == nil {
			v.addProblem(path, "sub-select without select")
			return
		}
		v.selectStmt(join(path, "select"), expr.Select)
	}
}

func (v *validator) selectStmt(path string, s *Select) {
	if len(s.From) == 0 {
		v.addProblem(path, "select without from-items")
	}
	for i, f := range s.Fields {
		p := fmt.Sprintf("%s.fields[%d]", path, i)
		if f == nil {
			v.addProblem(p, "nil field")
			continue
		}
		v.expr(p, f.Expr)
	}
	for i, f := range s.From {
		v.fromItem(fmt.Sprintf("%s.from[%d]", path, i), f)
	}
	if s.Where != nil {
		v.expr(path+".where", s.Where.Expr)
	}
	for i, g := range s.GroupBy {
		p := fmt.Sprintf("%s.group_by[%d]", path, i)
		if g == nil {
			v.addProblem(p, "nil group-by item")
			continue
		}
		v.expr(p, g.Expr)
	}
	if s.Having != nil {
		if len(s.GroupBy) == 0 {
			v.addProblem(path+".having", "having without group by")
		}
		v.expr(path+".having", s.Having.Expr)
	}
	for i, o := range s.OrderBy {
		p := fmt.Sprintf("%s.order_by[%d]", path, i)
		if o == nil {
			v.addProblem(p, "nil order-by item")
			continue
		}
		v.expr(p, o.Expr)
	}
	if s.Limit != nil && *s.Limit < 0 {
		v.addProblem(path+".limit", "negative limit %d", *s.Limit)
	}
	if s.Offset != nil && *s.Offset < 0 {
		v.addProblem(path+".offset", "negative offset %d", *s.Offset)
	}
}

func (v *validator) fromItem(path string, f FromItem) {
	if isNilNode(f) {
		v.addProblem(path, "nil from-item")
		return
	}
	switch item := f.(type) {
	case *DataSetName:
		if item.Name == "" {
			v.addProblem(path, "empty dataset name")
		}
	case *SubSelectItem:
		if item.Select == nil {
			v.addProblem(path, "derived table without select")
			return
		}
		v.selectStmt(join(path, "select"), item.Select)
	case *Join:
		v.fromItem(path+".left", item.Left)
		v.fromItem(path+".right", item.Right)
		switch {
		case item.Type == CrossJoin && (item.On != nil || len(item.Using) > 0):
			v.addProblem(path, "cross join takes no condition")
		case item.Type != CrossJoin && item.On == nil && len(item.Using) == 0:
			v.addProblem(path, "%s without ON or USING", item.Type)
		case item.On != nil && len(item.Using) > 0:
			v.addProblem(path, "join has both ON and USING")
		}
		if item.On != nil {
			v.expr(path+".on", item.On)
		}
	}
}

func (v *validator) dataSet(path string, d *DataSetName) {
	if d == nil || d.Name == "" {
		v.addProblem(path, "missing target dataset")
	}
}

func (v *validator) insert(path string, ins *Insert) {
	v.dataSet(path, ins.DataSet)
	if len(ins.Values) == 0 && ins.Select == nil {
		v.addProblem(path, "insert without values or select")
	}
	if len(ins.Values) > 0 && ins.Select != nil {
		v.addProblem(path, "insert has both values and select")
	}
	for i, row := range ins.Values {
		p := fmt.Sprintf("%s.values[%d]", path, i)
		if len(ins.Properties) > 0 && len(row) != len(ins.Properties) {
			v.addProblem(p, "%d values for %d properties", len(row), len(ins.Properties))
		}
		for j, e := range row {
			v.expr(fmt.Sprintf("%s[%d]", p, j), e)
		}
	}
	if ins.Select != nil {
		v.selectStmt(path+".select", ins.Select)
	}
}

func (v *validator) update(path string, up *Update) {
	v.dataSet(path, up.DataSet)
	if len(up.Properties) == 0 {
		v.addProblem(path, "update without properties")
	}
	if len(up.Properties) != len(up.Values) {
		v.addProblem(path, "%d values for %d properties", len(up.Values), len(up.Properties))
	}
	for i, e := range up.Values {
		v.expr(fmt.Sprintf("%s.values[%d]", path, i), e)
	}
	if up.Where != nil {
		v.expr(path+".where", up.Where.Expr)
	}
}
