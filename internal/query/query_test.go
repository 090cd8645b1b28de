package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/geometry"
)

func sampleSelect() *Select {
	env := geometry.NewEnvelope(0, 0, 10, 10)
	return &Select{
		Fields: Fields("id", "name"),
		From:   []FromItem{&DataSetName{Name: "parcels", Alias: "p"}},
		Where: &Where{Expr: And(
			GreaterThan(Prop("age"), Lit(datatype.Int(30))),
			STIntersects(Prop("geom"), LitEnvelope(env, 4326)),
		)},
		OrderBy: []*OrderByItem{AscBy("id")},
	}
}

func TestAccept_DispatchesEveryKind(t *testing.T) {
	nodes := []Node{
		Prop("a"), Lit(datatype.Int(1)), LitEnvelope(geometry.NewEnvelope(0, 0, 1, 1), 0),
		Fn("upper", Prop("a")), &SubSelect{Select: BuildSelect("t")},
		&Field{Expr: Prop("a")}, &DataSetName{Name: "t"}, &SubSelectItem{Select: BuildSelect("t"), Alias: "s"},
		&Join{Left: &DataSetName{Name: "a"}, Right: &DataSetName{Name: "b"}, Type: CrossJoin},
		&Where{Expr: Prop("a")}, &GroupByItem{Expr: Prop("a")}, &Having{Expr: Prop("a")},
		AscBy("a"), BuildSelect("t"), &Insert{}, &Update{}, &Delete{},
	}

	rec := &recordingVisitor{}
	for _, n := range nodes {
		require.NoError(t, Accept(n, rec))
	}
	assert.Equal(t, []string{
		"property", "literal", "envelope", "function", "subselect",
		"field", "dataset", "subselectitem", "join", "where", "groupby",
		"having", "orderby", "select", "insert", "update", "delete",
	}, rec.kinds)
}

func TestAccept_NilNode(t *testing.T) {
	assert.Error(t, Accept(nil, NopVisitor{}))
}

type recordingVisitor struct{ kinds []string }

func (r *recordingVisitor) add(k string) error { r.kinds = append(r.kinds, k); return nil }

func (r *recordingVisitor) VisitPropertyName(*PropertyName) error       { return r.add("property") }
func (r *recordingVisitor) VisitLiteral(*Literal) error                 { return r.add("literal") }
func (r *recordingVisitor) VisitLiteralEnvelope(*LiteralEnvelope) error { return r.add("envelope") }
func (r *recordingVisitor) VisitFunction(*Function) error               { return r.add("function") }
func (r *recordingVisitor) VisitSubSelect(*SubSelect) error             { return r.add("subselect") }
func (r *recordingVisitor) VisitField(*Field) error                     { return r.add("field") }
func (r *recordingVisitor) VisitDataSetName(*DataSetName) error         { return r.add("dataset") }
func (r *recordingVisitor) VisitSubSelectItem(*SubSelectItem) error     { return r.add("subselectitem") }
func (r *recordingVisitor) VisitJoin(*Join) error                       { return r.add("join") }
func (r *recordingVisitor) VisitWhere(*Where) error                     { return r.add("where") }
func (r *recordingVisitor) VisitGroupByItem(*GroupByItem) error         { return r.add("groupby") }
func (r *recordingVisitor) VisitHaving(*Having) error                   { return r.add("having") }
func (r *recordingVisitor) VisitOrderByItem(*OrderByItem) error         { return r.add("orderby") }
func (r *recordingVisitor) VisitSelect(*Select) error                   { return r.add("select") }
func (r *recordingVisitor) VisitInsert(*Insert) error                   { return r.add("insert") }
func (r *recordingVisitor) VisitUpdate(*Update) error                   { return r.add("update") }
func (r *recordingVisitor) VisitDelete(*Delete) error                   { return r.add("delete") }

func TestInspect_PreOrder(t *testing.T) {
	var names []string
	Inspect(sampleSelect().Where, func(n Node) bool {
		switch node := n.(type) {
		case *Function:
			names = append(names, node.Name)
		case *PropertyName:
			names = append(names, node.Name)
		}
		return true
	})
	assert.Equal(t, []string{"and", ">", "age", "ST_Intersects", "geom"}, names)
}

func TestInspect_Prune(t *testing.T) {
	count := 0
	Inspect(sampleSelect(), func(n Node) bool {
		count++
		_, isWhere := n.(*Where)
		return !isWhere
	})
	// select, 2 fields + 2 props, from, where (pruned), order by + prop
	assert.Equal(t, 9, count)
}

func TestPropertyNames(t *testing.T) {
	s := sampleSelect()
	s.Where.Expr = And(s.Where.Expr, In(Prop("id"), &SubSelect{Select: BuildSelect("other", "hidden")}))
	assert.Equal(t, []string{"id", "name", "age", "geom"}, PropertyNames(s))
}

func TestClone_DeepCopy(t *testing.T) {
	orig := sampleSelect().WithLimit(5)
	orig.Fields = append(orig.Fields, &Field{Expr: Lit(datatype.Bytes{1, 2})})

	c := Clone(orig)
	require.NotSame(t, orig, c)
	assert.Equal(t, orig, c)

	// Mutating the clone leaves the original intact.
	c.Where.Expr.(*Function).Args[0].(*Function).Name = "<"
	*c.Limit = 1
	c.Fields[2].Expr.(*Literal).Value.(datatype.Bytes)[0] = 9
	c.From[0].(*DataSetName).Name = "changed"

	assert.Equal(t, ">", orig.Where.Expr.(*Function).Args[0].(*Function).Name)
	assert.Equal(t, 5, *orig.Limit)
	assert.Equal(t, datatype.Bytes{1, 2}, orig.Fields[2].Expr.(*Literal).Value)
	assert.Equal(t, "parcels", orig.From[0].(*DataSetName).Name)
}

func TestClone_Statements(t *testing.T) {
	ins := &Insert{
		DataSet:    &DataSetName{Name: "t"},
		Properties: []*PropertyName{Prop("a"), Prop("b")},
		Values:     [][]Expression{{Lit(datatype.Int(1)), Lit(datatype.Str("x"))}},
	}
	up := &Update{
		DataSet:    &DataSetName{Name: "t"},
		Properties: []*PropertyName{Prop("a")},
		Values:     []Expression{Add(Prop("a"), Lit(datatype.Int(1)))},
		Where:      &Where{Expr: EqualTo(Prop("b"), Lit(datatype.Str("x")))},
	}
	del := &Delete{DataSet: &DataSetName{Name: "t"}}
	join := &Join{
		Left:  &DataSetName{Name: "a"},
		Right: &SubSelectItem{Select: BuildSelect("b"), Alias: "bb"},
		Type:  LeftJoin,
		Using: []string{"id"},
	}

	for _, n := range []Node{ins, up, del, join} {
		assert.Equal(t, n, Clone(n))
	}
	assert.Equal(t, ins, Clone(ins))
}

func TestClone_Nil(t *testing.T) {
	var s *Select
	assert.Nil(t, Clone(s))
	assert.Nil(t, CloneExpression(nil))
}

func TestBuildSelect(t *testing.T) {
	all := BuildSelect("parcels")
	assert.Nil(t, all.Fields)
	assert.Equal(t, []string{"parcels"}, DataSetNames(all.From))
	assert.Nil(t, BuildSelect("parcels", "*").Fields)

	s := BuildSelect("parcels", "id", "name")
	require.Len(t, s.Fields, 2)
	assert.Equal(t, "name", s.Fields[1].Expr.(*PropertyName).Name)
}

func TestBuildSpatialSelect(t *testing.T) {
	tri := geometry.MustWKT("POLYGON((0 0,10 0,0 10,0 0))", 0)

	s := BuildSpatialSelect("parcels", []string{"id"}, "geom", tri, geometry.Within)
	require.Len(t, s.Fields, 2)
	assert.Equal(t, "geom", s.Fields[1].Expr.(*PropertyName).Name)
	fn := s.Filter().(*Function)
	assert.Equal(t, FnWithin, fn.Name)
	assert.Equal(t, "geom", fn.Args[0].(*PropertyName).Name)

	e := BuildEnvelopeSelect("parcels", nil, "geom", geometry.NewEnvelope(0, 0, 1, 1), 4326, geometry.Intersects)
	assert.Nil(t, e.Fields)
	env := e.Filter().(*Function).Args[1].(*LiteralEnvelope)
	assert.Equal(t, 4326, env.SRID)

	// Already listed geometry is not duplicated.
	d := BuildSpatialSelect("parcels", []string{"geom", "id"}, "geom", tri, geometry.Intersects)
	assert.Len(t, d.Fields, 2)
}

func TestSpatialRelationNames(t *testing.T) {
	for _, rel := range geometry.Relations() {
		name := RelationFunction(rel)
		got, ok := SpatialRelation(name)
		require.True(t, ok, name)
		assert.Equal(t, rel, got)
	}
	_, ok := SpatialRelation("ST_EnvelopeIntersects")
	assert.False(t, ok)

	r, ok := SpatialRelation("st_touches")
	require.True(t, ok)
	assert.Equal(t, geometry.Touches, r)
}

func TestClassification(t *testing.T) {
	assert.True(t, IsComparison(OpGreaterOrEqual))
	assert.False(t, IsComparison(OpAnd))
	assert.True(t, IsLogical("AND"))
	assert.True(t, IsArithmetic(OpDiv))
	assert.True(t, IsAggregate("COUNT"))
	assert.False(t, IsAggregate(FnUpper))
	assert.True(t, Fn("St_Intersects").Is(FnIntersects))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want []string
	}{
		{"well formed", sampleSelect(), nil},
		{"empty from", &Select{}, []string{"select: select without from-items"}},
		{"nil expression", BuildSelect("t").WithWhere(nil), []string{"select.where: nil expression"}},
		{"empty function name", BuildSelect("t").WithWhere(Fn("", Prop("a"))), []string{"select.where: function without name"}},
		{"empty property", BuildSelect("t").WithWhere(EqualTo(Prop(""), Lit(nil))), []string{"select.where.args[0]: empty property name"}},
		{"negative limit", BuildSelect("t").WithLimit(-1), []string{"select.limit: negative limit -1"}},
		{"inner join without condition", &Select{From: []FromItem{&Join{Left: &DataSetName{Name: "a"}, Right: &DataSetName{Name: "b"}}}},
			[]string{"select.from[0]: INNER JOIN without ON or USING"}},
		{"insert arity", &Insert{
			DataSet:    &DataSetName{Name: "t"},
			Properties: []*PropertyName{Prop("a"), Prop("b")},
			Values:     [][]Expression{{Lit(datatype.Int(1))}},
		}, []string{"insert.values[0]: 1 values for 2 properties"}},
		{"delete without target", &Delete{}, []string{"delete: missing target dataset"}},
		{"nil node", nil, []string{": nil node"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, p := range Validate(tt.node) {
				got = append(got, p.String())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
