package sqldialect

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/query"
)

func lit(v datatype.Value) *query.Literal { return query.Lit(v) }

// render formats a statement and its arguments for golden comparison.
func render(sql string, args []any) []byte {
	var b strings.Builder
	b.WriteString(sql)
	b.WriteString("\n")
	for i, a := range args {
		fmt.Fprintf(&b, "%d: %T %v\n", i+1, a, a)
	}
	return []byte(b.String())
}

func TestTranslate_Golden(t *testing.T) {
	tests := []struct {
		name string
		node query.Node
	}{
		{
			name: "select_filter_order_page",
			node: query.BuildSelect("parcels", "id", "name").
				WithWhere(query.And(
					query.GreaterThan(query.Prop("id"), lit(datatype.Int(2))),
					query.Like(query.Prop("name"), "a%"),
				)).
				WithOrderBy(query.DescBy("id")).
				WithLimit(10).
				WithOffset(5),
		},
		{
			name: "select_in_or_null",
			node: query.BuildSelect("parcels").
				WithWhere(query.Or(
					query.In(query.Prop("id"), lit(datatype.Int(1)), lit(datatype.Int(2))),
					query.IsNull(query.Prop("name")),
				)),
		},
		{
			name: "select_join_group",
			node: &query.Select{
				Fields: []*query.Field{
					{Expr: query.Fn(query.FnCount, query.Prop("id")), Alias: "n"},
					{Expr: query.QualifiedProp("z", "name")},
				},
				From: []query.FromItem{&query.Join{
					Left:  &query.DataSetName{Name: "parcels", Alias: "p"},
					Right: &query.DataSetName{Name: "zones", Alias: "z"},
					Type:  query.LeftJoin,
					On:    query.EqualTo(query.QualifiedProp("p", "zone"), query.QualifiedProp("z", "id")),
				}},
				GroupBy: []*query.GroupByItem{{Expr: query.QualifiedProp("z", "name")}},
				Having:  &query.Having{Expr: query.GreaterThan(query.Fn(query.FnCount, query.Prop("id")), lit(datatype.Int(1)))},
			},
		},
		{
			name: "select_subselect",
			node: query.BuildSelect("parcels").
				WithWhere(query.In(query.Prop("id"), &query.SubSelect{Select: query.BuildSelect("archive", "id")})),
		},
		{
			name: "insert_values",
			node: &query.Insert{
				DataSet:    &query.DataSetName{Name: "parcels"},
				Properties: []*query.PropertyName{query.Prop("id"), query.Prop("name")},
				Values: [][]query.Expression{
					{lit(datatype.Int(1)), lit(datatype.Str("alpha"))},
					{lit(datatype.Int(2)), lit(datatype.Null{})},
				},
			},
		},
		{
			name: "update_where",
			node: &query.Update{
				DataSet:    &query.DataSetName{Name: "parcels"},
				Properties: []*query.PropertyName{query.Prop("name")},
				Values:     []query.Expression{query.Fn(query.FnUpper, query.Prop("name"))},
				Where:      &query.Where{Expr: query.EqualTo(query.Prop("id"), lit(datatype.Int(3)))},
			},
		},
		{
			name: "delete_not",
			node: &query.Delete{
				DataSet: &query.DataSetName{Name: "parcels"},
				Where:   &query.Where{Expr: query.Not(query.EqualTo(query.Prop("id"), lit(datatype.Int(1))))},
			},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := Translate(Generic("generic"), tt.node)
			require.NoError(t, err)
			g.Assert(t, tt.name, render(sql, args))
		})
	}
}

func TestTranslate_ValuesAreParameters(t *testing.T) {
	sel := query.BuildSelect("people").
		WithWhere(query.EqualTo(query.Prop("name"), lit(datatype.Str("o'brien; DROP TABLE people"))))

	sql, args, err := Translate(Generic("generic"), sel)
	require.NoError(t, err)
	assert.NotContains(t, sql, "brien")
	assert.Equal(t, []any{"o'brien; DROP TABLE people"}, args)
}

func TestTranslate_UnboundedLimit(t *testing.T) {
	d := Generic("sqlite")
	sql, _, err := Translate(d, query.BuildSelect("parcels").WithOffset(3))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "parcels" OFFSET 3`, sql)

	d.UnboundedLimit = "-1"
	sql, _, err = Translate(d, query.BuildSelect("parcels").WithOffset(3))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "parcels" LIMIT -1 OFFSET 3`, sql)
}

func TestTranslate_UnknownFunction(t *testing.T) {
	sel := query.BuildSpatialSelect("parcels", nil, "geom", geometry.Point(1, 2, 4326), geometry.Touches)

	_, _, err := Translate(Generic("generic"), sel)
	assert.True(t, errs.IsCapabilityMismatch(err))
}

func TestTranslate_Geometry(t *testing.T) {
	d := Generic("generic")
	d.Register(query.FnIntersects, FunctionEncoder{Alias: "ST_Intersects"})
	p := geometry.Point(1, 2, 4326)

	sql, args, err := Translate(d, query.BuildSpatialSelect("parcels", []string{"id"}, "geom", p, geometry.Intersects))
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "geom" FROM "parcels" WHERE ST_Intersects("geom", ?)`, sql)
	require.Len(t, args, 1)
	assert.Equal(t, p.WKB(), args[0])
}

func TestEncoders(t *testing.T) {
	d := New("custom")
	d.Register("between", TemplateEncoder{Template: "($1 BETWEEN $2 AND $3)"})
	d.Register("twice", EncoderFunc(func(t *Translator, f *query.Function) error {
		t.Write("2 * ")
		return t.Expr(f.Args[0])
	}))
	assert.Equal(t, []string{"between", "twice"}, d.Functions())
	assert.Equal(t, "custom", d.Name())

	sql, args, err := Translate(d, query.Fn("BETWEEN", query.Prop("x"), lit(datatype.Int(1)), lit(datatype.Int(9))))
	require.NoError(t, err)
	assert.Equal(t, `("x" BETWEEN ? AND ?)`, sql)
	assert.Equal(t, []any{int64(1), int64(9)}, args)

	sql, _, err = Translate(d, query.Fn("twice", query.Prop("x")))
	require.NoError(t, err)
	assert.Equal(t, `2 * "x"`, sql)

	_, _, err = Translate(d, query.Fn("between", query.Prop("x")))
	assert.True(t, errs.IsPrecondition(err))

	_, _, err = Translate(Generic("generic"), query.Fn(query.OpAnd, query.Prop("x")))
	assert.True(t, errs.IsPrecondition(err))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"parcels"`, QuoteIdent("parcels"))
	assert.Equal(t, `"we""ird"`, QuoteIdent(`we"ird`))
}
