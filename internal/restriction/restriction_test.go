package restriction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/query"
)

func TestAgeAndIntersects(t *testing.T) {
	env := geometry.NewEnvelope(0, 0, 10, 10)
	where := query.And(
		query.GreaterThan(query.Prop("age"), query.Lit(datatype.Int(30))),
		query.STIntersects(query.Prop("geom"), query.LitEnvelope(env, 0)),
	)

	attrs := FindAttribute(where)
	require.Len(t, attrs, 1)
	assert.Equal(t, 0, attrs[0].Index)
	assert.Equal(t, ">", attrs[0].Operator)
	assert.Equal(t, "age", attrs[0].Property)

	spatial := FindSpatial(where)
	require.Len(t, spatial, 1)
	assert.Equal(t, 0, spatial[0].Index)
	assert.Equal(t, geometry.Intersects, spatial[0].Relation)
	assert.Equal(t, "geom", spatial[0].Property)
	assert.Equal(t, env, spatial[0].Envelope)
	assert.Equal(t, "Polygon", spatial[0].Geometry.Type())
	assert.True(t, spatial[0].PropertyFirst)
}

func TestFindAttribute_Order(t *testing.T) {
	where := query.Or(
		query.Not(query.EqualTo(query.Prop("a"), query.Lit(datatype.Int(1)))),
		query.And(
			query.LessThan(query.Lit(datatype.Int(5)), query.Prop("b")),
			query.NotEqualTo(query.Prop("c"), query.Prop("d")),
		),
		// comparisons under non-logical functions are not restrictions
		query.EqualTo(query.Fn("upper", query.EqualTo(query.Prop("x"), query.Prop("y"))), query.Lit(datatype.Str("T"))),
	)

	got := FindAttribute(query.BuildSelect("t").WithWhere(where))
	require.Len(t, got, 4)
	for i, r := range got {
		assert.Equal(t, i, r.Index)
	}
	assert.Equal(t, "a", got[0].Property)
	assert.Equal(t, "b", got[1].Property)
	assert.Equal(t, datatype.Int(5), got[1].Value.(*query.Literal).Value)
	assert.Equal(t, "c", got[2].Property)
	assert.Equal(t, "", got[3].Property)
}

func TestFindSpatial_AllRelations(t *testing.T) {
	g := geometry.MustWKT("POLYGON((0 0,10 0,0 10,0 0))", 0)
	for _, rel := range geometry.Relations() {
		t.Run(rel.String(), func(t *testing.T) {
			where := query.STRelate(rel, query.LitGeom(g), query.Prop("geom"))
			got := FindSpatial(where)
			require.Len(t, got, 1)
			assert.Equal(t, rel, got[0].Relation)
			assert.False(t, got[0].PropertyFirst)
			assert.Equal(t, geometry.NewEnvelope(0, 0, 10, 10), got[0].Envelope)
		})
	}
}

func TestFindSpatial_SkipsIncompleteOperands(t *testing.T) {
	g := geometry.MustWKT("POINT(1 1)", 0)
	where := query.And(
		query.STIntersects(query.Prop("a"), query.Prop("b")),
		query.STWithin(query.LitGeom(g), query.LitGeom(g)),
		query.STContains(query.Prop("geom"), query.Lit(datatype.Str("POINT(1 1)"))),
		query.Fn(query.FnTouches, query.Prop("geom")),
		query.Not(query.STTouches(query.Prop("geom"), query.LitGeom(g))),
	)

	got := FindSpatial(where)
	require.Len(t, got, 1)
	assert.Equal(t, geometry.Touches, got[0].Relation)
	assert.Equal(t, 0, got[0].Index)
}

func TestFindSpatial_Idempotent(t *testing.T) {
	s := query.BuildEnvelopeSelect("parcels", nil, "geom", geometry.NewEnvelope(1, 1, 2, 2), 0, geometry.Overlaps)
	before := query.Clone(s)

	first := FindSpatial(s)
	second := FindSpatial(s)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	a, b := first[0], second[0]
	assert.Equal(t, a.Index, b.Index)
	assert.Equal(t, a.Relation, b.Relation)
	assert.Equal(t, a.Property, b.Property)
	assert.Equal(t, a.Envelope, b.Envelope)
	assert.Equal(t, a.PropertyFirst, b.PropertyFirst)
	assert.Same(t, a.Function, b.Function)
	assert.True(t, a.Geometry.Equal(b.Geometry))
	assert.Equal(t, geometry.NewEnvelope(1, 1, 2, 2), a.Envelope)
	assert.Equal(t, before, s)
}

func TestNoFilter(t *testing.T) {
	assert.Nil(t, FindAttribute(query.BuildSelect("t")))
	assert.Nil(t, FindSpatial(query.BuildSelect("t")))
	assert.Nil(t, FindSpatial(nil))
}
