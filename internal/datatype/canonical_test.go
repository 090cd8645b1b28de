package datatype

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataccess/internal/geometry"
)

func TestMarshalCanonical(t *testing.T) {
	got, err := MarshalCanonical([]Value{Int(5), Str("a<b"), Null{}})
	require.NoError(t, err)
	assert.Equal(t, `[["n","5"],["s","a<b"],["z",null]]`, string(got))
}

func TestMarshalCanonicalNumbersUnify(t *testing.T) {
	num, err := NewNumeric("5.00")
	require.NoError(t, err)

	want, err := MarshalCanonical([]Value{Int(5)})
	require.NoError(t, err)

	for _, v := range []Value{UInt(5), Float(5), num} {
		got, err := MarshalCanonical([]Value{v})
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), "%T", v)
	}
}

func TestMarshalCanonicalNFC(t *testing.T) {
	a, err := RowKey([]Value{Str("caf\u00e9")})
	require.NoError(t, err)
	b, err := RowKey([]Value{Str("cafe\u0301")})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	got, err := MarshalCanonical([]Value{Str("a\u2028b"), Str(`\u2028`)})
	require.NoError(t, err)
	assert.Equal(t, "[[\"s\",\"a\u2028b\"],[\"s\",\"\\\\u2028\"]]", string(got))
}

func TestRowKeyDeterministic(t *testing.T) {
	tuple := []Value{Int(1), Str("parcel"), NewGeom(geometry.Point(1, 1, 4326))}

	k1, err := RowKey(tuple)
	require.NoError(t, err)
	k2, err := RowKey(tuple)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)

	other, err := RowKey([]Value{Int(2), Str("parcel"), NewGeom(geometry.Point(1, 1, 4326))})
	require.NoError(t, err)
	assert.NotEqual(t, k1, other)
}

func TestMarshalValueRoundTrip(t *testing.T) {
	num, err := NewNumeric("12.345")
	require.NoError(t, err)

	values := []Value{
		Null{},
		Int(-3),
		UInt(18446744073709551615),
		Bool(true),
		Float(0.25),
		num,
		Str("héllo"),
		Bytes{0, 1, 255},
		NewTime(time.Date(2020, 1, 2, 3, 4, 5, 6, time.UTC)),
		List{Int(1), Str("x"), Null{}},
	}
	for _, v := range values {
		b, err := MarshalValue(v)
		require.NoError(t, err)
		back, err := UnmarshalValue(b)
		require.NoError(t, err)
		assert.True(t, Equal(v, back), "%T: %s", v, b)
		assert.IsType(t, v, back)
	}
}

func TestMarshalValueGeometry(t *testing.T) {
	g := NewGeom(geometry.MustWKT("POLYGON((0 0,1 0,1 1,0 0))", 4326))
	b, err := MarshalValue(g)
	require.NoError(t, err)

	back, err := UnmarshalValue(b)
	require.NoError(t, err)
	assert.True(t, Equal(g, back))
}

func TestUnmarshalValueErrors(t *testing.T) {
	for _, in := range []string{`{}`, `["s"]`, `["q","1"]`, `["i","x"]`, `["g","nosrid"]`} {
		_, err := UnmarshalValue([]byte(in))
		assert.Error(t, err, in)
	}
}
