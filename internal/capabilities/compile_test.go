package capabilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataccess/internal/datatype"
)

func TestCompileMinimalProfile(t *testing.T) {
	caps, err := Compile("mini.cue", []byte(`
		profile: {
			name: "mini"
			access_policy: "read_only"
			data_types: supported: ["int32", "string"]
			data_types: hints: geometry: "string"
			query: operators: comparison: ["=", "<>"]
		}
	`))
	require.NoError(t, err)

	assert.Equal(t, ReadOnly, caps.AccessPolicy)
	assert.True(t, caps.AccessPolicy.CanRead())
	assert.False(t, caps.AccessPolicy.CanWrite())
	assert.True(t, caps.DataType.Supports(datatype.Int32))
	assert.False(t, caps.DataType.Supports(datatype.Geometry))

	hint, ok := caps.DataType.Hint(datatype.Geometry)
	require.True(t, ok)
	assert.Equal(t, datatype.String, hint)

	assert.True(t, caps.Query.SupportsComparison("="))
	assert.False(t, caps.Query.SupportsComparison(">"))
	assert.False(t, caps.Transactions)
}

func TestCompileDefaultsAccessPolicy(t *testing.T) {
	caps, err := Compile("p.cue", []byte(`profile: { name: "p", data_types: supported: [] }`))
	require.NoError(t, err)
	assert.Equal(t, ReadWrite, caps.AccessPolicy)
}

func TestCompileRejectsMisspelledCapability(t *testing.T) {
	_, err := Compile("typo.cue", []byte(`
		profile: {
			name: "typo"
			data_types: supported: []
			transactionz: true
		}
	`))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Error(), "transactionz")
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `profile: {`},
		{"missing profile", `other: {}`},
		{"unknown type", `profile: { name: "x", data_types: supported: ["money"] }`},
		{"bad policy", `profile: { name: "x", access_policy: "sometimes", data_types: supported: [] }`},
		{"missing name", `profile: { data_types: supported: [] }`},
		{"wrong kind", `profile: { name: "x", data_types: supported: [], transactions: "yes" }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.name+".cue", []byte(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestBuiltinProfiles(t *testing.T) {
	assert.Equal(t, []string{"memory", "sqlite"}, BuiltinNames())

	sqlite, err := Builtin("sqlite")
	require.NoError(t, err)
	assert.True(t, sqlite.Transactions)
	assert.True(t, sqlite.Query.SQLDialect)
	assert.True(t, sqlite.Query.SupportsSpatial("ST_EnvelopeIntersects"))
	assert.True(t, sqlite.Query.SupportsSpatial("st_envelopeintersects"))
	assert.False(t, sqlite.Query.SupportsSpatial("ST_Intersects"))
	assert.True(t, sqlite.Query.SupportsLogical("AND"))
	assert.True(t, sqlite.Query.SupportsGeometryOperand(datatype.Geometry))
	assert.False(t, sqlite.DataType.Supports(datatype.Raster))
	hint, ok := sqlite.DataType.Hint(datatype.Array)
	require.True(t, ok)
	assert.Equal(t, datatype.String, hint)
	v, ok := sqlite.Specific("geometry_storage")
	require.True(t, ok)
	assert.Equal(t, "wkb+bbox", v)

	memory, err := Builtin("memory")
	require.NoError(t, err)
	assert.False(t, memory.Transactions)
	assert.False(t, memory.Query.SQLDialect)
	for _, typ := range datatype.AllTypes() {
		assert.True(t, memory.DataType.Supports(typ), typ.String())
	}
	assert.True(t, memory.DataSet.Random)

	_, err = Builtin("oracle")
	assert.Error(t, err)
}

func TestDocumentRoundTrip(t *testing.T) {
	sqlite, err := Builtin("sqlite")
	require.NoError(t, err)

	doc := sqlite.Document("sqlite")
	back, err := FromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, doc, back.Document("sqlite"))
}

func TestCapabilitiesAreCopies(t *testing.T) {
	ops := Operators{Spatial: []string{"ST_Intersects"}}
	q := QueryCapabilities{}.WithOperators(ops)
	ops.Spatial[0] = "ST_Touches"

	assert.True(t, q.SupportsSpatial("ST_Intersects"))
	got := q.Operators()
	got.Spatial[0] = "changed"
	assert.Equal(t, "ST_Intersects", q.Operators().Spatial[0])

	hints := map[datatype.Type]datatype.Type{datatype.XML: datatype.String}
	dt := NewDataTypeCapabilities(nil, hints)
	delete(hints, datatype.XML)
	_, ok := dt.Hint(datatype.XML)
	assert.True(t, ok)
}

func TestParseAccessPolicy(t *testing.T) {
	for _, p := range []AccessPolicy{NoAccess, ReadOnly, WriteOnly, ReadWrite} {
		got, err := ParseAccessPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseAccessPolicy("admin")
	assert.Error(t, err)
}
