package adapter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/schema"
	"github.com/roach88/dataccess/internal/sqlite"
	"github.com/roach88/dataccess/internal/testutil"
)

// wellsType has a point location and a list of tags.
func wellsType(t *testing.T) *schema.DataSetType {
	t.Helper()
	dt := schema.New("wells")
	for _, p := range []datatype.Property{
		datatype.NewProperty("id", datatype.Int32),
		datatype.NewGeometryProperty("loc", "point", 4326),
		{Name: "tags", Type: datatype.Array, ElementType: datatype.String},
		datatype.NewProperty("depth", datatype.Double),
	} {
		require.NoError(t, dt.AddProperty(p))
	}
	require.NoError(t, dt.SetPrimaryKey(schema.PrimaryKey{Properties: []string{"id"}}))
	return dt
}

func wells(t *testing.T) *dataset.Memory {
	t.Helper()
	m := dataset.NewMemoryFromType(wellsType(t))
	require.NoError(t, m.Add([]datatype.Value{
		datatype.Int(1),
		datatype.NewGeom(geometry.Point(3, 4, 4326)),
		datatype.List{datatype.Str("fresh"), datatype.Str("deep")},
		datatype.Float(120.5),
	}))
	require.NoError(t, m.Add([]datatype.Value{
		datatype.Int(2), datatype.Null{}, datatype.Null{}, datatype.Float(8),
	}))
	return m
}

// noGeometry stores scalars only and prefers strings for arrays.
func noGeometry() capabilities.DataTypeCapabilities {
	return capabilities.NewDataTypeCapabilities(
		[]datatype.Type{datatype.Int32, datatype.Double, datatype.String},
		map[datatype.Type]datatype.Type{datatype.Array: datatype.String},
	)
}

func TestNewConverter_Automatic(t *testing.T) {
	conv := NewConverter(wellsType(t), noGeometry())

	assert.False(t, conv.IsValid())
	assert.Equal(t, []string{"loc"}, conv.NonAdapted())

	props := conv.Properties()
	require.Len(t, props, 3)
	assert.Equal(t, "tags", props[1].Name)
	assert.Equal(t, datatype.String, props[1].Type)

	_, err := NewAdapter(wells(t), conv, false)
	assert.True(t, errs.IsCapabilityMismatch(err))
}

func TestConverter_DecomposePoint(t *testing.T) {
	conv := NewConverter(wellsType(t), noGeometry())
	require.NoError(t, conv.DecomposePoint("loc"))
	require.True(t, conv.IsValid())

	ad, err := NewAdapter(wells(t), conv, true)
	require.NoError(t, err)
	defer ad.Close()

	assert.Equal(t, []string{"id", "tags", "depth", "loc_x", "loc_y"}, dataset.PropertyNames(ad))
	assert.Equal(t, capabilities.ReadOnly, ad.AccessPolicy())

	require.True(t, ad.MoveFirst())
	x, err := dataset.Float64ByName(ad, "loc_x")
	require.NoError(t, err)
	assert.Equal(t, 3.0, x)
	y, err := dataset.Float64ByName(ad, "loc_y")
	require.NoError(t, err)
	assert.Equal(t, 4.0, y)
	tags, err := dataset.StringByName(ad, "tags")
	require.NoError(t, err)
	assert.Contains(t, tags, "fresh")

	require.True(t, ad.MoveNext())
	assert.True(t, ad.IsNull(3), "null point decomposes to null coordinates")
	assert.True(t, ad.IsNull(1))

	out, err := conv.Result()
	require.NoError(t, err)
	require.NotNil(t, out.PrimaryKey(), "pass-through key survives")
	assert.Equal(t, []string{"id"}, out.PrimaryKey().Properties)
}

func TestConverter_EditErrors(t *testing.T) {
	conv := NewConverter(wellsType(t), noGeometry())

	assert.True(t, errs.IsPrecondition(conv.DecomposePoint("depth")))
	assert.True(t, errs.IsNotFound(conv.DecomposePoint("missing")))
	assert.True(t, errs.IsAlreadyExists(conv.Add([]string{"depth"}, datatype.NewProperty("id", datatype.Double), Generic)))
	assert.True(t, errs.IsNotFound(conv.Add([]string{"nope"}, datatype.NewProperty("other", datatype.Double), Generic)))
	assert.True(t, errs.IsNotFound(conv.Remove("nope")))

	require.NoError(t, conv.Remove("loc"))
	assert.True(t, conv.IsValid())
	require.NoError(t, conv.Remove("depth"))
	assert.Len(t, conv.Properties(), 2)
}

func TestConverter_ConvertToString(t *testing.T) {
	conv := NewConverter(wellsType(t), noGeometry())
	require.NoError(t, conv.ConvertToString("loc"))
	require.NoError(t, conv.ConvertToString("id"))
	require.True(t, conv.IsValid())

	ad, err := NewAdapter(wells(t), conv, false)
	require.NoError(t, err)
	require.True(t, ad.MoveFirst())
	loc, err := dataset.StringByName(ad, "loc")
	require.NoError(t, err)
	assert.Equal(t, "POINT(3 4)", loc)
	id, err := dataset.StringByName(ad, "id")
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	out, err := conv.Result()
	require.NoError(t, err)
	assert.Nil(t, out.PrimaryKey(), "converted key property drops the key")
}

func TestAttributeConverters(t *testing.T) {
	m := dataset.NewMemory([]datatype.Property{
		datatype.NewProperty("x", datatype.Int32),
		datatype.NewProperty("y", datatype.Double),
		datatype.NewStringProperty("name", 0),
		datatype.NewStringProperty("utf", 0),
	})
	require.NoError(t, m.Add([]datatype.Value{datatype.Int(2), datatype.Float(5.5), datatype.Str("caf\xe9"), datatype.Str("café")}))
	require.True(t, m.MoveFirst())

	v, err := XYToPoint(4326)(m, []int{0, 1}, datatype.NewGeometryProperty("pt", "point", 4326))
	require.NoError(t, err)
	g := v.(datatype.Geom)
	assert.Equal(t, 4326, g.SRID())
	x, y, ok := g.XY()
	require.True(t, ok)
	assert.Equal(t, [2]float64{2, 5.5}, [2]float64{x, y})

	v, err = TupleToString(m, []int{0, 1}, datatype.NewStringProperty("t", 0))
	require.NoError(t, err)
	assert.Equal(t, datatype.Str("(2, 5.5)"), v)

	latin1, err := Encoding("latin1")
	require.NoError(t, err)
	v, err = CharEncoding(latin1, nil)(m, []int{2}, datatype.NewStringProperty("name", 0))
	require.NoError(t, err)
	assert.Equal(t, datatype.Str("café"), v)

	v, err = CharEncoding(nil, charmap.ISO8859_1)(m, []int{3}, datatype.NewStringProperty("utf", 0))
	require.NoError(t, err)
	assert.Equal(t, datatype.Str("caf\xe9"), v)

	_, err = Encoding("klingon")
	assert.True(t, errs.IsConfiguration(err))

	_, err = PointToX(m, []int{0}, datatype.NewProperty("x", datatype.Double))
	assert.True(t, errs.IsRowExtraction(err))
}

func TestCopy_IntoSQLite(t *testing.T) {
	ctx := context.Background()
	src, err := datasource.Open(ctx, sqlite.DriverType, datasource.ConnInfo{
		sqlite.KeyFile: filepath.Join(t.TempDir(), "copy.db"),
	})
	require.NoError(t, err)
	defer src.Close()
	tr, err := src.Transactor(ctx)
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, Copy(ctx, tr, wellsType(t), wells(t), nil))

	dt, err := tr.DataSetType(ctx, "wells")
	require.NoError(t, err)
	tags, ok := dt.Property("tags")
	require.True(t, ok)
	assert.Equal(t, datatype.String, tags.Type, "arrays follow the sqlite hint")
	assert.Equal(t, 2, mustCount(t, tr, "wells"))

	env, err := tr.Extent(ctx, "wells", "loc")
	require.NoError(t, err)
	assert.Equal(t, geometry.NewEnvelope(3, 4, 3, 4), env)

	err = Copy(ctx, tr, testutil.ParcelsType(t), testutil.Parcels(t), nil)
	require.NoError(t, err)
	err = Copy(ctx, tr, testutil.ParcelsType(t), testutil.Parcels(t), nil)
	assert.True(t, errs.IsAlreadyExists(err))
}

func mustCount(t *testing.T, tr datasource.Transactor, name string) int {
	t.Helper()
	n, err := tr.NumberOfItems(context.Background(), name)
	require.NoError(t, err)
	return n
}
