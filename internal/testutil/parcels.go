package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/schema"
)

// ParcelsSRID is the SRID of every parcel geometry.
const ParcelsSRID = 4326

// Triangle is the query geometry of the parcels scenario. Its bounding box
// is [0,10]x[0,10].
const Triangle = "POLYGON((0 0, 10 0, 0 10, 0 0))"

// parcels are five squares. Parcels 1 and 4 intersect the triangle;
// parcels 2 and 3 only touch its bounding box; parcel 5 is far away.
var parcels = []struct {
	id   int
	name string
	wkt  string
}{
	{1, "alpha", "POLYGON((1 1, 3 1, 3 3, 1 3, 1 1))"},
	{2, "bravo", "POLYGON((8 8, 9 8, 9 9, 8 9, 8 8))"},
	{3, "charlie", "POLYGON((6 6, 7 6, 7 7, 6 7, 6 6))"},
	{4, "delta", "POLYGON((4 4, 6 4, 6 6, 4 6, 4 4))"},
	{5, "echo", "POLYGON((20 20, 21 20, 21 21, 20 21, 20 20))"},
}

// ParcelsType returns the parcels dataset type: id (primary key), name,
// area and geom.
func ParcelsType(t testing.TB) *schema.DataSetType {
	t.Helper()
	dt := schema.New("parcels")
	for _, p := range []datatype.Property{
		datatype.NewProperty("id", datatype.Int32),
		datatype.NewStringProperty("name", 32),
		datatype.NewProperty("area", datatype.Double),
		datatype.NewGeometryProperty("geom", "polygon", ParcelsSRID),
	} {
		require.NoError(t, dt.AddProperty(p))
	}
	require.NoError(t, dt.SetPrimaryKey(schema.PrimaryKey{Properties: []string{"id"}}))
	return dt
}

// Parcels returns the five parcels as an in-memory dataset.
func Parcels(t testing.TB) *dataset.Memory {
	t.Helper()
	m := dataset.NewMemoryFromType(ParcelsType(t))
	for _, p := range parcels {
		g := geometry.MustWKT(p.wkt, ParcelsSRID)
		env := g.Envelope()
		require.NoError(t, m.Add([]datatype.Value{
			datatype.Int(p.id),
			datatype.Str(p.name),
			datatype.Float(env.Width() * env.Height()),
			datatype.NewGeom(g),
		}))
	}
	return m
}

// TriangleGeometry returns the parcels query geometry.
func TriangleGeometry() geometry.Geometry {
	return geometry.MustWKT(Triangle, ParcelsSRID)
}

// LoadParcels creates the parcels dataset through tr and adds the five rows.
func LoadParcels(t testing.TB, tr datasource.Transactor) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, tr.CreateDataSet(ctx, ParcelsType(t), nil))
	require.NoError(t, tr.Add(ctx, "parcels", Parcels(t), nil))
}
