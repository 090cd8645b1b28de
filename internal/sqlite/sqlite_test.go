package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/oid"
	"github.com/roach88/dataccess/internal/query"
	"github.com/roach88/dataccess/internal/schema"
	"github.com/roach88/dataccess/internal/spatial"
	"github.com/roach88/dataccess/internal/sqldialect"
	"github.com/roach88/dataccess/internal/testutil"
)

var drivers = []string{driverMattn, driverModernc}

// forEachDriver runs fn once per database/sql driver.
func forEachDriver(t *testing.T, fn func(t *testing.T, driver string)) {
	for _, d := range drivers {
		t.Run(d, func(t *testing.T) { fn(t, d) })
	}
}

func connInfo(t *testing.T, driver string) datasource.ConnInfo {
	t.Helper()
	return datasource.ConnInfo{
		KeyFile:   filepath.Join(t.TempDir(), "test.db"),
		KeyDriver: driver,
	}
}

func openTransactor(t *testing.T, info datasource.ConnInfo) datasource.Transactor {
	t.Helper()
	ctx := context.Background()
	src, err := datasource.Open(ctx, DriverType, info)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	tr, err := src.Transactor(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func parcelsTransactor(t *testing.T, driver string) datasource.Transactor {
	t.Helper()
	tr := openTransactor(t, connInfo(t, driver))
	testutil.LoadParcels(t, tr)
	return tr
}

func ids(t *testing.T, ds dataset.DataSet) []int64 {
	t.Helper()
	var out []int64
	require.True(t, ds.MoveBeforeFirst())
	for ds.MoveNext() {
		id, err := dataset.Int64ByName(ds, "id")
		require.NoError(t, err)
		out = append(out, id)
	}
	return out
}

func count(t *testing.T, tr datasource.Transactor, name string) int {
	t.Helper()
	n, err := tr.NumberOfItems(context.Background(), name)
	require.NoError(t, err)
	return n
}

// notesType has an auto-numbered key and a defaulted label.
func notesType(t *testing.T) *schema.DataSetType {
	t.Helper()
	label := datatype.NewStringProperty("label", 0)
	def := "untitled"
	label.DefaultValue = &def
	dt := schema.New("notes")
	require.NoError(t, dt.AddProperty(datatype.Property{Name: "id", Type: datatype.Int64, AutoNumber: true}))
	require.NoError(t, dt.AddProperty(label))
	require.NoError(t, dt.SetPrimaryKey(schema.PrimaryKey{Name: "notes_pk", Properties: []string{"id"}}))
	return dt
}

func TestDriver_Registered(t *testing.T) {
	assert.Contains(t, datasource.Drivers(), DriverType)

	src, err := datasource.New(DriverType, datasource.ConnInfo{KeyFile: memoryFile})
	require.NoError(t, err)
	assert.False(t, src.IsOpened())
	assert.True(t, src.Capabilities().Transactions)
	_, err = src.Transactor(context.Background())
	assert.True(t, errs.IsPrecondition(err))
}

func TestDriver_Configuration(t *testing.T) {
	tests := []struct {
		name string
		info datasource.ConnInfo
	}{
		{"missing file", datasource.ConnInfo{}},
		{"unknown driver", datasource.ConnInfo{KeyFile: memoryFile, KeyDriver: "postgres"}},
		{"bad timeout", datasource.ConnInfo{KeyFile: memoryFile, KeyBusyTimeout: "soon"}},
		{"negative timeout", datasource.ConnInfo{KeyFile: memoryFile, KeyBusyTimeout: "-5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := datasource.New(DriverType, tt.info)
			assert.True(t, errs.IsConfiguration(err))
		})
	}
}

func TestDriver_Lifecycle(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		info := connInfo(t, driver)

		ok, err := datasource.Exists(ctx, DriverType, info)
		require.NoError(t, err)
		assert.False(t, ok)

		src, err := datasource.Create(ctx, DriverType, info)
		require.NoError(t, err)
		assert.True(t, src.IsOpened())
		assert.True(t, src.IsValid(ctx))
		require.NoError(t, src.Close())

		_, err = datasource.Create(ctx, DriverType, info)
		assert.True(t, errs.IsAlreadyExists(err))

		names, err := datasource.DataSourceNames(ctx, DriverType, info)
		require.NoError(t, err)
		assert.Equal(t, []string{"test.db"}, names)

		require.NoError(t, datasource.Drop(ctx, DriverType, info))
		_, err = os.Stat(info[KeyFile])
		assert.True(t, os.IsNotExist(err))
		assert.True(t, errs.IsNotFound(datasource.Drop(ctx, DriverType, info)))
	})
}

func TestCatalog_SurvivesReopen(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		info := connInfo(t, driver)

		src, err := datasource.Open(ctx, DriverType, info)
		require.NoError(t, err)
		tr, err := src.Transactor(ctx)
		require.NoError(t, err)
		testutil.LoadParcels(t, tr)
		require.NoError(t, tr.Close())
		require.NoError(t, src.Close())

		tr = openTransactor(t, info)
		dt, err := tr.DataSetType(ctx, "parcels")
		require.NoError(t, err)
		assert.Equal(t, testutil.ParcelsType(t).PropertyNames(), dt.PropertyNames())
		geom, ok := dt.Property("geom")
		require.True(t, ok)
		assert.Equal(t, testutil.ParcelsSRID, geom.SRID)
		require.NotNil(t, dt.PrimaryKey())

		ds, err := tr.GetDataSet(ctx, "parcels")
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name", "area", "geom"}, dataset.PropertyNames(ds), "shadow columns stay hidden")
		require.True(t, ds.MoveFirst())
		g, err := dataset.GeometryByName(ds, "geom")
		require.NoError(t, err)
		assert.Equal(t, testutil.ParcelsSRID, g.SRID())
		assert.Equal(t, geometry.NewEnvelope(1, 1, 3, 3), g.Envelope())
	})
}

func TestCatalog_Reads(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		tr := parcelsTransactor(t, driver)

		names, err := tr.DataSetNames(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"parcels"}, names)
		n, err := tr.NumberOfDataSets(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 5, count(t, tr, "parcels"))

		env, err := tr.Extent(ctx, "parcels", "geom")
		require.NoError(t, err)
		assert.Equal(t, geometry.NewEnvelope(1, 1, 21, 21), env)

		_, err = tr.Extent(ctx, "parcels", "name")
		assert.True(t, errs.IsPrecondition(err))
		_, err = tr.NumberOfItems(ctx, "missing")
		assert.True(t, errs.IsNotFound(err))

		ok, err := tr.DataSetExists(ctx, "parcels")
		require.NoError(t, err)
		assert.True(t, ok)

		err = tr.CreateDataSet(ctx, testutil.ParcelsType(t), nil)
		assert.True(t, errs.IsAlreadyExists(err))
	})
}

func TestCreateDataSet_Rejects(t *testing.T) {
	ctx := context.Background()
	tr := openTransactor(t, connInfo(t, driverModernc))

	raster := schema.New("images")
	require.NoError(t, raster.AddProperty(datatype.NewProperty("tile", datatype.Raster)))
	assert.True(t, errs.IsCapabilityMismatch(tr.CreateDataSet(ctx, raster, nil)))

	shadowed := schema.New("shapes")
	require.NoError(t, shadowed.AddProperty(datatype.NewProperty("g__minx", datatype.Double)))
	assert.True(t, errs.IsPrecondition(tr.CreateDataSet(ctx, shadowed, nil)))

	assert.True(t, errs.IsPrecondition(tr.ValidateName(catalogTable)))
	assert.True(t, errs.IsPrecondition(tr.CreateDataSet(ctx, nil, nil)))
}

func TestQuery_FilterOrderWindow(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		tr := parcelsTransactor(t, driver)

		sel := query.BuildSelect("parcels").
			WithWhere(query.And(
				query.GreaterThan(query.Prop("id"), query.Lit(datatype.Int(1))),
				query.Like(query.Prop("name"), "%a%"),
			)).
			WithOrderBy(query.DescBy("id")).
			WithLimit(2)
		ds, err := tr.Query(context.Background(), sel)
		require.NoError(t, err)
		assert.Equal(t, []int64{4, 3}, ids(t, ds))
		assert.Equal(t, capabilities.ReadOnly, ds.AccessPolicy())

		sel = query.BuildSelect("parcels", "id").WithOrderBy(query.AscBy("id")).WithOffset(3)
		ds, err = tr.Query(context.Background(), sel)
		require.NoError(t, err)
		assert.Equal(t, []int64{4, 5}, ids(t, ds))
	})
}

func TestQuery_Projection(t *testing.T) {
	tr := parcelsTransactor(t, driverModernc)

	sel := query.BuildSelect("parcels", "id")
	sel.Fields = append(sel.Fields,
		&query.Field{Expr: query.Prop("name"), Alias: "label"},
		&query.Field{Expr: query.Mul(query.Prop("id"), query.Lit(datatype.Int(10)))},
	)
	sel.WithWhere(query.EqualTo(query.Prop("id"), query.Lit(datatype.Int(2))))
	ds, err := tr.Query(context.Background(), sel)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "label", "expr2"}, dataset.PropertyNames(ds))
	require.True(t, ds.MoveFirst())
	label, err := dataset.StringByName(ds, "label")
	require.NoError(t, err)
	assert.Equal(t, "bravo", label)
	v, err := dataset.Int64ByName(ds, "expr2")
	require.NoError(t, err)
	assert.Equal(t, int64(20), v)
}

func TestQuery_Errors(t *testing.T) {
	ctx := context.Background()
	tr := parcelsTransactor(t, driverModernc)

	_, err := tr.Query(ctx, query.BuildSpatialSelect("parcels", nil, "geom", testutil.TriangleGeometry(), geometry.Intersects))
	assert.True(t, errs.IsCapabilityMismatch(err))

	_, err = tr.Query(ctx, query.BuildSelect("parcels", "height"))
	assert.True(t, errs.IsNotFound(err))
	_, err = tr.Query(ctx, query.BuildSelect("roads"))
	assert.True(t, errs.IsNotFound(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = tr.Query(cancelled, query.BuildSelect("parcels"))
	assert.True(t, errs.IsCancelled(err))
}

func TestSpatial(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		tr := parcelsTransactor(t, driver)

		ds, err := tr.GetDataSetByGeometry(ctx, "parcels", "geom", testutil.TriangleGeometry(), geometry.Intersects)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 4}, ids(t, ds))

		ds, err = tr.GetDataSetByGeometry(ctx, "parcels", "geom", testutil.TriangleGeometry(), geometry.Disjoint)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 3, 5}, ids(t, ds))

		ds, err = tr.GetDataSetByEnvelope(ctx, "parcels", "geom", geometry.NewEnvelope(0, 0, 10, 10), geometry.Intersects)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3, 4}, ids(t, ds))

		_, err = tr.GetDataSetByGeometry(ctx, "parcels", "name", testutil.TriangleGeometry(), geometry.Intersects)
		assert.True(t, errs.IsPrecondition(err))
	})
}

func TestSpatial_SkipsUndecodableGeometry(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		tr := parcelsTransactor(t, driver)
		require.NoError(t, tr.ExecuteSQL(ctx, `UPDATE parcels SET geom = x'00' WHERE id IN (2, 4)`))

		ds, err := spatial.NewProcessor().GetDataSet(ctx, tr,
			query.BuildSelect("parcels", "id").WithWhere(
				query.STIntersects(query.Prop("geom"), query.LitGeom(testutil.TriangleGeometry()))))
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids(t, ds))

		all, err := tr.GetDataSet(ctx, "parcels")
		require.NoError(t, err)
		require.True(t, all.Move(1))
		name, err := dataset.StringByName(all, "name")
		require.NoError(t, err)
		assert.Equal(t, "bravo", name)
		_, err = dataset.GeometryByName(all, "geom")
		assert.True(t, errs.IsRowExtraction(err))
	})
}

func TestDialect_EnvelopeIntersects(t *testing.T) {
	sel := query.BuildSelect("parcels", "id").
		WithWhere(query.EnvelopeIntersects(query.Prop("geom"), query.LitEnvelope(geometry.NewEnvelope(0, 1, 10, 11), 4326)))

	sql, args, err := sqldialect.Translate(Dialect(), sel)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id" FROM "parcels" WHERE ("geom__minx" <= ? AND "geom__maxx" >= ? AND "geom__miny" <= ? AND "geom__maxy" >= ?)`, sql)
	assert.Equal(t, []any{10.0, 0.0, 11.0, 1.0}, args)

	bad := query.BuildSelect("parcels").
		WithWhere(query.EnvelopeIntersects(query.Prop("geom"), query.Prop("other")))
	_, _, err = sqldialect.Translate(Dialect(), bad)
	assert.True(t, errs.IsCapabilityMismatch(err))
}

func TestExecute_Insert(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		tr := openTransactor(t, connInfo(t, driver))
		require.NoError(t, tr.CreateDataSet(ctx, notesType(t), nil))

		require.NoError(t, tr.Execute(ctx, &query.Insert{
			DataSet:    &query.DataSetName{Name: "notes"},
			Properties: []*query.PropertyName{query.Prop("label")},
			Values: [][]query.Expression{
				{query.Lit(datatype.Str("first"))},
				{query.Lit(datatype.Str("second"))},
			},
		}))
		assert.Equal(t, int64(2), tr.LastGeneratedID())

		require.NoError(t, tr.Execute(ctx, &query.Insert{
			DataSet:    &query.DataSetName{Name: "notes"},
			Properties: []*query.PropertyName{query.Prop("id")},
			Values:     [][]query.Expression{{query.Lit(datatype.Int(10))}},
		}))
		require.NoError(t, tr.Execute(ctx, &query.Insert{
			DataSet:    &query.DataSetName{Name: "notes"},
			Properties: []*query.PropertyName{query.Prop("label")},
			Values:     [][]query.Expression{{query.Lit(datatype.Str("third"))}},
		}))
		assert.Equal(t, int64(11), tr.LastGeneratedID())

		ds, err := tr.Query(ctx, query.BuildSelect("notes", "label").
			WithWhere(query.EqualTo(query.Prop("id"), query.Lit(datatype.Int(10)))))
		require.NoError(t, err)
		require.True(t, ds.MoveFirst())
		label, err := dataset.StringByName(ds, "label")
		require.NoError(t, err)
		assert.Equal(t, "untitled", label)
	})
}

func TestExecute_InsertSelectAndAtomicity(t *testing.T) {
	ctx := context.Background()
	tr := parcelsTransactor(t, driverMattn)

	archive := testutil.ParcelsType(t)
	archive.SetName("archive")
	require.NoError(t, tr.CreateDataSet(ctx, archive, nil))
	require.NoError(t, tr.Execute(ctx, &query.Insert{
		DataSet: &query.DataSetName{Name: "archive"},
		Select: query.BuildSelect("parcels").
			WithWhere(query.LessThan(query.Prop("id"), query.Lit(datatype.Int(3)))),
	}))
	assert.Equal(t, 2, count(t, tr, "archive"))

	ds, err := tr.GetDataSetByGeometry(ctx, "archive", "geom", testutil.TriangleGeometry(), geometry.Intersects)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(t, ds), "copied rows carry their rectangles")

	err = tr.Execute(ctx, &query.Insert{
		DataSet:    &query.DataSetName{Name: "archive"},
		Properties: []*query.PropertyName{query.Prop("id"), query.Prop("name")},
		Values: [][]query.Expression{
			{query.Lit(datatype.Int(7)), query.Lit(datatype.Str("golf"))},
			{query.Lit(datatype.Int(1)), query.Lit(datatype.Str("dup"))},
		},
	})
	assert.True(t, errs.IsAlreadyExists(err))
	assert.Equal(t, 2, count(t, tr, "archive"))
}

func TestExecute_UpdateDelete(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		tr := parcelsTransactor(t, driver)

		moved := geometry.MustWKT("POLYGON((2 2, 3 2, 3 3, 2 3, 2 2))", testutil.ParcelsSRID)
		require.NoError(t, tr.Execute(ctx, &query.Update{
			DataSet:    &query.DataSetName{Name: "parcels"},
			Properties: []*query.PropertyName{query.Prop("name"), query.Prop("geom")},
			Values:     []query.Expression{query.Fn(query.FnUpper, query.Prop("name")), query.LitGeom(moved)},
			Where:      &query.Where{Expr: query.EqualTo(query.Prop("id"), query.Lit(datatype.Int(5)))},
		}))
		ds, err := tr.GetDataSetByGeometry(ctx, "parcels", "geom", testutil.TriangleGeometry(), geometry.Intersects)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 4, 5}, ids(t, ds))
		require.True(t, ds.MoveLast())
		name, err := dataset.StringByName(ds, "name")
		require.NoError(t, err)
		assert.Equal(t, "ECHO", name)

		err = tr.Execute(ctx, &query.Update{
			DataSet:    &query.DataSetName{Name: "parcels"},
			Properties: []*query.PropertyName{query.Prop("geom")},
			Values:     []query.Expression{query.Prop("geom")},
		})
		assert.True(t, errs.IsCapabilityMismatch(err))

		require.NoError(t, tr.Execute(ctx, &query.Delete{
			DataSet: &query.DataSetName{Name: "parcels"},
			Where:   &query.Where{Expr: query.GreaterThan(query.Prop("id"), query.Lit(datatype.Int(3)))},
		}))
		assert.Equal(t, 3, count(t, tr, "parcels"))
	})
}

func TestTransactions(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		tr := openTransactor(t, connInfo(t, driver))
		require.NoError(t, tr.CreateDataSet(ctx, testutil.ParcelsType(t), nil))

		require.NoError(t, tr.Begin(ctx))
		assert.True(t, tr.InTransaction())
		assert.True(t, errs.IsPrecondition(tr.Begin(ctx)))
		require.NoError(t, tr.Add(ctx, "parcels", testutil.Parcels(t), nil))
		assert.Equal(t, 5, count(t, tr, "parcels"))
		require.NoError(t, tr.Rollback(ctx))
		assert.False(t, tr.InTransaction())
		assert.Equal(t, 0, count(t, tr, "parcels"))

		require.NoError(t, tr.Begin(ctx))
		require.NoError(t, tr.Add(ctx, "parcels", testutil.Parcels(t), nil))
		err := tr.Add(ctx, "parcels", testutil.Parcels(t), nil)
		assert.True(t, errs.IsAlreadyExists(err))
		assert.True(t, tr.InTransaction(), "a failed write keeps the transaction")
		require.NoError(t, tr.Commit(ctx))
		assert.Equal(t, 5, count(t, tr, "parcels"))

		assert.True(t, errs.IsPrecondition(tr.Commit(ctx)))
		assert.True(t, errs.IsPrecondition(tr.Rollback(ctx)))
	})
}

func TestClose_RollsBack(t *testing.T) {
	ctx := context.Background()
	info := connInfo(t, driverModernc)
	src, err := datasource.Open(ctx, DriverType, info)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	tr, err := src.Transactor(ctx)
	require.NoError(t, err)
	require.NoError(t, tr.CreateDataSet(ctx, testutil.ParcelsType(t), nil))
	require.NoError(t, tr.Begin(ctx))
	require.NoError(t, tr.Add(ctx, "parcels", testutil.Parcels(t), nil))
	require.NoError(t, tr.Close())

	_, err = tr.GetDataSet(ctx, "parcels")
	assert.True(t, errs.IsPrecondition(err))

	other, err := src.Transactor(ctx)
	require.NoError(t, err)
	defer other.Close()
	assert.Equal(t, 0, count(t, other, "parcels"))
}

func TestRemoveUpdate_ByOIDs(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		tr := parcelsTransactor(t, driver)

		b := oid.NewBuilder("id")
		require.NoError(t, b.Add(datatype.Int(2)))
		require.NoError(t, b.Add(datatype.Int(4)))
		oids := b.Build()

		ds, err := tr.GetDataSetByOIDs(ctx, "parcels", oids)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 4}, ids(t, ds))

		src := testutil.Parcels(t)
		for src.MoveNext() {
			require.NoError(t, src.Set(1, datatype.Str("renamed")))
		}
		require.NoError(t, tr.Update(ctx, "parcels", src, []string{"name"}, oids))
		ds, err = tr.Query(ctx, query.BuildSelect("parcels", "id").
			WithWhere(query.EqualTo(query.Prop("name"), query.Lit(datatype.Str("renamed")))).
			WithOrderBy(query.AscBy("id")))
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 4}, ids(t, ds))

		require.NoError(t, tr.Remove(ctx, "parcels", oids))
		assert.Equal(t, 3, count(t, tr, "parcels"))
		require.NoError(t, tr.Remove(ctx, "parcels", nil))
		assert.Equal(t, 0, count(t, tr, "parcels"))
	})
}

func TestSchemaChanges(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		tr := parcelsTransactor(t, driver)

		zone := datatype.NewStringProperty("zone", 8)
		def := "rural"
		zone.DefaultValue = &def
		require.NoError(t, tr.AddProperty(ctx, "parcels", zone))
		ds, err := tr.Query(ctx, query.BuildSelect("parcels", "zone").WithWhere(query.EqualTo(query.Prop("id"), query.Lit(datatype.Int(3)))))
		require.NoError(t, err)
		require.True(t, ds.MoveFirst())
		v, err := dataset.StringByName(ds, "zone")
		require.NoError(t, err)
		assert.Equal(t, "rural", v)

		err = tr.AddUniqueKey(ctx, "parcels", schema.UniqueKey{Name: "zone_uk", Properties: []string{"zone"}})
		assert.True(t, errs.IsAlreadyExists(err))
		names, err := tr.UniqueKeyNames(ctx, "parcels")
		require.NoError(t, err)
		assert.Empty(t, names)
		require.NoError(t, tr.AddUniqueKey(ctx, "parcels", schema.UniqueKey{Name: "name_uk", Properties: []string{"name"}}))

		require.NoError(t, tr.AddIndex(ctx, "parcels", schema.Index{Name: "geom_ix", Kind: schema.RTree, Properties: []string{"geom"}}, nil))
		ixs, err := tr.IndexNames(ctx, "parcels")
		require.NoError(t, err)
		assert.Equal(t, []string{"geom_ix"}, ixs)

		require.NoError(t, tr.DropProperty(ctx, "parcels", "area"))
		require.NoError(t, tr.RenameDataSet(ctx, "parcels", "lots"))
		require.NoError(t, tr.DropIndex(ctx, "lots", "geom_ix"))
		require.NoError(t, tr.AddCheckConstraint(ctx, "lots", schema.CheckConstraint{Name: "positive_id", Expression: `"id" > 0`}))

		dt, err := tr.DataSetType(ctx, "lots")
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name", "geom", "zone"}, dt.PropertyNames())
		assert.Empty(t, dt.Indexes())
		assert.Len(t, dt.CheckConstraints(), 1)
		assert.Equal(t, 5, count(t, tr, "lots"))

		err = tr.Execute(ctx, &query.Insert{
			DataSet:    &query.DataSetName{Name: "lots"},
			Properties: []*query.PropertyName{query.Prop("id")},
			Values:     [][]query.Expression{{query.Lit(datatype.Int(-1))}},
		})
		assert.True(t, errs.IsPrecondition(err))

		ds, err = tr.GetDataSetByGeometry(ctx, "lots", "geom", testutil.TriangleGeometry(), geometry.Intersects)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 4}, ids(t, ds), "rebuilt rows keep their rectangles")

		require.NoError(t, tr.DropDataSet(ctx, "lots"))
		assert.True(t, errs.IsNotFound(tr.DropDataSet(ctx, "lots")))
	})
}

func TestValueTypes_RoundTrip(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		tr := openTransactor(t, connInfo(t, driver))

		dt := schema.New("samples")
		for _, p := range []datatype.Property{
			datatype.NewProperty("id", datatype.Int16),
			datatype.NewProperty("ok", datatype.Boolean),
			datatype.NewNumericProperty("price", 10, 2),
			datatype.NewProperty("at", datatype.DateTime),
			datatype.NewProperty("blob", datatype.ByteArray),
		} {
			require.NoError(t, dt.AddProperty(p))
		}
		require.NoError(t, tr.CreateDataSet(ctx, dt, nil))

		at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
		price, err := datatype.NewNumeric("19.95")
		require.NoError(t, err)
		src := dataset.NewMemoryFromType(dt)
		require.NoError(t, src.Add([]datatype.Value{datatype.Int(7), datatype.Bool(true), price, datatype.NewTime(at), datatype.Bytes{1, 2, 3}}))
		require.NoError(t, tr.Add(ctx, "samples", src, nil))

		ds, err := tr.GetDataSet(ctx, "samples")
		require.NoError(t, err)
		require.True(t, ds.MoveFirst())
		ok, err := dataset.BoolByName(ds, "ok")
		require.NoError(t, err)
		assert.True(t, ok)
		p, err := dataset.NumericByName(ds, "price")
		require.NoError(t, err)
		assert.Equal(t, "19.95", p.String())
		got, err := dataset.Time(ds, 3)
		require.NoError(t, err)
		assert.True(t, at.Equal(got))
		b, err := dataset.BytesByName(ds, "blob")
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, b)
	})
}

func TestSQL(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		tr := parcelsTransactor(t, driver)

		ds, err := tr.QuerySQL(ctx, `SELECT COUNT(*) AS n FROM parcels WHERE id > 2`)
		require.NoError(t, err)
		require.True(t, ds.MoveFirst())
		n, err := dataset.Int64ByName(ds, "n")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		require.NoError(t, tr.ExecuteSQL(ctx, `DELETE FROM parcels WHERE id = 5`))
		assert.Equal(t, 4, count(t, tr, "parcels"))

		_, err = tr.QuerySQL(ctx, `DELETE FROM parcels`)
		assert.True(t, errs.IsPrecondition(err))
		assert.True(t, errs.IsPrecondition(tr.ExecuteSQL(ctx, `SELECT 1`)))
		assert.Equal(t, `'it''s'`, tr.Escape("it's"))
	})
}

func TestColumnType(t *testing.T) {
	tests := []struct {
		typ  datatype.Type
		want string
	}{
		{datatype.Int32, "INTEGER"},
		{datatype.UInt64, "INTEGER"},
		{datatype.Boolean, "INTEGER"},
		{datatype.Double, "REAL"},
		{datatype.Numeric, "TEXT"},
		{datatype.DateTime, "TEXT"},
		{datatype.Geometry, "BLOB"},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			got, err := columnType(tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := columnType(datatype.Array)
	assert.True(t, errs.IsCapabilityMismatch(err))
}
