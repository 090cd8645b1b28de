package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/oid"
	"github.com/roach88/dataccess/internal/query"
	"github.com/roach88/dataccess/internal/schema"
	"github.com/roach88/dataccess/internal/testutil"
)

func openTransactor(t *testing.T, info datasource.ConnInfo) datasource.Transactor {
	t.Helper()
	ctx := context.Background()
	src, err := datasource.Open(ctx, DriverType, info)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	tr, err := src.Transactor(ctx)
	require.NoError(t, err)
	return tr
}

func parcelsTransactor(t *testing.T) datasource.Transactor {
	t.Helper()
	tr := openTransactor(t, nil)
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

func TestDriver_Registered(t *testing.T) {
	assert.Contains(t, datasource.Drivers(), DriverType)

	src, err := datasource.New(DriverType, nil)
	require.NoError(t, err)
	assert.False(t, src.IsOpened())
	assert.Equal(t, DriverType, src.Type())
	assert.False(t, src.Capabilities().Transactions)

	_, err = src.Transactor(context.Background())
	assert.True(t, errs.IsPrecondition(err))
}

func TestDriver_NamedRepositories(t *testing.T) {
	ctx := context.Background()
	info := datasource.ConnInfo{KeyName: t.Name()}

	_, err := datasource.Create(ctx, DriverType, info)
	require.NoError(t, err)
	_, err = datasource.Create(ctx, DriverType, info)
	assert.True(t, errs.IsAlreadyExists(err))

	ok, err := datasource.Exists(ctx, DriverType, info)
	require.NoError(t, err)
	assert.True(t, ok)
	names, err := datasource.DataSourceNames(ctx, DriverType, nil)
	require.NoError(t, err)
	assert.Contains(t, names, t.Name())

	a := openTransactor(t, info)
	b := openTransactor(t, info)
	testutil.LoadParcels(t, a)
	n, err := b.NumberOfItems(ctx, "parcels")
	require.NoError(t, err)
	assert.Equal(t, 5, n, "named data sources share a repository")

	require.NoError(t, datasource.Drop(ctx, DriverType, info))
	assert.True(t, errs.IsNotFound(datasource.Drop(ctx, DriverType, info)))
}

func TestDriver_PrivateRepositories(t *testing.T) {
	a := parcelsTransactor(t)
	b := openTransactor(t, nil)

	ok, err := a.DataSetExists(context.Background(), "parcels")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.DataSetExists(context.Background(), "parcels")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDriver_Configuration(t *testing.T) {
	_, err := datasource.New(DriverType, datasource.ConnInfo{KeyMaxDataSets: "many"})
	assert.True(t, errs.IsConfiguration(err))
	_, err = datasource.New(DriverType, datasource.ConnInfo{KeyMaxDataSets: "-1"})
	assert.True(t, errs.IsConfiguration(err))
	_, err = datasource.Create(context.Background(), DriverType, nil)
	assert.True(t, errs.IsConfiguration(err))
}

func TestCreateDataSet_MaxDataSets(t *testing.T) {
	ctx := context.Background()
	tr := openTransactor(t, datasource.ConnInfo{KeyMaxDataSets: "1"})

	testutil.LoadParcels(t, tr)
	other := schema.New("roads")
	require.NoError(t, other.AddProperty(datatype.NewProperty("id", datatype.Int32)))
	err := tr.CreateDataSet(ctx, other, nil)
	assert.True(t, errs.IsPrecondition(err))

	err = tr.CreateDataSet(ctx, testutil.ParcelsType(t), nil)
	assert.True(t, errs.IsAlreadyExists(err))
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	tr := parcelsTransactor(t)

	names, err := tr.DataSetNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"parcels"}, names)

	pk, err := tr.PrimaryKey(ctx, "parcels")
	require.NoError(t, err)
	require.NotNil(t, pk)
	assert.Equal(t, []string{"id"}, pk.Properties)

	ok, err := tr.PropertyExists(ctx, "parcels", "geom")
	require.NoError(t, err)
	assert.True(t, ok)

	env, err := tr.Extent(ctx, "parcels", "geom")
	require.NoError(t, err)
	assert.Equal(t, geometry.NewEnvelope(1, 1, 21, 21), env)

	_, err = tr.Extent(ctx, "parcels", "name")
	assert.True(t, errs.IsPrecondition(err))
	_, err = tr.DataSetType(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))

	dt, err := tr.DataSetType(ctx, "parcels")
	require.NoError(t, err)
	dt.SetName("changed")
	dt, err = tr.DataSetType(ctx, "parcels")
	require.NoError(t, err)
	assert.Equal(t, "parcels", dt.Name(), "catalog returns copies")
}

func TestQuery_FilterOrderWindow(t *testing.T) {
	tr := parcelsTransactor(t)

	sel := query.BuildSelect("parcels").
		WithWhere(query.GreaterThan(query.Prop("id"), query.Lit(datatype.Int(1)))).
		WithOrderBy(query.DescBy("id")).
		WithOffset(1).
		WithLimit(2)
	ds, err := tr.Query(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3}, ids(t, ds))
	assert.False(t, ds.AccessPolicy().CanWrite())
}

func TestQuery_Projection(t *testing.T) {
	tr := parcelsTransactor(t)

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

func TestQuery_Distinct(t *testing.T) {
	ctx := context.Background()
	tr := parcelsTransactor(t)
	require.NoError(t, tr.Execute(ctx, &query.Update{
		DataSet:    &query.DataSetName{Name: "parcels"},
		Properties: []*query.PropertyName{query.Prop("name")},
		Values:     []query.Expression{query.Lit(datatype.Str("same"))},
	}))

	sel := query.BuildSelect("parcels", "name")
	sel.Distinct = true
	ds, err := tr.Query(ctx, sel)
	require.NoError(t, err)
	n, err := ds.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestQuery_Errors(t *testing.T) {
	ctx := context.Background()
	tr := parcelsTransactor(t)
	tri := testutil.TriangleGeometry()

	_, err := tr.Query(ctx, query.BuildSpatialSelect("parcels", nil, "geom", tri, geometry.Intersects))
	assert.True(t, errs.IsCapabilityMismatch(err), "exact relations need the spatial processor")

	_, err = tr.Query(ctx, query.BuildSelect("parcels", "height"))
	assert.True(t, errs.IsNotFound(err))

	_, err = tr.Query(ctx, query.BuildSelect("missing"))
	assert.True(t, errs.IsNotFound(err))

	sel := query.BuildSelect("parcels")
	sel.GroupBy = []*query.GroupByItem{{Expr: query.Prop("name")}}
	_, err = tr.Query(ctx, sel)
	assert.True(t, errs.IsCapabilityMismatch(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = tr.Query(cancelled, query.BuildSelect("parcels"))
	assert.True(t, errs.IsCancelled(err))

	_, err = tr.QuerySQL(ctx, "SELECT * FROM parcels")
	assert.True(t, errs.IsCapabilityMismatch(err))
}

func TestGetDataSetByGeometry(t *testing.T) {
	ctx := context.Background()
	tr := parcelsTransactor(t)

	ds, err := tr.GetDataSetByGeometry(ctx, "parcels", "geom", testutil.TriangleGeometry(), geometry.Intersects)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, ids(t, ds))

	ds, err = tr.GetDataSetByGeometry(ctx, "parcels", "geom", testutil.TriangleGeometry(), geometry.Disjoint)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 5}, ids(t, ds))

	_, err = tr.GetDataSetByGeometry(ctx, "parcels", "name", testutil.TriangleGeometry(), geometry.Intersects)
	assert.True(t, errs.IsPrecondition(err))
}

func TestGetDataSetByEnvelope(t *testing.T) {
	tr := parcelsTransactor(t)

	ds, err := tr.GetDataSetByEnvelope(context.Background(), "parcels", "geom", geometry.NewEnvelope(0, 0, 10, 10), geometry.Intersects)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(t, ds))
}

func TestGetDataSetByOIDs(t *testing.T) {
	ctx := context.Background()
	tr := parcelsTransactor(t)

	b := oid.NewBuilder("id")
	require.NoError(t, b.Add(datatype.Int(2)))
	require.NoError(t, b.Add(datatype.Int(5)))
	ds, err := tr.GetDataSetByOIDs(ctx, "parcels", b.Build())
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 5}, ids(t, ds))

	empty, err := tr.GetDataSetByOIDs(ctx, "parcels", oid.NewBuilder("id").Build())
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

func TestExecute_InsertAutoNumber(t *testing.T) {
	ctx := context.Background()
	tr := openTransactor(t, nil)

	dt := schema.New("notes")
	serial := datatype.NewProperty("id", datatype.Int64)
	serial.AutoNumber = true
	text := datatype.NewStringProperty("text", 0)
	def := "untitled"
	text.DefaultValue = &def
	require.NoError(t, dt.AddProperty(serial))
	require.NoError(t, dt.AddProperty(text))
	require.NoError(t, dt.SetPrimaryKey(schema.PrimaryKey{Properties: []string{"id"}}))
	require.NoError(t, tr.CreateDataSet(ctx, dt, nil))

	require.NoError(t, tr.Execute(ctx, &query.Insert{
		DataSet:    &query.DataSetName{Name: "notes"},
		Properties: []*query.PropertyName{query.Prop("text")},
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
	ds, err := tr.Query(ctx, query.BuildSelect("notes").WithWhere(query.EqualTo(query.Prop("id"), query.Lit(datatype.Int(10)))))
	require.NoError(t, err)
	require.True(t, ds.MoveFirst())
	s, err := dataset.StringByName(ds, "text")
	require.NoError(t, err)
	assert.Equal(t, "untitled", s)

	err = tr.Execute(ctx, &query.Insert{
		DataSet:    &query.DataSetName{Name: "notes"},
		Properties: []*query.PropertyName{query.Prop("text")},
		Values:     [][]query.Expression{{query.Lit(datatype.Str("third"))}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), tr.LastGeneratedID(), "sequence advances past explicit values")
}

func TestExecute_InsertSelect(t *testing.T) {
	ctx := context.Background()
	tr := parcelsTransactor(t)

	archive := testutil.ParcelsType(t)
	archive.SetName("archive")
	require.NoError(t, tr.CreateDataSet(ctx, archive, nil))
	require.NoError(t, tr.Execute(ctx, &query.Insert{
		DataSet: &query.DataSetName{Name: "archive"},
		Select:  query.BuildSelect("parcels").WithWhere(query.LessThan(query.Prop("id"), query.Lit(datatype.Int(3)))),
	}))
	n, err := tr.NumberOfItems(ctx, "archive")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExecute_DuplicateKeyIsAtomic(t *testing.T) {
	ctx := context.Background()
	tr := parcelsTransactor(t)

	err := tr.Execute(ctx, &query.Insert{
		DataSet:    &query.DataSetName{Name: "parcels"},
		Properties: []*query.PropertyName{query.Prop("id"), query.Prop("name")},
		Values: [][]query.Expression{
			{query.Lit(datatype.Int(6)), query.Lit(datatype.Str("foxtrot"))},
			{query.Lit(datatype.Int(1)), query.Lit(datatype.Str("duplicate"))},
		},
	})
	assert.True(t, errs.IsAlreadyExists(err))

	n, err := tr.NumberOfItems(ctx, "parcels")
	require.NoError(t, err)
	assert.Equal(t, 5, n, "failed statements leave no rows behind")

	err = tr.Execute(ctx, &query.Insert{
		DataSet:    &query.DataSetName{Name: "parcels"},
		Properties: []*query.PropertyName{query.Prop("name")},
		Values:     [][]query.Expression{{query.Lit(datatype.Str("nameless"))}},
	})
	assert.True(t, errs.IsPrecondition(err), "primary key properties are required")
}

func TestExecute_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	tr := parcelsTransactor(t)

	require.NoError(t, tr.Execute(ctx, &query.Update{
		DataSet:    &query.DataSetName{Name: "parcels"},
		Properties: []*query.PropertyName{query.Prop("area")},
		Values:     []query.Expression{query.Mul(query.Prop("area"), query.Lit(datatype.Int(2)))},
		Where:      &query.Where{Expr: query.EqualTo(query.Prop("id"), query.Lit(datatype.Int(4)))},
	}))
	ds, err := tr.Query(ctx, query.BuildSelect("parcels", "area").WithWhere(query.EqualTo(query.Prop("id"), query.Lit(datatype.Int(4)))))
	require.NoError(t, err)
	require.True(t, ds.MoveFirst())
	area, err := dataset.Float64ByName(ds, "area")
	require.NoError(t, err)
	assert.InDelta(t, 8.0, area, 1e-9)

	require.NoError(t, tr.Execute(ctx, &query.Delete{
		DataSet: &query.DataSetName{Name: "parcels"},
		Where:   &query.Where{Expr: query.GreaterThanOrEqualTo(query.Prop("id"), query.Lit(datatype.Int(4)))},
	}))
	all, err := tr.GetDataSet(ctx, "parcels")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(t, all))

	err = tr.Execute(ctx, query.BuildSelect("parcels"))
	assert.True(t, errs.IsPrecondition(err))
	assert.True(t, errs.IsCapabilityMismatch(tr.ExecuteSQL(ctx, "DELETE FROM parcels")))
}

func TestRemoveAndUpdateByOIDs(t *testing.T) {
	ctx := context.Background()
	tr := parcelsTransactor(t)

	b := oid.NewBuilder("id")
	require.NoError(t, b.Add(datatype.Int(1)))
	require.NoError(t, b.Add(datatype.Int(3)))
	set := b.Build()

	changes := testutil.Parcels(t)
	require.True(t, changes.MoveBeforeFirst())
	for changes.MoveNext() {
		require.NoError(t, changes.Set(1, datatype.Str("renamed")))
	}
	require.NoError(t, tr.Update(ctx, "parcels", changes, []string{"name"}, set))

	renamed, err := tr.Query(ctx, query.BuildSelect("parcels").WithWhere(query.EqualTo(query.Prop("name"), query.Lit(datatype.Str("renamed")))))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(t, renamed))

	require.NoError(t, tr.Remove(ctx, "parcels", set))
	rest, err := tr.GetDataSet(ctx, "parcels")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4, 5}, ids(t, rest))

	require.NoError(t, tr.Remove(ctx, "parcels", nil))
	n, err := tr.NumberOfItems(ctx, "parcels")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSchemaChanges(t *testing.T) {
	ctx := context.Background()
	tr := parcelsTransactor(t)

	zone := datatype.NewStringProperty("zone", 8)
	def := "rural"
	zone.DefaultValue = &def
	require.NoError(t, tr.AddProperty(ctx, "parcels", zone))

	ds, err := tr.Query(ctx, query.BuildSelect("parcels", "zone").WithWhere(query.EqualTo(query.Prop("id"), query.Lit(datatype.Int(1)))))
	require.NoError(t, err)
	require.True(t, ds.MoveFirst())
	s, err := dataset.StringByName(ds, "zone")
	require.NoError(t, err)
	assert.Equal(t, "rural", s)

	required := datatype.NewProperty("owner", datatype.String)
	required.Required = true
	assert.True(t, errs.IsPrecondition(tr.AddProperty(ctx, "parcels", required)))

	require.NoError(t, tr.DropProperty(ctx, "parcels", "zone"))
	ok, err := tr.PropertyExists(ctx, "parcels", "zone")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tr.Execute(ctx, &query.Update{
		DataSet:    &query.DataSetName{Name: "parcels"},
		Properties: []*query.PropertyName{query.Prop("name")},
		Values:     []query.Expression{query.Lit(datatype.Str("same"))},
	}))
	err = tr.AddUniqueKey(ctx, "parcels", schema.UniqueKey{Name: "parcels_name_uk", Properties: []string{"name"}})
	assert.True(t, errs.IsAlreadyExists(err))
	keys, err := tr.UniqueKeyNames(ctx, "parcels")
	require.NoError(t, err)
	assert.Empty(t, keys, "rejected keys are not recorded")

	require.NoError(t, tr.AddIndex(ctx, "parcels", schema.Index{Name: "parcels_geom_idx", Properties: []string{"geom"}}, nil))
	idx, err := tr.IndexNames(ctx, "parcels")
	require.NoError(t, err)
	assert.Equal(t, []string{"parcels_geom_idx"}, idx)

	require.NoError(t, tr.RenameDataSet(ctx, "parcels", "lots"))
	names, err := tr.DataSetNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lots"}, names)
	dt, err := tr.DataSetType(ctx, "lots")
	require.NoError(t, err)
	assert.Equal(t, "lots", dt.Name())

	require.NoError(t, tr.DropDataSet(ctx, "lots"))
	assert.True(t, errs.IsNotFound(tr.DropDataSet(ctx, "lots")))
}

func TestTransactions_Unsupported(t *testing.T) {
	ctx := context.Background()
	tr := parcelsTransactor(t)

	assert.True(t, errs.IsCapabilityMismatch(tr.Begin(ctx)))
	assert.False(t, tr.InTransaction())

	err := datasource.InTransaction(ctx, tr.DataSource(), func(datasource.Transactor) error { return nil })
	assert.True(t, errs.IsCapabilityMismatch(err))
}

func TestTransactor_Closed(t *testing.T) {
	tr := parcelsTransactor(t)
	require.NoError(t, tr.Close())

	_, err := tr.GetDataSet(context.Background(), "parcels")
	assert.True(t, errs.IsPrecondition(err))
}

func TestEscape(t *testing.T) {
	tr := openTransactor(t, nil)
	assert.Equal(t, "'o''brien'", tr.Escape("o'brien"))
	assert.NoError(t, tr.ValidateName("parcels"))
	assert.Error(t, tr.ValidateName("1 bad name"))
}
