package spatial_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/memory"
	"github.com/roach88/dataccess/internal/query"
	"github.com/roach88/dataccess/internal/spatial"
	"github.com/roach88/dataccess/internal/testutil"
)

// recorder passes queries to a memory transactor and keeps what it sent.
type recorder struct {
	datasource.Transactor
	sent []*query.Select
	rows []int
}

func (r *recorder) Query(ctx context.Context, sel *query.Select) (dataset.DataSet, error) {
	r.sent = append(r.sent, query.Clone(sel))
	ds, err := r.Transactor.Query(ctx, sel)
	if err != nil {
		return nil, err
	}
	n, err := ds.Size()
	if err != nil {
		return nil, err
	}
	r.rows = append(r.rows, n)
	return ds, nil
}

func parcels(t *testing.T) *recorder {
	t.Helper()
	ctx := context.Background()
	src, err := memory.Open(ctx, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	tr, err := src.Transactor(ctx)
	require.NoError(t, err)
	testutil.LoadParcels(t, tr)
	return &recorder{Transactor: tr}
}

func ids(t *testing.T, ds dataset.DataSet) []int64 {
	t.Helper()
	var out []int64
	for ds.MoveNext() {
		id, err := dataset.Int64ByName(ds, "id")
		require.NoError(t, err)
		out = append(out, id)
	}
	return out
}

func intersects() *query.Function {
	return query.STIntersects(query.Prop("geom"), query.LitGeom(testutil.TriangleGeometry()))
}

func TestGetDataSet_RefinesEnvelopeCandidates(t *testing.T) {
	tr := parcels(t)
	p := spatial.NewProcessor()

	ds, err := p.GetDataSet(context.Background(), tr, query.BuildSelect("parcels").WithWhere(intersects()))
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, []int64{1, 4}, ids(t, ds))
	require.Len(t, tr.sent, 1)
	assert.Equal(t, []int{4}, tr.rows, "the backend returns every bounding-box candidate")

	var fns []string
	query.Inspect(tr.sent[0], func(n query.Node) bool {
		if f, ok := n.(*query.Function); ok {
			fns = append(fns, f.Name)
		}
		return true
	})
	assert.Equal(t, []string{query.FnEnvelopeIntersects}, fns)
}

func TestGetDataSet_Native(t *testing.T) {
	tr := parcels(t)
	p := spatial.NewProcessor()
	sel := query.BuildEnvelopeSelect("parcels", nil, "geom", geometry.NewEnvelope(0, 0, 10, 10), testutil.ParcelsSRID, geometry.Intersects)
	sel.Where.Expr = query.EnvelopeIntersects(query.Prop("geom"), query.LitEnvelope(geometry.NewEnvelope(0, 0, 10, 10), testutil.ParcelsSRID))

	caps := tr.DataSource().Capabilities().Query
	assert.True(t, p.Native(caps, sel))
	assert.False(t, p.Native(caps, query.BuildSelect("parcels").WithWhere(intersects())))
	assert.True(t, p.Native(caps.WithOperators(capabilities.Operators{Spatial: []string{query.FnIntersects}}),
		query.BuildSelect("parcels").WithWhere(intersects())))

	ds, err := p.GetDataSet(context.Background(), tr, sel)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(t, ds))
	_, filtered := ds.(*dataset.Filtered)
	assert.False(t, filtered, "native selects are passed through")
}

func TestGetDataSet_OrderAndPage(t *testing.T) {
	tr := parcels(t)
	p := spatial.NewProcessor()

	sel := query.BuildSelect("parcels", "name").
		WithWhere(intersects()).
		WithOrderBy(query.DescBy("id")).
		WithLimit(1)
	ds, err := p.GetDataSet(context.Background(), tr, sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, dataset.PropertyNames(ds))
	require.True(t, ds.MoveFirst())
	name, err := dataset.StringByName(ds, "name")
	require.NoError(t, err)
	assert.Equal(t, "delta", name)
	assert.False(t, ds.MoveNext())

	sent := tr.sent[0]
	assert.Nil(t, sent.Limit, "paging applies after refinement")
	assert.Empty(t, sent.OrderBy)
	assert.Equal(t, []string{"name", "geom", "id"}, fieldNames(sent.Fields))

	sel = query.BuildSelect("parcels").WithWhere(intersects()).WithOrderBy(query.AscBy("id")).WithOffset(1)
	ds, err = p.GetDataSet(context.Background(), tr, sel)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids(t, ds))
}

func TestGetDataSet_KeepsRequestedColumns(t *testing.T) {
	ctx := context.Background()
	tr := parcels(t)
	p := spatial.NewProcessor()

	refined, err := p.GetDataSet(ctx, tr, query.BuildSelect("parcels", "id").WithWhere(intersects()))
	require.NoError(t, err)
	defer refined.Close()
	assert.Equal(t, []string{"id"}, dataset.PropertyNames(refined))
	assert.Equal(t, []int64{1, 4}, ids(t, refined))
	_, err = refined.Value(1)
	assert.True(t, errs.IsPrecondition(err))

	native, err := p.GetDataSet(ctx, tr, query.BuildSelect("parcels", "id").
		WithWhere(query.EnvelopeIntersects(query.Prop("geom"), query.LitEnvelope(geometry.NewEnvelope(0, 0, 10, 10), testutil.ParcelsSRID))))
	require.NoError(t, err)
	defer native.Close()
	assert.Equal(t, dataset.PropertyNames(native), dataset.PropertyNames(refined))
}

func fieldNames(fields []*query.Field) []string {
	var out []string
	for _, f := range fields {
		out = append(out, f.Expr.(*query.PropertyName).Name)
	}
	return out
}

func TestGetDataSet_MixedFilters(t *testing.T) {
	ctx := context.Background()
	p := spatial.NewProcessor()

	tests := []struct {
		name   string
		filter query.Expression
		want   []int64
	}{
		{
			name:   "or with attribute",
			filter: query.Or(intersects(), query.EqualTo(query.Prop("id"), query.Lit(datatype.Int(5)))),
			want:   []int64{1, 4, 5},
		},
		{
			name:   "and with attribute",
			filter: query.And(intersects(), query.GreaterThan(query.Prop("id"), query.Lit(datatype.Int(1)))),
			want:   []int64{4},
		},
		{
			name:   "negated",
			filter: query.Not(intersects()),
			want:   []int64{2, 3, 5},
		},
		{
			name:   "disjoint",
			filter: query.STDisjoint(query.Prop("geom"), query.LitGeom(testutil.TriangleGeometry())),
			want:   []int64{2, 3, 5},
		},
		{
			name:   "geometry first",
			filter: query.STContains(query.LitGeom(testutil.TriangleGeometry()), query.Prop("geom")),
			want:   []int64{1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := p.GetDataSet(ctx, parcels(t), query.BuildSelect("parcels").WithWhere(tt.filter))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(t, ds))
		})
	}
}

func TestGetDataSet_Unimplemented(t *testing.T) {
	p := spatial.NewProcessor()
	sel := query.BuildSelect("parcels", "name").WithWhere(intersects())
	sel.Distinct = true

	_, err := p.GetDataSet(context.Background(), parcels(t), sel)
	assert.True(t, errs.IsUnimplemented(err))
}

func TestGetDataSet_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := spatial.NewProcessor().GetDataSet(ctx, parcels(t), query.BuildSelect("parcels").WithWhere(intersects()))
	assert.True(t, errs.IsCancelled(err))
}

// canned answers every query with the same rows.
type canned struct {
	datasource.Transactor
	src datasource.DataSource
	ds  *dataset.Memory
}

func (c *canned) DataSource() datasource.DataSource { return c.src }

func (c *canned) Query(context.Context, *query.Select) (dataset.DataSet, error) {
	return c.ds, nil
}

func TestGetDataSet_SkipsUnreadableRows(t *testing.T) {
	src, err := memory.Open(context.Background(), nil)
	require.NoError(t, err)

	rows := dataset.NewMemory([]datatype.Property{
		datatype.NewProperty("id", datatype.Int32),
		datatype.NewProperty("geom", datatype.Unknown),
	})
	require.NoError(t, rows.Add([]datatype.Value{datatype.Int(1), datatype.NewGeom(geometry.MustWKT("POINT(1 1)", testutil.ParcelsSRID))}))
	require.NoError(t, rows.Add([]datatype.Value{datatype.Int(2), datatype.Str("not a geometry")}))
	require.NoError(t, rows.Add([]datatype.Value{datatype.Int(3), datatype.NewGeom(geometry.MustWKT("POINT(2 2)", testutil.ParcelsSRID))}))
	require.NoError(t, rows.Add([]datatype.Value{datatype.Int(4), datatype.NewGeom(geometry.MustWKT("POINT(2 2)", 3857))}))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := spatial.NewProcessor(spatial.WithLogger(logger))

	ds, err := p.GetDataSet(context.Background(), &canned{src: src, ds: rows}, query.BuildSelect("points").WithWhere(intersects()))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(t, ds))
	assert.Contains(t, buf.String(), "skipping row")
	assert.Contains(t, buf.String(), "skipped=2")
}

func TestGetOIDSet(t *testing.T) {
	tr := parcels(t)
	p := spatial.NewProcessor()

	set, err := p.GetOIDSet(context.Background(), tr, query.BuildSelect("parcels", "name").WithWhere(intersects()), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, set.PropertyNames())
	assert.Equal(t, 2, set.Size())
	assert.True(t, set.Contains(datatype.Int(1)))
	assert.True(t, set.Contains(datatype.Int(4)))

	byName, err := p.GetOIDSet(context.Background(), tr, query.BuildSelect("parcels").WithWhere(intersects()), []string{"name"})
	require.NoError(t, err)
	assert.True(t, byName.Contains(datatype.Str("delta")))
}

func TestByGeometryAndEnvelope(t *testing.T) {
	ctx := context.Background()
	tr := parcels(t)
	p := spatial.NewProcessor()

	ds, err := p.ByGeometry(ctx, tr, "parcels", "geom", testutil.TriangleGeometry(), geometry.Within)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(t, ds))

	ds, err = p.ByEnvelope(ctx, tr, "parcels", "geom", geometry.NewEnvelope(0, 0, 5, 5), testutil.ParcelsSRID, geometry.Intersects)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, ids(t, ds))
}
