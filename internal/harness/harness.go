package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/memory"
	"github.com/roach88/dataccess/internal/oid"
	"github.com/roach88/dataccess/internal/query"
	"github.com/roach88/dataccess/internal/schema"
	"github.com/roach88/dataccess/internal/spatial"
	"github.com/roach88/dataccess/internal/sqlite"
)

// DefaultDrivers are the drivers a scenario runs against when it names none.
var DefaultDrivers = []string{memory.DriverType, sqlite.DriverType}

// Harness runs scenarios. Every run gets a fresh, private data source.
type Harness struct {
	processor *spatial.Processor
	logger    *slog.Logger
	info      map[string]datasource.ConnInfo
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithConnInfo overrides the connection parameters used for driver.
func WithConnInfo(driver string, info datasource.ConnInfo) Option {
	return func(h *Harness) { h.info[driver] = info }
}

// New returns a harness. SQLite runs in memory unless overridden.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		info: map[string]datasource.ConnInfo{
			sqlite.DriverType: {sqlite.KeyFile: ":memory:"},
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.processor = spatial.NewProcessor(spatial.WithLogger(h.logger))
	return h
}

// Run executes sc against driver with the default harness.
func Run(ctx context.Context, sc *Scenario, driver string) (*Result, error) {
	return New().Run(ctx, sc, driver)
}

// Run executes sc against driver. Step failures carrying an error code are
// recorded in the result; anything else, including a broken fixture, aborts
// the run.
func (h *Harness) Run(ctx context.Context, sc *Scenario, driver string) (*Result, error) {
	src, err := datasource.Open(ctx, driver, h.info[driver].Clone())
	if err != nil {
		return nil, fmt.Errorf("open %s data source: %w", driver, err)
	}
	defer src.Close()

	res := &Result{Scenario: sc.Name}
	err = datasource.WithTransactor(ctx, src, func(tr datasource.Transactor) error {
		for _, f := range sc.DataSets {
			if err := load(ctx, tr, f); err != nil {
				return fmt.Errorf("load dataset %q: %w", f.Schema.Name, err)
			}
		}
		for _, st := range sc.Steps {
			sr, err := h.step(ctx, tr, sc.Key, st)
			if err != nil {
				return fmt.Errorf("step %q: %w", st.Name, err)
			}
			h.logger.Debug("step finished", "scenario", sc.Name, "driver", driver,
				"step", st.Name, "count", sr.Count, "error", sr.Error)
			res.Steps = append(res.Steps, sr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// load creates the fixture dataset and adds its rows.
func load(ctx context.Context, tr datasource.Transactor, f Fixture) error {
	dt, err := schema.FromDocument(f.Schema, nil)
	if err != nil {
		return err
	}
	if err := tr.CreateDataSet(ctx, dt, nil); err != nil {
		return err
	}
	if len(f.Rows) == 0 {
		return nil
	}
	m := dataset.NewMemoryFromType(dt)
	for i, row := range f.Rows {
		values := make(map[string]datatype.Value, len(row))
		for name, raw := range row {
			p, ok := dt.Property(name)
			if !ok {
				return fmt.Errorf("row %d: unknown property %q", i, name)
			}
			v, err := literal(p, raw)
			if err != nil {
				return fmt.Errorf("row %d: %s: %w", i, name, err)
			}
			values[name] = v
		}
		if err := m.AddMap(values); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return tr.Add(ctx, dt.Name(), m, nil)
}

// literal parses a fixture value as a value of p.
func literal(p datatype.Property, raw any) (datatype.Value, error) {
	if raw == nil {
		return datatype.Null{}, nil
	}
	return datatype.ParsePropertyLiteral(p, fmt.Sprint(raw))
}

// constant turns a YAML scalar into a query literal.
func constant(raw any) (datatype.Value, error) {
	switch v := raw.(type) {
	case nil:
		return datatype.Null{}, nil
	case int:
		return datatype.Int(v), nil
	case int64:
		return datatype.Int(v), nil
	case float64:
		return datatype.Float(v), nil
	case bool:
		return datatype.Bool(v), nil
	case string:
		return datatype.Str(v), nil
	}
	return nil, fmt.Errorf("unsupported constant %T", raw)
}

func (h *Harness) step(ctx context.Context, tr datasource.Transactor, key string, st Step) (StepResult, error) {
	sr := StepResult{Name: st.Name, IDs: []int64{}}
	var err error
	switch {
	case st.Query != nil:
		sr.IDs, err = h.query(ctx, tr, key, st.Query)
		sr.Count = len(sr.IDs)
	case st.OIDs != nil:
		sr.IDs, err = h.oids(ctx, tr, key, st.OIDs)
		sr.Count = len(sr.IDs)
	case st.Remove != nil:
		sr.Count, err = remove(ctx, tr, key, st.Remove)
	}
	if err == nil {
		return sr, nil
	}
	code := errs.CodeOf(err)
	if code == "" {
		return sr, err
	}
	return StepResult{Name: st.Name, IDs: []int64{}, Error: string(code)}, nil
}

func (h *Harness) query(ctx context.Context, tr datasource.Transactor, key string, q *QuerySpec) ([]int64, error) {
	sel, err := buildSelect(ctx, tr, q)
	if err != nil {
		return nil, err
	}
	ds, err := h.processor.GetDataSet(ctx, tr, sel)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	ids := []int64{}
	ds.MoveBeforeFirst()
	for ds.MoveNext() {
		id, err := dataset.Int64ByName(ds, key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(q.OrderBy) == 0 {
		slices.Sort(ids)
	}
	return ids, nil
}

func (h *Harness) oids(ctx context.Context, tr datasource.Transactor, key string, q *QuerySpec) ([]int64, error) {
	sel, err := buildSelect(ctx, tr, q)
	if err != nil {
		return nil, err
	}
	set, err := h.processor.GetOIDSet(ctx, tr, sel, []string{key})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, set.Size())
	for _, id := range set.IDs() {
		v, err := datatype.Convert(id[0], datatype.Int64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, int64(v.(datatype.Int)))
	}
	slices.Sort(ids)
	return ids, nil
}

// remove deletes the listed keys and returns how many rows remain.
func remove(ctx context.Context, tr datasource.Transactor, key string, r *RemoveSpec) (int, error) {
	b := oid.NewBuilder(key)
	for _, id := range r.IDs {
		if err := b.Add(datatype.Int(id)); err != nil {
			return 0, err
		}
	}
	if err := tr.Remove(ctx, r.DataSet, b.Build()); err != nil {
		return 0, err
	}
	return tr.NumberOfItems(ctx, r.DataSet)
}

func buildSelect(ctx context.Context, tr datasource.Transactor, q *QuerySpec) (*query.Select, error) {
	sel := query.BuildSelect(q.DataSet, q.Fields...)

	var conds []query.Expression
	if q.Filter != "" {
		e, err := query.ParseWhere(q.Filter)
		if err != nil {
			return nil, err
		}
		conds = append(conds, e)
	}
	for _, c := range q.Where {
		v, err := constant(c.Value)
		if err != nil {
			return nil, fmt.Errorf("where %s: %w", c.Property, err)
		}
		conds = append(conds, query.Fn(strings.ToUpper(c.Op), query.Prop(c.Property), query.Lit(v)))
	}
	if q.Geometry != "" || len(q.BBox) > 0 {
		cond, err := spatialCondition(ctx, tr, q)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	switch len(conds) {
	case 0:
	case 1:
		sel.WithWhere(conds[0])
	default:
		sel.WithWhere(query.And(conds...))
	}

	var order []*query.OrderByItem
	for _, name := range q.OrderBy {
		if desc, ok := strings.CutPrefix(name, "-"); ok {
			order = append(order, query.DescBy(desc))
			continue
		}
		order = append(order, query.AscBy(name))
	}
	if len(order) > 0 {
		sel.WithOrderBy(order...)
	}
	if q.Limit > 0 {
		sel.WithLimit(q.Limit)
	}
	if q.Offset > 0 {
		sel.WithOffset(q.Offset)
	}
	return sel, nil
}

// spatialCondition relates the geometry property to the step's geometry or
// box, read in the property's SRID.
func spatialCondition(ctx context.Context, tr datasource.Transactor, q *QuerySpec) (query.Expression, error) {
	rel := geometry.Intersects
	if q.Relation != "" {
		var err error
		if rel, err = geometry.ParseRelation(q.Relation); err != nil {
			return nil, err
		}
	}
	if len(q.BBox) == 4 {
		e := geometry.NewEnvelope(q.BBox[0], q.BBox[1], q.BBox[2], q.BBox[3])
		return spatial.EnvelopeFilter(ctx, tr, q.DataSet, q.Property, e, rel)
	}
	return spatial.GeometryFilter(ctx, tr, q.DataSet, q.Property, q.Geometry, rel)
}
