package spatial

import (
	"context"
	"log/slog"
	"slices"
	"sort"

	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/eval"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/oid"
	"github.com/roach88/dataccess/internal/query"
	"github.com/roach88/dataccess/internal/restriction"
)

// Processor runs selects whose spatial predicates a backend cannot evaluate.
//
// The backend receives a coarse query where each recognised predicate is
// replaced by an envelope intersection, which any geometry-capable backend
// supports. The coarse rows are then refined by evaluating the original
// filter exactly, and the survivors are exposed as a Filtered view over
// the coarse result.
//
// A Processor holds no per-query state and is safe for concurrent use.
type Processor struct {
	engine geometry.Engine
	eval   *eval.Evaluator
	logger *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithEngine sets the geometry engine used for envelopes and exact
// relations.
func WithEngine(eng geometry.Engine) Option {
	return func(p *Processor) {
		if eng != nil {
			p.engine = eng
		}
	}
}

// WithLogger sets the logger. Skipped rows are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProcessor returns a processor using the default geometry engine and
// slog.Default.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		engine: geometry.DefaultEngine(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.eval = eval.New(p.engine)
	return p
}

// Native reports whether the backend can run sel as is: sel has no
// recognised spatial restriction, or the backend supports every one of
// them.
func (p *Processor) Native(caps capabilities.QueryCapabilities, sel *query.Select) bool {
	for _, r := range restriction.FindSpatialWith(sel, p.engine) {
		if !caps.SupportsSpatial(r.Function.Name) {
			return false
		}
	}
	return true
}

// GetDataSet runs sel through tr, refining in memory the spatial
// predicates tr cannot evaluate. The caller closes the result.
//
// With refinement, ORDER BY, LIMIT and OFFSET are applied to the refined
// rows; DISTINCT, GROUP BY and HAVING fail with UNIMPLEMENTED.
func (p *Processor) GetDataSet(ctx context.Context, tr datasource.Transactor, sel *query.Select) (dataset.DataSet, error) {
	if sel == nil {
		return nil, errs.Precondition("nil select")
	}
	caps := tr.DataSource().Capabilities().Query
	if p.Native(caps, sel) {
		p.logger.Debug("spatial query runs natively", "datasets", query.DataSetNames(sel.From))
		return tr.Query(ctx, sel)
	}
	if sel.Distinct || len(sel.GroupBy) > 0 || sel.Having != nil {
		return nil, errs.Unimplemented("DISTINCT, GROUP BY and HAVING cannot be refined in memory")
	}

	coarse := p.coarseSelect(caps, sel)
	p.logger.Debug("spatial query refined in memory",
		"datasets", query.DataSetNames(sel.From),
		"filter_properties", query.PropertyNames(coarse.Where),
	)

	ds, err := tr.Query(ctx, coarse)
	if err != nil {
		return nil, err
	}
	positions, err := p.refine(ctx, ds, sel)
	if err != nil {
		ds.Close()
		return nil, err
	}
	// Properties added for refinement are hidden again.
	if n := len(sel.Fields); n > 0 && ds.NumProperties() > n {
		cols := make([]int, n)
		for i := range cols {
			cols[i] = i
		}
		out, err := dataset.NewProjected(ds, positions, cols, true)
		if err != nil {
			ds.Close()
			return nil, err
		}
		return out, nil
	}
	return dataset.NewFiltered(ds, positions, true), nil
}

// GetOIDSet identifies the rows GetDataSet would return. With no names the
// signature comes from the dataset type of the single from-item.
func (p *Processor) GetOIDSet(ctx context.Context, tr datasource.Transactor, sel *query.Select, names []string) (*oid.Set, error) {
	if sel == nil {
		return nil, errs.Precondition("nil select")
	}
	if len(names) == 0 {
		from := query.DataSetNames(sel.From)
		if len(from) != 1 {
			return nil, errs.Precondition("identity signature needed for a select over %d datasets", len(from))
		}
		dt, err := tr.DataSetType(ctx, from[0])
		if err != nil {
			return nil, err
		}
		names = oid.PropertyNames(dt)
	}

	q := query.Clone(sel)
	q.Fields = withProperties(q.Fields, names)
	ds, err := p.GetDataSet(ctx, tr, q)
	if err != nil {
		return nil, err
	}
	defer ds.Close()
	return oid.GenerateOIDSet(ds, names)
}

// ByGeometry returns the rows of a dataset whose geometry property relates
// to g.
func (p *Processor) ByGeometry(ctx context.Context, tr datasource.Transactor, name, geomProp string, g geometry.Geometry, rel geometry.Relation) (dataset.DataSet, error) {
	return p.GetDataSet(ctx, tr, query.BuildSpatialSelect(name, nil, geomProp, g, rel))
}

// ByEnvelope returns the rows of a dataset whose geometry property relates
// to the rectangle e, expressed in srid.
func (p *Processor) ByEnvelope(ctx context.Context, tr datasource.Transactor, name, geomProp string, e geometry.Envelope, srid int, rel geometry.Relation) (dataset.DataSet, error) {
	return p.GetDataSet(ctx, tr, query.BuildEnvelopeSelect(name, nil, geomProp, e, srid, rel))
}

// coarseSelect copies sel with an envelope-only filter, no ordering or
// paging, and every property the refinement reads appended after the
// requested fields.
func (p *Processor) coarseSelect(caps capabilities.QueryCapabilities, sel *query.Select) *query.Select {
	found := map[*query.Function]restriction.SpatialRestriction{}
	for _, r := range restriction.FindSpatialWith(sel, p.engine) {
		found[r.Function] = r
	}

	coarse := query.Clone(sel)
	coarse.Where = &query.Where{Expr: coarsen(caps, found, sel.Where.Expr)}
	coarse.OrderBy = nil
	coarse.Limit = nil
	coarse.Offset = nil

	needed := query.PropertyNames(sel.Where)
	for _, o := range sel.OrderBy {
		needed = append(needed, query.PropertyNames(o)...)
	}
	coarse.Fields = withProperties(coarse.Fields, needed)
	return coarse
}

// withProperties appends the named properties missing from an explicit
// field list. A nil list already selects everything.
func withProperties(fields []*query.Field, names []string) []*query.Field {
	if len(fields) == 0 {
		return fields
	}
	for _, n := range names {
		present := slices.ContainsFunc(fields, func(f *query.Field) bool {
			pn, ok := f.Expr.(*query.PropertyName)
			return ok && pn.Name == n && (f.Alias == "" || f.Alias == n)
		})
		if !present {
			fields = append(fields, &query.Field{Expr: query.Prop(n)})
		}
	}
	return fields
}

// coarsen returns a filter that holds for at least every row e holds for
// and that the backend can evaluate. Recognised predicates become envelope
// intersections. Subtrees that cannot be approximated that way (negations,
// comparisons over spatial results, unsupported spatial functions, DISJOINT)
// become TRUE.
func coarsen(caps capabilities.QueryCapabilities, found map[*query.Function]restriction.SpatialRestriction, e query.Expression) query.Expression {
	f, ok := e.(*query.Function)
	if !ok {
		return query.CloneExpression(e)
	}
	if r, ok := found[f]; ok {
		if r.Relation == geometry.Disjoint {
			return query.Lit(datatype.Bool(true))
		}
		prop := f.Args[0]
		if !r.PropertyFirst {
			prop = f.Args[1]
		}
		return query.EnvelopeIntersects(query.CloneExpression(prop), query.LitEnvelope(r.Envelope, r.Geometry.SRID()))
	}
	if f.Is(query.OpAnd) || f.Is(query.OpOr) {
		args := make([]query.Expression, len(f.Args))
		for i, a := range f.Args {
			args[i] = coarsen(caps, found, a)
		}
		return query.Fn(f.Name, args...)
	}
	if needsRefinement(caps, found, f) {
		return query.Lit(datatype.Bool(true))
	}
	return query.CloneExpression(f)
}

func needsRefinement(caps capabilities.QueryCapabilities, found map[*query.Function]restriction.SpatialRestriction, e query.Expression) bool {
	needs := false
	query.Inspect(e, func(n query.Node) bool {
		f, ok := n.(*query.Function)
		if !ok || needs {
			return !needs
		}
		if _, ok := found[f]; ok {
			needs = true
		} else if _, ok := query.SpatialRelation(f.Name); ok && !caps.SupportsSpatial(f.Name) {
			needs = true
		}
		return !needs
	})
	return needs
}

type ranked struct {
	pos  int
	keys []datatype.Value
}

// refine scans ds once and returns the positions of the rows satisfying
// the filter of sel, ordered and paged as sel asks. Rows whose values
// cannot be extracted are skipped.
func (p *Processor) refine(ctx context.Context, ds dataset.DataSet, sel *query.Select) ([]int, error) {
	if !ds.MoveBeforeFirst() {
		return nil, errs.Precondition("cannot rewind coarse result")
	}
	var filter query.Expression
	if sel.Where != nil {
		filter = sel.Where.Expr
	}

	var rows []ranked
	skipped, scanned := 0, 0
	for pos := 0; ds.MoveNext(); pos++ {
		scanned++
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.CodeCancelled, err, "spatial refinement")
		}
		keys, ok, err := p.match(filter, sel.OrderBy, dataset.CurrentRow(ds))
		if errs.IsRowExtraction(err) {
			skipped++
			p.logger.Debug("skipping row", "position", pos, "error", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rows = append(rows, ranked{pos: pos, keys: keys})
	}
	p.logger.Debug("spatial refinement done",
		"coarse", scanned,
		"refined", len(rows),
		"skipped", skipped,
	)

	if len(sel.OrderBy) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			return eval.Less(sel.OrderBy, rows[i].keys, rows[j].keys)
		})
	}
	rows = eval.Window(rows, sel.Offset, sel.Limit)

	positions := make([]int, len(rows))
	for i, r := range rows {
		positions[i] = r.pos
	}
	return positions, nil
}

// match tests one row and, when it passes, computes its sort keys.
func (p *Processor) match(filter query.Expression, order []*query.OrderByItem, row eval.Row) ([]datatype.Value, bool, error) {
	ok, err := p.eval.Test(filter, row)
	if err != nil || !ok {
		return nil, false, err
	}
	keys, err := p.eval.OrderKeys(order, row)
	if err != nil {
		return nil, false, err
	}
	return keys, true, nil
}
