package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/eval"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/oid"
	"github.com/roach88/dataccess/internal/query"
	"github.com/roach88/dataccess/internal/schema"
	"github.com/roach88/dataccess/internal/spatial"
)

// Transactor reads and writes a memory repository. The backend has no
// transactions: every write applies immediately and atomically.
type Transactor struct {
	src     *DataSource
	repo    *repository
	eval    *eval.Evaluator
	spatial *spatial.Processor
	lastID  int64
	closed  bool
}

var _ datasource.Transactor = (*Transactor)(nil)

func newTransactor(src *DataSource, repo *repository) *Transactor {
	return &Transactor{
		src:     src,
		repo:    repo,
		eval:    eval.New(nil),
		spatial: spatial.NewProcessor(),
	}
}

// read runs fn under the repository read lock.
func (tr *Transactor) read(fn func() error) error {
	if tr.closed {
		return errs.Precondition("transactor is closed")
	}
	tr.repo.mu.RLock()
	defer tr.repo.mu.RUnlock()
	return fn()
}

// write runs fn under the repository write lock.
func (tr *Transactor) write(fn func() error) error {
	if tr.closed {
		return errs.Precondition("transactor is closed")
	}
	tr.repo.mu.Lock()
	defer tr.repo.mu.Unlock()
	return fn()
}

// withTable runs fn on the named table under the write lock. When fn
// fails the table is left as it was.
func (tr *Transactor) withTable(name string, fn func(t *table) error) error {
	return tr.write(func() error {
		t, err := tr.repo.table(name)
		if err != nil {
			return err
		}
		work := &table{dt: t.dt.Clone(), rows: slices.Clone(t.rows), seq: t.seq}
		if err := fn(work); err != nil {
			return err
		}
		*t = *work
		return nil
	})
}

func (tr *Transactor) DataSource() datasource.DataSource { return tr.src }

func (tr *Transactor) Begin(context.Context) error {
	return errs.CapabilityMismatch("memory backend has no transactions")
}

func (tr *Transactor) Commit(context.Context) error {
	return errs.CapabilityMismatch("memory backend has no transactions")
}

func (tr *Transactor) Rollback(context.Context) error {
	return errs.CapabilityMismatch("memory backend has no transactions")
}

func (tr *Transactor) InTransaction() bool { return false }

func (tr *Transactor) GetDataSet(ctx context.Context, name string) (dataset.DataSet, error) {
	return tr.Query(ctx, query.BuildSelect(name))
}

func (tr *Transactor) GetDataSetByEnvelope(ctx context.Context, name, geomProp string, e geometry.Envelope, rel geometry.Relation) (dataset.DataSet, error) {
	srid, err := tr.geometrySRID(name, geomProp)
	if err != nil {
		return nil, err
	}
	return tr.spatial.ByEnvelope(ctx, tr, name, geomProp, e, srid, rel)
}

func (tr *Transactor) GetDataSetByGeometry(ctx context.Context, name, geomProp string, g geometry.Geometry, rel geometry.Relation) (dataset.DataSet, error) {
	if _, err := tr.geometrySRID(name, geomProp); err != nil {
		return nil, err
	}
	return tr.spatial.ByGeometry(ctx, tr, name, geomProp, g, rel)
}

func (tr *Transactor) geometrySRID(name, geomProp string) (int, error) {
	var srid int
	err := tr.read(func() error {
		t, err := tr.repo.table(name)
		if err != nil {
			return err
		}
		p, ok := t.dt.Property(geomProp)
		if !ok || p.Type != datatype.Geometry {
			return errs.Precondition("property %q is not a geometry", geomProp).WithDataSet(name).WithProperty(geomProp)
		}
		srid = p.SRID
		return nil
	})
	return srid, err
}

func (tr *Transactor) GetDataSetByOIDs(ctx context.Context, name string, oids *oid.Set) (dataset.DataSet, error) {
	if oids == nil {
		return nil, errs.Precondition("nil identity set")
	}
	return tr.Query(ctx, oid.BuildSelect(name, nil, oids))
}

// Query evaluates sel row by row. Spatial predicates other than
// ST_EnvelopeIntersects fail with CAPABILITY_MISMATCH; use the spatial
// processor for those.
func (tr *Transactor) Query(ctx context.Context, sel *query.Select) (dataset.DataSet, error) {
	if sel == nil {
		return nil, errs.Precondition("nil select")
	}
	var out *dataset.Memory
	err := tr.read(func() error {
		var err error
		out, err = tr.selectRows(ctx, tr.src.caps.Query, sel)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (tr *Transactor) QuerySQL(context.Context, string) (dataset.DataSet, error) {
	return nil, errs.CapabilityMismatch("memory backend has no SQL dialect")
}

func (tr *Transactor) ExecuteSQL(context.Context, string) error {
	return errs.CapabilityMismatch("memory backend has no SQL dialect")
}

func (tr *Transactor) Cancel() error { return nil }

func (tr *Transactor) LastGeneratedID() int64 { return tr.lastID }

// Escape quotes value as a SQL string literal.
func (tr *Transactor) Escape(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func (tr *Transactor) ValidateName(name string) error { return schema.ValidateName(name) }

func (tr *Transactor) DataSetNames(context.Context) ([]string, error) {
	var names []string
	err := tr.read(func() error {
		names = tr.repo.names()
		return nil
	})
	return names, err
}

func (tr *Transactor) NumberOfDataSets(ctx context.Context) (int, error) {
	names, err := tr.DataSetNames(ctx)
	return len(names), err
}

// DataSetType returns a copy of the stored type.
func (tr *Transactor) DataSetType(_ context.Context, name string) (*schema.DataSetType, error) {
	var dt *schema.DataSetType
	err := tr.read(func() error {
		t, err := tr.repo.table(name)
		if err != nil {
			return err
		}
		dt = t.dt.Clone()
		return nil
	})
	return dt, err
}

func (tr *Transactor) Properties(ctx context.Context, name string) ([]datatype.Property, error) {
	dt, err := tr.DataSetType(ctx, name)
	if err != nil {
		return nil, err
	}
	return dt.Properties(), nil
}

func (tr *Transactor) PropertyExists(ctx context.Context, name, prop string) (bool, error) {
	dt, err := tr.DataSetType(ctx, name)
	if err != nil {
		return false, err
	}
	return dt.PropertyPos(prop) >= 0, nil
}

// PrimaryKey returns the primary key, or nil when the dataset has none.
func (tr *Transactor) PrimaryKey(ctx context.Context, name string) (*schema.PrimaryKey, error) {
	dt, err := tr.DataSetType(ctx, name)
	if err != nil {
		return nil, err
	}
	return dt.PrimaryKey(), nil
}

func (tr *Transactor) UniqueKeyNames(ctx context.Context, name string) ([]string, error) {
	dt, err := tr.DataSetType(ctx, name)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, uk := range dt.UniqueKeys() {
		names = append(names, uk.Name)
	}
	return names, nil
}

func (tr *Transactor) IndexNames(ctx context.Context, name string) ([]string, error) {
	dt, err := tr.DataSetType(ctx, name)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, ix := range dt.Indexes() {
		names = append(names, ix.Name)
	}
	return names, nil
}

func (tr *Transactor) Extent(_ context.Context, name, geomProp string) (geometry.Envelope, error) {
	env := geometry.Empty()
	err := tr.read(func() error {
		t, err := tr.repo.table(name)
		if err != nil {
			return err
		}
		i := t.dt.PropertyPos(geomProp)
		if i < 0 || t.dt.PropertyAt(i).Type != datatype.Geometry {
			return errs.Precondition("property %q is not a geometry", geomProp).WithDataSet(name).WithProperty(geomProp)
		}
		for _, row := range t.rows {
			if g, ok := row[i].(datatype.Geom); ok {
				env = env.Union(g.Envelope())
			}
		}
		return nil
	})
	return env, err
}

func (tr *Transactor) NumberOfItems(_ context.Context, name string) (int, error) {
	var n int
	err := tr.read(func() error {
		t, err := tr.repo.table(name)
		if err != nil {
			return err
		}
		n = len(t.rows)
		return nil
	})
	return n, err
}

func (tr *Transactor) DataSetExists(_ context.Context, name string) (bool, error) {
	var ok bool
	err := tr.read(func() error {
		_, ok = tr.repo.tables[name]
		return nil
	})
	return ok, err
}

// CreateDataSet stores a copy of dt. Options are ignored.
func (tr *Transactor) CreateDataSet(_ context.Context, dt *schema.DataSetType, _ datasource.Options) error {
	if dt == nil {
		return errs.Precondition("nil dataset type")
	}
	if err := schema.ValidateName(dt.Name()); err != nil {
		return err
	}
	if problems := dt.Validate(); len(problems) > 0 {
		return errs.Precondition("invalid dataset type: %s", problems[0]).WithDataSet(dt.Name())
	}
	for _, p := range dt.Properties() {
		if !tr.src.caps.DataType.Supports(p.Type) {
			return errs.CapabilityMismatch("type %s of property %q is not supported", p.Type, p.Name).WithDataSet(dt.Name())
		}
	}
	return tr.write(func() error {
		if _, ok := tr.repo.tables[dt.Name()]; ok {
			return errs.AlreadyExists("dataset %q already exists", dt.Name()).WithDataSet(dt.Name())
		}
		if limit := tr.src.maxDataSets; limit > 0 && len(tr.repo.tables) >= limit {
			return errs.Precondition("repository holds the maximum of %d datasets", limit)
		}
		tr.repo.tables[dt.Name()] = &table{dt: dt.Clone()}
		return nil
	})
}

func (tr *Transactor) DropDataSet(_ context.Context, name string) error {
	return tr.write(func() error {
		if _, err := tr.repo.table(name); err != nil {
			return err
		}
		delete(tr.repo.tables, name)
		return nil
	})
}

func (tr *Transactor) RenameDataSet(_ context.Context, name, newName string) error {
	if err := schema.ValidateName(newName); err != nil {
		return err
	}
	return tr.write(func() error {
		t, err := tr.repo.table(name)
		if err != nil {
			return err
		}
		if _, ok := tr.repo.tables[newName]; ok {
			return errs.AlreadyExists("dataset %q already exists", newName).WithDataSet(newName)
		}
		t.dt.SetName(newName)
		delete(tr.repo.tables, name)
		tr.repo.tables[newName] = t
		return nil
	})
}

// AddProperty appends a property. Existing rows take its default value.
func (tr *Transactor) AddProperty(_ context.Context, name string, p datatype.Property) error {
	if err := schema.ValidateName(p.Name); err != nil {
		return err
	}
	if !tr.src.caps.DataType.Supports(p.Type) {
		return errs.CapabilityMismatch("type %s of property %q is not supported", p.Type, p.Name).WithDataSet(name)
	}
	return tr.withTable(name, func(t *table) error {
		if err := t.dt.AddProperty(p); err != nil {
			return err
		}
		var fill datatype.Value = datatype.Null{}
		if p.DefaultValue != nil {
			v, err := datatype.ParseLiteral(*p.DefaultValue, p.Type)
			if err != nil {
				return errs.Wrap(errs.CodePrecondition, err, "default of property %q", p.Name).WithDataSet(name)
			}
			fill = v
		}
		rows := make([][]datatype.Value, len(t.rows))
		for i, row := range t.rows {
			rows[i] = append(slices.Clone(row), datatype.Clone(fill))
		}
		t.rows = rows
		return check(t.dt, t.rows)
	})
}

func (tr *Transactor) DropProperty(_ context.Context, name, prop string) error {
	return tr.withTable(name, func(t *table) error {
		i := t.dt.PropertyPos(prop)
		if err := t.dt.RemoveProperty(prop); err != nil {
			return err
		}
		rows := make([][]datatype.Value, len(t.rows))
		for k, row := range t.rows {
			rows[k] = slices.Delete(slices.Clone(row), i, i+1)
		}
		t.rows = rows
		return nil
	})
}

// AddPrimaryKey fails with ALREADY_EXISTS when stored rows repeat a key.
func (tr *Transactor) AddPrimaryKey(_ context.Context, name string, pk schema.PrimaryKey) error {
	return tr.withTable(name, func(t *table) error {
		if err := t.dt.SetPrimaryKey(pk); err != nil {
			return err
		}
		return check(t.dt, t.rows)
	})
}

func (tr *Transactor) DropPrimaryKey(_ context.Context, name string) error {
	return tr.withTable(name, func(t *table) error { return t.dt.DropPrimaryKey() })
}

func (tr *Transactor) AddUniqueKey(_ context.Context, name string, uk schema.UniqueKey) error {
	return tr.withTable(name, func(t *table) error {
		if err := t.dt.AddUniqueKey(uk); err != nil {
			return err
		}
		return check(t.dt, t.rows)
	})
}

func (tr *Transactor) DropUniqueKey(_ context.Context, name, key string) error {
	return tr.withTable(name, func(t *table) error { return t.dt.RemoveUniqueKey(key) })
}

// AddIndex records the index in the dataset type. Rows are scanned
// regardless.
func (tr *Transactor) AddIndex(_ context.Context, name string, ix schema.Index, _ datasource.Options) error {
	return tr.withTable(name, func(t *table) error { return t.dt.AddIndex(ix) })
}

func (tr *Transactor) DropIndex(_ context.Context, name, index string) error {
	return tr.withTable(name, func(t *table) error { return t.dt.RemoveIndex(index) })
}

// AddCheckConstraint records the constraint. Its expression is not
// enforced.
func (tr *Transactor) AddCheckConstraint(_ context.Context, name string, cc schema.CheckConstraint) error {
	return tr.withTable(name, func(t *table) error { return t.dt.AddCheckConstraint(cc) })
}

// Add appends every row of ds. Either all rows are added or none.
func (tr *Transactor) Add(ctx context.Context, name string, ds dataset.DataSet, _ datasource.Options) error {
	if ds == nil {
		return errs.Precondition("nil dataset")
	}
	return tr.withTable(name, func(t *table) error {
		props := t.dt.Properties()
		src := make([]int, len(props))
		present := make([]bool, len(props))
		for i, p := range props {
			src[i] = dataset.PropertyPos(ds, p.Name)
			present[i] = src[i] >= 0
		}
		if !ds.MoveBeforeFirst() {
			return errs.Precondition("cannot rewind source dataset")
		}
		values := make([]datatype.Value, len(props))
		for n := 0; ds.MoveNext(); n++ {
			if n%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return errs.Wrap(errs.CodeCancelled, err, "add to %q", name)
				}
			}
			for i := range props {
				values[i] = datatype.Null{}
				if present[i] {
					v, err := ds.Value(src[i])
					if err != nil {
						return err
					}
					values[i] = v
				}
			}
			row, err := t.newRow(values, present)
			if err != nil {
				return err
			}
			if id := t.number(row); id != 0 {
				tr.lastID = id
			}
			t.rows = append(t.rows, row)
		}
		return check(t.dt, t.rows)
	})
}

// Remove deletes the identified rows, or every row when oids is nil.
func (tr *Transactor) Remove(_ context.Context, name string, oids *oid.Set) error {
	return tr.withTable(name, func(t *table) error {
		if oids == nil {
			t.rows = nil
			return nil
		}
		cols, err := t.positions(oids.PropertyNames())
		if err != nil {
			return err
		}
		kept := t.rows[:0:0]
		for _, row := range t.rows {
			k, err := datatype.RowKey(pick(row, cols))
			if err != nil {
				return errs.Wrap(errs.CodeRowExtraction, err, "row identity").WithDataSet(name)
			}
			if !oids.ContainsKey(k) {
				kept = append(kept, row)
			}
		}
		t.rows = kept
		return nil
	})
}

// Update copies props from the rows of ds onto stored rows with the same
// identity. With nil oids, rows are identified by the signature of the
// stored type and every row of ds applies.
func (tr *Transactor) Update(_ context.Context, name string, ds dataset.DataSet, props []string, oids *oid.Set) error {
	if ds == nil {
		return errs.Precondition("nil dataset")
	}
	return tr.withTable(name, func(t *table) error {
		var sig []string
		if oids != nil {
			sig = oids.PropertyNames()
		} else {
			sig = oid.PropertyNames(t.dt)
		}
		keyCols, err := t.positions(sig)
		if err != nil {
			return err
		}
		setCols, err := t.positions(props)
		if err != nil {
			return err
		}
		srcKey := make([]int, len(sig))
		for i, n := range sig {
			if srcKey[i] = dataset.PropertyPos(ds, n); srcKey[i] < 0 {
				return errs.Precondition("source dataset lacks identity property %q", n).WithProperty(n)
			}
		}
		srcSet := make([]int, len(props))
		for i, n := range props {
			if srcSet[i] = dataset.PropertyPos(ds, n); srcSet[i] < 0 {
				return errs.Precondition("source dataset lacks property %q", n).WithProperty(n)
			}
		}

		updates := map[string][]datatype.Value{}
		if !ds.MoveBeforeFirst() {
			return errs.Precondition("cannot rewind source dataset")
		}
		for ds.MoveNext() {
			id := make([]datatype.Value, len(srcKey))
			for i, c := range srcKey {
				v, err := ds.Value(c)
				if err != nil {
					return err
				}
				id[i] = v
			}
			k, err := datatype.RowKey(id)
			if err != nil {
				return errs.Wrap(errs.CodeRowExtraction, err, "row identity").WithDataSet(name)
			}
			if oids != nil && !oids.ContainsKey(k) {
				continue
			}
			vals := make([]datatype.Value, len(srcSet))
			for i, c := range srcSet {
				v, err := ds.Value(c)
				if err != nil {
					return err
				}
				if vals[i], err = dataset.Coerce(t.dt.PropertyAt(setCols[i]), v); err != nil {
					return err
				}
			}
			updates[k] = vals
		}

		for r, row := range t.rows {
			k, err := datatype.RowKey(pick(row, keyCols))
			if err != nil {
				return errs.Wrap(errs.CodeRowExtraction, err, "row identity").WithDataSet(name)
			}
			vals, ok := updates[k]
			if !ok {
				continue
			}
			updated := slices.Clone(row)
			for i, c := range setCols {
				updated[c] = vals[i]
			}
			t.rows[r] = updated
		}
		return check(t.dt, t.rows)
	})
}

// Close releases the transactor. Later calls fail with PRECONDITION.
func (tr *Transactor) Close() error {
	tr.closed = true
	return nil
}
