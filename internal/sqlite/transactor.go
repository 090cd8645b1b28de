package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
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
	"github.com/roach88/dataccess/internal/sqldialect"
)

// Transactor runs statements on a SQLite connection.
//
// Outside an explicit transaction each write runs in its own transaction.
// Inside one, each write runs under a savepoint, so a failed write leaves
// the transaction as it was before the call.
type Transactor struct {
	src     *DataSource
	db      *sql.DB
	tx      *sql.Tx
	dialect *sqldialect.Dialect
	eval    *eval.Evaluator
	spatial *spatial.Processor
	lastID  int64
	closed  bool
}

var _ datasource.Transactor = (*Transactor)(nil)

func newTransactor(src *DataSource, db *sql.DB) *Transactor {
	return &Transactor{
		src:     src,
		db:      db,
		dialect: Dialect(),
		eval:    eval.New(nil),
		spatial: spatial.NewProcessor(),
	}
}

// q returns the open transaction, or the pool. Statements must never go
// through the pool while a transaction holds the only connection.
func (tr *Transactor) q() querier {
	if tr.tx != nil {
		return tr.tx
	}
	return tr.db
}

func (tr *Transactor) ready() error {
	if tr.closed {
		return errs.Precondition("transactor is closed")
	}
	return nil
}

// run executes fn with a cancellable statement context registered for
// Cancel.
func (tr *Transactor) run(ctx context.Context, fn func(ctx context.Context, q querier) error) error {
	if err := tr.ready(); err != nil {
		return err
	}
	ctx, done := tr.src.stmts.start(ctx)
	defer done()
	return fn(ctx, tr.q())
}

// withTx runs fn atomically.
func (tr *Transactor) withTx(ctx context.Context, fn func(ctx context.Context, q querier) error) error {
	if err := tr.ready(); err != nil {
		return err
	}
	ctx, done := tr.src.stmts.start(ctx)
	defer done()

	if tr.tx != nil {
		return savepoint(ctx, tr.tx, fn)
	}
	tx, err := tr.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err, "begin transaction")
	}
	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(err, "commit")
	}
	return nil
}

const savepointName = "dataccess_write"

func savepoint(ctx context.Context, tx *sql.Tx, fn func(ctx context.Context, q querier) error) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepointName); err != nil {
		return mapError(err, "savepoint")
	}
	if err := fn(ctx, tx); err != nil {
		// The statement context may be cancelled already.
		bg := context.WithoutCancel(ctx)
		if _, rbErr := tx.ExecContext(bg, "ROLLBACK TO "+savepointName); rbErr != nil {
			slog.Warn("rollback to savepoint failed", "error", rbErr)
		}
		if _, rbErr := tx.ExecContext(bg, "RELEASE "+savepointName); rbErr != nil {
			slog.Warn("release savepoint failed", "error", rbErr)
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "RELEASE "+savepointName); err != nil {
		return mapError(err, "release savepoint")
	}
	return nil
}

func exec(ctx context.Context, q querier, stmt string, args ...any) (sql.Result, error) {
	slog.Debug("sqlite exec", "sql", stmt, "args", len(args))
	res, err := q.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, mapError(err, "execute %q", stmt)
	}
	return res, nil
}

func (tr *Transactor) DataSource() datasource.DataSource { return tr.src }

// Begin starts a transaction. The transaction outlives ctx: it ends with
// Commit, Rollback or Close.
func (tr *Transactor) Begin(ctx context.Context) error {
	if err := tr.ready(); err != nil {
		return err
	}
	if tr.tx != nil {
		return errs.Precondition("transaction already in progress")
	}
	tx, err := tr.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return mapError(err, "begin transaction")
	}
	tr.tx = tx
	return nil
}

func (tr *Transactor) Commit(context.Context) error {
	if tr.tx == nil {
		return errs.Precondition("no transaction in progress")
	}
	tx := tr.tx
	tr.tx = nil
	if err := tx.Commit(); err != nil {
		return mapError(err, "commit")
	}
	return nil
}

func (tr *Transactor) Rollback(context.Context) error {
	if tr.tx == nil {
		return errs.Precondition("no transaction in progress")
	}
	tx := tr.tx
	tr.tx = nil
	if err := tx.Rollback(); err != nil {
		return mapError(err, "rollback")
	}
	return nil
}

func (tr *Transactor) InTransaction() bool { return tr.tx != nil }

func (tr *Transactor) GetDataSet(ctx context.Context, name string) (dataset.DataSet, error) {
	return tr.Query(ctx, query.BuildSelect(name))
}

// GetDataSetByEnvelope runs envelope intersection natively and refines
// other relations through the spatial processor.
func (tr *Transactor) GetDataSetByEnvelope(ctx context.Context, name, geomProp string, e geometry.Envelope, rel geometry.Relation) (dataset.DataSet, error) {
	srid, err := tr.geometrySRID(ctx, name, geomProp)
	if err != nil {
		return nil, err
	}
	return tr.spatial.ByEnvelope(ctx, tr, name, geomProp, e, srid, rel)
}

func (tr *Transactor) GetDataSetByGeometry(ctx context.Context, name, geomProp string, g geometry.Geometry, rel geometry.Relation) (dataset.DataSet, error) {
	if _, err := tr.geometrySRID(ctx, name, geomProp); err != nil {
		return nil, err
	}
	return tr.spatial.ByGeometry(ctx, tr, name, geomProp, g, rel)
}

func (tr *Transactor) geometrySRID(ctx context.Context, name, geomProp string) (int, error) {
	dt, err := tr.DataSetType(ctx, name)
	if err != nil {
		return 0, err
	}
	p, ok := dt.Property(geomProp)
	if !ok || p.Type != datatype.Geometry {
		return 0, errs.Precondition("property %q is not a geometry", geomProp).WithDataSet(name).WithProperty(geomProp)
	}
	return p.SRID, nil
}

func (tr *Transactor) GetDataSetByOIDs(ctx context.Context, name string, oids *oid.Set) (dataset.DataSet, error) {
	if oids == nil {
		return nil, errs.Precondition("nil identity set")
	}
	return tr.Query(ctx, oid.BuildSelect(name, nil, oids))
}

// Cancel interrupts the statements running on the data source.
func (tr *Transactor) Cancel() error { return tr.src.Cancel() }

func (tr *Transactor) LastGeneratedID() int64 { return tr.lastID }

// Escape quotes value as a SQL string literal.
func (tr *Transactor) Escape(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// ValidateName accepts portable identifiers that do not collide with the
// catalog table or the geometry shadow columns.
func (tr *Transactor) ValidateName(name string) error {
	if err := schema.ValidateName(name); err != nil {
		return err
	}
	if strings.EqualFold(name, catalogTable) {
		return errs.Precondition("name %q is reserved", name)
	}
	for _, suffix := range shadowSuffixes {
		if strings.HasSuffix(strings.ToLower(name), suffix) {
			return errs.Precondition("name %q ends with reserved suffix %q", name, suffix)
		}
	}
	return nil
}

func (tr *Transactor) DataSetNames(ctx context.Context) ([]string, error) {
	var names []string
	err := tr.run(ctx, func(ctx context.Context, q querier) error {
		var err error
		names, err = typeNames(ctx, q)
		return err
	})
	return names, err
}

func (tr *Transactor) NumberOfDataSets(ctx context.Context) (int, error) {
	names, err := tr.DataSetNames(ctx)
	return len(names), err
}

func (tr *Transactor) DataSetType(ctx context.Context, name string) (*schema.DataSetType, error) {
	var dt *schema.DataSetType
	err := tr.run(ctx, func(ctx context.Context, q querier) error {
		var err error
		dt, err = loadType(ctx, q, name)
		return err
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

// Extent aggregates the shadow columns; the geometries are not decoded.
func (tr *Transactor) Extent(ctx context.Context, name, geomProp string) (geometry.Envelope, error) {
	if _, err := tr.geometrySRID(ctx, name, geomProp); err != nil {
		return geometry.Envelope{}, err
	}
	env := geometry.Empty()
	err := tr.run(ctx, func(ctx context.Context, q querier) error {
		stmt := "SELECT MIN(" + sqldialect.QuoteIdent(shadow(geomProp, 0)) + "), MIN(" + sqldialect.QuoteIdent(shadow(geomProp, 1)) +
			"), MAX(" + sqldialect.QuoteIdent(shadow(geomProp, 2)) + "), MAX(" + sqldialect.QuoteIdent(shadow(geomProp, 3)) +
			") FROM " + sqldialect.QuoteIdent(name)
		var minX, minY, maxX, maxY sql.NullFloat64
		if err := q.QueryRowContext(ctx, stmt).Scan(&minX, &minY, &maxX, &maxY); err != nil {
			return mapError(err, "extent of %q", name)
		}
		if minX.Valid {
			env = geometry.Envelope{MinX: minX.Float64, MinY: minY.Float64, MaxX: maxX.Float64, MaxY: maxY.Float64}
		}
		return nil
	})
	return env, err
}

func (tr *Transactor) NumberOfItems(ctx context.Context, name string) (int, error) {
	var n int
	err := tr.run(ctx, func(ctx context.Context, q querier) error {
		if _, err := loadType(ctx, q, name); err != nil {
			return err
		}
		if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+sqldialect.QuoteIdent(name)).Scan(&n); err != nil {
			return mapError(err, "count %q", name)
		}
		return nil
	})
	return n, err
}

func (tr *Transactor) DataSetExists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := tr.run(ctx, func(ctx context.Context, q querier) error {
		var err error
		ok, err = typeExists(ctx, q, name)
		return err
	})
	return ok, err
}

// Close rolls back an open transaction. Later calls fail with
// PRECONDITION.
func (tr *Transactor) Close() error {
	if tr.closed {
		return nil
	}
	tr.closed = true
	if tr.tx != nil {
		tx := tr.tx
		tr.tx = nil
		if err := tx.Rollback(); err != nil {
			return mapError(err, "rollback on close")
		}
	}
	return nil
}
