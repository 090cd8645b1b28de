package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/errs"
)

// DataSource is one SQLite database.
//
// The pool holds a single connection: SQLite allows one writer, and an
// in-memory database lives only as long as its connection. While a
// transactor holds a transaction, statements from other transactors wait
// for it to end.
type DataSource struct {
	id    string
	info  datasource.ConnInfo
	cfg   config
	caps  capabilities.DataSourceCapabilities
	stmts *statements

	mu sync.RWMutex
	db *sql.DB
}

var _ datasource.DataSource = (*DataSource)(nil)

// Open creates a data source directly, without the registry.
func Open(ctx context.Context, info datasource.ConnInfo) (*DataSource, error) {
	ds, err := newDataSource(info)
	if err != nil {
		return nil, err
	}
	if err := ds.Open(ctx); err != nil {
		return nil, err
	}
	return ds, nil
}

func (d *DataSource) ID() string   { return d.id }
func (d *DataSource) Type() string { return DriverType }

func (d *DataSource) ConnectionInfo() datasource.ConnInfo { return d.info.Clone() }

func (d *DataSource) Capabilities() capabilities.DataSourceCapabilities { return d.caps }

// Open connects, applies the pragmas and creates the catalog table.
// Opening twice is a no-op.
func (d *DataSource) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db != nil {
		return nil
	}

	db, err := sql.Open(d.cfg.driver, d.cfg.file)
	if err != nil {
		return errs.Wrap(errs.CodeConfiguration, err, "open %q", d.cfg.file)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errs.Wrap(errs.CodeConfiguration, err, "connect to %q", d.cfg.file)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db, d.cfg.busyTimeout); err != nil {
		db.Close()
		return err
	}
	if err := createCatalog(ctx, db); err != nil {
		db.Close()
		return err
	}
	d.db = db
	return nil
}

// applyPragmas sets the connection configuration: WAL journaling for
// concurrent readers, NORMAL synchronous mode, a busy timeout and foreign
// key enforcement.
func applyPragmas(ctx context.Context, db *sql.DB, busyTimeout int) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout),
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return errs.Wrap(errs.CodeConfiguration, err, "execute %q", pragma)
		}
	}
	return nil
}

// Close cancels running statements and closes the connection.
func (d *DataSource) Close() error {
	d.stmts.cancelAll()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

func (d *DataSource) IsOpened() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db != nil
}

// IsValid pings the database.
func (d *DataSource) IsValid(ctx context.Context) bool {
	d.mu.RLock()
	db := d.db
	d.mu.RUnlock()
	return db != nil && db.PingContext(ctx) == nil
}

// Cancel interrupts every statement running on the data source.
func (d *DataSource) Cancel() error {
	d.stmts.cancelAll()
	return nil
}

// Transactor returns a new Transactor on the connection.
func (d *DataSource) Transactor(context.Context) (datasource.Transactor, error) {
	d.mu.RLock()
	db := d.db
	d.mu.RUnlock()
	if db == nil {
		return nil, errs.Precondition("data source %s is not open", d.id)
	}
	return newTransactor(d, db), nil
}

// statements tracks the cancel functions of running statements.
type statements struct {
	mu      sync.Mutex
	next    uint64
	running map[uint64]context.CancelFunc
}

func newStatements() *statements {
	return &statements{running: map[uint64]context.CancelFunc{}}
}

// start derives a cancellable context for one statement. The returned
// function must be called when the statement ends.
func (s *statements) start(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	id := s.next
	s.next++
	s.running[id] = cancel
	s.mu.Unlock()
	return ctx, func() {
		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
		cancel()
	}
}

func (s *statements) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.running {
		cancel()
	}
}
