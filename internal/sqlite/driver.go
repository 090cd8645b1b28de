package sqlite

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/errs"
)

// DriverType is the name the SQLite driver registers under.
const DriverType = "sqlite"

// Connection parameters.
const (
	// KeyFile is the database path, or ":memory:".
	KeyFile = "SQLITE_FILE"
	// KeyDriver picks the database/sql driver: "sqlite3" (mattn, cgo) or
	// "sqlite" (modernc, pure Go).
	KeyDriver = "SQLITE_DRIVER"
	// KeyBusyTimeout is the lock wait in milliseconds.
	KeyBusyTimeout = "SQLITE_BUSY_TIMEOUT_MS"
)

const (
	driverMattn   = "sqlite3"
	driverModernc = "sqlite"

	defaultBusyTimeout = 5000
	memoryFile         = ":memory:"
)

func init() {
	datasource.Register(Driver{})
}

// Driver creates SQLite data sources. Each data source is one database
// file.
type Driver struct{}

var _ datasource.Driver = Driver{}

func (Driver) Type() string { return DriverType }

// New returns a closed data source for info.
func (Driver) New(info datasource.ConnInfo) (datasource.DataSource, error) {
	return newDataSource(info)
}

type config struct {
	file        string
	driver      string
	busyTimeout int
}

func parseConfig(info datasource.ConnInfo) (config, error) {
	file, err := info.Require(KeyFile)
	if err != nil {
		return config{}, err
	}
	driver := info.Get(KeyDriver, driverMattn)
	if driver != driverMattn && driver != driverModernc {
		return config{}, errs.Configuration("%s must be %q or %q, got %q", KeyDriver, driverMattn, driverModernc, driver)
	}
	busy, err := info.Int(KeyBusyTimeout, defaultBusyTimeout)
	if err != nil {
		return config{}, err
	}
	if busy < 0 {
		return config{}, errs.Configuration("%s must not be negative", KeyBusyTimeout)
	}
	return config{file: file, driver: driver, busyTimeout: busy}, nil
}

func newDataSource(info datasource.ConnInfo) (*DataSource, error) {
	cfg, err := parseConfig(info)
	if err != nil {
		return nil, err
	}
	caps, err := capabilities.Builtin(DriverType)
	if err != nil {
		return nil, err
	}
	return &DataSource{
		id:    datasource.NewID(),
		info:  info.Clone(),
		cfg:   cfg,
		caps:  caps,
		stmts: newStatements(),
	}, nil
}

// Create makes a new database file and returns a data source opened on it.
func (Driver) Create(ctx context.Context, info datasource.ConnInfo) (datasource.DataSource, error) {
	cfg, err := parseConfig(info)
	if err != nil {
		return nil, err
	}
	if cfg.file != memoryFile {
		if _, err := os.Stat(cfg.file); err == nil {
			return nil, errs.AlreadyExists("database %q already exists", cfg.file)
		}
	}
	ds, err := newDataSource(info)
	if err != nil {
		return nil, err
	}
	if err := ds.Open(ctx); err != nil {
		return nil, err
	}
	return ds, nil
}

// Drop removes the database file together with its WAL and shared-memory
// companions.
func (Driver) Drop(_ context.Context, info datasource.ConnInfo) error {
	cfg, err := parseConfig(info)
	if err != nil {
		return err
	}
	if cfg.file == memoryFile {
		return errs.Precondition("an in-memory database cannot be dropped")
	}
	if err := os.Remove(cfg.file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errs.NotFound("database %q not found", cfg.file)
		}
		return errs.Wrap(errs.CodePrecondition, err, "drop database %q", cfg.file)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(cfg.file + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errs.Wrap(errs.CodePrecondition, err, "drop database %q", cfg.file)
		}
	}
	return nil
}

func (Driver) Exists(_ context.Context, info datasource.ConnInfo) (bool, error) {
	cfg, err := parseConfig(info)
	if err != nil {
		return false, err
	}
	if cfg.file == memoryFile {
		return false, nil
	}
	_, err = os.Stat(cfg.file)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, errs.Wrap(errs.CodePrecondition, err, "stat %q", cfg.file)
}

// DataSourceNames lists the database files (*.db, *.sqlite) in the
// directory of SQLITE_FILE, sorted.
func (Driver) DataSourceNames(_ context.Context, info datasource.ConnInfo) ([]string, error) {
	file, err := info.Require(KeyFile)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Dir(file))
	if err != nil {
		return nil, errs.Wrap(errs.CodeConfiguration, err, "list databases")
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".db", ".sqlite":
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}
