package datasource

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/errs"
)

// DataSource is one repository of datasets reached through a driver.
//
// A DataSource is created closed. Open connects it; Transactor hands out
// the object every read and write goes through. Read-only accessors are
// safe for concurrent use; Transactors are not.
type DataSource interface {
	// ID is a time-sortable identifier assigned at construction.
	ID() string
	// Type is the name the driver was registered under.
	Type() string
	ConnectionInfo() ConnInfo
	Capabilities() capabilities.DataSourceCapabilities

	Open(ctx context.Context) error
	Close() error
	IsOpened() bool
	// IsValid reports whether the repository is reachable.
	IsValid(ctx context.Context) bool

	// Transactor returns a new Transactor. The caller closes it.
	Transactor(ctx context.Context) (Transactor, error)
	// Cancel interrupts running statements on a best-effort basis.
	Cancel() error
}

// Driver creates DataSources of one type and manages their repositories.
type Driver interface {
	Type() string
	// New returns a closed DataSource for info.
	New(info ConnInfo) (DataSource, error)
	// Create makes a new repository and returns it opened.
	Create(ctx context.Context, info ConnInfo) (DataSource, error)
	// Drop deletes the repository named by info.
	Drop(ctx context.Context, info ConnInfo) error
	Exists(ctx context.Context, info ConnInfo) (bool, error)
	// DataSourceNames lists the repositories reachable with info.
	DataSourceNames(ctx context.Context, info ConnInfo) ([]string, error)
}

var (
	driversMu sync.RWMutex
	drivers   = map[string]Driver{}
)

// Register makes a driver available under its type name. It panics when
// the name is taken or the driver is nil.
func Register(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("datasource: Register driver is nil")
	}
	if _, dup := drivers[d.Type()]; dup {
		panic("datasource: Register called twice for driver " + d.Type())
	}
	drivers[d.Type()] = d
}

// Lookup returns the driver registered under typ.
func Lookup(typ string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[typ]
	if !ok {
		return nil, errs.Configuration("unknown data source type %q (registered: %v)", typ, driverNames())
	}
	return d, nil
}

// Drivers returns the registered type names, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	return driverNames()
}

func driverNames() []string {
	names := make([]string, 0, len(drivers))
	for n := range drivers {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// New returns a closed DataSource of the given type.
func New(typ string, info ConnInfo) (DataSource, error) {
	d, err := Lookup(typ)
	if err != nil {
		return nil, err
	}
	return d.New(info)
}

// Open returns an opened DataSource of the given type.
func Open(ctx context.Context, typ string, info ConnInfo) (DataSource, error) {
	ds, err := New(typ, info)
	if err != nil {
		return nil, err
	}
	if err := ds.Open(ctx); err != nil {
		return nil, err
	}
	return ds, nil
}

// Create makes a new repository through the driver registered under typ.
func Create(ctx context.Context, typ string, info ConnInfo) (DataSource, error) {
	d, err := Lookup(typ)
	if err != nil {
		return nil, err
	}
	return d.Create(ctx, info)
}

// Drop deletes a repository through the driver registered under typ.
func Drop(ctx context.Context, typ string, info ConnInfo) error {
	d, err := Lookup(typ)
	if err != nil {
		return err
	}
	return d.Drop(ctx, info)
}

// Exists reports whether a repository exists.
func Exists(ctx context.Context, typ string, info ConnInfo) (bool, error) {
	d, err := Lookup(typ)
	if err != nil {
		return false, err
	}
	return d.Exists(ctx, info)
}

// DataSourceNames lists repositories through the driver registered under typ.
func DataSourceNames(ctx context.Context, typ string, info ConnInfo) ([]string, error) {
	d, err := Lookup(typ)
	if err != nil {
		return nil, err
	}
	return d.DataSourceNames(ctx, info)
}

// NewID returns a UUIDv7 string for a new DataSource.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// WithTransactor runs fn with a fresh Transactor and closes it afterwards.
func WithTransactor(ctx context.Context, ds DataSource, fn func(Transactor) error) error {
	tr, err := ds.Transactor(ctx)
	if err != nil {
		return err
	}
	defer tr.Close()
	return fn(tr)
}

// InTransaction runs fn inside a transaction on a fresh Transactor. The
// transaction commits when fn returns nil and rolls back otherwise.
func InTransaction(ctx context.Context, ds DataSource, fn func(Transactor) error) error {
	if !ds.Capabilities().Transactions {
		return errs.CapabilityMismatch("data source %q does not support transactions", ds.Type())
	}
	return WithTransactor(ctx, ds, func(tr Transactor) error {
		if err := tr.Begin(ctx); err != nil {
			return err
		}
		if err := fn(tr); err != nil {
			if rbErr := tr.Rollback(ctx); rbErr != nil {
				return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
			return err
		}
		return tr.Commit(ctx)
	})
}
