package memory

import (
	"context"
	"sync"

	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/errs"
)

// DataSource keeps datasets in process memory.
type DataSource struct {
	id          string
	info        datasource.ConnInfo
	caps        capabilities.DataSourceCapabilities
	maxDataSets int

	mu   sync.RWMutex
	repo *repository
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

// Open attaches the repository. Opening twice is a no-op.
func (d *DataSource) Open(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.repo == nil {
		d.repo = attach(d.info.Get(KeyName, ""))
	}
	return nil
}

// Close detaches the repository. A private repository is discarded.
func (d *DataSource) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.repo = nil
	return nil
}

func (d *DataSource) IsOpened() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.repo != nil
}

func (d *DataSource) IsValid(context.Context) bool { return d.IsOpened() }

// Cancel is a no-op: statements run synchronously under the caller's
// context.
func (d *DataSource) Cancel() error { return nil }

// Transactor returns a new Transactor over the repository.
func (d *DataSource) Transactor(context.Context) (datasource.Transactor, error) {
	d.mu.RLock()
	repo := d.repo
	d.mu.RUnlock()
	if repo == nil {
		return nil, errs.Precondition("data source %s is not open", d.id)
	}
	return newTransactor(d, repo), nil
}
