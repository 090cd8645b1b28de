package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/errs"
)

// DriverType is the name the memory driver registers under.
const DriverType = "memory"

// Connection parameters.
const (
	// KeyName attaches the data source to a named repository shared by
	// every data source of the process opened with the same name. Without
	// it each data source gets a private repository.
	KeyName = "MEMORY_NAME"
	// KeyMaxDataSets caps the number of datasets; zero means no cap.
	KeyMaxDataSets = "MEMORY_MAX_DATASETS"
)

func init() {
	datasource.Register(Driver{})
}

// named holds the repositories created by name.
var named = struct {
	sync.Mutex
	repos map[string]*repository
}{repos: map[string]*repository{}}

// Driver creates memory data sources.
type Driver struct{}

var _ datasource.Driver = Driver{}

func (Driver) Type() string { return DriverType }

// New returns a closed data source for info.
func (Driver) New(info datasource.ConnInfo) (datasource.DataSource, error) {
	return newDataSource(info)
}

func newDataSource(info datasource.ConnInfo) (*DataSource, error) {
	caps, err := capabilities.Builtin(DriverType)
	if err != nil {
		return nil, err
	}
	maxSets, err := info.Int(KeyMaxDataSets, 0)
	if err != nil {
		return nil, err
	}
	if maxSets < 0 {
		return nil, errs.Configuration("%s must not be negative", KeyMaxDataSets)
	}
	return &DataSource{
		id:          datasource.NewID(),
		info:        info.Clone(),
		caps:        caps,
		maxDataSets: maxSets,
	}, nil
}

// Create registers a new named repository and returns a data source opened
// on it.
func (Driver) Create(ctx context.Context, info datasource.ConnInfo) (datasource.DataSource, error) {
	name, err := info.Require(KeyName)
	if err != nil {
		return nil, err
	}
	named.Lock()
	if _, ok := named.repos[name]; ok {
		named.Unlock()
		return nil, errs.AlreadyExists("memory repository %q already exists", name)
	}
	named.repos[name] = newRepository()
	named.Unlock()

	ds, err := newDataSource(info)
	if err != nil {
		return nil, err
	}
	if err := ds.Open(ctx); err != nil {
		return nil, err
	}
	return ds, nil
}

// Drop forgets a named repository. Data sources still attached keep their
// data until closed.
func (Driver) Drop(_ context.Context, info datasource.ConnInfo) error {
	name, err := info.Require(KeyName)
	if err != nil {
		return err
	}
	named.Lock()
	defer named.Unlock()
	if _, ok := named.repos[name]; !ok {
		return errs.NotFound("memory repository %q not found", name)
	}
	delete(named.repos, name)
	return nil
}

func (Driver) Exists(_ context.Context, info datasource.ConnInfo) (bool, error) {
	name, err := info.Require(KeyName)
	if err != nil {
		return false, err
	}
	named.Lock()
	defer named.Unlock()
	_, ok := named.repos[name]
	return ok, nil
}

// DataSourceNames lists the named repositories, sorted.
func (Driver) DataSourceNames(context.Context, datasource.ConnInfo) ([]string, error) {
	named.Lock()
	defer named.Unlock()
	names := make([]string, 0, len(named.repos))
	for n := range named.repos {
		names = append(names, n)
	}
	slices.Sort(names)
	return names, nil
}

// attach returns the repository for name, creating it when missing.
func attach(name string) *repository {
	if name == "" {
		return newRepository()
	}
	named.Lock()
	defer named.Unlock()
	r, ok := named.repos[name]
	if !ok {
		r = newRepository()
		named.repos[name] = r
	}
	return r
}
