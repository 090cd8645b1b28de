package datasource

import (
	"context"

	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/oid"
	"github.com/roach88/dataccess/internal/query"
	"github.com/roach88/dataccess/internal/schema"
)

// Transactor performs every read and write against a DataSource.
//
// A Transactor is not safe for concurrent use. Transactions are explicit
// and do not nest; closing a DataSet never ends one. Closing a Transactor
// inside a transaction rolls it back.
//
// Errors: unknown datasets fail with NOT_FOUND, creating an existing one
// with ALREADY_EXISTS, and constructs the backend cannot run with
// CAPABILITY_MISMATCH.
type Transactor interface {
	DataSource() DataSource

	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	InTransaction() bool

	// GetDataSet returns every row of the named dataset.
	GetDataSet(ctx context.Context, name string) (dataset.DataSet, error)
	// GetDataSetByEnvelope returns the rows whose geometry property relates
	// to the envelope. Relations the backend cannot evaluate are refined
	// in memory.
	GetDataSetByEnvelope(ctx context.Context, name, geomProp string, e geometry.Envelope, rel geometry.Relation) (dataset.DataSet, error)
	// GetDataSetByGeometry is GetDataSetByEnvelope for an arbitrary geometry.
	GetDataSetByGeometry(ctx context.Context, name, geomProp string, g geometry.Geometry, rel geometry.Relation) (dataset.DataSet, error)
	// GetDataSetByOIDs re-fetches identified rows.
	GetDataSetByOIDs(ctx context.Context, name string, oids *oid.Set) (dataset.DataSet, error)
	// Query runs a select the backend supports natively.
	Query(ctx context.Context, sel *query.Select) (dataset.DataSet, error)
	// QuerySQL runs a statement in the backend dialect that returns rows.
	QuerySQL(ctx context.Context, sql string) (dataset.DataSet, error)
	// Execute runs an insert, update or delete.
	Execute(ctx context.Context, stmt query.Node) error
	ExecuteSQL(ctx context.Context, sql string) error
	// Cancel interrupts the running statement, if any.
	Cancel() error
	// LastGeneratedID returns the identifier generated by the last insert
	// into an auto-number property.
	LastGeneratedID() int64
	// Escape quotes a string for inclusion as a literal in backend SQL.
	Escape(value string) string
	// ValidateName checks a dataset or property name for the backend.
	ValidateName(name string) error

	DataSetNames(ctx context.Context) ([]string, error)
	NumberOfDataSets(ctx context.Context) (int, error)
	DataSetType(ctx context.Context, name string) (*schema.DataSetType, error)
	Properties(ctx context.Context, name string) ([]datatype.Property, error)
	PropertyExists(ctx context.Context, name, prop string) (bool, error)
	PrimaryKey(ctx context.Context, name string) (*schema.PrimaryKey, error)
	UniqueKeyNames(ctx context.Context, name string) ([]string, error)
	IndexNames(ctx context.Context, name string) ([]string, error)
	// Extent returns the bounding rectangle of a geometry property over
	// every row.
	Extent(ctx context.Context, name, geomProp string) (geometry.Envelope, error)
	NumberOfItems(ctx context.Context, name string) (int, error)
	DataSetExists(ctx context.Context, name string) (bool, error)

	CreateDataSet(ctx context.Context, dt *schema.DataSetType, opts Options) error
	DropDataSet(ctx context.Context, name string) error
	RenameDataSet(ctx context.Context, name, newName string) error
	AddProperty(ctx context.Context, name string, p datatype.Property) error
	DropProperty(ctx context.Context, name, prop string) error
	AddPrimaryKey(ctx context.Context, name string, pk schema.PrimaryKey) error
	DropPrimaryKey(ctx context.Context, name string) error
	AddUniqueKey(ctx context.Context, name string, uk schema.UniqueKey) error
	DropUniqueKey(ctx context.Context, name, key string) error
	AddIndex(ctx context.Context, name string, ix schema.Index, opts Options) error
	DropIndex(ctx context.Context, name, index string) error
	AddCheckConstraint(ctx context.Context, name string, cc schema.CheckConstraint) error

	// Add inserts every row of ds, read from the beginning, into the named
	// dataset. Columns are matched by property name.
	Add(ctx context.Context, name string, ds dataset.DataSet, opts Options) error
	// Remove deletes the identified rows, or every row when oids is nil.
	Remove(ctx context.Context, name string, oids *oid.Set) error
	// Update copies props from each row of ds onto the stored row with the
	// same identity. Rows of ds outside oids are ignored.
	Update(ctx context.Context, name string, ds dataset.DataSet, props []string, oids *oid.Set) error

	Close() error
}
