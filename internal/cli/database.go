package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/sqlite"
)

// connInfo builds the SQLite connection parameters from the global flags.
func (o *RootOptions) connInfo() (datasource.ConnInfo, error) {
	if o.DB == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	info, err := datasource.ParseConnInfo(o.Conn)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --conn", err)
	}
	info[sqlite.KeyFile] = o.DB
	return info, nil
}

// open opens the database named by --db. Unless create is set the file must
// already exist.
func (o *RootOptions) open(ctx context.Context, create bool) (datasource.DataSource, error) {
	info, err := o.connInfo()
	if err != nil {
		return nil, err
	}
	if !create && o.DB != ":memory:" {
		if _, err := os.Stat(o.DB); errors.Is(err, fs.ErrNotExist) {
			return nil, NewExitError(ExitCommandError, "database not found: "+o.DB)
		}
	}
	src, err := datasource.Open(ctx, sqlite.DriverType, info)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "open database", err)
	}
	return src, nil
}

// withTransactor runs fn with a transactor on the database.
func (o *RootOptions) withTransactor(ctx context.Context, create bool, fn func(datasource.Transactor) error) error {
	src, err := o.open(ctx, create)
	if err != nil {
		return err
	}
	defer src.Close()
	return datasource.WithTransactor(ctx, src, fn)
}

// inTransaction runs fn in a transaction on an existing database.
func (o *RootOptions) inTransaction(ctx context.Context, fn func(datasource.Transactor) error) error {
	src, err := o.open(ctx, false)
	if err != nil {
		return err
	}
	defer src.Close()
	return datasource.InTransaction(ctx, src, fn)
}
