package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/schema"
)

// CreateResult describes a created dataset.
type CreateResult struct {
	DataSet    string   `json:"dataset"`
	Properties []string `json:"properties"`
}

func (r CreateResult) String() string {
	return fmt.Sprintf("created dataset %s (%d properties)", r.DataSet, len(r.Properties))
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <schema.yaml>",
		Short: "Create a dataset from a YAML schema",
		Long: `Create a dataset in the database from a YAML schema document. The
database file is created when missing.

Example:
  dataccess create --db parcels.db parcels.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			res, err := createDataSet(cmd.Context(), rootOpts, args[0])
			if err != nil {
				return err
			}
			return f.Success(res)
		},
	}
}

func createDataSet(ctx context.Context, opts *RootOptions, path string) (CreateResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return CreateResult{}, WrapExitError(ExitCommandError, "read schema", err)
	}
	defer file.Close()
	dt, err := schema.ParseYAML(file)
	if err != nil {
		return CreateResult{}, WrapExitError(ExitCommandError, "parse schema "+path, err)
	}

	err = opts.withTransactor(ctx, true, func(tr datasource.Transactor) error {
		return tr.CreateDataSet(ctx, dt, nil)
	})
	if err != nil {
		return CreateResult{}, failure("create dataset "+dt.Name(), err)
	}
	slog.Debug("dataset created", "dataset", dt.Name(), "db", opts.DB)
	return CreateResult{DataSet: dt.Name(), Properties: dt.PropertyNames()}, nil
}
