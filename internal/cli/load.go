package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	DataSet string
}

// LoadResult describes a load.
type LoadResult struct {
	DataSet string `json:"dataset"`
	Rows    int    `json:"rows"`
	Total   int    `json:"total"`
}

func (r LoadResult) String() string {
	return fmt.Sprintf("loaded %d rows into %s (%d total)", r.Rows, r.DataSet, r.Total)
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <rows.yaml>",
		Short: "Add rows to a dataset",
		Long: `Add the rows of a YAML file to a dataset in one transaction. The file
is a list of maps keyed by property name; values are literals of the
property type and geometries are WKT in the property SRID.

Example:
  dataccess load --db parcels.db --dataset parcels rows.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			res, err := loadRows(cmd.Context(), opts, args[0])
			if err != nil {
				return err
			}
			return f.Success(res)
		},
	}

	cmd.Flags().StringVar(&opts.DataSet, "dataset", "", "target dataset")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func loadRows(ctx context.Context, opts *LoadOptions, path string) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, WrapExitError(ExitCommandError, "read rows", err)
	}
	var rows []map[string]any
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return LoadResult{}, WrapExitError(ExitCommandError, "parse rows "+path, err)
	}

	res := LoadResult{DataSet: opts.DataSet, Rows: len(rows)}
	err = opts.inTransaction(ctx, func(tr datasource.Transactor) error {
		dt, err := tr.DataSetType(ctx, opts.DataSet)
		if err != nil {
			return err
		}
		m := dataset.NewMemoryFromType(dt)
		for i, row := range rows {
			values := make(map[string]datatype.Value, len(row))
			for name, raw := range row {
				p, ok := dt.Property(name)
				if !ok {
					return fmt.Errorf("row %d: unknown property %q", i+1, name)
				}
				if raw == nil {
					values[name] = datatype.Null{}
					continue
				}
				v, err := datatype.ParsePropertyLiteral(p, fmt.Sprint(raw))
				if err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				values[name] = v
			}
			if err := m.AddMap(values); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		if err := tr.Add(ctx, opts.DataSet, m, nil); err != nil {
			return err
		}
		res.Total, err = tr.NumberOfItems(ctx, opts.DataSet)
		return err
	})
	if err != nil {
		return LoadResult{}, failure("load "+opts.DataSet, err)
	}
	slog.Debug("rows loaded", "dataset", opts.DataSet, "rows", res.Rows)
	return res, nil
}
