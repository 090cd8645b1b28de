package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dataccess/internal/datasource"
)

// DataSetInfo summarises one dataset.
type DataSetInfo struct {
	Name       string   `json:"name"`
	Properties []string `json:"properties"`
	Rows       int      `json:"rows"`
}

// DataSetList is the output of the datasets command.
type DataSetList []DataSetInfo

func (l DataSetList) String() string {
	if len(l) == 0 {
		return "No datasets."
	}
	var b strings.Builder
	for _, d := range l {
		fmt.Fprintf(&b, "%s\t%d rows\t%s\n", d.Name, d.Rows, strings.Join(d.Properties, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewDataSetsCommand creates the datasets command.
func NewDataSetsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the datasets of a database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			list, err := listDataSets(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			return f.Success(list)
		},
	}
}

func listDataSets(ctx context.Context, opts *RootOptions) (DataSetList, error) {
	list := DataSetList{}
	err := opts.withTransactor(ctx, false, func(tr datasource.Transactor) error {
		names, err := tr.DataSetNames(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			dt, err := tr.DataSetType(ctx, name)
			if err != nil {
				return err
			}
			n, err := tr.NumberOfItems(ctx, name)
			if err != nil {
				return err
			}
			list = append(list, DataSetInfo{Name: name, Properties: dt.PropertyNames(), Rows: n})
		}
		return nil
	})
	if err != nil {
		return nil, failure("list datasets", err)
	}
	return list, nil
}
