package cli

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/datasource"
	_ "github.com/roach88/dataccess/internal/memory"
	_ "github.com/roach88/dataccess/internal/sqlite"
)

// CapabilitiesOptions holds flags for the capabilities command.
type CapabilitiesOptions struct {
	*RootOptions
	Profile string // CUE profile file compiled instead of a built-in one
}

// NewCapabilitiesCommand creates the capabilities command.
func NewCapabilitiesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CapabilitiesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "capabilities [driver]",
		Short: "Show what a backend supports",
		Long: `Show the capability profile of a driver: data types and their
conversion hints, schema features and the query operators it runs natively.

Without a driver, lists the registered drivers. With --profile, compiles
and prints a CUE profile file instead.

Examples:
  dataccess capabilities
  dataccess capabilities sqlite
  dataccess capabilities --profile ./postgis.cue --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if opts.Profile != "" {
				src, err := os.ReadFile(opts.Profile)
				if err != nil {
					return WrapExitError(ExitCommandError, "read profile", err)
				}
				doc, err := capabilities.CompileDocument(opts.Profile, src)
				if err != nil {
					return WrapExitError(ExitFailure, "compile profile", err)
				}
				return printCapabilities(f, doc)
			}
			if len(args) == 0 {
				drivers := datasource.Drivers()
				if f.Format == "json" {
					return f.Success(map[string][]string{"drivers": drivers})
				}
				return f.Success(strings.Join(drivers, "\n"))
			}
			caps, err := capabilities.Builtin(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "unknown driver "+args[0], err)
			}
			return printCapabilities(f, caps.Document(args[0]))
		},
	}

	cmd.Flags().StringVar(&opts.Profile, "profile", "", "compile a CUE capability profile")

	return cmd
}

func printCapabilities(f *OutputFormatter, doc capabilities.Document) error {
	if f.Format == "json" {
		return f.Success(doc)
	}
	return f.Success(capabilitiesText(doc))
}

func capabilitiesText(doc capabilities.Document) string {
	var b strings.Builder
	line := func(label string, value any) {
		fmt.Fprintf(&b, "%-22s %v\n", label+":", value)
	}
	list := func(label string, values []string) {
		if len(values) == 0 {
			line(label, "-")
			return
		}
		line(label, strings.Join(values, ", "))
	}

	line("driver", doc.Name)
	line("access policy", doc.AccessPolicy)
	line("transactions", doc.Transactions)
	list("data types", doc.DataTypes.Supported)
	var hints []string
	for _, from := range slices.Sorted(maps.Keys(doc.DataTypes.Hints)) {
		hints = append(hints, from+" -> "+doc.DataTypes.Hints[from])
	}
	list("conversion hints", hints)

	st := doc.DataSetType
	var schema []string
	for _, feat := range []struct {
		name string
		ok   bool
	}{
		{"primary key", st.PrimaryKey}, {"unique key", st.UniqueKey},
		{"foreign key", st.ForeignKey}, {"check constraints", st.CheckConstraints},
		{"index", st.Index}, {"rtree index", st.RTreeIndex},
	} {
		if feat.ok {
			schema = append(schema, feat.name)
		}
	}
	list("schema features", schema)

	q := doc.Query
	line("sql dialect", q.SQLDialect)
	list("spatial operators", q.Operators.Spatial)
	list("comparison operators", q.Operators.Comparison)
	list("logical operators", q.Operators.Logical)
	list("arithmetic operators", q.Operators.Arithmetic)
	list("functions", q.Operators.Functions)
	return strings.TrimRight(b.String(), "\n")
}
