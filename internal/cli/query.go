package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/dataset"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/query"
	"github.com/roach88/dataccess/internal/selection"
	"github.com/roach88/dataccess/internal/spatial"
)

// SelectOptions holds the selection flags shared by query and oids.
type SelectOptions struct {
	*RootOptions
	DataSet  string
	Fields   []string
	Where    string
	WKT      string
	BBox     []float64
	Property string
	Relation string
	OrderBy  []string
	Limit    int
	Offset   int
	Redis    string // selection store address
}

func (o *SelectOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.DataSet, "dataset", "", "dataset to select from")
	cmd.Flags().StringSliceVar(&o.Fields, "fields", nil, "properties to return (default all)")
	cmd.Flags().StringVar(&o.Where, "where", "", "SQL filter expression, e.g. \"area > 5 and name like 'a%'\"")
	cmd.Flags().StringVar(&o.WKT, "wkt", "", "geometry (WKT or EWKT) the rows must relate to")
	cmd.Flags().Float64SliceVar(&o.BBox, "bbox", nil, "box minx,miny,maxx,maxy the rows must relate to")
	cmd.Flags().StringVar(&o.Property, "property", "", "geometry property (default: the dataset's default geometry)")
	cmd.Flags().StringVar(&o.Relation, "relation", "intersects", "spatial relation")
	cmd.Flags().StringSliceVar(&o.OrderBy, "order-by", nil, "sort properties; prefix with - for descending")
	cmd.Flags().IntVar(&o.Limit, "limit", 0, "maximum number of rows")
	cmd.Flags().IntVar(&o.Offset, "offset", 0, "rows to skip")
	cmd.Flags().StringVar(&o.Redis, "redis", "", "selection store address (host:port)")
	cmd.MarkFlagsMutuallyExclusive("wkt", "bbox")
	_ = cmd.MarkFlagRequired("dataset")
}

// build turns the flags into a select over tr.
func (o *SelectOptions) build(ctx context.Context, tr datasource.Transactor) (*query.Select, error) {
	sel := query.BuildSelect(o.DataSet, o.Fields...)

	var conds []query.Expression
	if o.Where != "" {
		e, err := query.ParseWhere(o.Where)
		if err != nil {
			return nil, err
		}
		conds = append(conds, e)
	}
	if o.WKT != "" || len(o.BBox) > 0 {
		rel, err := geometry.ParseRelation(o.Relation)
		if err != nil {
			return nil, NewExitError(ExitCommandError, err.Error())
		}
		var e query.Expression
		if len(o.BBox) > 0 {
			if len(o.BBox) != 4 {
				return nil, NewExitError(ExitCommandError, fmt.Sprintf("--bbox needs 4 numbers, got %d", len(o.BBox)))
			}
			env := geometry.NewEnvelope(o.BBox[0], o.BBox[1], o.BBox[2], o.BBox[3])
			e, err = spatial.EnvelopeFilter(ctx, tr, o.DataSet, o.Property, env, rel)
		} else {
			e, err = spatial.GeometryFilter(ctx, tr, o.DataSet, o.Property, o.WKT, rel)
		}
		if err != nil {
			return nil, err
		}
		conds = append(conds, e)
	}
	switch len(conds) {
	case 0:
	case 1:
		sel.WithWhere(conds[0])
	default:
		sel.WithWhere(query.And(conds...))
	}

	var order []*query.OrderByItem
	for _, name := range o.OrderBy {
		if desc, ok := strings.CutPrefix(name, "-"); ok {
			order = append(order, query.DescBy(desc))
			continue
		}
		order = append(order, query.AscBy(name))
	}
	if len(order) > 0 {
		sel.WithOrderBy(order...)
	}
	if o.Limit > 0 {
		sel.WithLimit(o.Limit)
	}
	if o.Offset > 0 {
		sel.WithOffset(o.Offset)
	}
	return sel, nil
}

// store opens the selection store named by --redis.
func (o *SelectOptions) store() (selection.Store, error) {
	if o.Redis == "" {
		return nil, NewExitError(ExitCommandError, "--redis is required to save or load selections")
	}
	s, err := selection.NewRedisStore(selection.RedisConfig{Addr: o.Redis})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "selection store", err)
	}
	return s, nil
}

// QueryResult is a materialized query result.
type QueryResult struct {
	Properties []string `json:"properties"`
	Rows       [][]any  `json:"rows"`
	text       [][]string
}

func (r QueryResult) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(r.Properties, "\t"))
	for _, row := range r.text {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
	fmt.Fprintf(&b, "(%d rows)", len(r.text))
	return b.String()
}

// collect reads every row of ds. Geometries are reported as WKT.
func collect(ds dataset.DataSet) (QueryResult, error) {
	res := QueryResult{Properties: dataset.PropertyNames(ds), Rows: [][]any{}}
	n := ds.NumProperties()
	ds.MoveBeforeFirst()
	for ds.MoveNext() {
		row := make([]any, n)
		text := make([]string, n)
		for i := range n {
			v, err := ds.Value(i)
			if err != nil {
				return QueryResult{}, err
			}
			switch x := v.(type) {
			case datatype.Null:
				row[i], text[i] = nil, "NULL"
			case datatype.Geom:
				row[i], text[i] = x.WKT(), x.WKT()
			default:
				row[i], text[i] = datatype.ToGo(v), datatype.AsString(v)
			}
		}
		res.Rows = append(res.Rows, row)
		res.text = append(res.text, text)
	}
	return res, nil
}

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	SelectOptions
	Selection string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{SelectOptions: SelectOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Select rows by attribute and spatial filters",
		Long: `Select rows of a dataset. Spatial relations the backend cannot run are
refined in memory, so every relation works on every backend.

With --selection, returns the rows of a saved selection instead.

Examples:
  dataccess query --db parcels.db --dataset parcels --where "area > 5"
  dataccess query --db parcels.db --dataset parcels --bbox 0,0,10,10 --order-by -area
  dataccess query --db parcels.db --dataset parcels --wkt "POINT(1 1)" --relation within
  dataccess query --db parcels.db --dataset parcels --selection big --redis localhost:6379`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			res, err := runQuery(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return f.Success(res)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.Selection, "selection", "", "return the rows of a saved selection")
	cmd.MarkFlagsMutuallyExclusive("selection", "where")
	cmd.MarkFlagsMutuallyExclusive("selection", "wkt")
	cmd.MarkFlagsMutuallyExclusive("selection", "bbox")

	return cmd
}

func runQuery(ctx context.Context, opts *QueryOptions) (QueryResult, error) {
	var res QueryResult
	err := opts.withTransactor(ctx, false, func(tr datasource.Transactor) error {
		var ds dataset.DataSet
		var err error
		if opts.Selection != "" {
			ds, err = savedRows(ctx, opts, tr)
		} else {
			var sel *query.Select
			if sel, err = opts.build(ctx, tr); err != nil {
				return err
			}
			ds, err = spatial.NewProcessor().GetDataSet(ctx, tr, sel)
		}
		if err != nil {
			return err
		}
		defer ds.Close()
		res, err = collect(ds)
		return err
	})
	if err != nil {
		return QueryResult{}, failure("query "+opts.DataSet, err)
	}
	slog.Debug("query done", "dataset", opts.DataSet, "rows", len(res.Rows))
	return res, nil
}

func savedRows(ctx context.Context, opts *QueryOptions, tr datasource.Transactor) (dataset.DataSet, error) {
	store, err := opts.store()
	if err != nil {
		return nil, err
	}
	defer store.Close()
	sel, err := store.Load(ctx, opts.Selection)
	if err != nil {
		return nil, err
	}
	if sel.DataSet != opts.DataSet {
		return nil, errs.Precondition("selection %q belongs to dataset %q", sel.Name, sel.DataSet)
	}
	return tr.GetDataSetByOIDs(ctx, opts.DataSet, sel.Set)
}

// OIDsOptions holds flags for the oids command.
type OIDsOptions struct {
	SelectOptions
	Key  []string
	Save string
}

// OIDsResult is an identified selection.
type OIDsResult struct {
	Properties []string `json:"properties"`
	IDs        [][]any  `json:"ids"`
	Saved      string   `json:"saved,omitempty"`
}

func (r OIDsResult) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, strings.Join(r.Properties, ", "))
	for _, id := range r.IDs {
		parts := make([]string, len(id))
		for i, v := range id {
			parts[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(&b, strings.Join(parts, ", "))
	}
	fmt.Fprintf(&b, "(%d ids)", len(r.IDs))
	if r.Saved != "" {
		fmt.Fprintf(&b, "\nsaved as %s", r.Saved)
	}
	return b.String()
}

// NewOIDsCommand creates the oids command.
func NewOIDsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OIDsOptions{SelectOptions: SelectOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "oids",
		Short: "Identify the rows a query selects",
		Long: `Identify the rows a query selects by the values of their key
properties: the primary key, else the unique keys, else every keyable
property. --save stores the identities as a named selection.

Examples:
  dataccess oids --db parcels.db --dataset parcels --bbox 0,0,10,10
  dataccess oids --db parcels.db --dataset parcels --where "area > 5" --save big --redis localhost:6379`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			res, err := runOIDs(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return f.Success(res)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringSliceVar(&opts.Key, "key", nil, "identity properties (default from the dataset keys)")
	cmd.Flags().StringVar(&opts.Save, "save", "", "save the identities as a named selection")

	return cmd
}

func runOIDs(ctx context.Context, opts *OIDsOptions) (OIDsResult, error) {
	var res OIDsResult
	err := opts.withTransactor(ctx, false, func(tr datasource.Transactor) error {
		sel, err := opts.build(ctx, tr)
		if err != nil {
			return err
		}
		set, err := spatial.NewProcessor().GetOIDSet(ctx, tr, sel, opts.Key)
		if err != nil {
			return err
		}
		res.Properties = set.PropertyNames()
		res.IDs = [][]any{}
		for _, id := range set.IDs() {
			row := make([]any, len(id))
			for i, v := range id {
				row[i] = datatype.ToGo(v)
			}
			res.IDs = append(res.IDs, row)
		}
		if opts.Save == "" {
			return nil
		}
		store, err := opts.store()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(ctx, selection.Selection{Name: opts.Save, DataSet: opts.DataSet, Set: set}); err != nil {
			return err
		}
		res.Saved = opts.Save
		return nil
	})
	if err != nil {
		return OIDsResult{}, failure("identify rows of "+opts.DataSet, err)
	}
	return res, nil
}
