package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/app"
	"github.com/magefree/mage-deckbuilder-go/internal/catalog"
)

type searchFlags struct {
	colors   []string
	types    []string
	rarity   []string
	sets     []string
	cmcMin   float64
	cmcMax   float64
	sort     string
	desc     bool
	page     int
	pageSize int
}

var searchOpts searchFlags

var searchCmd = &cobra.Command{
	Use:   "search [text...]",
	Short: "Search the configured card catalog",
	Long: `Runs one catalog query against the provider selected in the
configuration file and prints a page of results.`,
	RunE: runSearch,
}

func init() {
	bindSearchFlags(searchCmd, &searchOpts)
}

func bindSearchFlags(cmd *cobra.Command, opts *searchFlags) {
	f := cmd.Flags()
	f.StringSliceVar(&opts.colors, "color", nil, "color codes to match (W,U,B,R,G,C)")
	f.StringSliceVar(&opts.types, "type", nil, "type line fragments to match")
	f.StringSliceVar(&opts.rarity, "rarity", nil, "rarities to match")
	f.StringSliceVar(&opts.sets, "set", nil, "set codes to match")
	f.Float64Var(&opts.cmcMin, "cmc-min", 0, "minimum mana value")
	f.Float64Var(&opts.cmcMax, "cmc-max", 0, "maximum mana value")
	f.StringVar(&opts.sort, "sort", string(catalog.SortName), "sort field (name, cmc, rarity, set)")
	f.BoolVar(&opts.desc, "desc", false, "sort descending")
	f.IntVar(&opts.page, "page", 1, "result page, starting at 1")
	f.IntVar(&opts.pageSize, "page-size", 0, "results per page (default from config)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	q, err := buildQuery(cmd, args, searchOpts)
	if err != nil {
		return err
	}
	if q.PageSize == 0 {
		q.PageSize = cfg.Catalog.PageSize
	}

	ctx := cmd.Context()
	source, closeSource, err := app.OpenSource(ctx, cfg.Catalog, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	page, err := source.Search(ctx, q)
	if err != nil {
		return err
	}
	logger.Debug("search complete",
		zap.String("text", q.Text),
		zap.Int("results", len(page.Results)),
		zap.Int("total", page.TotalCount),
	)
	return writePage(cmd.OutOrStdout(), q.Normalized(), page)
}

func buildQuery(cmd *cobra.Command, args []string, opts searchFlags) (catalog.Query, error) {
	field := catalog.SortField(opts.sort)
	switch field {
	case catalog.SortName, catalog.SortCMC, catalog.SortRarity, catalog.SortSet:
	default:
		return catalog.Query{}, fmt.Errorf("invalid sort field %q", opts.sort)
	}

	q := catalog.Query{
		Text: strings.Join(args, " "),
		Filters: catalog.Filters{
			Colors: upper(opts.colors),
			Types:  opts.types,
			Rarity: opts.rarity,
			Sets:   opts.sets,
		},
		Sort:     catalog.Sort{Field: field, Desc: opts.desc},
		Page:     opts.page,
		PageSize: opts.pageSize,
	}
	if cmd.Flags().Changed("cmc-min") {
		v := opts.cmcMin
		q.Filters.CMCMin = &v
	}
	if cmd.Flags().Changed("cmc-max") {
		v := opts.cmcMax
		q.Filters.CMCMax = &v
	}
	if q.Filters.CMCMin != nil && q.Filters.CMCMax != nil && *q.Filters.CMCMin > *q.Filters.CMCMax {
		return catalog.Query{}, fmt.Errorf("cmc-min %.0f is above cmc-max %.0f", *q.Filters.CMCMin, *q.Filters.CMCMax)
	}
	return q, nil
}

func upper(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}

func writePage(w io.Writer, q catalog.Query, page catalog.Page) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOST\tTYPE\tSET\tRARITY")
	for _, c := range page.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.ManaCost, c.TypeLine, c.SetCode, c.Rarity)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	more := ""
	if page.HasMore {
		more = ", more available"
	}
	_, err := fmt.Fprintf(w, "\npage %d: %d of %d cards%s\n", q.Page, len(page.Results), page.TotalCount, more)
	return err
}
