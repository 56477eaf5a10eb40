package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/typedsql/internal/paging"
)

var (
	pagingLimit  int
	pagingOffset int
	pagingTotal  int64
	pagingJSON   bool
)

var pagingCmd = &cobra.Command{
	Use:   "paging",
	Short: "Resolve a limit and offset against the configured bounds",
	Long: `Paging applies paging.max_limit, paging.max_offset and paging.page_offset
to a requested limit and offset, and prints the row window and, given a total
row count, the page descriptor a query would report.

Examples:
  typedsql paging --limit 25 --offset 3 --total 140`,
	Args: cobra.NoArgs,
	RunE: runPaging,
}

func init() {
	rootCmd.AddCommand(pagingCmd)
	pagingCmd.Flags().IntVar(&pagingLimit, "limit", 0, "Requested limit (0 for none)")
	pagingCmd.Flags().IntVar(&pagingOffset, "offset", 0, "Requested offset")
	pagingCmd.Flags().Int64Var(&pagingTotal, "total", -1, "Total row count to describe pages for")
	pagingCmd.Flags().BoolVar(&pagingJSON, "json", false, "Output as JSON")
}

func runPaging(cmd *cobra.Command, args []string) error {
	limits := cfg.ToLimits()

	var limit *int
	if cmd.Flags().Changed("limit") {
		limit = paging.Int(pagingLimit)
	}
	p := paging.Resolve(limit, limits.MaxLimit, paging.Int(pagingOffset), limits.MaxOffset, limits.PageOffset)

	result := struct {
		Paging paging.Paging `json:"paging"`
		Page   *paging.Page  `json:"page,omitempty"`
	}{Paging: p}
	if pagingTotal >= 0 {
		offset := int64(p.Offset)
		page := paging.NewPage(p.Limit, &offset, pagingTotal)
		result.Page = &page
	}

	out := cmd.OutOrStdout()
	if pagingJSON {
		return writeJSON(out, result)
	}

	if p.Limit != nil {
		fmt.Fprintf(out, "Limit:  %d\n", *p.Limit)
	} else {
		fmt.Fprintln(out, "Limit:  none")
	}
	fmt.Fprintf(out, "Offset: %d\n", p.Offset)
	if result.Page != nil {
		fmt.Fprintf(out, "Page:   %d of %d (%d rows)\n", result.Page.Current, result.Page.Total, result.Page.TotalRowCount)
	}
	return nil
}
