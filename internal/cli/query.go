package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/typedsql/internal/engine"
	"github.com/mvp-joe/typedsql/internal/paging"
	"github.com/mvp-joe/typedsql/internal/schema"
	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

var (
	queryWhere      []string
	queryOrWhere    []string
	queryOrderBy    []string
	queryLimit      int
	queryOffset     int
	queryCount      bool
	queryStatistics []string
	queryExplain    bool
)

var queryCmd = &cobra.Command{
	Use:   "query <type-id>",
	Short: "Select instances of a type from the configured database",
	Long: `Query runs a filtered select over the tables of a type and prints the
result as JSON.

Filters have the form "field op value". Lists are comma separated and
toggle operators take no value:
  --where "loyaltyLevel >= 2"
  --where "name ilike an%"
  --where "country = de,fr"
  --where "email is null"
Filters given with --or-where are joined with the filter that follows them
using OR.

Examples:
  typedsql query crm.Customer --where "loyaltyLevel > 1" --order-by "name desc" --limit 20 --count
  typedsql query crm.Customer --where "name ilike a%" --explain
  typedsql query crm.Customer --where "loyaltyLevel >= 2" --statistics loyaltyLevel`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringArrayVarP(&queryWhere, "where", "w", nil, "Filter, repeatable")
	queryCmd.Flags().StringArrayVar(&queryOrWhere, "or-where", nil, "Filter OR-ed with the next one, repeatable")
	queryCmd.Flags().StringArrayVarP(&queryOrderBy, "order-by", "o", nil, "Field with optional asc/desc, repeatable")
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "l", 0, "Maximum rows")
	queryCmd.Flags().IntVar(&queryOffset, "offset", 0, "Rows to skip (pages with paging.page_offset)")
	queryCmd.Flags().BoolVar(&queryCount, "count", false, "Report the total row count")
	queryCmd.Flags().StringArrayVar(&queryStatistics, "statistics", nil, "Field to count rows per value for, repeatable")
	queryCmd.Flags().BoolVar(&queryExplain, "explain", false, "Print the query plan instead of rows")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := requireTypes(); err != nil {
		return err
	}
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	t, err := a.types.Resolve(args[0])
	if err != nil {
		return err
	}
	var filters []sqlgen.Filter
	for _, expr := range queryOrWhere {
		f, err := parseFilter(t, expr)
		if err != nil {
			return err
		}
		f.OrWithNext = true
		filters = append(filters, f)
	}
	for _, expr := range queryWhere {
		f, err := parseFilter(t, expr)
		if err != nil {
			return err
		}
		filters = append(filters, f)
	}
	req := sqlgen.FilterRequest{Filters: filters, Statistics: queryStatistics}

	out := cmd.OutOrStdout()
	if queryExplain {
		plan, err := a.engine.Explain(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, plan.Query)
		for _, line := range plan.Lines {
			fmt.Fprintf(out, "  %s\n", line)
		}
		return nil
	}

	page := engine.Page{OrderBy: queryOrderBy, Offset: paging.Int(queryOffset), Count: queryCount}
	if cmd.Flags().Changed("limit") {
		page.Limit = paging.Int(queryLimit)
	}
	resp, err := a.engine.SelectFiltered(cmd.Context(), args[0], engine.FilterRequest{FilterRequest: req, Page: page})
	if err != nil {
		return err
	}
	return writeJSON(out, resp)
}

// filterOperators lists the operators a filter expression may use. Word
// operators must follow a space so field names containing them still parse.
var filterOperators = []sqlgen.Operator{
	sqlgen.OpIsNotNull, sqlgen.OpIsNull,
	sqlgen.OpIsNotTrue, sqlgen.OpIsNotFalse, sqlgen.OpIsTrue, sqlgen.OpIsFalse,
	sqlgen.OpNotILike, sqlgen.OpNotLike, sqlgen.OpILike, sqlgen.OpLike,
	sqlgen.OpGreaterOrEqual, sqlgen.OpLessOrEqual, sqlgen.OpNotEqual,
	sqlgen.OpEqual, sqlgen.OpGreater, sqlgen.OpLess,
}

// parseFilter reads "field op value[,value...]". The operator is the first
// one in the expression, the longest on a tie, so ">=" is not read as ">" and
// operators inside the value are left alone. Values are converted to the kind
// of the field they compare with.
func parseFilter(t *schema.Type, expr string) (sqlgen.Filter, error) {
	var (
		lower = strings.ToLower(expr)
		op    sqlgen.Operator
		token string
		at    = -1
	)
	for _, candidate := range filterOperators {
		tok := string(candidate)
		if !candidate.IsComparison() || isWord(candidate) {
			tok = " " + tok
		}
		i := strings.Index(lower, tok)
		if i <= 0 {
			continue
		}
		if at < 0 || i < at || (i == at && len(tok) > len(token)) {
			op, token, at = candidate, tok, i
		}
	}
	if at < 0 {
		return sqlgen.Filter{}, fmt.Errorf("filter %q: expected \"field op value\"", expr)
	}

	key := strings.TrimSpace(expr[:at])
	rest := strings.TrimSpace(expr[at+len(token):])

	_, field := schema.Lookup(schema.Chain(t), key)
	if field == nil {
		return sqlgen.Filter{}, &sqlgen.BuildError{Op: "where", Type: t.String(), Field: key, Err: sqlgen.ErrFieldNotFound}
	}

	f := sqlgen.Filter{Key: key, Operator: op}
	if !op.IsComparison() {
		if rest != "" {
			return sqlgen.Filter{}, fmt.Errorf("filter %q: %s takes no value", expr, op)
		}
		f.Values = []any{true}
		return f, nil
	}
	for _, raw := range strings.Split(rest, ",") {
		value, err := schema.Convert(strings.TrimSpace(raw), field.Kind)
		if err != nil {
			return sqlgen.Filter{}, fmt.Errorf("filter %q: %w", expr, err)
		}
		f.Values = append(f.Values, value)
	}
	return f, nil
}

// isWord reports whether op is spelled with letters and needs a space before it.
func isWord(op sqlgen.Operator) bool {
	return strings.ContainsAny(string(op), "abcdefghijklmnopqrstuvwxyz")
}
