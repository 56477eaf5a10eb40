package cli

import (
	"github.com/spf13/cobra"

	"github.com/mvp-joe/typedsql/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve typedsql tools over MCP on stdio",
	Long: `MCP starts a Model Context Protocol server on stdin/stdout offering the
typedsql_describe and typedsql_generate tools, and typedsql_query when
database.dsn is configured. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	if err := requireTypes(); err != nil {
		return err
	}
	withDatabase := cfg.HasDatabase()
	a, err := newApp(withDatabase)
	if err != nil {
		return err
	}
	defer a.close()

	return mcp.Serve(cmd.Context(), mcp.NewServer(a.engine, Version, withDatabase))
}
