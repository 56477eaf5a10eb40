package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/typedsql/internal/logger"
	"github.com/mvp-joe/typedsql/internal/watcher"
)

var (
	generateJSON  bool
	generateWatch bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <type-id>...",
	Short: "Print the SQL generated for types",
	Long: `Generate prints the joined select and the insert, merge, update and
delete statements of each type in the configured dialect. Table affixes are
applied; named placeholders (:name) are kept.

With --watch the statements are printed again whenever a type definition
file changes, until interrupted.

Examples:
  typedsql generate crm.Customer
  typedsql generate crm.Customer crm.Order --json
  typedsql generate crm.Customer --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "Output as JSON")
	generateCmd.Flags().BoolVarP(&generateWatch, "watch", "w", false, "Regenerate when type definition files change")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := requireTypes(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := printGenerated(out, args); err != nil {
		return err
	}
	if !generateWatch {
		return nil
	}

	w, err := watcher.New(cfg.Types.Files, 0)
	if err != nil {
		return err
	}
	defer w.Stop()

	ctx := cmd.Context()
	if err := w.Start(ctx, func(files []string) {
		logger.Get().Info("regenerating", "changed", files)
		// a broken definition is reported and the next save retried
		if err := printGenerated(out, args); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// printGenerated loads the types afresh and prints the statements of typeIDs.
func printGenerated(out io.Writer, typeIDs []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	for _, typeID := range typeIDs {
		statements, err := a.engine.Generate(typeID)
		if err != nil {
			return fmt.Errorf("failed to generate %s: %w", typeID, err)
		}
		if generateJSON {
			if err := writeJSON(out, statements); err != nil {
				return err
			}
			continue
		}

		fmt.Fprintf(out, "-- %s (%s)\n", typeID, a.dialect.Name())
		for _, s := range statements {
			label := string(s.Kind)
			if s.Table != "" {
				label += " " + s.Table
			}
			fmt.Fprintf(out, "-- %s\n%s;\n", strings.ToUpper(label[:1])+label[1:], s.SQL)
		}
		fmt.Fprintln(out)
	}
	return nil
}
