package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

var (
	insertsFile    string
	insertsDialect string
	insertsCompact bool
)

var insertsCmd = &cobra.Command{
	Use:   "inserts <type-id>",
	Short: "Render literal INSERT statements for instances",
	Long: `Inserts reads a YAML or JSON list of instances and prints one INSERT per
table of the type for each instance, values rendered as literals.

Examples:
  typedsql inserts crm.Customer --file customers.yaml
  typedsql inserts crm.Customer --file - --dialect mysql --compact < customers.json`,
	Args: cobra.ExactArgs(1),
	RunE: runInserts,
}

func init() {
	rootCmd.AddCommand(insertsCmd)
	insertsCmd.Flags().StringVarP(&insertsFile, "file", "f", "-", "Instances file, - for stdin")
	insertsCmd.Flags().StringVarP(&insertsDialect, "dialect", "d", "", "Dialect to render for (default is dialect.name)")
	insertsCmd.Flags().BoolVar(&insertsCompact, "compact", false, "One line per statement")
}

func runInserts(cmd *cobra.Command, args []string) error {
	if err := requireTypes(); err != nil {
		return err
	}
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	var in io.Reader = cmd.InOrStdin()
	if insertsFile != "-" {
		f, err := os.Open(insertsFile)
		if err != nil {
			return fmt.Errorf("failed to open instances: %w", err)
		}
		defer f.Close()
		in = f
	}
	instances, err := readInstances(in)
	if err != nil {
		return err
	}

	name := insertsDialect
	if name == "" {
		name = a.dialect.Name()
	}
	statements, err := a.engine.BuildInserts(args[0], instances, name, insertsCompact)
	if err != nil {
		return err
	}
	for _, s := range statements {
		fmt.Fprintln(cmd.OutOrStdout(), s)
	}
	return nil
}

// readInstances decodes a YAML (or JSON) list of field maps.
func readInstances(r io.Reader) ([]sqlgen.Values, error) {
	var raw []map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode instances: %w", err)
	}
	instances := make([]sqlgen.Values, len(raw))
	for i, m := range raw {
		instances[i] = sqlgen.Values(m)
	}
	return instances, nil
}
