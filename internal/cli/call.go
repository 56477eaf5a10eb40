package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

var (
	callCatalogue  string
	callSchema     string
	callUniqueName string
	callInput      string
)

var callCmd = &cobra.Command{
	Use:   "call <name>",
	Short: "Call a stored procedure and print its output",
	Long: `Call looks the procedure up in the database catalog, binds the input
document to its parameters and prints the return values and result rows
as JSON. The input is a YAML or JSON mapping of parameter names to values.

Examples:
  typedsql call add_tax --input '{"amount": 10.5}'
  typedsql call report --schema sales --unique-name report_2`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().StringVar(&callCatalogue, "catalogue", "", "Catalogue (database) of the procedure")
	callCmd.Flags().StringVar(&callSchema, "schema", "", "Schema of the procedure")
	callCmd.Flags().StringVar(&callUniqueName, "unique-name", "", "Specific name selecting one overload")
	callCmd.Flags().StringVarP(&callInput, "input", "i", "", "Input parameters as a YAML or JSON mapping")
}

func runCall(cmd *cobra.Command, args []string) error {
	input, err := parseInput(callInput)
	if err != nil {
		return err
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	out, err := a.engine.CallProcedure(cmd.Context(), callCatalogue, callSchema, args[0], callUniqueName, input, "")
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func parseInput(s string) (sqlgen.Values, error) {
	input := sqlgen.Values{}
	if strings.TrimSpace(s) == "" {
		return input, nil
	}
	if err := yaml.Unmarshal([]byte(s), &input); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}
	return input, nil
}
