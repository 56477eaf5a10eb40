package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/typedsql/internal/procedure"
	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

var (
	procCatalogue  string
	procSchema     string
	procUniqueName string
	procParameters bool
	procJSON       bool
)

var proceduresCmd = &cobra.Command{
	Use:   "procedures [name-pattern]",
	Short: "List stored procedures of the configured database",
	Long: `Procedures lists the stored procedures and functions the database catalog
reports. Filters containing % match as patterns, others exactly.

With --parameters each procedure is shown with its call syntax and the input,
output and result documents derived from its parameters.

Examples:
  typedsql procedures --schema public
  typedsql procedures 'add_%' --parameters`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProcedures,
}

func init() {
	rootCmd.AddCommand(proceduresCmd)
	proceduresCmd.Flags().StringVar(&procCatalogue, "catalogue", "", "Catalogue (database) filter")
	proceduresCmd.Flags().StringVar(&procSchema, "schema", "", "Schema filter")
	proceduresCmd.Flags().StringVar(&procUniqueName, "unique-name", "", "Specific name selecting one overload")
	proceduresCmd.Flags().BoolVarP(&procParameters, "parameters", "p", false, "Show parameters")
	proceduresCmd.Flags().BoolVar(&procJSON, "json", false, "Output as JSON")
}

func runProcedures(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	var name string
	if len(args) == 1 {
		name = args[0]
	}

	var found []*procedure.Procedure
	if procParameters || procUniqueName != "" {
		found, err = a.engine.ProcedureInterface(cmd.Context(), procCatalogue, procSchema, name, procUniqueName)
	} else {
		found, err = a.engine.StoredProcedures(cmd.Context(), procCatalogue, procSchema, name)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if procJSON {
		return writeJSON(out, found)
	}
	if len(found) == 0 {
		fmt.Fprintln(out, "No procedures found")
		return nil
	}
	for _, p := range found {
		formatProcedure(out, p, procParameters || procUniqueName != "")
	}
	return nil
}

func formatProcedure(out io.Writer, p *procedure.Procedure, parameters bool) {
	kind := "procedure"
	if p.Function {
		kind = "function"
	}
	fmt.Fprintf(out, "%s (%s)\n", p.QualifiedName(), kind)
	if !parameters {
		return
	}

	iface := p.Interface()
	fmt.Fprintf(out, "  Call:    %s\n", p.CallSyntax())
	fmt.Fprintf(out, "  Input:   %s\n", formatStructure(iface.Input))
	fmt.Fprintf(out, "  Output:  %s\n", formatStructure(iface.Output))
	if iface.Results.Len() > 0 {
		fmt.Fprintf(out, "  Results: %s\n", formatStructure(iface.Results))
	}
	fmt.Fprintln(out)
}

func formatStructure(s sqlgen.Structure) string {
	if s.Len() == 0 {
		return "-"
	}
	parts := make([]string, 0, s.Len())
	for _, el := range s.Elements() {
		parts = append(parts, el.Name+" "+string(el.Kind))
	}
	return strings.Join(parts, ", ")
}
