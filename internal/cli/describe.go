package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <type-id>...",
	Short: "Show the name and table of types",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTypes(); err != nil {
			return err
		}
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		for _, typeID := range args {
			d, err := a.engine.Describe(typeID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", typeID, d.TypeName, d.CollectionName)
		}
		return nil
	},
}

var dialectsCmd = &cobra.Command{
	Use:   "dialects",
	Short: "List the supported SQL dialects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		for _, name := range a.engine.Dialects() {
			marker := " "
			if name == a.dialect.Name() {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(dialectsCmd)
}
