package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/typedsql/internal/config"
	"github.com/mvp-joe/typedsql/internal/logger"
)

var (
	cfgFile   string
	typeFiles []string
	verbose   bool

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "typedsql",
	Short: "Generate and run SQL for typed entity hierarchies",
	Long: `typedsql maps type definitions with inheritance onto relational tables
and generates the SQL to read and write them.

Configuration is read from ~/.typedsql/config.yml, .typedsql/config.yml and
TYPEDSQL_* environment variables, or from the file given with --config.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .typedsql/config.yml)")
	rootCmd.PersistentFlags().StringSliceVarP(&typeFiles, "types", "t", nil, "type definition files, replacing types.files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var (
		loaded *config.Config
		err    error
	)
	if cfgFile != "" {
		loaded, err = config.NewFileLoader(cfgFile).Load()
	} else {
		loaded, err = config.LoadConfig()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if len(typeFiles) > 0 {
		loaded.Types.Files = typeFiles
	}
	cfg = loaded

	logger.Setup(cmd.ErrOrStderr(), verbose || cfg.Log.Debug)
	return nil
}
