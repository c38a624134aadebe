package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoobiii/HVMx/internal/config"
	"github.com/scoobiii/HVMx/internal/logging"
)

var (
	// Global flags
	cfgPath  string
	bookPath string
	workers  int
	maxSteps uint64
	verbose  bool

	// Loaded configuration and logger, built in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hvmx",
	Short: "hvmx - interaction net virtual machine",
	Long: `hvmx reduces interaction nets to normal form.

Programs are books of net definitions stored as JSON. A run instantiates a
definition, applies it to numeral arguments and rewrites the net until no
redex remains, printing the normal form.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("book") {
			cfg.Book.Path = bookPath
		}
		if cmd.Flags().Changed("workers") {
			cfg.Runtime.Workers = workers
		}
		if cmd.Flags().Changed("steps") {
			cfg.Runtime.MaxSteps = maxSteps
		}
		if verbose {
			cfg.Logging.Level = "debug"
			cfg.Logging.JSON = false
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.JSON)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "hvmx.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&bookPath, "book", "", "book file (defaults to the built-in demo book)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "reduction workers (overrides config)")
	rootCmd.PersistentFlags().Uint64Var(&maxSteps, "steps", 0, "rewrite budget, 0 for unbounded (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to the console")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(bookCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
