// Command listops runs goal-directed list operations from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose      bool
	configPath   string
	parallel     int
	instructions string
	explain      bool

	logger *zap.Logger
)

// errIncomplete is returned when an operation finished without a value. The
// result envelope has already been printed.
var errIncomplete = errors.New("operation did not complete")

var rootCmd = &cobra.Command{
	Use:   "listops",
	Short: "Goal-directed list operations backed by a language model",
	Long: `listops applies a natural-language goal to every item of a JSON list.

Items are read from a JSON array (--input, "-" for stdin). The result is
printed as a JSON envelope: {"completed": true, "value": ...} on success or
{"completed": false, "error": "..."} on failure.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
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
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "listops.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().IntVarP(&parallel, "parallel", "p", 0, "Completions in flight (overrides configuration)")
	rootCmd.PersistentFlags().StringVar(&instructions, "instructions", "", "Extra instructions appended to the system prompt")
	rootCmd.PersistentFlags().BoolVar(&explain, "explain", false, "Log the model's explanation for every item")

	rootCmd.AddCommand(
		classifyCmd,
		binaryClassifyCmd,
		filterCmd,
		sortCmd,
		reduceCmd,
		mapCmd,
		projectCmd,
		summarizeCmd,
		askCmd,
		groundedCmd,
		generateCmd,
		cacheCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errIncomplete) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
