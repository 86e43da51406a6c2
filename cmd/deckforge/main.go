// Package main implements the deckforge CLI - an agentic Magic: The
// Gathering deck builder driven by the Draft-Verify-Refine loop.
//
// Commands:
//   - cmd_build.go  - build a new deck from a natural-language request
//   - cmd_modify.go - apply a modification prompt to a saved deck
//   - cmd_import.go - load an AtomicCards JSON dump into the card store
//   - cmd_embed.go  - sync card embeddings into the vector store
//   - cmd_stats.go  - show store, vector, and cache statistics
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/swstevens/agentic-cag-system/internal/logging"
)

var (
	// Global flags
	verbose   bool
	workspace string

	// Logger for CLI output
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "deckforge",
	Short: "deckforge - agentic MTG deck builder",
	Long: `deckforge constructs and iteratively refines Magic: The Gathering decks
from natural-language requests.

A finite-state machine drives tool-using LLM agents through a bounded
Draft-Verify-Refine loop over a two-tier card retrieval substrate
(SQL filters + semantic vector search with an LRU cache in front),
enforcing format rules on every deck mutation.`,
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

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		} else if abs, err := filepath.Abs(ws); err == nil {
			ws = abs
		}
		workspace = ws

		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&workspace, "workspace", "", "workspace directory (default: cwd)")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(modifyCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
