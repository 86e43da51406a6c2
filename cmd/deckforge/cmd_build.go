package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/swstevens/agentic-cag-system/internal/intent"
	"github.com/swstevens/agentic-cag-system/internal/types"
)

var (
	buildFormat    string
	buildColors    []string
	buildArchetype string
	buildThreshold float64
	buildMaxIter   int
	buildOutput    string
)

var buildCmd = &cobra.Command{
	Use:   "build [request]",
	Short: "Build a new deck from a natural-language request",
	Long: `Build a new deck. The request text is parsed for format, colors, and
archetype; explicit flags override the parsed values.

Examples:
  deckforge build "mono red aggro for standard"
  deckforge build --format Commander --colors R,G --archetype Midrange "gruul stompy"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := ""
		if len(args) > 0 {
			message = args[0]
		}

		c, cleanup, err := openCore(false)
		if err != nil {
			return err
		}
		defer cleanup()

		parser := intent.New(nil)
		req := parser.ParseBuildRequest(message)
		if buildFormat != "" {
			req.Format = buildFormat
		}
		if len(buildColors) > 0 {
			req.Colors = normalizeColors(buildColors)
		}
		if buildArchetype != "" {
			req.Archetype = buildArchetype
		}
		req.QualityThreshold = buildThreshold
		req.MaxIterations = buildMaxIter

		logger.Sugar().Infow("building deck",
			"format", req.Format, "colors", req.Colors, "archetype", req.Archetype)

		result := c.orch.BuildNewDeck(context.Background(), req)
		printResult(result)

		if result.Success && buildOutput != "" {
			if err := writeDeckFile(buildOutput, result.Deck); err != nil {
				return err
			}
			fmt.Printf("\nDeck written to %s\n", buildOutput)
		}
		if !result.Success {
			return fmt.Errorf("build failed: %s", result.Error)
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&buildFormat, "format", "", "format (Standard, Modern, Commander, ...)")
	buildCmd.Flags().StringSliceVar(&buildColors, "colors", nil, "deck colors (W,U,B,R,G)")
	buildCmd.Flags().StringVar(&buildArchetype, "archetype", "", "archetype (Aggro, Midrange, Control, Combo)")
	buildCmd.Flags().Float64Var(&buildThreshold, "threshold", 0.7, "quality threshold in [0,1]")
	buildCmd.Flags().IntVar(&buildMaxIter, "max-iterations", 5, "maximum build/refine iterations")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "write the final deck as JSON to this file")
}

func normalizeColors(colors []string) []string {
	out := make([]string, 0, len(colors))
	for _, c := range colors {
		out = append(out, strings.ToUpper(strings.TrimSpace(c)))
	}
	return out
}

func printResult(result *types.DeckResult) {
	if !result.Success {
		fmt.Printf("Build failed: %s\n", result.Error)
		return
	}

	deck := result.Deck
	fmt.Printf("Built a %s %s deck (%d cards) in %d iteration(s)\n\n",
		deck.Format, deck.Archetype, deck.TotalCards, result.IterationCount)

	fmt.Println("Decklist:")
	for _, dc := range deck.Cards {
		fmt.Printf("  %dx %s (%s)\n", dc.Quantity, dc.Card.Name, dc.Card.TypeLine)
	}

	if q := result.Quality; q != nil {
		fmt.Printf("\nQuality: %.2f (curve %.2f, lands %.2f, synergy %.2f, consistency %.2f)\n",
			q.OverallScore, q.ManaCurveScore, q.LandRatioScore, q.SynergyScore, q.ConsistencyScore)
		for _, issue := range firstN(q.Issues, 3) {
			fmt.Printf("  ! %s\n", issue)
		}
		for _, suggestion := range firstN(q.Suggestions, 3) {
			fmt.Printf("  > %s\n", suggestion)
		}
	}
	if len(result.IterationHistory) > 1 {
		fmt.Println("\nIterations:")
		for _, it := range result.IterationHistory {
			fmt.Printf("  #%d score %.2f\n", it.Iteration, it.QualityScore)
		}
	}
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func writeDeckFile(path string, deck *types.Deck) error {
	data, err := json.MarshalIndent(deck, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func readDeckFile(path string) (*types.Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var deck types.Deck
	if err := json.Unmarshal(data, &deck); err != nil {
		return nil, fmt.Errorf("failed to parse deck file %s: %w", path, err)
	}
	deck.CalculateTotals()
	return &deck, nil
}
