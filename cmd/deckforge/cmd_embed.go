package main

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// embedChunk is how many cards are handed to the vector store per call;
// matches the embedding API batch limit so each chunk is one request.
const embedChunk = 100

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Sync card embeddings into the vector store",
	Long: `Generate semantic embeddings for every card in the card store and
upsert them into the vector store. Requires embedding credentials.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCore(true)
		if err != nil {
			return err
		}
		defer cleanup()

		if !c.vec.Enabled() {
			return fmt.Errorf("embedding engine not configured (set OPENAI_API_KEY or GEMINI_API_KEY)")
		}

		cards, err := c.store.AllCards()
		if err != nil {
			return err
		}
		if len(cards) == 0 {
			return fmt.Errorf("card store is empty; run 'deckforge import' first")
		}

		logger.Sugar().Infow("embedding cards", "count", len(cards))
		bar := progressbar.Default(int64(len(cards)), "embedding")

		ctx := context.Background()
		total := 0
		for start := 0; start < len(cards); start += embedChunk {
			end := start + embedChunk
			if end > len(cards) {
				end = len(cards)
			}
			n, err := c.vec.UpsertCards(ctx, cards[start:end])
			total += n
			_ = bar.Add(end - start)
			if err != nil {
				return fmt.Errorf("embedding failed after %d cards: %w", total, err)
			}
		}

		fmt.Printf("\nIndexed %d cards into %s\n", total, c.cfg.Store.VectorDBPath)
		return nil
	},
}
