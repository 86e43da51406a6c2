package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/swstevens/agentic-cag-system/internal/types"
)

// importBatchSize is how many cards go into each insert transaction.
const importBatchSize = 500

var importCmd = &cobra.Command{
	Use:   "import <atomic-cards.json>",
	Short: "Load an AtomicCards JSON dump into the card store",
	Long: `Import cards from an MTGJSON AtomicCards dump (one record per unique
oracle text). Existing cards with the same id are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCore(true)
		if err != nil {
			return err
		}
		defer cleanup()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		var dump atomicCardsFile
		if err := json.Unmarshal(raw, &dump); err != nil {
			return fmt.Errorf("failed to parse %s: %w", args[0], err)
		}
		if len(dump.Data) == 0 {
			return fmt.Errorf("no cards found in %s", args[0])
		}

		logger.Sugar().Infow("importing cards", "unique_names", len(dump.Data))
		bar := progressbar.Default(int64(len(dump.Data)), "importing")

		// Conversion runs ahead of insertion: one goroutine maps raw
		// records to cards while this goroutine writes batches.
		cardCh := make(chan *types.Card, importBatchSize)
		var g errgroup.Group
		g.Go(func() error {
			defer close(cardCh)
			for name, variants := range dump.Data {
				if len(variants) == 0 {
					continue
				}
				// AtomicCards lists one record per face; the first carries
				// the card-level fields we store.
				cardCh <- convertAtomicCard(name, variants[0])
			}
			return nil
		})

		total := 0
		batch := make([]*types.Card, 0, importBatchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			n, err := c.store.BulkInsert(batch)
			total += n
			_ = bar.Add(len(batch))
			batch = batch[:0]
			return err
		}
		for card := range cardCh {
			batch = append(batch, card)
			if len(batch) >= importBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if err := flush(); err != nil {
			return err
		}

		fmt.Printf("\nImported %d cards into %s\n", total, c.cfg.Store.CardDBPath)
		return nil
	},
}

// atomicCardsFile mirrors the MTGJSON AtomicCards envelope.
type atomicCardsFile struct {
	Data map[string][]atomicCard `json:"data"`
}

type atomicCard struct {
	ManaCost      string            `json:"manaCost"`
	ManaValue     float64           `json:"manaValue"`
	Colors        []string          `json:"colors"`
	ColorIdentity []string          `json:"colorIdentity"`
	Type          string            `json:"type"`
	Types         []string          `json:"types"`
	Subtypes      []string          `json:"subtypes"`
	Supertypes    []string          `json:"supertypes"`
	Text          string            `json:"text"`
	Power         string            `json:"power"`
	Toughness     string            `json:"toughness"`
	Loyalty       string            `json:"loyalty"`
	Keywords      []string          `json:"keywords"`
	Legalities    map[string]string `json:"legalities"`
	FirstPrinting string            `json:"firstPrinting"`
	Identifiers   struct {
		ScryfallOracleID string `json:"scryfallOracleId"`
	} `json:"identifiers"`
}

func convertAtomicCard(name string, raw atomicCard) *types.Card {
	id := raw.Identifiers.ScryfallOracleID
	if id == "" {
		id = strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	}
	return &types.Card{
		ID:            id,
		Name:          name,
		ManaCost:      raw.ManaCost,
		CMC:           raw.ManaValue,
		Colors:        raw.Colors,
		ColorIdentity: raw.ColorIdentity,
		TypeLine:      raw.Type,
		Types:         raw.Types,
		Subtypes:      raw.Subtypes,
		OracleText:    raw.Text,
		Power:         raw.Power,
		Toughness:     raw.Toughness,
		Loyalty:       raw.Loyalty,
		SetCode:       raw.FirstPrinting,
		Keywords:      raw.Keywords,
		Legalities:    raw.Legalities,
	}
}
