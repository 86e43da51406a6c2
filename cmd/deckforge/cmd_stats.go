package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store, vector, and cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCore(true)
		if err != nil {
			return err
		}
		defer cleanup()

		cardCount, err := c.store.Count()
		if err != nil {
			return err
		}
		fmt.Printf("Card store:   %d cards (%s)\n", cardCount, c.cfg.Store.CardDBPath)

		if c.vec.Enabled() {
			vecCount, err := c.vec.Count()
			if err != nil {
				return err
			}
			fmt.Printf("Vector store: %d embedded cards (%s)\n", vecCount, c.cfg.Store.VectorDBPath)
		} else {
			fmt.Println("Vector store: disabled (no embedding credentials)")
		}

		stats := c.repo.CacheStats()
		fmt.Printf("Card cache:   %d entries, %d hits, %d misses, %d evictions (hit rate %.1f%%)\n",
			stats.Size, stats.Hits, stats.Misses, stats.Evictions, stats.HitRate*100)
		return nil
	},
}
