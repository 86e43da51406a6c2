package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	modifyDeckPath string
	modifyOutput   string
	modifyVerify   bool
)

var modifyCmd = &cobra.Command{
	Use:   "modify [prompt]",
	Short: "Apply a modification prompt to an existing deck",
	Long: `Apply a natural-language modification to a deck saved as JSON.

Example:
  deckforge modify --deck mono-red.json "Add more card draw"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deck, err := readDeckFile(modifyDeckPath)
		if err != nil {
			return err
		}

		c, cleanup, err := openCore(false)
		if err != nil {
			return err
		}
		defer cleanup()

		result := c.orch.ModifyDeck(context.Background(), deck, args[0], modifyVerify)
		printResult(result)

		if result.Success {
			out := modifyOutput
			if out == "" {
				out = modifyDeckPath
			}
			if err := writeDeckFile(out, result.Deck); err != nil {
				return err
			}
			fmt.Printf("\nDeck written to %s\n", out)
			return nil
		}
		return fmt.Errorf("modification failed: %s", result.Error)
	},
}

func init() {
	modifyCmd.Flags().StringVar(&modifyDeckPath, "deck", "", "path to the deck JSON file (required)")
	modifyCmd.Flags().StringVarP(&modifyOutput, "output", "o", "", "write the modified deck here (default: overwrite input)")
	modifyCmd.Flags().BoolVar(&modifyVerify, "verify", true, "run the quality verifier on the modified deck")
	_ = modifyCmd.MarkFlagRequired("deck")
}
