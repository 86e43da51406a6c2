// Package types holds the shared data model for the deck-building core:
// cards, decks, build requests, agent plans, and quality metrics.
package types

import "strings"

// Card is a single Magic: The Gathering card as stored in the catalog.
// Cards are read-only within the core; the store owns the canonical records
// and every higher layer sees immutable views.
type Card struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	ManaCost      string            `json:"mana_cost,omitempty"`
	CMC           float64           `json:"cmc"`
	Colors        []string          `json:"colors"`
	ColorIdentity []string          `json:"color_identity"`
	TypeLine      string            `json:"type_line"`
	Types         []string          `json:"types"`
	Subtypes      []string          `json:"subtypes"`
	OracleText    string            `json:"oracle_text,omitempty"`
	Power         string            `json:"power,omitempty"`
	Toughness     string            `json:"toughness,omitempty"`
	Loyalty       string            `json:"loyalty,omitempty"`
	SetCode       string            `json:"set_code"`
	Rarity        string            `json:"rarity"`
	Legalities    map[string]string `json:"legalities"`
	Keywords      []string          `json:"keywords"`
}

// IsLand reports whether the card has the Land type.
func (c *Card) IsLand() bool {
	for _, t := range c.Types {
		if t == "Land" {
			return true
		}
	}
	return false
}

// IsBasicLand reports whether the card is a basic land (exempt from copy limits).
func (c *Card) IsBasicLand() bool {
	return c.IsLand() && strings.HasPrefix(c.TypeLine, "Basic")
}

// IsLegendary reports whether the type line carries the Legendary supertype.
func (c *Card) IsLegendary() bool {
	return strings.Contains(c.TypeLine, "Legendary")
}

// IsCreature reports whether the card has the Creature type.
func (c *Card) IsCreature() bool {
	for _, t := range c.Types {
		if t == "Creature" {
			return true
		}
	}
	return false
}

// LegalIn reports whether the card is legal in the given format.
// Legality keys are stored lowercase ("standard", "commander", ...).
func (c *Card) LegalIn(format string) bool {
	if len(c.Legalities) == 0 {
		return false
	}
	status, ok := c.Legalities[strings.ToLower(format)]
	return ok && strings.EqualFold(status, "legal")
}

// BasicLandName maps a color letter to its basic land. Unknown or empty
// colors map to the neutral basic.
func BasicLandName(color string) string {
	switch color {
	case "W":
		return "Plains"
	case "U":
		return "Island"
	case "B":
		return "Swamp"
	case "R":
		return "Mountain"
	case "G":
		return "Forest"
	default:
		return "Wastes"
	}
}

// BasicLandCard synthesizes a basic land record for executor-owned land
// distribution. Basic lands are not required to exist in the catalog.
func BasicLandCard(color string) *Card {
	name := BasicLandName(color)
	identity := []string{}
	switch color {
	case "W", "U", "B", "R", "G":
		identity = []string{color}
	}
	return &Card{
		ID:            strings.ToLower(name),
		Name:          name,
		CMC:           0,
		Colors:        []string{},
		ColorIdentity: identity,
		TypeLine:      "Basic Land — " + name,
		Types:         []string{"Land"},
		Subtypes:      []string{name},
		Rarity:        "common",
		Legalities:    map[string]string{},
	}
}

// SearchFilters is the cross-product filter set accepted by the card store.
// Nil/zero fields are unconstrained.
type SearchFilters struct {
	Colors      []string
	Types       []string
	CMCMin      *float64
	CMCMax      *float64
	Rarity      string
	FormatLegal string
	TextQuery   string
	Limit       int
}
