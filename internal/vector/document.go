// Package vector implements the semantic card index: each card is embedded
// from a deterministically assembled description and queried by top-k
// cosine similarity, with metadata filters and an LRU memo over recent
// queries.
package vector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/swstevens/agentic-cag-system/internal/types"
)

var colorNames = map[string]string{
	"W": "white", "U": "blue", "B": "black", "R": "red", "G": "green",
}

// BuildDocument assembles the semantic description a card is embedded from:
// identity, cost, color phrasing, rules text, stats, keywords, and the
// strategic-tag block. The assembly is deterministic so re-indexing is
// reproducible.
func BuildDocument(card *types.Card) string {
	parts := make([]string, 0, 8)

	parts = append(parts, fmt.Sprintf("%s - %s", card.Name, card.TypeLine))

	if card.ManaCost != "" {
		parts = append(parts, "Costs "+card.ManaCost)
	} else {
		parts = append(parts, fmt.Sprintf("%d mana", int(card.CMC)))
	}

	if len(card.Colors) > 0 {
		names := make([]string, 0, len(card.Colors))
		for _, c := range card.Colors {
			if n, ok := colorNames[c]; ok {
				names = append(names, n)
			} else {
				names = append(names, c)
			}
		}
		parts = append(parts, strings.Join(names, " and ")+" card")
	}

	if card.OracleText != "" {
		parts = append(parts, card.OracleText)
	}
	if card.Power != "" && card.Toughness != "" {
		parts = append(parts, fmt.Sprintf("%s/%s creature", card.Power, card.Toughness))
	}
	if card.Loyalty != "" {
		parts = append(parts, "Starting loyalty "+card.Loyalty)
	}
	if len(card.Keywords) > 0 {
		parts = append(parts, "Keywords: "+strings.Join(card.Keywords, ", "))
	}

	if tags := GenerateStrategicTags(card); len(tags) > 0 {
		parts = append(parts, strings.Join(tags, ". "))
	}

	return strings.Join(parts, ". ")
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func hasKeyword(keywords []string, names ...string) bool {
	for _, k := range keywords {
		for _, n := range names {
			if k == n {
				return true
			}
		}
	}
	return false
}

// GenerateStrategicTags derives deck-building context from a card's text,
// types, and keywords: synergy classes, anti-synergy warnings, strategic
// roles, and format hints. Pure function of the card; the tag text is part
// of the embedded document, so changing it means re-indexing.
func GenerateStrategicTags(card *types.Card) []string {
	tags := make([]string, 0, 8)
	oracle := strings.ToLower(card.OracleText)
	typeLine := strings.ToLower(card.TypeLine)
	keywords := make([]string, 0, len(card.Keywords))
	for _, k := range card.Keywords {
		keywords = append(keywords, strings.ToLower(k))
	}
	isCreature := card.IsCreature()

	// ----- Synergy indicators -----

	if containsAny(oracle, "graveyard", "dies", "from your graveyard", "return", "reanimate") {
		tags = append(tags, "Synergy: Graveyard strategies. Works well with self-mill, sacrifice effects, and reanimation")
	}

	if isCreature {
		for _, subtype := range card.Subtypes {
			if subtype == "Legendary" {
				continue
			}
			tags = append(tags, fmt.Sprintf("Synergy: %s tribal. Benefits from or enables %s tribal strategies", subtype, subtype))
		}
	}

	if containsAny(oracle, "+1/+1 counter", "counter on") {
		tags = append(tags, "Synergy: +1/+1 counters. Works with proliferate, counter manipulation, and counters-matter cards")
	}

	if matchesType(card, "Artifact") || strings.Contains(oracle, "artifact") {
		tags = append(tags, "Synergy: Artifact strategies. Enables metalcraft, affinity, and artifact-matters effects")
	}

	if matchesType(card, "Enchantment") || strings.Contains(oracle, "enchantment") {
		tags = append(tags, "Synergy: Enchantment strategies. Works with constellation and enchantress effects")
	}

	if containsAny(oracle, "instant or sorcery", "cast a spell", "noncreature spell", "whenever you cast") {
		tags = append(tags, "Synergy: Spellslinger decks. Rewards casting instant and sorcery spells")
	}

	if containsAny(oracle, "token", "create") {
		tags = append(tags, "Synergy: Token strategies. Creates or benefits from token generation")
	}

	if strings.Contains(oracle, "sacrifice") {
		tags = append(tags, "Synergy: Sacrifice strategies. Either requires sacrifices or rewards sacrificing permanents")
	}

	if strings.Contains(oracle, "gain") && strings.Contains(oracle, "life") {
		tags = append(tags, "Synergy: Life gain strategies. Triggers or benefits from life gain effects")
	}

	// ----- Anti-synergy warnings -----

	if strings.Contains(oracle, "exile") && containsAny(oracle, "target", "destroy", "remove") {
		tags = append(tags, "Anti-synergy: Conflicts with graveyard strategies. Exiling prevents graveyard recursion")
	}

	if strings.Contains(oracle, "exile") && strings.Contains(oracle, "graveyard") {
		tags = append(tags, "Anti-synergy: Graveyard hate. Disrupts graveyard-based strategies - avoid in graveyard decks")
	}

	if strings.Contains(oracle, "discard") && strings.Contains(oracle, "each player") {
		tags = append(tags, "Anti-synergy: Symmetric discard. Conflicts with strategies that value card advantage")
	}

	// ----- Strategic roles -----

	if card.CMC == 1 {
		if isCreature {
			tags = append(tags, "Role: Aggressive one-drop. Critical for fast starts in aggro strategies")
		} else if matchesType(card, "Instant") || matchesType(card, "Sorcery") {
			tags = append(tags, "Role: Efficient interaction. Low-cost spell for early game tempo")
		}
	}

	if isCreature && card.CMC <= 3 {
		if hasKeyword(keywords, "haste") || strings.Contains(oracle, "haste") {
			tags = append(tags, "Role: Aggressive threat with immediate impact. Excellent for aggro strategies")
		}
		if power, err := strconv.Atoi(card.Power); err == nil && float64(power) >= card.CMC {
			tags = append(tags, "Role: Efficient aggressive threat. Good power-to-cost ratio for aggressive decks")
		}
	}

	if hasKeyword(keywords, "flying", "unblockable", "menace", "trample") {
		tags = append(tags, "Role: Evasive threat. Can push damage through blockers effectively")
	}

	if isCreature && card.CMC >= 5 {
		tags = append(tags, "Role: Late-game finisher. Suitable for control decks that stall until big threats")
	}

	if containsAny(oracle, "draw a card", "draw cards", "draw two") {
		tags = append(tags, "Role: Card advantage engine. Helps maintain resources in longer games")
	}

	if containsAny(oracle, "destroy target", "exile target", "damage to target", "damage to any target") {
		if strings.Contains(oracle, "creature") {
			tags = append(tags, "Role: Creature removal. Answers opposing threats")
		}
		if strings.Contains(oracle, "planeswalker") || strings.Contains(oracle, "any target") {
			tags = append(tags, "Role: Flexible removal. Can target multiple permanent types")
		}
	}

	if containsAny(oracle, "destroy all", "exile all", "damage to each") {
		if strings.Contains(oracle, "creature") {
			tags = append(tags,
				"Role: Board wipe. Clears multiple threats - essential for control strategies",
				"Anti-synergy: Avoid in creature-heavy decks. Punishes your own board presence")
		}
	}

	if containsAny(oracle, "add", "search your library for a land", "put a land") {
		if strings.Contains(oracle, "mana") || strings.Contains(typeLine, "land") {
			tags = append(tags, "Role: Mana acceleration. Enables casting expensive spells earlier")
		}
	}

	if containsAny(oracle, "hexproof", "shroud", "protection", "indestructible") {
		tags = append(tags, "Role: Protection. Shields important permanents from removal")
	}

	if strings.Contains(oracle, "counter target") {
		tags = append(tags, "Role: Counterspell. Disrupts opponent's strategy by countering spells")
	}

	if strings.Contains(oracle, "discard") && strings.Contains(oracle, "target") {
		tags = append(tags, "Role: Hand disruption. Forces opponent to discard, disrupting their gameplan")
	}

	if containsAny(oracle, "untap", "infinite", "take an extra turn") {
		tags = append(tags, "Role: Combo enabler. Potential infinite or game-ending combo piece")
	}

	// ----- Format considerations -----

	if strings.Contains(oracle, "commander") || card.CMC >= 6 {
		tags = append(tags, "Format consideration: Well-suited for Commander format with higher CMC tolerance")
	}

	if card.CMC <= 2 && isCreature {
		tags = append(tags, "Format consideration: Excellent for aggressive formats like Standard, Modern, and Pioneer")
	}

	return tags
}

func matchesType(card *types.Card, t string) bool {
	for _, have := range card.Types {
		if have == t {
			return true
		}
	}
	return false
}
