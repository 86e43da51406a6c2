// Package prompt synthesizes format-aware system prompts for each agent
// role. Every format-specific number in a prompt is derived from the
// format rules table at build time; there is no hand-written per-format
// text.
package prompt

import (
	"fmt"
	"strings"

	"github.com/swstevens/agentic-cag-system/internal/format"
)

// BuilderSystemPrompt returns the system prompt for the deck-building agent.
func BuilderSystemPrompt(formatName string) (string, error) {
	rules, err := format.Lookup(formatName)
	if err != nil {
		return "", err
	}
	curve, _ := format.Curve(formatName)

	var sb strings.Builder
	sb.WriteString("You are an expert Magic: The Gathering deck builder.\n\n")
	sb.WriteString("Your goal is to construct competitive decks by intelligently selecting cards\n")
	sb.WriteString("that work well together and fit the requested archetype.\n\n")

	sb.WriteString(formatGuidelines(rules))
	sb.WriteString("\n\n")
	sb.WriteString(archetypeGuidelines(rules))
	sb.WriteString("\n\n")
	sb.WriteString(curveGuidelines(rules.Name, curve))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "DECK COMPOSITION (for %d-card decks):\n", rules.DeckSize)
	fmt.Fprintf(&sb, "- Threats: %s cards (creatures or win conditions)\n", threatRange(rules.DeckSize))
	fmt.Fprintf(&sb, "- Removal: %s cards (spot removal, sweepers)\n", removalRange(rules.DeckSize))
	fmt.Fprintf(&sb, "- Card Draw: %s cards (cantrips, draw spells)\n", drawRange(rules.DeckSize))
	fmt.Fprintf(&sb, "- Utility: %s cards (ramp, protection, disruption)\n\n", utilityRange(rules.DeckSize))

	sb.WriteString("CARD SELECTION STRATEGY:\n")
	sb.WriteString("1. Select SPELLS ONLY - lands will be added by the executor.\n")
	sb.WriteString("2. Use 'semantic_query' for conceptual searches:\n")
	sb.WriteString("   - \"aggressive one-drop creatures\" instead of types=[\"Creature\"], cmc_max=1\n")
	sb.WriteString("   - \"removal that exiles\" instead of text_query=\"exile\"\n")
	sb.WriteString("3. Use filters for hard constraints (colors, cmc_min/cmc_max, types).\n")
	sb.WriteString("4. LIMIT yourself to 3-5 broad tool searches. Each search returns up to 20\n")
	sb.WriteString("   cards, so a few broad searches beat many narrow ones.\n")
	sb.WriteString("5. Build for CONSISTENCY:\n")
	sb.WriteString("   " + consistencyGuidance(rules) + "\n\n")

	sb.WriteString(quantityRules(rules))
	sb.WriteString("\n\nFor each card selection, provide one sentence of reasoning: the role it\n")
	sb.WriteString("fills, its synergies, and why it fits the archetype strategy.")

	return sb.String(), nil
}

// RefinerSystemPrompt returns the system prompt for the deck refinement agent.
func RefinerSystemPrompt(formatName string) (string, error) {
	rules, err := format.Lookup(formatName)
	if err != nil {
		return "", err
	}
	curve, _ := format.Curve(formatName)

	var sb strings.Builder
	sb.WriteString("You are an expert Magic: The Gathering deck optimizer.\n\n")
	sb.WriteString("Your goal is to improve existing decks by identifying weaknesses and\n")
	sb.WriteString("making targeted, high-impact improvements.\n\n")

	fmt.Fprintf(&sb, "ANALYSIS FRAMEWORK FOR %s (%d-card format):\n\n", rules.Name, rules.DeckSize)
	sb.WriteString("1. Mana Curve Issues:\n")
	sb.WriteString("   - Too many high-cost cards -> clunky hands, slow starts\n")
	sb.WriteString("   - Too many low-cost cards -> runs out of gas, weak late game\n")
	fmt.Fprintf(&sb, "   - Target curve for %s:\n%s\n", rules.Name, indentCurve(curve))
	sb.WriteString("2. Synergy Problems: cards that do not support the strategy, missing\n")
	sb.WriteString("   enablers, lack of tribal/keyword overlap.\n")
	sb.WriteString("3. Consistency Issues:\n")
	if rules.Singleton {
		sb.WriteString("   - Singleton requires redundant EFFECTS across different cards.\n")
	} else {
		sb.WriteString("   - Too many 1-ofs are hard to find when needed.\n")
	}
	fmt.Fprintf(&sb, "   - Legendary cards with %d+ copies are dead cards in hand.\n", rules.LegendaryMax+1)
	sb.WriteString("4. Interaction Gaps: no removal, no protection, no card draw.\n")
	sb.WriteString("5. Win Condition Clarity: the deck must have a clear path to victory.\n\n")

	sb.WriteString(quantityRules(rules))
	sb.WriteString("\n\nDECK SIZE CONSTRAINTS:\n")
	fmt.Fprintf(&sb, "- Target deck size: %d cards\n", rules.DeckSize)
	sb.WriteString("- If current < target: add more than you remove.\n")
	sb.WriteString("- If current > target: remove more than you add.\n")
	sb.WriteString("- If current == target: equal adds and removes.\n\n")
	sb.WriteString("Be specific and strategic. Use search_cards to find better alternatives\n")
	sb.WriteString("(semantic_query works best) and focus on the most critical weaknesses first.")

	return sb.String(), nil
}

// VerifierSystemPrompt returns the system prompt for the LLM deck analyzer.
func VerifierSystemPrompt(formatName string) (string, error) {
	rules, err := format.Lookup(formatName)
	if err != nil {
		return "", err
	}
	curve, _ := format.Curve(formatName)

	var sb strings.Builder
	sb.WriteString("You are an expert Magic: The Gathering deck builder and analyzer.\n\n")
	sb.WriteString("Analyze the given deck and produce a concrete, actionable improvement\n")
	sb.WriteString("plan: weak cards to remove and specific, better replacements to add.\n\n")

	fmt.Fprintf(&sb, "ANALYSIS PRIORITIES FOR %s (%d-card format):\n", rules.Name, rules.DeckSize)
	fmt.Fprintf(&sb, "1. Deck size and format compliance: exactly %d cards, legal in %s\n", rules.DeckSize, rules.Name)
	fmt.Fprintf(&sb, "2. Mana curve optimization:\n%s\n", indentCurve(curve))
	sb.WriteString("3. Win conditions: clear, consistent path to victory\n")
	sb.WriteString("4. Interaction/removal: answers to opposing threats\n")
	sb.WriteString("5. Synergy and consistency\n")
	sb.WriteString("6. Card advantage: enough draw or filtering\n\n")

	sb.WriteString("QUALITY STANDARDS:\n")
	sb.WriteString("- Good reasoning names the card, the cost, and the strategic consequence.\n")
	sb.WriteString("- Bad reasoning is \"it's not good\" without specifics.\n\n")

	sb.WriteString("CONSTRAINTS:\n")
	sb.WriteString("- Only recommend cards that exist in Magic: The Gathering.\n")
	fmt.Fprintf(&sb, "- Respect %s legality and the deck's color identity.\n", rules.Name)
	if rules.Singleton {
		sb.WriteString("- SINGLETON FORMAT: maximum 1 copy per card (except basic lands).\n")
	} else {
		fmt.Fprintf(&sb, "- Maximum %d copies per non-basic-land card.\n", rules.CopyLimit)
	}
	sb.WriteString("\nOUTPUT: 2-5 removals (weakest cards) and 2-5 additions (highest-impact\n")
	sb.WriteString("replacements), each with clear, specific reasoning.")

	return sb.String(), nil
}

// IntentSystemPrompt returns the system prompt for intent parsing.
func IntentSystemPrompt(formatName string) (string, error) {
	rules, err := format.Lookup(formatName)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("You are an expert at parsing user intents for Magic: The Gathering deck\n")
	sb.WriteString("modifications. Extract structured, actionable modifications from the\n")
	sb.WriteString("user's message.\n\n")

	fmt.Fprintf(&sb, "FORMAT CONTEXT: %s\n", rules.Name)
	if rules.Singleton {
		sb.WriteString("- SINGLETON FORMAT: only 1 copy of non-basic-land cards allowed\n\n")
	} else {
		fmt.Fprintf(&sb, "- Max %d copies per card\n\n", rules.CopyLimit)
	}

	sb.WriteString("INTENT TYPES: add, remove, replace, optimize, strategy_shift.\n\n")
	sb.WriteString("CONFIDENCE SCORING:\n")
	sb.WriteString("- 0.9-1.0: very specific request with clear card names\n")
	sb.WriteString("- 0.7-0.9: clear intent with abstract card types\n")
	sb.WriteString("- 0.5-0.7: ambiguous but interpretable\n")
	sb.WriteString("- below 0.5: vague; default to optimize with low confidence\n\n")
	sb.WriteString("Extract ALL card changes mentioned, plus any constraints (budget, cards\n")
	sb.WriteString("to keep). ")
	if rules.Singleton {
		sb.WriteString("Be conservative with quantities: max 1 copy.")
	} else {
		fmt.Fprintf(&sb, "Default to %d copies for consistency unless specified.", rules.CopyLimit)
	}

	return sb.String(), nil
}

// --- helpers ---

func formatGuidelines(rules format.Rules) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "FORMAT: %s (%d cards)\n", rules.Name, rules.DeckSize)
	if rules.Singleton {
		sb.WriteString("- SINGLETON FORMAT: exactly 1 copy of each non-basic-land card\n")
		sb.WriteString("- Focus on redundant effects across different cards")
	} else {
		fmt.Fprintf(&sb, "- Maximum %d copies per card (except basic lands)\n", rules.CopyLimit)
		fmt.Fprintf(&sb, "- Focus on %d-ofs for key cards", rules.CopyLimit)
	}
	return sb.String()
}

func archetypeGuidelines(rules format.Rules) string {
	var sb strings.Builder
	sb.WriteString("ARCHETYPE GUIDELINES:")
	for _, archetype := range format.Archetypes() {
		lands, _ := format.LandCount(rules.Name, archetype)
		spells := rules.DeckSize - lands
		switch archetype {
		case "Aggro":
			fmt.Fprintf(&sb, "\n- Aggro: low curve (1-3 CMC), efficient creatures, %d lands; focus on early pressure and reach", lands)
		case "Midrange":
			fmt.Fprintf(&sb, "\n- Midrange: balanced curve (2-5 CMC), %d spells, %d lands; focus on card advantage and versatile removal", spells, lands)
		case "Control":
			fmt.Fprintf(&sb, "\n- Control: higher curve (3-6 CMC), %d spells, %d lands; focus on removal, counterspells, draw, finishers", spells, lands)
		case "Combo":
			fmt.Fprintf(&sb, "\n- Combo: focused curve around combo pieces, %d spells, %d lands; focus on redundancy, tutors, protection", spells, lands)
		}
	}
	return sb.String()
}

func curveGuidelines(name string, curve format.CurveTargets) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "MANA CURVE TARGETS FOR %s:\n", name)
	fmt.Fprintf(&sb, "- 0-1 CMC: ~%d%% of spells\n", int(curve.ZeroToOne*100))
	fmt.Fprintf(&sb, "- 2-3 CMC: ~%d%% of spells\n", int(curve.TwoToThree*100))
	fmt.Fprintf(&sb, "- 4-5 CMC: ~%d%% of spells\n", int(curve.FourToFive*100))
	fmt.Fprintf(&sb, "- 6+ CMC: ~%d%% of spells", int(curve.SixPlus*100))
	return sb.String()
}

func indentCurve(curve format.CurveTargets) string {
	return fmt.Sprintf("     * 0-1 CMC: ~%d%% of nonland cards\n     * 2-3 CMC: ~%d%% of nonland cards\n     * 4-5 CMC: ~%d%% of nonland cards\n     * 6+ CMC: ~%d%% of nonland cards",
		int(curve.ZeroToOne*100), int(curve.TwoToThree*100), int(curve.FourToFive*100), int(curve.SixPlus*100))
}

func quantityRules(rules format.Rules) string {
	if rules.Singleton {
		return `CARD QUANTITY RULES (SINGLETON FORMAT):
- All non-basic-land cards: EXACTLY 1 copy
- Basic lands: unlimited copies allowed
- Seek redundancy through SIMILAR effects, not duplicate cards`
	}
	return fmt.Sprintf(`CARD QUANTITY RULES:
- Legendary cards: maximum %d copies (legendary rule: only 1 on battlefield)
- Non-legendary cards: maximum %d copies
  * 4-ofs: critical cards you want every game
  * 3-ofs: strong cards you want frequently
  * 2-ofs: good cards or situational pieces
  * 1-ofs: avoid unless legendary, highly situational, or tutored for
- Basic lands: unlimited copies allowed`, rules.LegendaryMax, rules.CopyLimit)
}

func consistencyGuidance(rules format.Rules) string {
	if rules.Singleton {
		return "- Singleton formats: redundant EFFECTS (multiple draw sources, multiple removal types)"
	}
	return fmt.Sprintf("- %d-card formats: use 3-%d copies of your best cards", rules.DeckSize, rules.CopyLimit)
}

func threatRange(deckSize int) string {
	if deckSize == 100 {
		return "20-30"
	}
	return "12-20"
}

func removalRange(deckSize int) string {
	if deckSize == 100 {
		return "10-15"
	}
	return "6-12"
}

func drawRange(deckSize int) string {
	if deckSize == 100 {
		return "10-15"
	}
	return "4-8"
}

func utilityRange(deckSize int) string {
	if deckSize == 100 {
		return "5-15"
	}
	return "0-8"
}
