// Package verifier scores decks on four deterministic dimensions (mana
// curve, land ratio, synergy, consistency) and optionally asks an LLM for
// a structured improvement plan. Scoring is side-effect-free: verifying
// the same deck twice yields identical deterministic subscores.
package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/swstevens/agentic-cag-system/internal/agent"
	"github.com/swstevens/agentic-cag-system/internal/format"
	"github.com/swstevens/agentic-cag-system/internal/llm"
	"github.com/swstevens/agentic-cag-system/internal/logging"
	"github.com/swstevens/agentic-cag-system/internal/prompt"
	"github.com/swstevens/agentic-cag-system/internal/types"
)

// Synergy scoring shape: clusters are rewarded, not combos. Tests depend
// on these exact thresholds; do not tune silently.
const (
	keywordClusterMin    = 4
	keywordClusterWeight = 0.15
	keywordClusterCap    = 0.5
	tribalClusterMin     = 8
	tribalClusterWeight  = 0.25
	tribalClusterCap     = 0.5
)

// Verifier scores decks. The LLM client is optional; without it only the
// deterministic path runs.
type Verifier struct {
	client llm.Client
}

// New creates a verifier. client may be nil.
func New(client llm.Client) *Verifier {
	return &Verifier{client: client}
}

// Verify scores the deck and, when an LLM client is configured, attaches
// an improvement plan. Never returns an error: internal failures yield
// zero subscores, and LLM failures leave the plan unset with a non-fatal
// note.
func (v *Verifier) Verify(ctx context.Context, deck *types.Deck) *types.QualityMetrics {
	timer := logging.StartTimer(logging.CategoryVerifier, "Verify")
	defer timer.Stop()

	metrics := &types.QualityMetrics{
		Issues:      []string{},
		Suggestions: []string{},
	}
	if deck == nil {
		return metrics
	}

	metrics.ManaCurveScore = analyzeManaCurve(deck)
	metrics.LandRatioScore = analyzeLandRatio(deck)
	metrics.SynergyScore = analyzeSynergies(deck)
	metrics.ConsistencyScore = analyzeConsistency(deck)
	metrics.CalculateOverall()

	// A deck that misses the target size scores zero regardless of the
	// subscores.
	targetSize := deck.TotalCards
	if rules, err := format.Lookup(deck.Format); err == nil {
		targetSize = rules.DeckSize
	}
	if deck.TotalCards != targetSize {
		metrics.Issues = append(metrics.Issues,
			fmt.Sprintf("Deck size is %d, expected %d", deck.TotalCards, targetSize))
		metrics.OverallScore = 0
	}

	metrics.Issues = append(metrics.Issues, identifyIssues(deck, metrics)...)
	metrics.Suggestions = append(metrics.Suggestions, generateSuggestions(deck, metrics)...)

	if v.client != nil {
		v.attachImprovementPlan(ctx, deck, metrics)
	}

	logging.Verifier("deck scored: overall=%.2f curve=%.2f lands=%.2f synergy=%.2f consistency=%.2f",
		metrics.OverallScore, metrics.ManaCurveScore, metrics.LandRatioScore,
		metrics.SynergyScore, metrics.ConsistencyScore)
	return metrics
}

// analyzeManaCurve compares the nonland CMC histogram against the ideal
// distribution. CMC >= 7 folds into the 6 bucket; score is
// max(0, 1 - deviation/2).
func analyzeManaCurve(deck *types.Deck) float64 {
	nonlands := deck.NonLands()
	total := 0
	counts := make(map[int]int)
	for _, dc := range nonlands {
		cmc := int(dc.Card.CMC)
		if cmc > 6 {
			cmc = 6
		}
		counts[cmc] += dc.Quantity
		total += dc.Quantity
	}
	if total == 0 {
		return 0
	}

	ideal := format.CurveIdeal()
	deviation := 0.0
	for cmc := 0; cmc <= 6; cmc++ {
		actual := float64(counts[cmc]) / float64(total)
		deviation += math.Abs(actual - ideal[cmc])
	}
	return math.Max(0, 1-deviation/2)
}

// analyzeLandRatio scores the land share against the format target:
// within 0.05 is perfect, within 0.10 is workable, beyond that degrades
// fast.
func analyzeLandRatio(deck *types.Deck) float64 {
	if deck.TotalCards == 0 {
		return 0
	}
	target := 0.40
	if rules, err := format.Lookup(deck.Format); err == nil {
		target = rules.LandRatio
	}
	ratio := float64(deck.LandCount()) / float64(deck.TotalCards)
	deviation := math.Abs(ratio - target)
	switch {
	case deviation <= 0.05:
		return 1.0
	case deviation <= 0.10:
		return 0.7
	default:
		return math.Max(0, 0.5-deviation)
	}
}

// analyzeSynergies rewards keyword clusters (>= 4 copies) and tribal
// clusters (>= 8 copies), each capped at half the score.
func analyzeSynergies(deck *types.Deck) float64 {
	keywordCounts := make(map[string]int)
	tribeCounts := make(map[string]int)
	for _, dc := range deck.Cards {
		for _, kw := range dc.Card.Keywords {
			keywordCounts[kw] += dc.Quantity
		}
		if dc.Card.IsCreature() {
			for _, subtype := range dc.Card.Subtypes {
				tribeCounts[subtype] += dc.Quantity
			}
		}
	}

	strongKeywords := 0
	for _, n := range keywordCounts {
		if n >= keywordClusterMin {
			strongKeywords++
		}
	}
	strongTribes := 0
	for _, n := range tribeCounts {
		if n >= tribalClusterMin {
			strongTribes++
		}
	}

	score := math.Min(keywordClusterCap, float64(strongKeywords)*keywordClusterWeight)
	score += math.Min(tribalClusterCap, float64(strongTribes)*tribalClusterWeight)
	return math.Min(1, score)
}

// analyzeConsistency weights nonland stacks by copy count (4-of = 1.0 down
// to 1-of = 0.25) and averages across unique nonlands. Informational for
// singleton formats.
func analyzeConsistency(deck *types.Deck) float64 {
	nonlands := deck.NonLands()
	if len(nonlands) == 0 {
		return 0
	}
	sum := 0.0
	for _, dc := range nonlands {
		switch {
		case dc.Quantity >= 4:
			sum += 1.0
		case dc.Quantity == 3:
			sum += 0.75
		case dc.Quantity == 2:
			sum += 0.5
		default:
			sum += 0.25
		}
	}
	return math.Min(1, sum/float64(len(nonlands)))
}

func identifyIssues(deck *types.Deck, m *types.QualityMetrics) []string {
	var issues []string
	if m.ManaCurveScore < 0.6 {
		issues = append(issues, "Mana curve is not optimal - too many high or low CMC cards")
	}
	if m.LandRatioScore < 0.6 {
		issues = append(issues, fmt.Sprintf("Land ratio (%d/%d) is not ideal", deck.LandCount(), deck.TotalCards))
	}
	if m.SynergyScore < 0.4 {
		issues = append(issues, "Deck lacks synergies between cards")
	}
	if m.ConsistencyScore < 0.5 {
		issues = append(issues, "Deck has too many 1-ofs and 2-ofs, reducing consistency")
	}
	return issues
}

func generateSuggestions(deck *types.Deck, m *types.QualityMetrics) []string {
	var suggestions []string
	if m.ManaCurveScore < 0.6 {
		suggestions = append(suggestions, "Adjust mana curve to focus on 2-4 CMC cards")
	}
	if m.LandRatioScore < 0.6 {
		target := 0.40
		if rules, err := format.Lookup(deck.Format); err == nil {
			target = rules.LandRatio
		}
		landCount := deck.LandCount()
		ideal := int(float64(deck.TotalCards) * target)
		if landCount < ideal {
			suggestions = append(suggestions, fmt.Sprintf("Add %d more lands", ideal-landCount))
		} else {
			suggestions = append(suggestions, fmt.Sprintf("Remove %d lands", landCount-ideal))
		}
	}
	if m.SynergyScore < 0.4 {
		suggestions = append(suggestions, "Add cards with overlapping keywords or tribal synergies")
	}
	if m.ConsistencyScore < 0.5 {
		suggestions = append(suggestions, "Increase card quantities (prefer 3-4 copies of key cards)")
	}
	return suggestions
}

// attachImprovementPlan asks the LLM for a structured plan and merges its
// changes into the suggestions. Failures degrade gracefully.
func (v *Verifier) attachImprovementPlan(ctx context.Context, deck *types.Deck, metrics *types.QualityMetrics) {
	systemPrompt, err := prompt.VerifierSystemPrompt(deck.Format)
	if err != nil {
		metrics.Issues = append(metrics.Issues, fmt.Sprintf("LLM analysis skipped: %v", err))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze this %s %s deck:\n\n", deck.Format, deck.Archetype)
	fmt.Fprintf(&sb, "Colors: %s\n\nDecklist:\n", strings.Join(deck.Colors, ", "))
	for _, dc := range deck.Cards {
		fmt.Fprintf(&sb, "%dx %s (CMC: %g, Type: %s, Colors: %v)\n",
			dc.Quantity, dc.Card.Name, dc.Card.CMC, dc.Card.TypeLine, dc.Card.Colors)
	}
	if len(metrics.Issues) > 0 {
		sb.WriteString("\nKnown issues:\n")
		for _, issue := range metrics.Issues {
			fmt.Fprintf(&sb, "- %s\n", issue)
		}
	}
	sb.WriteString("\nProvide a plan to improve this deck's competitiveness: at least 2-3\ncards to remove and replacements to add.")

	raw, err := v.client.CompleteWithSchema(ctx, systemPrompt, sb.String(), "improvement_plan", agent.ImprovementPlanSchema())
	if err != nil {
		logging.Verifier("LLM analysis failed: %v", err)
		metrics.Issues = append(metrics.Issues, fmt.Sprintf("LLM analysis failed: %v", err))
		return
	}

	var plan types.ImprovementPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		metrics.Issues = append(metrics.Issues, fmt.Sprintf("LLM analysis failed: malformed plan: %v", err))
		return
	}
	metrics.ImprovementPlan = &plan

	if plan.Analysis != "" {
		metrics.Suggestions = append(metrics.Suggestions, "LLM Analysis: "+plan.Analysis)
	}
	for _, addition := range plan.Additions {
		metrics.Suggestions = append(metrics.Suggestions,
			fmt.Sprintf("Add %dx %s: %s", addition.Quantity, addition.CardName, addition.Reason))
	}
	for _, removal := range plan.Removals {
		metrics.Suggestions = append(metrics.Suggestions,
			fmt.Sprintf("Remove %dx %s: %s", removal.Quantity, removal.CardName, removal.Reason))
	}
}
