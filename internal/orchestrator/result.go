package orchestrator

import (
	"strings"

	"github.com/swstevens/agentic-cag-system/internal/types"
)

// assembleResult packages the terminal FSM state for the caller. Partial
// decks are never returned: on failure the deck and quality fields stay
// nil.
func assembleResult(s *stateData) *types.DeckResult {
	result := &types.DeckResult{
		Success: s.success,
	}
	if s.iteration != nil {
		result.IterationCount = s.iteration.Count
		for _, rec := range s.iteration.History {
			summary := types.IterationSummary{Iteration: rec.Iteration}
			if rec.Metrics != nil {
				summary.QualityScore = rec.Metrics.OverallScore
				summary.Issues = rec.Metrics.Issues
				summary.Suggestions = rec.Metrics.Suggestions
			}
			result.IterationHistory = append(result.IterationHistory, summary)
		}
	}

	if s.success {
		result.Deck = s.deck
		result.Quality = s.quality
	} else {
		if s.errMsg != "" {
			result.Error = s.errMsg
		} else if len(s.errors) > 0 {
			result.Error = strings.Join(s.errors, "; ")
		} else {
			result.Error = "unknown error"
		}
	}
	return result
}
