package types

// Verifier weights. Kept from the reference scoring model; exposed as
// constants so tests and callers agree on the blend.
const (
	WeightManaCurve   = 0.30
	WeightLandRatio   = 0.25
	WeightSynergy     = 0.25
	WeightConsistency = 0.20
)

// QualityMetrics is the verifier's scoring of a deck: four subscores in
// [0,1], the weighted overall, and rule-based issues/suggestions. The
// improvement plan is only present when the LLM analysis path ran.
type QualityMetrics struct {
	ManaCurveScore   float64          `json:"mana_curve_score"`
	LandRatioScore   float64          `json:"land_ratio_score"`
	SynergyScore     float64          `json:"synergy_score"`
	ConsistencyScore float64          `json:"consistency_score"`
	OverallScore     float64          `json:"overall_score"`
	Issues           []string         `json:"issues"`
	Suggestions      []string         `json:"suggestions"`
	ImprovementPlan  *ImprovementPlan `json:"improvement_plan,omitempty"`
}

// CalculateOverall recomputes the weighted overall score from the subscores.
// It does not apply the size-mismatch hard zero; the verifier owns that rule.
func (m *QualityMetrics) CalculateOverall() {
	m.OverallScore = m.ManaCurveScore*WeightManaCurve +
		m.LandRatioScore*WeightLandRatio +
		m.SynergyScore*WeightSynergy +
		m.ConsistencyScore*WeightConsistency
}

// IterationRecord snapshots one Draft-Verify-Refine pass.
type IterationRecord struct {
	Iteration      int             `json:"iteration"`
	DeckSnapshot   *Deck           `json:"deck_snapshot"`
	Metrics        *QualityMetrics `json:"metrics"`
	ActionsApplied []string        `json:"actions_applied"`
}

// IterationState tracks loop progress across the FSM run.
type IterationState struct {
	Count            int               `json:"iteration_count"`
	Max              int               `json:"max_iterations"`
	QualityThreshold float64           `json:"quality_threshold"`
	History          []IterationRecord `json:"history"`
}

// ShouldContinue is the convergence predicate: iterate while the budget
// remains and the latest overall score is below the threshold.
func (s *IterationState) ShouldContinue(overall float64) bool {
	return s.Count < s.Max && overall < s.QualityThreshold
}

// AddRecord appends one iteration snapshot.
func (s *IterationState) AddRecord(rec IterationRecord) {
	s.History = append(s.History, rec)
}

// IterationSummary is the caller-facing digest of one iteration.
type IterationSummary struct {
	Iteration    int      `json:"iteration"`
	QualityScore float64  `json:"quality_score"`
	Issues       []string `json:"issues"`
	Suggestions  []string `json:"suggestions"`
}

// DeckResult is the shape both core entry points return. Partial decks are
// never returned: on failure Deck and Quality are nil.
type DeckResult struct {
	Success          bool               `json:"success"`
	Deck             *Deck              `json:"deck,omitempty"`
	Quality          *QualityMetrics    `json:"quality,omitempty"`
	IterationCount   int                `json:"iteration_count"`
	IterationHistory []IterationSummary `json:"iteration_history,omitempty"`
	Error            string             `json:"error,omitempty"`
}
