package types

import "testing"

func creature(name string, cmc float64, colors ...string) *Card {
	return &Card{
		ID:            name + "-id",
		Name:          name,
		CMC:           cmc,
		Colors:        colors,
		ColorIdentity: colors,
		TypeLine:      "Creature — Human",
		Types:         []string{"Creature"},
	}
}

func TestCalculateTotals(t *testing.T) {
	deck := &Deck{
		Format: "Standard",
		Cards: []DeckCard{
			{Card: creature("Alpha", 1, "R"), Quantity: 4},
			{Card: creature("Beta", 2, "G"), Quantity: 3},
			{Card: BasicLandCard("R"), Quantity: 22},
		},
	}
	deck.CalculateTotals()

	if deck.TotalCards != 29 {
		t.Errorf("TotalCards = %d, want 29", deck.TotalCards)
	}
	// Derived identity is sorted.
	if len(deck.Colors) != 2 || deck.Colors[0] != "G" || deck.Colors[1] != "R" {
		t.Errorf("Colors = %v, want [G R]", deck.Colors)
	}
}

func TestLandsAndNonLands(t *testing.T) {
	deck := &Deck{
		Cards: []DeckCard{
			{Card: creature("Alpha", 1, "R"), Quantity: 4},
			{Card: BasicLandCard("R"), Quantity: 20},
		},
	}
	if n := len(deck.Lands()); n != 1 {
		t.Errorf("Lands() returned %d stacks, want 1", n)
	}
	if n := len(deck.NonLands()); n != 1 {
		t.Errorf("NonLands() returned %d stacks, want 1", n)
	}
	if deck.LandCount() != 20 {
		t.Errorf("LandCount = %d, want 20", deck.LandCount())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	deck := &Deck{
		Format: "Standard",
		Cards:  []DeckCard{{Card: creature("Alpha", 1, "R"), Quantity: 4}},
	}
	deck.CalculateTotals()

	cp := deck.Clone()
	cp.Cards[0].Quantity = 1
	cp.CalculateTotals()

	if deck.Cards[0].Quantity != 4 {
		t.Errorf("mutating the clone changed the original: quantity = %d", deck.Cards[0].Quantity)
	}
}

func TestCardPredicates(t *testing.T) {
	mountain := BasicLandCard("R")
	if !mountain.IsLand() || !mountain.IsBasicLand() {
		t.Error("Mountain should be a basic land")
	}
	if mountain.Name != "Mountain" {
		t.Errorf("BasicLandCard(R).Name = %s, want Mountain", mountain.Name)
	}

	shrine := &Card{
		Name:     "Hall of Heliod's Generosity",
		TypeLine: "Legendary Land",
		Types:    []string{"Land"},
	}
	if shrine.IsBasicLand() {
		t.Error("legendary land is not a basic land")
	}
	if !shrine.IsLegendary() {
		t.Error("legendary land should be legendary")
	}

	wastes := BasicLandCard("")
	if wastes.Name != "Wastes" {
		t.Errorf("BasicLandCard(\"\") = %s, want Wastes", wastes.Name)
	}
	if len(wastes.ColorIdentity) != 0 {
		t.Errorf("Wastes color identity = %v, want empty", wastes.ColorIdentity)
	}
}

func TestLegalIn(t *testing.T) {
	card := &Card{Legalities: map[string]string{"standard": "legal", "modern": "banned"}}
	if !card.LegalIn("Standard") {
		t.Error("card should be legal in Standard (case-insensitive key)")
	}
	if card.LegalIn("Modern") {
		t.Error("banned card reported legal in Modern")
	}
	if card.LegalIn("Vintage") {
		t.Error("missing legality reported legal")
	}
}

func TestBuildRequestValidate(t *testing.T) {
	valid := BuildRequest{
		Format:           "Standard",
		Colors:           []string{"R"},
		Archetype:        "Aggro",
		QualityThreshold: 0.7,
		MaxIterations:    5,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	tests := []struct {
		name string
		req  BuildRequest
	}{
		{"empty format", BuildRequest{Colors: []string{"R"}, QualityThreshold: 0.7, MaxIterations: 1}},
		{"no colors", BuildRequest{Format: "Standard", QualityThreshold: 0.7, MaxIterations: 1}},
		{"bad color", BuildRequest{Format: "Standard", Colors: []string{"X"}, QualityThreshold: 0.7, MaxIterations: 1}},
		{"threshold too high", BuildRequest{Format: "Standard", Colors: []string{"R"}, QualityThreshold: 1.5, MaxIterations: 1}},
		{"zero iterations", BuildRequest{Format: "Standard", Colors: []string{"R"}, QualityThreshold: 0.7, MaxIterations: 0}},
	}
	for _, tt := range tests {
		if err := tt.req.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestIterationStateShouldContinue(t *testing.T) {
	s := IterationState{Max: 5, QualityThreshold: 0.7}

	s.Count = 1
	if !s.ShouldContinue(0.5) {
		t.Error("should continue: budget remains and quality below threshold")
	}
	if s.ShouldContinue(0.8) {
		t.Error("should stop: quality met threshold")
	}
	s.Count = 5
	if s.ShouldContinue(0.1) {
		t.Error("should stop: budget exhausted")
	}
}

func TestQualityMetricsOverall(t *testing.T) {
	m := QualityMetrics{
		ManaCurveScore:   1.0,
		LandRatioScore:   1.0,
		SynergyScore:     1.0,
		ConsistencyScore: 1.0,
	}
	m.CalculateOverall()
	if m.OverallScore < 0.999 || m.OverallScore > 1.001 {
		t.Errorf("perfect subscores gave overall %v, want 1.0", m.OverallScore)
	}

	m = QualityMetrics{ManaCurveScore: 1.0}
	m.CalculateOverall()
	if m.OverallScore < WeightManaCurve-0.001 || m.OverallScore > WeightManaCurve+0.001 {
		t.Errorf("curve-only overall = %v, want %v", m.OverallScore, WeightManaCurve)
	}
}
