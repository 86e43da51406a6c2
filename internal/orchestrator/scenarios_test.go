package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/swstevens/agentic-cag-system/internal/cache"
	"github.com/swstevens/agentic-cag-system/internal/executor"
	"github.com/swstevens/agentic-cag-system/internal/repository"
	"github.com/swstevens/agentic-cag-system/internal/store"
	"github.com/swstevens/agentic-cag-system/internal/types"
	"github.com/swstevens/agentic-cag-system/internal/verifier"
)

// End-to-end scenarios: real store, repository, executor, and verifier;
// only the LLM agent is scripted.

func redCreature(name string, cmc float64, subtypes ...string) *types.Card {
	return &types.Card{
		ID: strings.ToLower(strings.ReplaceAll(name, " ", "-")), Name: name, CMC: cmc,
		Colors: []string{"R"}, ColorIdentity: []string{"R"},
		TypeLine: "Creature — " + strings.Join(subtypes, " "),
		Types:    []string{"Creature"}, Subtypes: subtypes,
		Keywords:   []string{"Haste"},
		OracleText: "Haste",
		Legalities: map[string]string{"standard": "legal"},
	}
}

func redSpell(name string, cmc float64, oracle string) *types.Card {
	return &types.Card{
		ID: strings.ToLower(strings.ReplaceAll(name, " ", "-")), Name: name, CMC: cmc,
		Colors: []string{"R"}, ColorIdentity: []string{"R"},
		TypeLine: "Instant", Types: []string{"Instant"},
		OracleText: oracle,
		Legalities: map[string]string{"standard": "legal"},
	}
}

func seedRedCatalog(t *testing.T, s *store.CardStore) {
	t.Helper()
	cards := []*types.Card{
		redSpell("Lightning Bolt", 1, "Lightning Bolt deals 3 damage to any target."),
		redSpell("Spark Jolt", 1, "Spark Jolt deals 1 damage to any target. Scry 1."),
		redCreature("Goblin Vanguard", 2, "Goblin"),
		redCreature("Goblin Warchief", 2, "Goblin"),
		redCreature("Ember Scout", 2, "Goblin"),
		redCreature("Hill Raider", 3, "Goblin"),
		redCreature("Flame Juggler", 3, "Goblin"),
		redCreature("Cinder Shaman", 3, "Goblin"),
		redCreature("Peak Vandal", 4, "Ogre"),
		redCreature("Ridge Brute", 4, "Ogre"),
		redCreature("Lava Colossus", 5, "Giant"),
		redCreature("Magma Titan", 6, "Giant"),
		redSpell("Reckless Draw", 2, "Discard a card, then draw two cards."),
	}
	if _, err := s.BulkInsert(cards); err != nil {
		t.Fatal(err)
	}
}

// planAgent returns fixed plans.
type planAgent struct {
	buildPlan *types.ConstructionPlan
	editPlan  *types.EditPlan
	failAll   bool
}

func (a *planAgent) Build(_ context.Context, _ *types.BuildRequest) (*types.ConstructionPlan, error) {
	if a.failAll {
		return nil, fmt.Errorf("simulated LLM outage")
	}
	return a.buildPlan, nil
}

func (a *planAgent) Refine(_ context.Context, _ *types.Deck, _ []string, _ *types.BuildRequest, _ *types.ImprovementPlan) (*types.EditPlan, error) {
	if a.failAll {
		return nil, fmt.Errorf("simulated LLM outage")
	}
	return a.editPlan, nil
}

func newScenarioOrchestrator(t *testing.T, agent BuilderAgent) (*Orchestrator, *store.CardStore) {
	t.Helper()
	cardStore, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cardStore.Close() })

	repo := repository.New(cardStore, nil, cache.New(100))
	return New(agent, executor.New(repo), verifier.New(nil), nil), cardStore
}

func sel(name string, qty int) types.CardSelection {
	return types.CardSelection{CardName: name, Quantity: qty, Reasoning: "scripted"}
}

func TestScenarioStandardMonoRedAggro(t *testing.T) {
	// A curve-conscious 38-spell plan: shares close to the scoring ideal.
	plan := &types.ConstructionPlan{
		Strategy: "fast goblins with burn",
		CardSelections: []types.CardSelection{
			sel("Lightning Bolt", 4), sel("Spark Jolt", 2),
			sel("Goblin Vanguard", 4), sel("Goblin Warchief", 4), sel("Ember Scout", 2),
			sel("Hill Raider", 4), sel("Flame Juggler", 4), sel("Cinder Shaman", 2),
			sel("Peak Vandal", 4), sel("Ridge Brute", 2),
			sel("Lava Colossus", 4),
			sel("Magma Titan", 2),
		},
	}
	o, cardStore := newScenarioOrchestrator(t, &planAgent{buildPlan: plan})
	seedRedCatalog(t, cardStore)

	req := &types.BuildRequest{
		Format: "Standard", Colors: []string{"R"}, Archetype: "Aggro",
		QualityThreshold: 0.7, MaxIterations: 5,
	}
	result := o.BuildNewDeck(context.Background(), req)
	if !result.Success {
		t.Fatalf("build failed: %s", result.Error)
	}

	deck := result.Deck
	if deck.TotalCards != 60 {
		t.Errorf("TotalCards = %d, want 60", deck.TotalCards)
	}

	mountains, creatures := 0, 0
	for _, dc := range deck.Cards {
		if dc.Card.Name == "Mountain" {
			mountains = dc.Quantity
		}
		if dc.Card.IsCreature() {
			creatures += dc.Quantity
		}
		if !dc.Card.IsBasicLand() && dc.Quantity > 4 {
			t.Errorf("%s has %d copies > 4", dc.Card.Name, dc.Quantity)
		}
		// Color identity: every nonland is red or colorless.
		if !dc.Card.IsLand() {
			for _, c := range dc.Card.ColorIdentity {
				if c != "R" {
					t.Errorf("off-color card %s (%v)", dc.Card.Name, dc.Card.ColorIdentity)
				}
			}
		}
	}
	if mountains != 22 {
		t.Errorf("Mountains = %d, want 22", mountains)
	}
	if creatures < 20 {
		t.Errorf("creatures = %d, want >= 20", creatures)
	}
	if result.Quality.OverallScore < 0.6 {
		t.Errorf("overall = %.2f, want >= 0.6", result.Quality.OverallScore)
	}
	if result.IterationCount > 5 {
		t.Errorf("IterationCount = %d, want <= 5", result.IterationCount)
	}
}

func TestScenarioAgentFailureFallback(t *testing.T) {
	o, _ := newScenarioOrchestrator(t, &planAgent{failAll: true})

	req := &types.BuildRequest{
		Format: "Standard", Colors: []string{"G"}, Archetype: "Aggro",
		QualityThreshold: 0.7, MaxIterations: 5,
	}
	result := o.BuildNewDeck(context.Background(), req)

	if !result.Success {
		t.Fatalf("fallback path should succeed: %s", result.Error)
	}
	deck := result.Deck
	if deck.TotalCards != 60 {
		t.Errorf("TotalCards = %d, want 60", deck.TotalCards)
	}
	if len(deck.Cards) != 1 || deck.Cards[0].Card.Name != "Forest" || deck.Cards[0].Quantity != 60 {
		t.Errorf("fallback deck = %v, want 60 Forests", deck.Cards)
	}
	// An all-land deck takes the full land-ratio and curve penalty.
	if result.Quality.OverallScore != 0 {
		t.Errorf("overall = %.2f, want 0 for the all-land fallback", result.Quality.OverallScore)
	}
	// The loop keeps trying to refine (agent keeps failing) until the
	// budget runs out.
	if result.IterationCount != 5 {
		t.Errorf("IterationCount = %d, want 5", result.IterationCount)
	}
}

func TestScenarioModificationAddsDraw(t *testing.T) {
	edit := &types.EditPlan{
		Analysis: "needs card advantage",
		Actions: []types.EditAction{
			{Type: types.EditRemove, CardName: "Lightning Bolt", Quantity: 4, Reasoning: "make room"},
			{Type: types.EditAdd, CardName: "Reckless Draw", Quantity: 4, Reasoning: "draw"},
		},
	}
	o, cardStore := newScenarioOrchestrator(t, &planAgent{editPlan: edit})
	seedRedCatalog(t, cardStore)

	deck := &types.Deck{
		Format: "Standard", Archetype: "Aggro", Colors: []string{"R"},
		Cards: []types.DeckCard{
			{Card: redSpell("Lightning Bolt", 1, "Lightning Bolt deals 3 damage to any target."), Quantity: 4},
			{Card: redCreature("Goblin Vanguard", 2, "Goblin"), Quantity: 4},
			{Card: redCreature("Hill Raider", 3, "Goblin"), Quantity: 4},
			{Card: redCreature("Peak Vandal", 4, "Ogre"), Quantity: 4},
			{Card: redCreature("Lava Colossus", 5, "Giant"), Quantity: 4},
			{Card: redCreature("Flame Juggler", 3, "Goblin"), Quantity: 4},
			{Card: redCreature("Ember Scout", 2, "Goblin"), Quantity: 4},
			{Card: redCreature("Ridge Brute", 4, "Ogre"), Quantity: 4},
			{Card: redCreature("Cinder Shaman", 3, "Goblin"), Quantity: 4},
			{Card: types.BasicLandCard("R"), Quantity: 24},
		},
	}
	deck.CalculateTotals()
	if deck.TotalCards != 60 {
		t.Fatalf("setup: TotalCards = %d, want 60", deck.TotalCards)
	}

	drawCopies := func(d *types.Deck) int {
		n := 0
		for _, dc := range d.Cards {
			if strings.Contains(strings.ToLower(dc.Card.OracleText), "draw") {
				n += dc.Quantity
			}
		}
		return n
	}
	before := drawCopies(deck)

	result := o.ModifyDeck(context.Background(), deck, "Add more card draw", true)
	if !result.Success {
		t.Fatalf("modify failed: %s", result.Error)
	}

	if result.Deck.TotalCards != 60 {
		t.Errorf("TotalCards = %d, want 60", result.Deck.TotalCards)
	}
	if drawCopies(result.Deck) <= before {
		t.Errorf("draw copies %d -> %d, want an increase", before, drawCopies(result.Deck))
	}
	if result.Deck.Format != deck.Format {
		t.Errorf("format changed: %s -> %s", deck.Format, result.Deck.Format)
	}
	if strings.Join(result.Deck.Colors, "") != strings.Join(deck.Colors, "") {
		t.Errorf("colors changed: %v -> %v", deck.Colors, result.Deck.Colors)
	}
}
