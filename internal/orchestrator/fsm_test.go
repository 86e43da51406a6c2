package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/goleak"

	"github.com/swstevens/agentic-cag-system/internal/executor"
	"github.com/swstevens/agentic-cag-system/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubAgent counts invocations and can be scripted to fail.
type stubAgent struct {
	buildCalls  int
	refineCalls int
	failBuild   bool
	failRefine  bool
}

func (a *stubAgent) Build(_ context.Context, _ *types.BuildRequest) (*types.ConstructionPlan, error) {
	a.buildCalls++
	if a.failBuild {
		return nil, fmt.Errorf("simulated build failure")
	}
	return &types.ConstructionPlan{Strategy: "stub"}, nil
}

func (a *stubAgent) Refine(_ context.Context, _ *types.Deck, _ []string, _ *types.BuildRequest, _ *types.ImprovementPlan) (*types.EditPlan, error) {
	a.refineCalls++
	if a.failRefine {
		return nil, fmt.Errorf("simulated refine failure")
	}
	return &types.EditPlan{Analysis: "stub"}, nil
}

// stubExecutor emits fixed-size decks and tracks refine rounds.
type stubExecutor struct {
	fail        bool
	refineCalls int
}

func stubDeck(formatName string, size int) *types.Deck {
	deck := &types.Deck{
		Format: formatName, Archetype: "Aggro", Colors: []string{"R"},
		Cards: []types.DeckCard{{Card: types.BasicLandCard("R"), Quantity: size}},
	}
	deck.CalculateTotals()
	return deck
}

func (e *stubExecutor) Build(_ *types.ConstructionPlan, req *types.BuildRequest) (*types.Deck, []string, error) {
	if e.fail {
		return nil, nil, fmt.Errorf("%w: got 59, want 60", executor.ErrSizeMismatch)
	}
	return stubDeck(req.Format, 60), []string{"built"}, nil
}

func (e *stubExecutor) Refine(deck *types.Deck, _ *types.EditPlan, _ *types.BuildRequest) (*types.Deck, []string, error) {
	e.refineCalls++
	if e.fail {
		return nil, nil, fmt.Errorf("%w: got 59, want 60", executor.ErrSizeMismatch)
	}
	return deck.Clone(), []string{"refined"}, nil
}

// scoringVerifier returns a scripted sequence of overall scores.
type scoringVerifier struct {
	scores []float64
	calls  int
}

func (v *scoringVerifier) Verify(_ context.Context, _ *types.Deck) *types.QualityMetrics {
	score := 1.0
	if v.calls < len(v.scores) {
		score = v.scores[v.calls]
	}
	v.calls++
	return &types.QualityMetrics{
		OverallScore: score,
		Issues:       []string{},
		Suggestions:  []string{"tune the curve"},
	}
}

func request() *types.BuildRequest {
	return &types.BuildRequest{
		Format: "Standard", Colors: []string{"R"}, Archetype: "Aggro",
		QualityThreshold: 0.7, MaxIterations: 5,
	}
}

func TestBuildStopsWhenThresholdMet(t *testing.T) {
	a := &stubAgent{}
	v := &scoringVerifier{scores: []float64{0.9}}
	o := New(a, &stubExecutor{}, v, nil)

	result := o.BuildNewDeck(context.Background(), request())
	if !result.Success {
		t.Fatalf("build failed: %s", result.Error)
	}
	if result.IterationCount != 1 {
		t.Errorf("IterationCount = %d, want 1", result.IterationCount)
	}
	if a.refineCalls != 0 {
		t.Errorf("refine ran %d times despite passing score", a.refineCalls)
	}
	if result.Deck == nil || result.Quality == nil {
		t.Error("successful result missing deck or quality")
	}
}

func TestBuildIteratesUntilThreshold(t *testing.T) {
	a := &stubAgent{}
	v := &scoringVerifier{scores: []float64{0.3, 0.5, 0.8}}
	o := New(a, &stubExecutor{}, v, nil)

	result := o.BuildNewDeck(context.Background(), request())
	if !result.Success {
		t.Fatalf("build failed: %s", result.Error)
	}
	// Build + two refines.
	if result.IterationCount != 3 {
		t.Errorf("IterationCount = %d, want 3", result.IterationCount)
	}
	if a.refineCalls != 2 {
		t.Errorf("refineCalls = %d, want 2", a.refineCalls)
	}
	if len(result.IterationHistory) != 3 {
		t.Errorf("history length = %d, want 3", len(result.IterationHistory))
	}
}

func TestIterationBudgetIsHardCap(t *testing.T) {
	a := &stubAgent{}
	v := &scoringVerifier{scores: []float64{0, 0, 0, 0, 0, 0, 0, 0}}
	req := request()
	req.MaxIterations = 3
	o := New(a, &stubExecutor{}, v, nil)

	result := o.BuildNewDeck(context.Background(), req)
	if !result.Success {
		t.Fatalf("budget exhaustion should still succeed: %s", result.Error)
	}
	if result.IterationCount != 3 {
		t.Errorf("IterationCount = %d, want exactly max (3)", result.IterationCount)
	}
	// Iteration indexes are strictly increasing.
	last := 0
	for _, rec := range result.IterationHistory {
		if rec.Iteration <= last {
			t.Errorf("iteration index not strictly increasing: %v", result.IterationHistory)
		}
		last = rec.Iteration
	}
}

func TestInvalidRequestTerminates(t *testing.T) {
	o := New(&stubAgent{}, &stubExecutor{}, &scoringVerifier{}, nil)

	tests := []*types.BuildRequest{
		nil,
		{Format: "Pauper", Colors: []string{"R"}, QualityThreshold: 0.7, MaxIterations: 1},
		{Format: "Standard", Colors: nil, QualityThreshold: 0.7, MaxIterations: 1},
		{Format: "Standard", Colors: []string{"R"}, QualityThreshold: 2.0, MaxIterations: 1},
	}
	for i, req := range tests {
		result := o.BuildNewDeck(context.Background(), req)
		if result.Success {
			t.Errorf("case %d: invalid request succeeded", i)
		}
		if result.Deck != nil {
			t.Errorf("case %d: failed result carries a deck", i)
		}
		if result.Error == "" {
			t.Errorf("case %d: failed result missing error string", i)
		}
	}
}

func TestAgentBuildFailureFallsBack(t *testing.T) {
	a := &stubAgent{failBuild: true}
	v := &scoringVerifier{scores: []float64{0.9}}
	o := New(a, &stubExecutor{}, v, nil)

	result := o.BuildNewDeck(context.Background(), request())
	// Build-mode agent failure degrades to the executor fallback; the run
	// still succeeds.
	if !result.Success {
		t.Fatalf("agent failure should not fail the run: %s", result.Error)
	}
	if result.IterationCount != 1 {
		t.Errorf("IterationCount = %d, want 1", result.IterationCount)
	}
}

func TestAgentRefineFailureKeepsDeck(t *testing.T) {
	a := &stubAgent{failRefine: true}
	exec := &stubExecutor{}
	v := &scoringVerifier{scores: []float64{0.1, 0.1, 0.1, 0.1, 0.1}}
	req := request()
	req.MaxIterations = 3
	o := New(a, exec, v, nil)

	result := o.BuildNewDeck(context.Background(), req)
	if !result.Success {
		t.Fatalf("refine failures should end in success with the current deck: %s", result.Error)
	}
	// The executor's refine path never ran; the deck is the initial build.
	if exec.refineCalls != 0 {
		t.Errorf("executor refine ran %d times despite agent failures", exec.refineCalls)
	}
	if result.Deck == nil {
		t.Error("result should carry the unrefined deck")
	}
}

func TestExecutorFailureIsTerminal(t *testing.T) {
	o := New(&stubAgent{}, &stubExecutor{fail: true}, &scoringVerifier{}, nil)

	result := o.BuildNewDeck(context.Background(), request())
	if result.Success {
		t.Fatal("executor failure must fail the request")
	}
	if result.Deck != nil {
		t.Error("partial deck returned on executor failure")
	}
}

func TestCancellationBetweenNodes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(&stubAgent{}, &stubExecutor{}, &scoringVerifier{}, nil)
	result := o.BuildNewDeck(ctx, request())
	if result.Success {
		t.Fatal("cancelled run reported success")
	}
	if result.Deck != nil {
		t.Error("cancelled run returned a deck")
	}
}

func TestModifyDeck(t *testing.T) {
	a := &stubAgent{}
	exec := &stubExecutor{}
	v := &scoringVerifier{scores: []float64{0.8}}
	o := New(a, exec, v, nil)

	deck := stubDeck("Standard", 60)
	result := o.ModifyDeck(context.Background(), deck, "Add more card draw", true)

	if !result.Success {
		t.Fatalf("modify failed: %s", result.Error)
	}
	if a.refineCalls != 1 || a.buildCalls != 0 {
		t.Errorf("agent calls = build %d / refine %d, want 0/1", a.buildCalls, a.refineCalls)
	}
	if result.IterationCount != 1 {
		t.Errorf("IterationCount = %d, want 1", result.IterationCount)
	}
	if result.Quality == nil {
		t.Error("quality check requested but missing")
	}
	if result.Deck.Format != "Standard" {
		t.Errorf("format changed to %s", result.Deck.Format)
	}
}

func TestModifyDeckWithoutQualityCheck(t *testing.T) {
	v := &scoringVerifier{}
	o := New(&stubAgent{}, &stubExecutor{}, v, nil)

	result := o.ModifyDeck(context.Background(), stubDeck("Standard", 60), "cut the bad cards", false)
	if !result.Success {
		t.Fatalf("modify failed: %s", result.Error)
	}
	if result.Quality != nil {
		t.Error("quality attached despite runQualityCheck=false")
	}
	if v.calls != 0 {
		t.Errorf("verifier ran %d times, want 0", v.calls)
	}
}

func TestModifyDeckUnknownFormat(t *testing.T) {
	o := New(&stubAgent{}, &stubExecutor{}, &scoringVerifier{}, nil)
	result := o.ModifyDeck(context.Background(), stubDeck("Pauper", 60), "improve it", false)
	if result.Success {
		t.Fatal("unknown format modify succeeded")
	}
}
