// Package orchestrator drives the Draft-Verify-Refine control loop:
// ParseRequest -> BuildInitial -> Verify -> {Refine -> Verify}* -> End.
// Nodes are plain functions over the shared state; each returns the next
// node or nil to terminate. All LLM and retrieval work happens behind the
// injected dependencies, so the graph itself is deterministic.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/swstevens/agentic-cag-system/internal/format"
	"github.com/swstevens/agentic-cag-system/internal/logging"
	"github.com/swstevens/agentic-cag-system/internal/types"
)

// BuilderAgent is the planning surface of the deck builder agent.
type BuilderAgent interface {
	Build(ctx context.Context, req *types.BuildRequest) (*types.ConstructionPlan, error)
	Refine(ctx context.Context, deck *types.Deck, suggestions []string, req *types.BuildRequest, improvement *types.ImprovementPlan) (*types.EditPlan, error)
}

// PlanExecutor materializes plans into decks.
type PlanExecutor interface {
	Build(plan *types.ConstructionPlan, req *types.BuildRequest) (*types.Deck, []string, error)
	Refine(deck *types.Deck, plan *types.EditPlan, req *types.BuildRequest) (*types.Deck, []string, error)
}

// QualityVerifier scores decks.
type QualityVerifier interface {
	Verify(ctx context.Context, deck *types.Deck) *types.QualityMetrics
}

// IntentParser interprets modification prompts.
type IntentParser interface {
	ParseModification(ctx context.Context, message, formatName string) *types.ParsedIntent
}

// Orchestrator wires the nodes to their dependencies.
type Orchestrator struct {
	agent    BuilderAgent
	executor PlanExecutor
	verifier QualityVerifier
	intent   IntentParser
}

// New creates an orchestrator. intent may be nil; ModifyDeck then uses the
// raw prompt directly.
func New(agent BuilderAgent, executor PlanExecutor, verifier QualityVerifier, intent IntentParser) *Orchestrator {
	return &Orchestrator{agent: agent, executor: executor, verifier: verifier, intent: intent}
}

// stateData is carried between nodes. One instance per request; nothing is
// shared across concurrent requests.
type stateData struct {
	runID     string
	request   *types.BuildRequest
	deck      *types.Deck
	iteration *types.IterationState
	quality   *types.QualityMetrics
	notes     []string // actions applied since the last Verify
	errors    []string

	success bool
	errMsg  string
}

// node is one FSM state: it advances the state and names its successor.
// A nil successor terminates the run.
type node func(ctx context.Context, s *stateData) node

// BuildNewDeck runs the full Draft-Verify-Refine graph for a new deck.
func (o *Orchestrator) BuildNewDeck(ctx context.Context, req *types.BuildRequest) *types.DeckResult {
	s := &stateData{
		runID:   uuid.NewString(),
		request: req,
	}
	if req != nil {
		logging.Orchestrator("run %s: build %s %s deck (colors=%v)", s.runID, req.Format, req.Archetype, req.Colors)
	}

	o.run(ctx, s, o.parseRequest)
	return assembleResult(s)
}

// run executes the node chain, honoring cancellation between nodes.
func (o *Orchestrator) run(ctx context.Context, s *stateData, start node) {
	for current := start; current != nil; {
		if err := ctx.Err(); err != nil {
			s.fail("cancelled: " + err.Error())
			return
		}
		current = current(ctx, s)
	}
}

func (s *stateData) fail(msg string) {
	s.errors = append(s.errors, msg)
	s.errMsg = msg
	s.success = false
}

// parseRequest validates the request and initializes iteration state.
func (o *Orchestrator) parseRequest(_ context.Context, s *stateData) node {
	if s.request == nil {
		s.fail("invalid request: nil")
		return nil
	}
	if err := s.request.Validate(); err != nil {
		s.fail("invalid request: " + err.Error())
		return nil
	}
	if _, err := format.Lookup(s.request.Format); err != nil {
		s.fail("invalid request: " + err.Error())
		return nil
	}

	s.iteration = &types.IterationState{
		Max:              s.request.MaxIterations,
		QualityThreshold: s.request.QualityThreshold,
	}
	logging.OrchestratorDebug("run %s: request validated", s.runID)
	return o.buildInitial
}

// buildInitial drafts the first deck. Agent failure degrades to the
// deterministic fallback; executor failure is terminal.
func (o *Orchestrator) buildInitial(ctx context.Context, s *stateData) node {
	s.iteration.Count++

	plan, err := o.agent.Build(ctx, s.request)
	if err != nil {
		logging.Orchestrator("run %s: builder agent failed, using fallback: %v", s.runID, err)
		s.errors = append(s.errors, "agent failure (build): "+err.Error())
		plan = nil
	}

	deck, notes, err := o.executor.Build(plan, s.request)
	if err != nil {
		s.fail("executor failure: " + err.Error())
		return nil
	}
	s.deck = deck
	s.notes = notes
	return o.verify
}

// verify scores the current deck, records the iteration, and decides
// between another refinement pass and termination.
func (o *Orchestrator) verify(ctx context.Context, s *stateData) node {
	metrics := o.verifier.Verify(ctx, s.deck)
	s.quality = metrics

	s.iteration.AddRecord(types.IterationRecord{
		Iteration:      s.iteration.Count,
		DeckSnapshot:   s.deck.Clone(),
		Metrics:        metrics,
		ActionsApplied: s.notes,
	})
	s.notes = nil

	logging.Orchestrator("run %s: iteration %d scored %.2f (threshold %.2f)",
		s.runID, s.iteration.Count, metrics.OverallScore, s.iteration.QualityThreshold)

	if s.iteration.ShouldContinue(metrics.OverallScore) {
		return o.refine
	}
	s.success = true
	return nil
}

// refine asks the agent for an edit plan and applies it. Agent failure
// skips the refinement (Verify runs again on the unchanged deck); executor
// failure is terminal.
func (o *Orchestrator) refine(ctx context.Context, s *stateData) node {
	s.iteration.Count++

	var improvement *types.ImprovementPlan
	var suggestions []string
	if s.quality != nil {
		improvement = s.quality.ImprovementPlan
		suggestions = s.quality.Suggestions
	}

	plan, err := o.agent.Refine(ctx, s.deck, suggestions, s.request, improvement)
	if err != nil {
		logging.Orchestrator("run %s: refiner agent failed, keeping deck unchanged: %v", s.runID, err)
		s.errors = append(s.errors, "agent failure (refine): "+err.Error())
		s.notes = []string{"refinement skipped: agent failure"}
		return o.verify
	}

	deck, notes, err := o.executor.Refine(s.deck, plan, s.request)
	if err != nil {
		s.fail("executor failure: " + err.Error())
		return nil
	}
	s.deck = deck
	s.notes = notes
	return o.verify
}

// ModifyDeck applies a one-shot user modification to an existing deck:
// intent interpretation, a single refine pass, and an optional quality
// check. The input deck is not mutated.
func (o *Orchestrator) ModifyDeck(ctx context.Context, deck *types.Deck, userPrompt string, runQualityCheck bool) *types.DeckResult {
	runID := uuid.NewString()
	logging.Orchestrator("run %s: modify %s deck (%d cards): %.60q", runID, deck.Format, deck.TotalCards, userPrompt)

	s := &stateData{runID: runID}

	if _, err := format.Lookup(deck.Format); err != nil {
		s.fail("invalid deck: " + err.Error())
		return assembleResult(s)
	}

	req := &types.BuildRequest{
		Format:           deck.Format,
		Archetype:        deck.Archetype,
		Colors:           append([]string(nil), deck.Colors...),
		Strategy:         userPrompt,
		QualityThreshold: 0.7,
		MaxIterations:    1,
	}
	s.request = req
	s.iteration = &types.IterationState{Max: 1, QualityThreshold: req.QualityThreshold}

	suggestions := []string{userPrompt}
	if o.intent != nil {
		if parsed := o.intent.ParseModification(ctx, userPrompt, deck.Format); parsed != nil {
			suggestions = append(suggestions,
				fmt.Sprintf("interpreted intent: %s (%s)", parsed.Description, parsed.Type))
		}
	}

	s.iteration.Count++
	plan, err := o.agent.Refine(ctx, deck, suggestions, req, nil)
	if err != nil {
		s.fail("agent failure (modify): " + err.Error())
		return assembleResult(s)
	}

	modified, notes, err := o.executor.Refine(deck, plan, req)
	if err != nil {
		s.fail("executor failure: " + err.Error())
		return assembleResult(s)
	}
	s.deck = modified
	s.notes = notes

	if runQualityCheck {
		s.quality = o.verifier.Verify(ctx, modified)
	}
	s.iteration.AddRecord(types.IterationRecord{
		Iteration:      s.iteration.Count,
		DeckSnapshot:   modified.Clone(),
		Metrics:        s.quality,
		ActionsApplied: s.notes,
	})
	s.success = true
	return assembleResult(s)
}
