// Package agent implements the LLM-driven deck builder. The agent reasons
// with one tool (search_cards) and emits plans as data: a construction plan
// in build mode, an edit plan in refine mode. It never touches the deck;
// the executor applies plans and enforces every invariant.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/swstevens/agentic-cag-system/internal/format"
	"github.com/swstevens/agentic-cag-system/internal/llm"
	"github.com/swstevens/agentic-cag-system/internal/logging"
	"github.com/swstevens/agentic-cag-system/internal/prompt"
	"github.com/swstevens/agentic-cag-system/internal/types"
)

// maxToolRounds bounds the search loop; the prompts ask for 3-5 broad
// searches, so six rounds is already generous.
const maxToolRounds = 6

// SearchRepository is the retrieval surface the agent's tool needs.
type SearchRepository interface {
	Search(filters types.SearchFilters) ([]*types.Card, error)
	SemanticSearch(ctx context.Context, query string, filters types.SearchFilters, limit int) ([]*types.Card, error)
}

// DeckBuilderAgent converts build requests and refinement context into
// plans via tool-assisted LLM reasoning.
type DeckBuilderAgent struct {
	client llm.Client
	repo   SearchRepository
}

// New creates a deck builder agent.
func New(client llm.Client, repo SearchRepository) *DeckBuilderAgent {
	return &DeckBuilderAgent{client: client, repo: repo}
}

// Build runs build mode: the agent searches the catalog and returns a
// construction plan of spells only. A nil plan with an error means the
// LLM path failed; the executor then falls back to the deterministic
// minimal deck.
func (a *DeckBuilderAgent) Build(ctx context.Context, req *types.BuildRequest) (*types.ConstructionPlan, error) {
	timer := logging.StartTimer(logging.CategoryBuilder, "Build")
	defer timer.StopWithInfo()

	if a.client == nil {
		return nil, fmt.Errorf("no LLM client configured")
	}
	systemPrompt, err := prompt.BuilderSystemPrompt(req.Format)
	if err != nil {
		return nil, err
	}
	landCount, err := format.LandCount(req.Format, req.Archetype)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Build a %s deck for %s.\n\n", req.Archetype, req.Format)
	fmt.Fprintf(&sb, "Colors: %s\n", strings.Join(req.Colors, ", "))
	if req.Strategy != "" {
		fmt.Fprintf(&sb, "Strategy: %s\n", req.Strategy)
	}
	sb.WriteString("\nIMPORTANT:\n")
	sb.WriteString("- Select SPELL cards only (creatures, instants, sorceries, ...).\n")
	fmt.Fprintf(&sb, "- Lands are added automatically (%d lands for the %s archetype).\n", landCount, req.Archetype)
	sb.WriteString("- Make at most 3-5 broad searches; each returns up to 20 cards.\n")
	sb.WriteString("- Use semantic_query for high-level concepts (\"aggressive creatures\", \"removal spells\").\n\n")
	sb.WriteString("When you are done searching, reply with ONLY the final JSON construction plan\n")
	sb.WriteString("(strategy plus card_selections with card_name, quantity 1-4, and reasoning).")

	text, err := a.runToolLoop(ctx, systemPrompt, sb.String(), req.Format)
	if err != nil {
		logging.Builder("build-mode LLM path failed: %v", err)
		return nil, err
	}

	var plan types.ConstructionPlan
	if err := a.decodePlan(ctx, systemPrompt, text, "construction_plan", ConstructionPlanSchema(), &plan); err != nil {
		return nil, err
	}
	logging.Builder("construction plan: %d selections, strategy=%.60q", len(plan.CardSelections), plan.Strategy)
	return &plan, nil
}

// Refine runs refine mode against an existing deck plus verifier feedback.
// The returned edit plan is sized so that net adds minus removes moves the
// deck toward the format's target size.
func (a *DeckBuilderAgent) Refine(ctx context.Context, deck *types.Deck, suggestions []string, req *types.BuildRequest, improvement *types.ImprovementPlan) (*types.EditPlan, error) {
	timer := logging.StartTimer(logging.CategoryBuilder, "Refine")
	defer timer.StopWithInfo()

	if a.client == nil {
		return nil, fmt.Errorf("no LLM client configured")
	}
	systemPrompt, err := prompt.RefinerSystemPrompt(req.Format)
	if err != nil {
		return nil, err
	}
	targetSize, err := format.DeckSize(req.Format)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Refine this %s deck:\n\nCurrent deck:\n", req.Archetype)
	for _, dc := range deck.Cards {
		fmt.Fprintf(&sb, "%dx %s (CMC: %g, %s)\n", dc.Quantity, dc.Card.Name, dc.Card.CMC, dc.Card.TypeLine)
	}
	if len(suggestions) > 0 {
		sb.WriteString("\nSuggestions:\n")
		for _, s := range suggestions {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
	}
	if improvement != nil {
		sb.WriteString("\nImprovement plan from quality analysis:\n")
		fmt.Fprintf(&sb, "Analysis: %s\n", improvement.Analysis)
		for _, removal := range improvement.Removals {
			fmt.Fprintf(&sb, "- Remove %dx %s: %s\n", removal.Quantity, removal.CardName, removal.Reason)
		}
		for _, addition := range improvement.Additions {
			fmt.Fprintf(&sb, "- Add %dx %s: %s\n", addition.Quantity, addition.CardName, addition.Reason)
		}
	}
	sb.WriteString("\nIMPORTANT CONSTRAINTS:\n")
	fmt.Fprintf(&sb, "- Current deck size is %d. Target size is %d.\n", deck.TotalCards, targetSize)
	sb.WriteString("- If current < target, you MUST add more cards than you remove.\n")
	sb.WriteString("- If current > target, you MUST remove more cards than you add.\n")
	sb.WriteString("- If current == target, you MUST add and remove equal amounts.\n\n")
	sb.WriteString("Use search_cards to find better cards (semantic_query works best).\n")
	sb.WriteString("When done, reply with ONLY the final JSON edit plan (analysis plus actions).")

	text, err := a.runToolLoop(ctx, systemPrompt, sb.String(), req.Format)
	if err != nil {
		logging.Builder("refine-mode LLM path failed: %v", err)
		return nil, err
	}

	var plan types.EditPlan
	if err := a.decodePlan(ctx, systemPrompt, text, "edit_plan", EditPlanSchema(), &plan); err != nil {
		return nil, err
	}
	logging.Builder("edit plan: %d actions", len(plan.Actions))
	return &plan, nil
}

// runToolLoop drives the search conversation until the model stops
// requesting tool calls or the round budget runs out, and returns the
// final assistant text.
func (a *DeckBuilderAgent) runToolLoop(ctx context.Context, systemPrompt, userPrompt, formatName string) (string, error) {
	tools := []llm.ToolDefinition{searchCardsTool()}
	messages := []llm.Message{{Role: "user", Content: userPrompt}}

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.client.ChatWithTools(ctx, systemPrompt, messages, tools)
		if err != nil {
			return "", fmt.Errorf("tool round %d: %w", round+1, err)
		}
		if len(resp.ToolCalls) == 0 {
			return resp.Text, nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			var payload string
			if call.Name == "search_cards" {
				payload = a.executeSearchCards(ctx, call.Input, formatName)
			} else {
				// Unknown tool: empty result, not an error.
				payload = `{"cards":[],"count":0}`
			}
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    payload,
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}

	// Budget exhausted mid-search; force a final answer without tools.
	messages = append(messages, llm.Message{
		Role:    "user",
		Content: "Search budget exhausted. Reply with the final JSON plan now.",
	})
	resp, err := a.client.ChatWithTools(ctx, systemPrompt, messages, nil)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// decodePlan parses the assistant's final text into the plan type. If the
// text is not valid JSON (models sometimes wrap it in prose), one
// schema-enforced reformat pass is attempted.
func (a *DeckBuilderAgent) decodePlan(ctx context.Context, systemPrompt, text, schemaName string, schema map[string]interface{}, out interface{}) error {
	trimmed := extractJSON(text)
	if trimmed != "" && json.Unmarshal([]byte(trimmed), out) == nil {
		return nil
	}

	logging.BuilderDebug("final text was not a clean %s, retrying with schema enforcement", schemaName)
	reformatted, err := a.client.CompleteWithSchema(ctx, systemPrompt,
		"Convert your previous answer into the required JSON object. Previous answer:\n\n"+text,
		schemaName, schema)
	if err != nil {
		return fmt.Errorf("schema reformat failed: %w", err)
	}
	if err := json.Unmarshal([]byte(extractJSON(reformatted)), out); err != nil {
		return fmt.Errorf("malformed %s output: %w", schemaName, err)
	}
	return nil
}

// extractJSON pulls the outermost JSON object out of a possibly
// prose-wrapped response.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
