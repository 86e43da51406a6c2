// Package intent maps free-form text to structured build requests and
// modification directives. The rule-based path is always available; an
// LLM-assisted path refines modification intents when a client is
// configured.
package intent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/swstevens/agentic-cag-system/internal/agent"
	"github.com/swstevens/agentic-cag-system/internal/llm"
	"github.com/swstevens/agentic-cag-system/internal/logging"
	"github.com/swstevens/agentic-cag-system/internal/prompt"
	"github.com/swstevens/agentic-cag-system/internal/types"
)

// Defaults applied when the message does not pin the field down.
const (
	DefaultFormat           = "Standard"
	DefaultArchetype        = "Aggro"
	DefaultQualityThreshold = 0.7
	DefaultMaxIterations    = 5
)

var formatKeywords = []struct {
	keyword string
	name    string
}{
	{"standard", "Standard"},
	{"modern", "Modern"},
	{"pioneer", "Pioneer"},
	{"legacy", "Legacy"},
	{"vintage", "Vintage"},
	{"commander", "Commander"},
	{"edh", "Commander"},
	{"brawl", "Brawl"},
}

var colorKeywords = []struct {
	keyword string
	code    string
}{
	{"white", "W"},
	{"blue", "U"},
	{"black", "B"},
	{"red", "R"},
	{"green", "G"},
}

var archetypeKeywords = []struct {
	keyword string
	name    string
}{
	{"aggro", "Aggro"},
	{"aggressive", "Aggro"},
	{"control", "Control"},
	{"midrange", "Midrange"},
	{"combo", "Combo"},
}

// Parser maps messages to requests. The LLM client is optional.
type Parser struct {
	client llm.Client
}

// New creates a parser. client may be nil for pure rule-based parsing.
func New(client llm.Client) *Parser {
	return &Parser{client: client}
}

// ParseBuildRequest extracts a structured build request from a free-form
// message. Unrecognized fields fall back to Standard / mono-red / Aggro,
// and the whole message is kept as the strategy text.
func (p *Parser) ParseBuildRequest(message string) *types.BuildRequest {
	lower := strings.ToLower(message)

	formatName := DefaultFormat
	for _, fk := range formatKeywords {
		if strings.Contains(lower, fk.keyword) {
			formatName = fk.name
			break
		}
	}

	var colors []string
	for _, ck := range colorKeywords {
		if strings.Contains(lower, ck.keyword) {
			colors = append(colors, ck.code)
		}
	}
	if len(colors) == 0 {
		colors = []string{"R"}
	}

	archetype := DefaultArchetype
	for _, ak := range archetypeKeywords {
		if strings.Contains(lower, ak.keyword) {
			archetype = ak.name
			break
		}
	}

	req := &types.BuildRequest{
		Format:           formatName,
		Colors:           colors,
		Archetype:        archetype,
		Strategy:         message,
		QualityThreshold: DefaultQualityThreshold,
		MaxIterations:    DefaultMaxIterations,
	}
	logging.Intent("parsed build request: format=%s colors=%v archetype=%s", formatName, colors, archetype)
	return req
}

// ParseModification classifies a modification prompt. The rule-based
// classification always succeeds; when an LLM client is available it is
// asked for a refined structured intent, and its answer wins if valid.
func (p *Parser) ParseModification(ctx context.Context, message, formatName string) *types.ParsedIntent {
	parsed := classifyRuleBased(message)

	if p.client != nil {
		if refined := p.parseWithLLM(ctx, message, formatName); refined != nil {
			return refined
		}
	}
	return parsed
}

func classifyRuleBased(message string) *types.ParsedIntent {
	lower := strings.ToLower(message)

	intent := &types.ParsedIntent{
		Type:        types.IntentOptimize,
		Description: message,
		Confidence:  0.5,
	}
	switch {
	case containsAny(lower, "replace", "swap"):
		intent.Type = types.IntentReplace
		intent.Confidence = 0.7
	case containsAny(lower, "aggressive", "faster", "slower", "shift", "focus on"):
		intent.Type = types.IntentStrategyShift
		intent.Confidence = 0.6
	case containsAny(lower, "add", "include", "more"):
		intent.Type = types.IntentAdd
		intent.Confidence = 0.7
	case containsAny(lower, "remove", "cut", "take out", "drop"):
		intent.Type = types.IntentRemove
		intent.Confidence = 0.7
	}
	return intent
}

func (p *Parser) parseWithLLM(ctx context.Context, message, formatName string) *types.ParsedIntent {
	systemPrompt, err := prompt.IntentSystemPrompt(formatName)
	if err != nil {
		return nil
	}
	raw, err := p.client.CompleteWithSchema(ctx, systemPrompt, message, "parsed_intent", agent.ParsedIntentSchema())
	if err != nil {
		logging.Intent("LLM intent parsing failed, using rule-based result: %v", err)
		return nil
	}
	var parsed types.ParsedIntent
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logging.Intent("malformed LLM intent, using rule-based result: %v", err)
		return nil
	}
	return &parsed
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
