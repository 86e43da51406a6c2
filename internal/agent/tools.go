package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/swstevens/agentic-cag-system/internal/llm"
	"github.com/swstevens/agentic-cag-system/internal/logging"
	"github.com/swstevens/agentic-cag-system/internal/types"
)

// toolSearchLimit caps results per search_cards invocation.
const toolSearchLimit = 20

// oracleTextPrefixLen bounds the oracle text shown to the model per card.
const oracleTextPrefixLen = 100

// searchCardsTool is the one tool the builder and refiner agents get.
func searchCardsTool() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: "search_cards",
		Description: "Search the card database. Use semantic_query for conceptual searches " +
			"(e.g. \"aggressive creatures\", \"removal spells\"); use the other filters for " +
			"hard constraints. Returns up to `limit` cards.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"semantic_query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query for semantic search",
				},
				"colors": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string", "enum": []interface{}{"W", "U", "B", "R", "G"}},
					"description": "Card colors",
				},
				"types": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Card types (Creature, Instant, Sorcery, ...)",
				},
				"cmc_min": map[string]interface{}{
					"type":        "number",
					"description": "Minimum converted mana cost",
				},
				"cmc_max": map[string]interface{}{
					"type":        "number",
					"description": "Maximum converted mana cost",
				},
				"text_query": map[string]interface{}{
					"type":        "string",
					"description": "Exact text to search in card name or rules text",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results to return (<= 20)",
				},
			},
		},
	}
}

// toolCard is the trimmed card view returned to the model.
type toolCard struct {
	Name             string   `json:"name"`
	CMC              float64  `json:"cmc"`
	TypeLine         string   `json:"type_line"`
	Colors           []string `json:"colors"`
	IsLegendary      bool     `json:"is_legendary"`
	OracleTextPrefix string   `json:"oracle_text_prefix"`
}

type toolSearchResult struct {
	Cards []toolCard `json:"cards"`
	Count int        `json:"count"`
}

// executeSearchCards runs a search_cards invocation against the repository,
// always injecting the request's format as a legality filter. Errors are
// surfaced as an empty cards list, never as a raised error, so the agent
// can continue reasoning.
func (a *DeckBuilderAgent) executeSearchCards(ctx context.Context, input map[string]interface{}, formatName string) string {
	filters := types.SearchFilters{
		FormatLegal: formatName,
		Limit:       toolSearchLimit,
	}

	semanticQuery, _ := input["semantic_query"].(string)
	if v, ok := input["text_query"].(string); ok {
		filters.TextQuery = v
	}
	if v, ok := input["colors"].([]interface{}); ok {
		for _, c := range v {
			if s, ok := c.(string); ok {
				filters.Colors = append(filters.Colors, s)
			}
		}
	}
	var typeFilter []string
	if v, ok := input["types"].([]interface{}); ok {
		for _, t := range v {
			if s, ok := t.(string); ok {
				typeFilter = append(typeFilter, s)
			}
		}
	}
	if v, ok := input["cmc_min"].(float64); ok {
		filters.CMCMin = &v
	}
	if v, ok := input["cmc_max"].(float64); ok {
		filters.CMCMax = &v
	}
	if v, ok := input["limit"].(float64); ok && int(v) > 0 && int(v) < toolSearchLimit {
		filters.Limit = int(v)
	}

	logging.Tools("search_cards: semantic=%q text=%q colors=%v types=%v", semanticQuery, filters.TextQuery, filters.Colors, typeFilter)

	var cards []*types.Card
	var err error
	if strings.TrimSpace(semanticQuery) != "" {
		cards, err = a.repo.SemanticSearch(ctx, semanticQuery, filters, filters.Limit)
	} else {
		cards, err = a.repo.Search(filters)
	}
	if err != nil {
		logging.Tools("search_cards failed: %v", err)
		cards = nil
	}

	// Type filtering happens here so semantic results honor it too.
	if len(typeFilter) > 0 {
		filtered := cards[:0]
		for _, card := range cards {
			for _, want := range typeFilter {
				if hasType(card, want) {
					filtered = append(filtered, card)
					break
				}
			}
		}
		cards = filtered
	}
	if len(cards) > filters.Limit {
		cards = cards[:filters.Limit]
	}

	result := toolSearchResult{Cards: make([]toolCard, 0, len(cards))}
	for _, card := range cards {
		prefix := card.OracleText
		if len(prefix) > oracleTextPrefixLen {
			prefix = prefix[:oracleTextPrefixLen]
		}
		result.Cards = append(result.Cards, toolCard{
			Name:             card.Name,
			CMC:              card.CMC,
			TypeLine:         card.TypeLine,
			Colors:           card.Colors,
			IsLegendary:      card.IsLegendary(),
			OracleTextPrefix: prefix,
		})
	}
	result.Count = len(result.Cards)

	payload, err := json.Marshal(result)
	if err != nil {
		return `{"cards":[],"count":0}`
	}
	return string(payload)
}

func hasType(card *types.Card, t string) bool {
	for _, have := range card.Types {
		if have == t {
			return true
		}
	}
	return false
}
