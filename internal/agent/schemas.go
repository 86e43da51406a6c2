package agent

// JSON schemas for the structured outputs each agent role must produce.
// Shared with the verifier and intent parser so every schema lives in one
// place.

// ConstructionPlanSchema describes the build-mode output.
func ConstructionPlanSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"strategy": map[string]interface{}{
				"type":        "string",
				"description": "Overall strategy for deck construction",
			},
			"card_selections": map[string]interface{}{
				"type":        "array",
				"description": "SPELL card selections only. Do NOT include lands. Bias toward 3-4 copies of key cards in non-singleton formats.",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"card_name": map[string]interface{}{"type": "string"},
						"quantity":  map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 4},
						"reasoning": map[string]interface{}{"type": "string"},
					},
					"required": []interface{}{"card_name", "quantity", "reasoning"},
				},
			},
		},
		"required": []interface{}{"strategy", "card_selections"},
	}
}

// EditPlanSchema describes the refine-mode output.
func EditPlanSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"analysis": map[string]interface{}{
				"type":        "string",
				"description": "Analysis of the current deck state",
			},
			"actions": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"type":      map[string]interface{}{"type": "string", "enum": []interface{}{"add", "remove"}},
						"card_name": map[string]interface{}{"type": "string"},
						"quantity":  map[string]interface{}{"type": "integer", "minimum": 1},
						"reasoning": map[string]interface{}{"type": "string"},
					},
					"required": []interface{}{"type", "card_name", "quantity", "reasoning"},
				},
			},
		},
		"required": []interface{}{"analysis", "actions"},
	}
}

// ImprovementPlanSchema describes the verifier's LLM output.
func ImprovementPlanSchema() map[string]interface{} {
	change := func(reasonKey string) map[string]interface{} {
		return map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"card_name": map[string]interface{}{"type": "string"},
				"quantity":  map[string]interface{}{"type": "integer", "minimum": 1},
				reasonKey:   map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"card_name", "quantity", reasonKey},
		}
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"analysis": map[string]interface{}{"type": "string"},
			"removals": map[string]interface{}{
				"type":        "array",
				"description": "2-5 cards to remove, weakest first",
				"items":       change("reason"),
			},
			"additions": map[string]interface{}{
				"type":        "array",
				"description": "2-5 cards to add, highest impact first",
				"items":       change("reason"),
			},
		},
		"required": []interface{}{"analysis", "removals", "additions"},
	}
}

// ParsedIntentSchema describes the intent parser's LLM output.
func ParsedIntentSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"intent_type": map[string]interface{}{
				"type": "string",
				"enum": []interface{}{"add", "remove", "replace", "optimize", "strategy_shift"},
			},
			"description":  map[string]interface{}{"type": "string"},
			"card_changes": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"constraints":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"confidence":   map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
		},
		"required": []interface{}{"intent_type", "description", "confidence"},
	}
}
