// Package embedding provides vector embedding generation for semantic card
// search. Supports OpenAI (default) and Google GenAI backends.
package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/swstevens/agentic-cag-system/internal/config"
	"github.com/swstevens/agentic-cag-system/internal/logging"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings.
	Dimensions() int

	// Name returns the engine name.
	Name() string
}

// NewEngine creates an embedding engine from configuration. A missing API
// key is an error; callers treat it as "vector search disabled" and fall
// back to text search.
func NewEngine(cfg config.EmbeddingConfig) (Engine, error) {
	logging.Embedding("Creating embedding engine with provider=%s model=%s", cfg.Provider, cfg.Model)

	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIEngine(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "genai":
		return NewGenAIEngine(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'openai' or 'genai')", cfg.Provider)
	}
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dot, aMag, bMag float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		aMag += float64(a[i]) * float64(a[i])
		bMag += float64(b[i]) * float64(b[i])
	}
	if aMag == 0 || bMag == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}
