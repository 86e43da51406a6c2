package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/ratelimit"

	"github.com/swstevens/agentic-cag-system/internal/logging"
)

// maxBatchSize is the largest number of inputs sent in one embeddings
// request. Larger batches are chunked and concatenated.
const maxBatchSize = 100

// OpenAIEngine generates embeddings through the OpenAI embeddings endpoint.
type OpenAIEngine struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    ratelimit.Limiter
}

// NewOpenAIEngine creates a new OpenAI embedding engine.
func NewOpenAIEngine(apiKey, model, baseURL string) (*OpenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	logging.Embedding("Initializing OpenAI embedding engine: model=%s", model)

	return &OpenAIEngine{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		limiter: ratelimit.New(10, ratelimit.Per(time.Second)),
	}, nil
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Embed generates an embedding for a single text.
func (e *OpenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embedChunk(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts, chunking at the API
// batch limit and concatenating results in order.
func (e *OpenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "OpenAI.EmbedBatch")
	defer timer.Stop()

	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) <= maxBatchSize {
		return e.embedChunk(ctx, texts)
	}

	numBatches := (len(texts) + maxBatchSize - 1) / maxBatchSize
	logging.Embedding("OpenAI.EmbedBatch: chunking %d texts into %d batches", len(texts), numBatches)

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += maxBatchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		end := i + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedChunk(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d/%d failed: %w", i/maxBatchSize+1, numBatches, err)
		}
		all = append(all, vecs...)
	}
	return all, nil
}

func (e *OpenAIEngine) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	e.limiter.Take()

	body, err := json.Marshal(openAIEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	apiStart := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		logging.APIError("OpenAI embeddings request failed after %v: %v", time.Since(apiStart), err)
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings request failed with status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed openAIEmbedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("embeddings API error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(parsed.Data), len(texts))
	}

	// The API documents order-preserving responses but indexes them anyway.
	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}

	logging.EmbeddingDebug("OpenAI embedded %d texts in %v", len(texts), time.Since(apiStart))
	return out, nil
}

// Dimensions returns the dimensionality of embeddings.
// text-embedding-3-small produces 1536-dimensional vectors.
func (e *OpenAIEngine) Dimensions() int {
	if e.model == "text-embedding-3-large" {
		return 3072
	}
	return 1536
}

// Name returns the engine name.
func (e *OpenAIEngine) Name() string {
	return "openai:" + e.model
}
