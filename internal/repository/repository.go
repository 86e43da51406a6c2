// Package repository is the single retrieval facade used by every higher
// layer. It implements the two-tier lookup (LRU cache, then SQL store) and
// the hybrid semantic search that over-fetches vector candidates before
// applying hard filters in code.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/swstevens/agentic-cag-system/internal/cache"
	"github.com/swstevens/agentic-cag-system/internal/logging"
	"github.com/swstevens/agentic-cag-system/internal/types"
	"github.com/swstevens/agentic-cag-system/internal/vector"
)

// candidateOverFetch is how many times limit worth of vector candidates are
// resolved before hard filters cut the list down. A design constant.
const candidateOverFetch = 2

// warmTopN is the number of leading search results opportunistically
// promoted into the cache.
const warmTopN = 10

// CardBackend is the slice of the card store the repository depends on.
type CardBackend interface {
	GetByName(name string) (*types.Card, error)
	GetByID(id string) (*types.Card, error)
	Search(filters types.SearchFilters) ([]*types.Card, error)
}

// VectorBackend is the slice of the vector store the repository depends on.
type VectorBackend interface {
	Search(ctx context.Context, query string, k int, filter map[string]string) ([]string, error)
	Enabled() bool
}

// Repository fronts the card store with the cache and routes semantic
// queries through the vector store.
type Repository struct {
	store  CardBackend
	vector VectorBackend
	cache  *cache.Cache
}

// New creates a repository. The vector backend may be nil (semantic search
// degrades to text search); a nil cache gets the default capacity.
func New(store CardBackend, vec VectorBackend, c *cache.Cache) *Repository {
	if c == nil {
		c = cache.New(cache.DefaultMaxSize)
	}
	return &Repository{store: store, vector: vec, cache: c}
}

// GetByName returns a card by exact name with two-tier lookup: cache first,
// then the store, promoting store hits into the cache.
func (r *Repository) GetByName(name string) (*types.Card, error) {
	if card := r.cache.Get(name); card != nil {
		return card, nil
	}

	card, err := r.store.GetByName(name)
	if err != nil {
		return nil, err
	}
	if card != nil {
		r.cache.Put(card.Name, card)
	}
	return card, nil
}

// GetByID returns a card by id. Store hits are cached under both the id and
// the name so later name lookups hit tier 1.
func (r *Repository) GetByID(id string) (*types.Card, error) {
	if card := r.cache.Get(id); card != nil {
		return card, nil
	}

	card, err := r.store.GetByID(id)
	if err != nil {
		return nil, err
	}
	if card != nil {
		r.cache.Put(id, card)
		r.cache.Put(card.Name, card)
	}
	return card, nil
}

// Search delegates to the card store and warms the cache with the leading
// results for future exact lookups.
func (r *Repository) Search(filters types.SearchFilters) ([]*types.Card, error) {
	cards, err := r.store.Search(filters)
	if err != nil {
		return nil, err
	}
	for i, card := range cards {
		if i >= warmTopN {
			break
		}
		r.cache.Put(card.Name, card)
	}
	return cards, nil
}

// SemanticSearch runs the hybrid retrieval: vector candidates (over-fetched
// at 2x limit), resolved through the cache-backed GetByID, then hard
// filters applied in code. When the vector store is disabled, falls back
// to text-substring search against the card store.
func (r *Repository) SemanticSearch(ctx context.Context, query string, filters types.SearchFilters, limit int) ([]*types.Card, error) {
	timer := logging.StartTimer(logging.CategoryRepository, "SemanticSearch")
	defer timer.Stop()

	if limit <= 0 {
		limit = 20
	}

	if r.vector == nil || !r.vector.Enabled() {
		return r.textFallback(query, filters, limit)
	}

	ids, err := r.vector.Search(ctx, query, limit*candidateOverFetch, nil)
	if err != nil {
		if errors.Is(err, vector.ErrDisabled) {
			return r.textFallback(query, filters, limit)
		}
		logging.Repository("vector search failed, falling back to text search: %v", err)
		return r.textFallback(query, filters, limit)
	}

	cards := make([]*types.Card, 0, len(ids))
	for _, id := range ids {
		card, err := r.GetByID(id)
		if err != nil {
			return nil, fmt.Errorf("resolve candidate %q: %w", id, err)
		}
		if card == nil {
			logging.RepositoryDebug("vector candidate %q not in card store", id)
			continue
		}
		if !passesHardFilters(card, filters) {
			continue
		}
		cards = append(cards, card)
		if len(cards) >= limit {
			break
		}
	}

	logging.RepositoryDebug("semantic search %q: %d candidates -> %d cards", query, len(ids), len(cards))
	return cards, nil
}

func (r *Repository) textFallback(query string, filters types.SearchFilters, limit int) ([]*types.Card, error) {
	logging.RepositoryDebug("semantic search disabled, using text search for %q", query)
	filters.TextQuery = query
	filters.Limit = limit
	return r.Search(filters)
}

// passesHardFilters applies the exact filter semantics regardless of how
// the embeddings ranked the card: colors intersect, types intersect, CMC
// bounds, and format legality.
func passesHardFilters(card *types.Card, filters types.SearchFilters) bool {
	if len(filters.Colors) > 0 {
		match := false
		for _, want := range filters.Colors {
			for _, have := range card.Colors {
				if want == have {
					match = true
					break
				}
			}
		}
		if !match {
			return false
		}
	}
	if len(filters.Types) > 0 {
		match := false
		for _, want := range filters.Types {
			for _, have := range card.Types {
				if want == have {
					match = true
					break
				}
			}
		}
		if !match {
			return false
		}
	}
	if filters.CMCMin != nil && card.CMC < *filters.CMCMin {
		return false
	}
	if filters.CMCMax != nil && card.CMC > *filters.CMCMax {
		return false
	}
	if filters.FormatLegal != "" && !card.LegalIn(filters.FormatLegal) {
		return false
	}
	return true
}

// Preload warms the cache with the named cards and returns how many were
// found.
func (r *Repository) Preload(names []string) int {
	count := 0
	for _, name := range names {
		card, err := r.GetByName(name)
		if err == nil && card != nil {
			count++
		}
	}
	return count
}

// CacheStats reports the cache performance counters.
func (r *Repository) CacheStats() cache.Stats {
	return r.cache.GetStats()
}
