// Package recommend selects activity suggestions from the stored catalog
// based on the user's current mood level.
package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/vetsupport/companion/internal/data"
	"github.com/vetsupport/companion/internal/logging"
	"github.com/vetsupport/companion/pkg/types"
)

// Engine picks catalog recommendations matched to a mood level.
type Engine struct {
	store *data.Store
	log   *logging.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a recommendation engine backed by the catalog store.
// Callers pass time.Now().UnixNano() as the seed; tests pass a fixed one.
func New(store *data.Store, log *logging.Logger, seed int64) *Engine {
	return &Engine{
		store: store,
		log:   log.WithComponent("recommend"),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Select returns one recommendation for the given level and language,
// optionally restricted to a category. Entries whose target range covers the
// level are preferred; when none match, the selection falls back to the full
// pool so the user always gets something.
func (e *Engine) Select(ctx context.Context, level int, category, language string) (*types.Recommendation, error) {
	pool, err := e.store.ListRecommendations(ctx, language, category)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	if len(pool) == 0 && language != "en" {
		// Catalog may be sparse for secondary locales.
		pool, err = e.store.ListRecommendations(ctx, "en", category)
		if err != nil {
			return nil, fmt.Errorf("list fallback recommendations: %w", err)
		}
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("no recommendations available for category %q", category)
	}

	var matched []*types.Recommendation
	for _, rec := range pool {
		if rec.InRange(level) {
			matched = append(matched, rec)
		}
	}
	if len(matched) == 0 {
		matched = pool
	}

	return matched[e.intn(len(matched))], nil
}

// ForLevel returns up to limit distinct recommendations across categories
// whose target ranges cover the level.
func (e *Engine) ForLevel(ctx context.Context, level int, language string, limit int) ([]*types.Recommendation, error) {
	if limit <= 0 {
		limit = 3
	}

	pool, err := e.store.ListRecommendations(ctx, language, "")
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}

	var matched []*types.Recommendation
	for _, rec := range pool {
		if rec.InRange(level) {
			matched = append(matched, rec)
		}
	}
	if len(matched) == 0 {
		matched = pool
	}
	if len(matched) == 0 {
		return nil, nil
	}

	e.mu.Lock()
	e.rng.Shuffle(len(matched), func(i, j int) {
		matched[i], matched[j] = matched[j], matched[i]
	})
	e.mu.Unlock()

	if len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}
