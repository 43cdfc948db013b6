package dialog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avelesov/neyra/internal/backend"
)

// modelCatalog caches the merged provider model listings. Providers that
// cannot enumerate models contribute their adapter name as a single entry.
type modelCatalog struct {
	mu        sync.Mutex
	ttl       time.Duration
	models    []backend.ModelInfo
	fetchedAt time.Time
}

func newModelCatalog(ttl time.Duration) *modelCatalog {
	return &modelCatalog{ttl: ttl}
}

// ListModels returns the routable model catalog. Catalog fetch failures fall
// back to the cached listing when one exists, even if expired.
func (s *Service) ListModels(ctx context.Context) ([]backend.ModelInfo, error) {
	s.catalog.mu.Lock()
	defer s.catalog.mu.Unlock()

	if s.catalog.models != nil && time.Since(s.catalog.fetchedAt) < s.catalog.ttl {
		return append([]backend.ModelInfo(nil), s.catalog.models...), nil
	}

	merged := make([]backend.ModelInfo, 0, len(s.adapters))
	fetchFailed := false
	for name, adapter := range s.adapters {
		cataloger, ok := adapter.(backend.Cataloger)
		if !ok {
			merged = append(merged, backend.ModelInfo{ID: name, Backend: name})
			continue
		}

		models, err := cataloger.Models(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("model", name).Msg("model catalog fetch failed")
			fetchFailed = true
			merged = append(merged, backend.ModelInfo{ID: name, Backend: name})
			continue
		}
		merged = append(merged, models...)
	}

	if fetchFailed && s.catalog.models != nil {
		return append([]backend.ModelInfo(nil), s.catalog.models...), nil
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Backend != merged[j].Backend {
			return merged[i].Backend < merged[j].Backend
		}
		return merged[i].ID < merged[j].ID
	})

	s.catalog.models = merged
	s.catalog.fetchedAt = time.Now()
	return append([]backend.ModelInfo(nil), merged...), nil
}
