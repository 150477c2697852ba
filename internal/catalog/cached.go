package catalog

import (
	"context"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"

	"github.com/opensource-finance/cropadvisor/internal/domain"
	"github.com/opensource-finance/cropadvisor/internal/metrics"
)

// snapshotKey is the cache key of the serialized catalog.
const snapshotKey = "catalog:snapshot:v1"

// CachedSource keeps a process-wide snapshot of another catalog source.
// The snapshot is replaced on expiry or on Invalidate; callers always get
// fresh crop values, so a cached catalog cannot be mutated through results.
type CachedSource struct {
	source domain.Catalog
	cache  domain.Cache
	ttl    time.Duration
}

// NewCachedSource wraps source with cache. A zero ttl disables caching.
func NewCachedSource(source domain.Catalog, cache domain.Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source: source,
		cache:  cache,
		ttl:    ttl,
	}
}

// ListCrops returns the cached catalog, loading it from the source on a miss.
// Cache failures degrade to a direct read.
func (s *CachedSource) ListCrops(ctx context.Context) ([]*domain.Crop, error) {
	if s.cache == nil || s.ttl <= 0 {
		return s.source.ListCrops(ctx)
	}

	data, err := s.cache.Get(ctx, snapshotKey)
	if err != nil {
		slog.Warn("catalog cache read failed", "error", err)
	}
	if data != nil {
		var crops []*domain.Crop
		if err := json.Unmarshal(data, &crops); err == nil {
			metrics.CatalogCacheRequests.WithLabelValues("hit").Inc()
			return crops, nil
		}
		slog.Warn("discarding unreadable catalog snapshot")
	}

	metrics.CatalogCacheRequests.WithLabelValues("miss").Inc()

	crops, err := s.source.ListCrops(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(crops); err == nil {
		if err := s.cache.Set(ctx, snapshotKey, data, s.ttl); err != nil {
			slog.Warn("catalog cache write failed", "error", err)
		}
	}

	return crops, nil
}

// Invalidate drops the cached snapshot so the next read reloads the source.
func (s *CachedSource) Invalidate(ctx context.Context) error {
	metrics.CatalogInvalidations.Inc()
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, snapshotKey)
}
