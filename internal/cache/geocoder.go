package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/couchcryptid/facing-direction-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lru[[]domain.GeocodeCandidate]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRU[[]domain.GeocodeCandidate](maxEntries, ttl, clock),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) Search(ctx context.Context, query string, limit int) ([]domain.GeocodeCandidate, error) {
	key := fmt.Sprintf("%d|%s", limit, query)
	if result, ok := c.cache.get(key); ok {
		c.metrics.CacheLookups.WithLabelValues("geocode", "hit").Inc()
		return result, nil
	}
	c.metrics.CacheLookups.WithLabelValues("geocode", "miss").Inc()

	result, err := c.inner.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if len(result) > 0 {
		c.cache.put(key, result)
	}
	return result, nil
}
