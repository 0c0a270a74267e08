package cache

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
)

// Store is the contract shared by every cache tier.
type Store interface {
	Get(ctx context.Context, key string) (domain.CachedResult, bool, error)
	Put(ctx context.Context, key string, value domain.CachedResult) error
}

// Tiered reads the near tier first and falls back to the far tier, copying far
// hits into the near tier. Writes go to both. A failing far tier degrades to
// a miss so the service keeps answering when Redis is down.
type Tiered struct {
	near   Store
	far    Store
	logger *slog.Logger
}

func NewTiered(near, far Store, logger *slog.Logger) *Tiered {
	return &Tiered{near: near, far: far, logger: logger}
}

func (t *Tiered) Get(ctx context.Context, key string) (domain.CachedResult, bool, error) {
	if v, ok, err := t.near.Get(ctx, key); err == nil && ok {
		return v, true, nil
	}

	v, ok, err := t.far.Get(ctx, key)
	if err != nil {
		t.logger.Warn("far cache get failed", "key", key, "error", err)
		return domain.CachedResult{}, false, nil
	}
	if !ok {
		return domain.CachedResult{}, false, nil
	}
	if err := t.near.Put(ctx, key, v); err != nil {
		t.logger.Warn("near cache backfill failed", "key", key, "error", err)
	}
	return v, true, nil
}

func (t *Tiered) Put(ctx context.Context, key string, value domain.CachedResult) error {
	if err := t.near.Put(ctx, key, value); err != nil {
		return err
	}
	if err := t.far.Put(ctx, key, value); err != nil {
		t.logger.Warn("far cache put failed", "key", key, "error", err)
	}
	return nil
}
