package cache

import (
	"context"
	"time"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Memory keeps inferred directions in process.
type Memory struct {
	lru *lru[domain.CachedResult]
}

// NewMemory creates a cache holding at most maxEntries results for ttl each.
func NewMemory(maxEntries int, ttl time.Duration, clock clockwork.Clock) *Memory {
	return &Memory{lru: newLRU[domain.CachedResult](maxEntries, ttl, clock)}
}

func (m *Memory) Get(_ context.Context, key string) (domain.CachedResult, bool, error) {
	v, ok := m.lru.get(key)
	return v, ok, nil
}

func (m *Memory) Put(_ context.Context, key string, value domain.CachedResult) error {
	m.lru.put(key, value)
	return nil
}

// Len reports the number of entries held, expired ones included.
func (m *Memory) Len() int { return m.lru.len() }
