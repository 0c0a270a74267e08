package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key this service writes to Redis.
const KeyPrefix = "facing:"

// Redis stores results as JSON strings with a TTL so replicas share them.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// OpenRedis connects to addr. It does not dial until the first command.
func OpenRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// NewRedis wraps a client. A zero ttl stores keys without expiry.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (domain.CachedResult, bool, error) {
	raw, err := r.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CachedResult{}, false, nil
	}
	if err != nil {
		return domain.CachedResult{}, false, fmt.Errorf("redis get: %w", err)
	}

	var out domain.CachedResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.CachedResult{}, false, fmt.Errorf("decode cached result: %w", err)
	}
	return out, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, value domain.CachedResult) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached result: %w", err)
	}
	if err := r.client.Set(ctx, KeyPrefix+key, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// CheckReadiness pings the server.
func (r *Redis) CheckReadiness(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
