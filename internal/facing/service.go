// Package facing orchestrates a facing-direction search: cache lookup, address
// resolution, then the building and street strategies in fallback order, each
// bounded by its own deadline.
package facing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/couchcryptid/facing-direction-service/internal/observability"
	"github.com/couchcryptid/facing-direction-service/internal/resolver"
	"github.com/couchcryptid/facing-direction-service/internal/strategy"
	"github.com/google/uuid"
)

// DefaultStrategyTimeout bounds a single strategy run.
const DefaultStrategyTimeout = 8 * time.Second

// ResultCache stores successful results under a normalized address.
type ResultCache interface {
	Get(ctx context.Context, key string) (domain.CachedResult, bool, error)
	Put(ctx context.Context, key string, value domain.CachedResult) error
}

// EventPublisher receives the outcome of every finished search.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.FacingEvent) error
}

// AddressResolver turns an address into a coordinate.
type AddressResolver interface {
	Resolve(ctx context.Context, address string) (resolver.Match, error)
}

// Result is the answer to one search.
type Result struct {
	Address   string
	Label     string
	Point     domain.GeoPoint
	Direction domain.DirectionResult
	Strategy  domain.StrategyName
	Cached    bool
	AttemptID string
}

// Service runs searches. It holds no per-search state and is safe for
// concurrent use.
type Service struct {
	resolver        AddressResolver
	strategies      []strategy.Strategy
	cache           ResultCache
	publisher       EventPublisher
	strategyTimeout time.Duration
	metrics         *observability.Metrics
	logger          *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStrategyTimeout overrides DefaultStrategyTimeout.
func WithStrategyTimeout(d time.Duration) Option {
	return func(s *Service) { s.strategyTimeout = d }
}

// WithPublisher sends a FacingEvent for every terminal outcome.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService creates a Service that tries strategies in the given order.
func NewService(res AddressResolver, strategies []strategy.Strategy, cache ResultCache, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		resolver:        res,
		strategies:      strategies,
		cache:           cache,
		strategyTimeout: DefaultStrategyTimeout,
		metrics:         metrics,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeAddress builds the cache key: lower-cased, trimmed, with runs of
// whitespace collapsed to one space.
func NormalizeAddress(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}

// Infer resolves address and determines which way the building there faces.
// It returns ErrCancelled when ctx ends before a result is produced; nothing is
// cached or published in that case.
func (s *Service) Infer(ctx context.Context, address string) (Result, error) {
	return s.infer(ctx, uuid.NewString(), address)
}

// InferRequest is Infer with a caller-supplied request id, used as the attempt
// id and carried on the published event.
func (s *Service) InferRequest(ctx context.Context, requestID, address string) (Result, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return s.infer(ctx, requestID, address)
}

func (s *Service) infer(ctx context.Context, attemptID, address string) (Result, error) {
	start := time.Now()
	res, err := s.run(ctx, attemptID, address)
	s.metrics.SearchDuration.Observe(time.Since(start).Seconds())

	status := Outcome(err)
	s.metrics.Searches.WithLabelValues(status).Inc()

	if errors.Is(err, domain.ErrCancelled) {
		s.logger.Debug("search cancelled", "attempt_id", attemptID, "address", address)
		return Result{}, err
	}
	s.publish(ctx, attemptID, address, res, status, err)
	return res, err
}

func (s *Service) run(ctx context.Context, attemptID, address string) (Result, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return Result{}, domain.ErrEmptyAddress
	}
	if ctx.Err() != nil {
		return Result{}, domain.ErrCancelled
	}

	key := NormalizeAddress(trimmed)
	if hit, ok := s.lookup(ctx, key); ok {
		s.logger.Info("facing direction served from cache", "attempt_id", attemptID, "address", trimmed)
		return Result{
			Address:   trimmed,
			Label:     hit.Label,
			Point:     hit.Point,
			Direction: hit.Result,
			Strategy:  hit.Strategy,
			Cached:    true,
			AttemptID: attemptID,
		}, nil
	}

	match, err := s.resolver.Resolve(ctx, trimmed)
	if ctx.Err() != nil {
		return Result{}, domain.ErrCancelled
	}
	if err != nil {
		return Result{}, err
	}

	attempt := domain.InferenceAttempt{
		ID:        attemptID,
		Address:   trimmed,
		Point:     match.Point,
		StartedAt: domain.Now(),
	}

	var lastErr error
	for _, st := range s.strategies {
		attempt.Strategy = st.Name()
		dir, err := s.runStrategy(ctx, st, match.Point)
		if ctx.Err() != nil {
			return Result{}, domain.ErrCancelled
		}
		if err != nil {
			s.logger.Info("strategy failed",
				"attempt_id", attempt.ID,
				"strategy", st.Name(),
				"error", err,
			)
			lastErr = err
			continue
		}

		result := Result{
			Address:   trimmed,
			Label:     match.Label,
			Point:     match.Point,
			Direction: dir,
			Strategy:  st.Name(),
			AttemptID: attempt.ID,
		}
		if !s.store(ctx, key, result) {
			return Result{}, domain.ErrCancelled
		}
		s.logger.Info("facing direction inferred",
			"attempt_id", attempt.ID,
			"address", trimmed,
			"direction", dir.Direction,
			"bearing", dir.Bearing,
			"strategy", st.Name(),
			"duration_ms", domain.Now().Sub(attempt.StartedAt).Milliseconds(),
		)
		return result, nil
	}

	if lastErr == nil {
		return Result{}, domain.ErrDirectionIndeterminate
	}
	return Result{}, fmt.Errorf("%w: %w", domain.ErrDirectionIndeterminate, lastErr)
}

// runStrategy runs st under the strategy deadline and records the outcome.
func (s *Service) runStrategy(ctx context.Context, st strategy.Strategy, target domain.GeoPoint) (domain.DirectionResult, error) {
	dir, err := runWithDeadline(ctx, s.strategyTimeout, func(ctx context.Context) (domain.DirectionResult, error) {
		return st.Infer(ctx, target)
	})

	label := "success"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		label = "timeout"
	case err != nil:
		label = "error"
	}
	s.metrics.StrategyRuns.WithLabelValues(string(st.Name()), label).Inc()
	return dir, err
}

// runWithDeadline calls fn with a context that expires after timeout and
// returns as soon as fn finishes or the deadline passes, whichever is first.
// fn may keep running in the background after a timeout; its result is dropped.
func runWithDeadline[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("strategy deadline: %w", ctx.Err())
	}
}

func (s *Service) lookup(ctx context.Context, key string) (domain.CachedResult, bool) {
	hit, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("result cache get failed", "key", key, "error", err)
		ok = false
	}
	if ok {
		s.metrics.CacheLookups.WithLabelValues("result", "hit").Inc()
	} else {
		s.metrics.CacheLookups.WithLabelValues("result", "miss").Inc()
	}
	return hit, ok
}

// store writes r under key unless ctx has ended. It reports false only when the
// search was cancelled; a failed write is logged and not an error.
func (s *Service) store(ctx context.Context, key string, r Result) bool {
	if ctx.Err() != nil {
		return false
	}
	err := s.cache.Put(ctx, key, domain.CachedResult{
		Label:    r.Label,
		Result:   r.Direction,
		Strategy: r.Strategy,
		Point:    r.Point,
	})
	if err != nil {
		s.logger.Warn("result cache put failed", "key", key, "error", err)
	}
	return true
}

func (s *Service) publish(ctx context.Context, requestID, address string, r Result, status string, err error) {
	if s.publisher == nil {
		return
	}
	event := NewEvent(requestID, address, r, status, err)
	if perr := s.publisher.Publish(context.WithoutCancel(ctx), event); perr != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Error("publish facing event", "request_id", requestID, "error", perr)
		return
	}
	s.metrics.EventsPublished.Inc()
}

// NewEvent builds the result event for a finished search.
func NewEvent(requestID, address string, r Result, status string, err error) domain.FacingEvent {
	event := domain.FacingEvent{
		RequestID:   requestID,
		Address:     address,
		Status:      status,
		ProcessedAt: domain.Now(),
	}
	if err != nil {
		event.Error = err.Error()
		return event
	}
	event.Label = r.Label
	event.Lat = r.Point.Lat
	event.Lon = r.Point.Lon
	event.Direction = r.Direction.Direction
	event.Bearing = r.Direction.Bearing
	event.Strategy = r.Strategy
	event.Cached = r.Cached
	return event
}

// Outcome maps a search error to the event status and metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return domain.StatusResolved
	case errors.Is(err, domain.ErrCancelled):
		return "cancelled"
	case errors.Is(err, domain.ErrEmptyAddress):
		return domain.StatusInvalid
	case errors.Is(err, domain.ErrAddressNotFound):
		return domain.StatusNotFound
	case errors.Is(err, domain.ErrDirectionIndeterminate):
		return domain.StatusIndeterminate
	default:
		return domain.StatusFailed
	}
}
