// Package pipeline runs the Kafka worker: it pulls batches of address requests,
// searches each one, and publishes a result event per request.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/couchcryptid/facing-direction-service/internal/observability"
)

// BatchExtractor reads up to batchSize raw address requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer runs the search for one raw request and returns its result event.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.FacingEvent, error)
}

// BatchLoader writes multiple result events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.FacingEvent) error
}

const (
	minRetryDelay = 200 * time.Millisecond
	maxRetryDelay = 5 * time.Second
)

// Pipeline drives the request → search → result loop of the worker.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once at least one batch of results has been
// published.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("worker has not published any results yet")
	}
	return nil
}

// Run processes batches until ctx is cancelled. Source and sink failures are
// retried with exponential backoff; Run itself only returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("worker started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	retry := retryDelay{next: minRetryDelay}
	for ctx.Err() == nil {
		if !p.step(ctx, &retry) {
			break
		}
	}
	p.logger.Info("worker stopping", "reason", context.Cause(ctx))
	return nil
}

// step handles one batch. It returns false when the worker should stop.
func (p *Pipeline) step(ctx context.Context, retry *retryDelay) bool {
	start := time.Now()

	requests, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("fetch requests failed", "error", err)
		return retry.wait(ctx)
	}
	if len(requests) == 0 {
		return true
	}

	p.metrics.MessagesConsumed.Add(float64(len(requests)))
	p.metrics.BatchSize.Observe(float64(len(requests)))
	retry.reset()

	results, handled, stopped := p.search(ctx, requests)
	if stopped {
		return false
	}
	if len(results) == 0 {
		return true
	}

	if err := p.loader.LoadBatch(ctx, results); err != nil {
		// Offsets stay uncommitted so the whole batch is redelivered.
		p.logger.Error("publish results failed", "error", err, "batch_size", len(results))
		return retry.wait(ctx)
	}
	p.metrics.MessagesProduced.Add(float64(len(results)))
	for _, raw := range handled {
		p.commit(ctx, raw)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	p.logger.Debug("batch published", "results", len(results), "statuses", countStatuses(results))
	return true
}

// search runs every request of the batch in order. Undecodable requests are
// committed and dropped. stopped is set when a search was interrupted by
// shutdown; nothing from the batch is committed then.
func (p *Pipeline) search(ctx context.Context, requests []domain.RawEvent) (results []domain.FacingEvent, handled []domain.RawEvent, stopped bool) {
	results = make([]domain.FacingEvent, 0, len(requests))
	handled = make([]domain.RawEvent, 0, len(requests))

	for _, raw := range requests {
		event, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, true
			}
			p.logger.Warn("dropping request",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commit(ctx, raw)
			continue
		}
		results = append(results, event)
		handled = append(handled, raw)
	}
	return results, handled, false
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func countStatuses(events []domain.FacingEvent) map[string]int {
	counts := make(map[string]int, 4)
	for i := range events {
		counts[events[i].Status]++
	}
	return counts
}

// retryDelay is a doubling backoff capped at maxRetryDelay.
type retryDelay struct {
	next time.Duration
}

func (r *retryDelay) reset() { r.next = minRetryDelay }

// wait sleeps for the current delay and doubles it. It returns false if ctx
// ends first.
func (r *retryDelay) wait(ctx context.Context) bool {
	timer := time.NewTimer(r.next)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	r.next = min(r.next*2, maxRetryDelay)
	return true
}
