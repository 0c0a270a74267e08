package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/facing-direction-service/internal/config"
	"github.com/couchcryptid/facing-direction-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces result events to a Kafka topic.
// It implements pipeline.BatchLoader and facing.EventPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured results topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaResultsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes a single result event.
func (w *Writer) Publish(ctx context.Context, event domain.FacingEvent) error {
	return w.LoadBatch(ctx, []domain.FacingEvent{event})
}

// LoadBatch serializes and publishes multiple result events to the results
// topic in a single WriteMessages call for efficiency.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.FacingEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("result events written", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a FacingEvent into a Kafka message keyed by request id.
func serializeToMessage(event domain.FacingEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize facing event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.RequestID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(event.Status)},
			{Key: "processed_at", Value: []byte(event.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
