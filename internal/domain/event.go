package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the requests topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// AddressRequest is the JSON payload of a message on the requests topic.
type AddressRequest struct {
	RequestID string `json:"request_id"`
	Address   string `json:"address"`
}

// Event statuses.
const (
	StatusResolved      = "resolved"
	StatusNotFound      = "not_found"
	StatusIndeterminate = "indeterminate"
	StatusInvalid       = "invalid"
	StatusFailed        = "failed"
)

// FacingEvent is the serialized outcome of one inference, published to the
// results topic.
type FacingEvent struct {
	RequestID   string       `json:"request_id"`
	Address     string       `json:"address"`
	Label       string       `json:"label,omitempty"`
	Lat         float64      `json:"lat,omitempty"`
	Lon         float64      `json:"lon,omitempty"`
	Direction   Direction    `json:"direction,omitempty"`
	Bearing     int          `json:"bearing"`
	Strategy    StrategyName `json:"strategy,omitempty"`
	Cached      bool         `json:"cached"`
	Status      string       `json:"status"`
	Error       string       `json:"error,omitempty"`
	ProcessedAt time.Time    `json:"processed_at"`
}

// InferenceAttempt is the per-search observability record. It lives only for the
// duration of one call.
type InferenceAttempt struct {
	ID        string
	Address   string
	Point     GeoPoint
	StartedAt time.Time
	Strategy  StrategyName
}
