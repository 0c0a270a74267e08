package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/couchcryptid/facing-direction-service/internal/facing"
	"github.com/google/uuid"
)

// Searcher runs one search on behalf of a queued request.
type Searcher interface {
	InferRequest(ctx context.Context, requestID, address string) (facing.Result, error)
}

// RequestTransformer implements Transformer: it decodes an address request,
// runs the search, and turns any outcome into a result event. Only undecodable
// payloads and cancellation are reported as errors.
type RequestTransformer struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewTransformer creates a RequestTransformer.
func NewTransformer(searcher Searcher, logger *slog.Logger) *RequestTransformer {
	return &RequestTransformer{
		searcher: searcher,
		logger:   logger,
	}
}

func (t *RequestTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.FacingEvent, error) {
	req, err := ParseAddressRequest(raw)
	if err != nil {
		return domain.FacingEvent{}, err
	}

	res, err := t.searcher.InferRequest(ctx, req.RequestID, req.Address)
	if errors.Is(err, domain.ErrCancelled) {
		return domain.FacingEvent{}, err
	}
	if err != nil {
		t.logger.Info("request finished without a direction",
			"request_id", req.RequestID,
			"address", req.Address,
			"error", err,
		)
	}
	return facing.NewEvent(req.RequestID, req.Address, res, facing.Outcome(err), err), nil
}

// ParseAddressRequest decodes a request payload. A missing request id falls back
// to the message key, then to a fresh UUID.
func ParseAddressRequest(raw domain.RawEvent) (domain.AddressRequest, error) {
	var req domain.AddressRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return domain.AddressRequest{}, fmt.Errorf("decode address request: %w", err)
	}
	if req.RequestID == "" {
		req.RequestID = string(raw.Key)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	return req, nil
}
