package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/couchcryptid/facing-direction-service/internal/facing"
)

// Searcher runs one facing-direction search.
type Searcher interface {
	Infer(ctx context.Context, address string) (facing.Result, error)
}

type facingResponse struct {
	Address   string              `json:"address"`
	Label     string              `json:"label"`
	Lat       float64             `json:"lat"`
	Lon       float64             `json:"lon"`
	Direction domain.Direction    `json:"direction"`
	Bearing   int                 `json:"bearing"`
	Strategy  domain.StrategyName `json:"strategy"`
	Cached    bool                `json:"cached"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func handleFacing(searcher Searcher, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := r.URL.Query().Get("address")

		res, err := searcher.Infer(r.Context(), address)
		if err != nil {
			if errors.Is(err, domain.ErrCancelled) || r.Context().Err() != nil {
				// The client went away; there is nobody to answer.
				return
			}
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				logger.Error("facing search failed", "address", address, "error", err)
			}
			writeJSON(w, status, errorResponse{Error: publicMessage(err)})
			return
		}

		writeJSON(w, http.StatusOK, facingResponse{
			Address:   res.Address,
			Label:     res.Label,
			Lat:       res.Point.Lat,
			Lon:       res.Point.Lon,
			Direction: res.Direction.Direction,
			Bearing:   res.Direction.Bearing,
			Strategy:  res.Strategy,
			Cached:    res.Cached,
		})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyAddress):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAddressNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDirectionIndeterminate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides provider details behind the user-facing sentinel text.
func publicMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrEmptyAddress,
		domain.ErrAddressNotFound,
		domain.ErrDirectionIndeterminate,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal error"
}
