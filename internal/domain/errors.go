package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyAddress is returned when the input address is blank.
	ErrEmptyAddress = errors.New("address is empty")

	// ErrAddressNotFound means every geocoding variant came back without a candidate.
	ErrAddressNotFound = errors.New("address not found, check the address and try again")

	// ErrSpatialQueryFailed marks a non-success response from the spatial feature provider.
	ErrSpatialQueryFailed = errors.New("spatial query failed")

	// ErrBuildingUnavailable means no usable building polygon exists at the target.
	ErrBuildingUnavailable = errors.New("no usable building polygon")

	// ErrOrientationIndeterminate means the polygon has too few usable edges.
	ErrOrientationIndeterminate = errors.New("could not determine building orientation")

	// ErrNoStreetData means no road with at least two points was found near the target.
	ErrNoStreetData = errors.New("no suitable street data found")

	// ErrDirectionIndeterminate is returned once every strategy has failed.
	ErrDirectionIndeterminate = errors.New("direction could not be determined, try another address")

	// ErrCancelled marks a search that was superseded or aborted. Callers drop it silently.
	ErrCancelled = errors.New("search cancelled")
)

// SpatialQueryError carries the provider's status code and body.
type SpatialQueryError struct {
	StatusCode int
	Body       string
}

func (e *SpatialQueryError) Error() string {
	return fmt.Sprintf("spatial query failed: status %d: %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrSpatialQueryFailed) match a *SpatialQueryError.
func (e *SpatialQueryError) Is(target error) bool {
	return target == ErrSpatialQueryFailed
}
