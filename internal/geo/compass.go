package geo

import (
	"math"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
)

// sectorWidth is the span of each of the eight compass sectors.
const sectorWidth = 45.0

// ToCompass maps a bearing to its compass sector and rounded integer bearing.
// The sector is chosen from the unrounded value; North spans [337.5,360) and
// [0,22.5).
func ToCompass(bearing float64) domain.DirectionResult {
	b := NormalizeBearing(bearing)

	// Shift by half a sector so North's two halves land in index 0 (or 8).
	idx := int(math.Floor((b+sectorWidth/2)/sectorWidth)) % len(domain.Directions)

	rounded := int(math.Round(b)) % 360
	return domain.DirectionResult{
		Direction: domain.Directions[idx],
		Bearing:   rounded,
	}
}

// Rotate adds delta degrees to bearing and folds the result into [0,360).
func Rotate(bearing, delta float64) float64 {
	return NormalizeBearing(bearing + delta)
}
