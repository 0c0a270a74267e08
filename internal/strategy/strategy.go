// Package strategy holds the geometric heuristics that turn a target point and
// nearby map features into a facing direction.
package strategy

import (
	"context"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
)

// Strategy infers a facing direction for a target point.
type Strategy interface {
	Name() domain.StrategyName
	Infer(ctx context.Context, target domain.GeoPoint) (domain.DirectionResult, error)
}

// roadsFrom keeps the features that can be read as roads with at least one segment.
func roadsFrom(features []domain.Feature) []domain.Road {
	roads := make([]domain.Road, 0, len(features))
	for _, f := range features {
		r := domain.Road(f.Points)
		if r.Usable() {
			roads = append(roads, r)
		}
	}
	return roads
}
