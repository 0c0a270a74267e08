package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/couchcryptid/facing-direction-service/internal/geo"
)

// Street assumes the building faces the nearest road and returns the bearing
// from the target to the closest point on it.
type Street struct {
	source  domain.FeatureSource
	offsets geo.Offsets
	logger  *slog.Logger
}

// NewStreet creates the street-orientation strategy.
func NewStreet(source domain.FeatureSource, offsets geo.Offsets, logger *slog.Logger) *Street {
	return &Street{source: source, offsets: offsets, logger: logger}
}

func (s *Street) Name() domain.StrategyName { return domain.StrategyStreet }

func (s *Street) Infer(ctx context.Context, target domain.GeoPoint) (domain.DirectionResult, error) {
	box := geo.BuildBoundingBox(target, s.offsets.Street)
	features, err := s.source.Features(ctx, geo.BuildFeatureQuery(domain.FeatureHighway, box))
	if err != nil {
		if ctx.Err() != nil {
			return domain.DirectionResult{}, ctx.Err()
		}
		return domain.DirectionResult{}, fmt.Errorf("%w: %w", domain.ErrNoStreetData, err)
	}

	roads := roadsFrom(features)
	if len(roads) == 0 {
		return domain.DirectionResult{}, domain.ErrNoStreetData
	}

	nearest := NearestRoad(target, roads)
	closest := closestOnRoad(target, nearest)
	s.logger.Debug("nearest road selected",
		"roads", len(roads),
		"distance_m", geo.Distance(target, closest),
	)
	return geo.ToCompass(geo.Bearing(target, closest)), nil
}

type rankedRoad struct {
	road domain.Road
	dist float64
}

// NearestRoad returns the road with the smallest distance from target to any
// of its segments. Roads tied on distance keep their input order. roads must
// be non-empty and every road must have at least two points.
func NearestRoad(target domain.GeoPoint, roads []domain.Road) domain.Road {
	ranked := make([]rankedRoad, len(roads))
	for i, r := range roads {
		ranked[i] = rankedRoad{road: r, dist: distanceToRoad(target, r)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })
	return ranked[0].road
}

func distanceToRoad(target domain.GeoPoint, road domain.Road) float64 {
	shortest := math.Inf(1)
	for i := 0; i < len(road)-1; i++ {
		if d := geo.Distance(target, geo.ClosestPointOnSegment(target, road[i], road[i+1])); d < shortest {
			shortest = d
		}
	}
	return shortest
}

func closestOnRoad(target domain.GeoPoint, road domain.Road) domain.GeoPoint {
	var (
		shortest = math.Inf(1)
		best     = road[0]
	)
	for i := 0; i < len(road)-1; i++ {
		p := geo.ClosestPointOnSegment(target, road[i], road[i+1])
		if d := geo.Distance(target, p); d < shortest {
			shortest = d
			best = p
		}
	}
	return best
}
