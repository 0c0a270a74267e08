package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/couchcryptid/facing-direction-service/internal/geo"
)

// minPolygonPoints is the smallest ring that can describe a building footprint.
const minPolygonPoints = 3

// Building infers the direction from the building footprint: the polygon edge
// closest to a road faces that road. Without road data it falls back to the
// perpendicular of the longest edge.
type Building struct {
	source  domain.FeatureSource
	offsets geo.Offsets
	logger  *slog.Logger
}

// NewBuilding creates the building-edge strategy.
func NewBuilding(source domain.FeatureSource, offsets geo.Offsets, logger *slog.Logger) *Building {
	return &Building{source: source, offsets: offsets, logger: logger}
}

func (b *Building) Name() domain.StrategyName { return domain.StrategyBuilding }

func (b *Building) Infer(ctx context.Context, target domain.GeoPoint) (domain.DirectionResult, error) {
	buildingBox := geo.BuildBoundingBox(target, b.offsets.Building)
	buildings, err := b.source.Features(ctx, geo.BuildFeatureQuery(domain.FeatureBuilding, buildingBox))
	if err != nil {
		return domain.DirectionResult{}, fmt.Errorf("%w: %w", domain.ErrBuildingUnavailable, err)
	}
	if len(buildings) == 0 {
		return domain.DirectionResult{}, domain.ErrBuildingUnavailable
	}

	polygon := domain.Polygon(buildings[0].Points)
	if len(polygon) < minPolygonPoints {
		return domain.DirectionResult{}, fmt.Errorf("building %d has %d points: %w",
			buildings[0].ID, len(polygon), domain.ErrBuildingUnavailable)
	}

	roadBox := geo.BuildBoundingBox(target, b.offsets.ExtendedStreet)
	features, err := b.source.Features(ctx, geo.BuildFeatureQuery(domain.FeatureHighway, roadBox))
	if err != nil {
		if ctx.Err() != nil {
			return domain.DirectionResult{}, ctx.Err()
		}
		b.logger.Warn("road query failed, using longest edge", "building_id", buildings[0].ID, "error", err)
		return LongestEdgeOrientation(polygon)
	}

	if result, ok := EdgeFacingRoad(polygon, roadsFrom(features)); ok {
		return result, nil
	}

	b.logger.Debug("no road segments near building, using longest edge", "building_id", buildings[0].ID)
	return LongestEdgeOrientation(polygon)
}

// EdgeFacingRoad finds the polygon edge whose midpoint lies closest to any road
// segment and returns the bearing from that midpoint to the closest road point.
// ok is false when no road has a segment.
func EdgeFacingRoad(polygon domain.Polygon, roads []domain.Road) (domain.DirectionResult, bool) {
	var (
		minDist   = math.Inf(1)
		fromPoint domain.GeoPoint
		toPoint   domain.GeoPoint
		found     bool
	)

	for i := 0; i < len(polygon)-1; i++ {
		mid := geo.Midpoint(polygon[i], polygon[i+1])
		for _, road := range roads {
			for j := 0; j < len(road)-1; j++ {
				closest := geo.ClosestPointOnSegment(mid, road[j], road[j+1])
				d := geo.Distance(mid, closest)
				if d < minDist {
					minDist = d
					fromPoint = mid
					toPoint = closest
					found = true
				}
			}
		}
	}

	if !found {
		return domain.DirectionResult{}, false
	}
	return geo.ToCompass(geo.Bearing(fromPoint, toPoint)), true
}

// LongestEdgeOrientation assumes the front of the building is perpendicular to
// its longest edge and returns that edge's bearing rotated by 90 degrees.
func LongestEdgeOrientation(polygon domain.Polygon) (domain.DirectionResult, error) {
	var (
		longest  float64
		edges    int
		from, to domain.GeoPoint
	)

	for i := 0; i < len(polygon)-1; i++ {
		d := geo.Distance(polygon[i], polygon[i+1])
		if d == 0 {
			continue
		}
		edges++
		if d > longest {
			longest = d
			from, to = polygon[i], polygon[i+1]
		}
	}

	if edges < 2 {
		return domain.DirectionResult{}, fmt.Errorf("%d usable edges: %w", edges, domain.ErrOrientationIndeterminate)
	}
	return geo.ToCompass(geo.Rotate(geo.Bearing(from, to), 90)), nil
}
