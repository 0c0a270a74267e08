package overpass

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/tidwall/gjson"
)

var errMalformedResponse = errors.New("malformed overpass response")

// decodeElements turns an Overpass JSON document into features of kind.
// Geometry is read from the element's "geometry" array when present, else from
// "nodes" entries that carry coordinates; numeric node ids are ignored.
// Relations use the geometry of their first outer member. Building rings are
// returned closed. Every element yields a feature, possibly with no points.
func decodeElements(body []byte, kind domain.FeatureKind) ([]domain.Feature, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode response: %w", errMalformedResponse)
	}

	elements := gjson.GetBytes(body, "elements")
	if !elements.IsArray() {
		return nil, fmt.Errorf("decode response: %w: no elements array", errMalformedResponse)
	}

	var features []domain.Feature
	elements.ForEach(func(_, el gjson.Result) bool {
		// Elements without usable geometry are kept so callers see the
		// provider's element order; strategies reject them by point count.
		points := elementPoints(el)
		if kind == domain.FeatureBuilding {
			points = closeRing(points)
		}
		features = append(features, domain.Feature{
			ID:     el.Get("id").Int(),
			Kind:   kind,
			Points: points,
		})
		return true
	})
	return features, nil
}

func elementPoints(el gjson.Result) []domain.GeoPoint {
	if el.Get("type").String() == "relation" {
		for _, m := range el.Get("members").Array() {
			if m.Get("role").String() == "outer" {
				return elementPoints(m)
			}
		}
		return nil
	}

	if g := el.Get("geometry"); g.IsArray() {
		return pointsFrom(g.Array())
	}
	if n := el.Get("nodes"); n.IsArray() {
		return pointsFrom(n.Array())
	}
	return nil
}

func pointsFrom(items []gjson.Result) []domain.GeoPoint {
	points := make([]domain.GeoPoint, 0, len(items))
	for _, it := range items {
		if !it.IsObject() {
			continue
		}
		lat, lon := it.Get("lat"), it.Get("lon")
		if !lat.Exists() || !lon.Exists() {
			continue
		}
		p := domain.GeoPoint{Lat: lat.Float(), Lon: lon.Float()}
		if p.Valid() {
			points = append(points, p)
		}
	}
	return points
}

// closeRing appends the first point when a ring of at least three points is open.
func closeRing(points []domain.GeoPoint) []domain.GeoPoint {
	if len(points) < 3 || points[0] == points[len(points)-1] {
		return points
	}
	closed := make([]domain.GeoPoint, len(points), len(points)+1)
	copy(closed, points)
	return append(closed, points[0])
}
