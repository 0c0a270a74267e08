package domain

import "fmt"

// GeoPoint is a WGS-84 latitude/longitude pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies inside the latitude/longitude ranges.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%.7f,%.7f", p.Lat, p.Lon)
}

// BoundingBox is an axis-aligned lat/lon rectangle. North > South and East > West;
// boxes crossing the antimeridian are not supported.
type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p GeoPoint) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lon >= b.West && p.Lon <= b.East
}

// FeatureKind selects which spatial features a query asks for.
type FeatureKind string

const (
	FeatureBuilding FeatureKind = "building"
	FeatureHighway  FeatureKind = "highway"
)

// Feature is one element returned by a spatial feature provider, normalized to
// canonical points. Buildings are polygons, highways are roads.
type Feature struct {
	ID     int64
	Kind   FeatureKind
	Points []GeoPoint
}

// Polygon is an ordered ring of points. Edge iteration treats it as an open
// chain of len-1 edges between consecutive nodes.
type Polygon []GeoPoint

// Road is an ordered polyline; it needs at least two points to have a segment.
type Road []GeoPoint

// Usable reports whether the road has at least one segment.
func (r Road) Usable() bool { return len(r) >= 2 }
