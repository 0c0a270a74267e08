// Package geo implements the geometry used by facing-direction inference:
// great-circle distance and bearing, planar projection onto short segments,
// compass mapping, and spatial query boxes.
//
// Projection onto segments is planar in degrees. That is accurate at building
// and street scale and wrong at country scale; callers only use it inside
// boxes a few hundred meters wide.
package geo

import (
	"math"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// EarthRadiusMeters is the mean Earth radius used by Distance. orb's haversine
// uses the equatorial radius instead, so Distance does its own arithmetic.
const EarthRadiusMeters = 6371000.0

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// Distance returns the haversine great-circle distance between a and b in meters.
func Distance(a, b domain.GeoPoint) float64 {
	if a == b {
		return 0
	}
	phi1 := toRad(a.Lat)
	phi2 := toRad(b.Lat)
	dPhi := toRad(b.Lat - a.Lat)
	dLambda := toRad(b.Lon - a.Lon)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// Bearing returns the initial great-circle bearing from a to b in [0,360).
func Bearing(a, b domain.GeoPoint) float64 {
	return NormalizeBearing(orbgeo.Bearing(orbPoint(a), orbPoint(b)))
}

func orbPoint(p domain.GeoPoint) orb.Point { return orb.Point{p.Lon, p.Lat} }

// NormalizeBearing folds any angle in degrees into [0,360).
func NormalizeBearing(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// -1e-15 + 360 rounds to exactly 360 in float64.
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// ClosestPointOnSegment projects p onto the segment [start, end] in the
// lat/lon plane, clamping to the endpoints. A zero-length segment yields start.
func ClosestPointOnSegment(p, start, end domain.GeoPoint) domain.GeoPoint {
	dLat := end.Lat - start.Lat
	dLon := end.Lon - start.Lon

	lenSq := dLat*dLat + dLon*dLon
	if lenSq == 0 {
		return start
	}

	t := ((p.Lat-start.Lat)*dLat + (p.Lon-start.Lon)*dLon) / lenSq
	switch {
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}

	return domain.GeoPoint{
		Lat: start.Lat + t*dLat,
		Lon: start.Lon + t*dLon,
	}
}

// Midpoint returns the planar midpoint of a and b.
func Midpoint(a, b domain.GeoPoint) domain.GeoPoint {
	return domain.GeoPoint{Lat: (a.Lat + b.Lat) / 2, Lon: (a.Lon + b.Lon) / 2}
}
