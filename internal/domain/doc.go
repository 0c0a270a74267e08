// Package domain models addresses, geometry, and facing-direction results.
//
// # Data Sources
//
// Coordinates come from a geocoding provider (Nominatim in production) and
// building/road geometry from a spatial feature provider (the Overpass API over
// OpenStreetMap). Adapters translate provider payloads into the types here so
// the inference code only ever sees [GeoPoint], [Feature], and
// [GeocodeCandidate].
//
// # Conventions
//
// Coordinates:
//
//	WGS-84 decimal degrees. Latitude in [-90, 90], longitude in [-180, 180].
//	A GeoPoint is always {Lat, Lon}; provider field names (lat/lng/lon) are
//	resolved at the adapter boundary.
//
// Bearings:
//
//	Degrees clockwise from true North, 0 = North, 90 = East.
//	Results carry an integer bearing in [0, 360); 359.6 rounds to 0, not 360.
//
// Compass sectors (45° each, lower bound inclusive):
//
//	North      [337.5, 360) and [0, 22.5)
//	Northeast  [22.5, 67.5)
//	East       [67.5, 112.5)
//	Southeast  [112.5, 157.5)
//	South      [157.5, 202.5)
//	Southwest  [202.5, 247.5)
//	West       [247.5, 292.5)
//	Northwest  [292.5, 337.5)
//
// Polygons:
//
//	OSM closed ways repeat the first node at the end, so a polygon of n points
//	has n-1 edges and edge iteration never wraps from last to first.
//
// # Errors
//
// Provider and geometry failures are recovered as close to their source as
// possible. Only [ErrEmptyAddress], [ErrAddressNotFound], and
// [ErrDirectionIndeterminate] reach a user. [ErrCancelled] marks a superseded
// search and is never shown.
package domain
