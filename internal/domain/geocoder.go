package domain

import "context"

// GeocodeCandidate is one ranked match returned by a geocoding provider.
type GeocodeCandidate struct {
	Point          GeoPoint
	Label          string
	Importance     float64 // provider relevance, 0 when absent
	HasHouseNumber bool
	HouseNumber    string
	Road           string
	PlaceType      string // e.g. "house", "building", "residential"
}

// Geocoder resolves free-text queries to ranked candidates.
type Geocoder interface {
	// Search returns up to limit candidates for query, with address details.
	Search(ctx context.Context, query string, limit int) ([]GeocodeCandidate, error)
}

// FeatureQuery describes a spatial request: which feature kind inside which box.
// It is a descriptor only; executing it is the FeatureSource's job.
type FeatureQuery struct {
	Kind FeatureKind
	Box  BoundingBox
}

// FeatureSource fetches building or road geometry for a FeatureQuery.
type FeatureSource interface {
	Features(ctx context.Context, q FeatureQuery) ([]Feature, error)
}
