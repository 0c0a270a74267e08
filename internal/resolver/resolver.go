// Package resolver turns a free-text address into one best coordinate by
// querying a geocoder with ordered query variants and scoring the candidates.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
)

const (
	// CandidateLimit caps how many candidates each variant asks for.
	CandidateLimit = 5

	// DefaultCountrySuffix is appended to build the second query variant.
	DefaultCountrySuffix = ", USA"

	houseNumberBoost = 0.5
	buildingBoost    = 0.3

	// acceptScore is the score above which a best candidate is accepted early.
	acceptScore = 0.5
)

// Match is the selected candidate.
type Match struct {
	Point   domain.GeoPoint
	Label   string
	Score   float64
	Variant string
}

// Resolver picks the best geocoding candidate for an address.
type Resolver struct {
	geocoder      domain.Geocoder
	countrySuffix string
	logger        *slog.Logger
}

// New creates a Resolver. An empty countrySuffix disables the second variant.
func New(geocoder domain.Geocoder, countrySuffix string, logger *slog.Logger) *Resolver {
	return &Resolver{
		geocoder:      geocoder,
		countrySuffix: countrySuffix,
		logger:        logger,
	}
}

// Variants returns the ordered queries tried for address.
func (r *Resolver) Variants(address string) []string {
	variants := []string{address}
	if r.countrySuffix != "" {
		variants = append(variants, address+r.countrySuffix)
	}
	return variants
}

// Score ranks a candidate: provider importance, plus boosts for a house number
// and for house/building place types.
func Score(c domain.GeocodeCandidate) float64 {
	score := c.Importance
	if c.HasHouseNumber {
		score += houseNumberBoost
	}
	if c.PlaceType == "house" || c.PlaceType == "building" {
		score += buildingBoost
	}
	return score
}

// Resolve queries each variant in order and returns the best-scoring candidate.
// A variant whose query fails is skipped. Once the best candidate so far has a
// house number or scores above 0.5, the remaining variants are not tried.
func (r *Resolver) Resolve(ctx context.Context, address string) (Match, error) {
	var (
		best      *domain.GeocodeCandidate
		bestScore = -1.0
		bestFrom  string
	)

	for _, query := range r.Variants(address) {
		if err := ctx.Err(); err != nil {
			return Match{}, err
		}

		candidates, err := r.geocoder.Search(ctx, query, CandidateLimit)
		if err != nil {
			if ctx.Err() != nil {
				return Match{}, ctx.Err()
			}
			r.logger.Warn("geocode variant failed", "query", query, "error", err)
			continue
		}
		r.logger.Debug("geocode variant returned", "query", query, "candidates", len(candidates))

		for i := range candidates {
			c := candidates[i]
			score := Score(c)
			r.logger.Debug("geocode candidate",
				"label", c.Label,
				"type", c.PlaceType,
				"importance", c.Importance,
				"house_number", c.HouseNumber,
				"road", c.Road,
				"score", score,
			)
			if score > bestScore {
				bestScore = score
				best = &c
				bestFrom = query
			}
		}

		if best != nil && (best.HasHouseNumber || bestScore > acceptScore) {
			break
		}
	}

	if best == nil {
		return Match{}, fmt.Errorf("resolve %q: %w", address, domain.ErrAddressNotFound)
	}

	r.logger.Info("address resolved",
		"address", address,
		"label", best.Label,
		"lat", best.Point.Lat,
		"lon", best.Point.Lon,
		"type", best.PlaceType,
		"score", bestScore,
		"variant", bestFrom,
	)

	return Match{
		Point:   best.Point,
		Label:   best.Label,
		Score:   bestScore,
		Variant: bestFrom,
	}, nil
}
