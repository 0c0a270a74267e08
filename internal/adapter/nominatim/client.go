// Package nominatim implements domain.Geocoder against the Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/couchcryptid/facing-direction-service/internal/observability"
	"golang.org/x/time/rate"
)

const provider = "nominatim"

// Client implements domain.Geocoder using the Nominatim /search endpoint.
// Requests are paced by a token bucket to respect the public usage policy.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim client allowing ratePerSecond requests.
func NewClient(baseURL, userAgent string, ratePerSecond float64, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// Search returns up to limit candidates for query, with address details.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.GeocodeCandidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("nominatim rate limit: %w", err)
	}

	params := url.Values{
		"format":         {"json"},
		"q":              {query},
		"limit":          {strconv.Itoa(limit)},
		"addressdetails": {"1"},
	}

	start := time.Now()
	places, err := c.doRequest(ctx, c.baseURL+"/search?"+params.Encode())
	c.metrics.ProviderDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(provider, "error").Inc()
		return nil, err
	}
	c.metrics.ProviderRequests.WithLabelValues(provider, "success").Inc()

	candidates := make([]domain.GeocodeCandidate, 0, len(places))
	for _, p := range places {
		cand, err := p.toCandidate()
		if err != nil {
			c.logger.Warn("skipping nominatim place", "place_id", p.PlaceID, "error", err)
			continue
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return places, nil
}

// Nominatim API response types.

type place struct {
	PlaceID     int64   `json:"place_id"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
	Type        string  `json:"type"`
	Address     address `json:"address"`
}

type address struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
}

func (p place) toCandidate() (domain.GeocodeCandidate, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.GeocodeCandidate{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.GeocodeCandidate{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	point := domain.GeoPoint{Lat: lat, Lon: lon}
	if !point.Valid() {
		return domain.GeocodeCandidate{}, fmt.Errorf("coordinates out of range: %s", point)
	}

	return domain.GeocodeCandidate{
		Point:          point,
		Label:          p.DisplayName,
		Importance:     p.Importance,
		HasHouseNumber: p.Address.HouseNumber != "",
		HouseNumber:    p.Address.HouseNumber,
		Road:           p.Address.Road,
		PlaceType:      p.Type,
	}, nil
}
