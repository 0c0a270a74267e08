package nominatim

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/couchcryptid/facing-direction-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const (
	testUserAgent     = "facing-test/1.0"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		userAgent:  testUserAgent,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

const searchBody = `[
  {
    "place_id": 101,
    "lat": "39.9526",
    "lon": "-75.1652",
    "display_name": "1400, John F Kennedy Boulevard, Philadelphia",
    "importance": 0.21,
    "type": "house",
    "address": {"house_number": "1400", "road": "John F Kennedy Boulevard"}
  },
  {
    "place_id": 102,
    "lat": "39.9530",
    "lon": "-75.1640",
    "display_name": "John F Kennedy Boulevard, Philadelphia",
    "type": "secondary",
    "address": {"road": "John F Kennedy Boulevard"}
  }
]`

func TestClient_Search_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1400 JFK Blvd", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "1", r.URL.Query().Get("addressdetails"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	got, err := c.Search(context.Background(), "1400 JFK Blvd", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.GeocodeCandidate{
		Point:          domain.GeoPoint{Lat: 39.9526, Lon: -75.1652},
		Label:          "1400, John F Kennedy Boulevard, Philadelphia",
		Importance:     0.21,
		HasHouseNumber: true,
		HouseNumber:    "1400",
		Road:           "John F Kennedy Boulevard",
		PlaceType:      "house",
	}, got[0])

	assert.False(t, got[1].HasHouseNumber)
	assert.Equal(t, 0.0, got[1].Importance, "missing importance defaults to zero")
	assert.Equal(t, "secondary", got[1].PlaceType)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.ProviderRequests.WithLabelValues(provider, "success")))
}

func TestClient_Search_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Search(context.Background(), "nowhere", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClient_Search_SkipsBadCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"place_id": 1, "lat": "north", "lon": "-75"},
			{"place_id": 2, "lat": "95", "lon": "-75"},
			{"place_id": 3, "lat": "40", "lon": "-75", "display_name": "ok"}
		]`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Label)
}

func TestClient_Search_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`blocked`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "blocked")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.ProviderRequests.WithLabelValues(provider, "error")))
}

func TestClient_Search_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_Search_RateLimitHonoursContext(t *testing.T) {
	c := testClient("http://127.0.0.1:0")
	c.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	c.limiter.Allow() // drain the single token

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Search(ctx, "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestNewClient_TrimsBaseURL(t *testing.T) {
	c := NewClient("http://nominatim.local/", testUserAgent, 1, time.Second, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, "http://nominatim.local", c.baseURL)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
}
