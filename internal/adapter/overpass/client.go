// Package overpass implements domain.FeatureSource against an Overpass API
// interpreter endpoint.
package overpass

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
	"github.com/couchcryptid/facing-direction-service/internal/geo"
	"github.com/couchcryptid/facing-direction-service/internal/observability"
)

const provider = "overpass"

// maxErrorBody caps how much of a failed response is kept on the error.
const maxErrorBody = 2048

// Client runs Overpass QL queries built from domain.FeatureQuery descriptors.
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Overpass client. timeout bounds each HTTP call and is
// also declared to the server as the query timeout.
func NewClient(endpoint string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		timeout:  timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Features executes q and returns the decoded elements. Any non-200 response
// is reported as a *domain.SpatialQueryError.
func (c *Client) Features(ctx context.Context, q domain.FeatureQuery) ([]domain.Feature, error) {
	start := time.Now()
	body, err := c.doRequest(ctx, geo.OverpassQL(q, c.timeout))
	c.metrics.ProviderDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(provider, "error").Inc()
		return nil, err
	}
	c.metrics.ProviderRequests.WithLabelValues(provider, "success").Inc()

	features, err := decodeElements(body, q.Kind)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("overpass features decoded", "kind", q.Kind, "count", len(features))
	return features, nil
}

func (c *Client) doRequest(ctx context.Context, query string) ([]byte, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.SpatialQueryError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
