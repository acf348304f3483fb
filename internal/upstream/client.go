package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/envhealth/internal/airquality"
	"github.com/breatheroute/envhealth/internal/health"
	"github.com/breatheroute/envhealth/internal/pollen"
	"github.com/breatheroute/envhealth/internal/provider/resilience"
)

// maxBodyBytes caps the size of a decoded upstream response.
const maxBodyBytes = 4 << 20

// ClientConfig holds configuration for the upstream client.
type ClientConfig struct {
	// BaseURL is the backend service base URL (required), e.g. "http://backend:8000".
	BaseURL string

	// Timeout is the per-request timeout (default: 10 seconds).
	Timeout time.Duration

	// Registry receives request outcomes of every domain (optional).
	Registry *resilience.Registry

	// Transport overrides the underlying round tripper (optional).
	Transport http.RoundTripper

	// Logger for client operations.
	Logger zerolog.Logger

	// Now returns the current time (optional, defaults to time.Now).
	Now func() time.Time
}

// Client fetches dashboard data from the backend. Each domain has its own
// circuit breaker so one failing endpoint does not take down the others.
type Client struct {
	baseURL string
	clients map[Domain]*resilience.Client
	logger  zerolog.Logger
	now     func() time.Time
}

// NewClient creates a new upstream client.
func NewClient(cfg ClientConfig) *Client {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	clients := make(map[Domain]*resilience.Client, len(AllDomains()))
	for _, d := range AllDomains() {
		cb := resilience.DefaultCircuitBreakerConfig("upstream-" + string(d))
		cb.OnStateChange = resilience.LogStateChanges(cfg.Logger)

		clients[d] = resilience.NewClient(resilience.ClientConfig{
			Name:           string(d),
			Timeout:        cfg.Timeout,
			CircuitBreaker: &cb,
			Registry:       cfg.Registry,
			Transport:      cfg.Transport,
		})
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		clients: clients,
		logger:  cfg.Logger,
		now:     now,
	}
}

// FetchAirQuality fetches the current air quality snapshot.
func (c *Client) FetchAirQuality(ctx context.Context) (*airquality.Snapshot, error) {
	body, err := c.get(ctx, DomainAirQuality)
	if err != nil {
		return nil, err
	}
	snapshot, ok := ParseAirQuality(body, c.now())
	if !ok {
		return nil, c.shapeMismatch(DomainAirQuality)
	}
	return snapshot, nil
}

// FetchAQIForecast fetches the hourly AQI forecast.
func (c *Client) FetchAQIForecast(ctx context.Context) (*airquality.Forecast, error) {
	body, err := c.get(ctx, DomainAQIForecast)
	if err != nil {
		return nil, err
	}
	forecast, ok := ParseAQIForecast(body, c.now())
	if !ok {
		return nil, c.shapeMismatch(DomainAQIForecast)
	}
	return forecast, nil
}

// FetchRecommendations fetches the health recommendations.
func (c *Client) FetchRecommendations(ctx context.Context) (*health.Recommendations, error) {
	body, err := c.get(ctx, DomainRecommendations)
	if err != nil {
		return nil, err
	}
	recs, ok := ParseRecommendations(body, c.now())
	if !ok {
		return nil, c.shapeMismatch(DomainRecommendations)
	}
	return recs, nil
}

// FetchPollen fetches the daily pollen forecast.
func (c *Client) FetchPollen(ctx context.Context) (*pollen.Forecast, error) {
	body, err := c.get(ctx, DomainPollen)
	if err != nil {
		return nil, err
	}
	forecast, ok := ParsePollen(body, c.now())
	if !ok {
		return nil, c.shapeMismatch(DomainPollen)
	}
	return forecast, nil
}

// get performs a single GET against the domain endpoint and returns the body.
func (c *Client) get(ctx context.Context, d Domain) ([]byte, error) {
	url := c.baseURL + d.Path()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.clients[d].Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNetworkFailure, d, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: unexpected status code: %d", ErrNetworkFailure, d, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading body: %w", ErrNetworkFailure, d, err)
	}

	return body, nil
}

func (c *Client) shapeMismatch(d Domain) error {
	c.logger.Debug().
		Str("domain", string(d)).
		Msg("upstream response missing required fields")
	return fmt.Errorf("%w: %s", ErrShapeMismatch, d)
}
