package upstream_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/envhealth/internal/provider/resilience"
	"github.com/breatheroute/envhealth/internal/upstream"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*upstream.Client, *resilience.Registry) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	registry := resilience.NewRegistry()
	client := upstream.NewClient(upstream.ClientConfig{
		BaseURL:  server.URL + "/",
		Timeout:  time.Second,
		Registry: registry,
		Logger:   zerolog.New(io.Discard),
		Now:      func() time.Time { return fetchedAt },
	})
	return client, registry
}

func TestClient_FetchesEachDomainFromItsPath(t *testing.T) {
	bodies := map[string]string{
		"/api/weather/air-quality":          `{"current": {"aqi": 42}}`,
		"/api/weather/air-quality/forecast": `{"hourly": {"time": ["2024-05-01T00:00"], "european_aqi": [40]}}`,
		"/api/health/recommendations":       `{"temperature": {}, "uv": {"index": 1}, "airQuality": {"aqi": 10}}`,
		"/api/weather/pollen":               `{"daily": {"time": ["2024-05-06"], "grass_pollen": [1], "tree_pollen": [2], "weed_pollen": [3]}}`,
	}

	client, registry := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		body, ok := bodies[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	})
	ctx := context.Background()

	aq, err := client.FetchAirQuality(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, aq.Current.AQI)
	assert.Equal(t, fetchedAt, aq.FetchedAt)

	forecast, err := client.FetchAQIForecast(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, forecast.Hourly.Len())

	recs, err := client.FetchRecommendations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, recs.AirQuality.AQI)

	p, err := client.FetchPollen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Daily.Len())

	assert.Equal(t, len(upstream.AllDomains()), registry.Count())
	for _, h := range registry.GetAllHealth() {
		assert.NotNil(t, h.LastSuccessAt, h.Name)
	}
}

func TestClient_NetworkFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "server error", status: http.StatusBadGateway},
		{name: "client error", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.FetchAirQuality(context.Background())
			assert.ErrorIs(t, err, upstream.ErrNetworkFailure)
		})
	}
}

func TestClient_ShapeMismatch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected": true}`))
	})

	_, err := client.FetchPollen(context.Background())
	assert.ErrorIs(t, err, upstream.ErrShapeMismatch)
	assert.NotErrorIs(t, err, upstream.ErrNetworkFailure)
}

func TestClient_Unreachable(t *testing.T) {
	client := upstream.NewClient(upstream.ClientConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
		Logger:  zerolog.New(io.Discard),
	})

	_, err := client.FetchAQIForecast(context.Background())
	assert.ErrorIs(t, err, upstream.ErrNetworkFailure)
}
