package upstream_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/envhealth/internal/health"
	"github.com/breatheroute/envhealth/internal/upstream"
)

var fetchedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestParseAirQuality(t *testing.T) {
	body := []byte(`{
		"current": {"pm2_5": 12.5, "pm10": 20, "no2": 14, "o3": 61, "so2": 2, "co": 0.3, "aqi": 42},
		"hourly": {
			"time": ["2024-05-01T12:00", "2024-05-01T13:00"],
			"pm2_5": [12, 13], "pm10": [20, 21], "aqi": [42, 44]
		}
	}`)

	s, ok := upstream.ParseAirQuality(body, fetchedAt)

	require.True(t, ok)
	assert.Equal(t, 42, s.Current.AQI)
	assert.Equal(t, "Good", s.Current.Category.Label)
	assert.InDelta(t, 12.5, s.Current.PM25, 0.001)
	assert.Equal(t, fetchedAt, s.FetchedAt)
	require.NotNil(t, s.Hourly)
	assert.Equal(t, 2, s.Hourly.Len())
	assert.Equal(t, 13, s.Hourly.Time[1].Hour())
}

func TestParseAirQuality_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"current":`},
		{name: "no current block", body: `{"hourly": {"time": []}}`},
		{name: "no index", body: `{"current": {"pm2_5": 10}}`},
		{name: "wrong type", body: `{"current": {"aqi": "high"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := upstream.ParseAirQuality([]byte(tt.body), fetchedAt)
			assert.False(t, ok)
		})
	}
}

func TestParseAirQuality_MissingPollutantsAreZero(t *testing.T) {
	s, ok := upstream.ParseAirQuality([]byte(`{"current": {"aqi": 120.6}}`), fetchedAt)

	require.True(t, ok)
	assert.Equal(t, 121, s.Current.AQI)
	assert.InDelta(t, 0, s.Current.NO2, 0.001)
	assert.Nil(t, s.Hourly)
}

func TestParseAirQuality_OutOfRangeAQI(t *testing.T) {
	tests := []struct {
		name  string
		aqi   string
		want  int
		label string
	}{
		{name: "huge", aqi: "1e19", want: 500, label: "Hazardous"},
		{name: "above scale", aqi: "612", want: 500, label: "Hazardous"},
		{name: "negative", aqi: "-40", want: 0, label: "Good"},
		{name: "huge negative", aqi: "-1e19", want: 0, label: "Good"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := upstream.ParseAirQuality([]byte(`{"current": {"aqi": `+tt.aqi+`}}`), fetchedAt)

			require.True(t, ok)
			assert.Equal(t, tt.want, s.Current.AQI)
			assert.Equal(t, tt.label, s.Current.Category.Label)
		})
	}
}

func TestParseAQIForecast(t *testing.T) {
	body := []byte(`{"hourly": {
		"time": ["2024-05-01T00:00", "2024-05-01T01:00", "bogus", "2024-05-01T03:00"],
		"european_aqi": [40, 41, 42, 43],
		"pm2_5": [5]
	}}`)

	f, ok := upstream.ParseAQIForecast(body, fetchedAt)

	require.True(t, ok)
	require.NotNil(t, f.Hourly)
	assert.Equal(t, 2, f.Hourly.Len(), "timestamps stop at the first unparseable entry")
	assert.Nil(t, f.Hourly.PM10)
	assert.Equal(t, fetchedAt, f.FetchedAt)
}

func TestParseAQIForecast_ShapeMismatch(t *testing.T) {
	for _, body := range []string{
		`{}`,
		`{"hourly": {"time": ["2024-05-01T00:00"]}}`,
		`{"hourly": {"european_aqi": [1]}}`,
	} {
		_, ok := upstream.ParseAQIForecast([]byte(body), fetchedAt)
		assert.False(t, ok, body)
	}
}

func TestParsePollen(t *testing.T) {
	body := []byte(`{"daily": {
		"time": ["2024-05-06", "2024-05-07"],
		"grass_pollen": [2, 3], "tree_pollen": [1, 1], "weed_pollen": [0, 1]
	}}`)

	f, ok := upstream.ParsePollen(body, fetchedAt)

	require.True(t, ok)
	assert.Equal(t, 2, f.Daily.Len())
	assert.Equal(t, time.Monday, f.Daily.Time[0].Weekday())

	_, ok = upstream.ParsePollen([]byte(`{"daily": {"time": [], "grass_pollen": [], "tree_pollen": []}}`), fetchedAt)
	assert.False(t, ok, "weed series is required")
}

func TestParseRecommendations(t *testing.T) {
	body := []byte(`{
		"temperature": {"current": 18, "feelsLike": 17, "recommendations": ["Bring a jacket"]},
		"uv": {"index": 7},
		"airQuality": {"aqi": 160, "recommendations": ["Avoid exertion"]}
	}`)

	recs, ok := upstream.ParseRecommendations(body, fetchedAt)

	require.True(t, ok)
	assert.Equal(t, []string{"Bring a jacket"}, recs.Temperature.Recommendations)
	assert.Equal(t, health.UVHigh, recs.UV.Level, "level derived from index")
	assert.Equal(t, []string{}, recs.UV.Recommendations)
	assert.Equal(t, "Unhealthy", recs.AirQuality.Category, "category derived from index")
	assert.Equal(t, 160, recs.AirQuality.AQI)

	recs, ok = upstream.ParseRecommendations([]byte(`{"temperature": {}, "uv": {}, "airQuality": {"aqi": 1e19}}`), fetchedAt)
	require.True(t, ok)
	assert.Equal(t, 500, recs.AirQuality.AQI)
	assert.Equal(t, "Hazardous", recs.AirQuality.Category)

	_, ok = upstream.ParseRecommendations([]byte(`{"temperature": {}, "uv": {}}`), fetchedAt)
	assert.False(t, ok)
}

func TestParseDomain(t *testing.T) {
	for _, d := range upstream.AllDomains() {
		got, err := upstream.ParseDomain(string(d))
		require.NoError(t, err)
		assert.Equal(t, d, got)
		assert.NotEmpty(t, d.Path())
	}

	_, err := upstream.ParseDomain("weather")
	assert.ErrorIs(t, err, upstream.ErrUnknownDomain)
	assert.Empty(t, upstream.Domain("weather").Path())
}
