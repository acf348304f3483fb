package chart_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/envhealth/internal/airquality"
	"github.com/breatheroute/envhealth/internal/chart"
	"github.com/breatheroute/envhealth/internal/pollen"
)

func hourlyForecast(hours int, start time.Time) *airquality.Forecast {
	series := &airquality.ForecastSeries{}
	for i := 0; i < hours; i++ {
		series.Time = append(series.Time, start.Add(time.Duration(i)*time.Hour))
		series.EuropeanAQI = append(series.EuropeanAQI, float64(30+i))
		series.PM25 = append(series.PM25, float64(i))
	}
	return &airquality.Forecast{Hourly: series}
}

func TestFormatAQIForecast_TruncatesTo24(t *testing.T) {
	start := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	points := chart.FormatAQIForecast(hourlyForecast(30, start))

	require.Len(t, points, chart.MaxForecastPoints)
	assert.Equal(t, "6", points[0].Name)
	assert.Equal(t, "23", points[17].Name)
	assert.Equal(t, "0", points[18].Name)
	assert.Equal(t, "5", points[23].Name)
	require.NotNil(t, points[0].AQI)
	assert.InDelta(t, 30, *points[0].AQI, 0.001)
	require.NotNil(t, points[23].PM25)
	assert.InDelta(t, 23, *points[23].PM25, 0.001)
	assert.Nil(t, points[0].PM10, "absent series stays absent")
}

func TestFormatAQIForecast_ClampsToShorterSeries(t *testing.T) {
	f := hourlyForecast(10, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	f.Hourly.EuropeanAQI = f.Hourly.EuropeanAQI[:7]
	f.Hourly.PM25 = f.Hourly.PM25[:3]

	points := chart.FormatAQIForecast(f)

	require.Len(t, points, 7)
	assert.NotNil(t, points[2].PM25)
	assert.Nil(t, points[3].PM25)
}

func TestFormatAQIForecast_Empty(t *testing.T) {
	assert.Equal(t, []chart.Point{}, chart.FormatAQIForecast(nil))
	assert.Equal(t, []chart.Point{}, chart.FormatAQIForecast(&airquality.Forecast{}))
	assert.Empty(t, chart.FormatAQIForecast(&airquality.Forecast{Hourly: &airquality.ForecastSeries{}}))
}

func TestFormatAirQualityHourly(t *testing.T) {
	start := time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC)
	h := &airquality.HourlySeries{}
	for i := 0; i < 26; i++ {
		h.Time = append(h.Time, start.Add(time.Duration(i)*time.Hour))
		h.AQI = append(h.AQI, float64(50+i))
		h.PM25 = append(h.PM25, 10)
		h.PM10 = append(h.PM10, 20)
	}

	points := chart.FormatAirQualityHourly(airquality.NewSnapshot(airquality.Current{}, h, start))

	require.Len(t, points, 24)
	assert.Equal(t, "22", points[0].Name)
	assert.Equal(t, "0", points[2].Name)
	assert.InDelta(t, 73, *points[23].AQI, 0.001)

	assert.Equal(t, []chart.Point{}, chart.FormatAirQualityHourly(nil))
	assert.Equal(t, []chart.Point{}, chart.FormatAirQualityHourly(airquality.NewSnapshot(airquality.Current{}, nil, start)))
}

func TestFormatPollen(t *testing.T) {
	monday := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	f := &pollen.Forecast{Daily: &pollen.DailySeries{
		Time:  []time.Time{monday, monday.AddDate(0, 0, 1), monday.AddDate(0, 0, 6)},
		Grass: []float64{2, 3, 1},
		Tree:  []float64{1, 0, 4},
		Weed:  []float64{0, 1, 2},
	}}

	points := chart.FormatPollen(f)

	require.Len(t, points, 3)
	assert.Equal(t, "Mon", points[0].Name)
	assert.Equal(t, "Tue", points[1].Name)
	assert.Equal(t, "Sun", points[2].Name)
	assert.InDelta(t, 2, *points[0].Grass, 0.001)
	assert.InDelta(t, 0, *points[1].Tree, 0.001)
	assert.InDelta(t, 2, *points[2].Weed, 0.001)
	assert.Nil(t, points[0].AQI)
}

func TestFormatPollen_BindsValuesByIndex(t *testing.T) {
	f := &pollen.Forecast{Daily: &pollen.DailySeries{
		Time:  []time.Time{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		Grass: []float64{1, 2},
		Tree:  []float64{3, 4},
		Weed:  []float64{5, 6},
	}}

	points := chart.FormatPollen(f)

	require.Len(t, points, 2)
	assert.Equal(t, "Mon", points[0].Name)
	assert.InDelta(t, 1, *points[0].Grass, 0.001)
	assert.InDelta(t, 3, *points[0].Tree, 0.001)
	assert.InDelta(t, 5, *points[0].Weed, 0.001)
	assert.Equal(t, "Tue", points[1].Name)
	assert.InDelta(t, 6, *points[1].Weed, 0.001)
}

func TestFormatPollen_ClampsToShortestSeries(t *testing.T) {
	monday := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		daily *pollen.DailySeries
		want  int
	}{
		{
			name: "short weed series",
			daily: &pollen.DailySeries{
				Time:  []time.Time{monday, monday.AddDate(0, 0, 1), monday.AddDate(0, 0, 2)},
				Grass: []float64{1, 2, 3},
				Tree:  []float64{1, 2, 3},
				Weed:  []float64{1},
			},
			want: 1,
		},
		{
			name: "short time series",
			daily: &pollen.DailySeries{
				Time:  []time.Time{monday, monday.AddDate(0, 0, 1)},
				Grass: []float64{1, 2, 3, 4},
				Tree:  []float64{1, 2, 3, 4},
				Weed:  []float64{1, 2, 3, 4},
			},
			want: 2,
		},
		{
			name: "missing tree series",
			daily: &pollen.DailySeries{
				Time:  []time.Time{monday},
				Grass: []float64{1},
				Weed:  []float64{1},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := chart.FormatPollen(&pollen.Forecast{Daily: tt.daily})

			require.Len(t, points, tt.want)
			for _, p := range points {
				assert.NotNil(t, p.Grass)
				assert.NotNil(t, p.Tree)
				assert.NotNil(t, p.Weed)
			}
		})
	}
}

func TestFormatters_Idempotent(t *testing.T) {
	forecast := hourlyForecast(30, time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC))
	monday := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	pollenForecast := &pollen.Forecast{Daily: &pollen.DailySeries{
		Time:  []time.Time{monday, monday.AddDate(0, 0, 1)},
		Grass: []float64{2, 3},
		Tree:  []float64{1, 0},
		Weed:  []float64{0, 1},
	}}

	firstAQI := chart.FormatAQIForecast(forecast)
	secondAQI := chart.FormatAQIForecast(forecast)
	assert.Equal(t, firstAQI, secondAQI)
	assert.Len(t, forecast.Hourly.Time, 30, "input is not modified")

	firstPollen := chart.FormatPollen(pollenForecast)
	secondPollen := chart.FormatPollen(pollenForecast)
	assert.Equal(t, firstPollen, secondPollen)

	// Points do not alias the input series.
	*firstPollen[0].Grass = 99
	assert.InDelta(t, 2, pollenForecast.Daily.Grass[0], 0.001)
	assert.InDelta(t, 2, *secondPollen[0].Grass, 0.001)
}

func TestFormatPollen_Empty(t *testing.T) {
	assert.Equal(t, []chart.Point{}, chart.FormatPollen(nil))
	assert.Equal(t, []chart.Point{}, chart.FormatPollen(&pollen.Forecast{}))
}

func TestSeries(t *testing.T) {
	keys := func(series []chart.Series) []string {
		out := make([]string, 0, len(series))
		for _, s := range series {
			out = append(out, s.Key)
		}
		return out
	}

	assert.Equal(t, []string{"aqi", "pm2_5", "pm10"}, keys(chart.AQIForecastSeries()))
	assert.Equal(t, []string{"grass", "tree", "weed"}, keys(chart.PollenSeries()))
}
