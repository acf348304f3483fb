package upstream

import (
	"encoding/json"
	"time"

	"github.com/breatheroute/envhealth/internal/airquality"
	"github.com/breatheroute/envhealth/internal/health"
	"github.com/breatheroute/envhealth/internal/pollen"
)

// Wire formats. Pointers distinguish an absent key from a zero value.

type currentWire struct {
	PM25 *float64 `json:"pm2_5"`
	PM10 *float64 `json:"pm10"`
	NO2  *float64 `json:"no2"`
	O3   *float64 `json:"o3"`
	SO2  *float64 `json:"so2"`
	CO   *float64 `json:"co"`
	AQI  *float64 `json:"aqi"`
}

type airQualityWire struct {
	Current *currentWire `json:"current"`
	Hourly  *struct {
		Time []string  `json:"time"`
		PM25 []float64 `json:"pm2_5"`
		PM10 []float64 `json:"pm10"`
		AQI  []float64 `json:"aqi"`
	} `json:"hourly"`
}

type forecastWire struct {
	Hourly *struct {
		Time        []string  `json:"time"`
		EuropeanAQI []float64 `json:"european_aqi"`
		PM25        []float64 `json:"pm2_5"`
		PM10        []float64 `json:"pm10"`
	} `json:"hourly"`
}

type pollenWire struct {
	Daily *struct {
		Time  []string  `json:"time"`
		Grass []float64 `json:"grass_pollen"`
		Tree  []float64 `json:"tree_pollen"`
		Weed  []float64 `json:"weed_pollen"`
	} `json:"daily"`
}

type recommendationsWire struct {
	Temperature *struct {
		Current         float64  `json:"current"`
		FeelsLike       float64  `json:"feelsLike"`
		Recommendations []string `json:"recommendations"`
	} `json:"temperature"`
	UV *struct {
		Index           float64  `json:"index"`
		Level           string   `json:"level"`
		Recommendations []string `json:"recommendations"`
	} `json:"uv"`
	AirQuality *struct {
		AQI             float64  `json:"aqi"`
		Category        string   `json:"category"`
		Recommendations []string `json:"recommendations"`
	} `json:"airQuality"`
}

// ParseAirQuality parses a current air quality response. It reports false when
// the current block or its index is missing. A malformed hourly block is
// dropped rather than failing the snapshot.
func ParseAirQuality(body []byte, now time.Time) (*airquality.Snapshot, bool) {
	var w airQualityWire
	if err := json.Unmarshal(body, &w); err != nil || w.Current == nil || w.Current.AQI == nil {
		return nil, false
	}

	c := w.Current
	current := airquality.Current{
		PM25: deref(c.PM25),
		PM10: deref(c.PM10),
		NO2:  deref(c.NO2),
		O3:   deref(c.O3),
		SO2:  deref(c.SO2),
		CO:   deref(c.CO),
		AQI:  airquality.ClampAQI(*c.AQI),
	}

	var hourly *airquality.HourlySeries
	if w.Hourly != nil {
		times := parseTimes(w.Hourly.Time)
		if len(times) > 0 {
			hourly = &airquality.HourlySeries{
				Time: times,
				PM25: w.Hourly.PM25,
				PM10: w.Hourly.PM10,
				AQI:  w.Hourly.AQI,
			}
		}
	}

	return airquality.NewSnapshot(current, hourly, now), true
}

// ParseAQIForecast parses an AQI forecast response. It reports false when the
// hourly block, its timestamps or its european_aqi series are missing.
func ParseAQIForecast(body []byte, now time.Time) (*airquality.Forecast, bool) {
	var w forecastWire
	if err := json.Unmarshal(body, &w); err != nil || w.Hourly == nil {
		return nil, false
	}
	if w.Hourly.Time == nil || w.Hourly.EuropeanAQI == nil {
		return nil, false
	}

	return &airquality.Forecast{
		Hourly: &airquality.ForecastSeries{
			Time:        parseTimes(w.Hourly.Time),
			EuropeanAQI: w.Hourly.EuropeanAQI,
			PM25:        w.Hourly.PM25,
			PM10:        w.Hourly.PM10,
		},
		FetchedAt: now,
	}, true
}

// ParsePollen parses a pollen forecast response. It reports false when the
// daily block or any of its series are missing.
func ParsePollen(body []byte, now time.Time) (*pollen.Forecast, bool) {
	var w pollenWire
	if err := json.Unmarshal(body, &w); err != nil || w.Daily == nil {
		return nil, false
	}
	d := w.Daily
	if d.Time == nil || d.Grass == nil || d.Tree == nil || d.Weed == nil {
		return nil, false
	}

	return &pollen.Forecast{
		Daily: &pollen.DailySeries{
			Time:  parseTimes(d.Time),
			Grass: d.Grass,
			Tree:  d.Tree,
			Weed:  d.Weed,
		},
		FetchedAt: now,
	}, true
}

// ParseRecommendations parses a health recommendations response. All three
// nested blocks are required.
func ParseRecommendations(body []byte, now time.Time) (*health.Recommendations, bool) {
	var w recommendationsWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, false
	}
	if w.Temperature == nil || w.UV == nil || w.AirQuality == nil {
		return nil, false
	}

	level := health.UVLevel(w.UV.Level)
	if level == "" {
		level = health.UVLevelFromIndex(w.UV.Index)
	}
	category := w.AirQuality.Category
	if category == "" {
		category = airquality.Classify(w.AirQuality.AQI).Label
	}

	return &health.Recommendations{
		Temperature: health.TemperatureAdvice{
			Current:         w.Temperature.Current,
			FeelsLike:       w.Temperature.FeelsLike,
			Recommendations: nonNil(w.Temperature.Recommendations),
		},
		UV: health.UVAdvice{
			Index:           w.UV.Index,
			Level:           level,
			Recommendations: nonNil(w.UV.Recommendations),
		},
		AirQuality: health.AirQualityAdvice{
			AQI:             airquality.ClampAQI(w.AirQuality.AQI),
			Category:        category,
			Recommendations: nonNil(w.AirQuality.Recommendations),
		},
		FetchedAt: now,
	}, true
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTimes parses timestamps up to the first unparseable entry, so every
// parallel series is clamped to the valid prefix.
func parseTimes(raw []string) []time.Time {
	times := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		t, ok := parseTime(s)
		if !ok {
			break
		}
		times = append(times, t)
	}
	return times
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
