// Package airquality provides the air quality data model, the AQI classifier,
// and placeholder data used while live data is unavailable.
package airquality

import (
	"time"
)

// Pollutant represents an air quality pollutant type.
type Pollutant string

const (
	PollutantPM25 Pollutant = "PM25"
	PollutantPM10 Pollutant = "PM10"
	PollutantNO2  Pollutant = "NO2"
	PollutantO3   Pollutant = "O3"
	PollutantSO2  Pollutant = "SO2"
	PollutantCO   Pollutant = "CO"
)

// AllPollutants returns the pollutants reported in a current reading, in display order.
func AllPollutants() []Pollutant {
	return []Pollutant{PollutantPM25, PollutantPM10, PollutantNO2, PollutantO3, PollutantSO2, PollutantCO}
}

// Current is the latest reading of every pollutant plus the combined index.
type Current struct {
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	SO2  float64 `json:"so2"`
	CO   float64 `json:"co"`
	AQI  int     `json:"aqi"`

	// Category is derived from AQI and never read from the wire.
	Category Category `json:"aqiCategory"`
}

// Value returns the concentration of a single pollutant.
func (c Current) Value(p Pollutant) float64 {
	switch p {
	case PollutantPM25:
		return c.PM25
	case PollutantPM10:
		return c.PM10
	case PollutantNO2:
		return c.NO2
	case PollutantO3:
		return c.O3
	case PollutantSO2:
		return c.SO2
	case PollutantCO:
		return c.CO
	default:
		return 0
	}
}

// HourlySeries holds parallel per-hour series. Index i of every slice refers to Time[i].
type HourlySeries struct {
	Time []time.Time `json:"time"`
	PM25 []float64   `json:"pm2_5"`
	PM10 []float64   `json:"pm10"`
	AQI  []float64   `json:"aqi"`
}

// Len returns the number of usable entries, clamped to the shortest series.
func (h *HourlySeries) Len() int {
	if h == nil {
		return 0
	}
	return minLen(len(h.Time), len(h.PM25), len(h.PM10), len(h.AQI))
}

// Snapshot is the latest known state of the current air quality domain.
// A newer snapshot replaces an older one wholesale.
type Snapshot struct {
	Current Current `json:"current"`

	// Hourly is nil when the upstream response carried no hourly block.
	Hourly *HourlySeries `json:"hourly,omitempty"`

	// FetchedAt is when this snapshot was produced.
	FetchedAt time.Time `json:"fetchedAt"`
}

// NewSnapshot creates a snapshot and derives the category from the index.
func NewSnapshot(current Current, hourly *HourlySeries, fetchedAt time.Time) *Snapshot {
	current.Category = Classify(float64(current.AQI))
	return &Snapshot{
		Current:   current,
		Hourly:    hourly,
		FetchedAt: fetchedAt,
	}
}

// ForecastSeries holds the hourly AQI forecast. EuropeanAQI is required,
// PM25 and PM10 may be absent or shorter than Time.
type ForecastSeries struct {
	Time        []time.Time `json:"time"`
	EuropeanAQI []float64   `json:"european_aqi"`
	PM25        []float64   `json:"pm2_5,omitempty"`
	PM10        []float64   `json:"pm10,omitempty"`
}

// Len returns the number of entries for which both a timestamp and an index exist.
func (f *ForecastSeries) Len() int {
	if f == nil {
		return 0
	}
	return minLen(len(f.Time), len(f.EuropeanAQI))
}

// Forecast is the hourly air quality forecast.
type Forecast struct {
	// Hourly is nil when the upstream response carried no hourly block.
	Hourly *ForecastSeries `json:"hourly,omitempty"`

	FetchedAt time.Time `json:"fetchedAt"`
}

func minLen(lengths ...int) int {
	n := lengths[0]
	for _, l := range lengths[1:] {
		if l < n {
			n = l
		}
	}
	return n
}
