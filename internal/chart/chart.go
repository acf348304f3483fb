// Package chart reshapes nested forecast series into flat per-bucket points
// consumed by line and bar charts.
package chart

import (
	"strconv"

	"github.com/breatheroute/envhealth/internal/airquality"
	"github.com/breatheroute/envhealth/internal/pollen"
)

// MaxForecastPoints is the number of hourly buckets shown on the AQI forecast chart.
const MaxForecastPoints = 24

// Point is one chart bucket. Absent values are nil and omitted from JSON.
type Point struct {
	Name  string   `json:"name"`
	AQI   *float64 `json:"aqi,omitempty"`
	PM25  *float64 `json:"pm2_5,omitempty"`
	PM10  *float64 `json:"pm10,omitempty"`
	Grass *float64 `json:"grass,omitempty"`
	Tree  *float64 `json:"tree,omitempty"`
	Weed  *float64 `json:"weed,omitempty"`
}

// Series describes one line or bar drawn from a point sequence.
type Series struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// AQIForecastSeries are the series drawn on the AQI forecast chart.
func AQIForecastSeries() []Series {
	return []Series{
		{Key: "aqi", Label: "AQI", Color: "#8884d8"},
		{Key: "pm2_5", Label: "PM2.5", Color: "#82ca9d"},
		{Key: "pm10", Label: "PM10", Color: "#ffc658"},
	}
}

// PollenSeries are the series drawn on the pollen chart.
func PollenSeries() []Series {
	return []Series{
		{Key: "grass", Label: "Grass", Color: "#4ade80"},
		{Key: "tree", Label: "Tree", Color: "#a16207"},
		{Key: "weed", Label: "Weed", Color: "#f97316"},
	}
}

// FormatAQIForecast returns one point per hour for the first 24 hours of the
// forecast. The name of each point is its hour of day. Points are limited to
// the shorter of the time and index series; PM values past the end of their
// own series are left absent.
func FormatAQIForecast(f *airquality.Forecast) []Point {
	if f == nil || f.Hourly == nil {
		return []Point{}
	}

	h := f.Hourly
	n := h.Len()
	if n > MaxForecastPoints {
		n = MaxForecastPoints
	}

	points := make([]Point, n)
	for i := 0; i < n; i++ {
		points[i] = Point{
			Name: strconv.Itoa(h.Time[i].Hour()),
			AQI:  at(h.EuropeanAQI, i),
			PM25: at(h.PM25, i),
			PM10: at(h.PM10, i),
		}
	}
	return points
}

// FormatAirQualityHourly returns one point per hour of the current
// conditions' hourly series, limited to the first 24 hours.
func FormatAirQualityHourly(s *airquality.Snapshot) []Point {
	if s == nil || s.Hourly == nil {
		return []Point{}
	}

	h := s.Hourly
	n := min(h.Len(), MaxForecastPoints)

	points := make([]Point, n)
	for i := 0; i < n; i++ {
		points[i] = Point{
			Name: strconv.Itoa(h.Time[i].Hour()),
			AQI:  at(h.AQI, i),
			PM25: at(h.PM25, i),
			PM10: at(h.PM10, i),
		}
	}
	return points
}

// FormatPollen returns one point per forecast day named by its weekday
// abbreviation.
func FormatPollen(p *pollen.Forecast) []Point {
	if p == nil || p.Daily == nil {
		return []Point{}
	}

	d := p.Daily
	n := d.Len()

	points := make([]Point, n)
	for i := 0; i < n; i++ {
		points[i] = Point{
			Name:  d.Time[i].Weekday().String()[:3],
			Grass: at(d.Grass, i),
			Tree:  at(d.Tree, i),
			Weed:  at(d.Weed, i),
		}
	}
	return points
}

func at(values []float64, i int) *float64 {
	if i < 0 || i >= len(values) {
		return nil
	}
	v := values[i]
	return &v
}
