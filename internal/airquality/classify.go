package airquality

import (
	"math"
)

// MaxAQI is the top of the AQI scale used for gauge fills.
const MaxAQI = 500

// Tier is the ordinal of an AQI severity band, Good being the lowest.
type Tier int

const (
	TierGood Tier = iota
	TierModerate
	TierUnhealthySensitive
	TierUnhealthy
	TierVeryUnhealthy
	TierHazardous
)

// Category is the display classification of an AQI value.
type Category struct {
	Tier          Tier   `json:"tier"`
	Label         string `json:"label"`
	Color         string `json:"color"`
	ProgressColor string `json:"progressColor"`
}

var categories = [...]Category{
	TierGood:               {Tier: TierGood, Label: "Good", Color: "text-green-600", ProgressColor: "bg-green-500"},
	TierModerate:           {Tier: TierModerate, Label: "Moderate", Color: "text-yellow-600", ProgressColor: "bg-yellow-500"},
	TierUnhealthySensitive: {Tier: TierUnhealthySensitive, Label: "Unhealthy for Sensitive Groups", Color: "text-orange-600", ProgressColor: "bg-orange-500"},
	TierUnhealthy:          {Tier: TierUnhealthy, Label: "Unhealthy", Color: "text-red-600", ProgressColor: "bg-red-500"},
	TierVeryUnhealthy:      {Tier: TierVeryUnhealthy, Label: "Very Unhealthy", Color: "text-purple-600", ProgressColor: "bg-purple-500"},
	TierHazardous:          {Tier: TierHazardous, Label: "Hazardous", Color: "text-rose-900", ProgressColor: "bg-rose-900"},
}

// Classify maps an AQI value to its category. Upper bounds are inclusive and
// anything above 300 is Hazardous. NaN is treated as 0.
func Classify(aqi float64) Category {
	if math.IsNaN(aqi) {
		aqi = 0
	}

	switch {
	case aqi <= 50:
		return categories[TierGood]
	case aqi <= 100:
		return categories[TierModerate]
	case aqi <= 150:
		return categories[TierUnhealthySensitive]
	case aqi <= 200:
		return categories[TierUnhealthy]
	case aqi <= 300:
		return categories[TierVeryUnhealthy]
	default:
		return categories[TierHazardous]
	}
}

// ClampAQI rounds a wire AQI value to the nearest integer within [0, MaxAQI].
// NaN yields 0.
func ClampAQI(v float64) int {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= MaxAQI:
		return MaxAQI
	default:
		return int(math.Round(v))
	}
}

// Categories returns every category in ascending severity.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories[:])
	return out
}

// Percent returns the gauge fill for an AQI value in [0, 100].
func Percent(aqi float64) float64 {
	if math.IsNaN(aqi) || aqi <= 0 {
		return 0
	}
	p := aqi / MaxAQI * 100
	if p > 100 {
		return 100
	}
	return p
}
