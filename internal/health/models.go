// Package health provides health recommendations and the user health profile
// used to personalize the dashboard.
//
// A Profile is never looked up from ambient state. Callers build one per
// request and pass it to Personalize explicitly.
package health

import (
	"time"
)

// TemperatureAdvice carries the current temperature and related recommendations.
type TemperatureAdvice struct {
	Current         float64  `json:"current"`
	FeelsLike       float64  `json:"feelsLike"`
	Recommendations []string `json:"recommendations"`
}

// UVAdvice carries the current UV index and related recommendations.
type UVAdvice struct {
	Index           float64  `json:"index"`
	Level           UVLevel  `json:"level"`
	Recommendations []string `json:"recommendations"`
}

// AirQualityAdvice carries the current AQI and related recommendations.
type AirQualityAdvice struct {
	AQI             int      `json:"aqi"`
	Category        string   `json:"category"`
	Recommendations []string `json:"recommendations"`
}

// Recommendations is the health recommendations snapshot.
type Recommendations struct {
	Temperature TemperatureAdvice `json:"temperature"`
	UV          UVAdvice          `json:"uv"`
	AirQuality  AirQualityAdvice  `json:"airQuality"`
	FetchedAt   time.Time         `json:"fetchedAt"`
}

// UVLevel is the WHO UV index band.
type UVLevel string

const (
	UVLow      UVLevel = "Low"
	UVModerate UVLevel = "Moderate"
	UVHigh     UVLevel = "High"
	UVVeryHigh UVLevel = "Very High"
	UVExtreme  UVLevel = "Extreme"
)

// UVLevelFromIndex converts a UV index to its band.
func UVLevelFromIndex(index float64) UVLevel {
	switch {
	case index < 3:
		return UVLow
	case index < 6:
		return UVModerate
	case index < 8:
		return UVHigh
	case index < 11:
		return UVVeryHigh
	default:
		return UVExtreme
	}
}

// FallbackRecommendations returns static recommendations with the same shape as live data.
func FallbackRecommendations(now time.Time) *Recommendations {
	return &Recommendations{
		Temperature: TemperatureAdvice{
			Current:   22,
			FeelsLike: 23,
			Recommendations: []string{
				"Comfortable temperature for outdoor activities",
				"Stay hydrated throughout the day",
			},
		},
		UV: UVAdvice{
			Index: 5,
			Level: UVModerate,
			Recommendations: []string{
				"Wear sunglasses on bright days",
				"Use SPF 30+ sunscreen if outside for extended periods",
			},
		},
		AirQuality: AirQualityAdvice{
			AQI:      85,
			Category: "Moderate",
			Recommendations: []string{
				"Unusually sensitive people should consider reducing prolonged outdoor exertion",
				"Keep windows closed during peak traffic hours",
			},
		},
		FetchedAt: now,
	}
}
