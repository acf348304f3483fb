// Package upstream fetches the four dashboard data domains from the backend
// service and parses the responses at a single boundary.
package upstream

import (
	"errors"
)

// Errors returned by upstream fetches.
var (
	// ErrNetworkFailure covers transport errors, timeouts, 5xx responses and an open circuit.
	ErrNetworkFailure = errors.New("upstream network failure")

	// ErrShapeMismatch is returned when a response is present but lacks required fields.
	ErrShapeMismatch = errors.New("upstream response shape mismatch")

	// ErrUnknownDomain is returned when a domain name is not recognized.
	ErrUnknownDomain = errors.New("unknown data domain")
)

// Domain identifies one independently fetched data set.
type Domain string

const (
	DomainAirQuality      Domain = "air-quality"
	DomainAQIForecast     Domain = "air-quality-forecast"
	DomainRecommendations Domain = "recommendations"
	DomainPollen          Domain = "pollen"
)

// AllDomains returns every domain in fetch order.
func AllDomains() []Domain {
	return []Domain{DomainAirQuality, DomainAQIForecast, DomainRecommendations, DomainPollen}
}

// Path returns the backend endpoint path of the domain.
func (d Domain) Path() string {
	switch d {
	case DomainAirQuality:
		return "/api/weather/air-quality"
	case DomainAQIForecast:
		return "/api/weather/air-quality/forecast"
	case DomainRecommendations:
		return "/api/health/recommendations"
	case DomainPollen:
		return "/api/weather/pollen"
	default:
		return ""
	}
}

// ParseDomain validates a domain name.
func ParseDomain(s string) (Domain, error) {
	for _, d := range AllDomains() {
		if string(d) == s {
			return d, nil
		}
	}
	return "", ErrUnknownDomain
}
