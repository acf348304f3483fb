// Package worker runs background jobs that re-trigger dashboard fetches when
// upstream data changes.
package worker

import (
	"time"

	"github.com/breatheroute/envhealth/internal/upstream"
)

// Invalidator re-triggers a domain on every open dashboard where it is
// enabled and returns how many fetches were started.
type Invalidator interface {
	Invalidate(domain upstream.Domain) int
}

// RefreshConfig holds configuration for the periodic refresh job.
type RefreshConfig struct {
	// Interval between refresh runs. Zero disables periodic refresh.
	Interval time.Duration

	// Domains to invalidate on each run.
	// Default: every domain
	Domains []upstream.Domain
}

// DefaultRefreshConfig returns a 15 minute refresh of every domain.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval: 15 * time.Minute,
		Domains:  upstream.AllDomains(),
	}
}
