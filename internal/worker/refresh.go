package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/envhealth/internal/upstream"
)

// RefreshJob periodically invalidates domains so open dashboards pick up
// fresh upstream data without a user action.
type RefreshJob struct {
	config      RefreshConfig
	invalidator Invalidator
	logger      zerolog.Logger
	now         func() time.Time

	mu      sync.RWMutex
	metrics RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	Runs            int64
	FetchesStarted  int64
	PerDomain       map[upstream.Domain]int64
	LastRefreshAt   time.Time
	LastRunDuration time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config      RefreshConfig
	Invalidator Invalidator
	Logger      zerolog.Logger
	Now         func() time.Time
}

// NewRefreshJob creates a refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Domains) == 0 {
		config.Domains = upstream.AllDomains()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &RefreshJob{
		config:      config,
		invalidator: cfg.Invalidator,
		logger:      cfg.Logger,
		now:         now,
		metrics: RefreshMetrics{
			PerDomain: make(map[upstream.Domain]int64),
		},
	}
}

// RefreshResult is the outcome of one refresh run.
type RefreshResult struct {
	StartTime time.Time
	Duration  time.Duration

	// Started is the number of fetches started per domain.
	Started map[upstream.Domain]int
}

// Total returns the number of fetches started across domains.
func (r *RefreshResult) Total() int {
	total := 0
	for _, n := range r.Started {
		total += n
	}
	return total
}

// Run invalidates every configured domain once.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	start := j.now()
	result := &RefreshResult{
		StartTime: start,
		Started:   make(map[upstream.Domain]int, len(j.config.Domains)),
	}

	for _, d := range j.config.Domains {
		if ctx.Err() != nil {
			break
		}
		result.Started[d] = j.invalidator.Invalidate(d)
	}
	result.Duration = j.now().Sub(start)

	j.updateMetrics(result)

	j.logger.Debug().
		Int("fetches_started", result.Total()).
		Dur("duration", result.Duration).
		Msg("refresh run completed")

	return result
}

// Start runs the job every configured interval until ctx is done. It returns
// immediately when the interval is zero.
func (j *RefreshJob) Start(ctx context.Context) {
	if j.config.Interval <= 0 {
		j.logger.Info().Msg("periodic refresh disabled")
		return
	}

	j.logger.Info().
		Dur("interval", j.config.Interval).
		Int("domains", len(j.config.Domains)).
		Msg("starting periodic refresh")

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.metrics.Runs++
	for d, n := range result.Started {
		j.metrics.FetchesStarted += int64(n)
		j.metrics.PerDomain[d] += int64(n)
	}
	j.metrics.LastRefreshAt = result.StartTime
	j.metrics.LastRunDuration = result.Duration
}

// GetMetrics returns a snapshot of the job statistics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.mu.RLock()
	defer j.mu.RUnlock()

	m := j.metrics
	m.PerDomain = make(map[upstream.Domain]int64, len(j.metrics.PerDomain))
	for d, n := range j.metrics.PerDomain {
		m.PerDomain[d] = n
	}
	return m
}
