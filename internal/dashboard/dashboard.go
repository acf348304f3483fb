// Package dashboard owns the per-view fetch operations of the environmental
// health dashboard, gates them by the selected tab and builds the view model.
package dashboard

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/envhealth/internal/airquality"
	"github.com/breatheroute/envhealth/internal/health"
	"github.com/breatheroute/envhealth/internal/pollen"
	"github.com/breatheroute/envhealth/internal/query"
	"github.com/breatheroute/envhealth/internal/upstream"
)

// Dashboard errors.
var (
	ErrUnknownTab      = errors.New("unknown tab")
	ErrSessionNotFound = errors.New("dashboard session not found")
)

// Tab is a dashboard view tab.
type Tab string

const (
	TabOverview        Tab = "overview"
	TabForecast        Tab = "forecast"
	TabRecommendations Tab = "recommendations"
	TabPollen          Tab = "pollen"
)

// AllTabs returns every tab in display order.
func AllTabs() []Tab {
	return []Tab{TabOverview, TabForecast, TabRecommendations, TabPollen}
}

// ParseTab validates a tab name. An empty name selects the overview.
func ParseTab(s string) (Tab, error) {
	if s == "" {
		return TabOverview, nil
	}
	for _, t := range AllTabs() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", ErrUnknownTab
}

// Domain returns the gated domain owned by the tab. The overview owns none;
// current air quality is always fetched.
func (t Tab) Domain() (upstream.Domain, bool) {
	switch t {
	case TabForecast:
		return upstream.DomainAQIForecast, true
	case TabRecommendations:
		return upstream.DomainRecommendations, true
	case TabPollen:
		return upstream.DomainPollen, true
	default:
		return "", false
	}
}

// Source fetches one domain per call. *upstream.Client implements it.
type Source interface {
	FetchAirQuality(ctx context.Context) (*airquality.Snapshot, error)
	FetchAQIForecast(ctx context.Context) (*airquality.Forecast, error)
	FetchRecommendations(ctx context.Context) (*health.Recommendations, error)
	FetchPollen(ctx context.Context) (*pollen.Forecast, error)
}

// Config holds configuration shared by all dashboards.
type Config struct {
	// Source is the upstream data source (required).
	Source Source

	// Logger for dashboard operations.
	Logger zerolog.Logger

	// Retries and RetryDelay are passed to every query.
	Retries    int
	RetryDelay time.Duration

	// Metrics records query attempts (optional).
	Metrics *query.Metrics

	// Sleep overrides the retry delay wait (optional, for tests).
	Sleep func(ctx context.Context, d time.Duration) error

	// Now returns the current time (optional).
	Now func() time.Time

	// Rand seeds placeholder data jitter (optional). A shared Rand must not be
	// used by concurrent New calls.
	Rand *rand.Rand
}

// Dashboard is one open dashboard view. It owns one query per domain; the
// air quality query is always enabled, the others follow the selected tab.
type Dashboard struct {
	id     string
	logger zerolog.Logger
	now    func() time.Time

	airQuality      *query.Query[*airquality.Snapshot]
	forecast        *query.Query[*airquality.Forecast]
	recommendations *query.Query[*health.Recommendations]
	pollen          *query.Query[*pollen.Forecast]

	// Placeholders are generated once so they stay stable across renders.
	fallbackAirQuality      *airquality.Snapshot
	fallbackForecast        *airquality.Forecast
	fallbackRecommendations *health.Recommendations
	fallbackPollen          *pollen.Forecast

	mu       sync.Mutex
	tab      Tab
	lastSeen time.Time
}

// New creates a dashboard on the overview tab and starts the air quality fetch.
func New(id string, cfg Config) *Dashboard {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // placeholder jitter
	}

	logger := cfg.Logger.With().Str("session_id", id).Logger()
	created := now()

	d := &Dashboard{
		id:                      id,
		logger:                  logger,
		now:                     now,
		fallbackAirQuality:      airquality.FallbackSnapshot(created, rng),
		fallbackForecast:        airquality.FallbackForecast(created, rng),
		fallbackRecommendations: health.FallbackRecommendations(created),
		fallbackPollen:          pollen.FallbackForecast(created),
		tab:                     TabOverview,
		lastSeen:                created,
	}

	d.airQuality = query.New(queryConfig(cfg, logger, upstream.DomainAirQuality, cfg.Source.FetchAirQuality, true))
	d.forecast = query.New(queryConfig(cfg, logger, upstream.DomainAQIForecast, cfg.Source.FetchAQIForecast, false))
	d.recommendations = query.New(queryConfig(cfg, logger, upstream.DomainRecommendations, cfg.Source.FetchRecommendations, false))
	d.pollen = query.New(queryConfig(cfg, logger, upstream.DomainPollen, cfg.Source.FetchPollen, false))

	return d
}

func queryConfig[T any](cfg Config, logger zerolog.Logger, d upstream.Domain, fetch query.Fetcher[T], enabled bool) query.Config[T] {
	return query.Config[T]{
		Name:       string(d),
		Fetch:      fetch,
		Enabled:    enabled,
		Retries:    cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		Metrics:    cfg.Metrics,
		Sleep:      cfg.Sleep,
		Now:        cfg.Now,
	}
}

// ID returns the session identifier.
func (d *Dashboard) ID() string {
	return d.id
}

// Tab returns the selected tab.
func (d *Dashboard) Tab() Tab {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tab
}

// SelectTab makes tab the active one. The owning tab's query is enabled and
// every other gated query is disabled.
func (d *Dashboard) SelectTab(tab Tab) {
	d.mu.Lock()
	changed := d.tab != tab
	d.tab = tab
	d.lastSeen = d.now()
	d.mu.Unlock()

	active, _ := tab.Domain()
	d.forecast.SetEnabled(active == upstream.DomainAQIForecast)
	d.recommendations.SetEnabled(active == upstream.DomainRecommendations)
	d.pollen.SetEnabled(active == upstream.DomainPollen)

	if changed {
		d.logger.Debug().Str("tab", string(tab)).Msg("tab selected")
	}
}

// Refetch re-triggers one domain. It fails with query.ErrDisabled when the
// domain's tab is not selected.
func (d *Dashboard) Refetch(domain upstream.Domain) error {
	switch domain {
	case upstream.DomainAirQuality:
		return d.airQuality.Refetch()
	case upstream.DomainAQIForecast:
		return d.forecast.Refetch()
	case upstream.DomainRecommendations:
		return d.recommendations.Refetch()
	case upstream.DomainPollen:
		return d.pollen.Refetch()
	default:
		return upstream.ErrUnknownDomain
	}
}

// Invalidate re-triggers the domain if it is enabled and reports whether a
// fetch was started.
func (d *Dashboard) Invalidate(domain upstream.Domain) bool {
	return d.Refetch(domain) == nil
}

// Wait blocks until every query has settled or ctx is done.
func (d *Dashboard) Wait(ctx context.Context) error {
	if _, err := d.airQuality.Wait(ctx); err != nil {
		return err
	}
	if _, err := d.forecast.Wait(ctx); err != nil {
		return err
	}
	if _, err := d.recommendations.Wait(ctx); err != nil {
		return err
	}
	_, err := d.pollen.Wait(ctx)
	return err
}

// LastSeen returns when the dashboard was last viewed.
func (d *Dashboard) LastSeen() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSeen
}

func (d *Dashboard) touch() {
	d.mu.Lock()
	d.lastSeen = d.now()
	d.mu.Unlock()
}

// Close stops every query and discards their snapshots.
func (d *Dashboard) Close() {
	d.airQuality.Close()
	d.forecast.Close()
	d.recommendations.Close()
	d.pollen.Close()
}
