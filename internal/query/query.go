package query

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/breatheroute/envhealth/internal/query"

// Retry defaults.
const (
	DefaultRetries    = 3
	DefaultRetryDelay = 1000 * time.Millisecond
)

// Fetcher performs a single fetch attempt.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Config holds configuration for a query.
type Config[T any] struct {
	// Name identifies the query in logs, spans and metrics.
	Name string

	// Fetch performs one attempt (required).
	Fetch Fetcher[T]

	// Enabled starts the first cycle immediately when true.
	Enabled bool

	// Retries is the number of retries after the first failed attempt.
	// Default: 3. Use NoRetries to disable retrying.
	Retries int

	// RetryDelay is the fixed delay between attempts.
	// Default: 1 second
	RetryDelay time.Duration

	// Logger for query operations.
	Logger zerolog.Logger

	// Metrics records attempts and outcomes (optional).
	Metrics *Metrics

	// Sleep waits between attempts (optional, for tests).
	Sleep func(ctx context.Context, d time.Duration) error

	// Now returns the current time (optional).
	Now func() time.Time
}

// NoRetries disables retrying when used as Config.Retries.
const NoRetries = -1

// Query is one fetch operation with the status machine
// idle → loading → (success | failed).
//
// Attempts within a cycle are strictly sequential. Every cycle carries a
// generation number; results of a cycle that was superseded by a reset,
// a newer cycle or Close are discarded.
type Query[T any] struct {
	name       string
	fetch      Fetcher[T]
	retries    uint64
	retryDelay time.Duration
	logger     zerolog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time

	mu          sync.Mutex
	state       State[T]
	enabled     bool
	closed      bool
	generation  uint64
	cancelCycle context.CancelFunc
	settled     chan struct{}
}

// New creates a query. If cfg.Enabled is set the first cycle starts immediately.
func New[T any](cfg Config[T]) *Query[T] {
	retries := cfg.Retries
	switch {
	case retries == 0:
		retries = DefaultRetries
	case retries < 0:
		retries = 0
	}

	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = DefaultRetryDelay
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	settled := make(chan struct{})
	close(settled)

	q := &Query[T]{
		name:       cfg.Name,
		fetch:      cfg.Fetch,
		retries:    uint64(retries),
		retryDelay: retryDelay,
		logger:     cfg.Logger.With().Str("query", cfg.Name).Logger(),
		metrics:    cfg.Metrics,
		tracer:     otel.Tracer(tracerName),
		sleep:      sleep,
		now:        now,
		settled:    settled,
	}

	if cfg.Enabled {
		q.SetEnabled(true)
	}

	return q
}

// Name returns the query name.
func (q *Query[T]) Name() string {
	return q.name
}

// State returns the current observation.
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.state
	s.Enabled = q.enabled
	return s
}

// SetEnabled gates the query. Enabling starts a fresh cycle unless one is
// already in flight. Disabling abandons an in-flight cycle: the query
// returns to idle and a response arriving later is discarded.
func (q *Query[T]) SetEnabled(enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.enabled == enabled {
		return
	}
	q.enabled = enabled

	if enabled {
		if q.state.Status != StatusLoading {
			q.startLocked()
		}
		return
	}

	if q.state.Status == StatusLoading {
		q.resetLocked()
	}
}

// Refetch deliberately starts a new cycle. It is a no-op while a cycle is in
// flight and fails when the query is disabled or closed.
func (q *Query[T]) Refetch() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case q.closed:
		return ErrClosed
	case !q.enabled:
		return ErrDisabled
	case q.state.Status == StatusLoading:
		return nil
	}

	q.startLocked()
	return nil
}

// Wait blocks until no cycle is in flight or ctx is done, then returns the state.
func (q *Query[T]) Wait(ctx context.Context) (State[T], error) {
	q.mu.Lock()
	settled := q.settled
	q.mu.Unlock()

	select {
	case <-settled:
		return q.State(), nil
	case <-ctx.Done():
		return q.State(), ctx.Err()
	}
}

// Close stops the query for good, abandoning any in-flight cycle and
// discarding its data.
func (q *Query[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	if q.state.Status == StatusLoading {
		q.resetLocked()
	}
	q.closed = true
	q.enabled = false

	var zero T
	q.state.Data = zero
	q.state.HasData = false
}

func (q *Query[T]) startLocked() {
	to, err := next(q.state.Status, eventStart)
	if err != nil {
		q.logger.Error().Err(err).Msg("cannot start query")
		return
	}

	q.generation++
	ctx, cancel := context.WithCancel(context.Background())
	q.cancelCycle = cancel
	q.settled = make(chan struct{})
	q.state.Status = to
	q.state.Err = nil
	q.state.Attempts = 0

	go q.run(ctx, q.generation)
}

func (q *Query[T]) resetLocked() {
	to, err := next(q.state.Status, eventReset)
	if err != nil {
		q.logger.Error().Err(err).Msg("cannot reset query")
		return
	}

	q.generation++
	if q.cancelCycle != nil {
		q.cancelCycle()
		q.cancelCycle = nil
	}
	q.state.Status = to
	close(q.settled)

	q.logger.Debug().Msg("in-flight fetch abandoned")
}

// run executes one cycle: the first attempt plus up to q.retries retries
// separated by a fixed delay.
func (q *Query[T]) run(ctx context.Context, gen uint64) {
	ctx, span := q.tracer.Start(ctx, "query "+q.name,
		trace.WithAttributes(attribute.String("query.name", q.name)),
	)
	defer span.End()

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(q.retryDelay), q.retries),
		ctx,
	)
	bo.Reset()

	for attempt := 1; ; attempt++ {
		if !q.beginAttempt(gen, attempt) {
			return
		}
		span.AddEvent("attempt", trace.WithAttributes(attribute.Int("query.attempt", attempt)))

		start := time.Now()
		data, err := q.fetch(ctx)
		q.metrics.recordAttempt(q.name, time.Since(start), err)

		if err == nil {
			q.settle(gen, eventSucceed, data, nil)
			span.SetAttributes(attribute.Int("query.attempts", attempt))
			return
		}

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.Int("query.attempts", attempt))
			q.settle(gen, eventFail, data, err)
			return
		}

		q.logger.Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("fetch attempt failed, retrying")

		if err := q.sleep(ctx, delay); err != nil {
			// Cancelled by reset or Close; settle reports the discard.
			q.settle(gen, eventFail, data, err)
			return
		}
	}
}

// beginAttempt records an attempt and reports whether the cycle is still current.
func (q *Query[T]) beginAttempt(gen uint64, attempt int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if gen != q.generation {
		return false
	}
	q.state.Attempts = attempt
	return true
}

func (q *Query[T]) settle(gen uint64, ev event, data T, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if gen != q.generation {
		q.logger.Debug().
			Uint64("generation", gen).
			Msg("discarding result of superseded fetch")
		return
	}

	to, terr := next(q.state.Status, ev)
	if terr != nil {
		q.logger.Error().Err(terr).Msg("cannot settle query")
		return
	}

	q.state.Status = to
	q.state.UpdatedAt = q.now()
	if q.cancelCycle != nil {
		q.cancelCycle()
		q.cancelCycle = nil
	}

	switch ev {
	case eventSucceed:
		q.state.Data = data
		q.state.HasData = true
		q.state.Err = nil
		q.metrics.recordOutcome(q.name, StatusSuccess)
	case eventFail:
		var zero T
		q.state.Data = zero
		q.state.HasData = false
		q.state.Err = err
		q.metrics.recordOutcome(q.name, StatusFailed)
		q.logger.Warn().
			Err(err).
			Int("attempts", q.state.Attempts).
			Msg("fetch failed after retries, falling back")
	}

	close(q.settled)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
