package query

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/breatheroute/envhealth/internal/query"

// Metrics holds the OpenTelemetry instruments shared by all queries.
// A nil *Metrics records nothing.
type Metrics struct {
	attemptDuration metric.Float64Histogram
	attemptTotal    metric.Int64Counter
	outcomeTotal    metric.Int64Counter
}

// NewMetrics creates query metrics on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	attemptDuration, err := meter.Float64Histogram(
		"query.attempt.duration",
		metric.WithDescription("Duration of upstream fetch attempts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	attemptTotal, err := meter.Int64Counter(
		"query.attempt.total",
		metric.WithDescription("Total number of upstream fetch attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	outcomeTotal, err := meter.Int64Counter(
		"query.outcome.total",
		metric.WithDescription("Number of settled fetch cycles by outcome"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		attemptDuration: attemptDuration,
		attemptTotal:    attemptTotal,
		outcomeTotal:    outcomeTotal,
	}, nil
}

func (m *Metrics) recordAttempt(name string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("query.name", name),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Background context: the cycle context may already be cancelled.
	ctx := context.Background()
	m.attemptDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.attemptTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) recordOutcome(name string, status Status) {
	if m == nil {
		return
	}
	m.outcomeTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("query.name", name),
		attribute.String("query.status", status.String()),
	))
}
