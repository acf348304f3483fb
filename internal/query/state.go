// Package query runs one independently retried fetch operation per data domain
// and exposes its loading, error and data state to consumers.
package query

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned by query operations.
var (
	// ErrInvalidTransition is returned when an event is not allowed in the current status.
	ErrInvalidTransition = errors.New("invalid query state transition")

	// ErrDisabled is returned when a disabled query is asked to fetch.
	ErrDisabled = errors.New("query is disabled")

	// ErrClosed is returned when a closed query is asked to fetch.
	ErrClosed = errors.New("query is closed")
)

// Status is the lifecycle status of a query.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText encodes the status as its name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// event drives a status transition.
type event int

const (
	eventStart event = iota
	eventSucceed
	eventFail
	eventReset
)

func (e event) String() string {
	switch e {
	case eventStart:
		return "start"
	case eventSucceed:
		return "succeed"
	case eventFail:
		return "fail"
	case eventReset:
		return "reset"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// transitions is the complete state machine. Failed and Success are only left
// through an explicit start (re-activation or refetch). Reset abandons an
// in-flight cycle when the query is disabled.
var transitions = map[Status]map[event]Status{
	StatusIdle: {
		eventStart: StatusLoading,
	},
	StatusLoading: {
		eventSucceed: StatusSuccess,
		eventFail:    StatusFailed,
		eventReset:   StatusIdle,
	},
	StatusSuccess: {
		eventStart: StatusLoading,
	},
	StatusFailed: {
		eventStart: StatusLoading,
	},
}

// next returns the status reached from s by e.
func next(s Status, e event) (Status, error) {
	to, ok := transitions[s][e]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
	}
	return to, nil
}

// State is an immutable observation of a query.
type State[T any] struct {
	// Status is the lifecycle status.
	Status Status

	// Data is the last successful result. It is kept while a refetch is
	// loading and cleared when a cycle fails.
	Data T

	// HasData reports whether Data holds a result.
	HasData bool

	// Err is the last attempt's error of a failed cycle.
	Err error

	// Attempts is the number of attempts made in the current or last cycle.
	Attempts int

	// Enabled reports whether the query is allowed to fetch.
	Enabled bool

	// UpdatedAt is when the query last settled.
	UpdatedAt time.Time
}

// IsLoading reports whether a fetch cycle is in flight.
func (s State[T]) IsLoading() bool {
	return s.Status == StatusLoading
}

// IsError reports whether the last cycle exhausted its retries.
func (s State[T]) IsError() bool {
	return s.Status == StatusFailed
}

// Value returns the data and whether it is present.
func (s State[T]) Value() (T, bool) {
	return s.Data, s.HasData
}
