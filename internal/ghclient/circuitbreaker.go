package ghclient

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/ghsweep/ghsweep/internal/logging"
)

// breakerT is the concrete circuit breaker type this package wraps; the
// generic parameter is any because each family's round trip returns a
// different concrete response type threaded through breakerExecute.
type breakerT = gobreaker.CircuitBreaker[any]

// newBreaker builds a circuit breaker guarding the outbound round trip for
// one API family (rest/graphql). It trips after at least 10 requests with
// a failure ratio of 60% or more, stays open for two minutes, then allows
// a handful of half-open probes before fully closing again.
func newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("circuit breaker state change")
		},
	}
	return gobreaker.NewCircuitBreaker[any](settings)
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half_open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// breakerOpen reports whether err is the breaker's own rejection, as
// opposed to a failure surfaced by the wrapped call itself.
func breakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// breakerExecute runs fn through breaker, unwrapping the generic result
// back to *http.Response, specialized to the one concrete type this
// client ever threads through its breakers.
func breakerExecute(breaker *breakerT, fn func() (*http.Response, error)) (*http.Response, error) {
	result, err := breaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	resp, _ := result.(*http.Response)
	return resp, nil
}
