// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/metrics"
)

// BreakerName is the circuit breaker label used for the backend.
const BreakerName = "backend-api"

// NewBreaker builds a circuit breaker with the gateway's standard settings:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
//
// isSuccessful decides which errors count as failures; nil counts every error.
func NewBreaker[T any](name string, timeout time.Duration, isSuccessful func(error) bool) *gobreaker.CircuitBreaker[T] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:         name,
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      timeout,
		IsSuccessful: isSuccessful,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})
}

// CircuitBreakerClient wraps Client so that a failing backend is not hammered
// by every request while it recovers. Backend 4xx answers pass through without
// counting as failures.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[*Response]
	name   string
}

// NewCircuitBreakerClient wraps client with a 30 second open timeout.
func NewCircuitBreakerClient(client *Client) *CircuitBreakerClient {
	return &CircuitBreakerClient{
		client: client,
		cb:     NewBreaker[*Response](BreakerName, 30*time.Second, countsAsSuccess),
		name:   BreakerName,
	}
}

// countsAsSuccess keeps client errors and caller cancellations out of the
// failure ratio.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if be, ok := AsError(err); ok && be.IsClientError() {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// Do runs Client.Do behind the breaker. A rejected call returns an error
// wrapping ErrUnavailable.
func (cbc *CircuitBreakerClient) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := cbc.execute(func() (*Response, error) {
		return cbc.client.Do(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Ping verifies connectivity with circuit breaker protection.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (*Response, error) {
		return nil, cbc.client.Ping(ctx)
	})
	return err
}

// State returns "closed", "half-open" or "open".
func (cbc *CircuitBreakerClient) State() string {
	return stateToString(cbc.cb.State())
}

func (cbc *CircuitBreakerClient) execute(fn func() (*Response, error)) (*Response, error) {
	result, err := cbc.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Debug().Err(err).Str("breaker", cbc.name).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if countsAsSuccess(err) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// StateString exposes stateToString for other breaker owners.
func StateString(state gobreaker.State) string {
	return stateToString(state)
}
