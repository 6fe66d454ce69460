package telemetry

import (
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"fleetmonitor-tui/internal/logging"
)

// newBreaker trips after a run of transport failures so a dead backend fails
// fast instead of stacking timeouts on every poll tick. It never retries.
// Auth and validation failures do not count against the backend.
func newBreaker(name string, consecutiveFailures uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker[[]byte] {
	if consecutiveFailures == 0 {
		consecutiveFailures = 5
	}
	if openTimeout <= 0 {
		openTimeout = 15 * time.Second
	}
	gatewayBreakerState.Set(0)
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrAuth) || errors.Is(err, ErrValidation)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Gateway breaker state transition")
			gatewayBreakerState.Set(breakerStateValue(to))
		},
	})
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// breakerError maps breaker rejections onto the network kind.
func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return err
}
