package middleware

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"stork_verifier/utils"
)

var (
	circuitBreaker *gobreaker.CircuitBreaker
	once           sync.Once
)

func breaker() *gobreaker.CircuitBreaker {
	once.Do(func() {
		circuitBreaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "history-sink-breaker",
			MaxRequests: 3,
			Interval:    10 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				if utils.Logger != nil {
					utils.Logger.Infow("Circuit breaker state changed",
						"breaker", name,
						"from", from.String(),
						"to", to.String())
				}
			},
		})
	})
	return circuitBreaker
}

// WithCircuitBreaker shields the history sink: once writes keep
// failing, further attempts short-circuit until the cool-off elapses.
func WithCircuitBreaker(ctx context.Context, operation string, fn func() error) error {
	_, err := breaker().Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// Recover runs fn and converts a panic into a returned error signal via
// onPanic, so one bad sweep never takes the process down.
func Recover(fn func(), onPanic func(recovered interface{})) {
	defer func() {
		if r := recover(); r != nil {
			if utils.Logger != nil {
				utils.Logger.Errorw("Panic recovered",
					"error", r,
					"stack", string(debug.Stack()))
			}
			if onPanic != nil {
				onPanic(r)
			}
		}
	}()
	fn()
}
