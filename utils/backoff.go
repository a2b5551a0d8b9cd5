package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Each network surface has its own retry budget. Delays double from the
// base with no jitter, so attempt n waits exactly base*2^n.
const (
	AuthAttempts   = 5
	SubmitAttempts = 3
	StatsAttempts  = 5
)

func newDoubling(base time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2.0
	b.RandomizationFactor = 0
	b.MaxInterval = base * 32
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// NewAuthBackoff paces authenticate/refresh calls against the identity
// provider: 30s, 60s, 120s, ...
func NewAuthBackoff() *backoff.ExponentialBackOff {
	return newDoubling(30 * time.Second)
}

// NewSubmitBackoff paces validation submissions: 1s, 2s, 4s.
func NewSubmitBackoff() *backoff.ExponentialBackOff {
	return newDoubling(1 * time.Second)
}

// NewStatsBackoff paces user-stats fetches: 3s, 6s, 12s, ...
func NewStatsBackoff() *backoff.ExponentialBackOff {
	return newDoubling(3 * time.Second)
}

// NewSupervisorBackoff restarts the outer run loop after unexpected
// termination. Never gives up.
func NewSupervisorBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 60 * time.Second
	b.MaxElapsedTime = 0
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.1
	b.Reset()
	return b
}

// Retry runs op up to attempts times, sleeping per b between failures.
// Wrap an error with backoff.Permanent to stop retrying immediately;
// context cancellation also stops the loop.
func Retry(ctx context.Context, b backoff.BackOff, attempts uint64, op func() error) error {
	capped := backoff.WithMaxRetries(b, attempts-1)
	return backoff.Retry(op, backoff.WithContext(capped, ctx))
}
