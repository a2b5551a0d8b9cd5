package faults

import (
	"context"
	"errors"
	"net"
	"net/url"
)

// Sentinel error kinds for the identity and oracle boundaries. Adapters
// classify provider errors into these once; the rest of the system only
// ever switches on them with errors.Is.
var (
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrConnection         = errors.New("connection issue")
	ErrAuth               = errors.New("authentication failed")
	ErrData               = errors.New("malformed provider data")
)

// Fatal reports whether err must propagate immediately instead of being
// retried: bad credentials, unknown user, bad parameters, or a rejected
// token.
func Fatal(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrAuth)
}

// Retryable reports whether err is a transient failure worth another
// backoff attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrConnection)
}

// IsConnection classifies transport-level failures (dial, reset, timeout)
// that carry no HTTP status.
func IsConnection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
