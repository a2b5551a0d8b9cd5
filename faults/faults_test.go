package faults

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatal(t *testing.T) {
	assert.True(t, Fatal(ErrInvalidCredentials))
	assert.True(t, Fatal(ErrUserNotFound))
	assert.True(t, Fatal(ErrInvalidParameter))
	assert.True(t, Fatal(fmt.Errorf("authenticate: %w", ErrAuth)))

	assert.False(t, Fatal(ErrRateLimited))
	assert.False(t, Fatal(ErrConnection))
	assert.False(t, Fatal(errors.New("something else")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ErrRateLimited))
	assert.True(t, Retryable(fmt.Errorf("%w: validation throttled", ErrRateLimited)))
	assert.True(t, Retryable(ErrConnection))

	assert.False(t, Retryable(ErrAuth))
	assert.False(t, Retryable(ErrInvalidCredentials))
	assert.False(t, Retryable(errors.New("validation returned 400")))
	assert.False(t, Retryable(nil))
}

func TestIsConnection(t *testing.T) {
	assert.True(t, IsConnection(context.DeadlineExceeded))
	assert.True(t, IsConnection(&url.Error{Op: "Get", Err: errors.New("refused")}))

	assert.False(t, IsConnection(nil))
	assert.False(t, IsConnection(errors.New("plain")))
}
