package cognito

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/assert"

	"stork_verifier/faults"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"too many requests", &types.TooManyRequestsException{}, faults.ErrRateLimited},
		{"limit exceeded", &types.LimitExceededException{}, faults.ErrRateLimited},
		{"not authorized", &types.NotAuthorizedException{}, faults.ErrInvalidCredentials},
		{"user not found", &types.UserNotFoundException{}, faults.ErrUserNotFound},
		{"invalid parameter", &types.InvalidParameterException{}, faults.ErrInvalidParameter},
		{"url error", &url.Error{Op: "Post", Err: errors.New("connection refused")}, faults.ErrConnection},
		{"deadline", context.DeadlineExceeded, faults.ErrConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Classify(tt.err), tt.want)
		})
	}
}

func TestClassifyWrapped(t *testing.T) {
	// SDK errors usually arrive wrapped in operation errors.
	err := fmt.Errorf("operation InitiateAuth: %w", &types.NotAuthorizedException{})
	assert.ErrorIs(t, Classify(err), faults.ErrInvalidCredentials)
}

func TestClassifyUnknownPassthrough(t *testing.T) {
	err := errors.New("something else")
	assert.Same(t, err, Classify(err))
}
