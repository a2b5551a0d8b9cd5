// Package cognito is the identity-provider boundary. It wraps the AWS
// Cognito user-pool API and maps its typed exceptions onto the faults
// taxonomy, so callers never inspect provider error text.
package cognito

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"stork_verifier/faults"
	"stork_verifier/models"
	"stork_verifier/utils"
)

// fallbackExpiry is assumed when the provider omits ExpiresIn.
const fallbackExpiry = 3600 * time.Second

type Client struct {
	api      *cip.Client
	clientID string
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewClient builds a client for one user pool. The pool has no app
// secret, so calls are unauthenticated apart from the client id.
func NewClient(ctx context.Context, region, clientID string, log *zap.SugaredLogger) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		api:      cip.NewFromConfig(awsCfg),
		clientID: clientID,
		log:      log,
		now:      time.Now,
	}, nil
}

// Authenticate performs a full username/password login. Transient
// failures (throttling, connection trouble) are retried with doubling
// backoff; fatal classifications propagate immediately.
func (c *Client) Authenticate(ctx context.Context, username, password string) (models.TokenBundle, error) {
	c.log.Infow("Authenticating account", "account", utils.MaskAccount(username))

	input := &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	}

	bundle, err := c.initiateWithRetry(ctx, input, "")
	if err != nil {
		return models.TokenBundle{}, fmt.Errorf("authenticate %s: %w", utils.MaskAccount(username), err)
	}
	if !bundle.Complete() {
		return models.TokenBundle{}, fmt.Errorf("%w: provider returned an incomplete token set", faults.ErrData)
	}
	return bundle, nil
}

// Refresh exchanges a refresh token for a new access/id token pair. The
// provider does not rotate the refresh token; the stored one is carried
// forward in the returned bundle.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (models.TokenBundle, error) {
	c.log.Infow("Refreshing session")

	input := &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
	}

	bundle, err := c.initiateWithRetry(ctx, input, refreshToken)
	if err != nil {
		return models.TokenBundle{}, fmt.Errorf("refresh session: %w", err)
	}
	if bundle.AccessToken == "" || bundle.IDToken == "" {
		return models.TokenBundle{}, fmt.Errorf("%w: refresh returned an incomplete token set", faults.ErrData)
	}
	return bundle, nil
}

func (c *Client) initiateWithRetry(ctx context.Context, input *cip.InitiateAuthInput, refreshToken string) (models.TokenBundle, error) {
	var bundle models.TokenBundle
	attempt := 0

	op := func() error {
		attempt++
		out, err := c.api.InitiateAuth(ctx, input)
		if err != nil {
			err = Classify(err)
			c.log.Warnw("Identity call failed",
				"attempt", attempt,
				"error", err,
			)
			if faults.Fatal(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		if out.AuthenticationResult == nil {
			return backoff.Permanent(fmt.Errorf("%w: no authentication result (challenge required?)", faults.ErrData))
		}
		bundle = c.bundleFrom(out.AuthenticationResult, refreshToken)
		return nil
	}

	if err := utils.Retry(ctx, utils.NewAuthBackoff(), utils.AuthAttempts, op); err != nil {
		return models.TokenBundle{}, err
	}
	return bundle, nil
}

func (c *Client) bundleFrom(res *types.AuthenticationResultType, refreshToken string) models.TokenBundle {
	expires := fallbackExpiry
	if res.ExpiresIn > 0 {
		expires = time.Duration(res.ExpiresIn) * time.Second
	}
	now := c.now()

	b := models.TokenBundle{
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		ExpiresIn:    expires.Milliseconds(),
		ExpiresAt:    now.Add(expires).UnixMilli(),
		IssuedAt:     now.UnixMilli(),
	}
	if b.RefreshToken == "" {
		b.RefreshToken = refreshToken
	}
	return b
}

// Classify maps a Cognito API error onto the faults taxonomy. Unknown
// errors pass through unchanged.
func Classify(err error) error {
	var (
		tooMany  *types.TooManyRequestsException
		limit    *types.LimitExceededException
		notAuth  *types.NotAuthorizedException
		notFound *types.UserNotFoundException
		badParam *types.InvalidParameterException
	)
	switch {
	case errors.As(err, &tooMany), errors.As(err, &limit):
		return fmt.Errorf("%w: %v", faults.ErrRateLimited, err)
	case errors.As(err, &notAuth):
		return fmt.Errorf("%w: %v", faults.ErrInvalidCredentials, err)
	case errors.As(err, &notFound):
		return fmt.Errorf("%w: %v", faults.ErrUserNotFound, err)
	case errors.As(err, &badParam):
		return fmt.Errorf("%w: %v", faults.ErrInvalidParameter, err)
	case faults.IsConnection(err):
		return fmt.Errorf("%w: %v", faults.ErrConnection, err)
	default:
		return err
	}
}
