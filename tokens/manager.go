package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stork_verifier/faults"
	"stork_verifier/metrics"
	"stork_verifier/models"
	"stork_verifier/utils"
)

// IdentityClient is the authenticate/refresh capability of the identity
// provider. Errors are expected to already carry faults classification.
type IdentityClient interface {
	Authenticate(ctx context.Context, username, password string) (models.TokenBundle, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenBundle, error)
}

const (
	// Remaining lifetime above which a token is never refreshed.
	refreshSkipWindow = 2 * time.Hour
	// Remaining lifetime below which a refresh is due outright.
	refreshSoftWindow = 30 * time.Minute
	// Minimum spacing between refreshes inside the soft window.
	refreshMinInterval = 4 * time.Hour
	// Minimum spacing between refresh attempts near expiry.
	refreshDebounce = 30 * time.Minute

	// Degraded continuation: when the provider throttles a refresh and
	// the cached token has under staleFloor left, its recorded expiry is
	// pushed out by staleExtension so we stop hammering the provider.
	// Policy decision, kept hardcoded; the token itself is unchanged.
	staleFloor     = 10 * time.Minute
	staleExtension = 30 * time.Minute
)

// Manager owns one account's token bundle. It is the bundle's only
// writer; the bundle is replaced as a whole, never partially updated.
type Manager struct {
	account  models.AccountCredential
	identity IdentityClient
	store    *Store
	log      *zap.SugaredLogger
	now      func() time.Time

	bundle      models.TokenBundle
	lastAttempt time.Time
}

func NewManager(account models.AccountCredential, identity IdentityClient, store *Store, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := &Manager{
		account:  account,
		identity: identity,
		store:    store,
		log:      log.With("account", utils.MaskAccount(account.Username)),
		now:      time.Now,
	}
	if store != nil {
		if stored, ok := store.Get(account.Username); ok && stored.Complete() {
			m.bundle = stored
			m.log.Infow("Loaded stored token bundle",
				"expires_in_min", int(stored.TimeUntilExpiry(m.now()).Minutes()))
		}
	}
	return m
}

// IDToken returns the current identity token; empty before first auth.
func (m *Manager) IDToken() string { return m.bundle.IDToken }

// Bundle returns a copy of the current token bundle.
func (m *Manager) Bundle() models.TokenBundle { return m.bundle }

// NeedsRefresh is the pure refresh-need decision over the cached bundle,
// the wall clock, and the last refresh attempt time.
func NeedsRefresh(now time.Time, b models.TokenBundle, lastAttempt time.Time) bool {
	if b.AccessToken == "" {
		return true
	}
	if b.Expired(now) {
		return true
	}
	remaining := b.TimeUntilExpiry(now)
	if remaining > refreshSkipWindow {
		return false
	}
	if remaining > refreshSoftWindow {
		return lastAttempt.IsZero() || now.Sub(lastAttempt) >= refreshMinInterval
	}
	// Near expiry: refresh, unless an attempt already ran recently.
	return lastAttempt.IsZero() || now.Sub(lastAttempt) >= refreshDebounce
}

// GetValidToken returns an access token usable right now, refreshing or
// re-authenticating first when due. When the provider throttles (or
// rejects parameters) and a cached token still exists, the stale token
// is served instead of failing the caller.
func (m *Manager) GetValidToken(ctx context.Context) (string, error) {
	if !NeedsRefresh(m.now(), m.bundle, m.lastAttempt) {
		return m.bundle.AccessToken, nil
	}

	if err := m.refreshOrAuthenticate(ctx); err != nil {
		if m.bundle.AccessToken != "" &&
			(errors.Is(err, faults.ErrRateLimited) || errors.Is(err, faults.ErrInvalidParameter)) {
			m.degradeToStale(err)
			return m.bundle.AccessToken, nil
		}
		return "", err
	}
	return m.bundle.AccessToken, nil
}

func (m *Manager) degradeToStale(cause error) {
	now := m.now()
	m.log.Warnw("Provider refused refresh, continuing on cached token", "cause", cause)
	if m.bundle.TimeUntilExpiry(now) < staleFloor {
		m.bundle.ExpiresAt = now.Add(staleExtension).UnixMilli()
		m.log.Infow("Extended recorded token expiry to suppress refresh attempts",
			"extension_min", int(staleExtension.Minutes()))
	}
}

// refreshOrAuthenticate prefers the stored refresh token and falls back
// to a full login, except on rate limiting, where the attempt is
// abandoned entirely so the caller keeps its current token.
func (m *Manager) refreshOrAuthenticate(ctx context.Context) error {
	m.lastAttempt = m.now()

	var (
		fresh models.TokenBundle
		err   error
	)
	if m.bundle.RefreshToken != "" {
		fresh, err = m.identity.Refresh(ctx, m.bundle.RefreshToken)
		if err != nil {
			if errors.Is(err, faults.ErrRateLimited) {
				return err
			}
			m.log.Warnw("Refresh failed, re-authenticating", "error", err)
			fresh, err = m.identity.Authenticate(ctx, m.account.Username, m.account.Password)
		}
	} else {
		fresh, err = m.identity.Authenticate(ctx, m.account.Username, m.account.Password)
	}
	if err != nil {
		return fmt.Errorf("token refresh/authenticate: %w", err)
	}

	m.bundle = fresh
	m.lastAttempt = m.now()
	metrics.RecordRefresh()
	m.log.Infow("Token bundle replaced",
		"expires_in_min", int(fresh.TimeUntilExpiry(m.now()).Minutes()))

	if m.store != nil {
		if serr := m.store.Save(m.account.Username, fresh); serr != nil {
			m.log.Errorw("Persisting token bundle failed", "error", serr)
		}
	}
	return nil
}
