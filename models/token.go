package models

import "time"

// TokenBundle is the full set of credentials issued for one account.
// ExpiresAt is always an absolute unix-millisecond timestamp; the bundle
// is replaced as a whole on every authenticate or refresh, never field
// by field. JSON keys match the tokens.json layout on disk.
type TokenBundle struct {
	AccessToken  string `json:"accessToken"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"` // milliseconds, informational
	ExpiresAt    int64  `json:"expiresAt"`           // unix milliseconds
	IssuedAt     int64  `json:"issuedAt,omitempty"`  // unix milliseconds
}

// Complete reports whether the bundle carries all three tokens and an
// expiry, the minimum needed to be usable after a restart.
func (b TokenBundle) Complete() bool {
	return b.AccessToken != "" && b.IDToken != "" && b.RefreshToken != "" && b.ExpiresAt > 0
}

// Expired reports whether the bundle's expiry is at or before now.
func (b TokenBundle) Expired(now time.Time) bool {
	return b.ExpiresAt <= 0 || b.ExpiresAt <= now.UnixMilli()
}

// TimeUntilExpiry returns the remaining lifetime, negative when expired.
func (b TokenBundle) TimeUntilExpiry(now time.Time) time.Duration {
	return time.Duration(b.ExpiresAt-now.UnixMilli()) * time.Millisecond
}

// AccountCredential is one configured account. Immutable input.
type AccountCredential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
