package models

// UserStats is the per-account profile and rolling counters shown on the
// display panel. Identity fields fall back to id-token claims when the
// stats endpoint omits them.
type UserStats struct {
	Username     string
	Email        string
	UserID       string
	ReferralCode string

	ValidCount   int64
	InvalidCount int64
	Referrals    int64
	LastVerified string
}
