package stork

import (
	"github.com/golang-jwt/jwt/v5"

	"stork_verifier/models"
)

// identityClaims decodes the id token's claims segment without verifying
// the signature; we only mine it for display identity, never for trust.
func identityClaims(idToken string) (userID, referralCode, email string) {
	if idToken == "" {
		return "", "", ""
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return "", "", ""
	}

	if sub, err := claims.GetSubject(); err == nil {
		userID = sub
	}
	for _, key := range []string{"custom:referral_code", "referral_code", "referralCode"} {
		if v, ok := claims[key].(string); ok && v != "" {
			referralCode = v
			break
		}
	}
	if v, ok := claims["email"].(string); ok {
		email = v
	}
	return userID, referralCode, email
}

// backfillFromClaims fills identity fields the stats endpoint omitted.
func backfillFromClaims(stats *models.UserStats, idToken string) {
	if stats.UserID != "" && stats.ReferralCode != "" && stats.Email != "" {
		return
	}
	userID, referralCode, email := identityClaims(idToken)
	if stats.UserID == "" {
		stats.UserID = userID
	}
	if stats.ReferralCode == "" {
		stats.ReferralCode = referralCode
	}
	if stats.Email == "" {
		stats.Email = email
	}
	if stats.Username == "" {
		stats.Username = stats.Email
	}
}

// statsFromClaims is the zeroed-counter fallback when the stats endpoint
// is unreachable.
func statsFromClaims(idToken string) models.UserStats {
	userID, referralCode, email := identityClaims(idToken)
	return models.UserStats{
		Username:     email,
		Email:        email,
		UserID:       userID,
		ReferralCode: referralCode,
	}
}
