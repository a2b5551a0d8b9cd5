package stork

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"stork_verifier/faults"
	"stork_verifier/models"
	"stork_verifier/monitoring"
	"stork_verifier/utils"
)

type profileEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type profileData struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	ReferralCode    string `json:"referral_code"`
	ReferralCodeAlt string `json:"referralCode"`

	Stats       *profileStats `json:"stats"`
	Validations []struct {
		Valid bool `json:"valid"`
	} `json:"validations"`
}

// profileStats carries both counter spellings the service has used.
type profileStats struct {
	Valid         int64  `json:"valid"`
	Invalid       int64  `json:"invalid"`
	LastCheck     string `json:"lastCheck"`
	Referrals     int64  `json:"referrals"`
	SignedValid   int64  `json:"stork_signed_prices_valid_count"`
	SignedInvalid int64  `json:"stork_signed_prices_invalid_count"`
	SignedLast    string `json:"stork_signed_prices_last_verified_at"`
	ReferralUsage int64  `json:"referral_usage_count"`
}

// FetchUserStats fetches the account profile with up to five attempts.
// Server errors and transport failures retry; a 401 is fatal, as is any
// other non-2xx. When every attempt fails, a zeroed stats object built
// from id-token claims is returned with a nil error so the display stays
// alive through stats-endpoint outages.
func (c *Client) FetchUserStats(ctx context.Context, bundle models.TokenBundle) (models.UserStats, error) {
	var stats models.UserStats

	op := func() error {
		req, err := c.newRequest(ctx, http.MethodGet, profilePath, bundle.AccessToken, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		start := time.Now()
		resp, err := c.httpClientFor(c.NextProxy()).Do(req)
		monitoring.RequestDuration.WithLabelValues("user_stats").Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("%w: fetching user stats: %v", faults.ErrConnection, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			parsed, perr := parseProfile(resp.Body)
			if perr != nil {
				return fmt.Errorf("%w: %v", faults.ErrData, perr)
			}
			stats = parsed
			return nil
		case resp.StatusCode == http.StatusUnauthorized:
			return backoff.Permanent(fmt.Errorf("%w: user stats returned 401", faults.ErrAuth))
		case resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("user stats returned %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("user stats returned %d: %s",
				resp.StatusCode, drainBody(resp.Body)))
		}
	}

	if err := utils.Retry(ctx, utils.NewStatsBackoff(), utils.StatsAttempts, op); err != nil {
		if faults.Fatal(err) {
			return models.UserStats{}, fmt.Errorf("fetch user stats: %w", err)
		}
		c.log.Warnw("User stats unavailable, using token-claim identity", "error", err)
		return statsFromClaims(bundle.IDToken), nil
	}

	backfillFromClaims(&stats, bundle.IDToken)
	return stats, nil
}

func parseProfile(body io.Reader) (models.UserStats, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return models.UserStats{}, fmt.Errorf("reading profile: %w", err)
	}

	// Some responses wrap the profile in "data", some do not.
	var envelope profileEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return models.UserStats{}, fmt.Errorf("decoding profile: %w", err)
	}
	if len(envelope.Data) > 0 {
		raw = envelope.Data
	}

	var data profileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return models.UserStats{}, fmt.Errorf("decoding profile data: %w", err)
	}

	stats := models.UserStats{
		Username:     data.Email,
		Email:        data.Email,
		UserID:       data.ID,
		ReferralCode: firstNonEmpty(data.ReferralCode, data.ReferralCodeAlt),
	}

	switch {
	case data.Stats != nil:
		s := data.Stats
		stats.ValidCount = firstNonZero(s.Valid, s.SignedValid)
		stats.InvalidCount = firstNonZero(s.Invalid, s.SignedInvalid)
		stats.Referrals = firstNonZero(s.Referrals, s.ReferralUsage)
		stats.LastVerified = firstNonEmpty(s.LastCheck, s.SignedLast)
	case len(data.Validations) > 0:
		for _, v := range data.Validations {
			if v.Valid {
				stats.ValidCount++
			} else {
				stats.InvalidCount++
			}
		}
	}
	return stats, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int64) int64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
