// Package judge decides whether a price observation is fresh enough to
// be validated. Pure; no network or state access.
package judge

import (
	"time"

	"stork_verifier/models"
)

// MaxAge is the freshness window. An observation exactly this old is
// still valid.
const MaxAge = 300 * time.Second

// Fresh reports whether obs should be judged valid at the given instant:
// all of msg hash, price, and timestamp must be present, and the
// observation must be within MaxAge of now in either direction.
func Fresh(now time.Time, obs models.PriceObservation) bool {
	if obs.MsgHash == "" || obs.Price == "" || obs.ObservedAt.IsZero() {
		return false
	}
	age := now.Sub(obs.ObservedAt)
	if age < 0 {
		age = -age
	}
	return age <= MaxAge
}
