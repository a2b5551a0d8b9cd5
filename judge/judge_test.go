package judge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stork_verifier/models"
)

func obsAt(t time.Time) models.PriceObservation {
	return models.PriceObservation{
		Asset:      "BTCUSD",
		MsgHash:    "0xabc",
		Price:      "65432.10000000",
		ObservedAt: t,
	}
}

func TestFresh(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		obs  models.PriceObservation
		want bool
	}{
		{"current", obsAt(now), true},
		{"just inside window", obsAt(now.Add(-299 * time.Second)), true},
		{"exactly at boundary", obsAt(now.Add(-MaxAge)), true},
		{"just outside window", obsAt(now.Add(-MaxAge - time.Second)), false},
		{"future within window", obsAt(now.Add(MaxAge)), true},
		{"future outside window", obsAt(now.Add(MaxAge + time.Second)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fresh(now, tt.obs))
		})
	}
}

func TestFreshMissingFields(t *testing.T) {
	now := time.Now()

	missingHash := obsAt(now)
	missingHash.MsgHash = ""
	assert.False(t, Fresh(now, missingHash))

	missingPrice := obsAt(now)
	missingPrice.Price = ""
	assert.False(t, Fresh(now, missingPrice))

	missingTime := obsAt(now)
	missingTime.ObservedAt = time.Time{}
	assert.False(t, Fresh(now, missingTime))
}
