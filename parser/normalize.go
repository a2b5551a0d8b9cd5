package parser

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The oracle publishes prices as 1e18 fixed-point integers.
var priceScale = decimal.New(1, 18)

// NormalizePrice converts a fixed-point integer price to a decimal string
// with eight places. Values that do not parse as integers are passed
// through unchanged (some feeds already publish plain decimals).
func NormalizePrice(raw string) string {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return raw
	}
	return decimal.NewFromBigInt(v, 0).Div(priceScale).StringFixed(8)
}

// NormalizeTimestamp parses a provider timestamp in any of its observed
// shapes (hex string, optionally 0x-prefixed; decimal integer; float) and
// reduces nanosecond, microsecond, or millisecond magnitudes to seconds
// by decimal digit count before converting to a time.Time.
func NormalizeTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	var ts int64
	if v, err := parseHexOrInt(s); err == nil {
		ts = v
	} else if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
		ts = int64(f)
	} else {
		return time.Time{}, fmt.Errorf("unparseable timestamp %q: %w", raw, err)
	}

	ts = reduceToSeconds(ts)
	if ts <= 0 {
		return time.Time{}, fmt.Errorf("non-positive timestamp %q", raw)
	}
	return time.Unix(ts, 0), nil
}

func parseHexOrInt(s string) (int64, error) {
	if h, ok := strings.CutPrefix(s, "0x"); ok {
		return strconv.ParseInt(h, 16, 64)
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	// Bare hex without the prefix still shows up in some payloads.
	return strconv.ParseInt(s, 16, 64)
}

func reduceToSeconds(ts int64) int64 {
	digits := len(strconv.FormatInt(ts, 10))
	switch {
	case digits > 16: // nanoseconds
		return ts / 1_000_000_000
	case digits > 13: // microseconds
		return ts / 1_000_000
	case digits > 10: // milliseconds
		return ts / 1_000
	default:
		return ts
	}
}
