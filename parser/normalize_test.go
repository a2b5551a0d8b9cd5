package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"scaled integer", "123400000000000000", "0.12340000"},
		{"full unit", "1000000000000000000", "1.00000000"},
		{"large price", "65432100000000000000000", "65432.10000000"},
		{"already decimal", "0.1234", "0.1234"},
		{"plain string passthrough", "not-a-number", "not-a-number"},
		{"empty", "", ""},
		{"zero", "0", "0.00000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePrice(tt.raw))
		})
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int64
	}{
		{"seconds unchanged", "1700000000", 1700000000},
		{"milliseconds reduced", "1700000000123", 1700000000},
		{"microseconds reduced", "1700000000123456", 1700000000},
		{"nanoseconds reduced", "1700000000123456789", 1700000000},
		{"0x hex", "0x6553f100", 1700000000},
		{"bare hex", "6553f1zz", 0}, // falls through every parse
		{"float seconds", "1700000000.5", 1700000000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTimestamp(tt.raw)
			if tt.want == 0 {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Unix())
		})
	}
}

func TestNormalizeTimestampBareHex(t *testing.T) {
	// Not valid decimal, but valid hex without the 0x prefix.
	got, err := NormalizeTimestamp("6553f100")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), got.Unix())
}

func TestNormalizeTimestampHexNanoseconds(t *testing.T) {
	got, err := NormalizeTimestamp("0x17979cfe3d85ca00")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000000, 0).Unix(), got.Unix())
}
