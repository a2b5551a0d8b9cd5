package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(wd)

	require.NoError(t, InitLogger())
	require.NotNil(t, Logger)

	Logger.Infow("logger smoke test", "key", "value")
	Logger.Sync()

	assert.FileExists(t, filepath.Join("logs", "stork_verifier.log"))
}

func TestMaskAccount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"someone@example.com", "som***@***com"},
		{"abcdefg", "abc***@***efg"},
		{"short", "***"},
		{"", "***"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskAccount(tt.in))
	}
}
