package tokens

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stork_verifier/models"
)

func TestStoreMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "tokens.json"), nil)
	assert.Empty(t, store.Load())
}

func TestStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := NewStore(path, nil)
	assert.Empty(t, store.Load())
}

func TestStoreSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store := NewStore(path, nil)

	bundle := models.TokenBundle{
		AccessToken:  "access",
		IDToken:      "id",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).UnixMilli(),
	}
	require.NoError(t, store.Save("a@example.com", bundle))

	got, ok := store.Get("a@example.com")
	require.True(t, ok)
	assert.Equal(t, bundle, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStoreSavePreservesOtherAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store := NewStore(path, nil)

	first := models.TokenBundle{AccessToken: "a1", IDToken: "i1", RefreshToken: "r1", ExpiresAt: 1}
	second := models.TokenBundle{AccessToken: "a2", IDToken: "i2", RefreshToken: "r2", ExpiresAt: 2}

	require.NoError(t, store.Save("first@example.com", first))
	require.NoError(t, store.Save("second@example.com", second))

	all := store.Load()
	assert.Len(t, all, 2)
	assert.Equal(t, first, all["first@example.com"])
	assert.Equal(t, second, all["second@example.com"])
}

func TestStoreSaveOverwritesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	store := NewStore(path, nil)
	bundle := models.TokenBundle{AccessToken: "a", IDToken: "i", RefreshToken: "r", ExpiresAt: 1}
	require.NoError(t, store.Save("a@example.com", bundle))

	got, ok := store.Get("a@example.com")
	require.True(t, ok)
	assert.Equal(t, bundle, got)
}
