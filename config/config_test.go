package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ap-northeast-1", cfg.Cognito.Region)
	assert.Equal(t, 300, cfg.Stork.IntervalSeconds)
	assert.Equal(t, 1, cfg.Threads.MaxWorkers)
	assert.FileExists(t, path)
}

func TestLoadOverlaysConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"cognito": {"region": "us-east-1"},
		"stork": {"intervalSeconds": 60},
		"threads": {"maxWorkers": 4}
	}`), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.Cognito.Region)
	// Keys the file omits keep their defaults.
	assert.Equal(t, "5msns4n49hmg3dftp2tp1t2iuh", cfg.Cognito.ClientID)
	assert.Equal(t, 60, cfg.Stork.IntervalSeconds)
	assert.Equal(t, 4, cfg.Threads.MaxWorkers)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "config.json"))
	t.Setenv("STORK_API_URL", "http://localhost:9999")
	t.Setenv("CLICKHOUSE_HOST", "ch.internal")
	t.Setenv("TOKENS_PATH", "/var/lib/stork/tokens.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999", cfg.Oracle.BaseURL)
	assert.Equal(t, "ch.internal", cfg.ClickHouse.Host)
	assert.Equal(t, "/var/lib/stork/tokens.json", cfg.Paths.Tokens)
}

func TestLoadRejectsCorruptConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAccountsWritesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")

	accounts, err := LoadAccounts(path)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "YOUR_EMAIL")
}

func TestLoadAccountsFiltersPlaceholders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"username": "YOUR_EMAIL", "password": "YOUR_PASSWORD"},
		{"username": "real@example.com", "password": "secret"},
		{"username": "", "password": "x"}
	]`), 0o600))

	accounts, err := LoadAccounts(path)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "real@example.com", accounts[0].Username)
}

func TestLoadProxiesCreatesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")

	proxies, err := LoadProxies(path)
	require.NoError(t, err)
	assert.Empty(t, proxies)
	assert.FileExists(t, path)
}

func TestLoadProxiesSkipsCommentsAndBlanks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	require.NoError(t, os.WriteFile(path, []byte(`# pool a
http://p1:8080

http://p2:8080
  # indented comment
http://p3:8080
`), 0o600))

	proxies, err := LoadProxies(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"http://p1:8080", "http://p2:8080", "http://p3:8080"}, proxies)
}
