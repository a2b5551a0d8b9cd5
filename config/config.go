package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	App struct {
		Environment string
		LogLevel    string
		MetricsAddr string
	}

	Cognito struct {
		Region     string `json:"region"`
		ClientID   string `json:"clientId"`
		UserPoolID string `json:"userPoolId"`
	}

	Stork struct {
		IntervalSeconds int `json:"intervalSeconds"`
	}

	Threads struct {
		MaxWorkers int `json:"maxWorkers"`
	}

	Oracle struct {
		BaseURL   string
		Origin    string
		UserAgent string
		Timeout   time.Duration
	}

	ClickHouse struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
	}

	Paths struct {
		Tokens   string
		Accounts string
		Proxies  string
	}
}

// configFile is the on-disk shape of config.json.
type configFile struct {
	Cognito struct {
		Region     string `json:"region"`
		ClientID   string `json:"clientId"`
		UserPoolID string `json:"userPoolId"`
	} `json:"cognito"`
	Stork struct {
		IntervalSeconds int `json:"intervalSeconds"`
	} `json:"stork"`
	Threads struct {
		MaxWorkers int `json:"maxWorkers"`
	} `json:"threads"`
}

// Load builds the runtime configuration: defaults, then config.json
// (written with defaults when absent), then environment overrides.
func Load() (*Config, error) {
	cfg := &Config{}

	// App settings
	cfg.App.Environment = getEnvOrDefault("APP_ENV", "production")
	cfg.App.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.App.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":8080")

	// Defaults matching the hosted oracle service
	cfg.Cognito.Region = "ap-northeast-1"
	cfg.Cognito.ClientID = "5msns4n49hmg3dftp2tp1t2iuh"
	cfg.Cognito.UserPoolID = "ap-northeast-1_M22I44OpC"
	cfg.Stork.IntervalSeconds = 300
	cfg.Threads.MaxWorkers = 1

	configPath := getEnvOrDefault("CONFIG_PATH", "config.json")
	if err := loadConfigFile(configPath, cfg); err != nil {
		return nil, err
	}

	// Oracle settings
	cfg.Oracle.BaseURL = getEnvOrDefault("STORK_API_URL", "https://app-api.jp.stork-oracle.network")
	cfg.Oracle.Origin = getEnvOrDefault("STORK_ORIGIN", "chrome-extension://knnliglhgkmlblppdejchidfihjnockl")
	cfg.Oracle.UserAgent = getEnvOrDefault("STORK_USER_AGENT",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36")
	cfg.Oracle.Timeout = time.Duration(getEnvAsIntOrDefault("STORK_TIMEOUT_SECS", 30)) * time.Second

	// ClickHouse settings; host left empty disables the history sink
	cfg.ClickHouse.Host = os.Getenv("CLICKHOUSE_HOST")
	cfg.ClickHouse.Port = getEnvAsIntOrDefault("CLICKHOUSE_PORT", 9000)
	cfg.ClickHouse.User = getEnvOrDefault("CLICKHOUSE_USER", "default")
	cfg.ClickHouse.Password = os.Getenv("CLICKHOUSE_PASSWORD")
	cfg.ClickHouse.Database = getEnvOrDefault("CLICKHOUSE_DB", "default")

	// File collaborators
	cfg.Paths.Tokens = getEnvOrDefault("TOKENS_PATH", "tokens.json")
	cfg.Paths.Accounts = getEnvOrDefault("ACCOUNTS_PATH", "accounts.json")
	cfg.Paths.Proxies = getEnvOrDefault("PROXIES_PATH", "proxies.txt")

	if cfg.Stork.IntervalSeconds <= 0 {
		cfg.Stork.IntervalSeconds = 300
	}
	if cfg.Threads.MaxWorkers <= 0 {
		cfg.Threads.MaxWorkers = 1
	}

	return cfg, nil
}

// loadConfigFile overlays config.json onto cfg. A missing file is
// created with the current defaults so operators have something to edit.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return writeDefaultConfig(path, cfg)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if file.Cognito.Region != "" {
		cfg.Cognito.Region = file.Cognito.Region
	}
	if file.Cognito.ClientID != "" {
		cfg.Cognito.ClientID = file.Cognito.ClientID
	}
	if file.Cognito.UserPoolID != "" {
		cfg.Cognito.UserPoolID = file.Cognito.UserPoolID
	}
	if file.Stork.IntervalSeconds > 0 {
		cfg.Stork.IntervalSeconds = file.Stork.IntervalSeconds
	}
	if file.Threads.MaxWorkers > 0 {
		cfg.Threads.MaxWorkers = file.Threads.MaxWorkers
	}
	return nil
}

func writeDefaultConfig(path string, cfg *Config) error {
	var file configFile
	file.Cognito.Region = cfg.Cognito.Region
	file.Cognito.ClientID = cfg.Cognito.ClientID
	file.Cognito.UserPoolID = cfg.Cognito.UserPoolID
	file.Stork.IntervalSeconds = cfg.Stork.IntervalSeconds
	file.Threads.MaxWorkers = cfg.Threads.MaxWorkers

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing default %s: %w", path, err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
