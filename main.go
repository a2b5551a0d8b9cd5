package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stork_verifier/cognito"
	"stork_verifier/config"
	"stork_verifier/db"
	"stork_verifier/display"
	"stork_verifier/models"
	"stork_verifier/monitoring"
	"stork_verifier/runner"
	"stork_verifier/stork"
	"stork_verifier/tokens"
	"stork_verifier/utils"
)

func main() {
	// Load environment variables; a missing .env is fine in production.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	if err := utils.InitLogger(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger := utils.Logger
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	accounts, err := config.LoadAccounts(cfg.Paths.Accounts)
	if err != nil {
		log.Fatalf("Failed to load accounts: %v", err)
	}

	proxies, err := config.LoadProxies(cfg.Paths.Proxies)
	if err != nil {
		logger.Warnw("Failed to load proxies, continuing without", "error", err)
	}

	store := tokens.NewStore(cfg.Paths.Tokens, logger)

	// With no accounts configured, fall back to whatever usernames
	// already have saved tokens.
	if len(accounts) == 0 {
		for username := range store.Load() {
			accounts = append(accounts, models.AccountCredential{Username: username})
		}
	}
	if len(accounts) == 0 {
		log.Fatalf("No accounts configured: fill in %s or provide %s", cfg.Paths.Accounts, cfg.Paths.Tokens)
	}
	logger.Infow("Accounts loaded",
		"accounts", len(accounts),
		"proxies", len(proxies),
		"maxWorkers", cfg.Threads.MaxWorkers)

	identity, err := cognito.NewClient(ctx, cfg.Cognito.Region, cfg.Cognito.ClientID, logger)
	if err != nil {
		log.Fatalf("Failed to initialize Cognito client: %v", err)
	}

	managers := make([]runner.TokenSource, 0, len(accounts))
	for _, account := range accounts {
		managers = append(managers, tokens.NewManager(account, identity, store, logger))
	}

	oracle := stork.NewClient(stork.Options{
		BaseURL:   cfg.Oracle.BaseURL,
		Origin:    cfg.Oracle.Origin,
		UserAgent: cfg.Oracle.UserAgent,
		Timeout:   cfg.Oracle.Timeout,
		Proxies:   proxies,
	}, logger)

	// The history sink is optional: without a ClickHouse host the
	// verifier runs exactly the same, it just keeps no round history.
	var history runner.History
	if cfg.ClickHouse.Host != "" {
		sink, err := db.NewHistorySink(cfg)
		if err != nil {
			logger.Warnw("History sink unavailable, continuing without", "error", err)
		} else {
			history = sink
			defer sink.Close()
			monitoring.RegisterHealthCheck("clickhouse", sink.Healthy)
		}
	}

	interval := time.Duration(cfg.Stork.IntervalSeconds) * time.Second
	state := runner.NewState(interval, len(accounts))
	verifier := runner.New(accounts, managers, oracle, history, state, interval, logger)

	monitoring.StartMetricsCollection()

	// Metrics and health endpoints
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/health", monitoring.HealthCheckHandler)

	server := &http.Server{
		Addr:    cfg.App.MetricsAddr,
		Handler: utils.RequestLogger(metricsMux),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Error(err, "Metrics server error")
		}
	}()

	go display.Run(ctx, os.Stdout, state.Snapshot)

	operation := func() error {
		if err := verifier.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	err = backoff.RetryNotify(operation, utils.NewSupervisorBackoff(),
		func(err error, duration time.Duration) {
			logger.Warnw("Verifier stopped, restarting", "error", err, "retry_in", duration)
		})
	if err != nil && ctx.Err() == nil {
		utils.Error(err, "Verifier exited")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("Metrics server shutdown", "error", err)
	}
	logger.Info("Shutdown complete")
}
