package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"stork_verifier/config"
	"stork_verifier/middleware"
	"stork_verifier/models"
	"stork_verifier/monitoring"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS validation_results (
	recorded_at DateTime,
	account String,
	asset String,
	msg_hash String,
	price String,
	is_valid Bool,
	success Bool,
	error String
) ENGINE = MergeTree()
ORDER BY (recorded_at, account, asset)
`

// historyRow is the ClickHouse layout of one submitted verdict.
type historyRow struct {
	RecordedAt time.Time `ch:"recorded_at"`
	Account    string    `ch:"account"`
	Asset      string    `ch:"asset"`
	MsgHash    string    `ch:"msg_hash"`
	Price      string    `ch:"price"`
	IsValid    bool      `ch:"is_valid"`
	Success    bool      `ch:"success"`
	Error      string    `ch:"error"`
}

// HistorySink records validation verdicts for later analysis. Optional;
// round processing never depends on it.
type HistorySink struct {
	conn driver.Conn
}

func NewHistorySink(cfg *config.Config) (*HistorySink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.ClickHouse.Host, cfg.ClickHouse.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.User,
			Password: cfg.ClickHouse.Password,
		},
		Protocol: clickhouse.Native,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	sink := &HistorySink{conn: conn}
	if err := sink.createTable(); err != nil {
		return nil, err
	}
	return sink, nil
}

func (s *HistorySink) Close() error {
	return s.conn.Close()
}

func (s *HistorySink) createTable() error {
	return s.conn.Exec(context.Background(), createTableSQL)
}

// Healthy is registered on the /health endpoint.
func (s *HistorySink) Healthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.conn.Ping(ctx) == nil
}

// InsertResults batches one round's verdicts. Writes go through the
// circuit breaker so a ClickHouse outage degrades to dropped history
// rows instead of stalled rounds.
func (s *HistorySink) InsertResults(ctx context.Context, account string, results []models.ValidationResult) error {
	if len(results) == 0 {
		return nil
	}

	return middleware.WithCircuitBreaker(ctx, "insert_results", func() error {
		start := time.Now()

		batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO validation_results")
		if err != nil {
			return err
		}

		now := time.Now()
		for _, r := range results {
			row := historyRow{
				RecordedAt: now,
				Account:    account,
				Asset:      r.Asset,
				MsgHash:    r.MsgHash,
				Price:      r.Price,
				IsValid:    r.IsValid,
				Success:    r.Success,
			}
			if r.Err != nil {
				row.Error = r.Err.Error()
			}
			if err := batch.AppendStruct(&row); err != nil {
				return err
			}
		}

		if err := batch.Send(); err != nil {
			return err
		}
		monitoring.SinkWriteDuration.Observe(time.Since(start).Seconds())
		return nil
	})
}
