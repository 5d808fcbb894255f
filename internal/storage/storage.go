// Package storage records scan signals and backtest trades in Postgres.
// The recorder is optional: when no DATABASE_URL is configured the engine
// runs without it.
package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/oreliousw/lambda-oanda-bridge/models"
)

// Store persists engine output.
type Store struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// New connects to Postgres and ensures the schema exists.
func New(dsn string, logger zerolog.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger.With().Str("component", "storage").Logger(),
	}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS signals (
		id SERIAL PRIMARY KEY,
		run_id UUID NOT NULL,
		instrument TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_price DOUBLE PRECISION,
		sl_price DOUBLE PRECISION,
		tp_price DOUBLE PRECISION,
		units INTEGER,
		ssi DOUBLE PRECISION,
		reason TEXT,
		dispatched BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS backtest_trades (
		id SERIAL PRIMARY KEY,
		run_id UUID NOT NULL,
		instrument TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_time TIMESTAMPTZ NOT NULL,
		exit_time TIMESTAMPTZ NOT NULL,
		entry_price DOUBLE PRECISION NOT NULL,
		exit_price DOUBLE PRECISION NOT NULL,
		sl_price DOUBLE PRECISION NOT NULL,
		tp_price DOUBLE PRECISION NOT NULL,
		result TEXT NOT NULL,
		rr DOUBLE PRECISION NOT NULL,
		pips DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_signals_run ON signals(run_id);
	CREATE INDEX IF NOT EXISTS idx_backtest_run ON backtest_trades(run_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// SaveSignal records one scan result, actionable or not.
func (s *Store) SaveSignal(ctx context.Context, runID string, sig *models.Signal, dispatched bool) error {
	const query = `
		INSERT INTO signals (run_id, instrument, side, entry_price, sl_price, tp_price, units, ssi, reason, dispatched)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.db.ExecContext(ctx, query,
		runID, sig.Instrument, sig.Side, sig.EntryPrice, sig.SLPrice, sig.TPPrice,
		sig.Units, sig.SSI, sig.Reason, dispatched)
	if err != nil {
		return fmt.Errorf("saving signal for %s: %w", sig.Instrument, err)
	}
	return nil
}

// SaveBacktest records a full replay's trades under one run ID.
func (s *Store) SaveBacktest(ctx context.Context, runID string, trades []models.BacktestTrade) error {
	const query = `
		INSERT INTO backtest_trades (run_id, instrument, side, entry_time, exit_time,
			entry_price, exit_price, sl_price, tp_price, result, rr, pips)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting backtest transaction: %w", err)
	}
	for _, t := range trades {
		if _, err := tx.ExecContext(ctx, query,
			runID, t.Instrument, t.Side, t.EntryTime, t.ExitTime,
			t.EntryPrice, t.ExitPrice, t.SLPrice, t.TPPrice, t.Result, t.RR, t.Pips); err != nil {
			tx.Rollback()
			return fmt.Errorf("saving backtest trade: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing backtest trades: %w", err)
	}

	s.logger.Info().Str("run_id", runID).Int("trades", len(trades)).Msg("backtest recorded")
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
