package backtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/oreliousw/lambda-oanda-bridge/internal/config"
	"github.com/oreliousw/lambda-oanda-bridge/internal/signal"
	"github.com/oreliousw/lambda-oanda-bridge/models"
)

// Extra bars fetched beyond the replay window so the indicator warm-up falls
// outside the measured period.
const (
	warmupM15 = 500
	warmupH1  = 200
	warmupH4  = 50
)

// Runner fetches history and replays the engine over a trailing window.
type Runner struct {
	source signal.CandleSource
	cfg    config.Engine
	logger zerolog.Logger
}

// NewRunner wires a backtest runner to a candle source.
func NewRunner(source signal.CandleSource, cfg config.Engine, logger zerolog.Logger) *Runner {
	return &Runner{
		source: source,
		cfg:    cfg,
		logger: logger.With().Str("component", "backtest").Logger(),
	}
}

// Run replays the last `days` days for each instrument and returns the
// combined trades. An instrument whose data cannot be fetched or whose
// history is too short is logged and skipped; the rest still run.
func (r *Runner) Run(ctx context.Context, instruments []string, days int) ([]models.BacktestTrade, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: backtest window must be positive, got %d days", models.ErrInvalidComputation, days)
	}

	var all []models.BacktestTrade
	for _, inst := range instruments {
		trades, err := r.runInstrument(ctx, inst, days)
		if err != nil {
			if errors.Is(err, models.ErrInsufficientHistory) {
				r.logger.Warn().Str("instrument", inst).Err(err).Msg("skipping instrument")
				continue
			}
			return nil, err
		}
		all = append(all, trades...)
	}
	return all, nil
}

func (r *Runner) runInstrument(ctx context.Context, instrument string, days int) ([]models.BacktestTrade, error) {
	m15, err := r.source.GetCandles(ctx, instrument, models.GranularityM15, days*96+warmupM15)
	if err != nil {
		return nil, fmt.Errorf("fetching %s M15 history: %w", instrument, err)
	}
	h1, err := r.source.GetCandles(ctx, instrument, models.GranularityH1, days*24+warmupH1)
	if err != nil {
		return nil, fmt.Errorf("fetching %s H1 history: %w", instrument, err)
	}
	h4, err := r.source.GetCandles(ctx, instrument, models.GranularityH4, days*6+warmupH4)
	if err != nil {
		return nil, fmt.Errorf("fetching %s H4 history: %w", instrument, err)
	}
	if len(m15) == 0 {
		return nil, fmt.Errorf("%w: no M15 history for %s", models.ErrInsufficientHistory, instrument)
	}

	// Higher timeframes keep their full depth (the forward-fill needs it);
	// the replay itself is confined to the trailing window.
	end := m15[len(m15)-1].Time
	start := end.AddDate(0, 0, -days)

	ev, err := signal.NewEvaluator(instrument, r.cfg, signal.Frames{M15: m15, H1: h1, H4: h4})
	if err != nil {
		return nil, err
	}

	trades := NewSimulator(instrument, r.cfg, ev, m15).Run()
	kept := trades[:0]
	for _, t := range trades {
		if !t.EntryTime.Before(start) {
			kept = append(kept, t)
		}
	}

	r.logger.Info().
		Str("instrument", instrument).
		Int("bars", len(m15)).
		Int("trades", len(kept)).
		Time("from", start).
		Time("to", end).
		Msg("instrument replay complete")
	return kept, nil
}
