package signal

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/oreliousw/lambda-oanda-bridge/internal/config"
	"github.com/oreliousw/lambda-oanda-bridge/internal/risk"
	"github.com/oreliousw/lambda-oanda-bridge/models"
)

// CandleSource fetches completed candles for one instrument and granularity.
// Implemented by the OANDA client and its cache decorator.
type CandleSource interface {
	GetCandles(ctx context.Context, instrument, granularity string, count int) ([]models.Candle, error)
}

// Builder produces live signals from the latest completed bar. One Builder is
// shared across instruments; it carries no per-instrument state.
type Builder struct {
	source      CandleSource
	cfg         config.Engine
	candleCount int
	logger      zerolog.Logger
}

// NewBuilder wires a builder to a candle source and engine configuration.
func NewBuilder(source CandleSource, cfg config.Engine, candleCount int, logger zerolog.Logger) *Builder {
	return &Builder{
		source:      source,
		cfg:         cfg,
		candleCount: candleCount,
		logger:      logger.With().Str("component", "signal_builder").Logger(),
	}
}

// Build fetches the three timeframes, evaluates the most recent completed bar
// and sizes the position against the given equity. Data fetch failures are
// returned as errors; insufficient history and sizing failures degrade to a
// NONE signal so one quiet instrument never aborts a scan.
func (b *Builder) Build(ctx context.Context, instrument string, equity float64) (*models.Signal, error) {
	frames, err := b.fetchFrames(ctx, instrument)
	if err != nil {
		return nil, err
	}

	ev, err := NewEvaluator(instrument, b.cfg, frames)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientHistory) {
			b.logger.Warn().Str("instrument", instrument).Err(err).Msg("not enough history, skipping")
			return &models.Signal{
				Instrument: instrument,
				Side:       models.SideNone,
				Reason:     err.Error(),
			}, nil
		}
		return nil, err
	}

	d := ev.Latest()
	sig := &models.Signal{
		Instrument: instrument,
		Side:       d.Side,
		EntryPrice: d.Entry,
		ATRPips:    d.ATRPips,
		TPPips:     d.TPPips,
		SSI:        d.SSI,
		Reason:     d.Reason,
	}
	if d.Side == models.SideNone {
		return sig, nil
	}

	units, err := risk.Units(instrument, equity, d.Entry, d.RiskPips, b.cfg)
	if err != nil {
		if errors.Is(err, models.ErrInvalidComputation) {
			b.logger.Warn().Str("instrument", instrument).Err(err).Msg("sizing failed, downgrading signal")
			sig.Side = models.SideNone
			sig.Reason = fmt.Sprintf("sizing failed: %v", err)
			return sig, nil
		}
		return nil, err
	}

	sig.Units = units
	sig.EntryPrice = models.RoundPrice(instrument, d.Entry)
	sig.SLPrice = models.RoundPrice(instrument, d.SL)
	sig.TPPrice = models.RoundPrice(instrument, d.TP)

	b.logger.Info().
		Str("instrument", instrument).
		Str("side", sig.Side).
		Float64("entry", sig.EntryPrice).
		Float64("sl", sig.SLPrice).
		Float64("tp", sig.TPPrice).
		Int("units", sig.Units).
		Float64("ssi", sig.SSI).
		Msg("actionable signal")
	return sig, nil
}

func (b *Builder) fetchFrames(ctx context.Context, instrument string) (Frames, error) {
	var frames Frames
	var err error

	if frames.M15, err = b.source.GetCandles(ctx, instrument, models.GranularityM15, b.candleCount); err != nil {
		return frames, fmt.Errorf("fetching %s M15 candles: %w", instrument, err)
	}
	if frames.H1, err = b.source.GetCandles(ctx, instrument, models.GranularityH1, b.candleCount); err != nil {
		return frames, fmt.Errorf("fetching %s H1 candles: %w", instrument, err)
	}
	if frames.H4, err = b.source.GetCandles(ctx, instrument, models.GranularityH4, b.candleCount); err != nil {
		return frames, fmt.Errorf("fetching %s H4 candles: %w", instrument, err)
	}
	return frames, nil
}
