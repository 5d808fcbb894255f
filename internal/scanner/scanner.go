// Package scanner orchestrates full-universe runs: a parallel scan of every
// instrument, and the auto-trade cycle that enforces the account-level
// policy (trading window, open-trade cap, held-instrument skip) before
// anything reaches the bridge.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/oreliousw/lambda-oanda-bridge/internal/bridge"
	"github.com/oreliousw/lambda-oanda-bridge/internal/config"
	"github.com/oreliousw/lambda-oanda-bridge/internal/notify"
	"github.com/oreliousw/lambda-oanda-bridge/internal/signal"
	"github.com/oreliousw/lambda-oanda-bridge/internal/storage"
	"github.com/oreliousw/lambda-oanda-bridge/models"
)

// fallbackEquity sizes positions when the account summary is unreachable.
const fallbackEquity = 1000.0

// Account is the account-state surface the auto policy needs.
type Account interface {
	GetAccountEquity(ctx context.Context) (float64, error)
	GetOpenPositions(ctx context.Context) (int, map[string]bool, error)
}

// Scanner runs the signal builder across the instrument universe.
type Scanner struct {
	builder    *signal.Builder
	account    Account
	dispatcher *bridge.Dispatcher
	notifier   *notify.Notifier // optional
	store      *storage.Store   // optional
	cfg        *config.Config
	logger     zerolog.Logger
	now        func() time.Time
}

// New assembles a scanner. notifier and store may be nil.
func New(builder *signal.Builder, account Account, dispatcher *bridge.Dispatcher,
	notifier *notify.Notifier, store *storage.Store, cfg *config.Config, logger zerolog.Logger) *Scanner {
	return &Scanner{
		builder:    builder,
		account:    account,
		dispatcher: dispatcher,
		notifier:   notifier,
		store:      store,
		cfg:        cfg,
		logger:     logger.With().Str("component", "scanner").Logger(),
		now:        time.Now,
	}
}

// Scan evaluates every instrument concurrently and returns signals in the
// universe's order. An instrument that fails to evaluate yields a NONE
// signal carrying the error as its reason; it never aborts the others.
func (s *Scanner) Scan(ctx context.Context, equity float64) []*models.Signal {
	signals := make([]*models.Signal, len(s.cfg.Instruments))

	g, gctx := errgroup.WithContext(ctx)
	for i, inst := range s.cfg.Instruments {
		i, inst := i, inst
		g.Go(func() error {
			sig, err := s.builder.Build(gctx, inst, equity)
			if err != nil {
				s.logger.Error().Str("instrument", inst).Err(err).Msg("instrument scan failed")
				sig = &models.Signal{
					Instrument: inst,
					Side:       models.SideNone,
					Reason:     fmt.Sprintf("scan failed: %v", err),
				}
			}
			signals[i] = sig
			return nil
		})
	}
	g.Wait()
	return signals
}

// Auto runs one unattended trading cycle: window check, account state, scan,
// policy-filtered dispatch, then recording and notification.
func (s *Scanner) Auto(ctx context.Context) error {
	if !TradingWindowOpen(s.now()) {
		s.logger.Info().Msg("trading window closed, skipping cycle")
		return nil
	}

	equity, err := s.account.GetAccountEquity(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Float64("fallback", fallbackEquity).Msg("equity unavailable, using fallback")
		equity = fallbackEquity
	}

	openCount, held, err := s.account.GetOpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("reading open positions: %w", err)
	}
	slots := s.cfg.MaxOpenTrades - openCount
	if slots <= 0 {
		s.logger.Info().Int("open", openCount).Msg("trade cap reached, skipping cycle")
		return nil
	}

	signals := s.Scan(ctx, equity)

	runID := uuid.New().String()
	var dispatched []*models.Signal
	for _, sig := range signals {
		send := false
		if sig.Actionable() && slots > 0 {
			if held[sig.Instrument] {
				s.logger.Info().Str("instrument", sig.Instrument).Msg("position already open, skipping")
			} else if err := s.dispatcher.Dispatch(ctx, sig); err != nil {
				s.logger.Error().Str("instrument", sig.Instrument).Err(err).Msg("dispatch failed")
			} else {
				send = true
				slots--
				dispatched = append(dispatched, sig)
			}
		}
		if s.store != nil {
			if err := s.store.SaveSignal(ctx, runID, sig, send); err != nil {
				s.logger.Error().Err(err).Msg("recording signal failed")
			}
		}
	}

	if s.notifier != nil {
		s.notifier.SendSignals(signals)
	}

	s.logger.Info().
		Str("run_id", runID).
		Int("instruments", len(signals)).
		Int("dispatched", len(dispatched)).
		Msg("auto cycle complete")
	return nil
}
