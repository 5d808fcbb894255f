// Package backtest replays the signal engine bar by bar over historical
// candles and manages the resulting positions with the same stop/target
// rules the live bridge enforces.
package backtest

import (
	"math"

	"github.com/oreliousw/lambda-oanda-bridge/internal/config"
	"github.com/oreliousw/lambda-oanda-bridge/internal/signal"
	"github.com/oreliousw/lambda-oanda-bridge/models"
)

// BarEvaluator is the per-bar slice of the signal engine the simulator
// consumes. Satisfied by *signal.Evaluator and by test stubs.
type BarEvaluator interface {
	Len() int
	EvaluateAt(i int) signal.Decision
}

// Simulator replays one instrument's bars against one engine configuration.
type Simulator struct {
	instrument string
	cfg        config.Engine
	ev         BarEvaluator
	bars       []models.Candle
}

// NewSimulator pairs an evaluator with the bars it was built from. The bar
// slice must be the evaluator's evaluation timeframe, same length and order.
func NewSimulator(instrument string, cfg config.Engine, ev BarEvaluator, bars []models.Candle) *Simulator {
	return &Simulator{instrument: instrument, cfg: cfg, ev: ev, bars: bars}
}

type openPosition struct {
	side     string
	entryIdx int
	entry    float64
	sl       float64
	tp       float64
	riskPips float64
}

// Run walks every bar in order. Each bar first manages any open position
// (stop before target when both are touched and StopFirst is set), then
// considers a fresh entry; a bar that closes a trade never re-enters. Any
// position still open at the end is force-closed at the last bar's close.
func (s *Simulator) Run() []models.BacktestTrade {
	var trades []models.BacktestTrade
	var pos *openPosition

	n := s.ev.Len()
	for i := 0; i < n; i++ {
		bar := s.bars[i]

		if pos != nil {
			if exit, price, hit := s.checkExit(pos, bar); hit {
				trades = append(trades, s.closeTrade(pos, i, price, exit))
				pos = nil
				continue
			}
		}
		if pos != nil {
			continue
		}

		d := s.ev.EvaluateAt(i)
		if d.Side == models.SideNone || d.RiskPips <= 0 || math.IsNaN(d.Entry) {
			continue
		}
		pos = &openPosition{
			side:     d.Side,
			entryIdx: i,
			entry:    d.Entry,
			sl:       d.SL,
			tp:       d.TP,
			riskPips: d.RiskPips,
		}
	}

	if pos != nil && n > 0 {
		trades = append(trades, s.closeTrade(pos, n-1, s.bars[n-1].Close, models.ResultTimeout))
	}
	return trades
}

// checkExit resolves whether the bar's range touched the stop or target.
// When both levels fall inside one bar the configured tie-break decides.
func (s *Simulator) checkExit(pos *openPosition, bar models.Candle) (result string, price float64, hit bool) {
	var slHit, tpHit bool
	if pos.side == models.SideBuy {
		slHit = bar.Low <= pos.sl
		tpHit = bar.High >= pos.tp
	} else {
		slHit = bar.High >= pos.sl
		tpHit = bar.Low <= pos.tp
	}

	switch {
	case slHit && tpHit:
		if s.cfg.StopFirst {
			return models.ResultSL, pos.sl, true
		}
		return models.ResultTP, pos.tp, true
	case slHit:
		return models.ResultSL, pos.sl, true
	case tpHit:
		return models.ResultTP, pos.tp, true
	}
	return "", 0, false
}

func (s *Simulator) closeTrade(pos *openPosition, exitIdx int, exitPrice float64, result string) models.BacktestTrade {
	pips := models.PipsDiff(s.instrument, exitPrice-pos.entry)
	if pos.side == models.SideSell {
		pips = -pips
	}

	var rr float64
	if pos.riskPips > 0 {
		rr = pips / pos.riskPips
	}

	return models.BacktestTrade{
		Instrument: s.instrument,
		Side:       pos.side,
		EntryTime:  s.bars[pos.entryIdx].Time,
		ExitTime:   s.bars[exitIdx].Time,
		EntryPrice: models.RoundPrice(s.instrument, pos.entry),
		ExitPrice:  models.RoundPrice(s.instrument, exitPrice),
		SLPrice:    models.RoundPrice(s.instrument, pos.sl),
		TPPrice:    models.RoundPrice(s.instrument, pos.tp),
		Result:     result,
		RR:         rr,
		Pips:       pips,
	}
}
