// Package signal turns aligned multi-timeframe candle data into trade
// decisions. The Evaluator precomputes every derived series once and then
// answers per-bar queries, so the live builder (latest bar) and the backtest
// simulator (every bar) run the exact same entry logic.
package signal

import (
	"fmt"
	"math"
	"time"

	"github.com/oreliousw/lambda-oanda-bridge/internal/align"
	"github.com/oreliousw/lambda-oanda-bridge/internal/config"
	"github.com/oreliousw/lambda-oanda-bridge/internal/indicators"
	"github.com/oreliousw/lambda-oanda-bridge/internal/metrics"
	"github.com/oreliousw/lambda-oanda-bridge/internal/mood"
	"github.com/oreliousw/lambda-oanda-bridge/internal/trend"
	"github.com/oreliousw/lambda-oanda-bridge/models"
)

// minReversalHistory is the warm-up floor for the mood metrics: the rolling
// windows plus smoothing need roughly 50 bars per timeframe before the
// ratios mean anything.
const minReversalHistory = 50

// Frames carries the three timeframes the engine consumes. M15 is the
// evaluation grid; H1 and H4 feed sentiment and trend filters.
type Frames struct {
	M15 []models.Candle
	H1  []models.Candle
	H4  []models.Candle
}

// Decision is the engine's verdict for one bar. Prices are unrounded; the
// builder applies instrument precision before the decision leaves the
// process.
type Decision struct {
	Side     string
	Entry    float64
	SL       float64
	TP       float64
	ATRPips  float64
	RiskPips float64
	TPPips   float64
	SSI      float64
	Reason   string
}

// Evaluator holds the precomputed per-bar series for one instrument and one
// engine configuration. It is immutable after construction; evaluating the
// same bar twice yields the same decision.
type Evaluator struct {
	instrument string
	cfg        config.Engine
	m15        []models.Candle

	// Reversal context.
	met15   *metrics.Set
	moods15 *mood.Flags
	ssi     []float64
	atr15   []float64

	fearPrev1h  []bool
	fearPrev4h  []bool
	greedPrev1h []bool
	greedPrev4h []bool

	// Breakout context.
	atr1h     []float64
	trendUp   []bool
	trendDown []bool
}

// NewEvaluator precomputes all derived series. It returns
// models.ErrInsufficientHistory (wrapped) when any required timeframe is too
// short for the configured variant's warm-up.
func NewEvaluator(instrument string, cfg config.Engine, frames Frames) (*Evaluator, error) {
	e := &Evaluator{
		instrument: instrument,
		cfg:        cfg,
		m15:        frames.M15,
	}

	switch cfg.Kind {
	case config.KindBreakout:
		need := 4
		if cfg.ImpulseLookback+1 > need {
			need = cfg.ImpulseLookback + 1
		}
		if len(frames.M15) < need || len(frames.H1) == 0 || len(frames.H4) == 0 {
			return nil, fmt.Errorf("%w: breakout needs >= %d M15 bars plus H1/H4 data",
				models.ErrInsufficientHistory, need)
		}
		e.precomputeBreakout(frames)
	default:
		if len(frames.M15) < minReversalHistory ||
			len(frames.H1) < minReversalHistory ||
			len(frames.H4) < minReversalHistory {
			return nil, fmt.Errorf("%w: reversal needs >= %d bars on each timeframe",
				models.ErrInsufficientHistory, minReversalHistory)
		}
		e.precomputeReversal(frames)
	}
	return e, nil
}

func (e *Evaluator) precomputeReversal(frames Frames) {
	cfg := e.cfg
	e.met15 = metrics.Compute(frames.M15, cfg.VolumeWindow, cfg.RangeWindow)
	met1h := metrics.Compute(frames.H1, cfg.VolumeWindow, cfg.RangeWindow)
	met4h := metrics.Compute(frames.H4, cfg.VolumeWindow, cfg.RangeWindow)

	e.moods15 = mood.Classify(e.met15, cfg.Moods)
	moods1h := mood.Classify(met1h, cfg.Moods)
	moods4h := mood.Classify(met4h, cfg.Moods)

	onto := candleTimes(frames.M15)
	t1h := candleTimes(frames.H1)
	t4h := candleTimes(frames.H4)

	hope1h := align.Bools(t1h, moods1h.HopeConf, onto)
	fear1h := align.Bools(t1h, moods1h.FearCap, onto)
	hope4h := align.Bools(t4h, moods4h.HopeConf, onto)
	fear4h := align.Bools(t4h, moods4h.FearCap, onto)

	// "Prior bar" flags shift within their own timeframe before alignment,
	// so an H4 capitulation counts as recent for the whole following H4 bar.
	e.fearPrev1h = align.Bools(t1h, shifted(moods1h.FearCap), onto)
	e.fearPrev4h = align.Bools(t4h, shifted(moods4h.FearCap), onto)
	e.greedPrev1h = align.Bools(t1h, shifted(moods1h.Greed), onto)
	e.greedPrev4h = align.Bools(t4h, shifted(moods4h.Greed), onto)

	e.ssi = make([]float64, len(frames.M15))
	for i := range frames.M15 {
		e.ssi[i] = mood.SSI(
			e.moods15.HopeConf[i], e.moods15.FearCap[i],
			hope1h[i], fear1h[i],
			hope4h[i], fear4h[i],
		)
	}

	e.atr15 = indicators.ATR(frames.M15, cfg.ATRLength)
}

func (e *Evaluator) precomputeBreakout(frames Frames) {
	cfg := e.cfg
	onto := candleTimes(frames.M15)

	atr1h := indicators.ATR(frames.H1, cfg.ATRLength)
	e.atr1h = align.Floats(candleTimes(frames.H1), atr1h, onto)
	e.trendUp, e.trendDown = trend.Alignment(frames.H1, frames.H4, onto, cfg.TrendEMALength)
}

// Len returns the number of evaluation-timeframe bars.
func (e *Evaluator) Len() int {
	return len(e.m15)
}

// Latest evaluates the most recent completed bar.
func (e *Evaluator) Latest() Decision {
	return e.EvaluateAt(len(e.m15) - 1)
}

// EvaluateAt runs the configured entry logic for the bar at index i.
// Every expected "no trade" condition comes back as SideNone with a reason;
// it never panics on warm-up bars.
func (e *Evaluator) EvaluateAt(i int) Decision {
	if e.cfg.Kind == config.KindBreakout {
		return e.evaluateBreakoutAt(i)
	}
	return e.evaluateReversalAt(i)
}

func (e *Evaluator) evaluateReversalAt(i int) Decision {
	cfg := e.cfg
	lastClose := e.m15[i].Close
	ssi := e.ssi[i]

	atr := e.atr15[i]
	if !(atr > 0) {
		return Decision{
			Side:   models.SideNone,
			Entry:  lastClose,
			SSI:    ssi,
			Reason: "ATR <= 0 - invalid for stop placement",
		}
	}
	atrPips := models.PipsDiff(e.instrument, atr)

	volRs := e.met15.VolRs[i]
	rngRs := e.met15.RngRs[i]

	wasFearCap := mood.Prev(e.moods15.FearCap, i) || e.fearPrev1h[i] || e.fearPrev4h[i]
	wasGreed := mood.Prev(e.moods15.Greed, i) || e.greedPrev1h[i] || e.greedPrev4h[i]

	longSignal := wasFearCap &&
		e.moods15.HopeConf[i] &&
		ssi >= cfg.SSIThreshold &&
		volRs >= cfg.EntryVolRs &&
		rngRs >= cfg.EntryRngRs

	shortSignal := wasGreed &&
		(e.moods15.IndecFear[i] || e.moods15.FearCap[i]) &&
		ssi <= -cfg.SSIThreshold &&
		volRs >= cfg.EntryVolRs &&
		rngRs >= cfg.EntryRngRs

	if !longSignal && !shortSignal {
		return Decision{
			Side:    models.SideNone,
			Entry:   lastClose,
			ATRPips: atrPips,
			SSI:     ssi,
			Reason:  "no reversal entry (fear/hope/greed/SSI conditions not met)",
		}
	}

	d := Decision{
		Entry:    lastClose,
		ATRPips:  atrPips,
		RiskPips: atrPips,
		TPPips:   atrPips * cfg.RRTarget,
		SSI:      ssi,
	}
	if longSignal {
		d.Side = models.SideBuy
		d.SL = d.Entry - atr
		d.TP = d.Entry + atr*cfg.RRTarget
		d.Reason = fmt.Sprintf("reversal long: capitulation flipped to hope, SSI %.2f >= %.2f", ssi, cfg.SSIThreshold)
	} else {
		d.Side = models.SideSell
		d.SL = d.Entry + atr
		d.TP = d.Entry - atr*cfg.RRTarget
		d.Reason = fmt.Sprintf("reversal short: greed flipped to indecision/fear, SSI %.2f <= -%.2f", ssi, cfg.SSIThreshold)
	}
	return d
}

func (e *Evaluator) evaluateBreakoutAt(i int) Decision {
	cfg := e.cfg
	lastClose := e.m15[i].Close

	if i < 3 || i+1 < cfg.ImpulseLookback {
		return Decision{
			Side:   models.SideNone,
			Entry:  lastClose,
			Reason: "not enough completed bars for swing structure",
		}
	}

	atrNow := e.atr1h[i]
	if math.IsNaN(atrNow) || atrNow <= 0 {
		return Decision{
			Side:   models.SideNone,
			Entry:  lastClose,
			Reason: "1H ATR not available at this bar",
		}
	}
	atrPips := models.PipsDiff(e.instrument, atrNow)

	if atrPips < cfg.MinATRPips {
		return Decision{
			Side:    models.SideNone,
			Entry:   lastClose,
			ATRPips: atrPips,
			Reason:  fmt.Sprintf("ATR too low (%.1f pips)", atrPips),
		}
	}

	window := e.m15[i+1-cfg.ImpulseLookback : i+1]
	imp := trend.CheckImpulse(e.instrument, window, atrPips, cfg.ImpulseMinPips, cfg.ImpulseRangeATRFactor)
	if !imp.OK {
		return Decision{
			Side:    models.SideNone,
			Entry:   lastClose,
			ATRPips: atrPips,
			Reason: fmt.Sprintf("no %d-bar impulse: dir_ok=%t, move=%.1fp, avg_range=%.1fp",
				cfg.ImpulseLookback, imp.Up || imp.Down, imp.MovePips, imp.AvgRangePips),
		}
	}

	body := math.Abs(lastClose - e.m15[i].Open)
	if body < cfg.BreakoutBodyATRFactor*atrNow {
		return Decision{
			Side:    models.SideNone,
			Entry:   lastClose,
			ATRPips: atrPips,
			Reason:  "breakout body too small vs ATR",
		}
	}

	hiSwing, loSwing, ok := trend.SwingBounds(e.m15, i)
	if !ok {
		return Decision{
			Side:    models.SideNone,
			Entry:   lastClose,
			ATRPips: atrPips,
			Reason:  "not enough completed bars for swing structure",
		}
	}

	longSignal := e.trendUp[i] && lastClose > hiSwing
	shortSignal := e.trendDown[i] && lastClose < loSwing
	if !longSignal && !shortSignal {
		return Decision{
			Side:    models.SideNone,
			Entry:   lastClose,
			ATRPips: atrPips,
			Reason:  "no breakout (structure/trend mismatch)",
		}
	}

	d := Decision{
		Entry:   lastClose,
		ATRPips: atrPips,
	}
	if longSignal {
		d.Side = models.SideBuy
		d.SL = loSwing
		d.RiskPips = models.PipsDiff(e.instrument, d.Entry-d.SL)
	} else {
		d.Side = models.SideSell
		d.SL = hiSwing
		d.RiskPips = models.PipsDiff(e.instrument, d.SL-d.Entry)
	}
	if d.RiskPips <= 0 {
		return Decision{
			Side:    models.SideNone,
			Entry:   lastClose,
			ATRPips: atrPips,
			Reason:  "invalid risk distance (risk pips <= 0)",
		}
	}

	d.TPPips = d.RiskPips * cfg.RRTarget
	if d.Side == models.SideBuy {
		d.TP = models.PriceFromPips(e.instrument, d.Entry, d.TPPips, "up")
		d.Reason = "impulse breakout long"
	} else {
		d.TP = models.PriceFromPips(e.instrument, d.Entry, d.TPPips, "down")
		d.Reason = "impulse breakout short"
	}
	return d
}

// shifted returns the series moved one bar forward (previous bar's value),
// false at the first index.
func shifted(flags []bool) []bool {
	out := make([]bool, len(flags))
	copy(out[1:], flags[:len(flags)-1])
	return out
}

func candleTimes(candles []models.Candle) []time.Time {
	out := make([]time.Time, len(candles))
	for i, c := range candles {
		out[i] = c.Time
	}
	return out
}
