// Package trend holds the higher-timeframe trend filter and the short-window
// impulse and structure detectors used by the breakout engine variant.
package trend

import (
	"math"
	"time"

	"github.com/oreliousw/lambda-oanda-bridge/internal/align"
	"github.com/oreliousw/lambda-oanda-bridge/internal/indicators"
	"github.com/oreliousw/lambda-oanda-bridge/models"
)

// Alignment computes per-bar trend direction flags on the target index.
// Trend-up requires close above the slow EMA on both H1 and H4 (each
// forward-filled onto the target timestamps); trend-down is the mirror.
// Bars where neither holds block entry.
func Alignment(h1, h4 []models.Candle, onto []time.Time, emaLen int) (up, down []bool) {
	ema1h := indicators.EMA(closes(h1), emaLen)
	ema4h := indicators.EMA(closes(h4), emaLen)

	ema1hA := align.Floats(times(h1), ema1h, onto)
	ema4hA := align.Floats(times(h4), ema4h, onto)
	close1hA := align.Floats(times(h1), closes(h1), onto)
	close4hA := align.Floats(times(h4), closes(h4), onto)

	up = make([]bool, len(onto))
	down = make([]bool, len(onto))
	for i := range onto {
		up[i] = close1hA[i] > ema1hA[i] && close4hA[i] > ema4hA[i]
		down[i] = close1hA[i] < ema1hA[i] && close4hA[i] < ema4hA[i]
	}
	return up, down
}

// Impulse is the outcome of the N-bar impulse/acceleration check.
type Impulse struct {
	Up           bool    // all bars in the window closed bullish
	Down         bool    // all bars in the window closed bearish
	MovePips     float64 // net move from the window's first open to last close
	AvgRangePips float64 // mean high-low range across the window
	OK           bool    // directional agreement + move + range all passed
}

// CheckImpulse evaluates the impulse filter over the trailing lookback
// window ending at the current bar: full directional agreement, a minimum
// net pip move, and an average bar range of at least minRangeATRFactor of
// the higher-timeframe ATR (in pips). Distinguishes momentum bursts from
// noise.
func CheckImpulse(instrument string, window []models.Candle, atrPips, minMovePips, minRangeATRFactor float64) Impulse {
	var imp Impulse
	if len(window) == 0 {
		return imp
	}

	imp.Up, imp.Down = true, true
	var rangeSum float64
	for _, c := range window {
		imp.Up = imp.Up && c.Close > c.Open
		imp.Down = imp.Down && c.Close < c.Open
		rangeSum += c.High - c.Low
	}

	imp.MovePips = models.PipsDiff(instrument, window[len(window)-1].Close-window[0].Open)
	imp.AvgRangePips = models.PipsDiff(instrument, rangeSum/float64(len(window)))

	moveOK := math.Abs(imp.MovePips) >= minMovePips
	accelOK := imp.AvgRangePips >= minRangeATRFactor*atrPips
	imp.OK = (imp.Up || imp.Down) && moveOK && accelOK
	return imp
}

// SwingBounds returns the high and low of the two completed bars preceding
// the bar before index i (bars i-3 and i-2). The current bar and its
// immediate predecessor are excluded so the bounds describe the structure a
// breakout bar must clear. ok is false when i has fewer than 3 prior bars.
func SwingBounds(candles []models.Candle, i int) (hi, lo float64, ok bool) {
	if i < 3 {
		return 0, 0, false
	}
	a, b := candles[i-3], candles[i-2]
	hi = math.Max(a.High, b.High)
	lo = math.Min(a.Low, b.Low)
	return hi, lo, true
}

func closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func times(candles []models.Candle) []time.Time {
	out := make([]time.Time, len(candles))
	for i, c := range candles {
		out[i] = c.Time
	}
	return out
}
