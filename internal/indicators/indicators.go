package indicators

import (
	"math"

	"github.com/oreliousw/lambda-oanda-bridge/models"
)

// Series functions over time-ordered values. Warm-up gaps are marked with
// NaN rather than zero: comparisons against NaN are false, so downstream
// threshold filters skip unwarmed bars without special cases.

const epsilon = 1e-10

// RMA computes the Wilder-style smoothed moving average. The first output is
// the arithmetic mean of the first min(length, len(values)) inputs; each
// subsequent value is previous*(1-1/length) + current*(1/length). Output has
// the same length as the input. Empty input yields an empty result.
func RMA(values []float64, length int) []float64 {
	if len(values) == 0 {
		return nil
	}
	alpha := 1.0 / float64(length)
	out := make([]float64, len(values))

	seedLen := length
	if len(values) < length {
		seedLen = len(values)
	}
	var sum float64
	for _, v := range values[:seedLen] {
		sum += v
	}
	out[0] = sum / float64(seedLen)

	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// EMA computes the standard exponential moving average with smoothing factor
// 2/(length+1), seeded at the first finite value. Leading NaNs in the input
// (rolling-window warm-up) stay NaN in the output.
func EMA(values []float64, length int) []float64 {
	if len(values) == 0 {
		return nil
	}
	alpha := 2.0 / float64(length+1)
	out := make([]float64, len(values))

	seeded := false
	for i, v := range values {
		switch {
		case !seeded && math.IsNaN(v):
			out[i] = math.NaN()
		case !seeded:
			out[i] = v
			seeded = true
		case math.IsNaN(v):
			out[i] = out[i-1]
		default:
			out[i] = alpha*v + (1-alpha)*out[i-1]
		}
	}
	return out
}

// RollingMean is a simple moving average that yields NaN until the window is
// filled, matching the warm-up behaviour the metric ratios rely on.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// TrueRange computes max(high-low, |high-prevClose|, |low-prevClose|) per
// bar. The first bar has no previous close, so only high-low applies there.
func TrueRange(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		tr := c.High - c.Low
		if i > 0 {
			prevClose := candles[i-1].Close
			if d := math.Abs(c.High - prevClose); d > tr {
				tr = d
			}
			if d := math.Abs(c.Low - prevClose); d > tr {
				tr = d
			}
		}
		out[i] = tr
	}
	return out
}

// ATR is the Wilder-smoothed average of the true range.
func ATR(candles []models.Candle, length int) []float64 {
	return RMA(TrueRange(candles), length)
}

// RSI computes Wilder's relative strength index over closes. The first value
// carries no change information and is seeded neutral at 50. A zero average
// loss is substituted with a tiny epsilon so the ratio stays finite.
func RSI(closes []float64, length int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 {
		return out
	}
	out[0] = 50.0
	if len(closes) < 2 {
		return out
	}

	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	avgGain := RMA(gains, length)
	avgLoss := RMA(losses, length)

	for i := 1; i < len(closes); i++ {
		loss := avgLoss[i-1]
		if loss == 0 {
			loss = epsilon
		}
		rs := avgGain[i-1] / loss
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return out
}
