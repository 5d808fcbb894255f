// Package metrics derives per-bar volatility, range and candle-strength
// ratios from a single-timeframe candle series. Each timeframe is composited
// independently; cross-timeframe work happens downstream in mood and signal.
package metrics

import (
	"math"

	"github.com/oreliousw/lambda-oanda-bridge/internal/indicators"
	"github.com/oreliousw/lambda-oanda-bridge/models"
)

const (
	// DefaultVolumeWindow is the rolling-mean window for the volume ratio.
	DefaultVolumeWindow = 20
	// DefaultRangeWindow is the rolling-mean window for the range ratio.
	DefaultRangeWindow = 14

	smoothLen = 3
	epsilon   = 1e-10
)

// Set holds the per-bar derived metrics for one timeframe. All slices share
// the candle series' length and indexing. Ratios are NaN during rolling
// warm-up; threshold comparisons against NaN are false by design.
type Set struct {
	VolRatio  []float64 // volume / rolling mean volume
	RngRatio  []float64 // true range / rolling mean true range
	VolRs     []float64 // 3-period EMA of VolRatio
	RngRs     []float64 // 3-period EMA of RngRatio
	Strength  []float64 // body/true-range weighted by raw volume ratio
	BodyRatio []float64 // |close-open| / true range
	Bull      []bool    // close > open
	Bear      []bool    // close < open (ties are neither)
}

// Compute derives the full metric set for one candle series. Zero divisors
// (flat bars, zero volume) are floored at a negligible positive constant so
// ratios stay finite.
func Compute(candles []models.Candle, volWindow, rngWindow int) *Set {
	n := len(candles)
	tr := indicators.TrueRange(candles)

	volume := make([]float64, n)
	for i, c := range candles {
		volume[i] = float64(c.Volume)
	}

	volMean := indicators.RollingMean(volume, volWindow)
	rngMean := indicators.RollingMean(tr, rngWindow)

	s := &Set{
		VolRatio:  make([]float64, n),
		RngRatio:  make([]float64, n),
		Strength:  make([]float64, n),
		BodyRatio: make([]float64, n),
		Bull:      make([]bool, n),
		Bear:      make([]bool, n),
	}

	for i, c := range candles {
		s.VolRatio[i] = safeRatio(volume[i], volMean[i])
		s.RngRatio[i] = safeRatio(tr[i], rngMean[i])

		body := math.Abs(c.Close - c.Open)
		trSafe := tr[i]
		if trSafe < epsilon {
			trSafe = epsilon
		}
		s.BodyRatio[i] = body / trSafe
		s.Strength[i] = body / trSafe * s.VolRatio[i]

		s.Bull[i] = c.Close > c.Open
		s.Bear[i] = c.Close < c.Open
	}

	s.VolRs = indicators.EMA(s.VolRatio, smoothLen)
	s.RngRs = indicators.EMA(s.RngRatio, smoothLen)
	return s
}

// safeRatio divides value by mean, keeping NaN through warm-up and flooring
// a near-zero divisor so a flat or zero-volume window cannot produce Inf.
func safeRatio(value, mean float64) float64 {
	if math.IsNaN(mean) {
		return math.NaN()
	}
	if mean < epsilon {
		mean = epsilon
	}
	return value / mean
}
