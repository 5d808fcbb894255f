// Package mood classifies per-bar metric rows into four boolean market
// regime flags and combines them across timeframes into the composite
// sentiment score (SSI).
package mood

import (
	"github.com/oreliousw/lambda-oanda-bridge/internal/metrics"
)

// Thresholds parameterizes the four mood conditions. Two threshold sets are
// in active use (see config): the v2 set with range-ratio co-conditions on
// fear and hope, and the classic set without them. A RngRatio threshold of 0
// disables that co-condition, since any finite smoothed ratio exceeds it.
type Thresholds struct {
	FearVolRs float64 `toml:"fear_vol_rs"`
	FearRngRs float64 `toml:"fear_rng_rs"`

	HopeVolRs    float64 `toml:"hope_vol_rs"`
	HopeRngRs    float64 `toml:"hope_rng_rs"`
	HopeStrength float64 `toml:"hope_strength"`

	GreedVolRs float64 `toml:"greed_vol_rs"`
	GreedRngRs float64 `toml:"greed_rng_rs"`
	GreedBodyR float64 `toml:"greed_body_r"`

	IndecRngRs float64 `toml:"indec_rng_rs"`
	IndecBodyR float64 `toml:"indec_body_r"`
	IndecVolRs float64 `toml:"indec_vol_rs"`
}

// Flags holds the per-bar mood booleans for one timeframe, aligned to the
// metric set's indexing. The flags are not mutually exclusive.
type Flags struct {
	FearCap   []bool // capitulation fear: heavy selling on expanded volume/range
	HopeConf  []bool // confident hope: strong committed buying
	Greed     []bool // euphoric full-body buying burst
	IndecFear []bool // indecision or creeping fear
}

// Classify evaluates the threshold rules over a full metric set.
func Classify(m *metrics.Set, th Thresholds) *Flags {
	n := len(m.Bull)
	f := &Flags{
		FearCap:   make([]bool, n),
		HopeConf:  make([]bool, n),
		Greed:     make([]bool, n),
		IndecFear: make([]bool, n),
	}
	for i := 0; i < n; i++ {
		f.FearCap[i] = m.Bear[i] &&
			m.VolRs[i] > th.FearVolRs &&
			m.RngRs[i] > th.FearRngRs

		f.HopeConf[i] = m.Bull[i] &&
			m.VolRs[i] > th.HopeVolRs &&
			m.RngRs[i] > th.HopeRngRs &&
			m.Strength[i] > th.HopeStrength

		f.Greed[i] = m.Bull[i] &&
			m.VolRs[i] > th.GreedVolRs &&
			m.RngRs[i] > th.GreedRngRs &&
			m.BodyRatio[i] > th.GreedBodyR

		f.IndecFear[i] = m.RngRs[i] < th.IndecRngRs ||
			m.BodyRatio[i] < th.IndecBodyR ||
			(m.Bear[i] && m.VolRs[i] > th.IndecVolRs)
	}
	return f
}

// Prev returns the previous bar's value of flags, false at index 0. Mirrors
// a shift-by-one with the leading gap treated as "no mood".
func Prev(flags []bool, i int) bool {
	if i <= 0 {
		return false
	}
	return flags[i-1]
}

// SSI combines the hope/fear flags of the fast, medium and slow timeframes
// into the composite sentiment score: each timeframe contributes +1.5 for
// hope and -1.5 for fear, the three sub-scores are averaged, and the result
// is clamped to [-3, 3]. The clamp is a deliberate safety bound; the mean of
// three ±1.5 terms cannot exceed it.
func SSI(hopeFast, fearFast, hopeMid, fearMid, hopeSlow, fearSlow bool) float64 {
	score := subScore(hopeFast, fearFast) +
		subScore(hopeMid, fearMid) +
		subScore(hopeSlow, fearSlow)
	ssi := score / 3.0
	if ssi > 3.0 {
		return 3.0
	}
	if ssi < -3.0 {
		return -3.0
	}
	return ssi
}

func subScore(hope, fear bool) float64 {
	var s float64
	if hope {
		s += 1.5
	}
	if fear {
		s -= 1.5
	}
	return s
}
