package mood

import (
	"math"
	"testing"

	"github.com/oreliousw/lambda-oanda-bridge/internal/metrics"
)

func v2Thresholds() Thresholds {
	return Thresholds{
		FearVolRs:    1.8,
		FearRngRs:    1.3,
		HopeVolRs:    1.1,
		HopeRngRs:    1.0,
		HopeStrength: 0.6,
		GreedVolRs:   1.8,
		GreedRngRs:   1.3,
		GreedBodyR:   0.8,
		IndecRngRs:   0.7,
		IndecBodyR:   0.25,
		IndecVolRs:   1.2,
	}
}

func singleBar(bull, bear bool, volRs, rngRs, strength, bodyR float64) *metrics.Set {
	return &metrics.Set{
		VolRs:     []float64{volRs},
		RngRs:     []float64{rngRs},
		Strength:  []float64{strength},
		BodyRatio: []float64{bodyR},
		Bull:      []bool{bull},
		Bear:      []bool{bear},
	}
}

func TestClassifyV2(t *testing.T) {
	th := v2Thresholds()
	tests := []struct {
		name                     string
		m                        *metrics.Set
		fear, hope, greed, indec bool
	}{
		{
			name: "capitulation fear",
			m:    singleBar(false, true, 2.0, 1.5, 0.3, 0.5),
			fear: true, indec: true, // heavy bear volume also trips the indecision OR-branch
		},
		{
			name: "confident hope",
			m:    singleBar(true, false, 1.3, 1.1, 0.9, 0.6),
			hope: true,
		},
		{
			name:  "greed burst",
			m:     singleBar(true, false, 2.0, 1.5, 1.8, 0.9),
			hope:  true,
			greed: true,
		},
		{
			name:  "quiet indecision via narrow range",
			m:     singleBar(false, false, 0.8, 0.5, 0.1, 0.4),
			indec: true,
		},
		{
			name:  "indecision via tiny body",
			m:     singleBar(true, false, 1.0, 1.0, 0.1, 0.1),
			indec: true,
		},
		{
			name: "ordinary bull bar trips nothing",
			m:    singleBar(true, false, 1.0, 1.0, 0.4, 0.5),
		},
		{
			name: "fear needs expanded range in v2",
			m:    singleBar(false, true, 2.0, 1.1, 0.3, 0.5),
			// vol passes but range does not
			indec: true,
		},
	}

	for _, tt := range tests {
		f := Classify(tt.m, th)
		if f.FearCap[0] != tt.fear {
			t.Errorf("%s: FearCap = %v, want %v", tt.name, f.FearCap[0], tt.fear)
		}
		if f.HopeConf[0] != tt.hope {
			t.Errorf("%s: HopeConf = %v, want %v", tt.name, f.HopeConf[0], tt.hope)
		}
		if f.Greed[0] != tt.greed {
			t.Errorf("%s: Greed = %v, want %v", tt.name, f.Greed[0], tt.greed)
		}
		if f.IndecFear[0] != tt.indec {
			t.Errorf("%s: IndecFear = %v, want %v", tt.name, f.IndecFear[0], tt.indec)
		}
	}
}

func TestClassifyClassicDropsRangeCoConditions(t *testing.T) {
	th := v2Thresholds()
	th.FearRngRs = 0
	th.HopeRngRs = 0

	// Narrow-range bear bar on heavy volume: fear in classic, not in v2.
	m := singleBar(false, true, 2.0, 0.9, 0.3, 0.5)

	classic := Classify(m, th)
	if !classic.FearCap[0] {
		t.Error("classic thresholds should flag fear without range expansion")
	}
	v2 := Classify(m, v2Thresholds())
	if v2.FearCap[0] {
		t.Error("v2 thresholds should require range expansion for fear")
	}
}

func TestClassifyNaNWarmupIsFalse(t *testing.T) {
	nan := math.NaN()
	m := singleBar(true, false, nan, nan, nan, 0.5)
	f := Classify(m, v2Thresholds())
	if f.FearCap[0] || f.HopeConf[0] || f.Greed[0] {
		t.Error("NaN metrics must not trip threshold flags")
	}
}

func TestPrev(t *testing.T) {
	flags := []bool{true, false, true}
	if Prev(flags, 0) {
		t.Error("index 0 has no previous bar")
	}
	if !Prev(flags, 1) {
		t.Error("Prev at 1 should see index 0")
	}
	if Prev(flags, 2) {
		t.Error("Prev at 2 should see index 1")
	}
}

func TestSSI(t *testing.T) {
	tests := []struct {
		name                   string
		hF, fF, hM, fM, hS, fS bool
		want                   float64
	}{
		{name: "all hope", hF: true, hM: true, hS: true, want: 1.5},
		{name: "all fear", fF: true, fM: true, fS: true, want: -1.5},
		{name: "neutral", want: 0},
		{name: "fast hope only", hF: true, want: 0.5},
		{name: "hope and fear cancel per timeframe", hF: true, fF: true, want: 0},
		{name: "mixed", hF: true, hM: true, fS: true, want: 0.5},
	}
	for _, tt := range tests {
		got := SSI(tt.hF, tt.fF, tt.hM, tt.fM, tt.hS, tt.fS)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: SSI = %v, want %v", tt.name, got, tt.want)
		}
		if got > 3 || got < -3 {
			t.Errorf("%s: SSI %v outside [-3, 3]", tt.name, got)
		}
	}
}
