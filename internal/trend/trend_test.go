package trend

import (
	"math"
	"testing"
	"time"

	"github.com/oreliousw/lambda-oanda-bridge/models"
)

func bar(t time.Time, open, high, low, close float64) models.Candle {
	return models.Candle{Time: t, Open: open, High: high, Low: low, Close: close, Volume: 1000}
}

func TestCheckImpulseUp(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	window := []models.Candle{
		bar(start, 1.0850, 1.0858, 1.0849, 1.0856),
		bar(start.Add(15*time.Minute), 1.0856, 1.0864, 1.0855, 1.0862),
		bar(start.Add(30*time.Minute), 1.0862, 1.0870, 1.0861, 1.0868),
	}

	imp := CheckImpulse("EUR_USD", window, 15.0, 10.0, 0.4)
	if !imp.Up || imp.Down {
		t.Errorf("Up=%v Down=%v, want up-only", imp.Up, imp.Down)
	}
	// 1.0850 -> 1.0868 is 18 pips.
	if math.Abs(imp.MovePips-18.0) > 1e-6 {
		t.Errorf("MovePips = %v, want 18", imp.MovePips)
	}
	if !imp.OK {
		t.Error("impulse should pass: directional, 18 pips move, wide bars")
	}
}

func TestCheckImpulseDownUsesAbsoluteMove(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	window := []models.Candle{
		bar(start, 1.0868, 1.0869, 1.0860, 1.0862),
		bar(start.Add(15*time.Minute), 1.0862, 1.0863, 1.0854, 1.0856),
		bar(start.Add(30*time.Minute), 1.0856, 1.0857, 1.0848, 1.0850),
	}

	imp := CheckImpulse("EUR_USD", window, 15.0, 10.0, 0.4)
	if !imp.Down {
		t.Error("all-bear window should flag Down")
	}
	if imp.MovePips >= 0 {
		t.Errorf("MovePips = %v, want negative for a down move", imp.MovePips)
	}
	// An 18-pip drop satisfies a 10-pip minimum regardless of sign.
	if !imp.OK {
		t.Error("down impulse should pass the minimum-move check")
	}
}

func TestCheckImpulseMixedDirectionFails(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	window := []models.Candle{
		bar(start, 1.0850, 1.0860, 1.0849, 1.0858),
		bar(start.Add(15*time.Minute), 1.0858, 1.0859, 1.0850, 1.0852), // bear bar
		bar(start.Add(30*time.Minute), 1.0852, 1.0870, 1.0851, 1.0868),
	}

	imp := CheckImpulse("EUR_USD", window, 15.0, 10.0, 0.4)
	if imp.Up || imp.Down || imp.OK {
		t.Errorf("mixed window: Up=%v Down=%v OK=%v, want all false", imp.Up, imp.Down, imp.OK)
	}
}

func TestCheckImpulseNarrowRangeFails(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	// Directional and far enough, but bar ranges are tiny vs ATR.
	window := []models.Candle{
		bar(start, 1.0850, 1.0855, 1.0850, 1.0855),
		bar(start.Add(15*time.Minute), 1.0855, 1.0860, 1.0855, 1.0860),
		bar(start.Add(30*time.Minute), 1.0860, 1.0865, 1.0860, 1.0865),
	}

	imp := CheckImpulse("EUR_USD", window, 30.0, 10.0, 0.4)
	if imp.OK {
		t.Errorf("avg range %.1fp vs required %.1fp should fail", imp.AvgRangePips, 0.4*30.0)
	}
}

func TestCheckImpulseEmptyWindow(t *testing.T) {
	imp := CheckImpulse("EUR_USD", nil, 15.0, 10.0, 0.4)
	if imp.OK {
		t.Error("empty window can never pass")
	}
}

func TestSwingBounds(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	candles := []models.Candle{
		bar(start, 1, 1.0860, 1.0840, 1),                      // i-3 of index 3
		bar(start.Add(15*time.Minute), 1, 1.0870, 1.0850, 1),  // i-2
		bar(start.Add(30*time.Minute), 1, 1.0900, 1.0800, 1),  // i-1, excluded
		bar(start.Add(45*time.Minute), 1, 1.0880, 1.0860, 1),  // current
	}

	hi, lo, ok := SwingBounds(candles, 3)
	if !ok {
		t.Fatal("expected bounds at index 3")
	}
	if hi != 1.0870 || lo != 1.0840 {
		t.Errorf("bounds = (%v, %v), want (1.0870, 1.0840)", hi, lo)
	}

	if _, _, ok := SwingBounds(candles, 2); ok {
		t.Error("index 2 has too few prior bars for bounds")
	}
}

func TestAlignmentTrendFlags(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rising := func(n int, step time.Duration, base, inc float64) []models.Candle {
		out := make([]models.Candle, n)
		for i := range out {
			p := base + inc*float64(i)
			out[i] = bar(start.Add(time.Duration(i)*step), p, p+0.0005, p-0.0005, p+0.0002)
		}
		return out
	}

	h1 := rising(300, time.Hour, 1.0800, 0.0002)
	h4 := rising(300, 4*time.Hour, 1.0800, 0.0002)

	onto := []time.Time{start.Add(299 * time.Hour)}
	up, down := Alignment(h1, h4, onto, 200)

	if !up[0] {
		t.Error("steadily rising H1/H4 should flag trend-up")
	}
	if down[0] {
		t.Error("rising market must not flag trend-down")
	}
}
