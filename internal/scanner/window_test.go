package scanner

import (
	"testing"
	"time"
)

func TestTradingWindowOpen(t *testing.T) {
	// 2024-03-03 is a Sunday.
	day := func(d, hour int) time.Time {
		return time.Date(2024, 3, d, hour, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"sunday before open", day(3, 13), false},
		{"sunday at open", day(3, 14), true},
		{"sunday evening", day(3, 22), true},
		{"monday", day(4, 9), true},
		{"wednesday midnight", day(6, 0), true},
		{"friday morning", day(8, 9), true},
		{"friday before close", day(8, 13), true},
		{"friday at close", day(8, 14), false},
		{"friday evening", day(8, 20), false},
		{"saturday", day(9, 12), false},
	}
	for _, tt := range tests {
		if got := TradingWindowOpen(tt.t); got != tt.want {
			t.Errorf("%s: TradingWindowOpen(%v) = %v, want %v", tt.name, tt.t, got, tt.want)
		}
	}
}
