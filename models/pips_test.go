package models

import (
	"math"
	"testing"
)

func TestPipSize(t *testing.T) {
	tests := []struct {
		instrument string
		want       float64
	}{
		{"EUR_USD", 0.0001},
		{"GBP_USD", 0.0001},
		{"USD_JPY", 0.01},
		{"EUR_JPY", 0.01},
	}
	for _, tt := range tests {
		if got := PipSize(tt.instrument); got != tt.want {
			t.Errorf("PipSize(%s) = %v, want %v", tt.instrument, got, tt.want)
		}
	}
}

func TestPipsDiffRoundTrip(t *testing.T) {
	tests := []struct {
		instrument string
		price      float64
		pips       float64
	}{
		{"EUR_USD", 1.08500, 25.0},
		{"EUR_USD", 1.08500, -12.5},
		{"USD_JPY", 148.250, 30.0},
		{"USD_JPY", 148.250, -7.2},
	}
	for _, tt := range tests {
		moved := PriceFromPips(tt.instrument, tt.price, tt.pips, "up")
		got := PipsDiff(tt.instrument, moved-tt.price)
		if math.Abs(got-tt.pips) > 1e-9 {
			t.Errorf("%s: round trip of %.1f pips gave %.6f", tt.instrument, tt.pips, got)
		}
	}
}

func TestPriceFromPipsDirection(t *testing.T) {
	up := PriceFromPips("EUR_USD", 1.1000, 10, "up")
	down := PriceFromPips("EUR_USD", 1.1000, 10, "down")
	if math.Abs(up-1.1010) > 1e-9 {
		t.Errorf("up: got %v, want 1.1010", up)
	}
	if math.Abs(down-1.0990) > 1e-9 {
		t.Errorf("down: got %v, want 1.0990", down)
	}
}

func TestRoundPrice(t *testing.T) {
	tests := []struct {
		instrument string
		price      float64
		want       float64
	}{
		{"EUR_USD", 1.0850049, 1.08500},
		{"EUR_USD", 1.085005001, 1.08501},
		{"USD_JPY", 148.2504, 148.250},
		{"USD_JPY", 148.2506, 148.251},
	}
	for _, tt := range tests {
		if got := RoundPrice(tt.instrument, tt.price); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("RoundPrice(%s, %v) = %v, want %v", tt.instrument, tt.price, got, tt.want)
		}
	}
}

func TestSignalActionable(t *testing.T) {
	tests := []struct {
		name string
		sig  Signal
		want bool
	}{
		{"buy with units", Signal{Side: SideBuy, Units: 5000}, true},
		{"sell with units", Signal{Side: SideSell, Units: 1000}, true},
		{"none", Signal{Side: SideNone}, false},
		{"buy without units", Signal{Side: SideBuy, Units: 0}, false},
	}
	for _, tt := range tests {
		if got := tt.sig.Actionable(); got != tt.want {
			t.Errorf("%s: Actionable() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
