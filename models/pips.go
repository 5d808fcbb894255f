package models

import (
	"math"
	"strings"
)

// PipSize returns the standard pip increment for an instrument:
// 0.01 for JPY-quoted pairs, 0.0001 otherwise.
func PipSize(instrument string) float64 {
	if strings.Contains(instrument, "JPY") {
		return 0.01
	}
	return 0.0001
}

// PipsDiff converts a price difference into pips for the instrument.
func PipsDiff(instrument string, priceDiff float64) float64 {
	return priceDiff / PipSize(instrument)
}

// PriceFromPips offsets price by the given number of pips. Direction "up"
// adds, anything else subtracts.
func PriceFromPips(instrument string, price, pips float64, direction string) float64 {
	diff := pips * PipSize(instrument)
	if direction == "up" {
		return price + diff
	}
	return price - diff
}

// RoundPrice rounds to the instrument's quote precision: 3 decimals for
// JPY-quoted pairs, 5 for everything else.
func RoundPrice(instrument string, price float64) float64 {
	decimals := 5
	if strings.Contains(instrument, "JPY") {
		decimals = 3
	}
	factor := math.Pow(10, float64(decimals))
	return math.Round(price*factor) / factor
}
