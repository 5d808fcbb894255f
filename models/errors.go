package models

import "errors"

// Error taxonomy for signal evaluation and dispatch. Callers wrap these with
// fmt.Errorf("...: %w", ...) and match with errors.Is. Per-instrument failures
// are converted to NONE signals by the scanner so one bad instrument never
// aborts a multi-instrument run.
var (
	// ErrDataUnavailable means an upstream candle/equity/position fetch
	// failed or returned nothing usable.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrInsufficientHistory means fewer bars were returned than the
	// indicator warm-up requires.
	ErrInsufficientHistory = errors.New("insufficient candle history")

	// ErrInvalidComputation means a derived value (ATR, risk distance,
	// position size) came out non-positive. This is an expected, frequent
	// no-trade outcome, not a crash.
	ErrInvalidComputation = errors.New("invalid computation")

	// ErrDispatchRejected means the order bridge refused the trade.
	ErrDispatchRejected = errors.New("bridge rejected dispatch")
)
