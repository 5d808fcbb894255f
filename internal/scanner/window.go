package scanner

import "time"

// TradingWindowOpen reports whether the forex week is open at t (server
// local time): from Sunday 14:00 until Friday 14:00.
func TradingWindowOpen(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday:
		return false
	case time.Sunday:
		return t.Hour() >= 14
	case time.Friday:
		return t.Hour() < 14
	default:
		return true
	}
}
