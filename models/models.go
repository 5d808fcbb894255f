package models

import (
	"time"
)

// Candle represents a single completed OHLCV bar (mid price, UTC).
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Granularities used by the engine. M15 is the evaluation timeframe,
// H1 and H4 feed the higher-timeframe filters.
const (
	GranularityM15 = "M15"
	GranularityH1  = "H1"
	GranularityH4  = "H4"
)

// Signal sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
	SideNone = "NONE"
)

// Signal is the engine's decision for one instrument at one evaluation time.
// When Side is NONE the price fields are informational only and Units is 0.
type Signal struct {
	Instrument string  `json:"instrument"`
	Side       string  `json:"side"`
	EntryPrice float64 `json:"entry_price"`
	SLPrice    float64 `json:"sl_price"`
	TPPrice    float64 `json:"tp_price"`
	ATRPips    float64 `json:"atr_pips"`
	TPPips     float64 `json:"tp_pips"`
	SSI        float64 `json:"ssi"`
	Units      int     `json:"units"`
	Reason     string  `json:"reason"`
}

// Actionable reports whether the signal should be sent to the bridge.
func (s *Signal) Actionable() bool {
	return (s.Side == SideBuy || s.Side == SideSell) && s.Units > 0
}

// Backtest trade outcomes.
const (
	ResultTP      = "TP"      // target hit
	ResultSL      = "SL"      // stop hit
	ResultTimeout = "TIMEOUT" // forced exit at end of data
)

// BacktestTrade is one closed (or force-closed) simulated position.
// Pips is signed by direction; RR is Pips over the risk distance at entry.
type BacktestTrade struct {
	Instrument string    `json:"instrument" db:"instrument"`
	Side       string    `json:"side" db:"side"`
	EntryTime  time.Time `json:"entry_time" db:"entry_time"`
	ExitTime   time.Time `json:"exit_time" db:"exit_time"`
	EntryPrice float64   `json:"entry_price" db:"entry_price"`
	ExitPrice  float64   `json:"exit_price" db:"exit_price"`
	SLPrice    float64   `json:"sl_price" db:"sl_price"`
	TPPrice    float64   `json:"tp_price" db:"tp_price"`
	Result     string    `json:"result" db:"result"`
	RR         float64   `json:"rr" db:"rr"`
	Pips       float64   `json:"pips" db:"pips"`
}
