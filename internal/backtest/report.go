package backtest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oreliousw/lambda-oanda-bridge/models"
)

// Report aggregates simulated trades across instruments.
type Report struct {
	Trades    int     `json:"trades"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	Timeouts  int     `json:"timeouts"`
	WinRate   float64 `json:"win_rate"`
	AvgRR     float64 `json:"avg_rr"`
	AvgPips   float64 `json:"avg_pips"`
	TotalPips float64 `json:"total_pips"`

	ByInstrument map[string]InstrumentStats `json:"by_instrument"`
}

// InstrumentStats is the per-instrument slice of the report.
type InstrumentStats struct {
	Trades    int     `json:"trades"`
	Wins      int     `json:"wins"`
	WinRate   float64 `json:"win_rate"`
	TotalPips float64 `json:"total_pips"`
}

// Summarize folds a trade list into a report. Timeout exits count as neither
// win nor loss for the win rate, but their pips still land in the totals.
func Summarize(trades []models.BacktestTrade) Report {
	rep := Report{ByInstrument: make(map[string]InstrumentStats)}

	var rrSum float64
	for _, t := range trades {
		rep.Trades++
		rep.TotalPips += t.Pips
		rrSum += t.RR

		switch t.Result {
		case models.ResultTP:
			rep.Wins++
		case models.ResultSL:
			rep.Losses++
		default:
			rep.Timeouts++
		}

		stats := rep.ByInstrument[t.Instrument]
		stats.Trades++
		stats.TotalPips += t.Pips
		if t.Result == models.ResultTP {
			stats.Wins++
		}
		rep.ByInstrument[t.Instrument] = stats
	}

	if decided := rep.Wins + rep.Losses; decided > 0 {
		rep.WinRate = float64(rep.Wins) / float64(decided) * 100
	}
	if rep.Trades > 0 {
		rep.AvgRR = rrSum / float64(rep.Trades)
		rep.AvgPips = rep.TotalPips / float64(rep.Trades)
	}
	for inst, stats := range rep.ByInstrument {
		if stats.Trades > 0 {
			stats.WinRate = float64(stats.Wins) / float64(stats.Trades) * 100
		}
		rep.ByInstrument[inst] = stats
	}
	return rep
}

// String renders the report the way the scan CLI prints it.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "trades=%d wins=%d losses=%d timeouts=%d win_rate=%.1f%% avg_rr=%.2f total_pips=%.1f\n",
		r.Trades, r.Wins, r.Losses, r.Timeouts, r.WinRate, r.AvgRR, r.TotalPips)

	instruments := make([]string, 0, len(r.ByInstrument))
	for inst := range r.ByInstrument {
		instruments = append(instruments, inst)
	}
	sort.Strings(instruments)
	for _, inst := range instruments {
		s := r.ByInstrument[inst]
		fmt.Fprintf(&b, "  %-8s trades=%-3d wins=%-3d win_rate=%.1f%% pips=%.1f\n",
			inst, s.Trades, s.Wins, s.WinRate, s.TotalPips)
	}
	return b.String()
}
