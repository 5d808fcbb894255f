// Package risk computes position sizes from account equity and the signal's
// risk distance. The 25% risk fraction is the engine's deliberate
// aggressive-sizing choice; the hard unit clamp keeps sizes demo-account
// safe regardless.
package risk

import (
	"fmt"
	"math"

	"github.com/oreliousw/lambda-oanda-bridge/internal/config"
	"github.com/oreliousw/lambda-oanda-bridge/models"
)

// Units sizes a position so that riskPips of adverse movement costs
// equity × risk-percent. The result is floored at the minimum
// dollar-per-pip size, optionally capped at 90% margin affordability, and
// clamped to the engine's [MinUnits, MaxUnits] band.
func Units(instrument string, equity, entry, riskPips float64, cfg config.Engine) (int, error) {
	if equity <= 0 {
		return 0, fmt.Errorf("%w: non-positive equity %.2f", models.ErrInvalidComputation, equity)
	}
	if riskPips <= 0 {
		return 0, fmt.Errorf("%w: non-positive risk distance %.1f pips", models.ErrInvalidComputation, riskPips)
	}

	pip := models.PipSize(instrument)
	riskAmount := equity * cfg.RiskPercent / 100.0
	perUnitRisk := riskPips * pip

	units := riskAmount / perUnitRisk

	// Keep at least ~$MinDollarPerPip of pip value on the table.
	if unitsMin := cfg.MinDollarPerPip / pip; units < unitsMin {
		units = unitsMin
	}

	// Margin buffer: never commit more than 90% of equity at the entry price.
	if cfg.MarginCap && entry > 0 {
		if maxAfford := equity * 0.9 / entry; units > maxAfford {
			units = maxAfford
		}
	}

	if units < float64(cfg.MinUnits) {
		units = float64(cfg.MinUnits)
	}
	if units > float64(cfg.MaxUnits) {
		units = float64(cfg.MaxUnits)
	}
	return int(math.Round(units)), nil
}
