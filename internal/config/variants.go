package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/oreliousw/lambda-oanda-bridge/internal/mood"
)

// Engine kinds. The reversal engine trades mood flips (capitulation into
// hope, greed into indecision); the breakout engine trades impulse breaks of
// recent structure in the direction of the higher-timeframe trend.
const (
	KindReversal = "reversal"
	KindBreakout = "breakout"
)

// Built-in variant names.
const (
	VariantReversalV2      = "reversal-v2"
	VariantReversalClassic = "reversal-classic"
	VariantBreakoutV31     = "breakout-v31"
)

// Engine is the full immutable parameter set for one engine configuration.
// It is passed into the signal builder and backtest simulator at construction
// so different variants can run side by side.
type Engine struct {
	Kind string `toml:"kind"`

	// Metric/indicator windows.
	VolumeWindow   int `toml:"volume_window"`
	RangeWindow    int `toml:"range_window"`
	ATRLength      int `toml:"atr_length"`
	TrendEMALength int `toml:"trend_ema_length"`

	// Reversal entry gates.
	SSIThreshold float64 `toml:"ssi_threshold"`
	EntryVolRs   float64 `toml:"entry_vol_rs"`
	EntryRngRs   float64 `toml:"entry_rng_rs"`

	// Breakout filters.
	MinATRPips            float64 `toml:"min_atr_pips"`
	ImpulseLookback       int     `toml:"impulse_lookback"`
	ImpulseMinPips        float64 `toml:"impulse_min_pips"`
	ImpulseRangeATRFactor float64 `toml:"impulse_range_atr_factor"`
	BreakoutBodyATRFactor float64 `toml:"breakout_body_atr_factor"`

	// Exits and sizing.
	RRTarget        float64 `toml:"rr_target"`
	RiskPercent     float64 `toml:"risk_percent"`
	MinDollarPerPip float64 `toml:"min_dollar_per_pip"`
	MinUnits        int     `toml:"min_units"`
	MaxUnits        int     `toml:"max_units"`
	MarginCap       bool    `toml:"margin_cap"`

	// Backtest same-bar double-touch tie-break: true resolves to the stop
	// (conservative), false to the target.
	StopFirst bool `toml:"stop_first"`

	Moods mood.Thresholds `toml:"moods"`
}

// BuiltinVariants returns the three engine configurations in active use.
func BuiltinVariants() map[string]Engine {
	v2Moods := mood.Thresholds{
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

	// The classic set omits the range-ratio co-conditions on fear and hope.
	classicMoods := v2Moods
	classicMoods.FearRngRs = 0
	classicMoods.HopeRngRs = 0

	reversal := Engine{
		Kind:            KindReversal,
		VolumeWindow:    20,
		RangeWindow:     14,
		ATRLength:       14,
		SSIThreshold:    0.5,
		EntryVolRs:      1.1,
		EntryRngRs:      1.1,
		RRTarget:        2.0,
		RiskPercent:     25.0,
		MinDollarPerPip: 1.0,
		MinUnits:        1000,
		MaxUnits:        12000,
		MarginCap:       true,
		StopFirst:       true,
		Moods:           v2Moods,
	}

	classic := reversal
	classic.Moods = classicMoods

	breakout := Engine{
		Kind:                  KindBreakout,
		VolumeWindow:          20,
		RangeWindow:           14,
		ATRLength:             14,
		TrendEMALength:        200,
		MinATRPips:            8.0,
		ImpulseLookback:       3,
		ImpulseMinPips:        10.0,
		ImpulseRangeATRFactor: 0.4,
		BreakoutBodyATRFactor: 0.3,
		RRTarget:              2.0,
		RiskPercent:           25.0,
		MinDollarPerPip:       1.0,
		MinUnits:              1000,
		MaxUnits:              15000,
		MarginCap:             false,
		StopFirst:             true,
	}

	return map[string]Engine{
		VariantReversalV2:      reversal,
		VariantReversalClassic: classic,
		VariantBreakoutV31:     breakout,
	}
}

// variantsFile is the TOML shape: [variants.<name>] tables, each starting
// from the named base variant (or reversal-v2 when base is empty) with the
// remaining keys overriding it.
type variantsFile struct {
	Variants map[string]variantOverride `toml:"variants"`
}

type variantOverride struct {
	Base string `toml:"base"`
	Engine
}

// LoadVariants returns the built-in variants merged with any definitions
// from the given TOML file. An empty path returns the built-ins unchanged.
func LoadVariants(path string) (map[string]Engine, error) {
	variants := BuiltinVariants()
	if path == "" {
		return variants, nil
	}

	var file variantsFile
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	for name, override := range file.Variants {
		base := override.Base
		if base == "" {
			base = VariantReversalV2
		}
		engine, ok := variants[base]
		if !ok {
			return nil, fmt.Errorf("variant %q: unknown base %q", name, base)
		}
		applyOverride(&engine, override.Engine, meta, name)
		variants[name] = engine
	}
	return variants, nil
}

// applyOverride copies only the keys actually present in the TOML table onto
// the base engine, so partial variant definitions work.
func applyOverride(dst *Engine, src Engine, meta toml.MetaData, name string) {
	has := func(key string) bool {
		return meta.IsDefined("variants", name, key)
	}

	if has("kind") {
		dst.Kind = src.Kind
	}
	if has("volume_window") {
		dst.VolumeWindow = src.VolumeWindow
	}
	if has("range_window") {
		dst.RangeWindow = src.RangeWindow
	}
	if has("atr_length") {
		dst.ATRLength = src.ATRLength
	}
	if has("trend_ema_length") {
		dst.TrendEMALength = src.TrendEMALength
	}
	if has("ssi_threshold") {
		dst.SSIThreshold = src.SSIThreshold
	}
	if has("entry_vol_rs") {
		dst.EntryVolRs = src.EntryVolRs
	}
	if has("entry_rng_rs") {
		dst.EntryRngRs = src.EntryRngRs
	}
	if has("min_atr_pips") {
		dst.MinATRPips = src.MinATRPips
	}
	if has("impulse_lookback") {
		dst.ImpulseLookback = src.ImpulseLookback
	}
	if has("impulse_min_pips") {
		dst.ImpulseMinPips = src.ImpulseMinPips
	}
	if has("impulse_range_atr_factor") {
		dst.ImpulseRangeATRFactor = src.ImpulseRangeATRFactor
	}
	if has("breakout_body_atr_factor") {
		dst.BreakoutBodyATRFactor = src.BreakoutBodyATRFactor
	}
	if has("rr_target") {
		dst.RRTarget = src.RRTarget
	}
	if has("risk_percent") {
		dst.RiskPercent = src.RiskPercent
	}
	if has("min_dollar_per_pip") {
		dst.MinDollarPerPip = src.MinDollarPerPip
	}
	if has("min_units") {
		dst.MinUnits = src.MinUnits
	}
	if has("max_units") {
		dst.MaxUnits = src.MaxUnits
	}
	if has("margin_cap") {
		dst.MarginCap = src.MarginCap
	}
	if has("stop_first") {
		dst.StopFirst = src.StopFirst
	}
	if has("moods") {
		dst.Moods = src.Moods
	}
}
