package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration. Credentials and runtime knobs
// come from the environment (with .env support); engine threshold sets are
// named variants, either built in or loaded from a TOML file.
type Config struct {
	OandaAPIKey    string
	OandaAccountID string
	OandaEnv       string // "practice" or "live"
	BridgeURL      string

	TelegramBotToken string
	TelegramChatID   string

	DatabaseURL string // optional: postgres recorder
	RedisAddr   string // optional: candle cache

	Instruments   []string
	CandleCount   int
	MaxOpenTrades int
	BacktestDays  int

	RequestTimeout int // seconds
	LogLevel       string

	VariantsFile string
	VariantName  string
	Engine       Engine
}

// defaultInstruments is the scan universe from the production setup.
var defaultInstruments = []string{
	"EUR_USD",
	"GBP_USD",
	"USD_CAD",
	"USD_CHF",
	"AUD_USD",
	"NZD_USD",
}

// Load initializes configuration from environment variables and resolves the
// selected engine variant.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{
		OandaAPIKey:      os.Getenv("OANDA_API_KEY"),
		OandaAccountID:   os.Getenv("OANDA_ACCOUNT_ID"),
		OandaEnv:         strings.ToLower(getEnvWithDefault("OANDA_ENV", "practice")),
		BridgeURL:        os.Getenv("OANDA_BRIDGE_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		CandleCount:      getEnvIntWithDefault("CANDLE_COUNT", 500),
		MaxOpenTrades:    getEnvIntWithDefault("MAX_OPEN_TRADES", 3),
		BacktestDays:     getEnvIntWithDefault("BACKTEST_DAYS", 30),
		RequestTimeout:   getEnvIntWithDefault("REQUEST_TIMEOUT", 15),
		LogLevel:         getEnvWithDefault("LOG_LEVEL", "info"),
		VariantsFile:     os.Getenv("ENGINE_VARIANTS_FILE"),
		VariantName:      getEnvWithDefault("ENGINE_VARIANT", VariantReversalV2),
	}

	if list := os.Getenv("INSTRUMENTS"); list != "" {
		for _, inst := range strings.Split(list, ",") {
			if inst = strings.TrimSpace(inst); inst != "" {
				cfg.Instruments = append(cfg.Instruments, inst)
			}
		}
	} else {
		cfg.Instruments = defaultInstruments
	}

	variants, err := LoadVariants(cfg.VariantsFile)
	if err != nil {
		return nil, fmt.Errorf("loading engine variants: %w", err)
	}
	engine, ok := variants[cfg.VariantName]
	if !ok {
		return nil, fmt.Errorf("unknown engine variant %q", cfg.VariantName)
	}
	cfg.Engine = engine

	return cfg, nil
}

// Validate checks the mandatory credentials. Called once before any
// evaluation starts; this is the only failure that aborts a whole run.
func (c *Config) Validate() error {
	if c.OandaAPIKey == "" {
		return fmt.Errorf("OANDA_API_KEY not set")
	}
	if c.OandaAccountID == "" {
		return fmt.Errorf("OANDA_ACCOUNT_ID not set")
	}
	return nil
}

// RestURL returns the OANDA REST host for the configured environment.
func (c *Config) RestURL() string {
	if c.OandaEnv == "live" {
		return "https://api-fxtrade.oanda.com"
	}
	return "https://api-fxpractice.oanda.com"
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
