// Command mes is the multi-timeframe signal engine CLI: one-shot scans,
// unattended auto-trading cycles, historical backtests and a cron daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oreliousw/lambda-oanda-bridge/internal/backtest"
	"github.com/oreliousw/lambda-oanda-bridge/internal/bridge"
	"github.com/oreliousw/lambda-oanda-bridge/internal/config"
	"github.com/oreliousw/lambda-oanda-bridge/internal/notify"
	"github.com/oreliousw/lambda-oanda-bridge/internal/oanda"
	"github.com/oreliousw/lambda-oanda-bridge/internal/scanner"
	sigbuilder "github.com/oreliousw/lambda-oanda-bridge/internal/signal"
	"github.com/oreliousw/lambda-oanda-bridge/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}
	setupLogging(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	app, err := newApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("assembling application")
	}
	defer app.close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch os.Args[1] {
	case "scan":
		err = app.runScan(ctx, os.Args[2:])
	case "auto":
		err = app.runAuto(ctx, os.Args[2:])
	case "backtest":
		err = app.runBacktest(ctx, os.Args[2:])
	case "daemon":
		err = app.runDaemon(ctx)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("command failed")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: mes <command> [flags]

commands:
  scan      evaluate every instrument once and print the signals
  auto      run one auto-trade cycle (window, cap, dispatch)
  backtest  replay the engine over historical candles
  daemon    run auto cycles on a 15-minute schedule

flags:
  scan     [--telegram]
  auto     [--telegram]
  backtest [--days N] [--pair INSTRUMENT]`)
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// app holds the wired components for one process.
type app struct {
	cfg      *config.Config
	client   *oanda.Client
	source   sigbuilder.CandleSource
	cache    *oanda.CachedSource
	store    *storage.Store
	notifier *notify.Notifier
	scanner  *scanner.Scanner
}

func newApp(cfg *config.Config) (*app, error) {
	logger := log.Logger
	timeout := time.Duration(cfg.RequestTimeout) * time.Second

	a := &app{cfg: cfg}
	a.client = oanda.NewClient(cfg.RestURL(), cfg.OandaAPIKey, cfg.OandaAccountID, timeout, logger)

	a.source = a.client
	if cfg.RedisAddr != "" {
		a.cache = oanda.NewCachedSource(a.client, cfg.RedisAddr, logger)
		a.source = a.cache
	}

	if cfg.DatabaseURL != "" {
		store, err := storage.New(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	builder := sigbuilder.NewBuilder(a.source, cfg.Engine, cfg.CandleCount, logger)
	dispatcher := bridge.NewDispatcher(cfg.BridgeURL, timeout, logger)
	a.scanner = scanner.New(builder, a.client, dispatcher, nil, a.store, cfg, logger)
	return a, nil
}

func (a *app) close() {
	if a.cache != nil {
		a.cache.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// withNotifier attaches Telegram when requested and configured. Rebuilds the
// scanner because the notifier is part of its wiring.
func (a *app) withNotifier(enabled bool) error {
	if !enabled {
		return nil
	}
	if a.cfg.TelegramBotToken == "" || a.cfg.TelegramChatID == "" {
		return fmt.Errorf("--telegram requires TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
	}
	chatID, err := strconv.ParseInt(a.cfg.TelegramChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
	}
	a.notifier, err = notify.NewNotifier(a.cfg.TelegramBotToken, chatID, log.Logger)
	if err != nil {
		return err
	}

	timeout := time.Duration(a.cfg.RequestTimeout) * time.Second
	builder := sigbuilder.NewBuilder(a.source, a.cfg.Engine, a.cfg.CandleCount, log.Logger)
	dispatcher := bridge.NewDispatcher(a.cfg.BridgeURL, timeout, log.Logger)
	a.scanner = scanner.New(builder, a.client, dispatcher, a.notifier, a.store, a.cfg, log.Logger)
	return nil
}

func (a *app) runScan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	telegram := fs.Bool("telegram", false, "send the scan summary to Telegram")
	fs.Parse(args)
	if err := a.withNotifier(*telegram); err != nil {
		return err
	}

	equity, err := a.client.GetAccountEquity(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("equity unavailable, sizing against 1000.00")
		equity = 1000
	}

	signals := a.scanner.Scan(ctx, equity)
	for _, sig := range signals {
		if sig.Actionable() {
			fmt.Printf("%-8s %-4s entry=%.5f sl=%.5f tp=%.5f units=%d ssi=%.2f\n",
				sig.Instrument, sig.Side, sig.EntryPrice, sig.SLPrice, sig.TPPrice, sig.Units, sig.SSI)
		} else {
			fmt.Printf("%-8s NONE %s\n", sig.Instrument, sig.Reason)
		}
	}
	if a.notifier != nil {
		a.notifier.SendSignals(signals)
	}
	return nil
}

func (a *app) runAuto(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("auto", flag.ExitOnError)
	telegram := fs.Bool("telegram", false, "send the cycle summary to Telegram")
	fs.Parse(args)
	if err := a.withNotifier(*telegram); err != nil {
		return err
	}
	return a.scanner.Auto(ctx)
}

func (a *app) runBacktest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	days := fs.Int("days", a.cfg.BacktestDays, "replay window in days")
	pair := fs.String("pair", "", "limit the replay to one instrument")
	fs.Parse(args)

	instruments := a.cfg.Instruments
	if *pair != "" {
		instruments = []string{*pair}
	}

	runner := backtest.NewRunner(a.source, a.cfg.Engine, log.Logger)
	trades, err := runner.Run(ctx, instruments, *days)
	if err != nil {
		return err
	}

	report := backtest.Summarize(trades)
	fmt.Print(report.String())

	if a.store != nil {
		if err := a.store.SaveBacktest(ctx, uuid.New().String(), trades); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) runDaemon(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc("*/15 * * * *", func() {
		cycleCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if err := a.scanner.Auto(cycleCtx); err != nil {
			log.Error().Err(err).Msg("auto cycle failed")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling auto cycle: %w", err)
	}

	log.Info().
		Strs("instruments", a.cfg.Instruments).
		Str("variant", a.cfg.VariantName).
		Msg("daemon started, auto cycle every 15 minutes")
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	log.Info().Msg("daemon stopped")
	return nil
}
