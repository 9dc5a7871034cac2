package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/parlaybot/config"
	"github.com/alejandrodnm/parlaybot/internal/adapters/notify"
	"github.com/alejandrodnm/parlaybot/internal/adapters/storage"
	"github.com/alejandrodnm/parlaybot/internal/adapters/treasury"
	venueadapter "github.com/alejandrodnm/parlaybot/internal/adapters/venue"
	"github.com/alejandrodnm/parlaybot/internal/domain"
	"github.com/alejandrodnm/parlaybot/internal/engine"
	"github.com/alejandrodnm/parlaybot/internal/ports"
	"github.com/alejandrodnm/parlaybot/internal/pricing"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one settlement cycle and exit")
	dryRun := flag.Bool("dry-run", false, "use in-memory fixtures instead of the real venue")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print open bets as a full table")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	params, err := cfg.Params()
	if err != nil {
		slog.Error("invalid engine params", "err", err)
		os.Exit(1)
	}

	sgpTable, err := pricing.LoadSGPTable(cfg.Engine.SGPFeesPath)
	if err != nil {
		slog.Error("failed to load sgp fee ladder", "err", err, "path", cfg.Engine.SGPFeesPath)
		os.Exit(1)
	}

	slog.Info("parlaybot starting",
		"config", *configPath,
		"settle_interval", cfg.SettleInterval(),
		"sgp_entries", sgpTable.Len(),
		"dry_run", *dryRun,
		"once", *once,
	)

	pool := treasury.NewPool()
	deps := engine.Deps{
		Pool:      pool,
		Referrals: treasury.NewReferrals(),
		Ramp:      treasury.NewRamp(pool),
		Events:    notify.NewConsole(*table),
	}

	if *dryRun {
		deps.Venue = demoVenue()
		pool.Seed(domain.Fix(1_000_000))
	} else {
		deps.Venue = venueadapter.NewHTTP(venueadapter.NewClient(cfg.Venue.Base))

		store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
		deps.Store = store
	}

	eng := engine.New(deps, sgpTable, params, cfg.Engine.Operator)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := eng.Restore(ctx); err != nil {
		slog.Error("failed to restore state", "err", err)
		os.Exit(1)
	}
	printOpenBets(eng, deps.Events)

	if err := eng.RunSettlement(ctx, cfg.SettleInterval(), *once || *dryRun); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("parlaybot stopped cleanly")
}

// printOpenBets imprime el estado inicial si el sink es la consola.
func printOpenBets(eng *engine.Engine, sink ports.EventSink) {
	if console, ok := sink.(*notify.Console); ok {
		console.PrintBets(eng.OpenBets())
	}
}

// demoVenue monta un venue estático con un par de partidos de ejemplo para
// probar cotizaciones sin venue real.
func demoVenue() *venueadapter.Static {
	v := venueadapter.NewStatic()
	cap := domain.Fix(100_000)

	v.AddMarket(
		domain.Market{ID: "demo-1", OutcomeCount: 3, Tag1: "demo-match-1"},
		map[domain.Outcome]*uint256.Int{
			domain.Home: domain.MustFix("0.5"),
			domain.Away: domain.MustFix("0.3"),
			domain.Draw: domain.MustFix("0.2"),
		}, cap)
	v.AddMarket(
		domain.Market{ID: "demo-1-total", OutcomeCount: 2, Tag1: "demo-match-1", Tag2: "total", ParentID: "demo-1"},
		map[domain.Outcome]*uint256.Int{
			domain.Over:  domain.MustFix("0.45"),
			domain.Under: domain.MustFix("0.55"),
		}, cap)
	v.AddMarket(
		domain.Market{ID: "demo-2", OutcomeCount: 3, Tag1: "demo-match-2"},
		map[domain.Outcome]*uint256.Int{
			domain.Home: domain.MustFix("0.4"),
			domain.Away: domain.MustFix("0.35"),
			domain.Draw: domain.MustFix("0.25"),
		}, cap)
	return v
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
