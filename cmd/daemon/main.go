// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stagecast/rundownd/internal/api"
	"github.com/stagecast/rundownd/internal/automation"
	"github.com/stagecast/rundownd/internal/broadcast"
	"github.com/stagecast/rundownd/internal/clock"
	"github.com/stagecast/rundownd/internal/config"
	"github.com/stagecast/rundownd/internal/daemon"
	"github.com/stagecast/rundownd/internal/health"
	"github.com/stagecast/rundownd/internal/lifecycle"
	rdlog "github.com/stagecast/rundownd/internal/log"
	"github.com/stagecast/rundownd/internal/playback"
	"github.com/stagecast/rundownd/internal/rundown"
	"github.com/stagecast/rundownd/internal/store"
	"github.com/stagecast/rundownd/internal/telemetry"
)

var (
	version   = "v0.3.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "config" {
		os.Exit(runConfigCLI(os.Args[2:]))
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded.
	rdlog.Configure(rdlog.Config{
		Level:   "info",
		Service: "rundownd",
		Version: version,
	})
	logger := rdlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Determine config path:
	// - Explicit via --config
	// - Otherwise auto-load ${RUNDOWND_DATA_DIR}/config.yaml if it exists
	explicitConfigPath := strings.TrimSpace(*configPath)
	effectiveConfigPath := explicitConfigPath
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString(config.EnvDataDir, "./data"))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectiveConfigPath = autoPath
		}
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(rdlog.FieldEvent, "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	// Configure is once-only per process; apply the loaded level directly.
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	source := "env+defaults"
	if effectiveConfigPath != "" {
		source = "file"
		if explicitConfigPath == "" {
			source = "file(auto)"
		}
	}
	logger.Info().
		Str(rdlog.FieldEvent, "config.loaded").
		Str("source", source).
		Str("path", effectiveConfigPath).
		Msg("configuration loaded")

	logger.Info().
		Str(rdlog.FieldEvent, "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.Server.Listen).
		Dur("tick_interval", cfg.TickInterval.Std()).
		Msg("starting rundownd")

	st, err := store.Open(ctx, cfg.StorePath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(rdlog.FieldEvent, "store.open_failed").
			Str("path", cfg.StorePath).
			Msg("failed to open rundown store")
	}

	entries, err := st.Load(ctx)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(rdlog.FieldEvent, "store.load_failed").
			Msg("failed to load rundown document")
	}
	logger.Info().
		Str(rdlog.FieldEvent, "rundown.loaded").
		Int("entries", len(entries)).
		Msg("rundown document loaded")

	src := clock.NewSystemSource()
	engine := playback.New(src)
	engine.SetIndex(rundown.Build(entries))

	hub := broadcast.NewHub()

	bus, err := automation.NewBus(cfg.Automation)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(rdlog.FieldEvent, "automation.init_failed").
			Msg("invalid automation subscriptions")
	}

	engine.SetObserver(lifecycle.New(hub, bus, engine))

	tracer, err := telemetry.NewProvider(ctx, cfg.TracerConfig("production"))
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(rdlog.FieldEvent, "telemetry.init_failed").
			Msg("failed to initialise tracing")
	}

	healthMgr := health.NewManager(version)
	healthMgr.RegisterChecker(health.NewStoreChecker(st.Ping))

	tracingService := ""
	if cfg.Telemetry.Enabled {
		tracingService = "rundownd"
	}
	apiServer := api.New(api.Options{
		Engine:         engine,
		Hub:            hub,
		Documents:      st,
		Health:         healthMgr,
		RateRPS:        cfg.Server.RateRPS,
		RateBurst:      cfg.Server.RateBurst,
		TracingService: tracingService,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Hot reload support: file watcher plus SIGHUP, both owned by App.
	cfgHolder := config.NewHolder(cfg, config.NewLoader(effectiveConfigPath, version), effectiveConfigPath)

	app := daemon.NewApp(daemon.Options{
		Engine:       engine,
		Clock:        src,
		Server:       httpServer,
		Store:        st,
		Bus:          bus,
		CfgHolder:    cfgHolder,
		TickInterval: cfg.TickInterval.Std(),
	})
	healthMgr.RegisterChecker(health.NewTickChecker(cfg.TickInterval.Std(), app.LastTick))

	runErr := app.Run(ctx)

	// Ordered teardown: stop accepting work, flush what is in flight, then
	// release storage and tracing.
	cfgHolder.Stop()
	hub.Close()
	bus.Drain()
	if err := st.Close(); err != nil {
		logger.Warn().Err(err).
			Str(rdlog.FieldEvent, "store.close_failed").
			Msg("failed to close rundown store")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).
			Str(rdlog.FieldEvent, "telemetry.shutdown_failed").
			Msg("failed to flush traces")
	}

	if runErr != nil {
		logger.Fatal().
			Err(runErr).
			Str(rdlog.FieldEvent, "daemon.failed").
			Msg("daemon exited with error")
	}
	logger.Info().
		Str(rdlog.FieldEvent, "shutdown.complete").
		Msg("rundownd stopped")
}
