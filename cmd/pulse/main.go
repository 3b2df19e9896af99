package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/project-pulse/internal/analytics"
	"github.com/p-blackswan/project-pulse/internal/api"
	"github.com/p-blackswan/project-pulse/internal/config"
	"github.com/p-blackswan/project-pulse/internal/health"
	"github.com/p-blackswan/project-pulse/internal/metrics"
	"github.com/p-blackswan/project-pulse/internal/reconcile"
	"github.com/p-blackswan/project-pulse/internal/service"
	"github.com/p-blackswan/project-pulse/internal/source"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.TuningPath).Msg("failed to load tuning file")
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Dur("cache_ttl", cfg.CacheTTL).
		Int("cache_max_size", cfg.CacheMaxSize).
		Bool("github_enabled", cfg.GitHubEnabled()).
		Msg("starting project pulse")

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Wire the engine
	m := metrics.New()
	engine := reconcile.NewEngine(m, logger)
	scorer := health.NewScorer(tuning)

	analyticsOpts := []analytics.Option{
		analytics.WithVelocityWeeks(cfg.VelocityWeeks),
		analytics.WithThresholds(cfg.BlockedAfterDays, cfg.StaleAfterDays),
	}
	if tuning != nil {
		analyticsOpts = append(analyticsOpts,
			analytics.WithVelocityWeeks(tuning.VelocityWeeks),
			analytics.WithThresholds(tuning.BlockedAfterDays, tuning.StaleAfterDays))
	}
	an := analytics.NewEngine(analyticsOpts...)

	feed := source.NewPlanningFeed()
	activityLog := source.NewActivityLog(cfg.ActivityWindowDays)

	svc := service.New(cfg, engine, scorer, an, feed, m, logger)
	svc.UsePlanning(feed)
	svc.UseActivity(activityLog)
	svc.Start(ctx)

	// Optional GitHub VCS source. The engine itself never performs network
	// I/O; providers run upstream and feed snapshots in.
	if cfg.GitHubEnabled() {
		svc.UseVCS(source.NewGitHubProvider(cfg.GitHubToken, cfg.GitHubOwner, logger))
		logger.Info().Str("owner", cfg.GitHubOwner).Msg("GitHub VCS source configured")
	} else {
		logger.Info().Msg("GitHub not configured, reconciling without VCS snapshots")
	}

	server := api.NewServer(api.ServerConfig{
		ListenAddr: cfg.ListenAddr,
		Auth: api.AuthConfig{
			Mode:      cfg.AuthMode,
			APIKey:    cfg.APIKey,
			JWTSecret: cfg.JWTSecret,
		},
		CORSOrigins: cfg.CORSOrigins,
	}, svc, api.Ingest{Feed: feed, ActivityLog: activityLog}, m, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("api server failed")
		}
	}

	cancel()
	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
