package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"stockdesk/gateway/internal/activity"
	"stockdesk/gateway/internal/api"
	"stockdesk/gateway/internal/auth"
	"stockdesk/gateway/internal/clock"
	"stockdesk/gateway/internal/config"
	"stockdesk/gateway/internal/handlers"
	"stockdesk/gateway/internal/jobs"
	"stockdesk/gateway/internal/log"
	"stockdesk/gateway/internal/refresh"
	"stockdesk/gateway/internal/registry"
	"stockdesk/gateway/internal/server"
	"stockdesk/gateway/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	creds, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init credential store")
	}

	client := api.New(cfg.API.BaseURL, cfg.API.Timeout, func() string {
		c, err := creds.Load(context.Background())
		if err != nil {
			return ""
		}
		return c.AccessToken
	})

	orch := auth.New(auth.Config{
		Refresh: refresh.Config{
			Fraction:    cfg.Security.RefreshFraction,
			Floor:       cfg.Security.RefreshFloor,
			MaxAttempts: cfg.Security.RefreshMaxAttempts,
			BackoffBase: cfg.Security.RefreshBackoffBase,
			BackoffCap:  cfg.Security.RefreshBackoffCap,
		},
		Activity: activity.Config{
			IdleThreshold: cfg.Security.IdleThreshold,
			Tick:          cfg.Security.IdleTick,
		},
	}, client, creds, clock.New(), logger)

	if err := orch.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("session restore failed, starting unauthenticated")
	}

	sessions := registry.New(client, creds, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, orch, sessions)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	sweeper := jobs.NewScheduler(orch, cfg.Security.SweepInterval, logger)
	if err := sweeper.Start(); err != nil {
		logger.Error().Err(err).Msg("sweep start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, sweeper)
}

func newStore(ctx context.Context, cfg *config.AppConfig) (store.Store, error) {
	if cfg.Store.Backend == "redis" {
		client, err := store.NewRedisClient(ctx, cfg.Store.Redis)
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(client), nil
	}
	return store.NewFileStore(cfg.Store.Path)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, sweeper *jobs.Scheduler) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	sweeper.Stop()

	logger.Info().Msg("gateway exited cleanly")
}
