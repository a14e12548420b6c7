// Package app provides the application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies: the Telegram bot, the
// media pipeline, the download backends, and the background watchdogs for
// scratch cleanup and proxy health.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-media-bot/internal/bot"
	"github.com/lueurxax/telegram-media-bot/internal/downloader"
	"github.com/lueurxax/telegram-media-bot/internal/llm"
	"github.com/lueurxax/telegram-media-bot/internal/pipeline"
	"github.com/lueurxax/telegram-media-bot/internal/platform/config"
	"github.com/lueurxax/telegram-media-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-media-bot/internal/platform/worker"
	"github.com/lueurxax/telegram-media-bot/internal/storage"
	"github.com/lueurxax/telegram-media-bot/internal/transcode"
)

// App holds the application dependencies.
type App struct {
	cfg      *config.Config
	database *storage.DB
	logger   *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *storage.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunBot runs the bot: update loop, media pipeline, and watchdogs.
func (a *App) RunBot(ctx context.Context) error {
	a.logger.Info().Msg("Starting bot mode")

	if err := os.MkdirAll(a.cfg.ScratchDir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}

	llmClient := llm.New(a.cfg, a.logger)
	dl := downloader.New(a.cfg, a.logger)
	tr := transcode.New(a.cfg, a.logger)

	b, err := bot.New(a.cfg, a.database, llmClient, dl, a.logger)
	if err != nil {
		return fmt.Errorf("bot initialization failed: %w", err)
	}

	// The pipeline delivers through the bot and the bot submits to the
	// pipeline, so they are wired after both exist.
	p := pipeline.New(a.cfg, dl, tr, b, a.database, a.logger)
	b.SetPipeline(p)

	go a.runScratchWatchdog(ctx)
	go a.runProxyWatchdog(ctx, dl)

	if err := b.Run(ctx); err != nil {
		return fmt.Errorf("bot run: %w", err)
	}

	return nil
}

// runScratchWatchdog periodically removes orphaned scratch files.
func (a *App) runScratchWatchdog(ctx context.Context) {
	err := worker.TickerLoop(ctx, worker.TickerConfig{
		Name:       "scratch-cleanup",
		Interval:   a.cfg.CleanupInterval,
		RunOnStart: true,
		Logger:     a.logger,
		OnTick: func(context.Context) {
			downloader.SweepScratch(a.cfg.ScratchDir, a.cfg.CleanupMaxAge, a.logger)
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn().Err(err).Msg("scratch watchdog stopped")
	}
}

// runProxyWatchdog keeps the proxy health gauge current.
func (a *App) runProxyWatchdog(ctx context.Context, dl *downloader.Downloader) {
	err := worker.TickerLoop(ctx, worker.TickerConfig{
		Name:       "proxy-health",
		Interval:   a.cfg.ProxyCheckInterval,
		RunOnStart: true,
		Logger:     a.logger,
		OnTick: func(ctx context.Context) {
			dl.CheckProxies(ctx)
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn().Err(err).Msg("proxy watchdog stopped")
	}
}
