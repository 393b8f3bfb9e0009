package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clickrush/internal/api"
	"clickrush/internal/auth"
	"clickrush/internal/config"
	"clickrush/internal/db"
	"clickrush/internal/game"
	"clickrush/internal/realtime"
	"clickrush/internal/store/memory"
	"clickrush/internal/store/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var store game.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := postgres.New(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("schema init failed", "err", err)
			os.Exit(1)
		}
		store = pg
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		store = memory.New()
	}

	gameSvc := game.NewService(store, game.NewHighScoreCache(), cfg.ItemsFeedURL, logger)
	if cfg.StartupSeedItems && cfg.ItemsFeedURL != "" {
		if _, err := gameSvc.SeedItems(ctx); err != nil {
			logger.Error("seed items failed", "err", err)
			os.Exit(1)
		}
	}

	hub := realtime.NewHub(logger)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	driver := game.NewPassiveIncome(gameSvc, hub, cfg.PassiveTickEvery, logger)
	go driver.Run(ctx)

	server := api.New(cfg, logger, tokens, gameSvc, hub)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("clickrush api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
