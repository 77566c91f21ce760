package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"sorso/internal/amqp"
	"sorso/internal/config"
	"sorso/internal/core"
	apphttp "sorso/internal/http"
	"sorso/internal/presets"
	"sorso/internal/scheduler"
	"sorso/internal/storage"
	"sorso/internal/store"
	"sorso/internal/tracker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Choose data backend (default: memory)
	var (
		entryStore   store.Store
		settings     = cfg.Settings()
		seedPresets  = core.DefaultPresets()
		reminderSeed []core.HydrationReminder
	)
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()

		if persisted, err := repo.LoadSettings(ctx); err != nil {
			logger.Warn("Failed to load persisted settings, using config defaults", "error", err)
		} else {
			settings = persisted
		}
		if stored, err := repo.LoadPresets(ctx); err != nil {
			logger.Warn("Failed to load presets", "error", err)
		} else if len(stored) > 0 {
			seedPresets = stored
		}
		if stored, err := repo.LoadReminders(ctx); err != nil {
			logger.Warn("Failed to load reminders", "error", err)
		} else {
			reminderSeed = stored
		}

		entryStore = repo
		logger.Info("Initialized sqlite backend", "path", cfg.SQLiteDBPath)
	default:
		entryStore = store.NewMemory()
		logger.Info("Initialized memory backend")
	}

	// Optional AMQP publishing; the tracker works locally without it
	var opts []tracker.Option
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			defer amqpClient.Close()
			opts = append(opts, tracker.WithPublisher(amqpClient))
			logger.Info("AMQP client initialized - entries will sync via sorso-worker")
		}
	}

	reg := presets.New(seedPresets)
	trk, err := tracker.New(entryStore, reg, settings, opts...)
	if err != nil {
		logger.Error("Failed to initialize tracker", "error", err)
		os.Exit(1)
	}
	if len(reminderSeed) > 0 {
		if err := trk.SetReminders(reminderSeed); err != nil {
			logger.Warn("Failed to seed reminders", "error", err)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, trk)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB
	defer srv.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting sorso server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if settings.ResetAtMidnight {
		roll := scheduler.NewRollover(trk.Location, trk.OnDayRollover)
		g.Go(func() error {
			if err := roll.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-gctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
