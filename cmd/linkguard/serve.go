package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alertalink/linkguard/internal/api"
	"github.com/alertalink/linkguard/internal/bus"
	"github.com/alertalink/linkguard/internal/cache"
	"github.com/alertalink/linkguard/internal/domain"
	"github.com/alertalink/linkguard/internal/engine"
	"github.com/alertalink/linkguard/internal/ml"
	"github.com/alertalink/linkguard/internal/reputation"
	"github.com/alertalink/linkguard/internal/safeurl"
	"github.com/alertalink/linkguard/internal/signals"

	repo "github.com/alertalink/linkguard/internal/repository"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := domain.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	slog.Info("starting linkguard",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repository, err := repo.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repository.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	store := signals.NewStore(signals.DefaultWeightTable())
	if cfg.Weights.Path != "" {
		if err := store.LoadFile(cfg.Weights.Path); err != nil {
			slog.Warn("using built-in weights", "error", err)
		} else {
			slog.Info("calibrated weights loaded",
				"path", cfg.Weights.Path,
				"version", store.Current().Version,
			)
		}
		if cfg.Weights.HotReload {
			go func() {
				if err := signals.WatchWeights(ctx, store, cfg.Weights.Path, logger); err != nil {
					slog.Warn("weight hot-reload unavailable", "error", err)
				}
			}()
		}
	}

	generator := signals.NewGenerator(store)
	if len(cfg.Rules) > 0 {
		if err := generator.LoadCustomRules(cfg.Rules); err != nil {
			return fmt.Errorf("failed to load custom rules: %w", err)
		}
		slog.Info("custom rules loaded", "count", len(cfg.Rules))
	}

	var model domain.ModelProvider = ml.None()
	if cfg.Model.Path != "" {
		m, err := ml.Load(cfg.Model.Path)
		if err != nil {
			slog.Warn("model unavailable, falling back to heuristic-only", "error", err)
		} else {
			model = m
			slog.Info("model loaded", "path", cfg.Model.Path)
		}
	}

	eng := engine.New(engine.Deps{
		Weights:    store,
		Generator:  generator,
		Model:      model,
		Reputation: reputation.NewTranco(cfg.Reputation, cacheImpl, logger),
		Malware:    reputation.NewVirusTotal(cfg.Reputation, cacheImpl, logger),
		DomainAge:  reputation.NewWhoisAge(cfg.Reputation, cacheImpl, logger),
		Repository: repository,
		Bus:        busImpl,
		Logger:     logger,
	})

	srv := api.NewServer(cfg.Server, eng, repository, cacheImpl, busImpl,
		store, cfg.Weights.Path, safeurl.NewValidator(), Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	slog.Info("linkguard is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("linkguard shutdown complete")
	return nil
}
