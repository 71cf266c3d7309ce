package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"go-orchestrator/agent"
	"go-orchestrator/api"
	"go-orchestrator/archive"
	"go-orchestrator/config"
	"go-orchestrator/logger"
	"go-orchestrator/orchestrator"
	"go-orchestrator/registry"
	"go-orchestrator/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Failed to load .env file: %v", err)
	}

	cfg := config.FromEnv()
	logger.Init(cfg.LogFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	archiver, err := newArchiver(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize archive backend", "driver", cfg.ArchiveDriver, "error", err)
		os.Exit(1)
	}
	defer archiver.Close()

	taskStore := store.New(cfg.TaskHistoryLimit, archiver)
	serviceRegistry := registry.New(cfg.ServiceEndpoints)

	orc := orchestrator.New(serviceRegistry, taskStore,
		agent.NewRequirements(),
		agent.NewPlanning(),
		agent.NewDevelopment(serviceRegistry),
		agent.NewTesting(),
		agent.NewCommunication(serviceRegistry),
	)
	if err := orc.Initialize(ctx); err != nil {
		slog.Error("failed to initialize orchestrator", "error", err)
		os.Exit(1)
	}

	server := api.NewServer(cfg.ServerAddr, orc, serviceRegistry)

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	slog.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	orc.Shutdown(shutdownCtx)
	slog.Info("orchestrator stopped")
}

func newArchiver(ctx context.Context, cfg config.Config) (archive.Archiver, error) {
	switch cfg.ArchiveDriver {
	case "redis":
		return archive.NewRedis(ctx, cfg.RedisAddr)
	case "postgres":
		return archive.NewPostgres(ctx, cfg.PostgresURL)
	default:
		return archive.Discard{}, nil
	}
}
