package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AnTengye/bettertender/backend/config"
	"github.com/AnTengye/bettertender/backend/handler"
	"github.com/AnTengye/bettertender/backend/pkg/logger"
	"github.com/AnTengye/bettertender/backend/service"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	ctx := context.Background()

	store, err := service.OpenStore(ctx, &cfg.Store)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO service", "error", err)
		os.Exit(1)
	}

	// Ensure bucket exists
	if err := minioSvc.EnsureBucket(ctx); err != nil {
		slog.Error("failed to ensure MINIO bucket", "error", err)
		os.Exit(1)
	}

	ledger := service.NewLedger()
	users := service.NewUserService(store, ledger, &cfg.Auth)
	if err := users.Bootstrap(ctx, cfg.Users); err != nil {
		slog.Error("failed to bootstrap users", "error", err)
		os.Exit(1)
	}
	audit := service.NewAuditService(store, ledger)

	// A broken chain is reported at startup but does not stop the service
	if n, err := audit.VerifyChain(ctx); err != nil {
		slog.Error("audit chain verification failed at startup", "error", err)
	} else {
		slog.Info("audit chain verified", "entries", n)
	}

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(cfg, &handler.Services{
		Users:       users,
		Tenders:     service.NewTenderService(store, ledger),
		Submissions: service.NewSubmissionService(store, ledger, &cfg.Lifecycle),
		Documents:   service.NewDocumentService(store, ledger, minioSvc),
		Audit:       audit,
	})

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}
