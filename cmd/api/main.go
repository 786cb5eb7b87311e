// cmd/api/main.go
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

	"masjid-collection/internal/auth"
	"masjid-collection/internal/blob"
	"masjid-collection/internal/config"
	"masjid-collection/internal/events"
	"masjid-collection/internal/handler"
	"masjid-collection/internal/middleware"
	"masjid-collection/internal/payments"
	"masjid-collection/internal/storage/backend"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.MustLoad()

	// Настройка логгера
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open storage", "backend", cfg.DataBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	blobs, err := blob.NewLocalStore(cfg.StorageDir, cfg.PublicBaseURL)
	if err != nil {
		slog.Error("Failed to prepare file storage", "dir", cfg.StorageDir, "error", err)
		os.Exit(1)
	}

	// без AMQP_URL события просто не отправляются
	var publisher events.Publisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Error("Failed to connect to AMQP", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
	}

	tokenService := auth.NewTokenService(cfg)
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	shot := blob.DefaultScreenshotOptions()
	shot.MaxBytes = cfg.MaxUploadBytes
	shot.MaxDim = cfg.ScreenshotMaxDim

	h := handler.New(handler.Options{
		Store:      store,
		Tokens:     tokenService,
		Blobs:      blobs,
		Events:     publisher,
		SubmitMode: payments.Mode(cfg.SubmitMode),
		Screenshot: shot,
	})

	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = cfg.MaxUploadBytes
	router.Static("/files", blobs.Root())

	h.Routes(router.Group("/api/v1"), authMiddleware.RequireAuth())

	srv := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server started", "addr", cfg.ServerPort, "backend", cfg.DataBackend, "submit_mode", cfg.SubmitMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server stopped with error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
