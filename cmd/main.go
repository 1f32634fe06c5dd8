/*
Package main is the entry point for the RainChat server.

It loads configuration, initializes the global logging system, wires the optional
balance store and history archiver, starts the Hub run loop and the Scheduler,
and handles operating system interrupt signals and unrecoverable hub faults with
one graceful shutdown sequence.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rainchat/internal/app/archive"
	"rainchat/internal/app/balance"
	"rainchat/internal/app/chat"
	"rainchat/internal/configs"
	"rainchat/internal/handler"
	"rainchat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("rooms", cfg.Rooms).
		Str("default_room", cfg.DefaultRoom).
		Int64("rain_threshold", cfg.RainThreshold).
		Msg("Configuration loaded successfully")

	// Optional durable balance store
	var store balance.Store
	if cfg.DatabaseDSN != "" {
		pgStore, err := balance.NewPostgresStore(cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to initialize balance store")
		}
		defer pgStore.Close()
		store = pgStore
		logx.Info("Balance store connected")
	} else {
		logx.Warn("DATABASE_URL not set; balances are session-cached only")
	}

	// Optional history archiver
	var archiver archive.Service
	if cfg.S3BucketName != "" {
		archiver, err = archive.NewService(archive.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize history archiver")
		}
		logx.Info("History archiver configured", "bucket", cfg.S3BucketName)
	}

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Hub owns all shared chat and economy state; Scheduler owns every timer.
	hub := chat.NewHub(cfg, store, archiver)
	go hub.Run()

	scheduler := chat.NewScheduler(cfg, hub)
	scheduler.Start()

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{Hub: hub, Config: cfg})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("RainChat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for an interrupt signal or an unrecoverable hub fault; both paths
	// run the same graceful shutdown sequence.
	select {
	case <-ctx.Done():
		logx.Info("Received shutdown signal. Starting graceful shutdown...")
	case err := <-hub.Fatal():
		logx.Error(err, "Hub reported an unrecoverable fault. Starting graceful shutdown...")
	}

	scheduler.Stop()
	hub.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
