package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/markwilliams0n/aurelius-hq-sub001/config"
	"github.com/markwilliams0n/aurelius-hq-sub001/internal/bootstrap"
	"github.com/markwilliams0n/aurelius-hq-sub001/pkg/logger"
)

const (
	shutdownTimeout = 30 * time.Second // Maximum time to wait for graceful shutdown
)

func main() {
	// Initialize logger early
	logger.Init(logger.Config{
		Level:   logger.ParseLevel(os.Getenv("LOG_LEVEL")),
		Service: "triage",
	})

	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	worker, cleanup, err := bootstrap.NewWorker(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize worker: %v", err)
	}
	defer cleanup()

	if err := worker.Start(); err != nil {
		logger.Fatal("Failed to start worker: %v", err)
	}
	logger.Info("Worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down worker (timeout: %v)...", shutdownTimeout)

	done := make(chan struct{})
	go func() {
		worker.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Worker shut down gracefully")
	case <-time.After(shutdownTimeout):
		logger.Warn("Worker shutdown timed out, forcing exit")
		os.Exit(1)
	}
}
