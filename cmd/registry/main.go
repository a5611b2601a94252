// Package main is the entry point for the land registry service: the title
// and transfer saga coordinators plus the public HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"landregistry/internal/dispatch"
	"landregistry/internal/domain/title"
	"landregistry/internal/domain/transfer"
	"landregistry/internal/events"
	"landregistry/internal/infrastructure/broker"
	v1 "landregistry/internal/infrastructure/http/v1"
	"landregistry/internal/infrastructure/ledger"
	registrymigrations "landregistry/internal/migrations/registry"
	"landregistry/internal/infrastructure/storage/postgres"
	"landregistry/internal/infrastructure/storage/postgres/registry_repo"
	"landregistry/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting registry service")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(
		mustEnv("DATABASE_URL"), "registry"))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	if getEnv("RUN_MIGRATIONS", "true") == "true" {
		if err := registrymigrations.Apply(ctx, pool.Pool); err != nil {
			log.Fatalw("failed to apply migrations", "error", err)
		}
		log.Info("migrations applied")
	}

	txManager := postgres.NewTxManager(pool)

	// --- Broker ---
	brokerClient := broker.NewClient(broker.Config{
		URL:            mustEnv("BROKER_URL"),
		ReconnectDelay: getEnvDuration("BROKER_RECONNECT_DELAY", broker.DefaultReconnectDelay),
	}, log)
	if err := brokerClient.Connect(ctx); err != nil {
		log.Fatalw("failed to connect to broker", "error", err)
	}
	defer func() { _ = brokerClient.Close() }()

	if err := brokerClient.DeclareQueue(ctx, events.QueueLandRegistry); err != nil {
		log.Fatalw("failed to declare queue", "queue", events.QueueLandRegistry, "error", err)
	}

	publisher := broker.NewPublisher(brokerClient, log)
	consumer := broker.NewConsumer(brokerClient, log)

	// --- Ledger ---
	ledgerClient := ledger.NewClient(ledger.Config{
		BaseURL: mustEnv("LEDGER_URL"),
		Timeout: getEnvDuration("LEDGER_TIMEOUT", 30*time.Second),
	}, log)

	// --- Domain services ---
	titleRepo := registry_repo.NewTitleRepo(txManager)
	transferRepo := registry_repo.NewTransferRepo(txManager)

	titleService := title.NewService(titleRepo, txManager, ledgerClient, publisher, log)
	transferService := transfer.NewService(transferRepo, titleRepo, txManager, ledgerClient, publisher, log)

	dispatcher := dispatch.NewRegistry(titleService, transferService, log)

	// --- Queue consumer ---
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Consume(ctx, events.QueueLandRegistry, dispatcher.Handle); err != nil && ctx.Err() == nil {
			log.Errorw("consumer stopped", "error", err)
		}
	}()

	// --- HTTP server ---
	router := v1.NewRegistryRouter(v1.RegistryRouterConfig{
		Titles:    titleService,
		Transfers: transferService,
		Publisher: publisher,
		Pool:      pool,
		Logger:    log,
	})

	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down registry service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	cancel()
	wg.Wait()

	log.Info("registry service stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
