// Package main is the entry point for the document service: a headless queue
// consumer that persists document metadata for land titles.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"landregistry/internal/dispatch"
	"landregistry/internal/domain/document"
	"landregistry/internal/events"
	"landregistry/internal/infrastructure/broker"
	"landregistry/internal/infrastructure/storage/postgres"
	"landregistry/internal/infrastructure/storage/postgres/document_repo"
	documentmigrations "landregistry/internal/migrations/document"
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

	log.Info("starting document service")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(
		mustEnv("DATABASE_URL"), "document"))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	if getEnv("RUN_MIGRATIONS", "true") == "true" {
		if err := documentmigrations.Apply(ctx, pool.Pool); err != nil {
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

	if err := brokerClient.DeclareQueue(ctx, events.QueueDocument); err != nil {
		log.Fatalw("failed to declare queue", "queue", events.QueueDocument, "error", err)
	}

	publisher := broker.NewPublisher(brokerClient, log)
	consumer := broker.NewConsumer(brokerClient, log)

	// --- Domain service ---
	documentRepo := document_repo.NewDocumentRepo(txManager)
	inbox := postgres.NewInboxStore(txManager, getEnvDuration("INBOX_TTL", 7*24*time.Hour))
	documentService := document.NewService(documentRepo, inbox, txManager, publisher, log)

	dispatcher := dispatch.NewDocument(documentService, log)

	// --- Queue consumer ---
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Consume(ctx, events.QueueDocument, dispatcher.Handle); err != nil && ctx.Err() == nil {
			log.Errorw("consumer stopped", "error", err)
		}
	}()

	// --- Inbox cleanup ---
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(getEnvDuration("INBOX_CLEANUP_INTERVAL", time.Hour))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := inbox.CleanupExpired(ctx); err != nil {
					log.Errorw("inbox cleanup failed", "error", err)
				} else if n > 0 {
					log.Infow("inbox records expired", "deleted", n)
				}
			}
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down document service...")
	cancel()
	wg.Wait()

	log.Info("document service stopped")
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
