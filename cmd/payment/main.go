// Package main is the entry point for the payment service: the payment
// workflow coordinator plus its HTTP API.
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
	"landregistry/internal/domain/payment"
	"landregistry/internal/events"
	"landregistry/internal/infrastructure/broker"
	v1 "landregistry/internal/infrastructure/http/v1"
	"landregistry/internal/infrastructure/storage/postgres"
	paymentmigrations "landregistry/internal/migrations/payment"
	"landregistry/internal/infrastructure/storage/postgres/payment_repo"
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

	log.Info("starting payment service")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(
		mustEnv("DATABASE_URL"), "payment"))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	if getEnv("RUN_MIGRATIONS", "true") == "true" {
		if err := paymentmigrations.Apply(ctx, pool.Pool); err != nil {
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

	if err := brokerClient.DeclareQueue(ctx, events.QueuePayment); err != nil {
		log.Fatalw("failed to declare queue", "queue", events.QueuePayment, "error", err)
	}

	publisher := broker.NewPublisher(brokerClient, log)
	consumer := broker.NewConsumer(brokerClient, log)

	// --- Domain service ---
	paymentRepo := payment_repo.NewPaymentRepo(txManager)
	paymentService := payment.NewService(paymentRepo, txManager, publisher, log)

	dispatcher := dispatch.NewPayment(paymentService, log)

	// --- Queue consumer ---
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Consume(ctx, events.QueuePayment, dispatcher.Handle); err != nil && ctx.Err() == nil {
			log.Errorw("consumer stopped", "error", err)
		}
	}()

	// --- HTTP server ---
	router := v1.NewPaymentRouter(v1.PaymentRouterConfig{
		Payments:  paymentService,
		Publisher: publisher,
		Pool:      pool,
		Logger:    log,
	})

	port := getEnv("APP_PORT", "8081")
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

	log.Info("shutting down payment service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	cancel()
	wg.Wait()

	log.Info("payment service stopped")
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
