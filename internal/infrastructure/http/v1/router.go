// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"landregistry/internal/domain/payment"
	"landregistry/internal/domain/title"
	"landregistry/internal/domain/transfer"
	"landregistry/internal/events"
	"landregistry/internal/infrastructure/http/v1/handlers"
	"landregistry/internal/infrastructure/http/v1/middleware"
	"landregistry/internal/infrastructure/storage/postgres"
	"landregistry/pkg/logger"
)

// RegistryRouterConfig holds dependencies of the registry service's API.
type RegistryRouterConfig struct {
	Titles    *title.Service
	Transfers *transfer.Service
	Publisher events.Publisher
	Pool      *postgres.Pool
	Logger    *logger.Logger
}

// NewRegistryRouter creates and configures the registry service's Gin router.
func NewRegistryRouter(cfg RegistryRouterConfig) *gin.Engine {
	router := newEngine(cfg.Logger)

	registerHealth(router, "registry", cfg.Pool)

	base := handlers.NewBaseHandler()
	titleHandler := handlers.NewTitleHandler(base, cfg.Titles, cfg.Publisher)
	transferHandler := handlers.NewTransferHandler(base, cfg.Transfers)

	api := router.Group("/api/v1")
	{
		titles := api.Group("/titles")
		{
			titles.POST("", titleHandler.Create)
			titles.GET("", titleHandler.List)
			titles.GET("/:titleNumber", titleHandler.Get)
			titles.GET("/:titleNumber/transfer", transferHandler.GetByTitle)
		}

		api.POST("/transfers", transferHandler.Create)
	}

	return router
}

// PaymentRouterConfig holds dependencies of the payment service's API.
type PaymentRouterConfig struct {
	Payments  *payment.Service
	Publisher events.Publisher
	Pool      *postgres.Pool
	Logger    *logger.Logger
}

// NewPaymentRouter creates and configures the payment service's Gin router.
func NewPaymentRouter(cfg PaymentRouterConfig) *gin.Engine {
	router := newEngine(cfg.Logger)

	registerHealth(router, "payment", cfg.Pool)

	base := handlers.NewBaseHandler()
	paymentHandler := handlers.NewPaymentHandler(base, cfg.Payments, cfg.Publisher)

	api := router.Group("/api/v1")
	{
		payments := api.Group("/payments")
		{
			payments.POST("", paymentHandler.Create)
			payments.GET("/:paymentID", paymentHandler.Get)
			payments.POST("/:paymentID/status", paymentHandler.UpdateStatus)
		}
	}

	return router
}

// newEngine builds a gin engine with the shared middleware chain.
// Order matters: recovery outermost, then correlation, logging, errors.
func newEngine(log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Saga())
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler())
	return router
}

func registerHealth(router *gin.Engine, app string, pool *postgres.Pool) {
	healthHandler := handlers.NewHealthHandler(app, pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}
}
