// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"printq/internal/core/security"
	"printq/internal/domain/auth"
	"printq/internal/domain/catalogs/customer"
	"printq/internal/domain/catalogs/product"
	"printq/internal/domain/catalogs/supply"
	"printq/internal/domain/orders"
	"printq/internal/domain/pricing"
	"printq/internal/domain/quotes"
	"printq/internal/infrastructure/http/v1/handlers"
	"printq/internal/infrastructure/http/v1/middleware"
	"printq/internal/infrastructure/storage/postgres"
	"printq/internal/infrastructure/storage/postgres/catalog_repo"
	"printq/internal/infrastructure/storage/postgres/document_repo"
	"printq/pkg/logger"
	"printq/pkg/numerator"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (health checks, numerator)
	Pool *postgres.Pool

	// TxManager coordinates transactions for all repositories
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints
	AuthService *auth.Service

	// Authenticator verifies supervisor credentials for approval signoff
	Authenticator quotes.Authenticator
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Metrics())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	// Repositories share one TxManager so multi-step operations run in a
	// single transaction.
	supplyRepo := catalog_repo.NewSupplyRepo(cfg.TxManager)
	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	customerRepo := catalog_repo.NewCustomerRepo(cfg.TxManager)
	quoteRepo := document_repo.NewQuoteRepo(cfg.TxManager)

	audit, err := postgres.NewAuditService(cfg.TxManager)
	if err != nil {
		return nil, err
	}

	supplyService := supply.NewService(supplyRepo, cfg.TxManager)
	productService := product.NewService(productRepo, cfg.TxManager)
	customerService := customer.NewService(customerRepo)

	calculator := pricing.NewCalculator(productService, pricing.NewResolver(productRepo, supplyRepo))
	gate := quotes.NewApprovalGate(cfg.Authenticator)
	numbers := numerator.New(cfg.Pool)

	quoteService := quotes.NewService(quoteRepo, customerService, calculator, gate, numbers, cfg.TxManager)
	orderService := orders.NewService(quoteRepo, supplyRepo, gate, cfg.TxManager)

	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	supplyHandler := handlers.NewSupplyHandler(supplyService, audit)
	productHandler := handlers.NewProductHandler(productService)
	quoteHandler := handlers.NewQuoteHandler(quoteService, audit)
	groupHandler := handlers.NewQuoteGroupHandler(quoteService, audit)
	orderHandler := handlers.NewOrderHandler(orderService, audit)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", authHandler.Login)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		protected.GET("/auth/me", authHandler.Me)

		supplies := protected.Group("/supplies")
		{
			supplies.POST("", middleware.RequireCapability(security.CapSupplyManage), supplyHandler.Create)
			supplies.GET("", middleware.RequireCapability(security.CapProductRead), supplyHandler.List)
			supplies.GET("/:id", middleware.RequireCapability(security.CapProductRead), supplyHandler.Get)
			supplies.POST("/:id/purchases", middleware.RequireCapability(security.CapSupplyPurchase), supplyHandler.RecordPurchase)
		}

		products := protected.Group("/products")
		{
			products.POST("", middleware.RequireCapability(security.CapProductManage), productHandler.Create)
			products.GET("", middleware.RequireCapability(security.CapProductRead), productHandler.List)
			products.GET("/:id", middleware.RequireCapability(security.CapProductRead), productHandler.Get)
			products.GET("/:id/template", middleware.RequireCapability(security.CapProductRead), productHandler.GetTemplate)
			products.PUT("/:id/template", middleware.RequireCapability(security.CapProductManage), productHandler.UpdateTemplate)
		}

		quotesGroup := protected.Group("/quotes")
		{
			quotesGroup.POST("/preview", middleware.RequireCapability(security.CapQuoteCreate), quoteHandler.Preview)
			quotesGroup.POST("", middleware.RequireCapability(security.CapQuoteCreate), quoteHandler.Create)
			quotesGroup.GET("", middleware.RequireCapability(security.CapQuoteRead), quoteHandler.List)
			quotesGroup.GET("/:id", middleware.RequireCapability(security.CapQuoteRead), quoteHandler.Get)
			quotesGroup.POST("/:id/approve", middleware.RequireCapability(security.CapQuoteApprove), quoteHandler.Approve)
			quotesGroup.POST("/:id/convert", middleware.RequireCapability(security.CapQuoteConvert), orderHandler.ConvertQuote)
		}

		groups := protected.Group("/quote-groups")
		{
			groups.POST("", middleware.RequireCapability(security.CapQuoteCreate), groupHandler.Create)
			groups.GET("", middleware.RequireCapability(security.CapQuoteRead), groupHandler.List)
			groups.GET("/:id", middleware.RequireCapability(security.CapQuoteRead), groupHandler.Get)
			groups.POST("/:id/approve", middleware.RequireCapability(security.CapQuoteApprove), groupHandler.Approve)
			groups.POST("/:id/convert", middleware.RequireCapability(security.CapQuoteConvert), orderHandler.ConvertGroup)
		}
	}

	return router, nil
}
