// @title           Schuppenweg Storefront API
// @version         1.0.0
// @description     Backend for the scalp-kit storefront: checkout, pre-payment photo uploads, order completion and the admin diagnosis workflow.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the Supabase access token.

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"schuppenweg-backend/internal/app"
	"schuppenweg-backend/internal/cache"
	"schuppenweg-backend/internal/config"
	"schuppenweg-backend/internal/handlers"
	"schuppenweg-backend/internal/middleware"
	"schuppenweg-backend/internal/observability"
	"schuppenweg-backend/internal/payments"
	"schuppenweg-backend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg, true, logger)
	if err != nil {
		logger.Fatal("failed to open stores", zap.Error(err))
	}
	defer stores.Close()

	gateway, err := payments.NewGateway(payments.GatewayConfig{
		APIKey:        cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Currency:      cfg.OrderCurrency,
	})
	if err != nil {
		logger.Fatal("failed to configure stripe", zap.Error(err))
	}
	if !gateway.CanCreateIntents() {
		logger.Warn("STRIPE_SECRET_KEY not set; payment intent creation is disabled")
	}

	rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable; rate limiting and signed url cache disabled", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	migration := services.NewMigrationEngine(stores.Blobs, stores.Store, stores.Store, logger.Named("migration"))
	completion := services.NewCompletionService(stores.Store, stores.Store, stores.Blobs, migration, logger.Named("completion"))
	paymentEvents := services.NewPaymentEventService(stores.Store, logger.Named("payments"))

	if cfg.TempSweepInterval > 0 {
		sweeper := services.NewTempSweeper(stores.Blobs, cfg.TempTTL, logger.Named("sweeper"))
		go sweeper.Run(ctx, cfg.TempSweepInterval)
	}

	ordersHandler := handlers.NewOrdersHandler(completion, logger)
	uploadHandler := handlers.NewUploadHandler(stores.Blobs, logger)
	imagesHandler := handlers.NewImagesHandler(stores.Blobs, cache.NewSignedURLCache(rdb, cfg.SignedURLTTL),
		stores.Blobs.Bucket(), cfg.SignedURLTTL, logger)
	paymentsHandler := handlers.NewPaymentsHandler(gateway, cfg.OrderAmountCents, logger)
	webhookHandler := handlers.NewWebhookHandler(gateway, paymentEvents, logger.Named("webhook"))
	adminHandler := handlers.NewAdminHandler(stores.Admin, stores.Store, migration, logger.Named("admin"))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.GinLogger(logger))

	router.GET("/health", handlers.HealthHandler)

	api := router.Group("/api")
	api.POST("/complete-order", ordersHandler.CompleteOrder)
	api.POST("/upload-temp-image",
		middleware.RedisRateLimit(rdb, "upload", cfg.UploadRateLimit, cfg.UploadRateWindow, logger),
		uploadHandler.UploadTempImage)
	api.GET("/get-image-url", imagesHandler.GetImageURL)
	api.POST("/create-payment-intent", paymentsHandler.CreatePaymentIntent)

	// Stripe signs the body; no auth middleware.
	api.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(cfg.SupabaseJWTSecret))
	admin.GET("/orders", adminHandler.ListOrders)
	admin.GET("/orders/:id", adminHandler.GetOrder)
	admin.PATCH("/orders/:id", adminHandler.UpdateOrder)
	admin.POST("/orders/:id/migrate", adminHandler.MigrateOrderImages)

	if cfg.SupabaseJWTSecret == "" {
		logger.Warn("SUPABASE_JWT_SECRET not set; admin routes reject every request")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("storefront api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
