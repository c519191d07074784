package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimbuspay/gateway/internal/cache"
	"github.com/nimbuspay/gateway/internal/config"
	"github.com/nimbuspay/gateway/internal/database"
	"github.com/nimbuspay/gateway/internal/events"
	"github.com/nimbuspay/gateway/internal/handler"
	"github.com/nimbuspay/gateway/internal/middleware"
	"github.com/nimbuspay/gateway/internal/queue"
	"github.com/nimbuspay/gateway/internal/repository"
	"github.com/nimbuspay/gateway/internal/service"
	"github.com/nimbuspay/gateway/internal/sse"
)

// main is the application entrypoint for the NimbusPay API server. Settlement
// and webhook delivery run in the separate worker binary; this process only
// accepts requests and enqueues jobs.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting nimbuspay api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 4. Initialize queue producer
	queueClient := queue.New(redisClient.Client(), cfg.Queue.PromoteInterval)

	// 5. Initialize repositories
	merchantRepo := repository.NewMerchantRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	refundRepo := repository.NewRefundRepository(db)
	webhookRepo := repository.NewWebhookLogRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	// 5a. Seed development merchant
	if err := database.SeedTestMerchant(merchantRepo, &cfg.Seed); err != nil {
		log.Error().Err(err).Msg("seeding failed")
		fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
		os.Exit(1)
	}

	// 6. Initialize services
	authSvc := service.NewAuthService(merchantRepo, cfg.JWTSecret)
	orderSvc := service.NewOrderService(orderRepo)
	paymentSvc := service.NewPaymentService(orderRepo, paymentRepo, queueClient)
	refundSvc := service.NewRefundService(paymentRepo, refundRepo, queueClient)
	webhookSvc := service.NewWebhookService(webhookRepo, merchantRepo, queueClient, cfg.Webhook)
	idempotencySvc := service.NewIdempotencyService(idempotencyRepo, cfg.Idempotency.TTL)
	merchantSvc := service.NewMerchantService(merchantRepo)

	// 6a. SSE hub fed by the worker's events over Redis pub/sub
	hub := sse.NewHub()
	subscriber := events.NewSubscriber(redisClient.Client())

	// 7. Initialize handlers
	handlers := &Handlers{
		Health:   handler.NewHealthHandler(db, redisClient.Client()),
		Order:    handler.NewOrderHandler(orderSvc),
		Payment:  handler.NewPaymentHandler(paymentSvc, idempotencySvc),
		Refund:   handler.NewRefundHandler(refundSvc),
		Webhook:  handler.NewWebhookHandler(webhookSvc),
		Merchant: handler.NewMerchantHandler(merchantSvc, paymentSvc),
		Auth:     handler.NewAuthHandler(authSvc),
		Public:   handler.NewPublicHandler(orderSvc, paymentSvc),
		Queue:    handler.NewQueueHandler(queueClient),
		SSE:      handler.NewSSEHandler(hub, authSvc),
	}

	// 8. Initialize middleware
	authMw := middleware.NewAuthMiddleware(authSvc)
	jwtMw := middleware.NewJWTMiddleware(cfg.JWTSecret)

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, authMw, jwtMw)

	// 10. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 11. Bridge worker events into the SSE hub
	go subscriber.Run(ctx, func(msg *events.Message) {
		hub.Broadcast(msg.MerchantID, &sse.Event{
			Event:     msg.Event,
			Data:      msg.Data,
			Timestamp: msg.Timestamp,
		})
	})

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop the event bridge
	cancel()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health   *handler.HealthHandler
	Order    *handler.OrderHandler
	Payment  *handler.PaymentHandler
	Refund   *handler.RefundHandler
	Webhook  *handler.WebhookHandler
	Merchant *handler.MerchantHandler
	Auth     *handler.AuthHandler
	Public   *handler.PublicHandler
	Queue    *handler.QueueHandler
	SSE      *handler.SSEHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, authMiddleware *middleware.AuthMiddleware, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/health", handlers.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public checkout routes (no authentication)
	public := router.Group("/v1/public")
	{
		public.GET("/orders/:id", handlers.Public.GetOrder)
		public.GET("/payments/:id", handlers.Public.GetPayment)
	}

	// Merchant API routes (protected with API key/secret)
	api := router.Group("/v1")
	api.Use(authMiddleware.Handle())
	{
		api.POST("/orders", handlers.Order.CreateOrder)
		api.GET("/orders/:id", handlers.Order.GetOrder)

		api.POST("/payments", handlers.Payment.CreatePayment)
		api.GET("/payments", handlers.Payment.ListPayments)
		api.GET("/payments/:id", handlers.Payment.GetPayment)
		api.POST("/payments/:id/capture", handlers.Payment.CapturePayment)
		api.POST("/payments/:id/refund", handlers.Refund.CreateRefund)

		api.GET("/refunds/:id", handlers.Refund.GetRefund)

		api.GET("/webhooks", handlers.Webhook.ListWebhooks)
		api.POST("/webhooks/:id/retry", handlers.Webhook.RetryWebhook)
		api.POST("/webhooks/test", handlers.Webhook.SendTestWebhook)

		api.GET("/merchant", handlers.Merchant.GetProfile)
		api.GET("/merchant/stats", handlers.Merchant.GetStats)
		api.PUT("/merchant/webhook", handlers.Merchant.UpdateWebhook)
	}

	// Dashboard routes (JWT session)
	dashboard := router.Group("/v1/dashboard")
	dashboard.POST("/login", handlers.Auth.Login)
	dashboard.GET("/events", handlers.SSE.Stream)
	dashboard.Use(jwtMiddleware.Handle())
	{
		dashboard.GET("/stats", handlers.Merchant.GetStats)
		dashboard.GET("/payments", handlers.Payment.ListPayments)
		dashboard.GET("/webhooks", handlers.Webhook.ListWebhooks)
		dashboard.GET("/queues", handlers.Queue.GetStats)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
