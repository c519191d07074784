package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimbuspay/gateway/internal/cache"
	"github.com/nimbuspay/gateway/internal/config"
	"github.com/nimbuspay/gateway/internal/database"
	"github.com/nimbuspay/gateway/internal/events"
	"github.com/nimbuspay/gateway/internal/queue"
	"github.com/nimbuspay/gateway/internal/repository"
	"github.com/nimbuspay/gateway/internal/service"
	"github.com/nimbuspay/gateway/internal/worker"
)

// main is the entrypoint for the NimbusPay worker. It consumes the payment,
// webhook and refund topics and owns every state transition that happens
// after a request has been accepted.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting nimbuspay worker")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 4. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 5. Initialize repositories
	merchantRepo := repository.NewMerchantRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	refundRepo := repository.NewRefundRepository(db)
	webhookRepo := repository.NewWebhookLogRepository(db)

	// 6. Initialize queue, webhook engine and event publisher
	queueClient := queue.New(redisClient.Client(), cfg.Queue.PromoteInterval)
	webhookSvc := service.NewWebhookService(webhookRepo, merchantRepo, queueClient, cfg.Webhook)
	publisher := events.NewPublisher(redisClient.Client())

	// 7. Initialize processors
	paymentProc := worker.NewPaymentProcessor(paymentRepo, orderRepo, webhookSvc, publisher, cfg.Processing)
	refundProc := worker.NewRefundProcessor(refundRepo, webhookSvc, publisher, cfg.Processing)
	webhookWorker := worker.NewWebhookWorker(webhookSvc)

	// 8. Subscribe to topics
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := queueClient.Subscribe(ctx, queue.TopicPayment, cfg.Queue.PaymentConcurrency, paymentProc.Handle); err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to payment topic")
	}
	if err := queueClient.Subscribe(ctx, queue.TopicWebhook, cfg.Queue.WebhookConcurrency, webhookWorker.Handle); err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to webhook topic")
	}
	if err := queueClient.Subscribe(ctx, queue.TopicRefund, cfg.Queue.RefundConcurrency, refundProc.Handle); err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to refund topic")
	}

	// 9. Wait for interrupt signal, then drain
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")
	cancel()
	queueClient.Wait()
	log.Info().Msg("Worker exited")
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
