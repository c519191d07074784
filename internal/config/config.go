package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters; nothing else reads
// the environment after Load returns.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	DB          DatabaseConfig
	Redis       RedisConfig
	Queue       QueueConfig
	Processing  ProcessingConfig
	Webhook     WebhookConfig
	Idempotency IdempotencyConfig
	Seed        SeedConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// QueueConfig controls the job queue consumers.
type QueueConfig struct {
	PaymentConcurrency int
	WebhookConcurrency int
	RefundConcurrency  int
	PromoteInterval    time.Duration
}

// ProcessingConfig controls the simulated settlement outcome for payments
// and refunds. In test mode the outcome and delay are deterministic.
type ProcessingConfig struct {
	TestMode           bool
	TestPaymentSuccess bool
	TestDelay          time.Duration
	DelayMin           time.Duration
	DelayMax           time.Duration
	UPISuccessRate     float64
	CardSuccessRate    float64
	RefundDelayMin     time.Duration
	RefundDelayMax     time.Duration
}

// WebhookConfig controls outbound webhook delivery and the retry ladder.
type WebhookConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	// RetryLadder is indexed by the attempt number being scheduled
	// (RetryLadder[0] is the initial immediate delivery). The last entry
	// is the fallback for attempt counts beyond the table.
	RetryLadder []time.Duration
}

// IdempotencyConfig controls the idempotency key cache.
type IdempotencyConfig struct {
	TTL time.Duration
}

// SeedConfig holds the seeded test merchant credentials.
type SeedConfig struct {
	MerchantEmail     string
	APIKey            string
	APISecret         string
	WebhookSecret     string
	DashboardPassword string
}

// defaultRetryLadder is the production backoff table: immediate first
// delivery, then 1m / 5m / 30m / 2h between retries.
var defaultRetryLadder = []time.Duration{
	0,
	1 * time.Minute,
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
}

// testRetryLadder keeps end-to-end retry tests short.
var testRetryLadder = []time.Duration{
	0,
	5 * time.Second,
	10 * time.Second,
	15 * time.Second,
	20 * time.Second,
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Queue consumers
	cfg.Queue = QueueConfig{
		PaymentConcurrency: getEnvInt("QUEUE_PAYMENT_CONCURRENCY", 4),
		WebhookConcurrency: getEnvInt("QUEUE_WEBHOOK_CONCURRENCY", 4),
		RefundConcurrency:  getEnvInt("QUEUE_REFUND_CONCURRENCY", 2),
	}

	// Simulated processing
	cfg.Processing = ProcessingConfig{
		TestMode:           getEnvBool("TEST_MODE", false),
		TestPaymentSuccess: getEnvBool("TEST_PAYMENT_SUCCESS", true),
		UPISuccessRate:     getEnvFloat("UPI_SUCCESS_RATE", 0.9),
		CardSuccessRate:    getEnvFloat("CARD_SUCCESS_RATE", 0.85),
	}

	var err error
	if cfg.Processing.TestDelay, err = parseDurationEnv("TEST_PROCESSING_DELAY", "1s"); err != nil {
		return nil, fmt.Errorf("invalid TEST_PROCESSING_DELAY: %w", err)
	}
	if cfg.Processing.DelayMin, err = parseDurationEnv("PROCESSING_DELAY_MIN", "5s"); err != nil {
		return nil, fmt.Errorf("invalid PROCESSING_DELAY_MIN: %w", err)
	}
	if cfg.Processing.DelayMax, err = parseDurationEnv("PROCESSING_DELAY_MAX", "10s"); err != nil {
		return nil, fmt.Errorf("invalid PROCESSING_DELAY_MAX: %w", err)
	}
	if cfg.Processing.RefundDelayMin, err = parseDurationEnv("REFUND_DELAY_MIN", "3s"); err != nil {
		return nil, fmt.Errorf("invalid REFUND_DELAY_MIN: %w", err)
	}
	if cfg.Processing.RefundDelayMax, err = parseDurationEnv("REFUND_DELAY_MAX", "5s"); err != nil {
		return nil, fmt.Errorf("invalid REFUND_DELAY_MAX: %w", err)
	}
	if cfg.Processing.DelayMax < cfg.Processing.DelayMin {
		return nil, errors.New("PROCESSING_DELAY_MAX must be >= PROCESSING_DELAY_MIN")
	}
	if cfg.Queue.PromoteInterval, err = parseDurationEnv("QUEUE_PROMOTE_INTERVAL", "1s"); err != nil {
		return nil, fmt.Errorf("invalid QUEUE_PROMOTE_INTERVAL: %w", err)
	}

	// Webhook delivery
	cfg.Webhook = WebhookConfig{
		MaxAttempts: getEnvInt("WEBHOOK_MAX_ATTEMPTS", 5),
	}
	if cfg.Webhook.Timeout, err = parseDurationEnv("WEBHOOK_TIMEOUT", "5s"); err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}
	if getEnvBool("WEBHOOK_RETRY_INTERVALS_TEST", false) {
		cfg.Webhook.RetryLadder = testRetryLadder
	} else {
		// Individual ladder entries may be overridden.
		ladder := make([]time.Duration, len(defaultRetryLadder))
		copy(ladder, defaultRetryLadder)
		for i := 1; i < len(ladder); i++ {
			key := fmt.Sprintf("WEBHOOK_RETRY_INTERVAL_%d", i)
			d, err := parseDurationEnv(key, ladder[i].String())
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			ladder[i] = d
		}
		cfg.Webhook.RetryLadder = ladder
	}

	// Idempotency
	if cfg.Idempotency.TTL, err = parseDurationEnv("IDEMPOTENCY_TTL", "24h"); err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}

	// Seeded test merchant
	cfg.Seed = SeedConfig{
		MerchantEmail:     getEnv("TEST_MERCHANT_EMAIL", "test@merchant.dev"),
		APIKey:            getEnv("TEST_API_KEY", ""),
		APISecret:         getEnv("TEST_API_SECRET", ""),
		WebhookSecret:     getEnv("TEST_WEBHOOK_SECRET", "whsec_test_abc123"),
		DashboardPassword: getEnv("TEST_DASHBOARD_PASSWORD", ""),
	}

	// Basic validation for DB parameters.
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	// Validate JWT_SECRET
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for dashboard authentication")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvBool returns the value of an environment variable as a bool or a default if empty/invalid.
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvFloat returns the value of an environment variable as a float64 or a default if empty/invalid.
func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
