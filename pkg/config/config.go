package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// App holds runtime configuration derived from environment variables.
type App struct {
	Environment string
	LogLevel    string
	HTTPPort    string
	CORSOrigins []string

	DatabaseURL  string
	RedisAddr    string
	KafkaBrokers []string

	Queues    Queues
	Gateway   Gateway
	Providers Providers
	Retention Retention
}

// Retention bounds how long delivery audit rows are kept.
type Retention struct {
	MaxAge    time.Duration
	PurgeSpec string
}

// Providers holds the delivery endpoints for non-HTTP action types. An empty
// URL leaves that action type registered but failing with a clear error.
type Providers struct {
	EmailURL string
	SMSURL   string
	CRMURL   string
	TaskURL  string
}

// Queues configures the per-queue worker pools.
type Queues struct {
	EventTopic   string
	WebhookTopic string
	DLQTopic     string
	PushTopic    string

	EventWorkers   int
	WebhookWorkers int
	DLQWorkers     int
	PushWorkers    int

	// JobsPerSecond caps job starts per queue with a token bucket.
	JobsPerSecond int

	// DLQSweepSpec is the cron expression for scheduled dead-letter replays.
	DLQSweepSpec string
}

// Gateway configures outbound HTTP defaults. All values are overridable per
// call or per connector.
type Gateway struct {
	RateWindow       time.Duration
	RateLimit        int
	CircuitThreshold int
	CircuitCooldown  time.Duration
	CircuitTTL       time.Duration
	RequestTimeout   time.Duration
	MaxRetries       int
	BackoffBase      time.Duration
}

// FromEnv loads the application configuration from environment variables.
func FromEnv() App {
	return App{
		Environment:  getEnv("ENVIRONMENT", "production"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		Queues: Queues{
			EventTopic:     getEnv("EVENT_TOPIC", "integration.events"),
			WebhookTopic:   getEnv("WEBHOOK_TOPIC", "integration.webhooks"),
			DLQTopic:       getEnv("DLQ_TOPIC", "integration.dlq"),
			PushTopic:      getEnv("PUSH_TOPIC", "integration.push"),
			EventWorkers:   getEnvInt("EVENT_WORKERS", 5),
			WebhookWorkers: getEnvInt("WEBHOOK_WORKERS", 10),
			DLQWorkers:     getEnvInt("DLQ_WORKERS", 3),
			PushWorkers:    getEnvInt("PUSH_WORKERS", 5),
			JobsPerSecond:  getEnvInt("QUEUE_JOBS_PER_SECOND", 100),
			DLQSweepSpec:   getEnv("DLQ_SWEEP_CRON", "*/10 * * * *"),
		},
		Retention: Retention{
			MaxAge:    getEnvDuration("DELIVERY_RETENTION_MAX_AGE", 720*time.Hour),
			PurgeSpec: getEnv("DELIVERY_RETENTION_CRON", "0 3 * * *"),
		},
		Providers: Providers{
			EmailURL: getEnv("EMAIL_PROVIDER_URL", ""),
			SMSURL:   getEnv("SMS_PROVIDER_URL", ""),
			CRMURL:   getEnv("CRM_PROVIDER_URL", ""),
			TaskURL:  getEnv("TASK_PROVIDER_URL", ""),
		},
		Gateway: Gateway{
			RateWindow:       getEnvDuration("GATEWAY_RATE_WINDOW", 60*time.Second),
			RateLimit:        getEnvInt("GATEWAY_RATE_LIMIT", 100),
			CircuitThreshold: getEnvInt("GATEWAY_CIRCUIT_THRESHOLD", 5),
			CircuitCooldown:  getEnvDuration("GATEWAY_CIRCUIT_COOLDOWN", 60*time.Second),
			CircuitTTL:       getEnvDuration("GATEWAY_CIRCUIT_TTL", 300*time.Second),
			RequestTimeout:   getEnvDuration("GATEWAY_REQUEST_TIMEOUT", 10*time.Second),
			MaxRetries:       getEnvInt("GATEWAY_MAX_RETRIES", 3),
			BackoffBase:      getEnvDuration("GATEWAY_BACKOFF_BASE", time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
