package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the bot service.
type Config struct {
	BotToken                   string
	AdminIDs                   map[int64]struct{}
	Port                       string
	LogLevel                   string
	DBDriver                   string
	DatabaseURL                string
	DBPath                     string
	DBMaxOpenConns             int
	DBMaxIdleConns             int
	DBConnMaxIdle              time.Duration
	DBConnMaxLife              time.Duration
	RedisURL                   string
	NATSURL                    string
	NATSConnTimeout            time.Duration
	OTLPEndpoint               string
	SessionTTL                 time.Duration
	NotifyTimeout              time.Duration
	NotifyRetryDelay           time.Duration
	TelegramTimeout            time.Duration
	TelegramWebhookURL         string
	TelegramWebhookDropPending bool
	WebhookSecret              string
	TelegramPollingEnabled     bool
	TelegramPollingTimeout     time.Duration
	TelegramPollingInterval    time.Duration
	TelegramPollingLimit       int
	TelegramPollingDropPending bool
	TelegramInboundRateLimit   int
	PollWorkers                int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first; variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                       envOr("PORT", "8080"),
		LogLevel:                   envOr("LOG_LEVEL", "info"),
		DBDriver:                   strings.ToLower(envOr("DB_DRIVER", "pgx")),
		DBPath:                     envOr("DB_PATH", "jobs_bot.db"),
		DBMaxOpenConns:             intOr("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:             intOr("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxIdle:              durationOr("DB_CONN_MAX_IDLE", 5*time.Minute),
		DBConnMaxLife:              durationOr("DB_CONN_MAX_LIFE", 30*time.Minute),
		RedisURL:                   envOr("REDIS_URL", ""),
		NATSURL:                    envOr("NATS_URL", ""),
		NATSConnTimeout:            durationOr("NATS_CONN_TIMEOUT", 10*time.Second),
		OTLPEndpoint:               envOr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		SessionTTL:                 durationOr("SESSION_TTL", 24*time.Hour),
		NotifyTimeout:              durationOr("NOTIFY_TIMEOUT", 10*time.Second),
		NotifyRetryDelay:           durationOr("NOTIFY_RETRY_DELAY", time.Second),
		TelegramTimeout:            durationOr("TELEGRAM_TIMEOUT", 10*time.Second),
		TelegramWebhookURL:         envOr("TELEGRAM_WEBHOOK_URL", ""),
		TelegramWebhookDropPending: boolOr("TELEGRAM_WEBHOOK_DROP_PENDING", false),
		TelegramPollingEnabled:     boolOr("TELEGRAM_POLLING_ENABLED", true),
		TelegramPollingTimeout:     durationOr("TELEGRAM_POLLING_TIMEOUT", 25*time.Second),
		TelegramPollingInterval:    durationOr("TELEGRAM_POLLING_INTERVAL", time.Second),
		TelegramPollingLimit:       intOr("TELEGRAM_POLLING_LIMIT", 50),
		TelegramPollingDropPending: boolOr("TELEGRAM_POLLING_DROP_PENDING", false),
		TelegramInboundRateLimit:   intOr("TELEGRAM_INBOUND_RATE_LIMIT_PER_MIN", 60),
		PollWorkers:                intOr("POLL_WORKERS", 8),
	}

	cfg.BotToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if cfg.BotToken == "" {
		cfg.BotToken = strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	}
	cfg.WebhookSecret = strings.TrimSpace(os.Getenv("TELEGRAM_WEBHOOK_SECRET"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.AdminIDs = ParseAdminIDs(os.Getenv("ADMIN_IDS"))
	if cfg.DBDriver == "pq" || cfg.DBDriver == "postgresql" {
		cfg.DBDriver = "postgres"
	}
	if cfg.DBDriver == "sqlite3" {
		cfg.DBDriver = "sqlite"
	}

	missing := make([]string, 0, 2)
	if cfg.BotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if cfg.DBDriver != "sqlite" && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	switch cfg.DBDriver {
	case "pgx", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if !cfg.TelegramPollingEnabled && cfg.TelegramWebhookURL != "" && cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("TELEGRAM_WEBHOOK_SECRET is required when TELEGRAM_WEBHOOK_URL is set")
	}
	if cfg.TelegramInboundRateLimit < 0 {
		return nil, fmt.Errorf("rate limit values must be positive: TELEGRAM_INBOUND_RATE_LIMIT_PER_MIN")
	}
	if cfg.PollWorkers <= 0 {
		cfg.PollWorkers = 1
	}

	return cfg, nil
}

// ParseAdminIDs parses a comma separated list of actor ids. Entries that are
// not integers are skipped.
func ParseAdminIDs(raw string) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func durationOr(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return duration
}

func intOr(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func boolOr(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
