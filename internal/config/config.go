package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Port            string
	ServiceName     string
	LogLevel        string
	ShutdownTimeout time.Duration

	StoreDriver string
	PostgresDSN string
	RedisAddr   string

	EventsEnabled bool
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroupID  string

	OTLPEndpoint string

	DefaultCurrency      string
	AllowCancelCompleted bool
	CORSAllowedOrigin    string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "3000"),
		ServiceName:     getEnv("SERVICE_NAME", "korea-payment"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=payments sslmode=disable"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),

		EventsEnabled: getEnvBool("EVENTS_ENABLED", false),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKER", "localhost:9092")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "payments"),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "payment-events-tail"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		DefaultCurrency:      strings.ToUpper(getEnv("DEFAULT_CURRENCY", "KRW")),
		AllowCancelCompleted: getEnvBool("ALLOW_CANCEL_COMPLETED", true),
		CORSAllowedOrigin:    getEnv("CORS_ALLOWED_ORIGIN", "*"),
	}

	switch cfg.StoreDriver {
	case StoreMemory, StorePostgres, StoreRedis:
	default:
		slog.Warn("unknown store driver, falling back to memory", "store_driver", cfg.StoreDriver)
		cfg.StoreDriver = StoreMemory
	}

	slog.Info("config loaded",
		"port", cfg.Port,
		"store_driver", cfg.StoreDriver,
		"redis_addr", cfg.RedisAddr,
		"events_enabled", cfg.EventsEnabled,
		"kafka_brokers", cfg.KafkaBrokers,
		"kafka_topic", cfg.KafkaTopic,
		"default_currency", cfg.DefaultCurrency,
		"allow_cancel_completed", cfg.AllowCancelCompleted)
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		slog.Warn("invalid boolean in environment, using default", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
