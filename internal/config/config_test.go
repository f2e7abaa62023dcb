package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "STORE_DRIVER", "KAFKA_BROKER", "EVENTS_ENABLED", "DEFAULT_CURRENCY",
		"ALLOW_CANCEL_COMPLETED", "SHUTDOWN_TIMEOUT", "CORS_ALLOWED_ORIGIN",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.EventsEnabled)
	assert.Equal(t, "KRW", cfg.DefaultCurrency)
	assert.True(t, cfg.AllowCancelCompleted)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "*", cfg.CORSAllowedOrigin)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("KAFKA_BROKER", "kafka-1:9092, kafka-2:9092")
	t.Setenv("EVENTS_ENABLED", "true")
	t.Setenv("DEFAULT_CURRENCY", "usd")
	t.Setenv("ALLOW_CANCEL_COMPLETED", "false")
	t.Setenv("SHUTDOWN_TIMEOUT", "15s")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.EventsEnabled)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.False(t, cfg.AllowCancelCompleted)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("EVENTS_ENABLED", "maybe")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.False(t, cfg.EventsEnabled)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}
