package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeynil/korea-payment/internal/api"
	"github.com/honeynil/korea-payment/internal/config"
	"github.com/honeynil/korea-payment/internal/infrastructure/kafka"
	"github.com/honeynil/korea-payment/internal/infrastructure/redis"
	"github.com/honeynil/korea-payment/internal/observability"
	"github.com/honeynil/korea-payment/internal/repository"
	"github.com/honeynil/korea-payment/internal/repository/memory"
	core "github.com/honeynil/korea-payment/internal/repository/postgres"
	"github.com/honeynil/korea-payment/internal/repository/redisstore"
	service "github.com/honeynil/korea-payment/internal/services"
	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	// Инициализируем логи, метрики, трейсы
	shutdownTracing, metricsHandler := observability.Setup(cfg)
	defer shutdownTracing(context.Background())

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open transaction store", "store_driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var publisher service.EventPublisher = service.NoopPublisher{}
	if cfg.EventsEnabled {
		kafkaPublisher := service.NewKafkaEventPublisher(kafka.NewProducer(cfg.KafkaBrokers), cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		slog.Info("payment events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	svc := service.NewPaymentService(store, publisher,
		service.WithDefaultCurrency(cfg.DefaultCurrency),
		service.WithCancelCompleted(cfg.AllowCancelCompleted),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.SetupRouter(svc, metricsHandler, cfg.CORSAllowedOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Korea Payment Server running", "port", cfg.Port, "store_driver", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
		return
	}
	slog.Info("server stopped")
}

func openStore(cfg *config.Config) (repository.TransactionRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping Postgres: %w", err)
		}
		store := core.NewPostgresTransactionRepository(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	case config.StoreRedis:
		client, err := redis.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return redisstore.NewTransactionRepository(client), nil
	default:
		return memory.NewTransactionRepository(), nil
	}
}
