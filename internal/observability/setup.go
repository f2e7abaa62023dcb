package observability

import (
	"context"
	"net/http"

	"github.com/honeynil/korea-payment/internal/config"
	"github.com/honeynil/korea-payment/internal/infrastructure/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Setup wires logs, metrics and traces and returns the tracer shutdown hook
// together with the Prometheus handler.
func Setup(cfg *config.Config) (func(context.Context) error, http.Handler) {
	observability.InitLogger(cfg.LogLevel)
	observability.InitMetrics()
	tracerShutdown := observability.InitTracing(cfg.ServiceName, cfg.OTLPEndpoint)
	return tracerShutdown, promhttp.Handler()
}
