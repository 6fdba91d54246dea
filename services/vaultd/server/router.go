package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"vaultrisk/services/vaultd/middleware"
)

// RouterConfig controls the middleware stack.
type RouterConfig struct {
	ServiceName string
	RateLimit   middleware.RateLimit
	LogRequests bool
	// Gatherers are served on /metrics next to the request metrics.
	Gatherers []prometheus.Gatherer
}

// NewRouter wires the API behind request IDs, metrics, tracing and rate
// limiting. /healthz and /metrics bypass the limiter.
func NewRouter(srv *Server, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.ServiceName
	if name == "" {
		name = "vaultd"
	}
	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName:   name,
		MetricsPrefix: name,
		LogRequests:   cfg.LogRequests,
	}, logger)
	limiter := middleware.NewRateLimiter(cfg.RateLimit, logger)
	limiter.OnReject(obs.CountThrottle)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(obs.Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", obs.MetricsHandler(cfg.Gatherers...))
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		srv.Register(r)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
	return otelhttp.NewHandler(r, name)
}
