package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// unmatchedRoute labels requests no route pattern matched.
const unmatchedRoute = "unmatched"

// ObservabilityConfig tunes request tracing, metrics and access logs.
type ObservabilityConfig struct {
	ServiceName   string
	MetricsPrefix string
	LogRequests   bool
}

// Observability traces requests and records Prometheus request metrics on its
// own registry.
type Observability struct {
	cfg       ObservabilityConfig
	logger    *slog.Logger
	tracer    trace.Tracer
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	throttles prometheus.Counter
	registry  *prometheus.Registry
}

// NewObservability builds the request instrumentation.
func NewObservability(cfg ObservabilityConfig, logger *slog.Logger) *Observability {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "vaultd"
	}
	if cfg.MetricsPrefix == "" {
		cfg.MetricsPrefix = "vaultd"
	}
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.MetricsPrefix,
		Name:      "requests_total",
		Help:      "Total HTTP requests processed by vaultd.",
	}, []string{"route", "method", "status"})
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.MetricsPrefix,
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
	throttles := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.MetricsPrefix,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})
	registry.MustRegister(requests, durations, throttles)
	return &Observability{
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer(cfg.ServiceName),
		requests:  requests,
		durations: durations,
		throttles: throttles,
		registry:  registry,
	}
}

// Registry exposes the request registry so engine collectors can share it.
func (o *Observability) Registry() *prometheus.Registry { return o.registry }

// Middleware wraps next with a span, request metrics and an access log line.
// Routes are labelled with the chi pattern; requests matching no pattern share
// the "unmatched" label.
func (o *Observability) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := o.tracer.Start(r.Context(), r.Method+" "+r.URL.Path, trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.request_id", RequestIDFromContext(r.Context())),
		))
		defer span.End()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(ctx))

		route := unmatchedRoute
		if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		span.SetName(r.Method + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", recorder.status),
		)
		if recorder.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(recorder.status))
		}
		duration := time.Since(start)
		o.requests.WithLabelValues(route, r.Method, strconv.Itoa(recorder.status)).Inc()
		o.durations.WithLabelValues(route, r.Method).Observe(duration.Seconds())
		if o.cfg.LogRequests {
			o.logger.Info("request",
				"method", r.Method,
				"route", route,
				"status", recorder.status,
				"duration_ms", float64(duration.Microseconds())/1000,
				"request_id", RequestIDFromContext(r.Context()),
			)
		}
	})
}

// CountThrottle records a rate limited request.
func (o *Observability) CountThrottle(string) { o.throttles.Inc() }

// MetricsHandler serves the request registry merged with any extra gatherers.
func (o *Observability) MetricsHandler(extra ...prometheus.Gatherer) http.Handler {
	gatherers := prometheus.Gatherers{o.registry}
	for _, g := range extra {
		if g != nil {
			gatherers = append(gatherers, g)
		}
	}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
