package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObservabilityRecordsRoutePattern(t *testing.T) {
	obs := NewObservability(ObservabilityConfig{LogRequests: true}, nil)
	router := chi.NewRouter()
	router.Use(RequestID, obs.Middleware)
	router.Get("/v1/ilks/{ilk}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/ilks/ETH-A", nil))
	require.Equal(t, http.StatusNotFound, res.Code)
	require.NotEmpty(t, res.Header().Get(RequestIDHeader))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.requests.WithLabelValues("/v1/ilks/{ilk}", http.MethodGet, "404")))

	obs.CountThrottle("10.0.0.1")
	require.Equal(t, 1.0, testutil.ToFloat64(obs.throttles))

	metrics := httptest.NewRecorder()
	obs.MetricsHandler().ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.True(t, strings.Contains(metrics.Body.String(), "vaultd_requests_total"))
}

func TestRequestIDPropagatesCallerValue(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, "abc-123", seen)
	require.Equal(t, "abc-123", res.Header().Get(RequestIDHeader))
	require.Empty(t, RequestIDFromContext(req.Context()))
}

func TestObservabilityCollapsesUnmatchedPaths(t *testing.T) {
	obs := NewObservability(ObservabilityConfig{}, nil)
	router := chi.NewRouter()
	router.Use(obs.Middleware)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	for _, path := range []string{"/junk/0", "/junk/1", "/another/junk"} {
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, res.Code)
	}
	require.Equal(t, 1, testutil.CollectAndCount(obs.durations))
	require.Equal(t, 1, testutil.CollectAndCount(obs.requests))
	require.Equal(t, 3.0, testutil.ToFloat64(obs.requests.WithLabelValues(unmatchedRoute, http.MethodGet, "404")))
}
