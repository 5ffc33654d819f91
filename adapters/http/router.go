package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/artpar/modgate/adapters/metrics"
	"github.com/artpar/modgate/domain/apiconfig"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// BuildInfo is served at /version.
type BuildInfo struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	BasePath       string // gateway mount point, "/" when empty
	Metrics        *metrics.Collector
	MetricsPath    string              // default /metrics
	MetricsGather  prometheus.Gatherer // default prometheus.DefaultGatherer
	RequestTimeout time.Duration       // 0 disables
	Build          BuildInfo
}

// NewRouter creates the HTTP router.
func NewRouter(gw *GatewayHandler, health *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, metricsPath))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, metricsPath))
	}

	// Operational endpoints
	r.Get("/health", health.Liveness)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cfg.Build)
	})

	if cfg.Metrics != nil {
		gatherer := cfg.MetricsGather
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.Handle(metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Everything outside the route space is a bodyless 404.
	r.NotFound(gw.Unmatched)
	r.MethodNotAllowed(gw.Unmatched)

	base := apiconfig.NormalizeBasePath(cfg.BasePath)
	if base == "/" {
		gatewayRoutes(r, gw)
	} else {
		r.Route(base, func(sub chi.Router) {
			sub.NotFound(gw.Unmatched)
			sub.MethodNotAllowed(gw.Unmatched)
			gatewayRoutes(sub, gw)
		})
	}

	return r
}

func gatewayRoutes(r chi.Router, gw *GatewayHandler) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		r.MethodFunc(method, "/", gw.Root)
		r.MethodFunc(method, "/{version:[0-9A-Za-z]+}", gw.Version)
		r.MethodFunc(method, "/{version:[0-9A-Za-z]+}/*", gw.Module)
	}
}

// isOperational reports whether path is a health probe or the metrics scrape.
func isOperational(path, metricsPath string) bool {
	return strings.HasPrefix(path, "/health") || path == metricsPath
}

// NewMetricsMiddleware creates middleware that records request metrics.
// Health probes and scrapes of metricsPath are not counted.
func NewMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isOperational(r.URL.Path, metricsPath) {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			path := metrics.NormalizePath(r.URL.Path)
			m.RequestsTotal.WithLabelValues(r.Method, path, metrics.StatusClass(ww.Status())).Inc()
			m.RequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// NewLoggingMiddleware creates a middleware that logs HTTP requests at debug level.
func NewLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if isOperational(r.URL.Path, metricsPath) {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
