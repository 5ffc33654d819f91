// Package http provides the HTTP transport for the gateway.
package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/artpar/modgate/adapters/metrics"
	"github.com/artpar/modgate/app"
	"github.com/artpar/modgate/domain/dispatch"
	"github.com/artpar/modgate/pkg/envelope"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// DefaultMaxBodyBytes bounds the request body read by the gateway.
const DefaultMaxBodyBytes = 10 << 20

// GatewayHandler adapts HTTP requests to the dispatch pipeline.
type GatewayHandler struct {
	gateways     *app.GatewayRef
	logger       zerolog.Logger
	metrics      *metrics.Collector
	maxBodyBytes int64
}

// NewGatewayHandler creates a handler serving the gateway held by ref.
// m may be nil.
func NewGatewayHandler(ref *app.GatewayRef, logger zerolog.Logger, m *metrics.Collector) *GatewayHandler {
	return &GatewayHandler{
		gateways:     ref,
		logger:       logger,
		metrics:      m,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Root serves {base}/.
func (h *GatewayHandler) Root(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, dispatch.TargetRoot, "", "")
}

// Version serves {base}/{version}.
func (h *GatewayHandler) Version(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, dispatch.TargetVersion, chi.URLParam(r, "version"), "")
}

// Module serves {base}/{version}/{path...}.
func (h *GatewayHandler) Module(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if strings.Trim(path, "/") == "" {
		h.Unmatched(w, r)
		return
	}
	h.serve(w, r, dispatch.TargetModule, chi.URLParam(r, "version"), path)
}

// Unmatched answers requests outside the gateway's route space.
func (h *GatewayHandler) Unmatched(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, dispatch.TargetUnmatched, "", "")
}

func (h *GatewayHandler) serve(w http.ResponseWriter, r *http.Request, target dispatch.Target, version, modulePath string) {
	ctx := r.Context()
	gw := h.gateways.Load()

	req, err := h.buildRequest(r, target, version, modulePath)
	if err != nil {
		h.logger.Warn().Err(err).Str("request_id", req.RequestID).Msg("failed to read request")
		envelope.Write(w, envelope.FromDocument(envelope.InternalServerError(err.Error()).WithReference(req.RequestID)))
		return
	}

	result := gw.Handle(ctx, req)

	envelope.Write(w, result.Response)

	h.logRequest(req, result)
	h.recordMetrics(result)

	if result.Record != nil {
		if err := gw.Report(ctx, *result.Record); err != nil {
			h.logger.Warn().Err(err).Str("request_id", req.RequestID).Msg("failed to record request")
			if h.metrics != nil {
				h.metrics.RequestLogErrors.WithLabelValues("enqueue").Inc()
			}
		}
	}
}

func (h *GatewayHandler) buildRequest(r *http.Request, target dispatch.Target, version, modulePath string) (dispatch.Request, error) {
	req := dispatch.Request{
		Target:     target,
		Version:    version,
		ModulePath: modulePath,
		Method:     r.Method,
		Path:       r.URL.Path,
		Headers:    extractHeaders(r),
		RemoteIP:   extractIP(r),
		UserAgent:  r.UserAgent(),
		RequestID:  middleware.GetReqID(r.Context()),
		ReceivedAt: time.Now().UTC(),
	}
	if user, pass, ok := r.BasicAuth(); ok {
		req.BasicAuth = &dispatch.BasicAuth{Username: user, Password: pass}
	}

	var bodyValues url.Values
	if r.Body != nil && r.Method != http.MethodGet {
		body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, h.maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return req, errors.New("request body too large")
			}
			return req, errors.New("failed to read request body")
		}
		req.Body = body

		bodyValues, err = parseForm(r, body, h.maxBodyBytes)
		if err != nil {
			return req, err
		}
	}

	req.Params = dispatch.MergeParams(r.URL.Query(), bodyValues)
	return req, nil
}

// parseForm decodes url-encoded and multipart bodies. Other content types
// yield no parameters.
func parseForm(r *http.Request, body []byte, maxMemory int64) (url.Values, error) {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, nil
	}

	switch ct {
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, errors.New("malformed form body")
		}
		return values, nil
	case "multipart/form-data":
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, errors.New("malformed multipart body")
		}
		return url.Values(r.MultipartForm.Value), nil
	}
	return nil, nil
}

func (h *GatewayHandler) logRequest(req dispatch.Request, result app.Result) {
	event := h.logger.Info()
	if result.Err != nil {
		event = h.logger.Warn().Err(result.Err)
	}

	event.
		Str("method", req.Method).
		Str("path", req.Path).
		Str("target", req.Target.String()).
		Str("outcome", result.Outcome).
		Int("status", result.Response.Status).
		Str("remote_ip", req.RemoteIP).
		Str("request_id", req.RequestID)

	if result.Version != "" {
		event.Str("version", result.Version)
	}
	if result.Path != "" {
		event.Str("module", result.Path)
	}
	if doc := result.Response.Document; doc != nil {
		event.Int("response_code", doc.ResponseCode)
	}
	if rec := result.Record; rec != nil {
		event.
			Int64("application_id", rec.ApplicationID).
			Int64("access_record_id", rec.AccessRecordID).
			Int64("latency_ms", rec.ResponseTimeMs())
	}

	event.Msg("gateway request")
}

func (h *GatewayHandler) recordMetrics(result app.Result) {
	if h.metrics == nil {
		return
	}

	version := result.Version
	if version == "" {
		version = "none"
	}
	h.metrics.Outcomes.WithLabelValues(version, result.Outcome).Inc()

	switch result.Outcome {
	case app.OutcomeUnauthorized, app.OutcomeAuthError:
		h.metrics.AuthFailures.WithLabelValues(app.AuthFailureReason(result.Err)).Inc()
	case app.OutcomeModuleOK, app.OutcomeModuleError:
		h.metrics.ModuleDuration.WithLabelValues(result.Version, result.Path).Observe(result.ModuleDuration.Seconds())
	}
}

// extractHeaders flattens request headers, dropping credentials and hop-by-hop headers.
func extractHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string)
	if r.Host != "" {
		headers["Host"] = r.Host
	}

	for k, v := range r.Header {
		switch strings.ToLower(k) {
		case "authorization", "proxy-authorization", "cookie",
			"connection", "keep-alive", "te", "trailers",
			"transfer-encoding", "upgrade":
			continue
		}
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return headers
}

// extractIP returns the client address. RealIP middleware has already
// applied forwarding headers to RemoteAddr.
func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// HealthChecker reports whether a dependency is ready.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler creates a health handler. Readiness consults every check.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Liveness returns a simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness checks that every dependency is reachable.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range h.checks {
		if err := check.HealthCheck(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"checks": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
