package metrics_test

import (
	"testing"

	"github.com/artpar/modgate/adapters/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m.RequestsTotal == nil || m.RequestDuration == nil || m.RequestsInFlight == nil {
		t.Error("HTTP metrics not initialized")
	}
	if m.Outcomes == nil || m.ModuleDuration == nil || m.AuthFailures == nil {
		t.Error("pipeline metrics not initialized")
	}
	if m.RequestLogRecords == nil || m.RequestLogErrors == nil {
		t.Error("request log metrics not initialized")
	}
	if m.ConfigReloads == nil || m.ConfigReloadErrors == nil || m.ConfigLastReload == nil {
		t.Error("config metrics not initialized")
	}
}

func TestOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.Outcomes.WithLabelValues("v1", "module_ok").Inc()
	m.Outcomes.WithLabelValues("v1", "module_ok").Inc()
	m.Outcomes.WithLabelValues("v1", "unauthorized").Inc()

	f := gather(t, reg, "modgate_dispatch_outcomes_total")
	if f == nil {
		t.Fatal("modgate_dispatch_outcomes_total not found")
	}
	var total float64
	for _, metric := range f.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	if total != 3 {
		t.Errorf("total outcomes = %v, want 3", total)
	}
}

func TestRequestsInFlight(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.RequestsInFlight.Inc()
	m.RequestsInFlight.Inc()
	m.RequestsInFlight.Dec()

	f := gather(t, reg, "modgate_http_requests_in_flight")
	if f == nil {
		t.Fatal("gauge not found")
	}
	if v := f.GetMetric()[0].GetGauge().GetValue(); v != 1 {
		t.Errorf("in flight = %v, want 1", v)
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 204: "2xx", 404: "4xx", 503: "5xx", 0: "unknown", 700: "unknown"}
	for code, want := range tests {
		if got := metrics.StatusClass(code); got != want {
			t.Errorf("StatusClass(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"/v1", "/v1"},
		{"/v1/users/list", "/v1/users/list"},
		{"/v1/users/list/123/extra", "/v1/users/list/*"},
	}
	for _, tt := range tests {
		if got := metrics.NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
