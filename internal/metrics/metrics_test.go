package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findFamily(t *testing.T, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestRecordRequest(t *testing.T) {
	RecordRequest("GET", "/api/prices", 200, 100*time.Millisecond)

	mf := findFamily(t, "areca_gateway_requests_total")
	if mf == nil {
		t.Fatal("areca_gateway_requests_total metric not found")
	}

	var matched bool
	for _, m := range mf.GetMetric() {
		labels := map[string]string{}
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		if labels["route"] == "/api/prices" && labels["status"] == "200" && labels["method"] == "GET" {
			matched = m.GetCounter().GetValue() >= 1
		}
	}
	if !matched {
		t.Error("expected a GET /api/prices 200 sample")
	}
}

func TestSetStoreHealth(t *testing.T) {
	SetStoreHealth("rate_limit", "redis", false)

	mf := findFamily(t, "areca_gateway_store_healthy")
	if mf == nil {
		t.Fatal("areca_gateway_store_healthy metric not found")
	}
	for _, m := range mf.GetMetric() {
		if m.GetGauge().GetValue() != 0 {
			t.Errorf("expected unhealthy gauge to be 0, got %v", m.GetGauge().GetValue())
		}
	}

	SetStoreHealth("rate_limit", "redis", true)
	mf = findFamily(t, "areca_gateway_store_healthy")
	if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Errorf("expected healthy gauge to be 1, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	RateLimited.Inc()

	h := Handler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "areca_gateway_rate_limited_total") {
		t.Error("expected rate limited counter in exposition")
	}
}
