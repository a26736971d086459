package telemetry

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordTransition(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	m.RecordTransition("AppService", "start", ResultSuccess, time.Millisecond)
	m.RecordTransition("AppService", "start", ResultSuccess, time.Millisecond)
	m.RecordTransition("AppService", "stop", ResultFailure, time.Millisecond)

	if got := testutil.ToFloat64(m.transitions.WithLabelValues("AppService", "start", ResultSuccess)); got != 2 {
		t.Errorf("Expected 2 successful starts, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("AppService", "stop", ResultFailure)); got != 1 {
		t.Errorf("Expected 1 failed stop, got %v", got)
	}
}

func TestMetrics_ResourceGauges(t *testing.T) {
	m, _ := NewMetrics(DefaultConfig().Metrics)

	m.SetResourceCount("CacheDB", "started", 3)
	m.ResetResourceCounts()
	m.SetResourceCount("CacheDB", "deleted", 1)

	if got := testutil.CollectAndCount(m.resourcesManaged); got != 1 {
		t.Errorf("Expected 1 gauge series after reset, got %d", got)
	}
}

func TestMetrics_LogAppend(t *testing.T) {
	m, _ := NewMetrics(DefaultConfig().Metrics)

	m.RecordLogAppend("file", nil)
	m.RecordLogAppend("file", errors.New("disk full"))

	if got := testutil.ToFloat64(m.logAppends.WithLabelValues("file")); got != 1 {
		t.Errorf("Expected 1 append, got %v", got)
	}
	if got := testutil.ToFloat64(m.logAppendErrors.WithLabelValues("file")); got != 1 {
		t.Errorf("Expected 1 append error, got %v", got)
	}
}

func TestMetrics_Disabled(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// None of these may panic.
	m.RecordConstruction("AppService", ResultSuccess, time.Millisecond)
	m.RecordTransition("AppService", "start", ResultSuccess, time.Millisecond)
	m.RecordPolicyViolation("storage", "storage")
	m.RecordError("NOT_FOUND")
	m.SetResourceCount("AppService", "started", 1)

	var nilMetrics *Metrics
	nilMetrics.RecordError("NOT_FOUND")

	if m.Registry() != nil {
		t.Error("Expected nil registry when disabled")
	}
	if err := m.StartMetricsServer(); err != nil {
		t.Errorf("Expected no error starting disabled server, got: %v", err)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m, _ := NewMetrics(DefaultConfig().Metrics)
	m.RecordConstruction("CacheDB", ResultFailure, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "cloudconnect_constructions_total") {
		t.Errorf("Expected constructions counter in output, got:\n%s", rec.Body.String())
	}
}
