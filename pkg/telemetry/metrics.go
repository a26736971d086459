package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Result labels used across metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics provides Prometheus metrics for CloudConnect. Every Record and Set
// method is a no-op on a disabled or nil collector.
type Metrics struct {
	config MetricsConfig

	// Construction metrics
	constructions        *prometheus.CounterVec
	constructionDuration *prometheus.HistogramVec

	// Lifecycle metrics
	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec

	// Registry metrics
	resourcesManaged *prometheus.GaugeVec

	// Policy metrics
	policyViolations *prometheus.CounterVec
	policyReloads    *prometheus.CounterVec

	// Log sink metrics
	logAppends      *prometheus.CounterVec
	logAppendErrors *prometheus.CounterVec

	// Error metrics
	errorsByCode *prometheus.CounterVec

	registry *prometheus.Registry

	mu     sync.Mutex
	server *http.Server
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		constructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "constructions_total",
				Help:      "Total number of resource constructions by kind and result",
			},
			[]string{"kind", "result"},
		),
		constructionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "construction_duration_seconds",
				Help:      "Duration of the construction pipeline in seconds",
				Buckets:   buckets,
			},
			[]string{"kind"},
		),

		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Total number of lifecycle operations by kind, operation and result",
			},
			[]string{"kind", "operation", "result"},
		),
		transitionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transition_duration_seconds",
				Help:      "Duration of lifecycle operations in seconds",
				Buckets:   buckets,
			},
			[]string{"kind", "operation"},
		),

		resourcesManaged: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "resources_managed",
				Help:      "Current number of registered resources by type and status",
			},
			[]string{"type", "status"},
		),

		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_violations_total",
				Help:      "Total number of family policy rejections",
			},
			[]string{"policy", "family"},
		),
		policyReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_reloads_total",
				Help:      "Total number of policy reloads by result",
			},
			[]string{"result"},
		),

		logAppends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "log_lines_appended_total",
				Help:      "Total number of observation lines appended by sink",
			},
			[]string{"sink"},
		),
		logAppendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "log_append_errors_total",
				Help:      "Total number of failed observation appends by sink",
			},
			[]string{"sink"},
		),

		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),
	}

	registry.MustRegister(
		m.constructions,
		m.constructionDuration,
		m.transitions,
		m.transitionDuration,
		m.resourcesManaged,
		m.policyViolations,
		m.policyReloads,
		m.logAppends,
		m.logAppendErrors,
		m.errorsByCode,
	)

	return m, nil
}

// Construction Metrics

// RecordConstruction records one run of the construction pipeline.
func (m *Metrics) RecordConstruction(kind, result string, duration time.Duration) {
	if m == nil || m.constructions == nil {
		return
	}
	m.constructions.WithLabelValues(kind, result).Inc()
	m.constructionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// Lifecycle Metrics

// RecordTransition records one lifecycle operation.
func (m *Metrics) RecordTransition(kind, operation, result string, duration time.Duration) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(kind, operation, result).Inc()
	m.transitionDuration.WithLabelValues(kind, operation).Observe(duration.Seconds())
}

// Registry Metrics

// SetResourceCount sets the current count of registered resources.
func (m *Metrics) SetResourceCount(resourceType, status string, count float64) {
	if m == nil || m.resourcesManaged == nil {
		return
	}
	m.resourcesManaged.WithLabelValues(resourceType, status).Set(count)
}

// ResetResourceCounts clears every resource gauge before a full refresh.
func (m *Metrics) ResetResourceCounts() {
	if m == nil || m.resourcesManaged == nil {
		return
	}
	m.resourcesManaged.Reset()
}

// Policy Metrics

// RecordPolicyViolation records a family policy rejection.
func (m *Metrics) RecordPolicyViolation(policy, family string) {
	if m == nil || m.policyViolations == nil {
		return
	}
	m.policyViolations.WithLabelValues(policy, family).Inc()
}

// RecordPolicyReload records a policy reload attempt.
func (m *Metrics) RecordPolicyReload(result string) {
	if m == nil || m.policyReloads == nil {
		return
	}
	m.policyReloads.WithLabelValues(result).Inc()
}

// Log Sink Metrics

// RecordLogAppend records an observation append and its outcome.
func (m *Metrics) RecordLogAppend(sink string, err error) {
	if m == nil || m.logAppends == nil {
		return
	}
	if err != nil {
		m.logAppendErrors.WithLabelValues(sink).Inc()
		return
	}
	m.logAppends.WithLabelValues(sink).Inc()
}

// Error Metrics

// RecordError records an error by code.
func (m *Metrics) RecordError(code string) {
	if m == nil || m.errorsByCode == nil || code == "" {
		return
	}
	m.errorsByCode.WithLabelValues(code).Inc()
}

// Registry returns the underlying Prometheus registry, or nil when metrics
// are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics. It returns once
// the listener is bound; serving continues in the background until
// StopMetricsServer is called.
func (m *Metrics) StartMetricsServer() error {
	if m == nil || !m.config.Enabled || m.config.ListenAddress == "" {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	ln, err := net.Listen("tcp", m.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.config.ListenAddress, err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	m.mu.Lock()
	m.server = server
	m.mu.Unlock()

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("address", m.config.ListenAddress).Msg("Metrics server stopped")
		}
	}()

	log.Info().Str("address", ln.Addr().String()).Str("path", path).Msg("Serving metrics")
	return nil
}

// StopMetricsServer shuts the metrics server down if it is running.
func (m *Metrics) StopMetricsServer(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	server := m.server
	m.server = nil
	m.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
