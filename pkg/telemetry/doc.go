// Package telemetry provides observability instrumentation for CloudConnect.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and event publishing into a single
// bundle that the construction pipeline, the instrumentation wrapper and the
// registry manager share.
//
// # Architecture
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with otlp or stdout exporters
//  3. Metrics Collection - Prometheus counters, gauges and histograms
//  4. Event Publishing - Buffered event delivery for audit and notifications
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.Metrics.ListenAddress = ":9090"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	if err := tel.StartMetricsServer(); err != nil {
//	    return err
//	}
//
// # Structured Logging
//
//	logger := tel.Logger.NewComponentLogger("manager")
//	logger.WithResource("web1", "AppService").Info("Resource created")
//
// # Distributed Tracing
//
//	ctx, span := tel.Tracer.StartTransitionSpan(ctx, "AppService", "web1", "start")
//	defer span.End()
//
// # Metrics
//
// Metrics are registered on a private registry exposed through Handler:
//
//   - constructions_total{kind,result}, construction_duration_seconds{kind}
//   - transitions_total{kind,operation,result}, transition_duration_seconds{kind,operation}
//   - resources_managed{type,status}
//   - policy_violations_total{policy,family}, policy_reloads_total{result}
//   - log_lines_appended_total{sink}, log_append_errors_total{sink}
//   - errors_by_code_total{code}
//
// Every recording method is a no-op on a disabled collector, so callers
// never check whether metrics are on.
//
// # Events
//
//	tel.Events.Subscribe(func(e telemetry.Event) {
//	    fmt.Println(e.Type, e.Resource)
//	}, telemetry.FilterByType(telemetry.EventTypeResourceTransitioned))
package telemetry
