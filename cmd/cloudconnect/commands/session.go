package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cloudconnect/cloudconnect/pkg/auditlog"
	"github.com/cloudconnect/cloudconnect/pkg/config"
	"github.com/cloudconnect/cloudconnect/pkg/factory"
	"github.com/cloudconnect/cloudconnect/pkg/kinds"
	"github.com/cloudconnect/cloudconnect/pkg/manager"
	"github.com/cloudconnect/cloudconnect/pkg/policy"
	"github.com/cloudconnect/cloudconnect/pkg/telemetry"
)

// shutdownTimeout bounds telemetry flushing on exit.
const shutdownTimeout = 5 * time.Second

// session holds everything a command needs: configuration, telemetry, the
// audit sink, the construction pipeline and the manager.
type session struct {
	cfg      *config.AppConfig
	logger   zerolog.Logger
	tel      *telemetry.Telemetry
	catalog  *kinds.Catalog
	pipeline *factory.Pipeline
	sink     auditlog.ReadableSink
	manager  *manager.Manager

	closers []func() error
}

type sessionOptions struct {
	// memorySink replaces the configured sink with an in-memory one.
	memorySink bool
}

// loadConfig reads the config file and applies the global flags over it.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.LoadAppConfig(configPath)
	if err != nil {
		return nil, err
	}

	if logDir != "" {
		cfg.LogDir = logDir
	}
	if sinkType != "" {
		cfg.Sink = sinkType
	}
	if noInstrument {
		cfg.Instrumentation = false
	}
	if baseline {
		cfg.FamilyPolicies = "baseline"
	}
	if metricsAddr != "" {
		cfg.Telemetry.Metrics.Enabled = true
		cfg.Telemetry.Metrics.ListenAddress = metricsAddr
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	cfg.Telemetry.ServiceVersion = appVersion

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession builds a session from the config file and global flags. The
// caller must Close it.
func openSession(cmd *cobra.Command, opts sessionOptions) (s *session, err error) {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if opts.memorySink {
		cfg.Sink = config.SinkMemory
	}

	s = &session{cfg: cfg, catalog: kinds.NewBuiltinCatalog()}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	s.tel, err = telemetry.NewTelemetry(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.closers = append(s.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.tel.Shutdown(shutdownCtx)
	})
	s.logger = s.tel.Logger.Zerolog()

	if err := s.tel.StartMetricsServer(); err != nil {
		return nil, err
	}

	sink, closeSink, err := auditlog.Open(ctx, auditlog.Options{
		Type:         cfg.Sink,
		Dir:          cfg.LogDir,
		DatabasePath: cfg.DatabasePath,
		Logger:       &s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.sink = sink
	s.closers = append(s.closers, closeSink)

	if rec, ok := sink.(auditlog.EventRecorder); ok {
		auditlog.PersistEvents(context.WithoutCancel(ctx), s.tel.Events, rec, &s.logger)
		// Drain buffered events before the store closes.
		s.closers = append(s.closers, func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return s.tel.Events.Shutdown(shutdownCtx)
		})
	}

	if err := s.buildPipeline(ctx); err != nil {
		return nil, err
	}

	mopts := manager.Options{
		Sink:                   s.sink,
		DisableInstrumentation: !cfg.Instrumentation,
		Logger:                 &s.logger,
		Telemetry:              s.tel,
	}
	if cfg.Echo {
		mopts.Echo = cmd.OutOrStdout()
	}
	s.manager = manager.New(s.pipeline, mopts)

	s.logger.Debug().
		Str("sink", s.sink.Name()).
		Str("family_policies", cfg.FamilyPolicies).
		Bool("instrumentation", cfg.Instrumentation).
		Msg("Session ready")
	return s, nil
}

// buildPipeline assembles the family policy chain: the builtin set first,
// then Rego policies, then Starlark scripts.
func (s *session) buildPipeline(ctx context.Context) error {
	policies, err := factory.PoliciesFor(s.cfg.FamilyPolicies)
	if err != nil {
		return err
	}
	s.pipeline = factory.New(s.catalog, factory.Options{
		Policies:  policies,
		Logger:    &s.logger,
		Telemetry: s.tel,
	})

	if len(s.cfg.BuiltinPolicies) > 0 || len(s.cfg.PolicyPaths) > 0 {
		eng := policy.NewEngine(s.logger, policy.WithTelemetry(s.tel))
		if err := eng.EnableBuiltins(ctx, s.cfg.BuiltinPolicies...); err != nil {
			return err
		}
		if len(s.cfg.PolicyPaths) > 0 {
			if err := eng.LoadPolicies(ctx, s.cfg.PolicyPaths); err != nil {
				return err
			}
			if s.cfg.WatchPolicies {
				loader, err := eng.Watch(ctx, s.cfg.PolicyPaths)
				if err != nil {
					return err
				}
				s.closers = append(s.closers, loader.StopWatching)
			}
		}
		s.pipeline.AddPolicy(eng)
	}

	if len(s.cfg.PolicyScripts) > 0 {
		scripts, err := policy.LoadScriptPolicies(s.cfg.PolicyScripts)
		if err != nil {
			return err
		}
		for _, script := range scripts {
			s.pipeline.AddPolicy(script)
		}
	}
	return nil
}

// Close releases everything the session opened, in reverse order.
func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
