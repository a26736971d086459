package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cloudconnect/cloudconnect/pkg/telemetry"
)

// Sink types accepted in AppConfig.Sink.
const (
	SinkFile   = "file"
	SinkSQLite = "sqlite"
	SinkMemory = "memory"
)

// Environment variables that override the config file.
const (
	EnvLogDir       = "CLOUDCONNECT_LOG_DIR"
	EnvSink         = "CLOUDCONNECT_SINK"
	EnvDatabasePath = "CLOUDCONNECT_DATABASE"
	EnvLogLevel     = "LOG_LEVEL"
)

// AppConfig is the application configuration read by the CLI.
type AppConfig struct {
	// LogDir holds one audit log file per resource when Sink is "file".
	LogDir string `yaml:"log_dir" validate:"required_if=Sink file"`

	// Sink selects the audit log backend: file, sqlite or memory.
	Sink string `yaml:"sink" validate:"required,oneof=file sqlite memory"`

	// DatabasePath is the SQLite database used when Sink is "sqlite".
	DatabasePath string `yaml:"database_path" validate:"required_if=Sink sqlite"`

	// Instrumentation wraps every created resource so lifecycle calls are
	// audited.
	Instrumentation bool `yaml:"instrumentation"`

	// Echo prints every audit record to stdout as it is written.
	Echo bool `yaml:"echo"`

	// FamilyPolicies selects the builtin family policy set: standard or
	// baseline.
	FamilyPolicies string `yaml:"family_policies" validate:"required,oneof=standard baseline"`

	// PolicyPaths are Rego files or directories loaded as admission
	// policies.
	PolicyPaths []string `yaml:"policy_paths" validate:"dive,required"`

	// PolicyScripts are Starlark files or directories loaded as family
	// policies.
	PolicyScripts []string `yaml:"policy_scripts" validate:"dive,required"`

	// BuiltinPolicies names builtin Rego policies to enable.
	BuiltinPolicies []string `yaml:"builtin_policies" validate:"dive,required"`

	// WatchPolicies reloads PolicyPaths when files change.
	WatchPolicies bool `yaml:"watch_policies"`

	// Telemetry configures logging, tracing, metrics and events.
	Telemetry *telemetry.Config `yaml:"telemetry" validate:"required"`
}

// DefaultAppConfig returns the configuration used when no file is given.
func DefaultAppConfig() *AppConfig {
	tel := telemetry.DefaultConfig()
	tel.Events.EnableAsync = false

	return &AppConfig{
		LogDir:          "logs",
		Sink:            SinkFile,
		DatabasePath:    filepath.Join("logs", "cloudconnect.db"),
		Instrumentation: true,
		FamilyPolicies:  "standard",
		Telemetry:       tel,
	}
}

// LoadAppConfig reads path over the defaults, applies environment overrides
// and validates the result. An empty path skips the file.
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := DefaultAppConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
		if cfg.Telemetry == nil {
			cfg.Telemetry = telemetry.DefaultConfig()
		}
	}

	lookup, err := EnvLookup(DotEnvFiles...)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(lookup)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// DotEnvFiles are consulted by LoadAppConfig, in order, when present.
var DotEnvFiles = []string{".env.local", ".env"}

// EnvLookup returns a lookup over the process environment that falls back to
// the given dotenv files. Missing files are skipped and earlier files win.
func EnvLookup(files ...string) (func(string) (string, bool), error) {
	values := make(map[string]string)
	for _, file := range files {
		vars, err := godotenv.Read(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", file, err)
		}
		for k, v := range vars {
			if _, ok := values[k]; !ok {
				values[k] = v
			}
		}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}, nil
}

// ApplyEnv overrides fields from environment variables looked up with
// lookup.
func (c *AppConfig) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvLogDir); ok && v != "" {
		c.LogDir = v
	}
	if v, ok := lookup(EnvSink); ok && v != "" {
		c.Sink = v
	}
	if v, ok := lookup(EnvDatabasePath); ok && v != "" {
		c.DatabasePath = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" && c.Telemetry != nil {
		c.Telemetry.Logging.Level = v
	}
}

// Validate checks field constraints and the telemetry section.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed %s validation", fe.Namespace(), fe.Tag())
		}
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}
