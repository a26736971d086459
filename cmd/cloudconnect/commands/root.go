package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath   string
	verbose      bool
	jsonOutput   bool
	logDir       string
	sinkType     string
	noInstrument bool
	baseline     bool
	metricsAddr  string

	appVersion = "dev"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	appVersion = version

	rootCmd := &cobra.Command{
		Use:   "cloudconnect",
		Short: "CloudConnect - cloud resource lifecycle engine",
		Long: `CloudConnect creates simulated cloud resources, drives them through their
lifecycle and keeps a per-resource audit log.

Features:
  - AppService, StorageAccount and CacheDB resource kinds
  - Family policies that default and bound configuration
  - Rego admission policies and Starlark policy scripts
  - Declarative CUE manifests
  - Audit logs in files or SQLite`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "audit log directory for the file sink")
	rootCmd.PersistentFlags().StringVar(&sinkType, "sink", "", "audit log sink (file, sqlite, memory)")
	rootCmd.PersistentFlags().BoolVar(&noInstrument, "no-instrument", false, "do not audit lifecycle operations")
	rootCmd.PersistentFlags().BoolVar(&baseline, "baseline", false, "use the baseline family policies (no defaults or bounds)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	rootCmd.AddCommand(newShellCommand())
	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newLogsCommand())
	rootCmd.AddCommand(newKindsCommand())

	return rootCmd
}
