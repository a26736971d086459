package commands

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cloudconnect/cloudconnect/pkg/config"
	"github.com/cloudconnect/cloudconnect/pkg/engine"
)

func newApplyCommand() *cobra.Command {
	var failFast bool

	cmd := &cobra.Command{
		Use:   "apply <manifest.cue>...",
		Short: "Create resources declared in CUE manifests",
		Long: `Create every resource declared in the given CUE manifests, in declaration
order, then run each resource's actions. Files and directories are accepted;
directories are searched for .cue files recursively.

A rejected resource does not stop the run unless --fail-fast is set; its
actions are skipped.`,
		Example: `  # Apply a manifest
  cloudconnect apply resources.cue

  # Apply and keep audit logs in SQLite
  cloudconnect apply --sink sqlite ./manifests`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			manifest, err := config.NewCUEParser().Parse(ctx, args)
			if err != nil {
				return err
			}
			if err := manifest.RequireResources(); err != nil {
				return err
			}

			s, err := openSession(cmd, sessionOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			log.Info().
				Strs("sources", manifest.SourceFiles).
				Int("resources", len(manifest.Resources)).
				Msg("Applying manifest")

			out := cmd.OutOrStdout()
			if jsonOutput {
				out = io.Discard
			}

			var failures []failure
		apply:
			for _, decl := range manifest.Resources {
				msg, err := s.manager.Create(ctx, decl.Kind, decl.Name, decl.Config)
				if err != nil {
					failures = append(failures, newFailure(decl.Name, "create", err))
					fmt.Fprintf(out, "Creation failed: %v\n", err)
					if failFast {
						break
					}
					continue
				}
				fmt.Fprintln(out, msg)

				for _, action := range decl.Actions {
					msg, err := s.manager.Invoke(ctx, decl.Name, engine.Operation(action))
					if err != nil {
						failures = append(failures, newFailure(decl.Name, action, err))
						fmt.Fprintf(out, "Error: %v\n", err)
						if failFast {
							break apply
						}
						break
					}
					fmt.Fprintln(out, msg)
				}
			}

			views, summary := s.manager.ListAll(), s.manager.CountSummary()
			if jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), overview{Resources: views, Summary: summary, Failures: failures}); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out)
				printOverview(out, views, summary)
			}

			if len(failures) > 0 {
				return fmt.Errorf("%d operation(s) failed", len(failures))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first rejected operation")

	return cmd
}
