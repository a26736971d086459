package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudconnect/cloudconnect/pkg/config"
	"github.com/cloudconnect/cloudconnect/pkg/engine"
)

// validation is the outcome for one declared resource.
type validation struct {
	Resource string `json:"resource"`
	Kind     string `json:"kind"`
	Valid    bool   `json:"valid"`
	Details  string `json:"details,omitempty"`
	Code     string `json:"code,omitempty"`
	Error    string `json:"error,omitempty"`
}

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest.cue>...",
		Short: "Check CUE manifests without creating anything",
		Long: `Check CUE manifests without creating anything.

This command checks:
  - CUE syntax and the manifest schema
  - Resource names, kinds and configurations, through the same family
    policies and validators used by apply
  - That each resource's actions are legal lifecycle transitions`,
		Example: `  cloudconnect validate resources.cue
  cloudconnect validate --baseline --json ./manifests`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			manifest, err := config.NewCUEParser().Parse(ctx, args)
			if err != nil {
				return err
			}
			if err := manifest.RequireResources(); err != nil {
				return err
			}

			s, err := openSession(cmd, sessionOptions{memorySink: true})
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			results := make([]validation, 0, len(manifest.Resources))
			invalid := 0
			for _, decl := range manifest.Resources {
				v := s.validateDecl(cmd, decl)
				if !v.Valid {
					invalid++
				}
				results = append(results, v)
			}

			if jsonOutput {
				if err := writeJSON(out, results); err != nil {
					return err
				}
			} else {
				for _, v := range results {
					if v.Valid {
						fmt.Fprintf(out, "ok    %s (%s): %s\n", v.Resource, v.Kind, v.Details)
					} else {
						fmt.Fprintf(out, "FAIL  %s (%s): %s\n", v.Resource, v.Kind, v.Error)
					}
				}
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d resource(s) invalid", invalid, len(results))
			}
			return nil
		},
	}

	return cmd
}

// validateDecl constructs the resource without registering it, then replays
// its actions through the transition function.
func (s *session) validateDecl(cmd *cobra.Command, decl config.ResourceDecl) validation {
	v := validation{Resource: decl.Name, Kind: decl.Kind}

	res, err := s.pipeline.Construct(cmd.Context(), decl.Kind, decl.Name, decl.Config)
	if err != nil {
		v.Code = string(engine.CodeOf(err))
		v.Error = err.Error()
		return v
	}
	v.Kind = res.Kind()
	v.Details = res.Details()

	state := res.State()
	for _, action := range decl.Actions {
		next, _, err := engine.Apply(state, engine.Operation(action), res.Name())
		if err != nil {
			v.Code = string(engine.CodeOf(err))
			v.Error = fmt.Sprintf("action %s: %v", action, err)
			return v
		}
		state = next
	}

	v.Valid = true
	return v
}
