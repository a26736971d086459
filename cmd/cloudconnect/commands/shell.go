package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
)

const shellHelp = `Commands:
  create <kind> <name> [key=value ...]   create a resource
  start <name>                           start a resource
  stop <name>                            stop a resource
  delete <name>                          delete a resource
  get <name>                             show one resource
  list                                   list resources with a summary
  count                                  show resource counts
  logs [name]                            list log streams or print one
  kinds                                  list resource kinds
  help                                   show this help
  exit                                   leave the shell`

func newShellCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Long: `Start an interactive, line-oriented session. Resources live for the
duration of the session; audit logs are kept in the configured sink.

Configuration values are typed the way YAML types scalars: true/false are
booleans, 3 is an integer, 1.5 is a float and anything else is a string.`,
		Example: `  cloudconnect shell
  > create AppService web1 runtime=python region=EastUS replica_count=2
  > start web1
  > list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, sessionOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			return s.runShell(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	return cmd
}

// runShell reads commands from in until exit, end of input or ctx is done.
func (s *session) runShell(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Welcome to CloudConnect. Type 'help' for commands.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if done := s.dispatch(ctx, out, fields); done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	fmt.Fprintln(out, "Exiting CloudConnect. Goodbye!")
	return nil
}

// dispatch runs one shell command and reports whether the session is over.
func (s *session) dispatch(ctx context.Context, out io.Writer, fields []string) bool {
	command, args := strings.ToLower(fields[0]), fields[1:]

	switch command {
	case "exit", "quit":
		return true

	case "help":
		fmt.Fprintln(out, shellHelp)

	case "create":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: create <kind> <name> [key=value ...]")
			return false
		}
		cfg, err := parseAssignments(args[2:])
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return false
		}
		msg, err := s.manager.Create(ctx, args[0], args[1], cfg)
		if err != nil {
			fmt.Fprintf(out, "Creation failed: %v\n", err)
			return false
		}
		fmt.Fprintln(out, msg)

	case "start", "stop", "delete":
		if len(args) != 1 {
			fmt.Fprintf(out, "Usage: %s <name>\n", command)
			return false
		}
		msg, err := s.manager.Invoke(ctx, args[0], engine.Operation(command))
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return false
		}
		fmt.Fprintln(out, msg)

	case "get":
		if len(args) != 1 {
			fmt.Fprintln(out, "Usage: get <name>")
			return false
		}
		h, err := s.manager.Get(args[0])
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return false
		}
		_ = writeJSON(out, h.View())

	case "list":
		if jsonOutput {
			_ = writeJSON(out, overview{Resources: s.manager.ListAll(), Summary: s.manager.CountSummary()})
			return false
		}
		printOverview(out, s.manager.ListAll(), s.manager.CountSummary())

	case "count":
		_ = writeJSON(out, s.manager.CountSummary())

	case "logs":
		if err := s.printLogs(ctx, out, args); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}

	case "kinds":
		s.printKinds(out)

	default:
		fmt.Fprintf(out, "Unknown command %q. Type 'help' for commands.\n", command)
	}
	return false
}

// parseAssignments turns key=value arguments into a configuration map.
func parseAssignments(args []string) (map[string]interface{}, error) {
	cfg := make(map[string]interface{}, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		cfg[strings.TrimSpace(key)] = parseScalar(raw)
	}
	return cfg, nil
}

// parseScalar types a value the way YAML types a plain scalar. Values that
// YAML reads as null or as a collection stay strings.
func parseScalar(raw string) interface{} {
	var v interface{}
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case bool, int, float64, string:
		return v
	default:
		return raw
	}
}
