package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudconnect/cloudconnect/pkg/auditlog"
)

func newLogsCommand() *cobra.Command {
	var (
		all    bool
		events bool
	)

	cmd := &cobra.Command{
		Use:   "logs [name]",
		Short: "List audit log streams or print one",
		Long: `Without arguments, list the resources that have audit logs in the
configured sink. With a resource name, print that resource's log.
With --events, print the telemetry events the sqlite sink recorded.`,
		Example: `  cloudconnect logs
  cloudconnect logs web1
  cloudconnect logs --all --sink sqlite
  cloudconnect logs --events web1 --sink sqlite`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, sessionOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			if events {
				return s.printEvents(cmd.Context(), cmd.OutOrStdout(), args)
			}
			if all {
				return s.printAllLogs(cmd.Context(), cmd.OutOrStdout())
			}
			return s.printLogs(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "print every log stream")
	cmd.Flags().BoolVar(&events, "events", false, "print recorded events (sqlite sink)")

	return cmd
}

// printLogs lists the streams when args is empty and prints the named stream
// otherwise.
func (s *session) printLogs(ctx context.Context, out io.Writer, args []string) error {
	if len(args) > 0 {
		lines, err := s.sink.Read(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(out, lines)
		}
		printStream(out, args[0], lines)
		return nil
	}

	streams, err := s.sink.Streams(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, streams)
	}
	if len(streams) == 0 {
		fmt.Fprintln(out, "No logs found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d log streams:\n", len(streams))
	for i, name := range streams {
		fmt.Fprintf(out, "%d. %s\n", i+1, name)
	}
	return nil
}

func (s *session) printAllLogs(ctx context.Context, out io.Writer) error {
	streams, err := s.sink.Streams(ctx)
	if err != nil {
		return err
	}

	all := make(map[string][]string, len(streams))
	for _, name := range streams {
		lines, err := s.sink.Read(ctx, name)
		if err != nil {
			return err
		}
		all[name] = lines
	}

	if jsonOutput {
		return writeJSON(out, all)
	}
	if len(streams) == 0 {
		fmt.Fprintln(out, "No logs found.")
		return nil
	}
	for _, name := range streams {
		printStream(out, name, all[name])
	}
	return nil
}

func (s *session) printEvents(ctx context.Context, out io.Writer, args []string) error {
	rec, ok := s.sink.(auditlog.EventRecorder)
	if !ok {
		return fmt.Errorf("sink %s does not record events", s.sink.Name())
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}
	events, err := rec.Events(ctx, name, 0)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(out, events)
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "No events found.")
		return nil
	}
	for _, e := range events {
		fmt.Fprintf(out, "[%s] %-7s %s: %s\n", auditlog.Timestamp(e.Timestamp), e.Level, e.Type, e.Message)
	}
	return nil
}

func printStream(out io.Writer, name string, lines []string) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(out, "%s\nLogs for %s\n%s\n", rule, name, rule)
	if len(lines) == 0 {
		fmt.Fprintln(out, "No log entries found.")
		return
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}
