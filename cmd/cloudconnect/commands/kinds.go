package commands

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// kindInfo is the JSON form of a registered kind.
type kindInfo struct {
	Name   string `json:"name"`
	Family string `json:"family"`
}

func newKindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List resource kinds and their families",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, sessionOptions{memorySink: true})
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			if jsonOutput {
				var out []kindInfo
				for _, k := range s.catalog.Kinds() {
					out = append(out, kindInfo{Name: k.Name(), Family: string(k.Family())})
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			s.printKinds(cmd.OutOrStdout())
			return nil
		},
	}
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func (s *session) printKinds(out io.Writer) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("KIND", "FAMILY").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, k := range s.catalog.Kinds() {
		t.Row(k.Name(), string(k.Family()))
	}
	fmt.Fprintln(out, t.Render())
}
