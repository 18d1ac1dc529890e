package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-canvas/pkg/constraints"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load config and seed, route once and validate the diagram invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), sessionOptions{inline: true, quiet: true})
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			st := s.engine.Store()
			fmt.Fprintf(out, "%d assets, %d groups, %d relations, %d rendered edges\n",
				len(st.Assets()), len(st.Groups()), len(st.Relations()), len(s.engine.RenderedEdges()))

			res, err := s.engine.CheckInvariants()
			if err != nil {
				return err
			}
			for _, v := range res.Violations {
				style := warnStyle
				if v.Severity == constraints.Error {
					style = failStyle
				}
				fmt.Fprintln(out, style.Render(fmt.Sprintf("%s %s %s: %s", v.Severity, v.Kind, v.EntityID, v.Message)))
			}
			if !res.Valid {
				return fmt.Errorf("%d invariant violation(s)", len(res.Errors()))
			}
			fmt.Fprintln(out, okStyle.Render("ok"))
			return nil
		},
	}
}
