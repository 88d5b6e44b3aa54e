package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"setupclojure/internal/tools"
	"setupclojure/internal/tui"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect managed tools",
	}

	cmd.AddCommand(newToolsListCmd())

	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached versions and the last install of every tool",
		Args:  cobra.NoArgs,
		RunE:  runToolsList,
	}
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}

	statuses, err := tools.Detect(env.toolCache(), env.manifest(), env.arch)
	if err != nil {
		return err
	}

	if outputJSON {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	printStatusTable(cmd, statuses)
	return nil
}

func printStatusTable(cmd *cobra.Command, statuses []tools.Status) {
	if len(statuses) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(no tool statuses)")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TOOL", "CACHED", "ON PATH", "LAST INSTALL").
		StyleFunc(func(row, _ int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Inherit(tui.HeaderStyle)
			}
			return style
		})

	for _, st := range statuses {
		last := "-"
		if st.Last != nil {
			last = fmt.Sprintf("%s (%s)", st.Last.Version, st.Last.Source)
		}
		t.Row(
			st.Tool,
			tui.NonEmptyOrDash(strings.Join(st.Cached, ", ")),
			tui.NonEmptyOrDash(st.SystemPath),
			last,
		)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
}
