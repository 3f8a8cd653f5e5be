package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/intorma/torma/board"
	"github.com/intorma/torma/internal/ui"
	"github.com/intorma/torma/task"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the board",
	Args:  cobra.NoArgs,
	RunE:  runBoard,
}

var boardWidth int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var statsJSON bool

func init() {
	rootCmd.AddCommand(boardCmd, statsCmd)

	boardCmd.Flags().IntVarP(&boardWidth, "width", "w", 0, "Total width (default: terminal width)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
}

func runBoard(cmd *cobra.Command, args []string) error {
	a, store, err := openStoreCmd(cmd.Context())
	if err != nil {
		return err
	}

	b := board.New(store)
	defer b.Close()

	width := boardWidth
	if width <= 0 {
		width = ui.ViewportWidth()
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderBoard(b.Columns(), ui.BoardOptions{
		Width:         width,
		Today:         a.today(),
		PrefixLengths: store.IDIndex().PrefixLengths(),
	}))
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	a, store, err := openStoreCmd(cmd.Context())
	if err != nil {
		return err
	}

	stats := task.Summarize(store.List(), a.today())
	if statsJSON {
		return encodeJSON(cmd.OutOrStdout(), stats)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatStats(stats))
	return nil
}

func formatStats(stats task.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total:     %d\n", stats.Total)
	fmt.Fprintf(&b, "Active:    %d\n", stats.Active)
	fmt.Fprintf(&b, "Completed: %d\n", stats.Completed)
	fmt.Fprintf(&b, "Overdue:   %d\n", stats.Overdue)

	if len(stats.CompletedByDay) > 0 {
		b.WriteString("\n")
		b.WriteString(ui.Heading(fmt.Sprintf("Completed, last %d days", task.StatsWindow)))
		b.WriteString("\n")
		table := ui.NewTableBuilder([]string{"DATE", "DONE"}, len(stats.CompletedByDay))
		for _, day := range stats.CompletedByDay {
			table.AddRow(ui.FormatDate(&day.Date), fmt.Sprint(day.Count))
		}
		b.WriteString(table.String())
	}

	if len(stats.Sources) > 0 {
		b.WriteString("\n")
		b.WriteString(ui.Heading("By source"))
		b.WriteString("\n")
		table := ui.NewTableBuilder([]string{"SOURCE", "TASKS"}, len(stats.Sources))
		for _, source := range stats.Sources {
			table.AddRow(string(source.Source), fmt.Sprint(source.Count))
		}
		b.WriteString(table.String())
	}
	return b.String()
}
