package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/intorma/torma/internal/ui"
	"github.com/intorma/torma/task"
)

func encodeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

// highlight renders id with its unique prefix marked.
func (a *app) highlight(store *task.Store, id string) string {
	return ui.HighlightID(id, ui.PrefixLength(store.IDIndex().PrefixLengths(), id))
}

// printTaskTable prints tasks in board order.
func printTaskTable(w io.Writer, tasks []task.Task, prefixLengths map[string]int, today task.Date) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}
	fmt.Fprint(w, formatTaskTable(tasks, prefixLengths, ui.HighlightID, today))
}

func formatTaskTable(tasks []task.Task, prefixLengths map[string]int, highlight func(string, int) string, today task.Date) string {
	builder := ui.NewTableBuilder([]string{"ID", "STATUS", "SOURCE", "DUE", "CUSTOMER", "DESCRIPTION"}, len(tasks))

	for _, t := range tasks {
		due := ui.FormatDate(t.DueDate)
		if t.IsOverdue(today) {
			due += " !"
		}
		builder.AddRow(
			highlight(t.ID, ui.PrefixLength(prefixLengths, t.ID)),
			string(t.Status),
			string(t.Source),
			due,
			ui.TruncateTableCell(t.CustomerName),
			ui.TruncateTableCell(t.Description),
		)
	}

	return builder.String()
}

const detailLineWidth = ui.LineWidth

// printTaskDetail prints every field of a task.
func printTaskDetail(w io.Writer, t task.Task, prefixLengths map[string]int, today task.Date) {
	fmt.Fprintf(w, "ID:       %s\n", ui.HighlightID(t.ID, ui.PrefixLength(prefixLengths, t.ID)))
	fmt.Fprintf(w, "Customer: %s\n", t.CustomerName)
	fmt.Fprintf(w, "Status:   %s\n", t.Status)
	fmt.Fprintf(w, "Source:   %s\n", t.Source)
	fmt.Fprintf(w, "Due:      %s\n", ui.FormatDue(t.DueDate, today))

	if t.Description != "" {
		fmt.Fprintf(w, "\nDescription:\n%s\n", ui.RenderMarkdown(t.Description, detailLineWidth))
	}
}
