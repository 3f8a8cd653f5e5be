package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/intorma/torma/board"
	"github.com/intorma/torma/task"
	"github.com/muesli/reflow/wordwrap"
)

const minColumnWidth = 20

// BoardOptions controls board rendering.
type BoardOptions struct {
	// Width is the total width available. Zero means LineWidth.
	Width int
	// Today marks overdue cards.
	Today task.Date
	// PrefixLengths highlights unique id prefixes when set.
	PrefixLengths map[string]int
}

// RenderBoard lays the columns out side by side, one card per task.
func RenderBoard(columns []board.Column, opts BoardOptions) string {
	if len(columns) == 0 {
		return ""
	}
	width := opts.Width
	if width <= 0 {
		width = LineWidth
	}
	// border and padding take four cells per column
	inner := max(width/len(columns)-4, minColumnWidth)

	panes := make([]string, 0, len(columns))
	for _, column := range columns {
		panes = append(panes, columnStyle.Width(inner+2).Render(renderColumn(column, inner, opts)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panes...)
}

func renderColumn(column board.Column, width int, opts BoardOptions) string {
	lines := []string{
		headerStyle.Render(fmt.Sprintf("%s (%d)", column.Status, len(column.Tasks))),
	}
	if len(column.Tasks) == 0 {
		lines = append(lines, "", mutedStyle.Render("kosong"))
		return strings.Join(lines, "\n")
	}
	for _, t := range column.Tasks {
		lines = append(lines, "", renderCard(t, width, opts))
	}
	return strings.Join(lines, "\n")
}

func renderCard(t task.Task, width int, opts BoardOptions) string {
	id := HighlightID(t.ID, PrefixLength(opts.PrefixLengths, t.ID))
	title := id + " " + t.CustomerName
	if t.Status == task.StatusDone {
		title = doneStyle.Render(title)
	}

	lines := []string{title}
	if desc := strings.TrimSpace(t.Description); desc != "" {
		lines = append(lines, wordwrap.String(firstLine(desc), width))
	}

	meta := string(t.Source)
	if t.DueDate != nil {
		due := FormatDate(t.DueDate)
		if !opts.Today.IsZero() && t.IsOverdue(opts.Today) {
			due = overdueStyle.Render(due + " !")
		}
		meta += " · " + due
	}
	lines = append(lines, mutedStyle.Render(meta))
	return strings.Join(lines, "\n")
}

func firstLine(value string) string {
	line, _, _ := strings.Cut(value, "\n")
	return line
}
