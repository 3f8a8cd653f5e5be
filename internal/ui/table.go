package ui

import (
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const tableCellMaxWidth = 50
const tableCellEllipsis = "..."

// tableViewportWidth reports the terminal width, or 0 when stdout is not a
// terminal.
var tableViewportWidth = func() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

// ViewportWidth is the terminal width, or LineWidth when stdout is not a
// terminal.
func ViewportWidth() int {
	if width := tableViewportWidth(); width > 0 {
		return width
	}
	return LineWidth
}

// TableBuilder collects rows and renders a formatted table.
type TableBuilder struct {
	headers []string
	rows    [][]string
}

// NewTableBuilder returns a builder with preallocated rows.
func NewTableBuilder(headers []string, capacity int) *TableBuilder {
	return &TableBuilder{headers: headers, rows: make([][]string, 0, capacity)}
}

// AddRow appends a row to the table.
func (builder *TableBuilder) AddRow(row ...string) {
	builder.rows = append(builder.rows, row)
}

// Len returns the number of rows added so far.
func (builder *TableBuilder) Len() int {
	return len(builder.rows)
}

// String renders the table output.
func (builder *TableBuilder) String() string {
	return FormatTable(builder.headers, builder.rows)
}

// FormatTable renders headers and rows as an aligned table. Every line is
// padded to the same width. When the table is wider than the terminal the
// last column is truncated to fit.
func FormatTable(headers []string, rows [][]string) string {
	all := make([][]string, 0, len(rows)+1)
	all = append(all, normalizeRow(headers))
	for _, row := range rows {
		all = append(all, normalizeRow(row))
	}

	widths := make([]int, len(headers))
	for _, row := range all {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			widths[i] = max(widths[i], displayWidth(cell))
		}
	}
	if len(widths) == 0 {
		return ""
	}

	total := 0
	for i, w := range widths {
		total += w
		if i > 0 {
			total += 2
		}
	}
	if viewport := tableViewportWidth(); viewport > 0 && total > viewport {
		last := len(widths) - 1
		widths[last] = max(widths[last]-(total-viewport), len(tableCellEllipsis))
	}

	var builder strings.Builder
	for _, row := range all {
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if displayWidth(cell) > widths[i] {
				cell = truncateWithEllipsis(cell, widths[i])
			}
			if i > 0 {
				builder.WriteString("  ")
			}
			builder.WriteString(cell)
			builder.WriteString(strings.Repeat(" ", widths[i]-displayWidth(cell)))
		}
		builder.WriteByte('\n')
	}
	return builder.String()
}

// TruncateTableCell limits cell width while preserving visible characters.
func TruncateTableCell(value string) string {
	value = normalizeTableCell(value)
	if displayWidth(value) <= tableCellMaxWidth {
		return value
	}
	return truncateWithEllipsis(value, tableCellMaxWidth)
}

func truncateWithEllipsis(value string, width int) string {
	limit := width - displayWidth(tableCellEllipsis)
	if limit <= 0 {
		return tableCellEllipsis[:min(width, len(tableCellEllipsis))]
	}
	truncated := truncateVisible(value, limit)
	if strings.Contains(truncated, "\x1b[") {
		truncated += ansiReset
	}
	return truncated + tableCellEllipsis
}

func normalizeRow(row []string) []string {
	normalized := make([]string, len(row))
	for i, cell := range row {
		normalized[i] = normalizeTableCell(cell)
	}
	return normalized
}

func displayWidth(value string) int {
	return utf8.RuneCountInString(stripANSICodes(value))
}

func normalizeTableCell(value string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(value)
}

func truncateVisible(value string, limit int) string {
	if limit <= 0 {
		return ""
	}

	var builder strings.Builder
	visible := 0
	for i := 0; i < len(value); {
		if value[i] == '\x1b' {
			end := i + 1
			if end < len(value) && value[end] == '[' {
				end++
				for end < len(value) && value[end] != 'm' {
					end++
				}
				if end < len(value) {
					end++
				}
				builder.WriteString(value[i:end])
				i = end
				continue
			}
		}
		if visible >= limit {
			break
		}
		r, size := utf8.DecodeRuneInString(value[i:])
		if r == utf8.RuneError && size == 1 {
			builder.WriteByte(value[i])
		} else {
			builder.WriteRune(r)
		}
		visible++
		i += size
	}
	return builder.String()
}

func stripANSICodes(input string) string {
	var builder strings.Builder
	inEscape := false
	for i := 0; i < len(input); i++ {
		char := input[i]
		if inEscape {
			if char == 'm' {
				inEscape = false
			}
			continue
		}
		if char == '\x1b' {
			inEscape = true
			continue
		}
		builder.WriteByte(char)
	}
	return builder.String()
}
