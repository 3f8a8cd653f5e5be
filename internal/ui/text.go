package ui

import (
	"strings"

	"github.com/intorma/torma/internal/markdown"
	internalstrings "github.com/intorma/torma/internal/strings"
	"github.com/muesli/reflow/wordwrap"
)

const (
	// LineWidth is the wrap width for free text.
	LineWidth = 80
	// DocumentIndent is the indent for blocks under a heading.
	DocumentIndent = 4
)

// RenderMarkdown formats markdown text for terminal display.
func RenderMarkdown(value string, width int) string {
	return markdown.String(max(width, 1), value)
}

// ReflowParagraphs wraps each paragraph to width and joins them with a blank
// line.
func ReflowParagraphs(value string, width int) string {
	value = strings.TrimSpace(internalstrings.NormalizeNewlines(value))
	if value == "" {
		return ""
	}
	paragraphs := splitParagraphs(value)
	wrapped := make([]string, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		normalized := internalstrings.NormalizeWhitespace(paragraph)
		if normalized == "" {
			continue
		}
		wrapped = append(wrapped, wordwrap.String(normalized, max(width, 1)))
	}
	return strings.Join(wrapped, "\n\n")
}

func splitParagraphs(value string) []string {
	var paragraphs []string
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		paragraphs = append(paragraphs, strings.Join(current, " "))
		current = nil
	}
	for _, line := range strings.Split(value, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return paragraphs
}

// IndentBlock prefixes each line with spaces.
func IndentBlock(value string, spaces int) string {
	value = internalstrings.TrimTrailingNewlines(value)
	if spaces <= 0 {
		return value
	}
	prefix := strings.Repeat(" ", spaces)
	lines := strings.Split(value, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// WrapIndented wraps value to width and indents every line. Blank input
// renders as an indented "-".
func WrapIndented(value string, width, indent int) string {
	text := ReflowParagraphs(value, width-indent)
	if text == "" {
		text = "-"
	}
	return IndentBlock(text, indent)
}
