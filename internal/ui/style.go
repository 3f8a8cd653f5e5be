package ui

import "github.com/charmbracelet/lipgloss"

var (
	borderASCII = lipgloss.Border{
		Top:         "-",
		Bottom:      "-",
		Left:        "|",
		Right:       "|",
		TopLeft:     "+",
		TopRight:    "+",
		BottomLeft:  "+",
		BottomRight: "+",
	}

	columnStyle  = lipgloss.NewStyle().Border(borderASCII).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	speakerStyles = []lipgloss.Style{
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")),
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170")),
	}
)

// Heading renders a section label.
func Heading(label string) string {
	return headerStyle.Render(label)
}

// Muted renders secondary text.
func Muted(value string) string {
	return mutedStyle.Render(value)
}
