package ui

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"
)

// TranscriptLine is one spoken line of a briefing.
type TranscriptLine struct {
	Speaker string
	Text    string
}

// RenderTranscript prints each line with a per-speaker colour. Speakers get
// styles in order of first appearance.
func RenderTranscript(lines []TranscriptLine, width int) string {
	if width <= 0 {
		width = LineWidth
	}
	assigned := map[string]int{}
	var out []string
	for _, line := range lines {
		if line.Speaker == "" {
			out = append(out, wordwrap.String(line.Text, width))
			continue
		}
		idx, ok := assigned[line.Speaker]
		if !ok {
			idx = len(assigned) % len(speakerStyles)
			assigned[line.Speaker] = idx
		}
		out = append(out, speakerStyles[idx].Render(line.Speaker+":"))
		out = append(out, IndentBlock(wordwrap.String(line.Text, width-DocumentIndent), DocumentIndent))
	}
	return strings.Join(out, "\n")
}
