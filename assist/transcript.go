package assist

import (
	"strings"

	internalstrings "github.com/intorma/torma/internal/strings"
)

// Line is one line of a briefing script.
type Line struct {
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
}

// ParseTranscript splits a "Speaker: Text" script into lines. Lines without
// a speaker keep their text with an empty Speaker; blank lines are dropped.
func ParseTranscript(transcript string) []Line {
	var lines []Line
	for _, raw := range strings.Split(internalstrings.NormalizeNewlines(transcript), "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		speaker, text, ok := strings.Cut(raw, ": ")
		speaker = strings.Trim(strings.TrimSpace(speaker), "*")
		if !ok || speaker == "" || strings.ContainsAny(speaker, ".!?") {
			lines = append(lines, Line{Text: raw})
			continue
		}
		lines = append(lines, Line{Speaker: speaker, Text: strings.TrimSpace(text)})
	}
	return lines
}

func hasSpeakerLine(lines []Line) bool {
	for _, line := range lines {
		if line.Speaker != "" && line.Text != "" {
			return true
		}
	}
	return false
}
