package assist

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/intorma/torma/task"
)

// RelativeDates are the anchor dates offered to the model.
type RelativeDates struct {
	CurrentDate      task.Date
	Tomorrow         task.Date
	DayAfterTomorrow task.Date
	NextWeek         task.Date
}

// NewRelativeDates computes the anchors for today.
func NewRelativeDates(today task.Date) RelativeDates {
	return RelativeDates{
		CurrentDate:      today,
		Tomorrow:         today.AddDays(1),
		DayAfterTomorrow: today.AddDays(2),
		NextWeek:         today.AddDays(7),
	}
}

// Mention is a relative date phrase found in user input.
type Mention struct {
	// Text is the phrase as written.
	Text string
	// Offset is the number of days after today.
	Offset int
	Date   task.Date
	// Pos is the byte offset of Text in the input.
	Pos int
}

var numberWords = map[string]int{
	"satu": 1, "dua": 2, "tiga": 3, "empat": 4, "lima": 5,
	"enam": 6, "tujuh": 7, "delapan": 8, "sembilan": 9, "sepuluh": 10,
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"a": 1,
}

const numberPattern = `(\d{1,3}|satu|dua|tiga|empat|lima|enam|tujuh|delapan|sembilan|sepuluh|one|two|three|four|five|six|seven|eight|nine|ten|a)`

type datePattern struct {
	re *regexp.Regexp
	// days is the fixed offset, or the multiplier of the captured number.
	days   int
	counts bool
}

var datePatterns = []datePattern{
	{re: regexp.MustCompile(`(?i)\bhari ini\b`), days: 0},
	{re: regexp.MustCompile(`(?i)\btoday\b`), days: 0},
	{re: regexp.MustCompile(`(?i)\bbesok\b`), days: 1},
	{re: regexp.MustCompile(`(?i)\btomorrow\b`), days: 1},
	{re: regexp.MustCompile(`(?i)\blusa\b`), days: 2},
	{re: regexp.MustCompile(`(?i)\b(the )?day after tomorrow\b`), days: 2},
	{re: regexp.MustCompile(`(?i)\bminggu depan\b`), days: 7},
	{re: regexp.MustCompile(`(?i)\bseminggu lagi\b`), days: 7},
	{re: regexp.MustCompile(`(?i)\bnext week\b`), days: 7},
	{re: regexp.MustCompile(`(?i)\b` + numberPattern + `\s+hari\s+lagi\b`), days: 1, counts: true},
	{re: regexp.MustCompile(`(?i)\bin\s+` + numberPattern + `\s+days?\b`), days: 1, counts: true},
	{re: regexp.MustCompile(`(?i)\b` + numberPattern + `\s+minggu\s+lagi\b`), days: 7, counts: true},
	{re: regexp.MustCompile(`(?i)\bin\s+` + numberPattern + `\s+weeks?\b`), days: 7, counts: true},
}

// ResolveRelativeDates finds relative date phrases in input, in the order
// they appear. Overlapping phrases resolve to the longest one, so "day after
// tomorrow" is not also read as "tomorrow".
func ResolveRelativeDates(input string, today task.Date) []Mention {
	var found []Mention
	for _, pattern := range datePatterns {
		for _, loc := range pattern.re.FindAllStringSubmatchIndex(input, -1) {
			offset := pattern.days
			if pattern.counts {
				n, ok := parseCount(input[loc[2]:loc[3]])
				if !ok {
					continue
				}
				offset = n * pattern.days
			}
			found = append(found, Mention{
				Text:   input[loc[0]:loc[1]],
				Offset: offset,
				Pos:    loc[0],
			})
		}
	}

	slices.SortStableFunc(found, func(a, b Mention) int {
		if a.Pos != b.Pos {
			return a.Pos - b.Pos
		}
		return len(b.Text) - len(a.Text)
	})

	mentions := make([]Mention, 0, len(found))
	end := -1
	for _, m := range found {
		if m.Pos < end {
			continue
		}
		m.Date = today.AddDays(m.Offset)
		mentions = append(mentions, m)
		end = m.Pos + len(m.Text)
	}
	return mentions
}

func parseCount(value string) (int, bool) {
	value = strings.ToLower(value)
	if n, ok := numberWords[value]; ok {
		return n, true
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}
