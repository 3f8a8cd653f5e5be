package ui

import (
	"fmt"

	"github.com/intorma/torma/task"
)

// DisplayDateLayout is the day-first layout used on the board.
const DisplayDateLayout = "02/01/2006"

// FormatDate renders a due date as dd/mm/yyyy, or "-" when unset.
func FormatDate(due *task.Date) string {
	if due == nil || due.IsZero() {
		return "-"
	}
	return due.Format(DisplayDateLayout)
}

// FormatDue renders a due date together with its distance from today.
func FormatDue(due *task.Date, today task.Date) string {
	if due == nil || due.IsZero() {
		return "-"
	}
	return FormatDate(due) + " (" + RelativeDays(today.DaysUntil(*due)) + ")"
}

// RelativeDays describes a signed day offset in Indonesian.
func RelativeDays(days int) string {
	switch {
	case days == 0:
		return "hari ini"
	case days == 1:
		return "besok"
	case days == 2:
		return "lusa"
	case days > 0:
		return fmt.Sprintf("%d hari lagi", days)
	case days == -1:
		return "kemarin"
	default:
		return fmt.Sprintf("terlambat %d hari", -days)
	}
}
