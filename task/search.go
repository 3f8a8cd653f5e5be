package task

import (
	internalstrings "github.com/intorma/torma/internal/strings"
)

// Search returns the tasks whose customer name or description contains
// term, ignoring case. A blank term matches everything.
func Search(tasks []Task, term string) []Task {
	if internalstrings.IsBlank(term) {
		return Filter(tasks, func(Task) bool { return true })
	}
	needle := internalstrings.NormalizeLowerTrimSpace(term)
	return Filter(tasks, func(t Task) bool {
		return internalstrings.ContainsFold(t.CustomerName, needle) ||
			internalstrings.ContainsFold(t.Description, needle)
	})
}
