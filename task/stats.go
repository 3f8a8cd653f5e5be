package task

// StatsWindow is the number of days covered by Stats.CompletedByDay.
const StatsWindow = 7

// Stats summarizes a task list for the analytics view.
type Stats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`

	// CompletedByDay counts done tasks by due date over the last
	// StatsWindow days, oldest first, ending today.
	CompletedByDay []DayCount `json:"completedByDay"`

	// Sources counts tasks by source in first-seen order.
	Sources []SourceCount `json:"sources"`
}

// DayCount is one bar of the completed-per-day chart.
type DayCount struct {
	Date  Date `json:"date"`
	Count int  `json:"count"`
}

// SourceCount is one slice of the source distribution.
type SourceCount struct {
	Source Source `json:"source"`
	Count  int    `json:"count"`
}

// Summarize computes Stats for tasks relative to today.
func Summarize(tasks []Task, today Date) Stats {
	stats := Stats{
		Total:          len(tasks),
		CompletedByDay: make([]DayCount, StatsWindow),
		Sources:        []SourceCount{},
	}

	first := today.AddDays(-(StatsWindow - 1))
	for i := range stats.CompletedByDay {
		stats.CompletedByDay[i].Date = first.AddDays(i)
	}

	sourceIndex := make(map[Source]int)
	for _, t := range tasks {
		switch {
		case t.Status.IsActive():
			stats.Active++
		case t.Status == StatusDone:
			stats.Completed++
		}
		if t.IsOverdue(today) {
			stats.Overdue++
		}

		if t.Status == StatusDone && t.DueDate != nil {
			offset := first.DaysUntil(*t.DueDate)
			if offset >= 0 && offset < StatsWindow {
				stats.CompletedByDay[offset].Count++
			}
		}

		i, ok := sourceIndex[t.Source]
		if !ok {
			i = len(stats.Sources)
			sourceIndex[t.Source] = i
			stats.Sources = append(stats.Sources, SourceCount{Source: t.Source})
		}
		stats.Sources[i].Count++
	}

	return stats
}
