package task

import (
	"testing"
)

func TestSummarize(t *testing.T) {
	today := MustParseDate("2024-01-10")
	due := func(s string) *Date { return DatePtr(MustParseDate(s)) }

	tasks := []Task{
		{ID: "1", Status: StatusDesign, Source: SourceCS, DueDate: due("2024-01-08")},
		{ID: "2", Status: StatusApproval, Source: SourceN, DueDate: due("2024-01-12")},
		{ID: "3", Status: StatusDone, Source: SourceCS, DueDate: due("2024-01-10")},
		{ID: "4", Status: StatusDone, Source: SourceGroup, DueDate: due("2024-01-04")},
		{ID: "5", Status: StatusDone, Source: SourceCS, DueDate: due("2024-01-03")},
		{ID: "6", Status: StatusDone, Source: SourceAdmin},
		{ID: "7", Status: StatusDone, Source: SourceCS, DueDate: due("2024-01-10")},
	}

	stats := Summarize(tasks, today)

	if stats.Total != 7 || stats.Active != 2 || stats.Completed != 5 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if stats.Overdue != 1 {
		t.Fatalf("expected 1 overdue, got %d", stats.Overdue)
	}

	if len(stats.CompletedByDay) != StatsWindow {
		t.Fatalf("expected %d days, got %d", StatsWindow, len(stats.CompletedByDay))
	}
	if first := stats.CompletedByDay[0].Date.String(); first != "2024-01-04" {
		t.Fatalf("expected window to start 2024-01-04, got %s", first)
	}
	counts := map[string]int{}
	for _, day := range stats.CompletedByDay {
		counts[day.Date.String()] = day.Count
	}
	if counts["2024-01-10"] != 2 || counts["2024-01-04"] != 1 {
		t.Fatalf("unexpected per-day counts %v", counts)
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	if total != 3 {
		t.Fatalf("expected 3 completed in window, got %d", total)
	}

	wantSources := []SourceCount{{SourceCS, 4}, {SourceN, 1}, {SourceGroup, 1}, {SourceAdmin, 1}}
	if len(stats.Sources) != len(wantSources) {
		t.Fatalf("unexpected sources %v", stats.Sources)
	}
	for i, want := range wantSources {
		if stats.Sources[i] != want {
			t.Fatalf("source %d: expected %v, got %v", i, want, stats.Sources[i])
		}
	}
}

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil, MustParseDate("2024-01-10"))
	if stats.Total != 0 || len(stats.Sources) != 0 || len(stats.CompletedByDay) != StatsWindow {
		t.Fatalf("unexpected empty stats %+v", stats)
	}
	if stats.CompletedByDay[StatsWindow-1].Date.String() != "2024-01-10" {
		t.Fatalf("expected window to end today, got %v", stats.CompletedByDay)
	}
}
