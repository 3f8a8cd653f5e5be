package assist

import (
	"testing"

	"github.com/intorma/torma/task"
)

func TestNewRelativeDates(t *testing.T) {
	got := NewRelativeDates(task.MustParseDate("2024-01-10"))

	want := map[string]string{
		"current":          "2024-01-10",
		"tomorrow":         "2024-01-11",
		"dayAfterTomorrow": "2024-01-12",
		"nextWeek":         "2024-01-17",
	}
	values := map[string]task.Date{
		"current":          got.CurrentDate,
		"tomorrow":         got.Tomorrow,
		"dayAfterTomorrow": got.DayAfterTomorrow,
		"nextWeek":         got.NextWeek,
	}
	for name, date := range values {
		if date.String() != want[name] {
			t.Errorf("%s = %s, want %s", name, date, want[name])
		}
	}
}

func TestResolveRelativeDates(t *testing.T) {
	today := task.MustParseDate("2024-01-10")
	tests := []struct {
		input string
		want  []string
	}{
		{input: "desain ulang spanduk, deadline besok", want: []string{"2024-01-11"}},
		{input: "follow up PT Sejahtera lusa", want: []string{"2024-01-12"}},
		{input: "logo untuk Rinan minggu depan", want: []string{"2024-01-17"}},
		{input: "brosur 3 hari lagi", want: []string{"2024-01-13"}},
		{input: "brosur tiga hari lagi", want: []string{"2024-01-13"}},
		{input: "kartu nama hari ini", want: []string{"2024-01-10"}},
		{input: "katalog 2 minggu lagi", want: []string{"2024-01-24"}},
		{input: "poster seminggu lagi", want: []string{"2024-01-17"}},
		{input: "flyer due the day after tomorrow", want: []string{"2024-01-12"}},
		{input: "banner in 5 days", want: []string{"2024-01-15"}},
		{input: "banner in two weeks", want: []string{"2024-01-24"}},
		{input: "BESOK atau Lusa", want: []string{"2024-01-11", "2024-01-12"}},
		{input: "desain menu restoran", want: nil},
		{input: "besoknya", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mentions := ResolveRelativeDates(tt.input, today)
			if len(mentions) != len(tt.want) {
				t.Fatalf("got %d mentions %+v, want %v", len(mentions), mentions, tt.want)
			}
			for i, m := range mentions {
				if m.Date.String() != tt.want[i] {
					t.Errorf("mention %d (%q) = %s, want %s", i, m.Text, m.Date, tt.want[i])
				}
			}
		})
	}
}

func TestResolveRelativeDatesKeepsText(t *testing.T) {
	mentions := ResolveRelativeDates("kirim Minggu Depan ya", task.MustParseDate("2024-01-10"))
	if len(mentions) != 1 {
		t.Fatalf("expected one mention, got %+v", mentions)
	}
	if mentions[0].Text != "Minggu Depan" || mentions[0].Pos != 6 || mentions[0].Offset != 7 {
		t.Fatalf("unexpected mention %+v", mentions[0])
	}
}
