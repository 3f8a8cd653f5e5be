package task

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"Proses Desain":  StatusDesign,
		"proses  desain": StatusDesign,
		"desain":         StatusDesign,
		"Proses ACC":     StatusApproval,
		"ACC":            StatusApproval,
		"selesai":        StatusDone,
		"  SELESAI  ":    StatusDone,
		"done":           StatusDone,
	}
	for input, want := range cases {
		got, err := ParseStatus(input)
		if err != nil {
			t.Fatalf("%q: %v", input, err)
		}
		if got != want {
			t.Fatalf("%q: expected %q, got %q", input, want, got)
		}
	}

	for _, bad := range []string{"", "arsip", "Proses"} {
		if _, err := ParseStatus(bad); !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("%q: expected ErrInvalidStatus, got %v", bad, err)
		}
	}
}

func TestStatusIsActive(t *testing.T) {
	if !StatusDesign.IsActive() || !StatusApproval.IsActive() || StatusDone.IsActive() {
		t.Fatal("unexpected active statuses")
	}
}

func TestParseSource(t *testing.T) {
	cases := map[string]Source{
		"N":     SourceN,
		"cs":    SourceCS,
		"ADMIN": SourceAdmin,
		" g ":   SourceGroup,
	}
	for input, want := range cases {
		got, err := ParseSource(input)
		if err != nil {
			t.Fatalf("%q: %v", input, err)
		}
		if got != want {
			t.Fatalf("%q: expected %q, got %q", input, want, got)
		}
	}

	if _, err := ParseSource("email"); !errors.Is(err, ErrInvalidSource) {
		t.Fatalf("expected ErrInvalidSource, got %v", err)
	}
}

func TestValidStatusesOrder(t *testing.T) {
	got := ValidStatuses()
	if len(got) != 3 || got[0] != StatusDesign || got[1] != StatusApproval || got[2] != StatusDone {
		t.Fatalf("unexpected column order %v", got)
	}
}
