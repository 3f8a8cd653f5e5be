package validation

import (
	"errors"
	"testing"
)

type column string

const (
	design   column = "Proses Desain"
	approval column = "Proses ACC"
)

func TestFormatValidValues(t *testing.T) {
	got := FormatValidValues([]column{design, approval})
	want := "Proses Desain, Proses ACC"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	if got := FormatValidValues[column](nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestFormatInvalidValueError(t *testing.T) {
	base := errors.New("invalid status")
	err := FormatInvalidValueError(base, column("Arsip"), []column{design, approval})
	if !errors.Is(err, base) {
		t.Fatalf("expected error to wrap %v", base)
	}

	want := `invalid status: "Arsip" (valid: Proses Desain, Proses ACC)`
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}
