package task

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// DateLayout is the persisted date format.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time of day and no time zone. Due dates
// are compared and shifted as civil dates so that a date never moves when
// the process runs in a different zone.
type Date struct {
	civil.Date
}

// NewDate returns the date for year, month and day. It is not normalized;
// use IsValid to check it.
func NewDate(year int, month time.Month, day int) Date {
	return Date{civil.Date{Year: year, Month: month, Day: day}}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	return Date{civil.DateOf(t)}
}

// Today returns the current date in loc. A nil loc means time.Local.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(time.Now().In(loc))
}

// ParseDate parses a YYYY-MM-DD string. A full timestamp is accepted and
// truncated to its date part, since older data may hold one.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) && s[len(DateLayout)] == 'T' {
		s = s[:len(DateLayout)]
	}
	parsed, err := civil.ParseDate(s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDueDate, s)
	}
	return Date{parsed}, nil
}

// MustParseDate is like ParseDate but panics on failure.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DatePtr returns a pointer to d.
func DatePtr(d Date) *Date {
	return &d
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// IsValid reports whether d names a real calendar day.
func (d Date) IsValid() bool {
	return !d.IsZero() && d.Date.IsValid()
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date{d.Date.AddDays(n)}
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	return d.Date.Before(other.Date)
}

// After reports whether d is later than other.
func (d Date) After(other Date) bool {
	return d.Date.After(other.Date)
}

// Equal reports whether d and other are the same day.
func (d Date) Equal(other Date) bool {
	return d == other
}

// DaysUntil returns the number of days from d to other. It is negative when
// other is earlier.
func (d Date) DaysUntil(other Date) int {
	return other.DaysSince(d.Date)
}

// Format formats d with a time layout.
func (d Date) Format(layout string) string {
	return d.In(time.UTC).Format(layout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	if !d.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDueDate, d)
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
