// Package date provides a Date type that marshals as YYYY-MM-DD.
package date

import (
	"encoding/json"
	"fmt"
	"time"

	"go.yaml.in/yaml/v3"
)

const format = "2006-01-02"

const day = 24 * time.Hour

// Date represents a calendar date without time or timezone.
type Date struct {
	time.Time
}

// New creates a Date from year, month, day.
func New(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Of returns the calendar date of t in t's own location.
func Of(t time.Time) Date {
	return New(t.Year(), t.Month(), t.Day())
}

// Parse parses a YYYY-MM-DD string into a Date.
// Full RFC 3339 timestamps are accepted and truncated to their date.
func Parse(s string) (Date, error) {
	t, err := time.Parse(format, s)
	if err == nil {
		return Date{t}, nil
	}
	if ts, tsErr := time.Parse(time.RFC3339, s); tsErr == nil {
		return Of(ts), nil
	}
	return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(format)
}

// DaysFrom returns the number of calendar days from the date of now to d.
// Negative when d is in the past.
func (d Date) DaysFrom(now time.Time) int {
	return int(d.Sub(Of(now).Time) / day)
}

// Compare orders two optional dates, absent dates last.
func Compare(a, b *Date) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Time.Compare(b.Time)
}

// MarshalYAML implements yaml.Marshaler.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.v3 Unmarshaler.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := Parse(value.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
