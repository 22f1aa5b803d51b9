package model

import (
	"fmt"
	"time"
)

// DateFormat is the on-disk and CLI format for entry dates.
const DateFormat = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// Month identifies a calendar month as year*12 + (month-1).
type Month int

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month(t.Year()*12 + int(t.Month()) - 1)
}

// Year returns the calendar year.
func (m Month) Year() int { return int(m) / 12 }

// Start returns the first day of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year(), time.Month(int(m)%12+1), 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the month.
func (m Month) End() time.Time {
	return (m + 1).Start().AddDate(0, 0, -1)
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year(), int(m)%12+1)
}
