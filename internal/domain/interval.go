package domain

import "time"

const day = 24 * time.Hour

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Overlaps implements the half-open test: [s1,e1) and [s2,e2) conflict iff s1 < e2 && s2 < e1.
// Touching intervals (e1 == s2) do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether o lies entirely inside i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// Duration of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// SpanDays counts the UTC calendar days touched by the interval; 0 when invalid.
func (i Interval) SpanDays() int {
	if !i.Valid() {
		return 0
	}
	first := DayStart(i.Start)
	last := DayStart(i.End.Add(-time.Nanosecond))
	return int(last.Sub(first)/day) + 1
}

// WithinDay reports whether the interval starts and ends on the UTC day of date.
// An interval ending exactly at the next midnight still belongs to the day.
func (i Interval) WithinDay(date time.Time) bool {
	d := DayStart(date)
	return i.Valid() && Interval{Start: d, End: d.Add(day)}.Contains(i)
}

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
