package timeframe

import (
	"fmt"
	"strings"
	"time"
)

// New returns a validated Interval
func New(u Unit, compression int) (Interval, error) {
	i := Interval{Unit: u, Compression: compression}
	return i, i.Validate()
}

// ParseUnit converts a config string into a Unit
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(s) {
	case "s", "sec", "second", "seconds":
		return Seconds, nil
	case "m", "min", "minute", "minutes":
		return Minutes, nil
	case "d", "day", "days":
		return Days, nil
	case "w", "week", "weeks":
		return Weeks, nil
	case "mo", "month", "months":
		return Months, nil
	case "y", "year", "years":
		return Years, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedUnit, s)
}

// String returns the unit name
func (u Unit) String() string {
	switch u {
	case Seconds:
		return "seconds"
	case Minutes:
		return "minutes"
	case Days:
		return "days"
	case Weeks:
		return "weeks"
	case Months:
		return "months"
	case Years:
		return "years"
	}
	return "unknown"
}

// Validate checks the unit and compression
func (i Interval) Validate() error {
	if i.Unit < Seconds || i.Unit > Years {
		return fmt.Errorf("%w: %d", ErrUnsupportedUnit, i.Unit)
	}
	if i.Compression < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidCompression, i.Compression)
	}
	return nil
}

// String returns a human readable interval, eg 5 minutes
func (i Interval) String() string {
	return fmt.Sprintf("%d %s", i.Compression, i.Unit)
}

// IsIntraday returns whether the unit is finer than a day
func (i Interval) IsIntraday() bool {
	return i.Unit < Days
}

// Add moves t forward by n of the interval's units, ignoring compression
func (i Interval) Add(t time.Time, n int) time.Time {
	switch i.Unit {
	case Seconds:
		return t.Add(time.Duration(n) * time.Second)
	case Minutes:
		return t.Add(time.Duration(n) * time.Minute)
	case Days:
		return t.AddDate(0, 0, n)
	case Weeks:
		return t.AddDate(0, 0, 7*n)
	case Months:
		return t.AddDate(0, n, 0)
	case Years:
		return t.AddDate(n, 0, 0)
	}
	return t
}

// Next returns the end of a period beginning at start
func (i Interval) Next(start time.Time) time.Time {
	return i.Add(start, i.Compression)
}

// Start returns the clock or calendar aligned start of the period holding t.
// Intraday periods are aligned to multiples of the compression from
// midnight, coarser periods from a fixed epoch so the same timestamp always
// maps to the same period.
func (i Interval) Start(t time.Time) time.Time {
	loc := t.Location()
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	n := i.Compression
	switch i.Unit {
	case Seconds:
		secs := t.Hour()*3600 + t.Minute()*60 + t.Second()
		return midnight.Add(time.Duration(floorMultiple(secs, n)) * time.Second)
	case Minutes:
		mins := t.Hour()*60 + t.Minute()
		return midnight.Add(time.Duration(floorMultiple(mins, n)) * time.Minute)
	case Days:
		days := civilDays(y, m, d)
		return fromCivilDays(floorMultiple(days, n), loc)
	case Weeks:
		days := civilDays(y, m, d)
		weeks := floorDiv(days-civilDays(weekAnchor.Date()), 7)
		return fromCivilDays(civilDays(weekAnchor.Date())+floorMultiple(weeks, n)*7, loc)
	case Months:
		idx := floorMultiple(y*12+int(m)-1, n)
		return time.Date(floorDiv(idx, 12), time.Month(idx-floorDiv(idx, 12)*12+1), 1, 0, 0, 0, 0, loc)
	case Years:
		return time.Date(floorMultiple(y, n), time.January, 1, 0, 0, 0, 0, loc)
	}
	return t
}

// Bucket returns the aligned period holding t. With rightEdge an intraday
// timestamp exactly on a boundary belongs to the period ending there, making
// the period (start, end], otherwise it is [start, end). Days and coarser
// units always classify by calendar period, as a daily bar stamped at
// midnight belongs to the day it starts.
func (i Interval) Bucket(t time.Time, rightEdge bool) (start, end time.Time) {
	start = i.Start(t)
	if rightEdge && i.IsIntraday() && start.Equal(t) {
		return i.Add(t, -i.Compression), t
	}
	return start, i.Next(start)
}

// Contains reports whether t falls inside the period, honouring the edge
// convention used by Bucket
func (i Interval) Contains(start, end, t time.Time, rightEdge bool) bool {
	if rightEdge && i.IsIntraday() {
		return t.After(start) && !t.After(end)
	}
	return !t.Before(start) && t.Before(end)
}

func civilDays(y int, m time.Month, d int) int {
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func fromCivilDays(days int, loc *time.Location) time.Time {
	u := time.Unix(int64(days)*86400, 0).UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, loc)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMultiple(a, n int) int {
	return floorDiv(a, n) * n
}
