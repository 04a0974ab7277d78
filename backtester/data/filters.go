package data

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Filter fills weekdays missing between the previous bar and b
func (w *WeekDaysFiller) Filter(b Bar) []Bar {
	var out []Bar
	if w.prev != nil {
		prev := *w.prev
		y, m, d := prev.Time.Date()
		clock := prev.Time.Sub(time.Date(y, m, d, 0, 0, 0, 0, prev.Time.Location()))
		for day := time.Date(y, m, d+1, 0, 0, 0, 0, prev.Time.Location()); ; day = day.AddDate(0, 0, 1) {
			ts := day.Add(clock)
			if !sameDayBefore(ts, b.Time) {
				break
			}
			if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
				continue
			}
			out = append(out, flatBar(ts, prev, w.FillPrice))
		}
	}
	w.prev = &b
	return append(out, b)
}

// Flush implements Filter, nothing is held back
func (w *WeekDaysFiller) Flush() []Bar {
	return nil
}

// sameDayBefore reports whether ts falls on a calendar day before t's
func sameDayBefore(ts, t time.Time) bool {
	y1, m1, d1 := ts.Date()
	y2, m2, d2 := t.Date()
	return time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC).Before(time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC))
}

func flatBar(ts time.Time, prev Bar, fillPrice bool) Bar {
	fb := Bar{
		Time:         ts,
		Volume:       decimal.Zero,
		OpenInterest: prev.OpenInterest,
	}
	if fillPrice {
		fb.Open, fb.High, fb.Low, fb.Close = prev.Close, prev.Close, prev.Close, prev.Close
	}
	return fb
}

// Validate checks the session bounds
func (s Session) Validate() error {
	if s.Start < 0 || s.End > 24*time.Hour || s.End <= s.Start {
		return fmt.Errorf("%w: %v-%v", errInvalidRange, s.Start, s.End)
	}
	return nil
}

// Contains reports whether t's time of day is inside the session, both ends
// inclusive
func (s Session) Contains(t time.Time) bool {
	tod := TimeOfDay(t)
	return tod >= s.Start && tod <= s.End
}

// StartOn returns the session start on t's date
func (s Session) StartOn(t time.Time) time.Time {
	return midnight(t).Add(s.Start)
}

// EndOn returns the session end on t's date
func (s Session) EndOn(t time.Time) time.Time {
	return midnight(t).Add(s.End)
}

// TimeOfDay returns the duration elapsed since t's midnight
func TimeOfDay(t time.Time) time.Duration {
	return t.Sub(midnight(t))
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NewSessionFilter returns a filter for the session
func NewSessionFilter(s Session) (*SessionFilter, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &SessionFilter{Session: s}, nil
}

// Filter drops b when it lies outside the session
func (f *SessionFilter) Filter(b Bar) []Bar {
	if !f.Session.Contains(b.Time) {
		return nil
	}
	return []Bar{b}
}

// Flush implements Filter, nothing is held back
func (f *SessionFilter) Flush() []Bar {
	return nil
}

// NewSessionFiller returns a filler producing a bar every step inside the
// session
func NewSessionFiller(s Session, step time.Duration) (*SessionFiller, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if step <= 0 {
		return nil, errInvalidStep
	}
	return &SessionFiller{Session: s, Step: step}, nil
}

// Filter inserts flat bars for each missing step between the previous bar
// and b when both are in the same session
func (f *SessionFiller) Filter(b Bar) []Bar {
	var out []Bar
	if f.prev != nil && midnight(f.prev.Time).Equal(midnight(b.Time)) {
		end := f.Session.EndOn(b.Time)
		for ts := f.prev.Time.Add(f.Step); ts.Before(b.Time) && !ts.After(end); ts = ts.Add(f.Step) {
			if f.Session.Contains(ts) {
				out = append(out, flatBar(ts, *f.prev, true))
			}
		}
	}
	f.prev = &b
	return append(out, b)
}

// Flush implements Filter, nothing is held back
func (f *SessionFiller) Flush() []Bar {
	return nil
}

// Filter drops b when it lies outside the date range
func (f *DateFilter) Filter(b Bar) []Bar {
	if (!f.Start.IsZero() && b.Time.Before(f.Start)) || (!f.End.IsZero() && b.Time.After(f.End)) {
		return nil
	}
	return []Bar{b}
}

// Flush implements Filter, nothing is held back
func (f *DateFilter) Flush() []Bar {
	return nil
}
