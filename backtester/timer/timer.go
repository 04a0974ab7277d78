package timer

import (
	"fmt"
	"sort"
	"time"

	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/backtester/data"
	"github.com/thrasher-corp/barsim/log"
)

// NewScheduler returns a scheduler. A zero session spans the whole day
func NewScheduler(session data.Session) *Scheduler {
	if session.Start == 0 && session.End == 0 {
		session.End = 24 * time.Hour
	}
	return &Scheduler{session: session}
}

// Validate checks the timer definition
func (t *Timer) Validate() error {
	if t.Anchor > SessionEnd {
		return fmt.Errorf("%w: %d", errInvalidAnchor, t.Anchor)
	}
	if t.When < 0 || t.When >= 24*time.Hour {
		return fmt.Errorf("%w: %v", errInvalidWhen, t.When)
	}
	if t.Repeat < 0 {
		return fmt.Errorf("%w: %v", errInvalidRepeat, t.Repeat)
	}
	for _, wd := range t.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("%w: %d", errInvalidWeekday, wd)
		}
	}
	for _, md := range t.Monthdays {
		if md < 1 || md > 31 {
			return fmt.Errorf("%w: %d", errInvalidMonthday, md)
		}
	}
	return nil
}

// Add registers a timer and returns its id
func (s *Scheduler) Add(t Timer) (int, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	id := len(s.timers) + 1
	s.timers = append(s.timers, &timerState{Timer: t, id: id})
	log.Debugf(common.Logger(common.Timer), "timer %d %q added, cheat: %v", id, t.Name, t.Cheat)
	return id, nil
}

// Len returns the number of registered timers
func (s *Scheduler) Len() int {
	return len(s.timers)
}

// Check evaluates the timers belonging to phase against bar time at and
// returns those which fire, in registration order
func (s *Scheduler) Check(at time.Time, phase Phase) []Firing {
	var out []Firing
	for _, ts := range s.timers {
		if ts.Cheat != (phase == PreOpen) {
			continue
		}
		if scheduled, ok := ts.check(at, s.session); ok {
			out = append(out, Firing{ID: ts.id, Timer: ts.Timer, Scheduled: scheduled, At: at})
		}
	}
	return out
}

func (ts *timerState) check(at time.Time, session data.Session) (time.Time, bool) {
	y, m, d := at.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, at.Location())
	if !date.Equal(ts.curDate) {
		ts.curDate = date
		month := ts.checkMonth(date)
		week := ts.checkWeek(date)
		ts.eligible = month && week
		ts.next = ts.anchorOn(date, session)
		ts.done = false
	}
	if !ts.eligible || ts.done || at.Before(ts.next) {
		return time.Time{}, false
	}
	scheduled := ts.next
	if ts.Repeat <= 0 {
		ts.done = true
		return scheduled, true
	}
	for !ts.next.After(at) {
		ts.next = ts.next.Add(ts.Repeat)
	}
	if ts.next.After(session.EndOn(date)) {
		ts.done = true
	}
	return scheduled, true
}

func (ts *timerState) anchorOn(date time.Time, session data.Session) time.Time {
	var base time.Time
	switch ts.Anchor {
	case SessionStart:
		base = session.StartOn(date)
	case SessionEnd:
		base = session.EndOn(date)
	default:
		base = date.Add(ts.When)
	}
	return base.Add(ts.Offset)
}

func (ts *timerState) checkWeek(date time.Time) bool {
	if len(ts.Weekdays) == 0 {
		return true
	}
	y, w := date.ISOWeek()
	mask := make([]int, len(ts.Weekdays))
	for i := range ts.Weekdays {
		mask[i] = isoWeekday(ts.Weekdays[i])
	}
	pending, carry := advanceMask(&ts.curWeek, y*100+w, ts.weekPending, mask, isoWeekday(date.Weekday()), ts.WeekCarry)
	ts.weekPending = pending
	return carry
}

func (ts *timerState) checkMonth(date time.Time) bool {
	if len(ts.Monthdays) == 0 {
		return true
	}
	pending, fire := advanceMask(&ts.curMonth, date.Year()*12+int(date.Month()), ts.monthPending, ts.Monthdays, date.Day(), ts.MonthCarry)
	ts.monthPending = pending
	return fire
}

// advanceMask consumes the days of the current period up to and including
// day. It reports whether day is listed, or whether an earlier listed day
// went without a bar and carry is enabled. Days left unconsumed when a new
// period starts also carry.
func advanceMask(curPeriod *int, period int, pending, mask []int, day int, carry bool) ([]int, bool) {
	carried := false
	if *curPeriod != period {
		*curPeriod = period
		carried = carry && len(pending) > 0
		pending = append([]int(nil), mask...)
		sort.Ints(pending)
	}
	var missed, current bool
	i := 0
	for ; i < len(pending) && pending[i] <= day; i++ {
		if pending[i] == day {
			current = true
		} else {
			missed = true
		}
	}
	pending = pending[i:]
	return pending, current || (carry && (carried || missed))
}

func isoWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}
