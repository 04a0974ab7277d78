package timer

import (
	"errors"
	"time"

	"github.com/thrasher-corp/barsim/backtester/data"
)

var (
	errInvalidWhen     = errors.New("time of day must be within a day")
	errInvalidRepeat   = errors.New("repeat cannot be negative")
	errInvalidWeekday  = errors.New("invalid weekday")
	errInvalidMonthday = errors.New("monthday must be between 1 and 31")
	errInvalidAnchor   = errors.New("invalid timer anchor")
)

// Anchor sets what a timer's daily fire time is relative to
type Anchor uint8

// Anchors
const (
	// AtTime fires at Timer.When after midnight
	AtTime Anchor = iota
	// SessionStart fires at the session start
	SessionStart
	// SessionEnd fires at the session end
	SessionEnd
)

// Phase is the point within a bar at which timers are checked
type Phase uint8

// Phases
const (
	// PreOpen runs before the broker matches the bar, only cheat timers fire
	PreOpen Phase = iota
	// Standard runs after matching and notifications
	Standard
)

// Timer describes a recurring notification
type Timer struct {
	Name   string        `json:"name"`
	Anchor Anchor        `json:"anchor"`
	When   time.Duration `json:"when"`
	Offset time.Duration `json:"offset"`
	// Repeat re-arms the timer within the session, zero fires once per day
	Repeat time.Duration `json:"repeat"`
	// Weekdays restricts firing to the listed days, empty means every day
	Weekdays []time.Weekday `json:"weekdays"`
	// WeekCarry fires on the next trading day when a listed weekday had no bar
	WeekCarry bool `json:"weekcarry"`
	// Monthdays restricts firing to the listed days of the month
	Monthdays []int `json:"monthdays"`
	// MonthCarry fires on the next trading day when a listed monthday had no
	// bar
	MonthCarry bool `json:"monthcarry"`
	// Cheat timers fire before the bar is matched, so orders created in
	// response are matched against that same bar
	Cheat bool `json:"cheat"`
}

// Firing is delivered to the strategy when a timer fires
type Firing struct {
	ID    int
	Timer Timer
	// Scheduled is the instant the timer was due
	Scheduled time.Time
	// At is the bar time which triggered the firing
	At time.Time
}

// Scheduler evaluates timers against the advancing bar clock
type Scheduler struct {
	session data.Session
	timers  []*timerState
}

type timerState struct {
	Timer
	id int

	curDate  time.Time
	eligible bool
	next     time.Time
	done     bool

	curWeek      int
	weekPending  []int
	curMonth     int
	monthPending []int
}
