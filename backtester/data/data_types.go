package data

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	errNilSource    = errors.New("nil bar source")
	errEmptyName    = errors.New("stream name cannot be empty")
	errInvalidRange = errors.New("session end must be after session start")
	errInvalidStep  = errors.New("fill step must be positive")
)

// Bar is a single OHLCV observation. Time is the bar's timestamp, which for
// intraday data conventionally marks the close of the bar
type Bar struct {
	Time         time.Time
	Open         decimal.Decimal
	High         decimal.Decimal
	Low          decimal.Decimal
	Close        decimal.Decimal
	Volume       decimal.Decimal
	OpenInterest decimal.Decimal
}

// Source provides bars in time order. Next returns io.EOF once exhausted
type Source interface {
	Next() (Bar, error)
}

// Filter transforms a bar stream into another bar stream. Filter may hold
// bars back and return zero or many bars per input, Flush releases anything
// held once the input is exhausted
type Filter interface {
	Filter(Bar) []Bar
	Flush() []Bar
}

// SliceSource serves bars from memory
type SliceSource struct {
	bars   []Bar
	offset int
	latest *Bar
}

// Stream wraps a Source, runs bars through filters and guarantees strictly
// increasing timestamps to consumers
type Stream struct {
	name    string
	source  Source
	filters []Filter
	pending []Bar
	last    time.Time
	err     error
	drained bool
}

// WeekDaysFiller inserts flat bars for missing weekdays between daily bars
type WeekDaysFiller struct {
	// FillPrice uses the previous close for the filled bar when true,
	// otherwise the filled bar carries zero prices
	FillPrice bool
	prev      *Bar
}

// Session is a trading session expressed as offsets from midnight
type Session struct {
	Start time.Duration
	End   time.Duration
}

// SessionFilter drops bars outside the trading session
type SessionFilter struct {
	Session Session
}

// SessionFiller inserts flat bars for missing steps inside a session
type SessionFiller struct {
	Session Session
	Step    time.Duration
	prev    *Bar
}

// DateFilter drops bars before Start or after End, a zero bound is open
type DateFilter struct {
	Start time.Time
	End   time.Time
}
