package aggregator

import (
	"errors"
	"time"

	"github.com/thrasher-corp/barsim/backtester/data"
	"github.com/thrasher-corp/barsim/backtester/timeframe"
)

// ErrClosed is returned when a bar is ingested after Close
var ErrClosed = errors.New("aggregator closed")

// Mode selects how aggregated bars are delivered
type Mode uint8

// Aggregation modes
const (
	// None passes input bars through untouched
	None Mode = iota
	// Resample delivers each bucket once it is complete
	Resample
	// Replay delivers the growing bucket on every input bar
	Replay
)

// Options control bucket alignment and timestamping
type Options struct {
	// Bar2Edge aligns buckets to clock or calendar boundaries, otherwise a
	// bucket is anchored at its first input bar
	Bar2Edge bool `json:"bar2edge"`
	// AdjBarTime stamps output bars with a bucket edge instead of the time
	// of the last contributing input bar
	AdjBarTime bool `json:"adjbartime"`
	// RightEdge makes buckets (start, end], so a bar exactly on end still
	// belongs to the bucket and adjusted timestamps use the right edge
	RightEdge bool `json:"rightedge"`
	// LateThrough folds out of order bars into the current bucket instead of
	// rejecting them
	LateThrough bool `json:"latethrough"`
}

// Update is a replayed bar state
type Update struct {
	Bar data.Bar
	// New is set on the first update of a bucket
	New bool
	// Closed holds the final state of the previous bucket when this update
	// started a new one
	Closed *data.Bar
}

type state struct {
	name     string
	interval timeframe.Interval
	opts     Options

	bar        *data.Bar
	start, end time.Time
	lastInput  time.Time
	lastFolded time.Time
	closed     bool
}

// Resampler folds input bars into coarser bars, emitting each one when its
// bucket completes
type Resampler struct {
	state
}

// Replayer folds input bars into coarser bars, emitting the growing bar on
// every input
type Replayer struct {
	state
}
