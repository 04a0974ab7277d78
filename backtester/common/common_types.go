package common

import (
	"errors"

	"github.com/thrasher-corp/barsim/log"
)

var (
	// ErrNilArguments is a common error response to highlight that nils were
	// passed in when they should not have been
	ErrNilArguments = errors.New("received nil argument(s)")
	// ErrNilEvent is a common error for whenever a nil event occurs when it
	// shouldn't have
	ErrNilEvent = errors.New("nil event received")
	// ErrNonMonotonic is raised when a bar timestamp does not strictly increase
	ErrNonMonotonic = errors.New("bar timestamp not strictly increasing")
	// ErrMalformedBar is raised when a bar's prices are inconsistent
	ErrMalformedBar = errors.New("malformed bar")
)

// Sub logger names used throughout the backtester
const (
	Setup      = "SETUP"
	Data       = "DATA"
	Aggregator = "AGGREGATOR"
	Timer      = "TIMER"
	Broker     = "BROKER"
	Strategy   = "STRATEGY"
	Statistics = "STATISTICS"
	Writer     = "WRITER"
)

// SubLoggers holds every backtester sub logger keyed by name
var SubLoggers = map[string]*log.SubLogger{}

// ColourDefault is used to reset terminal colours
const (
	ColourDefault = "\u001b[0m"
	ColourGreen   = "\033[38;5;157m"
	ColourRed     = "\033[38;5;210m"
	ColourGrey    = "\033[38;5;246m"
)
