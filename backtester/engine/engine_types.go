package engine

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thrasher-corp/barsim/backtester/aggregator"
	"github.com/thrasher-corp/barsim/backtester/broker"
	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/backtester/data"
	"github.com/thrasher-corp/barsim/backtester/order"
	"github.com/thrasher-corp/barsim/backtester/statistics"
	"github.com/thrasher-corp/barsim/backtester/timeframe"
	"github.com/thrasher-corp/barsim/backtester/timer"
)

var (
	errNoFeeds        = errors.New("no feeds added")
	errNoStrategy     = errors.New("no strategy set")
	errDuplicateFeed  = errors.New("feed name already added")
	errAlreadyRunning = errors.New("engine has already run")
	errInvalidMode    = errors.New("invalid aggregation mode")
)

// Config holds engine settings
type Config struct {
	Broker broker.Config
	// CheatOnOpen calls OnOpen before matching so orders can fill at the
	// open of the current bar
	CheatOnOpen bool
	// Session anchors session relative timers, zero is the whole day
	Session data.Session
	// StrategyName labels the run statistics
	StrategyName string
}

// Feed is a bar source attached to an instrument
type Feed struct {
	Name string
	// Instrument is traded against this feed's bars, Name when empty
	Instrument string
	Source     data.Source
	Filters    []data.Filter
	// Mode optionally aggregates the source to Interval
	Mode     aggregator.Mode
	Interval timeframe.Interval
	Options  aggregator.Options
}

// Strategy receives engine callbacks. Orders submitted from any callback
// take effect at the next matching phase
type Strategy interface {
	Name() string
	OnBar(*Context) error
	OnOrder(*Context, order.Order)
	OnTrade(*Context, broker.Trade)
	OnTimer(*Context, timer.Firing)
}

// OpenHandler is implemented by strategies that act before matching when
// CheatOnOpen is set
type OpenHandler interface {
	OnOpen(*Context) error
}

// DataErrorHandler is implemented by strategies that want to know when a
// feed stopped on bad data
type DataErrorHandler interface {
	OnDataError(*Context, *common.DataError)
}

// Starter is implemented by strategies needing setup before the first bar
type Starter interface {
	OnStart(*Context) error
}

// Stopper is implemented by strategies needing teardown after the last bar
type Stopper interface {
	OnStop(*Context)
}

// Listener consumes notifications and per step account values, for
// statistics and persistence
type Listener interface {
	OnNotification(broker.Notification) error
	OnValue(t time.Time, cash, value decimal.Decimal) error
}

// Engine drives feeds, timers, the broker and a strategy through time
type Engine struct {
	cfg        Config
	broker     *broker.Broker
	scheduler  *timer.Scheduler
	statistics *statistics.Statistic
	strategy   Strategy
	listeners  []Listener
	feeds      []*feedState
	byName     map[string]*feedState
	ctx        *Context
	ran        bool
}

// Context is handed to strategy callbacks
type Context struct {
	engine *Engine
	// Time is the current engine clock
	Time time.Time
}

type feedState struct {
	index      int
	name       string
	instrument string
	stream     *data.Stream
	mode       aggregator.Mode
	resampler  *aggregator.Resampler
	replayer   *aggregator.Replayer

	next    *data.Bar
	flushed bool
	done    bool

	delivered bool
	history   []data.Bar
}
