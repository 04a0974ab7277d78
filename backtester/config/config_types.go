package config

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thrasher-corp/barsim/backtester/aggregator"
	"github.com/thrasher-corp/barsim/backtester/data"
	"github.com/thrasher-corp/barsim/database"
	"github.com/thrasher-corp/barsim/log"
)

var (
	errFileNotFound         = errors.New("file not found")
	errStartEndUnset        = errors.New("data start and end dates must be set when using database data")
	errNoFeeds              = errors.New("no feeds configured")
	errFeedNameUnset        = errors.New("feed name unset")
	errDuplicateFeed        = errors.New("duplicate feed name")
	errNoDataSource         = errors.New("feed requires exactly one of csv-data or database-data")
	errDatabaseDisabled     = errors.New("database data requested but database is not enabled")
	errInitialCashZero      = errors.New("initial cash must be positive")
	errInvalidFillRatio     = errors.New("volume fill ratio must be between 0 and 1")
	errUnknownPrecedence    = errors.New("unknown bracket precedence")
	errUnknownCommission    = errors.New("unknown commission type")
	errUnknownMode          = errors.New("unknown aggregation mode")
	errUnknownAnchor        = errors.New("unknown timer anchor")
	errStrategyFeedNotFound = errors.New("strategy feed not found")
	errInvalidTimezone      = errors.New("invalid timezone")
)

// Commission types accepted in config
const (
	PercentageCommission = "percentage"
	FixedCommission      = "fixed"
	FuturesCommission    = "futures"
)

// Config defines what is in an individual strategy config
type Config struct {
	Nickname         string             `json:"nickname"`
	Goal             string             `json:"goal"`
	StrategySettings StrategySettings   `json:"strategy-settings"`
	BrokerSettings   BrokerSettings     `json:"broker-settings"`
	Commission       CommissionSettings `json:"commission"`
	DataSettings     DataSettings       `json:"data-settings"`
	Feeds            []FeedSettings     `json:"feeds"`
	Session          data.Session       `json:"session"`
	Timers           []TimerSettings    `json:"timers"`
	OutputSettings   OutputSettings     `json:"output-settings"`
	Logging          *log.Config        `json:"logging,omitempty"`
}

// StrategySettings selects the strategy and its custom settings
type StrategySettings struct {
	Name string `json:"name"`
	// Feed is the feed the strategy trades, the first feed when empty
	Feed           string         `json:"feed"`
	CustomSettings map[string]any `json:"custom-settings,omitempty"`
}

// BrokerSettings holds the simulated broker's account and matching rules
type BrokerSettings struct {
	InitialCash  decimal.Decimal `json:"initial-cash"`
	CheatOnOpen  bool            `json:"cheat-on-open"`
	CheatOnClose bool            `json:"cheat-on-close"`
	// VolumeFillRatio caps each fill to a fraction of bar volume, zero
	// disables the cap
	VolumeFillRatio   decimal.Decimal `json:"volume-fill-ratio"`
	BracketPrecedence string          `json:"bracket-precedence"`
	InterestToPnL     bool            `json:"interest-to-pnl"`
}

// CommissionSettings describes a commission scheme
type CommissionSettings struct {
	Type         string          `json:"type"`
	Commission   decimal.Decimal `json:"commission"`
	PercAbs      bool            `json:"perc-abs"`
	Margin       decimal.Decimal `json:"margin"`
	Multiplier   decimal.Decimal `json:"multiplier"`
	Leverage     decimal.Decimal `json:"leverage"`
	Interest     decimal.Decimal `json:"interest"`
	InterestLong bool            `json:"interest-long"`
}

// DataSettings holds values shared by every feed
type DataSettings struct {
	StartDate time.Time `json:"start-date"`
	EndDate   time.Time `json:"end-date"`
	// DataPath is the directory holding sqlite databases
	DataPath string           `json:"data-path"`
	Database *database.Config `json:"database,omitempty"`
}

// FeedSettings defines a single bar feed
type FeedSettings struct {
	Name         string               `json:"name"`
	Instrument   string               `json:"instrument"`
	CSVData      *CSVData             `json:"csv-data,omitempty"`
	DatabaseData *DatabaseData        `json:"database-data,omitempty"`
	Aggregation  *AggregationSettings `json:"aggregation,omitempty"`
	Filters      FilterSettings       `json:"filters"`
	// Commission overrides the global commission for this feed's instrument
	Commission *CommissionSettings `json:"commission,omitempty"`
}

// CSVData defines a csv bar file
type CSVData struct {
	FullPath   string `json:"full-path"`
	DateFormat string `json:"date-format"`
	Timezone   string `json:"timezone"`
	HasHeader  bool   `json:"has-header"`
}

// DatabaseData selects stored candles for the feed's instrument
type DatabaseData struct {
	Interval Interval `json:"interval"`
}

// Interval is a config friendly time frame
type Interval struct {
	Unit        string `json:"unit"`
	Compression int    `json:"compression"`
}

// AggregationSettings resamples or replays a feed to a coarser interval
type AggregationSettings struct {
	Mode     string             `json:"mode"`
	Interval Interval           `json:"interval"`
	Options  aggregator.Options `json:"options"`
}

// FilterSettings enables data filters on a feed
type FilterSettings struct {
	FillWeekDays    bool          `json:"fill-week-days"`
	FillPrice       bool          `json:"fill-price"`
	SessionFilter   bool          `json:"session-filter"`
	SessionFillStep time.Duration `json:"session-fill-step"`
}

// TimerSettings defines a strategy timer
type TimerSettings struct {
	Name       string        `json:"name"`
	Anchor     string        `json:"anchor"`
	When       time.Duration `json:"when"`
	Offset     time.Duration `json:"offset"`
	Repeat     time.Duration `json:"repeat"`
	Weekdays   []int         `json:"weekdays"`
	WeekCarry  bool          `json:"week-carry"`
	Monthdays  []int         `json:"monthdays"`
	MonthCarry bool          `json:"month-carry"`
	Cheat      bool          `json:"cheat"`
}

// OutputSettings controls where results are written
type OutputSettings struct {
	// Dir receives csv output when set
	Dir string `json:"dir"`
}
