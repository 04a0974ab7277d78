package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/thrasher-corp/barsim/backtester/aggregator"
	"github.com/thrasher-corp/barsim/backtester/broker"
	"github.com/thrasher-corp/barsim/backtester/commission"
	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/backtester/data"
	"github.com/thrasher-corp/barsim/backtester/data/kline/csv"
	dbdata "github.com/thrasher-corp/barsim/backtester/data/kline/database"
	"github.com/thrasher-corp/barsim/backtester/engine"
	"github.com/thrasher-corp/barsim/backtester/strategies"
	"github.com/thrasher-corp/barsim/backtester/timeframe"
	"github.com/thrasher-corp/barsim/backtester/timer"
	gctcommon "github.com/thrasher-corp/barsim/common"
	"github.com/thrasher-corp/barsim/database"
	"github.com/thrasher-corp/barsim/log"
)

var dateLayouts = []string{time.RFC3339, time.DateTime, time.DateOnly}

// ReadConfigFromFile will take a config from a path. The format is taken
// from the file extension
func ReadConfigFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", errFileNotFound, path)
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return decode(v)
}

// LoadConfig unmarshalls byte data of the given format, eg json or yaml,
// into a config struct
func LoadConfig(data []byte, format string) (*Config, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	resp := new(Config)
	err := v.Unmarshal(resp, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "json"
		dc.Squash = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			valueHook,
		)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// valueHook converts config scalars into decimals and dates
func valueHook(_, to reflect.Type, v any) (any, error) {
	switch to {
	case reflect.TypeOf(decimal.Decimal{}):
		switch val := v.(type) {
		case string:
			return decimal.NewFromString(val)
		case float64:
			return decimal.NewFromFloat(val), nil
		case int:
			return decimal.NewFromInt(int64(val)), nil
		case int64:
			return decimal.NewFromInt(val), nil
		}
	case reflect.TypeOf(time.Time{}):
		if s, ok := v.(string); ok {
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t, nil
				}
			}
			return nil, fmt.Errorf("could not parse date %q", s)
		}
	}
	return v, nil
}

// Validate checks all config settings
func (c *Config) Validate() error {
	if err := c.validateDate(); err != nil {
		return err
	}
	if err := c.validateBrokerSettings(); err != nil {
		return err
	}
	if _, err := c.Commission.Scheme(); err != nil {
		return err
	}
	if err := c.validateFeeds(); err != nil {
		return err
	}
	if err := c.validateTimers(); err != nil {
		return err
	}
	return c.validateStrategySettings()
}

// validateDate checks whether someone has set a date poorly in their config
func (c *Config) validateDate() error {
	start, end := c.DataSettings.StartDate, c.DataSettings.EndDate
	if start.IsZero() && end.IsZero() {
		for i := range c.Feeds {
			// feeds with both sources are rejected by validateFeeds
			if c.Feeds[i].DatabaseData != nil && c.Feeds[i].CSVData == nil {
				return errStartEndUnset
			}
		}
		return nil
	}
	return gctcommon.StartEndTimeCheck(start, end)
}

func (c *Config) validateBrokerSettings() error {
	b := &c.BrokerSettings
	if !b.InitialCash.IsPositive() {
		return fmt.Errorf("%w: %v", errInitialCashZero, b.InitialCash)
	}
	if b.VolumeFillRatio.IsNegative() || b.VolumeFillRatio.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %v", errInvalidFillRatio, b.VolumeFillRatio)
	}
	_, err := parsePrecedence(b.BracketPrecedence)
	return err
}

func (c *Config) validateFeeds() error {
	if len(c.Feeds) == 0 {
		return errNoFeeds
	}
	names := make(map[string]bool, len(c.Feeds))
	for i := range c.Feeds {
		f := &c.Feeds[i]
		if f.Name == "" {
			return fmt.Errorf("feed %d %w", i, errFeedNameUnset)
		}
		if names[f.Name] {
			return fmt.Errorf("%w: %s", errDuplicateFeed, f.Name)
		}
		names[f.Name] = true
		if (f.CSVData == nil) == (f.DatabaseData == nil) {
			return fmt.Errorf("%s %w", f.Name, errNoDataSource)
		}
		if f.DatabaseData != nil {
			if c.DataSettings.Database == nil || !c.DataSettings.Database.Enabled {
				return fmt.Errorf("%s %w", f.Name, errDatabaseDisabled)
			}
			if _, err := f.DatabaseData.Interval.Parse(); err != nil {
				return fmt.Errorf("%s database interval: %w", f.Name, err)
			}
		}
		if f.CSVData != nil {
			if _, err := f.CSVData.location(); err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
		}
		if f.Aggregation != nil {
			if _, err := parseMode(f.Aggregation.Mode); err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			if _, err := f.Aggregation.Interval.Parse(); err != nil {
				return fmt.Errorf("%s aggregation interval: %w", f.Name, err)
			}
		}
		if f.Commission != nil {
			if _, err := f.Commission.Scheme(); err != nil {
				return fmt.Errorf("%s commission: %w", f.Name, err)
			}
		}
		if _, err := f.filters(c.Session, c.DataSettings.StartDate, c.DataSettings.EndDate); err != nil {
			return fmt.Errorf("%s filters: %w", f.Name, err)
		}
	}
	return nil
}

func (c *Config) validateTimers() error {
	_, err := c.BuildTimers()
	return err
}

func (c *Config) validateStrategySettings() error {
	s, err := strategies.LoadStrategyByName(c.StrategySettings.Name)
	if err != nil {
		return err
	}
	if len(c.StrategySettings.CustomSettings) > 0 {
		if err = s.SetCustomSettings(c.StrategySettings.CustomSettings); err != nil {
			return err
		}
	}
	if c.StrategySettings.Feed == "" {
		return nil
	}
	for i := range c.Feeds {
		if c.Feeds[i].Name == c.StrategySettings.Feed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", errStrategyFeedNotFound, c.StrategySettings.Feed)
}

// Scheme builds the commission scheme described by the settings. An empty
// type is a zero percentage commission
func (s *CommissionSettings) Scheme() (*commission.Info, error) {
	var (
		i   *commission.Info
		err error
	)
	switch strings.ToLower(s.Type) {
	case "", PercentageCommission:
		i, err = commission.NewPercentage(s.Commission, s.PercAbs)
	case FixedCommission:
		i, err = commission.NewFixed(s.Commission)
	case FuturesCommission:
		i, err = commission.NewFutures(s.Commission, s.Margin, s.Multiplier)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCommission, s.Type)
	}
	if err != nil {
		return nil, err
	}
	if !s.Multiplier.IsZero() {
		i.Mult = s.Multiplier
	}
	i.Leverage = s.Leverage
	i.Interest = s.Interest
	i.InterestLong = s.InterestLong
	return i, i.Validate()
}

// Parse converts the interval into a validated time frame
func (i Interval) Parse() (timeframe.Interval, error) {
	u, err := timeframe.ParseUnit(i.Unit)
	if err != nil {
		return timeframe.Interval{}, err
	}
	compression := i.Compression
	if compression == 0 {
		compression = 1
	}
	return timeframe.New(u, compression)
}

func (c *CSVData) location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", errInvalidTimezone, c.Timezone, err)
	}
	return loc, nil
}

func parseMode(s string) (aggregator.Mode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return aggregator.None, nil
	case "resample":
		return aggregator.Resample, nil
	case "replay":
		return aggregator.Replay, nil
	}
	return aggregator.None, fmt.Errorf("%w: %q", errUnknownMode, s)
}

func parsePrecedence(s string) (broker.Precedence, error) {
	switch strings.ToLower(s) {
	case "", "limit":
		return broker.LimitFirst, nil
	case "stop":
		return broker.StopFirst, nil
	}
	return broker.LimitFirst, fmt.Errorf("%w: %q", errUnknownPrecedence, s)
}

func parseAnchor(s string) (timer.Anchor, error) {
	switch strings.ToLower(s) {
	case "", "time":
		return timer.AtTime, nil
	case "session-start":
		return timer.SessionStart, nil
	case "session-end":
		return timer.SessionEnd, nil
	}
	return timer.AtTime, fmt.Errorf("%w: %q", errUnknownAnchor, s)
}

func (f *FeedSettings) filters(session data.Session, start, end time.Time) ([]data.Filter, error) {
	var resp []data.Filter
	if !start.IsZero() || !end.IsZero() {
		resp = append(resp, &data.DateFilter{Start: start, End: end})
	}
	if f.Filters.SessionFilter {
		sf, err := data.NewSessionFilter(session)
		if err != nil {
			return nil, err
		}
		resp = append(resp, sf)
	}
	if f.Filters.FillWeekDays {
		resp = append(resp, &data.WeekDaysFiller{FillPrice: f.Filters.FillPrice})
	}
	if f.Filters.SessionFillStep > 0 {
		sf, err := data.NewSessionFiller(session, f.Filters.SessionFillStep)
		if err != nil {
			return nil, err
		}
		resp = append(resp, sf)
	}
	return resp, nil
}

// BrokerConfig converts the broker and commission settings
func (c *Config) BrokerConfig() (broker.Config, error) {
	precedence, err := parsePrecedence(c.BrokerSettings.BracketPrecedence)
	if err != nil {
		return broker.Config{}, err
	}
	scheme, err := c.Commission.Scheme()
	if err != nil {
		return broker.Config{}, err
	}
	return broker.Config{
		Cash:              c.BrokerSettings.InitialCash,
		CheatOnClose:      c.BrokerSettings.CheatOnClose,
		VolumeFillRatio:   c.BrokerSettings.VolumeFillRatio,
		BracketPrecedence: precedence,
		InterestToPnL:     c.BrokerSettings.InterestToPnL,
		Commission:        scheme,
	}, nil
}

// EngineConfig converts the config into engine settings
func (c *Config) EngineConfig() (engine.Config, error) {
	b, err := c.BrokerConfig()
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{
		Broker:       b,
		CheatOnOpen:  c.BrokerSettings.CheatOnOpen,
		Session:      c.Session,
		StrategyName: c.StrategySettings.Name,
	}, nil
}

// BuildTimers converts the timer settings
func (c *Config) BuildTimers() ([]timer.Timer, error) {
	resp := make([]timer.Timer, 0, len(c.Timers))
	for i := range c.Timers {
		ts := &c.Timers[i]
		anchor, err := parseAnchor(ts.Anchor)
		if err != nil {
			return nil, fmt.Errorf("timer %q: %w", ts.Name, err)
		}
		t := timer.Timer{
			Name:       ts.Name,
			Anchor:     anchor,
			When:       ts.When,
			Offset:     ts.Offset,
			Repeat:     ts.Repeat,
			WeekCarry:  ts.WeekCarry,
			Monthdays:  ts.Monthdays,
			MonthCarry: ts.MonthCarry,
			Cheat:      ts.Cheat,
		}
		for _, wd := range ts.Weekdays {
			t.Weekdays = append(t.Weekdays, time.Weekday(wd))
		}
		if err = t.Validate(); err != nil {
			return nil, fmt.Errorf("timer %q: %w", ts.Name, err)
		}
		resp = append(resp, t)
	}
	return resp, nil
}

// BuildFeed opens the feed's source and wraps it with its filters and
// aggregation. db may be nil when the feed reads csv data
func (c *Config) BuildFeed(ctx context.Context, f *FeedSettings, db *database.Instance) (engine.Feed, error) {
	filters, err := f.filters(c.Session, c.DataSettings.StartDate, c.DataSettings.EndDate)
	if err != nil {
		return engine.Feed{}, err
	}
	resp := engine.Feed{
		Name:       f.Name,
		Instrument: f.Instrument,
		Filters:    filters,
	}
	if resp.Instrument == "" {
		resp.Instrument = f.Name
	}
	switch {
	case f.CSVData != nil:
		loc, err := f.CSVData.location()
		if err != nil {
			return engine.Feed{}, err
		}
		resp.Source, err = csv.LoadData(f.CSVData.FullPath, csv.Config{
			DateFormat: f.CSVData.DateFormat,
			Location:   loc,
			HasHeader:  f.CSVData.HasHeader,
		})
		if err != nil {
			return engine.Feed{}, err
		}
	case f.DatabaseData != nil:
		if db == nil {
			return engine.Feed{}, fmt.Errorf("%s %w", f.Name, errDatabaseDisabled)
		}
		interval, err := f.DatabaseData.Interval.Parse()
		if err != nil {
			return engine.Feed{}, err
		}
		resp.Source, err = dbdata.LoadData(ctx, db, resp.Instrument, interval, c.DataSettings.StartDate, c.DataSettings.EndDate)
		if err != nil {
			return engine.Feed{}, err
		}
	default:
		return engine.Feed{}, fmt.Errorf("%s %w", f.Name, errNoDataSource)
	}
	if f.Aggregation != nil {
		if resp.Mode, err = parseMode(f.Aggregation.Mode); err != nil {
			return engine.Feed{}, err
		}
		if resp.Interval, err = f.Aggregation.Interval.Parse(); err != nil {
			return engine.Feed{}, err
		}
		resp.Options = f.Aggregation.Options
	}
	return resp, nil
}

// PrintSetting prints relevant settings to the console for easy reading
func (c *Config) PrintSetting() {
	l := common.Logger(common.Setup)
	log.Info(l, common.ColourGreen+"------------------Backtester Settings------------------------"+common.ColourDefault)
	if c.Nickname != "" {
		log.Infof(l, "Nickname: %s", c.Nickname)
	}
	if c.Goal != "" {
		log.Infof(l, "Goal: %s", c.Goal)
	}
	log.Info(l, common.ColourGrey+"------------------Strategy Settings--------------------------"+common.ColourDefault)
	log.Infof(l, "Strategy: %s", c.StrategySettings.Name)
	if len(c.StrategySettings.CustomSettings) > 0 {
		log.Info(l, "Custom strategy variables:")
		for k, v := range c.StrategySettings.CustomSettings {
			log.Infof(l, "%s: %v", k, v)
		}
	} else {
		log.Info(l, "Custom strategy variables: unset")
	}
	log.Info(l, common.ColourGrey+"------------------Broker Settings----------------------------"+common.ColourDefault)
	log.Infof(l, "Initial cash: %v", c.BrokerSettings.InitialCash.Round(8))
	log.Infof(l, "Cheat on open: %v", c.BrokerSettings.CheatOnOpen)
	log.Infof(l, "Cheat on close: %v", c.BrokerSettings.CheatOnClose)
	if c.BrokerSettings.VolumeFillRatio.IsPositive() {
		log.Infof(l, "Volume fill ratio: %v", c.BrokerSettings.VolumeFillRatio)
	}
	log.Infof(l, "Commission: %s %v", c.Commission.Type, c.Commission.Commission)
	if !c.DataSettings.StartDate.IsZero() {
		log.Infof(l, "Start date: %v", c.DataSettings.StartDate.Format(gctcommon.SimpleTimeFormat))
		log.Infof(l, "End date: %v", c.DataSettings.EndDate.Format(gctcommon.SimpleTimeFormat))
	}
	for i := range c.Feeds {
		f := &c.Feeds[i]
		log.Info(l, common.ColourGrey+"------------------Feed "+f.Name+" Settings"+common.ColourDefault)
		if f.Instrument != "" {
			log.Infof(l, "Instrument: %s", f.Instrument)
		}
		if f.CSVData != nil {
			log.Infof(l, "CSV file: %v", f.CSVData.FullPath)
		}
		if f.DatabaseData != nil {
			log.Infof(l, "Database interval: %d %s", f.DatabaseData.Interval.Compression, f.DatabaseData.Interval.Unit)
		}
		if f.Aggregation != nil {
			log.Infof(l, "Aggregation: %s to %d %s", f.Aggregation.Mode, f.Aggregation.Interval.Compression, f.Aggregation.Interval.Unit)
		}
	}
}
