package smacross

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gct-ta/indicators"

	"github.com/thrasher-corp/barsim/backtester/broker"
	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/backtester/engine"
	"github.com/thrasher-corp/barsim/backtester/order"
	"github.com/thrasher-corp/barsim/backtester/strategies/base"
	"github.com/thrasher-corp/barsim/log"
)

const (
	// Name is the strategy name
	Name          = "smacross"
	fastPeriodKey = "fast-period"
	slowPeriodKey = "slow-period"
	sizeKey       = "size"
	stopLossKey   = "stop-loss"
	takeProfitKey = "take-profit"
	limitKey      = "limit"
	validDaysKey  = "valid-days"
	description   = `Goes long when the fast simple moving average crosses above the slow one and exits when it crosses back below. With stop-loss and take-profit set, entries are limit orders below the close wrapped in a bracket`
)

var errPeriods = fmt.Errorf("%w fast period must be shorter than slow period", base.ErrInvalidCustomSettings)

// Strategy is an implementation of the engine Strategy interface
type Strategy struct {
	base.Strategy
	fastPeriod int
	slowPeriod int
	size       decimal.Decimal
	stopLoss   decimal.Decimal
	takeProfit decimal.Decimal
	limit      decimal.Decimal
	validDays  int
	entry      int64
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
func (s *Strategy) Description() string {
	return description
}

// OnBar checks for a crossover on the latest bar
func (s *Strategy) OnBar(c *engine.Context) error {
	feed, err := s.Feed(c)
	if err != nil {
		return err
	}
	if !c.Delivered(feed) {
		return nil
	}
	bars := c.History(feed)
	if len(bars) <= s.slowPeriod {
		return nil
	}
	closes := base.Closes(bars)
	fast := indicators.SMA(closes, s.fastPeriod)
	slow := indicators.SMA(closes, s.slowPeriod)
	n := len(closes) - 1
	crossUp := fast[n-1] <= slow[n-1] && fast[n] > slow[n]
	crossDown := fast[n-1] >= slow[n-1] && fast[n] < slow[n]

	instrument := c.Instrument(feed)
	pos := c.Position(instrument)
	switch {
	case crossUp && pos.Size.IsZero() && s.entry == 0:
		return s.enter(c, instrument, bars[n].Close)
	case crossDown && pos.Size.IsPositive():
		log.Debugf(common.Logger(common.Strategy), "%v fast sma %.4f crossed below slow %.4f, closing", c.Time, fast[n], slow[n])
		_, err = c.Close(instrument, 0)
		return err
	case crossDown && s.entry != 0:
		return c.Cancel(s.entry)
	}
	return nil
}

func (s *Strategy) enter(c *engine.Context, instrument string, price decimal.Decimal) error {
	if s.stopLoss.IsZero() || s.takeProfit.IsZero() {
		id, err := c.Submit(&order.Spec{
			Instrument: instrument,
			Side:       order.Buy,
			Type:       order.Market,
			Size:       s.size,
		})
		s.entry = id
		return err
	}
	one := decimal.NewFromInt(1)
	entry := price.Mul(one.Sub(s.limit))
	ids, err := c.Bracket(&broker.BracketSpec{
		Instrument: instrument,
		Side:       order.Buy,
		Size:       s.size,
		EntryPrice: entry,
		StopPrice:  entry.Mul(one.Sub(s.stopLoss)),
		LimitPrice: entry.Mul(one.Add(s.takeProfit)),
		ValidUntil: c.Time.Add(time.Duration(s.validDays) * 24 * time.Hour),
	})
	if err != nil {
		return err
	}
	s.entry = ids[0]
	return nil
}

// OnOrder forgets the entry once it stops being alive
func (s *Strategy) OnOrder(c *engine.Context, o order.Order) {
	s.Strategy.OnOrder(c, o)
	if o.ID == s.entry && !o.IsAlive() {
		s.entry = 0
	}
}

// SetCustomSettings allows a user to modify the averages and bracket
// distances in their config
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		f, err := base.ParseFloat(k, v)
		if err != nil {
			return err
		}
		switch k {
		case fastPeriodKey:
			s.fastPeriod = int(f)
		case slowPeriodKey:
			s.slowPeriod = int(f)
		case sizeKey:
			s.size = decimal.NewFromFloat(f)
		case stopLossKey:
			s.stopLoss = decimal.NewFromFloat(f)
		case takeProfitKey:
			s.takeProfit = decimal.NewFromFloat(f)
		case limitKey:
			s.limit = decimal.NewFromFloat(f)
		case validDaysKey:
			s.validDays = int(f)
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
	}
	if s.fastPeriod < 1 || s.fastPeriod >= s.slowPeriod {
		return errPeriods
	}
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.fastPeriod = 10
	s.slowPeriod = 30
	s.size = decimal.NewFromInt(1)
	s.stopLoss = decimal.Zero
	s.takeProfit = decimal.Zero
	s.limit = decimal.NewFromFloat(0.005)
	s.validDays = 3
}
