package dollarcostaverage

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/backtester/engine"
	"github.com/thrasher-corp/barsim/backtester/order"
	"github.com/thrasher-corp/barsim/backtester/strategies/base"
	"github.com/thrasher-corp/barsim/backtester/timer"
	"github.com/thrasher-corp/barsim/log"
)

const (
	// Name is the strategy name
	Name        = "dollarcostaverage"
	amountKey   = "amount"
	monthdayKey = "monthday"
	description = `Dollar-cost averaging spends a fixed amount on a monthly timer regardless of price. A month whose buy day had no bar buys on the next trading day`
)

// Strategy is an implementation of the engine Strategy interface
type Strategy struct {
	base.Strategy
	amount   decimal.Decimal
	monthday int
	timerID  int
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
func (s *Strategy) Description() string {
	return description
}

// OnStart registers the monthly timer
func (s *Strategy) OnStart(c *engine.Context) error {
	var err error
	s.timerID, err = c.AddTimer(timer.Timer{
		Name:       Name,
		Anchor:     timer.SessionStart,
		Monthdays:  []int{s.monthday},
		MonthCarry: true,
	})
	return err
}

// OnBar does nothing, buying happens on the timer
func (s *Strategy) OnBar(*engine.Context) error {
	return nil
}

// OnTimer buys amount worth at the latest close
func (s *Strategy) OnTimer(c *engine.Context, f timer.Firing) {
	if f.ID != s.timerID {
		return
	}
	feed, err := s.Feed(c)
	if err != nil {
		return
	}
	b, ok := c.Bar(feed)
	if !ok || !b.Close.IsPositive() {
		return
	}
	size := s.amount.Div(b.Close).Floor()
	if !size.IsPositive() {
		return
	}
	if _, err = c.Submit(&order.Spec{
		Instrument: c.Instrument(feed),
		Side:       order.Buy,
		Type:       order.Market,
		Size:       size,
	}); err != nil {
		log.Errorf(common.Logger(common.Strategy), "%v monthly buy failed: %v", c.Time, err)
	}
}

// SetCustomSettings sets the amount and day of month to buy on
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		f, err := base.ParseFloat(k, v)
		if err != nil {
			return err
		}
		switch k {
		case amountKey:
			s.amount = decimal.NewFromFloat(f)
		case monthdayKey:
			if f > 31 {
				return fmt.Errorf("%w %s must be between 1 and 31", base.ErrInvalidCustomSettings, k)
			}
			s.monthday = int(f)
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
	}
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.amount = decimal.NewFromInt(1000)
	s.monthday = 1
}
