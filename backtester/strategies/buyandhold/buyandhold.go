package buyandhold

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/backtester/engine"
	"github.com/thrasher-corp/barsim/backtester/order"
	"github.com/thrasher-corp/barsim/backtester/strategies/base"
	"github.com/thrasher-corp/barsim/log"
)

const (
	// Name is the strategy name
	Name        = "buyandhold"
	fractionKey = "fraction"
	description = `Spends a fraction of the starting cash on the first bar and holds until the data ends. Useful as a benchmark`
)

// Strategy is an implementation of the engine Strategy interface
type Strategy struct {
	base.Strategy
	fraction decimal.Decimal
	bought   bool
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
func (s *Strategy) Description() string {
	return description
}

// OnBar buys once, sized from the first close
func (s *Strategy) OnBar(c *engine.Context) error {
	if s.bought {
		return nil
	}
	feed, err := s.Feed(c)
	if err != nil {
		return err
	}
	b, ok := c.Bar(feed)
	if !ok || !b.Close.IsPositive() {
		return nil
	}
	size := c.Cash().Mul(s.fraction).Div(b.Close).Floor()
	if !size.IsPositive() {
		log.Warnf(common.Logger(common.Strategy), "cash %v cannot buy a unit at %v", c.Cash(), b.Close)
		s.bought = true
		return nil
	}
	_, err = c.Submit(&order.Spec{
		Instrument: c.Instrument(feed),
		Side:       order.Buy,
		Type:       order.Market,
		Size:       size,
	})
	s.bought = true
	return err
}

// SetCustomSettings sets the fraction of cash to spend
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		switch k {
		case fractionKey:
			f, err := base.ParseFloat(k, v)
			if err != nil {
				return err
			}
			if f > 1 {
				return fmt.Errorf("%w %s cannot exceed 1", base.ErrInvalidCustomSettings, k)
			}
			s.fraction = decimal.NewFromFloat(f)
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
	}
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.fraction = decimal.NewFromFloat(0.95)
	s.bought = false
}
