package base

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/thrasher-corp/barsim/backtester/broker"
	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/backtester/data"
	"github.com/thrasher-corp/barsim/backtester/engine"
	"github.com/thrasher-corp/barsim/backtester/order"
	"github.com/thrasher-corp/barsim/backtester/timer"
	gctcommon "github.com/thrasher-corp/barsim/common"
	"github.com/thrasher-corp/barsim/log"
)

// SetFeed sets the feed the strategy trades, the first feed when unset
func (s *Strategy) SetFeed(name string) {
	s.feed = name
}

// Feed returns the traded feed name
func (s *Strategy) Feed(c *engine.Context) (string, error) {
	if s.feed != "" {
		return s.feed, nil
	}
	feeds := c.Feeds()
	if len(feeds) == 0 {
		return "", ErrNoFeeds
	}
	return feeds[0], nil
}

// OnOrder logs order updates
func (s *Strategy) OnOrder(c *engine.Context, o order.Order) {
	log.Debugf(common.Logger(common.Strategy), "%v order %d %s %s %v %s",
		c.Time.Format(gctcommon.SimpleTimeFormat), o.ID, o.Side, o.Type, o.Size, o.Status)
}

// OnTrade logs closed trades
func (s *Strategy) OnTrade(c *engine.Context, t broker.Trade) {
	if t.Status != broker.TradeClosed {
		return
	}
	log.Infof(common.Logger(common.Strategy), "%v trade %d on %s closed, pnl %v net %v",
		c.Time.Format(gctcommon.SimpleTimeFormat), t.Ref, t.Instrument, t.PnL.StringFixed(2), t.PnLComm.StringFixed(2))
}

// OnTimer ignores timer firings
func (s *Strategy) OnTimer(*engine.Context, timer.Firing) {}

// Closes returns the close prices of bars
func Closes(bars []data.Bar) []float64 {
	resp := make([]float64, len(bars))
	for i := range bars {
		resp[i] = bars[i].Close.InexactFloat64()
	}
	return resp
}

// ParseFloat reads a positive numeric custom setting
func ParseFloat(key string, v any) (float64, error) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return 0, fmt.Errorf("%w provided %s value could not be parsed: %v", ErrInvalidCustomSettings, key, v)
		}
		f = d.InexactFloat64()
	default:
		return 0, fmt.Errorf("%w provided %s value could not be parsed: %v", ErrInvalidCustomSettings, key, v)
	}
	if f <= 0 {
		return 0, fmt.Errorf("%w provided %s value must be positive: %v", ErrInvalidCustomSettings, key, v)
	}
	return f, nil
}
