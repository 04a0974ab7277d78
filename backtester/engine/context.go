package engine

import (
	"github.com/shopspring/decimal"

	"github.com/thrasher-corp/barsim/backtester/broker"
	"github.com/thrasher-corp/barsim/backtester/data"
	"github.com/thrasher-corp/barsim/backtester/order"
	"github.com/thrasher-corp/barsim/backtester/timer"
)

// Feeds returns the feed names in the order they were added
func (c *Context) Feeds() []string {
	resp := make([]string, len(c.engine.feeds))
	for i, f := range c.engine.feeds {
		resp[i] = f.name
	}
	return resp
}

// Instrument returns the instrument traded on feed
func (c *Context) Instrument(feed string) string {
	if f, ok := c.engine.byName[feed]; ok {
		return f.instrument
	}
	return ""
}

// Delivered reports whether feed produced a bar on this step
func (c *Context) Delivered(feed string) bool {
	f, ok := c.engine.byName[feed]
	return ok && f.delivered
}

// Bar returns the latest bar seen on feed. Replayed feeds return the
// growing bar
func (c *Context) Bar(feed string) (data.Bar, bool) {
	f, ok := c.engine.byName[feed]
	if !ok || len(f.history) == 0 {
		return data.Bar{}, false
	}
	return f.history[len(f.history)-1], true
}

// History returns every bar seen on feed, oldest first
func (c *Context) History(feed string) []data.Bar {
	f, ok := c.engine.byName[feed]
	if !ok {
		return nil
	}
	return append([]data.Bar(nil), f.history...)
}

// Submit creates an order, it is matched from the next matching phase
func (c *Context) Submit(spec *order.Spec) (int64, error) {
	return c.engine.broker.Submit(spec)
}

// Bracket submits an entry with stop and limit exits
func (c *Context) Bracket(spec *broker.BracketSpec) ([3]int64, error) {
	return c.engine.broker.Bracket(spec)
}

// Cancel cancels a live order
func (c *Context) Cancel(id int64) error {
	return c.engine.broker.Cancel(id)
}

// Close flattens the open trade on instrument and tradeID
func (c *Context) Close(instrument string, tradeID int) (int64, error) {
	return c.engine.broker.Close(instrument, tradeID)
}

// Order returns a snapshot of an order
func (c *Context) Order(id int64) (order.Order, error) {
	return c.engine.broker.Order(id)
}

// Position returns the position on instrument
func (c *Context) Position(instrument string) broker.Position {
	return c.engine.broker.Position(instrument)
}

// Cash returns the broker cash
func (c *Context) Cash() decimal.Decimal {
	return c.engine.broker.Cash()
}

// Value returns the broker account value
func (c *Context) Value() decimal.Decimal {
	return c.engine.broker.Value()
}

// AddTimer registers a timer from within the strategy, usually in OnStart
func (c *Context) AddTimer(t timer.Timer) (int, error) {
	return c.engine.scheduler.Add(t)
}
