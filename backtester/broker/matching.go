package broker

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/backtester/data"
	"github.com/thrasher-corp/barsim/backtester/order"
	"github.com/thrasher-corp/barsim/log"
)

// Next runs one matching phase for instrument against bar. Expired orders
// are removed first, released orders are submitted and accepted, then every working
// order is matched, orders that were already live ahead of those accepted
// on this bar
func (b *Broker) Next(instrument string, bar data.Bar) error {
	if err := bar.Validate(); err != nil {
		return err
	}
	b.now = bar.Time
	b.phase++
	var pending []*order.Order
	for _, o := range b.orders {
		if o.Instrument == instrument && o.IsAlive() {
			pending = append(pending, o)
		}
	}
	for _, o := range pending {
		if o.IsAlive() && o.Expired(bar.Time) {
			if err := b.finish(o, order.EventExpire, "validity elapsed"); err != nil {
				return err
			}
		}
	}
	for _, o := range pending {
		if o.Status == order.Created && o.Transmit && o.ParentID == 0 {
			if err := o.Apply(order.EventSubmit); err != nil {
				return err
			}
			b.notifyOrder(o)
		}
		if o.Status != order.Submitted {
			continue
		}
		ref := bar.Open
		if o.Type == order.Close {
			ref = bar.Close
		}
		if err := b.accept(o, ref); err != nil {
			return err
		}
	}
	for _, o := range b.matchable(pending) {
		if !o.IsWorking() {
			continue
		}
		if err := b.match(o, bar); err != nil {
			return err
		}
	}
	for _, o := range pending {
		if o.IsWorking() {
			o.AdjustTrail(bar.High, bar.Low)
		}
	}
	b.lastClose[instrument] = bar.Close
	b.accrue(instrument, bar.Time)
	return b.checkInvariants()
}

// matchable orders the working orders for one phase. Bracket legs
// activated on this bar wait for the next one
func (b *Broker) matchable(pending []*order.Order) []*order.Order {
	var list []*order.Order
	for _, o := range pending {
		if !o.IsWorking() {
			continue
		}
		if o.ParentID != 0 && b.activated[o.ID] == b.phase {
			continue
		}
		list = append(list, o)
	}
	sort.SliceStable(list, func(i, j int) bool {
		ni, nj := b.activated[list[i].ID] == b.phase, b.activated[list[j].ID] == b.phase
		if ni != nj {
			return nj
		}
		return list[i].ID < list[j].ID
	})
	for i := range list {
		if list[i].ParentID == 0 {
			continue
		}
		for j := i + 1; j < len(list); j++ {
			if list[j].ParentID == list[i].ParentID && b.precedes(list[j], list[i]) {
				list[i], list[j] = list[j], list[i]
				break
			}
		}
	}
	return list
}

func (b *Broker) precedes(x, y *order.Order) bool {
	if b.cfg.BracketPrecedence == StopFirst {
		return x.Type != order.Limit && y.Type == order.Limit
	}
	return x.Type == order.Limit && y.Type != order.Limit
}

// accept moves an order live if its opening part can be paid for, funds
// are reserved until it fills or dies
func (b *Broker) accept(o *order.Order, marketPrice decimal.Decimal) error {
	price := marketPrice
	switch o.Type {
	case order.Limit:
		price = o.Price
	case order.Stop, order.StopTrail:
		price = o.StopPrice
	case order.StopLimit, order.StopTrailLimit:
		price = decimal.Max(o.Price, o.StopPrice)
	case order.Market:
		if b.cfg.CheatOnClose && o.CreatedPrice.IsPositive() {
			price = o.CreatedPrice
		}
	}
	s := b.scheme(o.Instrument)
	pos := b.Position(o.Instrument)
	opened, _ := splitFill(pos.Size, o.SignedSize())
	required := s.MarginRequired(opened, price).Add(s.Commission(o.Remaining, price))
	if required.GreaterThan(b.cash.Sub(b.committed())) {
		log.Debugf(common.Logger(common.Broker), "order %d needs %v, insufficient cash", o.ID, required)
		return b.finish(o, order.EventMargin, "insufficient cash at acceptance")
	}
	if err := o.Apply(order.EventAccept); err != nil {
		return err
	}
	o.AcceptedAt = b.now
	b.activated[o.ID] = b.phase
	if required.IsPositive() {
		b.reserved[o.ID] = required
	}
	b.notifyOrder(o)
	return nil
}

// activate releases a bracket leg once its parent has completed
func (b *Broker) activate(o *order.Order) error {
	if o.Status != order.Created || !o.Transmit {
		return nil
	}
	return b.accept(o, b.lastClose[o.Instrument])
}

// finish moves an order to a terminal status and cancels what depends on
// it
func (b *Broker) finish(o *order.Order, e order.Event, reason string) error {
	wasHeld := o.Status == order.Created && !o.Transmit
	if err := o.Apply(e); err != nil {
		return err
	}
	o.Reason = reason
	delete(b.reserved, o.ID)
	if wasHeld {
		b.unhold(o.ID)
	}
	b.notifyOrder(o)
	if o.Status != order.Completed {
		for _, id := range o.Children {
			if c := b.orders[id-1]; c.IsAlive() {
				if err := b.cancel(c, "parent did not complete"); err != nil {
					return err
				}
			}
		}
	}
	return b.cancelPeers(o)
}

func (b *Broker) cancel(o *order.Order, reason string) error {
	return b.finish(o, order.EventCancel, reason)
}

// cancelPeers cancels the other bracket leg and every other member of the
// order's oco group
func (b *Broker) cancelPeers(o *order.Order) error {
	if o.ParentID != 0 {
		for _, id := range b.orders[o.ParentID-1].Children {
			if s := b.orders[id-1]; s.ID != o.ID && s.IsAlive() {
				if err := b.cancel(s, "bracket sibling closed"); err != nil {
					return err
				}
			}
		}
	}
	if o.OCO == 0 {
		return nil
	}
	for _, p := range b.orders {
		if p.ID != o.ID && p.OCO == o.OCO && p.IsAlive() {
			if err := b.cancel(p, "oco peer closed"); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Broker) unhold(id int64) {
	for group, ids := range b.held {
		for i := range ids {
			if ids[i] != id {
				continue
			}
			b.held[group] = append(ids[:i], ids[i+1:]...)
			if len(b.held[group]) == 0 {
				delete(b.held, group)
			}
			return
		}
	}
}

func (b *Broker) match(o *order.Order, bar data.Bar) error {
	price, ok := b.fillPrice(o, bar)
	if !ok {
		return nil
	}
	size := o.Remaining
	if b.cfg.VolumeFillRatio.IsPositive() {
		limit := bar.Volume.Mul(b.cfg.VolumeFillRatio)
		if !limit.IsPositive() {
			return nil
		}
		size = decimal.Min(size, limit)
	}
	return b.execute(o, size, price)
}

// fillPrice returns the price o executes at within bar, if it executes
func (b *Broker) fillPrice(o *order.Order, bar data.Bar) (decimal.Decimal, bool) {
	switch o.Type {
	case order.Market:
		if b.cfg.CheatOnClose && o.CreatedPrice.IsPositive() {
			return o.CreatedPrice, true
		}
		return bar.Open, true
	case order.Close:
		return bar.Close, true
	case order.Limit:
		return limitPrice(o.IsBuy(), o.Price, bar)
	case order.Stop, order.StopTrail:
		if o.IsBuy() {
			if bar.High.GreaterThanOrEqual(o.StopPrice) {
				return decimal.Max(o.StopPrice, bar.Open), true
			}
			return decimal.Zero, false
		}
		if bar.Low.LessThanOrEqual(o.StopPrice) {
			return decimal.Min(o.StopPrice, bar.Open), true
		}
		return decimal.Zero, false
	case order.StopLimit, order.StopTrailLimit:
		if o.Triggered {
			return limitPrice(o.IsBuy(), o.Price, bar)
		}
		return stopLimitPrice(o, bar)
	}
	return decimal.Zero, false
}

func limitPrice(buy bool, limit decimal.Decimal, bar data.Bar) (decimal.Decimal, bool) {
	if buy {
		if bar.Low.LessThanOrEqual(limit) {
			return decimal.Min(limit, bar.Open), true
		}
		return decimal.Zero, false
	}
	if bar.High.GreaterThanOrEqual(limit) {
		return decimal.Max(limit, bar.Open), true
	}
	return decimal.Zero, false
}

// stopLimitPrice triggers the stop and tries the limit on the part of the
// bar travelled after the trigger
func stopLimitPrice(o *order.Order, bar data.Bar) (decimal.Decimal, bool) {
	stop, limit := o.StopPrice, o.Price
	if o.IsBuy() {
		switch {
		case bar.Open.GreaterThanOrEqual(stop):
			o.Triggered = true
			return limitPrice(true, limit, bar)
		case bar.High.GreaterThanOrEqual(stop):
			o.Triggered = true
			if limit.GreaterThanOrEqual(stop) {
				return stop, true
			}
			if bar.Open.GreaterThan(bar.Close) && limit.GreaterThanOrEqual(bar.Close) {
				return limit, true
			}
		}
		return decimal.Zero, false
	}
	switch {
	case bar.Open.LessThanOrEqual(stop):
		o.Triggered = true
		return limitPrice(false, limit, bar)
	case bar.Low.LessThanOrEqual(stop):
		o.Triggered = true
		if limit.LessThanOrEqual(stop) {
			return stop, true
		}
		if bar.Open.LessThan(bar.Close) && limit.LessThanOrEqual(bar.Close) {
			return limit, true
		}
	}
	return decimal.Zero, false
}

// execute fills size of o at price. A fill that would leave cash negative
// is refused and the order ends in Margin
func (b *Broker) execute(o *order.Order, size, price decimal.Decimal) error {
	s := b.scheme(o.Instrument)
	signed := size
	if !o.IsBuy() {
		signed = size.Neg()
	}
	pos := b.positions[o.Instrument]
	if pos == nil {
		pos = &Position{}
		b.positions[o.Instrument] = pos
	}
	comm := s.Commission(size, price)
	opened, closed := splitFill(pos.Size, signed)
	pnl := decimal.Zero
	if !closed.IsZero() {
		pnl = s.ProfitAndLoss(closed.Neg(), pos.Price, price)
	}
	var delta decimal.Decimal
	if s.IsStockLike() {
		delta = signed.Mul(price).Mul(s.Multiplier()).Neg()
	} else {
		delta = s.MarginRequired(closed, pos.Price).
			Sub(s.MarginRequired(opened, price)).
			Add(pnl)
	}
	delta = delta.Sub(comm)
	if b.cash.Add(delta).IsNegative() {
		log.Debugf(common.Logger(common.Broker), "order %d fill of %v at %v refused, cash %v", o.ID, size, price, b.cash)
		return b.finish(o, order.EventMargin, "insufficient cash at execution")
	}
	before := o.Remaining
	if err := o.Fill(size, price, comm, pnl, b.now); err != nil {
		return err
	}
	pos.update(signed, price, b.now)
	b.cash = b.cash.Add(delta)
	if r, ok := b.reserved[o.ID]; ok {
		if o.Remaining.IsZero() {
			delete(b.reserved, o.ID)
		} else {
			b.reserved[o.ID] = r.Mul(o.Remaining).Div(before)
		}
	}
	log.Debugf(common.Logger(common.Broker), "%v %s %s %v @ %v commission %v", b.now.Format(time.DateTime), o.Instrument, o.Side, size, price, comm)
	b.notifyOrder(o)
	b.updateTrades(o, signed, price, comm)
	if o.Status == order.Completed {
		for _, id := range o.Children {
			if err := b.activate(b.orders[id-1]); err != nil {
				return err
			}
		}
	}
	return b.cancelPeers(o)
}

func (b *Broker) updateTrades(o *order.Order, signed, price, comm decimal.Decimal) {
	s := b.scheme(o.Instrument)
	key := tradeKey{instrument: o.Instrument, tradeID: o.TradeID}
	t := b.open[key]
	remaining := signed
	if t != nil && t.Size.Sign() != signed.Sign() {
		closing := signed
		if signed.Abs().GreaterThan(t.Size.Abs()) {
			closing = t.Size.Neg()
		}
		share := comm.Mul(closing.Abs()).Div(signed.Abs())
		t.Size = t.Size.Add(closing)
		t.Commission = t.Commission.Add(share)
		t.PnL = t.PnL.Add(s.ProfitAndLoss(closing.Neg(), t.Price, price))
		t.PnLComm = t.PnL.Sub(t.Commission)
		t.Value = t.Size.Abs().Mul(t.Price)
		if t.Size.IsZero() {
			t.Status = TradeClosed
			t.ClosedAt = b.now
			delete(b.open, key)
		}
		b.notifyTrade(t)
		remaining = signed.Sub(closing)
		comm = comm.Sub(share)
		if t.Status == TradeClosed {
			t = nil
		}
	}
	if remaining.IsZero() {
		return
	}
	if t == nil {
		b.nextRef++
		t = &Trade{
			Ref:        b.nextRef,
			Instrument: o.Instrument,
			TradeID:    o.TradeID,
			Status:     TradeOpen,
			IsLong:     remaining.IsPositive(),
			OpenedAt:   b.now,
			JustOpened: true,
			interestAt: b.now,
		}
		b.open[key] = t
		b.trades = append(b.trades, t)
	}
	held := t.Size.Abs()
	t.Price = t.Price.Mul(held).Add(price.Mul(remaining.Abs())).Div(held.Add(remaining.Abs()))
	t.Size = t.Size.Add(remaining)
	t.Peak = decimal.Max(t.Peak, t.Size.Abs())
	t.Value = t.Size.Abs().Mul(t.Price)
	t.Commission = t.Commission.Add(comm)
	t.PnLComm = t.PnL.Sub(t.Commission)
	b.notifyTrade(t)
	t.JustOpened = false
}

// accrue charges credit interest on open trades once per calendar day and
// counts the bars each trade has been open
func (b *Broker) accrue(instrument string, at time.Time) {
	s := b.scheme(instrument)
	for _, t := range b.trades {
		if t.Status != TradeOpen || t.Instrument != instrument {
			continue
		}
		t.BarLen++
		days := int(day(at).Sub(day(t.interestAt)).Hours() / 24)
		if days <= 0 {
			continue
		}
		t.interestAt = at
		interest := s.CreditInterest(t.Size, t.Price, days)
		if interest.IsZero() {
			continue
		}
		b.cash = b.cash.Sub(interest)
		if b.cfg.InterestToPnL {
			t.Commission = t.Commission.Add(interest)
			t.PnLComm = t.PnL.Sub(t.Commission)
		}
	}
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// checkInvariants validates bracket consistency after a phase
func (b *Broker) checkInvariants() error {
	for _, o := range b.orders {
		if o.ParentID == 0 {
			continue
		}
		parent := b.orders[o.ParentID-1]
		if (o.IsWorking() || o.Status == order.Completed) && parent.Status != order.Completed {
			return &InvariantError{
				OrderID: o.ID,
				Time:    b.now,
				Err:     fmt.Errorf("%w: child active while parent %d is %s", ErrInvariantViolation, parent.ID, parent.Status),
			}
		}
		if o.Status != order.Completed {
			continue
		}
		for _, id := range parent.Children {
			if id != o.ID && b.orders[id-1].Status == order.Completed {
				return &InvariantError{
					OrderID: o.ID,
					Time:    b.now,
					Err:     fmt.Errorf("%w: both legs of bracket %d completed", ErrInvariantViolation, parent.ID),
				}
			}
		}
	}
	return nil
}

// splitFill divides a signed fill into the part opening exposure and the
// part closing the existing position
func splitFill(pos, size decimal.Decimal) (opened, closed decimal.Decimal) {
	switch {
	case pos.IsZero() || pos.Sign() == size.Sign():
		return size, decimal.Zero
	case size.Abs().LessThanOrEqual(pos.Abs()):
		return decimal.Zero, size
	default:
		return pos.Add(size), pos.Neg()
	}
}

func (p *Position) update(size, price decimal.Decimal, at time.Time) {
	old := p.Size
	p.Size = old.Add(size)
	p.UpdatedAt = at
	switch {
	case p.Size.IsZero():
		p.Price = decimal.Zero
	case old.IsZero(), old.Sign() != p.Size.Sign():
		p.Price = price
	case old.Sign() == size.Sign():
		p.Price = p.Price.Mul(old).Add(price.Mul(size)).Div(p.Size)
	}
}
