package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// transitions lists every legal status change, anything absent is illegal
var transitions = map[Status]map[Event]Status{
	Created: {
		EventSubmit: Submitted,
		EventAccept: Accepted,
		EventCancel: Canceled,
		EventReject: Rejected,
		EventExpire: Expired,
		EventMargin: Margin,
	},
	Submitted: {
		EventAccept: Accepted,
		EventCancel: Canceled,
		EventReject: Rejected,
		EventMargin: Margin,
		EventExpire: Expired,
	},
	Accepted: {
		EventPartialFill: Partial,
		EventFill:        Completed,
		EventCancel:      Canceled,
		EventExpire:      Expired,
		EventMargin:      Margin,
	},
	Partial: {
		EventPartialFill: Partial,
		EventFill:        Completed,
		EventCancel:      Canceled,
		EventExpire:      Expired,
		EventMargin:      Margin,
	},
}

// Transition returns the status reached from s on event e
func Transition(s Status, e Event) (Status, error) {
	next, ok := transitions[s][e]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
	}
	return next, nil
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// String implements the stringer interface
func (s Status) String() string {
	return string(s)
}

// String implements the stringer interface
func (s Side) String() string {
	return string(s)
}

// String implements the stringer interface
func (t Type) String() string {
	return string(t)
}

// StringToOrderSide for converting case insensitive order side
func StringToOrderSide(side string) (Side, error) {
	switch {
	case strings.EqualFold(side, Buy.String()):
		return Buy, nil
	case strings.EqualFold(side, Sell.String()):
		return Sell, nil
	}
	return "", fmt.Errorf("%w: %s not recognised as side type", ErrSideIsInvalid, side)
}

// StringToOrderType for converting case insensitive order type
func StringToOrderType(oType string) (Type, error) {
	for _, t := range []Type{Market, Close, Limit, Stop, StopLimit, StopTrail, StopTrailLimit} {
		if strings.EqualFold(oType, t.String()) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %s not recognised as order type", ErrTypeIsInvalid, oType)
}

// Validate checks the supplied data and returns whether or not it's valid
func (s *Spec) Validate() error {
	if s == nil {
		return ErrSubmissionIsNil
	}
	if s.Instrument == "" {
		return ErrInstrumentIsEmpty
	}
	if s.Side != Buy && s.Side != Sell {
		return ErrSideIsInvalid
	}
	if !s.Size.IsPositive() {
		return ErrAmountIsInvalid
	}
	switch s.Type {
	case Market, Close:
	case Limit:
		if !s.Price.IsPositive() {
			return ErrPriceMustBeSet
		}
	case Stop:
		if !s.StopPrice.IsPositive() && !s.Price.IsPositive() {
			return ErrStopPriceMustBeSet
		}
	case StopLimit:
		if !s.StopPrice.IsPositive() {
			return ErrStopPriceMustBeSet
		}
		if !s.Price.IsPositive() {
			return ErrPriceMustBeSet
		}
	case StopTrail, StopTrailLimit:
		if s.TrailAmount.IsPositive() == s.TrailPercent.IsPositive() {
			return ErrTrailMustBeSet
		}
		if s.TrailPercent.IsNegative() || s.TrailPercent.GreaterThanOrEqual(one) {
			return ErrTrailPercentRange
		}
		if s.Type == StopTrailLimit && !s.Price.IsPositive() {
			return ErrPriceMustBeSet
		}
	default:
		return ErrTypeIsInvalid
	}
	return nil
}

// Transmits reports whether the order is released immediately
func (s *Spec) Transmits() bool {
	return s.Transmit == nil || *s.Transmit
}

// New builds an order from a validated spec. refPrice is the close of the
// bar at submission, it anchors trailing stops without an explicit price
func New(id int64, s *Spec, at time.Time, refPrice decimal.Decimal) *Order {
	o := &Order{
		ID:           id,
		Instrument:   s.Instrument,
		Side:         s.Side,
		Type:         s.Type,
		Size:         s.Size,
		Price:        s.Price,
		StopPrice:    s.StopPrice,
		TrailAmount:  s.TrailAmount,
		TrailPercent: s.TrailPercent,
		ValidUntil:   s.ValidUntil,
		Status:       Created,
		ParentID:     s.ParentID,
		OCO:          s.OCO,
		Transmit:     s.Transmits(),
		TradeID:      s.TradeID,
		CreatedAt:    at,
		CreatedPrice: refPrice,
		Remaining:    s.Size,
	}
	switch o.Type {
	case Stop:
		if o.StopPrice.IsZero() {
			o.StopPrice = o.Price
		}
	case StopTrail, StopTrailLimit:
		if o.StopPrice.IsZero() {
			o.extreme = refPrice
			o.StopPrice = o.trailStop(refPrice)
		} else {
			o.extreme = o.extremeFor(o.StopPrice)
		}
		if o.Type == StopTrailLimit {
			o.limitOffset = o.StopPrice.Sub(o.Price)
		}
	}
	return o
}

// Apply moves the order through the transition for e
func (o *Order) Apply(e Event) error {
	next, err := Transition(o.Status, e)
	if err != nil {
		return fmt.Errorf("order %d: %w", o.ID, err)
	}
	o.Status = next
	return nil
}

// IsBuy reports whether the order buys
func (o *Order) IsBuy() bool {
	return o.Side == Buy
}

// IsAlive reports whether the order may still change
func (o *Order) IsAlive() bool {
	return !o.Status.IsTerminal()
}

// IsWorking reports whether the order is live in the market
func (o *Order) IsWorking() bool {
	return o.Status == Accepted || o.Status == Partial
}

// SignedSize returns the remaining size, negative for sells
func (o *Order) SignedSize() decimal.Decimal {
	if o.IsBuy() {
		return o.Remaining
	}
	return o.Remaining.Neg()
}

// Expired reports whether now is past the order's validity
func (o *Order) Expired(now time.Time) bool {
	return !o.ValidUntil.IsZero() && now.After(o.ValidUntil)
}

// Fill records an execution of size at price and advances the status
func (o *Order) Fill(size, price, commission, pnl decimal.Decimal, at time.Time) error {
	ev := EventPartialFill
	if size.GreaterThanOrEqual(o.Remaining) {
		size = o.Remaining
		ev = EventFill
	}
	if err := o.Apply(ev); err != nil {
		return err
	}
	value := size.Mul(price)
	total := o.Executed.Size.Add(size)
	o.Executed.Price = o.Executed.Value.Add(value).Div(total)
	o.Executed.Size = total
	o.Executed.Value = o.Executed.Value.Add(value)
	o.Executed.Commission = o.Executed.Commission.Add(commission)
	o.Executed.PnL = o.Executed.PnL.Add(pnl)
	o.Executed.Time = at
	o.Remaining = o.Remaining.Sub(size)
	return nil
}

// AdjustTrail ratchets a trailing stop using a new price extreme. A sell
// stop only moves up as prices rise, a buy stop only moves down as prices
// fall
func (o *Order) AdjustTrail(high, low decimal.Decimal) {
	if o.Type != StopTrail && o.Type != StopTrailLimit {
		return
	}
	if o.IsBuy() {
		if !low.LessThan(o.extreme) {
			return
		}
		o.extreme = low
		if candidate := o.trailStop(o.extreme); candidate.LessThan(o.StopPrice) {
			o.StopPrice = candidate
		}
	} else {
		if !high.GreaterThan(o.extreme) {
			return
		}
		o.extreme = high
		if candidate := o.trailStop(o.extreme); candidate.GreaterThan(o.StopPrice) {
			o.StopPrice = candidate
		}
	}
	if o.Type == StopTrailLimit {
		o.Price = o.StopPrice.Sub(o.limitOffset)
	}
}

func (o *Order) trailStop(ref decimal.Decimal) decimal.Decimal {
	distance := o.TrailAmount
	if o.TrailPercent.IsPositive() {
		distance = ref.Mul(o.TrailPercent)
	}
	if o.IsBuy() {
		return ref.Add(distance)
	}
	return ref.Sub(distance)
}

// extremeFor returns the price extreme that puts the trailing stop at stop
func (o *Order) extremeFor(stop decimal.Decimal) decimal.Decimal {
	if o.TrailPercent.IsPositive() {
		if o.IsBuy() {
			return stop.Div(one.Add(o.TrailPercent))
		}
		return stop.Div(one.Sub(o.TrailPercent))
	}
	if o.IsBuy() {
		return stop.Sub(o.TrailAmount)
	}
	return stop.Add(o.TrailAmount)
}

// Clone returns a copy safe to hand to strategies
func (o *Order) Clone() Order {
	c := *o
	c.Children = append([]int64(nil), o.Children...)
	return c
}
