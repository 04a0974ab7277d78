package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order
type Side string

// Sides
const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Type is the execution type of an order
type Type string

// Execution types
const (
	// Market fills at the open of the next bar
	Market Type = "MARKET"
	// Close fills at the close of the next bar
	Close Type = "CLOSE"
	// Limit fills at the limit price or better
	Limit Type = "LIMIT"
	// Stop becomes a market order once the stop price is touched
	Stop Type = "STOP"
	// StopLimit becomes a limit order once the stop price is touched
	StopLimit Type = "STOPLIMIT"
	// StopTrail is a stop whose price follows favourable moves
	StopTrail Type = "STOPTRAIL"
	// StopTrailLimit is a stop limit whose prices follow favourable moves
	StopTrailLimit Type = "STOPTRAILLIMIT"
)

// Status is the lifecycle state of an order
type Status string

// Statuses
const (
	Created   Status = "CREATED"
	Submitted Status = "SUBMITTED"
	Accepted  Status = "ACCEPTED"
	Partial   Status = "PARTIAL"
	Completed Status = "COMPLETED"
	Canceled  Status = "CANCELED"
	Expired   Status = "EXPIRED"
	Margin    Status = "MARGIN"
	Rejected  Status = "REJECTED"
)

// Event drives a status transition
type Event string

// Events
const (
	EventSubmit      Event = "SUBMIT"
	EventAccept      Event = "ACCEPT"
	EventPartialFill Event = "PARTIAL_FILL"
	EventFill        Event = "FILL"
	EventCancel      Event = "CANCEL"
	EventExpire      Event = "EXPIRE"
	EventMargin      Event = "MARGIN"
	EventReject      Event = "REJECT"
)

var (
	// ErrInvalidOrder is the base of every order validation error
	ErrInvalidOrder = errors.New("invalid order")
	// ErrInvalidTransition is returned for a status and event pair with no
	// transition
	ErrInvalidTransition = errors.New("invalid order status transition")

	ErrSubmissionIsNil    = fmt.Errorf("%w: submission is nil", ErrInvalidOrder)
	ErrInstrumentIsEmpty  = fmt.Errorf("%w: instrument is empty", ErrInvalidOrder)
	ErrSideIsInvalid      = fmt.Errorf("%w: side is invalid", ErrInvalidOrder)
	ErrTypeIsInvalid      = fmt.Errorf("%w: execution type is invalid", ErrInvalidOrder)
	ErrAmountIsInvalid    = fmt.Errorf("%w: size must be positive", ErrInvalidOrder)
	ErrPriceMustBeSet     = fmt.Errorf("%w: price must be set for limit orders", ErrInvalidOrder)
	ErrStopPriceMustBeSet = fmt.Errorf("%w: stop price must be set for stop orders", ErrInvalidOrder)
	ErrTrailMustBeSet     = fmt.Errorf("%w: one of trail amount or trail percent must be set", ErrInvalidOrder)
	ErrTrailPercentRange  = fmt.Errorf("%w: trail percent must be between 0 and 1", ErrInvalidOrder)
)

// Spec holds everything needed to submit an order
type Spec struct {
	Instrument string
	Side       Side
	Type       Type
	Size       decimal.Decimal
	// Price is the limit price, or for stop orders an optional stop price
	// alias when StopPrice is unset
	Price     decimal.Decimal
	StopPrice decimal.Decimal
	// TrailAmount and TrailPercent define the trailing distance, only one may
	// be set. TrailPercent is a fraction, 0.02 is 2%
	TrailAmount  decimal.Decimal
	TrailPercent decimal.Decimal
	// ValidUntil expires the order once the clock passes it, zero is good
	// till cancelled
	ValidUntil time.Time
	// ParentID links a bracket child to its entry order
	ParentID int64
	// OCO links the order to the group of the given order id
	OCO int64
	// Transmit false holds the order until a later order of the same group
	// is transmitted. Nil transmits immediately
	Transmit *bool
	TradeID  int
}

// Execution accumulates fills
type Execution struct {
	Size       decimal.Decimal
	Price      decimal.Decimal
	Value      decimal.Decimal
	Commission decimal.Decimal
	PnL        decimal.Decimal
	Time       time.Time
}

// Order is a live or historical order held by the broker
type Order struct {
	ID           int64
	Instrument   string
	Side         Side
	Type         Type
	Size         decimal.Decimal
	Price        decimal.Decimal
	StopPrice    decimal.Decimal
	TrailAmount  decimal.Decimal
	TrailPercent decimal.Decimal
	ValidUntil   time.Time
	Status       Status
	ParentID     int64
	OCO          int64
	Transmit     bool
	TradeID      int

	// Children holds bracket child ids, stop loss first
	Children []int64
	// CreatedAt and CreatedPrice record the bar time and close at submission
	CreatedAt    time.Time
	CreatedPrice decimal.Decimal
	// AcceptedAt is the bar time the order went live
	AcceptedAt time.Time
	// Triggered is set once a stop limit order's stop has been touched
	Triggered bool
	Executed  Execution
	Remaining decimal.Decimal
	// Reason explains terminal states other than Completed
	Reason string

	limitOffset decimal.Decimal
	extreme     decimal.Decimal
}
