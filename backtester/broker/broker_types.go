package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thrasher-corp/barsim/backtester/commission"
	"github.com/thrasher-corp/barsim/backtester/order"
)

var (
	// ErrOrderNotFound is returned for an unknown order id
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotAlive is returned when acting on a finished order
	ErrOrderNotAlive = errors.New("order is no longer alive")
	// ErrNoPosition is returned when closing a flat instrument
	ErrNoPosition = errors.New("no open position")
	// ErrInvariantViolation is fatal, the broker state is inconsistent
	ErrInvariantViolation = errors.New("broker invariant violated")

	errNegativeCash      = errors.New("starting cash cannot be negative")
	errInvalidFillRatio  = errors.New("volume fill ratio must be between 0 and 1")
	errNoReferencePrice  = errors.New("no price seen yet to anchor the order")
	errParentIsChild     = errors.New("a bracket child cannot be a parent")
	errParentInstrument  = errors.New("bracket child must trade the parent's instrument")
	errTooManyChildren   = errors.New("a bracket holds at most two children")
	errInvalidPrecedence = errors.New("invalid bracket precedence")
)

// Precedence decides which bracket child is matched first when both could
// fill on the same bar
type Precedence uint8

// Bracket precedences
const (
	LimitFirst Precedence = iota
	StopFirst
)

// Config holds broker settings
type Config struct {
	Cash decimal.Decimal
	// CheatOnClose fills market orders at the close of the bar they were
	// submitted on
	CheatOnClose bool
	// VolumeFillRatio caps each fill to this fraction of the bar volume,
	// zero disables the cap
	VolumeFillRatio   decimal.Decimal
	BracketPrecedence Precedence
	// InterestToPnL books credit interest against open trades
	InterestToPnL bool
	// Commission is used for instruments without their own scheme, nil
	// means commission free and stock like
	Commission commission.Scheme
}

// ValidationError reports a rejected submission
type ValidationError struct {
	Time time.Time
	Err  error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("order rejected at %v: %v", e.Time.Format(time.RFC3339), e.Err)
}

// Unwrap returns the wrapped error
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// InvariantError reports an internal inconsistency, the run must stop
type InvariantError struct {
	OrderID int64
	Time    time.Time
	Err     error
}

// Error implements the error interface
func (e *InvariantError) Error() string {
	return fmt.Sprintf("order %d at %v: %v", e.OrderID, e.Time.Format(time.RFC3339), e.Err)
}

// Unwrap returns the wrapped error
func (e *InvariantError) Unwrap() error {
	return e.Err
}

// Kind is the type of a notification
type Kind uint8

// Notification kinds
const (
	OrderNotification Kind = iota
	TradeNotification
)

// Notification is a snapshot of an order or trade state change
type Notification struct {
	Kind  Kind
	Time  time.Time
	Order order.Order
	Trade Trade
}

// Position holds the net size and average price for an instrument
type Position struct {
	Size      decimal.Decimal
	Price     decimal.Decimal
	UpdatedAt time.Time
}

// TradeStatus is the state of a Trade
type TradeStatus string

// Trade statuses
const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

// Trade groups fills on an instrument and trade id from flat to flat
type Trade struct {
	Ref        int64
	Instrument string
	TradeID    int
	Status     TradeStatus
	// Size is the current signed size, Peak the largest absolute size held
	Size       decimal.Decimal
	Peak       decimal.Decimal
	Price      decimal.Decimal
	Value      decimal.Decimal
	Commission decimal.Decimal
	PnL        decimal.Decimal
	PnLComm    decimal.Decimal
	IsLong     bool
	OpenedAt   time.Time
	ClosedAt   time.Time
	BarLen     int
	// JustOpened is set on the notification of the first fill
	JustOpened bool

	interestAt time.Time
}

// Account holds the broker's funds. Committed is cash reserved for live
// orders
type Account struct {
	Cash      decimal.Decimal
	Committed decimal.Decimal
	Value     decimal.Decimal
}

type tradeKey struct {
	instrument string
	tradeID    int
}

// Broker simulates order handling and execution against bars
type Broker struct {
	cfg     Config
	now     time.Time
	phase   int
	cash    decimal.Decimal
	nextID  int64
	nextRef int64

	// orders is the arena, ids index it and start at one
	orders    []*order.Order
	held      map[int64][]int64
	activated map[int64]int
	reserved  map[int64]decimal.Decimal

	schemes   map[string]commission.Scheme
	positions map[string]*Position
	lastClose map[string]decimal.Decimal
	open      map[tradeKey]*Trade
	trades    []*Trade

	notifications []Notification
}
