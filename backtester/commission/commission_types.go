package commission

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	errNegativeCommission = errors.New("commission cannot be negative")
	errInvalidMultiplier  = errors.New("multiplier must be positive")
	errMarginRequired     = errors.New("futures like schemes require a positive margin")
	errInvalidLeverage    = errors.New("leverage must be positive")
	errNegativeInterest   = errors.New("interest cannot be negative")
)

// Type selects how the commission value is applied
type Type uint8

// Commission types
const (
	// Percentage charges a fraction of the traded value
	Percentage Type = iota
	// Fixed charges a flat amount per unit or contract
	Fixed
)

// Scheme calculates the costs of trading an instrument
type Scheme interface {
	// Commission returns the commission for trading size at price
	Commission(size, price decimal.Decimal) decimal.Decimal
	// MarginRequired returns the cash needed to open size at price
	MarginRequired(size, price decimal.Decimal) decimal.Decimal
	// IsStockLike reports whether positions are paid for in full, as
	// opposed to being margined
	IsStockLike() bool
	Multiplier() decimal.Decimal
	// ProfitAndLoss returns the pnl of size moving from price to newPrice
	ProfitAndLoss(size, price, newPrice decimal.Decimal) decimal.Decimal
	// CashAdjust returns the mark to market cash change for margined
	// positions, zero for stock like schemes
	CashAdjust(size, price, newPrice decimal.Decimal) decimal.Decimal
	// CreditInterest returns the interest owed for holding size at price
	// for days
	CreditInterest(size, price decimal.Decimal, days int) decimal.Decimal
}

// Info is the configurable Scheme implementation
type Info struct {
	Type Type            `json:"type"`
	Rate decimal.Decimal `json:"commission"`
	// PercAbs treats a Percentage commission as a fraction, otherwise it is
	// read as a percent, 0.1 meaning 0.1%
	PercAbs   bool            `json:"percabs"`
	Mult      decimal.Decimal `json:"mult"`
	Margin    decimal.Decimal `json:"margin"`
	StockLike bool            `json:"stocklike"`
	Leverage  decimal.Decimal `json:"leverage"`
	// Interest is a yearly rate charged on short positions
	Interest decimal.Decimal `json:"interest"`
	// InterestLong also charges Interest on long positions
	InterestLong bool `json:"interestlong"`
}
