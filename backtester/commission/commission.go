package commission

import (
	"github.com/shopspring/decimal"
)

var (
	one        = decimal.NewFromInt(1)
	oneHundred = decimal.NewFromInt(100)
	daysInYear = decimal.NewFromInt(365)
)

// NewPercentage returns a stock like scheme charging perc of traded value
func NewPercentage(perc decimal.Decimal, percAbs bool) (*Info, error) {
	i := &Info{Type: Percentage, Rate: perc, PercAbs: percAbs, StockLike: true}
	return i, i.Validate()
}

// NewFixed returns a stock like scheme charging perUnit for each unit
func NewFixed(perUnit decimal.Decimal) (*Info, error) {
	i := &Info{Type: Fixed, Rate: perUnit, StockLike: true}
	return i, i.Validate()
}

// NewFutures returns a margined scheme charging perContract, requiring
// margin per contract with pnl scaled by mult
func NewFutures(perContract, margin, mult decimal.Decimal) (*Info, error) {
	i := &Info{Type: Fixed, Rate: perContract, Margin: margin, Mult: mult}
	return i, i.Validate()
}

// Validate checks the scheme values and fills defaults
func (i *Info) Validate() error {
	if i.Rate.IsNegative() {
		return errNegativeCommission
	}
	if i.Mult.IsZero() {
		i.Mult = one
	}
	if !i.Mult.IsPositive() {
		return errInvalidMultiplier
	}
	if i.Leverage.IsZero() {
		i.Leverage = one
	}
	if !i.Leverage.IsPositive() {
		return errInvalidLeverage
	}
	if !i.StockLike && !i.Margin.IsPositive() {
		return errMarginRequired
	}
	if i.Interest.IsNegative() {
		return errNegativeInterest
	}
	return nil
}

// Commission returns the commission for trading size at price
func (i *Info) Commission(size, price decimal.Decimal) decimal.Decimal {
	if i.Type == Fixed {
		return size.Abs().Mul(i.Rate)
	}
	perc := i.Rate
	if !i.PercAbs {
		perc = perc.Div(oneHundred)
	}
	return size.Abs().Mul(price).Mul(perc)
}

// MarginRequired returns the cash needed to open size at price
func (i *Info) MarginRequired(size, price decimal.Decimal) decimal.Decimal {
	if i.StockLike {
		return size.Abs().Mul(price).Div(i.Leverage)
	}
	return size.Abs().Mul(i.Margin)
}

// IsStockLike reports whether positions are paid for in full
func (i *Info) IsStockLike() bool {
	return i.StockLike
}

// Multiplier returns the contract multiplier
func (i *Info) Multiplier() decimal.Decimal {
	return i.Mult
}

// ProfitAndLoss returns the pnl of size moving from price to newPrice
func (i *Info) ProfitAndLoss(size, price, newPrice decimal.Decimal) decimal.Decimal {
	return size.Mul(newPrice.Sub(price)).Mul(i.Mult)
}

// CashAdjust returns the mark to market change for margined positions
func (i *Info) CashAdjust(size, price, newPrice decimal.Decimal) decimal.Decimal {
	if i.StockLike {
		return decimal.Zero
	}
	return i.ProfitAndLoss(size, price, newPrice)
}

// CreditInterest returns the interest owed for holding size at price for
// days
func (i *Info) CreditInterest(size, price decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 || i.Interest.IsZero() || size.IsZero() {
		return decimal.Zero
	}
	if size.IsPositive() && !i.InterestLong {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(days)).
		Mul(i.Interest).
		Div(daysInYear).
		Mul(size.Abs()).
		Mul(price)
}
