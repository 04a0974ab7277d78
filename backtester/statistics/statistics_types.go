package statistics

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thrasher-corp/barsim/backtester/broker"
)

var (
	// ErrAlreadyProcessed occurs when a value is tracked out of time order
	ErrAlreadyProcessed = errors.New("this time has been processed already")
	errReceivedNoData   = errors.New("received no data")
)

// Statistic holds the statistical information for a backtester run, from
// drawdowns to trade counts
type Statistic struct {
	StrategyName    string          `json:"strategy-name"`
	StartDate       time.Time       `json:"start-date"`
	EndDate         time.Time       `json:"end-date"`
	StartingCash    decimal.Decimal `json:"starting-cash"`
	FinalValue      decimal.Decimal `json:"final-value"`
	FinalCash       decimal.Decimal `json:"final-cash"`
	TotalBuyOrders  int64           `json:"total-buy-orders"`
	TotalSellOrders int64           `json:"total-sell-orders"`
	TotalOrders     int64           `json:"total-orders"`
	MarginCalls     int64           `json:"margin-calls"`

	StrategyMovement         decimal.Decimal `json:"strategy-movement"`
	CompoundAnnualGrowthRate decimal.Decimal `json:"compound-annual-growth-rate"`
	MaxDrawdown              Swing           `json:"max-drawdown"`
	// CalmarRatio is zero when there was no drawdown
	CalmarRatio   decimal.Decimal `json:"calmar-ratio"`
	AnnualReturns []AnnualReturn  `json:"annual-returns"`
	Trades        TradeSummary    `json:"trades"`

	Values       []ValueAtTime  `json:"-"`
	ClosedTrades []broker.Trade `json:"-"`
}

// ValueAtTime is an account value at a point in time
type ValueAtTime struct {
	Time  time.Time       `json:"time"`
	Value decimal.Decimal `json:"value"`
	Set   bool            `json:"-"`
}

// Swing holds a drawdown
type Swing struct {
	Highest         ValueAtTime     `json:"highest"`
	Lowest          ValueAtTime     `json:"lowest"`
	DrawdownPercent decimal.Decimal `json:"drawdown"`
	Duration        time.Duration   `json:"duration"`
}

// AnnualReturn is the percentage return over one calendar year
type AnnualReturn struct {
	Year   int             `json:"year"`
	Return decimal.Decimal `json:"return"`
}

// TradeSummary counts closed trades
type TradeSummary struct {
	Total    int             `json:"total"`
	Won      int             `json:"won"`
	Lost     int             `json:"lost"`
	Even     int             `json:"even"`
	Long     int             `json:"long"`
	Short    int             `json:"short"`
	GrossPnL decimal.Decimal `json:"gross-pnl"`
	NetPnL   decimal.Decimal `json:"net-pnl"`
	// SQN is the system quality number, zero with fewer than two trades
	SQN float64 `json:"sqn"`
}
