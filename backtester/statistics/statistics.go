package statistics

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thrasher-corp/barsim/backtester/broker"
	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/backtester/order"
	gctmath "github.com/thrasher-corp/barsim/common/math"
	"github.com/thrasher-corp/barsim/log"
)

var oneHundred = decimal.NewFromInt(100)

// New returns a Statistic for a run starting with cash
func New(strategyName string, startingCash decimal.Decimal) *Statistic {
	return &Statistic{
		StrategyName: strategyName,
		StartingCash: startingCash,
		FinalValue:   startingCash,
		FinalCash:    startingCash,
	}
}

// Reset clears all tracked data
func (s *Statistic) Reset() {
	*s = *New(s.StrategyName, s.StartingCash)
}

// OnNotification counts completed orders and records closed trades
func (s *Statistic) OnNotification(n broker.Notification) error {
	switch n.Kind {
	case broker.OrderNotification:
		switch n.Order.Status {
		case order.Completed:
			if n.Order.IsBuy() {
				s.TotalBuyOrders++
			} else {
				s.TotalSellOrders++
			}
			s.TotalOrders++
		case order.Margin:
			s.MarginCalls++
		}
	case broker.TradeNotification:
		if n.Trade.Status == broker.TradeClosed {
			s.ClosedTrades = append(s.ClosedTrades, n.Trade)
		}
	}
	return nil
}

// OnValue tracks the account value at t, times must increase
func (s *Statistic) OnValue(t time.Time, cash, value decimal.Decimal) error {
	if len(s.Values) > 0 && !t.After(s.Values[len(s.Values)-1].Time) {
		return fmt.Errorf("%w %v", ErrAlreadyProcessed, t)
	}
	if len(s.Values) == 0 {
		s.StartDate = t
	}
	s.EndDate = t
	s.FinalCash = cash
	s.FinalValue = value
	s.Values = append(s.Values, ValueAtTime{Time: t, Value: value, Set: true})
	return nil
}

// CalculateAllResults calculates drawdowns, returns and trade counts
func (s *Statistic) CalculateAllResults() error {
	if len(s.Values) == 0 {
		return fmt.Errorf("%w to calculate results", errReceivedNoData)
	}
	var err error
	if !s.StartingCash.IsZero() {
		s.StrategyMovement, err = gctmath.DecimalPercentageGainOrLoss(s.FinalValue, s.StartingCash)
		if err != nil {
			return err
		}
	}
	s.MaxDrawdown, err = CalculateBiggestValueAtTimeDrawdown(s.Values)
	if err != nil {
		return err
	}
	s.AnnualReturns = CalculateAnnualReturns(s.StartingCash, s.Values)
	years := s.EndDate.Sub(s.StartDate).Hours() / 24 / 365.25
	if years > 0 {
		cagr, cagrErr := gctmath.CalculateCompoundAnnualGrowthRate(
			s.StartingCash.InexactFloat64(),
			s.FinalValue.InexactFloat64(),
			1,
			years)
		if cagrErr != nil {
			log.Warnf(common.Logger(common.Statistics), "cannot calculate compound annual growth rate: %v", cagrErr)
		} else if !math.IsNaN(cagr) && !math.IsInf(cagr, 0) {
			s.CompoundAnnualGrowthRate = decimal.NewFromFloat(cagr)
		}
	}
	if !s.MaxDrawdown.DrawdownPercent.IsZero() {
		s.CalmarRatio, err = gctmath.DecimalCalmarRatio(s.CompoundAnnualGrowthRate, s.MaxDrawdown.DrawdownPercent)
		if err != nil {
			return err
		}
	}
	s.Trades = summariseTrades(s.ClosedTrades)
	return nil
}

func summariseTrades(trades []broker.Trade) TradeSummary {
	var resp TradeSummary
	pnls := make([]float64, 0, len(trades))
	for i := range trades {
		resp.Total++
		switch {
		case trades[i].PnLComm.IsPositive():
			resp.Won++
		case trades[i].PnLComm.IsNegative():
			resp.Lost++
		default:
			resp.Even++
		}
		if trades[i].IsLong {
			resp.Long++
		} else {
			resp.Short++
		}
		resp.GrossPnL = resp.GrossPnL.Add(trades[i].PnL)
		resp.NetPnL = resp.NetPnL.Add(trades[i].PnLComm)
		pnls = append(pnls, trades[i].PnLComm.InexactFloat64())
	}
	mean, err := gctmath.ArithmeticAverage(pnls)
	if err != nil {
		return resp
	}
	stdDev, err := gctmath.SampleStandardDeviation(pnls)
	if err != nil || stdDev == 0 {
		return resp
	}
	resp.SQN = math.Sqrt(float64(len(pnls))) * mean / stdDev
	return resp
}

// CalculateBiggestValueAtTimeDrawdown returns the largest peak to trough
// fall in values
func CalculateBiggestValueAtTimeDrawdown(values []ValueAtTime) (Swing, error) {
	if len(values) == 0 {
		return Swing{}, fmt.Errorf("%w to calculate drawdowns", errReceivedNoData)
	}
	var maxDrawdown Swing
	peak := values[0]
	for i := range values {
		if values[i].Value.GreaterThan(peak.Value) {
			peak = values[i]
			continue
		}
		if !peak.Value.IsPositive() {
			continue
		}
		drawdown := values[i].Value.Sub(peak.Value).Div(peak.Value).Mul(oneHundred)
		if drawdown.LessThan(maxDrawdown.DrawdownPercent) {
			maxDrawdown = Swing{
				Highest:         peak,
				Lowest:          values[i],
				DrawdownPercent: drawdown,
				Duration:        values[i].Time.Sub(peak.Time),
			}
		}
	}
	return maxDrawdown, nil
}

// CalculateAnnualReturns returns the return of each calendar year in
// values, the first year is measured from start
func CalculateAnnualReturns(start decimal.Decimal, values []ValueAtTime) []AnnualReturn {
	var resp []AnnualReturn
	reference := start
	for i := range values {
		last := i == len(values)-1
		if !last && values[i+1].Time.Year() == values[i].Time.Year() {
			continue
		}
		ret, err := gctmath.DecimalPercentageGainOrLoss(values[i].Value, reference)
		if err != nil {
			ret = decimal.Zero
		}
		resp = append(resp, AnnualReturn{Year: values[i].Time.Year(), Return: ret})
		reference = values[i].Value
	}
	return resp
}

// PrintTotalResults outputs the results through the statistics logger
func (s *Statistic) PrintTotalResults() {
	l := common.Logger(common.Statistics)
	log.Info(l, common.ColourGreen+"------------------Strategy-----------------------------------"+common.ColourDefault)
	log.Infof(l, "Strategy Name: %v", s.StrategyName)
	log.Infof(l, "Run: %v to %v", s.StartDate.Format(time.DateTime), s.EndDate.Format(time.DateTime))
	log.Info(l, common.ColourGrey+"------------------Funds--------------------------------------"+common.ColourDefault)
	log.Infof(l, "Starting cash: %v", s.StartingCash.StringFixed(2))
	log.Infof(l, "Final value: %v", s.FinalValue.StringFixed(2))
	log.Infof(l, "Final cash: %v", s.FinalCash.StringFixed(2))
	log.Infof(l, "Strategy movement: %v%%", s.StrategyMovement.StringFixed(2))
	log.Infof(l, "Compound annual growth rate: %v%%", s.CompoundAnnualGrowthRate.StringFixed(2))
	for i := range s.AnnualReturns {
		log.Infof(l, "Return %v: %v%%", s.AnnualReturns[i].Year, s.AnnualReturns[i].Return.StringFixed(2))
	}
	log.Info(l, common.ColourGrey+"------------------Orders-------------------------------------"+common.ColourDefault)
	log.Infof(l, "Total buy orders: %v", s.TotalBuyOrders)
	log.Infof(l, "Total sell orders: %v", s.TotalSellOrders)
	log.Infof(l, "Total orders: %v", s.TotalOrders)
	log.Infof(l, "Margin calls: %v", s.MarginCalls)
	log.Info(l, common.ColourGrey+"------------------Trades-------------------------------------"+common.ColourDefault)
	log.Infof(l, "Total: %v Won: %v Lost: %v Even: %v", s.Trades.Total, s.Trades.Won, s.Trades.Lost, s.Trades.Even)
	log.Infof(l, "Long: %v Short: %v", s.Trades.Long, s.Trades.Short)
	log.Infof(l, "Gross PnL: %v Net PnL: %v", s.Trades.GrossPnL.StringFixed(2), s.Trades.NetPnL.StringFixed(2))
	log.Infof(l, "SQN: %.2f", s.Trades.SQN)
	if s.MaxDrawdown.Highest.Set {
		log.Info(l, common.ColourGrey+"------------------Max Drawdown-------------------------------"+common.ColourDefault)
		log.Infof(l, "Highest value: %v at %v", s.MaxDrawdown.Highest.Value.StringFixed(2), s.MaxDrawdown.Highest.Time.Format(time.DateTime))
		log.Infof(l, "Lowest value: %v at %v", s.MaxDrawdown.Lowest.Value.StringFixed(2), s.MaxDrawdown.Lowest.Time.Format(time.DateTime))
		log.Infof(l, "Calculated drawdown: %v%%", s.MaxDrawdown.DrawdownPercent.StringFixed(2))
		log.Infof(l, "Drawdown length: %v", s.MaxDrawdown.Duration)
		log.Infof(l, "Calmar ratio: %v", s.CalmarRatio.StringFixed(2))
	}
}
