package broker

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/barsim/backtester/commission"
	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/backtester/data"
	"github.com/thrasher-corp/barsim/backtester/order"
	"github.com/thrasher-corp/barsim/common/convert"
)

const spy = "SPY"

var start = time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func bar(day int, o, h, l, c float64) data.Bar {
	return data.Bar{
		Time:   start.AddDate(0, 0, day),
		Open:   d(o),
		High:   d(h),
		Low:    d(l),
		Close:  d(c),
		Volume: d(1000),
	}
}

func newBroker(t *testing.T, cfg Config) *Broker {
	t.Helper()
	if cfg.Cash.IsZero() {
		cfg.Cash = d(10000)
	}
	b, err := New(cfg)
	require.NoError(t, err)
	return b
}

func status(t *testing.T, b *Broker, id int64) order.Status {
	t.Helper()
	o, err := b.Order(id)
	require.NoError(t, err)
	return o.Status
}

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := New(Config{Cash: d(-1)})
	assert.ErrorIs(t, err, errNegativeCash)
	_, err = New(Config{Cash: d(1), VolumeFillRatio: d(1.5)})
	assert.ErrorIs(t, err, errInvalidFillRatio)
	_, err = New(Config{Cash: d(1), BracketPrecedence: 9})
	assert.ErrorIs(t, err, errInvalidPrecedence)
	b, err := New(Config{Cash: d(1)})
	require.NoError(t, err)
	assert.NotNil(t, b.scheme(spy))
	assert.ErrorIs(t, b.SetCommission(spy, nil), common.ErrNilArguments)
}

func TestSubmitValidation(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{})
	_, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.Market})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ErrorIs(t, err, order.ErrInvalidOrder)

	_, err = b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.Market, Size: d(1), ParentID: 42})
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = b.Submit(&order.Spec{Instrument: spy, Side: order.Sell, Type: order.StopTrail, Size: d(1), TrailAmount: d(2)})
	assert.ErrorIs(t, err, errNoReferencePrice)
}

// A bracket stays Created until its group transmits and the entry only
// goes live on the next bar
func TestBracketLifecycle(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{})
	ids, err := b.Bracket(&BracketSpec{
		Instrument: spy,
		Side:       order.Buy,
		Size:       d(10),
		EntryPrice: d(95),
		StopPrice:  d(90),
		LimitPrice: d(105),
	})
	require.NoError(t, err)
	for _, id := range ids {
		assert.Equal(t, order.Created, status(t, b, id))
	}
	entry, err := b.Order(ids[0])
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{ids[1], ids[2]}, entry.Children)

	require.NoError(t, b.Next(spy, bar(0, 97, 98, 96, 97)))
	assert.Equal(t, order.Accepted, status(t, b, ids[0]))
	assert.Equal(t, order.Created, status(t, b, ids[1]))
	assert.Equal(t, order.Created, status(t, b, ids[2]))

	require.NoError(t, b.Next(spy, bar(1, 96, 96, 94, 95)))
	assert.Equal(t, order.Completed, status(t, b, ids[0]))
	assert.Equal(t, order.Accepted, status(t, b, ids[1]))
	assert.Equal(t, order.Accepted, status(t, b, ids[2]))
	pos := b.Position(spy)
	assert.True(t, pos.Size.Equal(d(10)))
	assert.True(t, pos.Price.Equal(d(95)))
	assert.True(t, b.Cash().Equal(d(9050)))
	b.Notifications()

	require.NoError(t, b.Next(spy, bar(2, 100, 106, 94, 100)))
	assert.Equal(t, order.Completed, status(t, b, ids[2]))
	assert.Equal(t, order.Canceled, status(t, b, ids[1]))
	assert.True(t, b.Position(spy).Size.IsZero())
	assert.True(t, b.Cash().Equal(d(10100)))

	var sawCancel, sawClose bool
	for _, n := range b.Notifications() {
		switch n.Kind {
		case OrderNotification:
			if n.Order.ID == ids[1] && n.Order.Status == order.Canceled {
				sawCancel = true
			}
		case TradeNotification:
			if n.Trade.Status == TradeClosed {
				sawClose = true
				assert.True(t, n.Trade.PnL.Equal(d(100)))
				assert.Equal(t, 1, n.Trade.BarLen)
			}
		}
	}
	assert.True(t, sawCancel, "sibling cancel must share the fill's batch")
	assert.True(t, sawClose)
}

func TestBracketPrecedence(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		precedence Precedence
		filled     int
		cash       float64
	}{
		{LimitFirst, 2, 10100},
		{StopFirst, 1, 9950},
	} {
		b := newBroker(t, Config{BracketPrecedence: tc.precedence})
		ids, err := b.Bracket(&BracketSpec{
			Instrument: spy,
			Side:       order.Buy,
			Size:       d(10),
			EntryPrice: d(95),
			StopPrice:  d(90),
			LimitPrice: d(105),
		})
		require.NoError(t, err)
		require.NoError(t, b.Next(spy, bar(0, 96, 96, 94, 95)))
		require.NoError(t, b.Next(spy, bar(1, 100, 106, 89, 100)))
		for i := 1; i <= 2; i++ {
			want := order.Canceled
			if i == tc.filled {
				want = order.Completed
			}
			assert.Equal(t, want, status(t, b, ids[i]))
		}
		assert.True(t, b.Cash().Equal(d(tc.cash)), b.Cash())
	}
}

func TestCancelCascades(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{})
	ids, err := b.Bracket(&BracketSpec{
		Instrument: spy,
		Side:       order.Buy,
		Size:       d(10),
		EntryPrice: d(95),
		StopPrice:  d(90),
		LimitPrice: d(105),
	})
	require.NoError(t, err)
	require.NoError(t, b.Next(spy, bar(0, 97, 98, 96, 97)))
	require.NoError(t, b.Cancel(ids[0]))
	for _, id := range ids {
		assert.Equal(t, order.Canceled, status(t, b, id))
	}
	assert.True(t, b.Account().Committed.IsZero())
	assert.ErrorIs(t, b.Cancel(ids[0]), ErrOrderNotAlive)
	assert.ErrorIs(t, b.Cancel(99), ErrOrderNotFound)
}

func TestOCO(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{})
	first, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.Limit, Size: d(1), Price: d(95)})
	require.NoError(t, err)
	second, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.Limit, Size: d(1), Price: d(90), OCO: first})
	require.NoError(t, err)
	third, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.Limit, Size: d(1), Price: d(85), OCO: second})
	require.NoError(t, err)
	require.NoError(t, b.Next(spy, bar(0, 96, 96, 94, 95)))
	assert.Equal(t, order.Completed, status(t, b, first))
	assert.Equal(t, order.Canceled, status(t, b, second))
	assert.Equal(t, order.Canceled, status(t, b, third))
}

func TestHeldOrderNeverTrades(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{})
	id, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.Market, Size: d(1), Transmit: convert.BoolPtr(false)})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Next(spy, bar(i, 100, 101, 99, 100)))
	}
	assert.Equal(t, order.Created, status(t, b, id))
	require.NoError(t, b.Cancel(id))
	assert.Empty(t, b.held)
}

func TestMarginAtAcceptance(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{Cash: d(1000)})
	first, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.Limit, Size: d(6), Price: d(100)})
	require.NoError(t, err)
	second, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.Limit, Size: d(6), Price: d(100)})
	require.NoError(t, err)
	require.NoError(t, b.Next(spy, bar(0, 110, 111, 109, 110)))
	assert.Equal(t, order.Accepted, status(t, b, first))
	assert.Equal(t, order.Margin, status(t, b, second))
	assert.True(t, b.Account().Committed.Equal(d(600)))
	assert.True(t, b.Cash().Equal(d(1000)))
}

func TestMarginAtExecution(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{Cash: d(1000)})
	id, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.Stop, Size: d(10), StopPrice: d(100)})
	require.NoError(t, err)
	require.NoError(t, b.Next(spy, bar(0, 95, 96, 94, 95)))
	assert.Equal(t, order.Accepted, status(t, b, id))
	require.NoError(t, b.Next(spy, bar(1, 120, 121, 119, 120)))
	assert.Equal(t, order.Margin, status(t, b, id))
	assert.True(t, b.Cash().Equal(d(1000)))
	assert.False(t, b.Cash().IsNegative())
	assert.True(t, b.Position(spy).Size.IsZero())
}

func TestPartialFills(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{VolumeFillRatio: d(0.005)})
	id, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.Market, Size: d(8)})
	require.NoError(t, err)
	require.NoError(t, b.Next(spy, bar(0, 100, 101, 99, 100)))
	o, err := b.Order(id)
	require.NoError(t, err)
	assert.Equal(t, order.Partial, o.Status)
	assert.True(t, o.Executed.Size.Equal(d(5)))
	assert.True(t, b.Account().Committed.Equal(d(300)))
	require.NoError(t, b.Next(spy, bar(1, 102, 103, 101, 102)))
	o, err = b.Order(id)
	require.NoError(t, err)
	assert.Equal(t, order.Completed, o.Status)
	assert.True(t, o.Executed.Price.Equal(d(100.75)))
	assert.True(t, b.Account().Committed.IsZero())
	assert.Len(t, b.Trades(spy), 1)
}

func TestTrailingStop(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{})
	_, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.Market, Size: d(10)})
	require.NoError(t, err)
	require.NoError(t, b.Next(spy, bar(0, 100, 100, 100, 100)))
	id, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Sell, Type: order.StopTrail, Size: d(10), TrailAmount: d(2)})
	require.NoError(t, err)
	o, err := b.Order(id)
	require.NoError(t, err)
	assert.True(t, o.StopPrice.Equal(d(98)))

	for i, tc := range []struct {
		bar  data.Bar
		stop float64
	}{
		{bar(1, 101, 105, 100, 104), 103},
		{bar(2, 105, 110, 104, 109), 108},
		{bar(3, 109, 109, 108.5, 108.5), 108},
	} {
		require.NoError(t, b.Next(spy, tc.bar))
		o, err = b.Order(id)
		require.NoError(t, err)
		assert.True(t, o.StopPrice.Equal(d(tc.stop)), "bar %d stop %v", i, o.StopPrice)
		assert.True(t, o.IsWorking())
	}
	require.NoError(t, b.Next(spy, bar(4, 107, 107, 104, 105)))
	o, err = b.Order(id)
	require.NoError(t, err)
	assert.Equal(t, order.Completed, o.Status)
	assert.True(t, o.Executed.Price.Equal(d(107)))
}

func TestTrailingStopSubmittedBeforeAnyBar(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{})
	id, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.StopTrail, Size: d(10), StopPrice: d(102), TrailAmount: d(2)})
	require.NoError(t, err)

	for i, tc := range []struct {
		bar  data.Bar
		stop float64
	}{
		{bar(0, 100, 100.5, 99, 100), 101},
		{bar(1, 99.2, 99.5, 99, 99.3), 101},
	} {
		require.NoError(t, b.Next(spy, tc.bar))
		o, err := b.Order(id)
		require.NoError(t, err)
		assert.Equal(t, order.Accepted, o.Status, "bar %d", i)
		assert.True(t, o.StopPrice.Equal(d(tc.stop)), "bar %d stop %v", i, o.StopPrice)
	}
	require.NoError(t, b.Next(spy, bar(2, 100, 101.5, 100, 101)))
	o, err := b.Order(id)
	require.NoError(t, err)
	assert.Equal(t, order.Completed, o.Status)
	assert.True(t, o.Executed.Price.Equal(d(101)))
}

func TestStopLimit(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{})
	id, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.StopLimit, Size: d(1), StopPrice: d(105), Price: d(104)})
	require.NoError(t, err)
	// triggered on a falling bar, the close is under the limit
	require.NoError(t, b.Next(spy, bar(0, 104.5, 106, 101, 103)))
	o, err := b.Order(id)
	require.NoError(t, err)
	assert.True(t, o.Triggered)
	assert.Equal(t, order.Completed, o.Status)
	assert.True(t, o.Executed.Price.Equal(d(104)))

	id, err = b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.StopLimit, Size: d(1), StopPrice: d(105), Price: d(104)})
	require.NoError(t, err)
	// triggered on a rising bar, the limit is never seen again
	require.NoError(t, b.Next(spy, bar(1, 102, 106, 101, 105.5)))
	o, err = b.Order(id)
	require.NoError(t, err)
	assert.True(t, o.Triggered)
	assert.Equal(t, order.Accepted, o.Status)
	require.NoError(t, b.Next(spy, bar(2, 106, 107, 103, 105)))
	o, err = b.Order(id)
	require.NoError(t, err)
	assert.Equal(t, order.Completed, o.Status)
	assert.True(t, o.Executed.Price.Equal(d(104)))
}

func TestExpiry(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{})
	id, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.Limit, Size: d(1), Price: d(50), ValidUntil: start})
	require.NoError(t, err)
	require.NoError(t, b.Next(spy, bar(0, 100, 101, 99, 100)))
	assert.Equal(t, order.Accepted, status(t, b, id))
	require.NoError(t, b.Next(spy, bar(1, 100, 101, 49, 100)))
	o, err := b.Order(id)
	require.NoError(t, err)
	assert.Equal(t, order.Expired, o.Status)
	assert.True(t, o.Executed.Size.IsZero())
}

func TestReversalAndTrades(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{})
	_, err := b.Submit(&order.Spec{Instrument: spy, Side: order.Buy, Type: order.Market, Size: d(10)})
	require.NoError(t, err)
	require.NoError(t, b.Next(spy, bar(0, 100, 100, 100, 100)))
	_, err = b.Submit(&order.Spec{Instrument: spy, Side: order.Sell, Type: order.Market, Size: d(15)})
	require.NoError(t, err)
	require.NoError(t, b.Next(spy, bar(1, 110, 110, 110, 110)))
	pos := b.Position(spy)
	assert.True(t, pos.Size.Equal(d(-5)))
	assert.True(t, pos.Price.Equal(d(110)))
	trades := b.Trades(spy)
	require.Len(t, trades, 2)
	assert.Equal(t, TradeClosed, trades[0].Status)
	assert.True(t, trades[0].PnL.Equal(d(100)))
	assert.Equal(t, TradeOpen, trades[1].Status)
	assert.False(t, trades[1].IsLong)
	assert.True(t, b.Cash().Equal(d(10650)))
	assert.True(t, b.Value().Equal(d(10100)))
}

func TestCloseCancelsBracketLegs(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{})
	ids, err := b.Bracket(&BracketSpec{
		Instrument: spy,
		Side:       order.Buy,
		Size:       d(10),
		EntryType:  order.Market,
		StopPrice:  d(90),
		LimitPrice: d(110),
	})
	require.NoError(t, err)
	require.NoError(t, b.Next(spy, bar(0, 100, 101, 99, 100)))
	assert.Equal(t, order.Completed, status(t, b, ids[0]))
	closeID, err := b.Close(spy, 0)
	require.NoError(t, err)
	assert.Equal(t, order.Canceled, status(t, b, ids[1]))
	assert.Equal(t, order.Canceled, status(t, b, ids[2]))
	require.NoError(t, b.Next(spy, bar(1, 101, 102, 100, 101)))
	assert.Equal(t, order.Completed, status(t, b, closeID))
	assert.True(t, b.Position(spy).Size.IsZero())
	_, err = b.Close(spy, 0)
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestFutures(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{})
	fut, err := commission.NewFutures(d(2), d(500), d(10))
	require.NoError(t, err)
	require.NoError(t, b.SetCommission("ES", fut))
	_, err = b.Submit(&order.Spec{Instrument: "ES", Side: order.Buy, Type: order.Market, Size: d(2)})
	require.NoError(t, err)
	require.NoError(t, b.Next("ES", bar(0, 100, 106, 99, 105)))
	assert.True(t, b.Cash().Equal(d(8996)))
	assert.True(t, b.Value().Equal(d(10096)))
	_, err = b.Close("ES", 0)
	require.NoError(t, err)
	require.NoError(t, b.Next("ES", bar(1, 106, 107, 105, 106)))
	assert.True(t, b.Cash().Equal(d(10112)))
	assert.True(t, b.Value().Equal(b.Cash()))
}

func TestCreditInterest(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{InterestToPnL: true})
	scheme, err := commission.NewPercentage(decimal.Zero, false)
	require.NoError(t, err)
	scheme.Interest = d(0.0365)
	require.NoError(t, b.SetCommission(spy, scheme))
	_, err = b.Submit(&order.Spec{Instrument: spy, Side: order.Sell, Type: order.Market, Size: d(10)})
	require.NoError(t, err)
	require.NoError(t, b.Next(spy, bar(0, 100, 100, 100, 100)))
	assert.True(t, b.Cash().Equal(d(11000)))
	require.NoError(t, b.Next(spy, bar(1, 100, 100, 100, 100)))
	assert.True(t, b.Cash().Equal(d(10999.9)), b.Cash())
	trades := b.Trades(spy)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Commission.Equal(d(0.1)))
}

func TestInvariantViolation(t *testing.T) {
	t.Parallel()
	b := newBroker(t, Config{})
	ids, err := b.Bracket(&BracketSpec{
		Instrument: spy,
		Side:       order.Buy,
		Size:       d(1),
		EntryPrice: d(50),
		StopPrice:  d(40),
		LimitPrice: d(200),
	})
	require.NoError(t, err)
	b.orders[ids[1]-1].Status = order.Accepted
	err = b.Next(spy, bar(0, 100, 101, 99, 100))
	var iErr *InvariantError
	require.ErrorAs(t, err, &iErr)
	assert.Equal(t, ids[1], iErr.OrderID)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}
