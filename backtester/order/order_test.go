package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/barsim/common/convert"
)

var (
	tt          = time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC)
	allStatuses = []Status{Created, Submitted, Accepted, Partial, Completed, Canceled, Expired, Margin, Rejected}
	allEvents   = []Event{EventSubmit, EventAccept, EventPartialFill, EventFill, EventCancel, EventExpire, EventMargin, EventReject}
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestTransitionIsTotal(t *testing.T) {
	t.Parallel()
	for _, s := range allStatuses {
		for _, e := range allEvents {
			next, err := Transition(s, e)
			if err != nil {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, s, next, "illegal transitions leave the status untouched")
				continue
			}
			assert.NotEmpty(t, next)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	t.Parallel()
	for _, s := range []Status{Completed, Canceled, Expired, Margin, Rejected} {
		assert.True(t, s.IsTerminal(), s)
		for _, e := range allEvents {
			_, err := Transition(s, e)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}
	}
	for _, s := range []Status{Created, Submitted, Accepted, Partial} {
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestLifecycle(t *testing.T) {
	t.Parallel()
	o := New(1, &Spec{Instrument: "spy", Side: Buy, Type: Market, Size: d(10)}, tt, d(100))
	assert.True(t, o.Transmit)
	require.NoError(t, o.Apply(EventSubmit))
	require.NoError(t, o.Apply(EventAccept))
	assert.True(t, o.IsWorking())
	require.NoError(t, o.Fill(d(4), d(100), d(1), decimal.Zero, tt))
	assert.Equal(t, Partial, o.Status)
	require.NoError(t, o.Fill(d(6), d(105), d(1), decimal.Zero, tt))
	assert.Equal(t, Completed, o.Status)
	assert.True(t, o.Executed.Price.Equal(d(103)))
	assert.True(t, o.Executed.Commission.Equal(d(2)))
	assert.True(t, o.Remaining.IsZero())
	assert.False(t, o.IsAlive())
	assert.ErrorIs(t, o.Apply(EventCancel), ErrInvalidTransition)
}

func TestSpecValidate(t *testing.T) {
	t.Parallel()
	var nilSpec *Spec
	assert.ErrorIs(t, nilSpec.Validate(), ErrSubmissionIsNil)
	for _, tc := range []struct {
		spec Spec
		err  error
	}{
		{Spec{Side: Buy, Type: Market, Size: d(1)}, ErrInstrumentIsEmpty},
		{Spec{Instrument: "x", Side: "LONG", Type: Market, Size: d(1)}, ErrSideIsInvalid},
		{Spec{Instrument: "x", Side: Buy, Type: Market}, ErrAmountIsInvalid},
		{Spec{Instrument: "x", Side: Buy, Type: "ICEBERG", Size: d(1)}, ErrTypeIsInvalid},
		{Spec{Instrument: "x", Side: Buy, Type: Limit, Size: d(1)}, ErrPriceMustBeSet},
		{Spec{Instrument: "x", Side: Buy, Type: Stop, Size: d(1)}, ErrStopPriceMustBeSet},
		{Spec{Instrument: "x", Side: Buy, Type: StopLimit, Size: d(1), Price: d(1)}, ErrStopPriceMustBeSet},
		{Spec{Instrument: "x", Side: Buy, Type: StopLimit, Size: d(1), StopPrice: d(1)}, ErrPriceMustBeSet},
		{Spec{Instrument: "x", Side: Sell, Type: StopTrail, Size: d(1)}, ErrTrailMustBeSet},
		{Spec{Instrument: "x", Side: Sell, Type: StopTrail, Size: d(1), TrailAmount: d(1), TrailPercent: d(0.1)}, ErrTrailMustBeSet},
		{Spec{Instrument: "x", Side: Sell, Type: StopTrail, Size: d(1), TrailPercent: d(1.5)}, ErrTrailPercentRange},
		{Spec{Instrument: "x", Side: Sell, Type: StopTrailLimit, Size: d(1), TrailAmount: d(1)}, ErrPriceMustBeSet},
	} {
		err := tc.spec.Validate()
		assert.ErrorIs(t, err, tc.err)
		assert.ErrorIs(t, err, ErrInvalidOrder)
	}
	valid := Spec{Instrument: "x", Side: Sell, Type: StopTrail, Size: d(1), TrailPercent: d(0.02), Transmit: convert.BoolPtr(false)}
	assert.NoError(t, valid.Validate())
	assert.False(t, valid.Transmits())
}

func TestStringConversions(t *testing.T) {
	t.Parallel()
	s, err := StringToOrderSide("buy")
	require.NoError(t, err)
	assert.Equal(t, Buy, s)
	_, err = StringToOrderSide("long")
	assert.ErrorIs(t, err, ErrSideIsInvalid)
	ty, err := StringToOrderType("stoptraillimit")
	require.NoError(t, err)
	assert.Equal(t, StopTrailLimit, ty)
	_, err = StringToOrderType("iceberg")
	assert.ErrorIs(t, err, ErrTypeIsInvalid)
}

func TestTrailingStopRatchets(t *testing.T) {
	t.Parallel()
	o := New(1, &Spec{Instrument: "x", Side: Sell, Type: StopTrail, Size: d(1), TrailAmount: d(2)}, tt, d(100))
	assert.True(t, o.StopPrice.Equal(d(98)))
	for _, high := range []float64{102, 105, 110} {
		o.AdjustTrail(d(high), d(high-1))
	}
	assert.True(t, o.StopPrice.Equal(d(108)))
	o.AdjustTrail(d(105), d(104))
	assert.True(t, o.StopPrice.Equal(d(108)), "a trailing stop never retreats")

	buy := New(2, &Spec{Instrument: "x", Side: Buy, Type: StopTrailLimit, Size: d(1), TrailPercent: d(0.1), Price: d(111)}, tt, d(100))
	assert.True(t, buy.StopPrice.Equal(d(110)))
	buy.AdjustTrail(d(95), d(90))
	assert.True(t, buy.StopPrice.Equal(d(99)))
	assert.True(t, buy.Price.Equal(d(100)), "limit keeps its offset to the stop")
	buy.AdjustTrail(d(120), d(95))
	assert.True(t, buy.StopPrice.Equal(d(99)))
}

func TestTrailingStopExplicitStartingStop(t *testing.T) {
	t.Parallel()
	buy := New(1, &Spec{Instrument: "x", Side: Buy, Type: StopTrail, Size: d(1), StopPrice: d(102), TrailAmount: d(2)}, tt, decimal.Zero)
	assert.True(t, buy.StopPrice.Equal(d(102)))
	buy.AdjustTrail(d(100.5), d(100.5))
	assert.True(t, buy.StopPrice.Equal(d(102)), "stop stays until price moves past its implied extreme")
	buy.AdjustTrail(d(100.5), d(99))
	assert.True(t, buy.StopPrice.Equal(d(101)))
	buy.AdjustTrail(d(99.5), d(99.2))
	assert.True(t, buy.StopPrice.Equal(d(101)))

	sell := New(2, &Spec{Instrument: "x", Side: Sell, Type: StopTrail, Size: d(1), StopPrice: d(90), TrailPercent: d(0.1)}, tt, decimal.Zero)
	assert.True(t, sell.StopPrice.Equal(d(90)))
	sell.AdjustTrail(d(100), d(95))
	assert.True(t, sell.StopPrice.Equal(d(90)))
	sell.AdjustTrail(d(110), d(100))
	assert.True(t, sell.StopPrice.Equal(d(99)))
}

func TestExpired(t *testing.T) {
	t.Parallel()
	o := New(1, &Spec{Instrument: "x", Side: Buy, Type: Limit, Size: d(1), Price: d(1), ValidUntil: tt}, tt, d(1))
	assert.False(t, o.Expired(tt))
	assert.True(t, o.Expired(tt.Add(time.Nanosecond)))
	o.ValidUntil = time.Time{}
	assert.False(t, o.Expired(tt.AddDate(10, 0, 0)))
}

func TestClone(t *testing.T) {
	t.Parallel()
	o := New(1, &Spec{Instrument: "x", Side: Buy, Type: Market, Size: d(1)}, tt, d(1))
	o.Children = []int64{2, 3}
	c := o.Clone()
	c.Children[0] = 9
	assert.Equal(t, int64(2), o.Children[0])
}
