package data

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/barsim/backtester/common"
)

var day1 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) // Tuesday

func bar(ts time.Time, o, h, l, c, v float64) Bar {
	return Bar{
		Time:   ts,
		Open:   decimal.NewFromFloat(o),
		High:   decimal.NewFromFloat(h),
		Low:    decimal.NewFromFloat(l),
		Close:  decimal.NewFromFloat(c),
		Volume: decimal.NewFromFloat(v),
	}
}

func drain(t *testing.T, s *Stream) []Bar {
	t.Helper()
	var out []Bar
	for {
		b, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, b)
	}
}

func TestBarValidate(t *testing.T) {
	t.Parallel()
	b := bar(day1, 10, 12, 9, 11, 100)
	assert.NoError(t, b.Validate())

	for _, bad := range []Bar{
		bar(time.Time{}, 10, 12, 9, 11, 100),
		bar(day1, 10, 8, 9, 9, 100),
		bar(day1, 13, 12, 9, 11, 100),
		bar(day1, 10, 12, 9, 8, 100),
		bar(day1, 10, 12, 9, 11, -1),
	} {
		assert.ErrorIs(t, bad.Validate(), common.ErrMalformedBar)
	}
}

func TestSliceSource(t *testing.T) {
	t.Parallel()
	s := NewSliceSource([]Bar{
		bar(day1.AddDate(0, 0, 1), 1, 1, 1, 1, 1),
		bar(day1, 2, 2, 2, 2, 2),
	})
	_, ok := s.Latest()
	assert.False(t, ok)
	b, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, day1, b.Time)
	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, b, latest)
	assert.Len(t, s.History(), 1)
	_, err = s.Next()
	require.NoError(t, err)
	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
	s.Reset()
	assert.Empty(t, s.History())
}

func TestNewStream(t *testing.T) {
	t.Parallel()
	_, err := NewStream("", NewSliceSource(nil))
	assert.ErrorIs(t, err, errEmptyName)
	_, err = NewStream("x", nil)
	assert.ErrorIs(t, err, errNilSource)
}

type listSource struct {
	bars []Bar
}

func (l *listSource) Next() (Bar, error) {
	if len(l.bars) == 0 {
		return Bar{}, io.EOF
	}
	b := l.bars[0]
	l.bars = l.bars[1:]
	return b, nil
}

func TestStreamRejectsTiesAndRegressions(t *testing.T) {
	t.Parallel()
	for name, bars := range map[string][]Bar{
		"tie":        {bar(day1, 1, 1, 1, 1, 1), bar(day1, 1, 1, 1, 1, 1)},
		"regression": {bar(day1, 1, 1, 1, 1, 1), bar(day1.Add(-time.Hour), 1, 1, 1, 1, 1)},
	} {
		s, err := NewStream(name, &listSource{bars: bars})
		require.NoError(t, err)
		_, err = s.Next()
		require.NoError(t, err)
		_, err = s.Next()
		assert.ErrorIs(t, err, common.ErrNonMonotonic, name)
		var de *common.DataError
		require.True(t, errors.As(err, &de), name)
		assert.Equal(t, name, de.Stream)
		// stream stays failed
		_, err2 := s.Next()
		assert.Equal(t, err, err2)
	}
}

func TestStreamRejectsMalformed(t *testing.T) {
	t.Parallel()
	s, err := NewStream("bad", &listSource{bars: []Bar{bar(day1, 10, 8, 9, 9, 1)}})
	require.NoError(t, err)
	_, err = s.Next()
	assert.ErrorIs(t, err, common.ErrMalformedBar)
}

func TestWeekDaysFiller(t *testing.T) {
	t.Parallel()
	friday := time.Date(2024, 1, 5, 16, 0, 0, 0, time.UTC)
	wednesday := time.Date(2024, 1, 10, 16, 0, 0, 0, time.UTC)
	s, err := NewStream("wd", &listSource{bars: []Bar{
		bar(friday, 10, 11, 9, 10.5, 100),
		bar(wednesday, 11, 12, 10, 11, 100),
	}}, &WeekDaysFiller{FillPrice: true})
	require.NoError(t, err)
	out := drain(t, s)
	require.Len(t, out, 4)
	assert.Equal(t, time.Date(2024, 1, 8, 16, 0, 0, 0, time.UTC), out[1].Time)
	assert.Equal(t, time.Date(2024, 1, 9, 16, 0, 0, 0, time.UTC), out[2].Time)
	assert.True(t, out[1].Close.Equal(decimal.NewFromFloat(10.5)))
	assert.True(t, out[1].Volume.IsZero())
}

func TestSessionFilter(t *testing.T) {
	t.Parallel()
	_, err := NewSessionFilter(Session{Start: 10 * time.Hour, End: 9 * time.Hour})
	assert.ErrorIs(t, err, errInvalidRange)
	f, err := NewSessionFilter(Session{Start: 9*time.Hour + 30*time.Minute, End: 16 * time.Hour})
	require.NoError(t, err)
	s, err := NewStream("sf", &listSource{bars: []Bar{
		bar(day1.Add(9*time.Hour), 1, 1, 1, 1, 1),
		bar(day1.Add(10*time.Hour), 1, 1, 1, 1, 1),
		bar(day1.Add(16*time.Hour), 1, 1, 1, 1, 1),
		bar(day1.Add(17*time.Hour), 1, 1, 1, 1, 1),
	}}, f)
	require.NoError(t, err)
	out := drain(t, s)
	require.Len(t, out, 2)
	assert.Equal(t, day1.Add(10*time.Hour), out[0].Time)
}

func TestSessionFiller(t *testing.T) {
	t.Parallel()
	_, err := NewSessionFiller(Session{Start: 0, End: time.Hour}, 0)
	assert.ErrorIs(t, err, errInvalidStep)
	f, err := NewSessionFiller(Session{Start: 9 * time.Hour, End: 17 * time.Hour}, time.Minute)
	require.NoError(t, err)
	s, err := NewStream("fill", &listSource{bars: []Bar{
		bar(day1.Add(9*time.Hour), 10, 10, 10, 10, 1),
		bar(day1.Add(9*time.Hour+4*time.Minute), 11, 11, 11, 11, 1),
		bar(day1.AddDate(0, 0, 1).Add(9*time.Hour), 12, 12, 12, 12, 1),
	}}, f)
	require.NoError(t, err)
	out := drain(t, s)
	require.Len(t, out, 6)
	for i := 1; i < 4; i++ {
		assert.True(t, out[i].Close.Equal(decimal.NewFromInt(10)))
		assert.True(t, out[i].Volume.IsZero())
	}
}

func TestDateFilter(t *testing.T) {
	t.Parallel()
	f := &DateFilter{Start: day1.AddDate(0, 0, 1), End: day1.AddDate(0, 0, 2)}
	assert.Nil(t, f.Filter(bar(day1, 1, 1, 1, 1, 1)))
	assert.Len(t, f.Filter(bar(day1.AddDate(0, 0, 1), 1, 1, 1, 1, 1)), 1)
	assert.Len(t, f.Filter(bar(day1.AddDate(0, 0, 2), 1, 1, 1, 1, 1)), 1)
	assert.Nil(t, f.Filter(bar(day1.AddDate(0, 0, 3), 1, 1, 1, 1, 1)))
	open := &DateFilter{}
	assert.Len(t, open.Filter(bar(day1, 1, 1, 1, 1, 1)), 1)
	assert.Nil(t, open.Flush())
}
