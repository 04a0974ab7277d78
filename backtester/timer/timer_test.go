package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/barsim/backtester/data"
)

var (
	regular = data.Session{Start: 9*time.Hour + 30*time.Minute, End: 16 * time.Hour}
	monday  = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
)

func fireTimes(s *Scheduler, phase Phase, bars ...time.Time) []time.Time {
	var out []time.Time
	for _, b := range bars {
		for _, f := range s.Check(b, phase) {
			out = append(out, f.Scheduled)
		}
	}
	return out
}

func TestAddValidation(t *testing.T) {
	t.Parallel()
	s := NewScheduler(regular)
	for _, tc := range []struct {
		timer Timer
		err   error
	}{
		{Timer{When: 25 * time.Hour}, errInvalidWhen},
		{Timer{Repeat: -time.Minute}, errInvalidRepeat},
		{Timer{Weekdays: []time.Weekday{9}}, errInvalidWeekday},
		{Timer{Monthdays: []int{0}}, errInvalidMonthday},
		{Timer{Anchor: 7}, errInvalidAnchor},
	} {
		_, err := s.Add(tc.timer)
		assert.ErrorIs(t, err, tc.err)
	}
	id, err := s.Add(Timer{Name: "ok"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, 1, s.Len())
}

func TestDailyAtTime(t *testing.T) {
	t.Parallel()
	s := NewScheduler(regular)
	_, err := s.Add(Timer{When: 10 * time.Hour})
	require.NoError(t, err)
	got := fireTimes(s, Standard,
		monday.Add(9*time.Hour),
		monday.Add(10*time.Hour),
		monday.Add(11*time.Hour),
		monday.AddDate(0, 0, 1).Add(9*time.Hour),
		monday.AddDate(0, 0, 1).Add(10*time.Hour+30*time.Minute),
	)
	assert.Equal(t, []time.Time{
		monday.Add(10 * time.Hour),
		monday.AddDate(0, 0, 1).Add(10 * time.Hour),
	}, got)
}

func TestSessionAnchorsAndOffset(t *testing.T) {
	t.Parallel()
	s := NewScheduler(regular)
	_, err := s.Add(Timer{Anchor: SessionEnd, Offset: -15 * time.Minute})
	require.NoError(t, err)
	got := fireTimes(s, Standard, monday.Add(15*time.Hour), monday.Add(15*time.Hour+45*time.Minute))
	assert.Equal(t, []time.Time{monday.Add(15*time.Hour + 45*time.Minute)}, got)
}

func TestRepeat(t *testing.T) {
	t.Parallel()
	s := NewScheduler(regular)
	_, err := s.Add(Timer{Anchor: SessionStart, Repeat: time.Hour})
	require.NoError(t, err)
	var bars []time.Time
	for ts := monday.Add(regular.Start); !ts.After(monday.Add(regular.End)); ts = ts.Add(30 * time.Minute) {
		bars = append(bars, ts)
	}
	got := fireTimes(s, Standard, bars...)
	require.Len(t, got, 7)
	assert.Equal(t, monday.Add(regular.Start), got[0])
	assert.Equal(t, monday.Add(15*time.Hour+30*time.Minute), got[6])
}

func TestWeekdaysCarry(t *testing.T) {
	t.Parallel()
	// monday is a holiday, only tuesday and wednesday trade
	bars := []time.Time{
		monday.AddDate(0, 0, 1).Add(10 * time.Hour),
		monday.AddDate(0, 0, 2).Add(10 * time.Hour),
	}
	for _, carry := range []bool{true, false} {
		s := NewScheduler(regular)
		_, err := s.Add(Timer{Anchor: SessionStart, Weekdays: []time.Weekday{time.Monday}, WeekCarry: carry})
		require.NoError(t, err)
		got := fireTimes(s, Standard, bars...)
		if carry {
			assert.Equal(t, []time.Time{monday.AddDate(0, 0, 1).Add(regular.Start)}, got)
		} else {
			assert.Empty(t, got)
		}
	}
}

func TestMonthdaysCarry(t *testing.T) {
	t.Parallel()
	may1 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	may31 := time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)
	// june 1st 2024 is a saturday
	june3 := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	for _, carry := range []bool{true, false} {
		s := NewScheduler(data.Session{})
		_, err := s.Add(Timer{When: 11 * time.Hour, Monthdays: []int{1}, MonthCarry: carry})
		require.NoError(t, err)
		got := fireTimes(s, Standard, may1, may31, june3)
		want := []time.Time{time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)}
		if carry {
			want = append(want, time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC))
		}
		assert.Equal(t, want, got)
	}
}

func TestCheatPhase(t *testing.T) {
	t.Parallel()
	s := NewScheduler(regular)
	cheatID, err := s.Add(Timer{Anchor: SessionStart, Cheat: true})
	require.NoError(t, err)
	plainID, err := s.Add(Timer{Anchor: SessionStart})
	require.NoError(t, err)
	at := monday.Add(regular.Start)
	pre := s.Check(at, PreOpen)
	require.Len(t, pre, 1)
	assert.Equal(t, cheatID, pre[0].ID)
	assert.Equal(t, at, pre[0].At)
	std := s.Check(at, Standard)
	require.Len(t, std, 1)
	assert.Equal(t, plainID, std[0].ID)
	assert.Empty(t, s.Check(at, PreOpen))
}
