package aggregator

import (
	"fmt"
	"time"

	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/backtester/data"
	"github.com/thrasher-corp/barsim/backtester/timeframe"
	"github.com/thrasher-corp/barsim/log"
)

// DefaultOptions returns edge aligned buckets stamped with their right edge
func DefaultOptions() Options {
	return Options{
		Bar2Edge:   true,
		AdjBarTime: true,
		RightEdge:  true,
	}
}

func newState(name string, i timeframe.Interval, o Options) (state, error) {
	if err := i.Validate(); err != nil {
		return state{}, err
	}
	return state{name: name, interval: i, opts: o}, nil
}

// bucket returns the bucket opened by a bar at t
func (s *state) bucket(t time.Time) (start, end time.Time) {
	if s.opts.Bar2Edge {
		return s.interval.Bucket(t, s.opts.RightEdge)
	}
	return t, s.interval.Next(t)
}

func (s *state) contains(t time.Time) bool {
	if s.opts.Bar2Edge {
		return s.interval.Contains(s.start, s.end, t, s.opts.RightEdge)
	}
	if t.Before(s.start) {
		return false
	}
	return t.Before(s.end) || (s.opts.RightEdge && s.interval.IsIntraday() && t.Equal(s.end))
}

// ingest folds b in. It returns the finished bucket when b opened a new one
func (s *state) ingest(b *data.Bar) (finished *data.Bar, opened bool, err error) {
	if s.closed {
		return nil, false, common.NewDataError(s.name, b.Time, ErrClosed)
	}
	if s.bar != nil && !b.Time.After(s.lastInput) {
		if !s.opts.LateThrough {
			return nil, false, common.NewDataError(s.name, b.Time,
				fmt.Errorf("%w: %v does not follow %v", common.ErrNonMonotonic, b.Time, s.lastInput))
		}
		log.Debugf(common.Logger(common.Aggregator), "%s late bar %v folded into bucket ending %v", s.name, b.Time, s.end)
		s.fold(b)
		return nil, false, nil
	}
	if s.bar != nil && s.contains(b.Time) {
		s.fold(b)
		s.lastInput = b.Time
		return nil, false, nil
	}
	if s.bar != nil {
		out := s.output()
		finished = &out
	}
	s.start, s.end = s.bucket(b.Time)
	s.bar = &data.Bar{
		Open:  b.Open,
		High:  b.Open,
		Low:   b.Open,
		Close: b.Open,
	}
	s.lastFolded = time.Time{}
	s.fold(b)
	s.lastInput = b.Time
	return finished, true, nil
}

func (s *state) fold(b *data.Bar) {
	if b.High.GreaterThan(s.bar.High) {
		s.bar.High = b.High
	}
	if b.Low.LessThan(s.bar.Low) {
		s.bar.Low = b.Low
	}
	s.bar.Close = b.Close
	s.bar.Volume = s.bar.Volume.Add(b.Volume)
	s.bar.OpenInterest = b.OpenInterest
	if b.Time.After(s.lastFolded) {
		s.lastFolded = b.Time
	}
}

// output returns a copy of the current bar with its timestamp set
func (s *state) output() data.Bar {
	out := *s.bar
	switch {
	case !s.opts.AdjBarTime:
		out.Time = s.lastFolded
	case s.opts.RightEdge && s.interval.IsIntraday():
		out.Time = s.end
	case s.opts.RightEdge:
		// last instant of the calendar period, so the label stays inside it
		out.Time = s.end.Add(-time.Nanosecond)
	default:
		out.Time = s.start
	}
	return out
}

// Bucket returns the bounds of the bucket in progress
func (s *state) Bucket() (start, end time.Time, ok bool) {
	return s.start, s.end, s.bar != nil
}

// Interval returns the output interval
func (s *state) Interval() timeframe.Interval {
	return s.interval
}

// NewResampler returns a resampler for the stream name and target interval
func NewResampler(name string, i timeframe.Interval, o Options) (*Resampler, error) {
	s, err := newState(name, i, o)
	if err != nil {
		return nil, err
	}
	return &Resampler{state: s}, nil
}

// Ingest folds b into the current bucket. A completed bar is returned when
// b falls outside the bucket in progress
func (r *Resampler) Ingest(b data.Bar) (data.Bar, bool, error) {
	finished, _, err := r.ingest(&b)
	if err != nil || finished == nil {
		return data.Bar{}, false, err
	}
	log.Debugf(common.Logger(common.Aggregator), "%s resampled bar %v complete", r.name, finished.Time)
	return *finished, true, nil
}

// Close finalises the bucket in progress. Further ingestion fails
func (r *Resampler) Close() (data.Bar, bool) {
	if r.closed {
		return data.Bar{}, false
	}
	r.closed = true
	if r.bar == nil {
		return data.Bar{}, false
	}
	return r.output(), true
}

// NewReplayer returns a replayer for the stream name and target interval
func NewReplayer(name string, i timeframe.Interval, o Options) (*Replayer, error) {
	s, err := newState(name, i, o)
	if err != nil {
		return nil, err
	}
	return &Replayer{state: s}, nil
}

// Ingest folds b into the current bucket and returns its latest state
func (r *Replayer) Ingest(b data.Bar) (Update, error) {
	finished, opened, err := r.ingest(&b)
	if err != nil {
		return Update{}, err
	}
	return Update{Bar: r.output(), New: opened, Closed: finished}, nil
}

// Close returns the final state of the bucket in progress. Further
// ingestion fails
func (r *Replayer) Close() (Update, bool) {
	if r.closed {
		return Update{}, false
	}
	r.closed = true
	if r.bar == nil {
		return Update{}, false
	}
	return Update{Bar: r.output()}, true
}
