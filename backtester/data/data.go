package data

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/thrasher-corp/barsim/backtester/common"
)

// Validate checks that the bar's prices are internally consistent
func (b *Bar) Validate() error {
	switch {
	case b.Time.IsZero():
		return fmt.Errorf("%w: timestamp unset", common.ErrMalformedBar)
	case b.High.LessThan(b.Low):
		return fmt.Errorf("%w: high %v below low %v", common.ErrMalformedBar, b.High, b.Low)
	case b.Open.GreaterThan(b.High), b.Open.LessThan(b.Low):
		return fmt.Errorf("%w: open %v outside range %v-%v", common.ErrMalformedBar, b.Open, b.Low, b.High)
	case b.Close.GreaterThan(b.High), b.Close.LessThan(b.Low):
		return fmt.Errorf("%w: close %v outside range %v-%v", common.ErrMalformedBar, b.Close, b.Low, b.High)
	case b.Volume.IsNegative():
		return fmt.Errorf("%w: negative volume %v", common.ErrMalformedBar, b.Volume)
	}
	return nil
}

// NewSliceSource returns a source serving the bars sorted by time
func NewSliceSource(bars []Bar) *SliceSource {
	s := &SliceSource{bars: append([]Bar(nil), bars...)}
	s.SortStream()
	return s
}

// Next will return the next bar in the list and also shift the offset one
func (s *SliceSource) Next() (Bar, error) {
	if len(s.bars) <= s.offset {
		return Bar{}, io.EOF
	}
	ret := s.bars[s.offset]
	s.offset++
	s.latest = &ret
	return ret, nil
}

// History will return all previously served bars
func (s *SliceSource) History() []Bar {
	return s.bars[:s.offset]
}

// Latest will return the most recently served bar
func (s *SliceSource) Latest() (Bar, bool) {
	if s.latest == nil {
		return Bar{}, false
	}
	return *s.latest, true
}

// Reset rewinds the source
func (s *SliceSource) Reset() {
	s.offset = 0
	s.latest = nil
}

// SortStream sorts the bars by timestamp. Equal timestamps keep their
// order so that the stream can reject them
func (s *SliceSource) SortStream() {
	sort.SliceStable(s.bars, func(i, j int) bool {
		return s.bars[i].Time.Before(s.bars[j].Time)
	})
}

// NewStream returns a validated stream over source
func NewStream(name string, source Source, filters ...Filter) (*Stream, error) {
	if name == "" {
		return nil, errEmptyName
	}
	if source == nil {
		return nil, errNilSource
	}
	return &Stream{name: name, source: source, filters: filters}, nil
}

// Name returns the stream name
func (s *Stream) Name() string {
	return s.name
}

// Next returns the next filtered bar. io.EOF marks the end of the stream,
// any other error is a *common.DataError and the stream stays failed
func (s *Stream) Next() (Bar, error) {
	if s.err != nil {
		return Bar{}, s.err
	}
	for len(s.pending) == 0 {
		if s.drained {
			return Bar{}, io.EOF
		}
		b, err := s.source.Next()
		if errors.Is(err, io.EOF) {
			s.drained = true
			s.pending = s.flush()
			continue
		}
		if err != nil {
			return Bar{}, s.fail(b, err)
		}
		if err = b.Validate(); err != nil {
			return Bar{}, s.fail(b, err)
		}
		s.pending = s.apply([]Bar{b})
	}
	b := s.pending[0]
	s.pending = s.pending[1:]
	if !s.last.IsZero() && !b.Time.After(s.last) {
		return Bar{}, s.fail(b, fmt.Errorf("%w: %v follows %v", common.ErrNonMonotonic, b.Time, s.last))
	}
	s.last = b.Time
	return b, nil
}

func (s *Stream) fail(b Bar, err error) error {
	s.err = common.NewDataError(s.name, b.Time, err)
	return s.err
}

// apply runs bars through every filter
func (s *Stream) apply(bars []Bar) []Bar {
	for i := range s.filters {
		var next []Bar
		for j := range bars {
			next = append(next, s.filters[i].Filter(bars[j])...)
		}
		bars = next
	}
	return bars
}

// flush drains each filter in order, passing released bars through the
// filters after it
func (s *Stream) flush() []Bar {
	var carry []Bar
	for i := range s.filters {
		var next []Bar
		for j := range carry {
			next = append(next, s.filters[i].Filter(carry[j])...)
		}
		carry = append(next, s.filters[i].Flush()...)
	}
	return carry
}
