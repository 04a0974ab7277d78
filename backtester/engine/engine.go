package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/thrasher-corp/barsim/backtester/aggregator"
	"github.com/thrasher-corp/barsim/backtester/broker"
	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/backtester/data"
	"github.com/thrasher-corp/barsim/backtester/statistics"
	"github.com/thrasher-corp/barsim/backtester/timer"
	"github.com/thrasher-corp/barsim/log"
)

// New returns an engine with a broker built from cfg
func New(cfg Config) (*Engine, error) {
	if cfg.Session != (data.Session{}) {
		if err := cfg.Session.Validate(); err != nil {
			return nil, err
		}
	}
	b, err := broker.New(cfg.Broker)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:        cfg,
		broker:     b,
		scheduler:  timer.NewScheduler(cfg.Session),
		statistics: statistics.New(cfg.StrategyName, cfg.Broker.Cash),
		byName:     make(map[string]*feedState),
	}
	e.listeners = []Listener{e.statistics}
	e.ctx = &Context{engine: e}
	return e, nil
}

// AddFeed attaches a bar source. Feeds are merged by time, feeds added
// first win ties
func (e *Engine) AddFeed(f Feed) error {
	if _, ok := e.byName[f.Name]; ok {
		return fmt.Errorf("%w: %s", errDuplicateFeed, f.Name)
	}
	stream, err := data.NewStream(f.Name, f.Source, f.Filters...)
	if err != nil {
		return err
	}
	fs := &feedState{
		index:      len(e.feeds),
		name:       f.Name,
		instrument: f.Instrument,
		stream:     stream,
		mode:       f.Mode,
	}
	if fs.instrument == "" {
		fs.instrument = f.Name
	}
	switch f.Mode {
	case aggregator.None:
	case aggregator.Resample:
		fs.resampler, err = aggregator.NewResampler(f.Name, f.Interval, f.Options)
	case aggregator.Replay:
		fs.replayer, err = aggregator.NewReplayer(f.Name, f.Interval, f.Options)
	default:
		err = fmt.Errorf("%w: %d", errInvalidMode, f.Mode)
	}
	if err != nil {
		return err
	}
	e.feeds = append(e.feeds, fs)
	e.byName[f.Name] = fs
	log.Debugf(common.Logger(common.Setup), "feed %q added for %s", f.Name, fs.instrument)
	return nil
}

// AddTimer registers a timer and returns its id
func (e *Engine) AddTimer(t timer.Timer) (int, error) {
	return e.scheduler.Add(t)
}

// SetStrategy sets the strategy driven by Run
func (e *Engine) SetStrategy(s Strategy) error {
	if s == nil {
		return fmt.Errorf("strategy %w", common.ErrNilArguments)
	}
	e.strategy = s
	return nil
}

// AddListener registers a consumer of notifications and values
func (e *Engine) AddListener(l Listener) error {
	if l == nil {
		return fmt.Errorf("listener %w", common.ErrNilArguments)
	}
	e.listeners = append(e.listeners, l)
	return nil
}

// Broker returns the engine's broker
func (e *Engine) Broker() *broker.Broker {
	return e.broker
}

// Statistics returns the run statistics
func (e *Engine) Statistics() *statistics.Statistic {
	return e.statistics
}

// Run drives every feed to exhaustion or until ctx is done. An invariant
// violation in the broker aborts the run, bad data only stops its feed
func (e *Engine) Run(ctx context.Context) error {
	if e.ran {
		return errAlreadyRunning
	}
	if len(e.feeds) == 0 {
		return errNoFeeds
	}
	if e.strategy == nil {
		return errNoStrategy
	}
	e.ran = true
	log.Infof(common.Logger(common.Setup), "running strategy %s over %d feeds", e.strategy.Name(), len(e.feeds))
	if s, ok := e.strategy.(Starter); ok {
		if err := s.OnStart(e.ctx); err != nil {
			return err
		}
	}
	if s, ok := e.strategy.(Stopper); ok {
		defer s.OnStop(e.ctx)
	}
	var tracked time.Time
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, ok := e.nextTime()
		if !ok {
			break
		}
		if err := e.step(t); err != nil {
			return err
		}
		if !t.After(tracked) {
			continue
		}
		tracked = t
		cash, value := e.broker.Cash(), e.broker.Value()
		for _, l := range e.listeners {
			if err := l.OnValue(t, cash, value); err != nil {
				return err
			}
		}
	}
	return e.dispatch()
}

// nextTime loads the next bar of each feed and returns the earliest time.
// Final aggregated bars stamped before the clock are delivered at the
// clock
func (e *Engine) nextTime() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, f := range e.feeds {
		e.load(f)
		if f.next == nil {
			continue
		}
		t := f.next.Time
		if t.Before(e.ctx.Time) {
			t = e.ctx.Time
		}
		if !found || t.Before(earliest) {
			earliest = t
			found = true
		}
	}
	return earliest, found
}

func (e *Engine) load(f *feedState) {
	for f.next == nil && !f.done {
		b, err := f.stream.Next()
		switch {
		case err == nil:
			f.next = &b
		case errors.Is(err, io.EOF):
			e.flush(f)
		default:
			e.dataError(f, err)
		}
	}
}

// flush finalises a feed's aggregator once its stream is exhausted
func (e *Engine) flush(f *feedState) {
	if f.flushed {
		f.done = true
		return
	}
	f.flushed = true
	switch f.mode {
	case aggregator.Resample:
		if b, ok := f.resampler.Close(); ok {
			f.next = &b
			return
		}
	case aggregator.Replay:
		f.replayer.Close()
	}
	f.done = true
}

func (e *Engine) dataError(f *feedState, err error) {
	f.done = true
	f.next = nil
	var dErr *common.DataError
	if !errors.As(err, &dErr) {
		dErr = &common.DataError{Stream: f.name, Time: e.ctx.Time, Err: err}
	}
	log.Errorf(common.Logger(common.Data), "%v, feed stopped", dErr)
	if h, ok := e.strategy.(DataErrorHandler); ok {
		h.OnDataError(e.ctx, dErr)
	}
}

type delivery struct {
	feed *feedState
	bar  data.Bar
}

// step runs one clock tick: pre-open timers, matching, notifications,
// standard timers, then the strategy
func (e *Engine) step(t time.Time) error {
	e.ctx.Time = t
	var deliveries []delivery
	for _, f := range e.feeds {
		f.delivered = false
		if f.next == nil || f.next.Time.After(t) {
			continue
		}
		b := *f.next
		f.next = nil
		match, ok, err := f.aggregate(b)
		if err != nil {
			e.dataError(f, err)
			continue
		}
		if ok {
			deliveries = append(deliveries, delivery{feed: f, bar: match})
		}
	}

	e.fireTimers(timer.PreOpen)
	if e.cfg.CheatOnOpen && len(deliveries) > 0 {
		if h, ok := e.strategy.(OpenHandler); ok {
			if err := h.OnOpen(e.ctx); err != nil {
				return err
			}
		}
	}
	for _, d := range deliveries {
		if err := e.broker.Next(d.feed.instrument, d.bar); err != nil {
			return err
		}
	}
	if err := e.dispatch(); err != nil {
		return err
	}
	e.fireTimers(timer.Standard)
	if len(deliveries) == 0 {
		return nil
	}
	return e.strategy.OnBar(e.ctx)
}

// aggregate records the bar the strategy sees and returns the bar the
// broker matches against
func (f *feedState) aggregate(b data.Bar) (data.Bar, bool, error) {
	if f.flushed {
		f.history = append(f.history, b)
		f.delivered = true
		return b, true, nil
	}
	switch f.mode {
	case aggregator.Resample:
		out, ok, err := f.resampler.Ingest(b)
		if err != nil || !ok {
			return data.Bar{}, false, err
		}
		f.history = append(f.history, out)
		f.delivered = true
		return out, true, nil
	case aggregator.Replay:
		u, err := f.replayer.Ingest(b)
		if err != nil {
			return data.Bar{}, false, err
		}
		if u.New || len(f.history) == 0 {
			f.history = append(f.history, u.Bar)
		} else {
			f.history[len(f.history)-1] = u.Bar
		}
		f.delivered = true
		return b, true, nil
	}
	f.history = append(f.history, b)
	f.delivered = true
	return b, true, nil
}

func (e *Engine) fireTimers(phase timer.Phase) {
	for _, firing := range e.scheduler.Check(e.ctx.Time, phase) {
		e.strategy.OnTimer(e.ctx, firing)
	}
}

// dispatch drains broker notifications to listeners then the strategy
func (e *Engine) dispatch() error {
	for _, n := range e.broker.Notifications() {
		for _, l := range e.listeners {
			if err := l.OnNotification(n); err != nil {
				return err
			}
		}
		switch n.Kind {
		case broker.OrderNotification:
			e.strategy.OnOrder(e.ctx, n.Order)
		case broker.TradeNotification:
			e.strategy.OnTrade(e.ctx, n.Trade)
		}
	}
	return nil
}
