package broker

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thrasher-corp/barsim/backtester/commission"
	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/backtester/order"
	"github.com/thrasher-corp/barsim/log"
)

// New returns a broker holding cfg.Cash
func New(cfg Config) (*Broker, error) {
	if cfg.Cash.IsNegative() {
		return nil, errNegativeCash
	}
	if cfg.VolumeFillRatio.IsNegative() || cfg.VolumeFillRatio.GreaterThan(decimal.NewFromInt(1)) {
		return nil, errInvalidFillRatio
	}
	if cfg.BracketPrecedence > StopFirst {
		return nil, errInvalidPrecedence
	}
	if cfg.Commission == nil {
		free, err := commission.NewPercentage(decimal.Zero, false)
		if err != nil {
			return nil, err
		}
		cfg.Commission = free
	}
	return &Broker{
		cfg:       cfg,
		cash:      cfg.Cash,
		held:      make(map[int64][]int64),
		activated: make(map[int64]int),
		reserved:  make(map[int64]decimal.Decimal),
		schemes:   make(map[string]commission.Scheme),
		positions: make(map[string]*Position),
		lastClose: make(map[string]decimal.Decimal),
		open:      make(map[tradeKey]*Trade),
	}, nil
}

// SetCommission sets the scheme used for instrument
func (b *Broker) SetCommission(instrument string, s commission.Scheme) error {
	if s == nil {
		return fmt.Errorf("%s %w", instrument, common.ErrNilArguments)
	}
	b.schemes[instrument] = s
	return nil
}

func (b *Broker) scheme(instrument string) commission.Scheme {
	if s, ok := b.schemes[instrument]; ok {
		return s
	}
	return b.cfg.Commission
}

// Submit validates spec and creates an order. The order is released to the
// market once a transmitting member of its group is submitted
func (b *Broker) Submit(spec *order.Spec) (int64, error) {
	if err := spec.Validate(); err != nil {
		return 0, &ValidationError{Time: b.now, Err: err}
	}
	var parent *order.Order
	if spec.ParentID != 0 {
		var err error
		parent, err = b.get(spec.ParentID)
		if err != nil {
			return 0, &ValidationError{Time: b.now, Err: err}
		}
		switch {
		case !parent.IsAlive():
			return 0, &ValidationError{Time: b.now, Err: fmt.Errorf("parent %d %w", parent.ID, ErrOrderNotAlive)}
		case parent.ParentID != 0:
			return 0, &ValidationError{Time: b.now, Err: errParentIsChild}
		case parent.Instrument != spec.Instrument:
			return 0, &ValidationError{Time: b.now, Err: errParentInstrument}
		case len(parent.Children) >= 2:
			return 0, &ValidationError{Time: b.now, Err: errTooManyChildren}
		}
	}
	var ocoGroup int64
	if spec.OCO != 0 {
		peer, err := b.get(spec.OCO)
		if err != nil {
			return 0, &ValidationError{Time: b.now, Err: err}
		}
		if !peer.IsAlive() {
			return 0, &ValidationError{Time: b.now, Err: fmt.Errorf("oco peer %d %w", peer.ID, ErrOrderNotAlive)}
		}
		if peer.OCO == 0 {
			peer.OCO = peer.ID
		}
		ocoGroup = peer.OCO
	}

	ref := b.lastClose[spec.Instrument]
	if (spec.Type == order.StopTrail || spec.Type == order.StopTrailLimit) &&
		!spec.StopPrice.IsPositive() && !ref.IsPositive() {
		return 0, &ValidationError{Time: b.now, Err: errNoReferencePrice}
	}

	b.nextID++
	o := order.New(b.nextID, spec, b.now, ref)
	o.OCO = ocoGroup
	b.orders = append(b.orders, o)
	if parent != nil {
		parent.Children = append(parent.Children, o.ID)
	}

	group := o.ID
	if parent != nil {
		group = parent.ID
	}
	if !o.Transmit {
		b.held[group] = append(b.held[group], o.ID)
		log.Debugf(common.Logger(common.Broker), "order %d held until its group transmits", o.ID)
		return o.ID, nil
	}
	release := append(b.held[group], o.ID)
	delete(b.held, group)
	for _, id := range release {
		if err := b.transmit(b.orders[id-1]); err != nil {
			return 0, err
		}
	}
	return o.ID, nil
}

// transmit releases an order, it is submitted on the next matching phase
// for its instrument. Bracket children wait for their parent to complete
func (b *Broker) transmit(o *order.Order) error {
	o.Transmit = true
	if o.ParentID != 0 && b.orders[o.ParentID-1].Status == order.Completed {
		return b.activate(o)
	}
	return nil
}

// BracketSpec describes an entry with protective stop and take profit
// legs
type BracketSpec struct {
	Instrument string
	Side       order.Side
	Size       decimal.Decimal
	// EntryType is Limit or Market, Limit when unset
	EntryType   order.Type
	EntryPrice  decimal.Decimal
	StopPrice   decimal.Decimal
	LimitPrice  decimal.Decimal
	ValidUntil  time.Time
	TradeID     int
	StopType    order.Type
	TrailAmount decimal.Decimal
}

// Bracket submits the entry and both exit legs as one transmit group. It
// returns the ids of the entry, stop and limit orders
func (b *Broker) Bracket(s *BracketSpec) ([3]int64, error) {
	var ids [3]int64
	if s == nil {
		return ids, &ValidationError{Time: b.now, Err: order.ErrSubmissionIsNil}
	}
	exit := order.Sell
	if s.Side == order.Sell {
		exit = order.Buy
	}
	entryType := s.EntryType
	if entryType == "" {
		entryType = order.Limit
	}
	stopType := s.StopType
	if stopType == "" {
		stopType = order.Stop
	}
	hold := false
	var err error
	ids[0], err = b.Submit(&order.Spec{
		Instrument: s.Instrument,
		Side:       s.Side,
		Type:       entryType,
		Size:       s.Size,
		Price:      s.EntryPrice,
		ValidUntil: s.ValidUntil,
		Transmit:   &hold,
		TradeID:    s.TradeID,
	})
	if err != nil {
		return ids, err
	}
	ids[1], err = b.Submit(&order.Spec{
		Instrument:  s.Instrument,
		Side:        exit,
		Type:        stopType,
		Size:        s.Size,
		StopPrice:   s.StopPrice,
		TrailAmount: s.TrailAmount,
		ParentID:    ids[0],
		Transmit:    &hold,
		TradeID:     s.TradeID,
	})
	if err != nil {
		return ids, b.abandon(ids[0], err)
	}
	ids[2], err = b.Submit(&order.Spec{
		Instrument: s.Instrument,
		Side:       exit,
		Type:       order.Limit,
		Size:       s.Size,
		Price:      s.LimitPrice,
		ParentID:   ids[0],
		TradeID:    s.TradeID,
	})
	if err != nil {
		return ids, b.abandon(ids[0], err)
	}
	return ids, nil
}

func (b *Broker) abandon(parent int64, cause error) error {
	if err := b.cancel(b.orders[parent-1], "bracket leg rejected"); err != nil {
		return fmt.Errorf("%v: %w", cause, err)
	}
	return cause
}

// Cancel cancels a live order and everything linked to it
func (b *Broker) Cancel(id int64) error {
	o, err := b.get(id)
	if err != nil {
		return err
	}
	if !o.IsAlive() {
		return fmt.Errorf("order %d %w", id, ErrOrderNotAlive)
	}
	return b.cancel(o, "canceled by strategy")
}

// Close submits a market order flattening the open trade on instrument
// and tradeID and cancels its pending bracket legs
func (b *Broker) Close(instrument string, tradeID int) (int64, error) {
	t := b.open[tradeKey{instrument: instrument, tradeID: tradeID}]
	if t == nil || t.Size.IsZero() {
		return 0, fmt.Errorf("%s trade %d %w", instrument, tradeID, ErrNoPosition)
	}
	for _, o := range b.orders {
		if o.Instrument != instrument || o.TradeID != tradeID || o.ParentID == 0 || !o.IsAlive() ||
			b.orders[o.ParentID-1].Status != order.Completed {
			continue
		}
		if err := b.cancel(o, "position closed"); err != nil {
			return 0, err
		}
	}
	side := order.Sell
	if t.Size.IsNegative() {
		side = order.Buy
	}
	return b.Submit(&order.Spec{
		Instrument: instrument,
		Side:       side,
		Type:       order.Market,
		Size:       t.Size.Abs(),
		TradeID:    tradeID,
	})
}

func (b *Broker) get(id int64) (*order.Order, error) {
	if id <= 0 || id > int64(len(b.orders)) {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}
	return b.orders[id-1], nil
}

// Order returns a snapshot of an order
func (b *Broker) Order(id int64) (order.Order, error) {
	o, err := b.get(id)
	if err != nil {
		return order.Order{}, err
	}
	return o.Clone(), nil
}

// Orders returns snapshots of every order on instrument, empty for all
func (b *Broker) Orders(instrument string) []order.Order {
	var resp []order.Order
	for _, o := range b.orders {
		if instrument == "" || o.Instrument == instrument {
			resp = append(resp, o.Clone())
		}
	}
	return resp
}

// Position returns the position held on instrument
func (b *Broker) Position(instrument string) Position {
	if p := b.positions[instrument]; p != nil {
		return *p
	}
	return Position{}
}

// Instruments returns every instrument a position was ever opened on
func (b *Broker) Instruments() []string {
	resp := make([]string, 0, len(b.positions))
	for k := range b.positions {
		resp = append(resp, k)
	}
	sort.Strings(resp)
	return resp
}

// Trades returns every trade opened on instrument, empty for all
func (b *Broker) Trades(instrument string) []Trade {
	var resp []Trade
	for _, t := range b.trades {
		if instrument == "" || t.Instrument == instrument {
			resp = append(resp, *t)
		}
	}
	return resp
}

// Cash returns the cash held, including cash reserved for orders
func (b *Broker) Cash() decimal.Decimal {
	return b.cash
}

// Value returns cash plus the marked value of every position
func (b *Broker) Value() decimal.Decimal {
	value := b.cash
	for instrument, pos := range b.positions {
		if pos.Size.IsZero() {
			continue
		}
		s := b.scheme(instrument)
		price := b.lastClose[instrument]
		if s.IsStockLike() {
			value = value.Add(pos.Size.Mul(price).Mul(s.Multiplier()))
			continue
		}
		value = value.Add(s.MarginRequired(pos.Size, pos.Price)).
			Add(s.CashAdjust(pos.Size, pos.Price, price))
	}
	return value
}

// Account returns the current funds
func (b *Broker) Account() Account {
	return Account{
		Cash:      b.cash,
		Committed: b.committed(),
		Value:     b.Value(),
	}
}

func (b *Broker) committed() decimal.Decimal {
	committed := decimal.Zero
	for _, r := range b.reserved {
		committed = committed.Add(r)
	}
	return committed
}

// Notifications drains the queued notifications in emission order
func (b *Broker) Notifications() []Notification {
	resp := b.notifications
	b.notifications = nil
	return resp
}

func (b *Broker) notifyOrder(o *order.Order) {
	b.notifications = append(b.notifications, Notification{
		Kind:  OrderNotification,
		Time:  b.now,
		Order: o.Clone(),
	})
}

func (b *Broker) notifyTrade(t *Trade) {
	b.notifications = append(b.notifications, Notification{
		Kind:  TradeNotification,
		Time:  b.now,
		Trade: *t,
	})
}
