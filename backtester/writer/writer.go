package writer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/thrasher-corp/barsim/backtester/broker"
	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/log"
)

// SetupWriter creates the output directory and a csv file per record type,
// each prefixed by a fresh run id
func SetupWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, errOutputDirUnset
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(dir, 0o770); err != nil {
		return nil, err
	}
	w := &Writer{runID: id, dir: dir, isActive: true}
	if w.orders, err = w.create(ordersFile, orderHeader); err != nil {
		return nil, w.abort(err)
	}
	if w.trades, err = w.create(tradesFile, tradeHeader); err != nil {
		return nil, w.abort(err)
	}
	if w.values, err = w.create(valuesFile, valueHeader); err != nil {
		return nil, w.abort(err)
	}
	if w.logs, err = os.Create(w.LogPath()); err != nil {
		return nil, w.abort(err)
	}
	w.files = append(w.files, w.logs)
	if err = log.AddWriter(w.logs); err != nil {
		return nil, w.abort(err)
	}
	log.Infof(common.Logger(common.Writer), "writing run %s output to %s", id, dir)
	return w, nil
}

func (w *Writer) create(name string, header []string) (*csv.Writer, error) {
	f, err := os.Create(w.Path(name))
	if err != nil {
		return nil, err
	}
	w.files = append(w.files, f)
	cw := csv.NewWriter(f)
	return cw, cw.Write(header)
}

func (w *Writer) abort(err error) error {
	if w.logs != nil {
		log.RemoveWriter(w.logs)
	}
	for i := range w.files {
		_ = w.files[i].Close()
	}
	return err
}

// RunID returns the id prefixing every output file
func (w *Writer) RunID() uuid.UUID {
	return w.runID
}

// Path returns the file path for a record type
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.csv", w.runID, name))
}

// LogPath returns the file receiving a copy of every log line written
// during the run
func (w *Writer) LogPath() string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s", w.runID, logFile))
}

// DeActivate prevents any new records being written
func (w *Writer) DeActivate() {
	w.isActive = false
}

// OnNotification writes an order or trade row
func (w *Writer) OnNotification(n broker.Notification) error {
	if !w.isActive {
		return nil
	}
	if w.orders == nil {
		return errWriterClosed
	}
	switch n.Kind {
	case broker.OrderNotification:
		o := &n.Order
		return w.orders.Write([]string{
			n.Time.Format(time.RFC3339),
			strconv.FormatInt(o.ID, 10),
			o.Instrument,
			string(o.Side),
			string(o.Type),
			string(o.Status),
			o.Size.String(),
			o.Price.String(),
			o.StopPrice.String(),
			strconv.FormatInt(o.ParentID, 10),
			strconv.FormatInt(o.OCO, 10),
			o.Executed.Size.String(),
			o.Executed.Price.String(),
			o.Executed.Commission.String(),
			o.Remaining.String(),
			o.Reason,
		})
	case broker.TradeNotification:
		t := &n.Trade
		return w.trades.Write([]string{
			n.Time.Format(time.RFC3339),
			strconv.FormatInt(t.Ref, 10),
			t.Instrument,
			strconv.Itoa(t.TradeID),
			string(t.Status),
			strconv.FormatBool(t.IsLong),
			t.Size.String(),
			t.Price.String(),
			t.Value.String(),
			t.Commission.String(),
			t.PnL.String(),
			t.PnLComm.String(),
			strconv.Itoa(t.BarLen),
		})
	}
	return nil
}

// OnValue writes the account value at t
func (w *Writer) OnValue(t time.Time, cash, value decimal.Decimal) error {
	if !w.isActive {
		return nil
	}
	if w.values == nil {
		return errWriterClosed
	}
	return w.values.Write([]string{t.Format(time.RFC3339), cash.String(), value.String()})
}

// Close flushes and closes every file, further writes fail
func (w *Writer) Close() error {
	var errs []error
	for _, cw := range []*csv.Writer{w.orders, w.trades, w.values} {
		if cw == nil {
			continue
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.logs != nil {
		log.RemoveWriter(w.logs)
	}
	for i := range w.files {
		if err := w.files[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	w.orders, w.trades, w.values, w.files, w.logs = nil, nil, nil, nil, nil
	return errors.Join(errs...)
}
