package writer

import (
	"encoding/csv"
	"errors"
	"os"

	"github.com/gofrs/uuid"
)

var (
	errOutputDirUnset = errors.New("output directory not set")
	errWriterClosed   = errors.New("writer closed")
)

const (
	ordersFile = "orders"
	tradesFile = "trades"
	valuesFile = "values"
	logFile    = "log.txt"
)

var (
	orderHeader = []string{"time", "id", "instrument", "side", "type", "status", "size", "price", "stop_price", "parent_id", "oco", "executed_size", "executed_price", "commission", "remaining", "reason"}
	tradeHeader = []string{"time", "ref", "instrument", "trade_id", "status", "long", "size", "price", "value", "commission", "pnl", "pnl_comm", "bar_len"}
	valueHeader = []string{"time", "cash", "value"}
)

// Writer streams run output as csv files named after a run id. It satisfies
// the engine Listener interface
type Writer struct {
	runID    uuid.UUID
	dir      string
	files    []*os.File
	logs     *os.File
	orders   *csv.Writer
	trades   *csv.Writer
	values   *csv.Writer
	isActive bool
}
