package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/thrasher-corp/barsim/log"
)

// DataError reports a problem with a bar stream. It is fatal to that stream
type DataError struct {
	Stream string
	Time   time.Time
	Err    error
}

// Error implements the error interface
func (e *DataError) Error() string {
	return fmt.Sprintf("data stream %q at %v: %v", e.Stream, e.Time.Format(time.RFC3339), e.Err)
}

// Unwrap returns the wrapped error
func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError wraps err with the stream name and bar time
func NewDataError(stream string, t time.Time, err error) error {
	return &DataError{Stream: stream, Time: t, Err: err}
}

func init() {
	for _, name := range []string{Setup, Data, Aggregator, Timer, Broker, Strategy, Statistics, Writer} {
		SubLoggers[name] = log.MustNewSubLogger(name)
	}
}

// Logger returns the named backtester sub logger, nil sub loggers discard
// output
func Logger(name string) *log.SubLogger {
	return SubLoggers[strings.ToUpper(name)]
}
