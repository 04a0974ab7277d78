package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	errEmptyLoggerName = errors.New("cannot have empty logger name")
	// ErrSubLoggerAlreadyRegistered is returned when a sub logger name is
	// reused
	ErrSubLoggerAlreadyRegistered = errors.New("sub logger already registered")
)

// NewSubLogger allows for a new sub logger to be registered.
func NewSubLogger(name string) (*SubLogger, error) {
	if name == "" {
		return nil, errEmptyLoggerName
	}
	name = strings.ToUpper(name)
	mu.Lock()
	defer mu.Unlock()
	if _, ok := subLoggers[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrSubLoggerAlreadyRegistered, name)
	}
	return registerNewSubLogger(name), nil
}

// MustNewSubLogger registers a sub logger and panics on failure, intended
// for package level variable declarations
func MustNewSubLogger(name string) *SubLogger {
	sl, err := NewSubLogger(name)
	if err != nil {
		panic(err)
	}
	return sl
}

// SetOutput overrides the default output with a new writer
func (sl *SubLogger) SetOutput(o io.Writer) {
	mu.Lock()
	sl.output = o
	mu.Unlock()
}

// SetLevels overrides the default levels with new levels
func (sl *SubLogger) SetLevels(newLevels Levels) {
	mu.Lock()
	sl.levels = newLevels
	mu.Unlock()
}

// GetLevels returns the current levels of the sub logger
func (sl *SubLogger) GetLevels() Levels {
	mu.RLock()
	defer mu.RUnlock()
	return sl.levels
}

// Name returns the registered name of the sub logger
func (sl *SubLogger) Name() string {
	return sl.name
}

func registerNewSubLogger(name string) *SubLogger {
	temp := &SubLogger{
		name:   name,
		output: os.Stdout,
		levels: splitLevel("INFO|WARN|DEBUG|ERROR"),
	}
	subLoggers[name] = temp
	return temp
}
