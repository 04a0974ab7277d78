package log

import "io"

var (
	subLoggers = map[string]*SubLogger{}

	// Global is the default sub logger
	Global *SubLogger
)

// SubLogger defines a named logging sub system with its own levels and
// output
type SubLogger struct {
	name   string
	levels Levels
	output io.Writer
}
