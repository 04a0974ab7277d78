package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/thrasher-corp/barsim/common/convert"
)

var (
	errSubloggerConfigIsNil  = errors.New("sublogger config is nil")
	errUnhandledOutputWriter = errors.New("unhandled output writer")
	errConfigNil             = errors.New("logger config is nil")
)

func getWriters(s *SubLoggerConfig) (io.Writer, error) {
	if s == nil {
		return nil, errSubloggerConfigIsNil
	}
	mw, err := multiWriter()
	if err != nil {
		return nil, err
	}
	outputWriters := strings.Split(s.Output, "|")
	for x := range outputWriters {
		var writer io.Writer
		switch strings.ToLower(outputWriters[x]) {
		case "stdout", "console":
			writer = os.Stdout
		case "stderr":
			writer = os.Stderr
		default:
			return nil, fmt.Errorf("%w: %s", errUnhandledOutputWriter, outputWriters[x])
		}
		if err = mw.Add(writer); err != nil {
			return nil, err
		}
	}
	return mw, nil
}

// GenDefaultSettings return struct with known sane/working logger settings
func GenDefaultSettings() Config {
	return Config{
		Enabled: convert.BoolPtr(true),
		SubLoggerConfig: SubLoggerConfig{
			Level:  "INFO|DEBUG|WARN|ERROR",
			Output: "console",
		},
		AdvancedSettings: advancedSettings{
			ShowLogSystemName: convert.BoolPtr(true),
			Spacer:            spacer,
			TimeStampFormat:   timestampFormat,
			Headers: headers{
				Info:  "[INFO]",
				Warn:  "[WARN]",
				Debug: "[DEBUG]",
				Error: "[ERROR]",
			},
		},
	}
}

// SetupGlobalLogger applies the config to the logger and every registered
// sub logger, then applies any named sub logger overrides
func SetupGlobalLogger(c *Config) error {
	if c == nil {
		return errConfigNil
	}
	output, err := getWriters(&c.SubLoggerConfig)
	if err != nil {
		return err
	}
	enabled := c.Enabled == nil || *c.Enabled
	mu.Lock()
	defer mu.Unlock()
	globalLogConfig = c
	for _, sl := range subLoggers {
		sl.output = output
		if enabled {
			sl.levels = splitLevel(c.Level)
		} else {
			sl.levels = Levels{}
		}
	}
	logger = newLogger(c)
	if !enabled {
		return nil
	}
	return setupSubLoggers(c.SubLoggers)
}

func setupSubLoggers(s []SubLoggerConfig) error {
	for x := range s {
		output, err := getWriters(&s[x])
		if err != nil {
			return err
		}
		sl, ok := subLoggers[strings.ToUpper(s[x].Name)]
		if !ok {
			return fmt.Errorf("sub logger %v not found", s[x].Name)
		}
		sl.output = output
		sl.levels = splitLevel(s[x].Level)
	}
	return nil
}

func newLogger(c *Config) Logger {
	showName := c.AdvancedSettings.ShowLogSystemName != nil && *c.AdvancedSettings.ShowLogSystemName
	return Logger{
		ShowLogSystemName: showName,
		TimestampFormat:   c.AdvancedSettings.TimeStampFormat,
		Spacer:            c.AdvancedSettings.Spacer,
		InfoHeader:        c.AdvancedSettings.Headers.Info,
		ErrorHeader:       c.AdvancedSettings.Headers.Error,
		DebugHeader:       c.AdvancedSettings.Headers.Debug,
		WarnHeader:        c.AdvancedSettings.Headers.Warn,
	}
}

func splitLevel(level string) (l Levels) {
	enabledLevels := strings.Split(level, "|")
	for x := range enabledLevels {
		switch strings.ToUpper(enabledLevels[x]) {
		case "DEBUG":
			l.Debug = true
		case "INFO":
			l.Info = true
		case "WARN":
			l.Warn = true
		case "ERROR":
			l.Error = true
		}
	}
	return
}

func init() {
	Global = registerNewSubLogger("LOG")
}
