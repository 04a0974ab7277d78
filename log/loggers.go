package log

import (
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	levelInfo = iota
	levelDebug
	levelWarn
	levelError
)

// Info takes a pointer subLogger struct and string sends to the output
func Info(sl *SubLogger, data string) {
	sl.stage(levelInfo, func() string { return data })
}

// Infoln takes a pointer subLogger struct and interface sends to the output
func Infoln(sl *SubLogger, v ...any) {
	sl.stage(levelInfo, func() string { return fmt.Sprint(v...) })
}

// Infof takes a pointer subLogger struct, string and interface formats sends
// to the output
func Infof(sl *SubLogger, data string, v ...any) {
	sl.stage(levelInfo, func() string { return fmt.Sprintf(data, v...) })
}

// Debug takes a pointer subLogger struct and string sends to the output
func Debug(sl *SubLogger, data string) {
	sl.stage(levelDebug, func() string { return data })
}

// Debugln takes a pointer subLogger struct and interface sends to the output
func Debugln(sl *SubLogger, v ...any) {
	sl.stage(levelDebug, func() string { return fmt.Sprint(v...) })
}

// Debugf takes a pointer subLogger struct, string and interface formats sends
// to the output
func Debugf(sl *SubLogger, data string, v ...any) {
	sl.stage(levelDebug, func() string { return fmt.Sprintf(data, v...) })
}

// Warn takes a pointer subLogger struct & string and sends to the output
func Warn(sl *SubLogger, data string) {
	sl.stage(levelWarn, func() string { return data })
}

// Warnln takes a pointer subLogger struct & interface and sends to the output
func Warnln(sl *SubLogger, v ...any) {
	sl.stage(levelWarn, func() string { return fmt.Sprint(v...) })
}

// Warnf takes a pointer subLogger struct, string and interface formats sends
// to the output
func Warnf(sl *SubLogger, data string, v ...any) {
	sl.stage(levelWarn, func() string { return fmt.Sprintf(data, v...) })
}

// Error takes a pointer subLogger struct & string and sends to the output
func Error(sl *SubLogger, data string) {
	sl.stage(levelError, func() string { return data })
}

// Errorln takes a pointer subLogger struct & interface and sends to the output
func Errorln(sl *SubLogger, v ...any) {
	sl.stage(levelError, func() string { return fmt.Sprint(v...) })
}

// Errorf takes a pointer subLogger struct, string and interface formats sends
// to the output
func Errorf(sl *SubLogger, data string, v ...any) {
	sl.stage(levelError, func() string { return fmt.Sprintf(data, v...) })
}

func displayError(err error) {
	if err != nil {
		log.Printf("Logger write error: %v\n", err)
	}
}

// header returns the configured header when the level is enabled
func (sl *SubLogger) header(level int) (string, bool) {
	switch level {
	case levelInfo:
		return logger.InfoHeader, sl.levels.Info
	case levelDebug:
		return logger.DebugHeader, sl.levels.Debug
	case levelWarn:
		return logger.WarnHeader, sl.levels.Warn
	case levelError:
		return logger.ErrorHeader, sl.levels.Error
	}
	return "", false
}

func (sl *SubLogger) stage(level int, data func() string) {
	if sl == nil {
		return
	}
	mu.RLock()
	defer mu.RUnlock()
	header, ok := sl.header(level)
	if !ok || sl.output == nil {
		return
	}
	msg := data()
	var b strings.Builder
	b.WriteString(header)
	if logger.TimestampFormat != "" {
		b.WriteString(time.Now().Format(logger.TimestampFormat))
	}
	if logger.ShowLogSystemName {
		b.WriteString(logger.Spacer)
		b.WriteString(sl.name)
	}
	b.WriteString(logger.Spacer)
	b.WriteString(msg)
	if !strings.HasSuffix(msg, "\n") {
		b.WriteByte('\n')
	}
	_, err := sl.output.Write([]byte(b.String()))
	displayError(err)
}
