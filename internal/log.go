package internal

import (
	"io"
	"log"
	"os"
	"strings"
)

// LogLevel represents different logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// Logger provides leveled logging with an optional component tag.
type Logger struct {
	level     LogLevel
	component string
	out       *log.Logger
}

// NewLogger creates a new logger with the specified level writing to the std log output.
func NewLogger(level LogLevel) *Logger {
	return &Logger{level: level}
}

// NewLoggerTo creates a logger that writes to w.
func NewLoggerTo(level LogLevel, w io.Writer) *Logger {
	return &Logger{level: level, out: log.New(w, "", 0)}
}

// NewDefaultLogger creates a logger based on LOG_LEVEL environment variable
func NewDefaultLogger() *Logger {
	return &Logger{level: ParseLogLevel(os.Getenv("LOG_LEVEL"))}
}

// ParseLogLevel maps ERROR/WARN/INFO/DEBUG/TRACE to a level; anything else is INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LogLevelError
	case "WARN":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	case "TRACE":
		return LogLevelTrace
	default:
		return LogLevelInfo
	}
}

// With returns a logger that tags every line with [component].
func (l *Logger) With(component string) *Logger {
	c := *l
	c.component = component
	return &c
}

func (l *Logger) printf(tag, format string, args ...interface{}) {
	prefix := "[" + tag + "] "
	if l.component != "" {
		prefix += "[" + l.component + "] "
	}
	if l.out != nil {
		l.out.Printf(prefix+format, args...)
		return
	}
	log.Printf(prefix+format, args...)
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	if l.level >= LogLevelError {
		l.printf("ERROR", format, args...)
	}
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogLevelWarn {
		l.printf("WARN", format, args...)
	}
}

// Info logs info messages
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogLevelInfo {
		l.printf("INFO", format, args...)
	}
}

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		l.printf("DEBUG", format, args...)
	}
}

// Trace logs trace messages
func (l *Logger) Trace(format string, args ...interface{}) {
	if l.level >= LogLevelTrace {
		l.printf("TRACE", format, args...)
	}
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// Global logger instance
var DefaultLogger = NewDefaultLogger()
