package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger provides a unified logging interface with component scoping
// and key/value fields.
type Logger struct {
	level       LogLevel
	logger      *log.Logger
	file        *os.File
	component   string
	initialized bool
}

var (
	defaultLogger *Logger
	initMu        sync.Mutex
)

// Init initializes the default logger. Safe to call more than once.
func Init(level, logFile string, persist bool) error {
	initMu.Lock()
	defer initMu.Unlock()

	if defaultLogger != nil && defaultLogger.initialized {
		return nil
	}

	logger, err := New(ParseLevel(level), logFile, persist)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defaultLogger = logger
	return nil
}

// New creates a new Logger instance writing to logFile. When persist is
// false the file is truncated on open.
func New(level LogLevel, logFile string, persist bool) (*Logger, error) {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	var file *os.File
	var err error
	if persist {
		file, err = os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	} else {
		file, err = os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	goLogger := log.New(file, "", log.LstdFlags)

	return &Logger{
		level:       level,
		logger:      goLogger,
		file:        file,
		initialized: true,
	}, nil
}

// NewWithWriter creates a Logger writing to an arbitrary writer. Used in
// tests and by components that own their output stream.
func NewWithWriter(level LogLevel, w io.Writer) *Logger {
	return &Logger{
		level:       level,
		logger:      log.New(w, "", log.LstdFlags),
		initialized: true,
	}
}

// WithComponent returns a logger scoped to a named component. Output from
// the returned logger carries the component tag on every line.
func WithComponent(component string) *Logger {
	base := defaultLogger
	if base == nil {
		// Logging before Init drops to a no-op writer rather than panicking.
		base = NewWithWriter(LevelFatal, io.Discard)
	}
	return base.WithComponent(component)
}

// WithComponent scopes an existing logger to a component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		level:       l.level,
		logger:      l.logger,
		file:        l.file,
		component:   component,
		initialized: l.initialized,
	}
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// ParseLevel converts a string level to LogLevel
func ParseLevel(levelStr string) LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

func (l *Logger) shouldLog(level LogLevel) bool {
	return level >= l.level
}

// log writes a message with key/value pairs if the level is appropriate
func (l *Logger) log(level LogLevel, msg string, keyvals ...interface{}) {
	if !l.shouldLog(level) {
		return
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(level.String())
	b.WriteString("]")
	if l.component != "" {
		b.WriteString(" [")
		b.WriteString(l.component)
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(msg)

	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprintf("%v", keyvals[i])
		var val interface{}
		if i+1 < len(keyvals) {
			val = keyvals[i+1]
		}
		fmt.Fprintf(&b, " %s=%v", key, val)
	}

	line := b.String()
	l.logger.Print(line)

	if level >= LevelError && l.file != nil {
		fmt.Fprintln(os.Stderr, line)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.log(LevelDebug, msg, keyvals...)
}

// Info logs an info message
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.log(LevelInfo, msg, keyvals...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.log(LevelWarn, msg, keyvals...)
}

// Error logs an error message
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.log(LevelError, msg, keyvals...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, keyvals ...interface{}) {
	l.log(LevelFatal, msg, keyvals...)
	os.Exit(1)
}

// Package-level convenience functions using the default logger

// Debug logs a debug message using the default logger
func Debug(msg string, keyvals ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Debug(msg, keyvals...)
}

// Info logs an info message using the default logger
func Info(msg string, keyvals ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Info(msg, keyvals...)
}

// Warn logs a warning message using the default logger
func Warn(msg string, keyvals ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Warn(msg, keyvals...)
}

// Error logs an error message using the default logger
func Error(msg string, keyvals ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Error(msg, keyvals...)
}

// SetOutput sets the output writer for the default logger (useful for testing)
func SetOutput(w io.Writer) {
	if defaultLogger != nil && defaultLogger.logger != nil {
		defaultLogger.logger.SetOutput(w)
	}
}

// Close closes the default logger
func Close() error {
	if defaultLogger != nil {
		return defaultLogger.Close()
	}
	return nil
}
