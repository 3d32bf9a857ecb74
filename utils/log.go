package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
)

func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case CRITICAL:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps trace|debug|info|warn|error|critical, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TRACE
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "critical":
		return CRITICAL
	default:
		return INFO
	}
}

// logrus has no critical level; critical lines are errors tagged with a field.
func (l LogLevel) logrus() logrus.Level {
	switch l {
	case TRACE:
		return logrus.TraceLevel
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR, CRITICAL:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

type Logger struct {
	mu       sync.Mutex
	minLevel LogLevel
	file     *os.File
	log      *logrus.Logger
}

// NewFileLogger appends to filePath, and mirrors to stdout when alsoStdout is
// set. An empty filePath logs to stdout only.
func NewFileLogger(filePath string, minLevel LogLevel, alsoStdout bool) (*Logger, error) {
	var writers []io.Writer
	var f *os.File
	if filePath != "" {
		var err error
		f, err = os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
	}
	if alsoStdout || f == nil {
		writers = append(writers, os.Stdout)
	}
	l := NewLogger(io.MultiWriter(writers...), minLevel)
	l.file = f
	return l, nil
}

// NewLogger logs to out; used by tests and by callers owning the writer.
func NewLogger(out io.Writer, minLevel LogLevel) *Logger {
	lr := logrus.New()
	lr.SetOutput(out)
	lr.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	lr.SetLevel(minLevel.logrus())
	return &Logger{minLevel: minLevel, log: lr}
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) SetMinLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
	l.log.SetLevel(level.logrus())
}

func (l *Logger) enabled(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.minLevel
}

// WithFields starts a structured event; the entry honours the logger level.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.log.WithFields(fields)
}

func (l *Logger) logf(level LogLevel, msg string, args ...any) {
	if !l.enabled(level) {
		return
	}
	entry := logrus.NewEntry(l.log)
	if level == CRITICAL {
		entry = entry.WithField("severity", "critical")
	}
	entry.Log(level.logrus(), fmt.Sprintf(msg, args...))
}

func (l *Logger) Trace(msg string, args ...any)    { l.logf(TRACE, msg, args...) }
func (l *Logger) Debug(msg string, args ...any)    { l.logf(DEBUG, msg, args...) }
func (l *Logger) Info(msg string, args ...any)     { l.logf(INFO, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)     { l.logf(WARN, msg, args...) }
func (l *Logger) Error(msg string, args ...any)    { l.logf(ERROR, msg, args...) }
func (l *Logger) Critical(msg string, args ...any) { l.logf(CRITICAL, msg, args...) }
