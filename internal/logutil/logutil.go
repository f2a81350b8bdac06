package logutil

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	logger  = log.NewWithOptions(os.Stderr, log.Options{Prefix: "xface", ReportTimestamp: true, Level: log.InfoLevel})
	verbose bool
	mu      sync.RWMutex
)

// SetVerbose adjusts the global logging level.
func SetVerbose(enable bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = enable
	if enable {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
}

// Verbose reports whether verbose logging is enabled.
func Verbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// Debugf logs a debug message when verbose logging is enabled.
func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

// Infof logs an informational message.
func Infof(format string, args ...any) {
	logger.Infof(format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...any) {
	logger.Warnf(format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...any) {
	logger.Errorf(format, args...)
}

// LeveledLogger forwards key/value logging from HTTP clients to the shared logger.
type LeveledLogger struct {
	prefix string
}

// Leveled returns a LeveledLogger for retrying HTTP clients.
func Leveled() LeveledLogger { return LeveledLogger{prefix: "http"} }

func (l LeveledLogger) msg(m string) string { return fmt.Sprintf("%s: %s", l.prefix, m) }

func (l LeveledLogger) Error(msg string, keysAndValues ...any) {
	logger.Error(l.msg(msg), keysAndValues...)
}

func (l LeveledLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug(l.msg(msg), keysAndValues...)
}

func (l LeveledLogger) Debug(msg string, keysAndValues ...any) {
	logger.Debug(l.msg(msg), keysAndValues...)
}

func (l LeveledLogger) Warn(msg string, keysAndValues ...any) {
	logger.Warn(l.msg(msg), keysAndValues...)
}
