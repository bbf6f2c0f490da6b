// control/logging.go
// Author: momentics <momentics@gmail.com>
//
// Leveled logger factory shared by every component of a process.

package control

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pion/logging"

	"github.com/momentics/hioload-rtc/api"
)

// ParseLevel maps a config string to a pion log level.
func ParseLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return logging.LogLevelInfo, nil
	case "trace":
		return logging.LogLevelTrace, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "error":
		return logging.LogLevelError, nil
	case "disabled", "off":
		return logging.LogLevelDisabled, nil
	}
	return 0, fmt.Errorf("log level %q: %w", s, api.ErrInvalidArgument)
}

// LoggerFactory creates scoped loggers and can change their level at runtime.
type LoggerFactory struct {
	mu      sync.Mutex
	base    *logging.DefaultLoggerFactory
	loggers []*logging.DefaultLeveledLogger
}

// NewLoggerFactory writes to w (stderr when nil) at the given level.
func NewLoggerFactory(level logging.LogLevel, w io.Writer) *LoggerFactory {
	base := logging.NewDefaultLoggerFactory()
	base.DefaultLogLevel = level
	if w != nil {
		base.Writer = w
	}
	return &LoggerFactory{base: base}
}

// NewLogger implements logging.LoggerFactory.
func (f *LoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := logging.NewDefaultLeveledLoggerForScope(scope, f.base.DefaultLogLevel, f.base.Writer)
	f.loggers = append(f.loggers, l)
	return l
}

// SetLevel applies level to every logger created so far and to future ones.
func (f *LoggerFactory) SetLevel(level logging.LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.base.DefaultLogLevel = level
	for _, l := range f.loggers {
		l.SetLevel(level)
	}
}
