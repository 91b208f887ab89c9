// Package xlog provides the process-wide structured logger used by every
// core component. Adapted from the teacher's internal/logging package: a
// package-level zerolog.Logger behind a settable level, guarded by a
// sync.RWMutex so concurrent parallel-step executors can read/write the
// level without racing.
package xlog

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	logger zerolog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	level  Level          = INFO
	mu     sync.RWMutex
)

// SetLevel adjusts the global log level.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
	zerolog.SetGlobalLevel(mapLevel(l))
}

// GetLevel returns the current global log level.
func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// Get returns the shared logger instance.
func Get() *zerolog.Logger {
	return &logger
}

// ParseLevel maps a config/flag string (case-insensitive) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("xlog: unknown level %q", s)
	}
}

func mapLevel(l Level) zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
