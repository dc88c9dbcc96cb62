/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metadata

import (
	"errors"
	"strings"
	"sync"

	"github.com/worldcoin/walletkit/spi/log"
)

// defaultLogLevel is used when no level was set for a module.
const defaultLogLevel = log.INFO

//nolint:gochecknoglobals
var levels = newModuleLevels()

// SetLevel sets the logging level for given module.
func SetLevel(module string, level log.Level) {
	levels.Set(module, level)
}

// GetLevel returns the logging level for given module.
func GetLevel(module string) log.Level {
	return levels.Get(module)
}

// IsEnabledFor reports whether given level is enabled for given module.
func IsEnabledFor(module string, level log.Level) bool {
	return level <= levels.Get(module)
}

// ParseLevel returns the log level from a string representation.
func ParseLevel(level string) (log.Level, error) {
	switch strings.ToUpper(level) {
	case "CRITICAL":
		return log.CRITICAL, nil
	case "ERROR":
		return log.ERROR, nil
	case "WARNING":
		return log.WARNING, nil
	case "INFO":
		return log.INFO, nil
	case "DEBUG":
		return log.DEBUG, nil
	default:
		return log.ERROR, errors.New("invalid log level")
	}
}

// ParseString returns the string representation of a log level.
func ParseString(level log.Level) string {
	switch level {
	case log.CRITICAL:
		return "CRITICAL"
	case log.ERROR:
		return "ERROR"
	case log.WARNING:
		return "WARNING"
	case log.INFO:
		return "INFO"
	case log.DEBUG:
		return "DEBUG"
	default:
		return ""
	}
}

func newModuleLevels() *moduleLevels {
	return &moduleLevels{levels: make(map[string]log.Level)}
}

// moduleLevels maintains log levels based on modules.
type moduleLevels struct {
	levels  map[string]log.Level
	rwmutex sync.RWMutex
}

// Get returns the log level for given module, defaulting to INFO.
func (l *moduleLevels) Get(module string) log.Level {
	l.rwmutex.RLock()
	defer l.rwmutex.RUnlock()

	level, exists := l.levels[module]
	if !exists {
		return defaultLogLevel
	}

	return level
}

// Set sets the log level for given module.
func (l *moduleLevels) Set(module string, level log.Level) {
	l.rwmutex.Lock()
	defer l.rwmutex.Unlock()

	l.levels[module] = level
}
