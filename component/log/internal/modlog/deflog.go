/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package modlog

import (
	"fmt"
	"io"
	builtinlog "log"
	"os"

	"github.com/worldcoin/walletkit/component/log/internal/metadata"
	"github.com/worldcoin/walletkit/spi/log"
)

const (
	logLevelFormatter  = "UTC -> %s "
	logPrefixFormatter = " [%s] "
)

// NewDefLog returns new DefLog instance based on given module.
func NewDefLog(module string) *DefLog {
	logger := builtinlog.New(os.Stdout, fmt.Sprintf(logPrefixFormatter, module),
		builtinlog.Ldate|builtinlog.Ltime|builtinlog.LUTC)

	return &DefLog{logger: logger, module: module}
}

// DefLog is a logger implementation built on top of the standard go log
// package, used when the host installs no provider of its own.
// Log format: [<MODULE NAME>] <TIME IN UTC> -> <LOG LEVEL> <LOG TEXT>.
type DefLog struct {
	logger *builtinlog.Logger
	module string
}

// Fatalf is CRITICAL log formatted followed by a call to os.Exit(1).
func (l *DefLog) Fatalf(format string, args ...interface{}) {
	l.logf(log.CRITICAL, format, args...)
	os.Exit(1)
}

// Panicf is CRITICAL log formatted followed by a call to panic().
func (l *DefLog) Panicf(format string, args ...interface{}) {
	l.logf(log.CRITICAL, format, args...)
	panic(fmt.Sprintf(format, args...))
}

// Debugf can be used for logging verbose messages.
// Arguments are handled in the manner of fmt.Printf.
func (l *DefLog) Debugf(format string, args ...interface{}) {
	l.logf(log.DEBUG, format, args...)
}

// Infof can be used for logging general information messages.
// INFO is the default logging level.
// Arguments are handled in the manner of fmt.Printf.
func (l *DefLog) Infof(format string, args ...interface{}) {
	l.logf(log.INFO, format, args...)
}

// Warnf can be used for logging possible errors.
// Arguments are handled in the manner of fmt.Printf.
func (l *DefLog) Warnf(format string, args ...interface{}) {
	l.logf(log.WARNING, format, args...)
}

// Errorf can be used for logging errors.
// Arguments are handled in the manner of fmt.Printf.
func (l *DefLog) Errorf(format string, args ...interface{}) {
	l.logf(log.ERROR, format, args...)
}

// SetOutput sets the output destination for the logger.
func (l *DefLog) SetOutput(output io.Writer) {
	l.logger.SetOutput(output)
}

func (l *DefLog) logf(level log.Level, format string, args ...interface{}) {
	const callDepth = 2

	customPrefix := fmt.Sprintf(logLevelFormatter, metadata.ParseString(level))

	err := l.logger.Output(callDepth, customPrefix+fmt.Sprintf(format, args...))
	if err != nil {
		fmt.Printf("error from logger.Output %v\n", err) //nolint:forbidigo
	}
}
