/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package zero provides a zerolog-backed LoggerProvider for hosts that want
// structured JSON output instead of the built-in text logger, and a bridge
// routing gnark's internal zerolog logger through the same sink so prover
// diagnostics land next to the library's own lines.
package zero

import (
	"io"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"

	"github.com/worldcoin/walletkit/spi/log"
)

// Provider is a log.LoggerProvider emitting structured zerolog events with a
// "module" field per logger.
type Provider struct {
	root zerolog.Logger
}

// NewProvider creates a provider writing JSON lines to w.
func NewProvider(w io.Writer) *Provider {
	return &Provider{
		root: zerolog.New(w).With().Timestamp().Logger(),
	}
}

// GetLogger implements log.LoggerProvider.
func (p *Provider) GetLogger(module string) log.Logger {
	return &logger{zl: p.root.With().Str("module", module).Logger()}
}

// Bridge replaces gnark's global logger with one writing through this
// provider, tagged with the given module name. Call once at process start,
// next to log.Initialize.
func (p *Provider) Bridge(module string) {
	gnarklogger.Set(p.root.With().Str("module", module).Logger())
}

type logger struct {
	zl zerolog.Logger
}

func (l *logger) Panicf(msg string, args ...interface{}) {
	l.zl.Panic().Msgf(msg, args...)
}

func (l *logger) Fatalf(msg string, args ...interface{}) {
	l.zl.Fatal().Msgf(msg, args...)
}

func (l *logger) Errorf(msg string, args ...interface{}) {
	l.zl.Error().Msgf(msg, args...)
}

func (l *logger) Warnf(msg string, args ...interface{}) {
	l.zl.Warn().Msgf(msg, args...)
}

func (l *logger) Infof(msg string, args ...interface{}) {
	l.zl.Info().Msgf(msg, args...)
}

func (l *logger) Debugf(msg string, args ...interface{}) {
	l.zl.Debug().Msgf(msg, args...)
}
