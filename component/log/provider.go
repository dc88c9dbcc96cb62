/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import (
	"sync"

	"github.com/worldcoin/walletkit/component/log/internal/modlog"
	"github.com/worldcoin/walletkit/spi/log"
)

// loggerProviderInstance is logger factory singleton - access only via loggerProvider()
//
//nolint:gochecknoglobals
var (
	loggerProviderInstance log.LoggerProvider
	loggerProviderOnce     sync.Once
)

// Initialize sets a new custom logging provider which takes over logging
// operations. Install-once: the first call (or the first log line, whichever
// happens first) wins; subsequent calls are no-ops and log a warning through
// the installed provider.
func Initialize(l log.LoggerProvider) {
	installed := false

	loggerProviderOnce.Do(func() {
		loggerProviderInstance = &modlogProvider{l}
		installed = true

		logger := loggerProviderInstance.GetLogger(loggerModule)
		logger.Debugf("Logger provider initialized")
	})

	if !installed {
		loggerProviderInstance.GetLogger(loggerModule).Warnf("Logger provider already set, ignoring")
	}
}

func loggerProvider() log.LoggerProvider {
	loggerProviderOnce.Do(func() {
		// A custom logger must be initialized prior to the first log output
		// Otherwise the built-in logger is used
		loggerProviderInstance = &modlogProvider{}
		logger := loggerProviderInstance.GetLogger(loggerModule)
		logger.Debugf(loggerNotInitializedMsg)
	})

	return loggerProviderInstance
}

// modlogProvider is a module based logger provider wrapped on given custom logging provider
// if custom logger provider is not provided, then default logger will be used.
type modlogProvider struct {
	custom log.LoggerProvider
}

// GetLogger returns moduled logger implementation.
func (p *modlogProvider) GetLogger(module string) log.Logger {
	var logger log.Logger
	if p.custom != nil {
		logger = p.custom.GetLogger(module)
	} else {
		logger = modlog.NewDefLog(module)
	}

	return modlog.NewModLog(logger, module)
}
