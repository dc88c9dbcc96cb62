/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package modlog

import (
	"testing"

	"github.com/worldcoin/walletkit/component/log/internal/metadata"
)

func TestDefLog(t *testing.T) {
	const module = "sample-module"

	// prepare default logging
	defLog := NewDefLog(module)

	logger := NewModLog(defLog, module)
	SwitchLogOutputToBuffer(logger)
	VerifyDefaultLogging(t, logger, module, metadata.SetLevel)
}
