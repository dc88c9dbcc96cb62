/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package zero_test

import (
	"bytes"
	"encoding/json"
	"testing"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/stretchr/testify/require"

	"github.com/worldcoin/walletkit/component/log/zero"
)

func TestProvider(t *testing.T) {
	var buf bytes.Buffer

	provider := zero.NewProvider(&buf)
	logger := provider.GetLogger("walletkit/test")

	logger.Infof("opened store with %d records", 3)

	var line map[string]interface{}

	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "walletkit/test", line["module"])
	require.Equal(t, "info", line["level"])
	require.Equal(t, "opened store with 3 records", line["message"])
	require.Contains(t, line, "time")
}

func TestProviderLevels(t *testing.T) {
	var buf bytes.Buffer

	logger := zero.NewProvider(&buf).GetLogger("walletkit/test")

	logger.Debugf("debug line")
	logger.Warnf("warn line")
	logger.Errorf("err line")

	require.Contains(t, buf.String(), `"level":"debug"`)
	require.Contains(t, buf.String(), `"level":"warn"`)
	require.Contains(t, buf.String(), `"level":"error"`)
}

func TestBridge(t *testing.T) {
	var buf bytes.Buffer

	provider := zero.NewProvider(&buf)
	provider.Bridge("walletkit/gnark")

	gl := gnarklogger.Logger()
	gl.Info().Msg("compiling")

	var line map[string]interface{}

	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "walletkit/gnark", line["module"])
	require.Equal(t, "compiling", line["message"])
}
