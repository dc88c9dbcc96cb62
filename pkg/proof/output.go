/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package proof

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/worldcoin/walletkit/pkg/u256"
	"github.com/worldcoin/walletkit/pkg/walleterror"
)

// HexBytes marshals as a 0x-prefixed hex string, the form verifiers expect
// for proof bytes on the wire.
type HexBytes []byte

// MarshalJSON encodes 0x-prefixed hex.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(b))
}

// UnmarshalJSON decodes hex with an optional 0x prefix.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var s string

	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return walleterror.NewInvalidInput("proof", err)
	}

	*b = raw

	return nil
}

// Output is the public result of proof generation, serializable to JSON for
// submission to an external verifier or registry. Everything in it is safe
// to transmit.
type Output struct {
	Proof             HexBytes  `json:"proof"`
	MerkleRoot        u256.U256 `json:"merkle_root"`
	NullifierHash     u256.U256 `json:"nullifier_hash"`
	ExternalNullifier u256.U256 `json:"external_nullifier"`
	SignalHash        u256.U256 `json:"signal_hash"`
}

// Encode returns the canonical JSON form.
func (o *Output) Encode() ([]byte, error) {
	return json.Marshal(o)
}

// DecodeOutput parses the canonical JSON form.
func DecodeOutput(data []byte) (*Output, error) {
	var out Output

	if err := json.Unmarshal(data, &out); err != nil {
		return nil, walleterror.NewInvalidInput("output", err)
	}

	return &out, nil
}
