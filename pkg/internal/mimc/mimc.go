/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mimc wraps the native MiMC hash over the BN254 scalar field. The
// same construction is evaluated in-circuit by the proof engine; the two
// must stay in agreement, so all out-of-circuit MiMC hashing in this module
// goes through this package.
package mimc

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"github.com/worldcoin/walletkit/pkg/u256"
)

// Sum hashes the given field values in order and returns the digest as a
// U256. Inputs are reduced into the scalar field before hashing.
func Sum(values ...u256.U256) u256.U256 {
	h := mimc.NewMiMC()

	for _, v := range values {
		e := v.ToFieldElement()
		buf := e.Bytes()

		// Canonical field bytes always fit a block.
		_, _ = h.Write(buf[:])
	}

	out, _ := u256.FromBytesBE(h.Sum(nil))

	return out
}
