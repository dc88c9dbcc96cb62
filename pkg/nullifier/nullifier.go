/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package nullifier derives external nullifiers: the public field elements
// that bind a proof to a disclosure context (application id + action). The
// derivation matches the World ID Protocol convention used by the Developer
// Portal and the on-chain verifier, so it must remain byte-stable for a
// given scheme version.
package nullifier

import (
	"golang.org/x/crypto/sha3"

	"github.com/worldcoin/walletkit/pkg/u256"
)

// Version identifies the derivation scheme baked into a Context.
type Version int

const (
	// VersionRaw marks a context built from a precomputed external
	// nullifier, bypassing derivation. Compatibility escape hatch for
	// pre-convention nullifiers, not a default path.
	VersionRaw Version = 0

	// Version1 is the length-stable keccak derivation scheme. The only
	// defined scheme; frozen by on-chain registrations.
	Version1 Version = 1
)

// Context identifies a disclosure context to prove against. Same (app id,
// action) always yields the same external nullifier; distinct contexts
// differ with cryptographic-hash strength.
type Context struct {
	externalNullifier u256.U256
	version           Version
}

// HashToField hashes arbitrary bytes into the BN254 scalar field: keccak256
// of the input, keeping the first 31 bytes as a big-endian integer. The
// one-byte shift keeps the result strictly below the field modulus.
func HashToField(data []byte) u256.U256 {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(data)

	digest := h.Sum(nil)

	v, _ := u256.FromBytesBE(digest[:31]) // 31 bytes always fit

	return v
}

// New derives a scheme-version-1 context from an application id and an
// optional action. The pre-image is the 32-byte big-endian hash of the app
// id followed by the raw action bytes; nil and empty actions are
// equivalent.
func New(appID string, action []byte) Context {
	appHash := HashToField([]byte(appID)).Bytes32()

	preImage := make([]byte, 0, len(appHash)+len(action))
	preImage = append(preImage, appHash[:]...)
	preImage = append(preImage, action...)

	return Context{
		externalNullifier: HashToField(preImage),
		version:           Version1,
	}
}

// FromRaw wraps a precomputed external nullifier without derivation.
func FromRaw(externalNullifier u256.U256) Context {
	return Context{
		externalNullifier: externalNullifier,
		version:           VersionRaw,
	}
}

// ExternalNullifier returns the derived (or raw) external nullifier.
func (c Context) ExternalNullifier() u256.U256 {
	return c.externalNullifier
}

// Version returns the derivation scheme of this context.
func (c Context) Version() Version {
	return c.version
}
