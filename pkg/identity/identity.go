/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package identity derives the Semaphore-style identity values of a World ID
// holder from a 32-byte secret: the per-credential-type identity trapdoor,
// the identity nullifier, and the identity commitment registered as the
// Merkle-tree leaf.
package identity

import (
	"fmt"

	"github.com/worldcoin/walletkit/pkg/internal/mimc"
	"github.com/worldcoin/walletkit/pkg/nullifier"
	"github.com/worldcoin/walletkit/pkg/u256"
	"github.com/worldcoin/walletkit/pkg/walleterror"
)

// SecretLen is the required holder secret length in bytes.
const SecretLen = 32

// identityNullifierDomain is the fixed domain label for the identity
// nullifier derivation, shared by all credential types.
var identityNullifierDomain = []byte("identity_nullifier")

// Secret is the 32-byte holder secret. It never leaves the device and is
// wiped on Close.
type Secret struct {
	key []byte
}

// NewSecret copies the given 32-byte secret. Any other length fails with an
// invalid-input error naming the "secret" attribute.
func NewSecret(raw []byte) (*Secret, error) {
	if len(raw) != SecretLen {
		return nil, walleterror.NewInvalidInput("secret",
			fmt.Errorf("expected %d bytes, got %d", SecretLen, len(raw)))
	}

	key := make([]byte, SecretLen)
	copy(key, raw)

	return &Secret{key: key}, nil
}

// Bytes exposes the secret for derivations. The returned slice aliases the
// internal buffer; callers must not retain it past the secret's lifetime.
func (s *Secret) Bytes() []byte {
	return s.key
}

// Zero overwrites the secret in place.
func (s *Secret) Zero() {
	for i := range s.key {
		s.key[i] = 0
	}
}

// Close implements io.Closer by wiping the secret.
func (s *Secret) Close() error {
	s.Zero()

	return nil
}

// WorldID derives the identity values for one holder secret. Derivations
// are deterministic: the same secret always yields the same trapdoor,
// nullifier and commitment for a given credential type.
type WorldID struct {
	secret *Secret
}

// New wraps a holder secret for identity derivation.
func New(secret *Secret) *WorldID {
	return &WorldID{secret: secret}
}

// Trapdoor derives the identity trapdoor for a credential type:
// HashToField(secret || type trapdoor label). Distinct credential types
// yield independent trapdoors from the same secret.
func (w *WorldID) Trapdoor(credType CredentialType) u256.U256 {
	return nullifier.HashToField(append(append([]byte{}, w.secret.Bytes()...),
		credType.IdentityTrapdoor()...))
}

// Nullifier derives the identity nullifier:
// HashToField(secret || "identity_nullifier"). Shared across credential
// types; the secret half of every nullifier hash.
func (w *WorldID) Nullifier() u256.U256 {
	return nullifier.HashToField(append(append([]byte{}, w.secret.Bytes()...),
		identityNullifierDomain...))
}

// Commitment derives the public identity commitment registered as the
// Merkle leaf: MiMC(trapdoor, nullifier) over BN254.
func (w *WorldID) Commitment(credType CredentialType) u256.U256 {
	return mimc.Sum(w.Trapdoor(credType), w.Nullifier())
}

// NullifierHash computes the public per-identity-per-context value enabling
// duplicate-proof detection: MiMC(external nullifier, identity nullifier).
// Same identity and context always produce the same value; a different
// identity or context produces a statistically independent one.
func (w *WorldID) NullifierHash(ctx nullifier.Context) u256.U256 {
	return mimc.Sum(ctx.ExternalNullifier(), w.Nullifier())
}
