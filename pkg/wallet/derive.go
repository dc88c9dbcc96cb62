/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/hkdf"

	"github.com/worldcoin/walletkit/pkg/walleterror"
)

// Derivation domain labels. Every per-context value is a pure function of
// (secret, context) under its own label, so derivations are reproducible
// and mutually independent.
const (
	accountIDDomain    = "worldid:account-id"
	issuerBlindDomain  = "worldid:issuer-blind"
	sessionDomain      = "worldid:session-r"
	actionScopeDomain  = "worldid:action-scope"
	proofRequestDomain = "worldid:proof-request"
)

// AccountID is the stable public identifier of an account, derived one-way
// from the holder secret.
type AccountID [sha256.Size]byte

// String returns the base58 short form.
func (a AccountID) String() string {
	return base58.Encode(a[:])
}

// AccountID derives the account identifier:
// SHA-256(domain || secret).
func (a *Authenticator) AccountID() AccountID {
	h := sha256.New()
	h.Write([]byte(accountIDDomain))
	h.Write(a.secret.Bytes())

	var id AccountID

	copy(id[:], h.Sum(nil))

	return id
}

// DeriveIssuerBlind derives the 32-byte per-issuer blinding value:
// HKDF-Expand(secret, domain || schema id). Deterministic per
// (secret, schema).
func (a *Authenticator) DeriveIssuerBlind(issuerSchemaID uint64) ([]byte, error) {
	info := make([]byte, 0, len(issuerBlindDomain)+8)
	info = append(info, issuerBlindDomain...)
	info = binary.LittleEndian.AppendUint64(info, issuerSchemaID)

	return a.expand(info)
}

// ActionScope derives the public scope tag of an (rp, action) pair:
// SHA-256(domain || rp id || ":" || action id). Secret-independent.
func ActionScope(rpID, actionID string) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(actionScopeDomain))
	h.Write([]byte(rpID))
	h.Write([]byte(":"))
	h.Write([]byte(actionID))

	var scope [sha256.Size]byte

	copy(scope[:], h.Sum(nil))

	return scope
}

// RequestID derives the disclosure-ledger key of one proof request:
// SHA-256(domain || action scope || nonce).
func RequestID(rpID, actionID string, nonce []byte) [sha256.Size]byte {
	scope := ActionScope(rpID, actionID)

	h := sha256.New()
	h.Write([]byte(proofRequestDomain))
	h.Write(scope[:])
	h.Write(nonce)

	var id [sha256.Size]byte

	copy(id[:], h.Sum(nil))

	return id
}

// DeriveSessionRandomness derives the 32-byte session randomness for an
// (rp, action) pair: HKDF-Expand(secret, domain || rp id || action id).
// The value is memoized in-process and persisted as a TTL'd session key so
// it stays stable across app restarts within the proof window.
func (a *Authenticator) DeriveSessionRandomness(rpID, actionID string, now int64) ([]byte, error) {
	scope := ActionScope(rpID, actionID)
	sessionID := hex.EncodeToString(scope[:])

	if cached, err := a.sessions.Get(sessionID); err == nil {
		if key, ok := cached.([]byte); ok {
			return append([]byte(nil), key...), nil
		}
	}

	if key := a.store.SessionKeyGet(sessionID, now); key != nil {
		a.memoizeSession(sessionID, key)

		return key, nil
	}

	info := make([]byte, 0, len(sessionDomain)+len(rpID)+len(actionID))
	info = append(info, sessionDomain...)
	info = append(info, rpID...)
	info = append(info, actionID...)

	key, err := a.expand(info)
	if err != nil {
		return nil, err
	}

	if err := a.store.SessionKeyPut(sessionID, key, now, a.cfg.ProofTTL); err != nil {
		return nil, err
	}

	a.memoizeSession(sessionID, key)

	return key, nil
}

func (a *Authenticator) memoizeSession(sessionID string, key []byte) {
	_ = a.sessions.Set(sessionID, append([]byte(nil), key...))
}

// expand runs HKDF-Expand over the holder secret with the given info.
func (a *Authenticator) expand(info []byte) ([]byte, error) {
	out := make([]byte, 32)

	if _, err := io.ReadFull(hkdf.Expand(sha256.New, a.secret.Bytes(), info), out); err != nil {
		return nil, walleterror.New(walleterror.CodeKeystore, err)
	}

	return out, nil
}
