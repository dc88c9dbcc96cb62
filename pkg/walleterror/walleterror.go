/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package walleterror defines the closed error taxonomy exposed across the
// binding boundary. Every failure leaving the public API is one of the codes
// below; internal helper errors are wrapped before they cross, so embedders
// can branch on stable discriminants instead of Go error strings.
package walleterror

import (
	"fmt"
)

// Group classifies codes by how the caller should react.
// Note: use the [0-9]*000 pattern for any new entries.
type Group int32

const (
	// Validation groups caller-fixable input errors. Never retried.
	Validation Group = 1000

	// Crypto groups cryptographic failures: corrupted state or malicious
	// input. Non-retryable.
	Crypto Group = 2000

	// Storage groups local I/O and state-machine violations.
	Storage Group = 3000

	// Business groups expected non-exceptional outcomes the caller must
	// branch on.
	Business Group = 4000

	// Transport groups registry/RPC failures. Retryable at the caller's
	// discretion.
	Transport Group = 5000
)

// Code is the stable error discriminant of the taxonomy.
type Code int32

const (
	// UnknownStatus is the default code for unclassified errors.
	UnknownStatus Code = 0

	// CodeInvalidInput reports a caller-supplied value that failed
	// validation; the attribute names the offending field.
	CodeInvalidInput Code = 1001

	// CodeInvalidMerkleProof reports an inclusion proof whose shape does
	// not match the configured registry tree.
	CodeInvalidMerkleProof Code = 1002

	// CodeInvalidProof reports a malformed zero-knowledge proof record.
	// A well-formed proof that merely fails verification is not an error.
	CodeInvalidProof Code = 2001

	// CodeKeystore reports a device keystore seal/open failure, including
	// associated-data mismatches.
	CodeKeystore Code = 2002

	// CodeBlobStore reports a blob store I/O failure.
	CodeBlobStore Code = 3001

	// CodeAlreadyInitialized reports a second store initialization with a
	// conflicting leaf index.
	CodeAlreadyInitialized Code = 3002

	// CodeUnsupportedEnvelopeVersion reports a key envelope written by an
	// incompatible (newer) library version.
	CodeUnsupportedEnvelopeVersion Code = 3003

	// CodeCorruptedVault reports vault state that fails authentication or
	// decoding. Unlike the cache, the vault is never silently rebuilt.
	CodeCorruptedVault Code = 3004

	// CodeCredentialNotFound reports that no live credential matches the
	// requested issuer schema.
	CodeCredentialNotFound Code = 4001

	// CodeNullifierAlreadyDisclosed reports a nullifier with a live
	// disclosure under a different request.
	CodeNullifierAlreadyDisclosed Code = 4002

	// CodeAccountDoesNotExist reports that the registry has no account for
	// the derived commitment.
	CodeAccountDoesNotExist Code = 4003

	// CodeTransport reports a registry/RPC transport failure or timeout.
	CodeTransport Code = 5001
)

var codeMessages = map[Code]string{
	UnknownStatus:                  "unknown failure",
	CodeInvalidInput:               "invalid input",
	CodeInvalidMerkleProof:         "invalid merkle proof",
	CodeInvalidProof:               "invalid proof",
	CodeKeystore:                   "keystore failure",
	CodeBlobStore:                  "blob store failure",
	CodeAlreadyInitialized:         "store already initialized",
	CodeUnsupportedEnvelopeVersion: "unsupported key envelope version",
	CodeCorruptedVault:             "corrupted vault",
	CodeCredentialNotFound:         "credential not found",
	CodeNullifierAlreadyDisclosed:  "nullifier already disclosed",
	CodeAccountDoesNotExist:        "account does not exist",
	CodeTransport:                  "transport failure",
}

// Sentinels for errors.Is branching. Two taxonomy errors match when their
// codes match, so callers can test any returned error against these.
//
//nolint:gochecknoglobals
var (
	ErrInvalidInput               = &Error{code: CodeInvalidInput}
	ErrInvalidMerkleProof         = &Error{code: CodeInvalidMerkleProof}
	ErrInvalidProof               = &Error{code: CodeInvalidProof}
	ErrKeystore                   = &Error{code: CodeKeystore}
	ErrBlobStore                  = &Error{code: CodeBlobStore}
	ErrAlreadyInitialized         = &Error{code: CodeAlreadyInitialized}
	ErrUnsupportedEnvelopeVersion = &Error{code: CodeUnsupportedEnvelopeVersion}
	ErrCorruptedVault             = &Error{code: CodeCorruptedVault}
	ErrCredentialNotFound         = &Error{code: CodeCredentialNotFound}
	ErrNullifierAlreadyDisclosed  = &Error{code: CodeNullifierAlreadyDisclosed}
	ErrAccountDoesNotExist        = &Error{code: CodeAccountDoesNotExist}
	ErrTransport                  = &Error{code: CodeTransport}
)

// Error is the taxonomy error condition. The nil value represents no error.
type Error struct {
	code      Code
	attribute string
	cause     error
}

// New returns a taxonomy error with the given code wrapping cause.
func New(code Code, cause error) *Error {
	return &Error{code: code, cause: cause}
}

// NewInvalidInput returns a validation error naming the offending attribute.
func NewInvalidInput(attribute string, cause error) *Error {
	return &Error{code: CodeInvalidInput, attribute: attribute, cause: cause}
}

// Error implements the error interface. Messages never include secret
// material; only the code message, the attribute and the cause chain.
func (e *Error) Error() string {
	msg, ok := codeMessages[e.code]
	if !ok {
		msg = codeMessages[UnknownStatus]
	}

	switch {
	case e.attribute != "" && e.cause != nil:
		return fmt.Sprintf("%s (attribute=%s): %v", msg, e.attribute, e.cause)
	case e.attribute != "":
		return fmt.Sprintf("%s (attribute=%s)", msg, e.attribute)
	case e.cause != nil:
		return fmt.Sprintf("%s: %v", msg, e.cause)
	default:
		return msg
	}
}

// Code returns the stable discriminant for this error.
func (e *Error) Code() Code {
	return e.code
}

// Group returns the error group the code belongs to.
func (e *Error) Group() Group {
	return Group(int32(e.code) / 1000 * 1000)
}

// Attribute returns the offending field for validation errors, or "".
func (e *Error) Attribute() string {
	return e.attribute
}

// Unwrap exposes the cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches taxonomy errors by code, enabling errors.Is against the
// package sentinels regardless of attribute or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.code == e.code
}

// Retryable reports whether the caller may reasonably retry the operation.
// Only transport failures qualify; the core never retries internally.
func (e *Error) Retryable() bool {
	return e.Group() == Transport
}
