/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walleterror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodesAndGroups(t *testing.T) {
	tests := []struct {
		err   *Error
		code  Code
		group Group
	}{
		{ErrInvalidInput, CodeInvalidInput, Validation},
		{ErrInvalidMerkleProof, CodeInvalidMerkleProof, Validation},
		{ErrInvalidProof, CodeInvalidProof, Crypto},
		{ErrKeystore, CodeKeystore, Crypto},
		{ErrBlobStore, CodeBlobStore, Storage},
		{ErrAlreadyInitialized, CodeAlreadyInitialized, Storage},
		{ErrUnsupportedEnvelopeVersion, CodeUnsupportedEnvelopeVersion, Storage},
		{ErrCorruptedVault, CodeCorruptedVault, Storage},
		{ErrCredentialNotFound, CodeCredentialNotFound, Business},
		{ErrNullifierAlreadyDisclosed, CodeNullifierAlreadyDisclosed, Business},
		{ErrAccountDoesNotExist, CodeAccountDoesNotExist, Business},
		{ErrTransport, CodeTransport, Transport},
	}

	for _, tc := range tests {
		require.Equal(t, tc.code, tc.err.Code())
		require.Equal(t, tc.group, tc.err.Group())
	}
}

func TestErrorMatchingByCode(t *testing.T) {
	err := NewInvalidInput("rpc_url", errors.New("must not be empty"))

	require.True(t, errors.Is(err, ErrInvalidInput))
	require.False(t, errors.Is(err, ErrInvalidProof))
	require.Equal(t, "rpc_url", err.Attribute())
}

func TestErrorMatchingThroughWrapping(t *testing.T) {
	inner := New(CodeAccountDoesNotExist, nil)
	wrapped := fmt.Errorf("init: %w", inner)

	require.True(t, errors.Is(wrapped, ErrAccountDoesNotExist))

	var taxErr *Error
	require.True(t, errors.As(wrapped, &taxErr))
	require.Equal(t, CodeAccountDoesNotExist, taxErr.Code())
}

func TestErrorMessages(t *testing.T) {
	require.Equal(t, "invalid input (attribute=seed)", NewInvalidInput("seed", nil).Error())
	require.Equal(t, "invalid input (attribute=seed): too short",
		NewInvalidInput("seed", errors.New("too short")).Error())
	require.Equal(t, "account does not exist", New(CodeAccountDoesNotExist, nil).Error())
	require.Equal(t, "keystore failure: tag mismatch",
		New(CodeKeystore, errors.New("tag mismatch")).Error())
	require.Equal(t, "unknown failure", New(UnknownStatus, nil).Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connect timeout")
	err := New(CodeTransport, cause)

	require.Equal(t, cause, errors.Unwrap(err))
	require.True(t, err.Retryable())
	require.False(t, New(CodeInvalidProof, nil).Retryable())
}
