/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package merkle_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"github.com/worldcoin/walletkit/pkg/merkle"
	"github.com/worldcoin/walletkit/pkg/u256"
	"github.com/worldcoin/walletkit/pkg/walleterror"
)

func TestRegistryProofRoundTrip(t *testing.T) {
	reg := merkle.NewRegistry(merkle.KindWorldID, 10)

	commitments := []u256.U256{
		u256.FromUint64(101),
		u256.FromUint64(202),
		u256.FromUint64(303),
	}

	for i, c := range commitments {
		index, err := reg.Register(c)
		require.NoError(t, err)
		require.Equal(t, uint64(i), index)
	}

	for _, c := range commitments {
		proof, err := reg.InclusionProof(context.Background(), merkle.KindWorldID, c)
		require.NoError(t, err)
		require.Equal(t, 10, proof.Depth())
		require.Equal(t, reg.Root(), proof.Root)
		require.True(t, reg.Verify(proof, c))
	}
}

func TestRegistryVerifyRejectsWrongCommitment(t *testing.T) {
	reg := merkle.NewRegistry(merkle.KindWorldID, 10)

	_, err := reg.Register(u256.FromUint64(7))
	require.NoError(t, err)

	proof, err := reg.InclusionProof(context.Background(), merkle.KindWorldID, u256.FromUint64(7))
	require.NoError(t, err)

	require.False(t, reg.Verify(proof, u256.FromUint64(8)))

	tampered := *proof
	tampered.Root = u256.FromUint64(1)
	require.False(t, reg.Verify(&tampered, u256.FromUint64(7)))
}

func TestRegistryRootChangesOnRegister(t *testing.T) {
	reg := merkle.NewRegistry(merkle.KindWorldID, 10)

	emptyRoot := reg.Root()

	_, err := reg.Register(u256.FromUint64(1))
	require.NoError(t, err)

	require.NotEqual(t, emptyRoot, reg.Root())
}

func TestRegistryProductionDepthStaysCheap(t *testing.T) {
	// The sparse representation keeps depth-30 registration O(depth).
	reg := merkle.NewRegistry(merkle.KindWorldID, 30)

	_, err := reg.Register(u256.FromUint64(42))
	require.NoError(t, err)

	proof, err := reg.InclusionProof(context.Background(), merkle.KindWorldID, u256.FromUint64(42))
	require.NoError(t, err)
	require.Equal(t, 30, proof.Depth())
	require.True(t, reg.Verify(proof, u256.FromUint64(42)))
}

func TestLookupAccount(t *testing.T) {
	reg := merkle.NewRegistry(merkle.KindWorldID, 10)

	index, err := reg.Register(u256.FromUint64(55))
	require.NoError(t, err)

	found, err := reg.LookupAccount(context.Background(), u256.FromUint64(55))
	require.NoError(t, err)
	require.Equal(t, index, found)

	_, err = reg.LookupAccount(context.Background(), u256.FromUint64(56))
	require.ErrorIs(t, err, walleterror.ErrAccountDoesNotExist)
}

func TestRegistryKindMismatch(t *testing.T) {
	reg := merkle.NewRegistry(merkle.KindWorldID, 10)

	_, err := reg.LatestRoot(context.Background(), merkle.KindDocument)
	require.ErrorIs(t, err, walleterror.ErrTransport)
}

func TestInclusionProofJSONRoundTrip(t *testing.T) {
	reg := merkle.NewRegistry(merkle.KindWorldID, 6)

	for i := uint64(0); i < 5; i++ {
		_, err := reg.Register(u256.FromUint64(1000 + i))
		require.NoError(t, err)
	}

	// Index 3 exercises both Left and Right wire entries.
	proof, err := reg.InclusionProof(context.Background(), merkle.KindWorldID, u256.FromUint64(1003))
	require.NoError(t, err)

	data, err := json.Marshal(proof)
	require.NoError(t, err)

	var back merkle.InclusionProof

	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, proof.Root, back.Root)
	require.Equal(t, proof.LeafIndex, back.LeafIndex)
	require.Equal(t, proof.Siblings, back.Siblings)
}

func TestInclusionProofJSONWireShape(t *testing.T) {
	proof := &merkle.InclusionProof{
		Root:      u256.FromUint64(9),
		LeafIndex: 1, // bit 0 set: sibling at level 0 is on the left
		Siblings:  []u256.U256{u256.FromUint64(4), u256.FromUint64(5)},
	}

	data, err := json.Marshal(proof)
	require.NoError(t, err)

	var wire struct {
		Root  string                 `json:"root"`
		Proof []map[string]u256.U256 `json:"proof"`
	}

	require.NoError(t, json.Unmarshal(data, &wire))
	require.Len(t, wire.Proof, 2)
	require.Contains(t, wire.Proof[0], "Left")
	require.Contains(t, wire.Proof[1], "Right")
}

func TestInclusionProofJSONRejectsAmbiguousNode(t *testing.T) {
	var proof merkle.InclusionProof

	err := json.Unmarshal([]byte(`{"root":"0x0","proof":[{}]}`), &proof)
	require.ErrorIs(t, err, walleterror.ErrInvalidInput)
}

// flakyClient fails with transport errors a fixed number of times before
// delegating.
type flakyClient struct {
	merkle.RegistryClient
	failures int
	calls    int
}

func (f *flakyClient) LatestRoot(ctx context.Context, kind merkle.Kind) (u256.U256, error) {
	f.calls++

	if f.calls <= f.failures {
		return u256.U256{}, walleterror.New(walleterror.CodeTransport, errors.New("connection reset"))
	}

	return f.RegistryClient.LatestRoot(ctx, kind)
}

func (f *flakyClient) LookupAccount(ctx context.Context, commitment u256.U256) (uint64, error) {
	f.calls++

	return f.RegistryClient.LookupAccount(ctx, commitment)
}

func TestWithRetryRecoversTransportFailures(t *testing.T) {
	reg := merkle.NewRegistry(merkle.KindWorldID, 4)
	flaky := &flakyClient{RegistryClient: reg, failures: 2}

	client := merkle.WithRetry(flaky, func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 5)
	})

	root, err := client.LatestRoot(context.Background(), merkle.KindWorldID)
	require.NoError(t, err)
	require.Equal(t, reg.Root(), root)
	require.Equal(t, 3, flaky.calls)
}

func TestWithRetryDoesNotRetryBusinessOutcomes(t *testing.T) {
	reg := merkle.NewRegistry(merkle.KindWorldID, 4)
	flaky := &flakyClient{RegistryClient: reg}

	client := merkle.WithRetry(flaky, func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 5)
	})

	_, err := client.LookupAccount(context.Background(), u256.FromUint64(1))
	require.ErrorIs(t, err, walleterror.ErrAccountDoesNotExist)
	require.Equal(t, 1, flaky.calls)
}
