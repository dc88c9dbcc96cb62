/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/worldcoin/walletkit/component/storageutil/mem"
	"github.com/worldcoin/walletkit/pkg/credential"
	"github.com/worldcoin/walletkit/pkg/merkle"
	"github.com/worldcoin/walletkit/pkg/u256"
	"github.com/worldcoin/walletkit/pkg/walleterror"
	spi "github.com/worldcoin/walletkit/spi/storage"
)

const now = int64(1_700_000_000)

func newStore(t *testing.T) (*credential.Store, *mem.Provider) {
	t.Helper()

	provider, err := mem.NewProvider()
	require.NoError(t, err)

	store, err := credential.Open(provider, now)
	require.NoError(t, err)

	return store, provider
}

func blinding(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, credential.BlindingFactorLen)
}

func TestInitOnce(t *testing.T) {
	store, _ := newStore(t)

	require.NoError(t, store.Init(7, now))

	// Same index is a no-op.
	require.NoError(t, store.Init(7, now))

	// A different index is a state-machine violation.
	err := store.Init(8, now)
	require.ErrorIs(t, err, walleterror.ErrAlreadyInitialized)

	index, ok := store.LeafIndex()
	require.True(t, ok)
	require.Equal(t, uint64(7), index)
}

func TestStoreCredentialRoundTrip(t *testing.T) {
	store, _ := newStore(t)

	params := credential.StoreCredentialParams{
		IssuerSchemaID:        42,
		Status:                credential.StatusActive,
		SubjectBlindingFactor: blinding(0xaa),
		GenesisIssuedAt:       now - 100,
		ExpiresAt:             now + 86400,
		Blob:                  []byte("credential payload"),
		AssociatedData:        []byte("issuer metadata"),
	}

	id, err := store.StoreCredential(params, now)
	require.NoError(t, err)
	require.Len(t, id[:], 16)

	records, err := store.ListCredentials(nil, now)
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	require.Equal(t, id, record.ID)
	require.Equal(t, uint64(42), record.IssuerSchemaID)
	require.Equal(t, credential.StatusActive, record.Status)
	require.Equal(t, params.SubjectBlindingFactor, record.SubjectBlindingFactor)
	require.Equal(t, params.GenesisIssuedAt, record.GenesisIssuedAt)
	require.Equal(t, params.ExpiresAt, record.ExpiresAt)

	blob, err := store.CredentialBlob(id)
	require.NoError(t, err)
	require.Equal(t, params.Blob, blob)

	assoc, err := store.AssociatedData(id)
	require.NoError(t, err)
	require.Equal(t, params.AssociatedData, assoc)
}

func TestStoreCredentialBlindingFactorLength(t *testing.T) {
	store, _ := newStore(t)

	for _, n := range []int{0, 31, 33} {
		_, err := store.StoreCredential(credential.StoreCredentialParams{
			SubjectBlindingFactor: make([]byte, n),
			Blob:                  []byte("x"),
		}, now)
		require.ErrorIs(t, err, walleterror.ErrInvalidInput, "length %d", n)
	}
}

func TestCredentialIDsUnique(t *testing.T) {
	store, _ := newStore(t)

	seen := make(map[credential.ID]bool)

	for i := 0; i < 16; i++ {
		id, err := store.StoreCredential(credential.StoreCredentialParams{
			SubjectBlindingFactor: blinding(byte(i)),
			Blob:                  []byte{byte(i)},
		}, now)
		require.NoError(t, err)
		require.False(t, seen[id])

		seen[id] = true
	}
}

func TestLazyExpiry(t *testing.T) {
	store, _ := newStore(t)

	id, err := store.StoreCredential(credential.StoreCredentialParams{
		SubjectBlindingFactor: blinding(1),
		ExpiresAt:             now + 100,
		Blob:                  []byte("short-lived"),
	}, now)
	require.NoError(t, err)

	records, err := store.ListCredentials(nil, now)
	require.NoError(t, err)
	require.Equal(t, credential.StatusActive, records[0].Status)

	// Past the expiry the same stored record reports Expired; the read
	// does not mutate stored state, so an earlier `now` still sees Active.
	records, err = store.ListCredentials(nil, now+100)
	require.NoError(t, err)
	require.Equal(t, credential.StatusExpired, records[0].Status)

	records, err = store.ListCredentials(nil, now)
	require.NoError(t, err)
	require.Equal(t, credential.StatusActive, records[0].Status)

	_ = id
}

func TestRevoke(t *testing.T) {
	store, _ := newStore(t)

	id, err := store.StoreCredential(credential.StoreCredentialParams{
		IssuerSchemaID:        9,
		SubjectBlindingFactor: blinding(2),
		Blob:                  []byte("data"),
	}, now)
	require.NoError(t, err)

	require.NoError(t, store.RevokeCredential(id, now+1))
	require.NoError(t, store.RevokeCredential(id, now+2)) // idempotent

	records, err := store.ListCredentials(nil, now+3)
	require.NoError(t, err)
	require.Equal(t, credential.StatusRevoked, records[0].Status)

	_, err = store.GetCredential(9, now+3)
	require.ErrorIs(t, err, walleterror.ErrCredentialNotFound)

	err = store.RevokeCredential(credential.ID{0xff}, now)
	require.ErrorIs(t, err, walleterror.ErrCredentialNotFound)
}

func TestGetCredentialPrefersMostRecent(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.StoreCredential(credential.StoreCredentialParams{
		IssuerSchemaID:        5,
		SubjectBlindingFactor: blinding(1),
		Blob:                  []byte("old"),
	}, now)
	require.NoError(t, err)

	newer, err := store.StoreCredential(credential.StoreCredentialParams{
		IssuerSchemaID:        5,
		SubjectBlindingFactor: blinding(2),
		Blob:                  []byte("new"),
	}, now+10)
	require.NoError(t, err)

	record, err := store.GetCredential(5, now+20)
	require.NoError(t, err)
	require.Equal(t, newer, record.ID)
}

func TestListCredentialsFilter(t *testing.T) {
	store, _ := newStore(t)

	for _, schema := range []uint64{1, 1, 2} {
		_, err := store.StoreCredential(credential.StoreCredentialParams{
			IssuerSchemaID:        schema,
			SubjectBlindingFactor: blinding(byte(schema)),
			Blob:                  []byte("x"),
		}, now)
		require.NoError(t, err)
	}

	schema := uint64(1)

	records, err := store.ListCredentials(&schema, now)
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestDeleteAllCredentials(t *testing.T) {
	store, provider := newStore(t)

	require.NoError(t, store.Init(3, now))

	id, err := store.StoreCredential(credential.StoreCredentialParams{
		SubjectBlindingFactor: blinding(1),
		Blob:                  []byte("data"),
		AssociatedData:        []byte("meta"),
	}, now)
	require.NoError(t, err)

	require.NoError(t, store.DeleteAllCredentials())

	records, err := store.ListCredentials(nil, now)
	require.NoError(t, err)
	require.Empty(t, records)

	_, ok := store.LeafIndex()
	require.False(t, ok)

	_, err = store.CredentialBlob(id)
	require.ErrorIs(t, err, walleterror.ErrCredentialNotFound)

	// Only the key envelope and the two indices remain on disk.
	blobs, ok := provider.BlobStore().(*mem.BlobStore)
	require.True(t, ok)
	require.LessOrEqual(t, blobs.Len(), 3)
}

func TestMerkleCacheTTL(t *testing.T) {
	store, _ := newStore(t)

	root := u256.FromUint64(12345)
	proofBytes := []byte("serialized proof")

	require.NoError(t, store.MerkleCachePut(merkle.KindWorldID, root, proofBytes, now, 900))

	got, err := store.MerkleCacheGet(merkle.KindWorldID, root, now)
	require.NoError(t, err)
	require.Equal(t, proofBytes, got)

	// Boundary: an entry expiring exactly at validBefore is absent.
	got, err = store.MerkleCacheGet(merkle.KindWorldID, root, now+900)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = store.MerkleCacheGet(merkle.KindWorldID, root, now+899)
	require.NoError(t, err)
	require.Equal(t, proofBytes, got)

	// Absent key.
	got, err = store.MerkleCacheGet(merkle.KindWorldID, u256.FromUint64(1), now)
	require.NoError(t, err)
	require.Nil(t, got)

	// Kind is part of the key.
	got, err = store.MerkleCacheGet(merkle.KindDocument, root, now)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestBeginProofDisclosureIdempotence(t *testing.T) {
	store, _ := newStore(t)

	requestID := bytes.Repeat([]byte{0x01}, 32)
	nullifier := bytes.Repeat([]byte{0x02}, 32)
	p1 := []byte("proof-one")
	p2 := []byte("proof-two")

	first, err := store.BeginProofDisclosure(requestID, nullifier, p1, now, 900)
	require.NoError(t, err)
	require.False(t, first.Replay)
	require.Equal(t, p1, first.Proof)

	// Replay returns the original bytes, never the caller's new ones.
	second, err := store.BeginProofDisclosure(requestID, nullifier, p2, now+10, 900)
	require.NoError(t, err)
	require.True(t, second.Replay)
	require.Equal(t, p1, second.Proof)

	require.True(t, store.IsNullifierDisclosed(nullifier, now+10))
}

func TestBeginProofDisclosureNullifierReuse(t *testing.T) {
	store, _ := newStore(t)

	nullifier := bytes.Repeat([]byte{0x03}, 32)

	_, err := store.BeginProofDisclosure(bytes.Repeat([]byte{0x01}, 32), nullifier,
		[]byte("p1"), now, 900)
	require.NoError(t, err)

	// Same nullifier under a different request id: one nullifier, one
	// live disclosure.
	_, err = store.BeginProofDisclosure(bytes.Repeat([]byte{0x02}, 32), nullifier,
		[]byte("p2"), now, 900)
	require.ErrorIs(t, err, walleterror.ErrNullifierAlreadyDisclosed)
}

func TestBeginProofDisclosureExpiryReopens(t *testing.T) {
	store, _ := newStore(t)

	requestID := bytes.Repeat([]byte{0x04}, 32)
	nullifier := bytes.Repeat([]byte{0x05}, 32)

	_, err := store.BeginProofDisclosure(requestID, nullifier, []byte("p1"), now, 900)
	require.NoError(t, err)

	// Past the TTL the record is absent and may be overwritten Fresh.
	result, err := store.BeginProofDisclosure(requestID, nullifier, []byte("p2"), now+900, 900)
	require.NoError(t, err)
	require.False(t, result.Replay)
	require.Equal(t, []byte("p2"), result.Proof)

	require.False(t, store.IsNullifierDisclosed(nullifier, now+2000))
}

func TestBeginProofDisclosureLinearized(t *testing.T) {
	store, _ := newStore(t)

	requestID := bytes.Repeat([]byte{0x06}, 32)
	nullifier := bytes.Repeat([]byte{0x07}, 32)

	const goroutines = 16

	var wg sync.WaitGroup

	results := make([]*credential.DisclosureResult, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			r, err := store.BeginProofDisclosure(requestID, nullifier,
				[]byte{byte(i)}, now, 900)
			require.NoError(t, err)

			results[i] = r
		}(i)
	}

	wg.Wait()

	// Exactly one Fresh; every loser observes the winner's bytes.
	var fresh int

	var winner []byte

	for _, r := range results {
		if !r.Replay {
			fresh++
			winner = r.Proof
		}
	}

	require.Equal(t, 1, fresh)

	for _, r := range results {
		require.Equal(t, winner, r.Proof)
	}
}

func TestSessionKeys(t *testing.T) {
	store, _ := newStore(t)

	require.NoError(t, store.SessionKeyPut("session-a", []byte("randomness"), now, 600))

	require.Equal(t, []byte("randomness"), store.SessionKeyGet("session-a", now))
	require.Nil(t, store.SessionKeyGet("session-a", now+600))
	require.Nil(t, store.SessionKeyGet("session-b", now))
}

func TestPersistenceAcrossReopen(t *testing.T) {
	provider, err := mem.NewProvider()
	require.NoError(t, err)

	store, err := credential.Open(provider, now)
	require.NoError(t, err)

	require.NoError(t, store.Init(11, now))

	id, err := store.StoreCredential(credential.StoreCredentialParams{
		IssuerSchemaID:        1,
		SubjectBlindingFactor: blinding(9),
		Blob:                  []byte("persisted"),
	}, now)
	require.NoError(t, err)

	// Reopening over the same capabilities sees the same state.
	reopened, err := credential.Open(provider, now+10)
	require.NoError(t, err)

	index, ok := reopened.LeafIndex()
	require.True(t, ok)
	require.Equal(t, uint64(11), index)

	blob, err := reopened.CredentialBlob(id)
	require.NoError(t, err)
	require.Equal(t, []byte("persisted"), blob)
}

func TestReopenWithDifferentKeystoreFails(t *testing.T) {
	provider, err := mem.NewProvider()
	require.NoError(t, err)

	_, err = credential.Open(provider, now)
	require.NoError(t, err)

	// A different keystore cannot open the sealed account key.
	otherKeystore, err := mem.NewKeystore()
	require.NoError(t, err)

	hybrid := &providerWithKeystore{Provider: provider, keystore: otherKeystore}

	_, err = credential.Open(hybrid, now)
	require.ErrorIs(t, err, walleterror.ErrKeystore)
}

func TestCorruptVaultIndexFailsClosed(t *testing.T) {
	provider, err := mem.NewProvider()
	require.NoError(t, err)

	store, err := credential.Open(provider, now)
	require.NoError(t, err)

	_, err = store.StoreCredential(credential.StoreCredentialParams{
		SubjectBlindingFactor: blinding(1),
		Blob:                  []byte("x"),
	}, now)
	require.NoError(t, err)

	require.NoError(t, provider.BlobStore().WriteAtomic("worldid/vault.index",
		[]byte("garbage")))

	_, err = credential.Open(provider, now)
	require.ErrorIs(t, err, walleterror.ErrCorruptedVault)
}

func TestCorruptCacheIndexSelfHeals(t *testing.T) {
	provider, err := mem.NewProvider()
	require.NoError(t, err)

	store, err := credential.Open(provider, now)
	require.NoError(t, err)

	root := u256.FromUint64(1)
	require.NoError(t, store.MerkleCachePut(merkle.KindWorldID, root, []byte("p"), now, 900))

	require.NoError(t, provider.BlobStore().WriteAtomic("worldid/cache.index",
		[]byte("garbage")))

	// The cache is regenerable: a corrupt index is discarded, not fatal.
	reopened, err := credential.Open(provider, now)
	require.NoError(t, err)

	got, err := reopened.MerkleCacheGet(merkle.KindWorldID, root, now)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestUnsupportedEnvelopeVersion(t *testing.T) {
	provider, err := mem.NewProvider()
	require.NoError(t, err)

	_, err = credential.Open(provider, now)
	require.NoError(t, err)

	// CBOR {"version": 2}.
	require.NoError(t, provider.BlobStore().WriteAtomic("worldid/account_keys.bin",
		[]byte{0xa1, 0x67, 'v', 'e', 'r', 's', 'i', 'o', 'n', 0x02}))

	_, err = credential.Open(provider, now)
	require.ErrorIs(t, err, walleterror.ErrUnsupportedEnvelopeVersion)
}

// providerWithKeystore swaps the keystore while keeping the blob store.
type providerWithKeystore struct {
	*mem.Provider
	keystore *mem.Keystore
}

func (p *providerWithKeystore) Keystore() spi.DeviceKeystore {
	return p.keystore
}
