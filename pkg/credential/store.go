/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package credential implements the encrypted, atomically-updated local
// store for World ID credentials: CRUD over credential records, a
// Merkle-inclusion-proof cache with TTL eviction, and the proof-disclosure
// replay-protection ledger. Everything persistent is written through the
// injected AtomicBlobStore under keys sealed by the DeviceKeystore; the
// keystore never sees plaintext credential data.
package credential

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/worldcoin/walletkit/component/log"
	"github.com/worldcoin/walletkit/pkg/merkle"
	"github.com/worldcoin/walletkit/pkg/u256"
	"github.com/worldcoin/walletkit/pkg/walleterror"
	spistorage "github.com/worldcoin/walletkit/spi/storage"
)

// Storage layout under the blob store.
const (
	envelopePath   = "worldid/account_keys.bin"
	vaultIndexPath = "worldid/vault.index"
	cacheIndexPath = "worldid/cache.index"
	blobDirPrefix  = "worldid/blobs/"
)

// BlindingFactorLen is the required subject blinding factor length.
const BlindingFactorLen = 32

var logger = log.New("walletkit/credential")

// Store is the credential store for one account. All operations are
// linearized by a store-wide mutex; `now` is always passed explicitly so
// expiry is evaluated lazily at read time and tests control the clock.
// One process per store root is assumed.
type Store struct {
	mu    sync.Mutex
	blobs spistorage.AtomicBlobStore
	keys  *keyring
	vault *vaultIndex
	cache *cacheIndex
}

// Open opens (or on first use creates) the store backed by the provider's
// capabilities. Key creation is single-flight guarded: when several opens
// race on a fresh store, exactly one creates the key envelope.
func Open(provider spistorage.Provider, now int64) (*Store, error) {
	blobs := provider.BlobStore()

	keys, err := openOrCreateKeyring(provider.Keystore(), blobs, now)
	if err != nil {
		return nil, err
	}

	s := &Store{blobs: blobs, keys: keys}

	vault, err := s.loadVaultIndex()
	if err != nil {
		return nil, err
	}

	s.vault = vault
	s.cache = s.loadCacheIndex()

	return s, nil
}

// Init binds the account's registry leaf index, once. A second call with
// the same index is a no-op; a different index fails with
// AlreadyInitialized naming both values.
func (s *Store) Init(leafIndex uint64, _ int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vault.LeafIndex != nil {
		if *s.vault.LeafIndex == leafIndex {
			return nil
		}

		return walleterror.New(walleterror.CodeAlreadyInitialized,
			fmt.Errorf("bound to leaf index %d, got %d", *s.vault.LeafIndex, leafIndex))
	}

	s.vault.LeafIndex = &leafIndex

	return s.saveVaultIndex()
}

// LeafIndex returns the bound registry leaf index, if initialized.
func (s *Store) LeafIndex() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vault.LeafIndex == nil {
		return 0, false
	}

	return *s.vault.LeafIndex, true
}

// StoreCredentialParams are the inputs to StoreCredential.
type StoreCredentialParams struct {
	IssuerSchemaID        uint64
	Status                Status
	SubjectBlindingFactor []byte
	GenesisIssuedAt       int64
	ExpiresAt             int64 // 0 = never
	Blob                  []byte
	AssociatedData        []byte
}

// StoreCredential writes a new credential record with a fresh random
// 16-byte id. The blob (and associated data, if any) are written as
// content-addressed encrypted objects before the index references them, so
// a crash leaves at worst an orphan object, never a dangling reference.
func (s *Store) StoreCredential(params StoreCredentialParams, now int64) (ID, error) {
	if len(params.SubjectBlindingFactor) != BlindingFactorLen {
		return ID{}, walleterror.NewInvalidInput("subject_blinding_factor",
			fmt.Errorf("expected %d bytes, got %d",
				BlindingFactorLen, len(params.SubjectBlindingFactor)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blobCID, err := s.writeBlob(kindCredentialBlob, params.Blob)
	if err != nil {
		return ID{}, err
	}

	var assocCID *contentID

	if params.AssociatedData != nil {
		cid, err := s.writeBlob(kindAssociatedData, params.AssociatedData)
		if err != nil {
			return ID{}, err
		}

		assocCID = &cid
	}

	status := params.Status
	if status == "" {
		status = StatusActive
	}

	record := &Record{
		ID:                    ID(uuid.New()),
		IssuerSchemaID:        params.IssuerSchemaID,
		Status:                status,
		SubjectBlindingFactor: append([]byte(nil), params.SubjectBlindingFactor...),
		GenesisIssuedAt:       params.GenesisIssuedAt,
		ExpiresAt:             params.ExpiresAt,
		UpdatedAt:             now,
		BlobID:                blobCID,
		AssociatedDataID:      assocCID,
	}

	s.vault.Records = append(s.vault.Records, record)

	if err := s.saveVaultIndex(); err != nil {
		return ID{}, err
	}

	return record.ID, nil
}

// ListCredentials returns all records, optionally filtered by issuer
// schema, with status computed against now and ordered most recently
// updated first.
func (s *Store) ListCredentials(issuerSchemaID *uint64, now int64) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Record, 0, len(s.vault.Records))

	for _, r := range s.vault.Records {
		if issuerSchemaID != nil && r.IssuerSchemaID != *issuerSchemaID {
			continue
		}

		out = append(out, r.clone(now))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt > out[j].UpdatedAt
	})

	return out, nil
}

// GetCredential returns the most recently updated Active credential for the
// schema, or CredentialNotFound.
func (s *Store) GetCredential(issuerSchemaID uint64, now int64) (*Record, error) {
	records, err := s.ListCredentials(&issuerSchemaID, now)
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		if r.Status == StatusActive {
			return r, nil
		}
	}

	return nil, walleterror.New(walleterror.CodeCredentialNotFound,
		fmt.Errorf("no active credential for issuer schema %d", issuerSchemaID))
}

// RevokeCredential moves a credential from Active to Revoked. Revoking an
// already revoked credential is a no-op; there is no way back out of
// Revoked.
func (s *Store) RevokeCredential(id ID, now int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.findRecord(id)
	if record == nil {
		return walleterror.New(walleterror.CodeCredentialNotFound,
			fmt.Errorf("credential %s", id))
	}

	if record.Status == StatusRevoked {
		return nil
	}

	record.Status = StatusRevoked
	record.UpdatedAt = now

	return s.saveVaultIndex()
}

// CredentialBlob decrypts and returns the credential blob for the id.
func (s *Store) CredentialBlob(id ID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.findRecord(id)
	if record == nil {
		return nil, walleterror.New(walleterror.CodeCredentialNotFound,
			fmt.Errorf("credential %s", id))
	}

	return s.readBlob(record.BlobID)
}

// AssociatedData decrypts and returns the associated data for the id, or
// nil when the credential was stored without any.
func (s *Store) AssociatedData(id ID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.findRecord(id)
	if record == nil {
		return nil, walleterror.New(walleterror.CodeCredentialNotFound,
			fmt.Errorf("credential %s", id))
	}

	if record.AssociatedDataID == nil {
		return nil, nil
	}

	return s.readBlob(*record.AssociatedDataID)
}

// DeleteAllCredentials removes every record, its blob objects, and the
// leaf-index binding.
func (s *Store) DeleteAllCredentials() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.vault.Records {
		if err := s.deleteBlob(r.BlobID); err != nil {
			return err
		}

		if r.AssociatedDataID != nil {
			if err := s.deleteBlob(*r.AssociatedDataID); err != nil {
				return err
			}
		}
	}

	s.vault.Records = nil
	s.vault.LeafIndex = nil

	return s.saveVaultIndex()
}

// MerkleCachePut stores serialized proof bytes for (kind, root) with a TTL.
func (s *Store) MerkleCachePut(kind merkle.Kind, root u256.U256,
	proofBytes []byte, now, ttlSeconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Merkle[merkleCacheKey(kind, root)] = &merkleEntry{
		Proof:     append([]byte(nil), proofBytes...),
		ExpiresAt: now + ttlSeconds,
	}

	return s.saveCacheIndex()
}

// MerkleCacheGet returns the cached proof bytes for (kind, root), or nil
// when the entry is absent or expires at or before validBefore. Expiry is
// lazy: an expired entry is treated as absent without an eager sweep.
func (s *Store) MerkleCacheGet(kind merkle.Kind, root u256.U256, validBefore int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache.Merkle[merkleCacheKey(kind, root)]
	if !ok || entry.ExpiresAt <= validBefore {
		return nil, nil
	}

	return append([]byte(nil), entry.Proof...), nil
}

// DisclosureResult is the outcome of BeginProofDisclosure. When Replay is
// set, Proof carries the originally disclosed bytes: the caller already
// disclosed for this key, and this is what was disclosed.
type DisclosureResult struct {
	Replay bool
	Proof  []byte
}

// BeginProofDisclosure is the double-spend-prevention primitive for proof
// presentation. Behaviour per (requestID, nullifier) key:
//
//  1. an unexpired record under the same request id returns Replay with the
//     original bytes, never the caller's new ones;
//  2. an unexpired record carrying the same nullifier under a different
//     request id fails with NullifierAlreadyDisclosed;
//  3. otherwise the record is written and the result is Fresh.
//
// Calls are linearized by the store mutex, so a racing loser always
// observes the winner's bytes; two Fresh results for one key are
// impossible. Expired records are treated as absent and overwritten.
func (s *Store) BeginProofDisclosure(requestID, nullifier, proofBytes []byte,
	now, ttlSeconds int64) (*DisclosureResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := disclosureKey(requestID)

	if rec, ok := s.cache.Disclosures[key]; ok && now < rec.ExpiresAt {
		return &DisclosureResult{
			Replay: true,
			Proof:  append([]byte(nil), rec.Proof...),
		}, nil
	}

	nullifierKey := disclosureKey(nullifier)

	for otherKey, rec := range s.cache.Disclosures {
		if otherKey == key || now >= rec.ExpiresAt {
			continue
		}

		if disclosureKey(rec.Nullifier) == nullifierKey {
			return nil, walleterror.New(walleterror.CodeNullifierAlreadyDisclosed,
				fmt.Errorf("nullifier has a live disclosure under another request"))
		}
	}

	s.cache.Disclosures[key] = &disclosureRecord{
		Nullifier: append([]byte(nil), nullifier...),
		Proof:     append([]byte(nil), proofBytes...),
		ExpiresAt: now + ttlSeconds,
	}

	if err := s.saveCacheIndex(); err != nil {
		return nil, err
	}

	return &DisclosureResult{Proof: append([]byte(nil), proofBytes...)}, nil
}

// DisclosureGet returns the originally disclosed bytes for a request id
// when an unexpired record exists. Read-only peek used to skip proof
// generation on a known replay.
func (s *Store) DisclosureGet(requestID []byte, now int64) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.cache.Disclosures[disclosureKey(requestID)]
	if !ok || now >= rec.ExpiresAt {
		return nil, false
	}

	return append([]byte(nil), rec.Proof...), true
}

// IsNullifierDisclosed reports whether the nullifier has a live disclosure.
func (s *Store) IsNullifierDisclosed(nullifier []byte, now int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := disclosureKey(nullifier)

	for _, rec := range s.cache.Disclosures {
		if now < rec.ExpiresAt && disclosureKey(rec.Nullifier) == key {
			return true
		}
	}

	return false
}

// SessionKeyPut stores a small TTL'd secret in the cache index, keeping
// session randomness stable across app restarts.
func (s *Store) SessionKeyPut(id string, key []byte, now, ttlSeconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Sessions[id] = &sessionEntry{
		Key:       append([]byte(nil), key...),
		ExpiresAt: now + ttlSeconds,
	}

	return s.saveCacheIndex()
}

// SessionKeyGet returns the stored session key, or nil when absent or
// expired.
func (s *Store) SessionKeyGet(id string, now int64) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache.Sessions[id]
	if !ok || entry.ExpiresAt <= now {
		return nil
	}

	return append([]byte(nil), entry.Key...)
}

func (s *Store) findRecord(id ID) *Record {
	for _, r := range s.vault.Records {
		if r.ID == id {
			return r
		}
	}

	return nil
}
