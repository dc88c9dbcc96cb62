/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/worldcoin/walletkit/pkg/merkle"
	"github.com/worldcoin/walletkit/pkg/u256"
	"github.com/worldcoin/walletkit/pkg/walleterror"
)

// vaultIndex is the encrypted record catalogue plus the account's registry
// leaf-index binding. Corruption here is fatal: unlike the cache index, the
// vault is never silently rebuilt.
type vaultIndex struct {
	LeafIndex *uint64   `cbor:"leaf_index,omitempty"`
	Records   []*Record `cbor:"records"`
}

// cacheIndex holds regenerable state: the Merkle-proof cache, the
// proof-disclosure ledger and short-lived session keys. A corrupt cache
// index is discarded and rebuilt empty.
type cacheIndex struct {
	Merkle      map[string]*merkleEntry      `cbor:"merkle"`
	Disclosures map[string]*disclosureRecord `cbor:"disclosures"`
	Sessions    map[string]*sessionEntry     `cbor:"sessions"`
}

type merkleEntry struct {
	Proof     []byte `cbor:"proof"`
	ExpiresAt int64  `cbor:"expires_at"`
}

type disclosureRecord struct {
	Nullifier []byte `cbor:"nullifier"`
	Proof     []byte `cbor:"proof"`
	ExpiresAt int64  `cbor:"expires_at"`
}

type sessionEntry struct {
	Key       []byte `cbor:"key"`
	ExpiresAt int64  `cbor:"expires_at"`
}

func newCacheIndex() *cacheIndex {
	return &cacheIndex{
		Merkle:      make(map[string]*merkleEntry),
		Disclosures: make(map[string]*disclosureRecord),
		Sessions:    make(map[string]*sessionEntry),
	}
}

// merkleCacheKey builds the (registry kind, root) cache key.
func merkleCacheKey(kind merkle.Kind, root u256.U256) string {
	return fmt.Sprintf("%d:%s", kind, root.Hex())
}

func disclosureKey(requestID []byte) string {
	return hex.EncodeToString(requestID)
}

func (s *Store) loadVaultIndex() (*vaultIndex, error) {
	ciphertext, err := s.blobs.Read(vaultIndexPath)
	if err != nil {
		return nil, walleterror.New(walleterror.CodeBlobStore, err)
	}

	if ciphertext == nil {
		return &vaultIndex{}, nil
	}

	plaintext, err := s.keys.vaultAEAD.Decrypt(ciphertext, []byte(vaultIndexPath))
	if err != nil {
		return nil, walleterror.New(walleterror.CodeCorruptedVault,
			fmt.Errorf("vault index fails authentication: %w", err))
	}

	var index vaultIndex

	if err := cbor.Unmarshal(plaintext, &index); err != nil {
		return nil, walleterror.New(walleterror.CodeCorruptedVault,
			fmt.Errorf("decode vault index: %w", err))
	}

	return &index, nil
}

func (s *Store) saveVaultIndex() error {
	plaintext, err := cbor.Marshal(s.vault)
	if err != nil {
		return walleterror.New(walleterror.CodeBlobStore, err)
	}

	ciphertext, err := s.keys.vaultAEAD.Encrypt(plaintext, []byte(vaultIndexPath))
	if err != nil {
		return walleterror.New(walleterror.CodeKeystore, err)
	}

	if err := s.blobs.WriteAtomic(vaultIndexPath, ciphertext); err != nil {
		return walleterror.New(walleterror.CodeBlobStore, err)
	}

	return nil
}

func (s *Store) loadCacheIndex() *cacheIndex {
	ciphertext, err := s.blobs.Read(cacheIndexPath)
	if err != nil || ciphertext == nil {
		return newCacheIndex()
	}

	plaintext, err := s.keys.cacheAEAD.Decrypt(ciphertext, []byte(cacheIndexPath))
	if err != nil {
		logger.Warnf("cache index fails authentication, rebuilding empty: %v", err)

		return newCacheIndex()
	}

	var index cacheIndex

	if err := cbor.Unmarshal(plaintext, &index); err != nil {
		logger.Warnf("cache index undecodable, rebuilding empty: %v", err)

		return newCacheIndex()
	}

	if index.Merkle == nil {
		index.Merkle = make(map[string]*merkleEntry)
	}

	if index.Disclosures == nil {
		index.Disclosures = make(map[string]*disclosureRecord)
	}

	if index.Sessions == nil {
		index.Sessions = make(map[string]*sessionEntry)
	}

	return &index
}

func (s *Store) saveCacheIndex() error {
	plaintext, err := cbor.Marshal(s.cache)
	if err != nil {
		return walleterror.New(walleterror.CodeBlobStore, err)
	}

	ciphertext, err := s.keys.cacheAEAD.Encrypt(plaintext, []byte(cacheIndexPath))
	if err != nil {
		return walleterror.New(walleterror.CodeKeystore, err)
	}

	if err := s.blobs.WriteAtomic(cacheIndexPath, ciphertext); err != nil {
		return walleterror.New(walleterror.CodeBlobStore, err)
	}

	return nil
}
