/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mem provides in-memory implementations of the storage
// capabilities for tests and ephemeral profiles: a DeviceKeystore sealing
// under a random process-local key, and an AtomicBlobStore backed by a map.
package mem

import (
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/google/tink/go/aead/subtle"

	spi "github.com/worldcoin/walletkit/spi/storage"
)

// Provider bundles the in-memory capabilities.
type Provider struct {
	keystore  *Keystore
	blobStore *BlobStore
	paths     paths
}

// NewProvider creates a fresh in-memory storage provider.
func NewProvider() (*Provider, error) {
	keystore, err := NewKeystore()
	if err != nil {
		return nil, err
	}

	return &Provider{
		keystore:  keystore,
		blobStore: NewBlobStore(),
		paths:     paths("mem://"),
	}, nil
}

// Keystore implements spi.Provider.
func (p *Provider) Keystore() spi.DeviceKeystore {
	return p.keystore
}

// BlobStore implements spi.Provider.
func (p *Provider) BlobStore() spi.AtomicBlobStore {
	return p.blobStore
}

// Paths implements spi.Provider.
func (p *Provider) Paths() spi.Paths {
	return p.paths
}

type paths string

func (p paths) Root() string {
	return string(p)
}

// Keystore is an in-memory DeviceKeystore. The sealing key is generated
// per instance and never leaves it, mirroring how platform keystores hold
// key material out of the caller's reach.
type Keystore struct {
	aead *subtle.AESGCM
}

// NewKeystore creates a keystore with a fresh random key.
func NewKeystore() (*Keystore, error) {
	key := make([]byte, 32)

	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: %v", spi.ErrKeystore, err)
	}

	aead, err := subtle.NewAESGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", spi.ErrKeystore, err)
	}

	return &Keystore{aead: aead}, nil
}

// Seal implements spi.DeviceKeystore.
func (k *Keystore) Seal(associatedData, plaintext []byte) ([]byte, error) {
	ciphertext, err := k.aead.Encrypt(plaintext, associatedData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", spi.ErrKeystore, err)
	}

	return ciphertext, nil
}

// OpenSealed implements spi.DeviceKeystore. A mismatched associated data
// fails; corrupted ciphertext is never silently returned.
func (k *Keystore) OpenSealed(associatedData, ciphertext []byte) ([]byte, error) {
	plaintext, err := k.aead.Decrypt(ciphertext, associatedData)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", spi.ErrKeystore)
	}

	return plaintext, nil
}

// BlobStore is an in-memory AtomicBlobStore. Map replacement under the
// lock gives the same all-or-nothing visibility the contract demands.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewBlobStore creates an empty in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

// Read implements spi.AtomicBlobStore. Absence is (nil, nil).
func (b *BlobStore) Read(path string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.blobs[path]
	if !ok {
		return nil, nil
	}

	return append([]byte(nil), data...), nil
}

// WriteAtomic implements spi.AtomicBlobStore.
func (b *BlobStore) WriteAtomic(path string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.blobs[path] = append([]byte(nil), data...)

	return nil
}

// Delete implements spi.AtomicBlobStore. Deleting an absent path is a
// no-op.
func (b *BlobStore) Delete(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.blobs, path)

	return nil
}

// Len reports the number of stored blobs. Test helper.
func (b *BlobStore) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.blobs)
}
