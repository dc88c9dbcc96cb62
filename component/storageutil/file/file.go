/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package file provides a file-backed AtomicBlobStore rooted in a
// directory, with write-temp-then-rename atomicity. Combined with a
// platform DeviceKeystore it forms a complete storage provider for
// desktop-class embedders and integration tests.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	spi "github.com/worldcoin/walletkit/spi/storage"
)

// Provider bundles a caller-supplied keystore with a file blob store.
type Provider struct {
	keystore  spi.DeviceKeystore
	blobStore *BlobStore
	paths     paths
}

// NewProvider roots a storage provider at dir, using the given keystore
// for sealing.
func NewProvider(dir string, keystore spi.DeviceKeystore) (*Provider, error) {
	blobStore, err := NewBlobStore(dir)
	if err != nil {
		return nil, err
	}

	return &Provider{
		keystore:  keystore,
		blobStore: blobStore,
		paths:     paths(dir),
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

// BlobStore stores blobs as files under a root directory. Path keys are
// slash-separated and must stay inside the root.
type BlobStore struct {
	root string
}

// NewBlobStore creates the root directory if needed and returns a store
// over it.
func NewBlobStore(root string) (*BlobStore, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, errors.Wrap(spi.ErrBlobStore, err.Error())
	}

	return &BlobStore{root: root}, nil
}

// Read implements spi.AtomicBlobStore. Absence is (nil, nil).
func (b *BlobStore) Read(path string) ([]byte, error) {
	full, err := b.resolve(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, errors.Wrap(spi.ErrBlobStore, err.Error())
	}

	return data, nil
}

// WriteAtomic implements spi.AtomicBlobStore: the data is written to a
// temporary file in the target directory, synced, then renamed over the
// destination. A crash mid-write leaves either the old contents or the new
// ones, never a torn file.
func (b *BlobStore) WriteAtomic(path string, data []byte) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(full)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(spi.ErrBlobStore, err.Error())
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(spi.ErrBlobStore, err.Error())
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return errors.Wrap(spi.ErrBlobStore, err.Error())
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return errors.Wrap(spi.ErrBlobStore, err.Error())
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return errors.Wrap(spi.ErrBlobStore, err.Error())
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)

		return errors.Wrap(spi.ErrBlobStore, err.Error())
	}

	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)

		return errors.Wrap(spi.ErrBlobStore, err.Error())
	}

	return nil
}

// Delete implements spi.AtomicBlobStore. Deleting an absent path is a
// no-op.
func (b *BlobStore) Delete(path string) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(spi.ErrBlobStore, err.Error())
	}

	return nil
}

// resolve maps a slash-separated path key onto the filesystem and rejects
// escapes from the root.
func (b *BlobStore) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))

	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) ||
		filepath.IsAbs(clean) {
		return "", errors.Wrap(spi.ErrBlobStore,
			fmt.Sprintf("path %q escapes the storage root", path))
	}

	return filepath.Join(b.root, clean), nil
}
