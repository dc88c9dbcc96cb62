/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package storage defines the sealed-storage capabilities the credential
// store composes. Implementations live outside the core: mobile platforms
// back DeviceKeystore with their secure enclave and AtomicBlobStore with the
// app sandbox filesystem, while tests use the in-memory versions under
// component/storageutil.
package storage

import "errors"

// ErrKeystore is returned (possibly wrapped) by DeviceKeystore
// implementations when sealing or opening fails, including when the
// associated data presented on open does not match the data used to seal.
var ErrKeystore = errors.New("keystore failure")

// ErrBlobStore is returned (possibly wrapped) by AtomicBlobStore
// implementations on local I/O failure. Absence of a path is not a failure:
// Read reports it as a nil value.
var ErrBlobStore = errors.New("blob store failure")

// DeviceKeystore wraps and unwraps opaque payloads under platform-held key
// material using authenticated encryption. The key never leaves the
// platform keystore; callers only see ciphertext.
//
// Seal binds associatedData into the authentication tag. OpenSealed must be
// called with byte-identical associatedData or it fails with ErrKeystore —
// a mismatch means tampering or misuse, not just corruption.
type DeviceKeystore interface {
	Seal(associatedData, plaintext []byte) ([]byte, error)
	OpenSealed(associatedData, ciphertext []byte) ([]byte, error)
}

// AtomicBlobStore persists opaque byte blobs under slash-separated path
// keys.
//
// WriteAtomic is all-or-nothing with respect to process crash: a reader
// observes either the previous contents or the new contents, never a
// partial write. Read of an absent path returns (nil, nil). Delete of an
// absent path is a no-op.
type AtomicBlobStore interface {
	Read(path string) ([]byte, error)
	WriteAtomic(path string, data []byte) error
	Delete(path string) error
}

// Paths locates the storage root. The credential store derives its own
// subtree ("worldid/...") beneath it; embedders choose where that root
// lives on each platform.
type Paths interface {
	Root() string
}

// Provider supplies the full set of storage capabilities.
type Provider interface {
	Keystore() DeviceKeystore
	BlobStore() AtomicBlobStore
	Paths() Paths
}
