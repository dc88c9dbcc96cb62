/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"crypto/sha256"
	"fmt"

	"github.com/multiformats/go-multibase"

	"github.com/worldcoin/walletkit/pkg/walleterror"
)

// blobKind domain-separates the content id of the two object flavours.
type blobKind byte

const (
	kindCredentialBlob blobKind = 1
	kindAssociatedData blobKind = 2
)

// blobDomain is the domain label mixed into every content id.
const blobDomain = "worldid:blob-object"

// contentID addresses a blob object by its plaintext content. Identical
// plaintext of the same kind deduplicates to one object on disk.
type contentID [sha256.Size]byte

func newContentID(kind blobKind, plaintext []byte) contentID {
	h := sha256.New()
	h.Write([]byte(blobDomain))
	h.Write([]byte{byte(kind)})
	h.Write(plaintext)

	var cid contentID

	copy(cid[:], h.Sum(nil))

	return cid
}

// path returns the blob-store path of the object: multibase base32 keeps
// file names safe on case-insensitive volumes.
func (c contentID) path() string {
	encoded, _ := multibase.Encode(multibase.Base32, c[:])

	return blobDirPrefix + encoded
}

// writeBlob encrypts and persists a blob object, returning its content id.
// The object path is the AEAD associated data, so an object moved to
// another path fails authentication on read.
func (s *Store) writeBlob(kind blobKind, plaintext []byte) (contentID, error) {
	cid := newContentID(kind, plaintext)
	path := cid.path()

	ciphertext, err := s.keys.vaultAEAD.Encrypt(plaintext, []byte(path))
	if err != nil {
		return contentID{}, walleterror.New(walleterror.CodeKeystore, err)
	}

	if err := s.blobs.WriteAtomic(path, ciphertext); err != nil {
		return contentID{}, walleterror.New(walleterror.CodeBlobStore, err)
	}

	return cid, nil
}

// readBlob fetches and decrypts a blob object.
func (s *Store) readBlob(cid contentID) ([]byte, error) {
	path := cid.path()

	ciphertext, err := s.blobs.Read(path)
	if err != nil {
		return nil, walleterror.New(walleterror.CodeBlobStore, err)
	}

	if ciphertext == nil {
		return nil, walleterror.New(walleterror.CodeCorruptedVault,
			fmt.Errorf("blob object %s referenced by the index is missing", path))
	}

	plaintext, err := s.keys.vaultAEAD.Decrypt(ciphertext, []byte(path))
	if err != nil {
		return nil, walleterror.New(walleterror.CodeCorruptedVault,
			fmt.Errorf("blob object %s fails authentication: %w", path, err))
	}

	return plaintext, nil
}

// deleteBlob removes a blob object. Absence is not an error.
func (s *Store) deleteBlob(cid contentID) error {
	if err := s.blobs.Delete(cid.path()); err != nil {
		return walleterror.New(walleterror.CodeBlobStore, err)
	}

	return nil
}
