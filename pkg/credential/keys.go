/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/tink/go/aead/subtle"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/worldcoin/walletkit/pkg/walleterror"
	spistorage "github.com/worldcoin/walletkit/spi/storage"
)

const (
	envelopeVersion = 1

	envelopeAD  = "worldid:account-key-envelope"
	vaultWrapAD = "worldid:vault-key-wrap"

	cacheSalt = "worldid:cache-salt-v1"
	cacheInfo = "worldid:cache-key"

	keyLen = 32
)

// openMu single-flights key creation: when no envelope exists yet, only one
// concurrent open may create it.
//
//nolint:gochecknoglobals
var openMu sync.Mutex

// envelope is the CBOR key document persisted at the envelope path. The
// account key is sealed by the device keystore; the vault key is wrapped
// under the account key so rotating the platform sealing does not force a
// vault re-encryption.
type envelope struct {
	Version          int    `cbor:"version"`
	SealedAccountKey []byte `cbor:"sealed_account_key"`
	WrappedVaultKey  []byte `cbor:"wrapped_vault_key"`
	CreatedAt        int64  `cbor:"created_at"`
	UpdatedAt        int64  `cbor:"updated_at"`
}

// keyring holds the derived key hierarchy for one open store. The cache key
// is an HKDF child of the account key, so regenerable cache state never
// shares a key with the vault.
type keyring struct {
	vaultAEAD *subtle.AESGCM
	cacheAEAD *subtle.AESGCM
}

func openOrCreateKeyring(keystore spistorage.DeviceKeystore,
	blobs spistorage.AtomicBlobStore, now int64) (*keyring, error) {
	openMu.Lock()
	defer openMu.Unlock()

	raw, err := blobs.Read(envelopePath)
	if err != nil {
		return nil, walleterror.New(walleterror.CodeBlobStore, err)
	}

	if raw == nil {
		return createKeyring(keystore, blobs, now)
	}

	var env envelope

	if err := cbor.Unmarshal(raw, &env); err != nil {
		return nil, walleterror.New(walleterror.CodeCorruptedVault,
			fmt.Errorf("decode key envelope: %w", err))
	}

	if env.Version != envelopeVersion {
		return nil, walleterror.New(walleterror.CodeUnsupportedEnvelopeVersion,
			fmt.Errorf("envelope version %d, supported %d", env.Version, envelopeVersion))
	}

	accountKey, err := keystore.OpenSealed([]byte(envelopeAD), env.SealedAccountKey)
	if err != nil {
		return nil, walleterror.New(walleterror.CodeKeystore, err)
	}

	vaultKey, err := unwrapVaultKey(accountKey, env.WrappedVaultKey)
	if err != nil {
		return nil, err
	}

	return deriveKeyring(accountKey, vaultKey)
}

func createKeyring(keystore spistorage.DeviceKeystore,
	blobs spistorage.AtomicBlobStore, now int64) (*keyring, error) {
	accountKey := make([]byte, keyLen)
	vaultKey := make([]byte, keyLen)

	if _, err := rand.Read(accountKey); err != nil {
		return nil, walleterror.New(walleterror.CodeKeystore, err)
	}

	if _, err := rand.Read(vaultKey); err != nil {
		return nil, walleterror.New(walleterror.CodeKeystore, err)
	}

	sealed, err := keystore.Seal([]byte(envelopeAD), accountKey)
	if err != nil {
		return nil, walleterror.New(walleterror.CodeKeystore, err)
	}

	wrapped, err := wrapVaultKey(accountKey, vaultKey)
	if err != nil {
		return nil, err
	}

	env := envelope{
		Version:          envelopeVersion,
		SealedAccountKey: sealed,
		WrappedVaultKey:  wrapped,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	raw, err := cbor.Marshal(&env)
	if err != nil {
		return nil, walleterror.New(walleterror.CodeBlobStore, err)
	}

	if err := blobs.WriteAtomic(envelopePath, raw); err != nil {
		return nil, walleterror.New(walleterror.CodeBlobStore, err)
	}

	return deriveKeyring(accountKey, vaultKey)
}

func wrapVaultKey(accountKey, vaultKey []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(accountKey)
	if err != nil {
		return nil, walleterror.New(walleterror.CodeKeystore, err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)

	if _, err := rand.Read(nonce); err != nil {
		return nil, walleterror.New(walleterror.CodeKeystore, err)
	}

	return aead.Seal(nonce, nonce, vaultKey, []byte(vaultWrapAD)), nil
}

func unwrapVaultKey(accountKey, wrapped []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(accountKey)
	if err != nil {
		return nil, walleterror.New(walleterror.CodeKeystore, err)
	}

	if len(wrapped) < chacha20poly1305.NonceSizeX {
		return nil, walleterror.New(walleterror.CodeCorruptedVault,
			fmt.Errorf("wrapped vault key too short: %d bytes", len(wrapped)))
	}

	nonce, box := wrapped[:chacha20poly1305.NonceSizeX], wrapped[chacha20poly1305.NonceSizeX:]

	vaultKey, err := aead.Open(nil, nonce, box, []byte(vaultWrapAD))
	if err != nil {
		return nil, walleterror.New(walleterror.CodeCorruptedVault,
			fmt.Errorf("unwrap vault key: %w", err))
	}

	return vaultKey, nil
}

func deriveKeyring(accountKey, vaultKey []byte) (*keyring, error) {
	cacheKey := make([]byte, keyLen)

	kdf := hkdf.New(sha256.New, accountKey, []byte(cacheSalt), []byte(cacheInfo))

	if _, err := io.ReadFull(kdf, cacheKey); err != nil {
		return nil, walleterror.New(walleterror.CodeKeystore, err)
	}

	vaultAEAD, err := subtle.NewAESGCM(vaultKey)
	if err != nil {
		return nil, walleterror.New(walleterror.CodeKeystore, err)
	}

	cacheAEAD, err := subtle.NewAESGCM(cacheKey)
	if err != nil {
		return nil, walleterror.New(walleterror.CodeKeystore, err)
	}

	return &keyring{vaultAEAD: vaultAEAD, cacheAEAD: cacheAEAD}, nil
}
