/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mem_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/worldcoin/walletkit/component/storageutil/mem"
	spi "github.com/worldcoin/walletkit/spi/storage"
)

func TestKeystoreSealOpenRoundTrip(t *testing.T) {
	keystore, err := mem.NewKeystore()
	require.NoError(t, err)

	ad := []byte("worldid:test-context")
	plaintext := []byte("secret key material")

	sealed, err := keystore.Seal(ad, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, sealed)

	opened, err := keystore.OpenSealed(ad, sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestKeystoreAssociatedDataMismatch(t *testing.T) {
	keystore, err := mem.NewKeystore()
	require.NoError(t, err)

	sealed, err := keystore.Seal([]byte("context-a"), []byte("payload"))
	require.NoError(t, err)

	opened, err := keystore.OpenSealed([]byte("context-b"), sealed)
	require.ErrorIs(t, err, spi.ErrKeystore)
	require.Nil(t, opened)
}

func TestKeystoreTamperedCiphertext(t *testing.T) {
	keystore, err := mem.NewKeystore()
	require.NoError(t, err)

	sealed, err := keystore.Seal([]byte("ad"), []byte("payload"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0x01

	_, err = keystore.OpenSealed([]byte("ad"), sealed)
	require.ErrorIs(t, err, spi.ErrKeystore)
}

func TestKeystoreInstancesAreIndependent(t *testing.T) {
	a, err := mem.NewKeystore()
	require.NoError(t, err)

	b, err := mem.NewKeystore()
	require.NoError(t, err)

	sealed, err := a.Seal([]byte("ad"), []byte("payload"))
	require.NoError(t, err)

	_, err = b.OpenSealed([]byte("ad"), sealed)
	require.ErrorIs(t, err, spi.ErrKeystore)
}

func TestBlobStore(t *testing.T) {
	store := mem.NewBlobStore()

	// Absence is (nil, nil), not an error.
	data, err := store.Read("worldid/missing")
	require.NoError(t, err)
	require.Nil(t, data)

	require.NoError(t, store.WriteAtomic("worldid/a", []byte("one")))
	require.NoError(t, store.WriteAtomic("worldid/a", []byte("two")))

	data, err = store.Read("worldid/a")
	require.NoError(t, err)
	require.Equal(t, []byte("two"), data)

	require.NoError(t, store.Delete("worldid/a"))
	require.NoError(t, store.Delete("worldid/a")) // idempotent

	data, err = store.Read("worldid/a")
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestBlobStoreCopiesData(t *testing.T) {
	store := mem.NewBlobStore()

	payload := []byte("mutable")
	require.NoError(t, store.WriteAtomic("worldid/p", payload))

	payload[0] = 'X'

	data, err := store.Read("worldid/p")
	require.NoError(t, err)
	require.Equal(t, []byte("mutable"), data)
}

func TestProvider(t *testing.T) {
	provider, err := mem.NewProvider()
	require.NoError(t, err)

	require.NotNil(t, provider.Keystore())
	require.NotNil(t, provider.BlobStore())
	require.Equal(t, "mem://", provider.Paths().Root())
}
