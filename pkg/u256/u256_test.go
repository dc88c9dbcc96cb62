/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package u256_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/worldcoin/walletkit/pkg/u256"
	"github.com/worldcoin/walletkit/pkg/walleterror"
)

func TestHexFixedWidth(t *testing.T) {
	require.Equal(t,
		"0x0000000000000000000000000000000000000000000000000000000000000000",
		u256.FromUint64(0).Hex())
	require.Equal(t,
		"0x0000000000000000000000000000000000000000000000000000000000000001",
		u256.FromUint64(1).Hex())
	require.Equal(t,
		"0x000000000000000000000000000000000000000000000000000000000000002a",
		u256.FromUint64(42).Hex())
	require.Equal(t,
		"0x00000000000000000000000000000000000000000000000000000000000f423f",
		u256.FromUint64(999999).Hex())
}

func TestHexRoundTripLargeValue(t *testing.T) {
	const h = "0xb10e2d527612073b26eecdfd717e6a320cf44b4afac2b0732d9fcbe2b7fa0cf6"

	v, err := u256.FromHexString(h)
	require.NoError(t, err)
	require.Equal(t, h, v.Hex())

	require.Equal(t,
		"80084422859880547211683076133703299733277748156566366325829078699459944778998",
		v.Decimal())
}

func TestFromHexStringPrefixOptional(t *testing.T) {
	withPrefix, err := u256.FromHexString("0x2a")
	require.NoError(t, err)

	noPrefix, err := u256.FromHexString("2a")
	require.NoError(t, err)

	require.Equal(t, withPrefix, noPrefix)
	require.Equal(t, u256.FromUint64(42), noPrefix)
}

func TestFromHexStringEmptyIsZero(t *testing.T) {
	v, err := u256.FromHexString("")
	require.NoError(t, err)
	require.True(t, v.IsZero())

	v, err = u256.FromHexString("0x")
	require.NoError(t, err)
	require.True(t, v.IsZero())
}

func TestFromHexStringInvalid(t *testing.T) {
	for _, s := range []string{"0xZZZZ", "1g", "not a hex string"} {
		_, err := u256.FromHexString(s)
		require.ErrorIs(t, err, walleterror.ErrInvalidInput, s)
	}

	// 65 digits exceed 256 bits.
	_, err := u256.FromHexString(
		"0x10000000000000000000000000000000000000000000000000000000000000000")
	require.ErrorIs(t, err, walleterror.ErrInvalidInput)
}

func TestDecimal(t *testing.T) {
	require.Equal(t, "12345", u256.FromUint64(12345).Decimal())
	require.Equal(t, "0", u256.FromUint64(0).Decimal())

	v, err := u256.FromDecimalString("999999")
	require.NoError(t, err)
	require.Equal(t, u256.FromUint64(999999), v)

	_, err = u256.FromDecimalString("12a45")
	require.ErrorIs(t, err, walleterror.ErrInvalidInput)

	_, err = u256.FromDecimalString("-1")
	require.ErrorIs(t, err, walleterror.ErrInvalidInput)

	// 2^256 overflows by one bit.
	_, err = u256.FromDecimalString(
		"115792089237316195423570985008687907853269984665640564039457584007913129639936")
	require.ErrorIs(t, err, walleterror.ErrInvalidInput)
}

func TestLimbsRoundTrip(t *testing.T) {
	limbs := []uint64{0xfedcba9876543210, 0x0123456789abcdef, 42, 1}

	v, err := u256.FromLimbs(limbs)
	require.NoError(t, err)
	require.Equal(t, limbs, v.Limbs())

	// Limb 0 is least significant.
	low, err := u256.FromLimbs([]uint64{1, 0, 0, 0})
	require.NoError(t, err)
	require.Equal(t, u256.FromUint64(1), low)
}

func TestFromLimbsArity(t *testing.T) {
	for _, n := range []int{0, 3, 5} {
		_, err := u256.FromLimbs(make([]uint64, n))
		require.ErrorIs(t, err, walleterror.ErrInvalidInput, "length %d", n)
	}
}

func TestBytesBridge(t *testing.T) {
	v, err := u256.FromHexString("0x036b6384b5eca791c62761152d0c79bb0604c104a5fb6f4eb0703f3154bb3db0")
	require.NoError(t, err)

	buf := v.Bytes32()

	back, err := u256.FromBytesBE(buf[:])
	require.NoError(t, err)
	require.Equal(t, v, back)

	_, err = u256.FromBytesBE(make([]byte, 33))
	require.ErrorIs(t, err, walleterror.ErrInvalidInput)
}

func TestFieldElementRoundTrip(t *testing.T) {
	// Below the BN254 modulus the reduction is the identity.
	v := u256.FromUint64(424242)
	require.Equal(t, v, u256.FromFieldElement(v.ToFieldElement()))
}

func TestJSON(t *testing.T) {
	v, err := u256.FromHexString("0x036b6384b5eca791c62761152d0c79bb0604c104a5fb6f4eb0703f3154bb3db0")
	require.NoError(t, err)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.JSONEq(t,
		`"0x036b6384b5eca791c62761152d0c79bb0604c104a5fb6f4eb0703f3154bb3db0"`,
		string(data))

	var back u256.U256

	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, v, back)

	require.Error(t, json.Unmarshal([]byte(`"0xzz"`), &back))
}
