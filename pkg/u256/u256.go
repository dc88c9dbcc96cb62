/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package u256 implements the 256-bit unsigned integer codec used throughout
// proofs and storage keys. Most proof inputs and outputs are 256-bit field
// values; when they travel as JSON on HTTP requests they are represented as
// fixed-width, 0x-prefixed hex strings from big-endian bytes.
package u256

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/worldcoin/walletkit/pkg/walleterror"
)

// NumLimbs is the number of 64-bit limbs in a U256.
const NumLimbs = 4

// hexDigits is the fixed width of the canonical hex form, excluding the
// "0x" prefix.
const hexDigits = 64

// U256 is a 256-bit unsigned integer stored as four 64-bit limbs in
// little-endian limb order: limb 0 is the least significant. The zero value
// is the number zero. Pure value type; all operations are side-effect free.
type U256 [NumLimbs]uint64

// FromUint64 zero-extends v into a U256.
func FromUint64(v uint64) U256 {
	return U256{v, 0, 0, 0}
}

// FromUint32 zero-extends v into a U256.
func FromUint32(v uint32) U256 {
	return FromUint64(uint64(v))
}

// FromLimbs builds a U256 from exactly four little-endian limbs. Any other
// sequence length fails with an invalid-input error.
func FromLimbs(limbs []uint64) (U256, error) {
	if len(limbs) != NumLimbs {
		return U256{}, walleterror.NewInvalidInput("limbs",
			fmt.Errorf("expected %d limbs, got %d", NumLimbs, len(limbs)))
	}

	var v U256

	copy(v[:], limbs)

	return v, nil
}

// Limbs returns the four little-endian limbs. Exact inverse of FromLimbs.
func (v U256) Limbs() []uint64 {
	limbs := make([]uint64, NumLimbs)

	copy(limbs, v[:])

	return limbs
}

// FromHexString parses a hex string, with or without a "0x" prefix, into a
// U256. The empty string (after stripping the prefix) parses as zero.
// Non-hex characters or more than 64 digits fail with an invalid-input
// error.
func FromHexString(s string) (U256, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")

	if len(s) > hexDigits {
		return U256{}, walleterror.NewInvalidInput("hex",
			fmt.Errorf("%d hex digits exceed 256 bits", len(s)))
	}

	if s == "" {
		return U256{}, nil
	}

	if len(s)%2 != 0 {
		s = "0" + s
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return U256{}, walleterror.NewInvalidInput("hex", err)
	}

	return FromBytesBE(raw)
}

// FromDecimalString parses a base-10 string into a U256. Non-decimal content
// or values above 2^256-1 fail with an invalid-input error.
func FromDecimalString(s string) (U256, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return U256{}, walleterror.NewInvalidInput("decimal",
			fmt.Errorf("not a decimal number: %q", s))
	}

	if n.BitLen() > 256 {
		return U256{}, walleterror.NewInvalidInput("decimal",
			fmt.Errorf("%d bits exceed 256", n.BitLen()))
	}

	return fromBigInt(n), nil
}

// FromBytesBE interprets up to 32 big-endian bytes as a U256. Longer input
// fails with an invalid-input error.
func FromBytesBE(raw []byte) (U256, error) {
	if len(raw) > 32 {
		return U256{}, walleterror.NewInvalidInput("bytes",
			fmt.Errorf("%d bytes exceed 256 bits", len(raw)))
	}

	var buf [32]byte

	copy(buf[32-len(raw):], raw)

	var v U256

	for i := 0; i < NumLimbs; i++ {
		v[i] = binary.BigEndian.Uint64(buf[32-8*(i+1):])
	}

	return v, nil
}

// Bytes32 returns the value as 32 big-endian bytes.
func (v U256) Bytes32() [32]byte {
	var buf [32]byte

	for i := 0; i < NumLimbs; i++ {
		binary.BigEndian.PutUint64(buf[32-8*(i+1):], v[i])
	}

	return buf
}

// Hex returns the canonical string form: "0x" followed by exactly 64
// lowercase hex digits, regardless of magnitude.
func (v U256) Hex() string {
	buf := v.Bytes32()

	return "0x" + hex.EncodeToString(buf[:])
}

// Decimal returns the base-10 string form. Exact inverse of
// FromDecimalString.
func (v U256) Decimal() string {
	return v.BigInt().String()
}

// BigInt returns the value as a fresh big.Int.
func (v U256) BigInt() *big.Int {
	buf := v.Bytes32()

	return new(big.Int).SetBytes(buf[:])
}

// IsZero reports whether the value is zero.
func (v U256) IsZero() bool {
	return v == U256{}
}

// ToFieldElement reduces the value into the BN254 scalar field for use as a
// circuit witness. Values at or above the field modulus wrap; callers that
// need exact representation must check bounds first.
func (v U256) ToFieldElement() fr.Element {
	var e fr.Element

	buf := v.Bytes32()
	e.SetBytes(buf[:])

	return e
}

// FromFieldElement lifts a BN254 scalar back into a U256.
func FromFieldElement(e fr.Element) U256 {
	buf := e.Bytes()

	v, _ := FromBytesBE(buf[:]) // 32 bytes, cannot fail

	return v
}

// String implements fmt.Stringer with the canonical hex form.
func (v U256) String() string {
	return v.Hex()
}

// MarshalJSON encodes the value as its canonical hex string.
func (v U256) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Hex())
}

// UnmarshalJSON decodes a hex string, with or without the 0x prefix.
func (v *U256) UnmarshalJSON(data []byte) error {
	var s string

	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := FromHexString(s)
	if err != nil {
		return err
	}

	*v = parsed

	return nil
}

func fromBigInt(n *big.Int) U256 {
	v, _ := FromBytesBE(n.Bytes()) // BitLen checked by callers

	return v
}
