/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package proof

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// membershipCircuit is the Semaphore-style statement: the prover knows an
// identity whose commitment sits at LeafIndex under Root, and NullifierHash
// is honestly derived for ExternalNullifier. SignalHash is bound into the
// transcript with a squaring constraint so the proof cannot be replayed
// under a different signal.
//
// The out-of-circuit counterparts live in pkg/internal/mimc and
// pkg/merkle.Registry; the two sides must stay in agreement.
type membershipCircuit struct {
	// Public inputs, in declaration order.
	Root              frontend.Variable `gnark:",public"`
	NullifierHash     frontend.Variable `gnark:",public"`
	ExternalNullifier frontend.Variable `gnark:",public"`
	SignalHash        frontend.Variable `gnark:",public"`

	// Private witness.
	IdentityTrapdoor  frontend.Variable
	IdentityNullifier frontend.Variable
	LeafIndex         frontend.Variable
	Siblings          []frontend.Variable
}

func (c *membershipCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	// commitment = MiMC(trapdoor, nullifier) is the registered leaf.
	h.Write(c.IdentityTrapdoor, c.IdentityNullifier)
	commitment := h.Sum()

	// Membership: walk from the pre-hashed leaf to the root. Bit i of the
	// leaf index picks the hash order at level i; set means the path node is
	// the right child, so the sibling sits on the left.
	h.Reset()
	h.Write(commitment)
	node := h.Sum()

	indexBits := api.ToBinary(c.LeafIndex, len(c.Siblings))

	for i, sibling := range c.Siblings {
		h.Reset()

		left := api.Select(indexBits[i], sibling, node)
		right := api.Select(indexBits[i], node, sibling)

		h.Write(left, right)
		node = h.Sum()
	}

	api.AssertIsEqual(node, c.Root)

	// nullifierHash = MiMC(externalNullifier, identityNullifier).
	h.Reset()
	h.Write(c.ExternalNullifier, c.IdentityNullifier)
	api.AssertIsEqual(c.NullifierHash, h.Sum())

	// Malleability guard: constrain the signal hash into the proof.
	api.Mul(c.SignalHash, c.SignalHash)

	return nil
}
