/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package merkle models inclusion proofs against the identity registry tree
// and the client contract for fetching them. Proofs are untrusted input:
// the proof circuit revalidates them, this package only carries them.
package merkle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/worldcoin/walletkit/pkg/u256"
	"github.com/worldcoin/walletkit/pkg/walleterror"
)

// Kind identifies a registry tree. Part of Merkle-cache keys.
type Kind byte

// Registry kinds.
const (
	// KindWorldID is the proof-of-personhood registry.
	KindWorldID Kind = 1

	// KindDocument is the document-credential registry.
	KindDocument Kind = 2
)

// InclusionProof proves membership of an identity commitment at a leaf
// index under a root: the ordered sibling hashes from the leaf level up.
type InclusionProof struct {
	Root      u256.U256
	LeafIndex uint64
	Siblings  []u256.U256
}

// Depth returns the tree depth this proof was built for.
func (p *InclusionProof) Depth() int {
	return len(p.Siblings)
}

// wireProof is the sign-up sequencer JSON shape: the root plus one
// single-key object per path level. A "Left" entry is a sibling sitting on
// the left of the path node (the path node is the right child at that
// level); "Right" is the mirror case.
type wireProof struct {
	Root  u256.U256       `json:"root"`
	Proof []wireProofNode `json:"proof"`
}

type wireProofNode struct {
	Left  *u256.U256 `json:"Left,omitempty"`
	Right *u256.U256 `json:"Right,omitempty"`
}

// MarshalJSON encodes the sequencer wire format. The side of each sibling
// is recovered from the leaf index bits: bit i set means the path node is
// the right child at level i, so the sibling is on the left.
func (p *InclusionProof) MarshalJSON() ([]byte, error) {
	nodes := make([]wireProofNode, len(p.Siblings))

	for i := range p.Siblings {
		sibling := p.Siblings[i]

		if p.LeafIndex>>uint(i)&1 == 1 {
			nodes[i] = wireProofNode{Left: &sibling}
		} else {
			nodes[i] = wireProofNode{Right: &sibling}
		}
	}

	return json.Marshal(wireProof{Root: p.Root, Proof: nodes})
}

// UnmarshalJSON decodes the sequencer wire format, reconstructing the leaf
// index from the Left/Right tags.
func (p *InclusionProof) UnmarshalJSON(data []byte) error {
	var wire wireProof

	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	siblings := make([]u256.U256, len(wire.Proof))

	var leafIndex uint64

	for i, node := range wire.Proof {
		switch {
		case node.Left != nil && node.Right == nil:
			siblings[i] = *node.Left
			leafIndex |= 1 << uint(i)
		case node.Right != nil && node.Left == nil:
			siblings[i] = *node.Right
		default:
			return walleterror.NewInvalidInput("proof",
				fmt.Errorf("path level %d must carry exactly one of Left or Right", i))
		}
	}

	p.Root = wire.Root
	p.LeafIndex = leafIndex
	p.Siblings = siblings

	return nil
}

// RegistryClient fetches registry state for a holder. Implemented by
// embedders over their transport of choice; failures it returns are
// transport errors, retryable at the caller's discretion. The in-memory
// Registry implements it for tests and local verification.
type RegistryClient interface {
	// LatestRoot returns the current root of the given registry tree.
	LatestRoot(ctx context.Context, kind Kind) (u256.U256, error)

	// InclusionProof fetches the inclusion proof for a commitment under
	// the latest root.
	InclusionProof(ctx context.Context, kind Kind, commitment u256.U256) (*InclusionProof, error)

	// LookupAccount resolves the registry leaf index holding the
	// commitment. Absence is reported as the account-does-not-exist
	// business outcome, not a transport failure.
	LookupAccount(ctx context.Context, commitment u256.U256) (uint64, error)
}
