/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package merkle

import (
	"context"
	"fmt"
	"sync"

	"github.com/worldcoin/walletkit/pkg/internal/mimc"
	"github.com/worldcoin/walletkit/pkg/u256"
	"github.com/worldcoin/walletkit/pkg/walleterror"
)

// Registry is an in-memory MiMC-BN254 Merkle tree of identity commitments
// implementing RegistryClient. It stores only non-empty nodes plus the
// per-level empty-subtree hashes, so registration and proof extraction stay
// O(depth) even at production depth.
//
// Leaves are hashed once before entering the tree, matching the in-circuit
// membership check. Empty leaves hold the zero value.
type Registry struct {
	mu       sync.RWMutex
	kind     Kind
	depth    int
	nextLeaf uint64

	// nodes[level] maps node index to hash; level 0 is the leaf-hash level.
	nodes []map[uint64]u256.U256

	// zeros[level] is the hash of an empty subtree of that height.
	zeros []u256.U256

	accounts map[u256.U256]uint64
}

// NewRegistry builds an empty registry tree of the given depth.
func NewRegistry(kind Kind, depth int) *Registry {
	zeros := make([]u256.U256, depth+1)
	zeros[0] = mimc.Sum(u256.U256{})

	for level := 1; level <= depth; level++ {
		zeros[level] = mimc.Sum(zeros[level-1], zeros[level-1])
	}

	nodes := make([]map[uint64]u256.U256, depth+1)
	for level := range nodes {
		nodes[level] = make(map[uint64]u256.U256)
	}

	return &Registry{
		kind:     kind,
		depth:    depth,
		nodes:    nodes,
		zeros:    zeros,
		accounts: make(map[u256.U256]uint64),
	}
}

// Register inserts a commitment at the next free leaf and returns its leaf
// index.
func (r *Registry) Register(commitment u256.U256) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nextLeaf>>uint(r.depth) != 0 {
		return 0, walleterror.New(walleterror.CodeBlobStore,
			fmt.Errorf("registry tree of depth %d is full", r.depth))
	}

	index := r.nextLeaf
	r.nextLeaf++
	r.accounts[commitment] = index

	r.nodes[0][index] = mimc.Sum(commitment)

	// Recompute the path to the root.
	nodeIndex := index
	for level := 0; level < r.depth; level++ {
		parent := nodeIndex / 2

		left := r.node(level, parent*2)
		right := r.node(level, parent*2+1)

		r.nodes[level+1][parent] = mimc.Sum(left, right)
		nodeIndex = parent
	}

	return index, nil
}

// Root returns the current tree root.
func (r *Registry) Root() u256.U256 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.node(r.depth, 0)
}

// LatestRoot implements RegistryClient.
func (r *Registry) LatestRoot(_ context.Context, kind Kind) (u256.U256, error) {
	if kind != r.kind {
		return u256.U256{}, walleterror.New(walleterror.CodeTransport,
			fmt.Errorf("registry serves kind %d, not %d", r.kind, kind))
	}

	return r.Root(), nil
}

// InclusionProof implements RegistryClient, extracting the sibling path for
// the leaf holding the commitment.
func (r *Registry) InclusionProof(_ context.Context, kind Kind, commitment u256.U256) (*InclusionProof, error) {
	if kind != r.kind {
		return nil, walleterror.New(walleterror.CodeTransport,
			fmt.Errorf("registry serves kind %d, not %d", r.kind, kind))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	index, ok := r.accounts[commitment]
	if !ok {
		return nil, walleterror.New(walleterror.CodeAccountDoesNotExist, nil)
	}

	siblings := make([]u256.U256, r.depth)
	nodeIndex := index

	for level := 0; level < r.depth; level++ {
		siblings[level] = r.node(level, nodeIndex^1)
		nodeIndex /= 2
	}

	return &InclusionProof{
		Root:      r.node(r.depth, 0),
		LeafIndex: index,
		Siblings:  siblings,
	}, nil
}

// LookupAccount implements RegistryClient.
func (r *Registry) LookupAccount(_ context.Context, commitment u256.U256) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, ok := r.accounts[commitment]
	if !ok {
		return 0, walleterror.New(walleterror.CodeAccountDoesNotExist, nil)
	}

	return index, nil
}

// Verify recomputes the root from a proof and a commitment. Local
// counterpart of the in-circuit membership check.
func (r *Registry) Verify(proof *InclusionProof, commitment u256.U256) bool {
	if proof.Depth() != r.depth {
		return false
	}

	node := mimc.Sum(commitment)

	for level, sibling := range proof.Siblings {
		if proof.LeafIndex>>uint(level)&1 == 1 {
			node = mimc.Sum(sibling, node)
		} else {
			node = mimc.Sum(node, sibling)
		}
	}

	return node == proof.Root
}

func (r *Registry) node(level int, index uint64) u256.U256 {
	if n, ok := r.nodes[level][index]; ok {
		return n
	}

	return r.zeros[level]
}
