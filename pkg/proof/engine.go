/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package proof implements the Groth16 proof engine for Semaphore-style
// membership proofs: knowledge of an identity secret whose commitment is a
// registry-tree leaf, plus an honestly derived nullifier hash, with an
// optional signal bound into the transcript.
package proof

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/worldcoin/walletkit/component/log"
	"github.com/worldcoin/walletkit/pkg/identity"
	"github.com/worldcoin/walletkit/pkg/merkle"
	"github.com/worldcoin/walletkit/pkg/nullifier"
	"github.com/worldcoin/walletkit/pkg/walleterror"
)

// DefaultTreeDepth is the World ID registry tree depth.
const DefaultTreeDepth = 30

var logger = log.New("walletkit/proof")

// Engine generates and verifies membership proofs for one fixed tree
// depth. Circuit compilation and the Groth16 setup are lazy and happen
// exactly once; concurrent first calls share a single setup. Proving is
// CPU-bound and synchronous; embedders schedule it off the UI thread.
type Engine struct {
	depth int

	mu       sync.Mutex
	ready    bool
	setupErr error
	ccs      constraint.ConstraintSystem
	pk       groth16.ProvingKey
	vk       groth16.VerifyingKey
}

// Option configures an Engine.
type Option func(*Engine)

// WithKeys installs a precomputed proving/verifying key pair, skipping the
// in-process Groth16 setup. Embedders ship these so mobile devices never
// run setup themselves.
func WithKeys(pk groth16.ProvingKey, vk groth16.VerifyingKey) Option {
	return func(e *Engine) {
		e.pk = pk
		e.vk = vk
	}
}

// NewEngine returns an engine for the given registry tree depth.
func NewEngine(depth int, opts ...Option) *Engine {
	e := &Engine{depth: depth}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Depth returns the configured tree depth.
func (e *Engine) Depth() int {
	return e.depth
}

// GenerateProof proves membership of the holder's credential commitment and
// derives the nullifier hash for the given context. The inclusion proof is
// untrusted input: a depth mismatch fails fast with an invalid-merkle-proof
// error, anything subtler fails inside the circuit.
//
// The returned output is entirely public and safe to transmit.
func (e *Engine) GenerateProof(worldID *identity.WorldID, credType identity.CredentialType,
	inclusionProof *merkle.InclusionProof, ctx nullifier.Context, signal []byte) (*Output, error) {
	if inclusionProof == nil || inclusionProof.Depth() != e.depth {
		got := 0
		if inclusionProof != nil {
			got = inclusionProof.Depth()
		}

		return nil, walleterror.New(walleterror.CodeInvalidMerkleProof,
			fmt.Errorf("proof depth %d does not match tree depth %d", got, e.depth))
	}

	if err := e.setup(); err != nil {
		return nil, err
	}

	external := ctx.ExternalNullifier()
	signalHash := nullifier.HashToField(signal)
	nullifierHash := worldID.NullifierHash(ctx)

	siblings := make([]frontend.Variable, e.depth)
	for i, s := range inclusionProof.Siblings {
		siblings[i] = s.BigInt()
	}

	assignment := &membershipCircuit{
		Root:              inclusionProof.Root.BigInt(),
		NullifierHash:     nullifierHash.BigInt(),
		ExternalNullifier: external.BigInt(),
		SignalHash:        signalHash.BigInt(),
		IdentityTrapdoor:  worldID.Trapdoor(credType).BigInt(),
		IdentityNullifier: worldID.Nullifier().BigInt(),
		LeafIndex:         inclusionProof.LeafIndex,
		Siblings:          siblings,
	}

	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, walleterror.New(walleterror.CodeInvalidProof,
			fmt.Errorf("build witness: %w", err))
	}

	proof, err := groth16.Prove(e.ccs, e.pk, witness)
	if err != nil {
		return nil, walleterror.New(walleterror.CodeInvalidProof,
			fmt.Errorf("prove: %w", err))
	}

	var buf bytes.Buffer

	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, walleterror.New(walleterror.CodeInvalidProof,
			fmt.Errorf("serialize proof: %w", err))
	}

	return &Output{
		Proof:             buf.Bytes(),
		MerkleRoot:        inclusionProof.Root,
		NullifierHash:     nullifierHash,
		ExternalNullifier: external,
		SignalHash:        signalHash,
	}, nil
}

// VerifyProof checks a proof output against the engine's verifying key.
// A well-formed proof that merely fails verification returns (false, nil)
// so callers can branch; only malformed inputs produce an error.
func (e *Engine) VerifyProof(output *Output) (bool, error) {
	if err := e.setup(); err != nil {
		return false, err
	}

	proof := groth16.NewProof(ecc.BN254)

	if _, err := proof.ReadFrom(bytes.NewReader(output.Proof)); err != nil {
		return false, walleterror.New(walleterror.CodeInvalidProof,
			fmt.Errorf("decode proof bytes: %w", err))
	}

	assignment := &membershipCircuit{
		Root:              output.MerkleRoot.BigInt(),
		NullifierHash:     output.NullifierHash.BigInt(),
		ExternalNullifier: output.ExternalNullifier.BigInt(),
		SignalHash:        output.SignalHash.BigInt(),
		Siblings:          make([]frontend.Variable, e.depth),
	}

	publicWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(),
		frontend.PublicOnly())
	if err != nil {
		return false, walleterror.New(walleterror.CodeInvalidProof,
			fmt.Errorf("build public witness: %w", err))
	}

	if err := groth16.Verify(proof, e.vk, publicWitness); err != nil {
		logger.Debugf("proof verification failed: %v", err)

		return false, nil
	}

	return true, nil
}

// VerifyingKey returns the engine's verifying key for verifier-side use.
func (e *Engine) VerifyingKey() (groth16.VerifyingKey, error) {
	if err := e.setup(); err != nil {
		return nil, err
	}

	return e.vk, nil
}

// WriteKeys serializes the proving and verifying keys so embedders can ship
// them precomputed.
func (e *Engine) WriteKeys(pkW, vkW io.Writer) error {
	if err := e.setup(); err != nil {
		return err
	}

	if _, err := e.pk.WriteTo(pkW); err != nil {
		return fmt.Errorf("write proving key: %w", err)
	}

	if _, err := e.vk.WriteTo(vkW); err != nil {
		return fmt.Errorf("write verifying key: %w", err)
	}

	return nil
}

// ReadKeys loads a precomputed key pair. Must be called before the first
// proof if the embedder wants to skip the in-process setup.
func (e *Engine) ReadKeys(pkR, vkR io.Reader) error {
	pk := groth16.NewProvingKey(ecc.BN254)

	if _, err := pk.ReadFrom(pkR); err != nil {
		return walleterror.New(walleterror.CodeInvalidProof,
			fmt.Errorf("read proving key: %w", err))
	}

	vk := groth16.NewVerifyingKey(ecc.BN254)

	if _, err := vk.ReadFrom(vkR); err != nil {
		return walleterror.New(walleterror.CodeInvalidProof,
			fmt.Errorf("read verifying key: %w", err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.pk, e.vk = pk, vk
	e.ready = false // recompile against the loaded keys on next use

	return nil
}

func (e *Engine) setup() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ready || e.setupErr != nil {
		return e.setupErr
	}

	template := &membershipCircuit{Siblings: make([]frontend.Variable, e.depth)}

	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, template)
	if err != nil {
		e.setupErr = walleterror.New(walleterror.CodeInvalidProof,
			fmt.Errorf("compile circuit: %w", err))

		return e.setupErr
	}

	e.ccs = ccs

	if e.pk == nil || e.vk == nil {
		logger.Infof("running Groth16 setup for tree depth %d", e.depth)

		pk, vk, err := groth16.Setup(ccs)
		if err != nil {
			e.setupErr = walleterror.New(walleterror.CodeInvalidProof,
				fmt.Errorf("groth16 setup: %w", err))

			return e.setupErr
		}

		e.pk, e.vk = pk, vk
	}

	e.ready = true

	return nil
}
