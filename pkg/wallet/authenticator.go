/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wallet is the World ID façade embedders talk to. An
// Authenticator is created from a holder secret, a storage provider and a
// registry client; it orchestrates account resolution, Merkle-proof
// caching, proof generation and replay protection.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"

	"github.com/worldcoin/walletkit/component/log"
	"github.com/worldcoin/walletkit/pkg/credential"
	"github.com/worldcoin/walletkit/pkg/identity"
	"github.com/worldcoin/walletkit/pkg/merkle"
	"github.com/worldcoin/walletkit/pkg/nullifier"
	"github.com/worldcoin/walletkit/pkg/proof"
	"github.com/worldcoin/walletkit/pkg/u256"
	"github.com/worldcoin/walletkit/pkg/walleterror"
	spistorage "github.com/worldcoin/walletkit/spi/storage"
)

var logger = log.New("walletkit/wallet")

const sessionCacheSize = 64

// Authenticator ties an identity secret to the credential store, the
// registry and the proof engine. Callable from multiple goroutines; the
// heavy proving work is synchronous and should be scheduled off the UI
// thread by the embedder.
type Authenticator struct {
	secret   *identity.Secret
	worldID  *identity.WorldID
	cfg      Config
	store    *credential.Store
	registry merkle.RegistryClient
	engine   *proof.Engine
	sessions gcache.Cache
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithEngine replaces the default proof engine, e.g. with one built at a
// smaller tree depth for tests or loaded with precomputed keys.
func WithEngine(engine *proof.Engine) Option {
	return func(a *Authenticator) {
		a.engine = engine
	}
}

// New validates inputs eagerly, before any storage, network or
// cryptographic work: the seed must be exactly 32 bytes and the RPC URL
// non-empty. No side effects occur on invalid input.
func New(seed []byte, cfg Config, provider spistorage.Provider,
	registry merkle.RegistryClient, opts ...Option) (*Authenticator, error) {
	secret, err := identity.NewSecret(seed)
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	store, err := credential.Open(provider, time.Now().Unix())
	if err != nil {
		return nil, err
	}

	a := &Authenticator{
		secret:   secret,
		worldID:  identity.New(secret),
		cfg:      cfg,
		store:    store,
		registry: registry,
		engine:   proof.NewEngine(proof.DefaultTreeDepth),
		sessions: gcache.New(sessionCacheSize).LRU().Build(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Store exposes the credential store for direct credential management.
func (a *Authenticator) Store() *credential.Store {
	return a.store
}

// Commitment returns the public identity commitment for the configured
// credential type.
func (a *Authenticator) Commitment() u256.U256 {
	return a.worldID.Commitment(a.cfg.CredentialType)
}

// Init resolves the on-chain account for the identity commitment and binds
// its leaf index into the store. An unknown commitment is the expected
// AccountDoesNotExist business outcome, not a transport failure.
func (a *Authenticator) Init(ctx context.Context, now int64) error {
	leafIndex, err := a.registry.LookupAccount(ctx, a.Commitment())
	if err != nil {
		return classifyRegistryErr(err)
	}

	return a.store.Init(leafIndex, now)
}

// InclusionProof returns a live inclusion proof for the identity
// commitment, from the cache when one with enough residual validity
// exists, otherwise fetched and cached. The cache write happens only after
// a complete successful fetch, so cancellation never half-writes an entry.
func (a *Authenticator) InclusionProof(ctx context.Context, now int64) (*merkle.InclusionProof, error) {
	kind := a.registryKind()

	root, err := a.registry.LatestRoot(ctx, kind)
	if err != nil {
		return nil, classifyRegistryErr(err)
	}

	validBefore := now + a.cfg.MerkleValidityBuffer

	if cached, err := a.store.MerkleCacheGet(kind, root, validBefore); err == nil && cached != nil {
		var p merkle.InclusionProof

		decodeErr := json.Unmarshal(cached, &p)
		if decodeErr == nil {
			return &p, nil
		}

		logger.Warnf("cached inclusion proof undecodable, refetching: %v", decodeErr)
	}

	fetched, err := a.registry.InclusionProof(ctx, kind, a.Commitment())
	if err != nil {
		return nil, classifyRegistryErr(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, walleterror.New(walleterror.CodeTransport, err)
	}

	serialized, err := json.Marshal(fetched)
	if err != nil {
		return nil, walleterror.New(walleterror.CodeBlobStore, err)
	}

	if err := a.store.MerkleCachePut(kind, root, serialized, now, a.cfg.MerkleProofTTL); err != nil {
		return nil, err
	}

	return fetched, nil
}

// Result is the outcome of GenerateProof. Replay marks that an unexpired
// disclosure already existed for this request: Output carries what was
// originally disclosed, not a fresh proof.
type Result struct {
	Output *proof.Output
	Replay bool
}

// GenerateProof produces (or replays) the zero-knowledge proof for the
// (app id, action) context with the given signal. The disclosure ledger
// guarantees one live disclosure per nullifier: a repeated request returns
// the original proof tagged Replay, a conflicting one fails with
// NullifierAlreadyDisclosed.
func (a *Authenticator) GenerateProof(ctx context.Context, appID string,
	action, signal []byte, now int64) (*Result, error) {
	nullCtx := nullifier.New(appID, action)
	nullifierHash := a.worldID.NullifierHash(nullCtx)
	requestID := RequestID(appID, string(action), signal)

	// Known replay: skip the expensive proving work entirely.
	if stored, ok := a.store.DisclosureGet(requestID[:], now); ok {
		output, err := proof.DecodeOutput(stored)
		if err != nil {
			return nil, err
		}

		return &Result{Output: output, Replay: true}, nil
	}

	inclusionProof, err := a.InclusionProof(ctx, now)
	if err != nil {
		return nil, err
	}

	output, err := a.engine.GenerateProof(a.worldID, a.cfg.CredentialType,
		inclusionProof, nullCtx, signal)
	if err != nil {
		return nil, err
	}

	serialized, err := output.Encode()
	if err != nil {
		return nil, walleterror.New(walleterror.CodeInvalidProof, err)
	}

	nullifierBytes := nullifierHash.Bytes32()

	disclosure, err := a.store.BeginProofDisclosure(requestID[:], nullifierBytes[:],
		serialized, now, a.cfg.ProofTTL)
	if err != nil {
		return nil, err
	}

	if disclosure.Replay {
		// Lost a race: surface the winner's disclosure.
		output, err = proof.DecodeOutput(disclosure.Proof)
		if err != nil {
			return nil, err
		}
	}

	return &Result{Output: output, Replay: disclosure.Replay}, nil
}

// VerifyProof checks a proof output against the engine's verifying key.
func (a *Authenticator) VerifyProof(output *proof.Output) (bool, error) {
	return a.engine.VerifyProof(output)
}

// Close wipes the holder secret. The Authenticator must not be used
// afterwards.
func (a *Authenticator) Close() error {
	a.sessions.Purge()

	return a.secret.Close()
}

func (a *Authenticator) registryKind() merkle.Kind {
	switch a.cfg.CredentialType {
	case identity.Document, identity.SecureDocument:
		return merkle.KindDocument
	default:
		return merkle.KindWorldID
	}
}

// classifyRegistryErr wraps unclassified client failures as transport
// errors; taxonomy errors pass through untouched.
func classifyRegistryErr(err error) error {
	var werr *walleterror.Error

	if errors.As(err, &werr) {
		return err
	}

	return walleterror.New(walleterror.CodeTransport,
		fmt.Errorf("registry client: %w", err))
}
