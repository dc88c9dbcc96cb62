/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package walletkit enables Go developers to embed the World ID protocol in
// wallet applications: zero-knowledge proofs of credential possession, and
// encrypted on-device storage of credentials and proof-replay state.
//
// # Packages for end developer usage
//
// pkg/wallet: The main entry point. An Authenticator is created from a holder
// secret, a storage provider and a registry client, and orchestrates account
// resolution, Merkle-proof caching, proof generation and replay protection.
//
// pkg/credential: The encrypted credential store, usable on its own when an
// embedder only needs local credential management.
//
// pkg/proof: The Groth16 proof engine for Semaphore-style membership proofs,
// usable directly by verifier-side services.
//
// Basic workflow
//
//  1. Implement (or reuse) the spi/storage capabilities for the platform.
//  2. Create an Authenticator with wallet.New, passing secret and config.
//  3. Call Init to bind the on-chain account, then GenerateProof per request.
//  4. Call Close() to wipe the secret.
package walletkit
