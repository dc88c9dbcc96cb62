/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package merkle

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"github.com/worldcoin/walletkit/pkg/u256"
	"github.com/worldcoin/walletkit/pkg/walleterror"
)

// WithRetry wraps a RegistryClient with exponential-backoff retry on
// transport failures. Validation, crypto and business outcomes pass through
// untouched. The core never installs this decorator itself; retry policy
// belongs to the embedder, who knows the network conditions.
func WithRetry(client RegistryClient, newBackOff func() backoff.BackOff) RegistryClient {
	if newBackOff == nil {
		newBackOff = func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		}
	}

	return &retryClient{client: client, newBackOff: newBackOff}
}

type retryClient struct {
	client     RegistryClient
	newBackOff func() backoff.BackOff
}

func (r *retryClient) LatestRoot(ctx context.Context, kind Kind) (u256.U256, error) {
	var root u256.U256

	err := r.retry(ctx, func() error {
		var err error
		root, err = r.client.LatestRoot(ctx, kind)

		return err
	})

	return root, err
}

func (r *retryClient) InclusionProof(ctx context.Context, kind Kind, commitment u256.U256) (*InclusionProof, error) {
	var proof *InclusionProof

	err := r.retry(ctx, func() error {
		var err error
		proof, err = r.client.InclusionProof(ctx, kind, commitment)

		return err
	})

	return proof, err
}

func (r *retryClient) LookupAccount(ctx context.Context, commitment u256.U256) (uint64, error) {
	var index uint64

	err := r.retry(ctx, func() error {
		var err error
		index, err = r.client.LookupAccount(ctx, commitment)

		return err
	})

	return index, err
}

func (r *retryClient) retry(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil || retryable(err) {
			return err
		}

		return backoff.Permanent(err)
	}, backoff.WithContext(r.newBackOff(), ctx))
}

func retryable(err error) bool {
	var werr *walleterror.Error

	if errors.As(err, &werr) {
		return werr.Retryable()
	}

	// Unclassified client failures are treated as transport problems.
	return true
}
