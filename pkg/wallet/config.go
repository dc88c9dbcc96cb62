/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/worldcoin/walletkit/pkg/identity"
	"github.com/worldcoin/walletkit/pkg/walleterror"
)

// DefaultRegistryAddress is the World ID router contract.
const DefaultRegistryAddress = "0xd66aFbf92d684B4404B1ed3e9aDA85353c178dE2"

// Default TTLs, in seconds.
const (
	DefaultProofTTL             = 900
	DefaultMerkleProofTTL       = 900
	DefaultMerkleValidityBuffer = 120
)

// Config configures an Authenticator.
type Config struct {
	Environment     identity.Environment    `mapstructure:"environment"`
	RPCURL          string                  `mapstructure:"rpc_url"`
	RegistryAddress string                  `mapstructure:"registry_address"`
	CredentialType  identity.CredentialType `mapstructure:"credential_type"`

	// ProofTTL bounds the disclosure-ledger replay window, in seconds.
	ProofTTL int64 `mapstructure:"proof_ttl"`

	// MerkleProofTTL bounds cached inclusion proofs, in seconds.
	MerkleProofTTL int64 `mapstructure:"merkle_proof_ttl"`

	// MerkleValidityBuffer is how much residual lifetime a cached proof
	// must retain to be used, in seconds.
	MerkleValidityBuffer int64 `mapstructure:"merkle_validity_buffer"`
}

// DecodeConfig builds a Config from a loosely-typed map, as handed over by
// binding layers, applying defaults and validating eagerly.
func DecodeConfig(raw map[string]interface{}) (Config, error) {
	var cfg Config

	if err := mapstructure.Decode(raw, &cfg); err != nil {
		return Config{}, walleterror.NewInvalidInput("config", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RegistryAddress == "" {
		c.RegistryAddress = DefaultRegistryAddress
	}

	if c.ProofTTL == 0 {
		c.ProofTTL = DefaultProofTTL
	}

	if c.MerkleProofTTL == 0 {
		c.MerkleProofTTL = DefaultMerkleProofTTL
	}

	if c.MerkleValidityBuffer == 0 {
		c.MerkleValidityBuffer = DefaultMerkleValidityBuffer
	}
}

func (c *Config) validate() error {
	if c.RPCURL == "" {
		return walleterror.NewInvalidInput("rpc_url",
			fmt.Errorf("rpc url must not be empty"))
	}

	return nil
}
