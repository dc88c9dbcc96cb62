/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identity

import (
	"encoding/json"
	"fmt"

	"github.com/worldcoin/walletkit/pkg/walleterror"
)

// Environment selects the deployment the wallet talks to.
type Environment int

// Deployment environments.
const (
	Staging Environment = iota
	Production
)

// CredentialType is a specific credential a World ID holder can present.
// An Orb-verified holder, for example, presents their Orb credential to
// prove they hold a valid Orb verification.
type CredentialType int

// Credential types, strongest proof of personhood first.
const (
	// Orb is a biometric verification at an Orb.
	Orb CredentialType = iota

	// Device is a semi-unique device credential.
	Device

	// Document is a verified biometric ICAO-9303 government-issued
	// document.
	Document

	// SecureDocument is a Document with additional presence checks such as
	// Chip Authentication or Active Authentication.
	SecureDocument
)

var credentialTypeNames = map[CredentialType]string{
	Orb:            "orb",
	Device:         "device",
	Document:       "document",
	SecureDocument: "secure_document",
}

// IdentityTrapdoor returns the domain label mixed into the identity
// trapdoor derivation for this credential type.
//
// Orb keeps the legacy default label; changing it would break existing
// verifying apps. SecureDocument derives from "secure_passport" even though
// it serializes as "secure_document", matching idkit-js and the Developer
// Portal.
func (c CredentialType) IdentityTrapdoor() []byte {
	switch c {
	case Orb:
		return []byte("identity_trapdoor")
	case Device:
		return []byte("phone_credential")
	case Document:
		return []byte("passport")
	case SecureDocument:
		return []byte("secure_passport")
	default:
		return nil
	}
}

// SequencerHost returns the sign-up sequencer host serving Merkle inclusion
// proofs for this credential type in the given environment.
func (c CredentialType) SequencerHost(env Environment) string {
	hosts := map[Environment]map[CredentialType]string{
		Staging: {
			Orb:            "https://signup-orb-ethereum.stage-crypto.worldcoin.org",
			Device:         "https://signup-phone-ethereum.stage-crypto.worldcoin.org",
			Document:       "https://signup-document.stage-crypto.worldcoin.org",
			SecureDocument: "https://signup-document-secure.stage-crypto.worldcoin.org",
		},
		Production: {
			Orb:            "https://signup-orb-ethereum.crypto.worldcoin.org",
			Device:         "https://signup-phone-ethereum.crypto.worldcoin.org",
			Document:       "https://signup-document.crypto.worldcoin.org",
			SecureDocument: "https://signup-document-secure.crypto.worldcoin.org",
		},
	}

	return hosts[env][c]
}

// String returns the snake_case wire name.
func (c CredentialType) String() string {
	return credentialTypeNames[c]
}

// MarshalJSON encodes the snake_case wire name.
func (c CredentialType) MarshalJSON() ([]byte, error) {
	name, ok := credentialTypeNames[c]
	if !ok {
		return nil, walleterror.NewInvalidInput("credential_type",
			fmt.Errorf("unknown credential type %d", int(c)))
	}

	return json.Marshal(name)
}

// UnmarshalJSON decodes a snake_case wire name.
func (c *CredentialType) UnmarshalJSON(data []byte) error {
	var name string

	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	for ct, n := range credentialTypeNames {
		if n == name {
			*c = ct

			return nil
		}
	}

	return walleterror.NewInvalidInput("credential_type",
		fmt.Errorf("unknown credential type %q", name))
}
