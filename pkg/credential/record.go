/*
Copyright Tools for Humanity Corporation. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"encoding/hex"
)

// IDLen is the credential id length in bytes (a UUIDv4).
const IDLen = 16

// ID is a 16-byte credential identifier, unique within a store.
type ID [IDLen]byte

// String returns the hex form of the id.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Status is the lifecycle state of a credential record. The only
// transitions are Active to Expired (automatic, evaluated at read time from
// the expiry timestamp) and Active to Revoked (explicit). Nothing leaves
// Revoked.
type Status string

// Credential statuses.
const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// Record is the metadata of one stored credential. The credential blob and
// associated data live as separate content-addressed encrypted objects; the
// record carries their content ids.
type Record struct {
	ID                    ID         `cbor:"id"`
	IssuerSchemaID        uint64     `cbor:"issuer_schema_id"`
	Status                Status     `cbor:"status"`
	SubjectBlindingFactor []byte     `cbor:"subject_blinding_factor"`
	GenesisIssuedAt       int64      `cbor:"genesis_issued_at"`
	ExpiresAt             int64      `cbor:"expires_at,omitempty"` // 0 = never
	UpdatedAt             int64      `cbor:"updated_at"`
	BlobID                contentID  `cbor:"blob_id"`
	AssociatedDataID      *contentID `cbor:"associated_data_id,omitempty"`
}

// EffectiveStatus computes the status relative to now. The stored status is
// never mutated by a read: an Active record past its expiry reports Expired
// while remaining Active on disk.
func (r *Record) EffectiveStatus(now int64) Status {
	if r.Status == StatusActive && r.ExpiresAt != 0 && now >= r.ExpiresAt {
		return StatusExpired
	}

	return r.Status
}

// clone returns a deep copy with the status computed against now, safe to
// hand to callers.
func (r *Record) clone(now int64) *Record {
	out := *r
	out.Status = r.EffectiveStatus(now)

	out.SubjectBlindingFactor = append([]byte(nil), r.SubjectBlindingFactor...)

	if r.AssociatedDataID != nil {
		cid := *r.AssociatedDataID
		out.AssociatedDataID = &cid
	}

	return &out
}
