// Package domain holds typed identifiers and small domain values shared
// across packages. Typed UUIDs prevent cross-type (and cross-tenant)
// assignment at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "sigillum/pkg/domain-errors"
)

// Typed identifiers. Construct via the Parse helpers at trust boundaries;
// direct casting bypasses validation.
type (
	TenantID     uuid.UUID
	UserID       uuid.UUID
	EvidenceID   uuid.UUID
	DraftID      uuid.UUID
	AttachmentID uuid.UUID
	AuditEventID uuid.UUID
)

func parseID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseTenantID constructs a TenantID from external input.
func ParseTenantID(s string) (TenantID, error) {
	u, err := parseID(s)
	return TenantID(u), err
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseID(s)
	return UserID(u), err
}

// ParseEvidenceID constructs an EvidenceID from external input.
func ParseEvidenceID(s string) (EvidenceID, error) {
	u, err := parseID(s)
	return EvidenceID(u), err
}

// ParseDraftID constructs a DraftID from external input.
func ParseDraftID(s string) (DraftID, error) {
	u, err := parseID(s)
	return DraftID(u), err
}

func (id TenantID) String() string     { return uuid.UUID(id).String() }
func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id EvidenceID) String() string   { return uuid.UUID(id).String() }
func (id DraftID) String() string      { return uuid.UUID(id).String() }
func (id AttachmentID) String() string { return uuid.UUID(id).String() }
func (id AuditEventID) String() string { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id EvidenceID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id DraftID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AuditEventID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewEvidenceID returns a fresh random EvidenceID.
func NewEvidenceID() EvidenceID { return EvidenceID(uuid.New()) }

// NewDraftID returns a fresh random DraftID.
func NewDraftID() DraftID { return DraftID(uuid.New()) }
