// Package store persists Evidence records. The mutation surface is
// deliberately narrow: there is no generic "update any field" operation, and
// every state-changing method re-checks the current state at write time so a
// stale caller can never clobber a transition that happened after its read.
package store

import (
	"context"

	"sigillum/internal/ledger"
	"sigillum/internal/ledger/state"
	id "sigillum/pkg/domain"
)

// Store is the evidence repository. Tenant-scoped reads treat records of
// other tenants as missing (sentinel.ErrNotFound). Methods that change state
// return sentinel.ErrInvalidState when the record moved since the caller's
// read, and sentinel.ErrSealed when the record is in its immutable phase.
type Store interface {
	// Create inserts a new INGESTED record. Duplicate (tenant, evidence id)
	// fails with sentinel.ErrConflict.
	Create(ctx context.Context, e *ledger.Evidence) error

	Get(ctx context.Context, tenantID id.TenantID, evidenceID id.EvidenceID) (*ledger.Evidence, error)

	FilterByTenantAndState(ctx context.Context, tenantID id.TenantID, st state.State) ([]*ledger.Evidence, error)

	// UpdateDeclared persists declared provenance fields while the record is
	// still INGESTED. Sealed-phase records fail with sentinel.ErrSealed.
	UpdateDeclared(ctx context.Context, e *ledger.Evidence) error

	// UpdateReviewStatus persists the review status, the one field that
	// stays writable for the record's whole life.
	UpdateReviewStatus(ctx context.Context, e *ledger.Evidence) error

	// Seal persists the hashes and SEALED state iff the record is still
	// INGESTED.
	Seal(ctx context.Context, e *ledger.Evidence) error

	// Supersede marks oldID SUPERSEDED and links it to newID iff oldID is
	// still SEALED.
	Supersede(ctx context.Context, tenantID id.TenantID, oldID, newID id.EvidenceID) error

	// Quarantine persists the quarantine hold iff the record is SEALED.
	Quarantine(ctx context.Context, e *ledger.Evidence) error

	// ReleaseQuarantine clears the hold iff the record is QUARANTINED.
	ReleaseQuarantine(ctx context.Context, e *ledger.Evidence) error

	// ForceMigrate moves a record out of a non-contract legacy state,
	// preserving the legacy value in original_state. The expectedState guard
	// makes reconciliation safe to run against live traffic. Used only under
	// an admin context.
	ForceMigrate(ctx context.Context, tenantID id.TenantID, evidenceID id.EvidenceID, expectedState string, target state.State, reasonCode string) error

	// ScanAll iterates every record across tenants. Callers must hold an
	// AdminContext; tenant-scoped request paths never reach this.
	ScanAll(ctx context.Context) ([]*ledger.Evidence, error)
}
