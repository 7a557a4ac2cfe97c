package draft

import (
	"context"

	id "sigillum/pkg/domain"
)

// Store persists drafts. All reads are tenant-scoped; a draft belonging to
// another tenant is indistinguishable from a missing one (sentinel.ErrNotFound).
type Store interface {
	Create(ctx context.Context, d *Draft) error
	FindByID(ctx context.Context, tenantID id.TenantID, draftID id.DraftID) (*Draft, error)
	// Update persists a mutable draft. Stores reject updates to SEALED
	// drafts with sentinel.ErrSealed.
	Update(ctx context.Context, d *Draft) error
	// MarkSealed transitions the draft to SEALED and links the produced
	// evidence record. Idempotent: marking an already-sealed draft with the
	// same evidence id is a no-op.
	MarkSealed(ctx context.Context, tenantID id.TenantID, draftID id.DraftID, evidenceID id.EvidenceID) error
}
