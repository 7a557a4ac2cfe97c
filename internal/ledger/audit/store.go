package audit

import (
	"context"

	id "sigillum/pkg/domain"
)

// Store persists audit events. Append joins an ambient transaction when the
// context carries one (pkg/platform/tx) so the event and the state change it
// records commit or roll back together.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEvidence(ctx context.Context, tenantID id.TenantID, evidenceID id.EvidenceID) ([]Event, error)
	// CountByEvidence supports reconciliation's audit-coverage check.
	CountByEvidence(ctx context.Context, tenantID id.TenantID, evidenceID id.EvidenceID) (int, error)
}
