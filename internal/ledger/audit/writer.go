package audit

import (
	"context"

	"github.com/google/uuid"

	id "sigillum/pkg/domain"
	dErrors "sigillum/pkg/domain-errors"
	"sigillum/pkg/requestcontext"
)

// Writer appends audit events, filling actor and correlation fields from the
// request context. The ledger is fail-closed: if the audit write fails, the
// surrounding operation must fail, because an unaudited ledger mutation is
// worse than a rejected one.
type Writer struct {
	store Store
}

func NewWriter(store Store) *Writer {
	return &Writer{store: store}
}

// Record appends one event. Timestamp, actor, role and request id are taken
// from context when unset so call sites stay small.
func (w *Writer) Record(ctx context.Context, event Event) error {
	if event.AuditEventID.IsNil() {
		event.AuditEventID = id.AuditEventID(uuid.New())
	}
	if event.TimestampUTC.IsZero() {
		event.TimestampUTC = requestcontext.Now(ctx).UTC()
	}
	if event.ActorUserID.IsNil() {
		event.ActorUserID = requestcontext.UserID(ctx)
	}
	if event.ActorRole == "" {
		event.ActorRole = requestcontext.ActorRole(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if err := w.store.Append(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit write failed")
	}
	return nil
}

// Trail returns the audit events for one evidence record, oldest first.
func (w *Writer) Trail(ctx context.Context, tenantID id.TenantID, evidenceID id.EvidenceID) ([]Event, error) {
	return w.store.ListByEvidence(ctx, tenantID, evidenceID)
}
