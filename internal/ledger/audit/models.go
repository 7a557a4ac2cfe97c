// Package audit provides the append-only audit trail for the evidence
// ledger. Every accepted transition, rejected attempt, and policy violation
// produces exactly one event; audit write failures fail the surrounding
// operation (fail-closed).
package audit

import (
	"time"

	"sigillum/internal/ledger/state"
	id "sigillum/pkg/domain"
)

// Action names the ledger operation an audit event records.
type Action string

const (
	ActionDraftCreated       Action = "draft_created"
	ActionAttachmentAdded    Action = "attachment_added"
	ActionEvidenceIngested   Action = "evidence_ingested"
	ActionEvidenceSealed     Action = "evidence_sealed"
	ActionEvidenceRejected   Action = "evidence_rejected"
	ActionEvidenceFailed     Action = "evidence_failed"
	ActionEvidenceSuperseded Action = "evidence_superseded"
	ActionQuarantined        Action = "evidence_quarantined"
	ActionQuarantineCleared  Action = "evidence_quarantine_cleared"
	ActionPolicyViolation    Action = "policy_violation"
	ActionStateMigrated      Action = "state_migrated"
	ActionReconciliationRun  Action = "reconciliation_run"
)

// Event is one append-only audit record. EvidenceID is nil for system-level
// events such as a reconciliation run summary.
type Event struct {
	AuditEventID  id.AuditEventID `json:"audit_event_id"`
	TenantID      id.TenantID     `json:"tenant_id"`
	EvidenceID    *id.EvidenceID  `json:"evidence_id,omitempty"`
	ActorUserID   id.UserID       `json:"actor_user_id"`
	ActorRole     string          `json:"actor_role,omitempty"`
	Action        Action          `json:"action"`
	PreviousState state.State     `json:"previous_state,omitempty"`
	NewState      state.State     `json:"new_state,omitempty"`
	ReasonCode    string          `json:"reason_code,omitempty"`
	TimestampUTC  time.Time       `json:"timestamp_utc"`
	RequestID     string          `json:"request_id,omitempty"`
	// Context captures free-form detail: hashes at seal time, attempted
	// field lists on policy violations, backfill markers.
	Context map[string]any `json:"context,omitempty"`
}
