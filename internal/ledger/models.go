// Package ledger holds the Evidence aggregate and the sealing service. An
// Evidence record is the immutable, hash-sealed unit of record; once sealed,
// only review status, the quarantine linking fields, and the
// superseded-by pointer may ever change.
package ledger

import (
	"time"

	"sigillum/internal/ledger/state"
	id "sigillum/pkg/domain"
	dErrors "sigillum/pkg/domain-errors"
)

// Machine-readable reason codes surfaced in error responses and audit events.
const (
	ReasonBindingFieldsRequired     = "BINDING_FIELDS_REQUIRED"
	ReasonQuarantineReasonRequired  = "QUARANTINE_REASON_REQUIRED"
	ReasonInvalidResolutionDeadline = "INVALID_RESOLUTION_DEADLINE"
	ReasonDraftNotFound             = "DRAFT_NOT_FOUND"
	ReasonDraftSealed               = "DRAFT_SEALED"
	ReasonNotFound                  = "NOT_FOUND"
	ReasonInvalidState              = "INVALID_STATE"
	ReasonNoPayload                 = "NO_PAYLOAD"
	ReasonSealedImmutable           = "SEALED_IMMUTABLE"
	ReasonImmutableEvidence         = "IMMUTABLE_EVIDENCE"
)

// Evidence is the sealed unit of record.
//
// Invariants:
//   - EvidenceID and TenantID never change after creation
//   - PayloadHashSHA256/MetadataHashSHA256 are set exactly once, at seal
//     time, and never recomputed or overwritten
//   - once LedgerState is SEALED, every field except ReviewStatus, the
//     quarantine fields (via the explicit linking action) and
//     SupersededByEvidenceID is permanently fixed
//   - a superseded record is never mutated beyond its SupersededBy pointer
type Evidence struct {
	EvidenceID  id.EvidenceID `json:"evidence_id"`
	TenantID    id.TenantID   `json:"tenant_id"`
	LedgerState state.State   `json:"ledger_state"`

	// Declared provenance metadata, all required before sealing, immutable
	// after sealing.
	IngestionMethod     string     `json:"ingestion_method"`
	SourceSystem        string     `json:"source_system"`
	DatasetType         string     `json:"dataset_type"`
	DeclaredScope       string     `json:"declared_scope"`
	DeclaredIntent      string     `json:"declared_intent,omitempty"`
	PurposeTags         []string   `json:"purpose_tags,omitempty"`
	RetentionPolicy     string     `json:"retention_policy,omitempty"`
	PersonalDataPresent bool       `json:"personal_data_present"`
	RetentionEndDate    *time.Time `json:"retention_end_date,omitempty"`

	PayloadHashSHA256  string     `json:"payload_hash_sha256,omitempty"`
	MetadataHashSHA256 string     `json:"metadata_hash_sha256,omitempty"`
	SealedAtUTC        *time.Time `json:"sealed_at_utc,omitempty"`

	CreatedBy id.UserID `json:"created_by_user_id"`
	CommandID string    `json:"command_id,omitempty"`

	ReviewStatus string `json:"review_status,omitempty"`

	// Quarantine linking fields, populated only while QUARANTINED and
	// cleared (not deleted) on release.
	QuarantineReason       string     `json:"quarantine_reason,omitempty"`
	QuarantinedBy          string     `json:"quarantined_by,omitempty"`
	QuarantineCreatedAtUTC *time.Time `json:"quarantine_created_at_utc,omitempty"`

	// Correction chain. A superseded record is never mutated, only pointed
	// to by a newer one.
	SupersedesEvidenceID   *id.EvidenceID `json:"supersedes_evidence_id,omitempty"`
	SupersededByEvidenceID *id.EvidenceID `json:"superseded_by_evidence_id,omitempty"`

	// OriginalState preserves a legacy state value when reconciliation
	// force-migrates a record; it is forensic and never overwritten.
	OriginalState string `json:"original_state,omitempty"`

	// Payload holds the stored payload bytes so Verify can recompute the
	// digest. Excluded from exports.
	Payload []byte `json:"-"`

	CreatedAtUTC time.Time `json:"created_at_utc"`
	UpdatedAtUTC time.Time `json:"updated_at_utc"`
}

// Sealed reports whether the record has entered its immutable phase.
// SUPERSEDED and QUARANTINED records stay sealed; quarantine is a hold on
// review, not a return to mutability.
func (e *Evidence) Sealed() bool {
	switch e.LedgerState {
	case state.Sealed, state.Superseded, state.Quarantined:
		return true
	}
	return false
}

// DeclaredMetadata returns the provenance fields in the canonical shape the
// metadata hash is computed over. Keep this aligned with the sealing
// pipeline: changing a key changes every future digest.
func (e *Evidence) DeclaredMetadata() map[string]any {
	m := map[string]any{
		"evidence_id":           e.EvidenceID.String(),
		"tenant_id":             e.TenantID.String(),
		"ingestion_method":      e.IngestionMethod,
		"source_system":         e.SourceSystem,
		"dataset_type":          e.DatasetType,
		"declared_scope":        e.DeclaredScope,
		"declared_intent":       e.DeclaredIntent,
		"retention_policy":      e.RetentionPolicy,
		"personal_data_present": e.PersonalDataPresent,
	}
	if len(e.PurposeTags) > 0 {
		tags := make([]any, len(e.PurposeTags))
		for i, t := range e.PurposeTags {
			tags[i] = t
		}
		m["purpose_tags"] = tags
	}
	if e.RetentionEndDate != nil {
		m["retention_end_date"] = e.RetentionEndDate.UTC().Format(time.RFC3339)
	}
	return m
}

// ValidateForSeal checks that every binding field required before sealing is
// present. Called on the INGESTED record inside the seal transaction.
func (e *Evidence) ValidateForSeal() error {
	if e.IngestionMethod == "" || e.SourceSystem == "" || e.DatasetType == "" || e.DeclaredScope == "" {
		return dErrors.WithReason(dErrors.CodeBadRequest, ReasonBindingFieldsRequired,
			"ingestion_method, source_system, dataset_type and declared_scope are required before sealing")
	}
	return nil
}

// ApplySeal fixes the hashes and terminal provenance metadata. The caller has
// already validated the state transition.
func (e *Evidence) ApplySeal(payloadHash, metadataHash, commandID string, sealedAt time.Time) {
	e.LedgerState = state.Sealed
	e.PayloadHashSHA256 = payloadHash
	e.MetadataHashSHA256 = metadataHash
	e.CommandID = commandID
	sealedAt = sealedAt.UTC()
	e.SealedAtUTC = &sealedAt
	e.UpdatedAtUTC = sealedAt
}

// ApplyQuarantine places a sealed record on administrative hold.
func (e *Evidence) ApplyQuarantine(reason, by string, now time.Time) {
	e.LedgerState = state.Quarantined
	e.QuarantineReason = reason
	e.QuarantinedBy = by
	now = now.UTC()
	e.QuarantineCreatedAtUTC = &now
	e.UpdatedAtUTC = now
}

// ApplyQuarantineRelease clears the quarantine fields and returns the record
// to SEALED. The clearing itself is audited by the caller.
func (e *Evidence) ApplyQuarantineRelease(now time.Time) {
	e.LedgerState = state.Sealed
	e.QuarantineReason = ""
	e.QuarantinedBy = ""
	e.QuarantineCreatedAtUTC = nil
	e.UpdatedAtUTC = now.UTC()
}
