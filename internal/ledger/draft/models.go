// Package draft holds the pre-seal staging area. A Draft is the only mutable
// object in the ledger; sealing consumes it and produces exactly one
// immutable Evidence record.
package draft

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "sigillum/pkg/domain"
	dErrors "sigillum/pkg/domain-errors"
)

// Status of a draft. SEALED drafts are read-only.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusReadyToSeal Status = "READY_TO_SEAL"
	StatusSealed      Status = "SEALED"
)

// Reason codes shared with the ledger package are duplicated here to avoid an
// import cycle; the handler maps both to the same wire values.
const (
	reasonBindingFieldsRequired     = "BINDING_FIELDS_REQUIRED"
	reasonQuarantineReasonRequired  = "QUARANTINE_REASON_REQUIRED"
	reasonInvalidResolutionDeadline = "INVALID_RESOLUTION_DEADLINE"
)

// MinQuarantineReasonLen prevents unscoped evidence from entering the system
// with a throwaway justification.
const MinQuarantineReasonLen = 30

// Resolution deadline window for unscoped drafts.
const (
	MinResolutionWindow = 24 * time.Hour
	MaxResolutionWindow = 90 * 24 * time.Hour
)

// Attachment is a file reference staged on a draft. SHA256 is always computed
// server-side; a client-supplied hash is never trusted.
type Attachment struct {
	AttachmentID id.AttachmentID `json:"attachment_id"`
	FileName     string          `json:"file_name"`
	SHA256       string          `json:"sha256"`
	SizeBytes    int64           `json:"size_bytes"`
	Content      []byte          `json:"-"`
	AddedAtUTC   time.Time       `json:"added_at_utc"`
}

// Declaration carries the binding fields a caller declares at draft creation.
type Declaration struct {
	IngestionMethod     string     `json:"ingestion_method"`
	SourceSystem        string     `json:"source_system"`
	DatasetType         string     `json:"dataset_type"`
	DeclaredScope       string     `json:"declared_scope"`
	DeclaredIntent      string     `json:"declared_intent"`
	PurposeTags         []string   `json:"purpose_tags"`
	RetentionPolicy     string     `json:"retention_policy"`
	PersonalDataPresent bool       `json:"personal_data_present"`
	RetentionEndDate    *time.Time `json:"retention_end_date"`
	QuarantineReason    string     `json:"quarantine_reason"`
	ResolutionDeadline  *time.Time `json:"resolution_deadline"`
}

// Draft is the tenant-scoped staging object, keyed by DraftID and correlated
// by CorrelationID for end-to-end tracing.
type Draft struct {
	DraftID       id.DraftID  `json:"draft_id"`
	TenantID      id.TenantID `json:"tenant_id"`
	CorrelationID string      `json:"correlation_id"`

	Declaration Declaration  `json:"declaration"`
	Attachments []Attachment `json:"attachments,omitempty"`
	RawPayload  string       `json:"raw_payload,omitempty"`

	Status           Status         `json:"status"`
	SealedEvidenceID *id.EvidenceID `json:"sealed_evidence_id,omitempty"`

	CreatedBy    id.UserID `json:"created_by_user_id"`
	CreatedAtUTC time.Time `json:"created_at_utc"`
	UpdatedAtUTC time.Time `json:"updated_at_utc"`
}

// ScopeUnresolved reports whether the declared scope leaves the evidence
// unlinked to a concrete target.
func ScopeUnresolved(scope string) bool {
	switch strings.ToUpper(strings.TrimSpace(scope)) {
	case "UNKNOWN", "UNLINKED", "":
		return true
	}
	return false
}

// New validates a declaration and constructs a Draft.
//
// Errors carry the machine-readable reason codes the HTTP boundary returns:
// BINDING_FIELDS_REQUIRED, QUARANTINE_REASON_REQUIRED,
// INVALID_RESOLUTION_DEADLINE.
func New(tenantID id.TenantID, createdBy id.UserID, decl Declaration, now time.Time) (*Draft, error) {
	if decl.IngestionMethod == "" || decl.SourceSystem == "" || decl.DatasetType == "" || decl.DeclaredScope == "" {
		return nil, dErrors.WithReason(dErrors.CodeBadRequest, reasonBindingFieldsRequired,
			"ingestion_method, source_system, dataset_type and declared_scope are required")
	}

	if ScopeUnresolved(decl.DeclaredScope) {
		// Unscoped evidence must carry an accountable justification and a
		// bounded resolution deadline so it cannot linger unlinked forever.
		if len(strings.TrimSpace(decl.QuarantineReason)) < MinQuarantineReasonLen {
			return nil, dErrors.WithReason(dErrors.CodeBadRequest, reasonQuarantineReasonRequired,
				"declared_scope is unresolved: quarantine_reason of at least 30 characters is required")
		}
		if decl.ResolutionDeadline == nil {
			return nil, dErrors.WithReason(dErrors.CodeBadRequest, reasonInvalidResolutionDeadline,
				"declared_scope is unresolved: resolution_deadline is required")
		}
		window := decl.ResolutionDeadline.Sub(now)
		if window < MinResolutionWindow || window > MaxResolutionWindow {
			return nil, dErrors.WithReason(dErrors.CodeBadRequest, reasonInvalidResolutionDeadline,
				"resolution_deadline must fall between 1 and 90 days from now")
		}
	}

	now = now.UTC()
	return &Draft{
		DraftID:       id.NewDraftID(),
		TenantID:      tenantID,
		CorrelationID: uuid.NewString(),
		Declaration:   decl,
		Status:        StatusDraft,
		CreatedBy:     createdBy,
		CreatedAtUTC:  now,
		UpdatedAtUTC:  now,
	}, nil
}

// HasPayloadSource reports whether at least one payload source (attachment or
// raw payload) is staged. Sealing an empty draft is rejected.
func (d *Draft) HasPayloadSource() bool {
	return d.RawPayload != "" || len(d.Attachments) > 0
}

// CombinedPayload returns the bytes the payload hash is computed over: the
// raw payload if present, otherwise every attachment's content concatenated
// in staging order.
func (d *Draft) CombinedPayload() []byte {
	if d.RawPayload != "" {
		return []byte(d.RawPayload)
	}
	var buf []byte
	for _, a := range d.Attachments {
		buf = append(buf, a.Content...)
	}
	return buf
}
