package handler

import (
	"time"

	"sigillum/internal/ledger/draft"
)

// CreateDraftRequest is the wire shape for draft creation. The declaration
// binds the caller to a scope and purpose before any payload exists.
type CreateDraftRequest struct {
	IngestionMethod     string     `json:"ingestion_method"`
	SourceSystem        string     `json:"source_system"`
	DatasetType         string     `json:"dataset_type"`
	DeclaredScope       string     `json:"declared_scope"`
	DeclaredIntent      string     `json:"declared_intent,omitempty"`
	PurposeTags         []string   `json:"purpose_tags,omitempty"`
	RetentionPolicy     string     `json:"retention_policy,omitempty"`
	PersonalDataPresent bool       `json:"personal_data_present,omitempty"`
	RetentionEndDate    *time.Time `json:"retention_end_date,omitempty"`
	QuarantineReason    string     `json:"quarantine_reason,omitempty"`
	ResolutionDeadline  *time.Time `json:"resolution_deadline,omitempty"`
}

func (r CreateDraftRequest) declaration() draft.Declaration {
	return draft.Declaration{
		IngestionMethod:     r.IngestionMethod,
		SourceSystem:        r.SourceSystem,
		DatasetType:         r.DatasetType,
		DeclaredScope:       r.DeclaredScope,
		DeclaredIntent:      r.DeclaredIntent,
		PurposeTags:         r.PurposeTags,
		RetentionPolicy:     r.RetentionPolicy,
		PersonalDataPresent: r.PersonalDataPresent,
		RetentionEndDate:    r.RetentionEndDate,
		QuarantineReason:    r.QuarantineReason,
		ResolutionDeadline:  r.ResolutionDeadline,
	}
}

// AddAttachmentRequest stages file content on a draft. ContentBase64 is
// decoded and hashed server-side; SHA256, if supplied, is ignored.
type AddAttachmentRequest struct {
	FileName      string `json:"file_name"`
	ContentBase64 string `json:"content_base64"`
	SHA256        string `json:"sha256,omitempty"`
}

type SetPayloadRequest struct {
	Payload string `json:"payload"`
}

// SealRequest carries the caller-chosen command id that makes the seal
// retry-safe.
type SealRequest struct {
	CommandID string `json:"command_id"`
}

// SupersedeRequest points at the READY_TO_SEAL corrective draft.
type SupersedeRequest struct {
	DraftID   string `json:"draft_id"`
	CommandID string `json:"command_id"`
}

type QuarantineRequest struct {
	Reason string `json:"reason"`
}

// UpdateEvidenceRequest is the PATCH shape. Absent fields stay untouched.
type UpdateEvidenceRequest struct {
	DeclaredIntent  *string  `json:"declared_intent,omitempty"`
	PurposeTags     []string `json:"purpose_tags,omitempty"`
	RetentionPolicy *string  `json:"retention_policy,omitempty"`
	ReviewStatus    *string  `json:"review_status,omitempty"`
}
