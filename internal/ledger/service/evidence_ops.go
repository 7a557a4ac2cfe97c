package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"sigillum/internal/ledger"
	"sigillum/internal/ledger/audit"
	"sigillum/internal/ledger/draft"
	"sigillum/internal/ledger/hasher"
	"sigillum/internal/ledger/state"
	id "sigillum/pkg/domain"
	dErrors "sigillum/pkg/domain-errors"
	"sigillum/pkg/platform/sentinel"
	"sigillum/pkg/requestcontext"
)

// GetEvidence returns the caller's evidence record. Records of other tenants
// are indistinguishable from missing ones.
func (s *Service) GetEvidence(ctx context.Context, evidenceID id.EvidenceID) (*ledger.Evidence, error) {
	e, err := s.evidence.Get(ctx, requestcontext.TenantID(ctx), evidenceID)
	if err != nil {
		return nil, translateEvidenceErr(err)
	}
	return e, nil
}

// GetTrail returns the audit trail for one evidence record, oldest first.
// The record must exist for the caller's tenant.
func (s *Service) GetTrail(ctx context.Context, evidenceID id.EvidenceID) ([]audit.Event, error) {
	tenantID := requestcontext.TenantID(ctx)
	if _, err := s.evidence.Get(ctx, tenantID, evidenceID); err != nil {
		return nil, translateEvidenceErr(err)
	}
	return s.auditor.Trail(ctx, tenantID, evidenceID)
}

// ListByState returns the caller's records in the given state.
func (s *Service) ListByState(ctx context.Context, st state.State) ([]*ledger.Evidence, error) {
	if !st.Valid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown ledger state %q", st)
	}
	return s.evidence.FilterByTenantAndState(ctx, requestcontext.TenantID(ctx), st)
}

// DeclaredUpdate carries the declared-metadata changes a PATCH may request.
// Nil pointers leave the field untouched.
type DeclaredUpdate struct {
	DeclaredIntent  *string
	PurposeTags     []string
	RetentionPolicy *string
	ReviewStatus    *string
}

func (u DeclaredUpdate) attemptedDeclaredFields() []string {
	var fields []string
	if u.DeclaredIntent != nil {
		fields = append(fields, "declared_intent")
	}
	if u.PurposeTags != nil {
		fields = append(fields, "purpose_tags")
	}
	if u.RetentionPolicy != nil {
		fields = append(fields, "retention_policy")
	}
	return fields
}

// UpdateEvidence applies metadata changes to a record. Review status is the
// only field that stays mutable for the record's whole life; declared
// provenance fields are writable while INGESTED and frozen from the moment
// the record seals. An attempt to touch frozen fields is itself evidence:
// it is written to the audit trail as a policy violation before the request
// is rejected.
func (s *Service) UpdateEvidence(ctx context.Context, evidenceID id.EvidenceID, update DeclaredUpdate) (*ledger.Evidence, error) {
	tenantID := requestcontext.TenantID(ctx)

	current, err := s.evidence.Get(ctx, tenantID, evidenceID)
	if err != nil {
		return nil, translateEvidenceErr(err)
	}
	attempted := update.attemptedDeclaredFields()
	if current.Sealed() && len(attempted) > 0 {
		// The violation record must survive the rejection, so it is written
		// outside the (never started) mutation transaction.
		if err := s.recordViolation(ctx, current, "update", attempted); err != nil {
			return nil, err
		}
		return nil, dErrors.WithReason(dErrors.CodeConflict, ledger.ReasonSealedImmutable,
			"sealed evidence metadata is immutable: "+strings.Join(attempted, ", "))
	}

	var out *ledger.Evidence
	var sealedMeanwhile *ledger.Evidence
	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		e, err := s.evidence.Get(txCtx, tenantID, evidenceID)
		if err != nil {
			return translateEvidenceErr(err)
		}
		// The record may have sealed since the pre-check above. The blocked
		// attempt still has to land on the trail, so the event is written
		// outside this (rolled back) transaction.
		if e.Sealed() && len(attempted) > 0 {
			sealedMeanwhile = e
			return sentinel.ErrSealed
		}

		if update.DeclaredIntent != nil {
			e.DeclaredIntent = *update.DeclaredIntent
		}
		if update.PurposeTags != nil {
			e.PurposeTags = update.PurposeTags
		}
		if update.RetentionPolicy != nil {
			e.RetentionPolicy = *update.RetentionPolicy
		}
		if update.ReviewStatus != nil {
			e.ReviewStatus = *update.ReviewStatus
		}
		e.UpdatedAtUTC = requestcontext.Now(txCtx).UTC()

		// A sealed record only ever reaches this point for a review-status
		// change; declared fields go through the INGESTED-guarded write.
		if e.Sealed() {
			if err := s.evidence.UpdateReviewStatus(txCtx, e); err != nil {
				return translateEvidenceErr(err)
			}
		} else if err := s.evidence.UpdateDeclared(txCtx, e); err != nil {
			return translateEvidenceErr(err)
		}
		out = e
		return nil
	})
	if err != nil {
		if sealedMeanwhile != nil && errors.Is(err, sentinel.ErrSealed) {
			if vErr := s.recordViolation(ctx, sealedMeanwhile, "update", attempted); vErr != nil {
				return nil, vErr
			}
			return nil, dErrors.WithReason(dErrors.CodeConflict, ledger.ReasonSealedImmutable,
				"sealed evidence metadata is immutable: "+strings.Join(attempted, ", "))
		}
		return nil, err
	}
	return out, nil
}

// DeleteEvidence always fails: the ledger is append-only and no caller, in
// any state, may remove a record. The attempt is audited.
func (s *Service) DeleteEvidence(ctx context.Context, evidenceID id.EvidenceID) error {
	e, err := s.evidence.Get(ctx, requestcontext.TenantID(ctx), evidenceID)
	if err != nil {
		return translateEvidenceErr(err)
	}
	if err := s.recordViolation(ctx, e, "delete", nil); err != nil {
		return err
	}
	return dErrors.WithReason(dErrors.CodeConflict, ledger.ReasonImmutableEvidence,
		"evidence records cannot be deleted")
}

// recordViolation appends a policy-violation audit event. The rejected
// request never opens a transaction, so the event commits on its own and
// survives the rejection.
func (s *Service) recordViolation(ctx context.Context, e *ledger.Evidence, operation string, attemptedFields []string) error {
	eventCtx := map[string]any{"operation": operation}
	if len(attemptedFields) > 0 {
		fields := make([]any, len(attemptedFields))
		for i, f := range attemptedFields {
			fields[i] = f
		}
		eventCtx["attempted_fields"] = fields
	}

	err := s.auditor.Record(ctx, audit.Event{
		TenantID:      e.TenantID,
		EvidenceID:    &e.EvidenceID,
		Action:        audit.ActionPolicyViolation,
		PreviousState: e.LedgerState,
		NewState:      e.LedgerState,
		ReasonCode:    ledger.ReasonSealedImmutable,
		Context:       eventCtx,
	})
	if err != nil {
		return err
	}
	s.metrics.IncPolicyViolations()
	return nil
}

// Supersede seals a corrective draft and retires the record it replaces.
// Both sides commit atomically: the old record moves SEALED to SUPERSEDED
// with a forward pointer, the new record seals with a back pointer, and the
// old record itself is never otherwise touched.
func (s *Service) Supersede(ctx context.Context, oldID id.EvidenceID, draftID id.DraftID, commandID string) (*SealResult, error) {
	tenantID := requestcontext.TenantID(ctx)
	if commandID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "command_id is required")
	}

	if res, err := s.replaySeal(ctx, tenantID, draftID, commandID); res != nil || err != nil {
		return res, err
	}

	var sealed *ledger.Evidence
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		old, err := s.evidence.Get(txCtx, tenantID, oldID)
		if err != nil {
			return translateEvidenceErr(err)
		}
		if old.LedgerState != state.Sealed {
			return dErrors.WithReason(dErrors.CodeConflict, state.ReasonInvalidTransition,
				"only a SEALED record can be superseded")
		}

		d, err := s.drafts.FindByID(txCtx, tenantID, draftID)
		if err != nil {
			return translateDraftErr(err)
		}
		if err := sealableDraft(d); err != nil {
			return err
		}

		e, err := s.sealDraft(txCtx, d, commandID, &oldID)
		if err != nil {
			return err
		}
		if err := s.evidence.Supersede(txCtx, tenantID, oldID, e.EvidenceID); err != nil {
			return translateEvidenceErr(err)
		}
		if err := s.auditor.Record(txCtx, audit.Event{
			TenantID:      tenantID,
			EvidenceID:    &oldID,
			Action:        audit.ActionEvidenceSuperseded,
			PreviousState: state.Sealed,
			NewState:      state.Superseded,
			Context:       map[string]any{"superseded_by_evidence_id": e.EvidenceID.String()},
		}); err != nil {
			return err
		}
		sealed = e
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return s.replaySeal(ctx, tenantID, draftID, commandID)
		}
		return nil, err
	}

	s.metrics.IncEvidenceSealed()
	s.logger.InfoContext(ctx, "evidence superseded",
		"old_evidence_id", oldID, "new_evidence_id", sealed.EvidenceID, "tenant_id", tenantID)
	return &SealResult{Evidence: sealed}, nil
}

// Quarantine places a sealed record on administrative hold. The reason is
// accountable text, not a code, and must carry enough substance to review.
func (s *Service) Quarantine(ctx context.Context, evidenceID id.EvidenceID, reason string) (*ledger.Evidence, error) {
	if len(strings.TrimSpace(reason)) < draft.MinQuarantineReasonLen {
		return nil, dErrors.WithReason(dErrors.CodeBadRequest, ledger.ReasonQuarantineReasonRequired,
			"quarantine reason of at least 30 characters is required")
	}
	tenantID := requestcontext.TenantID(ctx)

	var out *ledger.Evidence
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		e, err := s.evidence.Get(txCtx, tenantID, evidenceID)
		if err != nil {
			return translateEvidenceErr(err)
		}
		if err := state.Transition(e.LedgerState, state.Quarantined); err != nil {
			return err
		}

		prev := e.LedgerState
		e.ApplyQuarantine(reason, requestcontext.UserID(txCtx).String(), requestcontext.Now(txCtx))
		if err := s.evidence.Quarantine(txCtx, e); err != nil {
			return translateEvidenceErr(err)
		}
		if err := s.auditor.Record(txCtx, audit.Event{
			TenantID:      tenantID,
			EvidenceID:    &evidenceID,
			Action:        audit.ActionQuarantined,
			PreviousState: prev,
			NewState:      state.Quarantined,
			Context:       map[string]any{"quarantine_reason": reason},
		}); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReleaseQuarantine lifts the hold and returns the record to SEALED. The
// cleared reason is preserved in the audit trail, not on the record.
func (s *Service) ReleaseQuarantine(ctx context.Context, evidenceID id.EvidenceID) (*ledger.Evidence, error) {
	tenantID := requestcontext.TenantID(ctx)

	var out *ledger.Evidence
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		e, err := s.evidence.Get(txCtx, tenantID, evidenceID)
		if err != nil {
			return translateEvidenceErr(err)
		}
		if e.LedgerState != state.Quarantined {
			return dErrors.WithReason(dErrors.CodeConflict, state.ReasonInvalidTransition,
				"only a QUARANTINED record can be released")
		}

		clearedReason := e.QuarantineReason
		e.ApplyQuarantineRelease(requestcontext.Now(txCtx))
		if err := s.evidence.ReleaseQuarantine(txCtx, e); err != nil {
			return translateEvidenceErr(err)
		}
		if err := s.auditor.Record(txCtx, audit.Event{
			TenantID:      tenantID,
			EvidenceID:    &evidenceID,
			Action:        audit.ActionQuarantineCleared,
			PreviousState: state.Quarantined,
			NewState:      state.Sealed,
			Context:       map[string]any{"cleared_reason": clearedReason},
		}); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VerificationResult reports a hash verification. Verification never mutates
// the record; a mismatch is an alarm, not a state change.
type VerificationResult struct {
	EvidenceID           id.EvidenceID `json:"evidence_id"`
	PayloadHashMatch     bool          `json:"payload_hash_match"`
	MetadataHashMatch    bool          `json:"metadata_hash_match"`
	StoredPayloadHash    string        `json:"stored_payload_hash"`
	ComputedPayloadHash  string        `json:"computed_payload_hash"`
	StoredMetadataHash   string        `json:"stored_metadata_hash"`
	ComputedMetadataHash string        `json:"computed_metadata_hash"`
}

// Verify recomputes both digests from stored data and compares them against
// the sealed values.
func (s *Service) Verify(ctx context.Context, evidenceID id.EvidenceID) (*VerificationResult, error) {
	e, err := s.GetEvidence(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if !e.Sealed() {
		return nil, dErrors.WithReason(dErrors.CodeConflict, ledger.ReasonInvalidState,
			"only sealed evidence carries hashes to verify")
	}

	computedPayload := hasher.PayloadHash(e.Payload)
	computedMetadata, err := hasher.MetadataHash(e.DeclaredMetadata())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "metadata hash failed")
	}

	res := &VerificationResult{
		EvidenceID:           e.EvidenceID,
		PayloadHashMatch:     computedPayload == e.PayloadHashSHA256,
		MetadataHashMatch:    computedMetadata == e.MetadataHashSHA256,
		StoredPayloadHash:    e.PayloadHashSHA256,
		ComputedPayloadHash:  computedPayload,
		StoredMetadataHash:   e.MetadataHashSHA256,
		ComputedMetadataHash: computedMetadata,
	}
	if !res.PayloadHashMatch || !res.MetadataHashMatch {
		s.metrics.IncHashVerifyMismatches()
		s.logger.ErrorContext(ctx, "hash verification mismatch",
			"evidence_id", evidenceID, "payload_match", res.PayloadHashMatch,
			"metadata_match", res.MetadataHashMatch)
	}
	return res, nil
}

// EvidencePackage is the regulator-facing export: the sealed record, its
// full audit trail, and a digest over the package content. Payload bytes are
// never included.
type EvidencePackage struct {
	Evidence       *ledger.Evidence `json:"evidence"`
	AuditTrail     []audit.Event    `json:"audit_trail"`
	GeneratedAtUTC string           `json:"generated_at_utc"`
	ContentDigest  string           `json:"content_digest_sha256"`
}

// ExportPackage assembles the evidence package for one sealed record.
func (s *Service) ExportPackage(ctx context.Context, evidenceID id.EvidenceID) (*EvidencePackage, error) {
	e, err := s.GetEvidence(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if !e.Sealed() {
		return nil, dErrors.WithReason(dErrors.CodeConflict, ledger.ReasonInvalidState,
			"only sealed evidence can be exported")
	}
	trail, err := s.auditor.Trail(ctx, e.TenantID, evidenceID)
	if err != nil {
		return nil, err
	}

	pkg := &EvidencePackage{
		Evidence:       e,
		AuditTrail:     trail,
		GeneratedAtUTC: requestcontext.Now(ctx).UTC().Format(time.RFC3339),
	}
	canonical, err := hasher.CanonicalJSON(pkg)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "package digest failed")
	}
	pkg.ContentDigest = hasher.PayloadHash(canonical)
	return pkg, nil
}
