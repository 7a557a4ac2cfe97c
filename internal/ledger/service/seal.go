package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"sigillum/internal/ledger"
	"sigillum/internal/ledger/audit"
	"sigillum/internal/ledger/draft"
	"sigillum/internal/ledger/hasher"
	"sigillum/internal/ledger/idempotency"
	"sigillum/internal/ledger/state"
	id "sigillum/pkg/domain"
	dErrors "sigillum/pkg/domain-errors"
	"sigillum/pkg/platform/sentinel"
	"sigillum/pkg/requestcontext"
)

// SealResult reports the outcome of a seal command. Replayed is true when the
// command id matched a previously completed seal and the original outcome was
// returned unchanged.
type SealResult struct {
	Evidence *ledger.Evidence `json:"evidence"`
	Replayed bool             `json:"replayed"`
}

// Seal converts a draft into a sealed Evidence record.
//
// The whole pipeline runs in one transaction: create the INGESTED record,
// compute both digests, transition to SEALED, write the ingestion and seal
// audit events, record the command outcome, and mark the draft consumed. If
// any step fails nothing is persisted.
//
// Idempotence is keyed on (tenant, draft, command id). A replayed command
// returns the original evidence record; two concurrent submissions of the
// same command id race on the command-record uniqueness constraint and the
// loser replays the winner's outcome.
func (s *Service) Seal(ctx context.Context, draftID id.DraftID, commandID string) (*SealResult, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Seal")
	defer span.End()
	span.SetAttributes(attribute.String("draft_id", draftID.String()))

	start := requestcontext.Now(ctx)
	tenantID := requestcontext.TenantID(ctx)

	if commandID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "command_id is required")
	}

	if res, err := s.replaySeal(ctx, tenantID, draftID, commandID); res != nil || err != nil {
		return res, err
	}

	var sealed *ledger.Evidence
	var replayed bool
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		d, err := s.drafts.FindByID(txCtx, tenantID, draftID)
		if err != nil {
			return translateDraftErr(err)
		}
		// A consumed draft already produced its record. Sealing it again is
		// an observational no-op whatever command id the caller retried
		// with: the existing record is returned and no hash is recomputed.
		if d.Status == draft.StatusSealed && d.SealedEvidenceID != nil {
			e, err := s.evidence.Get(txCtx, tenantID, *d.SealedEvidenceID)
			if err != nil {
				return translateEvidenceErr(err)
			}
			sealed, replayed = e, true
			return nil
		}
		if err := sealableDraft(d); err != nil {
			return err
		}

		e, err := s.sealDraft(txCtx, d, commandID, nil)
		if err != nil {
			return err
		}
		sealed = e
		return nil
	})
	if err != nil {
		// The loser of a concurrent duplicate race lands here after its
		// transaction rolled back; the winner's outcome is now visible.
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return s.replaySeal(ctx, tenantID, draftID, commandID)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if replayed {
		s.metrics.IncIdempotentReplays()
		s.logger.InfoContext(ctx, "seal of consumed draft replayed",
			"evidence_id", sealed.EvidenceID, "tenant_id", tenantID,
			"draft_id", draftID, "command_id", commandID)
		return &SealResult{Evidence: sealed, Replayed: true}, nil
	}

	s.metrics.IncEvidenceSealed()
	s.metrics.ObserveSealDuration(requestcontext.Now(ctx).Sub(start))
	span.SetAttributes(attribute.String("evidence_id", sealed.EvidenceID.String()))
	s.logger.InfoContext(ctx, "evidence sealed",
		"evidence_id", sealed.EvidenceID, "tenant_id", tenantID,
		"draft_id", draftID, "payload_hash", sealed.PayloadHashSHA256)
	return &SealResult{Evidence: sealed}, nil
}

// sealableDraft enforces the preconditions of sealing: the draft must have
// been explicitly marked READY_TO_SEAL and must stage at least one payload
// source.
func sealableDraft(d *draft.Draft) error {
	switch d.Status {
	case draft.StatusSealed:
		return translateDraftErr(sentinel.ErrSealed)
	case draft.StatusReadyToSeal:
	default:
		return dErrors.WithReason(dErrors.CodeConflict, ledger.ReasonInvalidState,
			"draft must be marked ready before sealing")
	}
	if !d.HasPayloadSource() {
		return dErrors.WithReason(dErrors.CodeBadRequest, ledger.ReasonNoPayload,
			"draft has no payload or attachments to seal")
	}
	return nil
}

// sealDraft runs the in-transaction portion of the pipeline. A non-nil
// supersedes links the new record to the sealed record it corrects.
func (s *Service) sealDraft(txCtx context.Context, d *draft.Draft, commandID string, supersedes *id.EvidenceID) (*ledger.Evidence, error) {
	now := requestcontext.Now(txCtx).UTC()
	decl := d.Declaration

	e := &ledger.Evidence{
		EvidenceID:           id.NewEvidenceID(),
		TenantID:             d.TenantID,
		LedgerState:          state.Ingested,
		IngestionMethod:      decl.IngestionMethod,
		SourceSystem:         decl.SourceSystem,
		DatasetType:          decl.DatasetType,
		DeclaredScope:        decl.DeclaredScope,
		DeclaredIntent:       decl.DeclaredIntent,
		PurposeTags:          decl.PurposeTags,
		RetentionPolicy:      decl.RetentionPolicy,
		PersonalDataPresent:  decl.PersonalDataPresent,
		RetentionEndDate:     decl.RetentionEndDate,
		CreatedBy:            d.CreatedBy,
		SupersedesEvidenceID: supersedes,
		Payload:              d.CombinedPayload(),
		CreatedAtUTC:         now,
		UpdatedAtUTC:         now,
	}
	if err := e.ValidateForSeal(); err != nil {
		return nil, err
	}

	if err := s.evidence.Create(txCtx, e); err != nil {
		return nil, translateEvidenceErr(err)
	}
	if err := s.auditor.Record(txCtx, audit.Event{
		TenantID:   e.TenantID,
		EvidenceID: &e.EvidenceID,
		Action:     audit.ActionEvidenceIngested,
		NewState:   state.Ingested,
		Context: map[string]any{
			"draft_id":       d.DraftID.String(),
			"correlation_id": d.CorrelationID,
		},
	}); err != nil {
		return nil, err
	}

	payloadHash := hasher.PayloadHash(e.Payload)
	metadataHash, err := hasher.MetadataHash(e.DeclaredMetadata())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "metadata hash failed")
	}

	if err := state.Transition(e.LedgerState, state.Sealed); err != nil {
		return nil, err
	}
	e.ApplySeal(payloadHash, metadataHash, commandID, now)

	if err := s.evidence.Seal(txCtx, e); err != nil {
		return nil, translateEvidenceErr(err)
	}
	if err := s.auditor.Record(txCtx, audit.Event{
		TenantID:      e.TenantID,
		EvidenceID:    &e.EvidenceID,
		Action:        audit.ActionEvidenceSealed,
		PreviousState: state.Ingested,
		NewState:      state.Sealed,
		Context: map[string]any{
			"payload_hash_sha256":  payloadHash,
			"metadata_hash_sha256": metadataHash,
			"command_id":           commandID,
		},
	}); err != nil {
		return nil, err
	}

	if err := s.guard.Commit(txCtx, idempotency.Record{
		TenantID:     e.TenantID,
		AggregateID:  d.DraftID.String(),
		CommandID:    commandID,
		Outcome:      map[string]any{"evidence_id": e.EvidenceID.String()},
		CreatedAtUTC: now,
	}); err != nil {
		return nil, err
	}

	if err := s.drafts.MarkSealed(txCtx, d.TenantID, d.DraftID, e.EvidenceID); err != nil {
		return nil, translateDraftErr(err)
	}
	return e, nil
}

// replaySeal answers an already-completed command from its recorded outcome.
func (s *Service) replaySeal(ctx context.Context, tenantID id.TenantID, draftID id.DraftID, commandID string) (*SealResult, error) {
	rec, err := s.guard.PriorOutcome(ctx, tenantID, draftID.String(), commandID)
	if err != nil || rec == nil {
		return nil, err
	}
	raw, ok := rec.Outcome["evidence_id"].(string)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "command outcome missing evidence id")
	}
	evidenceID, err := id.ParseEvidenceID(raw)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "command outcome corrupt")
	}
	e, err := s.evidence.Get(ctx, tenantID, evidenceID)
	if err != nil {
		return nil, translateEvidenceErr(err)
	}

	s.metrics.IncIdempotentReplays()
	s.logger.InfoContext(ctx, "seal command replayed",
		"evidence_id", evidenceID, "tenant_id", tenantID, "command_id", commandID)
	return &SealResult{Evidence: e, Replayed: true}, nil
}
