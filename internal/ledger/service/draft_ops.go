package service

import (
	"context"

	"github.com/google/uuid"

	"sigillum/internal/ledger"
	"sigillum/internal/ledger/audit"
	"sigillum/internal/ledger/draft"
	"sigillum/internal/ledger/hasher"
	id "sigillum/pkg/domain"
	dErrors "sigillum/pkg/domain-errors"
	"sigillum/pkg/platform/sentinel"
	"sigillum/pkg/requestcontext"
)

// CreateDraft validates a declaration and stages a new draft for the calling
// tenant. Unresolved scopes require a substantive quarantine reason and a
// bounded resolution deadline before the draft is even accepted.
func (s *Service) CreateDraft(ctx context.Context, decl draft.Declaration) (*draft.Draft, error) {
	tenantID := requestcontext.TenantID(ctx)
	userID := requestcontext.UserID(ctx)

	d, err := draft.New(tenantID, userID, decl, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.drafts.Create(txCtx, d); err != nil {
			return translateDraftErr(err)
		}
		return s.auditor.Record(txCtx, audit.Event{
			TenantID: tenantID,
			Action:   audit.ActionDraftCreated,
			Context: map[string]any{
				"draft_id":       d.DraftID.String(),
				"correlation_id": d.CorrelationID,
				"declared_scope": d.Declaration.DeclaredScope,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncDraftsCreated()
	s.logger.InfoContext(ctx, "draft created",
		"draft_id", d.DraftID, "tenant_id", tenantID, "correlation_id", d.CorrelationID)
	return d, nil
}

// GetDraft returns the caller's draft.
func (s *Service) GetDraft(ctx context.Context, draftID id.DraftID) (*draft.Draft, error) {
	d, err := s.drafts.FindByID(ctx, requestcontext.TenantID(ctx), draftID)
	if err != nil {
		return nil, translateDraftErr(err)
	}
	return d, nil
}

// AddAttachment stages file content on a draft. The digest is computed
// server-side from the received bytes; a client-declared hash is ignored.
func (s *Service) AddAttachment(ctx context.Context, draftID id.DraftID, fileName string, content []byte) (*draft.Attachment, error) {
	if fileName == "" || len(content) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "attachment requires a file name and non-empty content")
	}
	tenantID := requestcontext.TenantID(ctx)

	var att draft.Attachment
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		d, err := s.drafts.FindByID(txCtx, tenantID, draftID)
		if err != nil {
			return translateDraftErr(err)
		}
		if d.Status == draft.StatusSealed {
			return translateDraftErr(sentinel.ErrSealed)
		}

		now := requestcontext.Now(txCtx).UTC()
		att = draft.Attachment{
			AttachmentID: id.AttachmentID(uuid.New()),
			FileName:     fileName,
			SHA256:       hasher.PayloadHash(content),
			SizeBytes:    int64(len(content)),
			Content:      content,
			AddedAtUTC:   now,
		}
		d.Attachments = append(d.Attachments, att)
		d.UpdatedAtUTC = now

		if err := s.drafts.Update(txCtx, d); err != nil {
			return translateDraftErr(err)
		}
		return s.auditor.Record(txCtx, audit.Event{
			TenantID: tenantID,
			Action:   audit.ActionAttachmentAdded,
			Context: map[string]any{
				"draft_id":      draftID.String(),
				"attachment_id": att.AttachmentID.String(),
				"file_name":     fileName,
				"sha256":        att.SHA256,
				"size_bytes":    att.SizeBytes,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &att, nil
}

// SetPayload stages an inline raw payload on a draft, replacing any previous
// one. The payload takes precedence over attachments at hash time.
func (s *Service) SetPayload(ctx context.Context, draftID id.DraftID, payload string) (*draft.Draft, error) {
	if payload == "" {
		return nil, dErrors.WithReason(dErrors.CodeBadRequest, ledger.ReasonNoPayload, "payload must not be empty")
	}
	tenantID := requestcontext.TenantID(ctx)

	var out *draft.Draft
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		d, err := s.drafts.FindByID(txCtx, tenantID, draftID)
		if err != nil {
			return translateDraftErr(err)
		}
		if d.Status == draft.StatusSealed {
			return translateDraftErr(sentinel.ErrSealed)
		}
		d.RawPayload = payload
		d.UpdatedAtUTC = requestcontext.Now(txCtx).UTC()
		if err := s.drafts.Update(txCtx, d); err != nil {
			return translateDraftErr(err)
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkReady transitions a draft to READY_TO_SEAL. A draft with no staged
// payload source cannot be marked ready.
func (s *Service) MarkReady(ctx context.Context, draftID id.DraftID) (*draft.Draft, error) {
	tenantID := requestcontext.TenantID(ctx)

	var out *draft.Draft
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		d, err := s.drafts.FindByID(txCtx, tenantID, draftID)
		if err != nil {
			return translateDraftErr(err)
		}
		if d.Status == draft.StatusSealed {
			return translateDraftErr(sentinel.ErrSealed)
		}
		if !d.HasPayloadSource() {
			return dErrors.WithReason(dErrors.CodeBadRequest, ledger.ReasonNoPayload,
				"draft has no payload or attachments to seal")
		}
		d.Status = draft.StatusReadyToSeal
		d.UpdatedAtUTC = requestcontext.Now(txCtx).UTC()
		if err := s.drafts.Update(txCtx, d); err != nil {
			return translateDraftErr(err)
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
