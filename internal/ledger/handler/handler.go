// Package handler exposes the evidence ledger over HTTP. Handlers parse and
// validate the wire shape, then delegate to the service; tenant identity is
// always taken from the authenticated context, never from the request body.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"sigillum/internal/ledger"
	"sigillum/internal/ledger/audit"
	"sigillum/internal/ledger/draft"
	"sigillum/internal/ledger/service"
	"sigillum/internal/ledger/state"
	"sigillum/internal/platform/middleware"
	id "sigillum/pkg/domain"
)

//go:generate mockgen -source=handler.go -destination=mocks/mock_service.go -package=mocks

// Service is the ledger surface the handlers call.
type Service interface {
	CreateDraft(ctx context.Context, decl draft.Declaration) (*draft.Draft, error)
	GetDraft(ctx context.Context, draftID id.DraftID) (*draft.Draft, error)
	AddAttachment(ctx context.Context, draftID id.DraftID, fileName string, content []byte) (*draft.Attachment, error)
	SetPayload(ctx context.Context, draftID id.DraftID, payload string) (*draft.Draft, error)
	MarkReady(ctx context.Context, draftID id.DraftID) (*draft.Draft, error)
	Seal(ctx context.Context, draftID id.DraftID, commandID string) (*service.SealResult, error)

	GetEvidence(ctx context.Context, evidenceID id.EvidenceID) (*ledger.Evidence, error)
	GetTrail(ctx context.Context, evidenceID id.EvidenceID) ([]audit.Event, error)
	ListByState(ctx context.Context, st state.State) ([]*ledger.Evidence, error)
	UpdateEvidence(ctx context.Context, evidenceID id.EvidenceID, update service.DeclaredUpdate) (*ledger.Evidence, error)
	DeleteEvidence(ctx context.Context, evidenceID id.EvidenceID) error
	Supersede(ctx context.Context, oldID id.EvidenceID, draftID id.DraftID, commandID string) (*service.SealResult, error)
	Quarantine(ctx context.Context, evidenceID id.EvidenceID, reason string) (*ledger.Evidence, error)
	ReleaseQuarantine(ctx context.Context, evidenceID id.EvidenceID) (*ledger.Evidence, error)
	Verify(ctx context.Context, evidenceID id.EvidenceID) (*service.VerificationResult, error)
	ExportPackage(ctx context.Context, evidenceID id.EvidenceID) (*service.EvidencePackage, error)
}

type Handler struct {
	logger       *slog.Logger
	ledger       Service
	jwtValidator middleware.JWTValidator
}

func New(ledger Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		ledger:       ledger,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the tenant-scoped ledger routes.
func (h *Handler) Register(r chi.Router) {
	ledgerRouter := chi.NewRouter()
	ledgerRouter.Use(middleware.Recovery(h.logger))
	ledgerRouter.Use(middleware.RequestID)
	ledgerRouter.Use(middleware.RequestTime)
	ledgerRouter.Use(middleware.Logger(h.logger))
	ledgerRouter.Use(middleware.Timeout(30 * time.Second))
	ledgerRouter.Use(middleware.ContentTypeJSON)
	ledgerRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	ledgerRouter.Post("/drafts", h.handleCreateDraft)
	ledgerRouter.Get("/drafts/{draftID}", h.handleGetDraft)
	ledgerRouter.Post("/drafts/{draftID}/attachments", h.handleAddAttachment)
	ledgerRouter.Put("/drafts/{draftID}/payload", h.handleSetPayload)
	ledgerRouter.Post("/drafts/{draftID}/ready", h.handleMarkReady)
	ledgerRouter.Post("/drafts/{draftID}/seal", h.handleSeal)

	ledgerRouter.Get("/evidence", h.handleListEvidence)
	ledgerRouter.Get("/evidence/{evidenceID}", h.handleGetEvidence)
	ledgerRouter.Patch("/evidence/{evidenceID}", h.handleUpdateEvidence)
	ledgerRouter.Delete("/evidence/{evidenceID}", h.handleDeleteEvidence)
	ledgerRouter.Get("/evidence/{evidenceID}/audit", h.handleGetTrail)
	ledgerRouter.Post("/evidence/{evidenceID}/supersede", h.handleSupersede)
	ledgerRouter.Post("/evidence/{evidenceID}/quarantine", h.handleQuarantine)
	ledgerRouter.Post("/evidence/{evidenceID}/quarantine/release", h.handleReleaseQuarantine)
	ledgerRouter.Get("/evidence/{evidenceID}/verify", h.handleVerify)
	ledgerRouter.Get("/evidence/{evidenceID}/package", h.handleExportPackage)

	r.Mount("/ledger", ledgerRouter)
}
