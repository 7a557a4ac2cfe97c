// Package service orchestrates the evidence ledger: draft staging, the
// sealing pipeline, the immutability gate, quarantine, and verification.
// Every mutation runs inside a single database transaction together with its
// audit events and idempotency record.
package service

import (
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"sigillum/internal/ledger"
	"sigillum/internal/ledger/audit"
	"sigillum/internal/ledger/draft"
	"sigillum/internal/ledger/idempotency"
	"sigillum/internal/ledger/store"
	"sigillum/internal/platform/metrics"
	dErrors "sigillum/pkg/domain-errors"
	"sigillum/pkg/platform/sentinel"
	txcontext "sigillum/pkg/platform/tx"
)

type Service struct {
	evidence store.Store
	drafts   draft.Store
	auditor  *audit.Writer
	guard    *idempotency.Guard
	runner   txcontext.Runner
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

func New(
	evidence store.Store,
	drafts draft.Store,
	auditor *audit.Writer,
	guard *idempotency.Guard,
	runner txcontext.Runner,
	m *metrics.Metrics,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Service {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("sigillum/ledger")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		evidence: evidence,
		drafts:   drafts,
		auditor:  auditor,
		guard:    guard,
		runner:   runner,
		metrics:  m,
		tracer:   tracer,
		logger:   logger,
	}
}

// translateEvidenceErr maps storage sentinels onto the coded errors the HTTP
// boundary understands. Tenant mismatches surface as NOT_FOUND so the
// existence of another tenant's record is never revealed.
func translateEvidenceErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.WithReason(dErrors.CodeNotFound, ledger.ReasonNotFound, "evidence record not found")
	case errors.Is(err, sentinel.ErrSealed):
		return dErrors.WithReason(dErrors.CodeConflict, ledger.ReasonSealedImmutable, "evidence record is sealed")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.WithReason(dErrors.CodeConflict, ledger.ReasonInvalidState, "evidence record changed state")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "evidence record already exists")
	}
	return err
}

func translateDraftErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.WithReason(dErrors.CodeNotFound, ledger.ReasonDraftNotFound, "draft not found")
	case errors.Is(err, sentinel.ErrSealed):
		return dErrors.WithReason(dErrors.CodeConflict, ledger.ReasonDraftSealed, "draft is sealed and read-only")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "draft already exists")
	}
	return err
}
