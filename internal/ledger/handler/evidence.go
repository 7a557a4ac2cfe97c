package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sigillum/internal/ledger"
	"sigillum/internal/ledger/service"
	"sigillum/internal/ledger/state"
	id "sigillum/pkg/domain"
	dErrors "sigillum/pkg/domain-errors"
	"sigillum/pkg/platform/httputil"
)

func (h *Handler) handleListEvidence(w http.ResponseWriter, r *http.Request) {
	st := state.State(r.URL.Query().Get("state"))
	if st == "" {
		st = state.Sealed
	}
	records, err := h.ledger.ListByState(r.Context(), st)
	if err != nil {
		h.writeError(r.Context(), w, r, "list evidence", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"evidence": records})
}

func (h *Handler) handleGetEvidence(w http.ResponseWriter, r *http.Request) {
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	e, err := h.ledger.GetEvidence(r.Context(), evidenceID)
	if err != nil {
		h.writeError(r.Context(), w, r, "get evidence", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) handleGetTrail(w http.ResponseWriter, r *http.Request) {
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	events, err := h.ledger.GetTrail(r.Context(), evidenceID)
	if err != nil {
		h.writeError(r.Context(), w, r, "get audit trail", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) handleUpdateEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}

	var req UpdateEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteErrorWithRequestID(w,
			dErrors.New(dErrors.CodeBadRequest, "invalid request body"), httputil.RequestIDFrom(r))
		return
	}

	e, err := h.ledger.UpdateEvidence(ctx, evidenceID, service.DeclaredUpdate{
		DeclaredIntent:  req.DeclaredIntent,
		PurposeTags:     req.PurposeTags,
		RetentionPolicy: req.RetentionPolicy,
		ReviewStatus:    req.ReviewStatus,
	})
	if err != nil {
		h.writeError(ctx, w, r, "update evidence", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) handleDeleteEvidence(w http.ResponseWriter, r *http.Request) {
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	err := h.ledger.DeleteEvidence(r.Context(), evidenceID)
	// DeleteEvidence never succeeds on an existing record; surface whatever
	// it reported.
	h.writeError(r.Context(), w, r, "delete evidence", err)
}

func (h *Handler) handleSupersede(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}

	var req SupersedeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteErrorWithRequestID(w,
			dErrors.New(dErrors.CodeBadRequest, "invalid request body"), httputil.RequestIDFrom(r))
		return
	}
	draftID, err := id.ParseDraftID(req.DraftID)
	if err != nil {
		httputil.WriteErrorWithRequestID(w,
			dErrors.WithReason(dErrors.CodeNotFound, ledger.ReasonDraftNotFound, "draft not found"),
			httputil.RequestIDFrom(r))
		return
	}

	res, err := h.ledger.Supersede(ctx, evidenceID, draftID, req.CommandID)
	if err != nil {
		h.writeError(ctx, w, r, "supersede", err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, res)
}

func (h *Handler) handleQuarantine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}

	var req QuarantineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteErrorWithRequestID(w,
			dErrors.New(dErrors.CodeBadRequest, "invalid request body"), httputil.RequestIDFrom(r))
		return
	}

	e, err := h.ledger.Quarantine(ctx, evidenceID, req.Reason)
	if err != nil {
		h.writeError(ctx, w, r, "quarantine", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) handleReleaseQuarantine(w http.ResponseWriter, r *http.Request) {
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	e, err := h.ledger.ReleaseQuarantine(r.Context(), evidenceID)
	if err != nil {
		h.writeError(r.Context(), w, r, "release quarantine", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	res, err := h.ledger.Verify(r.Context(), evidenceID)
	if err != nil {
		h.writeError(r.Context(), w, r, "verify", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleExportPackage(w http.ResponseWriter, r *http.Request) {
	evidenceID, ok := h.evidenceID(w, r)
	if !ok {
		return
	}
	pkg, err := h.ledger.ExportPackage(r.Context(), evidenceID)
	if err != nil {
		h.writeError(r.Context(), w, r, "export package", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pkg)
}

// evidenceID parses the route parameter; a malformed id is indistinguishable
// from a missing record.
func (h *Handler) evidenceID(w http.ResponseWriter, r *http.Request) (id.EvidenceID, bool) {
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		httputil.WriteErrorWithRequestID(w,
			dErrors.WithReason(dErrors.CodeNotFound, ledger.ReasonNotFound, "evidence record not found"),
			httputil.RequestIDFrom(r))
		return id.EvidenceID{}, false
	}
	return evidenceID, true
}

// writeError logs expected failures at warn level and everything else at
// error level, then writes the coded response.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, r *http.Request, op string, err error) {
	requestID := httputil.RequestIDFrom(r)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, op+" failed", "request_id", requestID, "error", err.Error())
	default:
		h.logger.WarnContext(ctx, op+" rejected", "request_id", requestID, "error", err.Error())
	}
	httputil.WriteErrorWithRequestID(w, err, requestID)
}
