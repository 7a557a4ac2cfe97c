package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sigillum/internal/ledger"
	id "sigillum/pkg/domain"
	dErrors "sigillum/pkg/domain-errors"
	"sigillum/pkg/platform/httputil"
)

func (h *Handler) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteErrorWithRequestID(w,
			dErrors.New(dErrors.CodeBadRequest, "invalid request body"), httputil.RequestIDFrom(r))
		return
	}

	d, err := h.ledger.CreateDraft(ctx, req.declaration())
	if err != nil {
		h.writeError(ctx, w, r, "create draft", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	d, err := h.ledger.GetDraft(r.Context(), draftID)
	if err != nil {
		h.writeError(r.Context(), w, r, "get draft", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleAddAttachment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}

	var req AddAttachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteErrorWithRequestID(w,
			dErrors.New(dErrors.CodeBadRequest, "invalid request body"), httputil.RequestIDFrom(r))
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		httputil.WriteErrorWithRequestID(w,
			dErrors.New(dErrors.CodeBadRequest, "content_base64 is not valid base64"), httputil.RequestIDFrom(r))
		return
	}

	att, err := h.ledger.AddAttachment(ctx, draftID, req.FileName, content)
	if err != nil {
		h.writeError(ctx, w, r, "add attachment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, att)
}

func (h *Handler) handleSetPayload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}

	var req SetPayloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteErrorWithRequestID(w,
			dErrors.New(dErrors.CodeBadRequest, "invalid request body"), httputil.RequestIDFrom(r))
		return
	}

	d, err := h.ledger.SetPayload(ctx, draftID, req.Payload)
	if err != nil {
		h.writeError(ctx, w, r, "set payload", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleMarkReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	d, err := h.ledger.MarkReady(ctx, draftID)
	if err != nil {
		h.writeError(ctx, w, r, "mark ready", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleSeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}

	// The command id may arrive in the body or, for body-less retries, in
	// the Idempotency-Key header. The body wins when both are present.
	var req SealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteErrorWithRequestID(w,
			dErrors.New(dErrors.CodeBadRequest, "invalid request body"), httputil.RequestIDFrom(r))
		return
	}
	if req.CommandID == "" {
		req.CommandID = r.Header.Get("Idempotency-Key")
	}

	res, err := h.ledger.Seal(ctx, draftID, req.CommandID)
	if err != nil {
		h.writeError(ctx, w, r, "seal", err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, res)
}

// draftID parses the route parameter; a malformed id is indistinguishable
// from a missing draft.
func (h *Handler) draftID(w http.ResponseWriter, r *http.Request) (id.DraftID, bool) {
	draftID, err := id.ParseDraftID(chi.URLParam(r, "draftID"))
	if err != nil {
		httputil.WriteErrorWithRequestID(w,
			dErrors.WithReason(dErrors.CodeNotFound, ledger.ReasonDraftNotFound, "draft not found"),
			httputil.RequestIDFrom(r))
		return id.DraftID{}, false
	}
	return draftID, true
}
