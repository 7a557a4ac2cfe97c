package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sigillum/internal/ledger/reconcile"
	"sigillum/internal/platform/middleware"
	dErrors "sigillum/pkg/domain-errors"
	"sigillum/pkg/platform/httputil"
)

// Reconciler is the admin-facing repair surface.
type Reconciler interface {
	Inspect(ctx context.Context) (*reconcile.Report, error)
	Run(ctx context.Context, dryRun bool) (*reconcile.Report, *reconcile.RunSummary, error)
}

// AdminHandler exposes reconciliation behind the static admin token. These
// routes are the only HTTP surface that can cross tenant boundaries.
type AdminHandler struct {
	logger     *slog.Logger
	reconciler Reconciler
	adminToken string
}

func NewAdmin(reconciler Reconciler, logger *slog.Logger, adminToken string) *AdminHandler {
	return &AdminHandler{
		logger:     logger,
		reconciler: reconciler,
		adminToken: adminToken,
	}
}

func (h *AdminHandler) Register(r chi.Router) {
	adminRouter := chi.NewRouter()
	adminRouter.Use(middleware.Recovery(h.logger))
	adminRouter.Use(middleware.RequestID)
	adminRouter.Use(middleware.RequestTime)
	adminRouter.Use(middleware.Logger(h.logger))
	adminRouter.Use(middleware.Timeout(5 * time.Minute))
	adminRouter.Use(middleware.RequireAdminToken(h.adminToken, h.logger))

	adminRouter.Get("/reconciliation/report", h.handleReport)
	adminRouter.Post("/reconciliation/run", h.handleRun)

	r.Mount("/admin", adminRouter)
}

func (h *AdminHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.Inspect(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "reconciliation report failed", "error", err.Error())
		httputil.WriteErrorWithRequestID(w, err, httputil.RequestIDFrom(r))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

type runRequest struct {
	DryRun bool `json:"dry_run"`
}

func (h *AdminHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteErrorWithRequestID(w,
				dErrors.New(dErrors.CodeBadRequest, "invalid request body"), httputil.RequestIDFrom(r))
			return
		}
	}

	report, summary, err := h.reconciler.Run(r.Context(), req.DryRun)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "reconciliation run failed", "error", err.Error())
		httputil.WriteErrorWithRequestID(w, err, httputil.RequestIDFrom(r))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"report":  report,
		"summary": summary,
	})
}
