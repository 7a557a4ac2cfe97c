// Package httptransport composes the ledger API, the admin surface, and the
// operational endpoints onto a single router.
package httptransport

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sigillum/internal/ledger/handler"
)

// NewRouter wires every HTTP surface of the process. The ledger and admin
// handlers carry their own middleware chains; health and metrics stay
// unauthenticated so probes and scrapers work without credentials.
func NewRouter(ledger *handler.Handler, admin *handler.AdminHandler, db *sql.DB) http.Handler {
	r := chi.NewRouter()

	ledger.Register(r)
	if admin != nil {
		admin.Register(r)
	}

	r.Get("/healthz", handleHealth(db))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleHealth(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body = map[string]string{"status": "degraded"}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
