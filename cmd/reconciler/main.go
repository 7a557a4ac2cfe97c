// Command reconciler runs a one-shot ledger reconciliation pass. It is meant
// for operator use and scheduled jobs; the same logic is reachable over the
// admin API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"sigillum/internal/ledger/audit"
	"sigillum/internal/ledger/reconcile"
	"sigillum/internal/ledger/store"
	"sigillum/internal/platform/config"
	"sigillum/internal/platform/logger"
	"sigillum/internal/platform/postgres"
	txcontext "sigillum/pkg/platform/tx"
	"sigillum/pkg/requestcontext"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "inspect and report without migrating records")
	flag.Parse()

	log := logger.New()
	if err := run(*dryRun); err != nil {
		log.Error("reconciliation failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(dryRun bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New()

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	evidence := store.NewPostgres(db)
	audits := audit.NewPostgres(db)
	reconciler := reconcile.New(evidence, audits, audit.NewWriter(audits), txcontext.NewSQLRunner(db), nil, log)

	ctx = requestcontext.WithAdmin(ctx, requestcontext.AdminContext{Operator: "reconciler-cli"})

	report, summary, err := reconciler.Run(ctx, dryRun)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"report":  report,
		"summary": summary,
	})
}
