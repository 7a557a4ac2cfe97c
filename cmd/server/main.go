package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"sigillum/internal/auth/token"
	"sigillum/internal/ledger/audit"
	"sigillum/internal/ledger/draft"
	"sigillum/internal/ledger/handler"
	"sigillum/internal/ledger/idempotency"
	"sigillum/internal/ledger/reconcile"
	"sigillum/internal/ledger/service"
	"sigillum/internal/ledger/store"
	"sigillum/internal/platform/config"
	"sigillum/internal/platform/httpserver"
	"sigillum/internal/platform/kafka"
	"sigillum/internal/platform/logger"
	"sigillum/internal/platform/metrics"
	"sigillum/internal/platform/postgres"
	"sigillum/internal/platform/redis"
	httptransport "sigillum/internal/transport/http"
	txcontext "sigillum/pkg/platform/tx"
)

// main wires the dependencies and keeps the server lifecycle small. Business
// logic lives in the internal/ledger packages.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	evidence := store.NewPostgres(db)
	drafts := draft.NewPostgres(db)
	audits := audit.NewPostgres(db)
	auditor := audit.NewWriter(audits)

	var cache idempotency.Cache
	if redisClient != nil {
		cache = idempotency.NewRedisCache(redisClient.Client)
	}
	guard := idempotency.NewGuard(idempotency.NewPostgresStore(db), cache)
	runner := txcontext.NewSQLRunner(db)

	svc := service.New(evidence, drafts, auditor, guard, runner, m, otel.Tracer("sigillum/ledger"), log)
	reconciler := reconcile.New(evidence, audits, auditor, runner, m, log)

	jwtService := token.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer)
	validator := token.NewJWTServiceAdapter(jwtService)

	ledgerHandler := handler.New(svc, log, validator)
	adminHandler := handler.NewAdmin(reconciler, log, cfg.AdminToken)
	router := httptransport.NewRouter(ledgerHandler, adminHandler, db)

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := kafka.NewPublisher(cfg.Kafka, db, m, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
		if err := publisher.EnsureTopic(ctx); err != nil {
			return err
		}
		g.Go(func() error {
			if err := publisher.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Warn("kafka brokers not configured, audit outbox will accumulate")
	}

	g.Go(func() error {
		log.Info("starting sigillum ledger", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
