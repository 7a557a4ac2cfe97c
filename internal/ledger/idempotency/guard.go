// Package idempotency deduplicates mutation attempts by caller-supplied
// command id, scoped to (tenant, aggregate). The authoritative check is a
// storage uniqueness constraint recorded atomically with the state change; an
// optional Redis cache answers repeat lookups without touching Postgres.
package idempotency

import (
	"context"
	"time"

	id "sigillum/pkg/domain"
)

// Record is the stored outcome of a completed command. Outcome carries
// whatever the caller needs to replay the original response.
type Record struct {
	TenantID     id.TenantID    `json:"tenant_id"`
	AggregateID  string         `json:"aggregate_id"`
	CommandID    string         `json:"command_id"`
	Outcome      map[string]any `json:"outcome"`
	CreatedAtUTC time.Time      `json:"created_at_utc"`
}

// Store persists command records. Save joins an ambient transaction when the
// context carries one, so the command record and the state change it guards
// commit together. A duplicate (tenant, aggregate, command) fails with
// sentinel.ErrAlreadyUsed, enforced by a uniqueness constraint rather than
// a read-then-write.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Find(ctx context.Context, tenantID id.TenantID, aggregateID, commandID string) (*Record, error)
}

// Cache is a best-effort recent-outcome cache. A miss or error falls through
// to the Store; the cache never decides a command is new.
type Cache interface {
	Get(ctx context.Context, tenantID id.TenantID, aggregateID, commandID string) (*Record, bool)
	Put(ctx context.Context, rec Record)
}

// Guard answers "has this command already run?".
type Guard struct {
	store Store
	cache Cache
}

func NewGuard(store Store, cache Cache) *Guard {
	return &Guard{store: store, cache: cache}
}

// PriorOutcome returns the recorded outcome for the triple, or nil when the
// command has not completed before.
func (g *Guard) PriorOutcome(ctx context.Context, tenantID id.TenantID, aggregateID, commandID string) (*Record, error) {
	if commandID == "" {
		return nil, nil
	}
	if g.cache != nil {
		if rec, ok := g.cache.Get(ctx, tenantID, aggregateID, commandID); ok {
			return rec, nil
		}
	}
	rec, err := g.store.Find(ctx, tenantID, aggregateID, commandID)
	if err != nil {
		return nil, err
	}
	if rec != nil && g.cache != nil {
		g.cache.Put(ctx, *rec)
	}
	return rec, nil
}

// Commit records the command outcome. Must run inside the same transaction as
// the state change it guards; the unique constraint makes the second of two
// concurrent duplicates fail its whole transaction.
func (g *Guard) Commit(ctx context.Context, rec Record) error {
	if rec.CommandID == "" {
		return nil
	}
	if err := g.store.Save(ctx, rec); err != nil {
		return err
	}
	if g.cache != nil {
		g.cache.Put(ctx, rec)
	}
	return nil
}
