package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sigillum/pkg/domain"
	"sigillum/pkg/platform/sentinel"
)

func TestGuard_PriorOutcome(t *testing.T) {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	guard := NewGuard(NewInMemoryStore(), nil)

	t.Run("unknown command has no prior outcome", func(t *testing.T) {
		rec, err := guard.PriorOutcome(ctx, tenantID, "agg-1", "cmd-1")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("committed command is replayed", func(t *testing.T) {
		err := guard.Commit(ctx, Record{
			TenantID:     tenantID,
			AggregateID:  "agg-1",
			CommandID:    "cmd-1",
			Outcome:      map[string]any{"evidence_id": "e-1"},
			CreatedAtUTC: time.Now().UTC(),
		})
		require.NoError(t, err)

		rec, err := guard.PriorOutcome(ctx, tenantID, "agg-1", "cmd-1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "e-1", rec.Outcome["evidence_id"])
	})

	t.Run("empty command id is never tracked", func(t *testing.T) {
		require.NoError(t, guard.Commit(ctx, Record{TenantID: tenantID, AggregateID: "agg-1"}))

		rec, err := guard.PriorOutcome(ctx, tenantID, "agg-1", "")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("same command id on a different aggregate is distinct", func(t *testing.T) {
		rec, err := guard.PriorOutcome(ctx, tenantID, "agg-2", "cmd-1")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("same command id for a different tenant is distinct", func(t *testing.T) {
		rec, err := guard.PriorOutcome(ctx, id.TenantID(uuid.New()), "agg-1", "cmd-1")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

func TestInMemoryStore_Save_DuplicateFails(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	rec := Record{
		TenantID:     id.TenantID(uuid.New()),
		AggregateID:  "agg-1",
		CommandID:    "cmd-1",
		CreatedAtUTC: time.Now().UTC(),
	}

	require.NoError(t, store.Save(ctx, rec))
	assert.ErrorIs(t, store.Save(ctx, rec), sentinel.ErrAlreadyUsed)
}
