// Package testutil provides shared helpers for service and integration tests.
package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "sigillum/pkg/domain"
	"sigillum/pkg/requestcontext"
)

// TenantContext returns a context carrying a full authenticated request
// identity for the given tenant, the way the auth middleware would build it.
func TenantContext(ctx context.Context, tenantID id.TenantID, userID id.UserID, role string) context.Context {
	ctx = requestcontext.WithTenantID(ctx, tenantID)
	ctx = requestcontext.WithUserID(ctx, userID)
	ctx = requestcontext.WithActorRole(ctx, role)
	ctx = requestcontext.WithRequestID(ctx, uuid.NewString())
	return ctx
}

// NewTenantContext builds a context for a fresh random tenant and user.
func NewTenantContext(ctx context.Context) context.Context {
	return TenantContext(ctx, id.TenantID(uuid.New()), id.UserID(uuid.New()), "uploader")
}

// FrozenClock pins request time so timestamp assertions are deterministic.
func FrozenClock(ctx context.Context, at time.Time) context.Context {
	return requestcontext.WithTime(ctx, at)
}

// AdminContext returns a context carrying the cross-tenant admin capability.
func AdminContext(ctx context.Context, operator string) context.Context {
	return requestcontext.WithAdmin(ctx, requestcontext.AdminContext{Operator: operator})
}
