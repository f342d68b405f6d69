package middleware

import (
	"context"

	"github.com/angelmondragon/wavepick-backend/pkg/enums"
)

type contextKey string

const (
	ctxTenantID contextKey = "tenant_id"
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
)

// Identity is the authenticated caller as carried by the access token.
type Identity struct {
	TenantID int64
	UserID   int64
	Role     enums.OperatorRole
}

// WithIdentity injects the caller identity into the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxTenantID, id.TenantID)
	ctx = context.WithValue(ctx, ctxUserID, id.UserID)
	return context.WithValue(ctx, ctxRole, id.Role)
}

// IdentityFromContext returns the caller identity; ok is false when the
// request was not authenticated.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	tenantID, ok := ctx.Value(ctxTenantID).(int64)
	if !ok || tenantID <= 0 {
		return Identity{}, false
	}
	userID, _ := ctx.Value(ctxUserID).(int64)
	role, _ := ctx.Value(ctxRole).(enums.OperatorRole)
	return Identity{TenantID: tenantID, UserID: userID, Role: role}, true
}

func TenantIDFromContext(ctx context.Context) int64 {
	id, _ := IdentityFromContext(ctx)
	return id.TenantID
}

func UserIDFromContext(ctx context.Context) int64 {
	id, _ := IdentityFromContext(ctx)
	return id.UserID
}

func RoleFromContext(ctx context.Context) enums.OperatorRole {
	id, _ := IdentityFromContext(ctx)
	return id.Role
}
