package userctx

import (
	"context"

	"github.com/nkiryanov/tenantauth/internal/models"
)

type ctxKey string

const (
	identityKey ctxKey = "identity"
	refreshKey  ctxKey = "refresh"
)

// Create a new context with the authenticated identity (subject and role)
func New(ctx context.Context, c models.Claims) context.Context {
	return context.WithValue(ctx, identityKey, c)
}

// Extract the identity from the context
func FromContext(ctx context.Context) (models.Claims, bool) {
	c, ok := ctx.Value(identityKey).(models.Claims)
	return c, ok
}

// Create a new context with verified refresh token claims
func WithRefresh(ctx context.Context, c models.Claims) context.Context {
	return context.WithValue(ctx, refreshKey, c)
}

func RefreshFromContext(ctx context.Context) (models.Claims, bool) {
	c, ok := ctx.Value(refreshKey).(models.Claims)
	return c, ok
}
