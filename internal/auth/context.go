package auth

import (
	"context"

	"github.com/hongminglow/access-web-be/internal/models"
)

type ctxKey string

const principalKey ctxKey = "principal"

// WithPrincipal attaches the verified caller to ctx.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the caller attached by the session middleware.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}
