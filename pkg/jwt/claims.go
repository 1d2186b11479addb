package jwt

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify an API caller. Subject is the caller address.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type Role string

const (
	RolePlayer   Role = "player"
	RoleOperator Role = "operator"
)

type ctxKey struct{}

// WithClaims stores validated claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// ClaimsFromContext returns the claims stored by the auth middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(*Claims)
	return claims, ok && claims != nil
}
