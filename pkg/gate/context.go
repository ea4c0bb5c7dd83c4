package gate

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultContextKey is the name under which decoded claims are stored when
// Options.ContextKey is left empty.
const DefaultContextKey = "user"

// claimsKey namespaces claim storage so that configurable key names cannot
// collide with other packages' context values.
type claimsKey string

// secretKey is the private context key for request-scoped trust material.
type secretKey struct{}

// withClaims stores decoded claims in the context under the given name.
func withClaims(ctx context.Context, key string, claims jwt.MapClaims) context.Context {
	return context.WithValue(ctx, claimsKey(key), claims)
}

// ClaimsFrom retrieves the decoded claims stored under the given key name.
// Returns nil if the request was not admitted through a gate using that key.
func ClaimsFrom(ctx context.Context, key string) jwt.MapClaims {
	if claims, ok := ctx.Value(claimsKey(key)).(jwt.MapClaims); ok {
		return claims
	}
	return nil
}

// Claims retrieves the decoded claims stored under DefaultContextKey.
func Claims(ctx context.Context) jwt.MapClaims {
	return ClaimsFrom(ctx, DefaultContextKey)
}

// WithSecret returns a context carrying request-scoped trust material.
// An upstream stage may set this before the gate runs; it takes precedence
// over the statically configured secret. This is the documented extension
// point for per-request keys (e.g. per-tenant secrets).
func WithSecret(ctx context.Context, secret []byte) context.Context {
	return context.WithValue(ctx, secretKey{}, secret)
}

// secretFrom retrieves request-scoped trust material, or nil.
func secretFrom(ctx context.Context) []byte {
	if s, ok := ctx.Value(secretKey{}).([]byte); ok {
		return s
	}
	return nil
}
