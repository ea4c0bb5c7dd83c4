package verify

import (
	"context"
	"errors"
	"fmt"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// KeyfuncVerifier verifies tokens against keys resolved through a
// jwt.Keyfunc, typically an auto-refreshing JWKS. Per-request trust
// material passed to Verify is ignored; the key set is the trust material.
type KeyfuncVerifier struct {
	keyFn jwt.Keyfunc
}

// NewKeyfunc wraps an arbitrary jwt.Keyfunc as a Verifier.
func NewKeyfunc(fn jwt.Keyfunc) (*KeyfuncVerifier, error) {
	if fn == nil {
		return nil, errors.New("keyfunc is required")
	}
	return &KeyfuncVerifier{keyFn: fn}, nil
}

// NewJWKS builds a verifier backed by one or more JWKS endpoints. Keys are
// fetched eagerly and refreshed in the background for the lifetime of ctx.
func NewJWKS(ctx context.Context, urls []string) (*KeyfuncVerifier, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one JWKS URL is required")
	}
	kf, err := keyfunc.NewDefaultCtx(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("initializing JWKS: %w", err)
	}
	return &KeyfuncVerifier{keyFn: kf.Keyfunc}, nil
}

// NewOIDC discovers the issuer's JWKS endpoint via OIDC discovery and
// builds a JWKS-backed verifier from it.
func NewOIDC(ctx context.Context, issuer string) (*KeyfuncVerifier, error) {
	if issuer == "" {
		return nil, errors.New("issuer is required")
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery failed: %w", err)
	}

	var meta struct {
		JwksURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("invalid discovery metadata: %w", err)
	}
	if meta.JwksURI == "" {
		return nil, errors.New("discovery metadata missing jwks_uri")
	}

	return NewJWKS(ctx, []string{meta.JwksURI})
}

// Verify implements Verifier. Remote key sets default to RS256 when the
// caller does not restrict algorithms.
func (v *KeyfuncVerifier) Verify(_ context.Context, token string, _ []byte, opts Options) (jwt.MapClaims, error) {
	return parseAndCheck(token, v.keyFn, opts, []string{"RS256"})
}
