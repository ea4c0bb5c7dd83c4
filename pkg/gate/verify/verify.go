// Package verify performs the cryptographic half of request authentication:
// given a token, trust material, and a claim policy, it either returns the
// decoded claims or a classified *Failure.
//
// Exactly one failure reason is reported per token, in a fixed precedence:
// signature, structural malformation, expiration, issuer, audience.
// Callers branch on Failure.Reason, never on message text; the Detail
// strings exist for compatibility with clients that pattern-match responses.
package verify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Reason is the closed set of verification failure classes.
type Reason int

const (
	// SignatureInvalid means the signature check failed, including tokens
	// signed with a disallowed algorithm.
	SignatureInvalid Reason = iota

	// Malformed means the token could not be decoded into a JWT at all,
	// or failed verification for a reason outside the closed set.
	Malformed

	// Expired means the exp claim is in the past (beyond any leeway).
	Expired

	// IssuerMismatch means the iss claim does not equal the expected issuer.
	IssuerMismatch

	// AudienceMismatch means no aud entry matches an expected audience.
	AudienceMismatch
)

// String returns the reason name for logging and metric labels.
func (r Reason) String() string {
	switch r {
	case SignatureInvalid:
		return "signature_invalid"
	case Malformed:
		return "malformed"
	case Expired:
		return "expired"
	case IssuerMismatch:
		return "issuer_mismatch"
	case AudienceMismatch:
		return "audience_mismatch"
	default:
		return "unknown"
	}
}

// Failure is a classified verification failure. Detail carries the exact
// message text surfaced to callers.
type Failure struct {
	Reason Reason
	Detail string
	cause  error
}

// Error implements the error interface.
func (f *Failure) Error() string { return f.Detail }

// Unwrap exposes the underlying parser error, if any.
func (f *Failure) Unwrap() error { return f.cause }

// Options carries the claim policy forwarded to verification.
type Options struct {
	// Issuer is the expected iss claim. Empty disables the check.
	Issuer string

	// Audience lists acceptable aud values; any single match admits the
	// token. Empty disables the check.
	Audience []string

	// Methods lists the allowed signing algorithms. Empty falls back to
	// the verifier's default.
	Methods []string

	// Leeway is the clock skew tolerated when checking time claims.
	Leeway time.Duration
}

// Verifier is the verification capability consumed by the gate. key is the
// per-request trust material; implementations that manage their own keys
// (e.g. JWKS) ignore it. Failures are always of type *Failure.
type Verifier interface {
	Verify(ctx context.Context, token string, key []byte, opts Options) (jwt.MapClaims, error)
}

// Static verifies tokens against caller-supplied trust material: raw bytes
// for HMAC algorithms, a PEM-encoded public key for RSA, ECDSA and Ed25519.
// This is the gate's default verifier.
type Static struct{}

// Verify implements Verifier.
func (Static) Verify(_ context.Context, token string, key []byte, opts Options) (jwt.MapClaims, error) {
	keyFn := func(t *jwt.Token) (any, error) {
		return materialFor(t, key)
	}
	return parseAndCheck(token, keyFn, opts, []string{"HS256"})
}

// materialFor interprets raw trust material according to the token's
// signing method family.
func materialFor(t *jwt.Token, key []byte) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		return key, nil
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		return jwt.ParseRSAPublicKeyFromPEM(key)
	case *jwt.SigningMethodECDSA:
		return jwt.ParseECPublicKeyFromPEM(key)
	case *jwt.SigningMethodEd25519:
		return jwt.ParseEdPublicKeyFromPEM(key)
	default:
		return nil, errors.New("unsupported signing method")
	}
}

// parseAndCheck runs the shared verification pipeline: parse and check the
// signature and time claims via golang-jwt, then enforce issuer and
// audience expectations with rendered details.
func parseAndCheck(token string, keyFn jwt.Keyfunc, opts Options, defaultMethods []string) (jwt.MapClaims, error) {
	methods := opts.Methods
	if len(methods) == 0 {
		methods = defaultMethods
	}

	parserOpts := []jwt.ParserOption{jwt.WithValidMethods(methods)}
	if opts.Leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(opts.Leeway))
	}
	parser := jwt.NewParser(parserOpts...)

	claims := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(token, claims, keyFn); err != nil {
		return nil, classify(err)
	}

	// Issuer and audience are checked here rather than via parser options
	// so the failure detail can name the configured expectation.
	if opts.Issuer != "" {
		iss, _ := claims.GetIssuer()
		if iss != opts.Issuer {
			return nil, &Failure{
				Reason: IssuerMismatch,
				Detail: "jwt issuer invalid. expected: " + opts.Issuer,
			}
		}
	}

	if len(opts.Audience) > 0 && !audienceMatch(claims["aud"], opts.Audience) {
		return nil, &Failure{
			Reason: AudienceMismatch,
			Detail: "jwt audience invalid. expected: " + strings.Join(opts.Audience, " or "),
		}
	}

	return claims, nil
}

// classify maps golang-jwt parse errors onto the closed failure set. The
// errors.Is checks run in precedence order so that only the most
// fundamental applicable reason is reported.
func classify(err error) *Failure {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &Failure{Reason: SignatureInvalid, Detail: "invalid signature", cause: err}
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &Failure{Reason: Malformed, Detail: "invalid token", cause: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &Failure{Reason: Expired, Detail: "jwt expired", cause: err}
	default:
		// Unverifiable keys, not-yet-valid tokens and other residual
		// parser errors collapse into the malformed class.
		return &Failure{Reason: Malformed, Detail: "invalid token", cause: err}
	}
}

// audienceMatch reports whether any expected audience appears in the aud
// claim, which may be a string or an array of strings.
func audienceMatch(aud any, expected []string) bool {
	want := make(map[string]struct{}, len(expected))
	for _, a := range expected {
		want[a] = struct{}{}
	}

	switch v := aud.(type) {
	case string:
		_, ok := want[v]
		return ok
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				if _, hit := want[s]; hit {
					return true
				}
			}
		}
	case []string:
		for _, s := range v {
			if _, hit := want[s]; hit {
				return true
			}
		}
	}
	return false
}
