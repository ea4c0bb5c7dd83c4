package gate

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mfrister/tokengate/pkg/gate/resolver"
	"github.com/mfrister/tokengate/pkg/gate/verify"
	"github.com/mfrister/tokengate/pkg/observability"
)

// TokenGetter is a caller-supplied resolution strategy. It receives the
// request and the full gate options and returns the token, or "" when it
// has nothing to contribute. It is purely advisory: it cannot fail, only
// decline.
type TokenGetter func(r *http.Request, opts Options) string

// ErrorHandler shapes the HTTP response for a rejection. The gate has
// already classified the failure and logged it; the handler owns the final
// response body.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err *Error)

// Options configures a Gate. Construct once per mounted instance; the gate
// never mutates it afterwards.
type Options struct {
	// Secret is the static trust material: a shared secret for HMAC
	// algorithms or a PEM-encoded public key for asymmetric ones. A
	// request-scoped secret set via WithSecret takes precedence.
	Secret []byte

	// ContextKey is the name under which decoded claims are stored in the
	// request context. Defaults to DefaultContextKey ("user").
	ContextKey string

	// Cookie is an optional cookie name to check for the token.
	Cookie string

	// GetToken is an optional custom resolution strategy, tried before the
	// cookie and the Authorization header.
	GetToken TokenGetter

	// Passthrough lets the chain continue without claims when no token was
	// presented. It never suppresses malformed-header or verification
	// failures: those are failed authentication attempts, not absent ones.
	Passthrough bool

	// Issuer is the expected iss claim. Empty disables the check.
	Issuer string

	// Audience lists acceptable aud values; any match admits the token.
	Audience []string

	// Methods lists the allowed signing algorithms, forwarded to
	// verification. Empty uses the verifier's default.
	Methods []string

	// Leeway is the clock skew tolerated for time claims.
	Leeway time.Duration

	// Verifier overrides the verification capability. Defaults to
	// verify.Static, which consumes Secret. Verifiers that manage their
	// own keys (e.g. verify.NewJWKS) make Secret unnecessary.
	Verifier verify.Verifier

	// ErrorHandler overrides rejection response shaping. Defaults to
	// DefaultErrorHandler.
	ErrorHandler ErrorHandler

	// Logger receives structured auth logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Gate authenticates requests: it resolves a bearer credential, verifies
// it, and either admits the request with decoded claims attached to the
// context or rejects it with a classified 401. A Gate is stateless beyond
// its immutable options and safe for concurrent use.
type Gate struct {
	opts      Options
	resolvers resolver.Chain
	verifier  verify.Verifier
	vopts     verify.Options
	needsKey  bool
	onError   ErrorHandler
	logger    *slog.Logger
}

// New constructs a Gate from options, filling in defaults.
func New(opts Options) *Gate {
	g := &Gate{opts: opts}

	if g.opts.ContextKey == "" {
		g.opts.ContextKey = DefaultContextKey
	}

	// Resolution strategies in fixed priority order: custom getter,
	// cookie, Authorization header.
	if opts.GetToken != nil {
		getter := opts.GetToken
		g.resolvers = append(g.resolvers, resolver.Func(func(r *http.Request) (string, error) {
			return getter(r, g.opts), nil
		}))
	}
	if opts.Cookie != "" {
		g.resolvers = append(g.resolvers, resolver.Cookie{Name: opts.Cookie})
	}
	g.resolvers = append(g.resolvers, resolver.BearerHeader{})

	g.verifier = opts.Verifier
	if g.verifier == nil {
		g.verifier = verify.Static{}
		// Only the default verifier depends on caller-supplied trust
		// material; custom verifiers bring their own.
		g.needsKey = true
	}

	g.vopts = verify.Options{
		Issuer:   opts.Issuer,
		Audience: opts.Audience,
		Methods:  opts.Methods,
		Leeway:   opts.Leeway,
	}

	g.onError = opts.ErrorHandler
	if g.onError == nil {
		g.onError = DefaultErrorHandler
	}

	g.logger = opts.Logger
	if g.logger == nil {
		g.logger = slog.Default()
	}

	return g
}

// Middleware returns the gate as standard HTTP middleware.
func Middleware(opts Options) func(http.Handler) http.Handler {
	return New(opts).Handler
}

// Handler wraps next with the authentication pipeline. next is invoked
// exactly once on admission or passthrough, and never on rejection.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := g.resolvers.Resolve(r)
		if err != nil {
			// A malformed header is an authentication attempt that
			// failed; passthrough never applies.
			g.reject(w, r, &Error{
				Kind:   KindInvalidHeaderFormat,
				Detail: `format is "Authorization: Bearer <token>"`,
				cause:  err,
			})
			return
		}

		if token == "" {
			if g.opts.Passthrough {
				observability.AuthOutcomesTotal.WithLabelValues("passthrough").Inc()
				next.ServeHTTP(w, r)
				return
			}
			g.reject(w, r, &Error{Kind: KindTokenNotFound})
			return
		}

		key := secretFrom(r.Context())
		if len(key) == 0 {
			key = g.opts.Secret
		}
		if len(key) == 0 && g.needsKey {
			g.reject(w, r, &Error{Kind: KindInvalidSecret, Detail: "secret not provided"})
			return
		}

		start := time.Now()
		claims, err := g.verifier.Verify(r.Context(), token, key, g.vopts)
		observability.VerifyDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			rejection := &Error{Kind: KindInvalidToken, Detail: "invalid token", cause: err}
			var failure *verify.Failure
			if errors.As(err, &failure) {
				rejection.Detail = failure.Detail
			}
			g.reject(w, r, rejection)
			return
		}

		g.logger.Debug("authentication succeeded",
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"context_key", g.opts.ContextKey,
		)
		observability.AuthOutcomesTotal.WithLabelValues("admitted").Inc()

		ctx := withClaims(r.Context(), g.opts.ContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// reject logs the failure, records it, and hands response shaping to the
// error handler. Failures are surfaced exactly once and never retried.
func (g *Gate) reject(w http.ResponseWriter, r *http.Request, err *Error) {
	g.logger.Warn("authentication failed",
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"kind", err.Kind.String(),
		"error", err,
	)
	observability.AuthOutcomesTotal.WithLabelValues("rejected").Inc()
	observability.AuthRejectionsTotal.WithLabelValues(err.Kind.String()).Inc()

	g.onError(w, r, err)
}

// errorBody is the JSON envelope written by DefaultErrorHandler.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// DefaultErrorHandler writes the classified failure as a JSON 401 response.
// The message is exactly the classified text so clients can distinguish
// cases.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode())
	json.NewEncoder(w).Encode(errorBody{Error: errorDetail{
		Kind:    err.Kind.String(),
		Message: err.Error(),
	}})
}
