package gate

import "net/http"

// FailureKind is the closed set of authentication failure classes.
// Downstream error handlers branch on the kind, not on message text.
type FailureKind int

const (
	// KindTokenNotFound means no credential was resolved anywhere and
	// passthrough is disabled.
	KindTokenNotFound FailureKind = iota

	// KindInvalidHeaderFormat means an Authorization header was present
	// but did not match "Bearer <token>".
	KindInvalidHeaderFormat

	// KindInvalidSecret means no trust material was resolvable. This is a
	// configuration defect, still surfaced as a 401 so the caller learns
	// nothing about server misconfiguration.
	KindInvalidSecret

	// KindInvalidToken means a token was presented but failed
	// verification; Detail narrows the reason.
	KindInvalidToken
)

// String returns the kind prefix used in rendered messages.
func (k FailureKind) String() string {
	switch k {
	case KindTokenNotFound:
		return "token not found"
	case KindInvalidHeaderFormat:
		return "invalid header format"
	case KindInvalidSecret:
		return "invalid secret"
	case KindInvalidToken:
		return "invalid token"
	default:
		return "authentication failed"
	}
}

// Error is a classified authentication failure. Every rejection carries
// exactly one Error, surfaced once to the configured error handler and
// never retried.
type Error struct {
	Kind   FailureKind
	Detail string
	cause  error
}

// Error renders the message as "{kind prefix}: {detail}", or the kind
// prefix alone when there is no detail. The exact text is part of the
// contract: callers pattern-match on it.
func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Detail
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// StatusCode returns the HTTP status for this failure, fixed at 401.
func (e *Error) StatusCode() int { return http.StatusUnauthorized }
