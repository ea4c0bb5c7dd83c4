// Package resolver locates the bearer credential for an HTTP request.
//
// Resolution strategies implement a common TokenResolver contract and are
// evaluated in a fixed priority order by Chain: the first strategy that
// yields a non-empty token wins. A strategy that finds nothing returns an
// empty token with a nil error so the chain can continue; only a malformed
// Authorization header is a hard error, because it indicates a failed
// authentication attempt rather than the absence of one.
package resolver

import (
	"errors"
	"net/http"
	"strings"
)

// ErrMalformedHeader is returned when an Authorization header is present
// but does not match the exact "Bearer <token>" form.
var ErrMalformedHeader = errors.New(`authorization header format must be "Bearer <token>"`)

// TokenResolver extracts a token from a request. An empty token with a nil
// error means "not found here"; an error aborts resolution entirely.
type TokenResolver interface {
	Resolve(r *http.Request) (string, error)
}

// Func adapts a plain function to the TokenResolver interface.
type Func func(r *http.Request) (string, error)

// Resolve implements TokenResolver.
func (f Func) Resolve(r *http.Request) (string, error) {
	return f(r)
}

// Chain evaluates resolvers left to right and returns the first non-empty
// token. Errors from any resolver stop the chain immediately.
type Chain []TokenResolver

// Resolve implements TokenResolver.
func (c Chain) Resolve(r *http.Request) (string, error) {
	for _, res := range c {
		token, err := res.Resolve(r)
		if err != nil {
			return "", err
		}
		if token != "" {
			return token, nil
		}
	}
	return "", nil
}

// Cookie reads the token from a named request cookie. A missing cookie or
// an empty value is "not found", never an error.
type Cookie struct {
	Name string
}

// Resolve implements TokenResolver.
func (c Cookie) Resolve(r *http.Request) (string, error) {
	cookie, err := r.Cookie(c.Name)
	if err != nil {
		// http.ErrNoCookie is the only error r.Cookie returns.
		return "", nil
	}
	return cookie.Value, nil
}

// BearerHeader reads the token from the Authorization header. The header
// must carry exactly two space-separated parts with the literal,
// case-sensitive scheme "Bearer" and a non-empty token. An empty or
// whitespace-only header counts as absent; any other shape is a
// malformed-header error.
type BearerHeader struct{}

// Resolve implements TokenResolver.
func (BearerHeader) Resolve(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if strings.TrimSpace(header) == "" {
		return "", nil
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrMalformedHeader
	}

	return parts[1], nil
}
