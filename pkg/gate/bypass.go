package gate

import (
	"net/http"
	"strings"
)

// Rule describes a request shape that skips authentication entirely.
// An empty Method matches any method. A Path ending in "/" matches that
// prefix; otherwise the match is exact.
type Rule struct {
	Method string
	Path   string
}

// matches reports whether the request falls under the rule.
func (b Rule) matches(r *http.Request) bool {
	if b.Method != "" && b.Method != r.Method {
		return false
	}
	if strings.HasSuffix(b.Path, "/") {
		return strings.HasPrefix(r.URL.Path, b.Path)
	}
	return r.URL.Path == b.Path
}

// Bypass wraps authentication middleware so that requests matching any
// rule route around it. The gate itself stays free of path logic; exclusion
// is composed externally as a decorator.
func Bypass(authn func(http.Handler) http.Handler, rules []Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		guarded := authn(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, rule := range rules {
				if rule.matches(r) {
					next.ServeHTTP(w, r)
					return
				}
			}
			guarded.ServeHTTP(w, r)
		})
	}
}
