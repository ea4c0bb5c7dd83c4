// Package gate authenticates HTTP requests carrying JWT bearer tokens.
//
// The gate runs a single decision pipeline per request: locate a credential
// (custom getter, cookie, then Authorization header), resolve trust material
// (a request-scoped secret wins over the configured one), verify the token,
// and either admit the request with decoded claims attached to its context
// or reject it with a classified 401.
//
// The three terminal outcomes are mutually exclusive: claims attached,
// failure signaled, or passthrough-continue when no token was presented and
// Passthrough is enabled. Passthrough never suppresses a malformed
// Authorization header or a verification failure, because those are failed
// authentication attempts rather than absent ones.
//
// Rejections carry a closed FailureKind taxonomy (*Error, errors.As-able)
// with exact message text, so downstream error handlers can distinguish
// cases without string surgery. Path exclusion is composed externally with
// Bypass, keeping the gate itself free of routing concerns.
package gate
