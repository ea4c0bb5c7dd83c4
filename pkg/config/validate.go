package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// upstream.url is required.
	if c.Upstream.URL == "" {
		errs = append(errs, fmt.Errorf("upstream.url is required"))
	}

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// auth.mode must be a known value, with its mode-specific requirement.
	switch c.Auth.Mode {
	case "hmac", "pem":
		if c.Auth.Secret == "" && c.Auth.SecretFile == "" {
			errs = append(errs, fmt.Errorf("auth.secret or auth.secret_file is required when auth.mode is %q", c.Auth.Mode))
		}
	case "jwks":
		if c.Auth.JWKSURL == "" {
			errs = append(errs, fmt.Errorf("auth.jwks_url is required when auth.mode is \"jwks\""))
		}
	case "oidc":
		if c.Auth.OIDCIssuer == "" {
			errs = append(errs, fmt.Errorf("auth.oidc_issuer is required when auth.mode is \"oidc\""))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.mode must be \"hmac\", \"pem\", \"jwks\", or \"oidc\", got %q", c.Auth.Mode))
	}

	return errors.Join(errs...)
}
