// Package config provides unified configuration for the tokengate gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (TOKENGATE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the tokengate gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 60s
}

// UpstreamConfig holds the protected backend settings.
type UpstreamConfig struct {
	URL string `yaml:"url"` // required
}

// AuthConfig holds the authentication gate settings.
type AuthConfig struct {
	// Mode selects the trust material source: "hmac" (shared secret),
	// "pem" (PEM public key), "jwks" (remote key set), or "oidc"
	// (discover the JWKS endpoint from the issuer). Default: "hmac".
	Mode string `yaml:"mode"`

	Secret     string `yaml:"secret"`      // shared secret or PEM public key
	SecretFile string `yaml:"secret_file"` // _file variant for secret
	JWKSURL    string `yaml:"jwks_url"`    // required for mode=jwks
	OIDCIssuer string `yaml:"oidc_issuer"` // required for mode=oidc

	Issuer   string        `yaml:"issuer"`   // expected iss claim, optional
	Audience []string      `yaml:"audience"` // expected aud values, optional
	Methods  []string      `yaml:"methods"`  // allowed signing algorithms
	Leeway   time.Duration `yaml:"leeway"`   // clock skew tolerance

	Cookie      string   `yaml:"cookie"`      // optional cookie name to check
	ContextKey  string   `yaml:"context_key"` // claims storage key, default "user"
	Passthrough bool     `yaml:"passthrough"` // continue without claims when no token
	Exclude     []string `yaml:"exclude"`     // paths that bypass the gate
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LogConfig holds logging settings consumed by pkg/debug.
type LogConfig struct {
	Level string `yaml:"level"` // ERROR, WARN, INFO, DEBUG, TRACE; default INFO
	Debug string `yaml:"debug"` // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Auth: AuthConfig{
			Mode:       "hmac",
			ContextKey: "user",
			Exclude:    []string{"/healthz", "/metrics"},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Log: LogConfig{
			Level: "INFO",
		},
	}
}
