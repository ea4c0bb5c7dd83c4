// Command gateway runs the tokengate authenticating reverse proxy.
//
// Every request is checked for a JWT bearer credential before being
// forwarded to the upstream backend. Configuration is loaded from a YAML
// file (see pkg/config for discovery order) with TOKENGATE_* environment
// overrides:
//
//	TOKENGATE_CONFIG       - Config file path
//	TOKENGATE_UPSTREAM_URL - Protected backend URL (required)
//	TOKENGATE_AUTH_MODE    - Trust material mode: hmac, pem, jwks, oidc
//	TOKENGATE_SECRET       - Shared secret or PEM public key
//	TOKENGATE_PORT         - Listen port (default: 8080)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mfrister/tokengate/pkg/config"
	"github.com/mfrister/tokengate/pkg/debug"
	"github.com/mfrister/tokengate/pkg/gate"
	"github.com/mfrister/tokengate/pkg/gate/verify"
	"github.com/mfrister/tokengate/pkg/httpmw"
	"github.com/mfrister/tokengate/pkg/observability"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gateway failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	debug.Init(cfg.Log.Debug, cfg.Log.Level)
	debug.Log("config", "configuration loaded",
		"mode", cfg.Auth.Mode, "upstream", cfg.Upstream.URL, "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the verifier from the configured trust material mode.
	verifier, err := buildVerifier(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("creating verifier: %w", err)
	}

	logger := slog.Default()

	authn := gate.Middleware(gate.Options{
		Secret:      []byte(cfg.Auth.Secret),
		ContextKey:  cfg.Auth.ContextKey,
		Cookie:      cfg.Auth.Cookie,
		Passthrough: cfg.Auth.Passthrough,
		Issuer:      cfg.Auth.Issuer,
		Audience:    cfg.Auth.Audience,
		Methods:     cfg.Auth.Methods,
		Leeway:      cfg.Auth.Leeway,
		Verifier:    verifier,
		Logger:      logger,
	})

	proxy, err := buildProxy(cfg.Upstream.URL, logger)
	if err != nil {
		return fmt.Errorf("creating proxy: %w", err)
	}

	guarded := gate.Bypass(authn, excludeRules(cfg.Auth.Exclude))(proxy)

	mux := http.NewServeMux()
	mux.Handle("/", guarded)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	handler := httpmw.Chain(
		httpmw.Recovery(logger),
		httpmw.RequestID(),
		httpmw.Logging(logger),
		observability.MetricsMiddleware,
	)(mux)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in background.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway starting",
			"port", cfg.Server.Port, "upstream", cfg.Upstream.URL, "mode", cfg.Auth.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error.
	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildVerifier constructs the verification capability for the configured
// mode. hmac and pem use the default static verifier with the secret from
// config, so they return nil here and let the gate install its default.
func buildVerifier(ctx context.Context, auth config.AuthConfig) (verify.Verifier, error) {
	switch auth.Mode {
	case "hmac", "pem":
		return nil, nil
	case "jwks":
		return verify.NewJWKS(ctx, []string{auth.JWKSURL})
	case "oidc":
		return verify.NewOIDC(ctx, auth.OIDCIssuer)
	default:
		return nil, fmt.Errorf("unknown auth mode %q", auth.Mode)
	}
}

// buildProxy creates the reverse proxy to the upstream backend. The request
// ID assigned by the middleware chain is forwarded so upstream logs can be
// correlated with gateway logs.
func buildProxy(upstream string, logger *slog.Logger) (http.Handler, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL %q: %w", upstream, err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := httpmw.RequestIDFromContext(r.Context()); id != "" {
			r.Header.Set("X-Request-ID", id)
		}
		debug.Trace("proxy", "forwarding request", "method", r.Method, "path", r.URL.Path)
		proxy.ServeHTTP(w, r)
	}), nil
}

// excludeRules converts configured exclude paths to bypass rules. Paths
// ending in "/" match as prefixes, everything else matches exactly.
func excludeRules(paths []string) []gate.Rule {
	rules := make([]gate.Rule, 0, len(paths))
	for _, p := range paths {
		rules = append(rules, gate.Rule{Path: p})
	}
	return rules
}
