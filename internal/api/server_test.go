package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/catalog-core/internal/infrastructure/config"
	"github.com/nerrad567/catalog-core/internal/infrastructure/logging"
)

func TestNew_RequiresDependencies(t *testing.T) {
	env := newTestEnv(t)
	full := Deps{
		Logger:      logging.Discard(),
		Catalog:     env.catalog,
		Tokens:      env.tokens,
		Credentials: env.server.credentials,
		Sessions:    env.sessions,
	}

	tests := []struct {
		name   string
		modify func(*Deps)
		want   string
	}{
		{"logger", func(d *Deps) { d.Logger = nil }, "logger"},
		{"catalog", func(d *Deps) { d.Catalog = nil }, "catalog"},
		{"tokens", func(d *Deps) { d.Tokens = nil }, "token"},
		{"credentials", func(d *Deps) { d.Credentials = nil }, "authenticator"},
		{"sessions", func(d *Deps) { d.Sessions = nil }, "session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := full
			tt.modify(&deps)
			_, err := New(deps)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("New() error = %v, want mention of %q", err, tt.want)
			}
		})
	}

	srv, err := New(full)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.Hub() == nil {
		t.Error("Hub() = nil, want an internal hub")
	}
	if srv.sessionCfg.CookieName != defaultSessionCookie {
		t.Errorf("cookie name = %q, want default", srv.sessionCfg.CookieName)
	}
	if err := srv.HealthCheck(t.Context()); err == nil {
		t.Error("HealthCheck() before Start = nil, want error")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v, want ok/test", body)
	}
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodGet, "/products/1", "")
	env.do(t, http.MethodPost, "/products", `{"id": 1}`)

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	out := rec.Body.String()
	for _, want := range []string{
		`catalog_http_requests_total{method="GET",route="/products/{id}",status="404"} 1`,
		`catalog_auth_failures_total{reason="missing_header"} 1`,
		`catalog_auth_revoked_tokens 0`,
		`catalog_websocket_clients 0`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", "X-Request-ID", "abc123")
	if got := rec.Header().Get("X-Request-ID"); got != "abc123" {
		t.Errorf("X-Request-ID = %q, want echoed abc123", got)
	}
	if got := env.do(t, http.MethodGet, "/health", "").Header().Get("X-Request-ID"); len(got) != 2*requestIDBytes {
		t.Errorf("generated X-Request-ID = %q, want %d hex chars", got, 2*requestIDBytes)
	}

	rec = env.do(t, http.MethodOptions, "/products", "", "Origin", "https://shop.example")
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example" {
		t.Errorf("Allow-Origin = %q, want the request origin", got)
	}
}

func TestMiddleware_CORSAllowList(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Config.CORS.AllowedOrigins = []string{"https://admin.example"}
	})

	rec := env.do(t, http.MethodGet, "/health", "", "Origin", "https://evil.example")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q for disallowed origin, want none", got)
	}
}

func TestMiddleware_BodyLimit(t *testing.T) {
	env := newTestEnv(t)

	big := `{"id": 1, "blob": "` + strings.Repeat("x", maxRequestBodySize) + `"}`
	assertError(t, env.do(t, http.MethodPost, "/products", big, env.bearer(t)...), http.StatusBadRequest, ErrCodeBadRequest)
}

func TestStart_AppliesConfiguredTimeouts(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Config.Timeouts = config.APITimeoutConfig{Read: 7, Write: 11, Idle: 13}
	})

	if err := env.server.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { env.server.Close() })

	srv := env.server.server
	if srv.ReadTimeout != 7*time.Second || srv.ReadHeaderTimeout != 7*time.Second {
		t.Errorf("read timeouts = %v/%v, want 7s", srv.ReadTimeout, srv.ReadHeaderTimeout)
	}
	if srv.WriteTimeout != 11*time.Second {
		t.Errorf("WriteTimeout = %v, want 11s", srv.WriteTimeout)
	}
	if srv.IdleTimeout != 13*time.Second {
		t.Errorf("IdleTimeout = %v, want 13s", srv.IdleTimeout)
	}
}
