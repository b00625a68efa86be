package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/catalog-core/internal/audit"
	"github.com/nerrad567/catalog-core/internal/auth"
	"github.com/nerrad567/catalog-core/internal/catalog"
	"github.com/nerrad567/catalog-core/internal/infrastructure/config"
	"github.com/nerrad567/catalog-core/internal/infrastructure/database"
	"github.com/nerrad567/catalog-core/internal/infrastructure/logging"
	_ "github.com/nerrad567/catalog-core/migrations"
)

const (
	testSecret   = "test-secret-key-at-least-32-characters-long"
	testUser     = "admin"
	testPassword = "correct horse battery staple"
)

var (
	hashOnce sync.Once
	testHash string
	hashErr  error
)

// adminHash hashes testPassword once per test binary; Argon2id is slow on purpose.
func adminHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		testHash, hashErr = auth.HashPassword(testPassword)
	})
	if hashErr != nil {
		t.Fatalf("HashPassword() error = %v", hashErr)
	}
	return testHash
}

type testEnv struct {
	server   *Server
	handler  http.Handler
	db       *database.DB
	catalog  *catalog.Service
	tokens   *auth.TokenService
	revoked  *auth.MemoryRevocationSet
	sessions *auth.SessionStore
	audit    *audit.SQLiteRepository
	hub      *Hub
}

// newTestEnv wires a server over a migrated temp SQLite database.
func newTestEnv(t *testing.T, modify ...func(*Deps)) *testEnv {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "catalog.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	logger := logging.Discard()
	wsCfg := config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
	hub := NewHub(wsCfg, logger)
	svc := catalog.NewService(catalog.NewSQLiteStore(db.DB), catalog.WithNotifier(hub))

	revoked := auth.NewMemoryRevocationSet()
	tokens, err := auth.NewTokenService(testSecret, revoked)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	creds, err := auth.NewAuthenticator(testUser, adminHash(t))
	if err != nil {
		t.Fatalf("NewAuthenticator() error = %v", err)
	}
	sessions := auth.NewSessionStore(time.Hour)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	deps := Deps{
		Config: config.APIConfig{
			Host:                "127.0.0.1",
			RequireAuthOnUpdate: true,
			Timeouts:            config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS:          wsCfg,
		Session:     config.SessionConfig{CookieName: "catalog_session", TTL: 60},
		Logger:      logger,
		Catalog:     svc,
		Tokens:      tokens,
		Credentials: creds,
		Sessions:    sessions,
		Revocations: revoked,
		Audit:       auditRepo,
		ExternalHub: hub,
		Version:     "test",
	}
	for _, m := range modify {
		m(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	go hub.Run(runCtx)
	if srv.auditCh != nil {
		go srv.drainAuditLog(runCtx)
	}

	return &testEnv{
		server:   srv,
		handler:  srv.Handler(),
		db:       db,
		catalog:  svc,
		tokens:   tokens,
		revoked:  revoked,
		sessions: sessions,
		audit:    auditRepo,
		hub:      hub,
	}
}

// do runs a request through the router. headers alternate name, value.
func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// bearer issues a fresh token and returns the Authorization header pair.
func (e *testEnv) bearer(t *testing.T) []string {
	t.Helper()
	issued, err := e.tokens.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return []string{"Authorization", "Bearer " + issued.Token}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body %q: %v", rec.Body.String(), err)
	}
	return body
}

// assertError checks status and the machine-readable code of an error response.
func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) map[string]any {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["code"] != code {
		t.Errorf("code = %v, want %q", body["code"], code)
	}
	if got, _ := body["status"].(float64); int(got) != status {
		t.Errorf("body status = %v, want %d", body["status"], status)
	}
	return body
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
