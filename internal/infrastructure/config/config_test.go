package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// validJWTSecret is a secret that meets the 32-character minimum requirement.
const validJWTSecret = "test-secret-key-at-least-32-chars!"

// validHash is a syntactically valid Argon2id PHC string.
const validHash = "$argon2id$v=19$m=65536,t=3,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g"

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
service:
  id: "test-catalog"
database:
  path: "/tmp/test.db"
api:
  host: "127.0.0.1"
  port: 9090
  require_auth_on_update: false
security:
  jwt:
    secret: "`+validJWTSecret+`"
  admin:
    username: "admin"
    password_hash: "`+validHash+`"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.ID != "test-catalog" {
		t.Errorf("Service.ID = %q, want %q", cfg.Service.ID, "test-catalog")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.API.RequireAuthOnUpdate {
		t.Error("API.RequireAuthOnUpdate = true, want false from file")
	}

	// Defaults survive when the file is silent.
	if cfg.Catalog.Backend != BackendSQLite {
		t.Errorf("Catalog.Backend = %q, want %q", cfg.Catalog.Backend, BackendSQLite)
	}
	if cfg.API.DefaultPageLimit != 100 {
		t.Errorf("API.DefaultPageLimit = %d, want 100", cfg.API.DefaultPageLimit)
	}
	if cfg.Security.JWT.TokenTTL != 60 {
		t.Errorf("Security.JWT.TokenTTL = %d, want 60", cfg.Security.JWT.TokenTTL)
	}
	if cfg.Security.Revocation.Backend != RevocationMemory {
		t.Errorf("Security.Revocation.Backend = %q, want %q", cfg.Security.Revocation.Backend, RevocationMemory)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_NoEmbeddedSecrets(t *testing.T) {
	t.Setenv("CATALOG_JWT_SECRET", "")
	t.Setenv("CATALOG_ADMIN_USERNAME", "")
	t.Setenv("CATALOG_ADMIN_PASSWORD_HASH", "")

	configPath := writeConfig(t, `
service:
  id: "test-catalog"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error when secrets are not supplied, got nil")
	}

	for _, want := range []string{
		"security.jwt.secret is required",
		"security.admin.username is required",
		"security.admin.password_hash is required",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Load() error = %v, want it to mention %q", err, want)
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
service:
  id: "test-catalog"
`)

	t.Setenv("CATALOG_JWT_SECRET", validJWTSecret)
	t.Setenv("CATALOG_ADMIN_USERNAME", "root")
	t.Setenv("CATALOG_ADMIN_PASSWORD_HASH", validHash)
	t.Setenv("CATALOG_DATABASE_PATH", "/tmp/override.db")
	t.Setenv("CATALOG_API_PORT", "8181")
	t.Setenv("CATALOG_REQUIRE_AUTH_ON_UPDATE", "false")
	t.Setenv("CATALOG_REDIS_ADDR", "redis:6380")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Security.Admin.Username != "root" {
		t.Errorf("Admin.Username = %q, want %q", cfg.Security.Admin.Username, "root")
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/override.db")
	}
	if cfg.API.Port != 8181 {
		t.Errorf("API.Port = %d, want 8181", cfg.API.Port)
	}
	if cfg.API.RequireAuthOnUpdate {
		t.Error("API.RequireAuthOnUpdate = true, want false from env")
	}
	if cfg.Redis.Addr != "redis:6380" {
		t.Errorf("Redis.Addr = %q, want %q", cfg.Redis.Addr, "redis:6380")
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("LoadDotEnv() error = %v", err)
		}
	})

	t.Run("sets unset variables only", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		content := "CATALOG_TEST_DOTENV_A=from-file\nCATALOG_TEST_DOTENV_B=from-file\n"
		if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write .env: %v", err)
		}

		t.Setenv("CATALOG_TEST_DOTENV_B", "from-env")
		os.Unsetenv("CATALOG_TEST_DOTENV_A")
		t.Cleanup(func() { os.Unsetenv("CATALOG_TEST_DOTENV_A") })

		if err := LoadDotEnv(envPath); err != nil {
			t.Fatalf("LoadDotEnv() error = %v", err)
		}

		if got := os.Getenv("CATALOG_TEST_DOTENV_A"); got != "from-file" {
			t.Errorf("CATALOG_TEST_DOTENV_A = %q, want %q", got, "from-file")
		}
		if got := os.Getenv("CATALOG_TEST_DOTENV_B"); got != "from-env" {
			t.Errorf("CATALOG_TEST_DOTENV_B = %q, want %q", got, "from-env")
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			modify: func(_ *Config) {},
		},
		{
			name:    "short jwt secret",
			modify:  func(c *Config) { c.Security.JWT.Secret = "too-short" },
			wantErr: "at least 32 characters",
		},
		{
			name:    "plaintext password instead of hash",
			modify:  func(c *Config) { c.Security.Admin.PasswordHash = "admin" },
			wantErr: "argon2id PHC string",
		},
		{
			name:    "unknown store backend",
			modify:  func(c *Config) { c.Catalog.Backend = "postgres" },
			wantErr: "catalog.backend",
		},
		{
			name:    "mongodb without uri",
			modify:  func(c *Config) { c.Catalog.Backend = BackendMongoDB },
			wantErr: "catalog.mongodb.uri is required",
		},
		{
			name: "mongodb with uri",
			modify: func(c *Config) {
				c.Catalog.Backend = BackendMongoDB
				c.Catalog.MongoDB.URI = "mongodb://localhost:27017"
			},
		},
		{
			name:    "invalid port",
			modify:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "invalid qos",
			modify:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "unknown revocation backend",
			modify:  func(c *Config) { c.Security.Revocation.Backend = "memcached" },
			wantErr: "security.revocation.backend",
		},
		{
			name: "redis revocation without addr",
			modify: func(c *Config) {
				c.Security.Revocation.Backend = RevocationRedis
				c.Redis.Addr = ""
			},
			wantErr: "redis.addr",
		},
		{
			name: "max page limit below default",
			modify: func(c *Config) {
				c.API.MaxPageLimit = 10
			},
			wantErr: "api.max_page_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Security.JWT.Secret = validJWTSecret
			cfg.Security.Admin.Username = "admin"
			cfg.Security.Admin.PasswordHash = validHash
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.API.ReadTimeout().Seconds(); got != 30 {
		t.Errorf("API.ReadTimeout() = %vs, want 30s", got)
	}
	if got := cfg.API.WriteTimeout().Seconds(); got != 30 {
		t.Errorf("API.WriteTimeout() = %vs, want 30s", got)
	}
	if got := cfg.API.IdleTimeout().Seconds(); got != 60 {
		t.Errorf("API.IdleTimeout() = %vs, want 60s", got)
	}
	if got := cfg.TokenTTL().Minutes(); got != 60 {
		t.Errorf("TokenTTL() = %vm, want 60m", got)
	}
	if got := cfg.PurgeInterval().Seconds(); got != 300 {
		t.Errorf("PurgeInterval() = %vs, want 300s", got)
	}
}
