package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Catalog store backends.
const (
	BackendSQLite  = "sqlite"
	BackendMongoDB = "mongodb"
)

// Revocation set backends.
const (
	RevocationMemory = "memory"
	RevocationRedis  = "redis"
)

// Config is the root configuration structure for the catalog service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// ServiceConfig identifies this catalog instance.
type ServiceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// CatalogConfig selects and configures the product store.
type CatalogConfig struct {
	// Backend is "sqlite" (default) or "mongodb".
	Backend string        `yaml:"backend"`
	MongoDB MongoDBConfig `yaml:"mongodb"`
}

// MongoDBConfig contains MongoDB connection settings.
type MongoDBConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	Timeout    int    `yaml:"timeout"` // seconds
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`

	// RequireAuthOnUpdate puts PUT /products/{id} behind bearer-token auth.
	RequireAuthOnUpdate bool `yaml:"require_auth_on_update"`

	// DefaultPageLimit is used when a list request has no limit.
	DefaultPageLimit int `yaml:"default_page_limit"`

	// MaxPageLimit clamps larger limits.
	MaxPageLimit int `yaml:"max_page_limit"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// RedisConfig contains Redis connection settings.
// Redis backs the shared token revocation set.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT        JWTConfig        `yaml:"jwt"`
	Admin      AdminConfig      `yaml:"admin"`
	Session    SessionConfig    `yaml:"session"`
	Revocation RevocationConfig `yaml:"revocation"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	TokenTTL int    `yaml:"token_ttl"` // minutes
}

// AdminConfig holds the single administrator credential.
// PasswordHash is an Argon2id PHC string; plaintext passwords are never configured.
type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// SessionConfig contains browser session settings.
type SessionConfig struct {
	CookieName   string `yaml:"cookie_name"`
	TTL          int    `yaml:"ttl"` // minutes
	SecureCookie bool   `yaml:"secure_cookie"`
}

// RevocationConfig selects the token revocation backend.
type RevocationConfig struct {
	Backend       string `yaml:"backend"`
	PurgeInterval int    `yaml:"purge_interval"` // seconds
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded, never secrets)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CATALOG_SECTION_KEY
// For example: CATALOG_DATABASE_PATH, CATALOG_JWT_SECRET
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from a .env file into the process
// environment. Variables already set in the environment are left alone.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// defaultConfig returns a Config with sensible defaults.
// Secrets and credentials are deliberately left empty.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:   "catalog-001",
			Name: "Product Catalog",
		},
		Database: DatabaseConfig{
			Path:        "./data/catalog.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Catalog: CatalogConfig{
			Backend: BackendSQLite,
			MongoDB: MongoDBConfig{
				Database:   "catalog",
				Collection: "products",
				Timeout:    10,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "catalogd",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			RequireAuthOnUpdate: true,
			DefaultPageLimit:    100,
			MaxPageLimit:        1000,
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "catalog:revoked:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				TokenTTL: 60,
			},
			Session: SessionConfig{
				CookieName: "catalog_session",
				TTL:        60,
			},
			Revocation: RevocationConfig{
				Backend:       RevocationMemory,
				PurgeInterval: 300,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CATALOG_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("CATALOG_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Catalog store
	if v := os.Getenv("CATALOG_STORE_BACKEND"); v != "" {
		cfg.Catalog.Backend = v
	}
	if v := os.Getenv("CATALOG_MONGODB_URI"); v != "" {
		cfg.Catalog.MongoDB.URI = v
	}

	// MQTT
	if v := os.Getenv("CATALOG_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CATALOG_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CATALOG_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("CATALOG_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("CATALOG_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("CATALOG_REQUIRE_AUTH_ON_UPDATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.API.RequireAuthOnUpdate = b
		}
	}

	// InfluxDB
	if v := os.Getenv("CATALOG_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Redis
	if v := os.Getenv("CATALOG_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CATALOG_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	// Security - secrets and the admin credential have no defaults
	if v := os.Getenv("CATALOG_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("CATALOG_ADMIN_USERNAME"); v != "" {
		cfg.Security.Admin.Username = v
	}
	if v := os.Getenv("CATALOG_ADMIN_PASSWORD_HASH"); v != "" {
		cfg.Security.Admin.PasswordHash = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Service.ID == "" {
		errs = append(errs, "service.id is required")
	}

	switch c.Catalog.Backend {
	case BackendSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite backend")
		}
	case BackendMongoDB:
		if c.Catalog.MongoDB.URI == "" {
			errs = append(errs, "catalog.mongodb.uri is required (set CATALOG_MONGODB_URI environment variable)")
		}
		if c.Catalog.MongoDB.Database == "" || c.Catalog.MongoDB.Collection == "" {
			errs = append(errs, "catalog.mongodb.database and catalog.mongodb.collection are required")
		}
	default:
		errs = append(errs, fmt.Sprintf("catalog.backend must be %q or %q", BackendSQLite, BackendMongoDB))
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.DefaultPageLimit < 1 {
		errs = append(errs, "api.default_page_limit must be positive")
	}
	if c.API.MaxPageLimit < c.API.DefaultPageLimit {
		errs = append(errs, "api.max_page_limit must be at least api.default_page_limit")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	// Signing secret and admin credential are REQUIRED and have no fallback.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set CATALOG_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}
	if c.Security.JWT.TokenTTL < 1 {
		errs = append(errs, "security.jwt.token_ttl must be positive")
	}
	if c.Security.Admin.Username == "" {
		errs = append(errs, "security.admin.username is required (set CATALOG_ADMIN_USERNAME environment variable)")
	}
	if c.Security.Admin.PasswordHash == "" {
		errs = append(errs, "security.admin.password_hash is required (set CATALOG_ADMIN_PASSWORD_HASH environment variable)")
	} else if !strings.HasPrefix(c.Security.Admin.PasswordHash, "$argon2id$") {
		errs = append(errs, "security.admin.password_hash must be an argon2id PHC string (see catalogd hash-password)")
	}
	if c.Security.Session.CookieName == "" {
		errs = append(errs, "security.session.cookie_name is required")
	}

	switch c.Security.Revocation.Backend {
	case RevocationMemory:
		if c.Security.Revocation.PurgeInterval < 1 {
			errs = append(errs, "security.revocation.purge_interval must be positive")
		}
	case RevocationRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, "redis.addr is required for the redis revocation backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("security.revocation.backend must be %q or %q", RevocationMemory, RevocationRedis))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReadTimeout returns the HTTP read timeout (also used for request headers).
func (a APIConfig) ReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// WriteTimeout returns the HTTP write timeout.
func (a APIConfig) WriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// IdleTimeout returns the keep-alive idle timeout.
func (a APIConfig) IdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}

// TokenTTL returns the bearer token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.TokenTTL) * time.Minute
}

// SessionTTL returns the browser session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Security.Session.TTL) * time.Minute
}

// PurgeInterval returns how often expired revocations are dropped.
func (c *Config) PurgeInterval() time.Duration {
	return time.Duration(c.Security.Revocation.PurgeInterval) * time.Second
}
