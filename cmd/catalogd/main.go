// catalogd serves the product catalog API.
//
// Usage:
//
//	catalogd                  run the server (config from CATALOG_CONFIG)
//	catalogd hash-password    read a password on stdin, print its Argon2id hash
//
// Secrets are never embedded: the JWT signing secret and the admin
// credential come from configuration or CATALOG_* environment variables.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "github.com/nerrad567/catalog-core/migrations"

	"github.com/nerrad567/catalog-core/internal/api"
	"github.com/nerrad567/catalog-core/internal/audit"
	"github.com/nerrad567/catalog-core/internal/auth"
	"github.com/nerrad567/catalog-core/internal/catalog"
	"github.com/nerrad567/catalog-core/internal/infrastructure/config"
	"github.com/nerrad567/catalog-core/internal/infrastructure/database"
	"github.com/nerrad567/catalog-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/catalog-core/internal/infrastructure/logging"
	"github.com/nerrad567/catalog-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/catalog-core/internal/notify"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	// defaultConfigPath is used when CATALOG_CONFIG is unset.
	defaultConfigPath = "configs/config.yaml"

	// dotEnvPath is loaded into the environment before the config.
	dotEnvPath = ".env"

	// shutdownTimeout bounds closing external clients after the API stops.
	shutdownTimeout = 10 * time.Second
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "hash-password":
			if err := hashPassword(os.Stdin, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "serve":
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q (want serve or hash-password)\n", os.Args[1])
			os.Exit(2)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting catalogd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if err := config.LoadDotEnv(dotEnvPath); err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"store", cfg.Catalog.Backend,
		"revocation", cfg.Security.Revocation.Backend,
		"require_auth_on_update", cfg.API.RequireAuthOnUpdate,
	)

	// SQLite always holds the audit trail, and the catalog for the sqlite backend.
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	store, closeStore, err := openStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeStore()

	revoked, closeRevoked, err := openRevocationSet(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRevoked()

	tokens, err := auth.NewTokenService(cfg.Security.JWT.Secret, revoked, auth.WithTTL(cfg.TokenTTL()))
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	credentials, err := auth.NewAuthenticator(cfg.Security.Admin.Username, cfg.Security.Admin.PasswordHash)
	if err != nil {
		return fmt.Errorf("loading admin credential: %w", err)
	}
	sessions := auth.NewSessionStore(cfg.SessionTTL())
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Change notifications: WebSocket and audit always, MQTT and InfluxDB when enabled.
	hub := api.NewHub(cfg.WebSocket, log.With("component", "websocket"))
	go hub.Run(ctx)

	fanout := notify.NewFanout(log,
		hub,
		notify.NewAuditNotifier(auditRepo, log),
	)

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		fanout.Add(notify.NewMQTTNotifier(mqttClient, log))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		fanout.Add(notify.NewInfluxNotifier(influxClient))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	svc := catalog.NewService(store,
		catalog.WithNotifier(fanout),
		catalog.WithLogger(log.With("component", "catalog")),
		catalog.WithPageLimits(cfg.API.DefaultPageLimit, cfg.API.MaxPageLimit),
	)

	// Purge loops stop with ctx. Redis expires revocations itself.
	if _, isMemory := revoked.(*auth.MemoryRevocationSet); isMemory {
		go auth.RunPurgeLoop(ctx, revoked, cfg.PurgeInterval(), "revocations", log)
	}
	go auth.RunPurgeLoop(ctx, sessions, cfg.PurgeInterval(), "sessions", log)

	if err := healthCheck(ctx, db, svc, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Session:     cfg.Security.Session,
		Logger:      log.With("component", "api"),
		Catalog:     svc,
		Tokens:      tokens,
		Credentials: credentials,
		Sessions:    sessions,
		Revocations: revoked,
		Audit:       auditRepo,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB, MQTT, revocation store, catalog store, database.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CATALOG_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CATALOG_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openStore returns the configured catalog store and its cleanup.
func openStore(ctx context.Context, cfg *config.Config, db *database.DB) (catalog.Store, func(), error) {
	switch cfg.Catalog.Backend {
	case config.BackendMongoDB:
		store, err := catalog.ConnectMongo(ctx, cfg.Catalog.MongoDB)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to MongoDB: %w", err)
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			//nolint:errcheck // best effort on shutdown
			store.Close(closeCtx)
		}
		return store, closeFn, nil
	default:
		return catalog.NewSQLiteStore(db.DB), func() {}, nil
	}
}

// openRevocationSet returns the configured revocation set and its cleanup.
func openRevocationSet(ctx context.Context, cfg *config.Config) (auth.RevocationSet, func(), error) {
	if cfg.Security.Revocation.Backend != config.RevocationRedis {
		return auth.NewMemoryRevocationSet(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	set := auth.NewRedisRevocationSet(client, cfg.Redis.KeyPrefix)

	if err := set.Ping(ctx); err != nil {
		client.Close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	closeFn := func() {
		//nolint:errcheck // best effort on shutdown
		client.Close()
	}
	return set, closeFn, nil
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, svc *catalog.Service, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := svc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("catalog store: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// hashPassword reads one line from r and writes its PHC hash to w.
func hashPassword(r io.Reader, w io.Writer) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading password: %w", err)
	}

	hash, err := auth.HashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, hash)
	return err
}
