package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/catalog-core/internal/audit"
	"github.com/nerrad567/catalog-core/internal/auth"
	"github.com/nerrad567/catalog-core/internal/catalog"
	"github.com/nerrad567/catalog-core/internal/infrastructure/config"
	"github.com/nerrad567/catalog-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Session     config.SessionConfig
	Logger      *logging.Logger
	Catalog     *catalog.Service
	Tokens      *auth.TokenService
	Credentials *auth.Authenticator
	Sessions    *auth.SessionStore
	Revocations auth.RevocationSet // optional: exported as a gauge
	Audit       audit.Repository   // optional: login/logout trail and GET /api/audit
	ExternalHub *Hub               // if set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for the catalog.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	sessionCfg  config.SessionConfig
	logger      *logging.Logger
	catalog     *catalog.Service
	tokens      *auth.TokenService
	credentials *auth.Authenticator
	sessions    *auth.SessionStore
	revocations auth.RevocationSet
	auditRepo   audit.Repository
	auditCh     chan *audit.Entry
	version     string
	metrics     *metrics
	tickets     *ticketStore
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog service is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if deps.Credentials == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		sessionCfg:  deps.Session,
		logger:      deps.Logger,
		catalog:     deps.Catalog,
		tokens:      deps.Tokens,
		credentials: deps.Credentials,
		sessions:    deps.Sessions,
		revocations: deps.Revocations,
		auditRepo:   deps.Audit,
		version:     deps.Version,
		tickets:     newTicketStore(),
	}
	if s.sessionCfg.CookieName == "" {
		s.sessionCfg.CookieName = defaultSessionCookie
	}
	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	} else {
		s.hub = NewHub(s.wsCfg, s.logger)
	}

	s.metrics = newMetrics(s.hub, s.revocations)

	return s, nil
}

// Hub returns the WebSocket hub. Register it as a catalog notifier to
// broadcast product changes.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler builds the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub (unless injected), the ticket cleanup loop and
// the audit writer, then launches the HTTP listener in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}
	go s.cleanTicketsLoop(srvCtx)
	if s.auditCh != nil {
		go s.drainAuditLog(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
