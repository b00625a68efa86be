package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds the store ping behind GET /health.
const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.metrics.instrument)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Operational endpoints (no auth)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	// Login issues both a bearer token and a browser session.
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)

	r.Route("/products", func(r chi.Router) {
		// Reads are public.
		r.Get("/", s.handleListProducts)
		r.Get("/category/{name}", s.handleListByCategory)
		r.Get("/{id}", s.handleGetProduct)

		// Writes need a bearer token.
		r.With(s.bearerAuthMiddleware).Post("/", s.handleCreateProduct)
		r.With(s.bearerAuthMiddleware).Delete("/{id}", s.handleDeleteProduct)
		if s.cfg.RequireAuthOnUpdate {
			r.With(s.bearerAuthMiddleware).Put("/{id}", s.handleUpdateProduct)
		} else {
			r.Put("/{id}", s.handleUpdateProduct)
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.bearerAuthMiddleware)

			r.Get("/check_token", s.handleCheckToken)
			r.Get("/audit", s.handleListAuditLogs)

			// WS ticket requires a bearer token; the socket itself authenticates with the ticket.
			r.Post("/ws/ticket", s.handleWSTicket)
		})

		r.With(s.sessionMiddleware).Get("/session", s.handleSession)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status, including store reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := s.catalog.HealthCheck(ctx); err != nil {
		s.logger.Warn("health check: store unreachable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "degraded",
			"version": s.version,
			"store":   "unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"store":   "ok",
	})
}
