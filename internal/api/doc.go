// Package api implements the HTTP REST API and WebSocket server for the
// product catalog.
//
// This package provides:
//   - Public product read endpoints (list, get, category search)
//   - Bearer-token protected product create, update and delete
//   - Login, logout and browser session endpoints
//   - WebSocket hub broadcasting catalog change events
//   - Middleware stack (request ID, logging, recovery, CORS, metrics)
//   - Prometheus metrics and a health endpoint
//
// # Security
//
// Two separate mechanisms coexist. API clients send "Authorization: Bearer
// <token>" and every protected request validates signature, expiry and the
// revocation set. Browsers hold an HttpOnly session cookie created at login;
// the session only gates session endpoints and logout, never catalog writes.
//
// Whether PUT /products/{id} needs a bearer token is controlled by
// api.require_auth_on_update.
//
// WebSocket connections use single-use tickets so tokens never appear in URLs.
//
// # Errors
//
// Every error response has the shape:
//
//	{"error": "Product not found", "code": "not_found", "status": 404}
package api
