package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/catalog-core/internal/auth"
	"github.com/nerrad567/catalog-core/internal/catalog"
)

// Error is the body of every error response.
type Error struct {
	Message string `json:"error"`
	Code    string `json:"code"`
	Status  int    `json:"status"`
}

// Machine-readable error codes.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeNotFound           = "not_found"
	ErrCodeMissingID          = "missing_id"
	ErrCodeDuplicateID        = "duplicate_id"
	ErrCodeStoreUnavailable   = "store_unavailable"
	ErrCodeInternal           = "internal_error"
	ErrCodeMissingHeader      = "missing_header"
	ErrCodeExpired            = "expired"
	ErrCodeInvalid            = "invalid"
	ErrCodeRevoked            = "revoked"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeNoSession          = "no_session"
	ErrCodeInvalidTicket      = "invalid_ticket"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Message: message,
		Code:    code,
		Status:  status,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeCatalogError maps catalog errors to responses. notFoundMsg lets
// handlers keep their own wording for 404s.
func (s *Server) writeCatalogError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, catalog.ErrMissingID):
		writeError(w, http.StatusBadRequest, ErrCodeMissingID, "ID is required")
	case errors.Is(err, catalog.ErrInvalidDocument):
		writeBadRequest(w, err.Error())
	case errors.Is(err, catalog.ErrDuplicateID):
		writeError(w, http.StatusConflict, ErrCodeDuplicateID, "Product with this ID already exists")
	case errors.Is(err, catalog.ErrNotFound):
		writeNotFound(w, notFoundMsg)
	case errors.Is(err, catalog.ErrStoreUnavailable):
		s.logger.Warn("catalog store unavailable",
			"path", r.URL.Path,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "Catalog store unavailable")
	default:
		s.logger.Error("catalog operation failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "internal server error")
	}
}

// writeAuthError maps token failures to 401 responses with a reason code.
// A revocation store outage is a 503, never a pass.
func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var code, msg string

	switch {
	case errors.Is(err, auth.ErrMissingHeader):
		status, code, msg = http.StatusUnauthorized, ErrCodeMissingHeader, "Authorization header missing or invalid"
	case errors.Is(err, auth.ErrTokenExpired):
		status, code, msg = http.StatusUnauthorized, ErrCodeExpired, "Token expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		status, code, msg = http.StatusUnauthorized, ErrCodeRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrRevocationStore):
		s.logger.Error("revocation store unavailable", "error", err)
		status, code, msg = http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "Token revocation store unavailable"
	default:
		status, code, msg = http.StatusUnauthorized, ErrCodeInvalid, "Invalid token"
	}

	s.metrics.authFailures.WithLabelValues(code).Inc()
	s.logger.Debug("request rejected",
		"path", r.URL.Path,
		"reason", code,
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	writeError(w, status, code, msg)
}
