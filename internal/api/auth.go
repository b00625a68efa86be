package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/catalog-core/internal/audit"
	"github.com/nerrad567/catalog-core/internal/auth"
)

// Auth constants.
const (
	// ticketTTL is how long a WebSocket ticket is valid.
	ticketTTL = 60 * time.Second

	// defaultSessionCookie is used when no cookie name is configured.
	defaultSessionCookie = "catalog_session"
)

// loginRequest is the request body for POST /login (JSON or form encoded).
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /login.
type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// handleLogin checks the admin credential, issues a bearer token and
// starts a browser session holding the same token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLogin(r)
	if err != nil {
		writeBadRequest(w, "invalid login body")
		return
	}

	subject, err := s.credentials.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.auditLog(audit.ActionLoginFailed, audit.EntitySession, "", req.Username, nil)
			writeError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid credentials")
			return
		}
		s.logger.Error("credential check failed", "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	issued, err := s.tokens.Issue(subject)
	if err != nil {
		s.logger.Error("issuing token failed", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	sess, err := s.sessions.Create(subject, issued.Token)
	if err != nil {
		s.logger.Error("creating session failed", "error", err)
		writeInternalError(w, "failed to start session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.sessionCfg.CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.sessionCfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	s.auditLog(audit.ActionLogin, audit.EntitySession, issued.ID, subject, nil)
	s.logger.Info("login succeeded", "subject", subject, "jti", issued.ID)

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     issued.Token,
		TokenType: "Bearer",
		ExpiresIn: int(s.tokens.TTL().Seconds()),
	})
}

// decodeLogin accepts a JSON body or classic form fields.
func decodeLogin(r *http.Request) (loginRequest, error) {
	var req loginRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	return req, nil
}

// handleLogout ends the browser session and revokes its token, plus any
// bearer token sent alongside. It redirects home unless the revocation
// store is down, in which case nothing is torn down and the client gets 503.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, hasSession := s.sessionFromRequest(r)

	var live []string
	if hasSession {
		live = append(live, sess.Token)
	}
	if bearer, err := auth.ExtractBearer(r.Header.Get("Authorization")); err == nil && (!hasSession || bearer != sess.Token) {
		live = append(live, bearer)
	}

	for _, token := range live {
		if err := s.tokens.Revoke(r.Context(), token); err != nil {
			if errors.Is(err, auth.ErrRevocationStore) {
				// The session stays so the client can retry; Revoke is idempotent.
				s.writeAuthError(w, r, err)
				return
			}
			s.logger.Debug("token not revocable", "error", err)
		}
	}

	if hasSession {
		//nolint:errcheck // already gone is fine
		s.sessions.Delete(sess.ID)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.sessionCfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.sessionCfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	if hasSession {
		s.auditLog(audit.ActionLogout, audit.EntitySession, "", sess.Subject, nil)
		s.logger.Info("logout", "subject", sess.Subject)
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// handleCheckToken confirms the bearer token is valid.
func (s *Server) handleCheckToken(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, ErrCodeInvalid, "Invalid token")
		return
	}

	resp := map[string]any{
		"message": "Token is valid",
		"subject": claims.Subject,
	}
	if claims.ExpiresAt != nil {
		resp["expires_at"] = claims.ExpiresAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSession reports the logged-in state of the browser session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, ErrCodeNoSession, "Not logged in")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logged_in":  true,
		"subject":    sess.Subject,
		"expires_at": sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use and expire after ticketTTL.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
}

type ticketEntry struct {
	subject   string
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
// The client uses this ticket to authenticate the WebSocket connection
// without exposing the bearer token in the URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, ErrCodeInvalid, "Invalid token")
		return
	}

	ticket := generateTicket()

	s.tickets.mu.Lock()
	s.tickets.tickets[ticket] = ticketEntry{
		subject:   claims.Subject,
		expiresAt: time.Now().Add(ticketTTL),
	}
	s.tickets.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// validateTicket checks if a ticket is valid and consumes it (single-use).
func (s *Server) validateTicket(ticket string) (ticketEntry, bool) {
	s.tickets.mu.Lock()
	defer s.tickets.mu.Unlock()

	entry, ok := s.tickets.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}

	// Remove ticket (single-use)
	delete(s.tickets.tickets, ticket)

	return entry, time.Now().Before(entry.expiresAt)
}

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// generateTicket creates a cryptographically random ticket string.
func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}

// cleanExpiredTickets removes expired tickets from the store.
func (s *Server) cleanExpiredTickets(now time.Time) {
	s.tickets.mu.Lock()
	defer s.tickets.mu.Unlock()

	for ticket, entry := range s.tickets.tickets {
		if now.After(entry.expiresAt) {
			delete(s.tickets.tickets, ticket)
		}
	}
}

// cleanTicketsLoop runs cleanExpiredTickets periodically until the context is cancelled.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.cleanExpiredTickets(now)
		}
	}
}
