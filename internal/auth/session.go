package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// sessionIDBytes is the entropy of a session cookie value.
const sessionIDBytes = 32

// Session is server-side state behind a browser session cookie.
// It is separate from bearer tokens: the session only remembers which
// token it issued so logout can revoke it.
type Session struct {
	ID        string
	Subject   string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore keeps sessions in memory keyed by an opaque random ID.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions live for ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL returns the session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Create starts a session for subject remembering the issued token.
func (s *SessionStore) Create(subject, token string) (*Session, error) {
	raw := make([]byte, sessionIDBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	now := s.now()
	sess := &Session{
		ID:        hex.EncodeToString(raw),
		Subject:   subject,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	copied := *sess
	return &copied, nil
}

// Get returns a live session or ErrSessionNotFound.
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || !sess.ExpiresAt.After(s.now()) {
		return nil, ErrSessionNotFound
	}
	copied := *sess
	return &copied, nil
}

// Delete removes a session and returns what it held.
func (s *SessionStore) Delete(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(s.sessions, id)
	return sess, nil
}

// Len returns the number of stored sessions, expired ones included until purged.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Purge implements Purger.
func (s *SessionStore) Purge(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
