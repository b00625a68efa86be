package auth

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/catalog-core/internal/infrastructure/logging"
)

// RevocationSet records revoked token identities (jti) until their expiry.
//
// Implementations must be safe for concurrent use. Entries whose expiry
// has passed may be dropped at any time since the token would fail
// validation as expired anyway.
type RevocationSet interface {
	// Revoke records jti as revoked until expiresAt. Revoking twice is not an error.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error

	// IsRevoked reports whether jti is currently revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// Purge drops entries that expired at or before now and returns how many were removed.
	Purge(ctx context.Context, now time.Time) (int, error)

	// Len returns the number of live entries.
	Len(ctx context.Context) (int, error)
}

// MemoryRevocationSet is a process-local RevocationSet.
type MemoryRevocationSet struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti -> token expiry
}

// NewMemoryRevocationSet creates an empty in-memory revocation set.
func NewMemoryRevocationSet() *MemoryRevocationSet {
	return &MemoryRevocationSet{
		entries: make(map[string]time.Time),
	}
}

// Revoke implements RevocationSet.
func (m *MemoryRevocationSet) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Keep the later expiry if the same jti is revoked twice.
	if existing, ok := m.entries[jti]; ok && existing.After(expiresAt) {
		return nil
	}
	m.entries[jti] = expiresAt
	return nil
}

// IsRevoked implements RevocationSet.
func (m *MemoryRevocationSet) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[jti]
	return ok, nil
}

// Purge implements RevocationSet.
func (m *MemoryRevocationSet) Purge(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for jti, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, jti)
			removed++
		}
	}
	return removed, nil
}

// Len implements RevocationSet.
func (m *MemoryRevocationSet) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Purger is anything that can drop expired entries.
type Purger interface {
	Purge(ctx context.Context, now time.Time) (int, error)
}

// RunPurgeLoop calls p.Purge every interval until ctx is cancelled.
// It blocks, so callers run it in its own goroutine.
func RunPurgeLoop(ctx context.Context, p Purger, interval time.Duration, name string, logger *logging.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := p.Purge(ctx, now)
			if err != nil {
				logger.Warn("purge failed", "store", name, "error", err)
				continue
			}
			if removed > 0 {
				logger.Debug("purged expired entries", "store", name, "removed", removed)
			}
		}
	}
}
