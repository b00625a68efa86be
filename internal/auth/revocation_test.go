package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/catalog-core/internal/infrastructure/logging"
)

func TestMemoryRevocationSet(t *testing.T) {
	ctx := context.Background()
	set := NewMemoryRevocationSet()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	if ok, _ := set.IsRevoked(ctx, "jti-1"); ok {
		t.Error("IsRevoked() = true on empty set")
	}

	if err := set.Revoke(ctx, "jti-1", now.Add(time.Minute)); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if err := set.Revoke(ctx, "jti-2", now.Add(time.Hour)); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	if ok, _ := set.IsRevoked(ctx, "jti-1"); !ok {
		t.Error("IsRevoked(jti-1) = false, want true")
	}
	if n, _ := set.Len(ctx); n != 2 {
		t.Errorf("Len() = %d, want 2", n)
	}

	removed, err := set.Purge(ctx, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Purge() removed = %d, want 1", removed)
	}
	if ok, _ := set.IsRevoked(ctx, "jti-1"); ok {
		t.Error("IsRevoked(jti-1) = true after purge")
	}
	if ok, _ := set.IsRevoked(ctx, "jti-2"); !ok {
		t.Error("IsRevoked(jti-2) = false, want still revoked")
	}
}

func TestMemoryRevocationSet_KeepsLaterExpiry(t *testing.T) {
	ctx := context.Background()
	set := NewMemoryRevocationSet()
	now := time.Now()

	_ = set.Revoke(ctx, "jti", now.Add(time.Hour))
	_ = set.Revoke(ctx, "jti", now.Add(time.Minute))

	if removed, _ := set.Purge(ctx, now.Add(2*time.Minute)); removed != 0 {
		t.Errorf("Purge() removed = %d, want 0", removed)
	}
}

func TestMemoryRevocationSet_Concurrent(t *testing.T) {
	ctx := context.Background()
	set := NewMemoryRevocationSet()
	exp := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			jti := fmt.Sprintf("jti-%d", i)
			_ = set.Revoke(ctx, jti, exp)
			_, _ = set.IsRevoked(ctx, jti)
			_, _ = set.Purge(ctx, time.Now())
		}(i)
	}
	wg.Wait()

	if n, _ := set.Len(ctx); n != 20 {
		t.Errorf("Len() = %d, want 20", n)
	}
}

type countingPurger struct {
	mu    sync.Mutex
	calls int
}

func (c *countingPurger) Purge(context.Context, time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 1, nil
}

func (c *countingPurger) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestRunPurgeLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &countingPurger{}

	done := make(chan struct{})
	go func() {
		RunPurgeLoop(ctx, p, 5*time.Millisecond, "test", logging.Discard())
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for p.Calls() < 2 {
		select {
		case <-deadline:
			t.Fatalf("purge called %d times, want at least 2", p.Calls())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPurgeLoop did not return after cancel")
	}
}

func TestRunPurgeLoop_ZeroIntervalReturns(t *testing.T) {
	done := make(chan struct{})
	go func() {
		RunPurgeLoop(context.Background(), &countingPurger{}, 0, "test", logging.Discard())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPurgeLoop with zero interval did not return")
	}
}
