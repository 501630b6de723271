package memory

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache_SetNXHonorsTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := c.SetNX(ctx, "k", "v", time.Minute); !ok {
		t.Fatalf("expected first SetNX to succeed")
	}
	if ok, _ := c.SetNX(ctx, "k", "v", time.Minute); ok {
		t.Fatalf("expected SetNX on live key to fail")
	}

	now = now.Add(time.Minute)
	if ok, _ := c.SetNX(ctx, "k", "v", time.Minute); !ok {
		t.Fatalf("expected SetNX after expiry to succeed")
	}

	_ = c.Delete(ctx, "k")
	if ok, _ := c.SetNX(ctx, "k", "v", time.Minute); !ok {
		t.Fatalf("expected SetNX after delete to succeed")
	}
}

func TestMemoryCache_SweepDropsOnlyExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = c.SetNX(ctx, "short", "v", time.Minute)
	_, _ = c.SetNX(ctx, "long", "v", time.Hour)
	_, _ = c.SetNX(ctx, "forever", "v", 0)

	if n := c.Sweep(now.Add(2 * time.Minute)); n != 1 {
		t.Fatalf("Sweep removed %d entries, want 1", n)
	}
	if len(c.entries) != 2 {
		t.Fatalf("entries left = %d, want 2", len(c.entries))
	}
	if ok, _ := c.SetNX(ctx, "long", "v", time.Hour); ok {
		t.Fatalf("expected unexpired key to survive the sweep")
	}
}

func TestMemoryCache_JanitorSweepsOnTicker(t *testing.T) {
	c := NewMemoryCache()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _ = c.SetNX(ctx, "k", "v", time.Millisecond)
	c.StartJanitor(ctx, 5*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		n := len(c.entries)
		c.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("janitor did not remove the expired entry")
}
