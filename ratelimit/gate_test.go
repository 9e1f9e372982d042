package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestGateSequentialSpacing(t *testing.T) {
	// 600 requests/minute = one grant per 100ms.
	g := NewGate(600)
	ctx := context.Background()

	const n = 4
	start := time.Now()
	for i := 0; i < n; i++ {
		if err := g.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	min := time.Duration(n-1) * 100 * time.Millisecond
	if elapsed < min {
		t.Errorf("%d acquisitions took %v, want at least %v", n, elapsed, min)
	}
}

func TestGateConcurrentSpacing(t *testing.T) {
	g := NewGate(600)
	ctx := context.Background()

	const n = 4
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Acquire(ctx); err != nil {
				t.Errorf("Acquire failed: %v", err)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	min := time.Duration(n-1) * 100 * time.Millisecond
	if elapsed < min {
		t.Errorf("%d concurrent acquisitions took %v, want at least %v", n, elapsed, min)
	}
}

func TestGateFirstAcquireImmediate(t *testing.T) {
	g := NewGate(1) // one request per minute

	start := time.Now()
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first acquisition took %v, want immediate", elapsed)
	}
}

func TestGateContextCanceled(t *testing.T) {
	g := NewGate(1)
	ctx, cancel := context.WithCancel(context.Background())

	// Drain the single token, then cancel the waiting caller.
	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	cancel()

	if err := g.Acquire(ctx); err == nil {
		t.Fatal("Acquire after cancel succeeded, want error")
	}
}

func TestGateDefaultBudget(t *testing.T) {
	g := NewGate(0)

	if got := g.Interval(); got != time.Second {
		t.Errorf("Interval = %v, want %v for the default budget", got, time.Second)
	}
}
