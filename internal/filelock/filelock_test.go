package filelock

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLockExcludes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.lock")

	var holders, maxHolders atomic.Int32
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := Lock(context.Background(), path)
			if err != nil {
				t.Errorf("Lock failed: %v", err)
				return
			}
			n := holders.Add(1)
			for {
				m := maxHolders.Load()
				if n <= m || maxHolders.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			holders.Add(-1)
			if err := unlock(); err != nil {
				t.Errorf("unlock failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := maxHolders.Load(); got != 1 {
		t.Errorf("max concurrent holders = %d, want 1", got)
	}
}

func TestLockCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.lock")
	unlock, err := Lock(context.Background(), path)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := unlock(); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}

	// Relocking after release must not block.
	unlock, err = Lock(context.Background(), path)
	if err != nil {
		t.Fatalf("second Lock failed: %v", err)
	}
	_ = unlock()
}

func TestLockHonoursContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "held.lock")
	unlock, err := Lock(context.Background(), path)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer func() { _ = unlock() }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := Lock(ctx, path); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Lock on held file = %v, want deadline exceeded", err)
	}
}
