package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, "k", "v", time.Minute)
	got, ok := m.Get(ctx, "k")
	if !ok || got != "v" {
		t.Fatalf("Get = (%v, %v), want (v, true)", got, ok)
	}

	m.Invalidate(ctx, "k")
	if _, ok := m.Get(ctx, "k"); ok {
		t.Errorf("expected miss after invalidate")
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, "k", "v", 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	if _, ok := m.Get(ctx, "k"); ok {
		t.Errorf("expected expired entry to miss")
	}
	if m.Len() != 0 {
		t.Errorf("expected expired entry to be dropped on read, len=%d", m.Len())
	}
}

func TestMemory_ZeroTTLNotStored(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Set(ctx, "k", "v", 0)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Errorf("zero ttl should not store")
	}
}

func TestLoader_LoadsOnceUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(NewMemory())

	var calls atomic.Int64
	load := func(ctx context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "loaded", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.Load(ctx, "key", time.Minute, load)
			if err != nil || v != "loaded" {
				t.Errorf("Load = (%v, %v)", v, err)
			}
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("loader ran %d times, want 1", got)
	}

	// Second call is a pure cache hit
	if _, err := l.Load(ctx, "key", time.Minute, load); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected cache hit, loader ran %d times", got)
	}
}

func TestLoader_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(NewMemory())

	boom := errors.New("upstream down")
	calls := 0

	_, err := l.Load(ctx, "k", time.Minute, func(ctx context.Context) (any, error) {
		calls++
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}

	v, err := l.Load(ctx, "k", time.Minute, func(ctx context.Context) (any, error) {
		calls++
		return "recovered", nil
	})
	if err != nil || v != "recovered" {
		t.Fatalf("Load after error = (%v, %v)", v, err)
	}
	if calls != 2 {
		t.Errorf("expected 2 loader calls, got %d", calls)
	}
}
