package useragent

import (
	"strings"
	"sync"
	"testing"
)

func TestPool_NextRoundRobin(t *testing.T) {
	p := NewPool([]string{"a", "b", "c"})

	got := []string{p.Next(), p.Next(), p.Next(), p.Next()}
	want := []string{"a", "b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Next()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPool_EmptyFallsBack(t *testing.T) {
	p := NewPool(nil)
	if p.Size() == 0 {
		t.Fatalf("expected fallback pool to be non-empty")
	}
	if ua := p.Next(); !strings.Contains(ua, "Chrome") {
		t.Errorf("fallback pool should be the Chrome set, got %q", ua)
	}
}

func TestPool_ConcurrentNext(t *testing.T) {
	p := NewPool([]string{"a", "b"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if p.Next() == "" {
					t.Errorf("Next returned empty string")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestDefaultFor(t *testing.T) {
	for _, ua := range DefaultFor("chrome") {
		if !strings.Contains(ua, "Chrome") || strings.Contains(ua, "Firefox") {
			t.Errorf("chrome profile got mismatched UA %q", ua)
		}
	}
	for _, ua := range DefaultFor("firefox") {
		if !strings.Contains(ua, "Firefox") {
			t.Errorf("firefox profile got mismatched UA %q", ua)
		}
	}
	if got := len(DefaultFor("random")); got != len(DefaultFor("chrome"))+len(DefaultFor("firefox")) {
		t.Errorf("unknown profile should get the combined set, got %d entries", got)
	}
}

func TestPool_Random(t *testing.T) {
	p := NewPool([]string{"only"})
	if p.Random() != "only" {
		t.Errorf("Random on a single-entry pool must return that entry")
	}
}
