package store

import (
	"context"
	"sort"
	"sync"

	"github.com/greyfort/eventscout/internal/event"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps published events in memory. The default backend and the
// one tests use.
type MemoryStore struct {
	mu     sync.RWMutex
	events []*event.PublishedEvent
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveEvent(_ context.Context, ev *event.PublishedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *ev
	s.events = append(s.events, &copied)
	return nil
}

func (s *MemoryStore) QueryEvents(_ context.Context, f Filter) ([]*event.PublishedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*event.PublishedEvent
	for _, ev := range s.events {
		if matches(ev, f) {
			copied := *ev
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return window(out, f), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
