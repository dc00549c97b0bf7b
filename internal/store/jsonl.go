package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/greyfort/eventscout/internal/event"
)

var _ Store = (*JSONLStore)(nil)

// JSONLStore appends published events to a JSON-lines file. Queries re-read
// the file, so it suits small result sets and manual inspection, not
// production volume.
type JSONLStore struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewJSONL opens (or creates) the file at path for appending.
func NewJSONL(path string) (*JSONLStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("jsonl store: open %s: %w", path, err)
	}
	return &JSONLStore{path: path, file: f}, nil
}

func (s *JSONLStore) SaveEvent(_ context.Context, ev *event.PublishedEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("jsonl store: encode event %s: %w", ev.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("jsonl store: write event %s: %w", ev.ID, err)
	}
	return nil
}

func (s *JSONLStore) QueryEvents(_ context.Context, f Filter) ([]*event.PublishedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("jsonl store: open %s: %w", s.path, err)
	}
	defer in.Close()

	var out []*event.PublishedEvent
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev event.PublishedEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("jsonl store: decode line: %w", err)
		}
		if matches(&ev, f) {
			out = append(out, &ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonl store: read %s: %w", s.path, err)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return window(out, f), nil
}

func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
