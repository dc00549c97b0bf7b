package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/greyfort/eventscout/internal/event"
)

func sampleEvent(id, country string, confidence float64, publishedAt time.Time) *event.PublishedEvent {
	return &event.PublishedEvent{
		ID:          id,
		Title:       "Compliance Summit " + id,
		Description: "Regulatory briefings and panels.",
		Country:     country,
		URL:         "https://example.org/" + id,
		Confidence:  confidence,
		Provenance:  event.Provenance{Source: event.SourceWebSearch},
		PublishedAt: publishedAt,
	}
}

func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	events := []*event.PublishedEvent{
		sampleEvent("a", "DE", 0.9, now.Add(-2*time.Hour)),
		sampleEvent("b", "DE", 0.5, now.Add(-time.Hour)),
		sampleEvent("c", "AT", 0.8, now),
	}
	for _, ev := range events {
		if err := s.SaveEvent(ctx, ev); err != nil {
			t.Fatalf("save %s: %v", ev.ID, err)
		}
	}

	all, err := s.QueryEvents(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("all events = %d, want 3", len(all))
	}
	if all[0].ID != "c" {
		t.Errorf("expected newest first, got %s", all[0].ID)
	}

	de, err := s.QueryEvents(ctx, Filter{Country: "DE"})
	if err != nil {
		t.Fatal(err)
	}
	if len(de) != 2 {
		t.Errorf("DE events = %d, want 2", len(de))
	}

	confident, err := s.QueryEvents(ctx, Filter{MinConfidence: 0.75})
	if err != nil {
		t.Fatal(err)
	}
	if len(confident) != 2 {
		t.Errorf("confident events = %d, want 2", len(confident))
	}

	since := now.Add(-90 * time.Minute)
	recent, err := s.QueryEvents(ctx, Filter{Since: &since})
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Errorf("recent events = %d, want 2", len(recent))
	}

	limited, err := s.QueryEvents(ctx, Filter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ID != "b" {
		t.Errorf("limit/offset window = %+v", limited)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	runStoreContract(t, s)
}

func TestMemoryStore_CopiesOnSave(t *testing.T) {
	s := NewMemory()
	defer s.Close()

	ev := sampleEvent("a", "DE", 0.9, time.Now())
	if err := s.SaveEvent(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	ev.Title = "mutated after save"

	got, err := s.QueryEvents(context.Background(), Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Title == "mutated after save" {
		t.Error("store must not alias caller memory")
	}
}

func TestJSONLStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s, err := NewJSONL(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	runStoreContract(t, s)
}

func TestJSONLStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s, err := NewJSONL(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveEvent(context.Background(), sampleEvent("a", "DE", 0.9, time.Now())); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := NewJSONL(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	got, err := s2.QueryEvents(context.Background(), Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("events after reopen = %d, want 1", len(got))
	}
}
