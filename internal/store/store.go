// Package store is the persistence port for published events. The pipeline
// itself never persists; the CLI (or a surrounding service) saves through
// this interface. Reference backends: in-memory, JSONL file, SQLite, and
// Postgres.
package store

import (
	"context"
	"time"

	"github.com/greyfort/eventscout/internal/event"
)

// Filter narrows a query. Zero values mean "no constraint".
type Filter struct {
	Country       string
	Source        event.Source
	MinConfidence float64
	Since         *time.Time
	Limit         int
	Offset        int
}

// Store saves and queries published events.
type Store interface {
	SaveEvent(ctx context.Context, ev *event.PublishedEvent) error
	QueryEvents(ctx context.Context, filter Filter) ([]*event.PublishedEvent, error)
	Close() error
}

// matches applies a filter to one event; shared by the backends that filter
// in process.
func matches(ev *event.PublishedEvent, f Filter) bool {
	if f.Country != "" && ev.Country != f.Country {
		return false
	}
	if f.Source != "" && ev.Provenance.Source != f.Source {
		return false
	}
	if f.MinConfidence > 0 && ev.Confidence < f.MinConfidence {
		return false
	}
	if f.Since != nil && ev.PublishedAt.Before(*f.Since) {
		return false
	}
	return true
}

// window applies limit/offset to an already-filtered slice.
func window(events []*event.PublishedEvent, f Filter) []*event.PublishedEvent {
	if f.Offset > 0 {
		if f.Offset >= len(events) {
			return nil
		}
		events = events[f.Offset:]
	}
	if f.Limit > 0 && len(events) > f.Limit {
		events = events[:f.Limit]
	}
	return events
}
