// Package sqlite backs the event store with an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/greyfort/eventscout/internal/event"
	"github.com/greyfort/eventscout/internal/store"
)

var _ store.Store = (*sqliteStore)(nil)

type sqliteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS published_events (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	country TEXT NOT NULL,
	source TEXT NOT NULL,
	start_date TEXT,
	confidence REAL NOT NULL,
	published_at DATETIME NOT NULL,
	payload TEXT NOT NULL
);
`

// New opens (or creates) the database at dsn. ":memory:" works for tests.
func New(dsn string) (store.Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %s: %w", dsn, err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite store: create schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) SaveEvent(ctx context.Context, ev *event.PublishedEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("sqlite store: encode event %s: %w", ev.ID, err)
	}

	query := `
	INSERT OR REPLACE INTO published_events (
		id, title, country, source, start_date, confidence, published_at, payload
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		ev.ID,
		ev.Title,
		ev.Country,
		string(ev.Provenance.Source),
		ev.StartDate,
		ev.Confidence,
		ev.PublishedAt,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("sqlite store: insert event %s: %w", ev.ID, err)
	}
	return nil
}

func (s *sqliteStore) QueryEvents(ctx context.Context, filter store.Filter) ([]*event.PublishedEvent, error) {
	query := `SELECT payload FROM published_events WHERE 1=1`
	args := []any{}

	if filter.Country != "" {
		query += ` AND country = ?`
		args = append(args, filter.Country)
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	if filter.MinConfidence > 0 {
		query += ` AND confidence >= ?`
		args = append(args, filter.MinConfidence)
	}
	if filter.Since != nil {
		query += ` AND published_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY published_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: query events: %w", err)
	}
	defer rows.Close()

	var events []*event.PublishedEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sqlite store: scan row: %w", err)
		}
		var ev event.PublishedEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("sqlite store: decode payload: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite store: iterate rows: %w", err)
	}

	return events, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
