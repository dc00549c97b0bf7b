// Package postgres backs the event store with a Postgres connection pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greyfort/eventscout/internal/event"
	"github.com/greyfort/eventscout/internal/store"
)

var _ store.Store = (*postgresStore)(nil)

type postgresStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS published_events (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	country TEXT NOT NULL,
	source TEXT NOT NULL,
	start_date TEXT,
	confidence DOUBLE PRECISION NOT NULL,
	published_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL
);
`

// New connects to dsn and ensures the schema exists.
func New(ctx context.Context, dsn string) (store.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: create schema: %w", err)
	}

	return &postgresStore{pool: pool}, nil
}

func (s *postgresStore) SaveEvent(ctx context.Context, ev *event.PublishedEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("postgres store: encode event %s: %w", ev.ID, err)
	}

	query := `
	INSERT INTO published_events (
		id, title, country, source, start_date, confidence, published_at, payload
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		country = EXCLUDED.country,
		source = EXCLUDED.source,
		start_date = EXCLUDED.start_date,
		confidence = EXCLUDED.confidence,
		published_at = EXCLUDED.published_at,
		payload = EXCLUDED.payload
	`

	_, err = s.pool.Exec(ctx, query,
		ev.ID,
		ev.Title,
		ev.Country,
		string(ev.Provenance.Source),
		ev.StartDate,
		ev.Confidence,
		ev.PublishedAt,
		payload,
	)
	if err != nil {
		return fmt.Errorf("postgres store: insert event %s: %w", ev.ID, err)
	}
	return nil
}

func (s *postgresStore) QueryEvents(ctx context.Context, filter store.Filter) ([]*event.PublishedEvent, error) {
	query := `SELECT payload FROM published_events WHERE 1=1`
	args := []any{}

	if filter.Country != "" {
		args = append(args, filter.Country)
		query += fmt.Sprintf(` AND country = $%d`, len(args))
	}
	if filter.Source != "" {
		args = append(args, string(filter.Source))
		query += fmt.Sprintf(` AND source = $%d`, len(args))
	}
	if filter.MinConfidence > 0 {
		args = append(args, filter.MinConfidence)
		query += fmt.Sprintf(` AND confidence >= $%d`, len(args))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		query += fmt.Sprintf(` AND published_at >= $%d`, len(args))
	}

	query += ` ORDER BY published_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: query events: %w", err)
	}
	defer rows.Close()

	var events []*event.PublishedEvent
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres store: scan row: %w", err)
		}
		var ev event.PublishedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("postgres store: decode payload: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: iterate rows: %w", err)
	}

	return events, nil
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}
