package main

import (
	"context"
	"fmt"

	"github.com/greyfort/eventscout/internal/config"
	"github.com/greyfort/eventscout/internal/pipeline"
	"github.com/greyfort/eventscout/internal/store"
	"github.com/greyfort/eventscout/internal/store/postgres"
	"github.com/greyfort/eventscout/internal/store/sqlite"
)

// openStore builds the configured store backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemory(), nil
	case "jsonl":
		if cfg.Store.Path == "" {
			return nil, fmt.Errorf("store backend jsonl needs store.path")
		}
		return store.NewJSONL(cfg.Store.Path)
	case "sqlite":
		if cfg.Store.Path == "" {
			return nil, fmt.Errorf("store backend sqlite needs store.path")
		}
		return sqlite.New(cfg.Store.Path)
	case "postgres":
		if cfg.Store.DSN == "" {
			return nil, fmt.Errorf("store backend postgres needs store.dsn")
		}
		return postgres.New(ctx, cfg.Store.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func persistEvents(ctx context.Context, cfg *config.Config, result *pipeline.Result) error {
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, ev := range result.Published {
		if err := s.SaveEvent(ctx, ev); err != nil {
			return fmt.Errorf("save event %s: %w", ev.ID, err)
		}
	}
	return nil
}
