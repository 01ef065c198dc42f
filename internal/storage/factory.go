package storage

import (
	"context"
	"fmt"
	"log/slog"

	"contas/internal/backend"
	"contas/internal/storage/memory"
	"contas/internal/storage/mongo"
)

// Factory builds a concrete LedgerStore from backend configuration.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

func (f *Factory) OpenStore(ctx context.Context, config backend.Config) (backend.LedgerStore, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid store type: %s", config.Type)
	}

	switch config.Type {
	case backend.SQLiteStore:
		repo, err := NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil

	case backend.MongoStore:
		store, err := mongo.New(ctx, config.MongoURI, config.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("initialize MongoDB store: %w", err)
		}
		f.logger.Info("Initialized MongoDB store", "database", config.MongoDatabase)
		return store, nil

	case backend.MemoryStore:
		f.logger.Info("Initialized in-memory store")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}
