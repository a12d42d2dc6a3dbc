package backend

import (
	"context"
	"fmt"

	applog "maasser/internal/log"
	"maasser/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case S3Backend:
		return f.createS3Backend(ctx, config)
	default:
		return f.createMemoryBackend(config), nil
	}
}

func noCleanup() error { return nil }

func alwaysReady(context.Context) error { return nil }

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: store, Cleanup: store.Close, Ping: store.Ping}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := storage.NewPostgresStore(ctx, config.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}
	f.logger.Info("Initialized Postgres backend")
	return &BackendResult{Store: store, Cleanup: store.Close, Ping: store.Ping}, nil
}

func (f *DefaultFactory) createS3Backend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := storage.NewS3Store(ctx, config.S3)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 store: %w", err)
	}
	f.logger.Info("Initialized S3 backend",
		"bucket", config.S3.Bucket,
		"prefix", config.S3.Prefix,
		"custom_endpoint", config.S3.Endpoint != "")
	return &BackendResult{Store: store, Cleanup: noCleanup, Ping: store.Ping}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) *BackendResult {
	store := storage.NewMemoryStore(config.DataDirectory)
	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)
	return &BackendResult{Store: store, Cleanup: noCleanup, Ping: alwaysReady}
}
