package backend

import (
	"context"

	"maasser/internal/storage"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// PingFunc reports whether the backend is reachable.
type PingFunc func(ctx context.Context) error

// BackendResult contains the store and its lifecycle hooks. Cleanup and Ping
// are never nil.
type BackendResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
	Ping    PingFunc
}

// Factory creates stores based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// Memory
	DataDirectory string

	// SQLite
	SQLiteDBPath string

	// Postgres
	PostgresDSN string

	// S3
	S3 storage.S3Config
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	S3Backend       BackendType = "s3"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, S3Backend:
		return true
	default:
		return false
	}
}
