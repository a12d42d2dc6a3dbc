package backend

import (
	"fmt"

	"maasser/internal/config"
	"maasser/internal/storage"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          backendType,
		DataDirectory: appConfig.DataDir,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		PostgresDSN:   appConfig.PostgresDSN,
		S3: storage.S3Config{
			Bucket:    appConfig.S3Bucket,
			Region:    appConfig.S3Region,
			Endpoint:  appConfig.S3Endpoint,
			AccessKey: appConfig.S3AccessKey,
			SecretKey: appConfig.S3SecretKey,
			Prefix:    appConfig.S3Prefix,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	switch c.Type {
	case MemoryBackend:
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.PostgresDSN == "" {
			return fmt.Errorf("Postgres DSN is required for postgres backend")
		}
	case S3Backend:
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 backend")
		}
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}

func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend, S3Backend}
}
