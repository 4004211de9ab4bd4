// Package filestore defines the object storage interface migration sources
// read from.
//
// Callers depend only on this package, never on a specific provider package.
//
// Usage:
//
//	store, err := minio.New(ctx, filestore.ConfigFromMigrations(cfg))
//	if err != nil { ... }
//	defer store.Close()
//
//	obj, err := store.GetObject(ctx, "migrations", "neon/01_schema.sql")
package filestore

import (
	"context"

	"github.com/djb258/client-sub001/internal/config"
)

// Store is the read-only interface every storage provider implements.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// GetObject opens a streaming handle to the object at key inside bucket.
	// The caller MUST call Object.Close() after reading.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// StatObject returns metadata for the object at key inside bucket
	// without downloading its content.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)
}

// Provider identifies the storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// Config holds the settings needed to connect to a storage backend.
type Config struct {
	Provider Provider

	// Endpoint is the host:port of the storage server, e.g. "localhost:9000".
	Endpoint string

	AccessKey string
	SecretKey string
	UseSSL    bool

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string
}

// ConfigFromMigrations builds a MinIO config from the migration settings.
func ConfigFromMigrations(m *config.Migrations) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  m.MinIOEndpoint,
		AccessKey: m.MinIOAccessKey,
		SecretKey: m.MinIOSecretKey,
		UseSSL:    m.MinIOUseSSL,
		Region:    m.MinIORegion,
	}
}
