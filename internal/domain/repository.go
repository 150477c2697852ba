// Package domain defines the core interfaces and types for cropadvisor.
package domain

import (
	"context"
	"time"
)

// Catalog is a read-only source of crop records, returned in catalog order.
type Catalog interface {
	ListCrops(ctx context.Context) ([]*Crop, error)
}

// CatalogStore is a mutable catalog persisted in a database.
type CatalogStore interface {
	Catalog

	SaveCrop(ctx context.Context, crop *Crop) error
	GetCrop(ctx context.Context, name string) (*Crop, error)
	DeleteCrop(ctx context.Context, name string) error
	CountCrops(ctx context.Context) (int, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `koanf:"driver" validate:"oneof=sqlite postgres"`

	// SQLite specific
	SQLitePath string `koanf:"sqlite_path"`

	// PostgreSQL specific
	PostgresHost     string `koanf:"postgres_host"`
	PostgresPort     int    `koanf:"postgres_port"`
	PostgresUser     string `koanf:"postgres_user"`
	PostgresPassword string `koanf:"postgres_password"`
	PostgresDB       string `koanf:"postgres_db"`
	PostgresSSLMode  string `koanf:"postgres_sslmode"`

	// Connection pool settings
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}
