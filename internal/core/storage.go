package core

import (
	"arquitectura/internal/infra/persistence/memory"
	"arquitectura/internal/infra/persistence/mongo"
	"arquitectura/internal/infra/persistence/postgres"
	"arquitectura/internal/infra/persistence/sqlite"
	"arquitectura/pkg/domain"
	"context"
	"fmt"
	"time"
)

// StorageDriver identifies a concrete document store implementation.
type StorageDriver string

const (
	StorageMongo    StorageDriver = "mongo"    // MongoDB server (default)
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects and configures the document store.
type StorageConfig struct {
	Driver        StorageDriver
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration
	SQLitePath    string
	PostgresDSN   string
}

// OpenDocumentStore builds the backend named by cfg.Driver, defaulting to mongo.
// Empty connection settings fall back to each backend's defaults.
func OpenDocumentStore(ctx context.Context, cfg StorageConfig) (domain.DocumentStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageMongo
	}
	var (
		store domain.DocumentStore
		err   error
	)
	switch driver {
	case StorageMongo:
		var ms *mongo.Store
		ms, err = mongo.Connect(ctx, mongo.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase, Timeout: cfg.MongoTimeout})
		store = ms
	case StorageMemory:
		store = memory.NewStore()
	case StorageSQLite:
		var ss *sqlite.Store
		ss, err = sqlite.NewStore(cfg.SQLitePath)
		store = ss
	case StoragePostgres:
		var ps *postgres.Store
		ps, err = postgres.NewStore(ctx, cfg.PostgresDSN)
		store = ps
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	return store, nil
}
