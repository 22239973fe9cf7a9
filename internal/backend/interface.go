package backend

import (
	"context"
	"time"

	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/prefs"
	"expenses/internal/services"
	"expenses/internal/storage"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult bundles everything the API server needs from its backend.
type BackendResult struct {
	Store storage.Store
	// Publisher is nil when change events are disabled.
	Publisher services.Publisher
	Prefs     prefs.Store
	Summaries cache.Cache[core.Summary]
	Caches    *cache.Manager
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// OpenStore opens only the store, without seeding or optional services.
	OpenStore(ctx context.Context, config Config) (storage.Store, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresDSN  string
	// SeedDir holds seed_categories.txt used to populate an empty store.
	SeedDir string

	// Optional; an empty URL disables change events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Optional; an empty URL keeps preferences in memory.
	RedisURL string
	PrefsTTL time.Duration

	SummaryCacheSize int
	SummaryCacheTTL  time.Duration
	CleanupInterval  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
