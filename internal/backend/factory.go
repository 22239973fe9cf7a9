package backend

import (
	"context"
	"errors"
	"fmt"

	"expenses/internal/amqp"
	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/prefs"
	"expenses/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the store selected by config.Type, seeds it when empty
// and wires the optional publisher, preference store and summary cache.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.OpenStore(ctx, config)
	if err != nil {
		return nil, err
	}
	closers := []func() error{store.Close}
	fail := func(err error) (*BackendResult, error) {
		closeAll(closers)
		return nil, err
	}

	seeded, err := storage.SeedCategories(ctx, store, config.SeedDir)
	if err != nil {
		return fail(fmt.Errorf("seed categories: %w", err))
	}
	if seeded > 0 {
		f.logger.InfoContext(ctx, "Seeded default categories", "count", seeded, "seed_dir", config.SeedDir)
	}

	result := &BackendResult{Store: store}

	// AMQP is optional: a broker outage must not keep the API down.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", log.FieldError, err.Error())
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Publisher = client
			closers = append(closers, client.Close)
		}
	}

	if config.RedisURL != "" {
		rs, err := prefs.NewRedisStoreFromURL(ctx, config.RedisURL, config.PrefsTTL)
		if err != nil {
			return fail(fmt.Errorf("connect preferences store: %w", err))
		}
		f.logger.InfoContext(ctx, "Using Redis for filter preferences")
		result.Prefs = rs
		closers = append(closers, rs.Close)
	} else {
		result.Prefs = prefs.NewMemoryStore()
	}

	size := config.SummaryCacheSize
	if size <= 0 {
		size = 100
	}
	ttl := config.SummaryCacheTTL
	if ttl <= 0 {
		ttl = defaultSummaryTTL
	}
	summaries := cache.NewLRUCache[core.Summary](size, ttl)
	result.Summaries = summaries
	result.Caches = cache.NewManager()
	result.Caches.Register(summaries)
	interval := config.CleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	result.Caches.StartCleanup(interval)

	caches := result.Caches
	result.Cleanup = func() error {
		caches.Stop()
		return closeAll(closers)
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		log.FieldBackend, config.Type.String(),
		"amqp_enabled", result.Publisher != nil,
		"redis_enabled", config.RedisURL != "")
	return result, nil
}

func (f *DefaultFactory) OpenStore(ctx context.Context, config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(ctx, config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Postgres store")
		return repo, nil
	case MemoryBackend:
		f.logger.InfoContext(ctx, "Initialized memory store")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// closeAll closes in reverse order of acquisition.
func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
