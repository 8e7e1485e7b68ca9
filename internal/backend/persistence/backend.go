package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jo-hoe/takziah/internal/backend/database"
	"github.com/jo-hoe/takziah/internal/backend/objectstore"
)

const (
	ModeRemote = "remote"
	ModeLocal  = "local"
	ModeMemory = "memory"
)

const localDatabaseFile = "records.db"

// Config selects the storage backends of a Client
type Config struct {
	Mode string

	// remote mode
	S3          objectstore.S3Config
	DatabaseDSN string

	// local mode; objects are written below LocalDir/objects
	LocalDir string
	// URL prefix of local and in-memory objects
	PublicBaseURL string

	// optional shared gallery cache, a process-local cache is used otherwise
	RedisAddress string
	CacheTTL     time.Duration
}

// Backend bundles a Client with the resources it owns
type Backend struct {
	*Client
	closers []func() error
}

// Open creates the backends selected by cfg.Mode. In remote mode a missing
// endpoint URL or access key is an error.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	var (
		objects objectstore.Store
		records database.RecordStore
		err     error
	)

	switch cfg.Mode {
	case ModeRemote:
		objects, err = objectstore.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		if cfg.DatabaseDSN == "" {
			return nil, errors.New("database DSN is required in remote mode")
		}
		records, err = database.NewDatabase(ctx, database.TypePostgres, cfg.DatabaseDSN)
	case ModeLocal:
		if cfg.LocalDir == "" {
			return nil, errors.New("local directory is required in local mode")
		}
		objects, err = objectstore.NewFileStore(filepath.Join(cfg.LocalDir, "objects"), cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		records, err = database.NewDatabase(ctx, database.TypeSQLite, filepath.Join(cfg.LocalDir, localDatabaseFile))
	case ModeMemory:
		objects = objectstore.NewMemoryStore(cfg.PublicBaseURL)
		records, err = database.NewDatabase(ctx, database.TypeSQLite, ":memory:")
	default:
		return nil, fmt.Errorf("unsupported persistence mode: %q", cfg.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	backend := &Backend{closers: []func() error{records.Close}}

	var cache GalleryCache = NewMemoryCache()
	if cfg.RedisAddress != "" {
		redisCache := NewRedisCache(cfg.RedisAddress, cfg.CacheTTL)
		if err := redisCache.Ping(ctx); err != nil {
			slog.Warn("persistence: redis unavailable, using process-local gallery cache", "address", cfg.RedisAddress, "error", err)
			_ = redisCache.Close()
		} else {
			cache = redisCache
			backend.closers = append(backend.closers, redisCache.Close)
		}
	}

	backend.Client = NewClient(objects, records, cache)
	_, shared := cache.(*RedisCache)
	slog.Info("persistence: backends ready", "mode", cfg.Mode, "shared_cache", shared)
	return backend, nil
}

// ErrNotServedLocally is returned by ReadObject for remotely stored objects
var ErrNotServedLocally = errors.New("objects are not served by this process")

// ReadObject returns a locally stored object for the /objects route
func (b *Backend) ReadObject(key string) ([]byte, string, error) {
	reader, ok := b.objects.(objectstore.Reader)
	if !ok {
		return nil, "", ErrNotServedLocally
	}
	return reader.Get(key)
}

func (b *Backend) Close() error {
	var errs []error
	for _, closeFn := range b.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
