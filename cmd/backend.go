package cmd

import (
	"context"
	"errors"
	"fmt"

	"HipHopLab/cache"
	"HipHopLab/config"
	"HipHopLab/db"
	"HipHopLab/logger"
	"HipHopLab/repository"
	"HipHopLab/storage"
)

// backend bundles the persistence collaborators chosen by the configuration.
type backend struct {
	tracks   repository.TrackRepository
	settings repository.SettingsRepository
	blobs    storage.BlobStore
	closers  []func() error
}

// openBackend wires MySQL or in-memory repositories, MinIO or in-memory blob
// storage, and the optional Redis read-through caches in front of both.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	b := &backend{}

	switch cfg.Backend {
	case "mysql":
		if err := db.ConnectGormDB(ctx, cfg); err != nil {
			return nil, err
		}
		b.tracks = repository.NewGormTrackRepository(db.GormDB)
		b.settings = repository.NewGormSettingsRepository(db.GormDB)
		b.closers = append(b.closers, db.CloseGormDB)
	case "memory", "":
		mem := repository.NewMemoryRepository()
		b.tracks, b.settings = mem, mem
		logger.Warn("using in-memory library, nothing survives a restart")
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if cfg.MinioEnabled {
		store, err := storage.NewMinioStore(ctx, cfg)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.blobs = store
	} else {
		b.blobs = storage.NewMemoryStore()
	}

	if cfg.RedisEnabled {
		if err := cache.ConnectRedis(ctx, cfg); err != nil {
			logger.Warn("redis unavailable, running without cache", logger.ErrorField(err))
		} else {
			kv := cache.NewRedisKV(cache.RedisClient)
			b.tracks = cache.NewTrackCache(b.tracks, kv, cfg.RedisTTL)
			b.settings = cache.NewSettingsCache(b.settings, kv, cfg.RedisTTL)
			b.blobs = cache.NewBlobCache(b.blobs, kv, cfg.RedisTTL)
			b.closers = append(b.closers, cache.CloseRedis)
		}
	}
	return b, nil
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}
