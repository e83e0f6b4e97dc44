package cache

import (
	"context"
	"time"

	"HipHopLab/logger"
	"HipHopLab/storage"
)

// DefaultMaxBlobBytes bounds the payloads copied into Redis.
const DefaultMaxBlobBytes = 16 << 20

// BlobCache keeps recently read blobs in Redis in front of a slower
// BlobStore. A cache miss or cache failure falls through to the backing store.
type BlobCache struct {
	backing  storage.BlobStore
	kv       KV
	ttl      time.Duration
	maxBytes int
}

func NewBlobCache(backing storage.BlobStore, kv KV, ttl time.Duration) *BlobCache {
	return &BlobCache{backing: backing, kv: kv, ttl: ttl, maxBytes: DefaultMaxBlobBytes}
}

func blobKey(key string) string { return keyPrefix + "blob:" + key }

func (c *BlobCache) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := c.backing.Put(ctx, key, data, contentType); err != nil {
		return err
	}
	c.store(ctx, key, data)
	return nil
}

func (c *BlobCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.kv.Get(ctx, blobKey(key))
	if err != nil {
		logger.Warn("blob cache read failed, using backing store",
			logger.String("key", key),
			logger.ErrorField(err))
	}
	if data != nil {
		logger.Debug("blob cache hit", logger.String("key", key), logger.Int("size", len(data)))
		return data, nil
	}

	data, err = c.backing.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, data)
	return data, nil
}

func (c *BlobCache) Delete(ctx context.Context, keys ...string) error {
	cacheKeys := make([]string, len(keys))
	for i, k := range keys {
		cacheKeys[i] = blobKey(k)
	}
	if err := c.kv.Del(ctx, cacheKeys...); err != nil {
		logger.Warn("blob cache delete failed", logger.ErrorField(err))
	}
	return c.backing.Delete(ctx, keys...)
}

func (c *BlobCache) store(ctx context.Context, key string, data []byte) {
	if len(data) > c.maxBytes {
		return
	}
	if err := c.kv.Set(ctx, blobKey(key), data, c.ttl); err != nil {
		logger.Warn("blob cache write failed",
			logger.String("key", key),
			logger.Int("size", len(data)),
			logger.ErrorField(err))
	}
}
