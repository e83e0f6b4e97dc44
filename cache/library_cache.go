package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"HipHopLab/logger"
	"HipHopLab/model"
	"HipHopLab/repository"
)

const (
	settingsKey = keyPrefix + "settings"
	playlistKey = keyPrefix + "playlist"
)

// SettingsCache is a read-through, write-through cache in front of a
// SettingsRepository. Cache failures are logged and never fail the call.
type SettingsCache struct {
	repo repository.SettingsRepository
	kv   KV
	ttl  time.Duration
}

func NewSettingsCache(repo repository.SettingsRepository, kv KV, ttl time.Duration) *SettingsCache {
	return &SettingsCache{repo: repo, kv: kv, ttl: ttl}
}

func (c *SettingsCache) GetSettings(ctx context.Context) (*model.Settings, error) {
	var cached model.Settings
	if readJSON(ctx, c.kv, settingsKey, &cached) {
		return &cached, nil
	}
	s, err := c.repo.GetSettings(ctx)
	if err != nil || s == nil {
		return s, err
	}
	writeJSON(ctx, c.kv, settingsKey, s, c.ttl)
	return s, nil
}

func (c *SettingsCache) PutSettings(ctx context.Context, settings *model.Settings) error {
	if err := c.repo.PutSettings(ctx, settings); err != nil {
		return err
	}
	writeJSON(ctx, c.kv, settingsKey, settings, c.ttl)
	return nil
}

// cachedTrack carries the durable keys that model.Track hides from JSON.
type cachedTrack struct {
	*model.Track
	BlobKey  string `json:"blobKey"`
	CoverKey string `json:"coverKey"`
}

// TrackCache caches the ordered track list. Any write invalidates it.
type TrackCache struct {
	repo repository.TrackRepository
	kv   KV
	ttl  time.Duration
}

func NewTrackCache(repo repository.TrackRepository, kv KV, ttl time.Duration) *TrackCache {
	return &TrackCache{repo: repo, kv: kv, ttl: ttl}
}

func (c *TrackCache) ListTracks(ctx context.Context) ([]*model.Track, error) {
	var cached []cachedTrack
	if readJSON(ctx, c.kv, playlistKey, &cached) {
		tracks := make([]*model.Track, len(cached))
		for i, ct := range cached {
			t := ct.Track
			t.BlobKey, t.CoverKey = ct.BlobKey, ct.CoverKey
			tracks[i] = t
		}
		return tracks, nil
	}

	tracks, err := c.repo.ListTracks(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]cachedTrack, len(tracks))
	for i, t := range tracks {
		entries[i] = cachedTrack{Track: t, BlobKey: t.BlobKey, CoverKey: t.CoverKey}
	}
	writeJSON(ctx, c.kv, playlistKey, entries, c.ttl)
	return tracks, nil
}

func (c *TrackCache) GetTrack(ctx context.Context, id string) (*model.Track, error) {
	return c.repo.GetTrack(ctx, id)
}

func (c *TrackCache) PutTrack(ctx context.Context, track *model.Track) error {
	defer c.invalidate(ctx)
	return c.repo.PutTrack(ctx, track)
}

func (c *TrackCache) BulkPutTracks(ctx context.Context, tracks []*model.Track) error {
	defer c.invalidate(ctx)
	return c.repo.BulkPutTracks(ctx, tracks)
}

func (c *TrackCache) BulkDeleteTracks(ctx context.Context, ids []string) error {
	defer c.invalidate(ctx)
	return c.repo.BulkDeleteTracks(ctx, ids)
}

func (c *TrackCache) invalidate(ctx context.Context) {
	if err := c.kv.Del(ctx, playlistKey); err != nil {
		logger.Warn("failed to invalidate playlist cache", logger.ErrorField(err))
	}
}

func readJSON(ctx context.Context, kv KV, key string, dst interface{}) bool {
	data, err := kv.Get(ctx, key)
	if err != nil {
		logger.Warn("cache read failed", logger.String("key", key), logger.ErrorField(err))
		return false
	}
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.Warn("dropping corrupt cache entry", logger.String("key", key), logger.ErrorField(err))
		_ = kv.Del(ctx, key)
		return false
	}
	return true
}

func writeJSON(ctx context.Context, kv KV, key string, v interface{}, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warn("cache encode failed", logger.String("key", key), logger.ErrorField(err))
		return
	}
	if err := kv.Set(ctx, key, data, ttl); err != nil {
		logger.Warn("cache write failed", logger.String("key", key), logger.ErrorField(err))
	}
}
