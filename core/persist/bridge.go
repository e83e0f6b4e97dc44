package persist

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"HipHopLab/core/library"
	"HipHopLab/core/player"
	"HipHopLab/logger"
	"HipHopLab/model"
	"HipHopLab/repository"
	"HipHopLab/storage"
)

// DefaultDebounce is the quiet period before playlist changes are written.
const DefaultDebounce = 500 * time.Millisecond

// ErrInvalidLanguage is returned by SetLanguage for unknown languages.
var ErrInvalidLanguage = errors.New("persist: unsupported language")

// Bridge mirrors the playback store into durable storage. Settings are
// written on every change; the playlist is reconciled after a quiet period.
type Bridge struct {
	store    *player.Store
	settings repository.SettingsRepository
	tracks   repository.TrackRepository
	blobs    storage.BlobStore
	registry *library.Registry
	debounce time.Duration

	mu     sync.Mutex
	loaded bool
	extra  model.Settings // fields the store does not own
	timer  *time.Timer
	unsubs []func()

	// serializes writes so reconciliations and settings saves never interleave
	writeMu sync.Mutex
}

func NewBridge(store *player.Store, settings repository.SettingsRepository, tracks repository.TrackRepository,
	blobs storage.BlobStore, registry *library.Registry, debounce time.Duration) *Bridge {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Bridge{
		store:    store,
		settings: settings,
		tracks:   tracks,
		blobs:    blobs,
		registry: registry,
		debounce: debounce,
		extra:    model.Settings{ID: model.SettingsID, Language: model.LanguageZh},
	}
}

// Load hydrates the store from storage. Every stored track gets fresh
// transient URIs. Writes stay disabled until Load succeeds.
func (b *Bridge) Load(ctx context.Context) error {
	s, err := b.settings.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if s != nil {
		b.mu.Lock()
		b.extra = *s
		b.extra.ID = model.SettingsID
		if b.extra.Language == "" {
			b.extra.Language = model.LanguageZh
		}
		b.mu.Unlock()
		b.store.Dispatch("loadSettings", func(st player.State) player.State {
			st.Volume = s.Volume
			st.PlaybackRate = s.PlaybackRate
			st.PreservesPitch = s.PreservesPitch
			if len(s.EQGains) == model.EQBandCount {
				st.EQGains = slices.Clone(s.EQGains)
			}
			return st
		})
	}

	stored, err := b.tracks.ListTracks(ctx)
	if err != nil {
		return fmt.Errorf("loading tracks: %w", err)
	}
	playlist := make([]*model.Track, 0, len(stored))
	for _, t := range stored {
		ok, err := b.materialize(ctx, t)
		if err != nil {
			return err
		}
		if ok {
			playlist = append(playlist, t)
		}
	}
	b.store.SetPlaylist(playlist)

	b.mu.Lock()
	b.loaded = true
	b.mu.Unlock()
	logger.Info("library loaded",
		logger.Int("tracks", len(playlist)),
		logger.Bool("settings", s != nil))
	return nil
}

// materialize registers t's durable blobs under new URIs. A track whose audio
// is gone is skipped; the next reconciliation removes its record.
func (b *Bridge) materialize(ctx context.Context, t *model.Track) (bool, error) {
	data, err := b.blobs.Get(ctx, t.BlobKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			logger.Warn("dropping track without audio", logger.String("trackId", t.ID), logger.String("key", t.BlobKey))
			return false, nil
		}
		return false, fmt.Errorf("loading audio of %s: %w", t.ID, err)
	}
	t.Src = b.registry.Register(data, library.ContentType("", t.Format))

	t.Cover = ""
	if t.CoverKey != "" {
		cover, err := b.blobs.Get(ctx, t.CoverKey)
		if err != nil {
			logger.Warn("cover unavailable", logger.String("trackId", t.ID), logger.ErrorField(err))
		} else {
			t.Cover = b.registry.Register(cover, "")
		}
	}
	return true, nil
}

// Start subscribes to the store.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unsubs != nil {
		return
	}
	b.unsubs = []func(){
		b.store.Subscribe(player.SettingsFields, func(_, _ player.State) {
			if b.isLoaded() {
				go b.saveSettings(context.Background())
			}
		}),
		b.store.Subscribe(player.FieldPlaylist, func(_, _ player.State) {
			b.schedule()
		}),
	}
}

// Stop removes the store subscriptions and cancels a pending reconciliation.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *Bridge) isLoaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

func (b *Bridge) schedule() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.debounce, func() {
		b.mu.Lock()
		b.timer = nil
		b.mu.Unlock()
		if err := b.reconcile(context.Background()); err != nil {
			logger.Error("playlist persistence failed", logger.ErrorField(err))
		}
	})
}

// Flush writes everything immediately. It is a no-op before Load.
func (b *Bridge) Flush(ctx context.Context) error {
	b.mu.Lock()
	if !b.loaded {
		b.mu.Unlock()
		return nil
	}
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	return errors.Join(b.putSettings(ctx), b.reconcile(ctx))
}

// Settings returns the durable settings as they would be written now.
func (b *Bridge) Settings() model.Settings {
	return b.snapshot(b.store.State())
}

// Language returns the stored UI language.
func (b *Bridge) Language() model.Language {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.extra.Language
}

// SetLanguage stores the UI language.
func (b *Bridge) SetLanguage(ctx context.Context, lang model.Language) error {
	if lang != model.LanguageZh && lang != model.LanguageEn {
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
	}
	b.mu.Lock()
	b.extra.Language = lang
	loaded := b.loaded
	b.mu.Unlock()
	if !loaded {
		return nil
	}
	return b.putSettings(ctx)
}

func (b *Bridge) snapshot(st player.State) model.Settings {
	b.mu.Lock()
	s := b.extra
	b.mu.Unlock()
	s.ID = model.SettingsID
	s.Volume = st.Volume
	s.PlaybackRate = st.PlaybackRate
	s.PreservesPitch = st.PreservesPitch
	s.EQGains = slices.Clone(st.EQGains)
	return s
}

func (b *Bridge) saveSettings(ctx context.Context) {
	if err := b.putSettings(ctx); err != nil {
		logger.Error("settings persistence failed", logger.ErrorField(err))
	}
}

// putSettings writes the current settings. The snapshot is taken after the
// lock so a write that waited never stores an older value.
func (b *Bridge) putSettings(ctx context.Context) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	s := b.snapshot(b.store.State())
	return b.settings.PutSettings(ctx, &s)
}

// reconcile makes storage match the in-memory playlist: records missing from
// memory are deleted with their blobs, then every track is upserted in order.
func (b *Bridge) reconcile(ctx context.Context) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	playlist := b.store.State().Playlist
	stored, err := b.tracks.ListTracks(ctx)
	if err != nil {
		return fmt.Errorf("listing stored tracks: %w", err)
	}

	live := lo.SliceToMap(playlist, func(t *model.Track) (string, struct{}) { return t.ID, struct{}{} })
	orphans := lo.Filter(stored, func(t *model.Track, _ int) bool {
		_, ok := live[t.ID]
		return !ok
	})

	if len(orphans) > 0 {
		ids := lo.Map(orphans, func(t *model.Track, _ int) string { return t.ID })
		if err := b.tracks.BulkDeleteTracks(ctx, ids); err != nil {
			return fmt.Errorf("deleting %d tracks: %w", len(ids), err)
		}
		keys := lo.Compact(lo.FlatMap(orphans, func(t *model.Track, _ int) []string {
			return []string{t.BlobKey, t.CoverKey}
		}))
		if err := b.blobs.Delete(ctx, keys...); err != nil {
			logger.Warn("failed to delete orphaned blobs", logger.Strings("keys", keys), logger.ErrorField(err))
		}
	}

	if err := b.tracks.BulkPutTracks(ctx, playlist); err != nil {
		return fmt.Errorf("saving playlist: %w", err)
	}
	logger.Debug("playlist persisted",
		logger.Int("tracks", len(playlist)),
		logger.Int("deleted", len(orphans)))
	return nil
}
