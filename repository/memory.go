package repository

import (
	"context"
	"sort"
	"sync"

	"HipHopLab/model"
)

// MemoryRepository keeps tracks and settings in process memory. It satisfies
// both TrackRepository and SettingsRepository and is used when no database is
// configured.
type MemoryRepository struct {
	mu       sync.RWMutex
	tracks   map[string]memoryTrack
	settings *model.Settings
}

type memoryTrack struct {
	track    *model.Track
	position int
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tracks: make(map[string]memoryTrack)}
}

func (m *MemoryRepository) ListTracks(ctx context.Context) ([]*model.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]memoryTrack, 0, len(m.tracks))
	for _, e := range m.tracks {
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].position != entries[j].position {
			return entries[i].position < entries[j].position
		}
		return entries[i].track.CreatedAt.Before(entries[j].track.CreatedAt)
	})

	out := make([]*model.Track, len(entries))
	for i, e := range entries {
		out[i] = e.track.Clone()
	}
	return out, nil
}

func (m *MemoryRepository) GetTrack(ctx context.Context, id string) (*model.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.tracks[id]
	if !ok {
		return nil, nil
	}
	return e.track.Clone(), nil
}

func (m *MemoryRepository) PutTrack(ctx context.Context, track *model.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	position := 0
	if e, ok := m.tracks[track.ID]; ok {
		position = e.position
	} else {
		for _, e := range m.tracks {
			if e.position >= position {
				position = e.position + 1
			}
		}
	}
	m.tracks[track.ID] = memoryTrack{track: stripTransient(track), position: position}
	return nil
}

func (m *MemoryRepository) BulkPutTracks(ctx context.Context, tracks []*model.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range tracks {
		m.tracks[t.ID] = memoryTrack{track: stripTransient(t), position: i}
	}
	return nil
}

func (m *MemoryRepository) BulkDeleteTracks(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.tracks, id)
	}
	return nil
}

func (m *MemoryRepository) GetSettings(ctx context.Context) (*model.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return nil, nil
	}
	return cloneSettings(m.settings), nil
}

func (m *MemoryRepository) PutSettings(ctx context.Context, settings *model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = cloneSettings(settings)
	m.settings.ID = model.SettingsID
	return nil
}

// stripTransient drops the session URIs so that a stored track matches what
// the database backend would return.
func stripTransient(t *model.Track) *model.Track {
	c := t.Clone()
	c.Src = ""
	c.Cover = ""
	return c
}

func cloneSettings(s *model.Settings) *model.Settings {
	c := *s
	if s.EQGains != nil {
		c.EQGains = append([]float64(nil), s.EQGains...)
	}
	return &c
}
