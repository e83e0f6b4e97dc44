package player

import (
	"slices"

	"HipHopLab/model"
)

// Field identifies one observable part of the playback state.
type Field uint32

const (
	FieldIsPlaying Field = 1 << iota
	FieldIsMuted
	FieldVolume
	FieldPlaybackRate
	FieldPreservesPitch
	FieldRepeatMode
	FieldEQGains
	FieldCurrentTime
	FieldDuration
	FieldCurrentTrack
	FieldPlaylist

	FieldAll Field = 1<<iota - 1
)

// SettingsFields are the fields persisted in the settings record.
const SettingsFields = FieldVolume | FieldPlaybackRate | FieldPreservesPitch | FieldEQGains

// State is an immutable snapshot of the playback state. Reducers never mutate
// a snapshot in place; tracks and slices are replaced, not edited.
type State struct {
	IsPlaying      bool             `json:"isPlaying"`
	IsMuted        bool             `json:"isMuted"`
	Volume         float64          `json:"volume"`
	PlaybackRate   float64          `json:"playbackRate"`
	PreservesPitch bool             `json:"preservesPitch"`
	RepeatMode     model.RepeatMode `json:"repeatMode"`
	EQGains        []float64        `json:"eqGains"`
	CurrentTime    float64          `json:"currentTime"`
	Duration       float64          `json:"duration"`
	CurrentTrack   *model.Track     `json:"currentTrack"`
	Playlist       []*model.Track   `json:"playlist"`
}

// DefaultState is the state of a fresh player.
func DefaultState() State {
	return State{
		Volume:         0.8,
		PlaybackRate:   1.0,
		PreservesPitch: true,
		RepeatMode:     model.RepeatAll,
		EQGains:        make([]float64, model.EQBandCount),
		Playlist:       []*model.Track{},
	}
}

// IndexOf returns the playlist index of the track with id, or -1.
func (s State) IndexOf(id string) int {
	return slices.IndexFunc(s.Playlist, func(t *model.Track) bool { return t.ID == id })
}

// diff reports which fields differ between two snapshots. Tracks compare by
// identity, which is what reducers change on every write.
func diff(prev, next State) Field {
	var f Field
	if prev.IsPlaying != next.IsPlaying {
		f |= FieldIsPlaying
	}
	if prev.IsMuted != next.IsMuted {
		f |= FieldIsMuted
	}
	if prev.Volume != next.Volume {
		f |= FieldVolume
	}
	if prev.PlaybackRate != next.PlaybackRate {
		f |= FieldPlaybackRate
	}
	if prev.PreservesPitch != next.PreservesPitch {
		f |= FieldPreservesPitch
	}
	if prev.RepeatMode != next.RepeatMode {
		f |= FieldRepeatMode
	}
	if !slices.Equal(prev.EQGains, next.EQGains) {
		f |= FieldEQGains
	}
	if prev.CurrentTime != next.CurrentTime {
		f |= FieldCurrentTime
	}
	if prev.Duration != next.Duration {
		f |= FieldDuration
	}
	if prev.CurrentTrack != next.CurrentTrack {
		f |= FieldCurrentTrack
	}
	if !slices.Equal(prev.Playlist, next.Playlist) {
		f |= FieldPlaylist
	}
	return f
}
