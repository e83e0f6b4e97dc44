package player

import (
	"slices"

	"github.com/samber/lo"

	"HipHopLab/model"
)

func (s *Store) TogglePlay() {
	s.Dispatch("togglePlay", func(st State) State {
		st.IsPlaying = !st.IsPlaying
		return st
	})
}

func (s *Store) ToggleMute() {
	s.Dispatch("toggleMute", func(st State) State {
		st.IsMuted = !st.IsMuted
		return st
	})
}

// ToggleRepeat cycles all → shuffle → one → all.
func (s *Store) ToggleRepeat() {
	s.Dispatch("toggleRepeat", func(st State) State {
		st.RepeatMode = st.RepeatMode.Next()
		return st
	})
}

// SetVolume stores v as given. Range checks belong to the caller.
func (s *Store) SetVolume(v float64) {
	s.Dispatch("setVolume", func(st State) State {
		st.Volume = v
		return st
	})
}

func (s *Store) SetPlaybackRate(rate float64) {
	s.Dispatch("setPlaybackRate", func(st State) State {
		st.PlaybackRate = rate
		return st
	})
}

func (s *Store) SetPreservesPitch(preserves bool) {
	s.Dispatch("setPreservesPitch", func(st State) State {
		st.PreservesPitch = preserves
		return st
	})
}

// SetEQGains replaces the gain vector. Any length is accepted; the audio
// engine ignores vectors that do not match its band count.
func (s *Store) SetEQGains(gains []float64) {
	gains = slices.Clone(gains)
	s.Dispatch("setEqGains", func(st State) State {
		st.EQGains = gains
		return st
	})
}

// SetCurrentTrack selects track and starts playback.
func (s *Store) SetCurrentTrack(track *model.Track) {
	s.Dispatch("setCurrentTrack", func(st State) State {
		st.CurrentTrack = track
		st.IsPlaying = true
		return st
	})
}

// SetPlaylist replaces the whole collection. Current selection is untouched.
func (s *Store) SetPlaylist(tracks []*model.Track) {
	tracks = slices.Clone(tracks)
	if tracks == nil {
		tracks = []*model.Track{}
	}
	s.Dispatch("setPlaylist", func(st State) State {
		st.Playlist = tracks
		return st
	})
}

// AddTrack appends track and selects it when nothing is selected yet.
func (s *Store) AddTrack(track *model.Track) {
	s.Dispatch("addTrack", func(st State) State {
		st.Playlist = append(slices.Clone(st.Playlist), track)
		if st.CurrentTrack == nil {
			st.CurrentTrack = track
			st.IsPlaying = true
		}
		return st
	})
}

// RemoveTrack drops the entry with id. Removing the current track selects the
// first remaining one, or stops playback when none is left.
func (s *Store) RemoveTrack(id string) {
	s.Dispatch("removeTrack", func(st State) State {
		st.Playlist = lo.Filter(st.Playlist, func(t *model.Track, _ int) bool { return t.ID != id })
		if st.CurrentTrack != nil && st.CurrentTrack.ID == id {
			if len(st.Playlist) > 0 {
				st.CurrentTrack = st.Playlist[0]
			} else {
				st.CurrentTrack = nil
				st.IsPlaying = false
			}
		}
		return st
	})
}

// PlayNext advances according to the repeat mode.
func (s *Store) PlayNext() {
	s.Dispatch("playNext", func(st State) State {
		n := len(st.Playlist)
		if st.CurrentTrack == nil || n == 0 {
			return st
		}
		switch st.RepeatMode {
		case model.RepeatOne:
			st.CurrentTime = 0
		case model.RepeatShuffle:
			next := s.rnd(n)
			if n > 1 && st.Playlist[next].ID == st.CurrentTrack.ID {
				next = (next + 1) % n
			}
			st.CurrentTrack = st.Playlist[next]
		default:
			next := (st.IndexOf(st.CurrentTrack.ID) + 1) % n
			st.CurrentTrack = st.Playlist[next]
		}
		st.IsPlaying = true
		return st
	})
}

// PlayPrev always steps back linearly, whatever the repeat mode.
func (s *Store) PlayPrev() {
	s.Dispatch("playPrev", func(st State) State {
		n := len(st.Playlist)
		if st.CurrentTrack == nil || n == 0 {
			return st
		}
		i := st.IndexOf(st.CurrentTrack.ID)
		if i < 0 {
			i = 0
		}
		st.CurrentTrack = st.Playlist[(i-1+n)%n]
		st.IsPlaying = true
		return st
	})
}

// SetTrackLyrics replaces the lyrics of track id in the collection and in the
// current-track mirror.
func (s *Store) SetTrackLyrics(id string, lines []model.LyricLine) {
	lines = slices.Clone(lines)
	s.Dispatch("setTrackLyrics", func(st State) State {
		return patchTrack(st, id, func(t *model.Track) *model.Track {
			c := t.Clone()
			c.Lyrics = lines
			return c
		})
	})
}

// UpdateTrack shallow-merges patch into track id and its current mirror.
func (s *Store) UpdateTrack(id string, patch model.TrackPatch) {
	s.Dispatch("updateTrack", func(st State) State {
		return patchTrack(st, id, patch.Apply)
	})
}

func (s *Store) SetCurrentTime(seconds float64) {
	s.Dispatch("setCurrentTime", func(st State) State {
		st.CurrentTime = seconds
		return st
	})
}

func (s *Store) SetDuration(seconds float64) {
	s.Dispatch("setDuration", func(st State) State {
		st.Duration = seconds
		return st
	})
}

func (s *Store) SetIsPlaying(playing bool) {
	s.Dispatch("setIsPlaying", func(st State) State {
		st.IsPlaying = playing
		return st
	})
}

// patchTrack rewrites the collection entry with id and, when it is the
// current track, the mirror too. Both get the same new pointer.
func patchTrack(st State, id string, edit func(*model.Track) *model.Track) State {
	var updated *model.Track
	st.Playlist = lo.Map(st.Playlist, func(t *model.Track, _ int) *model.Track {
		if t.ID != id {
			return t
		}
		updated = edit(t)
		return updated
	})
	if st.CurrentTrack != nil && st.CurrentTrack.ID == id {
		if updated == nil {
			updated = edit(st.CurrentTrack)
		}
		st.CurrentTrack = updated
	}
	return st
}
