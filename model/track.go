package model

import "time"

const (
	// EQBandCount is the number of bands in the equalizer chain.
	EQBandCount = 10

	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

// EQFrequencies are the center frequencies of the equalizer bands in Hz.
var EQFrequencies = [EQBandCount]float64{32, 64, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// LyricLine is one timed lyric entry.
type LyricLine struct {
	Time float64 `json:"time"` // seconds from track start
	Text string  `json:"text"`
}

// Track represents an audio track in the music library.
type Track struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album,omitempty"`
	Cover    string  `json:"cover,omitempty"` // transient URI, regenerated every session
	Src      string  `json:"src"`             // transient URI, regenerated every session
	BlobKey  string  `json:"-"`               // durable object key of the audio payload
	CoverKey string  `json:"-"`               // durable object key of the cover image
	Duration float64 `json:"duration"`        // seconds
	Format   string  `json:"format,omitempty"`
	Bitrate  int     `json:"bitrate,omitempty"` // bps

	Lyrics []LyricLine `json:"lyrics,omitempty"`

	// Per-track overrides, fall back to the global settings when empty.
	BackgroundImage string    `json:"backgroundImage,omitempty"`
	VisualizerMode  string    `json:"visualizerMode,omitempty"`
	CustomEQ        []float64 `json:"customEQ,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a copy that shares no slices with t.
func (t *Track) Clone() *Track {
	if t == nil {
		return nil
	}
	c := *t
	if t.Lyrics != nil {
		c.Lyrics = append([]LyricLine(nil), t.Lyrics...)
	}
	if t.CustomEQ != nil {
		c.CustomEQ = append([]float64(nil), t.CustomEQ...)
	}
	return &c
}

// EffectiveEQ returns the track's own EQ when it is a full band vector,
// otherwise the global one.
func (t *Track) EffectiveEQ(global []float64) []float64 {
	if t != nil && len(t.CustomEQ) == EQBandCount {
		return t.CustomEQ
	}
	return global
}

// TrackPatch holds the fields of a partial track update. Nil fields are left untouched.
type TrackPatch struct {
	Title           *string    `json:"title,omitempty"`
	Artist          *string    `json:"artist,omitempty"`
	Album           *string    `json:"album,omitempty"`
	Cover           *string    `json:"cover,omitempty"`
	CoverKey        *string    `json:"-"`
	Duration        *float64   `json:"duration,omitempty"`
	BackgroundImage *string    `json:"backgroundImage,omitempty"`
	VisualizerMode  *string    `json:"visualizerMode,omitempty"`
	CustomEQ        *[]float64 `json:"customEQ,omitempty"`
}

// Apply shallow-merges the patch into a copy of t.
func (p TrackPatch) Apply(t *Track) *Track {
	c := t.Clone()
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Artist != nil {
		c.Artist = *p.Artist
	}
	if p.Album != nil {
		c.Album = *p.Album
	}
	if p.Cover != nil {
		c.Cover = *p.Cover
	}
	if p.CoverKey != nil {
		c.CoverKey = *p.CoverKey
	}
	if p.Duration != nil {
		c.Duration = *p.Duration
	}
	if p.BackgroundImage != nil {
		c.BackgroundImage = *p.BackgroundImage
	}
	if p.VisualizerMode != nil {
		c.VisualizerMode = *p.VisualizerMode
	}
	if p.CustomEQ != nil {
		c.CustomEQ = append([]float64(nil), (*p.CustomEQ)...)
	}
	return c
}
