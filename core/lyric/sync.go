package lyric

import (
	"errors"
	"strings"
	"sync"

	"HipHopLab/logger"
	"HipHopLab/model"
)

var (
	ErrCapturing      = errors.New("lyric sync: text is locked while capturing")
	ErrNoLyrics       = errors.New("lyric sync: no valid lyric lines found")
	ErrLineOutOfRange = errors.New("lyric sync: line index out of range")
	ErrSessionClosed  = errors.New("lyric sync: session already closed")
)

// Transport is the playback surface a capture session reads the clock from.
type Transport interface {
	CurrentTime() float64
	IsPlaying() bool
	TogglePlay()
}

// unsynced marks a line without a captured timestamp.
const unsynced = -1.0

// Session is the editor-local tap-to-sync state machine for one track.
type Session struct {
	mu sync.Mutex

	trackID   string
	transport Transport

	raw       string
	lines     []string
	captured  []model.LyricLine
	cursor    int
	capturing bool
	closed    bool
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	TrackID   string            `json:"trackId"`
	Raw       string            `json:"raw"`
	Lines     []string          `json:"lines"`
	Captured  []model.LyricLine `json:"captured"`
	Cursor    int               `json:"cursor"`
	Capturing bool              `json:"capturing"`
}

// NewSession opens an editor for track, seeded with its existing lyrics.
func NewSession(track *model.Track, transport Transport) *Session {
	s := &Session{trackID: track.ID, transport: transport}
	if len(track.Lyrics) > 0 {
		s.captured = append([]model.LyricLine(nil), track.Lyrics...)
		texts := make([]string, len(track.Lyrics))
		for i, l := range track.Lyrics {
			texts[i] = l.Text
		}
		s.setRaw(strings.Join(texts, "\n"))
	}
	return s
}

func (s *Session) setRaw(raw string) {
	s.raw = raw
	s.lines = StripTimestamps(raw)
}

// TrackID returns the id of the track being edited.
func (s *Session) TrackID() string {
	return s.trackID
}

// StartCapture arms the session. Playback is started when paused, and the
// cursor rewinds only when it already ran past the last line.
func (s *Session) StartCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.capturing {
		return nil
	}
	s.capturing = true
	if s.cursor >= len(s.lines) {
		s.cursor = 0
	}
	if !s.transport.IsPlaying() {
		s.transport.TogglePlay()
	}
	return nil
}

// StopCapture disarms the session, keeping cursor and captures.
func (s *Session) StopCapture() {
	s.mu.Lock()
	s.capturing = false
	s.mu.Unlock()
}

// Tap stamps the line under the cursor with the current playback time and
// advances the cursor. It reports whether a line was stamped.
func (s *Session) Tap() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.cursor >= len(s.lines) {
		return false
	}
	line := model.LyricLine{Time: s.transport.CurrentTime(), Text: s.lines[s.cursor]}
	for len(s.captured) <= s.cursor {
		s.captured = append(s.captured, model.LyricLine{Time: unsynced})
	}
	s.captured[s.cursor] = line
	s.cursor++
	return true
}

// Select moves the cursor to line i so it can be re-stamped.
func (s *Session) Select(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.lines) {
		return ErrLineOutOfRange
	}
	s.cursor = i
	return nil
}

// SetText replaces the raw text buffer.
func (s *Session) SetText(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capturing {
		return ErrCapturing
	}
	s.setRaw(raw)
	return nil
}

// Clear drops every captured timestamp and rewinds the cursor; the text stays.
func (s *Session) Clear() {
	s.mu.Lock()
	s.captured = nil
	s.cursor = 0
	s.mu.Unlock()
}

// ImportExternal replaces text and captures with parsed LRC content.
func (s *Session) ImportExternal(text string) (int, error) {
	parsed := Parse(text)
	if len(parsed) == 0 {
		return 0, ErrNoLyrics
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capturing {
		return 0, ErrCapturing
	}
	s.captured = parsed
	s.setRaw(text)
	return len(parsed), nil
}

// Save closes the session and returns the synced lyric sequence. Lines that
// never received a timestamp are dropped.
func (s *Session) Save() ([]model.LyricLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	out := make([]model.LyricLine, 0, len(s.lines))
	for i, text := range s.lines {
		if i >= len(s.captured) || s.captured[i].Time < 0 {
			continue
		}
		out = append(out, model.LyricLine{Time: s.captured[i].Time, Text: text})
	}
	if dropped := len(s.lines) - len(out); dropped > 0 {
		logger.Warn("saving lyrics with unsynced lines dropped",
			logger.String("trackId", s.trackID), logger.Int("dropped", dropped))
	}
	s.closed = true
	s.capturing = false
	return out, nil
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		TrackID:   s.trackID,
		Raw:       s.raw,
		Lines:     append([]string(nil), s.lines...),
		Captured:  append([]model.LyricLine(nil), s.captured...),
		Cursor:    s.cursor,
		Capturing: s.capturing,
	}
}
