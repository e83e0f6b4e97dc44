package lyric

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HipHopLab/model"
)

type fakeTransport struct {
	now     float64
	playing bool
	toggles int
}

func (f *fakeTransport) CurrentTime() float64 { return f.now }
func (f *fakeTransport) IsPlaying() bool      { return f.playing }
func (f *fakeTransport) TogglePlay() {
	f.toggles++
	f.playing = !f.playing
}

func newTestSession(t *testing.T, raw string) (*Session, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	s := NewSession(&model.Track{ID: "t1"}, tr)
	require.NoError(t, s.SetText(raw))
	return s, tr
}

func TestCaptureThreeLines(t *testing.T) {
	s, tr := newTestSession(t, "one\ntwo\nthree")
	require.NoError(t, s.StartCapture())
	assert.True(t, tr.playing, "capture starts playback")

	for _, at := range []float64{1.0, 2.5, 4.0} {
		tr.now = at
		assert.True(t, s.Tap())
	}
	assert.False(t, s.Tap(), "tap past the last line is a no-op")

	lines, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, []model.LyricLine{
		{Time: 1.0, Text: "one"},
		{Time: 2.5, Text: "two"},
		{Time: 4.0, Text: "three"},
	}, lines)
}

func TestSaveDropsUntappedLines(t *testing.T) {
	s, tr := newTestSession(t, "one\ntwo\nthree")
	require.NoError(t, s.StartCapture())
	tr.now = 1.0
	s.Tap()
	tr.now = 2.5
	s.Tap()

	lines, err := s.Save()
	require.NoError(t, err)
	assert.Len(t, lines, 2)
	assert.Equal(t, "two", lines[1].Text)

	_, err = s.Save()
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestStartCaptureKeepsCursorMidway(t *testing.T) {
	s, tr := newTestSession(t, "a\nb\nc")
	tr.playing = true
	require.NoError(t, s.StartCapture())
	s.Tap()
	s.StopCapture()

	require.NoError(t, s.StartCapture())
	assert.Equal(t, 1, s.Snapshot().Cursor)
	assert.Equal(t, 0, tr.toggles, "already playing, no toggle")
}

func TestStartCaptureRewindsWhenFinished(t *testing.T) {
	s, tr := newTestSession(t, "a\nb")
	tr.playing = true
	require.NoError(t, s.StartCapture())
	s.Tap()
	s.Tap()
	s.StopCapture()

	require.NoError(t, s.StartCapture())
	assert.Equal(t, 0, s.Snapshot().Cursor)
}

func TestSelectAndRetap(t *testing.T) {
	s, tr := newTestSession(t, "a\nb\nc")
	require.NoError(t, s.StartCapture())
	for _, at := range []float64{1, 2, 3} {
		tr.now = at
		s.Tap()
	}

	require.NoError(t, s.Select(1))
	tr.now = 2.2
	s.Tap()
	assert.Equal(t, 2, s.Snapshot().Cursor)

	assert.ErrorIs(t, s.Select(3), ErrLineOutOfRange)
	assert.ErrorIs(t, s.Select(-1), ErrLineOutOfRange)

	lines, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, 2.2, lines[1].Time)
	assert.Len(t, lines, 3)
}

func TestSelectAheadLeavesGapsUnsynced(t *testing.T) {
	s, tr := newTestSession(t, "a\nb\nc\nd")
	require.NoError(t, s.StartCapture())
	require.NoError(t, s.Select(2))
	tr.now = 7
	s.Tap()

	lines, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, []model.LyricLine{{Time: 7, Text: "c"}}, lines)
}

func TestTextLockedWhileCapturing(t *testing.T) {
	s, _ := newTestSession(t, "a")
	require.NoError(t, s.StartCapture())
	assert.ErrorIs(t, s.SetText("b"), ErrCapturing)
	s.StopCapture()
	assert.NoError(t, s.SetText("b"))
	assert.Equal(t, []string{"b"}, s.Snapshot().Lines)
}

func TestClearKeepsText(t *testing.T) {
	s, tr := newTestSession(t, "a\nb")
	require.NoError(t, s.StartCapture())
	tr.now = 3
	s.Tap()
	s.StopCapture()

	s.Clear()
	snap := s.Snapshot()
	assert.Empty(t, snap.Captured)
	assert.Equal(t, 0, snap.Cursor)
	assert.Equal(t, "a\nb", snap.Raw)
}

func TestImportExternal(t *testing.T) {
	s, _ := newTestSession(t, "old")

	n, err := s.ImportExternal("[00:01.00]x\n[00:02.00]y")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	snap := s.Snapshot()
	assert.Equal(t, []string{"x", "y"}, snap.Lines)
	assert.Len(t, snap.Captured, 2)

	_, err = s.ImportExternal("no timestamps here")
	assert.ErrorIs(t, err, ErrNoLyrics)
	assert.Equal(t, []string{"x", "y"}, s.Snapshot().Lines, "failed import leaves state untouched")
}

func TestNewSessionSeedsFromTrackLyrics(t *testing.T) {
	track := &model.Track{ID: "t", Lyrics: []model.LyricLine{{Time: 1, Text: "x"}, {Time: 2, Text: "y"}}}
	s := NewSession(track, &fakeTransport{})

	snap := s.Snapshot()
	assert.Equal(t, "x\ny", snap.Raw)
	assert.Equal(t, track.Lyrics, snap.Captured)

	lines, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, track.Lyrics, lines)
}

func TestReadClipboard(t *testing.T) {
	orig := clipboardRead
	t.Cleanup(func() { clipboardRead = orig })

	clipboardRead = func() (string, error) { return "[00:01.00]hi", nil }
	text, err := ReadClipboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[00:01.00]hi", text)

	clipboardRead = func() (string, error) { return "", errors.New("denied") }
	_, err = ReadClipboard(context.Background())
	assert.ErrorIs(t, err, ErrClipboardUnavailable)

	block := make(chan struct{})
	defer close(block)
	clipboardRead = func() (string, error) { <-block; return "", nil }
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = ReadClipboard(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
