package player

import "strings"

// Seeker moves the playback position of the media element.
type Seeker interface {
	Seek(seconds float64)
}

const (
	seekStep    = 5.0
	volumeStep  = 0.1
	restartMark = 3.0
)

// HandleKey maps a keyboard shortcut onto store actions and seeks. Keys use
// the DOM names ("Space", "ArrowLeft", "m") with an optional "Ctrl+" or
// "Meta+" prefix. It reports whether the key was recognized.
func (s *Store) HandleKey(key string, seeker Seeker) bool {
	ctrl := false
	for _, prefix := range []string{"Ctrl+", "Meta+"} {
		if strings.HasPrefix(key, prefix) {
			key = strings.TrimPrefix(key, prefix)
			ctrl = true
		}
	}

	st := s.State()
	switch key {
	case " ", "Space":
		s.TogglePlay()
	case "m", "M":
		s.ToggleMute()
	case "ArrowUp":
		s.SetVolume(min(1, st.Volume+volumeStep))
	case "ArrowDown":
		s.SetVolume(max(0, st.Volume-volumeStep))
	case "ArrowRight":
		if ctrl {
			s.PlayNext()
			return true
		}
		seeker.Seek(min(st.Duration, st.CurrentTime+seekStep))
	case "ArrowLeft":
		if !ctrl {
			seeker.Seek(max(0, st.CurrentTime-seekStep))
			return true
		}
		if st.CurrentTime > restartMark {
			seeker.Seek(0)
		} else {
			s.PlayPrev()
		}
	default:
		return false
	}
	return true
}
