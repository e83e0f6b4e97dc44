package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gopxl/beep/v2"
)

var (
	// ErrPlayAborted resolves a play request that was superseded by a source
	// swap or a pause before it could start.
	ErrPlayAborted = errors.New("audio: play request aborted")
	ErrNoSource    = errors.New("audio: no source")
)

const (
	timeUpdateInterval = 0.25
	resampleQuality    = 4
)

type EventType int

const (
	EventTimeUpdate EventType = iota
	EventLoadedMetadata
	EventEnded
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventTimeUpdate:
		return "timeupdate"
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventEnded:
		return "ended"
	default:
		return "error"
	}
}

// Event is emitted by the element. Src is the source it refers to so late
// events from a replaced source can be told apart.
type Event struct {
	Type     EventType
	Src      string
	Time     float64
	Duration float64
	Err      error
}

type loader func(uri string) (*beep.Buffer, error)

// Element is the single playable media element. It loads a source URI in the
// background, renders it at the output rate with playback rate, pitch
// correction, volume and mute applied, and reports progress through events.
type Element struct {
	mu sync.Mutex

	outRate beep.SampleRate
	load    loader
	emit    func(Event)

	src     string
	gen     uint64
	buf     *beep.Buffer
	base    beep.StreamSeeker
	out     beep.Streamer
	pending []chan error

	paused         bool
	ended          bool
	volume         float64
	muted          bool
	rate           float64
	preservesPitch bool
	lastUpdate     float64
}

func newElement(outRate beep.SampleRate, load loader, emit func(Event)) *Element {
	if emit == nil {
		emit = func(Event) {}
	}
	return &Element{
		outRate:        outRate,
		load:           load,
		emit:           emit,
		paused:         true,
		volume:         1,
		rate:           1,
		preservesPitch: true,
	}
}

func (e *Element) Src() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

// SetSrc swaps the source. Pending play requests are aborted and the new
// source starts loading; an empty uri unloads.
func (e *Element) SetSrc(uri string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if uri == e.src {
		return
	}
	e.abortPendingLocked()
	e.gen++
	e.src = uri
	e.buf, e.base, e.out = nil, nil, nil
	e.ended = false
	e.lastUpdate = 0
	if uri == "" {
		e.paused = true
		return
	}
	go e.fetch(e.gen, uri)
}

func (e *Element) fetch(gen uint64, uri string) {
	buf, err := e.load(uri)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return
	}
	if err != nil {
		err = fmt.Errorf("loading %s: %w", uri, err)
		e.paused = true
		e.emit(Event{Type: EventError, Src: uri, Err: err})
		e.resolvePendingLocked(err)
		return
	}
	e.buf = buf
	e.rebuildLocked(0)
	e.emit(Event{Type: EventLoadedMetadata, Src: uri, Duration: bufferSeconds(buf)})
	e.resolvePendingLocked(nil)
}

func (e *Element) rebuildLocked(pos int) {
	if e.buf == nil {
		return
	}
	base := e.buf.Streamer(0, e.buf.Len())
	if err := base.Seek(min(max(pos, 0), e.buf.Len())); err != nil {
		e.emit(Event{Type: EventError, Src: e.src, Err: err})
	}
	ratio := float64(e.buf.Format().SampleRate) / float64(e.outRate)
	stretch := e.preservesPitch && e.rate != 1
	if !stretch {
		ratio *= e.rate
	}
	e.base = base
	e.out = beep.ResampleRatio(resampleQuality, ratio, base)
	if stretch {
		e.out = newStretcher(e.out, e.rate)
	}
}

func (e *Element) positionLocked() int {
	if e.base == nil {
		return 0
	}
	return e.base.Position()
}

func (e *Element) abortPendingLocked() {
	e.resolvePendingLocked(ErrPlayAborted)
}

func (e *Element) resolvePendingLocked(err error) {
	for _, ch := range e.pending {
		ch <- err
		close(ch)
	}
	e.pending = nil
}

// Play starts playback. The returned channel yields exactly one value: nil
// once playback has started, ErrPlayAborted when superseded, or a load error.
// Playing an ended element restarts it from the beginning.
func (e *Element) Play() <-chan error {
	ch := make(chan error, 1)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.src == "" {
		ch <- ErrNoSource
		close(ch)
		return ch
	}
	if e.ended {
		e.ended = false
		e.rebuildLocked(0)
		e.lastUpdate = 0
	}
	e.paused = false
	if e.buf == nil {
		e.pending = append(e.pending, ch)
		return ch
	}
	ch <- nil
	close(ch)
	return ch
}

func (e *Element) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	e.abortPendingLocked()
}

func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *Element) Ended() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ended
}

// CurrentTime is the position in seconds of the loaded source.
func (e *Element) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTimeLocked()
}

func (e *Element) currentTimeLocked() float64 {
	if e.buf == nil {
		return 0
	}
	return float64(e.positionLocked()) / float64(e.buf.Format().SampleRate)
}

// Duration is NaN until the source has loaded.
func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buf == nil {
		return math.NaN()
	}
	return bufferSeconds(e.buf)
}

// Seek moves to seconds, clamped to the source. A time update is emitted for
// the new position.
func (e *Element) Seek(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buf == nil {
		return
	}
	sr := e.buf.Format().SampleRate
	pos := min(max(int(seconds*float64(sr)), 0), e.buf.Len())
	e.ended = false
	e.rebuildLocked(pos)
	e.lastUpdate = e.currentTimeLocked()
	e.emit(Event{Type: EventTimeUpdate, Src: e.src, Time: e.lastUpdate})
}

// SetVolume clamps v into [0, 1].
func (e *Element) SetVolume(v float64) {
	if math.IsNaN(v) {
		return
	}
	e.mu.Lock()
	e.volume = min(max(v, 0), 1)
	e.mu.Unlock()
}

func (e *Element) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *Element) SetMuted(muted bool) {
	e.mu.Lock()
	e.muted = muted
	e.mu.Unlock()
}

func (e *Element) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

// SetPlaybackRate changes speed. Non-positive rates are rejected.
func (e *Element) SetPlaybackRate(rate float64) error {
	if !(rate > 0) || math.IsInf(rate, 0) {
		return fmt.Errorf("audio: unsupported playback rate %v", rate)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if rate == e.rate {
		return nil
	}
	e.rate = rate
	e.rebuildLocked(e.positionLocked())
	return nil
}

func (e *Element) PlaybackRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

func (e *Element) SetPreservesPitch(preserves bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if preserves == e.preservesPitch {
		return
	}
	e.preservesPitch = preserves
	e.rebuildLocked(e.positionLocked())
}

func (e *Element) PreservesPitch() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preservesPitch
}

// Stream renders the element into samples. It always fills the whole slice,
// with silence when paused or unloaded, so the output never stops pulling.
func (e *Element) Stream(samples [][2]float64) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused || e.out == nil {
		clear(samples)
		return len(samples), true
	}

	n, ok := e.out.Stream(samples)
	gain := e.volume
	if e.muted {
		gain = 0
	}
	for i := 0; i < n; i++ {
		samples[i][0] *= gain
		samples[i][1] *= gain
	}
	clear(samples[n:])

	now := e.currentTimeLocked()
	if !ok || n < len(samples) {
		e.paused = true
		e.ended = true
		e.lastUpdate = now
		e.emit(Event{Type: EventTimeUpdate, Src: e.src, Time: now})
		e.emit(Event{Type: EventEnded, Src: e.src})
		return len(samples), true
	}
	if math.Abs(now-e.lastUpdate) >= timeUpdateInterval {
		e.lastUpdate = now
		e.emit(Event{Type: EventTimeUpdate, Src: e.src, Time: now})
	}
	return len(samples), true
}

func (e *Element) Err() error {
	return nil
}
