package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"

	"HipHopLab/core/player"
	"HipHopLab/logger"
)

const DefaultSampleRate beep.SampleRate = 44100

type Options struct {
	// SampleRate of the output; defaults to 44100.
	SampleRate beep.SampleRate
	// Output overrides the platform sink.
	Output Output
	// Resolver maps transient source URIs to bytes.
	Resolver Resolver
	// CacheSize is the number of decoded sources kept in memory.
	CacheSize int64
	// CacheTTL bounds how long a decoded source stays cached.
	CacheTTL time.Duration
}

// Engine owns the one media element and its processing graph:
// element → equalizer → analyser → output.
type Engine struct {
	ctx      *Context
	element  *Element
	eq       *Equalizer
	analyser *Analyser
	decoder  *decodeCache

	store    atomic.Pointer[player.Store]
	bindOnce sync.Once
	unsubs   []func()

	evMu      sync.Mutex
	evQueue   []Event
	evSignal  chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var (
	sharedOnce sync.Once
	shared     *Engine
)

// Shared returns the process-wide engine, building it on first use. Options
// passed on later calls are ignored.
func Shared(opts Options) *Engine {
	sharedOnce.Do(func() {
		shared = New(opts)
	})
	return shared
}

// New builds an engine. Wiring failures never fail construction: without a
// sound device the engine falls back to a null output, and without a usable
// equalizer audio bypasses it.
func New(opts Options) *Engine {
	rate := opts.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 8
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}

	e := &Engine{
		analyser: NewAnalyser(),
		decoder:  newDecodeCache(opts.Resolver, opts.CacheSize, opts.CacheTTL),
		evSignal: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	e.element = newElement(rate, e.decoder.Load, e.post)

	eq, err := NewEqualizer(rate)
	if err != nil {
		logger.Error("equalizer unavailable, running without EQ", logger.ErrorField(err))
	} else {
		e.eq = eq
	}

	out, name := opts.Output, "custom"
	if out == nil {
		out, name, err = newPlatformOutput(rate)
		if err != nil {
			logger.Warn("sound device unavailable, using null output", logger.ErrorField(err))
			out, name = NewNullOutput(rate), "null"
		}
	}
	e.ctx = newContext(out, name)
	if err := e.ctx.start(e); err != nil {
		logger.Error("failed to start audio output, using null output", logger.ErrorField(err))
		e.ctx = newContext(NewNullOutput(rate), "null")
		if err := e.ctx.start(e); err != nil {
			logger.Error("null output failed to start", logger.ErrorField(err))
		}
	}

	logger.Info("audio engine ready",
		logger.String("output", e.ctx.OutputName()),
		logger.Int("sampleRate", int(rate)),
		logger.Bool("eq", e.eq != nil))
	return e
}

// Stream is the graph as seen by the output. It never ends.
func (e *Engine) Stream(samples [][2]float64) (int, bool) {
	e.element.Stream(samples)
	if e.eq != nil {
		e.eq.Process(samples)
	}
	e.analyser.Write(samples)
	return len(samples), true
}

func (e *Engine) Err() error { return nil }

func (e *Engine) Element() *Element     { return e.element }
func (e *Engine) Context() *Context     { return e.ctx }
func (e *Engine) Analyser() *Analyser   { return e.analyser }
func (e *Engine) Equalizer() *Equalizer { return e.eq }

// Bind attaches the engine to store exactly once. Later calls, with any
// store, are no-ops.
func (e *Engine) Bind(store *player.Store) {
	e.bindOnce.Do(func() {
		e.store.Store(store)
		e.wg.Add(1)
		go e.eventLoop()

		e.unsubs = append(e.unsubs,
			store.Subscribe(player.FieldPlaybackRate|player.FieldPreservesPitch, func(_, next player.State) {
				e.applyRate(next)
			}),
			store.Subscribe(player.FieldEQGains|player.FieldCurrentTrack, func(_, next player.State) {
				e.applyEQ(next)
			}),
			store.Subscribe(player.FieldVolume|player.FieldIsMuted, func(_, next player.State) {
				e.applyVolume(next)
			}),
			store.Subscribe(player.FieldCurrentTrack|player.FieldIsPlaying, func(_, next player.State) {
				e.applyTransport(next)
			}),
		)

		st := store.State()
		e.applyRate(st)
		e.applyEQ(st)
		e.applyVolume(st)
		e.applyTransport(st)
	})
}

func (e *Engine) applyRate(st player.State) {
	if err := e.element.SetPlaybackRate(st.PlaybackRate); err != nil {
		logger.Warn("ignoring playback rate", logger.ErrorField(err))
	}
	e.element.SetPreservesPitch(st.PreservesPitch)
}

func (e *Engine) applyEQ(st player.State) {
	if e.eq == nil {
		return
	}
	gains := st.CurrentTrack.EffectiveEQ(st.EQGains)
	if !e.eq.SetGains(gains) {
		logger.Debug("ignoring malformed eq vector", logger.Int("len", len(gains)))
	}
}

func (e *Engine) applyVolume(st player.State) {
	e.element.SetVolume(st.Volume)
	e.element.SetMuted(st.IsMuted)
}

func (e *Engine) applyTransport(st player.State) {
	if st.CurrentTrack == nil {
		e.element.Pause()
		e.element.SetSrc("")
		return
	}
	if e.element.Src() != st.CurrentTrack.Src {
		e.element.SetSrc(st.CurrentTrack.Src)
	}
	if !st.IsPlaying {
		e.element.Pause()
		return
	}
	if err := e.ctx.Resume(); err != nil {
		logger.Error("failed to resume audio context", logger.ErrorField(err))
	}
	e.watchPlay(st.CurrentTrack.ID, e.element.Play())
}

func (e *Engine) watchPlay(trackID string, result <-chan error) {
	go func() {
		err := <-result
		if err == nil || errors.Is(err, ErrPlayAborted) {
			return
		}
		logger.Error("playback failed", logger.String("trackId", trackID), logger.ErrorField(err))
	}()
}

// post queues an element event without blocking the audio thread.
func (e *Engine) post(ev Event) {
	if e.store.Load() == nil {
		return
	}
	e.evMu.Lock()
	e.evQueue = append(e.evQueue, ev)
	e.evMu.Unlock()
	select {
	case e.evSignal <- struct{}{}:
	default:
	}
}

func (e *Engine) eventLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case <-e.evSignal:
		}
		e.evMu.Lock()
		batch := e.evQueue
		e.evQueue = nil
		e.evMu.Unlock()
		for _, ev := range batch {
			e.deliver(ev)
		}
	}
}

func (e *Engine) deliver(ev Event) {
	store := e.store.Load()
	if store == nil || ev.Src != e.element.Src() {
		return
	}
	switch ev.Type {
	case EventTimeUpdate:
		store.SetCurrentTime(ev.Time)
	case EventLoadedMetadata:
		store.SetDuration(ev.Duration)
	case EventEnded:
		store.SetIsPlaying(false)
		store.PlayNext()
	case EventError:
		logger.Error("media error", logger.String("src", ev.Src), logger.ErrorField(ev.Err))
	}
}

// Seek moves the element only; the store follows on the next time update.
func (e *Engine) Seek(seconds float64) {
	e.element.Seek(seconds)
}

// Forget drops the decoded copy of uri, e.g. after the URI was revoked.
func (e *Engine) Forget(uri string) {
	e.decoder.Forget(uri)
}

// CurrentTime reads the element clock directly, which is more precise than
// the store's last time update.
func (e *Engine) CurrentTime() float64 {
	return e.element.CurrentTime()
}

func (e *Engine) IsPlaying() bool {
	if store := e.store.Load(); store != nil {
		return store.IsPlaying()
	}
	return !e.element.Paused()
}

// TogglePlay flips the transport. A bound engine ignores it while no track
// is current.
func (e *Engine) TogglePlay() {
	if store := e.store.Load(); store != nil {
		if store.State().CurrentTrack != nil {
			store.TogglePlay()
		}
		return
	}
	if e.element.Paused() {
		e.watchPlay("", e.element.Play())
	} else {
		e.element.Pause()
	}
}

// Close stops the event loop, detaches from the store and closes the output.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		for _, unsubscribe := range e.unsubs {
			unsubscribe()
		}
		close(e.done)
		e.wg.Wait()
		e.element.Pause()
		err = e.ctx.Close()
		e.decoder.Stop()
	})
	return err
}
