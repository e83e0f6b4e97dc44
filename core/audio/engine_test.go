package audio

import (
	"math"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HipHopLab/core/player"
	"HipHopLab/model"
)

const (
	testRate = 44100
	waitFor  = 2 * time.Second
	tick     = 5 * time.Millisecond
)

type rig struct {
	engine *Engine
	out    *ManualOutput
	store  *player.Store
	res    *mapResolver
}

func newRig(t *testing.T, rate int) *rig {
	t.Helper()
	out := NewManualOutput(beep.SampleRate(rate))
	res := newMapResolver()
	e := New(Options{SampleRate: beep.SampleRate(rate), Output: out, Resolver: res})
	t.Cleanup(func() { _ = e.Close() })
	return &rig{engine: e, out: out, store: player.NewStore(), res: res}
}

func (r *rig) track(t *testing.T, id string, seconds float64) *model.Track {
	t.Helper()
	uri := "blob:" + id
	r.res.put(uri, wavTone(t, 8000, seconds, 440, 0.5))
	return &model.Track{ID: id, Title: id, Src: uri}
}

func (r *rig) waitLoaded(t *testing.T, src string) {
	t.Helper()
	require.Eventually(t, func() bool {
		el := r.engine.Element()
		return el.Src() == src && !math.IsNaN(el.Duration())
	}, waitFor, tick)
}

func TestSharedIsSingleton(t *testing.T) {
	opts := Options{Output: NewManualOutput(testRate)}
	a := Shared(opts)
	b := Shared(Options{SampleRate: 8000})
	assert.Same(t, a, b)
}

func TestContextStartsSuspended(t *testing.T) {
	r := newRig(t, testRate)
	assert.Equal(t, ContextSuspended, r.engine.Context().State())
	assert.Equal(t, "custom", r.engine.Context().OutputName())

	r.engine.Bind(r.store)
	a := r.track(t, "a", 1)
	r.store.AddTrack(a)
	assert.Equal(t, ContextRunning, r.engine.Context().State(), "resumed for playback")
}

func TestEndedAdvancesOnceDespiteRepeatedBind(t *testing.T) {
	r := newRig(t, testRate)
	r.engine.Bind(r.store)
	r.engine.Bind(r.store)
	r.engine.Bind(player.NewStore())

	a, b, c := r.track(t, "a", 0.2), r.track(t, "b", 5), r.track(t, "c", 5)
	r.store.AddTrack(a)
	r.store.AddTrack(b)
	r.store.AddTrack(c)
	r.waitLoaded(t, a.Src)

	r.out.PullDuration(400 * time.Millisecond)

	require.Eventually(t, func() bool {
		return r.store.State().CurrentTrack.ID == "b"
	}, waitFor, tick)
	r.waitLoaded(t, b.Src)
	assert.True(t, r.store.IsPlaying())
	assert.Equal(t, "b", r.store.State().CurrentTrack.ID)
}

func TestRepeatOneRestartsTrack(t *testing.T) {
	r := newRig(t, testRate)
	r.engine.Bind(r.store)
	a := r.track(t, "a", 0.2)
	r.store.AddTrack(a)
	r.store.AddTrack(r.track(t, "b", 1))
	r.store.ToggleRepeat()
	r.store.ToggleRepeat()
	r.waitLoaded(t, a.Src)

	r.out.PullDuration(300 * time.Millisecond)
	require.Eventually(t, func() bool {
		el := r.engine.Element()
		return !el.Ended() && !el.Paused() && el.CurrentTime() < 0.1
	}, waitFor, tick)
	assert.Equal(t, "a", r.store.State().CurrentTrack.ID)
	assert.True(t, r.store.IsPlaying())
}

func TestTimeUpdatesAndDurationReachStore(t *testing.T) {
	r := newRig(t, testRate)
	r.engine.Bind(r.store)
	a := r.track(t, "a", 2)
	r.store.AddTrack(a)
	r.waitLoaded(t, a.Src)

	require.Eventually(t, func() bool { return r.store.State().Duration == 2 }, waitFor, tick)

	r.out.PullDuration(time.Second)
	require.Eventually(t, func() bool { return r.store.CurrentTime() >= 0.75 }, waitFor, tick)
	assert.InDelta(t, 1.0, r.engine.CurrentTime(), 0.05)
}

func TestSeekMovesElementThenStore(t *testing.T) {
	r := newRig(t, testRate)
	r.engine.Bind(r.store)
	a := r.track(t, "a", 3)
	r.store.AddTrack(a)
	r.waitLoaded(t, a.Src)

	r.engine.Seek(1.5)
	assert.InDelta(t, 1.5, r.engine.CurrentTime(), 1e-3)
	require.Eventually(t, func() bool {
		return math.Abs(r.store.CurrentTime()-1.5) < 1e-3
	}, waitFor, tick)

	r.engine.Seek(99)
	assert.InDelta(t, 3, r.engine.CurrentTime(), 1e-3, "clamped to duration")
}

func TestEQBinding(t *testing.T) {
	r := newRig(t, testRate)
	r.engine.Bind(r.store)
	eq := r.engine.Equalizer()
	require.NotNil(t, eq)

	gains := []float64{3, 2, 1, 0, -1, -2, -3, 4, 5, 6}
	r.store.SetEQGains(gains)
	assert.Equal(t, gains, eq.Gains())

	r.store.SetEQGains([]float64{12, 12, 12})
	assert.Equal(t, gains, eq.Gains(), "malformed vector leaves the chain alone")
	assert.Len(t, r.store.State().EQGains, 3, "while the store keeps it")

	custom := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	tr := r.track(t, "a", 1)
	tr.CustomEQ = custom
	r.store.AddTrack(tr)
	assert.Equal(t, custom, eq.Gains(), "per-track EQ wins")
}

func TestDegradedWithoutEQ(t *testing.T) {
	r := newRig(t, 22050)
	assert.Nil(t, r.engine.Equalizer())

	r.engine.Bind(r.store)
	a := r.track(t, "a", 1)
	r.store.AddTrack(a)
	r.store.SetEQGains(make([]float64, 10))
	r.waitLoaded(t, a.Src)

	frames := r.out.PullDuration(200 * time.Millisecond)
	assert.Greater(t, peak(frames), 0.1)
}

func TestElementBindings(t *testing.T) {
	r := newRig(t, testRate)
	r.engine.Bind(r.store)
	el := r.engine.Element()
	assert.Equal(t, 0.8, el.Volume())

	r.store.SetPlaybackRate(1.25)
	r.store.SetPreservesPitch(false)
	r.store.SetVolume(0.3)
	r.store.ToggleMute()
	assert.Equal(t, 1.25, el.PlaybackRate())
	assert.False(t, el.PreservesPitch())
	assert.Equal(t, 0.3, el.Volume())
	assert.True(t, el.Muted())

	r.store.SetPlaybackRate(0)
	assert.Equal(t, 1.25, el.PlaybackRate(), "non-positive rate ignored")
	r.store.SetVolume(4)
	assert.Equal(t, 1.0, el.Volume())
}

func TestMuteSilencesOutput(t *testing.T) {
	r := newRig(t, testRate)
	r.engine.Bind(r.store)
	a := r.track(t, "a", 2)
	r.store.AddTrack(a)
	r.waitLoaded(t, a.Src)

	assert.Greater(t, peak(r.out.PullDuration(100*time.Millisecond)), 0.1)
	r.store.ToggleMute()
	assert.Less(t, peak(r.out.PullDuration(100*time.Millisecond)), 1e-9)
}

func TestPauseAndNullTrack(t *testing.T) {
	r := newRig(t, testRate)
	r.engine.Bind(r.store)
	a := r.track(t, "a", 2)
	r.store.AddTrack(a)
	r.waitLoaded(t, a.Src)
	el := r.engine.Element()

	r.store.TogglePlay()
	assert.True(t, el.Paused())
	before := el.CurrentTime()
	r.out.PullDuration(100 * time.Millisecond)
	assert.Equal(t, before, el.CurrentTime(), "paused element does not advance")

	r.store.RemoveTrack("a")
	assert.True(t, el.Paused())
	assert.Empty(t, el.Src())
}

func TestAnalyserSeesGraphOutput(t *testing.T) {
	r := newRig(t, testRate)
	r.engine.Bind(r.store)
	a := r.track(t, "a", 1)
	r.store.AddTrack(a)
	r.waitLoaded(t, a.Src)
	r.out.PullDuration(100 * time.Millisecond)

	an := r.engine.Analyser()
	data := make([]byte, an.FrequencyBinCount())
	an.ByteFrequencyData(data)
	bin := int(math.Round(440 * 2048 / float64(testRate)))
	assert.Greater(t, data[bin], byte(100))
}

func TestEngineTransportWithoutStore(t *testing.T) {
	r := newRig(t, testRate)
	assert.False(t, r.engine.IsPlaying())
	r.engine.Element().SetSrc(r.track(t, "a", 1).Src)
	r.engine.TogglePlay()
	assert.True(t, r.engine.IsPlaying())
	r.engine.TogglePlay()
	assert.False(t, r.engine.IsPlaying())
}

func TestTogglePlayIgnoredWithoutCurrentTrack(t *testing.T) {
	r := newRig(t, testRate)
	r.engine.Bind(r.store)

	r.engine.TogglePlay()
	assert.False(t, r.store.State().IsPlaying)
	assert.False(t, r.engine.IsPlaying())
	assert.True(t, r.engine.Element().Paused())
}

func TestTransportReadsDuringBind(t *testing.T) {
	r := newRig(t, testRate)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			r.engine.IsPlaying()
			r.engine.TogglePlay()
		}
	}()
	r.engine.Bind(r.store)
	<-done
	assert.Nil(t, r.store.State().CurrentTrack)
	assert.False(t, r.store.State().IsPlaying)
}
