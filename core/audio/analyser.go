package audio

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
)

const (
	DefaultFFTSize   = 2048
	DefaultSmoothing = 0.8
	DefaultMinDB     = -100.0
	DefaultMaxDB     = -30.0

	minFFTSize = 32
	maxFFTSize = 32768
)

// Analyser keeps the most recent fftSize mono samples flowing through the
// graph and turns them into byte-resolution magnitude frames.
type Analyser struct {
	mu sync.Mutex

	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64

	ring   []float64
	pos    int
	window []float64
	frame  []float64
	smooth []float64
}

func NewAnalyser() *Analyser {
	a := &Analyser{smoothing: DefaultSmoothing, minDB: DefaultMinDB, maxDB: DefaultMaxDB}
	a.resize(DefaultFFTSize)
	return a
}

func (a *Analyser) resize(n int) {
	a.fftSize = n
	a.ring = make([]float64, n)
	a.pos = 0
	a.frame = make([]float64, n)
	a.smooth = make([]float64, n/2)
	a.window = make([]float64, n)
	for i := range a.window {
		x := 2 * math.Pi * float64(i) / float64(n)
		a.window[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
}

// SetFFTSize changes the transform size; n must be a power of two in
// [32, 32768]. History and smoothing state are reset.
func (a *Analyser) SetFFTSize(n int) error {
	if n < minFFTSize || n > maxFFTSize || n&(n-1) != 0 {
		return fmt.Errorf("audio: invalid fft size %d", n)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if n != a.fftSize {
		a.resize(n)
	}
	return nil
}

func (a *Analyser) FFTSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fftSize
}

// FrequencyBinCount is half the transform size.
func (a *Analyser) FrequencyBinCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fftSize / 2
}

// Write mixes samples down to mono into the history ring.
func (a *Analyser) Write(samples [][2]float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		a.ring[a.pos] = (s[0] + s[1]) / 2
		a.pos = (a.pos + 1) % a.fftSize
	}
}

// ByteFrequencyData fills dst with the current spectrum, one byte per bin,
// mapping [minDB, maxDB] onto [0, 255]. Only min(len(dst), bins) entries are
// written.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.fftSize
	for i := 0; i < n; i++ {
		a.frame[i] = a.ring[(a.pos+i)%n] * a.window[i]
	}
	spectrum := fft.FFTReal(a.frame)

	bins := min(len(dst), n/2)
	scale := 255 / (a.maxDB - a.minDB)
	for k := 0; k < n/2; k++ {
		mag := cmplx.Abs(spectrum[k]) / float64(n)
		a.smooth[k] = a.smoothing*a.smooth[k] + (1-a.smoothing)*mag
		if k >= bins {
			continue
		}
		db := 20 * math.Log10(a.smooth[k])
		v := (db - a.minDB) * scale
		switch {
		case math.IsInf(db, -1) || v <= 0:
			dst[k] = 0
		case v >= 255:
			dst[k] = 255
		default:
			dst[k] = byte(v)
		}
	}
}
