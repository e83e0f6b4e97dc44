package audio

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"github.com/gopxl/beep/v2"

	"HipHopLab/model"
)

// FilterQ is the resonance shared by every EQ band.
const FilterQ = 1.0

var ErrAboveNyquist = errors.New("audio: filter frequency above nyquist")

type FilterKind int

const (
	LowShelf FilterKind = iota
	Peaking
	HighShelf
)

func (k FilterKind) String() string {
	switch k {
	case LowShelf:
		return "lowshelf"
	case HighShelf:
		return "highshelf"
	default:
		return "peaking"
	}
}

// Biquad is a second-order IIR section using the audio-EQ cookbook designs.
// Coefficients are normalized by a0.
type Biquad struct {
	Kind      FilterKind
	Frequency float64
	Q         float64

	gain       float64
	sampleRate float64
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     [2]float64
	y1, y2     [2]float64
}

// NewBiquad designs a filter at frequency for the given sample rate.
func NewBiquad(kind FilterKind, frequency, q float64, sampleRate beep.SampleRate) (*Biquad, error) {
	fs := float64(sampleRate)
	if frequency <= 0 || frequency >= fs/2 {
		return nil, fmt.Errorf("%w: %.0f Hz at %.0f Hz", ErrAboveNyquist, frequency, fs)
	}
	b := &Biquad{Kind: kind, Frequency: frequency, Q: q, sampleRate: fs}
	b.SetGain(0)
	return b, nil
}

func (b *Biquad) Gain() float64 { return b.gain }

// SetGain redesigns the coefficients for gain dB. Filter memory is kept so a
// change mid-stream does not click.
func (b *Biquad) SetGain(gain float64) {
	b.gain = gain
	a := math.Pow(10, gain/40)
	w0 := 2 * math.Pi * b.Frequency / b.sampleRate
	cos, sin := math.Cos(w0), math.Sin(w0)

	var b0, b1, b2, a0, a1, a2 float64
	switch b.Kind {
	case Peaking:
		alpha := sin / (2 * b.Q)
		b0 = 1 + alpha*a
		b1 = -2 * cos
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cos
		a2 = 1 - alpha/a
	case LowShelf:
		alpha := sin / 2 * math.Sqrt2
		k := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) - (a-1)*cos + k)
		b1 = 2 * a * ((a - 1) - (a+1)*cos)
		b2 = a * ((a + 1) - (a-1)*cos - k)
		a0 = (a + 1) + (a-1)*cos + k
		a1 = -2 * ((a - 1) + (a+1)*cos)
		a2 = (a + 1) + (a-1)*cos - k
	case HighShelf:
		alpha := sin / 2 * math.Sqrt2
		k := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) + (a-1)*cos + k)
		b1 = -2 * a * ((a - 1) + (a+1)*cos)
		b2 = a * ((a + 1) + (a-1)*cos - k)
		a0 = (a + 1) - (a-1)*cos + k
		a1 = 2 * ((a - 1) - (a+1)*cos)
		a2 = (a + 1) - (a-1)*cos - k
	}
	b.b0, b.b1, b.b2 = b0/a0, b1/a0, b2/a0
	b.a1, b.a2 = a1/a0, a2/a0
}

// Response returns the magnitude response in dB at freq.
func (b *Biquad) Response(freq float64) float64 {
	w := 2 * math.Pi * freq / b.sampleRate
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1
	num := complex(b.b0, 0) + complex(b.b1, 0)*z1 + complex(b.b2, 0)*z2
	den := 1 + complex(b.a1, 0)*z1 + complex(b.a2, 0)*z2
	return 20 * math.Log10(cmplx.Abs(num/den))
}

// Process filters samples in place.
func (b *Biquad) Process(samples [][2]float64) {
	for i := range samples {
		for c := 0; c < 2; c++ {
			x := samples[i][c]
			y := b.b0*x + b.b1*b.x1[c] + b.b2*b.x2[c] - b.a1*b.y1[c] - b.a2*b.y2[c]
			b.x2[c], b.x1[c] = b.x1[c], x
			b.y2[c], b.y1[c] = b.y1[c], y
			samples[i][c] = y
		}
	}
}

// Equalizer is the fixed chain of model.EQBandCount filters: a low shelf,
// peaking bands, and a high shelf.
type Equalizer struct {
	mu      sync.Mutex
	filters []*Biquad
}

// NewEqualizer builds the chain at the standard band centers.
func NewEqualizer(sampleRate beep.SampleRate) (*Equalizer, error) {
	eq := &Equalizer{filters: make([]*Biquad, 0, model.EQBandCount)}
	for i, freq := range model.EQFrequencies {
		kind := Peaking
		switch i {
		case 0:
			kind = LowShelf
		case model.EQBandCount - 1:
			kind = HighShelf
		}
		f, err := NewBiquad(kind, freq, FilterQ, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("eq band %d: %w", i, err)
		}
		eq.filters = append(eq.filters, f)
	}
	return eq, nil
}

// SetGains applies one gain per band. A vector of any other length is
// ignored and reported with false.
func (eq *Equalizer) SetGains(gains []float64) bool {
	if len(gains) != len(eq.filters) {
		return false
	}
	eq.mu.Lock()
	defer eq.mu.Unlock()
	for i, g := range gains {
		if eq.filters[i].Gain() != g {
			eq.filters[i].SetGain(g)
		}
	}
	return true
}

func (eq *Equalizer) Gains() []float64 {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	out := make([]float64, len(eq.filters))
	for i, f := range eq.filters {
		out[i] = f.Gain()
	}
	return out
}

// Bands returns the filters in chain order. Callers must not process audio
// through them.
func (eq *Equalizer) Bands() []*Biquad {
	return eq.filters
}

func (eq *Equalizer) Process(samples [][2]float64) {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	for _, f := range eq.filters {
		f.Process(samples)
	}
}
