package audio

import (
	"math"

	"github.com/gopxl/beep/v2"
)

const (
	stretchFrame = 2048
	stretchHop   = stretchFrame / 2
)

// stretcher changes tempo without changing pitch by windowed overlap-add:
// Hann frames are read every stretchHop*rate input samples and laid down
// every stretchHop output samples.
type stretcher struct {
	src  beep.Streamer
	rate float64

	window []float64
	in     [][2]float64
	acc    [][2]float64
	out    [][2]float64
	frac   float64

	drained bool
	laid    bool
	flushed bool
	err     error
}

func newStretcher(src beep.Streamer, rate float64) *stretcher {
	s := &stretcher{
		src:    src,
		rate:   rate,
		window: make([]float64, stretchFrame),
		acc:    make([][2]float64, stretchFrame),
		out:    make([][2]float64, 0, stretchHop),
	}
	for i := range s.window {
		s.window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/stretchFrame)
	}
	return s
}

func (s *stretcher) Stream(samples [][2]float64) (int, bool) {
	n := 0
	for n < len(samples) {
		if len(s.out) == 0 && !s.step() {
			break
		}
		c := copy(samples[n:], s.out)
		s.out = s.out[c:]
		n += c
	}
	return n, n > 0
}

func (s *stretcher) Err() error {
	return s.err
}

func (s *stretcher) fill() {
	for !s.drained && len(s.in) < stretchFrame {
		chunk := make([][2]float64, stretchFrame-len(s.in))
		n, ok := s.src.Stream(chunk)
		s.in = append(s.in, chunk[:n]...)
		if !ok || n == 0 {
			s.drained = true
			s.err = s.src.Err()
		}
	}
}

func (s *stretcher) step() bool {
	s.fill()
	if s.drained && len(s.in) == 0 {
		// the last frame's overlap is still in acc
		if !s.laid || s.flushed {
			return false
		}
		s.flushed = true
		s.out = append(s.out[:0], s.acc[:stretchFrame-stretchHop]...)
		clear(s.acc)
		return true
	}

	for i := 0; i < stretchFrame; i++ {
		if i >= len(s.in) {
			break
		}
		w := s.window[i]
		s.acc[i][0] += s.in[i][0] * w
		s.acc[i][1] += s.in[i][1] * w
	}
	s.laid = true

	s.out = append(s.out[:0], s.acc[:stretchHop]...)
	copy(s.acc, s.acc[stretchHop:])
	clear(s.acc[stretchFrame-stretchHop:])

	s.frac += stretchHop * s.rate
	adv := int(s.frac)
	s.frac -= float64(adv)
	s.in = s.in[min(adv, len(s.in)):]
	return true
}
