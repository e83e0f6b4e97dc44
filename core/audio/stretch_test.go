package audio

import (
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
)

func constant(n int, v float64) beep.Streamer {
	return beep.Take(n, beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			samples[i] = [2]float64{v, v}
		}
		return len(samples), true
	}))
}

func drain(s beep.Streamer) [][2]float64 {
	var out [][2]float64
	chunk := make([][2]float64, 512)
	for {
		n, ok := s.Stream(chunk)
		out = append(out, chunk[:n]...)
		if !ok {
			return out
		}
	}
}

func TestStretcherChangesLength(t *testing.T) {
	for _, tc := range []struct {
		rate     float64
		expected int
	}{
		{rate: 2, expected: 10000},
		{rate: 0.5, expected: 40000},
		{rate: 1.25, expected: 16000},
	} {
		out := drain(newStretcher(constant(20000, 0.5), tc.rate))
		assert.InDelta(t, tc.expected, len(out), 2*stretchFrame, "rate %v", tc.rate)
	}
}

func TestStretcherKeepsLevel(t *testing.T) {
	out := drain(newStretcher(constant(20000, 0.5), 1.5))
	for i := 2 * stretchFrame; i < len(out)-2*stretchFrame; i++ {
		if !assert.InDelta(t, 0.5, out[i][0], 1e-9, "sample %d", i) {
			return
		}
	}
}

func TestStretcherFlushesLastOverlap(t *testing.T) {
	out := drain(newStretcher(constant(stretchFrame, 0.5), 2))
	assert.Len(t, out, stretchFrame)
	assert.InDelta(t, 0.5, out[stretchHop][0], 1e-9)
	assert.InDelta(t, 0.25, out[stretchHop+stretchHop/2][1], 1e-9)

	assert.Empty(t, drain(newStretcher(constant(0, 0.5), 2)))
}
