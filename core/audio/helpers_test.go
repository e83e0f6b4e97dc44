package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// wavTone renders a 16-bit stereo PCM WAV of a sine at freq.
func wavTone(t *testing.T, rate int, seconds, freq, amp float64) []byte {
	t.Helper()
	frames := int(float64(rate) * seconds)
	var pcm bytes.Buffer
	for i := 0; i < frames; i++ {
		v := int16(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)) * math.MaxInt16)
		require.NoError(t, binary.Write(&pcm, binary.LittleEndian, [2]int16{v, v}))
	}

	var out bytes.Buffer
	w := func(v any) { require.NoError(t, binary.Write(&out, binary.LittleEndian, v)) }
	out.WriteString("RIFF")
	w(uint32(36 + pcm.Len()))
	out.WriteString("WAVE")
	out.WriteString("fmt ")
	w(uint32(16))
	w(uint16(1))
	w(uint16(2))
	w(uint32(rate))
	w(uint32(rate * 4))
	w(uint16(4))
	w(uint16(16))
	out.WriteString("data")
	w(uint32(pcm.Len()))
	out.Write(pcm.Bytes())
	return out.Bytes()
}

type mapResolver struct {
	mu    sync.Mutex
	data  map[string][]byte
	calls map[string]int
}

func newMapResolver() *mapResolver {
	return &mapResolver{data: map[string][]byte{}, calls: map[string]int{}}
}

func (r *mapResolver) put(uri string, data []byte) {
	r.mu.Lock()
	r.data[uri] = data
	r.mu.Unlock()
}

func (r *mapResolver) Resolve(uri string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[uri]++
	data, ok := r.data[uri]
	if !ok {
		return nil, fmt.Errorf("unknown uri %q", uri)
	}
	return data, nil
}

func (r *mapResolver) callCount(uri string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[uri]
}

func peak(samples [][2]float64) float64 {
	m := 0.0
	for _, s := range samples {
		m = max(m, math.Abs(s[0]), math.Abs(s[1]))
	}
	return m
}
