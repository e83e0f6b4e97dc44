package visual

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyser struct {
	bins  int
	value byte
}

func (f *fakeAnalyser) FrequencyBinCount() int { return f.bins }

func (f *fakeAnalyser) ByteFrequencyData(dst []byte) {
	for i := range dst {
		dst[i] = f.value
	}
}

func TestTickReusesBuffer(t *testing.T) {
	an := &fakeAnalyser{bins: 1024, value: 9}
	var frames [][]byte
	b := NewBridge(an, func(frame []byte) { frames = append(frames, frame) })

	for i := 0; i < 5; i++ {
		b.Tick()
	}
	require.Len(t, frames, 5)
	assert.Equal(t, 1, b.Allocations())
	assert.Len(t, frames[4], 1024)
	assert.Equal(t, byte(9), frames[4][0])
	assert.Same(t, &frames[0][0], &frames[4][0])

	an.bins = 256
	b.Tick()
	b.Tick()
	assert.Equal(t, 2, b.Allocations())
	assert.Len(t, frames[6], 256)
}

func TestRunStopsWithContext(t *testing.T) {
	an := &fakeAnalyser{bins: 8}
	ticks := make(chan struct{}, 100)
	b := NewBridge(an, func([]byte) {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := b.Run(ctx, 100)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotEmpty(t, ticks)
}
