package visual

import (
	"context"
	"time"
)

// Analyser is the frequency source the bridge reads from.
type Analyser interface {
	FrequencyBinCount() int
	ByteFrequencyData(dst []byte)
}

// FrameFunc receives one frame of byte magnitudes. The slice is reused on the
// next tick and must not be retained.
type FrameFunc func(frame []byte)

// Bridge copies analyser output into a reusable buffer once per frame. It
// never touches playback state.
type Bridge struct {
	analyser Analyser
	onFrame  FrameFunc
	buf      []byte
	allocs   int
}

func NewBridge(analyser Analyser, onFrame FrameFunc) *Bridge {
	return &Bridge{analyser: analyser, onFrame: onFrame}
}

// Tick pulls one frame. The buffer is reallocated only when the bin count
// changes.
func (b *Bridge) Tick() {
	if n := b.analyser.FrequencyBinCount(); n != len(b.buf) {
		b.buf = make([]byte, n)
		b.allocs++
	}
	b.analyser.ByteFrequencyData(b.buf)
	b.onFrame(b.buf)
}

// Allocations reports how many times the frame buffer was allocated.
func (b *Bridge) Allocations() int {
	return b.allocs
}

// Run ticks fps times a second until ctx is done.
func (b *Bridge) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.Tick()
		}
	}
}
