//go:build (linux && cgo) || windows || darwin

package audio

import (
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// SpeakerAvailable indicates whether this build can open a sound device.
const SpeakerAvailable = true

type speakerOutput struct {
	rate beep.SampleRate
}

func newPlatformOutput(rate beep.SampleRate) (Output, string, error) {
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return nil, "", err
	}
	return &speakerOutput{rate: rate}, "speaker", nil
}

func (o *speakerOutput) SampleRate() beep.SampleRate { return o.rate }

func (o *speakerOutput) Start(src beep.Streamer) error {
	speaker.Play(src)
	return nil
}

func (o *speakerOutput) Suspend() error { return speaker.Suspend() }

func (o *speakerOutput) Resume() error { return speaker.Resume() }

func (o *speakerOutput) Close() error {
	speaker.Close()
	return nil
}
