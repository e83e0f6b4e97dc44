//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"errors"

	"github.com/gopxl/beep/v2"
)

// SpeakerAvailable indicates whether this build can open a sound device.
// Native output needs cgo on linux.
const SpeakerAvailable = false

func newPlatformOutput(beep.SampleRate) (Output, string, error) {
	return nil, "", errors.New("audio: built without sound device support")
}
