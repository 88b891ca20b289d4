package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// DefaultCaptureDeviceName returns the host API's default input device
// name. True "loopback of system output" selection is host-OS specific
// (e.g. a PulseAudio monitor source); SoundShare only logs the default input
// device name. It does not auto-detect a monitor source, and capture always
// opens the default input device; no option selects another one.
func DefaultCaptureDeviceName() (string, error) {
	if err := portaudio.Initialize(); err != nil {
		return "", fmt.Errorf("audio: portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return "", fmt.Errorf("audio: default input device: %w", err)
	}
	return dev.Name, nil
}
