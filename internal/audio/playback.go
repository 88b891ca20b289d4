package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/AbinavDWH/soundshare/internal/audiocfg"
)

// Playback writes raw PCM chunks to the default output device at the
// format described by cfg. It has no FLAC decoder.
type Playback struct {
	cfg    audiocfg.AudioConfig
	stream *portaudio.Stream
	buf    []int32

	mu      sync.Mutex
	running atomic.Bool
}

// OpenPlayback opens a PortAudio output stream formatted per cfg.
func OpenPlayback(cfg audiocfg.AudioConfig) (*Playback, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: portaudio init: %w", err)
	}

	p := &Playback{
		cfg: cfg,
		buf: make([]int32, cfg.FramesPerBuffer*cfg.Channels),
	}

	stream, err := portaudio.OpenDefaultStream(
		0, cfg.Channels, float64(cfg.SampleRate), cfg.FramesPerBuffer, p.buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: open playback stream: %w", err)
	}
	p.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: start playback stream: %w", err)
	}
	p.running.Store(true)

	return p, nil
}

// Write unpacks a chunk of PCM bytes at cfg.BytesPerSample width and plays
// it. In a FLAC-compressed session the receiver passes each frame's bytes to
// Write unchanged; Write does not decode them and treats them as PCM.
func (p *Playback) Write(pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running.Load() {
		return fmt.Errorf("audio: playback closed")
	}

	unpackPCM(p.buf, pcm, p.cfg.BytesPerSample)
	if err := p.stream.Write(); err != nil {
		return fmt.Errorf("audio: playback write: %w", err)
	}
	return nil
}

// Close stops and releases the playback stream, stopping the stream before
// closing it for the same reason Capture does.
func (p *Playback) Close() error {
	if !p.running.CompareAndSwap(true, false) {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.stream.Stop()
	if cerr := p.stream.Close(); err == nil {
		err = cerr
	}
	portaudio.Terminate()
	if err != nil {
		return fmt.Errorf("audio: close playback: %w", err)
	}
	return nil
}

func unpackPCM(dst []int32, src []byte, bytesPerSample int) {
	i := 0
	for n := range dst {
		if i+bytesPerSample > len(src) {
			dst[n] = 0
			continue
		}
		switch bytesPerSample {
		case 2:
			v := int16(src[i]) | int16(src[i+1])<<8
			dst[n] = int32(v) << 16
		default: // 4
			dst[n] = int32(src[i]) | int32(src[i+1])<<8 |
				int32(src[i+2])<<16 | int32(src[i+3])<<24
		}
		i += bytesPerSample
	}
}
