// Package audio wraps PortAudio capture/playback streams and the FLAC
// encoder used on the streamer's compression_type=1 path. The receiver side
// never decodes FLAC itself — spec treats received FLAC frames as opaque
// bytes handed straight to Playback.Write.
package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/AbinavDWH/soundshare/internal/audiocfg"
	"github.com/AbinavDWH/soundshare/internal/dsp"
)

// Capture reads raw PCM chunks from the default input device (intended to
// be a loopback/monitor source of the system's audio output) at the format
// described by cfg.
type Capture struct {
	cfg    audiocfg.AudioConfig
	stream *portaudio.Stream
	buf    []int32 // one buffer of interleaved samples (FramesPerBuffer × Channels), native PortAudio width

	chains  []*dsp.Chain // one noise-gate+AGC chain per channel, if enabled
	chanBuf []float32    // per-channel scratch for de-interleaving into chains

	mu      sync.Mutex
	running atomic.Bool
}

// OpenCapture opens a PortAudio input stream formatted per cfg. The stream
// is started immediately; call Read in a loop and Close when done. When
// conditionPCM is true, each channel's signal is run through a noise gate
// and AGC stage before it reaches the wire.
func OpenCapture(cfg audiocfg.AudioConfig, conditionPCM bool) (*Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: portaudio init: %w", err)
	}

	c := &Capture{
		cfg: cfg,
		buf: make([]int32, cfg.FramesPerBuffer*cfg.Channels),
	}
	if conditionPCM {
		c.chains = make([]*dsp.Chain, cfg.Channels)
		for i := range c.chains {
			c.chains[i] = dsp.NewChain()
		}
		c.chanBuf = make([]float32, cfg.FramesPerBuffer)
	}

	stream, err := portaudio.OpenDefaultStream(
		cfg.Channels, 0, float64(cfg.SampleRate), cfg.FramesPerBuffer, c.buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: open capture stream: %w", err)
	}
	c.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: start capture stream: %w", err)
	}
	c.running.Store(true)

	return c, nil
}

// Read blocks until one chunk_size buffer of PCM is captured, packs it into
// dst at cfg.BytesPerSample width, and returns the number of bytes written.
// dst must be at least cfg.ChunkSize bytes.
func (c *Capture) Read(dst []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running.Load() {
		return 0, fmt.Errorf("audio: capture closed")
	}

	if err := c.stream.Read(); err != nil {
		return 0, fmt.Errorf("audio: capture read: %w", err)
	}

	if c.chains != nil {
		c.condition()
	}

	n := packPCM(dst, c.buf, c.cfg.BytesPerSample)
	return n, nil
}

// condition de-interleaves c.buf by channel, runs each channel's noise-gate
// and AGC chain over it as float32, and re-interleaves the result back into
// c.buf — PortAudio's native int32 samples are full-scale signed values, so
// the float32 view is simply a fixed-point division by 1<<31 - 1.
const int32Scale = float32(1<<31 - 1)

func (c *Capture) condition() {
	channels := c.cfg.Channels
	frames := c.cfg.FramesPerBuffer

	for ch := 0; ch < channels; ch++ {
		for f := 0; f < frames; f++ {
			c.chanBuf[f] = float32(c.buf[f*channels+ch]) / int32Scale
		}
		c.chains[ch].Process(c.chanBuf)
		for f := 0; f < frames; f++ {
			v := c.chanBuf[f]
			if v > 1.0 {
				v = 1.0
			} else if v < -1.0 {
				v = -1.0
			}
			c.buf[f*channels+ch] = int32(v * int32Scale)
		}
	}
}

// Close stops and releases the capture stream. Stop is called before the
// stream is closed so any in-flight Read returns before the underlying
// buffers are freed — the same ordering the original adapter enforced to
// avoid a use-after-free race between the audio callback and Close.
func (c *Capture) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.stream.Stop()
	if cerr := c.stream.Close(); err == nil {
		err = cerr
	}
	portaudio.Terminate()
	if err != nil {
		return fmt.Errorf("audio: close capture: %w", err)
	}
	return nil
}

// packPCM writes src (one int32 per sample, PortAudio's native width) into
// dst at the requested byte width, little-endian, truncating 32-bit samples
// to 16-bit when bytesPerSample is 2.
func packPCM(dst []byte, src []int32, bytesPerSample int) int {
	n := 0
	for _, s := range src {
		switch bytesPerSample {
		case 2:
			v := int16(s >> 16)
			dst[n] = byte(v)
			dst[n+1] = byte(v >> 8)
			n += 2
		default: // 4
			dst[n] = byte(s)
			dst[n+1] = byte(s >> 8)
			dst[n+2] = byte(s >> 16)
			dst[n+3] = byte(s >> 24)
			n += 4
		}
	}
	return n
}
