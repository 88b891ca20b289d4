package audio

import (
	"fmt"

	goflac "github.com/drgolem/go-flac"

	"github.com/AbinavDWH/soundshare/internal/audiocfg"
)

// FLACEncoder wraps the go-flac stream encoder for the streamer's
// compression_type=1 path. Only the encoder side is wired — the receiver
// treats a FLAC frame as opaque bytes for an external playback sink, so no
// decoder is needed in this module.
type FLACEncoder struct {
	enc           *goflac.FlacEncoder
	bitsPerSample int
	channels      int
	scratch       []int32
}

// NewFLACEncoder configures a go-flac encoder for cfg's format and
// initializes it in stream mode, ready to accept PCM via Encode.
func NewFLACEncoder(cfg audiocfg.AudioConfig) (*FLACEncoder, error) {
	enc, err := goflac.NewFlacEncoder(cfg.SampleRate, cfg.Channels, cfg.BitsPerSample)
	if err != nil {
		return nil, fmt.Errorf("audio: new flac encoder: %w", err)
	}
	if err := enc.SetCompressionLevel(5); err != nil {
		enc.Close()
		return nil, fmt.Errorf("audio: set compression level: %w", err)
	}
	if err := enc.InitStream(); err != nil {
		enc.Close()
		return nil, fmt.Errorf("audio: init flac stream: %w", err)
	}

	return &FLACEncoder{
		enc:           enc,
		bitsPerSample: cfg.BitsPerSample,
		channels:      cfg.Channels,
		scratch:       make([]int32, cfg.FramesPerBuffer*cfg.Channels),
	}, nil
}

// Encode converts one chunk of interleaved PCM bytes to int32 samples and
// feeds them to the encoder, returning any compressed bytes the encoder
// produced for this chunk (libFLAC buffers internally, so output may lag
// input by a frame or arrive in larger batches).
func (f *FLACEncoder) Encode(pcm []byte) ([]byte, error) {
	n := goflac.PCMToInt32(pcm, f.bitsPerSample, f.scratch)
	numSamples := n / f.channels
	if numSamples <= 0 {
		return nil, nil
	}

	if err := f.enc.ProcessInterleaved(f.scratch, numSamples); err != nil {
		return nil, fmt.Errorf("audio: flac encode: %w", err)
	}
	return f.enc.TakeBytes(), nil
}

// Close finalizes and releases the encoder, flushing any trailing
// compressed bytes.
func (f *FLACEncoder) Close() ([]byte, error) {
	if err := f.enc.Finish(); err != nil {
		f.enc.Close()
		return nil, fmt.Errorf("audio: finish flac encoder: %w", err)
	}
	trailing := f.enc.TakeBytes()
	f.enc.Close()
	return trailing, nil
}
