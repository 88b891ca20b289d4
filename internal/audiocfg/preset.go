// Package audiocfg holds the quality preset table and the AudioConfig
// derivation logic shared by the streamer and receiver.
package audiocfg

import (
	"fmt"

	"github.com/AbinavDWH/soundshare/internal/wire"
)

// NumPresets is the number of built-in quality presets.
const NumPresets = 7

// QualityNames are the human-readable labels for each preset, in the same
// order as Presets.
var QualityNames = [NumPresets]string{
	"Ultra Low  – 44.1 kHz Mono 16-bit",
	"Low Latency – 44.1 kHz Stereo 16-bit",
	"Balanced    – 48 kHz Stereo 16-bit",
	"High Quality – 48 kHz Stereo 24-bit",
	"Maximum     – 48 kHz Stereo 24-bit",
	"Hi-Res      – 96 kHz Stereo 24-bit",
	"Hi-Res Ultra – 192 kHz Stereo 24-bit",
}

// PresetData is the raw, non-derived shape of a quality preset.
type PresetData struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
	BitsPerSample   int
	Compression     int // 0 = PCM, 1 = FLAC
	IsFloat         bool
}

// Presets is the built-in quality preset table, indexed by preset number.
var Presets = [NumPresets]PresetData{
	{44100, 1, 32, 16, 0, false},
	{44100, 2, 32, 16, 0, false},
	{48000, 2, 240, 16, 0, false},
	{48000, 2, 4800, 24, 0, false},
	{48000, 2, 9600, 24, 0, false},
	{96000, 2, 96000, 24, 0, false},
	{192000, 2, 192000, 24, 0, false},
}

// AudioConfig is the fully-derived audio format in effect for a session.
type AudioConfig struct {
	SampleRate       int
	Channels         int
	FramesPerBuffer  int
	BitsPerSample    int
	BytesPerSample   int
	CompressionType  int
	IsFloat          bool
	IsHiRes          bool
	UseFLAC          bool
	ChunkSize        int
	SocketBufferSize int
	PresetIndex      int
	PAFormat         string
}

// LoadPreset builds an AudioConfig from a preset index, falling back to the
// Balanced preset (index 2) for an out-of-range index.
func LoadPreset(idx int) AudioConfig {
	if idx < 0 || idx >= NumPresets {
		idx = 2
	}
	p := Presets[idx]

	cfg := AudioConfig{
		PresetIndex:     idx,
		SampleRate:      p.SampleRate,
		Channels:        p.Channels,
		FramesPerBuffer: p.FramesPerBuffer,
		BitsPerSample:   p.BitsPerSample,
		CompressionType: p.Compression,
		IsFloat:         p.IsFloat,
	}
	computeDerived(&cfg)
	return cfg
}

// FromHeader rebuilds an AudioConfig from the fields carried on the wire, as
// the receiver does after reading the streamer's Header. The preset index is
// a best-effort guess; the derivation runs off the raw fields except for the
// socket buffer multiplier, which reads the guessed index (never 0 or 1
// here), so SocketBufferSize can differ from the streamer's for presets 0
// and 1.
func FromHeader(h wire.Header) AudioConfig {
	cfg := AudioConfig{
		SampleRate:      h.SampleRate,
		Channels:        h.Channels,
		FramesPerBuffer: h.FramesPerBuffer,
		BitsPerSample:   h.BitsPerSample,
		CompressionType: h.CompressionType,
		IsFloat:         h.IsFloat,
	}
	switch {
	case h.CompressionType == 1:
		cfg.PresetIndex = 7 // sentinel: no exact preset, FLAC-derived
	case h.SampleRate > 48000:
		cfg.PresetIndex = 5
	default:
		cfg.PresetIndex = 2
	}
	computeDerived(&cfg)
	return cfg
}

func computeDerived(cfg *AudioConfig) {
	switch {
	case cfg.IsFloat:
		cfg.BytesPerSample = 4
		cfg.PAFormat = "float32le"
	case cfg.BitsPerSample >= 24:
		cfg.BytesPerSample = 4 // 24-bit samples travel in a 32-bit container
		cfg.PAFormat = "s32le"
	default:
		cfg.BytesPerSample = 2
		cfg.PAFormat = "s16le"
	}

	cfg.UseFLAC = cfg.CompressionType == 1
	cfg.IsHiRes = cfg.SampleRate > 48000 ||
		cfg.BitsPerSample > 24 ||
		(cfg.BitsPerSample == 24 && cfg.SampleRate >= 96000)

	cfg.ChunkSize = cfg.FramesPerBuffer * cfg.Channels * cfg.BytesPerSample

	switch {
	case cfg.IsHiRes:
		cfg.SocketBufferSize = cfg.ChunkSize * 4
	case cfg.UseFLAC:
		cfg.SocketBufferSize = cfg.ChunkSize * 2
	case cfg.PresetIndex <= 1:
		cfg.SocketBufferSize = cfg.ChunkSize * 2
	default:
		cfg.SocketBufferSize = cfg.ChunkSize * 4
	}
}

// Header converts cfg into the wire.Header sent to a newly-connected
// receiver.
func (cfg AudioConfig) Header() wire.Header {
	return wire.Header{
		Version:         wire.HeaderVersion,
		SampleRate:      cfg.SampleRate,
		BitsPerSample:   cfg.BitsPerSample,
		Channels:        cfg.Channels,
		FramesPerBuffer: cfg.FramesPerBuffer,
		ChunkSize:       cfg.ChunkSize,
		CompressionType: cfg.CompressionType,
		IsFloat:         cfg.IsFloat,
	}
}

// BufferLatencyMs is the one-way latency contributed by a single capture
// buffer at this sample rate.
func (cfg AudioConfig) BufferLatencyMs() float64 {
	return float64(cfg.FramesPerBuffer) * 1000.0 / float64(cfg.SampleRate)
}

// RawBitrateKbps is the uncompressed bitrate this format implies.
func (cfg AudioConfig) RawBitrateKbps() int64 {
	return int64(cfg.SampleRate) * int64(cfg.Channels) * int64(cfg.BitsPerSample) / 1000
}

// FormatString is a one-line human-readable description of cfg, e.g.
// "PCM 24-bit Stereo (4.6 Mbps raw) [Hi-Res]" for 96 kHz.
func (cfg AudioConfig) FormatString() string {
	codec := "PCM"
	if cfg.UseFLAC {
		codec = "FLAC"
	}
	float := ""
	if cfg.IsFloat {
		float = " Float"
	}
	hires := ""
	if cfg.IsHiRes {
		hires = " [Hi-Res]"
	}
	mbps := float64(cfg.SampleRate) * float64(cfg.Channels) * float64(cfg.BitsPerSample) / 1e6
	return fmt.Sprintf("%s %d-bit%s %s (%.1f Mbps raw)%s",
		codec, cfg.BitsPerSample, float, cfg.ChannelString(), mbps, hires)
}

// SampleRateString renders the sample rate in kHz (or Hz below 1000 Hz).
func (cfg AudioConfig) SampleRateString() string {
	if cfg.SampleRate >= 1000 {
		return fmt.Sprintf("%.1f kHz", float64(cfg.SampleRate)/1000.0)
	}
	return fmt.Sprintf("%d Hz", cfg.SampleRate)
}

// ChannelString is "Mono" or "Stereo".
func (cfg AudioConfig) ChannelString() string {
	if cfg.Channels == 1 {
		return "Mono"
	}
	return "Stereo"
}

// CompressionString describes the compression/resolution combination.
func (cfg AudioConfig) CompressionString() string {
	switch {
	case cfg.UseFLAC && cfg.IsHiRes:
		return "Hi-Res FLAC Lossless"
	case cfg.UseFLAC:
		return "FLAC Lossless"
	case cfg.IsHiRes:
		return "Hi-Res PCM"
	default:
		return "Uncompressed PCM"
	}
}
