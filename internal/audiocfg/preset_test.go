package audiocfg

import (
	"math"
	"testing"
)

func TestLoadPresetBalanced(t *testing.T) {
	cfg := LoadPreset(2)
	if cfg.SampleRate != 48000 || cfg.Channels != 2 || cfg.BitsPerSample != 16 {
		t.Fatalf("got %+v", cfg)
	}
	if cfg.ChunkSize != 240*2*2 {
		t.Fatalf("chunk size = %d, want %d", cfg.ChunkSize, 240*2*2)
	}
	// preset_index > 1, not hi-res, not FLAC -> 4x chunk size
	if cfg.SocketBufferSize != cfg.ChunkSize*4 {
		t.Fatalf("socket buffer = %d, want %d", cfg.SocketBufferSize, cfg.ChunkSize*4)
	}
}

func TestLoadPresetOutOfRangeFallsBackToBalanced(t *testing.T) {
	cfg := LoadPreset(99)
	if cfg.PresetIndex != 2 {
		t.Fatalf("preset index = %d, want 2", cfg.PresetIndex)
	}
}

func TestLoadPresetUltraLowUses2xSocketBuffer(t *testing.T) {
	cfg := LoadPreset(0)
	if cfg.SocketBufferSize != cfg.ChunkSize*2 {
		t.Fatalf("socket buffer = %d, want %d", cfg.SocketBufferSize, cfg.ChunkSize*2)
	}
}

func TestLoadPresetHiResUses4xRegardlessOfIndex(t *testing.T) {
	cfg := LoadPreset(5) // 96kHz 24-bit
	if !cfg.IsHiRes {
		t.Fatal("expected IsHiRes")
	}
	if cfg.SocketBufferSize != cfg.ChunkSize*4 {
		t.Fatalf("socket buffer = %d, want %d", cfg.SocketBufferSize, cfg.ChunkSize*4)
	}
}

func TestBitsPerSample24Uses32BitContainer(t *testing.T) {
	cfg := LoadPreset(3)
	if cfg.BytesPerSample != 4 {
		t.Fatalf("bytes per sample = %d, want 4", cfg.BytesPerSample)
	}
	if cfg.PAFormat != "s32le" {
		t.Fatalf("pa format = %q, want s32le", cfg.PAFormat)
	}
}

func TestIsHiResBoundary(t *testing.T) {
	// 24-bit at 48kHz is not hi-res; 24-bit at 96kHz is.
	lo := AudioConfig{BitsPerSample: 24, SampleRate: 48000}
	computeDerived(&lo)
	if lo.IsHiRes {
		t.Fatal("48kHz/24-bit should not be hi-res")
	}

	hi := AudioConfig{BitsPerSample: 24, SampleRate: 96000}
	computeDerived(&hi)
	if !hi.IsHiRes {
		t.Fatal("96kHz/24-bit should be hi-res")
	}
}

func TestFromHeaderRecomputesDerivedFields(t *testing.T) {
	h := Presets[3]
	cfg := LoadPreset(3)
	fromHdr := FromHeader(cfg.Header())
	if fromHdr.SampleRate != h.SampleRate || fromHdr.ChunkSize != cfg.ChunkSize {
		t.Fatalf("got %+v, want chunk size %d", fromHdr, cfg.ChunkSize)
	}
}

func TestBufferLatencyMs(t *testing.T) {
	cfg := LoadPreset(2) // 48000 Hz, 240 frames/buffer
	got := cfg.BufferLatencyMs()
	want := 5.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCompressionString(t *testing.T) {
	cfg := LoadPreset(2)
	cfg.UseFLAC = true
	cfg.IsHiRes = true
	if got := cfg.CompressionString(); got != "Hi-Res FLAC Lossless" {
		t.Fatalf("got %q", got)
	}
}

func TestDetectCapabilities(t *testing.T) {
	caps := DetectCapabilities(false)
	if caps.SupportsFLACEncode {
		t.Fatal("expected FLAC encode unavailable")
	}
	if !IsHiResCapable(caps) {
		t.Fatal("expected hi-res capable by default")
	}
	if caps.MaxSampleRate != 192000 || caps.MaxBitDepth != 32 {
		t.Fatalf("got %+v", caps)
	}
}
