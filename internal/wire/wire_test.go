package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		SampleRate:      48000,
		BitsPerSample:   24,
		Channels:        2,
		FramesPerBuffer: 4800,
		ChunkSize: 4800 * 2 * 4,
		CompressionType: 0,
		IsFloat:         false,
	}

	var buf bytes.Buffer
	if err := WriteHeader(&buf, h); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if buf.Len() != HeaderSize {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), HeaderSize)
	}

	got, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got.SampleRate != h.SampleRate || got.Channels != h.Channels ||
		got.BitsPerSample != h.BitsPerSample || got.CompressionType != h.CompressionType {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
	if got.Version != HeaderVersion {
		t.Fatalf("got version %d, want %d", got.Version, HeaderVersion)
	}
}

func TestReadHeaderBadMagic(t *testing.T) {
	buf := bytes.Repeat([]byte{0xff}, HeaderSize)
	_, err := ReadHeader(bytes.NewReader(buf))
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("got %v, want ErrBadMagic", err)
	}
}

func TestReadHeaderRejectsFutureVersion(t *testing.T) {
	var buf bytes.Buffer
	WriteHeader(&buf, Header{SampleRate: 48000, BitsPerSample: 16, Channels: 2, FramesPerBuffer: 240})
	raw := buf.Bytes()
	raw[7] = byte(HeaderVersion + 1) // version is big-endian uint32 at offset 4

	_, err := ReadHeader(bytes.NewReader(raw))
	if !errors.Is(err, ErrBadVersion) {
		t.Fatalf("got %v, want ErrBadVersion", err)
	}
}

func TestReadHeaderRejectsBadSampleRate(t *testing.T) {
	var buf bytes.Buffer
	WriteHeader(&buf, Header{SampleRate: 22050, BitsPerSample: 16, Channels: 1, FramesPerBuffer: 32})
	_, err := ReadHeader(&buf)
	if !errors.Is(err, ErrBadSampleRate) {
		t.Fatalf("got %v, want ErrBadSampleRate", err)
	}
}

func TestValidSampleRate(t *testing.T) {
	valid := []int{44100, 48000, 88200, 96000, 176400, 192000}
	for _, sr := range valid {
		if !ValidSampleRate(sr) {
			t.Errorf("ValidSampleRate(%d) = false, want true", sr)
		}
	}
	if ValidSampleRate(22050) {
		t.Error("ValidSampleRate(22050) = true, want false")
	}
}

func TestChatMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChatMessage(&buf, "alice", "hello there"); err != nil {
		t.Fatalf("WriteChatMessage: %v", err)
	}

	cmd, err := buf.ReadByte()
	if err != nil || cmd != CmdChatMessage {
		t.Fatalf("cmd byte = %v, %v, want CmdChatMessage", cmd, err)
	}

	sender, msg, err := ReadChatBody(&buf)
	if err != nil {
		t.Fatalf("ReadChatBody: %v", err)
	}
	if sender != "alice" || msg != "hello there" {
		t.Fatalf("got (%q, %q), want (alice, hello there)", sender, msg)
	}
}

func TestLatencyReportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLatencyReport(&buf, 42); err != nil {
		t.Fatalf("WriteLatencyReport: %v", err)
	}
	cmd, _ := buf.ReadByte()
	if cmd != CmdLatencyReport {
		t.Fatalf("cmd = %v, want CmdLatencyReport", cmd)
	}
	ms, err := ReadLatencyReportBody(&buf)
	if err != nil {
		t.Fatalf("ReadLatencyReportBody: %v", err)
	}
	if ms != 42 {
		t.Fatalf("ms = %d, want 42", ms)
	}
}

func TestFLACFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	frame := []byte{1, 2, 3, 4, 5}
	if err := WriteFLACFrame(&buf, frame); err != nil {
		t.Fatalf("WriteFLACFrame: %v", err)
	}

	out := make([]byte, 64)
	got, err := ReadFLACFrame(&buf, out)
	if err != nil {
		t.Fatalf("ReadFLACFrame: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Fatalf("got %v, want %v", got, frame)
	}
}

func TestFLACFrameRejectsOversizeLength(t *testing.T) {
	var buf bytes.Buffer
	WriteFLACFrame(&buf, bytes.Repeat([]byte{9}, 100))
	small := make([]byte, 10)
	_, err := ReadFLACFrame(&buf, small)
	if !errors.Is(err, ErrCorruptFrame) {
		t.Fatalf("got %v, want ErrCorruptFrame", err)
	}
}

func TestReadFLACFrameCorruptThenResync(t *testing.T) {
	var buf bytes.Buffer
	WriteFLACFrame(&buf, bytes.Repeat([]byte{9}, 100)) // too big for out
	WriteFLACFrame(&buf, []byte{1, 2, 3})

	out := make([]byte, 10)
	if _, err := ReadFLACFrame(&buf, out); !errors.Is(err, ErrCorruptFrame) {
		t.Fatalf("first read: got %v, want ErrCorruptFrame", err)
	}

	got, err := ReadFLACFrame(&buf, out)
	if err != nil {
		t.Fatalf("second read after corrupt frame: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("got %v, want next frame intact", got)
	}
}

func TestChatMessageAcceptsExactBoundary(t *testing.T) {
	var buf bytes.Buffer
	sender := string(bytes.Repeat([]byte{'a'}, ChatMaxSender))
	message := string(bytes.Repeat([]byte{'b'}, ChatMaxMsg))

	if err := WriteChatMessage(&buf, sender, message); err != nil {
		t.Fatalf("WriteChatMessage at exact limits: %v", err)
	}
	buf.ReadByte()
	gotSender, gotMsg, err := ReadChatBody(&buf)
	if err != nil {
		t.Fatalf("ReadChatBody at exact limits: %v", err)
	}
	if gotSender != sender || gotMsg != message {
		t.Fatal("round trip at exact boundary lengths mismatched")
	}
}

func TestChatMessageRejectsOverLimit(t *testing.T) {
	var buf bytes.Buffer
	sender := string(bytes.Repeat([]byte{'a'}, ChatMaxSender+1))
	if err := WriteChatMessage(&buf, sender, "hi"); err == nil {
		t.Fatal("expected error for sender exceeding ChatMaxSender")
	}
}
