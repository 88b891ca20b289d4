// Package wire implements the SoundShare byte-level protocol: the audio
// session header, the length-prefixed FLAC audio frame, and the small
// command frames used by the ping and chat channels.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderMagic identifies a SoundShare audio stream header.
	HeaderMagic uint32 = 0x53534844
	// HeaderVersion is the protocol version this build writes and accepts.
	HeaderVersion uint32 = 2
	// HeaderSize is the fixed wire size of Header, in bytes.
	HeaderSize = 28

	AudioPort = 5000
	PingPort  = 5001
	ChatPort  = 5002
)

// Command bytes shared by the ping and chat channels.
const (
	CmdPingRequest   byte = 0x01
	CmdPingResponse  byte = 0x02
	CmdLatencyReport byte = 0x03
	CmdChatMessage   byte = 0x10
)

var (
	ErrBadMagic       = errors.New("wire: bad header magic")
	ErrBadVersion     = errors.New("wire: unsupported header version")
	ErrBadSampleRate  = errors.New("wire: invalid sample rate")
	ErrBadBitDepth    = errors.New("wire: invalid bits per sample")
	ErrBadChannels    = errors.New("wire: invalid channel count")
	ErrBadCompression = errors.New("wire: invalid compression type")
)

// Header is the 28-byte preamble the streamer sends immediately after a
// receiver connects, describing the audio format that follows.
type Header struct {
	Version         uint32
	SampleRate      int
	BitsPerSample   int
	Channels        int
	FramesPerBuffer int
	ChunkSize       int
	CompressionType int
	IsFloat         bool
}

// ValidSampleRate reports whether sr is one of the six rates SoundShare ever
// negotiates.
func ValidSampleRate(sr int) bool {
	switch sr {
	case 44100, 48000, 88200, 96000, 176400, 192000:
		return true
	default:
		return false
	}
}

// WriteHeader encodes h and writes it to w in one call.
func WriteHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	binary.BigEndian.PutUint32(buf[0:4], HeaderMagic)
	binary.BigEndian.PutUint32(buf[4:8], HeaderVersion)
	binary.BigEndian.PutUint32(buf[8:12], uint32(h.SampleRate))
	binary.BigEndian.PutUint16(buf[12:14], uint16(h.BitsPerSample))
	binary.BigEndian.PutUint16(buf[14:16], uint16(h.Channels))
	binary.BigEndian.PutUint32(buf[16:20], uint32(h.FramesPerBuffer))
	binary.BigEndian.PutUint32(buf[20:24], uint32(h.ChunkSize))
	binary.BigEndian.PutUint16(buf[24:26], uint16(h.CompressionType))
	if h.IsFloat {
		buf[26] = 1
	}
	buf[27] = 0 // reserved

	_, err := w.Write(buf[:])
	if err != nil {
		return fmt.Errorf("wire: write header: %w", err)
	}
	return nil
}

// ReadHeader reads and validates a 28-byte header from r. It rejects any
// version other than HeaderVersion, and any field combination that is not
// one of SoundShare's supported formats.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("wire: read header: %w", err)
	}

	magic := binary.BigEndian.Uint32(buf[0:4])
	if magic != HeaderMagic {
		return Header{}, fmt.Errorf("%w: 0x%08x", ErrBadMagic, magic)
	}

	version := binary.BigEndian.Uint32(buf[4:8])
	if version != HeaderVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrBadVersion, version)
	}

	h := Header{
		Version:         version,
		SampleRate:      int(binary.BigEndian.Uint32(buf[8:12])),
		BitsPerSample:   int(binary.BigEndian.Uint16(buf[12:14])),
		Channels:        int(binary.BigEndian.Uint16(buf[14:16])),
		FramesPerBuffer: int(binary.BigEndian.Uint32(buf[16:20])),
		ChunkSize:       int(binary.BigEndian.Uint32(buf[20:24])),
		CompressionType: int(binary.BigEndian.Uint16(buf[24:26])),
		IsFloat:         buf[26] != 0,
	}

	if !ValidSampleRate(h.SampleRate) {
		return Header{}, fmt.Errorf("%w: %d", ErrBadSampleRate, h.SampleRate)
	}
	if h.BitsPerSample != 16 && h.BitsPerSample != 24 && h.BitsPerSample != 32 {
		return Header{}, fmt.Errorf("%w: %d", ErrBadBitDepth, h.BitsPerSample)
	}
	if h.Channels != 1 && h.Channels != 2 {
		return Header{}, fmt.Errorf("%w: %d", ErrBadChannels, h.Channels)
	}
	if h.CompressionType != 0 && h.CompressionType != 1 {
		return Header{}, fmt.Errorf("%w: %d", ErrBadCompression, h.CompressionType)
	}

	return h, nil
}
