package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	ChatMaxSender = 256
	ChatMaxMsg    = 4096
)

// ErrCorruptFrame marks a frame whose self-reported length is invalid. It is
// a soft error: the caller should log it and keep reading the next frame,
// not treat it as a disconnect.
var ErrCorruptFrame = errors.New("wire: corrupt frame")

// WriteChatMessage writes a CmdChatMessage frame: command byte, 2-byte
// sender length, sender bytes, 2-byte message length, message bytes.
func WriteChatMessage(w io.Writer, sender, message string) error {
	if len(sender) > ChatMaxSender {
		return fmt.Errorf("wire: chat sender too long: %d bytes", len(sender))
	}
	if len(message) > ChatMaxMsg {
		return fmt.Errorf("wire: chat message too long: %d bytes", len(message))
	}

	hdr := make([]byte, 3, 3+len(sender)+2+len(message))
	hdr[0] = CmdChatMessage
	binary.BigEndian.PutUint16(hdr[1:3], uint16(len(sender)))
	hdr = append(hdr, sender...)

	mlen := make([]byte, 2)
	binary.BigEndian.PutUint16(mlen, uint16(len(message)))
	hdr = append(hdr, mlen...)
	hdr = append(hdr, message...)

	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("wire: write chat message: %w", err)
	}
	return nil
}

// ReadChatBody reads the sender+message body of a chat frame, assuming the
// CmdChatMessage command byte has already been consumed by the caller.
func ReadChatBody(r io.Reader) (sender, message string, err error) {
	var lbuf [2]byte

	if _, err = io.ReadFull(r, lbuf[:]); err != nil {
		return "", "", fmt.Errorf("wire: read sender length: %w", err)
	}
	slen := binary.BigEndian.Uint16(lbuf[:])
	if int(slen) > ChatMaxSender {
		return "", "", fmt.Errorf("wire: chat sender length %d exceeds limit", slen)
	}
	sbuf := make([]byte, slen)
	if _, err = io.ReadFull(r, sbuf); err != nil {
		return "", "", fmt.Errorf("wire: read sender: %w", err)
	}

	if _, err = io.ReadFull(r, lbuf[:]); err != nil {
		return "", "", fmt.Errorf("wire: read message length: %w", err)
	}
	mlen := binary.BigEndian.Uint16(lbuf[:])
	if int(mlen) > ChatMaxMsg {
		return "", "", fmt.Errorf("wire: chat message length %d exceeds limit", mlen)
	}
	mbuf := make([]byte, mlen)
	if _, err = io.ReadFull(r, mbuf); err != nil {
		return "", "", fmt.Errorf("wire: read message: %w", err)
	}

	return string(sbuf), string(mbuf), nil
}

// WriteLatencyReport writes a CmdLatencyReport frame carrying an 8-byte
// big-endian millisecond value, as sent by the ping client back to the
// streamer after each successful round trip.
func WriteLatencyReport(w io.Writer, ms int64) error {
	var buf [9]byte
	buf[0] = CmdLatencyReport
	binary.BigEndian.PutUint64(buf[1:9], uint64(ms))
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("wire: write latency report: %w", err)
	}
	return nil
}

// ReadLatencyReportBody reads the 8-byte millisecond payload of a
// CmdLatencyReport frame, assuming the command byte was already consumed.
func ReadLatencyReportBody(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("wire: read latency report: %w", err)
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

// WriteFLACFrame writes a length-prefixed compressed audio frame: a 4-byte
// big-endian length followed by the frame bytes.
func WriteFLACFrame(w io.Writer, frame []byte) error {
	var lbuf [4]byte
	binary.BigEndian.PutUint32(lbuf[:], uint32(len(frame)))
	if _, err := w.Write(lbuf[:]); err != nil {
		return fmt.Errorf("wire: write flac frame length: %w", err)
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("wire: write flac frame: %w", err)
	}
	return nil
}

// ReadFLACFrame reads a length-prefixed compressed audio frame into buf. The
// length and body are read as two distinct steps so a caller can tell a
// malformed length (ErrCorruptFrame, a soft error — the connection is still
// alive) apart from a genuine read failure on either step (disconnect). A
// length of zero or greater than len(buf) is corrupt; the declared body of
// an oversize frame is read and discarded, so the next call starts at the
// following frame's length prefix. On success, the slice of buf actually
// populated is returned.
func ReadFLACFrame(r io.Reader, buf []byte) ([]byte, error) {
	var lbuf [4]byte
	if _, err := io.ReadFull(r, lbuf[:]); err != nil {
		return nil, fmt.Errorf("wire: read flac frame length: %w", err)
	}

	n := binary.BigEndian.Uint32(lbuf[:])
	if n == 0 || int(n) > len(buf) {
		if n > 0 {
			if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
				return nil, fmt.Errorf("wire: skip flac frame body: %w", err)
			}
		}
		return nil, fmt.Errorf("%w: invalid flac frame length %d", ErrCorruptFrame, n)
	}

	if _, err := io.ReadFull(r, buf[:n]); err != nil {
		return nil, fmt.Errorf("wire: read flac frame body: %w", err)
	}
	return buf[:n], nil
}
