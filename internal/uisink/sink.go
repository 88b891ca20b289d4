// Package uisink defines the event surface SoundShare's session, ping, and
// chat services report through, and a logging implementation for headless
// or test use.
package uisink

import "github.com/charmbracelet/log"

// ChatKind classifies a chat line for display, mirroring the original's
// CHAT_TYPE_SENT/RECEIVED/SYSTEM distinction.
type ChatKind int

const (
	// ChatSent is a message this host composed and broadcast/sent itself.
	ChatSent ChatKind = iota
	// ChatReceived is a message that arrived from a peer.
	ChatReceived
	// ChatSystem is a non-chat notice (connect/disconnect, etc.), carried
	// with an empty sender.
	ChatSystem
)

// Sink receives session lifecycle and telemetry events. It mirrors the
// callback surface the original implementation's GUI layer registered for;
// the concrete GUI itself is outside this module's scope, but any frontend
// can implement Sink to receive the same events.
type Sink interface {
	// Status reports a one-line human-readable state change.
	Status(msg string)
	// ShowStreaming is called once streaming has started, with a format
	// description.
	ShowStreaming(formatDescription string)
	// ShowReceiving is called once receiving has started, naming the
	// streamer's address.
	ShowReceiving(serverIP string)
	// UpdateFormatInfo reports the negotiated sample rate and format
	// strings for display.
	UpdateFormatInfo(sampleRate, format string)
	// UpdateStats reports the current throughput and session duration.
	UpdateStats(kbps, totalBytes, elapsedMs int64)
	// UpdateLatency reports the latest smoothed one-way latency estimate
	// (half the round trip plus one buffer's latency) in milliseconds, or
	// 999 if a probe's response could not be read.
	UpdateLatency(ms int64)
	// UpdateReceiverCount reports how many receivers are currently
	// connected to a streaming session.
	UpdateReceiverCount(count int)
	// ChatMessage is called for every chat line, both locally-originated
	// (before broadcast) and remote, classified by kind.
	ChatMessage(sender, message string, kind ChatKind)
	// Reset is called when a session ends, so the UI can clear transient
	// state.
	Reset()
}

// Logging is a Sink that writes every event to a structured logger. It is
// SoundShare's default sink when no richer frontend is attached.
type Logging struct {
	log *log.Logger
}

// NewLogging returns a Logging sink writing to l.
func NewLogging(l *log.Logger) *Logging {
	return &Logging{log: l}
}

func (l *Logging) Status(msg string) { l.log.Info("status", "msg", msg) }

func (l *Logging) ShowStreaming(formatDescription string) {
	l.log.Info("streaming started", "format", formatDescription)
}

func (l *Logging) ShowReceiving(serverIP string) {
	l.log.Info("receiving started", "server", serverIP)
}

func (l *Logging) UpdateFormatInfo(sampleRate, format string) {
	l.log.Info("format", "sample_rate", sampleRate, "format", format)
}

func (l *Logging) UpdateStats(kbps, totalBytes, elapsedMs int64) {
	l.log.Debug("stats", "kbps", kbps, "total_bytes", totalBytes, "elapsed_ms", elapsedMs)
}

func (l *Logging) UpdateLatency(ms int64) {
	l.log.Debug("latency", "ms", ms)
}

func (l *Logging) UpdateReceiverCount(count int) {
	l.log.Info("receiver count", "count", count)
}

func (l *Logging) ChatMessage(sender, message string, kind ChatKind) {
	l.log.Info("chat", "sender", sender, "message", message, "kind", kind)
}

// String renders a ChatKind for logging.
func (k ChatKind) String() string {
	switch k {
	case ChatSent:
		return "sent"
	case ChatReceived:
		return "received"
	case ChatSystem:
		return "system"
	default:
		return "unknown"
	}
}

func (l *Logging) Reset() { l.log.Info("session reset") }
