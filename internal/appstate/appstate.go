// Package appstate holds the lock-free session flags and counters shared
// across SoundShare's streamer, receiver, ping, and chat goroutines.
package appstate

import "sync/atomic"

// State is the atomic session state a streamer or receiver host carries for
// the lifetime of one run. It is safe for concurrent use; the zero value is
// ready to use.
type State struct {
	IsStreaming       atomic.Bool
	IsReceiving       atomic.Bool
	ShutdownRequested atomic.Bool

	BytesSentThisSecond atomic.Int64
	TotalBytesSent      atomic.Int64
	LastStatsTimeMs     atomic.Int64
	StreamStartTimeMs   atomic.Int64
	CurrentLatencyMs    atomic.Int64
	ReceiverCount       atomic.Int32

	// SelectedPreset is only ever mutated while no session is active
	// (streaming and receiving both false), by convention rather than by
	// the type system — a plain int mirrors the original's single-writer-
	// when-idle field exactly.
	SelectedPreset int
}

// New returns a State with CurrentLatencyMs seeded to -1, SoundShare's
// "no measurement yet" sentinel.
func New() *State {
	s := &State{}
	s.CurrentLatencyMs.Store(-1)
	return s
}

// ResetStats zeroes the byte/time counters at the start of a new streaming
// or receiving run, without touching the boolean flags.
func (s *State) ResetStats(nowMs int64) {
	s.StreamStartTimeMs.Store(nowMs)
	s.LastStatsTimeMs.Store(nowMs)
	s.BytesSentThisSecond.Store(0)
	s.TotalBytesSent.Store(0)
}
