package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/AbinavDWH/soundshare/internal/appstate"
	"github.com/AbinavDWH/soundshare/internal/audio"
	"github.com/AbinavDWH/soundshare/internal/audiocfg"
	"github.com/AbinavDWH/soundshare/internal/chatsvc"
	"github.com/AbinavDWH/soundshare/internal/logging"
	"github.com/AbinavDWH/soundshare/internal/netutil"
	"github.com/AbinavDWH/soundshare/internal/pingsvc"
	"github.com/AbinavDWH/soundshare/internal/uisink"
	"github.com/AbinavDWH/soundshare/internal/wire"
)

// Receiver connects to a streamer, validates its header, and drains either
// a raw PCM or a FLAC-framed stream to a playback sink, alongside its own
// ping and chat sub-clients.
type Receiver struct {
	state    *appstate.State
	sink     uisink.Sink
	log      *log.Logger
	serverIP string

	ping *pingsvc.Client
	chat *chatsvc.Client

	connMu sync.Mutex
	conn   *net.TCPConn

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartReceiver connects to serverIP's audio port and begins the receive
// loop in the background.
func StartReceiver(serverIP string, state *appstate.State, sink uisink.Sink, logger *log.Logger) *Receiver {
	sessionID := uuid.NewString()
	slog := logger.With("session", sessionID, "role", "receiver")

	ctx, cancel := context.WithCancel(context.Background())
	r := &Receiver{state: state, sink: sink, log: slog, serverIP: serverIP, cancel: cancel}

	state.IsReceiving.Store(true)
	state.CurrentLatencyMs.Store(-1)
	state.TotalBytesSent.Store(0)

	r.wg.Add(1)
	go r.run(ctx)

	return r
}

func (r *Receiver) run(ctx context.Context) {
	defer r.wg.Done()
	r.log.Info("receive loop started", "target", r.serverIP)

	conn, err := netutil.ConnectTimeout(ctx, r.serverIP, wire.AudioPort, 5*time.Second)
	if err != nil {
		r.sink.Status(fmt.Sprintf("Cannot connect to %s:%d", r.serverIP, wire.AudioPort))
		r.state.IsReceiving.Store(false)
		r.sink.Reset()
		return
	}
	r.connMu.Lock()
	r.conn = conn
	r.connMu.Unlock()
	defer conn.Close()

	hdr, err := wire.ReadHeader(conn)
	if err != nil {
		r.sink.Status("Invalid stream format")
		r.state.IsReceiving.Store(false)
		r.sink.Reset()
		return
	}
	cfg := audiocfg.FromHeader(hdr)

	r.sink.Status(fmt.Sprintf("Receiving %s %s from %s", cfg.SampleRateString(), cfg.ChannelString(), r.serverIP))
	r.sink.ShowReceiving(r.serverIP)
	r.sink.UpdateFormatInfo(cfg.SampleRateString(), cfg.FormatString())

	r.ping = pingsvc.StartClient(r.serverIP, cfg, r.state, r.sink, logging.Component(r.log, "ping"))
	r.chat = chatsvc.StartClient(r.serverIP, r.state, r.sink, logging.Component(r.log, "chat"))
	defer r.ping.Stop()
	defer r.chat.Stop()

	playback, err := audio.OpenPlayback(cfg)
	if err != nil {
		r.sink.Status("Failed to open audio playback")
		r.state.IsReceiving.Store(false)
		r.sink.Reset()
		r.sink.Status("Receiving stopped")
		return
	}
	defer playback.Close()

	now := time.Now().UnixMilli()
	r.state.ResetStats(now)

	if cfg.UseFLAC {
		r.receiveFLACLoop(conn, playback, cfg)
	} else {
		r.receivePCMLoop(conn, playback, cfg)
	}

	r.state.IsReceiving.Store(false)
	r.sink.Reset()
	r.sink.Status("Receiving stopped")
	r.log.Info("receive loop stopped")
}

func (r *Receiver) receivePCMLoop(conn *net.TCPConn, playback *audio.Playback, cfg audiocfg.AudioConfig) {
	buf := make([]byte, cfg.ChunkSize)

	for r.state.IsReceiving.Load() {
		n, err := io.ReadFull(conn, buf)
		if err != nil {
			if r.state.IsReceiving.Load() {
				r.sink.Status("Streamer disconnected")
			}
			return
		}

		if err := playback.Write(buf[:n]); err != nil {
			return
		}

		r.accountBytes(int64(n))
	}
}

func (r *Receiver) receiveFLACLoop(conn *net.TCPConn, playback *audio.Playback, cfg audiocfg.AudioConfig) {
	// The corrupt-frame threshold matches the streamer's largest possible
	// FLAC frame for this chunk size: twice the raw PCM chunk size.
	compCap := cfg.ChunkSize * 2
	buf := make([]byte, compCap)

	for r.state.IsReceiving.Load() {
		frame, err := wire.ReadFLACFrame(conn, buf)
		if err != nil {
			if errors.Is(err, wire.ErrCorruptFrame) {
				r.log.Warn("corrupt flac frame, skipping", "err", err)
				continue
			}
			if r.state.IsReceiving.Load() {
				r.sink.Status("Streamer disconnected")
			}
			return
		}

		if err := playback.Write(frame); err != nil {
			return
		}

		r.accountBytes(int64(len(frame) + 4))
	}
}

func (r *Receiver) accountBytes(n int64) {
	r.state.TotalBytesSent.Add(n)
	r.state.BytesSentThisSecond.Add(n)

	now := time.Now().UnixMilli()
	last := r.state.LastStatsTimeMs.Load()
	diff := now - last
	if diff < 1000 {
		return
	}
	if !r.state.LastStatsTimeMs.CompareAndSwap(last, now) {
		return
	}

	bytes := r.state.BytesSentThisSecond.Swap(0)
	kbps := bytes * 8 / diff
	r.sink.UpdateStats(kbps, r.state.TotalBytesSent.Load(), now-r.state.StreamStartTimeMs.Load())
}

// Stop signals the receiver to shut down and waits for its goroutine (and
// its ping/chat sub-clients) to exit. It is idempotent.
func (r *Receiver) Stop() {
	if !r.state.IsReceiving.CompareAndSwap(true, false) {
		return
	}
	r.log.Info("stopping receiving...")
	r.sink.Status("Stopping...")
	r.cancel()

	r.connMu.Lock()
	if r.conn != nil {
		r.conn.Close()
	}
	r.connMu.Unlock()

	r.wg.Wait()
}

// SendChat sends a locally-composed chat message to the streamer, if the
// chat sub-client is connected.
func (r *Receiver) SendChat(sender, message string) error {
	if r.chat == nil {
		return fmt.Errorf("session: chat client not started")
	}
	return r.chat.Send(sender, message)
}
