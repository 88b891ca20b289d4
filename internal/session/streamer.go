package session

import (
	"context"
	"fmt"
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

// Streamer captures local audio and fans it out, raw or FLAC-compressed, to
// every connected receiver, alongside its own ping and chat sub-services.
type Streamer struct {
	cfg          audiocfg.AudioConfig
	conditionPCM bool
	state        *appstate.State
	sink         uisink.Sink
	log          *log.Logger

	listener *net.TCPListener
	slots    *slotTable

	ping *pingsvc.Server
	chat *chatsvc.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartStreamer loads presetIndex's AudioConfig, binds the audio port, and
// starts the accept loop, the capture/fan-out loop, and the ping and chat
// sub-servers. When conditionPCM is true, captured audio is run through a
// noise gate and AGC stage before encoding/fan-out.
func StartStreamer(presetIndex int, conditionPCM bool, state *appstate.State, sink uisink.Sink, logger *log.Logger) (*Streamer, error) {
	cfg := audiocfg.LoadPreset(presetIndex)
	sessionID := uuid.NewString()
	slog := logger.With("session", sessionID, "role", "streamer")

	l, err := netutil.CreateServer(wire.AudioPort)
	if err != nil {
		sink.Status("failed to bind audio port")
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Streamer{
		cfg:          cfg,
		conditionPCM: conditionPCM,
		state:        state,
		sink:         sink,
		log:          slog,
		listener:     l,
		slots:        newSlotTable(),
		cancel:       cancel,
	}

	state.IsStreaming.Store(true)
	state.ReceiverCount.Store(0)
	state.CurrentLatencyMs.Store(-1)
	state.SelectedPreset = presetIndex

	sink.ShowStreaming(cfg.FormatString())
	sink.UpdateFormatInfo(cfg.SampleRateString(), cfg.FormatString())

	ip, _ := netutil.DeviceIPv4()
	if ip == "" {
		ip = "unknown"
	}
	sink.Status(fmt.Sprintf("Streaming on %s:%d - waiting for receivers...", ip, wire.AudioPort))

	pingSrv, err := pingsvc.StartServer(state, logging.Component(slog, "ping"))
	if err != nil {
		s.teardownOnFailure()
		return nil, err
	}
	s.ping = pingSrv

	chatSrv, err := chatsvc.StartServer(state, sink, logging.Component(slog, "chat"))
	if err != nil {
		pingSrv.Stop()
		s.teardownOnFailure()
		return nil, err
	}
	s.chat = chatSrv

	s.wg.Add(2)
	go s.acceptLoop(ctx)
	go s.streamLoop(ctx)

	return s, nil
}

func (s *Streamer) teardownOnFailure() {
	s.state.IsStreaming.Store(false)
	s.listener.Close()
}

func (s *Streamer) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	s.log.Info("accept loop started")

	for s.state.IsStreaming.Load() {
		s.listener.SetDeadline(time.Now().Add(time.Second))
		conn, ip, err := netutil.AcceptClient(s.listener)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		if err := netutil.SetAudioOpts(conn, s.cfg.SocketBufferSize); err != nil {
			s.log.Warn("failed to set audio socket options", "addr", ip, "err", err)
		}

		if err := wire.WriteHeader(conn, s.cfg.Header()); err != nil {
			s.log.Warn("failed to send header", "addr", ip, "err", err)
			conn.Close()
			continue
		}

		if !s.slots.add(conn, ip) {
			s.log.Warn("receiver capacity exceeded, rejecting", "addr", ip)
			conn.Close()
			continue
		}

		count := s.slots.connectedCount()
		s.state.ReceiverCount.Store(count)
		s.log.Info("client connected", "addr", ip, "total", count)
		s.sink.UpdateReceiverCount(int(count))
		s.sink.Status(fmt.Sprintf("Streaming to %d receiver(s)", count))
	}

	s.log.Info("accept loop stopped")
}

func (s *Streamer) streamLoop(ctx context.Context) {
	defer s.wg.Done()
	s.log.Info("stream loop started")

	if name, err := audio.DefaultCaptureDeviceName(); err == nil {
		s.log.Info("default capture device", "name", name)
	}

	cap, err := audio.OpenCapture(s.cfg, s.conditionPCM)
	if err != nil {
		s.log.Error("failed to open audio capture", "err", err)
		s.sink.Status("audio capture failed")
		s.state.IsStreaming.Store(false)
		return
	}
	defer cap.Close()

	var encoder *audio.FLACEncoder
	if s.cfg.UseFLAC {
		encoder, err = audio.NewFLACEncoder(s.cfg)
		if err != nil {
			s.log.Error("failed to open flac encoder", "err", err)
			s.sink.Status("FLAC encoder failed")
			s.state.IsStreaming.Store(false)
			return
		}
		defer encoder.Close()
	}

	pcmBuf := make([]byte, s.cfg.ChunkSize)

	now := time.Now().UnixMilli()
	s.state.ResetStats(now)

	for s.state.IsStreaming.Load() {
		n, err := cap.Read(pcmBuf)
		if err != nil {
			if s.state.IsStreaming.Load() {
				s.log.Warn("capture read error", "err", err)
			}
			break
		}

		var payload []byte
		var writeFrame func(conn *net.TCPConn) error

		if s.cfg.UseFLAC {
			encoded, err := encoder.Encode(pcmBuf[:n])
			if err != nil {
				s.log.Warn("flac encode error", "err", err)
				continue
			}
			if len(encoded) == 0 {
				continue
			}
			payload = encoded
			writeFrame = func(conn *net.TCPConn) error { return wire.WriteFLACFrame(conn, payload) }
		} else {
			payload = pcmBuf[:n]
			writeFrame = func(conn *net.TCPConn) error { _, err := conn.Write(payload); return err }
		}

		active := 0
		s.slots.forEachConnected(func(i int, conn *net.TCPConn) {
			conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
			if err := writeFrame(conn); err != nil {
				s.slots.remove(i)
				count := s.slots.connectedCount()
				s.state.ReceiverCount.Store(count)
				s.sink.UpdateReceiverCount(int(count))
				return
			}
			active++
		})

		if active == 0 {
			continue
		}

		wireBytes := int64(len(payload)) * int64(active)
		s.state.BytesSentThisSecond.Add(wireBytes)
		s.state.TotalBytesSent.Add(wireBytes)
		s.reportStatsIfDue()
	}

	s.log.Info("stream loop stopped")
}

func (s *Streamer) reportStatsIfDue() {
	now := time.Now().UnixMilli()
	last := s.state.LastStatsTimeMs.Load()
	diff := now - last
	if diff < 1000 {
		return
	}
	if !s.state.LastStatsTimeMs.CompareAndSwap(last, now) {
		return
	}

	bytes := s.state.BytesSentThisSecond.Swap(0)
	kbps := bytes * 8 / diff
	s.sink.UpdateStats(kbps, s.state.TotalBytesSent.Load(), now-s.state.StreamStartTimeMs.Load())
}

// Stop signals the streamer to shut down and waits for every goroutine it
// started (accept loop, stream loop, ping server, chat server) to exit.
// It is idempotent.
func (s *Streamer) Stop() {
	if !s.state.IsStreaming.CompareAndSwap(true, false) {
		return
	}

	s.log.Info("stopping streaming...")
	s.sink.Status("Stopping...")

	s.ping.Stop()
	s.chat.Stop()
	s.cancel()
	s.listener.Close()
	s.slots.closeAll()

	s.wg.Wait()

	s.state.ReceiverCount.Store(0)
	s.sink.Reset()
	s.sink.Status("Streaming stopped")
}

// ClientCount returns the number of receivers currently connected.
func (s *Streamer) ClientCount() int {
	return int(s.slots.connectedCount())
}
