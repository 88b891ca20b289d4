// Package pingsvc implements the streamer-side ping server and the
// receiver-side ping client that measure round-trip latency over a
// dedicated TCP connection alongside the audio channel.
package pingsvc

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AbinavDWH/soundshare/internal/appstate"
	"github.com/AbinavDWH/soundshare/internal/audiocfg"
	"github.com/AbinavDWH/soundshare/internal/netutil"
	"github.com/AbinavDWH/soundshare/internal/uisink"
	"github.com/AbinavDWH/soundshare/internal/wire"
)

// Server is the streamer-side ping responder. It intentionally serves one
// connected ping client at a time with an inline handler, rather than
// fanning out across goroutines — the original implementation never needed
// concurrent ping clients, since only one receiver's ping client typically
// probes at once, and this keeps the responder trivially simple.
type Server struct {
	listener *net.TCPListener
	state    *appstate.State
	log      *log.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// StartServer binds the ping port and begins accepting connections.
func StartServer(state *appstate.State, logger *log.Logger) (*Server, error) {
	l, err := netutil.CreateServer(wire.PingPort)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{listener: l, state: state, log: logger, cancel: cancel}

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	logger.Info("ping server started", "port", wire.PingPort)
	return s, nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	for s.state.IsStreaming.Load() {
		s.listener.SetDeadline(time.Now().Add(time.Second))
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		s.log.Info("ping client connected", "addr", conn.RemoteAddr())
		s.handleClient(ctx, conn)
		conn.Close()
		s.log.Info("ping client disconnected")
	}
}

func (s *Server) handleClient(ctx context.Context, conn *net.TCPConn) {
	cmd := make([]byte, 1)

	for s.state.IsStreaming.Load() {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		if _, err := io.ReadFull(conn, cmd); err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return
		}

		// An unrecognized command byte is ignored rather than treated as a
		// protocol violation that closes the connection; this matches the
		// original responder's behavior.
		switch cmd[0] {
		case wire.CmdPingRequest:
			if _, err := conn.Write([]byte{wire.CmdPingResponse}); err != nil {
				return
			}
		case wire.CmdLatencyReport:
			ms, err := wire.ReadLatencyReportBody(conn)
			if err != nil {
				return
			}
			s.state.CurrentLatencyMs.Store(ms)
		}
	}
}

// Stop closes the listener and waits for the accept loop to exit.
func (s *Server) Stop() {
	s.cancel()
	s.listener.Close()
	s.wg.Wait()
	s.log.Info("ping server stopped")
}

// Client is the receiver-side ping prober.
type Client struct {
	conn   *net.TCPConn
	state  *appstate.State
	sink   uisink.Sink
	log    *log.Logger
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// StartClient connects to serverIP after a short warm-up delay (giving the
// streamer time to start its ping server) and begins probing at 2 Hz.
func StartClient(serverIP string, preset audiocfg.AudioConfig, state *appstate.State, sink uisink.Sink, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{state: state, sink: sink, log: logger, cancel: cancel}

	c.wg.Add(1)
	go c.run(ctx, serverIP, preset)

	return c
}

func (c *Client) run(ctx context.Context, serverIP string, preset audiocfg.AudioConfig) {
	defer c.wg.Done()

	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
		return
	}

	conn, err := netutil.ConnectTimeout(ctx, serverIP, wire.PingPort, 3*time.Second)
	if err != nil {
		c.log.Warn("ping client: could not connect", "err", err)
		return
	}
	c.conn = conn
	defer conn.Close()

	bufLatencyMs := int64(preset.BufferLatencyMs())
	smoothed := int64(-1)

	for c.state.IsReceiving.Load() {
		start := time.Now()
		if _, err := conn.Write([]byte{wire.CmdPingRequest}); err != nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		resp := make([]byte, 1)
		if _, err := io.ReadFull(conn, resp); err != nil {
			c.state.CurrentLatencyMs.Store(999)
			c.sink.UpdateLatency(999)
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(500 * time.Millisecond)
				continue
			}
			return
		}

		if resp[0] == wire.CmdPingResponse {
			rttMs := time.Since(start).Milliseconds()
			total := rttMs/2 + bufLatencyMs

			smoothed = smoothLatency(smoothed, total)

			c.state.CurrentLatencyMs.Store(smoothed)
			c.sink.UpdateLatency(smoothed)

			// Best-effort report back to the streamer; a failed write here
			// doesn't break the probe loop.
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			wire.WriteLatencyReport(conn, smoothed)
		}

		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
			return
		}
	}
}

// smoothLatency applies a 70/30 exponential moving average to a new round
// trip sample. A negative prev (no sample yet) seeds the average with
// sampleMs directly instead of blending.
func smoothLatency(prev, sampleMs int64) int64 {
	if prev < 0 {
		return sampleMs
	}
	return (prev*7 + sampleMs*3) / 10
}

// Stop closes the connection and waits for the probe loop to exit.
func (c *Client) Stop() {
	c.cancel()
	if c.conn != nil {
		c.conn.Close()
	}
	c.wg.Wait()
	c.log.Info("ping client stopped")
}
