// Package chatsvc implements the bidirectional text-chat channel: a
// streamer-side fan-out server with a fixed 16-slot table, and a
// receiver-side client that both sends and receives chat lines.
package chatsvc

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AbinavDWH/soundshare/internal/appstate"
	"github.com/AbinavDWH/soundshare/internal/netutil"
	"github.com/AbinavDWH/soundshare/internal/uisink"
	"github.com/AbinavDWH/soundshare/internal/wire"
)

// MaxClients is the fixed capacity of the chat server's slot table.
const MaxClients = 16

// Server is the streamer-side chat fan-out. Connected clients are kept in a
// fixed-size table guarded by a mutex; broadcasts are best-effort (a failed
// write to one client never blocks or drops the others).
type Server struct {
	listener *net.TCPListener
	state    *appstate.State
	sink     uisink.Sink
	log      *log.Logger

	mu      sync.Mutex
	clients [MaxClients]*net.TCPConn

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// StartServer binds the chat port and begins accepting connections.
func StartServer(state *appstate.State, sink uisink.Sink, logger *log.Logger) (*Server, error) {
	l, err := netutil.CreateServer(wire.ChatPort)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{listener: l, state: state, sink: sink, log: logger, cancel: cancel}

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	logger.Info("chat server started", "port", wire.ChatPort)
	return s, nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	for s.state.IsStreaming.Load() {
		s.listener.SetDeadline(time.Now().Add(time.Second))
		conn, ip, err := netutil.AcceptClient(s.listener)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		idx := s.admit(conn)
		if idx < 0 {
			s.log.Warn("chat: max clients reached, rejecting", "addr", ip)
			conn.Close()
			continue
		}

		s.log.Info("chat client connected", "addr", ip, "slot", idx)
		s.sink.ChatMessage("", "connected: "+ip, uisink.ChatSystem)

		s.wg.Add(1)
		go s.handleClient(ctx, idx, conn)
	}
}

func (s *Server) admit(conn *net.TCPConn) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.clients {
		if c == nil {
			s.clients[i] = conn
			return i
		}
	}
	return -1
}

func (s *Server) evict(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clients[idx] != nil {
		s.clients[idx].Close()
		s.clients[idx] = nil
	}
}

func (s *Server) handleClient(ctx context.Context, idx int, conn *net.TCPConn) {
	defer s.wg.Done()
	defer s.evict(idx)

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

		if cmd[0] != wire.CmdChatMessage {
			continue
		}
		sender, message, err := wire.ReadChatBody(conn)
		if err != nil {
			return
		}

		// Publish to the local UI before fanning out to other clients —
		// this ordering is load-bearing for how chat appears locally.
		s.sink.ChatMessage(sender, message, uisink.ChatReceived)
		s.broadcastExcept(idx, sender, message)
	}
}

func (s *Server) broadcastExcept(exclude int, sender, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.clients {
		if i == exclude || c == nil {
			continue
		}
		c.SetWriteDeadline(time.Now().Add(time.Second))
		wire.WriteChatMessage(c, sender, message) // best-effort
	}
}

// Broadcast publishes a host-originated message to the local sink as
// ChatSent, then sends it to every connected chat client.
func (s *Server) Broadcast(sender, message string) {
	s.sink.ChatMessage(sender, message, uisink.ChatSent)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		if c == nil {
			continue
		}
		c.SetWriteDeadline(time.Now().Add(time.Second))
		wire.WriteChatMessage(c, sender, message)
	}
}

// Stop closes the listener and every connected client, then waits for all
// handler goroutines to exit.
func (s *Server) Stop() {
	s.cancel()
	s.listener.Close()

	s.mu.Lock()
	for i, c := range s.clients {
		if c != nil {
			c.Close()
			s.clients[i] = nil
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("chat server stopped")
}

// Client is the receiver-side chat participant: it both sends locally
// composed messages and receives broadcasts from the streamer.
type Client struct {
	mu     sync.Mutex
	conn   *net.TCPConn
	state  *appstate.State
	sink   uisink.Sink
	log    *log.Logger
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// StartClient connects to the streamer's chat port after a warm-up delay.
func StartClient(serverIP string, state *appstate.State, sink uisink.Sink, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{state: state, sink: sink, log: logger, cancel: cancel}

	c.wg.Add(1)
	go c.run(ctx, serverIP)

	return c
}

func (c *Client) run(ctx context.Context, serverIP string) {
	defer c.wg.Done()

	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
		return
	}

	conn, err := netutil.ConnectTimeout(ctx, serverIP, wire.ChatPort, 5*time.Second)
	if err != nil {
		c.log.Warn("chat client: could not connect", "err", err)
		return
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	c.sink.ChatMessage("", "connected to chat", uisink.ChatSystem)

	cmd := make([]byte, 1)
	for c.state.IsReceiving.Load() {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		if _, err := io.ReadFull(conn, cmd); err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			break
		}

		if cmd[0] != wire.CmdChatMessage {
			continue
		}
		sender, message, err := wire.ReadChatBody(conn)
		if err != nil {
			break
		}
		c.sink.ChatMessage(sender, message, uisink.ChatReceived)
	}

	c.sink.ChatMessage("", "chat disconnected", uisink.ChatSystem)
}

// Send writes a locally-composed message to the streamer, if connected.
func (c *Client) Send(sender, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return errors.New("chatsvc: not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	return wire.WriteChatMessage(c.conn, sender, message)
}

// Stop closes the connection and waits for the client loop to exit.
func (c *Client) Stop() {
	c.cancel()
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
	c.wg.Wait()
	c.log.Info("chat client stopped")
}
