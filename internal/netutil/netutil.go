// Package netutil provides the raw TCP primitives SoundShare's session,
// ping, and chat channels are built on: listener setup, timeout-bounded
// connect, and the socket tuning the audio channel applies to every
// accepted connection.
package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// CreateServer opens a TCP listener on the given port across all
// interfaces, mirroring the SO_REUSEADDR + bind + listen sequence used by
// every SoundShare sub-service (audio, ping, chat).
func CreateServer(port int) (*net.TCPListener, error) {
	addr := &net.TCPAddr{Port: port}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("netutil: listen port %d: %w", port, err)
	}
	return l, nil
}

// AcceptClient accepts one connection from l, enables TCP_NODELAY on it
// (every SoundShare channel is latency-sensitive even before the audio
// channel's extra tuning), and returns the peer's address alongside it.
func AcceptClient(l *net.TCPListener) (*net.TCPConn, string, error) {
	conn, err := l.AcceptTCP()
	if err != nil {
		return nil, "", fmt.Errorf("netutil: accept: %w", err)
	}
	if err := conn.SetNoDelay(true); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("netutil: set no delay: %w", err)
	}
	ip := conn.RemoteAddr().(*net.TCPAddr).IP.String()
	return conn, ip, nil
}

// ConnectTimeout dials host:port, failing if the handshake doesn't
// complete within timeout. Every SoundShare channel uses its own timeout
// (audio 5s, ping 3s, chat 5s) rather than a single shared constant.
func ConnectTimeout(ctx context.Context, host string, port int, timeout time.Duration) (*net.TCPConn, error) {
	dialer := net.Dialer{Timeout: timeout}
	addr := fmt.Sprintf("%s:%d", host, port)

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("netutil: connect %s: timeout: %w", addr, err)
		}
		return nil, fmt.Errorf("netutil: connect %s: %w", addr, err)
	}

	tcpConn := conn.(*net.TCPConn)
	if err := tcpConn.SetNoDelay(true); err != nil {
		tcpConn.Close()
		return nil, fmt.Errorf("netutil: set no delay: %w", err)
	}
	return tcpConn, nil
}

// DeviceIPv4 returns the first non-loopback IPv4 address on an interface
// that is currently up, for display in the streamer's "listening on ..."
// status line.
func DeviceIPv4() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("netutil: list interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			return ip4.String(), nil
		}
	}

	return "", errors.New("netutil: no connected non-loopback IPv4 interface")
}
