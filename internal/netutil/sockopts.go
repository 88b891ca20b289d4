package netutil

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// SetAudioOpts tunes conn the way the streamer and receiver tune every
// audio-channel socket: TCP_NODELAY and SO_KEEPALIVE (covered directly by
// the standard library), a send buffer sized to sendBufSize, and an
// IP_TOS of 0x10 (IPTOS_LOWDELAY) requesting low-latency routing — the one
// option with no portable stdlib setter, reached via the connection's raw
// file descriptor.
func SetAudioOpts(conn *net.TCPConn, sendBufSize int) error {
	if err := conn.SetNoDelay(true); err != nil {
		return fmt.Errorf("netutil: set no delay: %w", err)
	}
	if err := conn.SetKeepAlive(true); err != nil {
		return fmt.Errorf("netutil: set keepalive: %w", err)
	}
	if err := conn.SetKeepAlivePeriod(30 * time.Second); err != nil {
		return fmt.Errorf("netutil: set keepalive period: %w", err)
	}
	if sendBufSize > 0 {
		if err := conn.SetWriteBuffer(sendBufSize); err != nil {
			return fmt.Errorf("netutil: set write buffer: %w", err)
		}
	}

	rawConn, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("netutil: syscall conn: %w", err)
	}

	const ipTOSLowDelay = 0x10
	var sockErr error
	ctrlErr := rawConn.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS, ipTOSLowDelay)
	})
	if ctrlErr != nil {
		return fmt.Errorf("netutil: control fd: %w", ctrlErr)
	}
	if sockErr != nil {
		return fmt.Errorf("netutil: set IP_TOS: %w", sockErr)
	}

	return nil
}
