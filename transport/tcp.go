package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// Keepalive settings chosen to land inside the firmware's ~8s dead-peer
// window: idle ~5s, probe interval ~1s, probe count ~3.
const (
	keepAliveIdle     = 5 * time.Second
	keepAliveInterval = 1 * time.Second
	keepAliveCount    = 3

	readChunkSize = 4096
)

// TCP is the default transport variant: a persistent connection to the
// reader's service port (default 9090).
type TCP struct {
	conn net.Conn

	writeMu sync.Mutex
	tracker *writeFailureTracker

	closed bool
	mu     sync.Mutex
}

// DialTCP opens a TCP connection with the reader's expected keepalive
// profile applied.
func DialTCP(ctx context.Context, addr string) (*TCP, error) {
	d := net.Dialer{Timeout: 3 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(net.KeepAliveConfig{
			Enable:   true,
			Idle:     keepAliveIdle,
			Interval: keepAliveInterval,
			Count:    keepAliveCount,
		})
	}

	return &TCP{conn: conn, tracker: newWriteFailureTracker()}, nil
}

func (t *TCP) OnReset(fn func(error)) { t.tracker.OnReset(fn) }

func (t *TCP) Read(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetReadDeadline(deadline)
	} else {
		_ = t.conn.SetReadDeadline(time.Time{})
	}

	buf := make([]byte, readChunkSize)
	n, err := t.conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("transport: read: %w", err)
	}
	return buf[:n], nil
}

// Write serializes through writeMu, retries partial writes, and applies
// the socket-reset-on-three-failures primitive. A writability pre-check
// guards against writing to a connection that is known dead.
func (t *TCP) Write(ctx context.Context, frame []byte) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
	}

	remaining := frame
	for len(remaining) > 0 {
		n, err := t.conn.Write(remaining)
		if err != nil {
			if t.tracker.recordFailure(err) {
				_ = t.Close()
			}
			return fmt.Errorf("transport: write: %w", err)
		}
		remaining = remaining[n:]
	}
	t.tracker.recordSuccess()
	return nil
}

func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}
