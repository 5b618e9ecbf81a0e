// Package transport provides the stream/datagram plumbing the codec's
// FramedReader sits on top of: one persistent connection to the reader,
// exposing blocking reads bounded by a caller deadline and a write path
// serialized through a single lock.
package transport

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Kind identifies which concrete transport a caller is selecting; mirrors
// the teacher's DriverType enum in config/flags.go.
type Kind string

const (
	KindTCP         Kind = "tcp"
	KindSerial      Kind = "serial"
	KindSerialRS485 Kind = "serial-rs485"
	KindReplay      Kind = "replay"
)

var (
	// ErrClosed is returned by TCP.Write once the transport has been
	// reset or explicitly closed.
	ErrClosed = errors.New("transport: closed")
	// ErrWriteTimeout signals the writability pre-check failed.
	ErrWriteTimeout = errors.New("transport: not writable")
)

// Transport is one persistent connection to the reader. Implementations
// must be safe for concurrent Read and Write, though only one writer at a
// time is expected in practice (the Client serializes via its session
// lock).
type Transport interface {
	// Read blocks for at most the context's deadline and returns whatever
	// bytes arrived, or an error if the deadline elapsed or the socket
	// died. A zero-length, nil-error return means "try again" (e.g. a
	// replay transport pacing itself).
	Read(ctx context.Context) ([]byte, error)

	// Write fully sends frame or returns a fatal error. Partial writes
	// are retried internally.
	Write(ctx context.Context, frame []byte) error

	Close() error
}

// ResetNotifier is implemented by transports that can detect their own
// failure (repeated write failures) and need to tell their owner so the
// owning session can mark itself invalid rather than hang silently.
type ResetNotifier interface {
	OnReset(func(error))
}

// writeFailureTracker implements the "three consecutive write failures
// within ~4s" reset primitive shared by the stream-oriented transports.
type writeFailureTracker struct {
	mu        sync.Mutex
	failures  int
	firstFail time.Time
	window    time.Duration
	threshold int
	onReset   func(error)
}

func newWriteFailureTracker() *writeFailureTracker {
	return &writeFailureTracker{window: 4 * time.Second, threshold: 3}
}

func (t *writeFailureTracker) OnReset(fn func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// recordFailure returns true when the tracker decides the transport
// should be reset.
func (t *writeFailureTracker) recordFailure(err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if t.failures == 0 || now.Sub(t.firstFail) > t.window {
		t.failures = 1
		t.firstFail = now
		return false
	}
	t.failures++
	if t.failures >= t.threshold {
		t.failures = 0
		if t.onReset != nil {
			t.onReset(err)
		}
		return true
	}
	return false
}

func (t *writeFailureTracker) recordSuccess() {
	t.mu.Lock()
	t.failures = 0
	t.mu.Unlock()
}
