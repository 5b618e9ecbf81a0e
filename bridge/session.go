// Package bridge multiplexes many concurrent HTTP/WebSocket callers onto a
// single persistent reader connection. Grounded in the teacher's
// cmd/dashboard + web/handlers layering, generalized from a telemetry
// dashboard to a mutex-guarded protocol session.
package bridge

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/malike-rnd/cl7206c2-rfid/client"
	"github.com/malike-rnd/cl7206c2-rfid/inventory"
	"github.com/malike-rnd/cl7206c2-rfid/transport"
)

// defaultPort is the reader's TCP service port, used when /api/connect
// omits one.
const defaultPort = 9090

// Session is the process-wide single-reader singleton. At most one
// *client.Client is live at a time; every operation happens while holding
// mu, per SPEC_FULL.md §5.6.
type Session struct {
	mu sync.Mutex

	cl        *client.Client
	tr        transport.Transport
	streamer  *inventory.Streamer
	ip        string
	port      int
	connected bool

	logs  *LogRing
	wsHub *wsHub

	// stopSignal is closed whenever inventory stops (explicitly or via
	// session teardown), so WebSocket pump goroutines ranging over
	// streamer.Tags know to exit instead of blocking forever.
	stopSignal chan struct{}
}

// NewSession constructs an unconnected bridge session.
func NewSession() *Session {
	s := &Session{
		logs: NewLogRing(2000, func() int64 { return time.Now().Unix() }),
	}
	s.wsHub = newWSHub(s)
	s.logs.Append(CatSYS, LevelInfo, "bridge session created")
	return s
}

// Connect replaces any prior session: a new TCP transport is dialed first,
// and only once the dial succeeds is the old session closed and a Client
// created over the new transport. A failed dial leaves the prior session
// as it was.
func (s *Session) Connect(ip string, port int) error {
	if port == 0 {
		port = defaultPort
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	tcp, err := transport.DialTCP(ctx, addr)
	if err != nil {
		s.mu.Lock()
		s.logs.Append(CatSYS, LevelError, "connect to %s failed: %s", addr, err)
		s.mu.Unlock()
		return fmt.Errorf("bridge: connect: %w", err)
	}

	s.attach(tcp, false, 0, ip, port)
	s.logs.Append(CatSYS, LevelInfo, "connected to %s:%d", ip, port)
	return nil
}

// Attach installs tr as the session's transport without dialing anything
// itself, for the serial/serial-rs485/replay process-startup path: those
// transports are opened once by cmd/bridge's flag-driven selection rather
// than per-request like /api/connect's IP:port. label is used for the log
// line and is stored in place of an IP address; Status does not report it.
func (s *Session) Attach(tr transport.Transport, rs485 bool, localAddr byte, label string) {
	s.attach(tr, rs485, localAddr, label, 0)
	s.logs.Append(CatSYS, LevelInfo, "attached %s transport", label)
}

func (s *Session) attach(tr transport.Transport, rs485 bool, localAddr byte, ip string, port int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked("replaced by new connection")

	cl := client.New(tr, rs485, localAddr)
	cl.SetLogger(func(category, format string, args ...any) {
		s.logs.Append(Category(category), LevelInfo, format, args...)
	})

	s.tr = tr
	s.cl = cl
	s.streamer = inventory.New(cl)
	s.ip = ip
	s.port = port
	s.connected = true

	// §4.2/§7: a transport that detects its own write-failure reset must
	// notify the owning session so it marks the session invalid instead
	// of leaving connected=true against a dead socket. OnReset fires
	// synchronously from inside Write, which can itself be reached while
	// s.mu is already held (Request issued through withClient/rebootLike),
	// so the teardown runs on its own goroutine rather than locking here.
	if notifier, ok := tr.(transport.ResetNotifier); ok {
		notifier.OnReset(func(err error) {
			go func() {
				s.mu.Lock()
				defer s.mu.Unlock()
				if s.tr != tr {
					return // already replaced/closed by a newer connection
				}
				s.logs.Append(CatSYS, LevelError, "transport reset: %s", err)
				s.closeLocked("transport reset")
			}()
		})
	}
}

// Disconnect releases the current session, if any.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked("disconnect requested")
}

// closeLocked stops any running inventory and closes the transport. Caller
// must hold s.mu.
func (s *Session) closeLocked(reason string) {
	if !s.connected {
		return
	}
	if s.streamer != nil && s.streamer.State() != inventory.Idle {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = s.stopInventoryLocked(ctx)
		cancel()
	}
	if s.tr != nil {
		_ = s.tr.Close()
	}
	s.logs.Append(CatSYS, LevelInfo, "session closed: %s", reason)
	s.cl = nil
	s.tr = nil
	s.streamer = nil
	s.connected = false
}

// withClient runs fn while holding the session lock, the discipline every
// reader operation must follow. Returns ErrNotConnected if no session is
// live.
func (s *Session) withClient(fn func(cl *client.Client) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected || s.cl == nil {
		return ErrNotConnected
	}
	return fn(s.cl)
}

// rebootLike runs fn (a Reboot/FactoryReset-shaped call) and then tears
// down the session regardless of the call's outcome, since the device
// drops the TCP connection before any response arrives.
func (s *Session) rebootLike(op string, fn func(cl *client.Client) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected || s.cl == nil {
		return ErrNotConnected
	}
	err := fn(s.cl)
	s.logs.Append(CatCMD, LevelInfo, "%s issued (session closing)", op)
	s.closeLocked(op)
	return err
}

// startInventory starts the session's streamer if it isn't already
// running and returns its tag channel. Calling it while already running
// is idempotent and just returns the existing channel, so multiple
// WebSocket clients can share one inventory run.
func (s *Session) startInventory(ctx context.Context) (<-chan inventory.Record, <-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected || s.streamer == nil {
		return nil, nil, ErrNotConnected
	}
	if s.streamer.State() == inventory.Idle {
		if err := s.streamer.Start(ctx, nil); err != nil {
			return nil, nil, err
		}
		s.stopSignal = make(chan struct{})
		s.logs.Append(CatSYS, LevelInfo, "inventory started")
	}
	return s.streamer.Tags, s.stopSignal, nil
}

// stopInventoryIfRunning stops the session's streamer if it's running.
// No-op (not an error) if already idle or disconnected.
func (s *Session) stopInventoryIfRunning(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopInventoryLocked(ctx)
}

func (s *Session) stopInventoryLocked(ctx context.Context) error {
	if !s.connected || s.streamer == nil || s.streamer.State() == inventory.Idle {
		return nil
	}
	if err := s.streamer.Stop(ctx); err != nil {
		return err
	}
	if s.stopSignal != nil {
		close(s.stopSignal)
		s.stopSignal = nil
	}
	s.logs.Append(CatSYS, LevelInfo, "inventory stopped")
	return nil
}

// Status reports the bridge's current view for GET /api/status.
func (s *Session) Status() (connected bool, inventoryActive bool, wsClients int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	connected = s.connected
	if s.streamer != nil {
		inventoryActive = s.streamer.State() == inventory.Running
	}
	wsClients = s.wsHub.count()
	return
}
