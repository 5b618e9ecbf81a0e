package inventory

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/malike-rnd/cl7206c2-rfid/client"
	"github.com/malike-rnd/cl7206c2-rfid/codec"
)

// State is the streamer's lifecycle position, spec.md §4.4.
type State int

const (
	Idle State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

const (
	stopAckTimeout = 1 * time.Second
	pollTimeout    = 500 * time.Millisecond
	spuriousCap    = 64
)

// Streamer is the cancellable background consumer started by the Client.
// While Running, every inbound frame is classified: (0x12,*) decodes to a
// Record and goes to Tags; (0x02,*) start/stop ACK echoes are discarded;
// anything else goes to Spurious (bounded, drops oldest on overflow). Grounded in the teacher's events.EventHub
// subscribe/broadcast idiom, generalized from vehicle telemetry events to
// tag records.
type Streamer struct {
	cl *client.Client

	mu    sync.Mutex
	state State

	Tags     chan Record
	Spurious chan codec.Frame

	cancel context.CancelFunc
	done   chan struct{}

	count int
}

// New constructs a Streamer bound to cl. It does not start running.
func New(cl *client.Client) *Streamer {
	return &Streamer{
		cl:       cl,
		Tags:     make(chan Record, 256),
		Spurious: make(chan codec.Frame, spuriousCap),
		state:    Idle,
	}
}

func (s *Streamer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start sends (0x02,0x10) and moves Idle->Starting->Running. The reader's
// ACK to the start command is immediate (spec.md §4.3); Start does not
// wait for a distinguished ACK frame, it commits to Running once the
// command is written and lets the background loop classify whatever
// follows (ACK echo or straight into tag frames — firmware variants
// differ on this, and spec.md §9 treats it as unspecified).
func (s *Streamer) Start(ctx context.Context, tlvTuning []byte) error {
	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return fmt.Errorf("inventory: start called in state %s, want idle", s.state)
	}
	s.state = Starting
	s.mu.Unlock()

	if err := s.cl.WriteFrame(ctx, 0x02, 0x10, tlvTuning); err != nil {
		s.setState(Idle)
		return fmt.Errorf("inventory: start: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(runCtx)
	s.setState(Running)
	return nil
}

// Stop sends (0x02,0xFF) and moves Running->Stopping->Idle. It must
// return within one read timeout even if the stop ACK never arrives
// (spec.md §5's cancellation guarantee).
func (s *Streamer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Idle {
		s.mu.Unlock()
		return nil
	}
	s.state = Stopping
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	stopCtx, stopCancel := context.WithTimeout(ctx, stopAckTimeout)
	defer stopCancel()
	_ = s.cl.WriteFrame(stopCtx, 0x02, 0xFF, nil) // best-effort

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(stopAckTimeout):
		}
	}

	s.setState(Idle)
	return nil
}

func (s *Streamer) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// run is the continuous read loop. It owns the connection for the
// duration of the inventory run, classifying every inbound frame.
func (s *Streamer) run(ctx context.Context) {
	defer close(s.done)

	for {
		pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
		frame, err := s.cl.ReadFrame(pollCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return // Stop() cancelled us; exit within one poll interval.
			}
			continue // poll timeout with no data yet
		}

		if frame.Cmd == 0x02 {
			continue // start/stop ACK echo, not a tag record
		}

		if frame.Cmd == 0x12 {
			s.count++
			rec := ParseTagNotification(s.count, frame.Payload)
			rec.TimestampMillis = time.Now().UnixMilli()
			select {
			case s.Tags <- rec:
			default:
				log.Printf("inventory: tag channel full, dropping record %d", s.count)
			}
			continue
		}

		select {
		case s.Spurious <- frame:
		default:
			select { // drop oldest on overflow
			case <-s.Spurious:
			default:
			}
			select {
			case s.Spurious <- frame:
			default:
			}
		}
	}
}
