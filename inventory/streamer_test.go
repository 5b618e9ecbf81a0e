package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/malike-rnd/cl7206c2-rfid/client"
	"github.com/malike-rnd/cl7206c2-rfid/codec"
)

func TestParseTagNotification(t *testing.T) {
	// PC = 0x3000 -> 6 EPC words = 12 bytes, followed by an antenna TLV
	// (ant_num=0, sub_ant=0 -> antenna=1) and an RSSI TLV (0x12).
	payload := []byte{0x30, 0x00}
	payload = append(payload, []byte{0xE2, 0x80, 0x11, 0x06, 0x00, 0x00, 0x02, 0x12, 0x34, 0x56, 0x78, 0x9A}...)
	payload = append(payload, 0x01, 0x00, 0x00)
	payload = append(payload, 0x02, 0x12)

	rec := ParseTagNotification(1, payload)
	if rec.Error != "" {
		t.Fatalf("unexpected error: %s", rec.Error)
	}
	if rec.PC != 0x3000 {
		t.Fatalf("PC = 0x%04X, want 0x3000", rec.PC)
	}
	if rec.Antenna != 1 {
		t.Fatalf("Antenna = %d, want 1", rec.Antenna)
	}
	if rec.RSSI == nil || *rec.RSSI != 0x12 {
		t.Fatalf("RSSI = %v, want 0x12", rec.RSSI)
	}
	wantEPC := "E2801106000002123456789A"
	if rec.EPCHex != wantEPC {
		t.Fatalf("EPCHex = %s, want %s", rec.EPCHex, wantEPC)
	}
}

func TestParseTagNotificationTruncated(t *testing.T) {
	rec := ParseTagNotification(1, []byte{0x30})
	if rec.Error == "" {
		t.Fatalf("expected a truncation error, got none")
	}
}

// loopbackTransport lets a test push raw bytes as if they arrived from
// the reader, via Feed, while Read blocks until some are available.
type loopbackTransport struct {
	in     chan []byte
	closed chan struct{}
}

func newLoopbackTransport() *loopbackTransport {
	return &loopbackTransport{in: make(chan []byte, 64), closed: make(chan struct{})}
}

func (l *loopbackTransport) Feed(b []byte) { l.in <- b }

func (l *loopbackTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case b := <-l.in:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closed:
		return nil, context.Canceled
	}
}

func (l *loopbackTransport) Write(ctx context.Context, frame []byte) error { return nil }
func (l *loopbackTransport) Close() error                                  { close(l.closed); return nil }

func TestStreamerLifecycle(t *testing.T) {
	tr := newLoopbackTransport()
	cl := client.New(tr, false, 0)
	s := New(cl)

	if s.State() != Idle {
		t.Fatalf("initial state = %s, want idle", s.State())
	}

	ctx := context.Background()
	if err := s.Start(ctx, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != Running {
		t.Fatalf("state after Start = %s, want running", s.State())
	}

	tag := codec.Encode(0x12, 0x00, []byte{0x00, 0x00}, nil)
	tr.Feed(tag)

	select {
	case rec := <-s.Tags:
		if rec.Count != 1 {
			t.Fatalf("count = %d, want 1", rec.Count)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for tag record")
	}

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.State() != Idle {
		t.Fatalf("state after Stop = %s, want idle", s.State())
	}

	// No further tag events once stopped, even if more arrive.
	tr.Feed(codec.Encode(0x12, 0x00, []byte{0x00, 0x00}, nil))
	select {
	case rec := <-s.Tags:
		t.Fatalf("unexpected tag record after Stop: %+v", rec)
	case <-time.After(50 * time.Millisecond):
	}
}
