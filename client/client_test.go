package client

import (
	"context"
	"testing"
	"time"

	"github.com/malike-rnd/cl7206c2-rfid/codec"
)

// fakeTransport is a minimal in-memory transport.Transport: Read drains a
// queue of pre-seeded chunks, Write just records what was sent.
type fakeTransport struct {
	chunks  [][]byte
	writes  [][]byte
	readErr error
}

func (f *fakeTransport) Read(ctx context.Context) ([]byte, error) {
	if len(f.chunks) == 0 {
		if f.readErr != nil {
			return nil, f.readErr
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	c := f.chunks[0]
	f.chunks = f.chunks[1:]
	return c, nil
}

func (f *fakeTransport) Write(ctx context.Context, frame []byte) error {
	f.writes = append(f.writes, frame)
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func TestRequestMatchesResponseAndIgnoresOthers(t *testing.T) {
	unrelated := codec.Encode(0x12, 0x00, []byte{0x30, 0x00}, nil)
	response := codec.Encode(0x01, 0x06, []byte{1, 2, 3, 4, 5, 6}, nil)

	tr := &fakeTransport{chunks: [][]byte{unrelated, response}}
	c := New(tr, false, 0)

	var sidebanded []codec.Frame
	c.Sideband = func(f codec.Frame) { sidebanded = append(sidebanded, f) }

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := c.GetMAC(ctx)
	if err != nil {
		t.Fatalf("GetMAC: %v", err)
	}
	want := MACAddress{1, 2, 3, 4, 5, 6}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	if len(sidebanded) != 1 || sidebanded[0].Cmd != 0x12 {
		t.Fatalf("expected the unrelated tag notification to reach Sideband, got %+v", sidebanded)
	}
	if len(tr.writes) != 1 {
		t.Fatalf("expected exactly one write, got %d", len(tr.writes))
	}
}

func TestRequestTimesOutWithNoMatch(t *testing.T) {
	tr := &fakeTransport{}
	c := New(tr, false, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Request(ctx, 0x01, 0x06, nil)
	if err == nil {
		t.Fatalf("expected a timeout error")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != KindTimeout {
		t.Fatalf("got %v, want KindTimeout", err)
	}
}

func TestGetTagsStopsOnEmptySentinel(t *testing.T) {
	tag1 := codec.Encode(0x01, 0x1B, []byte{0xDE, 0xAD}, nil)
	tag2 := codec.Encode(0x01, 0x1B, []byte{0xBE, 0xEF}, nil)
	sentinel := codec.Encode(0x01, 0x1B, nil, nil)

	tr := &fakeTransport{chunks: [][]byte{tag1, tag2, sentinel}}
	c := New(tr, false, 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	frames, err := c.GetTags(ctx)
	if err != nil {
		t.Fatalf("GetTags: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
}
