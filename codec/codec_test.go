package codec

import (
	"bytes"
	"testing"
)

func TestCRC16TableConstants(t *testing.T) {
	want := []uint16{0x0000, 0x8005, 0x800F, 0x000A, 0x801B, 0x001E, 0x0014, 0x8011}
	for i, w := range want {
		if crc16Table[i] != w {
			t.Fatalf("table[%d] = 0x%04X, want 0x%04X", i, crc16Table[i], w)
		}
	}
}

func TestEncodeGetMAC(t *testing.T) {
	got := Encode(0x01, 0x06, nil, nil)
	want := []byte{0xAA, 0x01, 0x06, 0x00, 0x00, 0x41, 0x30}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % X, want % X", got, want)
	}
}

func TestDecodeMACResponse(t *testing.T) {
	body := []byte{0x01, 0x06, 0x00, 0x06, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	crc := CRC16(body)
	buf := append(append([]byte{sync}, body...), byte(crc>>8), byte(crc))

	f, consumed, status := DecodeOne(buf)
	if status != StatusOK {
		t.Fatalf("status = %v, want StatusOK", status)
	}
	if consumed != len(buf) {
		t.Fatalf("consumed = %d, want %d", consumed, len(buf))
	}
	if f.Cmd != 0x01 || f.Sub != 0x06 {
		t.Fatalf("cmd/sub = %02X/%02X", f.Cmd, f.Sub)
	}
	want := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	if !bytes.Equal(f.Payload, want) {
		t.Fatalf("payload = % X, want % X", f.Payload, want)
	}
}

func TestRS485Wrap(t *testing.T) {
	frame, _, status := DecodeOne(Encode(0x01, 0x06, nil, nil))
	if status != StatusOK {
		t.Fatalf("precondition decode failed")
	}
	wrapped := RS485Wrap(frame, 0x12)
	wire := wrapped.Bytes()

	if wire[1] != 0x21 || wire[2] != 0x06 {
		t.Fatalf("wire[1:3] = % X, want 21 06", wire[1:3])
	}
	if wire[3] != 0x12 {
		t.Fatalf("addr byte = %02X, want 12", wire[3])
	}
}

func TestRS485RoundTrip(t *testing.T) {
	base, _, _ := DecodeOne(Encode(0x05, 0x10, []byte{1, 2, 3}, nil))

	wrapped := RS485Wrap(base, 0x7)
	stripped, ok := RS485Strip(wrapped, 0x7)
	if !ok {
		t.Fatalf("strip with matching address should succeed")
	}
	if stripped.Cmd != base.Cmd || stripped.Sub != base.Sub || !bytes.Equal(stripped.Payload, base.Payload) {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", stripped, base)
	}
	if stripped.RS485 {
		t.Fatalf("stripped frame must not carry the RS-485 flag")
	}

	if _, ok := RS485Strip(wrapped, 0x8); ok {
		t.Fatalf("strip with mismatched address must drop the frame")
	}
}

func TestResyncPastGarbage(t *testing.T) {
	valid := Encode(0x01, 0x00, nil, nil)
	garbage := []byte{0x00, 0xFF, 0x10, 0x10}
	buf := append(append([]byte{}, garbage...), valid...)

	r := NewFramedReader()
	r.Feed(buf)

	f, ok := r.Pull()
	if !ok {
		t.Fatalf("expected a frame after garbage")
	}
	if f.Cmd != 0x01 || f.Sub != 0x00 {
		t.Fatalf("got wrong frame after resync: %+v", f)
	}
	if r.Buffered() != 0 {
		t.Fatalf("buffered = %d, want 0 (garbage.len()+frame.len() fully consumed)", r.Buffered())
	}
}

func TestFramingAcrossReads(t *testing.T) {
	valid := Encode(0x02, 0x10, []byte{0x01, 0x02}, nil)

	for split := 0; split <= len(valid); split++ {
		r := NewFramedReader()
		r.Feed(valid[:split])
		f, ok := r.Pull()
		if ok && split < len(valid) {
			t.Fatalf("split %d: got a frame before the full frame arrived", split)
		}
		r.Feed(valid[split:])
		if !ok {
			f, ok = r.Pull()
		}
		if !ok {
			t.Fatalf("split %d: expected exactly one frame once complete", split)
		}
		if f.Cmd != 0x02 || f.Sub != 0x10 {
			t.Fatalf("split %d: wrong frame: %+v", split, f)
		}
		if _, ok := r.Pull(); ok {
			t.Fatalf("split %d: expected exactly one frame, got a second", split)
		}
	}
}

func TestLengthBoundForcesResync(t *testing.T) {
	// declared length 0x400 must never be treated as valid, regardless of
	// what (if anything) follows it.
	buf := []byte{sync, 0x01, 0x00, 0x04, 0x00}
	_, consumed, status := DecodeOne(buf)
	if status != StatusResync {
		t.Fatalf("status = %v, want StatusResync", status)
	}
	if consumed != 1 {
		t.Fatalf("consumed = %d, want 1 (advance past the bad sync only)", consumed)
	}
}

func TestCRCMismatchResyncsWithoutDroppingTail(t *testing.T) {
	good := Encode(0x01, 0x00, []byte("hi"), nil)
	corrupted := append([]byte{}, good...)
	corrupted[len(corrupted)-1] ^= 0xFF

	trailing := Encode(0x01, 0x01, nil, nil)
	buf := append(corrupted, trailing...)

	r := NewFramedReader()
	r.Feed(buf)

	f, ok := r.Pull()
	if !ok {
		t.Fatalf("expected the trailing valid frame to still be recoverable")
	}
	if f.Cmd != 0x01 || f.Sub != 0x01 {
		t.Fatalf("got %+v, want the trailing frame, not the corrupted one", f)
	}
}
