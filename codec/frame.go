// Package codec implements the reader's wire framing: [0xAA][cmd][sub]
// [(addr)][len_hi][len_lo][payload][crc_hi][crc_lo], CRC-16/BUYPASS over
// every byte between the sync byte and the CRC field.
package codec

import "fmt"

const (
	sync byte = 0xAA

	rs485Flag byte = 0x20

	// MaxPayload is the exclusive upper bound on a declared payload length;
	// anything at or above this forces a resync rather than an allocation.
	MaxPayload = 0x400

	minFrameLen      = 7 // sync + cmd + sub + len(2) + crc(2), zero payload
	minFrameLenRS485 = 8
)

// Frame is one parsed or to-be-encoded protocol unit. Cmd never carries the
// RS-485 flag bit — that bit is represented by RS485/Addr instead.
type Frame struct {
	Cmd     byte
	Sub     byte
	RS485   bool
	Addr    byte
	Payload []byte
}

// DecodeStatus reports what DecodeOne found in the buffer.
type DecodeStatus int

const (
	StatusOK DecodeStatus = iota
	StatusNeedMore
	StatusResync
)

// Encode builds the wire bytes for a request or response. rs485Addr, when
// non-nil, sets the RS-485 flag bit and inserts the address byte after sub.
func Encode(cmd, sub byte, payload []byte, rs485Addr *byte) []byte {
	if len(payload) >= MaxPayload {
		panic(fmt.Sprintf("codec: payload too large: %d bytes", len(payload)))
	}

	cmdByte := cmd
	hasAddr := rs485Addr != nil
	if hasAddr {
		cmdByte |= rs485Flag
	}

	n := len(payload)
	body := make([]byte, 0, 4+n+1)
	body = append(body, cmdByte, sub)
	if hasAddr {
		body = append(body, *rs485Addr)
	}
	body = append(body, byte(n>>8), byte(n))
	body = append(body, payload...)

	crc := CRC16(body)

	out := make([]byte, 0, 1+len(body)+2)
	out = append(out, sync)
	out = append(out, body...)
	out = append(out, byte(crc>>8), byte(crc))
	return out
}

// DecodeOne scans buf for a sync byte and attempts to parse one complete
// frame starting there. It does not parse past garbage itself: when bytes
// precede the first sync byte it reports StatusResync with consumed equal
// to the number of those bytes, and the caller drops them and calls again
// (FramedReader does, see reader.go).
//
// consumed is only meaningful when status is StatusOK or StatusResync and
// is always measured from buf[0]. On a bad length or CRC for the frame at
// buf[0] it is 1 (the caller advances past exactly one bad sync byte and
// retries).
func DecodeOne(buf []byte) (frame Frame, consumed int, status DecodeStatus) {
	idx := indexByte(buf, sync)
	if idx < 0 {
		return Frame{}, 0, StatusNeedMore
	}
	if idx > 0 {
		// Garbage precedes the sync byte; tell the caller to drop exactly
		// that much and retry from the sync byte itself.
		return Frame{}, idx, StatusResync
	}

	if len(buf) < 4 {
		return Frame{}, 0, StatusNeedMore
	}

	cmdByte := buf[1]
	rs485 := cmdByte&rs485Flag != 0

	headerLen := minFrameLen
	if rs485 {
		headerLen = minFrameLenRS485
	}
	if len(buf) < headerLen-2 { // enough to read the length field
		return Frame{}, 0, StatusNeedMore
	}

	var addr byte
	lenOff := 3
	if rs485 {
		addr = buf[3]
		lenOff = 4
	}
	length := int(buf[lenOff])<<8 | int(buf[lenOff+1])
	if length >= MaxPayload {
		return Frame{}, 1, StatusResync
	}

	total := headerLen + length
	if len(buf) < total {
		return Frame{}, 0, StatusNeedMore
	}

	body := buf[1 : total-2]
	wantCRC := CRC16(body)
	gotCRC := uint16(buf[total-2])<<8 | uint16(buf[total-1])
	if wantCRC != gotCRC {
		return Frame{}, 1, StatusResync
	}

	payload := make([]byte, length)
	copy(payload, buf[lenOff+2:lenOff+2+length])

	return Frame{
		Cmd:     cmdByte &^ rs485Flag,
		Sub:     buf[2],
		RS485:   rs485,
		Addr:    addr,
		Payload: payload,
	}, total, StatusOK
}

func indexByte(buf []byte, b byte) int {
	for i, v := range buf {
		if v == b {
			return i
		}
	}
	return -1
}
