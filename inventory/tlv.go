// Package inventory implements the background continuous-inventory
// consumer: the Idle->Starting->Running->Stopping->Idle state machine and
// the TLV tag-notification decoder.
package inventory

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Record is one decoded tag notification (spec.md §3/§4.4). Fields follow
// the spec's {count,ts,epc_hex,pc,antenna,rssi,tid?,raw_hex} shape.
type Record struct {
	Count     int
	TimestampMillis int64
	EPCHex    string
	PC        uint16
	Antenna   int // physical_antenna = ant_num*2+sub_ant+1, range 1..8
	AntNum    int
	SubAnt    int
	RSSI      *byte
	TIDHex    string
	RawHex    string
	Error     string
}

// ParseTagNotification decodes a CMD=0x12 payload per spec.md §3: PC word,
// EPC bytes, then a TLV extension stream. TLV parsing is a small state
// machine over the slice; bounds are checked at every step and a partial
// record with Error set is returned rather than aborting, since some TLV
// types can be truncated in the wild (spec.md §9).
func ParseTagNotification(count int, payload []byte) Record {
	rec := Record{Count: count, RawHex: hex.EncodeToString(payload)}

	if len(payload) < 2 {
		rec.Error = "truncated: missing PC word"
		return rec
	}
	rec.PC = uint16(payload[0])<<8 | uint16(payload[1])

	epcWords := (rec.PC >> 11) & 0x1F
	epcLen := int(epcWords) * 2

	if len(payload) < 2+epcLen {
		rec.Error = fmt.Sprintf("truncated: want %d EPC bytes, have %d", epcLen, len(payload)-2)
		rec.EPCHex = strings.ToUpper(hex.EncodeToString(payload[2:]))
		return rec
	}
	rec.EPCHex = strings.ToUpper(hex.EncodeToString(payload[2 : 2+epcLen]))

	rest := payload[2+epcLen:]
	for len(rest) > 0 {
		tlvType := rest[0]
		switch tlvType {
		case 0x01: // antenna: [type][ant_num][sub_ant]
			if len(rest) < 3 {
				rec.Error = "truncated antenna TLV"
				return rec
			}
			rec.AntNum = int(rest[1])
			rec.SubAnt = int(rest[2])
			rec.Antenna = rec.AntNum*2 + rec.SubAnt + 1
			rest = rest[3:]
		case 0x02: // rssi: [type][rssi][rssi2]; rssi2 may be cut off at the end of the payload
			if len(rest) < 2 {
				rec.Error = "truncated rssi TLV"
				return rec
			}
			rssi := rest[1]
			rec.RSSI = &rssi
			if len(rest) < 3 {
				rest = rest[2:]
			} else {
				rest = rest[3:]
			}
		case 0x03: // TID: [type][flag][len_hi][len_lo][data...]
			if len(rest) < 4 {
				rec.Error = "truncated tid TLV"
				return rec
			}
			tidLen := int(rest[2])<<8 | int(rest[3])
			if len(rest) < 4+tidLen {
				rec.Error = "truncated tid TLV data"
				return rec
			}
			rec.TIDHex = hex.EncodeToString(rest[4 : 4+tidLen])
			rest = rest[4+tidLen:]
		case 0x06: // sub-antenna alternative: [type][sub_ant]
			if len(rest) < 2 {
				rec.Error = "truncated sub-antenna TLV"
				return rec
			}
			rec.SubAnt = int(rest[1])
			rec.Antenna = rec.AntNum*2 + rec.SubAnt + 1
			rest = rest[2:]
		case 0x04, 0x05: // reserved extra blocks: skip a conservative minimum
			if len(rest) < 2 {
				return rec
			}
			rest = rest[2:]
		default:
			// unknown TLV type: stop rather than misinterpret the rest.
			return rec
		}
	}

	return rec
}
