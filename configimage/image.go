// Package configimage parses and edits the reader's fixed 1072-byte
// configuration blob. Layout grounded in
// original_source/firmware_analysis/pram_p_array_decode.py's decoded
// config_pram dump.
package configimage

import (
	"fmt"
	"os"
)

// Size is the exact on-disk/on-wire size of a config image.
const Size = 1072

// Byte offsets and block sizes from the firmware's pram_p_array table.
const (
	offCOMBaud       = 0x0000
	offIP            = 0x0001 // IP(4) + Mask(4) + Gateway(4)
	offMAC           = 0x000D // 6 bytes
	offServerClient  = 0x0013 // port(2)+srvIP(4)+srvPort(2)+mode(1), 9 bytes
	offAntennaBase   = 0x001C
	antennaBlockSize = 0x100
	numPorts         = 4
	offWiegand       = 0x041C // enable,fmt,bits
	offRS485         = 0x041F // addr,mode
	offTagCacheSw    = 0x0422
	offTagCacheTime  = 0x0423
	offRelay         = 0x0425 // num(1)+ms(2)
	offPing          = 0x0428 // enable(1)+ip(4), ip little-endian
	offDHCP          = 0x042D
)

// Image is a value type over the fixed-size binary blob. Edits are local
// until Save is called.
type Image struct {
	data [Size]byte
}

// Load reads path as a 1072-byte config image.
func Load(path string) (Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("configimage: load: %w", err)
	}
	return FromBytes(raw)
}

// FromBytes copies raw into a new Image. raw must be exactly Size bytes.
func FromBytes(raw []byte) (Image, error) {
	if len(raw) != Size {
		return Image{}, fmt.Errorf("configimage: image must be %d bytes, got %d", Size, len(raw))
	}
	var img Image
	copy(img.data[:], raw)
	return img, nil
}

// Bytes returns a copy of the underlying buffer.
func (img Image) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, img.data[:])
	return out
}

// Save writes the image atomically: to a temp file in the same
// directory, then renamed over path.
func (img Image) Save(path string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, img.data[:], 0o644); err != nil {
		return fmt.Errorf("configimage: save: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("configimage: save rename: %w", err)
	}
	return nil
}

// Slice returns the raw bytes at [offset, offset+n) — the primitive the
// generic parameter-table GET/SET commands are built on.
func (img Image) Slice(offset, n int) []byte {
	out := make([]byte, n)
	copy(out, img.data[offset:offset+n])
	return out
}

// SetSlice writes b into [offset, offset+len(b)).
func (img *Image) SetSlice(offset int, b []byte) {
	copy(img.data[offset:offset+len(b)], b)
}

func (img Image) COMBaud() byte { return img.data[offCOMBaud] }

func (img *Image) SetCOMBaud(v byte) { img.data[offCOMBaud] = v }

func (img Image) IP() (ip, mask, gateway [4]byte) {
	copy(ip[:], img.data[offIP:offIP+4])
	copy(mask[:], img.data[offIP+4:offIP+8])
	copy(gateway[:], img.data[offIP+8:offIP+12])
	return
}

func (img *Image) SetIP(ip, mask, gateway [4]byte) {
	copy(img.data[offIP:offIP+4], ip[:])
	copy(img.data[offIP+4:offIP+8], mask[:])
	copy(img.data[offIP+8:offIP+12], gateway[:])
}

func (img Image) MAC() [6]byte {
	var mac [6]byte
	copy(mac[:], img.data[offMAC:offMAC+6])
	return mac
}

func (img *Image) SetMAC(mac [6]byte) {
	copy(img.data[offMAC:offMAC+6], mac[:])
}

func (img Image) ServerClient() (port uint16, serverIP [4]byte, serverPort uint16, mode byte) {
	b := img.data[offServerClient : offServerClient+9]
	port = uint16(b[0])<<8 | uint16(b[1])
	copy(serverIP[:], b[2:6])
	serverPort = uint16(b[6])<<8 | uint16(b[7])
	mode = b[8]
	return
}

func (img *Image) SetServerClient(port uint16, serverIP [4]byte, serverPort uint16, mode byte) {
	b := make([]byte, 9)
	b[0], b[1] = byte(port>>8), byte(port)
	copy(b[2:6], serverIP[:])
	b[6], b[7] = byte(serverPort>>8), byte(serverPort)
	b[8] = mode
	copy(img.data[offServerClient:offServerClient+9], b)
}

// AntennaBlockOffset returns the offset of the 256-byte RF-port block for
// port 0..3 (covering physical antennas port*2+1 and port*2+2).
func AntennaBlockOffset(port int) (int, error) {
	if port < 0 || port >= numPorts {
		return 0, fmt.Errorf("configimage: port %d out of range [0,%d)", port, numPorts)
	}
	return offAntennaBase + port*antennaBlockSize, nil
}

// AntennaBlock returns the full 256-byte raw block for port 0..3.
func (img Image) AntennaBlock(port int) ([]byte, error) {
	off, err := AntennaBlockOffset(port)
	if err != nil {
		return nil, err
	}
	return img.Slice(off, antennaBlockSize), nil
}

// SetAntennaBlock overwrites the full 256-byte raw block for port 0..3.
func (img *Image) SetAntennaBlock(port int, block []byte) error {
	off, err := AntennaBlockOffset(port)
	if err != nil {
		return err
	}
	if len(block) != antennaBlockSize {
		return fmt.Errorf("configimage: antenna block must be %d bytes, got %d", antennaBlockSize, len(block))
	}
	img.SetSlice(off, block)
	return nil
}

type WiegandConfig struct {
	Enable byte
	Format byte
	Bits   byte
}

func (img Image) Wiegand() WiegandConfig {
	b := img.data[offWiegand : offWiegand+3]
	return WiegandConfig{Enable: b[0], Format: b[1], Bits: b[2]}
}

func (img *Image) SetWiegand(w WiegandConfig) {
	img.data[offWiegand] = w.Enable
	img.data[offWiegand+1] = w.Format
	img.data[offWiegand+2] = w.Bits
}

func (img Image) RS485() (addr, mode byte) {
	return img.data[offRS485], img.data[offRS485+1]
}

func (img *Image) SetRS485(addr, mode byte) {
	img.data[offRS485], img.data[offRS485+1] = addr, mode
}

func (img Image) TagCacheSwitch() byte { return img.data[offTagCacheSw] }
func (img *Image) SetTagCacheSwitch(v byte) { img.data[offTagCacheSw] = v }

func (img Image) TagCacheTime() uint16 {
	return uint16(img.data[offTagCacheTime])<<8 | uint16(img.data[offTagCacheTime+1])
}

func (img *Image) SetTagCacheTime(v uint16) {
	img.data[offTagCacheTime] = byte(v >> 8)
	img.data[offTagCacheTime+1] = byte(v)
}

func (img Image) Relay() (num byte, ms uint16) {
	b := img.data[offRelay : offRelay+3]
	return b[0], uint16(b[1])<<8 | uint16(b[2])
}

func (img *Image) SetRelay(num byte, ms uint16) {
	img.data[offRelay] = num
	img.data[offRelay+1] = byte(ms >> 8)
	img.data[offRelay+2] = byte(ms)
}

// Ping returns the enable flag and the ping target IP. The image stores
// this IP little-endian on the wire and on disk; Ping returns it in
// normal big-endian display order.
func (img Image) Ping() (enable byte, ip [4]byte) {
	b := img.data[offPing : offPing+5]
	enable = b[0]
	ip = [4]byte{b[4], b[3], b[2], b[1]}
	return
}

func (img *Image) SetPing(enable byte, ip [4]byte) {
	img.data[offPing] = enable
	img.data[offPing+1] = ip[3]
	img.data[offPing+2] = ip[2]
	img.data[offPing+3] = ip[1]
	img.data[offPing+4] = ip[0]
}

func (img Image) DHCP() byte      { return img.data[offDHCP] }
func (img *Image) SetDHCP(v byte) { img.data[offDHCP] = v }

// FactoryReset overwrites every byte except the MAC at [0x0D,0x13) with
// defaults, per spec.md §3's invariant and tested by scenario S6.
func (img *Image) FactoryReset() {
	mac := img.MAC()
	img.data = defaultImage
	img.SetMAC(mac)
}
