package client

import "fmt"

// Typed results for every (cmd,sub) pair in spec.md §4.3's table. Field
// names mirror the wire layout directly; callers needing JSON shape it
// themselves at the bridge boundary.

type ReaderInfo struct {
	Model   [4]byte
	Name    string
	Uptime  uint32
}

type NetworkConfig struct {
	IP, Mask, Gateway [4]byte
}

type MACAddress [6]byte

type ServerClientConfig struct {
	Port       uint16
	ServerIP   [4]byte
	ServerPort uint16
	Mode       byte
}

type GPIPin struct {
	Pin   byte
	Level byte
}

type AntennaConfig struct {
	Index      byte
	Power      byte
	Protocol   byte
	FreqRegion byte
	Session    byte
	Target     byte
	QValue     byte
	ParamA     byte
	ParamB     byte
}

type WiegandConfig struct {
	Enable byte
	Format byte
	Bits   byte
}

type TimeValue struct {
	Seconds uint32
	Micros  uint32 // 0 when the response omits the optional microsecond field
}

type RS485Config struct {
	Addr byte
	Mode byte
}

type RelayConfig struct {
	Num byte
	Ms  uint16
}

// PingConfig's IP is little-endian on the wire, unlike every other IP
// field in the protocol — spec.md §4.1 flags this as a documented
// per-subcommand exception.
type PingConfig struct {
	Enable byte
	IP     [4]byte
}

type StatusResult struct {
	Status byte
}

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func needLen(payload []byte, n int, what string) error {
	if len(payload) < n {
		return fmt.Errorf("%s: payload too short: have %d, want >= %d", what, len(payload), n)
	}
	return nil
}

func decodeReaderInfo(p []byte) (ReaderInfo, error) {
	if err := needLen(p, 24, "reader info"); err != nil {
		return ReaderInfo{}, err
	}
	var info ReaderInfo
	copy(info.Model[:], p[0:4])
	end := 4
	for end < 20 && p[end] != 0 {
		end++
	}
	info.Name = string(p[4:end])
	info.Uptime = be32(p[20:24])
	return info, nil
}

func decodeBaud(p []byte) (byte, error) {
	if err := needLen(p, 1, "baud"); err != nil {
		return 0, err
	}
	return p[0], nil
}

func decodeNetwork(p []byte) (NetworkConfig, error) {
	if err := needLen(p, 12, "network"); err != nil {
		return NetworkConfig{}, err
	}
	var n NetworkConfig
	copy(n.IP[:], p[0:4])
	copy(n.Mask[:], p[4:8])
	copy(n.Gateway[:], p[8:12])
	return n, nil
}

func decodeMAC(p []byte) (MACAddress, error) {
	if err := needLen(p, 6, "mac"); err != nil {
		return MACAddress{}, err
	}
	var m MACAddress
	copy(m[:], p[0:6])
	return m, nil
}

func decodeServerClient(p []byte) (ServerClientConfig, error) {
	if err := needLen(p, 9, "server/client"); err != nil {
		return ServerClientConfig{}, err
	}
	var s ServerClientConfig
	s.Port = be16(p[0:2])
	copy(s.ServerIP[:], p[2:6])
	s.ServerPort = be16(p[6:8])
	s.Mode = p[8]
	return s, nil
}

func decodeGPI(p []byte) ([]GPIPin, error) {
	if err := needLen(p, 8, "gpi"); err != nil {
		return nil, err
	}
	pins := make([]GPIPin, 0, 4)
	for i := 0; i < 4; i++ {
		pins = append(pins, GPIPin{Pin: p[i*2], Level: p[i*2+1]})
	}
	return pins, nil
}

func decodeAntenna(p []byte) (AntennaConfig, error) {
	if err := needLen(p, 9, "antenna"); err != nil {
		return AntennaConfig{}, err
	}
	return AntennaConfig{
		Index:      p[0],
		Power:      p[3],
		Protocol:   p[4],
		FreqRegion: p[5],
		Session:    p[7],
		Target:     p[8],
		QValue:     valueOr(p, 9, 0),
		ParamA:     valueOr(p, 10, 0),
		ParamB:     valueOr(p, 11, 0),
	}, nil
}

func valueOr(p []byte, idx int, fallback byte) byte {
	if idx < len(p) {
		return p[idx]
	}
	return fallback
}

func decodeWiegand(p []byte) (WiegandConfig, error) {
	if err := needLen(p, 3, "wiegand"); err != nil {
		return WiegandConfig{}, err
	}
	return WiegandConfig{Enable: p[0], Format: p[1], Bits: p[2]}, nil
}

func decodeTime(p []byte) (TimeValue, error) {
	if err := needLen(p, 4, "time"); err != nil {
		return TimeValue{}, err
	}
	t := TimeValue{Seconds: be32(p[0:4])}
	if len(p) >= 8 {
		t.Micros = be32(p[4:8])
	}
	return t, nil
}

func decodeRS485(p []byte) (RS485Config, error) {
	if err := needLen(p, 2, "rs485"); err != nil {
		return RS485Config{}, err
	}
	return RS485Config{Addr: p[0], Mode: p[1]}, nil
}

func decodeTagCacheSwitch(p []byte) (byte, error) {
	if err := needLen(p, 1, "tag cache switch"); err != nil {
		return 0, err
	}
	return p[0], nil
}

func decodeTagCacheTime(p []byte) (uint16, error) {
	if err := needLen(p, 2, "tag cache time"); err != nil {
		return 0, err
	}
	return be16(p[0:2]), nil
}

func decodeStatus(p []byte) (StatusResult, error) {
	if len(p) == 0 {
		return StatusResult{Status: 0}, nil
	}
	return StatusResult{Status: p[0]}, nil
}

func decodeRelay(p []byte) (RelayConfig, error) {
	if err := needLen(p, 3, "relay"); err != nil {
		return RelayConfig{}, err
	}
	return RelayConfig{Num: p[0], Ms: be16(p[1:3])}, nil
}

func decodePing(p []byte) (PingConfig, error) {
	if err := needLen(p, 5, "ping"); err != nil {
		return PingConfig{}, err
	}
	cfg := PingConfig{Enable: p[0]}
	// little-endian, unlike every other IP field in this protocol.
	cfg.IP = [4]byte{p[4], p[3], p[2], p[1]}
	return cfg, nil
}

func decodeDHCP(p []byte) (byte, error) {
	if err := needLen(p, 1, "dhcp"); err != nil {
		return 0, err
	}
	return p[0], nil
}
