// Package discovery implements the reader's UDP ASCII broadcast discovery
// protocol. Grounded in
// original_source/tools/cl7206c2_tool.py's discover_readers/get_reader_info.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// Probe byte strings the firmware's UDP_cmd_process recognizes.
var probes = [][]byte{
	{0xFF, 0xFF, 0xFF, 0xFF},
	[]byte("^RFID_READER_INFORMATION"),
	{0x00},
}

// Info is a tolerantly-parsed discovery response: unknown keys are kept
// verbatim in Raw, known keys are exposed as typed fields when present.
type Info struct {
	Raw map[string]string

	DHCP           string
	IP             string
	Mask           string
	Gateway        string
	MAC            string
	Port           string
	HostServerIP   string
	HostServerPort string
	Mode           string
	NetState       string
}

func assign(i *Info, key, val string) {
	switch key {
	case "DHCP_SW":
		i.DHCP = val
	case "IP":
		i.IP = val
	case "MASK":
		i.Mask = val
	case "GATEWAY":
		i.Gateway = val
	case "MAC":
		i.MAC = val
	case "PORT":
		i.Port = val
	case "HOST_SERVER_IP":
		i.HostServerIP = val
	case "HOST_SERVER_PORT":
		i.HostServerPort = val
	case "MODE":
		i.Mode = val
	case "NET_STATE":
		i.NetState = val
	}
}

// Parse decodes an ASCII `^KEY:VAL,KEY:VAL,...$` discovery response,
// tolerating unknown keys and missing fields.
func Parse(response []byte) Info {
	s := string(response)
	s = strings.TrimPrefix(s, "^")
	s = strings.TrimSuffix(strings.TrimSpace(s), "$")

	info := Info{Raw: map[string]string{}}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, ":", 2)
		key := kv[0]
		val := ""
		if len(kv) == 2 {
			val = kv[1]
		}
		info.Raw[key] = val
		assign(&info, key, val)
	}
	return info
}

// Query sends each probe to addr in turn and returns the first response
// that parses as a discovery frame (contains "RFID_READER_INFORMATION" or
// at least one recognized key).
func Query(ctx context.Context, addr string, timeout time.Duration) (Info, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return Info{}, fmt.Errorf("discovery: dial %s: %w", addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	buf := make([]byte, 1024)
	for _, probe := range probes {
		if _, err := conn.Write(probe); err != nil {
			continue
		}
		n, err := conn.Read(buf)
		if err != nil {
			continue
		}
		info := Parse(buf[:n])
		for _, key := range []string{"RFID_READER_INFORMATION", "DHCP_SW", "IP", "MASK", "GATEWAY", "MAC", "PORT", "HOST_SERVER_IP", "HOST_SERVER_PORT", "MODE", "NET_STATE"} {
			if _, ok := info.Raw[key]; ok {
				return info, nil
			}
		}
	}
	return Info{}, fmt.Errorf("discovery: no response from %s", addr)
}

// Broadcast sends every probe to 255.255.255.255:port and collects
// whatever responses arrive before timeout elapses.
func Broadcast(ctx context.Context, port int, timeout time.Duration) ([]Info, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("discovery: listen: %w", err)
	}
	defer conn.Close()

	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: port}
	for _, probe := range probes {
		if _, err := conn.WriteTo(probe, dst); err != nil {
			return nil, fmt.Errorf("discovery: broadcast write: %w", err)
		}
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	var results []Info
	buf := make([]byte, 1024)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			break
		}
		results = append(results, Parse(buf[:n]))
	}
	return results, nil
}
