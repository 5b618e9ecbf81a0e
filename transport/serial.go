package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// USB VIDs seen on CL7206C2 RS-485/USB-serial adapters and common clones.
var preferredVIDs = map[string]bool{
	"1A86": true, // CH340
	"10C4": true, // CP210x
	"0403": true, // FTDI
}

// Serial is the USB-serial / direct-serial transport variant.
type Serial struct {
	port    serial.Port
	tracker *writeFailureTracker
	writeMu sync.Mutex

	rs485     bool
	localAddr byte
}

// OpenSerial opens portName (or "auto" to pick the first matching USB
// VID) at baud. rs485 marks this as the RS-485-over-serial variant; it is
// only recorded on the Serial value, and the Client's address wrapping and
// stripping is configured separately through client.New.
func OpenSerial(portName string, baud int, rs485 bool) (*Serial, error) {
	if portName == "auto" {
		name, err := autoSelectPort()
		if err != nil {
			return nil, err
		}
		portName = name
	}

	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("transport: open serial %s: %w", portName, err)
	}

	return &Serial{port: port, tracker: newWriteFailureTracker(), rs485: rs485}, nil
}

func autoSelectPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("transport: enumerate ports: %w", err)
	}
	for _, p := range ports {
		if p.IsUSB && preferredVIDs[strings.ToUpper(p.VID)] {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("transport: no matching serial port found")
}

func (s *Serial) OnReset(fn func(error)) { s.tracker.OnReset(fn) }

func (s *Serial) Read(ctx context.Context) ([]byte, error) {
	timeout := time.Duration(0)
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout < 0 {
			timeout = 0
		}
	}
	_ = s.port.SetReadTimeout(timeout)

	buf := make([]byte, 4096)
	n, err := s.port.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("transport: serial read: %w", err)
	}
	return buf[:n], nil
}

func (s *Serial) Write(ctx context.Context, frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	remaining := frame
	for len(remaining) > 0 {
		n, err := s.port.Write(remaining)
		if err != nil {
			if s.tracker.recordFailure(err) {
				_ = s.Close()
			}
			return fmt.Errorf("transport: serial write: %w", err)
		}
		remaining = remaining[n:]
	}
	s.tracker.recordSuccess()
	return nil
}

func (s *Serial) Close() error {
	return s.port.Close()
}
