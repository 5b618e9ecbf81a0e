// Package config parses the bridge process's command-line flags.
// Grounded in the teacher's config/flags.go (flag.StringVar/IntVar over a
// plain struct), generalized from a CAN driver selector to a reader
// transport selector.
package config

import "flag"

// TransportKind selects how the bridge's reader client reaches the
// device, mirroring the teacher's DriverType selector.
type TransportKind string

const (
	TransportTCP         TransportKind = "tcp"
	TransportSerial      TransportKind = "serial"
	TransportSerialRS485 TransportKind = "serial-rs485"
	TransportReplay      TransportKind = "replay"
)

// Flags holds the bridge's own listen address and transport selection.
type Flags struct {
	Transport TransportKind
	Addr      string
}

// SerialFlags configures the serial/serial-rs485 transports.
type SerialFlags struct {
	SerialPort string
	BaudRate   int
}

// ReplayFlags configures the replay transport, used for development
// without a live reader.
type ReplayFlags struct {
	Path  string
	Speed float64
	Loop  bool
}

const DefaultBaudRate = 115200

// GetFlags parses os.Args and returns the bridge's flag groups.
func GetFlags() (*Flags, *SerialFlags, *ReplayFlags) {
	flags := &Flags{}
	var transportStr string
	flag.StringVar(&transportStr, "transport", "tcp", "transport to use to reach the reader: tcp, serial, serial-rs485, replay")
	flag.StringVar(&flags.Addr, "addr", ":8080", "bridge HTTP listen address")

	serial := &SerialFlags{}
	flag.StringVar(&serial.SerialPort, "serial-port", "auto", "serial device path or 'auto'")
	flag.IntVar(&serial.BaudRate, "baud", DefaultBaudRate, "serial baud rate")

	replay := &ReplayFlags{}
	flag.StringVar(&replay.Path, "replay", "", "path to a captured byte stream to replay instead of a live reader")
	flag.Float64Var(&replay.Speed, "replay-speed", 1.0, "replay speed multiplier (0 = as fast as possible)")
	flag.BoolVar(&replay.Loop, "replay-loop", false, "loop replay at EOF")

	flag.Parse()

	flags.Transport = TransportKind(transportStr)

	return flags, serial, replay
}
