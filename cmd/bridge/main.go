// Command bridge starts the session bridge: the HTTP/WebSocket façade
// over a single reader connection, per SPEC_FULL.md §5.6. Grounded in the
// teacher's cmd/dashboard/dashboard.go (config.GetFlags -> pick a driver
// -> start the web server).
package main

import (
	"log"

	"github.com/malike-rnd/cl7206c2-rfid/bridge"
	"github.com/malike-rnd/cl7206c2-rfid/config"
	"github.com/malike-rnd/cl7206c2-rfid/transport"
)

func main() {
	flags, serialFlags, replayFlags := config.GetFlags()

	session := bridge.NewSession()

	// The tcp transport variant is dialed per call through POST
	// /api/connect (ip/port are request data, not process configuration).
	// The serial/RS-485/replay variants are fixed for the life of the
	// process, so they're opened once here and attached directly.
	switch flags.Transport {
	case config.TransportSerial:
		tr, err := transport.OpenSerial(serialFlags.SerialPort, serialFlags.BaudRate, false)
		if err != nil {
			log.Fatalf("bridge: open serial: %v", err)
		}
		session.Attach(tr, false, 0, "serial")
	case config.TransportSerialRS485:
		tr, err := transport.OpenSerial(serialFlags.SerialPort, serialFlags.BaudRate, true)
		if err != nil {
			log.Fatalf("bridge: open serial-rs485: %v", err)
		}
		session.Attach(tr, true, 0, "serial-rs485")
	case config.TransportReplay:
		tr, err := transport.NewReplay(replayFlags.Path, replayFlags.Speed, replayFlags.Loop)
		if err != nil {
			log.Fatalf("bridge: open replay: %v", err)
		}
		session.Attach(tr, false, 0, "replay")
	case config.TransportTCP:
		// left unconnected: the first POST /api/connect dials it.
	default:
		log.Fatalf("bridge: unknown transport %q", flags.Transport)
	}

	server := bridge.NewServer(session)
	if err := server.Start(flags.Addr); err != nil {
		log.Fatalf("bridge: server: %v", err)
	}
}
