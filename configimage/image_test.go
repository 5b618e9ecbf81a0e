package configimage

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestMACPreservedAcrossFactoryReset(t *testing.T) {
	raw := make([]byte, Size)
	rnd := rand.New(rand.NewSource(1))
	rnd.Read(raw)

	img, err := FromBytes(raw)
	if err != nil {
		t.Fatal(err)
	}
	mac := img.MAC()

	img.FactoryReset()

	if img.MAC() != mac {
		t.Fatalf("MAC changed across factory reset: got %v, want %v", img.MAC(), mac)
	}
	want := defaultImage
	want[offMAC], want[offMAC+1], want[offMAC+2] = mac[0], mac[1], mac[2]
	want[offMAC+3], want[offMAC+4], want[offMAC+5] = mac[3], mac[4], mac[5]
	if !bytes.Equal(img.Bytes(), want[:]) {
		t.Fatalf("factory reset did not match defaults outside the MAC range")
	}
}

func TestAntennaRoundTrip(t *testing.T) {
	var img Image
	cfg := AntennaConfig{Index: 1, Power: 30, Protocol: 2, FreqRegion: 0x10, Session: 1, Target: 0, QValue: 6, ParamA: 1, ParamB: 3}
	if err := img.SetAntenna(2, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := img.Antenna(2)
	if err != nil {
		t.Fatal(err)
	}
	if got != cfg {
		t.Fatalf("got %+v, want %+v", got, cfg)
	}

	// Antenna blocks must not leak into each other.
	other, err := img.Antenna(0)
	if err != nil {
		t.Fatal(err)
	}
	if other.Power != 0 {
		t.Fatalf("antenna 0 was touched by SetAntenna(2, ...): %+v", other)
	}
}

func TestTriggerConfigRoundTrip(t *testing.T) {
	var img Image
	cfg := TriggerConfig{
		GPIPin:    0,
		StartMode: TriggerRising,
		RFCommand: []byte{0x02, 0x10, 0x00, 0x00},
		StopMode:  TriggerDelay,
	}
	if err := img.SetTrigger(1, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := img.Trigger(1)
	if err != nil {
		t.Fatal(err)
	}
	if got.GPIPin != cfg.GPIPin || got.StartMode != cfg.StartMode || got.StopMode != cfg.StopMode {
		t.Fatalf("got %+v, want %+v", got, cfg)
	}
	if !bytes.Equal(got.RFCommand, cfg.RFCommand) {
		t.Fatalf("rf command = % X, want % X", got.RFCommand, cfg.RFCommand)
	}
}

func TestPingIPRoundTripsDisplayOrder(t *testing.T) {
	var img Image
	ip := [4]byte{192, 168, 1, 50}
	img.SetPing(1, ip)

	enable, gotIP := img.Ping()
	if enable != 1 || gotIP != ip {
		t.Fatalf("got enable=%d ip=%v, want enable=1 ip=%v", enable, gotIP, ip)
	}
	// on the wire/disk it must actually be little-endian.
	raw := img.Bytes()
	if raw[offPing+1] != ip[3] || raw[offPing+4] != ip[0] {
		t.Fatalf("ping IP not stored little-endian on disk")
	}
}
