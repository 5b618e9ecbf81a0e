package client

import (
	"context"
	"fmt"
)

// statusOrDeviceErr decodes a status-byte response and, per §7 ("well-formed
// response carrying a non-zero status byte"), converts a non-zero status
// into a KindDevice error rather than handing the raw byte back as success.
func statusOrDeviceErr(op string, payload []byte) (StatusResult, error) {
	res, err := decodeStatus(payload)
	if err != nil {
		return StatusResult{}, newErr(KindProtocol, op, err)
	}
	if res.Status != 0 {
		return res, newErr(KindDevice, op, fmt.Errorf("status byte 0x%02X", res.Status))
	}
	return res, nil
}

// The following wrap Request with the typed decoder for each documented
// (cmd,sub) pair (spec.md §4.3's table). All live under cmd=0x01 unless
// their doc comment says otherwise.

func (c *Client) GetReaderInfo(ctx context.Context) (ReaderInfo, error) {
	f, err := c.Request(ctx, 0x01, 0x00, nil)
	if err != nil {
		return ReaderInfo{}, err
	}
	info, err := decodeReaderInfo(f.Payload)
	if err != nil {
		return ReaderInfo{}, newErr(KindProtocol, "reader info", err)
	}
	return info, nil
}

func (c *Client) GetBaud(ctx context.Context) (byte, error) {
	f, err := c.Request(ctx, 0x01, 0x03, nil)
	if err != nil {
		return 0, err
	}
	return decodeBaud(f.Payload)
}

func (c *Client) SetBaud(ctx context.Context, baud byte) error {
	_, err := c.Request(ctx, 0x01, 0x02, []byte{baud})
	return err
}

func (c *Client) GetNetwork(ctx context.Context) (NetworkConfig, error) {
	f, err := c.Request(ctx, 0x01, 0x05, nil)
	if err != nil {
		return NetworkConfig{}, err
	}
	return decodeNetwork(f.Payload)
}

func (c *Client) SetNetwork(ctx context.Context, n NetworkConfig) error {
	payload := append(append(append([]byte{}, n.IP[:]...), n.Mask[:]...), n.Gateway[:]...)
	_, err := c.Request(ctx, 0x01, 0x04, payload)
	return err
}

func (c *Client) GetMAC(ctx context.Context) (MACAddress, error) {
	f, err := c.Request(ctx, 0x01, 0x06, nil)
	if err != nil {
		return MACAddress{}, err
	}
	return decodeMAC(f.Payload)
}

func (c *Client) SetMAC(ctx context.Context, mac MACAddress) error {
	_, err := c.Request(ctx, 0x01, 0x13, mac[:])
	return err
}

func (c *Client) GetServerClient(ctx context.Context) (ServerClientConfig, error) {
	f, err := c.Request(ctx, 0x01, 0x08, nil)
	if err != nil {
		return ServerClientConfig{}, err
	}
	return decodeServerClient(f.Payload)
}

func (c *Client) SetServerClient(ctx context.Context, s ServerClientConfig) error {
	payload := []byte{byte(s.Port >> 8), byte(s.Port)}
	payload = append(payload, s.ServerIP[:]...)
	payload = append(payload, byte(s.ServerPort>>8), byte(s.ServerPort))
	payload = append(payload, s.Mode)
	_, err := c.Request(ctx, 0x01, 0x07, payload)
	return err
}

// SetGPO writes up to 4 (pin,state) pairs.
func (c *Client) SetGPO(ctx context.Context, pins []GPIPin) (StatusResult, error) {
	payload := make([]byte, 0, len(pins)*2)
	for _, p := range pins {
		payload = append(payload, p.Pin, p.Level)
	}
	f, err := c.Request(ctx, 0x01, 0x09, payload)
	if err != nil {
		return StatusResult{}, err
	}
	return statusOrDeviceErr("set_gpo", f.Payload)
}

func (c *Client) GetGPI(ctx context.Context) ([]GPIPin, error) {
	f, err := c.Request(ctx, 0x01, 0x0A, nil)
	if err != nil {
		return nil, err
	}
	return decodeGPI(f.Payload)
}

func (c *Client) GetAntenna(ctx context.Context, port byte) (AntennaConfig, error) {
	f, err := c.Request(ctx, 0x01, 0x0C, []byte{port})
	if err != nil {
		return AntennaConfig{}, err
	}
	return decodeAntenna(f.Payload)
}

// GetAntennaBlock returns the raw antenna/trigger block for port, undecoded.
// The block carries the 14-byte AntennaConfig followed by this port's
// trigger configuration; bridge handlers split it with configimage.
func (c *Client) GetAntennaBlock(ctx context.Context, port byte) ([]byte, error) {
	f, err := c.Request(ctx, 0x01, 0x0C, []byte{port})
	if err != nil {
		return nil, err
	}
	return f.Payload, nil
}

func (c *Client) SetAntenna(ctx context.Context, block []byte) error {
	_, err := c.Request(ctx, 0x01, 0x0B, block)
	return err
}

func (c *Client) GetWiegand(ctx context.Context) (WiegandConfig, error) {
	f, err := c.Request(ctx, 0x01, 0x0E, nil)
	if err != nil {
		return WiegandConfig{}, err
	}
	return decodeWiegand(f.Payload)
}

func (c *Client) SetWiegand(ctx context.Context, w WiegandConfig) error {
	_, err := c.Request(ctx, 0x01, 0x0D, []byte{w.Enable, w.Format, w.Bits})
	return err
}

// Reboot sends the reboot command. Per spec.md §4.3/§7, the device may
// drop the connection before responding; callers must not treat that as
// an error (the bridge session layer handles this explicitly).
func (c *Client) Reboot(ctx context.Context) error {
	return c.WriteFrame(ctx, 0x01, 0x0F, nil)
}

func (c *Client) GetTime(ctx context.Context) (TimeValue, error) {
	f, err := c.Request(ctx, 0x01, 0x11, nil)
	if err != nil {
		return TimeValue{}, err
	}
	return decodeTime(f.Payload)
}

func (c *Client) SetTime(ctx context.Context, seconds uint32) error {
	payload := []byte{byte(seconds >> 24), byte(seconds >> 16), byte(seconds >> 8), byte(seconds)}
	_, err := c.Request(ctx, 0x01, 0x10, payload)
	return err
}

func (c *Client) FactoryReset(ctx context.Context) (StatusResult, error) {
	f, err := c.Request(ctx, 0x01, 0x14, nil)
	if err != nil {
		return StatusResult{}, err
	}
	return statusOrDeviceErr("factory_reset", f.Payload)
}

func (c *Client) GetRS485(ctx context.Context) (RS485Config, error) {
	f, err := c.Request(ctx, 0x01, 0x16, nil)
	if err != nil {
		return RS485Config{}, err
	}
	return decodeRS485(f.Payload)
}

func (c *Client) SetRS485(ctx context.Context, cfg RS485Config) error {
	_, err := c.Request(ctx, 0x01, 0x15, []byte{cfg.Addr, cfg.Mode})
	return err
}

func (c *Client) GetTagCacheSwitch(ctx context.Context) (byte, error) {
	f, err := c.Request(ctx, 0x01, 0x18, nil)
	if err != nil {
		return 0, err
	}
	return decodeTagCacheSwitch(f.Payload)
}

func (c *Client) SetTagCacheSwitch(ctx context.Context, enable byte) error {
	_, err := c.Request(ctx, 0x01, 0x17, []byte{enable})
	return err
}

func (c *Client) GetTagCacheTime(ctx context.Context) (uint16, error) {
	f, err := c.Request(ctx, 0x01, 0x1A, nil)
	if err != nil {
		return 0, err
	}
	return decodeTagCacheTime(f.Payload)
}

func (c *Client) SetTagCacheTime(ctx context.Context, seconds uint16) error {
	_, err := c.Request(ctx, 0x01, 0x19, []byte{byte(seconds >> 8), byte(seconds)})
	return err
}

func (c *Client) ClearTags(ctx context.Context) (StatusResult, error) {
	f, err := c.Request(ctx, 0x01, 0x1C, nil)
	if err != nil {
		return StatusResult{}, err
	}
	return statusOrDeviceErr("clear_tags", f.Payload)
}

func (c *Client) DeleteTag(ctx context.Context, index uint32) (StatusResult, error) {
	payload := []byte{byte(index >> 24), byte(index >> 16), byte(index >> 8), byte(index)}
	f, err := c.Request(ctx, 0x01, 0x1D, payload)
	if err != nil {
		return StatusResult{}, err
	}
	return statusOrDeviceErr("delete_tag", f.Payload)
}

func (c *Client) GetRelay(ctx context.Context) (RelayConfig, error) {
	f, err := c.Request(ctx, 0x01, 0x24, nil)
	if err != nil {
		return RelayConfig{}, err
	}
	return decodeRelay(f.Payload)
}

func (c *Client) SetRelay(ctx context.Context, cfg RelayConfig) error {
	payload := []byte{cfg.Num, byte(cfg.Ms >> 8), byte(cfg.Ms)}
	_, err := c.Request(ctx, 0x01, 0x23, payload)
	return err
}

func (c *Client) GetPing(ctx context.Context) (PingConfig, error) {
	f, err := c.Request(ctx, 0x01, 0x2E, nil)
	if err != nil {
		return PingConfig{}, err
	}
	return decodePing(f.Payload)
}

func (c *Client) SetPing(ctx context.Context, cfg PingConfig) error {
	payload := []byte{cfg.Enable, cfg.IP[3], cfg.IP[2], cfg.IP[1], cfg.IP[0]}
	_, err := c.Request(ctx, 0x01, 0x2D, payload)
	return err
}

func (c *Client) GetDHCP(ctx context.Context) (byte, error) {
	f, err := c.Request(ctx, 0x01, 0x30, nil)
	if err != nil {
		return 0, err
	}
	return decodeDHCP(f.Payload)
}

func (c *Client) SetDHCP(ctx context.Context, enable byte) error {
	_, err := c.Request(ctx, 0x01, 0x2F, []byte{enable})
	return err
}

// StartInventory sends the CMD=0x02 SUB=0x10 start command. tlvTuning
// carries optional antenna-tuning TLVs (antenna config, session, target,
// Q value), grounded in original_source/web/server.py's _run_inventory.
func (c *Client) StartInventory(ctx context.Context, tlvTuning []byte) error {
	_, err := c.Request(ctx, 0x02, 0x10, tlvTuning)
	return err
}

// StopInventory sends the CMD=0x02 SUB=0xFF stop command.
func (c *Client) StopInventory(ctx context.Context) error {
	_, err := c.Request(ctx, 0x02, 0xFF, nil)
	return err
}
