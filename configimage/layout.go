package configimage

import "fmt"

// AntennaConfig is the 14-byte active portion of one antenna's slot
// within its RF-port's 256-byte block. Grounded in
// original_source/firmware_analysis/pram_p_array_decode.py's "Antenna
// config data format" table.
type AntennaConfig struct {
	Index      byte
	Power      byte // dBm, 0..33
	Protocol   byte // 2 = EPC Gen2 dual-target
	FreqRegion byte // e.g. 0x10 = CN dual-band
	Session    byte // 0..3 = S0..S3
	Target     byte // 0=A, 1=B
	QValue     byte
	ParamA     byte
	ParamB     byte
}

const (
	antOffIndex      = 0
	antOffPower      = 3
	antOffProtocol   = 4
	antOffFreqRegion = 5
	antOffSession    = 7
	antOffTarget     = 8
	antOffQValue     = 9
	antOffParamA     = 10
	antOffParamB     = 11
	antConfigSize    = 14

	// TriggerConfig for this port's sub-antenna starts right after the
	// 14-byte antenna config, per SPEC_FULL.md §4.a.
	triggerOffsetInBlock = antConfigSize
)

// Antenna decodes the 14-byte antenna sub-block for port 0..3.
func (img Image) Antenna(port int) (AntennaConfig, error) {
	block, err := img.AntennaBlock(port)
	if err != nil {
		return AntennaConfig{}, err
	}
	if len(block) < antConfigSize {
		return AntennaConfig{}, fmt.Errorf("configimage: antenna block too short")
	}
	return AntennaConfig{
		Index:      block[antOffIndex],
		Power:      block[antOffPower],
		Protocol:   block[antOffProtocol],
		FreqRegion: block[antOffFreqRegion],
		Session:    block[antOffSession],
		Target:     block[antOffTarget],
		QValue:     block[antOffQValue],
		ParamA:     block[antOffParamA],
		ParamB:     block[antOffParamB],
	}, nil
}

// SetAntenna writes the 14-byte antenna sub-block for port 0..3, leaving
// the rest of the 256-byte block (trigger config, reserved bytes) intact.
func (img *Image) SetAntenna(port int, cfg AntennaConfig) error {
	off, err := AntennaBlockOffset(port)
	if err != nil {
		return err
	}
	img.data[off+antOffIndex] = cfg.Index
	img.data[off+antOffPower] = cfg.Power
	img.data[off+antOffProtocol] = cfg.Protocol
	img.data[off+antOffFreqRegion] = cfg.FreqRegion
	img.data[off+antOffSession] = cfg.Session
	img.data[off+antOffTarget] = cfg.Target
	img.data[off+antOffQValue] = cfg.QValue
	img.data[off+antOffParamA] = cfg.ParamA
	img.data[off+antOffParamB] = cfg.ParamB
	return nil
}

// TriggerMode enumerates the GPI trigger start/stop conditions, per
// SPEC_FULL.md §4.a.
type TriggerMode byte

const (
	TriggerDisabled TriggerMode = 0
	TriggerRising   TriggerMode = 1
	TriggerFalling  TriggerMode = 2
	TriggerLevelHi  TriggerMode = 3
	TriggerLevelLo  TriggerMode = 4
	TriggerAny      TriggerMode = 5
	TriggerDelay    TriggerMode = 6
)

// TriggerConfig is one GPI trigger's configuration blob:
// [gpi_pin][start_mode][cmd_len_hi][cmd_len_lo][rf_command...][stop_mode].
type TriggerConfig struct {
	GPIPin    byte
	StartMode TriggerMode
	RFCommand []byte
	StopMode  TriggerMode
}

// StopInventoryCommand is the firmware's hardcoded trigger-stop RF
// command: encode(0x02, 0xFF, nil).
var StopInventoryCommand = []byte{0xAA, 0x02, 0xFF, 0x00, 0x00, 0xA4, 0x0F}

// Trigger decodes the trigger blob stored after the antenna config in the
// given port's 256-byte block.
func (img Image) Trigger(port int) (TriggerConfig, error) {
	off, err := AntennaBlockOffset(port)
	if err != nil {
		return TriggerConfig{}, err
	}
	blob := img.data[off+triggerOffsetInBlock : off+antennaBlockSize]
	return ParseTriggerConfig(blob)
}

// SetTrigger encodes and writes cfg into the given port's block, after
// the antenna config.
func (img *Image) SetTrigger(port int, cfg TriggerConfig) error {
	off, err := AntennaBlockOffset(port)
	if err != nil {
		return err
	}
	encoded := BuildTriggerConfig(cfg)
	room := antennaBlockSize - triggerOffsetInBlock
	if len(encoded) > room {
		return fmt.Errorf("configimage: trigger config too large: %d bytes, max %d", len(encoded), room)
	}
	img.SetSlice(off+triggerOffsetInBlock, encoded)
	return nil
}

// BuildTriggerConfig encodes a trigger blob.
func BuildTriggerConfig(cfg TriggerConfig) []byte {
	cmdLen := len(cfg.RFCommand)
	out := make([]byte, 0, 4+cmdLen+1)
	out = append(out, cfg.GPIPin, byte(cfg.StartMode))
	out = append(out, byte(cmdLen>>8), byte(cmdLen))
	out = append(out, cfg.RFCommand...)
	out = append(out, byte(cfg.StopMode))
	return out
}

// ParseTriggerConfig decodes a trigger blob. It tolerates trailing
// padding (the rest of the 256-byte block, zero-filled) after the
// stop-mode byte.
func ParseTriggerConfig(data []byte) (TriggerConfig, error) {
	if len(data) < 4 {
		return TriggerConfig{}, fmt.Errorf("configimage: trigger config truncated")
	}
	cmdLen := int(data[2])<<8 | int(data[3])
	if len(data) < 4+cmdLen+1 {
		return TriggerConfig{}, fmt.Errorf("configimage: trigger config truncated: want %d bytes, have %d", 4+cmdLen+1, len(data))
	}
	cfg := TriggerConfig{
		GPIPin:    data[0],
		StartMode: TriggerMode(data[1]),
		RFCommand: append([]byte(nil), data[4:4+cmdLen]...),
		StopMode:  TriggerMode(data[4+cmdLen]),
	}
	return cfg, nil
}

// defaultImage is the factory-default 1072-byte blob. Every byte is zero
// except the trailing DHCP byte, which the firmware defaults to enabled —
// this is the one non-obvious default recovered from
// original_source/firmware_analysis/pram_p_array_decode.py; everything
// else documented there is zero/disabled out of the box.
var defaultImage = func() [Size]byte {
	var img [Size]byte
	img[offDHCP] = 1
	return img
}()
