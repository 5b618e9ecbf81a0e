package client

// ParamEntry is one row of the reader's 16-entry parameter table, mapping
// a (set,get) sub-command pair to the byte range of the config image it
// reads/writes. Grounded in original_source/firmware_analysis/
// pram_p_array_decode.py's decoded pram_p_array dump.
type ParamEntry struct {
	Offset   int
	MaxSize  int
	SetSub   byte
	GetSub   byte
	SubParam byte // antenna/RF-port index for per-port entries
	Name     string
}

// ParamTable is the reader's full parameter map, in firmware order.
var ParamTable = [16]ParamEntry{
	{Offset: 0x0000, MaxSize: 1, SetSub: 0x02, GetSub: 0x03, Name: "COM/Baud Config"},
	{Offset: 0x0001, MaxSize: 12, SetSub: 0x04, GetSub: 0x05, Name: "IP Config"},
	{Offset: 0x000D, MaxSize: 6, SetSub: 0x13, GetSub: 0x06, Name: "MAC Address"},
	{Offset: 0x0013, MaxSize: 9, SetSub: 0x07, GetSub: 0x08, Name: "Server/Client Mode"},
	{Offset: 0x001C, MaxSize: 256, SetSub: 0x0B, GetSub: 0x0C, SubParam: 0, Name: "RF Port 0 (ANT1/ANT2)"},
	{Offset: 0x011C, MaxSize: 256, SetSub: 0x0B, GetSub: 0x0C, SubParam: 1, Name: "RF Port 1 (ANT3/ANT4)"},
	{Offset: 0x021C, MaxSize: 256, SetSub: 0x0B, GetSub: 0x0C, SubParam: 2, Name: "RF Port 2 (ANT5/ANT6)"},
	{Offset: 0x031C, MaxSize: 256, SetSub: 0x0B, GetSub: 0x0C, SubParam: 3, Name: "RF Port 3 (ANT7/ANT8)"},
	{Offset: 0x041C, MaxSize: 3, SetSub: 0x0D, GetSub: 0x0E, Name: "Wiegand Config"},
	{Offset: 0x041F, MaxSize: 2, SetSub: 0x15, GetSub: 0x16, Name: "RS485 Config"},
	{Offset: 0x0421, MaxSize: 1, SetSub: 0xFF, GetSub: 0xFF, Name: "(internal sentinel)"},
	{Offset: 0x0422, MaxSize: 1, SetSub: 0x17, GetSub: 0x18, Name: "Tag Cache Switch"},
	{Offset: 0x0423, MaxSize: 2, SetSub: 0x19, GetSub: 0x1A, Name: "Tag Cache Time"},
	{Offset: 0x0425, MaxSize: 3, SetSub: 0x23, GetSub: 0x24, Name: "Relay Config"},
	{Offset: 0x0428, MaxSize: 5, SetSub: 0x2D, GetSub: 0x2E, Name: "Ping/Gateway Config"},
	{Offset: 0x042D, MaxSize: 1, SetSub: 0x2F, GetSub: 0x30, Name: "DHCP Mode"},
}

// AntennaPort returns the parameter-table entry for the RF port that
// carries the given antenna number's config block (1..8).
func AntennaPort(antenna int) (ParamEntry, bool) {
	if antenna < 1 || antenna > 8 {
		return ParamEntry{}, false
	}
	port := (antenna - 1) / 2
	for _, e := range ParamTable {
		if e.SetSub == 0x0B && e.GetSub == 0x0C && int(e.SubParam) == port {
			return e, true
		}
	}
	return ParamEntry{}, false
}
