package codec

// RS485Wrap inserts the address byte and sets the RS-485 flag, recomputing
// the CRC over the address-augmented range. Output length grows by one.
func RS485Wrap(f Frame, addr byte) Frame {
	out := f
	out.RS485 = true
	out.Addr = addr
	return out
}

// RS485Strip clears the RS-485 flag and removes the address byte. If the
// frame is addressed to someone else, ok is false and the frame must be
// dropped by the caller.
func RS485Strip(f Frame, localAddr byte) (out Frame, ok bool) {
	if !f.RS485 {
		return f, true
	}
	if f.Addr != localAddr {
		return Frame{}, false
	}
	out = f
	out.RS485 = false
	out.Addr = 0
	return out, true
}

// Bytes re-serializes a Frame exactly as Encode would have produced it.
func (f Frame) Bytes() []byte {
	var addr *byte
	if f.RS485 {
		a := f.Addr
		addr = &a
	}
	return Encode(f.Cmd, f.Sub, f.Payload, addr)
}
