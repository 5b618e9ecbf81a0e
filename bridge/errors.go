package bridge

import "errors"

// ErrNotConnected is returned by any session operation attempted while no
// reader is connected.
var ErrNotConnected = errors.New("bridge: no reader session connected")
