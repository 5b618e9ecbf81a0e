// Package client implements the synchronous request/response surface over
// the reader's wire protocol, plus the typed decoders for every documented
// (cmd,sub) pair.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/malike-rnd/cl7206c2-rfid/codec"
	"github.com/malike-rnd/cl7206c2-rfid/transport"
)

const (
	defaultRequestTimeout = 3 * time.Second
	getTagsIdleTimeout    = 5 * time.Second
)

type pairKey struct{ cmd, sub byte }

// Client is a synchronous request/response surface over one Transport.
// It is single-threaded by contract: Request serializes all callers
// through mu, exactly as spec.md §5 requires ("between a Client.request
// send and its matching response, no other request can be issued").
type Client struct {
	mu        sync.Mutex
	tr        transport.Transport
	reader    *codec.FramedReader
	rs485     bool
	localAddr byte

	// Sideband, if set, receives frames that arrive during a
	// synchronous wait but don't match the outstanding request — most
	// importantly CMD=0x12 tag notifications, which the inventory
	// streamer wants even while some unrelated GET is in flight.
	Sideband func(codec.Frame)

	onLog func(category, format string, args ...any)
}

// New wraps tr. rs485 and localAddr configure the RS-485-over-serial
// variant's address filtering; they are ignored for other transports.
func New(tr transport.Transport, rs485 bool, localAddr byte) *Client {
	return &Client{
		tr:        tr,
		reader:    codec.NewFramedReader(),
		rs485:     rs485,
		localAddr: localAddr,
	}
}

// SetLogger installs a callback used for the bridge's categorized log
// ring; category is one of SYS/CMD/PROTO/TAG per spec.md §4.6.
func (c *Client) SetLogger(fn func(category, format string, args ...any)) {
	c.onLog = fn
}

func (c *Client) logf(category, format string, args ...any) {
	if c.onLog != nil {
		c.onLog(category, format, args...)
	}
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.tr.Close()
}

// Request sends (cmd,sub,payload) and waits for a matching response frame
// or the context's deadline, whichever comes first.
func (c *Client) Request(ctx context.Context, cmd, sub byte, payload []byte) (codec.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRequestTimeout)
		defer cancel()
	}

	var rs485Addr *byte
	if c.rs485 {
		rs485Addr = &c.localAddr
	}
	wire := codec.Encode(cmd, sub, payload, rs485Addr)

	c.logf("PROTO", "-> % X", wire)
	if err := c.tr.Write(ctx, wire); err != nil {
		return codec.Frame{}, newErr(KindTransport, "request", err)
	}

	for {
		if frame, ok := c.nextMatching(cmd, sub); ok {
			return frame, nil
		}

		if ctx.Err() != nil {
			return codec.Frame{}, newErr(KindTimeout, "request", ctx.Err())
		}

		chunk, err := c.tr.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return codec.Frame{}, newErr(KindTimeout, "request", ctx.Err())
			}
			return codec.Frame{}, newErr(KindTransport, "request", err)
		}
		c.reader.Feed(chunk)
	}
}

// nextMatching drains any already-buffered frames, forwarding mismatches
// to Sideband, and returns the first frame matching (cmd,sub) if one was
// already parsed.
func (c *Client) nextMatching(cmd, sub byte) (codec.Frame, bool) {
	for {
		frame, ok := c.reader.Pull()
		if !ok {
			return codec.Frame{}, false
		}
		if c.rs485 {
			stripped, ok := codec.RS485Strip(frame, c.localAddr)
			if !ok {
				continue // addressed to someone else
			}
			frame = stripped
		}
		if frame.Cmd == cmd && frame.Sub == sub {
			c.logf("PROTO", "<- cmd=%02X sub=%02X len=%d", frame.Cmd, frame.Sub, len(frame.Payload))
			return frame, true
		}
		if c.Sideband != nil {
			c.Sideband(frame)
		}
	}
}

// ReadFrame returns the next complete frame regardless of (cmd,sub),
// applying RS-485 stripping. Used by the inventory streamer, which takes
// over the connection for the duration of an active inventory run rather
// than going through Request's (cmd,sub) matching. It blocks until a
// frame arrives or ctx is done.
func (c *Client) ReadFrame(ctx context.Context) (codec.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		frame, ok := c.reader.Pull()
		if ok {
			if c.rs485 {
				stripped, ok := codec.RS485Strip(frame, c.localAddr)
				if !ok {
					continue
				}
				frame = stripped
			}
			return frame, nil
		}

		if ctx.Err() != nil {
			return codec.Frame{}, ctx.Err()
		}

		chunk, err := c.tr.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return codec.Frame{}, ctx.Err()
			}
			return codec.Frame{}, newErr(KindTransport, "read_frame", err)
		}
		c.reader.Feed(chunk)
	}
}

// WriteFrame sends a raw encoded frame without waiting for a response,
// used by the inventory streamer for its start/stop commands.
func (c *Client) WriteFrame(ctx context.Context, cmd, sub byte, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rs485Addr *byte
	if c.rs485 {
		rs485Addr = &c.localAddr
	}
	wire := codec.Encode(cmd, sub, payload, rs485Addr)
	c.logf("PROTO", "-> % X", wire)
	if err := c.tr.Write(ctx, wire); err != nil {
		return newErr(KindTransport, "write_frame", err)
	}
	return nil
}

// GetTags drains the reader's cached tag records (CMD=0x01 SUB=0x1B),
// accumulating frames until either a sentinel frame (empty payload or a
// distinct sub, per spec.md §9's open question — both are accepted) or a
// 5s idle gap between frames.
func (c *Client) GetTags(ctx context.Context) ([]codec.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wire := codec.Encode(0x01, 0x1B, nil, rs485AddrOf(c))
	if err := c.tr.Write(ctx, wire); err != nil {
		return nil, newErr(KindTransport, "get_tags", err)
	}

	var out []codec.Frame
	for {
		if frame, ok := c.reader.Pull(); ok {
			if c.rs485 {
				stripped, ok := codec.RS485Strip(frame, c.localAddr)
				if !ok {
					continue
				}
				frame = stripped
			}
			if frame.Cmd != 0x01 {
				if c.Sideband != nil {
					c.Sideband(frame)
				}
				continue
			}
			if frame.Sub != 0x1B || len(frame.Payload) == 0 {
				return out, nil // sentinel: distinct sub or empty payload
			}
			out = append(out, frame)
			continue
		}

		idleCtx, cancel := context.WithTimeout(ctx, getTagsIdleTimeout)
		chunk, err := c.tr.Read(idleCtx)
		cancel()
		if err != nil {
			if idleCtx.Err() != nil {
				return out, nil // idle timeout ends the stream, not an error
			}
			return out, newErr(KindTransport, "get_tags", err)
		}
		c.reader.Feed(chunk)
	}
}

func rs485AddrOf(c *Client) *byte {
	if !c.rs485 {
		return nil
	}
	return &c.localAddr
}
