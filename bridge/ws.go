package bridge

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/malike-rnd/cl7206c2-rfid/inventory"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The debug bridge is a local dev tool, not a public endpoint; any
	// origin may open the inventory socket.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHub tracks the WebSocket clients connected to a single session. Each
// client that sends "start" gets its own pump reading from the session's
// one tag channel; records are not copied to every client, so while
// several clients are pumping each record reaches only one of them.
type wsHub struct {
	session *Session

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn   *websocket.Conn
	sendMu sync.Mutex
}

func newWSHub(s *Session) *wsHub {
	return &wsHub{session: s, clients: map[*wsClient]struct{}{}}
}

func (h *wsHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *wsHub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *wsHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (c *wsClient) writeJSON(v any) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.conn.WriteJSON(v)
}

type wsAction struct {
	Action string `json:"action"`
}

// handle upgrades the HTTP request and runs the per-connection loop.
// When a connection drops and no other WebSocket client remains, the
// running inventory is stopped; the hub does not track which client
// started it.
func (h *wsHub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("bridge: websocket upgrade failed: %s", err)
		return
	}
	client := &wsClient{conn: conn}
	h.add(client)
	h.session.logs.Append(CatSYS, LevelInfo, "websocket client connected")

	defer func() {
		h.remove(client)
		h.session.logs.Append(CatSYS, LevelInfo, "websocket client disconnected")
		if h.count() == 0 {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = h.session.stopInventoryIfRunning(ctx)
			cancel()
		}
		_ = conn.Close()
	}()

	for {
		var action wsAction
		if err := conn.ReadJSON(&action); err != nil {
			return
		}
		switch action.Action {
		case "start":
			h.handleStart(client)
		case "stop":
			h.handleStop(client)
		default:
			_ = client.writeJSON(map[string]string{"error": "unknown action"})
		}
	}
}

func (h *wsHub) handleStart(client *wsClient) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	tags, stopped, err := h.session.startInventory(ctx)
	if err != nil {
		_ = client.writeJSON(map[string]string{"error": err.Error()})
		return
	}
	_ = client.writeJSON(map[string]string{"status": "inventory_started"})

	go h.pump(client, tags, stopped)
}

func (h *wsHub) handleStop(client *wsClient) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.session.stopInventoryIfRunning(ctx); err != nil {
		_ = client.writeJSON(map[string]string{"error": err.Error()})
		return
	}
	_ = client.writeJSON(map[string]string{"status": "inventory_stopped"})
}

// pump forwards tag records from the streamer to one WebSocket client
// until inventory stops or the connection drops out from under it. It
// does not drain stopSignal itself: once closed, it stops forwarding
// even if records are still buffered in tags from the tail of the run.
func (h *wsHub) pump(client *wsClient, tags <-chan inventory.Record, stopped <-chan struct{}) {
	for {
		select {
		case rec := <-tags:
			msg := map[string]any{
				"type":      "tag",
				"count":     rec.Count,
				"timestamp": rec.TimestampMillis,
				"epc":       rec.EPCHex,
				"pc":        rec.PC,
				"antenna":   rec.Antenna,
				"ant_num":   rec.AntNum,
				"sub_ant":   rec.SubAnt,
				"raw_hex":   rec.RawHex,
				"sub_cmd":   0x00,
			}
			if rec.RSSI != nil {
				msg["rssi"] = *rec.RSSI
			}
			if err := client.writeJSON(msg); err != nil {
				return
			}
		case <-stopped:
			return
		}
	}
}
