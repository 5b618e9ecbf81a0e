package bridge

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/malike-rnd/cl7206c2-rfid/client"
	"github.com/malike-rnd/cl7206c2-rfid/configimage"
	"github.com/malike-rnd/cl7206c2-rfid/inventory"
)

// Server is the HTTP/WebSocket façade over a Session, built on the
// standard library's http.ServeMux per the teacher's web.Server.
type Server struct {
	session *Session
	mux     *http.ServeMux
}

// NewServer wires every endpoint in SPEC_FULL.md §5.6/§6 onto mux.
func NewServer(session *Session) *Server {
	s := &Server{session: session, mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /api/connect", s.handleConnect)
	s.mux.HandleFunc("POST /api/disconnect", s.handleDisconnect)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/logs", s.handleLogs)

	s.mux.HandleFunc("GET /api/info", s.wrap(func(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
		return cl.GetReaderInfo(ctx)
	}))
	s.mux.HandleFunc("GET /api/network", s.wrap(func(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
		return cl.GetNetwork(ctx)
	}))
	s.mux.HandleFunc("GET /api/mac", s.wrap(func(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
		return cl.GetMAC(ctx)
	}))
	s.mux.HandleFunc("GET /api/time", s.wrap(func(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
		return cl.GetTime(ctx)
	}))
	s.mux.HandleFunc("GET /api/gpi", s.wrap(func(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
		return cl.GetGPI(ctx)
	}))
	s.mux.HandleFunc("GET /api/relay", s.wrap(func(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
		return cl.GetRelay(ctx)
	}))
	s.mux.HandleFunc("GET /api/rs485", s.wrap(func(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
		return cl.GetRS485(ctx)
	}))
	s.mux.HandleFunc("GET /api/tagcache", s.wrap(func(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
		return cl.GetTagCacheSwitch(ctx)
	}))
	s.mux.HandleFunc("GET /api/tagtime", s.wrap(func(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
		return cl.GetTagCacheTime(ctx)
	}))
	s.mux.HandleFunc("GET /api/wiegand", s.wrap(func(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
		return cl.GetWiegand(ctx)
	}))
	s.mux.HandleFunc("GET /api/server", s.wrap(func(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
		return cl.GetServerClient(ctx)
	}))
	s.mux.HandleFunc("GET /api/com", s.wrap(func(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
		return cl.GetBaud(ctx)
	}))
	s.mux.HandleFunc("GET /api/ping", s.wrap(func(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
		return cl.GetPing(ctx)
	}))
	s.mux.HandleFunc("GET /api/tags", s.wrap(handleGetTags))

	s.mux.HandleFunc("GET /api/antenna/{port}", s.wrap(handleGetAntenna))
	s.mux.HandleFunc("GET /api/antennas", s.wrap(handleGetAntennas))
	s.mux.HandleFunc("GET /api/trigger/{port}", s.wrap(handleGetTrigger))
	s.mux.HandleFunc("GET /api/triggers", s.wrap(handleGetTriggers))

	s.mux.HandleFunc("POST /api/settime", s.wrap(handleSetTime))
	s.mux.HandleFunc("POST /api/setpower", s.wrap(handleSetPower))
	s.mux.HandleFunc("POST /api/setantenna", s.wrap(handleSetAntenna))
	s.mux.HandleFunc("POST /api/settrigger", s.wrap(handleSetTrigger))
	s.mux.HandleFunc("POST /api/setrelay", s.wrap(handleSetRelay))
	s.mux.HandleFunc("POST /api/setip", s.wrap(handleSetIP))
	s.mux.HandleFunc("POST /api/setmac", s.wrap(handleSetMAC))
	s.mux.HandleFunc("POST /api/settagcache", s.wrap(handleSetTagCache))
	s.mux.HandleFunc("POST /api/settagcachetime", s.wrap(handleSetTagCacheTime))
	s.mux.HandleFunc("POST /api/setdhcp", s.wrap(handleSetDHCP))
	s.mux.HandleFunc("POST /api/cleartags", s.wrap(func(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
		return cl.ClearTags(ctx)
	}))

	s.mux.HandleFunc("POST /api/reboot", s.handleReboot)
	s.mux.HandleFunc("POST /api/factoryreset", s.handleFactoryReset)

	s.mux.HandleFunc("/ws/inventory", s.session.wsHub.handle)
	s.mux.HandleFunc("GET /debug", s.session.DebugHandler())

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// Start listens on addr, matching the teacher's web.Server.Start idiom.
func (s *Server) Start(addr string) error {
	log.Printf("bridge: listening on %s", addr)
	return http.ListenAndServe(addr, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// statusForErr maps the client error taxonomy onto the bridge's HTTP
// contract per spec.md §6: not-connected→400, transport/timeout→504,
// CRC/protocol→502.
func statusForErr(err error) int {
	if errors.Is(err, ErrNotConnected) {
		return http.StatusBadRequest
	}
	var ce *client.Error
	if errors.As(err, &ce) {
		switch ce.Kind {
		case client.KindState:
			return http.StatusBadRequest
		case client.KindTransport, client.KindTimeout:
			return http.StatusGatewayTimeout
		case client.KindProtocol:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

// opHandler is a GET/POST handler body given the connected client and the
// raw request (for reading JSON bodies / path params).
type opHandler func(ctx context.Context, cl *client.Client, r *http.Request) (any, error)

// wrap runs fn while holding the session lock, logs the outcome to CatCMD,
// and maps errors per statusForErr.
func (s *Server) wrap(fn opHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		var result any
		err := s.session.withClient(func(cl *client.Client) error {
			v, opErr := fn(ctx, cl, r)
			result = v
			return opErr
		})
		if err != nil {
			s.session.logs.Append(CatCMD, LevelError, "%s %s failed: %s", r.Method, r.URL.Path, err)
			writeError(w, statusForErr(err), err.Error())
			return
		}
		s.session.logs.Append(CatCMD, LevelInfo, "%s %s ok", r.Method, r.URL.Path)
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IP   string `json:"ip"`
		Port int    `json:"port"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Port == 0 {
		req.Port = defaultPort
	}
	if err := s.session.Connect(req.IP, req.Port); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "connected", "ip": req.IP, "port": req.Port})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.session.Disconnect()
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	connected, invActive, wsClients := s.session.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"connected":        connected,
		"inventory_active": invActive,
		"ws_clients":       wsClients,
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	after, _ := strconv.ParseInt(q.Get("after"), 10, 64)

	cats := map[Category]bool{}
	if v := q.Get("cat"); v != "" {
		for _, c := range strings.Split(v, ",") {
			cats[Category(strings.ToUpper(strings.TrimSpace(c)))] = true
		}
	}
	levels := map[Level]bool{}
	if v := q.Get("level"); v != "" {
		for _, l := range strings.Split(v, ",") {
			levels[Level(strings.ToLower(strings.TrimSpace(l)))] = true
		}
	}

	entries := s.session.logs.Snapshot(after, cats, levels)
	writeJSON(w, http.StatusOK, map[string]any{"logs": entries, "total": len(entries)})
}

func (s *Server) handleReboot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	_ = s.session.rebootLike("reboot", func(cl *client.Client) error {
		return cl.Reboot(ctx)
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "rebooting"})
}

func (s *Server) handleFactoryReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	_ = s.session.rebootLike("factory reset", func(cl *client.Client) error {
		_, err := cl.FactoryReset(ctx)
		return err
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "rebooting"})
}

// --- per-endpoint op bodies, kept out of NewServer for readability ---

func handleGetTags(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
	frames, err := cl.GetTags(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]inventory.Record, 0, len(frames))
	for i, f := range frames {
		records = append(records, inventory.ParseTagNotification(i+1, f.Payload))
	}
	return records, nil
}

func pathPort(r *http.Request) (byte, error) {
	port, err := strconv.Atoi(r.PathValue("port"))
	if err != nil || port < 0 || port > 3 {
		return 0, errors.New("port must be 0..3")
	}
	return byte(port), nil
}

func handleGetAntenna(ctx context.Context, cl *client.Client, r *http.Request) (any, error) {
	port, err := pathPort(r)
	if err != nil {
		return nil, err
	}
	return cl.GetAntenna(ctx, port)
}

func handleGetAntennas(ctx context.Context, cl *client.Client, _ *http.Request) (any, error) {
	out := make([]client.AntennaConfig, 0, 4)
	for port := byte(0); port < 4; port++ {
		cfg, err := cl.GetAntenna(ctx, port)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func handleGetTrigger(ctx context.Context, cl *client.Client, r *http.Request) (any, error) {
	port, err := pathPort(r)
	if err != nil {
		return nil, err
	}
	block, err := cl.GetAntennaBlock(ctx, port)
	if err != nil {
		return nil, err
	}
	if len(block) <= 14 {
		return configimage.TriggerConfig{}, nil
	}
	return configimage.ParseTriggerConfig(block[14:])
}

func handleGetTriggers(ctx context.Context, cl *client.Client, r *http.Request) (any, error) {
	out := make([]configimage.TriggerConfig, 0, 4)
	for port := byte(0); port < 4; port++ {
		block, err := cl.GetAntennaBlock(ctx, port)
		if err != nil {
			return nil, err
		}
		var cfg configimage.TriggerConfig
		if len(block) > 14 {
			cfg, err = configimage.ParseTriggerConfig(block[14:])
			if err != nil {
				return nil, err
			}
		}
		out = append(out, cfg)
	}
	return out, nil
}

func handleSetTime(ctx context.Context, cl *client.Client, r *http.Request) (any, error) {
	var req struct {
		Seconds uint32 `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return nil, cl.SetTime(ctx, req.Seconds)
}

func handleSetPower(ctx context.Context, cl *client.Client, r *http.Request) (any, error) {
	var req struct {
		Port  byte `json:"port"`
		Power byte `json:"power"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	cfg, err := cl.GetAntenna(ctx, req.Port)
	if err != nil {
		return nil, err
	}
	cfg.Power = req.Power
	block := []byte{req.Port, 0, 0, cfg.Power, cfg.Protocol, cfg.FreqRegion, 0, cfg.Session, cfg.Target, cfg.QValue, cfg.ParamA, cfg.ParamB}
	return nil, cl.SetAntenna(ctx, block)
}

func handleSetAntenna(ctx context.Context, cl *client.Client, r *http.Request) (any, error) {
	var req struct {
		Block string `json:"block_hex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(req.Block)
	if err != nil {
		return nil, err
	}
	return nil, cl.SetAntenna(ctx, raw)
}

func handleSetTrigger(ctx context.Context, cl *client.Client, r *http.Request) (any, error) {
	var req struct {
		Port      byte                      `json:"port"`
		GPIPin    byte                      `json:"gpi_pin"`
		StartMode configimage.TriggerMode   `json:"start_mode"`
		RFCommand string                    `json:"rf_command_hex"`
		StopMode  configimage.TriggerMode   `json:"stop_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	rf, err := hex.DecodeString(req.RFCommand)
	if err != nil {
		return nil, err
	}

	block, err := cl.GetAntennaBlock(ctx, req.Port)
	if err != nil {
		return nil, err
	}
	if len(block) < 14 {
		block = append(block, make([]byte, 14-len(block))...)
	}

	trigger := configimage.BuildTriggerConfig(configimage.TriggerConfig{
		GPIPin: req.GPIPin, StartMode: req.StartMode, RFCommand: rf, StopMode: req.StopMode,
	})
	out := append(append([]byte{}, block[:14]...), trigger...)
	return nil, cl.SetAntenna(ctx, out)
}

func handleSetRelay(ctx context.Context, cl *client.Client, r *http.Request) (any, error) {
	var req client.RelayConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return nil, cl.SetRelay(ctx, req)
}

func handleSetIP(ctx context.Context, cl *client.Client, r *http.Request) (any, error) {
	var req client.NetworkConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return nil, cl.SetNetwork(ctx, req)
}

func handleSetMAC(ctx context.Context, cl *client.Client, r *http.Request) (any, error) {
	var req struct {
		MAC string `json:"mac"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(strings.ReplaceAll(req.MAC, ":", ""))
	if err != nil || len(raw) != 6 {
		return nil, errors.New("mac must be 6 hex bytes")
	}
	var mac client.MACAddress
	copy(mac[:], raw)
	return nil, cl.SetMAC(ctx, mac)
}

func handleSetTagCache(ctx context.Context, cl *client.Client, r *http.Request) (any, error) {
	var req struct {
		Enable byte `json:"enable"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return nil, cl.SetTagCacheSwitch(ctx, req.Enable)
}

func handleSetTagCacheTime(ctx context.Context, cl *client.Client, r *http.Request) (any, error) {
	var req struct {
		Seconds uint16 `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return nil, cl.SetTagCacheTime(ctx, req.Seconds)
}

func handleSetDHCP(ctx context.Context, cl *client.Client, r *http.Request) (any, error) {
	var req struct {
		Enable byte `json:"enable"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return nil, cl.SetDHCP(ctx, req.Enable)
}
