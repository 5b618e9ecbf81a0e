package bridge

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	ds "github.com/starfederation/datastar-go/datastar"
)

// debugTemplate renders the live status/log panel the debug page patches
// on every push. Kept inline (one small fragment) rather than a template
// file, since this bridge has no other HTML surface to share a
// templates/ directory with.
var debugTemplate = template.Must(template.New("debug").Parse(`
<div id="status-panel">
  <p>connected: {{.Connected}} | inventory: {{.Inventory}} | ws clients: {{.WSClients}}</p>
  <ul>
  {{range .Logs}}<li>[{{.Category}}/{{.Level}}] {{.Message}}</li>{{end}}
  </ul>
</div>
`))

// statusTickInterval governs how often the status line (connected,
// inventory, ws client count) repaints; log lines repaint as soon as
// LogRing broadcasts them, not on this interval.
const statusTickInterval = time.Second

// DebugHandler serves a datastar SSE status page, generalized from the
// teacher's dashboard tick loop (OnTick patching chart elements from an
// EventHub) to patch the bridge's connection/log status instead of
// vehicle telemetry. It subscribes to the session's log ring rather than
// re-polling and re-filtering it on a timer.
func (s *Session) DebugHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		logCh, cancel := s.logs.Subscribe()
		defer cancel()

		sse := ds.NewSSE(w, r)
		ticker := time.NewTicker(statusTickInterval)
		defer ticker.Stop()

		var recent []Entry
		render := func() bool {
			connected, invActive, wsClients := s.Status()
			var buf strings.Builder
			data := struct {
				Connected bool
				Inventory bool
				WSClients int
				Logs      []Entry
			}{connected, invActive, wsClients, recent}
			if err := debugTemplate.Execute(&buf, data); err != nil {
				fmt.Fprintf(&buf, "<div id=\"status-panel\">template error: %s</div>", err)
			}
			return sse.PatchElements(buf.String()) == nil
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case e, ok := <-logCh:
				if !ok {
					return
				}
				recent = append(recent, e)
				if len(recent) > 20 {
					recent = recent[len(recent)-20:]
				}
				if !render() {
					return
				}
			case <-ticker.C:
				if !render() {
					return
				}
			}
		}
	}
}
