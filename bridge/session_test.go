package bridge

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/malike-rnd/cl7206c2-rfid/client"
)

func TestStatusForErrMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrNotConnected, http.StatusBadRequest},
		{&client.Error{Kind: client.KindTimeout}, http.StatusGatewayTimeout},
		{&client.Error{Kind: client.KindTransport}, http.StatusGatewayTimeout},
		{&client.Error{Kind: client.KindProtocol}, http.StatusBadGateway},
		{&client.Error{Kind: client.KindState}, http.StatusBadRequest},
		{errors.New("unmapped"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusForErr(c.err); got != c.want {
			t.Errorf("statusForErr(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestStatusEndpointBeforeConnect(t *testing.T) {
	session := NewSession()
	server := NewServer(session)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`"connected":false`, `"inventory_active":false`, `"ws_clients":0`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body %s does not contain %s", body, want)
		}
	}
}

func TestInfoEndpointRequiresConnection(t *testing.T) {
	session := NewSession()
	server := NewServer(session)

	req := httptest.NewRequest(http.MethodGet, "/api/info", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (not connected)", rec.Code)
	}
}
