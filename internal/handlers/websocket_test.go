package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"smartpot/internal/models"
	"smartpot/internal/service"
)

// --- parseInterval unit tests ---

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil, StreamConfig{})

	cases := []struct {
		name string
		u    string
		want time.Duration
	}{
		{"default_when_missing", "/ws", 1 * time.Second},
		{"interval_string_valid", "/ws?interval=200ms", 200 * time.Millisecond},
		{"interval_ms_valid", "/ws?interval_ms=150", 150 * time.Millisecond},
		{"interval_too_large", "/ws?interval=20s", 1 * time.Second},
		{"interval_ms_too_large", "/ws?interval_ms=20000", 1 * time.Second},
		{"interval_invalid_string", "/ws?interval=bogus", 1 * time.Second},
		{"interval_ms_invalid", "/ws?interval_ms=NaN", 1 * time.Second},
		{"both_present_interval_wins", "/ws?interval=2s&interval_ms=150", 2 * time.Second},
		{"both_present_invalid_interval_ms_used", "/ws?interval=bogus&interval_ms=250", 250 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.u, nil)
			c, _ := gin.CreateTestContext(w)
			c.Request = req
			got := h.parseInterval(c)
			if got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

// --- websocket integration tests ---

func dialWS(t *testing.T, h *Handler, rawQuery string) (*websocket.Conn, func()) {
	t.Helper()
	r := gin.New()
	r.GET("/ws", h.wsConnect)
	srv := httptest.NewServer(r)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = rawQuery

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial error: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
		srv.Close()
	}
}

func TestWebSocket_ReadingStream_InitialAndPeriodic(t *testing.T) {
	tel := &mockTelemetry{reading: models.Reading{Temperature: 88.2, Status: models.StatusWorking}, has: true}
	h := newTestHandler(tel, &mockSessions{}, &mockAnalysis{}, StreamConfig{})

	conn, cleanup := dialWS(t, h, "interval_ms=20")
	defer cleanup()

	// Initial envelope arrives before the first tick.
	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	var env wsEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if env.Type != "reading" {
		t.Fatalf("expected type=reading, got %+v", env)
	}
	raw, _ := json.Marshal(env.Data)
	var reading models.Reading
	if err := json.Unmarshal(raw, &reading); err != nil {
		t.Fatalf("unmarshal reading: %v", err)
	}
	if reading.Temperature != 88.2 || reading.Status != models.StatusWorking {
		t.Fatalf("unexpected reading: %+v", reading)
	}

	// A subsequent tick delivers another envelope.
	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	env = wsEnvelope{}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read second: %v", err)
	}
	if env.Type != "reading" {
		t.Fatalf("expected type=reading, got %+v", env)
	}
}

func TestWebSocket_WaitingEnvelopeWithoutData(t *testing.T) {
	h := newTestHandler(&mockTelemetry{}, &mockSessions{}, &mockAnalysis{}, StreamConfig{})

	conn, cleanup := dialWS(t, h, "")
	defer cleanup()

	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	var env wsEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if env.Type != "waiting" {
		t.Fatalf("expected type=waiting, got %+v", env)
	}
}
