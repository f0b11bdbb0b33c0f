package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vmsync/internal/errors"
	"github.com/vango-dev/vmsync/pkg/protocol"
)

const waitTimeout = 2 * time.Second

// fakeServer is a hub endpoint that records what clients send.
type fakeServer struct {
	*httptest.Server
	upgrader websocket.Upgrader
	conns    chan *websocket.Conn
	headers  chan http.Header
	received chan *protocol.Message
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		conns:    make(chan *websocket.Conn, 8),
		headers:  make(chan http.Header, 8),
		received: make(chan *protocol.Message, 32),
	}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := fs.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.headers <- r.Header.Clone()
		fs.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msg, err := protocol.Decode(data); err == nil {
				fs.received <- msg
			}
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http")
}

func testConfig(url string) Config {
	cfg := DefaultConfig(url)
	cfg.Backoff = BackoffConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, Multiplier: 2}
	return cfg
}

func startHub(t *testing.T, cfg Config) (*Hub, <-chan struct{}) {
	t.Helper()
	h := New(cfg)
	connected := make(chan struct{}, 8)
	h.OnConnected(func() { connected <- struct{}{} })
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h, connected
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s", what)
		var zero T
		return zero
	}
}

func TestHub_SendsMessages(t *testing.T) {
	fs := newFakeServer(t)
	h, connected := startHub(t, testConfig(fs.wsURL()))
	waitFor(t, connected, "connected")

	if !h.IsConnected() {
		t.Fatal("IsConnected() = false after connected event")
	}

	args := protocol.RequestArgs{VMArg: map[string]any{"id": "7"}}
	if err := h.RequestVM("A", args); err != nil {
		t.Fatalf("RequestVM: %v", err)
	}
	if err := h.UpdateVM("A", map[string]any{"x": 1}); err != nil {
		t.Fatalf("UpdateVM: %v", err)
	}
	if err := h.DisposeVM("A"); err != nil {
		t.Fatalf("DisposeVM: %v", err)
	}

	req := waitFor(t, fs.received, "request")
	gotArgs, err := req.Args()
	if err != nil {
		t.Fatalf("Args: %v", err)
	}
	if req.VMID != "A" || gotArgs.VMArg["id"] != "7" {
		t.Errorf("request = %+v, args = %+v", req, gotArgs)
	}

	upd := waitFor(t, fs.received, "update")
	value, err := upd.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if value["x"] != 1.0 {
		t.Errorf("update value = %v", value)
	}

	disp := waitFor(t, fs.received, "dispose")
	if disp.Type != protocol.TypeDisposeVM || disp.VMID != "A" {
		t.Errorf("dispose = %+v", disp)
	}
}

func TestHub_Responses(t *testing.T) {
	fs := newFakeServer(t)
	cfg := testConfig(fs.wsURL())
	h := New(cfg)
	type response struct {
		vmID    string
		payload string
	}
	responses := make(chan response, 8)
	h.OnResponse(func(vmID string, payload []byte) {
		responses <- response{vmID, string(payload)}
	})
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = h.Close() })

	conn := waitFor(t, fs.conns, "server connection")
	writes := []string{
		`not json`,
		`{"type": "update_vm", "vmId": "A", "data": {}}`,
		`{"type": "response_vm", "vmId": "A", "data": [1]}`,
		`{"type": "response_vm", "vmId": "A", "data": {"x": 1}}`,
		`{"type": "response_vm", "vmId": "B", "data": "{\"y\": 2}"}`,
	}
	for _, w := range writes {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(w)); err != nil {
			t.Fatalf("server write: %v", err)
		}
	}

	want := []response{
		{"A", `{"x": 1}`},
		{"B", `{"y": 2}`},
	}
	for _, w := range want {
		got := waitFor(t, responses, "response "+w.vmID)
		if got != w {
			t.Errorf("got %+v, want %+v", got, w)
		}
	}
}

func TestHub_Headers(t *testing.T) {
	fs := newFakeServer(t)
	cfg := testConfig(fs.wsURL())
	cfg.Header = http.Header{"Authorization": []string{"Bearer token"}}
	_, connected := startHub(t, cfg)
	waitFor(t, connected, "connected")

	header := waitFor(t, fs.headers, "handshake headers")
	if got := header.Get("Authorization"); got != "Bearer token" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestHub_NotConnected(t *testing.T) {
	h := New(DefaultConfig("ws://127.0.0.1:1/hub"))

	if h.IsConnected() {
		t.Error("IsConnected() = true before Start")
	}
	tests := []struct {
		name string
		send func() error
	}{
		{"request", func() error { return h.RequestVM("A", protocol.RequestArgs{}) }},
		{"update", func() error { return h.UpdateVM("A", nil) }},
		{"dispose", func() error { return h.DisposeVM("A") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.send(); errors.Code(err) != "E063" {
				t.Errorf("got %v, want E063", err)
			}
		})
	}
}

func TestHub_Reconnect(t *testing.T) {
	fs := newFakeServer(t)
	h := New(testConfig(fs.wsURL()))

	events := make(chan string, 16)
	h.OnReconnected(func() { events <- "reconnected" })
	h.OnConnected(func() { events <- "connected" })
	notified := make(chan error, 8)
	h.OnError(func(err error) { notified <- err })

	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = h.Close() })

	if got := waitFor(t, events, "first connect"); got != "connected" {
		t.Fatalf("first event = %q, want connected", got)
	}
	conn := waitFor(t, fs.conns, "server connection")
	_ = conn.Close()

	if err := waitFor(t, notified, "connection lost"); errors.Code(err) != "E064" {
		t.Errorf("notified %v, want E064", err)
	}
	for _, want := range []string{"reconnected", "connected"} {
		if got := waitFor(t, events, want); got != want {
			t.Errorf("event = %q, want %q", got, want)
		}
	}
}

func TestHub_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	h := New(testConfig(url))
	notified := make(chan error, 8)
	h.OnError(func(err error) { notified <- err })
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}

	if err := waitFor(t, notified, "dial error"); errors.Code(err) != "E060" {
		t.Errorf("notified %v, want E060", err)
	}

	done := make(chan struct{})
	go func() {
		_ = h.Close()
		close(done)
	}()
	waitFor(t, done, "Close while redialing")
}

func TestHub_Close(t *testing.T) {
	fs := newFakeServer(t)
	h, connected := startHub(t, testConfig(fs.wsURL()))
	waitFor(t, connected, "connected")

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if h.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
	if err := h.Start(); errors.Code(err) != "E063" {
		t.Errorf("Start after Close = %v, want E063", err)
	}
	if err := h.UpdateVM("A", map[string]any{}); errors.Code(err) != "E063" {
		t.Errorf("UpdateVM after Close = %v, want E063", err)
	}
}

func TestHub_StartIsIdempotent(t *testing.T) {
	fs := newFakeServer(t)
	h, connected := startHub(t, testConfig(fs.wsURL()))
	waitFor(t, connected, "connected")

	for i := 0; i < 3; i++ {
		if err := h.Start(); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}
	waitFor(t, fs.conns, "server connection")
	select {
	case <-fs.conns:
		t.Error("repeated Start opened another connection")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	var e emitter[func()]
	calls := 0
	unsub := e.add(func() { calls++ })
	e.add(func() { calls += 10 })

	e.each(func(fn func()) { fn() })
	unsub()
	unsub()
	e.each(func(fn func()) { fn() })

	if calls != 21 {
		t.Errorf("calls = %d, want 21", calls)
	}
}
