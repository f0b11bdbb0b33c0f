package vmsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/vmsync/internal/config"
	"github.com/vango-dev/vmsync/internal/errors"
	"github.com/vango-dev/vmsync/pkg/protocol"
	"github.com/vango-dev/vmsync/pkg/viewmodel"
)

// newEchoHub starts a hub that answers request_vm with initial state and
// echoes every update_vm back as a response.
func newEchoHub(t *testing.T, initial map[string]any) string {
	t.Helper()
	var upgrader websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.Decode(data)
			if err != nil {
				continue
			}

			var reply []byte
			switch msg.Type {
			case protocol.TypeRequestVM:
				reply, _ = json.Marshal(initial)
			case protocol.TypeUpdateVM:
				reply = msg.Data
			default:
				continue
			}
			out, _ := protocol.NewResponse(msg.VMID, reply).Encode()
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.File.Hub.URL = url
	cfg.File.Hub.Reconnect.InitialDelay = "10ms"
	return cfg
}

func TestClient_EndToEnd(t *testing.T) {
	url := newEchoHub(t, map[string]any{
		"Greeting":      "hello",
		"Items":         []any{map[string]any{"Id": 1, "Name": "a"}},
		"Items_itemKey": "Id",
	})

	cfg := testConfig(url)
	cfg.File.Metrics.Enabled = true
	cfg.Registerer = prometheus.NewRegistry()
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	bag := viewmodel.NewStateBag(nil, nil)
	changes := make(chan viewmodel.State, 8)
	bag.OnChange(func(s viewmodel.State) { changes <- s })

	vm, err := client.Connect("HelloWorld", bag)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.WaitReady(ctx, vm); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if got := bag.State()["Greeting"]; got != "hello" {
		t.Errorf("Greeting = %v", got)
	}
	<-changes

	vm.Dispatch(map[string]any{"Greeting": "bye"})
	select {
	case s := <-changes:
		if s["Greeting"] != "bye" {
			t.Errorf("echoed Greeting = %v", s["Greeting"])
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for echoed update")
	}

	if client.Metrics() == nil {
		t.Error("Metrics() = nil with metrics enabled")
	}
}

func TestClient_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.File.Hub.URL = "http://example.com"

	_, err := New(cfg)
	if errors.Code(err) != "E121" {
		t.Errorf("got %v, want E121", err)
	}
}

func TestClient_WaitReadyTimeout(t *testing.T) {
	client, err := New(testConfig("ws://127.0.0.1:1/hub"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	vm, err := client.Connect("A", viewmodel.NewStateBag(nil, nil))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := client.WaitReady(ctx, vm); errors.Code(err) != "E142" {
		t.Errorf("got %v, want E142", err)
	}
}

func TestClient_CloseDestroysViewModels(t *testing.T) {
	client, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	vm, _ := client.Connect("A", viewmodel.NewStateBag(nil, nil))
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !vm.Destroyed() {
		t.Error("Close should destroy connected view models")
	}
	if client.Registry().Len() != 0 {
		t.Errorf("Len() = %d, want 0", client.Registry().Len())
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	file := config.New()
	file.Hub.URL = "wss://hub.example.com/dotnetify"
	if err := file.SaveTo(dir + "/" + config.ConfigFileName); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.File.Hub.URL != "wss://hub.example.com/dotnetify" {
		t.Errorf("URL = %q", cfg.File.Hub.URL)
	}

	if _, err := LoadConfig(t.TempDir()); errors.Code(err) != "E141" {
		t.Errorf("missing file: got %v, want E141", err)
	}
}
