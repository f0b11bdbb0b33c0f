package viewmodel

import (
	"testing"

	"github.com/vango-dev/vmsync/internal/errors"
	"github.com/vango-dev/vmsync/pkg/hubtest"
	"github.com/vango-dev/vmsync/pkg/protocol"
)

func TestConnect_InvalidArguments(t *testing.T) {
	r, _ := newTestRegistry(t, hubtest.New())

	tests := []struct {
		name      string
		id        string
		component Component
	}{
		{"empty id", "", NewStateBag(nil, nil)},
		{"nil component", "A", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.Connect(tt.id, tt.component)
			if p != nil {
				t.Error("expected no proxy")
			}
			if errors.Code(err) != "E002" {
				t.Errorf("got %v, want E002", err)
			}
		})
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestConnect_Duplicate(t *testing.T) {
	hub := hubtest.New()
	r, logs := newTestRegistry(t, hub)

	first := mustConnect(t, r, "A", NewStateBag(nil, nil))
	second, err := r.Connect("A", NewStateBag(nil, nil))
	if err != nil {
		t.Fatalf("duplicate Connect returned error: %v", err)
	}
	if second != first {
		t.Error("duplicate Connect should return the first proxy")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	expectLogged(t, logs, "E001")
}

func TestConnect_SubscribesOnce(t *testing.T) {
	hub := hubtest.New()
	r, _ := newTestRegistry(t, hub)

	mustConnect(t, r, "A", NewStateBag(nil, nil))
	mustConnect(t, r, "B", NewStateBag(nil, nil))

	if hub.Subscribers() != 3 {
		t.Errorf("Subscribers() = %d, want 3", hub.Subscribers())
	}
	if hub.Starts() != 2 {
		t.Errorf("Starts() = %d, want 2", hub.Starts())
	}

	r.Close()
	if hub.Subscribers() != 0 {
		t.Errorf("after Close, Subscribers() = %d, want 0", hub.Subscribers())
	}
}

func TestConnect_WhileConnectedRequestsImmediately(t *testing.T) {
	hub := hubtest.New().Connected()
	r, _ := newTestRegistry(t, hub)

	p := mustConnect(t, r, "A", NewStateBag(nil, nil))
	hubtest.ExpectRequested(t, hub, "A")
	if !p.Requested() {
		t.Error("expected Requested() after connect on a live hub")
	}
}

func TestConnectedEvent_RequestsPending(t *testing.T) {
	hub := hubtest.New()
	r, _ := newTestRegistry(t, hub)

	a := mustConnect(t, r, "A", NewStateBag(nil, nil))
	mustConnect(t, r, "B", NewStateBag(nil, nil))

	if len(hub.Calls()) != 0 {
		t.Fatalf("no requests expected while disconnected, got %v", hub.Calls())
	}
	if a.Requested() {
		t.Error("Requested() should stay false while disconnected")
	}

	hub.Connect()
	hubtest.ExpectRequested(t, hub, "A")
	hubtest.ExpectRequested(t, hub, "B")

	// A second connected event must not re-request.
	hub.Connect()
	hubtest.ExpectRequested(t, hub, "A")
}

func TestReconnected_RequestsAgain(t *testing.T) {
	hub := hubtest.New().Connected()
	r, _ := newTestRegistry(t, hub)

	p := mustConnect(t, r, "A", NewStateBag(nil, nil))
	hub.Respond("A", `{"x": 1}`)
	startsBefore := hub.Starts()

	hub.Reconnect()

	if got := len(hub.CallsOf(protocol.TypeRequestVM, "A")); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if hub.Starts() != startsBefore+1 {
		t.Errorf("Starts() = %d, want %d", hub.Starts(), startsBefore+1)
	}
	if !p.Requested() {
		t.Error("expected Requested() after reconnect")
	}
}

func TestResponse_UnknownID(t *testing.T) {
	hub := hubtest.New().Connected()
	r, logs := newTestRegistry(t, hub)
	mustConnect(t, r, "A", NewStateBag(nil, nil))

	hub.Respond("B", `{"x": 1}`)
	expectLogged(t, logs, "unknown view model")
}

func TestResponse_RoutedByID(t *testing.T) {
	hub := hubtest.New().Connected()
	r, _ := newTestRegistry(t, hub)

	a := NewStateBag(nil, nil)
	b := NewStateBag(nil, nil)
	mustConnect(t, r, "A", a)
	mustConnect(t, r, "B", b)

	hub.Respond("B", `{"name": "b"}`)

	if _, ok := a.State()["name"]; ok {
		t.Error("A should not receive B's update")
	}
	if b.State()["name"] != "b" {
		t.Errorf("B state = %v", b.State())
	}
}

func TestViewModels_Order(t *testing.T) {
	r, _ := newTestRegistry(t, hubtest.New())
	for _, id := range []string{"C", "A", "B"} {
		mustConnect(t, r, id, NewStateBag(nil, nil))
	}

	a, _ := r.Lookup("A")
	a.Destroy()

	var ids []string
	for _, p := range r.ViewModels() {
		ids = append(ids, p.ID())
	}
	if len(ids) != 2 || ids[0] != "C" || ids[1] != "B" {
		t.Errorf("ViewModels() = %v, want [C B]", ids)
	}
	if _, ok := r.Lookup("A"); ok {
		t.Error("destroyed proxy still registered")
	}
}

func TestDestroyThenReconnect(t *testing.T) {
	hub := hubtest.New().Connected()
	r, _ := newTestRegistry(t, hub)

	first := mustConnect(t, r, "A", NewStateBag(nil, nil))
	first.Destroy()
	second := mustConnect(t, r, "A", NewStateBag(nil, nil))

	if second == first {
		t.Error("expected a new proxy after Destroy")
	}
	// Destroying the stale proxy again must not evict the new one.
	first.Destroy()
	if got, _ := r.Lookup("A"); got != second {
		t.Error("stale Destroy evicted the live proxy")
	}
}
