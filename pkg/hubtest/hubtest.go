package hubtest

import (
	"encoding/json"
	"sync"

	"github.com/vango-dev/vmsync/pkg/protocol"
)

// Call records one request, update or dispose made through the Hub.
type Call struct {
	Type  protocol.MessageType
	VMID  string
	Args  protocol.RequestArgs
	Value map[string]any
}

// Hub is an in-memory connection facade. It is safe for concurrent use.
type Hub struct {
	mu        sync.Mutex
	connected bool
	starts    int
	calls     []Call
	errs      []error

	// RequestErr, UpdateErr and DisposeErr are returned by the matching
	// calls when set. The call is still recorded.
	RequestErr error
	UpdateErr  error
	DisposeErr error

	// StartErr is returned by Start when set.
	StartErr error

	onConnected   subscribers[func()]
	onReconnected subscribers[func()]
	onResponse    subscribers[func(string, []byte)]
	onError       subscribers[func(error)]
}

// New creates a disconnected Hub.
func New() *Hub {
	return &Hub{}
}

// Connected marks the hub as connected without emitting an event.
func (h *Hub) Connected() *Hub {
	h.mu.Lock()
	h.connected = true
	h.mu.Unlock()
	return h
}

// Connect marks the hub as connected and emits connected.
func (h *Hub) Connect() {
	h.Connected()
	for _, fn := range h.onConnected.snapshot() {
		fn()
	}
}

// Disconnect marks the hub as disconnected.
func (h *Hub) Disconnect() {
	h.mu.Lock()
	h.connected = false
	h.mu.Unlock()
}

// Reconnect emits reconnected and then connected.
func (h *Hub) Reconnect() {
	h.Connected()
	for _, fn := range h.onReconnected.snapshot() {
		fn()
	}
	for _, fn := range h.onConnected.snapshot() {
		fn()
	}
}

// Respond emits a response for vmID with payload as its data.
func (h *Hub) Respond(vmID string, payload string) {
	h.RespondBytes(vmID, []byte(payload))
}

// RespondBytes is Respond for a byte payload.
func (h *Hub) RespondBytes(vmID string, payload []byte) {
	for _, fn := range h.onResponse.snapshot() {
		fn(vmID, payload)
	}
}

// RespondJSON marshals v and emits it as a response for vmID.
func (h *Hub) RespondJSON(vmID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.RespondBytes(vmID, data)
	return nil
}

// IsConnected reports the simulated connection state.
func (h *Hub) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// Start counts the call. It never connects by itself.
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
	return h.StartErr
}

// Starts returns how many times Start was called.
func (h *Hub) Starts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.starts
}

// RequestVM records a request_vm call.
func (h *Hub) RequestVM(vmID string, args protocol.RequestArgs) error {
	return h.record(Call{Type: protocol.TypeRequestVM, VMID: vmID, Args: args}, h.RequestErr)
}

// UpdateVM records an update_vm call.
func (h *Hub) UpdateVM(vmID string, value map[string]any) error {
	return h.record(Call{Type: protocol.TypeUpdateVM, VMID: vmID, Value: value}, h.UpdateErr)
}

// DisposeVM records a dispose_vm call.
func (h *Hub) DisposeVM(vmID string) error {
	return h.record(Call{Type: protocol.TypeDisposeVM, VMID: vmID}, h.DisposeErr)
}

func (h *Hub) record(c Call, err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, c)
	return err
}

// NotifyError keeps err for Errors and passes it to OnError subscribers.
func (h *Hub) NotifyError(err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()

	for _, fn := range h.onError.snapshot() {
		fn(err)
	}
}

// Errors returns the errors passed to NotifyError.
func (h *Hub) Errors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errs...)
}

// Calls returns every recorded call in order.
func (h *Hub) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Call(nil), h.calls...)
}

// CallsOf returns the recorded calls of one type for vmID.
func (h *Hub) CallsOf(mt protocol.MessageType, vmID string) []Call {
	var out []Call
	for _, c := range h.Calls() {
		if c.Type == mt && c.VMID == vmID {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls and errors.
func (h *Hub) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = nil
	h.errs = nil
}

// OnConnected subscribes to connected events.
func (h *Hub) OnConnected(fn func()) func() {
	return h.onConnected.add(fn)
}

// OnReconnected subscribes to reconnected events.
func (h *Hub) OnReconnected(fn func()) func() {
	return h.onReconnected.add(fn)
}

// OnResponse subscribes to responses.
func (h *Hub) OnResponse(fn func(vmID string, payload []byte)) func() {
	return h.onResponse.add(fn)
}

// OnError subscribes to errors passed to NotifyError.
func (h *Hub) OnError(fn func(error)) func() {
	return h.onError.add(fn)
}

// Subscribers returns the number of live subscriptions of all kinds.
func (h *Hub) Subscribers() int {
	return h.onConnected.len() + h.onReconnected.len() + h.onResponse.len() + h.onError.len()
}

type subscribers[F any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]F
	ids  []int
}

func (s *subscribers[F]) add(fn F) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]F)
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	s.ids = append(s.ids, id)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *subscribers[F]) snapshot() []F {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]F, 0, len(s.fns))
	for _, id := range s.ids {
		if fn, ok := s.fns[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (s *subscribers[F]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}
