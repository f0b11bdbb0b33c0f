package hub

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vmsync/internal/errors"
	"github.com/vango-dev/vmsync/pkg/protocol"
)

// Hub is a WebSocket connection to a view-model hub.
type Hub struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *slog.Logger
	rng    *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// mu guards conn and the lifecycle flags.
	mu          sync.Mutex
	conn        *websocket.Conn
	started     bool
	closed      bool
	established bool

	writeMu   sync.Mutex
	connected atomic.Bool

	onConnected   emitter[func()]
	onReconnected emitter[func()]
	onResponse    emitter[func(vmID string, payload []byte)]
	onError       emitter[func(error)]
}

// New creates a Hub. Nothing is dialed until Start.
func New(cfg Config) *Hub {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: cfg.HandshakeTimeout,
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:    cfg,
		dialer: dialer,
		logger: logger.With("component", "hub", "url", cfg.URL),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start launches the connection loop. Later calls do nothing.
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errors.New("E063").WithDetail("hub is closed")
	}
	if h.started {
		return nil
	}
	h.started = true
	go h.run()
	return nil
}

// Close stops the connection loop and closes the socket. It waits for the
// loop to exit, so it must not be called from a subscriber.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	started := h.started
	conn := h.conn
	h.mu.Unlock()

	h.cancel()
	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}
	if started {
		<-h.done
	}
	return nil
}

// IsConnected reports whether the socket is up.
func (h *Hub) IsConnected() bool {
	return h.connected.Load()
}

// RequestVM sends a request_vm message.
func (h *Hub) RequestVM(vmID string, args protocol.RequestArgs) error {
	msg, err := protocol.NewRequest(vmID, args)
	if err != nil {
		return errors.New("E061").WithVM(vmID).Wrap(err)
	}
	return h.send(msg, "E061")
}

// UpdateVM sends an update_vm message.
func (h *Hub) UpdateVM(vmID string, value map[string]any) error {
	msg, err := protocol.NewUpdate(vmID, value)
	if err != nil {
		return errors.New("E061").WithVM(vmID).Wrap(err)
	}
	return h.send(msg, "E061")
}

// DisposeVM sends a dispose_vm message.
func (h *Hub) DisposeVM(vmID string) error {
	return h.send(protocol.NewDispose(vmID), "E062")
}

// NotifyError logs err and passes it to the OnError subscribers.
func (h *Hub) NotifyError(err error) {
	if err == nil {
		return
	}
	h.logger.Error("hub error", "code", errors.Code(err), "error", err)
	h.onError.each(func(fn func(error)) { fn(err) })
}

// OnConnected subscribes to connection establishment, including after a
// reconnect.
func (h *Hub) OnConnected(fn func()) func() {
	return h.onConnected.add(fn)
}

// OnReconnected subscribes to reconnects. It runs before OnConnected.
func (h *Hub) OnReconnected(fn func()) func() {
	return h.onReconnected.add(fn)
}

// OnResponse subscribes to response_vm messages.
func (h *Hub) OnResponse(fn func(vmID string, payload []byte)) func() {
	return h.onResponse.add(fn)
}

// OnError subscribes to errors passed to NotifyError.
func (h *Hub) OnError(fn func(error)) func() {
	return h.onError.add(fn)
}

func (h *Hub) send(msg *protocol.Message, code string) error {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return errors.New("E063").WithVM(msg.VMID)
	}

	data, err := msg.Encode()
	if err != nil {
		return errors.New(code).WithVM(msg.VMID).Wrap(err)
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if h.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.New(code).WithVM(msg.VMID).Wrap(err)
	}
	h.logger.Debug("message sent", "type", msg.Type, "vm_id", msg.VMID, "bytes", len(data))
	return nil
}

// run dials, serves and redials until Close.
func (h *Hub) run() {
	defer close(h.done)

	attempt := 0
	for {
		if attempt > 0 {
			delay := NextBackoffDelay(h.cfg.Backoff, attempt, h.rng)
			h.logger.Info("redialing", "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-h.ctx.Done():
				return
			}
		}

		conn, err := h.dial()
		if err != nil {
			if h.ctx.Err() != nil {
				return
			}
			if attempt == 0 {
				h.NotifyError(errors.New("E060").Wrap(err))
			} else {
				h.logger.Warn("dial failed", "attempt", attempt, "error", err)
			}
			attempt++
			continue
		}

		reconnect, ok := h.attach(conn)
		if !ok {
			_ = conn.Close()
			return
		}
		attempt = 0

		h.logger.Info("connected", "reconnect", reconnect)
		if reconnect {
			h.onReconnected.each(func(fn func()) { fn() })
		}
		h.onConnected.each(func(fn func()) { fn() })

		err = h.serve(conn)
		h.detach(conn)
		if h.ctx.Err() != nil {
			return
		}
		h.NotifyError(errors.New("E064").Wrap(err))
		attempt = 1
	}
}

func (h *Hub) dial() (*websocket.Conn, error) {
	conn, resp, err := h.dialer.DialContext(h.ctx, h.cfg.URL, h.cfg.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// attach makes conn the live connection. It fails if the hub was closed
// while dialing.
func (h *Hub) attach(conn *websocket.Conn) (reconnect, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false, false
	}
	h.conn = conn
	reconnect = h.established
	h.established = true
	h.connected.Store(true)
	return reconnect, true
}

func (h *Hub) detach(conn *websocket.Conn) {
	h.mu.Lock()
	if h.conn == conn {
		h.conn = nil
	}
	h.mu.Unlock()
	h.connected.Store(false)
	_ = conn.Close()
}

// serve reads messages until the connection fails.
func (h *Hub) serve(conn *websocket.Conn) error {
	if h.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageSize)
	}

	stop := make(chan struct{})
	defer close(stop)

	if ping := h.cfg.PingInterval; ping > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(2 * ping))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(2 * ping))
		})
		go h.pingLoop(conn, ping, stop)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				h.logger.Error("read error", "error", err)
			}
			return err
		}
		h.handleMessage(data)
	}
}

func (h *Hub) pingLoop(conn *websocket.Conn, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if h.cfg.WriteTimeout <= 0 {
				deadline = time.Now().Add(interval)
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				h.logger.Debug("ping failed", "error", err)
				return
			}
		case <-stop:
			return
		}
	}
}

func (h *Hub) handleMessage(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		h.logger.Warn("invalid hub message", "code", "E028", "error", err)
		return
	}
	if msg.Type != protocol.TypeResponseVM {
		h.logger.Debug("ignored message", "type", msg.Type, "vm_id", msg.VMID)
		return
	}

	payload, err := msg.Payload()
	if err != nil {
		h.logger.Warn("invalid hub message", "code", "E028", "vm_id", msg.VMID, "error", err)
		return
	}
	h.onResponse.each(func(fn func(string, []byte)) { fn(msg.VMID, payload) })
}
