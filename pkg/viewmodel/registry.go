package viewmodel

import (
	"log/slog"
	"sync"

	"github.com/vango-dev/vmsync/internal/errors"
)

// Registry maps view-model ids to their proxies and routes hub events to
// them. Create one per hub connection.
type Registry struct {
	hub        Hub
	logger     *slog.Logger
	debug      DebugFunc
	middleware []Middleware
	extensions Extensions

	mu         sync.Mutex
	proxies    map[string]*Proxy
	order      []*Proxy
	subscribed bool
	unsubs     []func()
}

// NewRegistry creates a registry bound to hub.
func NewRegistry(hub Hub, opts ...RegistryOption) *Registry {
	r := &Registry{
		hub:     hub,
		logger:  slog.Default().With("component", "viewmodel"),
		proxies: make(map[string]*Proxy),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use registers an extension for every proxy connected afterwards.
func (r *Registry) Use(ext Extension) error {
	return r.extensions.Register(ext)
}

// Extensions returns the registered extensions.
func (r *Registry) Extensions() *Extensions {
	return &r.extensions
}

// Hub returns the connection facade.
func (r *Registry) Hub() Hub {
	return r.hub
}

// Logger returns the registry's logger.
func (r *Registry) Logger() *slog.Logger {
	return r.logger
}

// Connect creates the proxy for view model id, bound to component.
//
// If id is already connected the error is logged and the existing proxy is
// returned unchanged, so the caller is never left without one. The returned
// error is reserved for missing arguments.
func (r *Registry) Connect(id string, component Component, opts ...Option) (*Proxy, error) {
	if id == "" || component == nil {
		return nil, errors.New("E002").WithVM(id)
	}

	r.mu.Lock()
	if existing, ok := r.proxies[id]; ok {
		r.mu.Unlock()
		err := errors.New("E001").WithVM(id).
			WithSuggestion("Call Destroy on the proxy when its component unmounts")
		r.logger.Error(err.Message, "vm_id", id, "code", err.Code)
		return existing, nil
	}

	var o proxyOptions
	for _, opt := range opts {
		opt(&o)
	}
	p := newProxy(r, id, component, o)
	r.proxies[id] = p
	r.order = append(r.order, p)
	r.mu.Unlock()

	r.extensions.attach(p)
	r.init()
	return p, nil
}

// init subscribes to hub events once and starts the hub.
func (r *Registry) init() {
	r.mu.Lock()
	if !r.subscribed {
		r.subscribed = true
		r.unsubs = append(r.unsubs,
			r.hub.OnResponse(r.handleResponse),
			r.hub.OnConnected(r.handleConnected),
			r.hub.OnReconnected(r.handleReconnected),
		)
	}
	r.mu.Unlock()

	if err := r.hub.Start(); err != nil {
		r.hub.NotifyError(errors.FromError(err, "E060"))
	}

	// A hub that is already live will not emit connected again.
	if r.hub.IsConnected() {
		r.handleConnected()
	}
}

// Lookup returns the proxy connected under id.
func (r *Registry) Lookup(id string) (*Proxy, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proxies[id]
	return p, ok
}

// ViewModels returns the connected proxies in connection order.
func (r *Registry) ViewModels() []*Proxy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Proxy(nil), r.order...)
}

// Len returns the number of connected proxies.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}

// Close removes the registry's hub subscriptions. Connected proxies are
// left as they are.
func (r *Registry) Close() {
	r.mu.Lock()
	unsubs := r.unsubs
	r.unsubs = nil
	r.subscribed = false
	r.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

// remove drops p if it is still the proxy registered under its id.
func (r *Registry) remove(p *Proxy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.proxies[p.id] != p {
		return
	}
	delete(r.proxies, p.id)
	for i, q := range r.order {
		if q == p {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry) handleConnected() {
	for _, p := range r.ViewModels() {
		if !p.Requested() {
			p.Request()
		}
	}
}

func (r *Registry) handleReconnected() {
	for _, p := range r.ViewModels() {
		p.resetRequest()
	}
	if err := r.hub.Start(); err != nil {
		r.hub.NotifyError(errors.FromError(err, "E060"))
	}
}

func (r *Registry) handleResponse(vmID string, payload []byte) {
	p, ok := r.Lookup(vmID)
	if !ok {
		r.logger.Debug("response for unknown view model dropped", "vm_id", vmID)
		return
	}
	// Failures are logged by the proxy.
	_ = p.Update(payload)
}
