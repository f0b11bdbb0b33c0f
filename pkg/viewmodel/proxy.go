package viewmodel

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/vango-dev/vmsync/internal/errors"
	"github.com/vango-dev/vmsync/pkg/protocol"
	"github.com/vango-dev/vmsync/pkg/reconcile"
)

// Proxy is the local stand-in for one server view model.
type Proxy struct {
	id        string
	registry  *Registry
	component Component
	arg       map[string]any
	headers   map[string]any
	getState  func() State
	setState  func(State)
	onExcept  func(*protocol.ServerException)
	logger    *slog.Logger

	// mu guards the fields below and serializes state read-modify-write.
	mu        sync.Mutex
	requested bool
	awaiting  bool
	loaded    bool
	destroyed bool
	itemKeys  reconcile.ItemKeys
	caps      map[string]any
}

func newProxy(r *Registry, id string, component Component, o proxyOptions) *Proxy {
	p := &Proxy{
		id:        id,
		registry:  r,
		component: component,
		arg:       o.arg,
		headers:   o.headers,
		getState:  o.getState,
		setState:  o.setState,
		onExcept:  o.onException,
		logger:    r.logger.With("vm_id", id),
		itemKeys:  reconcile.ItemKeys{},
		caps:      make(map[string]any),
	}
	if p.getState == nil {
		p.getState = component.State
	}
	if p.setState == nil {
		p.setState = component.SetState
	}

	if pp, ok := component.(PropsProvider); ok {
		if vmArg, ok := pp.Props()["vmArg"].(map[string]any); ok {
			p.arg = reconcile.Merge(p.arg, vmArg)
		}
	}
	return p
}

// ID returns the view-model id.
func (p *Proxy) ID() string {
	return p.id
}

// Component returns the component the proxy is bound to.
func (p *Proxy) Component() Component {
	return p.component
}

// Arg returns the argument sent with requests.
func (p *Proxy) Arg() map[string]any {
	return p.arg
}

// State reads the component state through the accessor.
func (p *Proxy) State() State {
	s := p.getState()
	if s == nil {
		return State{}
	}
	return s
}

// SetState writes s through the mutator. It does not notify the server.
func (p *Proxy) SetState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setState(s)
}

// Prop returns a component property, or nil.
func (p *Proxy) Prop(name string) any {
	pp, ok := p.component.(PropsProvider)
	if !ok {
		return nil
	}
	return pp.Props()[name]
}

// Requested reports whether state has been requested on the current
// connection.
func (p *Proxy) Requested() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requested
}

// Loaded reports whether the first update has been applied.
func (p *Proxy) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// ItemKeys returns a copy of the item key table.
func (p *Proxy) ItemKeys() reconcile.ItemKeys {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.itemKeys.Clone()
}

// SetItemKey registers item keys, as in {"items": "id"}. Lists not named
// keep their current key.
func (p *Proxy) SetItemKey(keys map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for list, key := range keys {
		p.itemKeys[list] = key
	}
}

// Set attaches a capability to the proxy, typically from an extension.
func (p *Proxy) Set(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.caps[key] = value
}

// Get returns a capability attached with Set.
func (p *Proxy) Get(key string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.caps[key]
	return v, ok
}

// Request asks the server for the view model's state. It does nothing when
// the hub is down, or while an earlier request is still unanswered.
func (p *Proxy) Request() {
	hub := p.registry.hub
	if !hub.IsConnected() {
		return
	}

	p.mu.Lock()
	if p.destroyed || p.awaiting {
		p.mu.Unlock()
		return
	}
	p.requested = true
	p.awaiting = true
	p.mu.Unlock()

	args := protocol.RequestArgs{VMArg: p.arg, Headers: p.headers}
	t := &Traffic{VMID: p.id, Direction: DirectionRequested}
	err := runChain(p.registry.middleware, t, func() error {
		return hub.RequestVM(p.id, args)
	})
	if err != nil {
		// Leave the flags clear so the next connected event retries.
		p.resetRequest()
		hub.NotifyError(errors.FromError(err, "E061").WithVM(p.id))
	}
}

// resetRequest marks the proxy as not yet requested.
func (p *Proxy) resetRequest() {
	p.mu.Lock()
	p.requested = false
	p.awaiting = false
	p.mu.Unlock()
}

// Dispatch sends a partial state to the server view model. It is dropped
// when the hub is down; send failures go to Hub.NotifyError.
func (p *Proxy) Dispatch(value map[string]any) {
	hub := p.registry.hub
	if !hub.IsConnected() {
		return
	}

	t := &Traffic{VMID: p.id, Direction: DirectionSent, Value: value}
	err := runChain(p.registry.middleware, t, func() error {
		return hub.UpdateVM(p.id, value)
	})
	if err != nil {
		hub.NotifyError(errors.FromError(err, "E061").WithVM(p.id))
		return
	}

	p.logger.Debug("sent", "value", value)
	if p.registry.debug != nil {
		p.registry.debug(p.id, DirectionSent, value)
	}
}

// DispatchListState sends per-field updates for list items, e.g.
//
//	vm.DispatchListState(map[string]any{"items": map[string]any{"id": 3, "done": true}})
//
// dispatches {"items.$3.done": true} and then applies the same change
// locally as an items_update would.
func (p *Proxy) DispatchListState(update map[string]any) {
	lists := make([]string, 0, len(update))
	for list := range update {
		lists = append(lists, list)
	}
	sort.Strings(lists)

	for _, list := range lists {
		p.mu.Lock()
		key, ok := p.itemKeys[list]
		p.mu.Unlock()
		if !ok {
			p.report(reconcile.Diagnostic{List: list, Kind: reconcile.OpUpdate, Reason: reconcile.ReasonMissingItemKey})
			return
		}

		item, ok := update[list].(map[string]any)
		if !ok {
			p.report(reconcile.Diagnostic{List: list, Kind: reconcile.OpUpdate, Reason: reconcile.ReasonInvalidItem, Key: key})
			return
		}
		keyValue, ok := reconcile.KeyString(item[key])
		if !ok {
			p.report(reconcile.Diagnostic{List: list, Kind: reconcile.OpUpdate, Reason: reconcile.ReasonItemMissingKey, Key: key})
			return
		}

		fields := make([]string, 0, len(item))
		for field := range item {
			if field != key {
				fields = append(fields, field)
			}
		}
		sort.Strings(fields)
		for _, field := range fields {
			p.Dispatch(map[string]any{list + ".$" + keyValue + "." + field: item[field]})
		}

		p.mu.Lock()
		next, d := reconcile.UpdateItem(p.State(), p.itemKeys, list, item)
		if d == nil {
			p.setState(next)
		}
		p.mu.Unlock()
		if d != nil {
			p.report(*d)
		}
	}
}

// Update applies a raw update from the server.
//
// A payload that is not a JSON object, or that carries a server-side
// exception, is reported and not applied. List operations that fail their
// preconditions are reported and skipped.
func (p *Proxy) Update(raw []byte) error {
	t := &Traffic{VMID: p.id, Direction: DirectionReceived, Payload: raw}
	return runChain(p.registry.middleware, t, func() error {
		return p.apply(t)
	})
}

func (p *Proxy) apply(t *Traffic) error {
	payload, err := reconcile.Decode(t.Payload)
	if err != nil {
		e := errors.New("E025").WithVM(p.id).Wrap(err)
		p.logger.Error(e.Message, "code", e.Code, "error", err)
		return e
	}

	p.logger.Debug("received", "fields", len(payload.Fields))
	if p.registry.debug != nil {
		p.registry.debug(p.id, DirectionReceived, payload.Fields)
	}

	// An exception response is never merged, even when a handler is set.
	if ex := protocol.DetectException(payload.Fields); ex != nil {
		p.mu.Lock()
		p.awaiting = false
		p.mu.Unlock()

		if p.onExcept != nil {
			p.onExcept(ex)
		} else {
			p.logger.Error("server-side exception", "code", "E026", "type", ex.ExceptionType, "message", ex.Message)
		}
		return errors.New("E026").WithVM(p.id).Wrap(ex)
	}

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil
	}
	p.awaiting = false
	res := reconcile.Apply(p.State(), p.itemKeys, payload)
	p.setState(res.State)
	firstLoad := !p.loaded
	p.loaded = true
	p.mu.Unlock()

	t.Applied = res.Applied
	t.Rejected = res.Diagnostics
	for _, d := range res.Diagnostics {
		p.report(d)
	}

	if firstLoad {
		p.registry.extensions.ready(p)
	}
	return nil
}

// report logs a skipped list operation.
func (p *Proxy) report(d reconcile.Diagnostic) {
	err := d.Err(p.id)
	p.logger.Error(err.Message,
		"code", err.Code,
		"list", d.List,
		"reason", string(d.Reason),
		"detail", err.Detail,
	)
}

// Destroy disposes the proxy here and on the server. Extension OnDetach
// hooks run first; the proxy always leaves the registry, even if the
// disposal notice cannot be sent.
func (p *Proxy) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	p.mu.Unlock()

	p.registry.extensions.detach(p)

	hub := p.registry.hub
	if hub.IsConnected() {
		t := &Traffic{VMID: p.id, Direction: DirectionDisposed}
		err := runChain(p.registry.middleware, t, func() error {
			return hub.DisposeVM(p.id)
		})
		if err != nil {
			hub.NotifyError(errors.FromError(err, "E062").WithVM(p.id))
		}
	}

	p.registry.remove(p)
}

// Destroyed reports whether Destroy has been called.
func (p *Proxy) Destroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}
