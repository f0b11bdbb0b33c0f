package viewmodel

import (
	"sync"

	"github.com/vango-dev/vmsync/internal/errors"
)

// Extension adds behavior to every proxy of a registry. An extension opts
// into lifecycle hooks by also implementing Attacher, ReadyHook or Detacher.
// Hooks run in registration order.
type Extension interface {
	Name() string
}

// Attacher is called once when a proxy is connected. It may attach
// capabilities to the proxy with Proxy.Set.
type Attacher interface {
	OnAttach(p *Proxy)
}

// ReadyHook is called after the first update of a proxy is applied.
type ReadyHook interface {
	OnReady(p *Proxy)
}

// Detacher is called when a proxy is destroyed, before the server is told.
type Detacher interface {
	OnDetach(p *Proxy)
}

// Extensions is an ordered set of extensions keyed by name.
type Extensions struct {
	mu   sync.RWMutex
	list []Extension
}

// Register adds ext. Names must be unique.
func (e *Extensions) Register(ext Extension) error {
	if ext == nil || ext.Name() == "" {
		return errors.New("E004")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.list {
		if existing.Name() == ext.Name() {
			return errors.New("E003").WithDetailf("extension %q", ext.Name())
		}
	}
	e.list = append(e.list, ext)
	return nil
}

// Get returns the extension registered under name.
func (e *Extensions) Get(name string) (Extension, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ext := range e.list {
		if ext.Name() == name {
			return ext, true
		}
	}
	return nil, false
}

// All returns the extensions in registration order.
func (e *Extensions) All() []Extension {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Extension(nil), e.list...)
}

func (e *Extensions) attach(p *Proxy) {
	for _, ext := range e.All() {
		if h, ok := ext.(Attacher); ok {
			h.OnAttach(p)
		}
	}
}

func (e *Extensions) ready(p *Proxy) {
	for _, ext := range e.All() {
		if h, ok := ext.(ReadyHook); ok {
			h.OnReady(p)
		}
	}
}

func (e *Extensions) detach(p *Proxy) {
	for _, ext := range e.All() {
		if h, ok := ext.(Detacher); ok {
			h.OnDetach(p)
		}
	}
}
