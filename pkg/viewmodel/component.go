package viewmodel

import (
	"sync"

	"github.com/vango-dev/vmsync/pkg/reconcile"
)

// State is the state of a component: field name to value.
type State = reconcile.State

// Component is the UI side of a proxy. The proxy never keeps its own copy
// of the state; it reads and writes through these methods unless the
// WithGetState and WithSetState options replace them.
type Component interface {
	State() State
	SetState(State)
}

// PropsProvider is implemented by components that expose properties.
// A "vmArg" property is merged over the WithArg argument.
type PropsProvider interface {
	Props() map[string]any
}

// StateBag is a minimal Component holding state in memory.
type StateBag struct {
	mu       sync.RWMutex
	state    State
	props    map[string]any
	onChange []func(State)
}

// NewStateBag creates a StateBag with initial state and props.
func NewStateBag(initial State, props map[string]any) *StateBag {
	if initial == nil {
		initial = State{}
	}
	return &StateBag{state: initial.Clone(), props: props}
}

// State returns a copy of the current state.
func (b *StateBag) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Clone()
}

// SetState merges s over the current state and notifies listeners.
func (b *StateBag) SetState(s State) {
	b.mu.Lock()
	b.state = reconcile.Merge(b.state, s)
	next := b.state.Clone()
	listeners := append([]func(State){}, b.onChange...)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}

// Props returns the props the bag was created with.
func (b *StateBag) Props() map[string]any {
	return b.props
}

// OnChange registers fn to run after every SetState.
func (b *StateBag) OnChange(fn func(State)) {
	b.mu.Lock()
	b.onChange = append(b.onChange, fn)
	b.mu.Unlock()
}
