package viewmodel

import "github.com/vango-dev/vmsync/pkg/reconcile"

// Direction tells which way a piece of traffic flows.
type Direction string

const (
	DirectionReceived  Direction = "received"  // response_vm applied
	DirectionSent      Direction = "sent"      // update_vm
	DirectionRequested Direction = "requested" // request_vm
	DirectionDisposed  Direction = "disposed"  // dispose_vm
)

// Traffic describes one message passing through a proxy.
type Traffic struct {
	VMID      string
	Direction Direction

	// Payload is the raw update for received traffic.
	Payload []byte

	// Value is the partial state for sent traffic.
	Value map[string]any

	// Applied and Rejected are filled in by the proxy after a received
	// update has been reconciled.
	Applied  int
	Rejected []reconcile.Diagnostic
}

// Middleware wraps the handling of each Traffic. It must call next exactly
// once unless it wants to stop the message.
type Middleware func(t *Traffic, next func() error) error

// DebugFunc receives every payload a proxy sends or receives when set.
type DebugFunc func(vmID string, direction Direction, value any)

// runChain runs final wrapped by mws, first middleware outermost.
func runChain(mws []Middleware, t *Traffic, final func() error) error {
	if len(mws) == 0 {
		return final()
	}
	return mws[0](t, func() error {
		return runChain(mws[1:], t, final)
	})
}
