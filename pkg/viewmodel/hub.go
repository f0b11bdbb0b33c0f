package viewmodel

import "github.com/vango-dev/vmsync/pkg/protocol"

// Hub is the connection facade the registry talks through. Implementations
// deliver events on their own goroutines.
type Hub interface {
	// IsConnected reports whether the connection is live. Every outbound
	// call is gated on it.
	IsConnected() bool

	// Start begins (or resumes) connecting. It returns immediately and is
	// a no-op while a connection attempt is already running.
	Start() error

	RequestVM(vmID string, args protocol.RequestArgs) error
	UpdateVM(vmID string, value map[string]any) error
	DisposeVM(vmID string) error

	// NotifyError publishes a transport error on the hub's connection
	// error channel.
	NotifyError(err error)

	// Subscriptions. Each returns a function that removes the handler.
	OnConnected(fn func()) (unsubscribe func())
	OnReconnected(fn func()) (unsubscribe func())
	OnResponse(fn func(vmID string, payload []byte)) (unsubscribe func())
}
