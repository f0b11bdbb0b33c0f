package viewmodel

import (
	"log/slog"

	"github.com/vango-dev/vmsync/pkg/protocol"
)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDebug traces every payload sent and received.
func WithDebug(fn DebugFunc) RegistryOption {
	return func(r *Registry) {
		r.debug = fn
	}
}

// WithMiddleware appends traffic middleware.
func WithMiddleware(mws ...Middleware) RegistryOption {
	return func(r *Registry) {
		r.middleware = append(r.middleware, mws...)
	}
}

// Option configures a Proxy at Connect time.
type Option func(*proxyOptions)

type proxyOptions struct {
	arg         map[string]any
	headers     map[string]any
	getState    func() State
	setState    func(State)
	onException func(*protocol.ServerException)
}

// WithArg sets the argument sent with every request for the view model.
func WithArg(arg map[string]any) Option {
	return func(o *proxyOptions) {
		o.arg = arg
	}
}

// WithHeaders sets request headers, e.g. an authentication token.
func WithHeaders(headers map[string]any) Option {
	return func(o *proxyOptions) {
		o.headers = headers
	}
}

// WithGetState replaces Component.State as the state accessor.
func WithGetState(fn func() State) Option {
	return func(o *proxyOptions) {
		o.getState = fn
	}
}

// WithSetState replaces Component.SetState as the state mutator.
func WithSetState(fn func(State)) Option {
	return func(o *proxyOptions) {
		o.setState = fn
	}
}

// WithExceptionHandler receives exceptions raised by the server view model.
// Without a handler they are logged.
func WithExceptionHandler(fn func(*protocol.ServerException)) Option {
	return func(o *proxyOptions) {
		o.onException = fn
	}
}
