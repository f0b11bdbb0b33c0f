// Package viewmodel binds local UI components to view models that live on a
// server hub.
//
// A Registry holds at most one Proxy per view-model id. Each Proxy mirrors
// the state of one server view model into the state of one Component:
//
//	reg := viewmodel.NewRegistry(hubClient, viewmodel.WithLogger(logger))
//
//	bag := viewmodel.NewStateBag(nil, nil)
//	vm, err := reg.Connect("TodoList", bag,
//	    viewmodel.WithArg(map[string]any{"filter": "open"}),
//	)
//	if err != nil {
//	    return err
//	}
//	defer vm.Destroy()
//
//	// Local edits flow back to the server view model.
//	vm.Dispatch(map[string]any{"NewItem": "buy milk"})
//	vm.DispatchListState(map[string]any{"items": map[string]any{"id": 3, "done": true}})
//
// # Inbound updates
//
// The registry subscribes once to the hub's response, connected and
// reconnected events. Responses are routed to the proxy with the same id,
// reconciled with package reconcile (list operations encoded as
// <list>_itemKey, _add, _update and _remove fields) and merged into the
// component state. The first successful update marks the proxy loaded and
// runs the OnReady hook of every extension.
//
// # Failure handling
//
// Nothing on this path panics or returns transport errors to UI code.
// Operations that break a list precondition are logged and skipped; send
// and dispose failures are handed to Hub.NotifyError. A send attempted while
// the hub is disconnected is dropped.
//
// # Concurrency
//
// Hub events arrive on the hub's goroutine while UI code calls into proxies
// from its own. A proxy serializes its state read-modify-write with a mutex.
// State accessors run under that mutex and must not call back into the same
// proxy; hub calls, extension hooks and middleware run without it.
package viewmodel
