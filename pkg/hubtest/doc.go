// Package hubtest provides an in-memory connection facade for testing view
// model code without a server.
//
// # Quick Start
//
//	func TestTodoList(t *testing.T) {
//	    hub := hubtest.New().Connected()
//	    reg := viewmodel.NewRegistry(hub)
//	    vm, _ := reg.Connect("TodoList", viewmodel.NewStateBag(nil, nil))
//
//	    hubtest.ExpectRequested(t, hub, "TodoList")
//	    hub.Respond("TodoList", `{"Items": [], "Items_itemKey": "Id"}`)
//
//	    vm.Dispatch(map[string]any{"Title": "x"})
//	    hubtest.ExpectUpdate(t, hub, "TodoList", "Title", "x")
//	}
//
// # Simulating the connection
//
// A Hub starts disconnected. Connected flips the flag without emitting
// events; Connect flips it and emits connected, as a live hub does once the
// socket is up. Reconnect emits reconnected followed by connected.
//
// # Injecting failures
//
// Set RequestErr, UpdateErr or DisposeErr to make the matching call fail.
// Errors passed to NotifyError are kept in order and returned by Errors.
package hubtest
