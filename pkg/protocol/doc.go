// Package protocol implements the JSON hub protocol spoken between a vmsync
// client and a view-model hub.
//
// Every message is a UTF-8 JSON object sent in a WebSocket text frame:
//
//	{"type": "request_vm", "vmId": "TodoList", "data": {"$vmArg": {...}, "$headers": {...}}}
//	{"type": "update_vm",  "vmId": "TodoList", "data": {"items.$3.done": true}}
//	{"type": "dispose_vm", "vmId": "TodoList"}
//	{"type": "response_vm","vmId": "TodoList", "data": {"items": [...], "items_itemKey": "id"}}
//
// The first three flow from client to hub; response_vm flows from hub to
// client and carries either a state object or the same object serialized as
// a JSON string. Payload returns the object form in both cases.
//
// # Exceptions
//
// A hub reports a failure inside the server view model by responding with an
// object carrying ExceptionType and Message. DetectException recognizes it so
// the client can skip the state merge and surface the error instead.
package protocol
