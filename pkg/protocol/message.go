package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies a hub message.
type MessageType string

const (
	TypeRequestVM  MessageType = "request_vm"  // Client → Hub: request initial state
	TypeUpdateVM   MessageType = "update_vm"   // Client → Hub: partial state
	TypeDisposeVM  MessageType = "dispose_vm"  // Client → Hub: view model released
	TypeResponseVM MessageType = "response_vm" // Hub → Client: state update
)

// Valid reports whether mt is a known message type.
func (mt MessageType) Valid() bool {
	switch mt {
	case TypeRequestVM, TypeUpdateVM, TypeDisposeVM, TypeResponseVM:
		return true
	default:
		return false
	}
}

// Message errors.
var (
	ErrInvalidType      = errors.New("protocol: invalid message type")
	ErrMissingVMID      = errors.New("protocol: missing vmId")
	ErrPayloadNotObject = errors.New("protocol: payload is not a JSON object")
)

// Message is the envelope for every hub message.
type Message struct {
	Type MessageType     `json:"type"`
	VMID string          `json:"vmId"`
	Data json.RawMessage `json:"data,omitempty"`
}

// RequestArgs is the data of a request_vm message.
type RequestArgs struct {
	VMArg   map[string]any `json:"$vmArg,omitempty"`
	Headers map[string]any `json:"$headers,omitempty"`
}

// NewRequest creates a request_vm message.
func NewRequest(vmID string, args RequestArgs) (*Message, error) {
	return newMessage(TypeRequestVM, vmID, args)
}

// NewUpdate creates an update_vm message carrying a partial state.
func NewUpdate(vmID string, value map[string]any) (*Message, error) {
	return newMessage(TypeUpdateVM, vmID, value)
}

// NewDispose creates a dispose_vm message.
func NewDispose(vmID string) *Message {
	return &Message{Type: TypeDisposeVM, VMID: vmID}
}

// NewResponse creates a response_vm message from an encoded state object.
func NewResponse(vmID string, payload []byte) *Message {
	return &Message{Type: TypeResponseVM, VMID: vmID, Data: json.RawMessage(payload)}
}

func newMessage(mt MessageType, vmID string, data any) (*Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s data: %w", mt, err)
	}
	return &Message{Type: mt, VMID: vmID, Data: raw}, nil
}

// Encode returns the JSON encoding of the message.
func (m *Message) Encode() ([]byte, error) {
	if !m.Type.Valid() {
		return nil, ErrInvalidType
	}
	if m.VMID == "" {
		return nil, ErrMissingVMID
	}
	return json.Marshal(m)
}

// Decode parses and validates a hub message.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("protocol: decode message: %w", err)
	}
	if !m.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, m.Type)
	}
	if m.VMID == "" {
		return nil, ErrMissingVMID
	}
	return &m, nil
}

// Payload returns the data of a message as an encoded JSON object.
// A JSON string holding an encoded object is unwrapped first.
func (m *Message) Payload() ([]byte, error) {
	data := bytes.TrimSpace(m.Data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("protocol: decode payload string: %w", err)
		}
		data = bytes.TrimSpace([]byte(s))
	}
	if len(data) == 0 || data[0] != '{' {
		return nil, ErrPayloadNotObject
	}
	return data, nil
}

// Args decodes the data of a request_vm message.
func (m *Message) Args() (RequestArgs, error) {
	var args RequestArgs
	if m.Type != TypeRequestVM {
		return args, fmt.Errorf("%w: %s is not %s", ErrInvalidType, m.Type, TypeRequestVM)
	}
	if len(m.Data) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(m.Data, &args); err != nil {
		return args, fmt.Errorf("protocol: decode request args: %w", err)
	}
	return args, nil
}

// Value decodes the data of an update_vm message.
func (m *Message) Value() (map[string]any, error) {
	if m.Type != TypeUpdateVM {
		return nil, fmt.Errorf("%w: %s is not %s", ErrInvalidType, m.Type, TypeUpdateVM)
	}
	var value map[string]any
	if err := json.Unmarshal(m.Data, &value); err != nil {
		return nil, fmt.Errorf("protocol: decode update value: %w", err)
	}
	return value, nil
}
