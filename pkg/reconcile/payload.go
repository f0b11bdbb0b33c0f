package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// State is a view model's state: field name to value.
type State map[string]any

// Clone returns a shallow copy of the state.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Payload is a decoded update with its field order preserved.
type Payload struct {
	Fields map[string]any
	Order  []string
}

// NewPayload wraps an already decoded object. Fields are ordered by name.
func NewPayload(fields map[string]any) *Payload {
	order := make([]string, 0, len(fields))
	for k := range fields {
		order = append(order, k)
	}
	sort.Strings(order)
	return &Payload{Fields: fields, Order: order}
}

// Decode parses an update payload. The top level must be a JSON object.
// A repeated field keeps its last value at its first position.
func Decode(raw []byte) (*Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reconcile: decode payload: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("reconcile: payload is not a JSON object")
	}

	p := &Payload{Fields: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reconcile: decode payload: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("reconcile: unexpected token %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("reconcile: decode field %q: %w", name, err)
		}
		if _, seen := p.Fields[name]; !seen {
			p.Order = append(p.Order, name)
		}
		p.Fields[name] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reconcile: decode payload: %w", err)
	}
	return p, nil
}

// Split separates list operations from plain fields. Item key declarations
// come first in the returned ops, the other ops follow in payload order.
func (p *Payload) Split() ([]Op, State) {
	var keyOps, listOps []Op
	plain := make(State, len(p.Fields))

	for _, field := range p.Order {
		value := p.Fields[field]
		list, kind := ParseField(field)
		switch kind {
		case OpNone:
			plain[field] = value
		case OpItemKey:
			keyOps = append(keyOps, Op{Field: field, List: list, Kind: kind, Value: value})
		default:
			listOps = append(listOps, Op{Field: field, List: list, Kind: kind, Value: value})
		}
	}
	return append(keyOps, listOps...), plain
}
