// Package reconcile turns a server update payload into the next local state
// of a view model.
//
// A payload is a JSON object. Most fields are plain state and are merged
// shallowly over the prior state. Fields whose names end in one of four
// suffixes are list operations instead, and never reach the merged state:
//
//	<list>_itemKey  declares which item field identifies items of <list>
//	<list>_add      appends one item to <list>
//	<list>_update   shallow-merges fields into the item of <list> with the same key
//	<list>_remove   removes the items of <list> whose key equals the value
//
// Field names are parsed once into an Op (list name plus OpKind). Item key
// declarations are applied first, then the remaining operations in payload
// order, then the plain fields.
//
// An operation whose preconditions do not hold is skipped and reported as a
// Diagnostic; the rest of the payload is still applied. Nothing in this
// package logs or talks to the network: Apply and Merge are pure functions
// of their inputs and never mutate the prior state or its lists.
//
// # Example
//
//	prior := reconcile.State{"items": []any{map[string]any{"id": 1.0, "name": "a"}}}
//	keys := reconcile.ItemKeys{"items": "id"}
//	p, _ := reconcile.Decode([]byte(`{"items_update": {"id": 1, "name": "b"}}`))
//
//	res := reconcile.Apply(prior, keys, p)
//	// res.State["items"] == []any{map[string]any{"id": 1.0, "name": "b"}}
package reconcile
