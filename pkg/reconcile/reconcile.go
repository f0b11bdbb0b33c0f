package reconcile

import "reflect"

// Result is the outcome of reconciling one payload.
type Result struct {
	// State is the next state: prior, changed by the list operations, with
	// the plain fields merged over it.
	State State

	// Applied counts the list operations that took effect.
	Applied int

	// Diagnostics lists the operations that were skipped.
	Diagnostics []Diagnostic
}

// Apply reconciles p against prior. Item key declarations in p are written
// into keys, which the caller owns and keeps across updates.
func Apply(prior State, keys ItemKeys, p *Payload) Result {
	ops, plain := p.Split()

	work := prior.Clone()
	res := Result{}
	for _, op := range ops {
		if d := applyOp(work, keys, op); d != nil {
			res.Diagnostics = append(res.Diagnostics, *d)
			continue
		}
		res.Applied++
	}

	res.State = Merge(work, plain)
	return res
}

// UpdateItem applies the equivalent of a <list>_update of item to prior.
func UpdateItem(prior State, keys ItemKeys, list string, item any) (State, *Diagnostic) {
	work := prior.Clone()
	op := Op{Field: FieldName(list, OpUpdate), List: list, Kind: OpUpdate, Value: item}
	if d := applyOp(work, keys, op); d != nil {
		return prior, d
	}
	return work, nil
}

// applyOp performs one operation on work, which is owned by the caller.
func applyOp(work State, keys ItemKeys, op Op) *Diagnostic {
	diag := func(r Reason) *Diagnostic {
		return &Diagnostic{Field: op.Field, List: op.List, Kind: op.Kind, Reason: r, Key: keys[op.List]}
	}

	if op.Kind == OpItemKey {
		key, ok := op.Value.(string)
		if !ok || key == "" {
			return diag(ReasonInvalidItemKey)
		}
		keys[op.List] = key
		return nil
	}

	items, ok := listOf(work[op.List])
	if !ok {
		return diag(ReasonListNotFound)
	}
	key, hasKey := keys[op.List]

	switch op.Kind {
	case OpAdd:
		if hasKey {
			item, ok := op.Value.(map[string]any)
			if !ok {
				return diag(ReasonInvalidItem)
			}
			kv, ok := item[key]
			if !ok {
				return diag(ReasonItemMissingKey)
			}
			for _, existing := range items {
				if m, ok := existing.(map[string]any); ok && KeyEqual(m[key], kv) {
					return diag(ReasonDuplicateKey)
				}
			}
		}
		next := make([]any, len(items), len(items)+1)
		copy(next, items)
		work[op.List] = append(next, op.Value)

	case OpUpdate:
		if !hasKey {
			return diag(ReasonMissingItemKey)
		}
		item, ok := op.Value.(map[string]any)
		if !ok {
			return diag(ReasonInvalidItem)
		}
		kv, ok := item[key]
		if !ok {
			return diag(ReasonItemMissingKey)
		}
		next := make([]any, len(items))
		for i, existing := range items {
			if m, ok := existing.(map[string]any); ok && KeyEqual(m[key], kv) {
				next[i] = mergeItem(m, item)
				continue
			}
			next[i] = existing
		}
		work[op.List] = next

	case OpRemove:
		if !hasKey {
			return diag(ReasonMissingItemKey)
		}
		next := make([]any, 0, len(items))
		for _, existing := range items {
			if m, ok := existing.(map[string]any); ok && KeyEqual(m[key], op.Value) {
				continue
			}
			next = append(next, existing)
		}
		work[op.List] = next
	}
	return nil
}

// listOf returns v as a list of items. A missing field is not a list; a
// typed nil slice is an empty one. Slices of any other element type are
// copied into a []any.
func listOf(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []map[string]any:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
