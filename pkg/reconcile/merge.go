package reconcile

// Merge returns prior with every field of patch written over it. Fields not
// in patch keep their prior value. Neither argument is modified.
func Merge(prior, patch State) State {
	out := make(State, len(prior)+len(patch))
	for k, v := range prior {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// mergeItem shallow-merges the fields of patch into a copy of item.
func mergeItem(item, patch map[string]any) map[string]any {
	out := make(map[string]any, len(item)+len(patch))
	for k, v := range item {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
