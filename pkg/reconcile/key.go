package reconcile

import (
	"encoding/json"
	"strconv"
)

// ItemKeys maps a list name to the item field that identifies its items.
type ItemKeys map[string]string

// Clone returns a copy of the table.
func (k ItemKeys) Clone() ItemKeys {
	out := make(ItemKeys, len(k))
	for list, key := range k {
		out[list] = key
	}
	return out
}

// KeyString renders a scalar item key the way it appears in dispatch paths.
// Numbers render without a trailing fraction, so 1, 1.0 and "1" all render
// as "1". Non-scalar values report false.
func KeyString(v any) (string, bool) {
	switch k := v.(type) {
	case string:
		return k, true
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(k), 'f', -1, 32), true
	case int:
		return strconv.FormatInt(int64(k), 10), true
	case int8:
		return strconv.FormatInt(int64(k), 10), true
	case int16:
		return strconv.FormatInt(int64(k), 10), true
	case int32:
		return strconv.FormatInt(int64(k), 10), true
	case int64:
		return strconv.FormatInt(k, 10), true
	case uint:
		return strconv.FormatUint(uint64(k), 10), true
	case uint8:
		return strconv.FormatUint(uint64(k), 10), true
	case uint16:
		return strconv.FormatUint(uint64(k), 10), true
	case uint32:
		return strconv.FormatUint(uint64(k), 10), true
	case uint64:
		return strconv.FormatUint(k, 10), true
	case json.Number:
		if f, err := k.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		return k.String(), true
	case bool:
		return strconv.FormatBool(k), true
	default:
		return "", false
	}
}

// KeyEqual reports whether two item keys identify the same item.
func KeyEqual(a, b any) bool {
	as, ok := KeyString(a)
	if !ok {
		return false
	}
	bs, ok := KeyString(b)
	return ok && as == bs
}
