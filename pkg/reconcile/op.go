package reconcile

import "strings"

// OpKind identifies a list operation encoded in a field name suffix.
type OpKind uint8

const (
	OpNone    OpKind = iota // Plain state field
	OpItemKey               // <list>_itemKey
	OpAdd                   // <list>_add
	OpUpdate                // <list>_update
	OpRemove                // <list>_remove
)

// String returns the string representation of the op kind.
func (k OpKind) String() string {
	switch k {
	case OpNone:
		return "none"
	case OpItemKey:
		return "itemKey"
	case OpAdd:
		return "add"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Suffix returns the field name suffix that encodes the op kind.
func (k OpKind) Suffix() string {
	if k == OpNone || k > OpRemove {
		return ""
	}
	return "_" + k.String()
}

// suffixOrder is the fixed order in which suffixes are tested.
var suffixOrder = [...]OpKind{OpItemKey, OpAdd, OpUpdate, OpRemove}

// ParseField splits a payload field name into its list name and op kind.
// Names without a recognized suffix, or with nothing before it, are plain
// fields and return (name, OpNone).
func ParseField(name string) (string, OpKind) {
	for _, kind := range suffixOrder {
		if list, ok := strings.CutSuffix(name, kind.Suffix()); ok && list != "" {
			return list, kind
		}
	}
	return name, OpNone
}

// FieldName builds the payload field name for a list operation.
func FieldName(list string, kind OpKind) string {
	return list + kind.Suffix()
}

// Op is one list operation taken out of a payload.
type Op struct {
	Field string // Original field name
	List  string // Target list
	Kind  OpKind
	Value any
}
