package reconcile

import "testing"

func TestParseField(t *testing.T) {
	tests := []struct {
		name     string
		wantList string
		wantKind OpKind
	}{
		{"items_itemKey", "items", OpItemKey},
		{"items_add", "items", OpAdd},
		{"items_update", "items", OpUpdate},
		{"items_remove", "items", OpRemove},
		{"order_items_add", "order_items", OpAdd},
		{"items", "items", OpNone},
		{"my_address", "my_address", OpNone},
		{"_add", "_add", OpNone},
		{"items_Add", "items_Add", OpNone},
		{"items_remove_add", "items_remove", OpAdd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, kind := ParseField(tt.name)
			if list != tt.wantList || kind != tt.wantKind {
				t.Errorf("ParseField(%q) = (%q, %v), want (%q, %v)", tt.name, list, kind, tt.wantList, tt.wantKind)
			}
		})
	}
}

func TestFieldNameRoundTrip(t *testing.T) {
	for _, kind := range []OpKind{OpItemKey, OpAdd, OpUpdate, OpRemove} {
		field := FieldName("rows", kind)
		list, got := ParseField(field)
		if list != "rows" || got != kind {
			t.Errorf("ParseField(FieldName(rows, %v)) = (%q, %v)", kind, list, got)
		}
	}
	if OpNone.Suffix() != "" {
		t.Errorf("OpNone.Suffix() = %q, want empty", OpNone.Suffix())
	}
}

func TestKeyEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same int", 1, 1, true},
		{"int and float", 1, 1.0, true},
		{"float and string", 1.0, "1", true},
		{"strings", "a", "a", true},
		{"different", "a", "b", false},
		{"fraction", 1.5, "1.5", true},
		{"nil", nil, nil, false},
		{"object", map[string]any{}, "x", false},
		{"bools", true, "true", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("KeyEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
