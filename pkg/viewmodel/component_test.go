package viewmodel

import (
	"reflect"
	"testing"
)

func TestStateBag(t *testing.T) {
	bag := NewStateBag(State{"a": 1}, map[string]any{"p": true})

	var changes []State
	bag.OnChange(func(s State) { changes = append(changes, s) })

	bag.SetState(State{"b": 2})
	bag.SetState(State{"a": 3})

	if want := (State{"a": 3, "b": 2}); !reflect.DeepEqual(bag.State(), want) {
		t.Errorf("State() = %v, want %v", bag.State(), want)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d change notifications, want 2", len(changes))
	}
	if changes[0]["a"] != 1 || changes[0]["b"] != 2 {
		t.Errorf("first change = %v", changes[0])
	}

	s := bag.State()
	s["a"] = 99
	if bag.State()["a"] != 3 {
		t.Error("State() must return a copy")
	}
	if bag.Props()["p"] != true {
		t.Errorf("Props() = %v", bag.Props())
	}
}
