package lookup

import (
	"errors"
	"testing"

	"vsmrt/essence"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

func states(names ...string) []essence.VisualStateEssence {
	out := make([]essence.VisualStateEssence, len(names))
	for i, n := range names {
		out[i] = essence.NewVisualStateEssence(n)
	}
	return out
}

func TestScenarioNoDefault(t *testing.T) {
	st := states("Normal", "Hover", "Pressed")
	trans := []essence.VisualTransitionEssence{{From: "Normal", To: "Pressed"}}
	b := NewBuilder()
	b.RecordTransitionGroup(0, 0)
	tbl, err := b.Build(st, []int{0, 0, 0}, trans, 1)
	if err != nil {
		t.Fatal(err)
	}
	if idx, ok := tbl.TryGetVisualTransitionIndex(0, 0, 2); !ok || idx != 0 {
		t.Errorf("Normal->Pressed = %d, %v", idx, ok)
	}
	if _, ok := tbl.TryGetVisualTransitionIndex(0, 1, 2); ok {
		t.Error("Hover->Pressed should not resolve")
	}
}

func TestResolutionOrder(t *testing.T) {
	st := states("A", "B", "C", "X", "Y")
	groupOf := []int{0, 0, 0, 1, 1}
	trans := []essence.VisualTransitionEssence{
		{},                   // 0: default of group 0
		{From: "A", To: "B"}, // 1
		{To: "C"},            // 2
		{From: "B"},          // 3
		{From: "A", To: "B"}, // 4: duplicate, first wins
		{From: "X", To: "Y"}, // 5: group 1
		{From: "A", To: "Q"}, // 6: unknown state, dropped
		{From: "A", To: "C"}, // 7: never recorded
	}
	b := NewBuilder()
	for i := range 7 {
		g := 0
		if i == 5 {
			g = 1
		}
		b.RecordTransitionGroup(g, i)
	}
	tbl, err := b.Build(st, groupOf, trans, 2)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name            string
		group, from, to int
		want            int
		found           bool
	}{
		{"exact", 0, 0, 1, 1, true},
		{"to only", 0, 0, 2, 2, true},
		{"to only without current state", 0, Any, 2, 2, true},
		{"from only", 0, 1, 0, 3, true},
		{"to only beats from only", 0, 1, 2, 2, true},
		{"default", 0, 2, 0, 0, true},
		{"other group exact", 1, 3, 4, 5, true},
		{"other group never leaks", 1, 4, 3, 0, false},
		{"group out of range", 2, 0, 1, 0, false},
		{"negative group", -1, 0, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tbl.TryGetVisualTransitionIndex(tt.group, tt.from, tt.to)
			if ok != tt.found || (ok && got != tt.want) {
				t.Errorf("TryGetVisualTransitionIndex(%d, %d, %d) = %d, %v; want %d, %v",
					tt.group, tt.from, tt.to, got, ok, tt.want, tt.found)
			}
		})
	}
	if d, ok := tbl.DefaultTransition(0); !ok || d != 0 {
		t.Errorf("DefaultTransition(0) = %d, %v", d, ok)
	}
	if _, ok := tbl.DefaultTransition(1); ok {
		t.Error("group 1 has no default")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	st := states("Normal", "Pressed")
	trans := []essence.VisualTransitionEssence{{}, {From: "Normal", To: "Pressed"}}
	b := NewBuilder()
	b.RecordTransitionGroup(0, 0)
	b.RecordTransitionGroup(0, 1)
	tbl, err := b.Build(st, []int{0, 0}, trans, 1)
	if err != nil {
		t.Fatal(err)
	}

	w := stream.NewWriter(nil, nil, typeindex.OSVersionLatest)
	if err := tbl.Serialize(w); err != nil {
		t.Fatal(err)
	}
	got, err := Deserialize(stream.NewReader(w.Bytes(), nil, nil), len(trans))
	if err != nil {
		t.Fatal(err)
	}
	if idx, ok := got.TryGetVisualTransitionIndex(0, 0, 1); !ok || idx != 1 {
		t.Errorf("exact = %d, %v", idx, ok)
	}
	if idx, ok := got.TryGetVisualTransitionIndex(0, 1, 0); !ok || idx != 0 {
		t.Errorf("default = %d, %v", idx, ok)
	}

	// the same bytes do not fit a collection with fewer transitions
	_, err = Deserialize(stream.NewReader(w.Bytes(), nil, nil), 1)
	var fe *stream.FormatError
	if !errors.As(err, &fe) {
		t.Errorf("range check error = %v", err)
	}
}

func TestBuildErrors(t *testing.T) {
	b := NewBuilder()
	if _, err := b.Build(states("A"), nil, nil, 1); err == nil {
		t.Error("mismatched group map accepted")
	}
	b.RecordTransitionGroup(3, 0)
	if _, err := b.Build(states("A"), []int{0}, []essence.VisualTransitionEssence{{To: "A"}}, 1); err == nil {
		t.Error("out of range group accepted")
	}
}

func TestNilTable(t *testing.T) {
	var tbl *Table
	if _, ok := tbl.TryGetVisualTransitionIndex(0, 0, 0); ok {
		t.Error("nil table resolved a transition")
	}
}
