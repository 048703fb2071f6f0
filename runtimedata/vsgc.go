package runtimedata

import (
	"fmt"

	"vsmrt/essence"
	"vsmrt/lookup"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

// VisualStateGroupCollectionRuntimeData is everything needed to run visual
// states of a collection without creating its objects.
type VisualStateGroupCollectionRuntimeData struct {
	TypeIndex typeindex.TypeIndex

	// StateGroup[i] is the group index of States[i].
	StateGroup  []int
	States      []essence.VisualStateEssence
	Groups      []essence.VisualStateGroupEssence
	Transitions []essence.VisualTransitionEssence
	Lookup      *lookup.Table

	// UnexpectedTokens is set by writers that saw markup they could not
	// capture. Such data is only good for the fully materialized path.
	UnexpectedTokens bool
	EntireCollection stream.StreamOffsetToken

	// revision 4
	SeenNameDirectives []string
}

func (d *VisualStateGroupCollectionRuntimeData) Kind() typeindex.Kind {
	return typeindex.KindVisualStateGroupCollection
}

func (d *VisualStateGroupCollectionRuntimeData) Revision() typeindex.TypeIndex {
	return d.TypeIndex
}

func (d *VisualStateGroupCollectionRuntimeData) Serialize(w *stream.Writer) error {
	ti := d.TypeIndex
	if k, err := typeindex.KindOf(ti); err != nil || k != typeindex.KindVisualStateGroupCollection {
		return fmt.Errorf("visual state group collection written as %s: %w", ti, typeindex.ErrUnknownTypeIndex)
	}
	if d.Lookup == nil {
		return fmt.Errorf("visual state group collection has no transition lookup")
	}
	if len(d.StateGroup) != len(d.States) {
		return fmt.Errorf("%d states but %d group assignments", len(d.States), len(d.StateGroup))
	}
	writeHeader(w, ti)

	groupMap := make([]uint32, len(d.StateGroup))
	for i, g := range d.StateGroup {
		if g < 0 || g >= len(d.Groups) {
			return fmt.Errorf("state %d assigned to group %d of %d", i, g, len(d.Groups))
		}
		groupMap[i] = uint32(g)
	}
	if err := stream.Serialize(w, groupMap); err != nil {
		return err
	}
	if err := essence.VisualStates(ti).Encode(w, d.States); err != nil {
		return err
	}
	if err := essence.VisualStateGroups(ti).Encode(w, d.Groups); err != nil {
		return err
	}
	if err := essence.VisualTransitions(ti).Encode(w, d.Transitions); err != nil {
		return err
	}
	if err := d.Lookup.Serialize(w); err != nil {
		return err
	}
	w.PersistBool(d.UnexpectedTokens)
	if err := w.PersistToken(d.EntireCollection); err != nil {
		return fmt.Errorf("entire collection: %w", err)
	}
	if typeindex.AtLeast(ti, 4) {
		if err := stream.Serialize(w, d.SeenNameDirectives); err != nil {
			return err
		}
	}
	return nil
}

func decodeVisualStateGroupCollection(r *stream.Reader, ti typeindex.TypeIndex) (*VisualStateGroupCollectionRuntimeData, error) {
	d := &VisualStateGroupCollectionRuntimeData{TypeIndex: ti}
	groupMap, err := stream.Deserialize[[]uint32](r)
	if err != nil {
		return nil, fmt.Errorf("group map: %w", err)
	}
	if d.States, err = essence.VisualStates(ti).Decode(r); err != nil {
		return nil, fmt.Errorf("states: %w", err)
	}
	if d.Groups, err = essence.VisualStateGroups(ti).Decode(r); err != nil {
		return nil, fmt.Errorf("groups: %w", err)
	}
	if d.Transitions, err = essence.VisualTransitions(ti).Decode(r); err != nil {
		return nil, fmt.Errorf("transitions: %w", err)
	}
	if len(groupMap) != len(d.States) {
		return nil, &stream.FormatError{Offset: r.Offset(), Msg: fmt.Sprintf("%d states but %d group assignments", len(d.States), len(groupMap))}
	}
	d.StateGroup = make([]int, len(groupMap))
	for i, g := range groupMap {
		if int(g) >= len(d.Groups) {
			return nil, &stream.FormatError{Offset: r.Offset(), Msg: fmt.Sprintf("state %d assigned to group %d of %d", i, g, len(d.Groups))}
		}
		d.StateGroup[i] = int(g)
	}
	if d.Lookup, err = lookup.Deserialize(r, len(d.Transitions)); err != nil {
		return nil, err
	}
	if d.Lookup.GroupCount() != len(d.Groups) {
		return nil, &stream.FormatError{Offset: r.Offset(), Msg: "lookup table does not match group count"}
	}
	if d.UnexpectedTokens, err = r.ReadBool(); err != nil {
		return nil, err
	}
	if d.EntireCollection, err = r.ReadToken(); err != nil {
		return nil, err
	}
	if typeindex.AtLeast(ti, 4) {
		if d.SeenNameDirectives, err = stream.Deserialize[[]string](r); err != nil {
			return nil, fmt.Errorf("seen names: %w", err)
		}
	}
	return d, nil
}

// TryGetVisualState finds a state by name.
func (d *VisualStateGroupCollectionRuntimeData) TryGetVisualState(name string) (state, group int, ok bool) {
	for i := range d.States {
		if d.States[i].Name == name {
			return i, d.StateGroup[i], true
		}
	}
	return -1, -1, false
}

// GroupOf returns the group of state, or -1.
func (d *VisualStateGroupCollectionRuntimeData) GroupOf(state int) int {
	if state < 0 || state >= len(d.StateGroup) {
		return -1
	}
	return d.StateGroup[state]
}

// StatesOfGroup lists state indexes of group in declaration order.
func (d *VisualStateGroupCollectionRuntimeData) StatesOfGroup(group int) []int {
	var out []int
	for i, g := range d.StateGroup {
		if g == group {
			out = append(out, i)
		}
	}
	return out
}

// HasSeenName reports whether name was declared with x:Name somewhere in the
// collection.
func (d *VisualStateGroupCollectionRuntimeData) HasSeenName(name string) bool {
	for _, n := range d.SeenNameDirectives {
		if n == name {
			return true
		}
	}
	return false
}
