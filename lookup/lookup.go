// Package lookup resolves (group, from, to) visual state triples to the
// transition that should run between them.
package lookup

import (
	"fmt"

	"vsmrt/essence"
	"vsmrt/stream"
)

// Any stands for "no state" on either side of a transition key.
const Any = -1

const (
	stateBits = 20
	stateMask = 1<<stateBits - 1
	maxStates = stateMask - 1
	maxGroups = 1<<(64-2*stateBits) - 1
)

func key(group, from, to int) uint64 {
	return uint64(group)<<(2*stateBits) | uint64(from+1)<<stateBits | uint64(to+1)
}

// Table is the immutable transition index of one collection.
type Table struct {
	entries  *stream.SortedMap[uint64, int32]
	defaults []int32
}

// Builder collects transition to group assignments while the collection is
// written and produces a Table at the end.
type Builder struct {
	groupOf map[int]int
}

func NewBuilder() *Builder {
	return &Builder{groupOf: make(map[int]int)}
}

// RecordTransitionGroup notes that transition belongs to group.
func (b *Builder) RecordTransitionGroup(group, transition int) {
	b.groupOf[transition] = group
}

// Build resolves the from/to names of every recorded transition against the
// states of its group. stateGroup[i] is the group of state i. Transitions
// naming states their group does not have are left out, the first
// transition registered for a key wins.
func (b *Builder) Build(states []essence.VisualStateEssence, stateGroup []int, transitions []essence.VisualTransitionEssence, groupCount int) (*Table, error) {
	if len(states) != len(stateGroup) {
		return nil, fmt.Errorf("lookup: %d states but %d group assignments", len(states), len(stateGroup))
	}
	if len(states) > maxStates || groupCount > maxGroups {
		return nil, fmt.Errorf("lookup: %d states in %d groups is too many", len(states), groupCount)
	}
	t := &Table{entries: &stream.SortedMap[uint64, int32]{}, defaults: make([]int32, groupCount)}
	for i := range t.defaults {
		t.defaults[i] = Any
	}

	find := func(group int, name string) (int, bool) {
		if name == "" {
			return Any, true
		}
		for i := range states {
			if stateGroup[i] == group && states[i].Name == name {
				return i, true
			}
		}
		return 0, false
	}

	for ti, tr := range transitions {
		group, ok := b.groupOf[ti]
		if !ok {
			continue
		}
		if group < 0 || group >= groupCount {
			return nil, fmt.Errorf("lookup: transition %d recorded for group %d of %d", ti, group, groupCount)
		}
		from, okFrom := find(group, tr.From)
		to, okTo := find(group, tr.To)
		if !okFrom || !okTo {
			continue
		}
		if from == Any && to == Any {
			if t.defaults[group] == Any {
				t.defaults[group] = int32(ti)
			}
			continue
		}
		k := key(group, from, to)
		if _, dup := t.entries.Get(k); !dup {
			t.entries.Set(k, int32(ti))
		}
	}
	return t, nil
}

// TryGetVisualTransitionIndex returns the most specific transition for the
// triple: the exact pair, then a transition into to from any state, then one
// out of from to any state, then the group default. Pass Any for from when
// no state is current.
func (t *Table) TryGetVisualTransitionIndex(group, from, to int) (int, bool) {
	if t == nil || group < 0 || group >= len(t.defaults) {
		return 0, false
	}
	candidates := [...]uint64{key(group, from, to), key(group, Any, to), key(group, from, Any)}
	for _, k := range candidates {
		if idx, ok := t.entries.Get(k); ok {
			return int(idx), true
		}
	}
	if d := t.defaults[group]; d != Any {
		return int(d), true
	}
	return 0, false
}

// DefaultTransition returns the group default, if any.
func (t *Table) DefaultTransition(group int) (int, bool) {
	if t == nil || group < 0 || group >= len(t.defaults) || t.defaults[group] == Any {
		return 0, false
	}
	return int(t.defaults[group]), true
}

func (t *Table) GroupCount() int {
	return len(t.defaults)
}

// Entry is one resolved pair of a Table, exposed for diagnostics.
type Entry struct {
	Group, From, To, Transition int
}

func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, t.entries.Len())
	for _, e := range t.entries.Entries() {
		out = append(out, Entry{
			Group:      int(e.Key >> (2 * stateBits)),
			From:       int(e.Key>>stateBits&stateMask) - 1,
			To:         int(e.Key&stateMask) - 1,
			Transition: int(e.Val),
		})
	}
	return out
}

var (
	entriesCodec  = stream.SortedOf(stream.MustCodecFor[uint64](), stream.MustCodecFor[int32]())
	defaultsCodec = stream.SliceOf(stream.MustCodecFor[int32]())
)

func (t *Table) Serialize(w *stream.Writer) error {
	if err := entriesCodec.Encode(w, t.entries); err != nil {
		return fmt.Errorf("lookup entries: %w", err)
	}
	if err := defaultsCodec.Encode(w, t.defaults); err != nil {
		return fmt.Errorf("lookup defaults: %w", err)
	}
	return nil
}

// Deserialize reads a table and checks it against the transition count of
// the collection it belongs to.
func Deserialize(r *stream.Reader, transitionCount int) (*Table, error) {
	at := r.Offset()
	entries, err := entriesCodec.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("lookup entries: %w", err)
	}
	defaults, err := defaultsCodec.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("lookup defaults: %w", err)
	}
	t := &Table{entries: entries, defaults: defaults}
	for _, e := range t.Entries() {
		if e.Transition < 0 || e.Transition >= transitionCount || e.Group >= len(defaults) {
			return nil, &stream.FormatError{Offset: at, Msg: fmt.Sprintf("lookup entry %+v out of range", e)}
		}
	}
	for g, d := range defaults {
		if d != Any && (d < 0 || int(d) >= transitionCount) {
			return nil, &stream.FormatError{Offset: at, Msg: fmt.Sprintf("default transition %d of group %d out of range", d, g)}
		}
	}
	return t, nil
}
