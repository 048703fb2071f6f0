package vsm

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"vsmrt/markup"
)

// LegacyDataSource serves visual states out of a fully created collection.
// It keeps mirrors of the active storyboards and transitions the way the
// created objects expose them.
type LegacyDataSource struct {
	base
	root *markup.Object

	groups     []*markup.Object
	states     []*markup.Object
	stateGroup []int

	storyboards map[int]*Storyboard
	transitions map[*markup.Object]*Transition

	activeStoryboards []*Storyboard
	activeTransitions []*Transition
}

// newLegacyDataSource indexes root. When contexts is nil every group starts
// fresh, otherwise the contexts are taken over and must match the groups.
func newLegacyDataSource(root *markup.Object, contexts []*GroupContext, deps sourceDeps) (*LegacyDataSource, error) {
	if root == nil || root.Type != markup.TypeVisualStateGroupCollection {
		return nil, fmt.Errorf("legacy data source needs a %s", markup.TypeVisualStateGroupCollection.Name)
	}
	ds := &LegacyDataSource{
		root:        root,
		storyboards: make(map[int]*Storyboard),
		transitions: make(map[*markup.Object]*Transition),
	}
	ds.sourceDeps = deps
	ds.hook = ds
	ds.reindex()
	if contexts == nil {
		contexts = make([]*GroupContext, len(ds.groups))
		for i := range contexts {
			contexts[i] = NewGroupContext()
		}
	}
	if len(contexts) != len(ds.groups) {
		return nil, fmt.Errorf("%d group contexts for %d groups", len(contexts), len(ds.groups))
	}
	ds.contexts = contexts
	return ds, nil
}

func (ds *LegacyDataSource) reindex() {
	ds.groups, ds.states, ds.stateGroup = nil, nil, nil
	for _, group := range ds.root.Children(markup.PropCollectionItems) {
		if group.Type != markup.TypeVisualStateGroup {
			continue
		}
		ds.groups = append(ds.groups, group)
		for _, st := range group.Children(markup.PropGroupStates) {
			if st.Type != markup.TypeVisualState {
				continue
			}
			ds.states = append(ds.states, st)
			ds.stateGroup = append(ds.stateGroup, len(ds.groups)-1)
		}
	}
}

// Root returns the created collection.
func (ds *LegacyDataSource) Root() *markup.Object { return ds.root }

// ActiveStoryboards mirrors what the group contexts hold as active.
func (ds *LegacyDataSource) ActiveStoryboards() []*Storyboard { return ds.activeStoryboards }

func (ds *LegacyDataSource) ActiveTransitions() []*Transition { return ds.activeTransitions }

func (ds *LegacyDataSource) storyboardAdded(sb *Storyboard) {
	ds.activeStoryboards = append(ds.activeStoryboards, sb)
}

func (ds *LegacyDataSource) storyboardRemoved(sb *Storyboard) {
	if i := slices.Index(ds.activeStoryboards, sb); i >= 0 {
		ds.activeStoryboards = slices.Delete(ds.activeStoryboards, i, i+1)
	}
}

func (ds *LegacyDataSource) transitionAdded(t *Transition) {
	ds.activeTransitions = append(ds.activeTransitions, t)
}

func (ds *LegacyDataSource) transitionRemoved(t *Transition) {
	if i := slices.Index(ds.activeTransitions, t); i >= 0 {
		ds.activeTransitions = slices.Delete(ds.activeTransitions, i, i+1)
	}
}

func (ds *LegacyDataSource) GroupName(group int) string {
	if group < 0 || group >= len(ds.groups) {
		return ""
	}
	return ds.groups[group].Name()
}

func (ds *LegacyDataSource) StateCount() int { return len(ds.states) }

func (ds *LegacyDataSource) StateName(state int) string {
	if state < 0 || state >= len(ds.states) {
		return ""
	}
	return ds.states[state].Name()
}

func (ds *LegacyDataSource) GroupOf(state int) int {
	if state < 0 || state >= len(ds.stateGroup) {
		return -1
	}
	return ds.stateGroup[state]
}

func (ds *LegacyDataSource) TryGetVisualState(name string) (int, int, bool) {
	for i, st := range ds.states {
		if st.Name() == name {
			return i, ds.stateGroup[i], true
		}
	}
	return -1, -1, false
}

func (ds *LegacyDataSource) TryGetVisualStateByToken(tok VisualStateToken) (int, int, bool) {
	if !tok.IsValid() || tok.Index() >= len(ds.states) {
		return -1, -1, false
	}
	return tok.Index(), ds.stateGroup[tok.Index()], true
}

// TryGetOrCreateTransition searches the group transitions in the same order
// the compiled lookup table does: the exact pair, any state to the target,
// the source to any state, then the group default.
func (ds *LegacyDataSource) TryGetOrCreateTransition(group, from, to int) (*Transition, error) {
	if group < 0 || group >= len(ds.groups) {
		return nil, fmt.Errorf("group %d: %w", group, ErrUnknownGroup)
	}
	fromName, toName := ds.StateName(from), ds.StateName(to)
	candidates := ds.groups[group].Children(markup.PropGroupTransitions)
	find := func(f, t string) *markup.Object {
		for _, obj := range candidates {
			if obj.String(markup.PropTransitionFrom) == f && obj.String(markup.PropTransitionTo) == t {
				return obj
			}
		}
		return nil
	}
	var obj *markup.Object
	switch {
	case fromName != "" && toName != "" && find(fromName, toName) != nil:
		obj = find(fromName, toName)
	case toName != "" && find("", toName) != nil:
		obj = find("", toName)
	case fromName != "" && find(fromName, "") != nil:
		obj = find(fromName, "")
	default:
		obj = find("", "")
	}
	if obj == nil {
		return nil, nil
	}
	if t, ok := ds.transitions[obj]; ok {
		return t, nil
	}
	t, err := newTransition(obj)
	if err != nil {
		return nil, err
	}
	ds.transitions[obj] = t
	return t, nil
}

func (ds *LegacyDataSource) TryGetOrCreateStoryboardForVisualState(state int) (*Storyboard, error) {
	if state < 0 || state >= len(ds.states) {
		return nil, fmt.Errorf("state %d: %w", state, ErrUnknownState)
	}
	if sb, ok := ds.storyboards[state]; ok {
		return sb, nil
	}
	obj := ds.states[state].Child(markup.PropStateStoryboard)
	if obj == nil {
		return nil, nil
	}
	sb := &Storyboard{Object: obj}
	ds.storyboards[state] = sb
	return sb, nil
}

func (ds *LegacyDataSource) TryGetOrCreatePropertySettersForVisualState(state int) ([]ResolvedSetter, error) {
	if state < 0 || state >= len(ds.states) {
		return nil, fmt.Errorf("state %d: %w", state, ErrUnknownState)
	}
	st := ds.states[state]
	var setters []*markup.Object
	for _, obj := range st.Children(markup.PropStateSetters) {
		if obj.Type == markup.TypeSetterBaseCollection {
			setters = append(setters, obj.Children(markup.ContentProperty(obj.Type))...)
			continue
		}
		setters = append(setters, obj)
	}
	return ds.resolveSetters(st.Name(), setters), nil
}

func (ds *LegacyDataSource) GetQualifiersFromStateTriggers(state int, onQualifierCreated func(Qualifier)) error {
	if state < 0 || state >= len(ds.states) {
		return fmt.Errorf("state %d: %w", state, ErrUnknownState)
	}
	st := ds.states[state]
	for _, obj := range stateTriggers(st) {
		if obj.Type == markup.TypeStaticResource || obj.Type == markup.TypeThemeResource {
			ds.log.Warn("Ignoring unresolved state trigger",
				zap.String("state", st.Name()),
				zap.String("key", obj.String(markup.PropResourceKey)+obj.String(markup.PropThemeResourceKey)))
			continue
		}
		ds.relations.Parent(obj, ds.owner)
		onQualifierCreated(qualifierFromTrigger(obj))
	}
	return nil
}

func stateTriggers(st *markup.Object) []*markup.Object {
	var out []*markup.Object
	for _, obj := range st.Children(markup.PropStateTriggers) {
		if obj.Type == markup.TypeStateTriggerCollection {
			out = append(out, obj.Children(markup.PropTriggerCollection)...)
			continue
		}
		out = append(out, obj)
	}
	return out
}

// adoptStoryboard makes a storyboard already running for state the one the
// state owns from now on.
func (ds *LegacyDataSource) adoptStoryboard(state int, sb *Storyboard) {
	if state < 0 || state >= len(ds.states) || sb.Object == nil {
		return
	}
	st := ds.states[state]
	if m := st.Member(markup.PropStateStoryboard); m != nil {
		m.Objects = []*markup.Object{sb.Object}
	} else {
		st.Add(markup.PropStateStoryboard, sb.Object)
	}
	ds.storyboards[state] = sb
}

// adoptTransition swaps the created transition with the same From and To
// for one already running.
func (ds *LegacyDataSource) adoptTransition(group int, t *Transition) bool {
	if group < 0 || group >= len(ds.groups) || t.Object == nil {
		return false
	}
	m := ds.groups[group].Member(markup.PropGroupTransitions)
	if m == nil {
		return false
	}
	for i, obj := range m.Objects {
		if obj.String(markup.PropTransitionFrom) == t.From && obj.String(markup.PropTransitionTo) == t.To {
			delete(ds.transitions, obj)
			m.Objects[i] = t.Object
			ds.transitions[t.Object] = t
			return true
		}
	}
	return false
}
