package vsm

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"vsmrt/creator"
	"vsmrt/essence"
	"vsmrt/markup"
	"vsmrt/runtimedata"
)

// OptimizedDataSource serves visual states out of runtime data and creates
// storyboards, setters and transitions only when they are asked for.
type OptimizedDataSource struct {
	base
	rd      *runtimedata.VisualStateGroupCollectionRuntimeData
	creator *creator.Creator

	storyboards map[int]*Storyboard
	setters     map[int][]*markup.Object
	transitions map[int]*Transition
}

func newOptimizedDataSource(rd *runtimedata.VisualStateGroupCollectionRuntimeData, cr *creator.Creator, deps sourceDeps) *OptimizedDataSource {
	ds := &OptimizedDataSource{
		base:        base{sourceDeps: deps, contexts: make([]*GroupContext, len(rd.Groups))},
		rd:          rd,
		creator:     cr,
		storyboards: make(map[int]*Storyboard),
		setters:     make(map[int][]*markup.Object),
		transitions: make(map[int]*Transition),
	}
	for i := range ds.contexts {
		ds.contexts[i] = NewGroupContext()
	}
	return ds
}

func (ds *OptimizedDataSource) GroupName(group int) string {
	if group < 0 || group >= len(ds.rd.Groups) {
		return ""
	}
	return ds.rd.Groups[group].Name
}

func (ds *OptimizedDataSource) StateCount() int { return len(ds.rd.States) }

func (ds *OptimizedDataSource) StateName(state int) string {
	if state < 0 || state >= len(ds.rd.States) {
		return ""
	}
	return ds.rd.States[state].Name
}

func (ds *OptimizedDataSource) GroupOf(state int) int { return ds.rd.GroupOf(state) }

func (ds *OptimizedDataSource) TryGetVisualState(name string) (int, int, bool) {
	return ds.rd.TryGetVisualState(name)
}

func (ds *OptimizedDataSource) TryGetVisualStateByToken(tok VisualStateToken) (int, int, bool) {
	if !tok.IsValid() || tok.Index() >= len(ds.rd.States) {
		return -1, -1, false
	}
	return tok.Index(), ds.rd.StateGroup[tok.Index()], true
}

func (ds *OptimizedDataSource) TryGetOrCreateTransition(group, from, to int) (*Transition, error) {
	ti, ok := ds.rd.Lookup.TryGetVisualTransitionIndex(group, from, to)
	if !ok {
		return nil, nil
	}
	if t, ok := ds.transitions[ti]; ok {
		return t, nil
	}
	obj, err := ds.creator.CreateInstance(ds.rd.Transitions[ti].Token)
	if errors.Is(err, creator.ErrIgnored) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transition %d: %w", ti, err)
	}
	t, err := newTransition(obj)
	if err != nil {
		return nil, err
	}
	ds.transitions[ti] = t
	return t, nil
}

func (ds *OptimizedDataSource) TryGetOrCreateStoryboardForVisualState(state int) (*Storyboard, error) {
	if state < 0 || state >= len(ds.rd.States) {
		return nil, fmt.Errorf("state %d: %w", state, ErrUnknownState)
	}
	es := &ds.rd.States[state]
	if !es.HasStoryboard {
		return nil, nil
	}
	if sb, ok := ds.storyboards[state]; ok {
		return sb, nil
	}
	obj, err := ds.creator.CreateInstance(es.Storyboard)
	if errors.Is(err, creator.ErrIgnored) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storyboard of %q: %w", es.Name, err)
	}
	sb := &Storyboard{Object: obj}
	ds.storyboards[state] = sb
	return sb, nil
}

func (ds *OptimizedDataSource) TryGetOrCreatePropertySettersForVisualState(state int) ([]ResolvedSetter, error) {
	if state < 0 || state >= len(ds.rd.States) {
		return nil, fmt.Errorf("state %d: %w", state, ErrUnknownState)
	}
	es := &ds.rd.States[state]
	objs, ok := ds.setters[state]
	if !ok {
		var errs error
		for _, tok := range es.Setters {
			obj, err := ds.creator.CreateInstance(tok)
			if errors.Is(err, creator.ErrIgnored) {
				continue
			}
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			objs = append(objs, obj)
		}
		if errs != nil {
			ds.log.Warn("Unable to create setters", zap.String("state", es.Name), zap.Error(errs))
		}
		ds.setters[state] = objs
	}
	return ds.resolveSetters(es.Name, objs), nil
}

func (ds *OptimizedDataSource) GetQualifiersFromStateTriggers(state int, onQualifierCreated func(Qualifier)) error {
	if state < 0 || state >= len(ds.rd.States) {
		return fmt.Errorf("state %d: %w", state, ErrUnknownState)
	}
	es := &ds.rd.States[state]
	for _, tv := range es.TriggerValues {
		onQualifierCreated(adaptiveQualifier(tv))
	}
	for _, tok := range es.ExtensibleTriggers {
		obj, err := ds.creator.CreateInstance(tok)
		if err != nil {
			if !errors.Is(err, creator.ErrIgnored) {
				ds.log.Warn("Unable to create state trigger", zap.String("state", es.Name), zap.Error(err))
			}
			continue
		}
		ds.relations.Parent(obj, ds.owner)
		onQualifierCreated(qualifierFromTrigger(obj))
	}
	for _, tok := range es.StaticResourceTriggers {
		obj, err := ds.creator.CreateStaticResource(tok)
		if err != nil {
			if !errors.Is(err, creator.ErrIgnored) {
				ds.log.Warn("Unable to resolve state trigger", zap.String("state", es.Name), zap.Error(err))
			}
			continue
		}
		onQualifierCreated(qualifierFromTrigger(obj))
	}
	return nil
}

func adaptiveQualifier(tv essence.TriggerValues) Qualifier {
	var q Qualifier
	for _, v := range tv {
		switch v.Dimension {
		case essence.QualifierWidth:
			q.MinWidth = v.Min
		case essence.QualifierHeight:
			q.MinHeight = v.Min
		}
	}
	return q
}
