// Package vsm runs visual states of a compiled visual state group
// collection. Objects are created out of the blob only when a state change
// needs them, the whole collection is created only when the runtime data
// cannot answer a question.
package vsm

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"vsmrt/blob"
	"vsmrt/config"
	"vsmrt/creator"
	"vsmrt/markup"
	"vsmrt/predicate"
	"vsmrt/runtimedata"
)

var ErrNotVisualStates = errors.New("blob does not hold a visual state group collection")

// Options wire a Manager to its host.
type Options struct {
	Animator   Animator
	Targets    TargetResolver
	Properties PropertyStore
	Resources  creator.ResourceResolver
	Names      creator.NameScope
	Predicates *predicate.Registry
	Platform   *predicate.Platform
	Relations  *Relations
	// Dispatcher receives storyboard completions, a private one is made
	// when nil and the host has to drain it through Manager.Dispatcher.
	Dispatcher        *Dispatcher
	Policy            config.FallbackPolicy
	AnimationsEnabled bool
	Logger            *zap.Logger
}

// Manager is the visual state manager of one control.
type Manager struct {
	id       uuid.UUID
	rd       *runtimedata.VisualStateGroupCollectionRuntimeData
	creator  *creator.Creator
	deps     sourceDeps
	policy   config.FallbackPolicy
	ds       DataSource
	legacy   *LegacyDataSource
	act      *actuator
	triggers bool
	log      *zap.Logger
}

// NewManager attaches to the collection compiled into b. Collections whose
// runtime data is incomplete are created right away unless the policy
// postpones it to the first state change.
func NewManager(b *blob.Blob, opts Options) (*Manager, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rd, err := runtimedata.FromBlob(b)
	if err != nil {
		return nil, err
	}
	vsgc, ok := rd.(*runtimedata.VisualStateGroupCollectionRuntimeData)
	if !ok {
		return nil, fmt.Errorf("%s: %w", rd.Kind(), ErrNotVisualStates)
	}
	relations := opts.Relations
	if relations == nil {
		relations = NewRelations()
	}
	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = NewDispatcher()
	}
	var copts []creator.Option
	if opts.Resources != nil {
		copts = append(copts, creator.WithResources(opts.Resources))
	}
	if opts.Names != nil {
		copts = append(copts, creator.WithNameScope(opts.Names))
	}

	m := &Manager{
		id:      uuid.New(),
		rd:      vsgc,
		creator: creator.New(b, opts.Predicates, opts.Platform, log, copts...),
		policy:  opts.Policy,
		log:     log.Named("vsm"),
	}
	m.deps = sourceDeps{owner: m.id, relations: relations, targets: opts.Targets, log: m.log}
	m.ds = newOptimizedDataSource(vsgc, m.creator, m.deps)
	m.act = &actuator{
		ds:                m.ds,
		animator:          opts.Animator,
		props:             opts.Properties,
		dispatcher:        dispatcher,
		animationsEnabled: opts.AnimationsEnabled,
		log:               m.log,
	}
	if vsgc.UnexpectedTokens && m.policy == config.FallbackPolicyOnLoad {
		if err := m.FaultInChildren(); err != nil {
			return nil, err
		}
	}
	m.log.Debug("Attached",
		zap.Stringer("id", m.id),
		zap.Int("groups", len(vsgc.Groups)),
		zap.Int("states", len(vsgc.States)),
		zap.Bool("created", m.legacy != nil))
	return m, nil
}

// ID identifies the manager as the owner of objects it parents.
func (m *Manager) ID() uuid.UUID { return m.id }

func (m *Manager) Dispatcher() *Dispatcher { return m.act.dispatcher }

// DataSource returns what currently serves the states.
func (m *Manager) DataSource() DataSource { return m.ds }

// Faulted reports whether the collection has been created.
func (m *Manager) Faulted() bool { return m.legacy != nil }

func (m *Manager) GroupCount() int { return m.ds.GroupCount() }

func (m *Manager) GroupName(group int) string { return m.ds.GroupName(group) }

// GroupContext exposes the run state of group.
func (m *Manager) GroupContext(group int) *GroupContext { return m.ds.GroupContext(group) }

// GoToState changes the group owning state name. It reports false when
// there is no such state.
func (m *Manager) GoToState(name string, useTransitions bool) (bool, error) {
	if err := m.faultInOnDemand(); err != nil {
		return false, err
	}
	state, group, ok := m.ds.TryGetVisualState(name)
	if !ok {
		return false, nil
	}
	return true, m.goToState(group, state, useTransitions)
}

func (m *Manager) GoToStateByToken(tok VisualStateToken, useTransitions bool) (bool, error) {
	if err := m.faultInOnDemand(); err != nil {
		return false, err
	}
	state, group, ok := m.ds.TryGetVisualStateByToken(tok)
	if !ok {
		return false, nil
	}
	return true, m.goToState(group, state, useTransitions)
}

func (m *Manager) goToState(group, state int, useTransitions bool) error {
	ctx := m.ds.GroupContext(group)
	if ctx.CurrentVisualStateIndex() == state && !useTransitions {
		m.act.snapToEnd(group, false)
		return m.act.reevaluateAppliedPropertySetters(group)
	}
	m.log.Debug("Going to state",
		zap.String("group", m.ds.GroupName(group)),
		zap.String("from", m.ds.StateName(ctx.CurrentVisualStateIndex())),
		zap.String("to", m.ds.StateName(state)),
		zap.Bool("transitions", useTransitions))
	return m.act.changeVisualState(group, state, useTransitions)
}

func (m *Manager) DoesVisualStateExist(name string) bool {
	_, _, ok := m.ds.TryGetVisualState(name)
	return ok
}

// GetGroupIndexFromVisualState returns -1 for unknown states.
func (m *Manager) GetGroupIndexFromVisualState(name string) int {
	_, group, ok := m.ds.TryGetVisualState(name)
	if !ok {
		return -1
	}
	return group
}

// TokenForState returns an invalid token for unknown states.
func (m *Manager) TokenForState(name string) VisualStateToken {
	state, _, ok := m.ds.TryGetVisualState(name)
	if !ok {
		return VisualStateToken{}
	}
	return TokenForIndex(state)
}

// CurrentState returns the name of the state group is in or moving to.
func (m *Manager) CurrentState(group int) (string, bool) {
	if group < 0 || group >= m.ds.GroupCount() {
		return "", false
	}
	cur := m.ds.GroupContext(group).CurrentVisualStateIndex()
	if cur < 0 {
		return "", false
	}
	return m.ds.StateName(cur), true
}

// InitializeStateTriggers evaluates state triggers once and moves every
// group with an active one to its best state.
func (m *Manager) InitializeStateTriggers(qctx QualifierContext) error {
	m.triggers = true
	return m.act.initializeStateTriggers(qctx)
}

// ResetGroupToNullState stops everything group runs and leaves it in no
// state.
func (m *Manager) ResetGroupToNullState(group int) error {
	if group < 0 || group >= m.ds.GroupCount() {
		return fmt.Errorf("group %d: %w", group, ErrUnknownGroup)
	}
	m.act.synchronouslyResetToNullState(group)
	return nil
}

// ThemeChanged applies setters of the current states again, their values
// may come from theme resources.
func (m *Manager) ThemeChanged() error {
	return m.act.refreshAllAppliedPropertySetters()
}

// Leave finishes every running transition and releases parented objects.
func (m *Manager) Leave() {
	for g := range m.ds.GroupCount() {
		m.act.snapToEnd(g, true)
	}
	m.deps.relations.Release(m.id)
}

// FindName returns the named object inside the collection. Names the
// runtime data knows are only reachable in the created collection, asking
// for one creates it.
func (m *Manager) FindName(name string) (*markup.Object, error) {
	if m.legacy == nil {
		if !m.rd.HasSeenName(name) {
			return nil, nil
		}
		if err := m.FaultInChildren(); err != nil {
			return nil, err
		}
	}
	var found *markup.Object
	m.legacy.Root().Walk(func(o *markup.Object) bool {
		if o.Name() == name {
			found = o
			return false
		}
		return true
	})
	return found, nil
}

func (m *Manager) faultInOnDemand() error {
	if m.legacy != nil || !m.rd.UnexpectedTokens || m.policy != config.FallbackPolicyOnDemand {
		return nil
	}
	return m.FaultInChildren()
}

// FaultInChildren creates the whole collection and switches to serving
// states out of it. Running storyboards and transitions move over to the
// created objects, group contexts are kept.
func (m *Manager) FaultInChildren() error {
	if m.legacy != nil {
		return nil
	}
	if !m.rd.EntireCollection.IsValid() {
		return errors.New("runtime data does not reference the collection")
	}
	var skip []markup.SkipRange
	if m.triggers {
		// triggers were created already, do not create them twice
		for i := range m.rd.States {
			skip = append(skip, m.rd.States[i].TriggerCollection...)
		}
	}
	root := markup.NewObject(markup.TypeVisualStateGroupCollection)
	if err := m.creator.ApplyStreamToExistingInstance(m.rd.EntireCollection, root, skip...); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	var contexts []*GroupContext
	for g := range m.ds.GroupCount() {
		contexts = append(contexts, m.ds.GroupContext(g))
	}
	legacy, err := newLegacyDataSource(root, contexts, m.deps)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	var errs error
	for g, ctx := range contexts {
		if cur := ctx.CurrentVisualStateIndex(); cur >= 0 {
			name := m.ds.StateName(cur)
			state, group, ok := legacy.TryGetVisualState(name)
			if !ok || group != g {
				errs = multierr.Append(errs, fmt.Errorf("state %q not found in created group %d", name, g))
				ctx.TransitionToNullState()
			} else {
				ctx.rebase(state)
			}
		}
		for _, as := range ctx.ActiveStoryboards() {
			legacy.storyboardAdded(as.Storyboard)
			if as.Kind == KindState {
				legacy.adoptStoryboard(ctx.CurrentVisualStateIndex(), as.Storyboard)
			}
		}
		for _, t := range ctx.ActiveTransitions() {
			legacy.transitionAdded(t)
			if !legacy.adoptTransition(g, t) {
				m.log.Debug("Running transition has no created counterpart", zap.String("from", t.From), zap.String("to", t.To))
			}
		}
	}
	if errs != nil {
		m.log.Warn("Visual states lost while creating collection", zap.Error(errs))
	}
	m.legacy = legacy
	m.ds = legacy
	m.act.ds = legacy
	m.log.Debug("Collection created", zap.Stringer("id", m.id), zap.Int("states", legacy.StateCount()))
	return nil
}
