package vsm

import (
	"fmt"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"vsmrt/markup"
)

// actuator drives group contexts through state changes. It runs on the
// owner goroutine only.
type actuator struct {
	ds                DataSource
	animator          Animator
	props             PropertyStore
	dispatcher        *Dispatcher
	animationsEnabled bool
	log               *zap.Logger
}

// changeVisualState moves group to state to, playing the transition
// between the current state and to when useTransitions is set.
func (a *actuator) changeVisualState(group, to int, useTransitions bool) error {
	ctx := a.ds.GroupContext(group)
	from := ctx.CurrentVisualStateIndex()

	setters, err := a.ds.TryGetOrCreatePropertySettersForVisualState(to)
	if err != nil {
		return err
	}
	sb, err := a.ds.TryGetOrCreateStoryboardForVisualState(to)
	if err != nil {
		return err
	}
	ctx.ClearPendingPropertySetters()
	ctx.SetPendingStoryboard(nil)

	var tr *Transition
	if useTransitions {
		if tr, err = a.ds.TryGetOrCreateTransition(group, from, to); err != nil {
			return err
		}
	}

	previous := slices.Clone(ctx.ActiveStoryboards())
	previousTransitions := slices.Clone(ctx.ActiveTransitions())
	previousSetters := ctx.ActivePropertySetters()

	if err := ctx.BeginTransitionToState(to); err != nil {
		return err
	}

	var dynamic *Storyboard
	if tr != nil && tr.Duration > 0 && a.animator != nil {
		var froms []*markup.Object
		for _, as := range previous {
			if as.Storyboard.Object != nil {
				froms = append(froms, as.Storyboard.Object)
			}
		}
		var target *markup.Object
		if sb != nil {
			target = sb.Object
		}
		dynamic = &Storyboard{}
		tl, err := a.animator.Dynamic(tr.Duration, froms, target, a.completed(dynamic))
		if err != nil {
			a.log.Warn("Unable to generate transition animation",
				zap.String("from", a.ds.StateName(from)), zap.String("to", a.ds.StateName(to)), zap.Error(err))
			dynamic = nil
		} else {
			dynamic.timeline = tl
		}
	}
	var trSb *Storyboard
	if tr != nil {
		trSb = tr.Storyboard
	}
	transitioning := tr != nil && !tr.IsZeroDuration() && (dynamic != nil || trSb != nil)

	// everything from here on must not leave half registered storyboards
	var started []*Storyboard
	cleanup := func() {
		for _, s := range started {
			a.stopAndRemoveStoryboard(group, s)
		}
		if tr != nil {
			a.ds.RemoveActiveTransition(group, tr)
		}
		ctx.ClearPendingPropertySetters()
		ctx.SetPendingStoryboard(nil)
	}

	if transitioning {
		a.ds.AddActiveTransition(group, tr)
		for _, s := range []*Storyboard{dynamic, trSb} {
			if s == nil {
				continue
			}
			kind := KindTransition
			if s == dynamic {
				kind = KindDynamic
			}
			a.tryProcessCompletedData(s)
			s.completion = &completionData{group: group, state: to, transition: tr}
			ctx.IncrementPendingCompletions()
			a.ds.AddActiveStoryboard(group, s, kind)
			started = append(started, s)
		}
		ctx.AddPendingPropertySetters(setters)
		ctx.SetPendingStoryboard(sb)
	}

	// previous animations stop before the new ones start so both never
	// write the same property on one frame
	for _, as := range previous {
		if as.Storyboard != sb && !slices.Contains(started, as.Storyboard) {
			a.stopAndRemoveStoryboard(group, as.Storyboard)
		}
	}
	for _, t := range previousTransitions {
		if t != tr {
			a.ds.RemoveActiveTransition(group, t)
		}
	}

	if transitioning {
		for _, s := range started {
			if err := a.attemptStart(s, true); err != nil {
				cleanup()
				return fmt.Errorf("transition %q -> %q: %w", a.ds.StateName(from), a.ds.StateName(to), err)
			}
		}
		a.unapplyPropertySetters(previousSetters, setters)
		ctx.SetActivePropertySetters(overridden(previousSetters, setters))
		return nil
	}

	if sb != nil {
		a.ds.AddActiveStoryboard(group, sb, KindState)
		if err := a.attemptStart(sb, false); err != nil {
			a.ds.RemoveActiveStoryboard(group, sb)
			a.log.Warn("Unable to start state storyboard", zap.String("state", a.ds.StateName(to)), zap.Error(err))
		}
	}
	a.unapplyPropertySetters(previousSetters, setters)
	a.setAndApplyActivePropertySetters(group, setters)
	return ctx.CompleteTransitionToState()
}

// completed returns the callback handed to the animation system for sb.
func (a *actuator) completed(sb *Storyboard) func() {
	return func() {
		if a.dispatcher == nil {
			a.finishVisualTransition(sb)
			return
		}
		a.dispatcher.Post(func() { a.finishVisualTransition(sb) })
	}
}

// finishVisualTransition accounts for one completed transition storyboard.
// The last one to complete applies what the transition held back.
func (a *actuator) finishVisualTransition(sb *Storyboard) {
	data := sb.completion
	if data == nil {
		return
	}
	sb.completion = nil
	if data.group >= a.ds.GroupCount() {
		return
	}
	ctx := a.ds.GroupContext(data.group)
	if ctx.DecrementPendingCompletions() > 0 {
		return
	}
	if ctx.State() != Transitioning || ctx.CurrentVisualStateIndex() != data.state {
		// a later state change took over
		return
	}

	setters := ctx.PendingPropertySetters()
	pending := ctx.PendingStoryboard()
	ctx.ClearPendingPropertySetters()
	ctx.SetPendingStoryboard(nil)

	for _, as := range slices.Clone(ctx.ActiveStoryboards()) {
		if as.Storyboard != pending {
			a.stopAndRemoveStoryboard(data.group, as.Storyboard)
		}
	}
	a.setAndApplyActivePropertySetters(data.group, setters)
	if pending != nil {
		a.ds.AddActiveStoryboard(data.group, pending, KindState)
		if err := a.attemptStart(pending, false); err != nil {
			a.ds.RemoveActiveStoryboard(data.group, pending)
			a.log.Warn("Unable to start state storyboard", zap.String("state", a.ds.StateName(data.state)), zap.Error(err))
		}
	}
	if err := ctx.CompleteTransitionToState(); err != nil {
		a.log.Warn("Transition completed out of order", zap.Error(err))
	}
	a.ds.RemoveActiveTransition(data.group, data.transition)
}

// attemptStart begins sb. Transition animations only play when animations
// are enabled, otherwise they jump to their end.
func (a *actuator) attemptStart(sb *Storyboard, transition bool) error {
	if sb.timeline == nil {
		if a.animator == nil {
			if sb.completion != nil {
				a.completed(sb)()
			}
			return nil
		}
		tl, err := a.animator.Instantiate(sb.Object, a.completed(sb))
		if err != nil {
			return err
		}
		sb.timeline = tl
	}
	if err := sb.timeline.Begin(); err != nil {
		return err
	}
	if transition && !a.animationsEnabled && !sb.Essential {
		if err := sb.timeline.SkipToFill(); err != nil {
			return err
		}
		a.completed(sb)()
	}
	return nil
}

// stopAndRemoveStoryboard stops sb and forgets it. Pending completion is
// accounted for without applying anything.
func (a *actuator) stopAndRemoveStoryboard(group int, sb *Storyboard) {
	if sb == nil {
		return
	}
	if sb.timeline != nil && !sb.timeline.Stopped() {
		if err := sb.timeline.Stop(); err != nil {
			a.log.Debug("Unable to stop storyboard", zap.Error(err))
		}
	}
	a.tryProcessCompletedData(sb)
	a.ds.RemoveActiveStoryboard(group, sb)
}

func (a *actuator) stopAndRemoveStoryboards(group int) {
	for _, as := range slices.Clone(a.ds.GroupContext(group).ActiveStoryboards()) {
		a.stopAndRemoveStoryboard(group, as.Storyboard)
	}
}

func (a *actuator) tryProcessCompletedData(sb *Storyboard) {
	data := sb.completion
	if data == nil {
		return
	}
	sb.completion = nil
	if data.group < a.ds.GroupCount() {
		a.ds.GroupContext(data.group).DecrementPendingCompletions()
	}
}

// snapToEnd jumps every running animation to its end. With forceSync the
// completion of transitions is processed before returning, otherwise it
// arrives through the dispatcher.
func (a *actuator) snapToEnd(group int, forceSync bool) {
	ctx := a.ds.GroupContext(group)
	for _, as := range slices.Clone(ctx.ActiveStoryboards()) {
		sb := as.Storyboard
		if sb.timeline == nil {
			if forceSync {
				a.finishVisualTransition(sb)
			}
			continue
		}
		if forceSync {
			if err := sb.timeline.SkipToFill(); err != nil {
				a.log.Debug("Unable to skip storyboard to fill", zap.Error(err))
			}
			a.finishVisualTransition(sb)
			continue
		}
		if err := sb.timeline.Complete(); err != nil {
			a.log.Debug("Unable to complete storyboard", zap.Error(err))
		}
	}
}

// synchronouslyResetToNullState stops everything the group runs and
// removes the values its setters applied.
func (a *actuator) synchronouslyResetToNullState(group int) {
	ctx := a.ds.GroupContext(group)
	a.stopAndRemoveStoryboards(group)
	for _, t := range slices.Clone(ctx.ActiveTransitions()) {
		a.ds.RemoveActiveTransition(group, t)
	}
	a.unapplyPropertySetters(ctx.ActivePropertySetters(), nil)
	ctx.SetActivePropertySetters(nil)
	ctx.ClearPendingPropertySetters()
	ctx.SetPendingStoryboard(nil)
	ctx.TransitionToNullState()
}

// reevaluateAppliedPropertySetters resolves the setters of the current
// state of group again and applies whatever changed.
func (a *actuator) reevaluateAppliedPropertySetters(group int) error {
	ctx := a.ds.GroupContext(group)
	if ctx.State() != StateApplied || ctx.CurrentVisualStateIndex() < 0 {
		return nil
	}
	setters, err := a.ds.TryGetOrCreatePropertySettersForVisualState(ctx.CurrentVisualStateIndex())
	if err != nil {
		return err
	}
	a.unapplyPropertySetters(ctx.ActivePropertySetters(), setters)
	a.setAndApplyActivePropertySetters(group, setters)
	return nil
}

func (a *actuator) refreshAllAppliedPropertySetters() error {
	var errs error
	for g := range a.ds.GroupCount() {
		errs = multierr.Append(errs, a.reevaluateAppliedPropertySetters(g))
	}
	return errs
}

func (a *actuator) setAndApplyActivePropertySetters(group int, setters []ResolvedSetter) {
	a.ds.GroupContext(group).SetActivePropertySetters(setters)
	if a.props == nil {
		return
	}
	var errs error
	for _, s := range setters {
		if err := a.props.SetValue(s.Target, s.Property, s.Value); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("set %s: %w", s.Property, err))
		}
	}
	if errs != nil {
		a.log.Warn("Unable to apply setters", zap.String("group", a.ds.GroupName(group)), zap.Error(errs))
	}
}

// unapplyPropertySetters clears values of previous that next does not set
// again.
func (a *actuator) unapplyPropertySetters(previous, next []ResolvedSetter) {
	if a.props == nil {
		return
	}
	var errs error
	for _, p := range previous {
		if slices.ContainsFunc(next, p.sameTarget) {
			continue
		}
		if err := a.props.ClearValue(p.Target, p.Property); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("clear %s: %w", p.Property, err))
		}
	}
	if errs != nil {
		a.log.Warn("Unable to clear setters", zap.Error(errs))
	}
}

// overridden keeps the setters of previous that next sets again, those stay
// applied until next takes over.
func overridden(previous, next []ResolvedSetter) []ResolvedSetter {
	var out []ResolvedSetter
	for _, p := range previous {
		if slices.ContainsFunc(next, p.sameTarget) {
			out = append(out, p)
		}
	}
	return out
}

// initializeStateTriggers moves every group to the state with the best
// active trigger. Groups without any are left alone.
func (a *actuator) initializeStateTriggers(qctx QualifierContext) error {
	type pick struct {
		state int
		score int64
	}
	best := make([]pick, a.ds.GroupCount())
	for g := range best {
		best[g] = pick{state: -1}
	}
	var errs error
	for st := range a.ds.StateCount() {
		g := a.ds.GroupOf(st)
		if g < 0 {
			continue
		}
		err := a.ds.GetQualifiersFromStateTriggers(st, func(q Qualifier) {
			if !q.Active(qctx) {
				return
			}
			if s := q.Score(); best[g].state < 0 || s > best[g].score {
				best[g] = pick{state: st, score: s}
			}
		})
		errs = multierr.Append(errs, err)
	}
	for g, p := range best {
		if p.state < 0 || p.state == a.ds.GroupContext(g).CurrentVisualStateIndex() {
			continue
		}
		errs = multierr.Append(errs, a.changeVisualState(g, p.state, false))
	}
	return errs
}
