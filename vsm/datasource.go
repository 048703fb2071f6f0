package vsm

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"vsmrt/markup"
	"vsmrt/stream"
)

var (
	ErrUnknownGroup = errors.New("unknown visual state group")
	ErrUnknownState = errors.New("unknown visual state")
)

// DataSource answers visual state questions for the actuator. One
// implementation works off runtime data and faults objects in on demand,
// the other off a fully created collection.
type DataSource interface {
	GroupCount() int
	GroupContext(group int) *GroupContext
	GroupName(group int) string
	StateCount() int
	StateName(state int) string
	GroupOf(state int) int

	TryGetVisualState(name string) (state, group int, ok bool)
	TryGetVisualStateByToken(tok VisualStateToken) (state, group int, ok bool)

	// TryGetOrCreateTransition returns nil when no transition applies, from
	// is -1 when the group has no current state.
	TryGetOrCreateTransition(group, from, to int) (*Transition, error)
	TryGetOrCreateStoryboardForVisualState(state int) (*Storyboard, error)
	// TryGetOrCreatePropertySettersForVisualState returns the setters that
	// could be resolved, the others are dropped.
	TryGetOrCreatePropertySettersForVisualState(state int) ([]ResolvedSetter, error)
	GetQualifiersFromStateTriggers(state int, onQualifierCreated func(Qualifier)) error

	AddActiveStoryboard(group int, sb *Storyboard, kind StoryboardKind)
	RemoveActiveStoryboard(group int, sb *Storyboard)
	AddActiveTransition(group int, t *Transition)
	RemoveActiveTransition(group int, t *Transition)
}

// collectionSync lets a data source mirror bookkeeping changes into its
// own collections.
type collectionSync interface {
	storyboardAdded(sb *Storyboard)
	storyboardRemoved(sb *Storyboard)
	transitionAdded(t *Transition)
	transitionRemoved(t *Transition)
}

// Collaborators shared by both data sources.
type sourceDeps struct {
	owner     uuid.UUID
	relations *Relations
	targets   TargetResolver
	log       *zap.Logger
}

type base struct {
	sourceDeps
	contexts []*GroupContext
	hook     collectionSync
}

func (b *base) GroupCount() int { return len(b.contexts) }

func (b *base) GroupContext(group int) *GroupContext {
	if group < 0 || group >= len(b.contexts) {
		// callers validate group indexes, this is a programming error
		panic(fmt.Sprintf("group context %d of %d", group, len(b.contexts)))
	}
	return b.contexts[group]
}

func (b *base) AddActiveStoryboard(group int, sb *Storyboard, kind StoryboardKind) {
	if sb == nil {
		return
	}
	b.GroupContext(group).AddActiveStoryboard(sb, kind)
	if b.hook != nil {
		b.hook.storyboardAdded(sb)
	}
}

func (b *base) RemoveActiveStoryboard(group int, sb *Storyboard) {
	if sb == nil {
		return
	}
	if b.GroupContext(group).RemoveActiveStoryboard(sb) && b.hook != nil {
		b.hook.storyboardRemoved(sb)
	}
}

func (b *base) AddActiveTransition(group int, t *Transition) {
	if t == nil {
		return
	}
	b.GroupContext(group).AddActiveTransition(t)
	if b.hook != nil {
		b.hook.transitionAdded(t)
	}
}

func (b *base) RemoveActiveTransition(group int, t *Transition) {
	if t == nil {
		return
	}
	if b.GroupContext(group).RemoveActiveTransition(t) && b.hook != nil {
		b.hook.transitionRemoved(t)
	}
}

// resolveSetters binds setters to their targets. A setter that fails is
// left out, the failures are logged together.
func (b *base) resolveSetters(state string, setters []*markup.Object) []ResolvedSetter {
	var (
		out  = make([]ResolvedSetter, 0, len(setters))
		errs error
	)
	for _, s := range setters {
		rs, err := b.resolveSetter(s)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out = append(out, rs)
	}
	if errs != nil {
		b.log.Warn("Dropped unresolvable setters", zap.String("state", state), zap.Error(errs))
	}
	return out
}

// resolveSetter parents s to the collection for the duration of the
// resolution, whatever its outcome. A relation s had before is restored.
func (b *base) resolveSetter(s *markup.Object) (ResolvedSetter, error) {
	prev, parented := b.relations.Owner(s)
	b.relations.Parent(s, b.owner)
	defer func() {
		if parented {
			b.relations.Parent(s, prev)
		} else {
			b.relations.Unparent(s)
		}
	}()

	path := s.String(markup.PropSetterTarget)
	if path == "" {
		return ResolvedSetter{}, errors.New("setter has no target")
	}
	if b.targets == nil {
		return ResolvedSetter{}, fmt.Errorf("setter target %q: no target resolver", path)
	}
	target, prop, err := b.targets.ResolveTarget(path)
	if err != nil {
		return ResolvedSetter{}, fmt.Errorf("setter target %q: %w", path, err)
	}
	rs := ResolvedSetter{Setter: s, Target: target, Property: prop}
	if m := s.Member(markup.PropSetterValue); m != nil {
		switch {
		case len(m.Objects) > 0:
			v := m.Objects[0]
			if v.Type == markup.TypeStaticResource || v.Type == markup.TypeThemeResource {
				return ResolvedSetter{}, fmt.Errorf("setter target %q: unresolved resource %q", path, v.String(markup.PropResourceKey)+v.String(markup.PropThemeResourceKey))
			}
			rs.Value = v
		case len(m.Values) > 0:
			rs.Value = m.Values[0].Native()
		}
	}
	return rs, nil
}

func newTransition(obj *markup.Object) (*Transition, error) {
	t := &Transition{
		Object: obj,
		From:   obj.String(markup.PropTransitionFrom),
		To:     obj.String(markup.PropTransitionTo),
	}
	if s := obj.String(markup.PropTransitionDuration); s != "" {
		d, err := parseTimeSpan(s)
		if err != nil {
			return nil, fmt.Errorf("transition %q -> %q: %w", t.From, t.To, err)
		}
		t.Duration = d
	}
	if sb := obj.Child(markup.PropTransitionStoryboard); sb != nil {
		t.Storyboard = &Storyboard{Object: sb}
	}
	return t, nil
}

const (
	maxDuration     = math.MaxInt64
	maxTimeSpanDays = maxDuration / int64(24*time.Hour)
)

// parseTimeSpan reads [d.]h:m:s[.fraction] as used by markup durations.
func parseTimeSpan(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var days time.Duration
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d, h, ok := strings.Cut(parts[0], "."); ok {
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		if int64(n) > maxTimeSpanDays {
			return 0, fmt.Errorf("duration %q out of range", s)
		}
		days, parts[0] = time.Duration(n)*24*time.Hour, h
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	sec, errS := strconv.ParseFloat(parts[2], 64)
	if errH != nil || errM != nil || errS != nil || h < 0 || m < 0 || sec < 0 || math.IsInf(sec, 0) || math.IsNaN(sec) {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	ns := sec * float64(time.Second)
	if int64(h) > maxDuration/int64(time.Hour) || int64(m) > maxDuration/int64(time.Minute) || ns >= maxDuration {
		return 0, fmt.Errorf("duration %q out of range", s)
	}
	d := days
	for _, part := range []time.Duration{time.Duration(h) * time.Hour, time.Duration(m) * time.Minute, time.Duration(ns)} {
		if part > maxDuration-d {
			return 0, fmt.Errorf("duration %q out of range", s)
		}
		d += part
	}
	return d, nil
}

// qualifierFromTrigger builds the qualifier of a live trigger object.
// Adaptive triggers carry two thresholds, everything else is asked.
func qualifierFromTrigger(obj *markup.Object) Qualifier {
	if obj.Type != markup.TypeAdaptiveTrigger {
		return Qualifier{Trigger: obj}
	}
	var q Qualifier
	q.MinWidth = windowThreshold(obj, markup.PropMinWindowWidth)
	q.MinHeight = windowThreshold(obj, markup.PropMinWindowHeight)
	return q
}

// windowThreshold reads an adaptive trigger threshold. Values the writer
// would reject are treated as absent.
func windowThreshold(obj *markup.Object, p stream.PropertyRef) int32 {
	v, ok := obj.Value(p)
	if !ok {
		return 0
	}
	f, ok := v.AsFloat()
	if !ok || math.IsNaN(f) || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return int32(f)
}

// StateTriggerActive evaluates the built in StateTrigger.
func StateTriggerActive(obj *markup.Object) bool {
	v, ok := obj.Value(markup.PropStateTriggerIsActive)
	if !ok {
		return false
	}
	if v.Kind == stream.ValueBool {
		return v.Bool
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v.String))
	return err == nil && b
}
