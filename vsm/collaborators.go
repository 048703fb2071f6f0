package vsm

import (
	"math"
	"reflect"
	"time"

	"vsmrt/markup"
)

// Timeline is a storyboard prepared for playback by the animation system.
type Timeline interface {
	Begin() error
	Stop() error
	// SkipToFill jumps to the final frame without raising completion.
	SkipToFill() error
	// Complete jumps to the final frame and raises completion.
	Complete() error
	Stopped() bool
}

// Animator turns storyboards into timelines. The completed callbacks may be
// invoked from any goroutine, they are marshaled onto the owner goroutine
// through the Dispatcher.
type Animator interface {
	Instantiate(storyboard *markup.Object, completed func()) (Timeline, error)
	// Dynamic builds an ad hoc timeline moving from the values animated by
	// from to the ones of to over d.
	Dynamic(d time.Duration, from []*markup.Object, to *markup.Object, completed func()) (Timeline, error)
}

// TargetResolver finds the object and property a setter Target path names.
// Targets are expected to be comparable handles. Maps, slices and funcs are
// compared by identity, other uncomparable targets never match each other.
type TargetResolver interface {
	ResolveTarget(path string) (target any, property string, err error)
}

// PropertyStore applies setter values to targets.
type PropertyStore interface {
	SetValue(target any, property string, value any) error
	ClearValue(target any, property string) error
}

// QualifierContext answers the questions state triggers ask.
type QualifierContext interface {
	WindowSize() (width, height int32)
	TriggerActive(trigger *markup.Object) bool
}

// Storyboard is a live storyboard owned by a group collection.
type Storyboard struct {
	// Object is nil for dynamic storyboards.
	Object    *markup.Object
	Essential bool

	timeline   Timeline
	completion *completionData
}

// Stopped reports whether the storyboard is not playing.
func (s *Storyboard) Stopped() bool {
	return s.timeline == nil || s.timeline.Stopped()
}

// completionData travels with transition storyboards until their
// completion has been accounted for.
type completionData struct {
	group, state int
	transition   *Transition
}

// Transition is a faulted in visual transition.
type Transition struct {
	Object     *markup.Object
	From, To   string
	Duration   time.Duration
	Storyboard *Storyboard
}

// IsZeroDuration reports whether the transition has nothing to play.
func (t *Transition) IsZeroDuration() bool {
	return t.Duration <= 0 && t.Storyboard == nil
}

// ResolvedSetter is a visual state setter bound to its target.
type ResolvedSetter struct {
	Setter   *markup.Object
	Target   any
	Property string
	Value    any
}

func (s ResolvedSetter) sameTarget(o ResolvedSetter) bool {
	return s.Property == o.Property && sameObject(s.Target, o.Target)
}

func sameObject(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return !va.IsValid() && !vb.IsValid()
	}
	if va.Type() != vb.Type() {
		return false
	}
	if va.Comparable() && vb.Comparable() {
		return a == b
	}
	switch va.Kind() {
	case reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	return false
}

// Qualifier is one condition a state trigger contributes. Adaptive
// qualifiers compare window dimensions, extensible ones ask the trigger.
type Qualifier struct {
	MinWidth, MinHeight int32
	Trigger             *markup.Object
}

func (q Qualifier) Extensible() bool { return q.Trigger != nil }

// Active evaluates q in ctx.
func (q Qualifier) Active(ctx QualifierContext) bool {
	if q.Extensible() {
		return ctx.TriggerActive(q.Trigger)
	}
	w, h := ctx.WindowSize()
	return w >= q.MinWidth && h >= q.MinHeight
}

// Score orders active qualifiers. Extensible triggers beat any adaptive
// one, among adaptive ones bigger thresholds win.
func (q Qualifier) Score() int64 {
	if q.Extensible() {
		return math.MaxInt64
	}
	return int64(q.MinWidth) + int64(q.MinHeight)
}

// VisualStateToken identifies a visual state for as long as its collection
// lives, whether the state was ever created or not.
type VisualStateToken struct {
	index int
	valid bool
}

func TokenForIndex(index int) VisualStateToken {
	return VisualStateToken{index: index, valid: index >= 0}
}

func (t VisualStateToken) IsValid() bool { return t.valid }
func (t VisualStateToken) Index() int    { return t.index }

func (t VisualStateToken) Equal(o VisualStateToken) bool {
	return t.valid == o.valid && t.index == o.index
}
