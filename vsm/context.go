package vsm

import (
	"errors"
	"fmt"
	"slices"
)

// ErrIllegalTransition is returned for group context calls that do not fit
// its current state.
var ErrIllegalTransition = errors.New("illegal visual state group transition")

// GroupState is where a group is in changing its visual state.
type GroupState uint8

const (
	Idle GroupState = iota
	Transitioning
	StateApplied
)

func (s GroupState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Transitioning:
		return "Transitioning"
	case StateApplied:
		return "StateApplied"
	}
	return fmt.Sprintf("GroupState(%d)", uint8(s))
}

// StoryboardKind tells why a storyboard is active.
type StoryboardKind uint8

const (
	// KindDynamic is generated on the fly to move between states.
	KindDynamic StoryboardKind = iota
	// KindState belongs to the state being entered or applied.
	KindState
	// KindTransition belongs to a visual transition.
	KindTransition
)

func (k StoryboardKind) String() string {
	switch k {
	case KindDynamic:
		return "Dynamic"
	case KindState:
		return "State"
	case KindTransition:
		return "Transition"
	}
	return fmt.Sprintf("StoryboardKind(%d)", uint8(k))
}

type ActiveStoryboard struct {
	Storyboard *Storyboard
	Kind       StoryboardKind
}

// GroupContext is the run state of one visual state group.
type GroupContext struct {
	state   GroupState
	current int

	storyboards []ActiveStoryboard
	transitions []*Transition

	activeSetters     []ResolvedSetter
	pendingSetters    []ResolvedSetter
	pendingStoryboard *Storyboard
	pending           int
}

func NewGroupContext() *GroupContext {
	return &GroupContext{current: -1}
}

func (c *GroupContext) State() GroupState { return c.state }

// CurrentVisualStateIndex is the state being entered or applied, -1 when
// there is none.
func (c *GroupContext) CurrentVisualStateIndex() int { return c.current }

// BeginTransitionToState starts moving to index, -1 moves to no state.
func (c *GroupContext) BeginTransitionToState(index int) error {
	if index < -1 {
		return fmt.Errorf("begin transition to state %d: %w", index, ErrIllegalTransition)
	}
	c.current = index
	c.state = Transitioning
	return nil
}

// CompleteTransitionToState finishes the transition begun last.
func (c *GroupContext) CompleteTransitionToState() error {
	if c.state != Transitioning {
		return fmt.Errorf("complete transition while %s: %w", c.state, ErrIllegalTransition)
	}
	if c.current == -1 {
		c.state = Idle
	} else {
		c.state = StateApplied
	}
	return nil
}

// rebase points the context at the same state under another index.
func (c *GroupContext) rebase(index int) { c.current = index }

// TransitionToNullState drops the current state without a transition.
func (c *GroupContext) TransitionToNullState() {
	c.current = -1
	c.state = Idle
}

func (c *GroupContext) ActiveStoryboards() []ActiveStoryboard {
	return c.storyboards
}

func (c *GroupContext) AddActiveStoryboard(sb *Storyboard, kind StoryboardKind) {
	if sb == nil || c.indexOfStoryboard(sb) >= 0 {
		return
	}
	c.storyboards = append(c.storyboards, ActiveStoryboard{Storyboard: sb, Kind: kind})
}

func (c *GroupContext) RemoveActiveStoryboard(sb *Storyboard) bool {
	if i := c.indexOfStoryboard(sb); i >= 0 {
		c.storyboards = slices.Delete(c.storyboards, i, i+1)
		return true
	}
	return false
}

func (c *GroupContext) indexOfStoryboard(sb *Storyboard) int {
	return slices.IndexFunc(c.storyboards, func(a ActiveStoryboard) bool { return a.Storyboard == sb })
}

func (c *GroupContext) ActiveTransitions() []*Transition {
	return c.transitions
}

func (c *GroupContext) AddActiveTransition(t *Transition) {
	if t != nil && !slices.Contains(c.transitions, t) {
		c.transitions = append(c.transitions, t)
	}
}

func (c *GroupContext) RemoveActiveTransition(t *Transition) bool {
	if i := slices.Index(c.transitions, t); i >= 0 {
		c.transitions = slices.Delete(c.transitions, i, i+1)
		return true
	}
	return false
}

func (c *GroupContext) ActivePropertySetters() []ResolvedSetter  { return c.activeSetters }
func (c *GroupContext) PendingPropertySetters() []ResolvedSetter { return c.pendingSetters }

func (c *GroupContext) SetActivePropertySetters(s []ResolvedSetter) {
	c.activeSetters = s
}

func (c *GroupContext) AddPendingPropertySetters(s []ResolvedSetter) {
	c.pendingSetters = append(c.pendingSetters, s...)
}

func (c *GroupContext) ClearPendingPropertySetters() {
	c.pendingSetters = nil
}

func (c *GroupContext) PendingStoryboard() *Storyboard      { return c.pendingStoryboard }
func (c *GroupContext) SetPendingStoryboard(sb *Storyboard) { c.pendingStoryboard = sb }

// PendingCompletions is the number of storyboard completions a running
// transition still waits for.
func (c *GroupContext) PendingCompletions() int { return c.pending }

func (c *GroupContext) IncrementPendingCompletions() int {
	c.pending++
	return c.pending
}

// DecrementPendingCompletions never goes below zero, late completions of
// an interrupted transition find nothing to count down.
func (c *GroupContext) DecrementPendingCompletions() int {
	if c.pending > 0 {
		c.pending--
	}
	return c.pending
}
