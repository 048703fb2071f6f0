package writer

import (
	"fmt"
	"math"
	"sort"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"vsmrt/essence"
	"vsmrt/lookup"
	"vsmrt/markup"
	"vsmrt/runtimedata"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

// Object depths inside a visual state group collection node list.
const (
	depthCollection = 1
	depthGroup      = 3
	depthState      = 5
	depthStateChild = 7
	depthTrigger    = 9 // inside an explicit StateTriggerCollection
)

// VisualStateGroupCollectionWriter captures groups, states and transitions
// of a collection into essences. Markup it does not understand marks the
// result as unexpected instead of failing, such data is still valid but
// only usable after the whole collection is created.
type VisualStateGroupCollectionWriter struct {
	cur    cursor
	log    *zap.Logger
	rd     runtimedata.VisualStateGroupCollectionRuntimeData
	lookup *lookup.Builder
	seen   map[string]struct{}

	group, state, transition int
	setter                   bool
	adaptive                 *essence.TriggerValues
	reasons                  []string
}

func NewVisualStateGroupCollectionWriter(tokens *stream.TokenTable, log *zap.Logger) *VisualStateGroupCollectionWriter {
	return &VisualStateGroupCollectionWriter{
		cur:        newCursor(tokens),
		log:        log.Named("vsgc-writer"),
		rd:         runtimedata.VisualStateGroupCollectionRuntimeData{EntireCollection: stream.NoToken},
		lookup:     lookup.NewBuilder(),
		seen:       make(map[string]struct{}),
		group:      -1,
		state:      -1,
		transition: -1,
	}
}

func (w *VisualStateGroupCollectionWriter) Kind() typeindex.Kind {
	return typeindex.KindVisualStateGroupCollection
}

func (w *VisualStateGroupCollectionWriter) Roots() []int                { return w.cur.roots }
func (w *VisualStateGroupCollectionWriter) Conditionals() []Conditional { return nil }

func (w *VisualStateGroupCollectionWriter) WriteNode(i int, n markup.Node) error {
	return w.cur.step(i, n, w)
}

// Unexpected lists why the collection could not be fully captured.
func (w *VisualStateGroupCollectionWriter) Unexpected() []string {
	return w.reasons
}

func (w *VisualStateGroupCollectionWriter) unexpected(i int, reason string, args ...any) {
	msg := fmt.Sprintf(reason, args...)
	w.rd.UnexpectedTokens = true
	w.reasons = append(w.reasons, msg)
	w.log.Debug("Unexpected markup in visual state group collection", zap.Int("node", i), zap.String("reason", msg))
}

func (w *VisualStateGroupCollectionWriter) startObject(i int, t stream.TypeRef, _ []stream.PredicateAndArgs) error {
	c := &w.cur
	depth, in := c.depth(), c.within()
	switch {
	case depth == depthCollection:
		if t != markup.TypeVisualStateGroupCollection {
			return fmt.Errorf("%s: %w", t, ErrUnsupportedRoot)
		}
		w.rd.EntireCollection = c.token(i)

	case depth == depthGroup && in == markup.PropCollectionItems:
		if t != markup.TypeVisualStateGroup {
			w.unexpected(i, "%s in the group list", t)
			return nil
		}
		w.group = len(w.rd.Groups)
		w.rd.Groups = append(w.rd.Groups, essence.VisualStateGroupEssence{Token: c.token(i)})
		c.onEnd(func(int) error { w.group = -1; return nil })

	case depth == depthState && in == markup.PropGroupStates && w.group >= 0:
		if t != markup.TypeVisualState {
			w.unexpected(i, "%s in the states of group %d", t, w.group)
			return nil
		}
		w.state = len(w.rd.States)
		w.rd.States = append(w.rd.States, essence.NewVisualStateEssence(""))
		w.rd.StateGroup = append(w.rd.StateGroup, w.group)
		c.onEnd(func(int) error { w.state = -1; return nil })

	case depth == depthState && in == markup.PropGroupTransitions && w.group >= 0:
		if t != markup.TypeVisualTransition {
			w.unexpected(i, "%s in the transitions of group %d", t, w.group)
			return nil
		}
		w.transition = len(w.rd.Transitions)
		w.rd.Transitions = append(w.rd.Transitions, essence.VisualTransitionEssence{Token: c.token(i)})
		w.lookup.RecordTransitionGroup(w.group, w.transition)
		w.rd.Groups[w.group].HasDynamicTimelines = true
		c.onEnd(func(int) error { w.transition = -1; return nil })

	case depth == depthStateChild && in == markup.PropStateStoryboard && w.state >= 0:
		st := &w.rd.States[w.state]
		if st.HasStoryboard {
			w.unexpected(i, "second storyboard in state %d", w.state)
			return nil
		}
		st.Storyboard, st.HasStoryboard = c.token(i), true

	case depth == depthStateChild && in == markup.PropStateSetters && w.state >= 0:
		if t != markup.TypeSetter {
			w.unexpected(i, "%s in the setters of state %d", t, w.state)
			return nil
		}
		w.rd.States[w.state].Setters = append(w.rd.States[w.state].Setters, c.token(i))
		w.setter = true
		c.onEnd(func(int) error { w.setter = false; return nil })

	case w.state >= 0 && (depth == depthStateChild && in == markup.PropStateTriggers ||
		depth == depthTrigger && in == markup.PropTriggerCollection):
		if t == markup.TypeStateTriggerCollection && depth == depthStateChild {
			return nil
		}
		w.trigger(i, t)

	case w.adaptive != nil && (in == markup.PropMinWindowWidth || in == markup.PropMinWindowHeight):
		w.unexpected(i, "%s as adaptive trigger threshold", t)
	}
	return nil
}

func (w *VisualStateGroupCollectionWriter) trigger(i int, t stream.TypeRef) {
	c := &w.cur
	st := &w.rd.States[w.state]
	switch {
	case t == markup.TypeAdaptiveTrigger:
		w.adaptive = &essence.TriggerValues{}
		state := w.state
		c.onEnd(func(int) error {
			w.rd.States[state].TriggerValues = append(w.rd.States[state].TriggerValues, *w.adaptive)
			w.adaptive = nil
			return nil
		})
	case t == markup.TypeStaticResource || t == markup.TypeThemeResource:
		st.StaticResourceTriggers = append(st.StaticResourceTriggers, c.token(i))
	case markup.IsStateTrigger(t):
		st.ExtensibleTriggers = append(st.ExtensibleTriggers, c.token(i))
	default:
		w.unexpected(i, "%s is not a state trigger", t)
	}
}

func (w *VisualStateGroupCollectionWriter) startMember(i int, p stream.PropertyRef) error {
	c := &w.cur
	switch {
	case p == markup.PropStateTriggers && c.depth() == depthState+1 && w.state >= 0:
		start, state := c.token(i), w.state
		c.onEnd(func(end int) error {
			st := &w.rd.States[state]
			st.TriggerCollection = append(st.TriggerCollection, markup.SkipRange{Start: start, End: c.token(end)})
			return nil
		})
	case p == markup.PropSetterProperty && w.setter && c.depth() == depthStateChild+1:
		return fmt.Errorf("state %q: %w", w.rd.States[w.state].Name, ErrInvalidSetterProperty)
	}
	return nil
}

func (w *VisualStateGroupCollectionWriter) value(i int, v stream.Value) error {
	c := &w.cur
	p, depth := c.member(), c.depth()
	switch {
	case p == markup.DirectiveName:
		name := valueString(v)
		switch {
		case depth == depthGroup+1 && w.group >= 0 && w.state < 0 && w.transition < 0:
			w.rd.Groups[w.group].Name = name
		case depth == depthState+1 && w.state >= 0:
			w.rd.States[w.state].Name = name
		default:
			w.seen[name] = struct{}{}
		}
	case p == markup.PropTransitionFrom && depth == depthState+1 && w.transition >= 0:
		w.rd.Transitions[w.transition].From = valueString(v)
	case p == markup.PropTransitionTo && depth == depthState+1 && w.transition >= 0:
		w.rd.Transitions[w.transition].To = valueString(v)
	case (p == markup.PropMinWindowWidth || p == markup.PropMinWindowHeight) && w.adaptive != nil:
		f, ok := v.AsFloat()
		if !ok || f < 0 || f > math.MaxInt32 || math.IsNaN(f) {
			w.unexpected(i, "adaptive trigger threshold %s", v.Format())
			return nil
		}
		dim := essence.QualifierWidth
		if p == markup.PropMinWindowHeight {
			dim = essence.QualifierHeight
		}
		*w.adaptive = append(*w.adaptive, essence.QualifierValue{Dimension: dim, Min: int32(f)})
	}
	return nil
}

func (w *VisualStateGroupCollectionWriter) conditional(i int, _ []stream.PredicateAndArgs) error {
	w.unexpected(i, "conditional declaration")
	return nil
}

// Finish builds the transition lookup and lays the data out for ti. Data
// that ti has no field for marks the result as unexpected.
func (w *VisualStateGroupCollectionWriter) Finish(ti typeindex.TypeIndex) (runtimedata.RuntimeData, error) {
	if err := w.cur.finished(); err != nil {
		return nil, err
	}
	if err := checkRevision(ti, typeindex.KindVisualStateGroupCollection); err != nil {
		return nil, err
	}
	if !w.rd.EntireCollection.IsValid() {
		return nil, fmt.Errorf("no visual state group collection in node list: %w", markup.ErrMalformedNodes)
	}
	rev := typeindex.Revision(ti)
	for i := range w.rd.States {
		st := &w.rd.States[i]
		switch {
		case rev < 2 && (len(st.TriggerValues) > 0 || len(st.TriggerCollection) > 0):
			w.unexpected(-1, "state triggers need %s or later", typeindex.VisualStateGroupCollectionV2)
		case rev < 3 && (len(st.ExtensibleTriggers) > 0 || len(st.StaticResourceTriggers) > 0):
			w.unexpected(-1, "extensible triggers need %s or later", typeindex.VisualStateGroupCollectionV3)
		}
	}
	if len(w.seen) > 0 {
		names := make([]string, 0, len(w.seen))
		for n := range w.seen {
			names = append(names, n)
		}
		sort.Sort(natural.StringSlice(names))
		w.rd.SeenNameDirectives = names
		if rev < 4 {
			w.unexpected(-1, "named elements need %s or later", typeindex.VisualStateGroupCollectionV4)
		}
	}

	table, err := w.lookup.Build(w.rd.States, w.rd.StateGroup, w.rd.Transitions, len(w.rd.Groups))
	if err != nil {
		return nil, err
	}
	rd := w.rd
	rd.TypeIndex = ti
	rd.Lookup = table
	return &rd, nil
}
