package inspect

import (
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"

	"vsmrt/blob"
	"vsmrt/runtimedata"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

// Dump models mirror runtime data with plain fields so that they render as
// readable Ion text.

type blobModel struct {
	ID          string             `ion:"id"`
	TypeIndex   uint16             `ion:"type_index"`
	Kind        string             `ion:"kind"`
	Revision    int                `ion:"revision"`
	OSVersion   uint32             `ion:"os_version"`
	Strings     []string           `ion:"strings"`
	Tokens      []uint32           `ion:"tokens"`
	Conditional []conditionalModel `ion:"conditional,omitempty"`
	Data        any                `ion:"data"`
}

type conditionalModel struct {
	Token      uint32   `ion:"token"`
	Predicates []string `ion:"predicates"`
}

type stateModel struct {
	Name                   string       `ion:"name"`
	Group                  int          `ion:"group"`
	Storyboard             *uint32      `ion:"storyboard,omitempty"`
	Setters                []uint32     `ion:"setters,omitempty"`
	TriggerValues          [][]minModel `ion:"trigger_values,omitempty"`
	ExtensibleTriggers     []uint32     `ion:"extensible_triggers,omitempty"`
	StaticResourceTriggers []uint32     `ion:"static_resource_triggers,omitempty"`
}

type minModel struct {
	Dimension string `ion:"dimension"`
	Min       int32  `ion:"min"`
}

type groupModel struct {
	Name             string `ion:"name"`
	Token            uint32 `ion:"token"`
	DynamicTimelines bool   `ion:"dynamic_timelines"`
}

type transitionModel struct {
	From  string `ion:"from"`
	To    string `ion:"to"`
	Token uint32 `ion:"token"`
}

type lookupModel struct {
	Group      int `ion:"group"`
	From       int `ion:"from"`
	To         int `ion:"to"`
	Transition int `ion:"transition"`
}

type visualStatesModel struct {
	Groups           []groupModel      `ion:"groups"`
	States           []stateModel      `ion:"states"`
	Transitions      []transitionModel `ion:"transitions"`
	Lookup           []lookupModel     `ion:"lookup"`
	UnexpectedTokens bool              `ion:"unexpected_tokens"`
	EntireCollection *uint32           `ion:"entire_collection,omitempty"`
	SeenNames        []string          `ion:"seen_names,omitempty"`
}

type setterModel struct {
	Property string        `ion:"property"`
	Value    *stream.Value `ion:"value,omitempty"`
	Object   *uint32       `ion:"object,omitempty"`
	Mutable  bool          `ion:"mutable"`
}

type styleModel struct {
	TargetType string        `ion:"target_type"`
	BasedOn    *uint32       `ion:"based_on,omitempty"`
	Setters    []setterModel `ion:"setters"`
}

type entryModel struct {
	Key   string `ion:"key"`
	Token uint32 `ion:"token"`
}

type resourcesModel struct {
	Keyed  []entryModel `ion:"keyed,omitempty"`
	Named  []entryModel `ion:"named,omitempty"`
	Themes []entryModel `ion:"themes,omitempty"`
}

type deferredModel struct {
	Name          string  `ion:"name"`
	Content       *uint32 `ion:"content,omitempty"`
	RealizeOnLoad bool    `ion:"realize_on_load"`
}

func optToken(tok stream.StreamOffsetToken) *uint32 {
	if !tok.IsValid() {
		return nil
	}
	v := uint32(tok)
	return &v
}

func tokens(toks []stream.StreamOffsetToken) []uint32 {
	out := make([]uint32, 0, len(toks))
	for _, t := range toks {
		out = append(out, uint32(t))
	}
	return out
}

func entries(m map[string]stream.StreamOffsetToken) []entryModel {
	keys := slices.Collect(maps.Keys(m))
	sort.Sort(natural.StringSlice(keys))
	out := make([]entryModel, 0, len(keys))
	for _, k := range keys {
		out = append(out, entryModel{Key: k, Token: uint32(m[k])})
	}
	return out
}

func newBlobModel(b *blob.Blob, rd runtimedata.RuntimeData) blobModel {
	m := blobModel{
		ID:        b.ID.String(),
		TypeIndex: uint16(b.TypeIndex),
		Kind:      rd.Kind().String(),
		Revision:  typeindex.Revision(b.TypeIndex),
		OSVersion: uint32(b.OSVersion),
		Strings:   b.Strings,
		Tokens:    b.Tokens,
	}
	for _, tok := range b.ConditionalTokens() {
		preds, _ := b.Conditional(tok)
		cm := conditionalModel{Token: uint32(tok)}
		for _, p := range preds {
			cm.Predicates = append(cm.Predicates, p.String())
		}
		m.Conditional = append(m.Conditional, cm)
	}

	switch d := rd.(type) {
	case *runtimedata.VisualStateGroupCollectionRuntimeData:
		m.Data = newVisualStatesModel(d)
	case *runtimedata.StyleRuntimeData:
		sm := styleModel{TargetType: d.TargetType.String(), BasedOn: optToken(d.BasedOn)}
		for _, s := range d.Setters {
			st := setterModel{Property: s.Property.String(), Mutable: s.Mutable}
			if s.HasObjectValue() {
				st.Object = optToken(s.ValueToken)
			} else {
				v := s.Value
				st.Value = &v
			}
			sm.Setters = append(sm.Setters, st)
		}
		m.Data = sm
	case *runtimedata.ResourceDictionaryRuntimeData:
		m.Data = resourcesModel{Keyed: entries(d.Keyed), Named: entries(d.Named), Themes: entries(d.Themes)}
	case *runtimedata.DeferredElementRuntimeData:
		m.Data = deferredModel{Name: d.Name, Content: optToken(d.Content), RealizeOnLoad: d.RealizeOnLoad}
	}
	return m
}

func newVisualStatesModel(d *runtimedata.VisualStateGroupCollectionRuntimeData) visualStatesModel {
	vm := visualStatesModel{
		UnexpectedTokens: d.UnexpectedTokens,
		EntireCollection: optToken(d.EntireCollection),
		SeenNames:        d.SeenNameDirectives,
	}
	for _, g := range d.Groups {
		vm.Groups = append(vm.Groups, groupModel{Name: g.Name, Token: uint32(g.Token), DynamicTimelines: g.HasDynamicTimelines})
	}
	for i, s := range d.States {
		sm := stateModel{
			Name:                   s.Name,
			Group:                  d.StateGroup[i],
			Setters:                tokens(s.Setters),
			ExtensibleTriggers:     tokens(s.ExtensibleTriggers),
			StaticResourceTriggers: tokens(s.StaticResourceTriggers),
		}
		if s.HasStoryboard {
			sm.Storyboard = optToken(s.Storyboard)
		}
		for _, tv := range s.TriggerValues {
			var mins []minModel
			for _, q := range tv {
				mins = append(mins, minModel{Dimension: q.Dimension.String(), Min: q.Min})
			}
			sm.TriggerValues = append(sm.TriggerValues, mins)
		}
		vm.States = append(vm.States, sm)
	}
	for _, t := range d.Transitions {
		vm.Transitions = append(vm.Transitions, transitionModel{From: t.From, To: t.To, Token: uint32(t.Token)})
	}
	if d.Lookup != nil {
		for _, e := range d.Lookup.Entries() {
			vm.Lookup = append(vm.Lookup, lookupModel{Group: e.Group, From: e.From, To: e.To, Transition: e.Transition})
		}
	}
	return vm
}

// DescribeIon renders the same content as Describe as Ion text.
func DescribeIon(b *blob.Blob, rd runtimedata.RuntimeData) ([]byte, error) {
	return stream.MarshalText(newBlobModel(b, rd))
}
