// Package inspect renders compiled blobs for people and drives visual state
// managers from the command line.
package inspect

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"

	"vsmrt/blob"
	"vsmrt/essence"
	"vsmrt/markup"
	"vsmrt/runtimedata"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

// Describe renders blob header, conditionally declared objects and runtime
// data as indented text. With nodes set the node stream reachable from
// tokens is listed as well.
func Describe(b *blob.Blob, rd runtimedata.RuntimeData, nodes bool) (string, error) {
	tw := newTreeWriter()

	tw.line(0, "Blob %s", b.ID)
	tw.line(1, "type_index: %s (revision %d)", b.TypeIndex, typeindex.Revision(b.TypeIndex))
	if b.OSVersion == typeindex.OSVersionLatest {
		tw.line(1, "target_os: latest")
	} else {
		tw.line(1, "target_os: %d", uint32(b.OSVersion))
	}
	tw.line(1, "strings: %d", len(b.Strings))
	tw.line(1, "tokens: %d", len(b.Tokens))
	tw.line(1, "node_stream: %d bytes", len(b.Nodes))
	tw.line(1, "runtime_data: %d bytes", len(b.Data))

	if conds := b.ConditionalTokens(); len(conds) > 0 {
		tw.line(1, "conditional:")
		for _, tok := range conds {
			preds, _ := b.Conditional(tok)
			tw.line(2, "%s: %v", tok, preds)
		}
	}

	switch d := rd.(type) {
	case *runtimedata.VisualStateGroupCollectionRuntimeData:
		describeVisualStates(tw, d)
	case *runtimedata.StyleRuntimeData:
		describeStyle(tw, d)
	case *runtimedata.ResourceDictionaryRuntimeData:
		describeResources(tw, d)
	case *runtimedata.DeferredElementRuntimeData:
		tw.line(0, "DeferredElement")
		tw.text(1, "name", d.Name)
		tw.token(1, "content", d.Content)
		tw.line(1, "realize_on_load: %t", d.RealizeOnLoad)
	default:
		return "", fmt.Errorf("%s: nothing to describe", rd.Kind())
	}

	if nodes {
		if err := describeNodes(tw, b); err != nil {
			return "", err
		}
	}
	return tw.String(), nil
}

func describeVisualStates(tw *treeWriter, d *runtimedata.VisualStateGroupCollectionRuntimeData) {
	tw.line(0, "VisualStateGroupCollection")
	tw.token(1, "entire_collection", d.EntireCollection)
	tw.line(1, "unexpected_tokens: %t", d.UnexpectedTokens)
	if len(d.SeenNameDirectives) > 0 {
		tw.names(1, "seen_names", d.SeenNameDirectives)
	}

	for g, group := range d.Groups {
		tw.line(1, "group %d", g)
		tw.text(2, "name", group.Name)
		tw.token(2, "token", group.Token)
		tw.line(2, "dynamic_timelines: %t", group.HasDynamicTimelines)
		for _, s := range d.StatesOfGroup(g) {
			describeState(tw, 2, s, &d.States[s])
		}
	}

	for i, t := range d.Transitions {
		tw.line(1, "transition %d", i)
		tw.text(2, "from", t.From)
		tw.text(2, "to", t.To)
		tw.token(2, "token", t.Token)
	}

	if d.Lookup != nil {
		tw.line(1, "lookup:")
		for _, e := range d.Lookup.Entries() {
			tw.line(2, "group %d: %s -> %s = transition %d", e.Group, stateLabel(d, e.From), stateLabel(d, e.To), e.Transition)
		}
		for g := range d.Lookup.GroupCount() {
			if t, ok := d.Lookup.DefaultTransition(g); ok {
				tw.line(2, "group %d: default = transition %d", g, t)
			}
		}
	}
}

func stateLabel(d *runtimedata.VisualStateGroupCollectionRuntimeData, state int) string {
	if state < 0 || state >= len(d.States) {
		return "*"
	}
	return d.States[state].Name
}

func describeState(tw *treeWriter, depth, index int, s *essence.VisualStateEssence) {
	tw.line(depth, "state %d", index)
	tw.text(depth+1, "name", s.Name)
	if s.HasStoryboard {
		tw.token(depth+1, "storyboard", s.Storyboard)
	}
	for _, tok := range s.Setters {
		tw.token(depth+1, "setter", tok)
	}
	for _, tv := range s.TriggerValues {
		tw.line(depth+1, "adaptive_trigger: %s", formatTrigger(tv))
	}
	for _, tok := range s.ExtensibleTriggers {
		tw.token(depth+1, "extensible_trigger", tok)
	}
	for _, tok := range s.StaticResourceTriggers {
		tw.token(depth+1, "static_resource_trigger", tok)
	}
	for _, r := range s.TriggerCollection {
		tw.line(depth+1, "trigger_collection: %s..%s", r.Start, r.End)
	}
}

func formatTrigger(tv essence.TriggerValues) string {
	s := ""
	for i, q := range tv {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("Min%s=%d", q.Dimension, q.Min)
	}
	return s
}

func describeStyle(tw *treeWriter, d *runtimedata.StyleRuntimeData) {
	tw.line(0, "Style")
	tw.line(1, "target_type: %s", d.TargetType)
	tw.token(1, "based_on", d.BasedOn)
	for _, s := range d.Setters {
		if s.HasObjectValue() {
			tw.line(1, "setter %s = object %s (mutable %t)", s.Property, s.ValueToken, s.Mutable)
		} else {
			tw.line(1, "setter %s = %s", s.Property, s.Value.Format())
		}
	}
}

func describeResources(tw *treeWriter, d *runtimedata.ResourceDictionaryRuntimeData) {
	tw.line(0, "ResourceDictionary")
	for _, section := range []struct {
		label string
		m     map[string]stream.StreamOffsetToken
	}{
		{"keyed", d.Keyed},
		{"named", d.Named},
		{"themes", d.Themes},
	} {
		if len(section.m) == 0 {
			continue
		}
		tw.line(1, "%s:", section.label)
		keys := slices.Collect(maps.Keys(section.m))
		sort.Sort(natural.StringSlice(keys))
		for _, k := range keys {
			tw.token(2, fmt.Sprintf("%q", k), section.m[k])
		}
	}
}

// describeNodes lists every node subtree a token points at, nested tokens
// are covered by their enclosing subtree.
func describeNodes(tw *treeWriter, b *blob.Blob) error {
	tw.line(0, "Nodes")
	sr := b.SubReader()
	covered := uint32(0)
	for i, off := range b.Tokens {
		if i > 0 && off < covered {
			continue
		}
		nodes, offsets, err := sr.NodesAt(off)
		if err != nil {
			return fmt.Errorf("nodes at @%d: %w", off, err)
		}
		depth := 1
		for j, n := range nodes {
			switch n.Kind {
			case markup.NodeEndObject, markup.NodeEndMember, markup.NodeEndConditionalScope:
				depth--
			}
			tw.line(depth, "@%d %s", offsets[j], n)
			switch n.Kind {
			case markup.NodeStartObject, markup.NodeStartMember, markup.NodeConditionalScope:
				depth++
			}
		}
		covered = offsets[len(offsets)-1] + 1
	}
	return nil
}
