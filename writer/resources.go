package writer

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"vsmrt/essence"
	"vsmrt/markup"
	"vsmrt/runtimedata"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

var (
	ErrResourceWithoutKey = errors.New("resource has neither x:Key nor x:Name")
	ErrDuplicateResource  = errors.New("duplicate resource key")
)

type entry struct {
	tok        stream.StreamOffsetToken
	typ        stream.TypeRef
	key, name  string
	targetType string
	theme      bool
}

// ResourceDictionaryWriter indexes the resources of a dictionary by key so
// that each one can be created on first lookup.
type ResourceDictionaryWriter struct {
	cur          cursor
	log          *zap.Logger
	rd           runtimedata.ResourceDictionaryRuntimeData
	current      *entry
	conditionals []Conditional
}

func NewResourceDictionaryWriter(tokens *stream.TokenTable, log *zap.Logger) *ResourceDictionaryWriter {
	return &ResourceDictionaryWriter{
		cur: newCursor(tokens),
		log: log.Named("dictionary-writer"),
		rd: runtimedata.ResourceDictionaryRuntimeData{
			ResourceDictionaryEssence: essence.ResourceDictionaryEssence{
				Keyed:  make(map[string]stream.StreamOffsetToken),
				Named:  make(map[string]stream.StreamOffsetToken),
				Themes: make(map[string]stream.StreamOffsetToken),
			},
		},
	}
}

func (w *ResourceDictionaryWriter) Kind() typeindex.Kind        { return typeindex.KindResourceDictionary }
func (w *ResourceDictionaryWriter) Roots() []int                { return w.cur.roots }
func (w *ResourceDictionaryWriter) Conditionals() []Conditional { return w.conditionals }

func (w *ResourceDictionaryWriter) WriteNode(i int, n markup.Node) error {
	return w.cur.step(i, n, w)
}

func (w *ResourceDictionaryWriter) startObject(i int, t stream.TypeRef, guards []stream.PredicateAndArgs) error {
	c := &w.cur
	if c.depth() == 1 {
		if t != markup.TypeResourceDictionary {
			return fmt.Errorf("%s: %w", t, ErrUnsupportedRoot)
		}
		return nil
	}
	if c.depth() != 3 {
		return nil
	}
	in := c.within()
	if in != markup.PropDictionaryItems && in != markup.PropThemeDictionaries {
		return nil
	}
	e := &entry{tok: c.token(i), typ: t, theme: in == markup.PropThemeDictionaries}
	if len(guards) > 0 {
		w.conditionals = append(w.conditionals, Conditional{Token: e.tok, Predicates: guards})
	}
	w.current = e
	c.onEnd(func(int) error {
		w.current = nil
		return w.add(e)
	})
	return nil
}

func (w *ResourceDictionaryWriter) add(e *entry) error {
	key := e.key
	if key == "" && e.typ == markup.TypeStyle {
		// implicit styles are keyed by their target type
		key = e.targetType
	}
	target := w.rd.Keyed
	switch {
	case e.theme:
		if key == "" {
			return fmt.Errorf("theme dictionary: %w", ErrResourceWithoutKey)
		}
		target = w.rd.Themes
	case key == "" && e.name != "":
		key, target = e.name, w.rd.Named
	case key == "":
		return fmt.Errorf("%s: %w", e.typ, ErrResourceWithoutKey)
	}
	if _, dup := target[key]; dup {
		return fmt.Errorf("%q: %w", key, ErrDuplicateResource)
	}
	target[key] = e.tok
	return nil
}

func (w *ResourceDictionaryWriter) startMember(int, stream.PropertyRef) error { return nil }

func (w *ResourceDictionaryWriter) value(_ int, v stream.Value) error {
	c := &w.cur
	if w.current == nil || c.depth() != 4 {
		return nil
	}
	switch p := c.member(); {
	case p == markup.DirectiveKey:
		w.current.key = valueString(v)
	case p == markup.DirectiveName:
		w.current.name = valueString(v)
	case p == markup.PropStyleTargetType && w.current.typ == markup.TypeStyle:
		w.current.targetType = valueString(v)
	}
	return nil
}

func (w *ResourceDictionaryWriter) conditional(int, []stream.PredicateAndArgs) error { return nil }

func (w *ResourceDictionaryWriter) Finish(ti typeindex.TypeIndex) (runtimedata.RuntimeData, error) {
	if err := w.cur.finished(); err != nil {
		return nil, err
	}
	if err := checkRevision(ti, typeindex.KindResourceDictionary); err != nil {
		return nil, err
	}
	rev := typeindex.Revision(ti)
	if rev < 2 && len(w.rd.Named) > 0 {
		return nil, fmt.Errorf("resources keyed by x:Name need %s: %w", typeindex.ResourceDictionaryV2, ErrResourceWithoutKey)
	}
	if rev < 3 && len(w.rd.Themes) > 0 {
		return nil, fmt.Errorf("theme dictionaries need %s", typeindex.ResourceDictionaryV3)
	}
	rd := w.rd
	rd.TypeIndex = ti
	return &rd, nil
}

// DeferredElementWriter captures an x:Load element so its content can be
// realized later.
type DeferredElementWriter struct {
	cur          cursor
	log          *zap.Logger
	rd           runtimedata.DeferredElementRuntimeData
	conditionals []Conditional
}

func NewDeferredElementWriter(tokens *stream.TokenTable, log *zap.Logger) *DeferredElementWriter {
	return &DeferredElementWriter{
		cur: newCursor(tokens),
		log: log.Named("deferred-writer"),
		rd: runtimedata.DeferredElementRuntimeData{
			DeferredElementEssence: essence.DeferredElementEssence{Content: stream.NoToken},
		},
	}
}

func (w *DeferredElementWriter) Kind() typeindex.Kind        { return typeindex.KindDeferredElement }
func (w *DeferredElementWriter) Roots() []int                { return w.cur.roots }
func (w *DeferredElementWriter) Conditionals() []Conditional { return w.conditionals }

func (w *DeferredElementWriter) WriteNode(i int, n markup.Node) error {
	return w.cur.step(i, n, w)
}

func (w *DeferredElementWriter) startObject(i int, t stream.TypeRef, guards []stream.PredicateAndArgs) error {
	c := &w.cur
	switch {
	case c.depth() == 1:
		if t != markup.TypeDeferredElement {
			return fmt.Errorf("%s: %w", t, ErrUnsupportedRoot)
		}
		if len(guards) > 0 {
			return fmt.Errorf("conditional deferred element root: %w", markup.ErrMalformedNodes)
		}
	case c.depth() == 3 && c.within() == markup.PropDeferredContent:
		if w.rd.Content.IsValid() {
			return fmt.Errorf("deferred element with more than one content object: %w", markup.ErrMalformedNodes)
		}
		w.rd.Content = c.token(i)
		if len(guards) > 0 {
			w.conditionals = append(w.conditionals, Conditional{Token: w.rd.Content, Predicates: guards})
		}
	}
	return nil
}

func (w *DeferredElementWriter) startMember(int, stream.PropertyRef) error { return nil }

func (w *DeferredElementWriter) value(_ int, v stream.Value) error {
	if w.cur.depth() != 2 {
		return nil
	}
	switch w.cur.member() {
	case markup.DirectiveName:
		w.rd.Name = valueString(v)
	case markup.DirectiveLoad:
		if v.Kind == stream.ValueBool {
			w.rd.RealizeOnLoad = v.Bool
		} else {
			w.rd.RealizeOnLoad = strings.EqualFold(strings.TrimSpace(valueString(v)), "true")
		}
	}
	return nil
}

func (w *DeferredElementWriter) conditional(int, []stream.PredicateAndArgs) error { return nil }

func (w *DeferredElementWriter) Finish(ti typeindex.TypeIndex) (runtimedata.RuntimeData, error) {
	if err := w.cur.finished(); err != nil {
		return nil, err
	}
	if err := checkRevision(ti, typeindex.KindDeferredElement); err != nil {
		return nil, err
	}
	if !w.rd.Content.IsValid() {
		return nil, fmt.Errorf("deferred element %q has no content: %w", w.rd.Name, markup.ErrMalformedNodes)
	}
	if w.rd.Name == "" {
		w.log.Debug("Deferred element without name can only be realized on load")
	}
	rd := w.rd
	rd.TypeIndex = ti
	return &rd, nil
}
