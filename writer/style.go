package writer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"vsmrt/essence"
	"vsmrt/markup"
	"vsmrt/runtimedata"
	"vsmrt/stream"
	"vsmrt/typeindex"
)

// ErrConditionalStyleSetter is returned for setters declared under a
// conditional namespace, the style essence has no place to keep them.
var ErrConditionalStyleSetter = errors.New("style setters cannot be conditional")

// StyleWriter captures the target type, base style and setters of a Style.
type StyleWriter struct {
	cur    cursor
	log    *zap.Logger
	rd     runtimedata.StyleRuntimeData
	setter *essence.StyleSetterEssence
	names  []string
}

func NewStyleWriter(tokens *stream.TokenTable, log *zap.Logger) *StyleWriter {
	return &StyleWriter{
		cur: newCursor(tokens),
		log: log.Named("style-writer"),
		rd:  runtimedata.StyleRuntimeData{BasedOn: stream.NoToken},
	}
}

func (w *StyleWriter) Kind() typeindex.Kind        { return typeindex.KindStyle }
func (w *StyleWriter) Roots() []int                { return w.cur.roots }
func (w *StyleWriter) Conditionals() []Conditional { return nil }

func (w *StyleWriter) WriteNode(i int, n markup.Node) error {
	return w.cur.step(i, n, w)
}

func (w *StyleWriter) startObject(i int, t stream.TypeRef, guards []stream.PredicateAndArgs) error {
	c := &w.cur
	switch {
	case c.depth() == 1:
		if t != markup.TypeStyle {
			return fmt.Errorf("%s: %w", t, ErrUnsupportedRoot)
		}
	case c.depth() == 3 && c.within() == markup.PropStyleBasedOn:
		w.rd.BasedOn = c.token(i)
	case c.depth() == 3 && c.within() == markup.PropStyleSetters:
		if len(guards) > 0 {
			return ErrConditionalStyleSetter
		}
		if t != markup.TypeSetter {
			return fmt.Errorf("%s in style setters: %w", t, markup.ErrMalformedNodes)
		}
		w.setter = &essence.StyleSetterEssence{ValueToken: stream.NoToken}
		c.onEnd(func(int) error {
			if w.setter.Property.Name == "" {
				return fmt.Errorf("style setter without property: %w", markup.ErrMalformedNodes)
			}
			w.rd.Setters = append(w.rd.Setters, *w.setter)
			w.setter = nil
			return nil
		})
	case c.depth() == 5 && w.setter != nil && c.within() == markup.PropSetterValue:
		w.setter.ValueToken = c.token(i)
		// inline objects are created per target, resources are shared
		w.setter.Mutable = t != markup.TypeStaticResource && t != markup.TypeThemeResource
	}
	return nil
}

func (w *StyleWriter) startMember(int, stream.PropertyRef) error { return nil }

func (w *StyleWriter) value(_ int, v stream.Value) error {
	c := &w.cur
	p := c.member()
	switch {
	case c.depth() == 2 && p == markup.PropStyleTargetType:
		w.rd.TargetType = markup.TypeByName(valueString(v))
	case c.depth() == 4 && w.setter != nil && p == markup.PropSetterProperty:
		w.setter.Property = markup.MemberFromAttribute(w.rd.TargetType, valueString(v))
	case c.depth() == 4 && w.setter != nil && p == markup.PropSetterValue:
		w.setter.Value = v
	case p == markup.DirectiveName:
		w.names = append(w.names, valueString(v))
	}
	return nil
}

func (w *StyleWriter) conditional(int, []stream.PredicateAndArgs) error {
	if w.cur.depth() == 2 && w.cur.member() == markup.PropStyleSetters {
		// checked again on the guarded setter itself
		return nil
	}
	return fmt.Errorf("conditional declaration in style: %w", ErrConditionalStyleSetter)
}

func (w *StyleWriter) Finish(ti typeindex.TypeIndex) (runtimedata.RuntimeData, error) {
	if err := w.cur.finished(); err != nil {
		return nil, err
	}
	if err := checkRevision(ti, typeindex.KindStyle); err != nil {
		return nil, err
	}
	if len(w.names) > 0 {
		w.log.Debug("Names inside style are not registered", zap.Strings("names", w.names))
	}
	rd := w.rd
	rd.TypeIndex = ti
	return &rd, nil
}
